package engine

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/internal/hull"
)

// Stage names reported through the Notifier.
const (
	StageComponents     = "components"
	StageDecomposition  = "decomposition"
	StageMerging        = "merging"
	StageSimplification = "simplification"
)

const maxDepth = 16

// Hierarchical is the default Engine. The zero value is ready to use.
type Hierarchical struct {
	// Workers bounds how many cut planes are evaluated in parallel. Zero
	// means GOMAXPROCS.
	Workers int
}

// New returns a Hierarchical engine with default settings.
func New() *Hierarchical {
	return &Hierarchical{}
}

func (h *Hierarchical) workers() int {
	if h.Workers > 0 {
		return h.Workers
	}
	return runtime.GOMAXPROCS(0)
}

type reporter struct {
	n      Notifier
	stage  string
	lo, hi float64
}

func (r *reporter) begin(stage string, lo, hi float64) {
	r.stage, r.lo, r.hi = stage, lo, hi
	r.n.Progress(lo, 0, 0, stage, "start")
}

func (r *reporter) update(stageFrac, opFrac float64, op string) {
	stageFrac = math.Min(math.Max(stageFrac, 0), 1)
	r.n.Progress(r.lo+(r.hi-r.lo)*stageFrac, stageFrac, opFrac, r.stage, op)
}

// Decompose implements Engine.
func (h *Hierarchical) Decompose(ctx context.Context, mesh Mesh, params Params, n Notifier) ([]Hull, error) {
	if n == nil {
		n = NopNotifier{}
	}
	rep := &reporter{n: n}

	if mesh.NumPoints() == 0 || mesh.NumTriangles() == 0 {
		return nil, ErrDegenerate
	}
	if params.Tetrahedron {
		n.Log("tetrahedron mode not supported, falling back to voxel mode")
	}
	if params.OCLAcceleration {
		n.Log("OpenCL acceleration not available, running on CPU")
	}

	rep.begin(StageComponents, 0, 0.05)
	pts := make([]r3.Vec, mesh.NumPoints())
	for i := range pts {
		pts[i] = r3.Vec{X: mesh.Points[3*i], Y: mesh.Points[3*i+1], Z: mesh.Points[3*i+2]}
	}
	var (
		pca    frame
		hasPCA bool
	)
	if params.PCA {
		if pca, hasPCA = principalFrame(pts); hasPCA {
			local := make([]r3.Vec, len(pts))
			for i, p := range pts {
				local[i] = pca.toLocal(p)
			}
			pts = local
		} else {
			n.Log("PCA alignment failed, decomposing in world frame")
		}
	}

	root, err := hull.Compute(pts)
	if err != nil || root.Volume <= 0 {
		return nil, ErrDegenerate
	}
	parts := components(pts, mesh.Triangles)
	n.Log(fmt.Sprintf("mesh has %d connected components", len(parts)))
	rep.update(1, 1, "split components")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.begin(StageDecomposition, 0.05, 0.8)
	pieces, err := h.decompose(ctx, parts, root, params, rep)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, ErrDegenerate
	}
	n.Log(fmt.Sprintf("decomposition produced %d convex hulls", len(pieces)))

	rep.begin(StageMerging, 0.8, 0.95)
	pieces, err = h.merge(ctx, pieces, int(params.MaxConvexHulls), rep)
	if err != nil {
		return nil, err
	}
	rep.update(1, 1, "merge")

	rep.begin(StageSimplification, 0.95, 1)
	pieces, err = simplify(ctx, pieces, int(params.MaxNumVerticesPerCH), rep)
	if err != nil {
		return nil, err
	}

	var snap *snapper
	if params.ProjectHullVertices {
		box := hull.Bounds(pts)
		if tol := r3.Norm(r3.Sub(box.Max, box.Min)) * 1e-9; tol > 0 {
			orig := make([]r3.Vec, mesh.NumPoints())
			for i := range orig {
				orig[i] = r3.Vec{X: mesh.Points[3*i], Y: mesh.Points[3*i+1], Z: mesh.Points[3*i+2]}
			}
			snap = newSnapper(orig, tol)
		}
	}

	out := make([]Hull, 0, len(pieces))
	for _, p := range pieces {
		world := make([]r3.Vec, len(p.Points))
		for i, v := range p.Points {
			if hasPCA {
				v = pca.toWorld(v)
			}
			if snap != nil {
				v = snap.snap(v)
			}
			world[i] = v
		}
		out = append(out, toHull(world, p.Triangles))
	}
	if len(out) == 0 {
		return nil, ErrNoHulls
	}
	rep.update(1, 1, "done")
	return out, nil
}

func toHull(pts []r3.Vec, tris [][3]int) Hull {
	vol, c := hull.VolumeCentroid(pts, tris)
	out := Hull{
		Points:    make([]float64, 0, 3*len(pts)),
		Triangles: make([]uint32, 0, 3*len(tris)),
		Volume:    vol,
		Center:    [3]float64{c.X, c.Y, c.Z},
	}
	for _, p := range pts {
		out.Points = append(out.Points, p.X, p.Y, p.Z)
	}
	for _, t := range tris {
		out.Triangles = append(out.Triangles, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}
	return out
}

func (h *Hierarchical) decompose(ctx context.Context, queue []*part, root *hull.Hull, params Params, rep *reporter) ([]*hull.Hull, error) {
	depthLimit := bits.Len32(params.MaxConvexHulls)
	if depthLimit == 0 || depthLimit > maxDepth {
		depthLimit = maxDepth
	}
	rb := hull.Bounds(root.Points)
	rootDiag := r3.Norm(r3.Sub(rb.Max, rb.Min))
	minExtent := 0.0
	if params.Resolution > 0 {
		minExtent = rootDiag / math.Cbrt(float64(params.Resolution))
	}
	perAxis := 2
	if params.PlaneDownsampling > 0 && 32/params.PlaneDownsampling > 2 {
		perAxis = int(32 / params.PlaneDownsampling)
	}
	stride := 1
	if params.ConvexHullApproximation && params.ConvexHullDownsampling > 1 {
		stride = int(params.ConvexHullDownsampling)
	}

	var out []*hull.Hull
	done := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := queue[0]
		queue = queue[1:]

		ch, err := hull.Compute(p.hullPoints())
		if err != nil || ch.Volume <= 0 {
			rep.n.Log("dropping flat part")
			done++
			continue
		}

		vol := p.volume()
		concavity := math.Max(ch.Volume-vol, 0) / root.Volume
		box := p.bounds()
		extent := r3.Norm(r3.Sub(box.Max, box.Min))
		splittable := concavity > params.Concavity &&
			p.depth < depthLimit &&
			extent > minExtent &&
			vol >= params.MinVolumePerCH*root.Volume

		if splittable {
			pl, ok, err := h.bestCut(ctx, p, candidates(box, perAxis), stride, root.Volume, params)
			if err != nil {
				return nil, err
			}
			if ok {
				below, above := p.split(pl)
				if below != nil && above != nil {
					queue = append(queue, below, above)
					rep.update(float64(done)/float64(done+len(queue)), 0, "cut")
					continue
				}
			}
		}

		out = append(out, ch)
		done++
		rep.update(float64(done)/float64(done+len(queue)), 1, "hull")
	}
	return out, nil
}

// bestCut picks the candidate plane whose two halves have the smallest total
// hull volume. Alpha penalises unbalanced cuts; Beta penalises cuts across
// the shorter axes of the part.
func (h *Hierarchical) bestCut(ctx context.Context, p *part, cands []plane, stride int, rootVolume float64, params Params) (plane, bool, error) {
	if len(cands) == 0 {
		return plane{}, false, nil
	}
	p.prepare()
	box := p.bounds()
	extents := [3]float64{box.Max.X - box.Min.X, box.Max.Y - box.Min.Y, box.Max.Z - box.Min.Z}
	longest := math.Max(extents[0], math.Max(extents[1], extents[2]))

	costs := make([]float64, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers())
	for i, pl := range cands {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			below, above := p.sidePoints(pl, stride)
			vb, va := hullVolume(below), hullVolume(above)
			if vb <= 0 || va <= 0 {
				costs[i] = math.Inf(1)
				return nil
			}
			c := (vb + va) / rootVolume
			c += params.Alpha * math.Abs(vb-va) / (vb + va)
			if longest > 0 {
				c += params.Beta * (1 - extents[pl.axis]/longest)
			}
			costs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return plane{}, false, err
	}

	best := -1
	for i, c := range costs {
		if math.IsInf(c, 1) {
			continue
		}
		if best < 0 || c < costs[best] {
			best = i
		}
	}
	if best < 0 {
		return plane{}, false, nil
	}
	return cands[best], true, nil
}

func hullVolume(pts []r3.Vec) float64 {
	ch, err := hull.Compute(pts)
	if err != nil {
		return 0
	}
	return ch.Volume
}
