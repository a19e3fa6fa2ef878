// Package hull computes 3D convex hulls of point sets.
//
// The computer is an incremental quickhull: an initial tetrahedron is grown by
// repeatedly adding the point farthest outside the current hull. Every face
// keeps the list of points it can see (its conflict list) so that each
// iteration only inspects the points that may still end up on the hull.
// Faces are oriented counter-clockwise when viewed from outside.
package hull

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerate reports that the input spans less than three dimensions
// (fewer than four points, or all points coincident, collinear or coplanar).
var ErrDegenerate = errors.New("hull: degenerate point set")

// relTolerance scales the bounding box diagonal into the distance below which
// a point is considered to lie on a face plane.
const relTolerance = 1e-10

// Hull is a closed convex polyhedron.
type Hull struct {
	Points    []r3.Vec
	Triangles [][3]int
	Volume    float64
	Center    r3.Vec
}

type face struct {
	v       [3]int
	normal  r3.Vec
	offset  float64
	outside []int
	far     int
	farDist float64
	dead    bool
}

func (f *face) distance(p r3.Vec) float64 {
	return r3.Dot(f.normal, p) - f.offset
}

type computer struct {
	pts   []r3.Vec
	tol   float64
	faces []*face
}

// Compute returns the convex hull of pts.
func Compute(pts []r3.Vec) (*Hull, error) {
	return ComputeLimited(pts, 0)
}

// ComputeLimited returns the convex hull of pts, stopping once the hull has
// maxVertices vertices. The points are added farthest first so a truncated
// hull keeps the most significant vertices. maxVertices <= 0 means no limit;
// values below 4 are raised to 4.
func ComputeLimited(pts []r3.Vec, maxVertices int) (*Hull, error) {
	if len(pts) < 4 {
		return nil, ErrDegenerate
	}
	if maxVertices > 0 && maxVertices < 4 {
		maxVertices = 4
	}

	box := Bounds(pts)
	diag := r3.Norm(r3.Sub(box.Max, box.Min))
	if diag == 0 || math.IsNaN(diag) || math.IsInf(diag, 0) {
		return nil, ErrDegenerate
	}

	c := &computer{pts: pts, tol: diag * relTolerance}
	simplex, err := c.initialSimplex()
	if err != nil {
		return nil, err
	}
	c.seed(simplex)

	for {
		if maxVertices > 0 && c.vertexCount() >= maxVertices {
			break
		}
		f := c.farthestFace()
		if f == nil {
			break
		}
		c.addPoint(f.far)
	}

	return c.build(), nil
}

// Bounds returns the axis aligned bounding box of pts.
func Bounds(pts []r3.Vec) r3.Box {
	if len(pts) == 0 {
		return r3.Box{}
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		lo.Z = math.Min(lo.Z, p.Z)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
		hi.Z = math.Max(hi.Z, p.Z)
	}
	return r3.Box{Min: lo, Max: hi}
}

func (c *computer) initialSimplex() ([4]int, error) {
	var s [4]int
	pts := c.pts

	for i, p := range pts {
		if p.X < pts[s[0]].X {
			s[0] = i
		}
	}

	best := -1.0
	for i, p := range pts {
		if d := r3.Norm2(r3.Sub(p, pts[s[0]])); d > best {
			best, s[1] = d, i
		}
	}
	if math.Sqrt(best) <= c.tol {
		return s, ErrDegenerate
	}

	axis := r3.Sub(pts[s[1]], pts[s[0]])
	axisLen := r3.Norm(axis)
	best = -1
	for i, p := range pts {
		d := r3.Norm(r3.Cross(r3.Sub(p, pts[s[0]]), axis)) / axisLen
		if d > best {
			best, s[2] = d, i
		}
	}
	if best <= c.tol {
		return s, ErrDegenerate
	}

	n := r3.Unit(r3.Cross(axis, r3.Sub(pts[s[2]], pts[s[0]])))
	best = -1
	for i, p := range pts {
		d := math.Abs(r3.Dot(n, r3.Sub(p, pts[s[0]])))
		if d > best {
			best, s[3] = d, i
		}
	}
	if best <= c.tol {
		return s, ErrDegenerate
	}
	return s, nil
}

func (c *computer) newFace(a, b, d int) *face {
	pa, pb, pd := c.pts[a], c.pts[b], c.pts[d]
	n := r3.Cross(r3.Sub(pb, pa), r3.Sub(pd, pa))
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}
	return &face{v: [3]int{a, b, d}, normal: n, offset: r3.Dot(n, pa), far: -1}
}

func (c *computer) seed(s [4]int) {
	tris := [4][4]int{
		{s[0], s[1], s[2], s[3]},
		{s[0], s[3], s[1], s[2]},
		{s[1], s[3], s[2], s[0]},
		{s[2], s[3], s[0], s[1]},
	}
	for _, t := range tris {
		f := c.newFace(t[0], t[1], t[2])
		if f.distance(c.pts[t[3]]) > 0 {
			f = c.newFace(t[0], t[2], t[1])
		}
		c.faces = append(c.faces, f)
	}

	inSimplex := func(i int) bool {
		return i == s[0] || i == s[1] || i == s[2] || i == s[3]
	}
	for i := range c.pts {
		if inSimplex(i) {
			continue
		}
		c.assign(i, c.faces)
	}
}

// assign puts point i on the conflict list of the candidate face it is
// farthest outside of. Points inside every candidate are dropped.
func (c *computer) assign(i int, candidates []*face) {
	var target *face
	best := c.tol
	for _, f := range candidates {
		if f.dead {
			continue
		}
		if d := f.distance(c.pts[i]); d > best {
			best, target = d, f
		}
	}
	if target == nil {
		return
	}
	target.outside = append(target.outside, i)
	if best > target.farDist {
		target.farDist, target.far = best, i
	}
}

func (c *computer) farthestFace() *face {
	var best *face
	for _, f := range c.faces {
		if f.dead || len(f.outside) == 0 {
			continue
		}
		if best == nil || f.farDist > best.farDist {
			best = f
		}
	}
	return best
}

type edge struct{ a, b int }

func (c *computer) addPoint(eye int) {
	p := c.pts[eye]

	var visible []*face
	edges := make(map[edge]struct{})
	for _, f := range c.faces {
		if f.dead || f.distance(p) <= c.tol {
			continue
		}
		visible = append(visible, f)
		for k := 0; k < 3; k++ {
			edges[edge{f.v[k], f.v[(k+1)%3]}] = struct{}{}
		}
	}

	var orphans []int
	for _, f := range visible {
		f.dead = true
		for _, i := range f.outside {
			if i != eye {
				orphans = append(orphans, i)
			}
		}
		f.outside = nil
	}

	var created []*face
	for _, f := range visible {
		for k := 0; k < 3; k++ {
			e := edge{f.v[k], f.v[(k+1)%3]}
			if _, shared := edges[edge{e.b, e.a}]; shared {
				continue
			}
			created = append(created, c.newFace(e.a, e.b, eye))
		}
	}

	for _, i := range orphans {
		c.assign(i, created)
	}

	alive := c.faces[:0]
	for _, f := range c.faces {
		if !f.dead {
			alive = append(alive, f)
		}
	}
	c.faces = append(alive, created...)
}

func (c *computer) vertexCount() int {
	seen := make(map[int]struct{})
	for _, f := range c.faces {
		if f.dead {
			continue
		}
		for _, v := range f.v {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func (c *computer) build() *Hull {
	remap := make(map[int]int)
	h := &Hull{}
	for _, f := range c.faces {
		if f.dead {
			continue
		}
		var t [3]int
		for k, v := range f.v {
			idx, ok := remap[v]
			if !ok {
				idx = len(h.Points)
				remap[v] = idx
				h.Points = append(h.Points, c.pts[v])
			}
			t[k] = idx
		}
		h.Triangles = append(h.Triangles, t)
	}
	h.Volume, h.Center = VolumeCentroid(h.Points, h.Triangles)
	return h
}

// VolumeCentroid returns the enclosed volume and the centroid of a closed,
// outward oriented triangle surface. For a surface that is not closed the
// result depends on the reference point and carries no meaning.
func VolumeCentroid(pts []r3.Vec, tris [][3]int) (float64, r3.Vec) {
	if len(pts) == 0 {
		return 0, r3.Vec{}
	}
	var ref r3.Vec
	for _, p := range pts {
		ref = r3.Add(ref, p)
	}
	ref = r3.Scale(1/float64(len(pts)), ref)

	var vol float64
	var moment r3.Vec
	for _, t := range tris {
		a := r3.Sub(pts[t[0]], ref)
		b := r3.Sub(pts[t[1]], ref)
		c := r3.Sub(pts[t[2]], ref)
		v := r3.Dot(a, r3.Cross(b, c)) / 6
		vol += v
		moment = r3.Add(moment, r3.Scale(v/4, r3.Add(r3.Add(a, b), c)))
	}
	if vol == 0 {
		return 0, ref
	}
	return vol, r3.Add(ref, r3.Scale(1/vol, moment))
}
