package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/internal/hull"
)

// tri is one triangle of a part surface. Cap triangles close the surface
// where a cut plane went through the solid; they count towards the enclosed
// volume but their vertices are not fed to the hull computer, since a fan
// over a non convex cap may reach outside the solid.
type tri struct {
	p   [3]r3.Vec
	cap bool
}

func (t tri) area2() float64 {
	return r3.Norm(r3.Cross(r3.Sub(t.p[1], t.p[0]), r3.Sub(t.p[2], t.p[0])))
}

// part is a closed piece of the input that is still being decomposed.
type part struct {
	tris  []tri
	depth int

	verts []r3.Vec
	edges [][2]int
}

// plane is an axis aligned cut plane: coordinate axis of a point equals offset.
type plane struct {
	axis   int
	offset float64
}

func coord(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (pl plane) dist(v r3.Vec) float64 { return coord(v, pl.axis) - pl.offset }

func lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// prepare indexes the unique surface vertices and edges of the non cap
// triangles. It must run before the part is shared between goroutines.
func (p *part) prepare() {
	if p.verts != nil {
		return
	}
	index := make(map[r3.Vec]int)
	id := func(v r3.Vec) int {
		if i, ok := index[v]; ok {
			return i
		}
		i := len(p.verts)
		index[v] = i
		p.verts = append(p.verts, v)
		return i
	}
	seen := make(map[[2]int]struct{})
	for _, t := range p.tris {
		if t.cap {
			continue
		}
		ids := [3]int{id(t.p[0]), id(t.p[1]), id(t.p[2])}
		for k := 0; k < 3; k++ {
			a, b := ids[k], ids[(k+1)%3]
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			e := [2]int{a, b}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			p.edges = append(p.edges, e)
		}
	}
}

// hullPoints returns the points whose convex hull equals the hull of the part.
func (p *part) hullPoints() []r3.Vec {
	p.prepare()
	return p.verts
}

// volume returns the volume enclosed by the part surface.
func (p *part) volume() float64 {
	if len(p.tris) == 0 {
		return 0
	}
	ref := p.tris[0].p[0]
	var v float64
	for _, t := range p.tris {
		a := r3.Sub(t.p[0], ref)
		b := r3.Sub(t.p[1], ref)
		c := r3.Sub(t.p[2], ref)
		v += r3.Dot(a, r3.Cross(b, c))
	}
	return v / 6
}

func (p *part) bounds() r3.Box {
	return hull.Bounds(p.hullPoints())
}

// minSampled is the vertex count below which sidePoints ignores stride.
const minSampled = 256

// sidePoints returns the hull points of both halves of a cut without
// clipping the surface. Every stride-th vertex is kept; intersection points
// are always kept since they shape the cut face.
func (p *part) sidePoints(pl plane, stride int) (below, above []r3.Vec) {
	p.prepare()
	if stride < 1 || len(p.verts) < minSampled {
		stride = 1
	}
	d := make([]float64, len(p.verts))
	for i, v := range p.verts {
		d[i] = pl.dist(v)
		if i%stride != 0 {
			continue
		}
		if d[i] <= 0 {
			below = append(below, v)
		}
		if d[i] >= 0 {
			above = append(above, v)
		}
	}
	for _, e := range p.edges {
		da, db := d[e[0]], d[e[1]]
		if (da < 0 && db > 0) || (da > 0 && db < 0) {
			x := lerp(p.verts[e[0]], p.verts[e[1]], da/(da-db))
			below = append(below, x)
			above = append(above, x)
		}
	}
	return below, above
}

// split cuts the part along pl and closes both halves with cap triangles.
func (p *part) split(pl plane) (below, above *part) {
	below = clip(p.tris, func(v r3.Vec) float64 { return pl.dist(v) })
	above = clip(p.tris, func(v r3.Vec) float64 { return -pl.dist(v) })
	if below != nil {
		below.depth = p.depth + 1
	}
	if above != nil {
		above.depth = p.depth + 1
	}
	return below, above
}

type segment struct {
	entry, exit r3.Vec
	fromCap     bool
}

// clip keeps the portion of the closed surface tris where dist <= 0.
func clip(tris []tri, dist func(r3.Vec) float64) *part {
	out := &part{}
	var segs []segment

	for _, t := range tris {
		var d [3]float64
		inside := 0
		for k, v := range t.p {
			d[k] = dist(v)
			if d[k] <= 0 {
				inside++
			}
		}
		switch inside {
		case 0:
			continue
		case 3:
			out.tris = append(out.tris, t)
			continue
		}

		var (
			poly        []r3.Vec
			entry, exit r3.Vec
			hasSeg      int
		)
		for k := 0; k < 3; k++ {
			cur, next := t.p[k], t.p[(k+1)%3]
			dc, dn := d[k], d[(k+1)%3]
			if dc <= 0 {
				poly = append(poly, cur)
			}
			if (dc <= 0) == (dn <= 0) {
				continue
			}
			x := lerp(cur, next, dc/(dc-dn))
			poly = append(poly, x)
			if dc <= 0 {
				exit = x
			} else {
				entry = x
			}
			hasSeg++
		}
		for k := 1; k+1 < len(poly); k++ {
			nt := tri{p: [3]r3.Vec{poly[0], poly[k], poly[k+1]}, cap: t.cap}
			if nt.area2() > 0 {
				out.tris = append(out.tris, nt)
			}
		}
		if hasSeg == 2 {
			segs = append(segs, segment{entry: entry, exit: exit, fromCap: t.cap})
		}
	}

	if len(out.tris) == 0 {
		return nil
	}
	if len(segs) > 0 {
		apex := segs[0].entry
		for _, s := range segs {
			if !s.fromCap {
				apex = s.entry
				break
			}
		}
		for _, s := range segs {
			ct := tri{p: [3]r3.Vec{apex, s.entry, s.exit}, cap: true}
			if ct.area2() > 0 {
				out.tris = append(out.tris, ct)
			}
		}
	}
	return out
}

// planeJitter shifts cut planes off the regular grid, relative to the part
// extent, so they do not pass exactly through vertices or faces of meshes
// built on that grid. A face lying on the plane would otherwise end up in
// both halves.
const planeJitter = 1e-6

// candidates returns the cut planes considered for a part, perAxis-1 per
// axis, spread evenly across the part's bounding box.
func candidates(box r3.Box, perAxis int) []plane {
	var out []plane
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
	for axis := 0; axis < 3; axis++ {
		extent := hi[axis] - lo[axis]
		if extent <= 0 || math.IsNaN(extent) {
			continue
		}
		for k := 1; k < perAxis; k++ {
			off := lo[axis] + extent*(float64(k)/float64(perAxis)+planeJitter)
			out = append(out, plane{axis: axis, offset: off})
		}
	}
	return out
}
