package testmesh

// Mesh is a flat triangle mesh: three coordinates per point, three point
// indices per triangle, triangles wound counter-clockwise seen from outside.
type Mesh struct {
	Points    []float64
	Triangles []uint32
}

// NumPoints returns the point count in the form the session API expects.
func (m Mesh) NumPoints() uint32 { return uint32(len(m.Points) / 3) }

// NumTriangles returns the triangle count in the form the session API expects.
func (m Mesh) NumTriangles() uint32 { return uint32(len(m.Triangles) / 3) }

// Points32 returns a single precision copy of the points.
func (m Mesh) Points32() []float32 {
	out := make([]float32, len(m.Points))
	for i, v := range m.Points {
		out[i] = float32(v)
	}
	return out
}

// boxTriangles indexes the corners produced by Box.
var boxTriangles = []uint32{
	0, 2, 1, 0, 3, 2, // z = min
	4, 5, 6, 4, 6, 7, // z = max
	0, 1, 5, 0, 5, 4, // y = min
	3, 7, 6, 3, 6, 2, // y = max
	0, 4, 7, 0, 7, 3, // x = min
	1, 2, 6, 1, 6, 5, // x = max
}

// Box returns the axis aligned box spanning lo to hi: 8 points, 12 triangles.
func Box(lo, hi [3]float64) Mesh {
	x0, y0, z0 := lo[0], lo[1], lo[2]
	x1, y1, z1 := hi[0], hi[1], hi[2]
	return Mesh{
		Points: []float64{
			x0, y0, z0,
			x1, y0, z0,
			x1, y1, z0,
			x0, y1, z0,
			x0, y0, z1,
			x1, y0, z1,
			x1, y1, z1,
			x0, y1, z1,
		},
		Triangles: append([]uint32(nil), boxTriangles...),
	}
}

// UnitCube returns the cube spanning the origin to (1, 1, 1).
func UnitCube() Mesh {
	return Box([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
}

// TwoCubes returns two unit cubes separated by gap along X as one mesh.
func TwoCubes(gap float64) Mesh {
	return Merge(
		UnitCube(),
		Box([3]float64{1 + gap, 0, 0}, [3]float64{2 + gap, 1, 1}),
	)
}

// LShape returns an L shaped solid made of a 1x2x1 and a 1x1x1 box that
// share part of a face. Its volume is 3 and its convex hull volume is 3.5.
func LShape() Mesh {
	return Merge(
		Box([3]float64{0, 0, 0}, [3]float64{1, 2, 1}),
		Box([3]float64{1, 0, 0}, [3]float64{2, 1, 1}),
	)
}

// FlatQuad returns a unit square in the z = 0 plane. It encloses no volume.
func FlatQuad() Mesh {
	return Mesh{
		Points:    []float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Triangles: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Merge concatenates meshes, welding points with identical coordinates so
// touching inputs become one connected component.
func Merge(meshes ...Mesh) Mesh {
	var out Mesh
	index := make(map[[3]float64]uint32)
	for _, m := range meshes {
		remap := make([]uint32, len(m.Points)/3)
		for i := range remap {
			key := [3]float64{m.Points[3*i], m.Points[3*i+1], m.Points[3*i+2]}
			id, ok := index[key]
			if !ok {
				id = uint32(len(out.Points) / 3)
				index[key] = id
				out.Points = append(out.Points, key[:]...)
			}
			remap[i] = id
		}
		for _, t := range m.Triangles {
			out.Triangles = append(out.Triangles, remap[t])
		}
	}
	return out
}

// Translate returns a copy of m moved by d.
func Translate(m Mesh, d [3]float64) Mesh {
	out := Mesh{
		Points:    make([]float64, len(m.Points)),
		Triangles: append([]uint32(nil), m.Triangles...),
	}
	for i, v := range m.Points {
		out.Points[i] = v + d[i%3]
	}
	return out
}
