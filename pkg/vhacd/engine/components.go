package engine

import (
	"gonum.org/v1/gonum/spatial/r3"
)

type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u[rb] = ra
	}
}

// components splits the mesh into parts whose triangles share vertices.
// Parts are returned in order of their first triangle.
func components(pts []r3.Vec, triangles []uint32) []*part {
	u := newUnionFind(len(pts))
	for t := 0; t+2 < len(triangles); t += 3 {
		u.union(int(triangles[t]), int(triangles[t+1]))
		u.union(int(triangles[t]), int(triangles[t+2]))
	}

	byRoot := make(map[int]*part)
	var out []*part
	for t := 0; t+2 < len(triangles); t += 3 {
		root := u.find(int(triangles[t]))
		p, ok := byRoot[root]
		if !ok {
			p = &part{}
			byRoot[root] = p
			out = append(out, p)
		}
		p.tris = append(p.tris, tri{p: [3]r3.Vec{
			pts[triangles[t]],
			pts[triangles[t+1]],
			pts[triangles[t+2]],
		}})
	}
	return out
}
