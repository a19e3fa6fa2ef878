package engine

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// frame is a rigid transform into the principal axes of a point cloud.
// Cutting planes are axis aligned, so working in this frame lets them follow
// the dominant directions of the mesh.
type frame struct {
	mean r3.Vec
	axes [3]r3.Vec
}

// principalFrame returns the principal axes frame of pts. ok is false when
// the covariance could not be factorized.
func principalFrame(pts []r3.Vec) (f frame, ok bool) {
	if len(pts) == 0 {
		return f, false
	}
	for _, p := range pts {
		f.mean = r3.Add(f.mean, p)
	}
	f.mean = r3.Scale(1/float64(len(pts)), f.mean)

	var c [6]float64 // xx xy xz yy yz zz
	for _, p := range pts {
		d := r3.Sub(p, f.mean)
		c[0] += d.X * d.X
		c[1] += d.X * d.Y
		c[2] += d.X * d.Z
		c[3] += d.Y * d.Y
		c[4] += d.Y * d.Z
		c[5] += d.Z * d.Z
	}
	cov := mat.NewSymDense(3, []float64{
		c[0], c[1], c[2],
		c[1], c[3], c[4],
		c[2], c[4], c[5],
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return f, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// keep a right handed basis so triangle winding survives the transform
	if mat.Det(&vecs) < 0 {
		for i := 0; i < 3; i++ {
			vecs.Set(i, 2, -vecs.At(i, 2))
		}
	}
	for j := 0; j < 3; j++ {
		f.axes[j] = r3.Vec{X: vecs.At(0, j), Y: vecs.At(1, j), Z: vecs.At(2, j)}
	}
	return f, true
}

func (f frame) toLocal(p r3.Vec) r3.Vec {
	d := r3.Sub(p, f.mean)
	return r3.Vec{X: r3.Dot(d, f.axes[0]), Y: r3.Dot(d, f.axes[1]), Z: r3.Dot(d, f.axes[2])}
}

func (f frame) toWorld(p r3.Vec) r3.Vec {
	w := f.mean
	w = r3.Add(w, r3.Scale(p.X, f.axes[0]))
	w = r3.Add(w, r3.Scale(p.Y, f.axes[1]))
	w = r3.Add(w, r3.Scale(p.Z, f.axes[2]))
	return w
}
