//go:build cgo

// Command libvhacd builds the C shared library exposing decomposition
// sessions:
//
//	go build -buildmode=c-shared -o libvhacd.so ./cmd/libvhacd
//
// Every object crosses the boundary as a VHACD_Handle. A zero handle is never
// valid.
package main

/*
#include <stdlib.h>
#include <string.h>
#include "libvhacd.h"
*/
import "C"

import (
	"unsafe"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd"
)

func init() {
	freeBuffer = func(p unsafe.Pointer) { C.free(p) }
}

func main() {}

func fromC(p *C.VHACD_Parameters) params {
	return params{
		Concavity:               float64(p.concavity),
		Alpha:                   float64(p.alpha),
		Beta:                    float64(p.beta),
		MinVolumePerCH:          float64(p.min_volume_per_ch),
		Callback:                uintptr(p.callback),
		Logger:                  uintptr(p.logger),
		Resolution:              uint32(p.resolution),
		MaxNumVerticesPerCH:     uint32(p.max_num_vertices_per_ch),
		PlaneDownsampling:       uint32(p.plane_downsampling),
		ConvexHullDownsampling:  uint32(p.convexhull_downsampling),
		PCA:                     uint32(p.pca),
		Mode:                    uint32(p.mode),
		ConvexHullApproximation: uint32(p.convexhull_approximation),
		OCLAcceleration:         uint32(p.ocl_acceleration),
		MaxConvexHulls:          uint32(p.max_convex_hulls),
		ProjectHullVertices:     bool(p.project_hull_vertices),
		Async:                   bool(p.async_acd),
	}
}

//export VHACD_DefaultParameters
func VHACD_DefaultParameters(out *C.VHACD_Parameters) {
	if out == nil {
		return
	}
	d := defaultParams()
	out.concavity = C.double(d.Concavity)
	out.alpha = C.double(d.Alpha)
	out.beta = C.double(d.Beta)
	out.min_volume_per_ch = C.double(d.MinVolumePerCH)
	out.callback = 0
	out.logger = 0
	out.resolution = C.uint32_t(d.Resolution)
	out.max_num_vertices_per_ch = C.uint32_t(d.MaxNumVerticesPerCH)
	out.plane_downsampling = C.uint32_t(d.PlaneDownsampling)
	out.convexhull_downsampling = C.uint32_t(d.ConvexHullDownsampling)
	out.pca = C.uint32_t(d.PCA)
	out.mode = C.uint32_t(d.Mode)
	out.convexhull_approximation = C.uint32_t(d.ConvexHullApproximation)
	out.ocl_acceleration = C.uint32_t(d.OCLAcceleration)
	out.max_convex_hulls = C.uint32_t(d.MaxConvexHulls)
	out.project_hull_vertices = C.bool(d.ProjectHullVertices)
	out.async_acd = C.bool(d.Async)
}

//export VHACD_Create
func VHACD_Create() C.VHACD_Handle {
	return C.VHACD_Handle(newSession())
}

func computeC[G float32 | float64](h C.VHACD_Handle, points unsafe.Pointer, nPoints C.uint32_t, triangles *C.uint32_t, nTriangles C.uint32_t, p *C.VHACD_Parameters, call func(*vhacd.Session, []G, uint32, []uint32, uint32, *vhacd.Parameters) error) C.bool {
	cs, ok := lookupSession(uintptr(h))
	if !ok || p == nil {
		return false
	}
	if (points == nil && nPoints != 0) || (triangles == nil && nTriangles != 0) {
		return false
	}
	params, err := fromC(p).parameters()
	if err != nil {
		return false
	}
	var (
		pts  []G
		tris []uint32
	)
	if points != nil {
		pts = unsafe.Slice((*G)(points), 3*int(nPoints))
	}
	if triangles != nil {
		tris = unsafe.Slice((*uint32)(unsafe.Pointer(triangles)), 3*int(nTriangles))
	}
	cs.dropBuffers()
	return call(cs.s, pts, uint32(nPoints), tris, uint32(nTriangles), params) == nil
}

//export VHACD_Compute_f32
func VHACD_Compute_f32(h C.VHACD_Handle, points *C.float, nPoints C.uint32_t, triangles *C.uint32_t, nTriangles C.uint32_t, p *C.VHACD_Parameters) C.bool {
	return computeC(h, unsafe.Pointer(points), nPoints, triangles, nTriangles, p, (*vhacd.Session).Compute32)
}

//export VHACD_Compute_f64
func VHACD_Compute_f64(h C.VHACD_Handle, points *C.double, nPoints C.uint32_t, triangles *C.uint32_t, nTriangles C.uint32_t, p *C.VHACD_Parameters) C.bool {
	return computeC(h, unsafe.Pointer(points), nPoints, triangles, nTriangles, p, (*vhacd.Session).Compute64)
}

//export VHACD_Cancel
func VHACD_Cancel(h C.VHACD_Handle) {
	if cs, ok := lookupSession(uintptr(h)); ok {
		cs.s.Cancel()
	}
}

//export VHACD_IsReady
func VHACD_IsReady(h C.VHACD_Handle) C.bool {
	cs, ok := lookupSession(uintptr(h))
	if !ok {
		return true
	}
	return C.bool(cs.s.IsReady())
}

//export VHACD_GetNConvexHulls
func VHACD_GetNConvexHulls(h C.VHACD_Handle) C.uint32_t {
	cs, ok := lookupSession(uintptr(h))
	if !ok {
		return 0
	}
	return C.uint32_t(cs.s.NConvexHulls())
}

func allocHull(h vhacd.ConvexHull) hullBuffers {
	var b hullBuffers
	if n := len(h.Points()); n > 0 {
		size := C.size_t(n) * C.size_t(unsafe.Sizeof(C.double(0)))
		b.points = C.malloc(size)
		C.memcpy(b.points, unsafe.Pointer(&h.Points()[0]), size)
	}
	if n := len(h.Triangles()); n > 0 {
		size := C.size_t(n) * C.size_t(unsafe.Sizeof(C.uint32_t(0)))
		b.triangles = C.malloc(size)
		C.memcpy(b.triangles, unsafe.Pointer(&h.Triangles()[0]), size)
	}
	return b
}

// VHACD_GetConvexHull fills out with hull index. The buffers belong to the
// session and stay valid until its next Compute, Clean or Release.
//
//export VHACD_GetConvexHull
func VHACD_GetConvexHull(h C.VHACD_Handle, index C.uint32_t, out *C.VHACD_ConvexHull) C.bool {
	cs, ok := lookupSession(uintptr(h))
	if !ok || out == nil {
		return false
	}
	hull, b, err := cs.hull(uint32(index), allocHull)
	if err != nil {
		return false
	}
	out.points = (*C.double)(b.points)
	out.triangles = (*C.uint32_t)(b.triangles)
	out.n_points = C.uint32_t(hull.NPoints())
	out.n_triangles = C.uint32_t(hull.NTriangles())
	out.volume = C.double(hull.Volume())
	c := hull.Center()
	for i := range c {
		out.center[i] = C.double(c[i])
	}
	return true
}

//export VHACD_ComputeCenterOfMass
func VHACD_ComputeCenterOfMass(h C.VHACD_Handle, out *C.double) C.bool {
	cs, ok := lookupSession(uintptr(h))
	if !ok || out == nil {
		return false
	}
	var com [3]float64
	if !cs.s.ComputeCenterOfMass(&com) {
		return false
	}
	dst := unsafe.Slice(out, 3)
	for i := range com {
		dst[i] = C.double(com[i])
	}
	return true
}

//export VHACD_Clean
func VHACD_Clean(h C.VHACD_Handle) {
	if cs, ok := lookupSession(uintptr(h)); ok {
		cs.s.Clean()
		cs.dropBuffers()
	}
}

//export VHACD_Release
func VHACD_Release(h C.VHACD_Handle) C.bool {
	return releaseSession(uintptr(h)) == nil
}

//export VHACD_CreateUserCallback
func VHACD_CreateUserCallback(ctx unsafe.Pointer, fn C.VHACD_UserCallback) C.VHACD_Handle {
	if fn == nil {
		return 0
	}
	p, err := vhacd.CreateUserCallback(ctx, func(userData any, overall, stage, operation float64, stageName, operationName string) {
		cStage := C.CString(stageName)
		defer C.free(unsafe.Pointer(cStage))
		cOp := C.CString(operationName)
		defer C.free(unsafe.Pointer(cOp))
		C.vhacd_invoke_callback(fn, userData.(unsafe.Pointer), C.double(overall), C.double(stage), C.double(operation), cStage, cOp)
	})
	if err != nil {
		return 0
	}
	return C.VHACD_Handle(p.Handle())
}

//export VHACD_CreateUserLogger
func VHACD_CreateUserLogger(fn C.VHACD_UserLogger) C.VHACD_Handle {
	if fn == nil {
		return 0
	}
	p, err := vhacd.CreateUserLogger(func(msg string) {
		cMsg := C.CString(msg)
		defer C.free(unsafe.Pointer(cMsg))
		C.vhacd_invoke_logger(fn, cMsg)
	})
	if err != nil {
		return 0
	}
	return C.VHACD_Handle(p.Handle())
}

// VHACD_FreeUserCallback fails while a session still holds the proxy.
//
//export VHACD_FreeUserCallback
func VHACD_FreeUserCallback(h C.VHACD_Handle) C.bool {
	if _, ok := vhacd.LookupCallback(uintptr(h)); !ok {
		return false
	}
	return freeProxy(uintptr(h)) == nil
}

//export VHACD_FreeUserLogger
func VHACD_FreeUserLogger(h C.VHACD_Handle) C.bool {
	if _, ok := vhacd.LookupLogger(uintptr(h)); !ok {
		return false
	}
	return freeProxy(uintptr(h)) == nil
}
