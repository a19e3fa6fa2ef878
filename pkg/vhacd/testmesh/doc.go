// Package testmesh provides small closed meshes for exercising decomposition
// sessions in tests and examples: boxes, a pair of disjoint cubes, an L shape
// and a flat quad that encloses no volume.
//
// The meshes are plain flat buffers and carry no dependency on the session
// package, so engine tests can use them too.
package testmesh
