// Package engine defines the contract between a decomposition session and the
// geometric engine that does the actual work, and ships a default engine.
//
// The session treats every Engine as a black box: it hands over a validated
// mesh and a parameter set, forwards progress through a Notifier, and
// cancels through the context.
//
// # Default Engine
//
// Hierarchical is a small, dependency-light engine meant to make the session
// contract usable and testable without a native library:
//
//  1. The mesh is split into connected components.
//  2. Each component is cut recursively by axis aligned planes while its
//     concavity (hull volume minus enclosed volume, relative to the hull of
//     the whole mesh) exceeds Params.Concavity.
//  3. Hulls are merged pairwise, cheapest first, down to
//     Params.MaxConvexHulls.
//  4. Hulls with more than Params.MaxNumVerticesPerCH vertices are rebuilt
//     farthest point first, stopping at the limit.
//
// It is not a port of V-HACD: there is no voxelization and the cut search is
// coarse. Plug a different Engine into the session for production quality
// decompositions.
package engine
