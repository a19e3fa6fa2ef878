// Package vhacd decomposes triangle meshes into small sets of convex hulls.
//
// # Sessions
//
// A Session owns one decomposition engine and runs one Compute at a time:
//
//	s := vhacd.NewSession(vhacd.Config{Logger: logging.New(nil)})
//	defer s.Close()
//
//	params := vhacd.DefaultParameters()
//	if err := s.Compute64(points, nPoints, triangles, nTriangles, params); err != nil {
//	    return err
//	}
//	for i := uint32(0); i < s.NConvexHulls(); i++ {
//	    h, _ := s.ConvexHull(i)
//	    use(h.Points(), h.Triangles())
//	}
//
// The state machine is Idle → Computing → Completed, Cancelled or Failed.
// Computing again from a finished state discards the previous results;
// Release is terminal.
//
// # Asynchronous Runs
//
// With Parameters.Async set, Compute returns as soon as the run is launched
// and the caller polls IsReady:
//
//	params.Async = true
//	if err := s.Compute32(points, n, tris, m, params); err != nil {
//	    return err
//	}
//	for !s.IsReady() {
//	    time.Sleep(10 * time.Millisecond)
//	}
//	if s.State() != vhacd.StateCompleted {
//	    return s.Err()
//	}
//
// Progress callbacks and engine log messages of an async run are queued and
// delivered on the goroutine that calls IsReady, never on the background
// goroutine.
//
// # Proxies
//
// CreateUserCallback and CreateUserLogger register functions that are bound
// to a session through Parameters. A bound proxy cannot be freed until the
// session computes again without it, is cleaned or is released.
//
// # Errors
//
// Failures are reported with the sentinel errors of this package, wrapped in
// *OpError with the name of the failing operation; match them with
// errors.Is.
package vhacd
