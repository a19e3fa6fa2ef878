// Package internalcheck holds source policy tests for the vhacd packages.
//
// The checks load the library packages with golang.org/x/tools/go/packages
// and inspect their syntax trees:
//
//   - library code never prints to stdout or through the standard log
//     package; diagnostics go through logging.Logger or the bound logger
//     proxy.
//   - the engine reports progress only from the goroutine that called
//     Decompose; notifier methods are never invoked from a go statement or
//     an errgroup worker.
//
// It is not intended for external use.
package internalcheck
