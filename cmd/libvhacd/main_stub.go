//go:build !cgo

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "libvhacd: build with CGO_ENABLED=1 and -buildmode=c-shared")
	os.Exit(1)
}
