package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath = "github.com/hsiuhsiu/vhacd-go"
	enginePath = modulePath + "/pkg/vhacd/engine"
)

var libraryPackages = []string{
	modulePath + "/pkg/vhacd",
	modulePath + "/pkg/vhacd/engine",
	modulePath + "/pkg/vhacd/logging",
	modulePath + "/pkg/vhacd/internal/hull",
	modulePath + "/internal/backend",
}

func load(t *testing.T, patterns ...string) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			t.Fatalf("package %s: %v", pkg.PkgPath, e)
		}
	}
	return pkgs
}
