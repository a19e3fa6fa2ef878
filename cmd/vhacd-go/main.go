// Command vhacd-go decomposes one of the built-in test meshes and prints the
// resulting hulls.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/logging"
	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/testmesh"
)

type options struct {
	mesh        string
	params      string
	dump        string
	async       bool
	precision   int
	logLevel    string
	pollEvery   time.Duration
	interactive bool
}

var meshes = map[string]func() testmesh.Mesh{
	"cube":      testmesh.UnitCube,
	"two-cubes": func() testmesh.Mesh { return testmesh.TwoCubes(1) },
	"l-shape":   testmesh.LShape,
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("vhacd-go", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.mesh, "mesh", "cube", "built-in mesh: cube, two-cubes or l-shape")
	fs.StringVar(&o.params, "params", "", "parameters file (.json, .yaml or .yml)")
	fs.StringVar(&o.dump, "dump-params", "", "print the effective parameters as json or yaml and exit")
	fs.BoolVar(&o.async, "async", false, "run asynchronously and poll for completion")
	fs.IntVar(&o.precision, "precision", 64, "input precision: 32 or 64")
	fs.StringVar(&o.logLevel, "log", "warn", "log level (debug, info, warn, error) or off")
	fs.DurationVar(&o.pollEvery, "poll", 5*time.Millisecond, "poll interval for -async")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if _, ok := meshes[o.mesh]; !ok {
		return o, fmt.Errorf("unknown mesh %q", o.mesh)
	}
	if o.precision != 32 && o.precision != 64 {
		return o, fmt.Errorf("precision must be 32 or 64, got %d", o.precision)
	}
	return o, nil
}

func newLogger(level string) (logging.Logger, func(), error) {
	if level == "off" {
		return logging.Nop(), func() {}, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	z, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return logging.NewZap(z), func() { _ = z.Sync() }, nil
}

func loadParams(o options) (*vhacd.Parameters, error) {
	p := vhacd.DefaultParameters()
	if o.params != "" {
		var err error
		if p, err = vhacd.LoadParameters(o.params); err != nil {
			return nil, err
		}
	}
	if o.async {
		p.Async = true
	}
	return p, nil
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	params, err := loadParams(o)
	if err != nil {
		return err
	}
	if o.dump != "" {
		return vhacd.WriteParameters(stdout, params, vhacd.Format(o.dump))
	}

	logger, sync, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer sync()

	fmt.Fprintf(stdout, "vhacd-go %s, engine %s\n", vhacd.WrapperVersion(), vhacd.EngineVersion())

	progress := newProgressLine(stdout, o.interactive)
	cb, err := vhacd.CreateUserCallback(nil, func(_ any, overall, _, _ float64, stage, _ string) {
		progress.update(overall, stage)
	})
	if err != nil {
		return err
	}
	defer cb.Free()
	params.Callback = cb

	s := vhacd.NewSession(vhacd.Config{Logger: logger, Name: o.mesh})
	defer s.Close()
	stop := context.AfterFunc(ctx, s.Cancel)
	defer stop()

	m := meshes[o.mesh]()
	if o.precision == 32 {
		err = s.Compute32(m.Points32(), m.NumPoints(), m.Triangles, m.NumTriangles(), params)
	} else {
		err = s.Compute64(m.Points, m.NumPoints(), m.Triangles, m.NumTriangles(), params)
	}
	if err != nil {
		progress.done()
		return err
	}
	if params.Async {
		t := time.NewTicker(o.pollEvery)
		for !s.IsReady() {
			<-t.C
		}
		t.Stop()
	}
	progress.done()
	if err := s.Err(); err != nil {
		return err
	}

	rs, err := s.Results()
	if err != nil {
		return err
	}
	var com [3]float64
	hasCOM := s.ComputeCenterOfMass(&com)
	fmt.Fprintln(stdout, renderResults(rs, o.interactive))
	if hasCOM {
		fmt.Fprintf(stdout, "center of mass: (%.4f, %.4f, %.4f)\n", com[0], com[1], com[2])
	}
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("vhacd-go: %v", err)
	}
	o.interactive = isTerminal(os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := run(ctx, o, os.Stdout); err != nil {
		if errors.Is(err, vhacd.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(130)
		}
		log.Fatalf("vhacd-go: %v", err)
	}
}
