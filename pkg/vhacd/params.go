package vhacd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd/engine"
)

// Mode selects how the engine samples the mesh volume.
type Mode uint8

const (
	ModeVoxel Mode = iota
	ModeTetrahedron
)

func (m Mode) String() string {
	switch m {
	case ModeVoxel:
		return "voxel"
	case ModeTetrahedron:
		return "tetrahedron"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode accepts the mode names and their numeric values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voxel", "0":
		return ModeVoxel, nil
	case "tetrahedron", "1":
		return ModeTetrahedron, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnexpectedMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m > ModeTetrahedron {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedMode, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedMode, err)
	}
	return m.UnmarshalText([]byte(s))
}

// Parameters configures one Compute call. Obtain a value from
// DefaultParameters; a zero Parameters is rejected.
type Parameters struct {
	// Concavity is the maximum concavity of a part, relative to the volume
	// of the convex hull of the whole mesh.
	Concavity float64 `json:"concavity" yaml:"concavity"`
	// Alpha biases cuts toward balanced halves.
	Alpha float64 `json:"alpha" yaml:"alpha"`
	// Beta biases cuts across the longest axis of a part.
	Beta float64 `json:"beta" yaml:"beta"`
	// MinVolumePerCH stops cutting parts smaller than this fraction of the
	// mesh hull volume.
	MinVolumePerCH float64 `json:"min_volume_per_ch" yaml:"min_volume_per_ch"`

	Resolution             uint32 `json:"resolution" yaml:"resolution"`
	MaxNumVerticesPerCH    uint32 `json:"max_num_vertices_per_ch" yaml:"max_num_vertices_per_ch"`
	PlaneDownsampling      uint32 `json:"plane_downsampling" yaml:"plane_downsampling"`
	ConvexHullDownsampling uint32 `json:"convex_hull_downsampling" yaml:"convex_hull_downsampling"`
	MaxConvexHulls         uint32 `json:"max_convex_hulls" yaml:"max_convex_hulls"`

	PCA                     bool `json:"pca" yaml:"pca"`
	Mode                    Mode `json:"mode" yaml:"mode"`
	ConvexHullApproximation bool `json:"convex_hull_approximation" yaml:"convex_hull_approximation"`
	OCLAcceleration         bool `json:"ocl_acceleration" yaml:"ocl_acceleration"`
	ProjectHullVertices     bool `json:"project_hull_vertices" yaml:"project_hull_vertices"`

	// Async runs Compute on a background goroutine. The caller then polls
	// IsReady, which also delivers progress and log messages.
	Async bool `json:"async" yaml:"async"`

	// Callback and Logger are optional proxies bound to the session for the
	// run. They stay bound until the next Compute, Clean or Release.
	Callback *CallbackProxy `json:"-" yaml:"-"`
	Logger   *LoggerProxy   `json:"-" yaml:"-"`

	initialized bool
}

// DefaultParameters returns the engine defaults.
func DefaultParameters() *Parameters {
	return &Parameters{
		Concavity:               0.001,
		Alpha:                   0.05,
		Beta:                    0.05,
		MinVolumePerCH:          0.0001,
		Resolution:              100000,
		MaxNumVerticesPerCH:     64,
		PlaneDownsampling:       4,
		ConvexHullDownsampling:  4,
		MaxConvexHulls:          1024,
		PCA:                     false,
		Mode:                    ModeVoxel,
		ConvexHullApproximation: true,
		OCLAcceleration:         true,
		ProjectHullVertices:     true,
		initialized:             true,
	}
}

func unitRange(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s %v outside [0, 1]", ErrInvalidParameter, name, v)
	}
	return nil
}

func uintRange(name string, v, lo, hi uint32) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %d outside [%d, %d]", ErrInvalidParameter, name, v, lo, hi)
	}
	return nil
}

// Validate reports ErrParametersNotInitialized for values not derived from
// DefaultParameters and ErrInvalidParameter for fields out of range.
func (p *Parameters) Validate() error {
	if p == nil || !p.initialized {
		return ErrParametersNotInitialized
	}
	if err := unitRange("concavity", p.Concavity); err != nil {
		return err
	}
	if err := unitRange("alpha", p.Alpha); err != nil {
		return err
	}
	if err := unitRange("beta", p.Beta); err != nil {
		return err
	}
	if math.IsNaN(p.MinVolumePerCH) || p.MinVolumePerCH < 0 || p.MinVolumePerCH > 0.01 {
		return fmt.Errorf("%w: min_volume_per_ch %v outside [0, 0.01]", ErrInvalidParameter, p.MinVolumePerCH)
	}
	if err := uintRange("resolution", p.Resolution, 10000, 64000000); err != nil {
		return err
	}
	if err := uintRange("max_num_vertices_per_ch", p.MaxNumVerticesPerCH, 4, 1024); err != nil {
		return err
	}
	if err := uintRange("plane_downsampling", p.PlaneDownsampling, 1, 16); err != nil {
		return err
	}
	if err := uintRange("convex_hull_downsampling", p.ConvexHullDownsampling, 1, 16); err != nil {
		return err
	}
	if p.MaxConvexHulls == 0 {
		return fmt.Errorf("%w: max_convex_hulls must be at least 1", ErrInvalidParameter)
	}
	if p.Mode > ModeTetrahedron {
		return fmt.Errorf("%w: %d", ErrUnexpectedMode, uint8(p.Mode))
	}
	return nil
}

func (p *Parameters) engineParams() engine.Params {
	return engine.Params{
		Concavity:               p.Concavity,
		Alpha:                   p.Alpha,
		Beta:                    p.Beta,
		MinVolumePerCH:          p.MinVolumePerCH,
		Resolution:              p.Resolution,
		MaxNumVerticesPerCH:     p.MaxNumVerticesPerCH,
		PlaneDownsampling:       p.PlaneDownsampling,
		ConvexHullDownsampling:  p.ConvexHullDownsampling,
		MaxConvexHulls:          p.MaxConvexHulls,
		PCA:                     p.PCA,
		Tetrahedron:             p.Mode == ModeTetrahedron,
		ConvexHullApproximation: p.ConvexHullApproximation,
		OCLAcceleration:         p.OCLAcceleration,
		ProjectHullVertices:     p.ProjectHullVertices,
	}
}
