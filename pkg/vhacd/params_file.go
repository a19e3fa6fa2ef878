package vhacd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a parameters file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown parameters file extension %q", ErrInvalidParameter, filepath.Ext(path))
}

// LoadParameters reads a JSON or YAML parameters file. Fields the file omits
// keep their default values.
func LoadParameters(path string) (*Parameters, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parameters: %w", err)
	}
	defer f.Close()
	return DecodeParameters(f, format)
}

// DecodeParameters reads parameters from r. Unknown fields are rejected and
// the result is validated.
func DecodeParameters(r io.Reader, format Format) (*Parameters, error) {
	p := DefaultParameters()
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(p)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		err = dec.Decode(p)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidParameter, format)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, ErrUnexpectedMode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidParameter, format, err)
	}
	p.initialized = true
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// WriteParameters encodes p to w. Proxies are not written.
func WriteParameters(w io.Writer, p *Parameters, format Format) error {
	if err := p.Validate(); err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: unknown format %q", ErrInvalidParameter, format)
}
