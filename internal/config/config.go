// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package config loads the envidump configuration file.
//
// Configuration is loaded from a single YAML file given by the --config flag
// or the ENVIDUMP_CONFIG environment variable.  Command-line flags override
// individual values after loading.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bpowers/envisat/band"
)

// EnvVar names the environment variable consulted by Load.
const EnvVar = "ENVIDUMP_CONFIG"

var ErrInvalid = errors.New("invalid configuration")

// Config is the envidump configuration.
type Config struct {
	// SchemaDir holds <product_type>/<record>.yaml schema files.
	SchemaDir string `yaml:"schema_dir"`

	// ProductType selects the schema subdirectory.
	ProductType string `yaml:"product_type"`

	// Parameters resolve named element counts in schema files.
	Parameters map[string]int `yaml:"parameters"`

	// DSD locates the dataset descriptor blocks within the product file.
	DSD DSDConfig `yaml:"dsd"`

	// MissingValue fills raster lines that have no record.
	MissingValue float64 `yaml:"missing_value"`

	// ChronologicalOrder is false for products whose scanlines are stored
	// mirrored.  Default: true
	ChronologicalOrder bool `yaml:"chronological_order"`

	// Mmap maps the product file instead of reading through a file handle.
	Mmap bool `yaml:"mmap"`

	// LogLevel is one of debug, info, warn, error.  Default: warn
	LogLevel string `yaml:"log_level"`

	Bands     []BandConfig     `yaml:"bands"`
	TiePoints []TiePointConfig `yaml:"tie_points"`
}

// DSDConfig gives the byte range of the DSD blocks.
type DSDConfig struct {
	Offset int64 `yaml:"offset"`
	// Count is the number of DSD blocks.
	Count int `yaml:"count"`
	// BlockSize is the size of one block.  Default: 280
	BlockSize int `yaml:"block_size"`
}

// BandConfig binds a raster band to a dataset field.
type BandConfig struct {
	Name          string  `yaml:"name"`
	Dataset       string  `yaml:"dataset"`
	Field         string  `yaml:"field"`
	Packing       string  `yaml:"packing"`
	ScalingMethod string  `yaml:"scaling_method"`
	ScalingFactor float64 `yaml:"scaling_factor"`
	ScalingOffset float64 `yaml:"scaling_offset"`
	// Width defaults to the field's element count divided by the
	// packing's column width.
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Unit        string `yaml:"unit"`
	Description string `yaml:"description"`
	// MissingValue overrides the product-wide fill value for this band.
	MissingValue *float64 `yaml:"missing_value"`
}

// TiePointConfig describes a tie-point grid built from a band.
type TiePointConfig struct {
	BandConfig `yaml:",inline"`

	// IndexField optionally names the field of the same dataset that holds
	// each tie point's 1-based pixel column.
	IndexField   string  `yaml:"index_field"`
	OutputWidth  int     `yaml:"output_width"`
	OffsetX      float64 `yaml:"offset_x"`
	OffsetY      float64 `yaml:"offset_y"`
	SubsamplingX float64 `yaml:"subsampling_x"`
	SubsamplingY float64 `yaml:"subsampling_y"`
}

// Default returns the configuration used as a base before loading a file.
func Default() *Config {
	return &Config{
		ChronologicalOrder: true,
		LogLevel:           "warn",
		DSD: DSDConfig{
			BlockSize: 280,
		},
	}
}

// Load loads the file named by ENVIDUMP_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your config file, or use --config flag", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s): %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.DSD.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: dsd.block_size %d", ErrInvalid, c.DSD.BlockSize))
	}
	if c.DSD.Count < 0 || c.DSD.Offset < 0 {
		errs = append(errs, fmt.Errorf("%w: dsd offset %d count %d", ErrInvalid, c.DSD.Offset, c.DSD.Count))
	}

	seen := make(map[string]bool)
	check := func(kind string, b BandConfig) {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%w: %s without a name", ErrInvalid, kind))
			return
		}
		key := strings.ToLower(b.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("%w: duplicate %s %q", ErrInvalid, kind, b.Name))
		}
		seen[key] = true
		if b.Dataset == "" || b.Field == "" {
			errs = append(errs, fmt.Errorf("%w: %s %q needs dataset and field", ErrInvalid, kind, b.Name))
		}
		if _, err := b.PackingModel(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s %q: %w", ErrInvalid, kind, b.Name, err))
		}
		if _, err := band.ParseScalingMethod(b.ScalingMethod); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s %q: %w", ErrInvalid, kind, b.Name, err))
		}
	}
	for _, b := range c.Bands {
		check("band", b)
	}
	for _, tp := range c.TiePoints {
		check("tie-point grid", tp.BandConfig)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// PackingModel parses Packing; an empty value means 1OF1.
func (b BandConfig) PackingModel() (band.PackingModel, error) {
	if b.Packing == "" {
		return band.OneOfOne, nil
	}
	return band.ParsePackingModel(b.Packing)
}
