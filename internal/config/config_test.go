// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/envisat/band"
)

const testConfig = `
schema_dir: /usr/share/envisat/dddb
product_type: MER_RR__1P
parameters:
  LINE_WIDTH: 1121
dsd:
  offset: 1247
  count: 3
missing_value: -1
chronological_order: false
log_level: debug
bands:
  - name: radiance_1
    dataset: Radiance MDS(1)
    field: radiance
    scaling_method: Linear_Scale
    scaling_factor: 0.5
    missing_value: 4095
tie_points:
  - name: latitude
    dataset: Tie points ADS
    field: lat
    scaling_factor: 1.0e-6
    subsampling_x: 16
    subsampling_y: 16
`

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.ChronologicalOrder)
	assert.Equal(t, 280, cfg.DSD.BlockSize)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "MER_RR__1P", cfg.ProductType)
	assert.Equal(t, map[string]int{"LINE_WIDTH": 1121}, cfg.Parameters)
	assert.Equal(t, DSDConfig{Offset: 1247, Count: 3, BlockSize: 280}, cfg.DSD)
	assert.Equal(t, -1.0, cfg.MissingValue)
	assert.False(t, cfg.ChronologicalOrder)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	require.Len(t, cfg.Bands, 1)
	packing, err := cfg.Bands[0].PackingModel()
	require.NoError(t, err)
	assert.Equal(t, band.OneOfOne, packing)
	assert.Equal(t, 0.5, cfg.Bands[0].ScalingFactor)
	require.NotNil(t, cfg.Bands[0].MissingValue)
	assert.Equal(t, 4095.0, *cfg.Bands[0].MissingValue)

	require.Len(t, cfg.TiePoints, 1)
	assert.Equal(t, "lat", cfg.TiePoints[0].Field)
	assert.Equal(t, 16.0, cfg.TiePoints[0].SubsamplingX)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("log_level: loud\n"))
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = Parse([]byte(`
bands:
  - name: a
    dataset: MDS1
    field: f
    packing: 5OF5
  - name: A
    dataset: MDS1
    field: g
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.True(t, errors.Is(err, band.ErrUnsupportedPacking))
	assert.Contains(t, err.Error(), `duplicate band "A"`)

	_, err = Parse([]byte("bands: [{name: x}]\n"))
	assert.Contains(t, err.Error(), "needs dataset and field")

	_, err = Parse([]byte("bands: nope\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvVar, "")
	_, err := Load()
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "envidump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	t.Setenv(EnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "MER_RR__1P", cfg.ProductType)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
