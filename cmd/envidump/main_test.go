// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/envisat/dsd"
	"github.com/bpowers/envisat/internal/config"
	"github.com/bpowers/envisat/internal/synth"
)

func setup(t *testing.T) (product, configPath string) {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	dir := t.TempDir()
	product, err := synth.WriteFiles(dir, synth.Default())
	require.NoError(t, err)
	return product, filepath.Join(dir, "envidump.yaml")
}

func dump(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestDSDs(t *testing.T) {
	product, cfg := setup(t)
	out, _, err := dump(t, "--config", cfg, "dsds", product)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, synth.MDSName)
	assert.Contains(t, out, synth.TieName)
}

func TestLine(t *testing.T) {
	product, cfg := setup(t)

	out, _, err := dump(t, "--config", cfg, "--band", "radiance", "--y", "2", "line", product)
	require.NoError(t, err)
	assert.Equal(t, "radiance[2]: 2 2.01 2.02 2.03 2.04 2.05 2.06 2.07 2.08\n", out)

	out, _, err = dump(t, "--config", cfg, "-b", "radiance", "--min-x", "1", "--max-x", "7", "--step-x", "3", "line", product)
	require.NoError(t, err)
	assert.Equal(t, "radiance[0]: 0.01 0.04 0.07\n", out)

	out, _, err = dump(t, "--config", cfg, "--chronological=false", "-b", "radiance", "--max-x", "1", "line", product)
	require.NoError(t, err)
	assert.Equal(t, "radiance[0]: 0.08 0.07\n", out)

	// every configured band
	out, _, err = dump(t, "--config", cfg, "--y", "4", "line", product)
	require.NoError(t, err)
	assert.Contains(t, out, "radiance[4]: 4 4.01")
	assert.Contains(t, out, "flags[4]:")

	// rows past the end are filled with the band's own missing value
	out, _, err = dump(t, "--config", cfg, "-b", "flags", "--y", "99", "line", product)
	require.NoError(t, err)
	assert.Equal(t, "flags[99]: 255 255 255 255 255 255 255 255 255\n", out)

	_, _, err = dump(t, "--config", cfg, "-b", "nope", "line", product)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, _, err = dump(t, "--config", cfg, "-b", "radiance", "--max-x", "9", "line", product)
	assert.Error(t, err)
}

func TestTiePoints(t *testing.T) {
	product, cfg := setup(t)
	out, _, err := dump(t, "--config", cfg, "--count", "0", "tiepoints", product)
	require.NoError(t, err)
	assert.Contains(t, out, "latitude[0]: 0 0.25 0.5 0.75 1 1.25 1.5 1.75 2\n")
	assert.Contains(t, out, "latitude[1]: 10 10.25 10.5 10.75 11 11.25 11.5 11.75 12\n")

	out, _, err = dump(t, "--config", cfg, "--index", "1", "-b", "latitude", "tiepoints", product)
	require.NoError(t, err)
	assert.NotContains(t, out, "latitude[0]")
	assert.Contains(t, out, "latitude[1]")
}

func TestRecordsAndTimes(t *testing.T) {
	product, cfg := setup(t)

	out, _, err := dump(t, "--config", cfg, "-d", synth.MDSName, "-i", "1", "-n", "2", "records", product)
	require.NoError(t, err)
	assert.Contains(t, out, "record 1: Radiance MDS:")
	assert.Contains(t, out, "radiance = [100, 101, 102")
	assert.Contains(t, out, "record 2: Radiance MDS:")
	assert.NotContains(t, out, "record 3")
	assert.NotContains(t, out, "spare_1")

	out, _, err = dump(t, "--config", cfg, "-d", synth.MDSName, "times", product)
	require.NoError(t, err)
	assert.Contains(t, out, "0\t2001-01-01T01:00:00.000000Z\n")
	assert.Contains(t, out, "4\t2001-01-01T01:00:04.001000Z\n")

	_, _, err = dump(t, "--config", cfg, "records", product)
	assert.True(t, errors.Is(err, errUsage))

	_, _, err = dump(t, "--config", cfg, "-d", "Nope", "records", product)
	assert.True(t, errors.Is(err, dsd.ErrMissingDataset))
}

func TestMetrics(t *testing.T) {
	product, cfg := setup(t)
	_, stderr, err := dump(t, "--config", cfg, "--metrics", "--mmap", "-b", "radiance", "line", product)
	require.NoError(t, err)
	assert.Contains(t, stderr, `envisat_records_read_total{dataset="Radiance MDS"} 1`)
	assert.Contains(t, stderr, `envisat_bytes_read_total{dataset="Radiance MDS"} 52`)
}

func TestUsage(t *testing.T) {
	product, cfg := setup(t)

	_, stderr, err := dump(t, "--config", cfg, "bogus", product)
	assert.True(t, errors.Is(err, errUsage))
	assert.Contains(t, stderr, "Commands:")

	_, _, err = dump(t, "dsds")
	assert.True(t, errors.Is(err, errUsage))

	_, _, err = dump(t, "--help")
	assert.NoError(t, err)

	// without a configuration the schema location must come from flags
	_, _, err = dump(t, "dsds", product)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, _, err = dump(t, "--config", cfg, "--log-level", "loud", "dsds", product)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, _, err = dump(t, "--config", cfg, "dsds", filepath.Join(t.TempDir(), "missing.N1"))
	assert.Error(t, err)
}
