// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), settings)
}

func TestLoadOverlaysOnlyPresentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teide.yaml")
	require.NoError(t, writeFile(path, "numThreads: 4\nsoftwareRendering: true\n"))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, settings.NumThreads)
	assert.True(t, settings.SoftwareRendering)
	assert.Equal(t, DefaultMaxFramesInFlight, settings.MaxFramesInFlight)
}

func TestLoadRejectsNonPositiveMaxFramesInFlight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teide.yaml")
	require.NoError(t, writeFile(path, "maxFramesInFlight: 0\n"))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFramesInFlight, settings.MaxFramesInFlight)
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
