// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shaderwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teide-go/teide/reflectbuild"
	"github.com/teide-go/teide/shaderdata"
)

type fakeCompiler struct{}

func (fakeCompiler) Compile(stage reflectbuild.StageKind, source string) ([]byte, error) {
	return []byte{0xDE, 0xAD, 0xBE, 0xEF}, nil
}

func TestWatcherReportsReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "simple.glsl")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0o644))

	load := func(p string) (shaderdata.ShaderSource, error) {
		return shaderdata.ShaderSource{
			VertexShader: shaderdata.StageRecord{Source: "void main() {}"},
			PixelShader:  shaderdata.StageRecord{Source: "void main() {}"},
		}, nil
	}

	var reportedErr error
	w, err := New(dir, fakeCompiler{}, load, func(p string, e error) { reportedErr = e })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("void main() { x(); }"), 0o644))

	select {
	case reloaded := <-w.Changes:
		assert.Equal(t, path, reloaded.Path)
		assert.NotEmpty(t, reloaded.Data.VertexShader.SPIRV)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for reload notification, last error: %v", reportedErr)
	}
}

func TestWatcherReportsLoadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.glsl")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	errs := make(chan error, 1)
	load := func(p string) (shaderdata.ShaderSource, error) {
		return shaderdata.ShaderSource{}, fmt.Errorf("bad source")
	}
	w, err := New(dir, fakeCompiler{}, load, func(p string, e error) { errs <- e })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("garbage2"), 0o644))

	select {
	case e := <-errs:
		assert.ErrorContains(t, e, "bad source")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error notification")
	}
}
