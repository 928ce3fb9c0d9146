// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shaderwatch supplements spec §4.C with a development-time
// shader hot-reload loop (SPEC_FULL.md §12): it watches a directory of
// shader source files with fsnotify and re-invokes reflectbuild.Build on
// change, delivering fresh ShaderData over a channel. This is not on the
// frame-critical path; it exists for iterating on shaders without
// restarting the process.
package shaderwatch

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/teide-go/teide/reflectbuild"
	"github.com/teide-go/teide/shaderdata"
)

// Reloaded is delivered over Watcher.Changes whenever a watched source
// file changes and recompiles successfully.
type Reloaded struct {
	Path string
	Data shaderdata.ShaderData
}

// SourceLoader reads a shader source file from disk and assembles the
// shaderdata.ShaderSource Build expects, given the file's current
// contents. Callers supply this since the on-disk shader format (and how
// its environment/material/object descriptors are recovered) is
// application-specific.
type SourceLoader func(path string) (shaderdata.ShaderSource, error)

// Watcher watches a directory for shader source changes and re-runs
// reflectbuild.Build on each one, reporting successes on Changes and
// failures via the onError callback (typically a slog.Error call; a
// CompileError here is recoverable per spec §7, not fatal).
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	compiler  reflectbuild.Compiler
	load      SourceLoader
	onError   func(path string, err error)

	Changes chan Reloaded

	done chan struct{}
}

// New starts watching dir (non-recursively) for shader source changes.
// compiler is the external shader-compiler front end reflectbuild.Build
// needs; load recovers a full ShaderSource from a changed file's path.
func New(dir string, compiler reflectbuild.Compiler, load SourceLoader, onError func(path string, err error)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("teide: shaderwatch: creating fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("teide: shaderwatch: watching %s: %w", dir, err)
	}
	if onError == nil {
		onError = func(path string, err error) {
			slog.Error("teide: shaderwatch: recompile failed", "path", path, "error", err)
		}
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		compiler:  compiler,
		load:      load,
		onError:   onError,
		Changes:   make(chan Reloaded, 16),
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload(event.Name)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("teide: shaderwatch: fsnotify error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload(path string) {
	src, err := w.load(path)
	if err != nil {
		w.onError(path, err)
		return
	}
	data, err := reflectbuild.Build(src, w.compiler)
	if err != nil {
		w.onError(path, err)
		return
	}
	slog.Info("teide: shaderwatch: recompiled", "path", filepath.Base(path))
	select {
	case w.Changes <- Reloaded{Path: path, Data: data}:
	default:
		slog.Warn("teide: shaderwatch: Changes channel full, dropping reload", "path", path)
	}
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}
