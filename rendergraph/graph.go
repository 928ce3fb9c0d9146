// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rendergraph implements Teide's experimental declarative render
// graph (spec §4.L): an alternative to calling renderer.Renderer's
// RenderToTexture/CopyTextureData methods directly in which a caller
// instead records TextureNode, TextureDataNode, RenderNode, CopyNode, and
// DispatchNode values, lets a build pass derive the dependency edges
// between them, and an execute pass run them in topological order.
//
// The graph never records raw command buffers itself. Every node that
// does GPU work runs by calling into an injected *renderer.Renderer,
// which is what actually feeds Teide's unified scheduler (spec §4.I);
// this package only decides the order in which to make those calls. Per
// spec.md §9, the render graph is "experimental and partially
// implemented" in the original project and an implementation may omit
// it; this one builds it anyway to exercise the gonum dependency it is
// bound to.
package rendergraph

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/renderer"
)

// TextureState records whether a TextureNode's device texture already
// exists, is scheduled to be produced, or has been produced (spec §4.L
// "TextureNode(texture, source?, state)").
type TextureState int

const (
	// StateExternal textures already exist outside the graph (handed to
	// AddTexture) and are never written by any node in it.
	StateExternal TextureState = iota
	// StatePending textures have a producer node registered but not yet run.
	StatePending
	// StateWritten textures have had their producer node run.
	StateWritten
)

func (s TextureState) String() string {
	switch s {
	case StateExternal:
		return "external"
	case StatePending:
		return "pending"
	case StateWritten:
		return "written"
	default:
		return "unknown"
	}
}

// Kernel is a DispatchNode's compute body. internal/vk has no compute-
// pipeline support of its own (spec §4.L's DispatchNode has no backend
// in this implementation beyond whatever the application wires in), so
// a kernel is an opaque callback the caller supplies; the graph's only
// job is to run it once everything it reads has finished writing.
type Kernel func(inputs, outputs []handle.Handle[any]) error

// node is the shape every value placed in the graph satisfies: a gonum
// graph.Node plus a name for diagnostics and DOT output.
type node interface {
	graph.Node
	DOTID() string
	nodeName() string
}

// textureNode is spec §4.L's TextureNode.
type textureNode struct {
	id     int64
	name   string
	handle handle.Handle[any]
	source int64 // id of the node that writes this texture, -1 if none
	state  TextureState
}

func (n *textureNode) ID() int64        { return n.id }
func (n *textureNode) nodeName() string { return n.name }
func (n *textureNode) DOTID() string    { return "texture_" + n.name }
func (n *textureNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: fmt.Sprintf("%s (%s)", n.name, n.state)},
		{Key: "shape", Value: "box"},
	}
}

// textureDataNode is spec §4.L's TextureDataNode: a host-side payload.
type textureDataNode struct {
	id     int64
	name   string
	data   []byte
	source int64 // id of the CopyNode that fills data, -1 if supplied directly
}

func (n *textureDataNode) ID() int64        { return n.id }
func (n *textureDataNode) nodeName() string { return n.name }
func (n *textureDataNode) DOTID() string    { return "data_" + n.name }
func (n *textureDataNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: n.name},
		{Key: "shape", Value: "note"},
	}
}

// renderNode is spec §4.L's RenderNode. inputs names the TextureNode ids
// this draw samples; a RenderList carries raw handle.Handle[any] values
// rather than back-references to the nodes that produced them, so the
// caller supplies this list explicitly (collected from the render list's
// view textures and every object's material and per-object textures)
// rather than the build pass discovering it by inspecting handles. deps
// names any additional node this one must run after, independent of
// texture reads (spec §4.L "dependencies[]").
type renderNode struct {
	id          int64
	name        string
	renderList  render.RenderList
	target      renderer.RenderTargetRequest
	colorTarget int64 // TextureNode id, -1 if this pass has no color target
	depthTarget int64 // TextureNode id, -1 if this pass has no depth target
	inputs      []int64
	deps        []int64
}

func (n *renderNode) ID() int64        { return n.id }
func (n *renderNode) nodeName() string { return n.name }
func (n *renderNode) DOTID() string    { return "render_" + n.name }
func (n *renderNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: n.name},
		{Key: "shape", Value: "ellipse"},
		{Key: "style", Value: "filled"},
		{Key: "fillcolor", Value: "lightblue"},
	}
}

// copyNode is spec §4.L's CopyNode, directional from a TextureNode to a
// TextureDataNode (a device→host readback; Teide has no host→device
// upload path modeled as a graph node, since CreateTexture already
// covers that at resource-creation time).
type copyNode struct {
	id     int64
	name   string
	source int64 // TextureNode id
	target int64 // TextureDataNode id
}

func (n *copyNode) ID() int64        { return n.id }
func (n *copyNode) nodeName() string { return n.name }
func (n *copyNode) DOTID() string    { return "copy_" + n.name }
func (n *copyNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: n.name},
		{Key: "shape", Value: "parallelogram"},
	}
}

// dispatchNode is spec §4.L's DispatchNode.
type dispatchNode struct {
	id      int64
	name    string
	kernel  Kernel
	inputs  []int64 // TextureNode ids read
	outputs []int64 // TextureNode ids written
}

func (n *dispatchNode) ID() int64        { return n.id }
func (n *dispatchNode) nodeName() string { return n.name }
func (n *dispatchNode) DOTID() string    { return "dispatch_" + n.name }
func (n *dispatchNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: n.name},
		{Key: "shape", Value: "hexagon"},
	}
}

// Graph accumulates render-graph nodes and the edges between them, then
// executes them through an injected *renderer.Renderer.
type Graph struct {
	g        *simple.DirectedGraph
	nextID   int64
	nodes    map[int64]node
	renderer *renderer.Renderer
}

// New returns an empty Graph whose execute pass runs render and copy
// nodes through r.
func New(r *renderer.Renderer) *Graph {
	return &Graph{
		g:        simple.NewDirectedGraph(),
		nodes:    make(map[int64]node),
		renderer: r,
	}
}

func (gr *Graph) allocID() int64 {
	id := gr.nextID
	gr.nextID++
	return id
}

func (gr *Graph) add(n node) int64 {
	gr.g.AddNode(n)
	gr.nodes[n.ID()] = n
	return n.ID()
}

// AddTexture registers a texture that already exists on the device: a
// material texture, a previously rendered attachment, or any other
// handle the graph should reference without producing.
func (gr *Graph) AddTexture(name string, tex handle.Handle[any]) int64 {
	id := gr.allocID()
	return gr.add(&textureNode{id: id, name: name, handle: tex, source: -1, state: StateExternal})
}

// AddRenderTarget registers a TextureNode with no handle yet: a RenderNode
// or DispatchNode added afterward names this id as one of its outputs.
// A RenderNode stores RenderToTexture's returned handle in it when it
// runs; a DispatchNode only marks it written and leaves the handle as is.
func (gr *Graph) AddRenderTarget(name string) int64 {
	id := gr.allocID()
	return gr.add(&textureNode{id: id, name: name, source: -1, state: StatePending})
}

// AddTextureData registers a TextureDataNode: either host data supplied
// up front (data non-nil, never written by the graph) or an empty
// payload a later CopyNode fills in.
func (gr *Graph) AddTextureData(name string, data []byte) int64 {
	id := gr.allocID()
	return gr.add(&textureDataNode{id: id, name: name, data: data, source: -1})
}

func (gr *Graph) markTextureWriter(texID, writerID int64) {
	if t, ok := gr.nodes[texID].(*textureNode); ok {
		t.source = writerID
		t.state = StatePending
	}
}

// AddRender registers a RenderNode. colorTarget/depthTarget are
// TextureNode ids (pass -1 for an aspect target doesn't use). inputs are
// the TextureNode ids this draw samples; deps are any further nodes this
// one must follow regardless of texture reads.
func (gr *Graph) AddRender(name string, renderList render.RenderList, target renderer.RenderTargetRequest, colorTarget, depthTarget int64, inputs, deps []int64) int64 {
	id := gr.allocID()
	n := &renderNode{
		id:          id,
		name:        name,
		renderList:  renderList,
		target:      target,
		colorTarget: colorTarget,
		depthTarget: depthTarget,
		inputs:      append([]int64(nil), inputs...),
		deps:        append([]int64(nil), deps...),
	}
	gr.add(n)
	if colorTarget >= 0 {
		gr.markTextureWriter(colorTarget, id)
	}
	if depthTarget >= 0 {
		gr.markTextureWriter(depthTarget, id)
	}
	return id
}

// AddCopy registers a CopyNode reading source back into target.
func (gr *Graph) AddCopy(name string, source, target int64) int64 {
	id := gr.allocID()
	gr.add(&copyNode{id: id, name: name, source: source, target: target})
	if t, ok := gr.nodes[target].(*textureDataNode); ok {
		t.source = id
	}
	return id
}

// AddDispatch registers a DispatchNode running kernel once every texture
// named in inputs has been produced.
func (gr *Graph) AddDispatch(name string, kernel Kernel, inputs, outputs []int64) int64 {
	id := gr.allocID()
	n := &dispatchNode{
		id:      id,
		name:    name,
		kernel:  kernel,
		inputs:  append([]int64(nil), inputs...),
		outputs: append([]int64(nil), outputs...),
	}
	gr.add(n)
	for _, out := range outputs {
		gr.markTextureWriter(out, id)
	}
	return id
}

// Build walks every RenderNode, CopyNode, and DispatchNode and adds the
// dependency edges their declared texture reads and explicit dependency
// lists imply (spec §4.L "Build pass ... appends each input texture ...
// as a dependency edge pointing at the latest writer of that texture in
// the graph"). It may be called again after adding more nodes; existing
// edges are left alone and only missing ones are added.
func (gr *Graph) Build() {
	for _, n := range gr.nodes {
		switch t := n.(type) {
		case *renderNode:
			for _, texID := range t.inputs {
				gr.addTextureDependency(texID, t.id)
			}
			for _, depID := range t.deps {
				gr.addEdge(depID, t.id)
			}
		case *copyNode:
			gr.addTextureDependency(t.source, t.id)
		case *dispatchNode:
			for _, texID := range t.inputs {
				gr.addTextureDependency(texID, t.id)
			}
		}
	}
}

// addTextureDependency adds an edge from texID's current writer to
// dependent, if texID names a TextureNode with a registered writer.
// Externally supplied textures (no writer) need no ordering edge.
func (gr *Graph) addTextureDependency(texID, dependent int64) {
	t, ok := gr.nodes[texID].(*textureNode)
	if !ok || t.source < 0 {
		return
	}
	gr.addEdge(t.source, dependent)
}

func (gr *Graph) addEdge(from, to int64) {
	if from == to {
		return
	}
	fromNode, ok := gr.nodes[from]
	if !ok {
		return
	}
	toNode, ok := gr.nodes[to]
	if !ok {
		return
	}
	if gr.g.HasEdgeFromTo(from, to) {
		return
	}
	gr.g.SetEdge(gr.g.NewEdge(fromNode, toNode))
}

// Execute topologically sorts the graph (spec §4.L "Execute pass
// topologically sorts nodes by dependency") and runs each node in order.
// This implementation treats every node as bound to the Renderer's
// single graphics queue, so "one command buffer per run of nodes bound
// to the same queue" falls out of letting renderer.Renderer's own GPU
// scheduling batch consecutive calls, rather than this package recording
// raw command buffers itself; each render/copy node still "feeds them
// through the unified scheduler" by calling into the Renderer, which is
// the only thing in this module allowed to call scheduler.ScheduleGpu.
func (gr *Graph) Execute() error {
	order, err := topo.SortStabilized(gr.g, nil)
	if err != nil {
		return fmt.Errorf("teide: rendergraph: Execute: cyclic dependency: %w", err)
	}
	for _, n := range order {
		rn, ok := gr.nodes[n.ID()]
		if !ok {
			continue
		}
		if err := gr.run(rn); err != nil {
			return fmt.Errorf("teide: rendergraph: Execute: %s: %w", rn.nodeName(), err)
		}
	}
	return nil
}

func (gr *Graph) run(n node) error {
	switch t := n.(type) {
	case *textureNode, *textureDataNode:
		return nil
	case *renderNode:
		return gr.runRender(t)
	case *copyNode:
		return gr.runCopy(t)
	case *dispatchNode:
		return gr.runDispatch(t)
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
}

func (gr *Graph) runRender(n *renderNode) error {
	target := n.target
	if n.colorTarget >= 0 {
		if tex, ok := gr.nodes[n.colorTarget].(*textureNode); ok && tex.handle.Valid() {
			target.ColorTexture = tex.handle
			target.HasColor = true
		}
	}
	if n.depthTarget >= 0 {
		if tex, ok := gr.nodes[n.depthTarget].(*textureNode); ok && tex.handle.Valid() {
			target.DepthStencilTexture = tex.handle
			target.HasDepthStencil = true
		}
	}

	view := renderer.ParameterData{
		UniformData: n.renderList.ViewUniformData,
		Textures:    n.renderList.ViewTextures,
	}
	color, depth, err := gr.renderer.RenderToTexture(target, view, n.renderList)
	if err != nil {
		return err
	}

	if n.colorTarget >= 0 {
		if tex, ok := gr.nodes[n.colorTarget].(*textureNode); ok {
			tex.handle = color
			tex.state = StateWritten
		}
	}
	if n.depthTarget >= 0 {
		if tex, ok := gr.nodes[n.depthTarget].(*textureNode); ok {
			tex.handle = depth
			tex.state = StateWritten
		}
	}
	return nil
}

func (gr *Graph) runCopy(n *copyNode) error {
	src, ok := gr.nodes[n.source].(*textureNode)
	if !ok || !src.handle.Valid() {
		return fmt.Errorf("source texture has no device handle")
	}
	data, err := gr.renderer.CopyTextureData(src.handle).Wait()
	if err != nil {
		return err
	}
	if dst, ok := gr.nodes[n.target].(*textureDataNode); ok {
		dst.data = data.Pixels
	}
	return nil
}

func (gr *Graph) runDispatch(n *dispatchNode) error {
	if n.kernel == nil {
		return fmt.Errorf("dispatch node has no kernel")
	}
	inputs := make([]handle.Handle[any], 0, len(n.inputs))
	for _, texID := range n.inputs {
		if tex, ok := gr.nodes[texID].(*textureNode); ok {
			inputs = append(inputs, tex.handle)
		}
	}
	outputs := make([]handle.Handle[any], 0, len(n.outputs))
	for _, texID := range n.outputs {
		if tex, ok := gr.nodes[texID].(*textureNode); ok {
			outputs = append(outputs, tex.handle)
		}
	}
	if err := n.kernel(inputs, outputs); err != nil {
		return err
	}
	for _, texID := range n.outputs {
		if tex, ok := gr.nodes[texID].(*textureNode); ok {
			tex.state = StateWritten
		}
	}
	return nil
}

// TextureData returns the bytes a CopyNode has written into the
// TextureDataNode named by id, or nil if it has not run yet.
func (gr *Graph) TextureData(id int64) []byte {
	if t, ok := gr.nodes[id].(*textureDataNode); ok {
		return t.data
	}
	return nil
}

// Texture returns the device handle a TextureNode currently holds,
// which is only valid once its producer (if any) has run.
func (gr *Graph) Texture(id int64) handle.Handle[any] {
	if t, ok := gr.nodes[id].(*textureNode); ok {
		return t.handle
	}
	return handle.Handle[any]{}
}

// DOT renders the graph as a Graphviz description for diagnostics (spec
// §4.L "Visualization. Emits a Graphviz DOT description").
func (gr *Graph) DOT() (string, error) {
	b, err := dot.Marshal(gr.g, "rendergraph", "", "  ")
	if err != nil {
		return "", fmt.Errorf("teide: rendergraph: DOT: %w", err)
	}
	return string(b), nil
}
