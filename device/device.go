// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device implements Teide's top-level Device API (spec §6): the
// entry points applications call to stand up a device (headless or
// windowed), and the handful of Create* methods that wire an
// application's shader sources, buffers, textures, and meshes through to
// internal/vk while threading everything through the shared handle
// registries, the unified CPU/GPU scheduler, and a single render-pass
// cache pair shared by every Surface and the one Renderer a Device owns.
//
// This package is the seam where all the backend-agnostic packages
// (renderer, surface, pblock, rpcache, scheduler, cpuexec, gpuexec) meet
// their concrete Vulkan implementation in internal/vk; nothing above it
// imports internal/vk directly.
package device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/teide-go/teide/config"
	"github.com/teide-go/teide/cpuexec"
	"github.com/teide-go/teide/format"
	"github.com/teide-go/teide/gpuexec"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/internal/vk"
	"github.com/teide-go/teide/pblock"
	"github.com/teide-go/teide/reflectbuild"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/renderer"
	"github.com/teide-go/teide/scheduler"
	"github.com/teide-go/teide/shaderdata"
	"github.com/teide-go/teide/surface"
)

// maxParamBlockSets bounds each per-shader ParamBlockBackend's descriptor
// pool (spec §4.D); a single application rarely instantiates more than a
// few hundred live material blocks per shader.
const maxParamBlockSets = 1024

// BufferUsage mirrors spec §3's Buffer.usage enumeration, re-exported
// here since internal/vk is not importable outside this module.
type BufferUsage int

const (
	UsageVertex BufferUsage = iota
	UsageIndex
	UsageUniform
	UsageGeneric
)

func (u BufferUsage) vk() vk.BufferUsage {
	switch u {
	case UsageVertex:
		return vk.UsageVertex
	case UsageIndex:
		return vk.UsageIndex
	case UsageUniform:
		return vk.UsageUniform
	default:
		return vk.UsageGeneric
	}
}

// Lifetime mirrors spec §3's Buffer.lifetime enumeration.
type Lifetime int

const (
	Permanent Lifetime = iota
	Transient
)

func (l Lifetime) vk() vk.Lifetime {
	if l == Transient {
		return vk.Transient
	}
	return vk.Permanent
}

var (
	softwareRenderingMu sync.Mutex
	softwareRendering   bool
)

// EnableSoftwareRendering sets the process-wide flag that biases every
// subsequently created Device toward a CPU/software Vulkan adapter over
// a discrete or integrated GPU (spec §6 "EnableSoftwareRendering"),
// overriding config.GraphicsSettings.SoftwareRendering for the rest of
// the process. Intended for headless CI environments with no real GPU.
func EnableSoftwareRendering() {
	softwareRenderingMu.Lock()
	defer softwareRenderingMu.Unlock()
	softwareRendering = true
}

func wantSoftwareRendering(settings config.GraphicsSettings) bool {
	softwareRenderingMu.Lock()
	defer softwareRenderingMu.Unlock()
	return softwareRendering || settings.SoftwareRendering
}

// Device is Teide's top-level resource factory and owner (spec §6): it
// wraps one Vulkan logical device, the shared handle registries every
// resource kind is boxed into, the unified CPU/GPU scheduler, and the one
// Renderer/RenderBackend pair every Surface this Device creates presents
// through.
type Device struct {
	vkDevice *vk.Device
	settings config.GraphicsSettings

	cpu   *cpuexec.Executor
	gpu   *gpuexec.Executor
	sched *scheduler.Scheduler

	cmdPool  *vk.CommandBufferPool
	recycler *vk.FrameRecycler
	gpuBack  *vk.GpuBackend

	textures  *handle.Registry[any]
	meshes    *handle.Registry[any]
	pipelines *handle.Registry[any]
	pblocks   *handle.Registry[any]
	buffers   *handle.Registry[any]
	shaders   *handle.Registry[any]

	renderBackend *vk.RenderBackend

	mu       sync.Mutex
	compiler reflectbuild.Compiler
	matPools map[uint64]*vk.ParamBlockBackend // keyed by shader handle index
}

// SetShaderCompiler injects the external GLSL/HLSL→SPIR-V compiler front
// end (spec §1) CreateShader dispatches into. Must be called before the
// first CreateShader call; CreateShader returns an error if no compiler
// has been set.
func (d *Device) SetShaderCompiler(compiler reflectbuild.Compiler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compiler = compiler
}

func newDevice(vkDevice *vk.Device, settings config.GraphicsSettings) *Device {
	numThreads := settings.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	textures := handle.NewRegistry[any]("texture")
	meshes := handle.NewRegistry[any]("mesh")
	pipelines := handle.NewRegistry[any]("pipeline")
	pblocks := handle.NewRegistry[any]("param-block")
	buffers := handle.NewRegistry[any]("buffer")
	shaders := handle.NewRegistry[any]("shader")

	cmdPool := vk.NewCommandBufferPool(vkDevice, numThreads)
	recycler := vk.NewFrameRecycler()
	gpuBack := vk.NewGpuBackend(vkDevice)

	cpu := cpuexec.New(numThreads)
	gpu := gpuexec.New(gpuBack, nil)
	sched := scheduler.New(cpu, gpu, cmdPool, recycler)

	renderBackend := vk.NewRenderBackend(vkDevice, textures, meshes, pipelines, pblocks)

	return &Device{
		vkDevice:      vkDevice,
		settings:      settings,
		cpu:           cpu,
		gpu:           gpu,
		sched:         sched,
		cmdPool:       cmdPool,
		recycler:      recycler,
		gpuBack:       gpuBack,
		textures:      textures,
		meshes:        meshes,
		pipelines:     pipelines,
		pblocks:       pblocks,
		buffers:       buffers,
		shaders:       shaders,
		renderBackend: renderBackend,
		matPools:      make(map[uint64]*vk.ParamBlockBackend),
	}
}

// CreateHeadlessDevice creates a Device with no attached window (spec §6
// "CreateHeadlessDevice"): suitable for offscreen rendering and texture
// readback, exercised entirely through RenderToTexture/CopyTextureData.
func CreateHeadlessDevice(settings config.GraphicsSettings) (*Device, error) {
	vkDevice, err := vk.NewDevice("teide-headless", wantSoftwareRendering(settings), settings.PreferredDeviceName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateHeadlessDevice: %w", err)
	}
	return newDevice(vkDevice, settings), nil
}

// CreateDeviceAndSurface creates a Device plus its first Surface bound to
// window in one call (spec §6 "CreateDeviceAndSurface"), pulling the
// windowing toolkit's required instance extensions from window and
// enabling the swapchain device extension.
func CreateDeviceAndSurface(window surface.WindowHandle, multisampled bool, settings config.GraphicsSettings) (*Device, *surface.Surface, error) {
	instanceExt := window.RequiredInstanceExtensions()
	vkDevice, err := vk.NewDevice("teide", wantSoftwareRendering(settings), settings.PreferredDeviceName, instanceExt, []string{"VK_KHR_swapchain"})
	if err != nil {
		return nil, nil, fmt.Errorf("teide: device: CreateDeviceAndSurface: %w", err)
	}
	d := newDevice(vkDevice, settings)

	surf, err := d.CreateSurface(window, multisampled)
	if err != nil {
		d.Destroy()
		return nil, nil, fmt.Errorf("teide: device: CreateDeviceAndSurface: %w", err)
	}
	return d, surf, nil
}

// CreateSurface builds an additional Surface over window, sharing this
// Device's render-pass and framebuffer caches with its Renderer so
// present-pass render passes built for the swapchain's images stay
// compatible with the ones RecordDrawSequence resolves at draw time.
func (d *Device) CreateSurface(window surface.WindowHandle, multisampled bool) (*surface.Surface, error) {
	rpBuilder, rpCache, fbCache := d.renderBackend.Caches()

	swapchain, err := vk.NewSwapchain(d.vkDevice, window, multisampled, rpBuilder, rpCache, fbCache)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateSurface: building swapchain: %w", err)
	}

	semaphores := make([]surface.Semaphore, surface.MaxFramesInFlight)
	for i := range semaphores {
		semaphores[i] = surface.Semaphore(d.renderBackend.CreateSemaphore())
	}

	surf, err := surface.New(swapchain, semaphores)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateSurface: %w", err)
	}
	return surf, nil
}

// CreateRenderer builds the Renderer bound to one ShaderEnvironment (spec
// §6 "createRenderer(shaderEnvironment)"): derives Scene/View descriptor
// layouts the same way every Shader built against this environment does,
// allocates their ParamBlockBackends, and hands both to renderer.New
// along with this Device's shared scheduler, RenderBackend, and command
// buffer pool.
func (d *Device) CreateRenderer(env shaderdata.ShaderEnvironmentData) (*renderer.Renderer, error) {
	sceneLayout := forceDescriptorSet(pblock.DeriveLayout(env.ScenePblock))
	viewLayout := forceDescriptorSet(pblock.DeriveLayout(env.ViewPblock))

	sceneSetLayout, err := d.vkDevice.CreateDescriptorSetLayout(sceneLayout)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateRenderer: scene set layout: %w", err)
	}
	viewSetLayout, err := d.vkDevice.CreateDescriptorSetLayout(viewLayout)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateRenderer: view set layout: %w", err)
	}

	sceneBackend, err := vk.NewParamBlockBackend(d.vkDevice, sceneSetLayout, d.textures, d.settings.MaxFramesInFlight+1)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateRenderer: scene param block backend: %w", err)
	}
	viewBackend, err := vk.NewParamBlockBackend(d.vkDevice, viewSetLayout, d.textures, d.settings.MaxFramesInFlight+1)
	if err != nil {
		return nil, fmt.Errorf("teide: device: CreateRenderer: view param block backend: %w", err)
	}

	return renderer.New(d.sched, d.renderBackend, d.cmdPool, env, sceneBackend, viewBackend, d.settings.MaxFramesInFlight)
}

// forceDescriptorSet mirrors the unexported renderer.sceneViewLayout:
// Scene and View always bind through descriptor sets, never push
// constants, regardless of DeriveLayout's size-based verdict (spec §4.C
// step 2 reserves push constants for the Object scope alone).
func forceDescriptorSet(layout pblock.Layout) pblock.Layout {
	layout.IsPushConstant = false
	return layout
}

// CreateBuffer uploads data into a device buffer of the given usage and
// lifetime (spec §3 Buffer entity) and returns a handle into this
// Device's shared buffer registry.
func (d *Device) CreateBuffer(data []byte, usage BufferUsage, lifetime Lifetime, hostVisible bool) (handle.Handle[any], error) {
	buf, err := d.vkDevice.CreateBuffer(len(data), usage.vk(), lifetime.vk(), hostVisible, data)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateBuffer: %w", err)
	}
	return d.buffers.Insert(buf), nil
}

// CreateShaderEnvironment validates and returns a handle-free value copy
// of env for callers that want a single source of truth to pass to both
// CreateRenderer and every CreateShader call sharing that environment
// (spec §3 ShaderEnvironment: "Scene+View parameter-block pair shared
// across every shader used by one Renderer"). Teide's ShaderEnvironment
// carries no GPU-side state of its own, so this is a pure pass-through;
// it exists so application code has one named entry point per spec §6's
// Device API rather than constructing shaderdata.ShaderEnvironmentData
// literals directly.
func (d *Device) CreateShaderEnvironment(env shaderdata.ShaderEnvironmentData) shaderdata.ShaderEnvironmentData {
	return env
}

// CreateShader compiles src via the injected shader compiler, derives its
// four parameter-block layouts, and builds the pipeline layout and
// descriptor-set layouts every Pipeline built from the returned handle
// will share (spec §4.C, §6 "createShader").
func (d *Device) CreateShader(src shaderdata.ShaderSource) (handle.Handle[any], error) {
	d.mu.Lock()
	compiler := d.compiler
	d.mu.Unlock()
	if compiler == nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateShader: no shader compiler set, call SetShaderCompiler first")
	}

	data, err := reflectbuild.Build(src, compiler)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateShader: %w", err)
	}

	shader, err := d.vkDevice.CreateShaderEntity(data)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateShader: %w", err)
	}

	h := d.shaders.Insert(shader)

	matBackend, err := vk.NewParamBlockBackend(d.vkDevice, shader.MaterialSetLayout(), d.textures, maxParamBlockSets)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateShader: material param block backend: %w", err)
	}
	d.mu.Lock()
	d.matPools[h.Index()] = matBackend
	d.mu.Unlock()

	return h, nil
}

// CreateTexture uploads pixels (if non-nil) into a new device texture and
// generates its mip chain (spec §4.E).
func (d *Device) CreateTexture(width, height uint32, f format.Format, mipLevels int, sampleCount int, sampler render.SamplerState, pixels []byte) (handle.Handle[any], error) {
	tex, err := d.vkDevice.CreateTexture(width, height, f, mipLevels, sampleCount, sampler, pixels)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateTexture: %w", err)
	}
	return d.textures.Insert(tex), nil
}

// CreateMesh uploads vertex (and optional index) data into a new Mesh
// (spec §3 Mesh entity).
func (d *Device) CreateMesh(vertexData []byte, vertexStride int, indexData []uint16) (handle.Handle[any], error) {
	mesh, err := d.vkDevice.CreateMesh(vertexData, vertexStride, indexData)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateMesh: %w", err)
	}
	return d.meshes.Insert(mesh), nil
}

// CreatePipeline builds a Pipeline from a previously created shader and a
// vertex layout (spec §3 Pipeline entity); the actual vulkan.Pipeline
// variants compile lazily per render pass at draw time.
func (d *Device) CreatePipeline(shaderHandle handle.Handle[any], vertexLayout render.VertexLayout) (handle.Handle[any], error) {
	shader, ok := d.shaders.Get(shaderHandle).(*vk.Shader)
	if !ok {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreatePipeline: handle does not hold a shader")
	}
	pipeline := d.vkDevice.NewPipeline(shader.PipelineLayout, shader.VertexShader, shader.PixelShader, vertexLayout)
	return d.pipelines.Insert(pipeline), nil
}

// CreateParameterBlock builds a Material-scope parameter block for
// shaderHandle, populated with uniformData and textures (spec §4.D). The
// Object scope has no analogous constructor: per spec §4.C's
// push-constant selection rule as implemented here, Object data is always
// supplied inline as render.RenderObject.ObjectUniformData/ObjectTextures
// and bound as push constants at draw-record time, never pre-built.
func (d *Device) CreateParameterBlock(shaderHandle handle.Handle[any], uniformData []byte, textures []handle.Handle[any]) (handle.Handle[any], error) {
	shader, ok := d.shaders.Get(shaderHandle).(*vk.Shader)
	if !ok {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateParameterBlock: handle does not hold a shader")
	}
	d.mu.Lock()
	matBackend := d.matPools[shaderHandle.Index()]
	d.mu.Unlock()
	if matBackend == nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateParameterBlock: no material pool for this shader")
	}

	block, err := pblock.NewWithLayout(shader.MaterialLayout, matBackend)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateParameterBlock: %w", err)
	}
	if err := pblock.Populate(block, uniformData, textures); err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: device: CreateParameterBlock: %w", err)
	}
	return d.pblocks.Insert(block), nil
}

// Destroy releases every resource this Device owns. The caller must have
// already drained any in-flight frame (spec §5 "Shutdown is a clean
// drain").
func (d *Device) Destroy() {
	d.gpu.WaitIdle()
	d.vkDevice.WaitIdle()

	d.mu.Lock()
	for _, pool := range d.matPools {
		pool.Destroy()
	}
	d.mu.Unlock()

	d.cpu.Close()
	d.gpu.Close()
	d.cmdPool.Destroy()
	d.gpuBack.Destroy()
	d.vkDevice.Destroy()
}
