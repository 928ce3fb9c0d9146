// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	vulkan "github.com/goki/vulkan"
)

// Device holds the logical device and graphics queue Teide renders
// through, grounded on the teacher's vgpu.Device/vgpu.GPU split.
type Device struct {
	Instance       vulkan.Instance
	PhysicalDevice vulkan.PhysicalDevice
	Properties     vulkan.PhysicalDeviceProperties
	MemProperties  vulkan.PhysicalDeviceMemoryProperties

	Logical    vulkan.Device
	QueueIndex uint32
	Queue      vulkan.Queue

	oneShotPool vulkan.CommandPool

	reusableMu   sync.Mutex
	reusableCmds map[vulkan.CommandBuffer]struct{}
}

// MarkReusable records cmd as a simultaneous-use command buffer that is
// recorded once (begun and ended) and resubmitted verbatim on every later
// use, e.g. a Swapchain's per-image pre-present barrier buffer. GpuBackend
// consults this before a submission would otherwise re-end a buffer it
// did not itself begin.
func (d *Device) MarkReusable(cmd vulkan.CommandBuffer) {
	d.reusableMu.Lock()
	defer d.reusableMu.Unlock()
	if d.reusableCmds == nil {
		d.reusableCmds = make(map[vulkan.CommandBuffer]struct{})
	}
	d.reusableCmds[cmd] = struct{}{}
}

func (d *Device) isReusable(cmd vulkan.CommandBuffer) bool {
	d.reusableMu.Lock()
	defer d.reusableMu.Unlock()
	_, ok := d.reusableCmds[cmd]
	return ok
}

// devicePreference assigns a total order to physical device types
// (spec §9 Open Question, resolved in SPEC_FULL.md §12): discrete GPUs
// outrank integrated GPUs, which outrank CPU/software adapters. Any
// other reported type sorts last.
func devicePreference(t vulkan.PhysicalDeviceType, softwareRendering bool) int {
	if softwareRendering {
		if t == vulkan.PhysicalDeviceTypeCpu {
			return 3
		}
		return 0
	}
	switch t {
	case vulkan.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vulkan.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vulkan.PhysicalDeviceTypeCpu:
		return 1
	default:
		return 0
	}
}

// SelectPhysicalDevice enumerates every physical device on instance and
// returns the most preferred one per devicePreference's total order.
func SelectPhysicalDevice(instance vulkan.Instance, softwareRendering bool) (vulkan.PhysicalDevice, error) {
	return SelectPhysicalDeviceNamed(instance, softwareRendering, "")
}

// SelectPhysicalDeviceNamed is SelectPhysicalDevice plus an optional
// case-insensitive substring match against each candidate's reported
// name (config.GraphicsSettings.PreferredDeviceName). A device whose
// name contains preferredName always outranks every device that
// doesn't, regardless of devicePreference's type-based score; ties
// among matching (or among non-matching) devices still break on
// devicePreference. An empty preferredName reduces to plain
// devicePreference ordering.
func SelectPhysicalDeviceNamed(instance vulkan.Instance, softwareRendering bool, preferredName string) (vulkan.PhysicalDevice, error) {
	var count uint32
	checkResult(vulkan.EnumeratePhysicalDevices(instance, &count, nil), "EnumeratePhysicalDevices(count)")
	if count == 0 {
		return nil, fmt.Errorf("teide: vk: no physical devices available")
	}
	devices := make([]vulkan.PhysicalDevice, count)
	checkResult(vulkan.EnumeratePhysicalDevices(instance, &count, devices), "EnumeratePhysicalDevices")

	needle := strings.ToLower(strings.TrimSpace(preferredName))

	var best vulkan.PhysicalDevice
	bestMatched := false
	bestScore := -1
	for _, d := range devices {
		var props vulkan.PhysicalDeviceProperties
		vulkan.GetPhysicalDeviceProperties(d, &props)
		props.Deref()
		score := devicePreference(props.DeviceType, softwareRendering)
		matched := needle != "" && strings.Contains(strings.ToLower(nullTerminatedName(props.DeviceName)), needle)
		if best == nil || (matched && !bestMatched) || (matched == bestMatched && score > bestScore) {
			best = d
			bestMatched = matched
			bestScore = score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("teide: vk: no suitable physical device found")
	}
	return best, nil
}

// nullTerminatedName converts a fixed-size NUL-terminated C char array
// (as the vulkan binding represents PhysicalDeviceProperties.DeviceName)
// into a Go string.
func nullTerminatedName(raw [256]byte) string {
	n := bytes.IndexByte(raw[:], 0)
	if n < 0 {
		n = len(raw)
	}
	return string(raw[:n])
}

// findGraphicsQueueFamily mirrors vgpu.Device.FindQueue: the first queue
// family advertising the requested capability bits is used.
func findGraphicsQueueFamily(physical vulkan.PhysicalDevice, required vulkan.QueueFlagBits) (uint32, error) {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	if count == 0 {
		return 0, fmt.Errorf("teide: vk: no queue families found")
	}
	families := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(physical, &count, families)
	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if vulkan.QueueFlagBits(families[i].QueueFlags)&required != 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("teide: vk: no queue family supports required flags %d", required)
}

// NewDevice creates the instance, selects a physical device, and creates
// the logical device and graphics queue. softwareRendering mirrors the
// process-wide EnableSoftwareRendering flag (spec §6).
//
// instanceExtensions and deviceExtensions are additional extensions
// beyond Teide's baseline requirements; CreateDeviceAndSurface passes
// the windowing toolkit's required instance extensions and the
// swapchain device extension through here. preferredDeviceName is
// config.GraphicsSettings.PreferredDeviceName; an empty string leaves
// selection to devicePreference alone.
func NewDevice(appName string, softwareRendering bool, preferredDeviceName string, instanceExtensions, deviceExtensions []string) (*Device, error) {
	if err := EnsureLoaded(); err != nil {
		return nil, err
	}

	instance, err := createInstance(appName, instanceExtensions)
	if err != nil {
		return nil, err
	}

	physical, err := SelectPhysicalDeviceNamed(instance, softwareRendering, preferredDeviceName)
	if err != nil {
		vulkan.DestroyInstance(instance, nil)
		return nil, err
	}

	queueIndex, err := findGraphicsQueueFamily(physical, vulkan.QueueGraphicsBit)
	if err != nil {
		vulkan.DestroyInstance(instance, nil)
		return nil, err
	}

	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(physical, &props)
	props.Deref()

	var memProps vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(physical, &memProps)
	memProps.Deref()

	queueInfos := []vulkan.DeviceQueueCreateInfo{{
		SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	feats := vulkan.PhysicalDeviceFeatures{
		SamplerAnisotropy: vulkan.True,
	}

	var logical vulkan.Device
	ret := vulkan.CreateDevice(physical, &vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{feats},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: nullTerminated(deviceExtensions),
	}, nil, &logical)
	if ret != vulkan.Success {
		vulkan.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("teide: vk: CreateDevice failed: %d", ret)
	}

	var queue vulkan.Queue
	vulkan.GetDeviceQueue(logical, queueIndex, 0, &queue)

	return &Device{
		Instance:       instance,
		PhysicalDevice: physical,
		Properties:     props,
		MemProperties:  memProps,
		Logical:        logical,
		QueueIndex:     queueIndex,
		Queue:          queue,
	}, nil
}

func createInstance(appName string, extensions []string) (vulkan.Instance, error) {
	appInfo := &vulkan.ApplicationInfo{
		SType:            vulkan.StructureTypeApplicationInfo,
		PApplicationName: appName + "\x00",
		ApiVersion:       vulkan.ApiVersion11,
	}
	var instance vulkan.Instance
	ret := vulkan.CreateInstance(&vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: nullTerminated(extensions),
	}, nil, &instance)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateInstance failed: %d", ret)
	}
	return instance, nil
}

// nullTerminated returns names with a trailing NUL appended to each
// entry, as the goki/vulkan binding expects for Pp*Names slices.
func nullTerminated(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + "\x00"
	}
	return out
}

// WaitIdle blocks until the logical device has finished all outstanding
// work. Used at shutdown and before swapchain recreation (spec §4.J
// OnResize, §5 "Shutdown is a clean drain").
func (d *Device) WaitIdle() {
	vulkan.DeviceWaitIdle(d.Logical)
}

// Destroy releases the logical device and instance. Device loss during
// any prior operation is fatal per spec §7; Destroy itself is only ever
// called during an orderly shutdown.
func (d *Device) Destroy() {
	if d.Logical != nil {
		vulkan.DeviceWaitIdle(d.Logical)
		if d.oneShotPool != nil {
			vulkan.DestroyCommandPool(d.Logical, d.oneShotPool, nil)
			d.oneShotPool = nil
		}
		vulkan.DestroyDevice(d.Logical, nil)
		d.Logical = nil
	}
	if d.Instance != nil {
		vulkan.DestroyInstance(d.Instance, nil)
		d.Instance = nil
	}
}

// findMemoryType mirrors vgpu.FindRequiredMemoryType: scan the physical
// device's memory types for one whose bits overlap typeBits and whose
// property flags fully satisfy properties.
func findMemoryType(memProps vulkan.PhysicalDeviceMemoryProperties, typeBits uint32, properties vulkan.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		memProps.MemoryTypes[i].Deref()
		flags := memProps.MemoryTypes[i].PropertyFlags
		if flags&vulkan.MemoryPropertyFlags(properties) == vulkan.MemoryPropertyFlags(properties) {
			return i, true
		}
	}
	return 0, false
}
