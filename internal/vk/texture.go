// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/format"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/texture"
)

// Texture pairs a device image with its view and sampler, grounded on
// vgpu.Texture's Image+Sampler split, plus the mutable layout state
// package texture's Transition/GenerateMipmaps algorithms drive.
type Texture struct {
	device *Device

	Width, Height uint32
	MipLevels     int
	Format        format.Format
	SampleCount   int

	image   vulkan.Image
	mem     vulkan.DeviceMemory
	view    vulkan.ImageView
	sampler vulkan.Sampler

	MipStates []texture.State
}

func vkFormat(f format.Format) vulkan.Format {
	switch f {
	case format.Byte4Norm:
		return vulkan.FormatR8g8b8a8Unorm
	case format.Byte4Srgb:
		return vulkan.FormatR8g8b8a8Srgb
	case format.Float:
		return vulkan.FormatR32Sfloat
	case format.Float2:
		return vulkan.FormatR32g32Sfloat
	case format.Float3:
		return vulkan.FormatR32g32b32Sfloat
	case format.Float4:
		return vulkan.FormatR32g32b32a32Sfloat
	case format.Depth16:
		return vulkan.FormatD16Unorm
	case format.Depth32:
		return vulkan.FormatD32Sfloat
	case format.Depth24Stencil8:
		return vulkan.FormatD24UnormS8Uint
	default:
		panic("teide: vk: vkFormat: unknown format")
	}
}

func sampleCountFlag(n int) vulkan.SampleCountFlagBits {
	switch n {
	case 1:
		return vulkan.SampleCount1Bit
	case 2:
		return vulkan.SampleCount2Bit
	case 4:
		return vulkan.SampleCount4Bit
	case 8:
		return vulkan.SampleCount8Bit
	case 16:
		return vulkan.SampleCount16Bit
	default:
		panic("teide: vk: sampleCountFlag: unsupported sample count")
	}
}

// CreateTexture allocates a device image of the given size/format/mip
// count and its sampler, and (if pixels is non-nil) uploads the base mip
// level then generates the remaining mips via package texture's
// GenerateMipmaps (spec §4.E, §8 scenario 3).
func (d *Device) CreateTexture(width, height uint32, f format.Format, mipLevels int, sampleCount int, sampler render.SamplerState, pixels []byte) (*Texture, error) {
	if mipLevels < 1 {
		return nil, fmt.Errorf("teide: vk: CreateTexture: mipLevelCount must be >= 1, got %d", mipLevels)
	}

	usage := vulkan.ImageUsageSampledBit | vulkan.ImageUsageTransferDstBit | vulkan.ImageUsageTransferSrcBit
	if format.IsDepth(f) {
		usage = vulkan.ImageUsageDepthStencilAttachmentBit | vulkan.ImageUsageSampledBit
	} else {
		usage |= vulkan.ImageUsageColorAttachmentBit
	}

	var image vulkan.Image
	ret := vulkan.CreateImage(d.Logical, &vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Format:    vkFormat(f),
		Extent:    vulkan.Extent3D{Width: width, Height: height, Depth: 1},
		MipLevels: uint32(mipLevels),
		ArrayLayers: 1,
		Samples:     sampleCountFlag(sampleCount),
		Tiling:      vulkan.ImageTilingOptimal,
		Usage:       vulkan.ImageUsageFlags(usage),
		SharingMode: vulkan.SharingModeExclusive,
		InitialLayout: vulkan.ImageLayoutUndefined,
	}, nil, &image)
	checkResult(ret, "CreateImage")

	var reqs vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(d.Logical, image, &reqs)
	reqs.Deref()
	typeIndex, ok := findMemoryType(d.MemProperties, reqs.MemoryTypeBits, vulkan.MemoryPropertyDeviceLocalBit)
	if !ok {
		panic("teide: vk: CreateTexture: no memory type satisfies image requirements")
	}
	var mem vulkan.DeviceMemory
	checkResult(vulkan.AllocateMemory(d.Logical, &vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem), "AllocateMemory")
	checkResult(vulkan.BindImageMemory(d.Logical, image, mem, 0), "BindImageMemory")

	aspect := vulkan.ImageAspectColorBit
	if format.IsDepth(f) {
		aspect = vulkan.ImageAspectDepthBit
	}
	var view vulkan.ImageView
	checkResult(vulkan.CreateImageView(d.Logical, &vulkan.ImageViewCreateInfo{
		SType:      vulkan.StructureTypeImageViewCreateInfo,
		Image:      image,
		ViewType:   vulkan.ImageViewType2d,
		Format:     vkFormat(f),
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: vulkan.ImageAspectFlags(aspect),
			LevelCount: uint32(mipLevels),
			LayerCount: 1,
		},
	}, nil, &view), "CreateImageView")

	samp := d.createSampler(sampler)

	tex := &Texture{
		device:      d,
		Width:       width,
		Height:      height,
		MipLevels:   mipLevels,
		Format:      f,
		SampleCount: sampleCount,
		image:       image,
		mem:         mem,
		view:        view,
		sampler:     samp,
		MipStates:   make([]texture.State, mipLevels),
	}
	for i := range tex.MipStates {
		tex.MipStates[i] = texture.State{Layout: texture.Undefined, LastPipelineStage: texture.StageTopOfPipe}
	}

	if pixels != nil {
		tex.upload(pixels)
	}
	return tex, nil
}

func (d *Device) createSampler(s render.SamplerState) vulkan.Sampler {
	anisotropy := vulkan.False
	maxAniso := float32(1)
	if s.HasAnisotropy {
		anisotropy = vulkan.True
		maxAniso = s.MaxAnisotropy
	}
	compareEnable := vulkan.False
	if s.HasCompare {
		compareEnable = vulkan.True
	}
	var sampler vulkan.Sampler
	checkResult(vulkan.CreateSampler(d.Logical, &vulkan.SamplerCreateInfo{
		SType:                   vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:               vkFilter(s.MagFilter),
		MinFilter:               vkFilter(s.MinFilter),
		MipmapMode:              vkMipmapMode(s.MipmapMode),
		AddressModeU:            vkAddressMode(s.AddressModeU),
		AddressModeV:            vkAddressMode(s.AddressModeV),
		AddressModeW:            vkAddressMode(s.AddressModeW),
		AnisotropyEnable:        anisotropy,
		MaxAnisotropy:           maxAniso,
		CompareEnable:           compareEnable,
		CompareOp:               vkCompareOp(s.CompareOp),
		UnnormalizedCoordinates: vulkan.False,
	}, nil, &sampler), "CreateSampler")
	return sampler
}

func vkFilter(f render.Filter) vulkan.Filter {
	if f == render.FilterNearest {
		return vulkan.FilterNearest
	}
	return vulkan.FilterLinear
}

func vkMipmapMode(m render.MipmapMode) vulkan.SamplerMipmapMode {
	if m == render.MipmapModeNearest {
		return vulkan.SamplerMipmapModeNearest
	}
	return vulkan.SamplerMipmapModeLinear
}

func vkAddressMode(a render.AddressMode) vulkan.SamplerAddressMode {
	switch a {
	case render.AddressModeMirroredRepeat:
		return vulkan.SamplerAddressModeMirroredRepeat
	case render.AddressModeClampToEdge:
		return vulkan.SamplerAddressModeClampToEdge
	case render.AddressModeClampToBorder:
		return vulkan.SamplerAddressModeClampToBorder
	default:
		return vulkan.SamplerAddressModeRepeat
	}
}

func vkCompareOp(c render.CompareOp) vulkan.CompareOp {
	switch c {
	case render.CompareOpLess:
		return vulkan.CompareOpLess
	case render.CompareOpLessOrEqual:
		return vulkan.CompareOpLessOrEqual
	case render.CompareOpGreater:
		return vulkan.CompareOpGreater
	case render.CompareOpGreaterOrEqual:
		return vulkan.CompareOpGreaterOrEqual
	default:
		return vulkan.CompareOpNever
	}
}

// upload stages pixels into mip 0 via a host-visible buffer, then runs
// package texture's GenerateMipmaps to produce the remaining levels
// (spec §4.E).
func (t *Texture) upload(pixels []byte) {
	staging, err := t.device.CreateBuffer(len(pixels), UsageGeneric, Transient, true, pixels)
	if err != nil {
		panic(fmt.Sprintf("teide: vk: Texture.upload: %v", err))
	}
	defer staging.Destroy()

	t.device.NewOneShotImageRecorder(t.image, func(rec texture.Recorder) {
		texture.Transition(&t.MipStates[0], rec, 0, texture.TransferDst)
	})

	cmd := t.device.beginOneShotCommands()
	region := vulkan.BufferImageCopy{
		ImageSubresource: vulkan.ImageSubresourceLayers{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vulkan.Extent3D{Width: t.Width, Height: t.Height, Depth: 1},
	}
	vulkan.CmdCopyBufferToImage(cmd, staging.host, t.image, vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{region})
	t.device.endOneShotCommands(cmd)

	t.device.NewOneShotImageRecorder(t.image, func(rec texture.Recorder) {
		texture.GenerateMipmaps(t.MipStates, rec, [2]uint32{t.Width, t.Height})
	})
}

// ImageView returns the texture's full-resource image view, for
// registering as a render-pass attachment or a sampled-image binding.
func (t *Texture) ImageView() vulkan.ImageView {
	return t.view
}

// Image returns the underlying device image, for layout transitions
// recorded outside of Destroy/upload (render-to-texture attachments).
func (t *Texture) Image() vulkan.Image {
	return t.image
}

// Destroy releases the image, view, sampler, and backing memory.
func (t *Texture) Destroy() {
	dev := t.device.Logical
	if t.sampler != nil {
		vulkan.DestroySampler(dev, t.sampler, nil)
	}
	if t.view != nil {
		vulkan.DestroyImageView(dev, t.view, nil)
	}
	if t.image != nil {
		vulkan.DestroyImage(dev, t.image, nil)
	}
	if t.mem != nil {
		vulkan.FreeMemory(dev, t.mem, nil)
	}
}
