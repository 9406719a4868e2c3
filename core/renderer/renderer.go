// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package renderer implements the core device and queue on top of Vulkan.
package renderer

import (
	"github.com/devblok/camvis/core"
	"github.com/devblok/camvis/device"
	"github.com/devblok/camvis/model"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var entryPoint = device.SafeString("main")

// New creates the render pass, pipeline and crosshair geometry
// for the surface of ctx.
func New(ctx *device.Context, shaders ShaderSource, logger log.FieldLogger) (*Renderer, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	r := &Renderer{
		device:      ctx.Device,
		physical:    ctx.Physical,
		queue:       ctx.Queue,
		queueFamily: ctx.QueueFamily,
		surface:     ctx.Surface,
		log:         logger,
	}

	formats, err := r.surfaceFormats()
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, core.ErrNoSurfaceFormat
	}
	r.format = formats[0].Format

	steps := []func() error{
		r.createRenderPass,
		func() error { return r.createPipeline(shaders) },
		r.createCommandPool,
		r.createGeometry,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			r.Release()
			return nil, err
		}
	}

	r.log.WithFields(log.Fields{
		"format":   r.format,
		"vertices": r.geometry.Count(),
	}).Debug("Renderer created")

	return r, nil
}

// Renderer draws the crosshair. It implements core.Device and core.Queue
// and must be used from a single goroutine.
type Renderer struct {
	device      vk.Device
	physical    vk.PhysicalDevice
	queue       vk.Queue
	queueFamily uint32
	surface     vk.Surface

	format         vk.Format
	renderPass     vk.RenderPass
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline
	commandPool    vk.CommandPool
	geometry       *VertexBuffer

	log log.FieldLogger
}

// Pipeline returns the graphics pipeline for draw commands.
func (r *Renderer) Pipeline() core.Pipeline {
	return r.pipeline
}

// Geometry returns the crosshair vertex buffer for draw commands.
func (r *Renderer) Geometry() core.Geometry {
	return r.geometry
}

func (r *Renderer) surfaceFormats() ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(r.physical, r.surface, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(r.physical, r.surface, &count, formats)); err != nil {
		return nil, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	for idx := range formats {
		formats[idx].Deref()
	}
	return formats, nil
}

func (r *Renderer) presentModes() ([]vk.PresentMode, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(r.physical, r.surface, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(r.physical, r.surface, &count, modes)); err != nil {
		return nil, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	return modes, nil
}

func (r *Renderer) rawCapabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(r.physical, r.surface, &caps)); err != nil {
		return caps, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceCapabilities()")
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

// SurfaceCapabilities implements core.Device
func (r *Renderer) SurfaceCapabilities() (core.SurfaceCapabilities, error) {
	caps, err := r.rawCapabilities()
	if err != nil {
		return core.SurfaceCapabilities{}, err
	}
	formats, err := r.surfaceFormats()
	if err != nil {
		return core.SurfaceCapabilities{}, err
	}
	modes, err := r.presentModes()
	if err != nil {
		return core.SurfaceCapabilities{}, err
	}
	return convertCapabilities(caps, formats, modes), nil
}

func (r *Renderer) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         r.format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentRef)),
		PColorAttachments:    colorAttachmentRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(r.device, &rpci, nil, &renderPass)); err != nil {
		return errors.Wrap(err, "vk.CreateRenderPass()")
	}
	r.renderPass = renderPass
	return nil
}

func (r *Renderer) createPipeline(src ShaderSource) error {
	code, err := selectShaders(src)
	if err != nil {
		return err
	}

	stages := []struct {
		shaderType core.ShaderType
		stage      vk.ShaderStageFlagBits
	}{
		{core.VertexShaderType, vk.ShaderStageVertexBit},
		{core.FragmentShaderType, vk.ShaderStageFragmentBit},
	}

	var stagesInfo []vk.PipelineShaderStageCreateInfo
	defer func() {
		// Modules are only needed while the pipeline is created.
		for _, info := range stagesInfo {
			vk.DestroyShaderModule(r.device, info.Module, nil)
		}
	}()
	for _, s := range stages {
		module, err := newShaderModule(r.device, code[s.shaderType])
		if err != nil {
			return errors.Wrapf(err, "%s shader", s.shaderType)
		}
		stagesInfo = append(stagesInfo, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  s.stage,
			Module: module,
			PName:  entryPoint,
		})
	}

	pcr := []vk.PushConstantRange{{
		Offset:     0,
		Size:       model.PushConstantSize(),
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}
	plci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: uint32(len(pcr)),
		PPushConstantRanges:    pcr,
	}
	var pipelineLayout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(r.device, &plci, nil, &pipelineLayout)); err != nil {
		return errors.Wrap(err, "vk.CreatePipelineLayout()")
	}
	r.pipelineLayout = pipelineLayout

	vertexAttributeDescriptions := model.VertexAttributeDescriptions()
	vertexBindingDescriptions := model.VertexBindingDescriptions()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stagesInfo)),
		PStages:    stagesInfo,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexAttributeDescriptionCount: uint32(len(vertexAttributeDescriptions)),
			PVertexAttributeDescriptions:    vertexAttributeDescriptions,
			VertexBindingDescriptionCount:   uint32(len(vertexBindingDescriptions)),
			PVertexBindingDescriptions:      vertexBindingDescriptions,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyLineList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
				DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      0xF,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     r.pipelineLayout,
		RenderPass: r.renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(r.device, vk.PipelineCache(vk.NullHandle), uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return errors.Wrap(err, "vk.CreateGraphicsPipelines()")
	}
	r.pipeline = pipelines[0]
	return nil
}

func (r *Renderer) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: r.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(r.device, &cpci, nil, &commandPool)); err != nil {
		return errors.Wrap(err, "vk.CreateCommandPool()")
	}
	r.commandPool = commandPool
	return nil
}

func (r *Renderer) createGeometry() error {
	allocator := NewMemoryAllocator(r.device, r.physical)
	geometry, err := NewVertexBuffer(r.device, model.Crosshair(), allocator)
	if err != nil {
		return errors.Wrap(err, "crosshair geometry")
	}
	r.geometry = geometry
	return nil
}

// Now implements core.Device
func (r *Renderer) Now() core.Future {
	return &frameFuture{device: r.device, pool: r.commandPool}
}

// WaitIdle implements core.Device
func (r *Renderer) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(r.device)); err != nil {
		return errors.Wrap(err, "vk.DeviceWaitIdle()")
	}
	return nil
}

// Release destroys everything created by New. Pending frames must
// have been cleaned up before.
func (r *Renderer) Release() {
	vk.DeviceWaitIdle(r.device)

	if r.geometry != nil {
		r.geometry.Release()
		r.geometry = nil
	}
	if r.commandPool != nil {
		vk.DestroyCommandPool(r.device, r.commandPool, nil)
		r.commandPool = nil
	}
	if r.pipeline != nil {
		vk.DestroyPipeline(r.device, r.pipeline, nil)
		r.pipeline = nil
	}
	if r.pipelineLayout != nil {
		vk.DestroyPipelineLayout(r.device, r.pipelineLayout, nil)
		r.pipelineLayout = nil
	}
	if r.renderPass != nil {
		vk.DestroyRenderPass(r.device, r.renderPass, nil)
		r.renderPass = nil
	}
}
