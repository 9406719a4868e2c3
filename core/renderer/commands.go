// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"unsafe"

	"github.com/devblok/camvis/core"
	"github.com/devblok/camvis/model"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

type framebuffer struct {
	device vk.Device
	handle vk.Framebuffer
	extent core.Extent2D
}

func (f *framebuffer) Release() {
	if f.handle != nil {
		vk.DestroyFramebuffer(f.device, f.handle, nil)
		f.handle = nil
	}
}

// CreateFramebuffer implements core.Device
func (r *Renderer) CreateFramebuffer(image core.Image, extent core.Extent2D) (core.Framebuffer, error) {
	view, ok := image.(vk.ImageView)
	if !ok {
		return nil, errors.Errorf("unexpected image type %T", image)
	}

	attachments := []vk.ImageView{view}
	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      r.renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(r.device, &fci, nil, &handle)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateFramebuffer()")
	}
	return &framebuffer{
		device: r.device,
		handle: handle,
		extent: extent,
	}, nil
}

// Record implements core.Device. The returned vk.CommandBuffer is
// freed by the future of the submission it's part of.
func (r *Renderer) Record(target core.Framebuffer, cmd core.DrawCommand) (core.CommandBuffer, error) {
	fb, ok := target.(*framebuffer)
	if !ok {
		return nil, errors.Errorf("unexpected framebuffer type %T", target)
	}
	pipeline, ok := cmd.Pipeline.(vk.Pipeline)
	if !ok {
		return nil, errors.Errorf("unexpected pipeline type %T", cmd.Pipeline)
	}
	geometry, ok := cmd.Geometry.(*VertexBuffer)
	if !ok {
		return nil, errors.Errorf("unexpected geometry type %T", cmd.Geometry)
	}

	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        r.commandPool,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(r.device, &cbai, commandBuffers)); err != nil {
		return nil, errors.Wrap(err, "vk.AllocateCommandBuffers()")
	}
	cb := commandBuffers[0]

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cb, &cbbi)); err != nil {
		vk.FreeCommandBuffers(r.device, r.commandPool, 1, commandBuffers)
		return nil, errors.Wrap(err, "vk.BeginCommandBuffer()")
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(cmd.ClearColor[:])

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.renderPass,
		Framebuffer: fb.handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: toVkExtent(fb.extent),
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	viewports, scissors := vkViewports(cmd.Viewports, fb.extent)
	pc := model.PushConstant{Offset: cmd.Offset}

	vk.CmdBeginRenderPass(cb, &rpbi, vk.SubpassContentsInline)
	vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, pipeline)
	vk.CmdSetViewport(cb, 0, uint32(len(viewports)), viewports)
	vk.CmdSetScissor(cb, 0, uint32(len(scissors)), scissors)
	vk.CmdPushConstants(cb, r.pipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, model.PushConstantSize(), unsafe.Pointer(&pc))
	vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{geometry.Get()}, []vk.DeviceSize{0})
	vk.CmdDraw(cb, geometry.Count(), 1, 0, 0)
	vk.CmdEndRenderPass(cb)

	if err := vk.Error(vk.EndCommandBuffer(cb)); err != nil {
		vk.FreeCommandBuffers(r.device, r.commandPool, 1, commandBuffers)
		return nil, errors.Wrap(err, "vk.EndCommandBuffer()")
	}
	return cb, nil
}
