// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"math"
	"time"

	"github.com/devblok/camvis/core"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// undefinedExtent marks a surface whose size follows the swapchain.
const undefinedExtent = math.MaxUint32

var presentModes = map[core.PresentMode]vk.PresentMode{
	core.PresentModeImmediate:   vk.PresentModeImmediate,
	core.PresentModeMailbox:     vk.PresentModeMailbox,
	core.PresentModeFifo:        vk.PresentModeFifo,
	core.PresentModeFifoRelaxed: vk.PresentModeFifoRelaxed,
}

// alphaPreference is the order composite alpha modes are tried in
var alphaPreference = []vk.CompositeAlphaFlagBits{
	vk.CompositeAlphaOpaqueBit,
	vk.CompositeAlphaPreMultipliedBit,
	vk.CompositeAlphaPostMultipliedBit,
	vk.CompositeAlphaInheritBit,
}

func toVkPresentMode(mode core.PresentMode) (vk.PresentMode, bool) {
	m, ok := presentModes[mode]
	return m, ok
}

func fromVkPresentModes(modes []vk.PresentMode) []core.PresentMode {
	var out []core.PresentMode
	for _, m := range modes {
		for mode, vkMode := range presentModes {
			if m == vkMode {
				out = append(out, mode)
				break
			}
		}
	}
	return out
}

func toExtent(e vk.Extent2D) core.Extent2D {
	return core.Extent2D{Width: e.Width, Height: e.Height}
}

func toVkExtent(e core.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

// convertCapabilities expects caps and formats to be dereferenced.
func convertCapabilities(caps vk.SurfaceCapabilities, formats []vk.SurfaceFormat, modes []vk.PresentMode) core.SurfaceCapabilities {
	out := core.SurfaceCapabilities{
		MinImageExtent: toExtent(caps.MinImageExtent),
		MaxImageExtent: toExtent(caps.MaxImageExtent),
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		SupportedUsage: core.ImageUsage(caps.SupportedUsageFlags),
		PresentModes:   fromVkPresentModes(modes),
	}

	if caps.CurrentExtent.Width != undefinedExtent {
		current := toExtent(caps.CurrentExtent)
		out.CurrentExtent = &current
	}

	for _, bit := range alphaPreference {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(bit) != 0 {
			out.SupportedAlpha = append(out.SupportedAlpha, core.CompositeAlpha(bit))
		}
	}

	for _, f := range formats {
		out.SupportedFormats = append(out.SupportedFormats, core.SurfaceFormat{
			Format:     core.Format(f.Format),
			ColorSpace: core.ColorSpace(f.ColorSpace),
		})
	}
	return out
}

// vkViewports converts the dynamic state, an empty scissor
// list means the whole framebuffer.
func vkViewports(state core.ViewportState, extent core.Extent2D) ([]vk.Viewport, []vk.Rect2D) {
	viewports := make([]vk.Viewport, 0, len(state.Viewports))
	for _, v := range state.Viewports {
		viewports = append(viewports, vk.Viewport{
			X:        v.Origin.X(),
			Y:        v.Origin.Y(),
			Width:    v.Dimensions.X(),
			Height:   v.Dimensions.Y(),
			MinDepth: v.DepthRange[0],
			MaxDepth: v.DepthRange[1],
		})
	}

	if len(state.Scissors) == 0 {
		return viewports, []vk.Rect2D{{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: toVkExtent(extent),
		}}
	}

	scissors := make([]vk.Rect2D, 0, len(state.Scissors))
	for _, s := range state.Scissors {
		scissors = append(scissors, vk.Rect2D{
			Offset: vk.Offset2D{X: s.Offset[0], Y: s.Offset[1]},
			Extent: toVkExtent(s.Extent),
		})
	}
	return viewports, scissors
}

// acquireTimeout converts a timeout to nanoseconds, 0 waits forever.
func acquireTimeout(d time.Duration) uint64 {
	if d <= 0 {
		return math.MaxUint64
	}
	return uint64(d.Nanoseconds())
}

// acquireError maps a vkAcquireNextImageKHR result. Suboptimal still
// yields a usable image.
func acquireError(res vk.Result) error {
	switch res {
	case vk.Success, vk.Suboptimal:
		return nil
	case vk.ErrorOutOfDate:
		return core.ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return core.ErrAcquireTimeout
	}
	return errors.Wrap(vk.Error(res), "vk.AcquireNextImage()")
}

// presentError maps a vkQueuePresentKHR result, a suboptimal
// swapchain is rebuilt just like an out of date one.
func presentError(res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return core.ErrOutOfDate
	}
	return errors.Wrap(vk.Error(res), "vk.QueuePresent()")
}
