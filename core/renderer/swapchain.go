// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"time"

	"github.com/devblok/camvis/core"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CreateSwapchain implements core.Device
func (r *Renderer) CreateSwapchain(params core.SwapchainParams, old core.Swapchain) (core.Swapchain, error) {
	caps, err := r.rawCapabilities()
	if err != nil {
		return nil, err
	}
	if !convertCapabilities(caps, nil, nil).Supports(params.Extent) {
		return nil, errors.Wrapf(core.ErrUnsupportedDimensions, "%dx%d", params.Extent.Width, params.Extent.Height)
	}

	presentMode, ok := toVkPresentMode(params.PresentMode)
	if !ok {
		return nil, errors.Wrapf(core.ErrPresentModeUnsupported, "%s", params.PresentMode)
	}

	oldSwapchain := vk.Swapchain(vk.NullHandle)
	if sc, ok := old.(*swapchain); ok && sc != nil {
		oldSwapchain = sc.handle
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          r.surface,
		MinImageCount:    params.ImageCount,
		ImageFormat:      vk.Format(params.Format.Format),
		ImageColorSpace:  vk.ColorSpace(params.Format.ColorSpace),
		ImageExtent:      toVkExtent(params.Extent),
		ImageUsage:       vk.ImageUsageFlags(params.Usage),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaFlagBits(params.Alpha),
		PresentMode:      presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	var handle vk.Swapchain
	res := vk.CreateSwapchain(r.device, &scci, nil, &handle)
	if res == vk.ErrorOutOfDate {
		// The surface changed size between the query and the create call.
		return nil, errors.Wrap(core.ErrUnsupportedDimensions, "vk.CreateSwapchain()")
	}
	if err := vk.Error(res); err != nil {
		return nil, errors.Wrap(err, "vk.CreateSwapchain()")
	}

	sc := &swapchain{
		device: r.device,
		handle: handle,
		format: scci.ImageFormat,
		extent: params.Extent,
		log:    r.log,
	}
	if err := sc.createImageViews(); err != nil {
		sc.Release()
		return nil, err
	}

	r.log.WithFields(log.Fields{
		"width":  params.Extent.Width,
		"height": params.Extent.Height,
		"images": len(sc.views),
		"mode":   params.PresentMode,
	}).Debug("Swapchain created")

	return sc, nil
}

type swapchain struct {
	device vk.Device
	handle vk.Swapchain
	format vk.Format
	extent core.Extent2D

	images []vk.Image
	views  []vk.ImageView

	log log.FieldLogger
}

func (s *swapchain) createImageViews() error {
	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(s.device, s.handle, &numImages, nil)); err != nil {
		return errors.Wrap(err, "vk.GetSwapchainImages(num)")
	}
	s.images = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(s.device, s.handle, &numImages, s.images)); err != nil {
		return errors.Wrap(err, "vk.GetSwapchainImages(images)")
	}

	for idx, image := range s.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(s.device, &ivci, nil, &view)); err != nil {
			return errors.Wrapf(err, "vk.CreateImageView(%d)", idx)
		}
		s.views = append(s.views, view)
	}
	return nil
}

// Images returns the image views, framebuffers are built on them.
func (s *swapchain) Images() []core.Image {
	images := make([]core.Image, len(s.views))
	for idx, view := range s.views {
		images[idx] = view
	}
	return images
}

func (s *swapchain) Extent() core.Extent2D {
	return s.extent
}

// AcquireNextImage creates a new semaphore for every acquired image.
// It's owned by the submission that waits on it.
func (s *swapchain) AcquireNextImage(timeout time.Duration) (core.AcquiredImage, error) {
	semaphore, err := newSemaphore(s.device)
	if err != nil {
		return core.AcquiredImage{}, err
	}

	var idx uint32
	res := vk.AcquireNextImage(s.device, s.handle, uint(acquireTimeout(timeout)), semaphore, vk.Fence(vk.NullHandle), &idx)
	if err := acquireError(res); err != nil {
		vk.DestroySemaphore(s.device, semaphore, nil)
		return core.AcquiredImage{}, err
	}
	if res == vk.Suboptimal {
		s.log.Debug("Acquired image from a suboptimal swapchain")
	}

	return core.AcquiredImage{
		Index: int(idx),
		Ready: semaphore,
	}, nil
}

func (s *swapchain) Release() {
	for _, view := range s.views {
		vk.DestroyImageView(s.device, view, nil)
	}
	s.views = nil
	s.images = nil
	if s.handle != nil {
		vk.DestroySwapchain(s.device, s.handle, nil)
		s.handle = nil
	}
}

func newSemaphore(device vk.Device) (vk.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(device, &sci, nil, &semaphore)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateSemaphore()")
	}
	return semaphore, nil
}

func newFence(device vk.Device) (vk.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(device, &fci, nil, &fence)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateFence()")
	}
	return fence, nil
}
