// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Surface is one generation of the swapchain together with its framebuffers.
// It's never modified after creation, a rebuild produces a new one.
type Surface struct {
	Swapchain    Swapchain
	Framebuffers []Framebuffer
	Generation   uint64
}

// Extent returns the physical size of the surface images.
func (s *Surface) Extent() Extent2D {
	return s.Swapchain.Extent()
}

// Release destroys the framebuffers, then the swapchain.
func (s *Surface) Release() {
	for _, fb := range s.Framebuffers {
		fb.Release()
	}
	s.Framebuffers = nil
	if s.Swapchain != nil {
		s.Swapchain.Release()
		s.Swapchain = nil
	}
}

// SurfaceManager builds surfaces. Format, usage, alpha and present mode
// are chosen once in NewSurfaceManager and reused by every rebuild.
type SurfaceManager struct {
	device     Device
	params     SwapchainParams
	imageCount uint32
	generation uint64
	log        log.FieldLogger
}

// NewSurfaceManager picks the swapchain parameters from the current
// surface capabilities.
func NewSurfaceManager(device Device, cfg RendererConfiguration, logger log.FieldLogger) (*SurfaceManager, error) {
	caps, err := device.SurfaceCapabilities()
	if err != nil {
		return nil, errors.Wrap(err, "surface capabilities")
	}
	if len(caps.SupportedFormats) == 0 {
		return nil, ErrNoSurfaceFormat
	}
	if !caps.SupportsPresentMode(cfg.PresentMode) {
		return nil, errors.Wrapf(ErrPresentModeUnsupported, "%s", cfg.PresentMode)
	}

	var alpha CompositeAlpha
	if len(caps.SupportedAlpha) > 0 {
		alpha = caps.SupportedAlpha[0]
	}

	return &SurfaceManager{
		device: device,
		params: SwapchainParams{
			Format:      caps.SupportedFormats[0],
			Usage:       caps.SupportedUsage,
			Alpha:       alpha,
			PresentMode: cfg.PresentMode,
		},
		imageCount: cfg.ImageCount,
		log:        logger,
	}, nil
}

// Params returns the fixed swapchain parameters.
func (m *SurfaceManager) Params() SwapchainParams {
	return m.params
}

// Rebuild creates a new surface matching the current window and clears
// state.SurfaceInvalid. The old surface, if any, is left untouched for the
// caller to release once no GPU work references it.
//
// ErrUnsupportedDimensions is returned when the surface can't be built
// right now, state.SurfaceInvalid stays set and the caller retries later.
// Any other error is fatal.
func (m *SurfaceManager) Rebuild(state *RenderState, old *Surface) (*Surface, error) {
	caps, err := m.device.SurfaceCapabilities()
	if err != nil {
		return nil, errors.Wrap(err, "surface capabilities")
	}

	extent := state.PhysicalExtent()
	if caps.CurrentExtent != nil {
		extent = *caps.CurrentExtent
	}
	if !caps.Supports(extent) {
		return nil, errors.Wrapf(ErrUnsupportedDimensions, "%dx%d", extent.Width, extent.Height)
	}

	params := m.params
	params.Extent = extent
	params.ImageCount = m.chooseImageCount(caps)

	var oldSwapchain Swapchain
	if old != nil {
		oldSwapchain = old.Swapchain
	}

	swapchain, err := m.device.CreateSwapchain(params, oldSwapchain)
	if err != nil {
		if errors.Is(err, ErrUnsupportedDimensions) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create swapchain")
	}

	surface := &Surface{
		Swapchain:  swapchain,
		Generation: m.generation + 1,
	}
	for idx, image := range swapchain.Images() {
		fb, err := m.device.CreateFramebuffer(image, extent)
		if err != nil {
			surface.Release()
			return nil, errors.Wrapf(err, "create framebuffer %d", idx)
		}
		surface.Framebuffers = append(surface.Framebuffers, fb)
	}

	if err := state.Viewports.SetExtent(extent); err != nil {
		surface.Release()
		return nil, err
	}

	m.generation = surface.Generation
	state.SurfaceInvalid = false

	m.log.WithFields(log.Fields{
		"generation": surface.Generation,
		"width":      extent.Width,
		"height":     extent.Height,
		"images":     len(surface.Framebuffers),
	}).Debug("Surface rebuilt")

	return surface, nil
}

func (m *SurfaceManager) chooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount
	if m.imageCount > count {
		count = m.imageCount
	}
	if caps.MaxImageCount != 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}
