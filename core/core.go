// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core implements the frame presentation state machine:
// render state, event translation, swapchain lifecycle and the
// per-frame submission loop. Graphics and windowing backends are
// consumed through the interfaces declared here.
package core

import (
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Releasable defines any GPU-occupying item that can be freed.
type Releasable interface {

	// Release frees resources held by the implementing structure.
	Release()
}

// Device describes the logical rendering device the frame loop works against.
type Device interface {

	// SurfaceCapabilities queries the current capabilities of the
	// presentation target bound to the device.
	SurfaceCapabilities() (SurfaceCapabilities, error)

	// CreateSwapchain creates a new swapchain. The old one, if not nil,
	// is retired but stays valid until released.
	// Returns ErrUnsupportedDimensions if the extent can't be used right now.
	CreateSwapchain(params SwapchainParams, old Swapchain) (Swapchain, error)

	// CreateFramebuffer binds a single swapchain image to the fixed render pass.
	CreateFramebuffer(image Image, extent Extent2D) (Framebuffer, error)

	// Record records one draw into a new one-time command buffer
	// targeting the given framebuffer.
	Record(target Framebuffer, cmd DrawCommand) (CommandBuffer, error)

	// Now returns a future that tracks no work.
	Now() Future

	// WaitIdle blocks until all work submitted to the device has completed.
	WaitIdle() error
}

// Queue submits recorded work and presents swapchain images.
type Queue interface {

	// Submit waits (GPU side) for After and ImageAcquired, executes the
	// command buffer, presents the image and signals a fence. The returned
	// future replaces After, which must not be used afterwards.
	// If presenting reports a stale swapchain, both a valid future and
	// ErrOutOfDate are returned.
	Submit(s Submission) (Future, error)
}

// Swapchain is a set of presentable images cycled by the presentation engine.
type Swapchain interface {
	Releasable

	// Images returns the presentable images in index order.
	Images() []Image

	// Extent returns the size of the images in physical pixels.
	Extent() Extent2D

	// AcquireNextImage blocks until an image is available for rendering.
	// A zero timeout waits forever. Returns ErrOutOfDate when the
	// swapchain no longer matches the surface.
	AcquireNextImage(timeout time.Duration) (AcquiredImage, error)
}

// Future represents GPU work submitted so far.
type Future interface {

	// CleanupFinished reclaims resources of work that already completed.
	// Never blocks.
	CleanupFinished()

	// Retain keeps r alive until all work currently tracked by the
	// future has completed, then releases it.
	Retain(r Releasable)
}

// EventSource is a window system event queue.
type EventSource interface {

	// Poll calls handle for every event already queued, in order,
	// and returns without waiting for new ones.
	Poll(handle func(Event))
}

// Image is an opaque presentable image.
type Image interface{}

// Signal is an opaque, backend specific GPU-side synchronization primitive.
type Signal interface{}

// Framebuffer binds one image to the render pass.
type Framebuffer interface {
	Releasable
}

// CommandBuffer is recorded GPU work ready for submission.
type CommandBuffer interface{}

// Pipeline is the fixed graphics pipeline used for drawing.
type Pipeline interface{}

// Geometry is a static vertex buffer.
type Geometry interface{}

// AcquiredImage identifies an acquired swapchain image.
type AcquiredImage struct {
	Index int

	// Ready is signaled once the image can be written to.
	Ready Signal
}

// Submission describes the GPU work of one frame.
type Submission struct {
	After         Future
	ImageAcquired Signal
	Commands      CommandBuffer
	Swapchain     Swapchain
	ImageIndex    int
}

// DrawCommand is everything needed to record one frame.
type DrawCommand struct {
	Pipeline   Pipeline
	Geometry   Geometry
	ClearColor glm.Vec4
	Viewports  ViewportState
	Offset     glm.Vec2
}

// Extent2D is a size in physical pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Empty reports whether the extent has no area.
func (e Extent2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// Format is a backend specific pixel format identifier.
type Format int32

// ColorSpace is a backend specific color space identifier.
type ColorSpace int32

// ImageUsage is a backend specific image usage bitmask.
type ImageUsage uint32

// CompositeAlpha is a backend specific compositing mode.
type CompositeAlpha uint32

// SurfaceFormat pairs a format with its color space.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SurfaceCapabilities describes what the presentation target supports.
type SurfaceCapabilities struct {
	// CurrentExtent is nil when the surface size is determined
	// by the swapchain extent.
	CurrentExtent  *Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D
	MinImageCount  uint32
	// MaxImageCount is 0 when there's no limit.
	MaxImageCount  uint32
	SupportedUsage ImageUsage
	// SupportedAlpha is ordered by preference.
	SupportedAlpha   []CompositeAlpha
	SupportedFormats []SurfaceFormat
	PresentModes     []PresentMode
}

// Supports reports whether a swapchain of the given extent can be created.
func (c SurfaceCapabilities) Supports(e Extent2D) bool {
	if e.Empty() {
		return false
	}
	if e.Width < c.MinImageExtent.Width || e.Height < c.MinImageExtent.Height {
		return false
	}
	if c.MaxImageExtent.Width != 0 && e.Width > c.MaxImageExtent.Width {
		return false
	}
	if c.MaxImageExtent.Height != 0 && e.Height > c.MaxImageExtent.Height {
		return false
	}
	return true
}

// SupportsPresentMode reports whether mode is available.
func (c SurfaceCapabilities) SupportsPresentMode(mode PresentMode) bool {
	for _, m := range c.PresentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// SwapchainParams describes a swapchain. Everything except
// Extent and ImageCount is fixed at startup.
type SwapchainParams struct {
	Format      SurfaceFormat
	Extent      Extent2D
	ImageCount  uint32
	Usage       ImageUsage
	Alpha       CompositeAlpha
	PresentMode PresentMode
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)
