// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// RenderState is the mutable state shared by the event translator
// and the frame loop. Exactly one exists, owned by the FrameDriver.
type RenderState struct {
	// TerminationRequested makes the loop stop after the current frame.
	TerminationRequested bool

	// SurfaceInvalid forces a swapchain rebuild before the next frame.
	SurfaceInvalid bool

	// ScaleFactor is the ratio of physical to logical pixels.
	ScaleFactor float64

	// WindowSize is the logical window size.
	WindowSize mgl64.Vec2

	// DrawOffset is the pointer position in normalized device coordinates.
	DrawOffset glm.Vec2

	Viewports ViewportState
}

// NewRenderState creates the state for a window of the given logical
// size. The surface starts invalid so the first frame builds it.
func NewRenderState(windowSize mgl64.Vec2, scaleFactor float64) *RenderState {
	s := &RenderState{
		SurfaceInvalid: true,
		ScaleFactor:    scaleFactor,
		WindowSize:     windowSize,
	}
	extent := s.PhysicalExtent()
	s.Viewports = ViewportState{
		Viewports: []Viewport{{
			Dimensions: glm.Vec2{float32(extent.Width), float32(extent.Height)},
			DepthRange: [2]float32{0, 1},
		}},
	}
	return s
}

// PhysicalExtent is the window size in physical pixels.
func (s *RenderState) PhysicalExtent() Extent2D {
	physical := s.WindowSize.Mul(s.ScaleFactor)
	if physical.X() <= 0 || physical.Y() <= 0 {
		return Extent2D{}
	}
	return Extent2D{
		Width:  uint32(physical.X()),
		Height: uint32(physical.Y()),
	}
}

// ViewportState is the dynamic viewport and scissor state of the pipeline.
type ViewportState struct {
	Viewports []Viewport

	// Scissors is nil when the scissor covers the whole framebuffer.
	Scissors []Scissor
}

// SetExtent resizes the single viewport to the given extent.
func (v *ViewportState) SetExtent(extent Extent2D) error {
	if len(v.Viewports) != 1 {
		return errors.Wrapf(ErrViewportCount, "have %d, want 1", len(v.Viewports))
	}
	v.Viewports[0].Dimensions = glm.Vec2{float32(extent.Width), float32(extent.Height)}
	return nil
}

// Viewport maps normalized device coordinates to framebuffer pixels.
type Viewport struct {
	Origin     glm.Vec2
	Dimensions glm.Vec2
	DepthRange [2]float32
}

// Scissor limits rasterization to a rectangle.
type Scissor struct {
	Offset [2]int32
	Extent Extent2D
}
