// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import glm "github.com/go-gl/mathgl/mgl32"

// Event is a window system event. Types other than the ones
// declared in this file are ignored by HandleEvent.
type Event interface{}

// CloseRequested is sent when the user asks to close the window.
type CloseRequested struct{}

// ScaleFactorChanged is sent when the window moves to a display
// with a different pixel density.
type ScaleFactorChanged struct {
	Factor float64
}

// Resized carries the new logical window size.
type Resized struct {
	Width  float64
	Height float64
}

// PointerMoved carries the pointer position in logical window coordinates.
type PointerMoved struct {
	X float64
	Y float64
}

// HandleEvent applies a single event to the render state.
func HandleEvent(ev Event, state *RenderState) {
	switch e := ev.(type) {
	case CloseRequested:
		state.TerminationRequested = true
	case ScaleFactorChanged:
		state.ScaleFactor = e.Factor
	case Resized:
		state.SurfaceInvalid = true
		state.WindowSize[0] = e.Width
		state.WindowSize[1] = e.Height
	case PointerMoved:
		w, h := state.WindowSize.Elem()
		if w == 0 || h == 0 {
			return
		}
		state.DrawOffset = glm.Vec2{
			float32(2*e.X/w - 1),
			float32(2*e.Y/h - 1),
		}
	}
}
