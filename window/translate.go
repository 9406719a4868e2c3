// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"github.com/devblok/camvis/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/veandco/go-sdl2/sdl"
)

// translator maps SDL events to core events. It remembers the last
// reported scale factor so a change is reported once.
type translator struct {
	measure func() (mgl64.Vec2, float64)
	scale   float64
}

func newTranslator(measure func() (mgl64.Vec2, float64)) *translator {
	t := &translator{measure: measure}
	_, t.scale = measure()
	return t
}

// translate returns the core events for ev. Events without a
// core counterpart are passed through unchanged.
func (t *translator) translate(ev sdl.Event) []core.Event {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		return []core.Event{core.CloseRequested{}}
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
			return []core.Event{core.CloseRequested{}}
		}
	case *sdl.MouseMotionEvent:
		return []core.Event{core.PointerMoved{X: float64(e.X), Y: float64(e.Y)}}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_CLOSE:
			return []core.Event{core.CloseRequested{}}
		case sdl.WINDOWEVENT_SIZE_CHANGED:
			return t.resized(float64(e.Data1), float64(e.Data2))
		}
	}
	return []core.Event{ev}
}

func (t *translator) resized(width, height float64) []core.Event {
	var out []core.Event
	if _, scale := t.measure(); scale != t.scale {
		t.scale = scale
		out = append(out, core.ScaleFactorChanged{Factor: scale})
	}
	return append(out, core.Resized{Width: width, Height: height})
}
