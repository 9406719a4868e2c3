// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/devblok/camvis/core"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name  string
		event core.Event
		check func(t *testing.T, s *core.RenderState)
	}{
		{
			name:  "close requested",
			event: core.CloseRequested{},
			check: func(t *testing.T, s *core.RenderState) {
				assert.True(t, s.TerminationRequested)
			},
		},
		{
			name:  "scale factor changed",
			event: core.ScaleFactorChanged{Factor: 2},
			check: func(t *testing.T, s *core.RenderState) {
				assert.Equal(t, 2.0, s.ScaleFactor)
				assert.False(t, s.SurfaceInvalid)
			},
		},
		{
			name:  "resized",
			event: core.Resized{Width: 300, Height: 200},
			check: func(t *testing.T, s *core.RenderState) {
				assert.True(t, s.SurfaceInvalid)
				assert.Equal(t, mgl64.Vec2{300, 200}, s.WindowSize)
			},
		},
		{
			name:  "pointer at origin",
			event: core.PointerMoved{X: 0, Y: 0},
			check: func(t *testing.T, s *core.RenderState) {
				assert.Equal(t, glm.Vec2{-1, -1}, s.DrawOffset)
			},
		},
		{
			name:  "pointer at far corner",
			event: core.PointerMoved{X: 400, Y: 100},
			check: func(t *testing.T, s *core.RenderState) {
				assert.Equal(t, glm.Vec2{1, 1}, s.DrawOffset)
			},
		},
		{
			name:  "unknown event",
			event: struct{ Key string }{"escape"},
			check: func(t *testing.T, s *core.RenderState) {
				assert.Equal(t, baseState(), s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseState()
			core.HandleEvent(tt.event, s)
			tt.check(t, s)
		})
	}
}

func baseState() *core.RenderState {
	s := core.NewRenderState(mgl64.Vec2{400, 100}, 1)
	s.SurfaceInvalid = false
	return s
}

func TestPointerOffsetFormula(t *testing.T) {
	sizes := []mgl64.Vec2{{612, 512}, {300, 300}, {1, 1}, {1920, 1080}}
	for _, size := range sizes {
		s := core.NewRenderState(size, 1)
		for _, p := range []mgl64.Vec2{{0, 0}, {10, 20}, {size.X(), size.Y()}, {size.X() / 3, size.Y() / 7}} {
			core.HandleEvent(core.PointerMoved{X: p.X(), Y: p.Y()}, s)
			assert.InDelta(t, 2*p.X()/size.X()-1, float64(s.DrawOffset.X()), 1e-6)
			assert.InDelta(t, 2*p.Y()/size.Y()-1, float64(s.DrawOffset.Y()), 1e-6)
		}

		core.HandleEvent(core.PointerMoved{X: size.X() / 2, Y: size.Y() / 2}, s)
		assert.Equal(t, glm.Vec2{0, 0}, s.DrawOffset, "center of %v", size)
	}
}

func TestPointerMovedZeroWindow(t *testing.T) {
	s := core.NewRenderState(mgl64.Vec2{100, 100}, 1)
	core.HandleEvent(core.PointerMoved{X: 75, Y: 75}, s)
	core.HandleEvent(core.Resized{Width: 0, Height: 0}, s)
	core.HandleEvent(core.PointerMoved{X: 10, Y: 10}, s)
	assert.Equal(t, glm.Vec2{0.5, 0.5}, s.DrawOffset)
}

func TestHandleEventOrdering(t *testing.T) {
	s := core.NewRenderState(mgl64.Vec2{612, 512}, 1)
	for _, ev := range []core.Event{
		core.Resized{Width: 300, Height: 300},
		core.PointerMoved{X: 150, Y: 0},
		core.Resized{Width: 600, Height: 600},
	} {
		core.HandleEvent(ev, s)
	}
	assert.Equal(t, glm.Vec2{0, -1}, s.DrawOffset)
	assert.Equal(t, mgl64.Vec2{600, 600}, s.WindowSize)
}

func BenchmarkHandleEvent(b *testing.B) {
	s := core.NewRenderState(mgl64.Vec2{612, 512}, 1)
	ev := core.PointerMoved{X: 100, Y: 200}
	for idx := 0; idx < b.N; idx++ {
		core.HandleEvent(ev, s)
	}
}
