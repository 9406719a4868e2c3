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
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderState(t *testing.T) {
	s := core.NewRenderState(mgl64.Vec2{612, 512}, 2)

	assert.True(t, s.SurfaceInvalid)
	assert.False(t, s.TerminationRequested)
	assert.Equal(t, core.Extent2D{Width: 1224, Height: 1024}, s.PhysicalExtent())
	require.Len(t, s.Viewports.Viewports, 1)
	assert.Equal(t, glm.Vec2{1224, 1024}, s.Viewports.Viewports[0].Dimensions)
	assert.Equal(t, [2]float32{0, 1}, s.Viewports.Viewports[0].DepthRange)
	assert.Nil(t, s.Viewports.Scissors)
}

func TestPhysicalExtentEmpty(t *testing.T) {
	s := core.NewRenderState(mgl64.Vec2{0, 100}, 1)
	assert.True(t, s.PhysicalExtent().Empty())

	s.WindowSize = mgl64.Vec2{-5, 100}
	assert.Equal(t, core.Extent2D{}, s.PhysicalExtent())
}

func TestViewportSetExtent(t *testing.T) {
	v := core.ViewportState{Viewports: []core.Viewport{{}}}
	require.NoError(t, v.SetExtent(core.Extent2D{Width: 10, Height: 20}))
	assert.Equal(t, glm.Vec2{10, 20}, v.Viewports[0].Dimensions)

	none := core.ViewportState{}
	assert.True(t, errors.Is(none.SetExtent(core.Extent2D{Width: 1, Height: 1}), core.ErrViewportCount))

	two := core.ViewportState{Viewports: make([]core.Viewport, 2)}
	assert.True(t, errors.Is(two.SetExtent(core.Extent2D{Width: 1, Height: 1}), core.ErrViewportCount))
}

func TestSurfaceCapabilitiesSupports(t *testing.T) {
	caps := defaultCaps()
	assert.True(t, caps.Supports(core.Extent2D{Width: 300, Height: 300}))
	assert.False(t, caps.Supports(core.Extent2D{Width: 0, Height: 300}))
	assert.False(t, caps.Supports(core.Extent2D{Width: 5000, Height: 300}))
	assert.False(t, caps.Supports(core.Extent2D{Width: 300, Height: 5000}))

	caps.MinImageExtent = core.Extent2D{Width: 100, Height: 100}
	assert.False(t, caps.Supports(core.Extent2D{Width: 50, Height: 300}))

	caps.MaxImageExtent = core.Extent2D{}
	assert.True(t, caps.Supports(core.Extent2D{Width: 9000, Height: 9000}))
}
