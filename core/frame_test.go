// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/devblok/camvis/core"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(t *testing.T, h *harness, want core.TickResult) {
	t.Helper()
	got, err := h.driver.Tick()
	require.NoError(t, err)
	require.Equal(t, want, got, "tick result")
}

func TestFirstTickBuildsSurfaceAndPresents(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	assert.Equal(t, core.Rebuilding, h.driver.Phase())
	assert.Nil(t, h.driver.Surface())

	tick(t, h, core.TickPresented)

	assert.Equal(t, core.Presenting, h.driver.Phase())
	require.Len(t, h.device.swapchains, 1)
	assert.Nil(t, h.device.swapchains[0].old)
	require.Len(t, h.queue.submissions, 1)
	require.Len(t, h.device.recorded, 1)

	cmd := h.device.recorded[0]
	assert.Equal(t, "pipeline", cmd.Pipeline)
	assert.Equal(t, "crosshair", cmd.Geometry)
	assert.Equal(t, glm.Vec4{0, 0, 0, 1}, cmd.ClearColor)

	sub := h.queue.submissions[0]
	assert.Equal(t, "acquired", sub.ImageAcquired)
	assert.Equal(t, 0, sub.ImageIndex)
	assert.Equal(t, h.device.swapchains[0], sub.Swapchain)
	assert.Equal(t, uint64(1), h.driver.Frames())
}

func TestImagesCycleAndFuturesChain(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})

	for idx := 0; idx < 3; idx++ {
		tick(t, h, core.TickPresented)
	}

	require.Len(t, h.queue.submissions, 3)
	assert.Equal(t, 0, h.queue.submissions[0].ImageIndex)
	assert.Equal(t, 1, h.queue.submissions[1].ImageIndex)
	assert.Equal(t, 0, h.queue.submissions[2].ImageIndex)
	assert.NotSame(t, h.queue.submissions[0].After, h.queue.submissions[1].After)
	assert.Len(t, h.device.swapchains, 1, "a valid surface is not rebuilt")
}

func TestPointerFollowAcrossResize(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})

	h.events.push(core.PointerMoved{X: 306, Y: 256})
	tick(t, h, core.TickPresented)
	assert.Equal(t, glm.Vec2{0, 0}, h.device.recorded[0].Offset)
	assert.Equal(t, glm.Vec2{612, 512}, h.device.recorded[0].Viewports.Viewports[0].Dimensions)

	// The window is resized while the surface reports no usable extent.
	h.device.caps.CurrentExtent = extent(0, 0)
	h.events.push(core.Resized{Width: 300, Height: 300}, core.PointerMoved{X: 0, Y: 0})
	tick(t, h, core.TickRebuildDeferred)

	assert.True(t, h.state.SurfaceInvalid)
	assert.Equal(t, core.Rebuilding, h.driver.Phase())
	assert.Equal(t, glm.Vec2{-1, -1}, h.state.DrawOffset)
	assert.Len(t, h.queue.submissions, 1)
	assert.Len(t, h.device.swapchains, 1)

	tick(t, h, core.TickRebuildDeferred)
	assert.Len(t, h.queue.submissions, 1)

	h.device.caps.CurrentExtent = extent(300, 300)
	tick(t, h, core.TickPresented)

	assert.False(t, h.state.SurfaceInvalid)
	require.Len(t, h.device.swapchains, 2)
	assert.Equal(t, h.device.swapchains[0], h.device.swapchains[1].old)
	assert.Equal(t, core.Extent2D{Width: 300, Height: 300}, h.driver.Surface().Extent())
	assert.Equal(t, uint64(2), h.driver.Surface().Generation)

	require.Len(t, h.device.recorded, 2)
	assert.Equal(t, glm.Vec2{-1, -1}, h.device.recorded[1].Offset)
	assert.Equal(t, glm.Vec2{300, 300}, h.device.recorded[1].Viewports.Viewports[0].Dimensions)
}

func TestOldSurfaceReleasedAfterGPUFinishes(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	tick(t, h, core.TickPresented)

	h.events.push(core.Resized{Width: 300, Height: 300})
	tick(t, h, core.TickPresented)

	old := h.device.swapchains[0]
	assert.False(t, old.released, "GPU still busy with the old images")
	for _, fb := range h.device.framebuffers[:2] {
		assert.False(t, fb.released)
	}

	// The next cleanup still sees the GPU busy.
	tick(t, h, core.TickPresented)
	assert.False(t, old.released)

	require.NoError(t, h.device.WaitIdle())
	tick(t, h, core.TickPresented)
	assert.True(t, old.released)
	for _, fb := range h.device.framebuffers[:2] {
		assert.True(t, fb.released)
	}
	assert.False(t, h.device.swapchains[1].released)
}

func TestStaleOnAcquire(t *testing.T) {
	device := newFakeDevice()
	device.acquireErrs = []error{errors.Wrap(core.ErrOutOfDate, "acquire")}
	h := newHarness(t, device, mgl64.Vec2{612, 512})

	tick(t, h, core.TickStale)
	assert.True(t, h.state.SurfaceInvalid)
	assert.Empty(t, h.queue.submissions)
	assert.Empty(t, h.device.recorded)

	tick(t, h, core.TickPresented)
	require.Len(t, h.device.swapchains, 2)
	assert.Equal(t, h.device.swapchains[0], h.device.swapchains[1].old)
	assert.True(t, h.device.swapchains[0].released, "idle GPU releases the stale surface immediately")
	assert.Len(t, h.queue.submissions, 1)
}

func TestStaleOnPresent(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	h.queue.presentErrs = []error{core.ErrOutOfDate}

	tick(t, h, core.TickPresented)
	assert.True(t, h.state.SurfaceInvalid)
	assert.Equal(t, uint64(1), h.driver.Frames())

	tick(t, h, core.TickPresented)
	assert.False(t, h.state.SurfaceInvalid)
	assert.Len(t, h.device.swapchains, 2)
	assert.Len(t, h.queue.submissions, 2)
}

func TestAcquireTimeout(t *testing.T) {
	device := newFakeDevice()
	device.acquireErrs = []error{core.ErrAcquireTimeout}
	h := newHarness(t, device, mgl64.Vec2{612, 512})

	tick(t, h, core.TickTimedOut)
	assert.False(t, h.state.SurfaceInvalid)
	assert.Empty(t, h.queue.submissions)

	tick(t, h, core.TickPresented)
	assert.Len(t, h.device.swapchains, 1)
}

func TestEmptyDrainIsNoop(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	tick(t, h, core.TickPresented)

	before := *h.state
	tick(t, h, core.TickPresented)
	tick(t, h, core.TickPresented)

	assert.Equal(t, before.DrawOffset, h.state.DrawOffset)
	assert.Equal(t, before.WindowSize, h.state.WindowSize)
	assert.Equal(t, 3, h.events.polls)
	assert.Len(t, h.device.swapchains, 1)
}

func TestRunStopsOnCloseRequested(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	h.events.push(core.CloseRequested{})

	require.NoError(t, h.driver.Run(context.Background()))

	assert.Equal(t, core.Stopped, h.driver.Phase())
	assert.LessOrEqual(t, len(h.queue.submissions), 1)
	assert.Equal(t, 1, h.device.idleWaits)
	assert.Nil(t, h.driver.Surface())
	assert.True(t, h.device.swapchains[0].released)
}

func TestRunStopsWhileRebuildDeferred(t *testing.T) {
	device := newFakeDevice()
	device.caps.CurrentExtent = extent(0, 0)
	h := newHarness(t, device, mgl64.Vec2{612, 512})
	h.events.push()
	h.events.push(core.CloseRequested{})

	require.NoError(t, h.driver.Run(context.Background()))

	assert.Equal(t, 2, h.events.polls)
	assert.Empty(t, h.queue.submissions)
	assert.Empty(t, h.device.swapchains)
	assert.Equal(t, 1, h.device.idleWaits)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.driver.Run(ctx))

	assert.True(t, h.state.TerminationRequested)
	assert.Len(t, h.queue.submissions, 1)
	assert.Equal(t, 1, h.device.idleWaits)
	assert.Equal(t, core.Stopped, h.driver.Phase())
}

func TestRunReturnsFatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"swapchain creation", func(h *harness) { h.device.createErrs = []error{errors.New("device lost")} }},
		{"record", func(h *harness) { h.device.recordErr = errors.New("out of memory") }},
		{"submit", func(h *harness) { h.queue.submitErr = errors.New("device lost") }},
		{"acquire", func(h *harness) { h.device.acquireErrs = []error{errors.New("surface lost")} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
			tt.setup(h)

			err := h.driver.Run(context.Background())
			require.Error(t, err)
			assert.False(t, core.IsTransient(err))
			assert.Equal(t, core.Stopped, h.driver.Phase())
			assert.Equal(t, 1, h.device.idleWaits)
		})
	}
}

func TestFrameRateReport(t *testing.T) {
	h := newHarness(t, newFakeDevice(), mgl64.Vec2{612, 512})
	assert.Equal(t, time.Duration(0), h.driver.Time().Interval())
	tick(t, h, core.TickPresented)
	_, ok := h.driver.Time().Frame()
	assert.False(t, ok, "reporting disabled without an interval")
}

func TestTickResultString(t *testing.T) {
	assert.Equal(t, "presented", core.TickPresented.String())
	assert.Equal(t, "rebuild deferred", core.TickRebuildDeferred.String())
	assert.Equal(t, "stale", core.TickStale.String())
	assert.Equal(t, "timed out", core.TickTimedOut.String())
	assert.Equal(t, "stopped", core.Stopped.String())
}
