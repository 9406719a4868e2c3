// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"context"
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// TickResult tells what a single loop iteration did.
type TickResult int

// Possible tick results
const (
	// TickPresented means a frame was submitted and presented.
	TickPresented TickResult = iota
	// TickRebuildDeferred means the surface couldn't be rebuilt yet.
	TickRebuildDeferred
	// TickStale means the swapchain went out of date before rendering.
	TickStale
	// TickTimedOut means no image was acquired within the timeout.
	TickTimedOut
)

func (r TickResult) String() string {
	switch r {
	case TickPresented:
		return "presented"
	case TickRebuildDeferred:
		return "rebuild deferred"
	case TickStale:
		return "stale"
	case TickTimedOut:
		return "timed out"
	}
	return "unknown"
}

// Phase is the state of the frame loop.
type Phase int

// Frame loop phases
const (
	// Presenting means the surface is valid and frames are produced.
	Presenting Phase = iota
	// Rebuilding means the surface is invalid and no frame is produced.
	Rebuilding
	// Stopped means the loop has exited.
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Presenting:
		return "presenting"
	case Rebuilding:
		return "rebuilding"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// clearColor is opaque black
var clearColor = glm.Vec4{0, 0, 0, 1}

// FrameDriverConfiguration holds everything the frame loop drives.
type FrameDriverConfiguration struct {
	Device   Device
	Queue    Queue
	Events   EventSource
	Surfaces *SurfaceManager
	Pipeline Pipeline
	Geometry Geometry
	State    *RenderState

	AcquireTimeout time.Duration
	Time           TimeConfiguration
	Log            log.FieldLogger
}

// FrameDriver runs the per-frame loop: drain events, rebuild the surface
// when needed, acquire an image, record, submit and present.
// It must be used from a single goroutine.
type FrameDriver struct {
	device   Device
	queue    Queue
	events   EventSource
	surfaces *SurfaceManager
	pipeline Pipeline
	geometry Geometry
	state    *RenderState

	acquireTimeout time.Duration
	time           *Time
	log            log.FieldLogger

	surface *Surface
	future  Future
	frames  uint64
	stopped bool
}

// NewFrameDriver creates a frame loop. No GPU work is done until the first Tick.
func NewFrameDriver(cfg FrameDriverConfiguration) *FrameDriver {
	logger := cfg.Log
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &FrameDriver{
		device:         cfg.Device,
		queue:          cfg.Queue,
		events:         cfg.Events,
		surfaces:       cfg.Surfaces,
		pipeline:       cfg.Pipeline,
		geometry:       cfg.Geometry,
		state:          cfg.State,
		acquireTimeout: cfg.AcquireTimeout,
		time:           NewTime(cfg.Time),
		log:            logger,
		future:         cfg.Device.Now(),
	}
}

// State returns the render state owned by the driver.
func (d *FrameDriver) State() *RenderState {
	return d.state
}

// Surface returns the current surface, nil before the first successful build.
func (d *FrameDriver) Surface() *Surface {
	return d.surface
}

// Frames returns the number of frames submitted so far.
func (d *FrameDriver) Frames() uint64 {
	return d.frames
}

// Time returns the frame timing service.
func (d *FrameDriver) Time() *Time {
	return d.time
}

// Phase reports the current loop phase.
func (d *FrameDriver) Phase() Phase {
	switch {
	case d.stopped:
		return Stopped
	case d.state.SurfaceInvalid:
		return Rebuilding
	}
	return Presenting
}

// Run ticks until termination is requested either through the window
// or by cancelling ctx. Before returning it waits for the device to
// finish all submitted work and releases the surface.
func (d *FrameDriver) Run(ctx context.Context) error {
	defer d.shutdown()

	for {
		select {
		case <-ctx.Done():
			d.state.TerminationRequested = true
		default:
		}

		if _, err := d.Tick(); err != nil {
			return err
		}
		if d.state.TerminationRequested {
			d.stopped = true
			return nil
		}
	}
}

// Tick runs one iteration of the frame loop. Transient conditions are
// reported through the result, a non-nil error is fatal.
func (d *FrameDriver) Tick() (TickResult, error) {
	d.future.CleanupFinished()

	d.events.Poll(func(ev Event) {
		HandleEvent(ev, d.state)
	})

	if d.state.SurfaceInvalid {
		if err := d.rebuild(); err != nil {
			if errors.Is(err, ErrUnsupportedDimensions) {
				d.log.WithError(err).Debug("Surface rebuild deferred")
				return TickRebuildDeferred, nil
			}
			return 0, err
		}
	}

	acquired, err := d.surface.Swapchain.AcquireNextImage(d.acquireTimeout)
	switch {
	case errors.Is(err, ErrOutOfDate):
		d.state.SurfaceInvalid = true
		d.log.Debug("Swapchain out of date on acquire")
		return TickStale, nil
	case errors.Is(err, ErrAcquireTimeout):
		d.log.WithField("timeout", d.acquireTimeout).Debug("Swapchain image acquire timed out")
		return TickTimedOut, nil
	case err != nil:
		return 0, errors.Wrap(err, "acquire next image")
	}

	if acquired.Index < 0 || acquired.Index >= len(d.surface.Framebuffers) {
		return 0, errors.Errorf("acquired image index %d out of range [0, %d)", acquired.Index, len(d.surface.Framebuffers))
	}

	commands, err := d.device.Record(d.surface.Framebuffers[acquired.Index], DrawCommand{
		Pipeline:   d.pipeline,
		Geometry:   d.geometry,
		ClearColor: clearColor,
		Viewports:  d.state.Viewports,
		Offset:     d.state.DrawOffset,
	})
	if err != nil {
		return 0, errors.Wrap(err, "record frame")
	}

	future, err := d.queue.Submit(Submission{
		After:         d.future,
		ImageAcquired: acquired.Ready,
		Commands:      commands,
		Swapchain:     d.surface.Swapchain,
		ImageIndex:    acquired.Index,
	})
	if future != nil {
		d.future = future
	}
	switch {
	case errors.Is(err, ErrOutOfDate):
		d.state.SurfaceInvalid = true
		d.log.Debug("Swapchain out of date on present")
	case err != nil:
		return 0, errors.Wrap(err, "submit frame")
	}

	d.frames++
	if fps, ok := d.time.Frame(); ok {
		d.log.WithFields(log.Fields{
			"fps":    int(fps + 0.5),
			"frames": d.frames,
		}).Info("Frame rate")
	}

	return TickPresented, nil
}

func (d *FrameDriver) rebuild() error {
	surface, err := d.surfaces.Rebuild(d.state, d.surface)
	if err != nil {
		return err
	}
	if d.surface != nil {
		// The previous frame may still render into the old images.
		d.future.Retain(d.surface)
	}
	d.surface = surface
	return nil
}

func (d *FrameDriver) shutdown() {
	d.stopped = true
	if err := d.device.WaitIdle(); err != nil {
		d.log.WithError(err).Error("Waiting for device idle failed")
	}
	d.future.CleanupFinished()
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
}
