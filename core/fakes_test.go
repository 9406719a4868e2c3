// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"io/ioutil"
	"time"

	"github.com/devblok/camvis/core"
	"github.com/go-gl/mathgl/mgl64"
	log "github.com/sirupsen/logrus"
)

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(ioutil.Discard)
	return l
}

func extent(w, h uint32) *core.Extent2D {
	return &core.Extent2D{Width: w, Height: h}
}

func defaultCaps() core.SurfaceCapabilities {
	return core.SurfaceCapabilities{
		MinImageExtent: core.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core.Extent2D{Width: 4096, Height: 4096},
		MinImageCount:  2,
		MaxImageCount:  3,
		SupportedUsage: 0x10,
		SupportedAlpha: []core.CompositeAlpha{1, 2},
		SupportedFormats: []core.SurfaceFormat{
			{Format: 44, ColorSpace: 0},
			{Format: 50, ColorSpace: 0},
		},
		PresentModes: []core.PresentMode{
			core.PresentModeFifo,
			core.PresentModeMailbox,
		},
	}
}

// gpu tracks whether submitted work has finished executing.
type gpu struct {
	busy bool
}

type fakeFramebuffer struct {
	image    int
	released bool
}

func (f *fakeFramebuffer) Release() { f.released = true }

type fakeSwapchain struct {
	params      core.SwapchainParams
	old         core.Swapchain
	images      []core.Image
	acquireErrs []error
	next        int
	released    bool
}

func (s *fakeSwapchain) Release() { s.released = true }

func (s *fakeSwapchain) Images() []core.Image { return s.images }

func (s *fakeSwapchain) Extent() core.Extent2D { return s.params.Extent }

func (s *fakeSwapchain) AcquireNextImage(timeout time.Duration) (core.AcquiredImage, error) {
	if len(s.acquireErrs) > 0 {
		err := s.acquireErrs[0]
		s.acquireErrs = s.acquireErrs[1:]
		if err != nil {
			return core.AcquiredImage{}, err
		}
	}
	idx := s.next
	s.next = (s.next + 1) % len(s.images)
	return core.AcquiredImage{Index: idx, Ready: "acquired"}, nil
}

type fakeFuture struct {
	gpu      *gpu
	retained []core.Releasable
}

func (f *fakeFuture) CleanupFinished() {
	if f.gpu.busy {
		return
	}
	for _, r := range f.retained {
		r.Release()
	}
	f.retained = nil
}

func (f *fakeFuture) Retain(r core.Releasable) {
	if !f.gpu.busy {
		r.Release()
		return
	}
	f.retained = append(f.retained, r)
}

type fakeDevice struct {
	gpu *gpu

	caps       core.SurfaceCapabilities
	capsErr    error
	createErrs []error
	fbErr      error
	recordErr  error

	swapchains   []*fakeSwapchain
	framebuffers []*fakeFramebuffer
	recorded     []core.DrawCommand
	idleWaits    int

	// acquireErrs is handed to the next created swapchain.
	acquireErrs []error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		gpu:  &gpu{},
		caps: defaultCaps(),
	}
}

func (d *fakeDevice) SurfaceCapabilities() (core.SurfaceCapabilities, error) {
	return d.caps, d.capsErr
}

func (d *fakeDevice) CreateSwapchain(params core.SwapchainParams, old core.Swapchain) (core.Swapchain, error) {
	if len(d.createErrs) > 0 {
		err := d.createErrs[0]
		d.createErrs = d.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	sc := &fakeSwapchain{
		params:      params,
		old:         old,
		acquireErrs: d.acquireErrs,
	}
	d.acquireErrs = nil
	for idx := 0; idx < int(params.ImageCount); idx++ {
		sc.images = append(sc.images, idx)
	}
	d.swapchains = append(d.swapchains, sc)
	return sc, nil
}

func (d *fakeDevice) CreateFramebuffer(image core.Image, extent core.Extent2D) (core.Framebuffer, error) {
	if d.fbErr != nil {
		return nil, d.fbErr
	}
	fb := &fakeFramebuffer{image: image.(int)}
	d.framebuffers = append(d.framebuffers, fb)
	return fb, nil
}

func (d *fakeDevice) Record(target core.Framebuffer, cmd core.DrawCommand) (core.CommandBuffer, error) {
	if d.recordErr != nil {
		return nil, d.recordErr
	}
	d.recorded = append(d.recorded, cmd)
	return len(d.recorded), nil
}

func (d *fakeDevice) Now() core.Future {
	return &fakeFuture{gpu: d.gpu}
}

func (d *fakeDevice) WaitIdle() error {
	d.idleWaits++
	d.gpu.busy = false
	return nil
}

type fakeQueue struct {
	gpu         *gpu
	submissions []core.Submission
	presentErrs []error
	submitErr   error
}

func (q *fakeQueue) Submit(s core.Submission) (core.Future, error) {
	if q.submitErr != nil {
		return nil, q.submitErr
	}
	q.submissions = append(q.submissions, s)
	q.gpu.busy = true

	after := s.After.(*fakeFuture)
	next := &fakeFuture{gpu: q.gpu, retained: after.retained}
	after.retained = nil

	if len(q.presentErrs) > 0 {
		err := q.presentErrs[0]
		q.presentErrs = q.presentErrs[1:]
		return next, err
	}
	return next, nil
}

type fakeEvents struct {
	batches [][]core.Event
	polls   int
}

func (e *fakeEvents) Poll(handle func(core.Event)) {
	e.polls++
	if len(e.batches) == 0 {
		return
	}
	batch := e.batches[0]
	e.batches = e.batches[1:]
	for _, ev := range batch {
		handle(ev)
	}
}

func (e *fakeEvents) push(events ...core.Event) {
	e.batches = append(e.batches, events)
}

type harness struct {
	device *fakeDevice
	queue  *fakeQueue
	events *fakeEvents
	state  *core.RenderState
	driver *core.FrameDriver
}

func newHarness(t interface{ Fatal(...interface{}) }, device *fakeDevice, windowSize mgl64.Vec2) *harness {
	surfaces, err := core.NewSurfaceManager(device, core.RendererConfiguration{
		PresentMode: core.PresentModeFifo,
	}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		device: device,
		queue:  &fakeQueue{gpu: device.gpu},
		events: &fakeEvents{},
		state:  core.NewRenderState(windowSize, 1),
	}
	h.driver = core.NewFrameDriver(core.FrameDriverConfiguration{
		Device:   h.device,
		Queue:    h.queue,
		Events:   h.events,
		Surfaces: surfaces,
		Pipeline: "pipeline",
		Geometry: "crosshair",
		State:    h.state,
		Log:      quietLogger(),
	})
	return h
}
