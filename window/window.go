// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window provides the SDL window the crosshair is drawn into
// and translates its events for the frame loop.
package window

import (
	"unsafe"

	"github.com/devblok/camvis/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// peepBatch is the number of events retrieved per PeepEvents call
const peepBatch = 32

// New opens a resizable, Vulkan capable window. SDL video
// must be initialised and the Vulkan library loaded.
func New(cfg core.WindowConfiguration, logger log.FieldLogger) (*Window, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width),
		int32(cfg.Height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}

	w := &Window{
		window: window,
		events: make([]sdl.Event, peepBatch),
		log:    logger,
	}
	w.translator = newTranslator(w.measure)
	return w, nil
}

// Window wraps an SDL window and implements core.EventSource
type Window struct {
	window     *sdl.Window
	events     []sdl.Event
	translator *translator
	log        log.FieldLogger
}

// Size returns the logical window size.
func (w *Window) Size() mgl64.Vec2 {
	width, height := w.window.GetSize()
	return mgl64.Vec2{float64(width), float64(height)}
}

// ScaleFactor returns the ratio of physical pixels to logical ones.
func (w *Window) ScaleFactor() float64 {
	_, scale := w.measure()
	return scale
}

func (w *Window) measure() (mgl64.Vec2, float64) {
	size := w.Size()
	drawable, _ := w.window.VulkanGetDrawableSize()
	return size, scaleFactor(size.X(), float64(drawable))
}

// VulkanInstanceExtensions returns the instance extensions needed
// to create a surface for the window.
func (w *Window) VulkanInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// CreateSurface creates a Vulkan surface for the window.
func (w *Window) CreateSurface(instance interface{}) (unsafe.Pointer, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return surface, nil
}

// Poll implements core.EventSource. Only events queued before the
// call are delivered.
func (w *Window) Poll(handle func(core.Event)) {
	sdl.PumpEvents()
	for {
		n, err := sdl.PeepEvents(w.events, sdl.GETEVENT, sdl.FIRSTEVENT, sdl.LASTEVENT)
		if err != nil {
			w.log.WithError(err).Warn("Retrieving window events failed")
			return
		}
		for _, ev := range w.events[:n] {
			for _, translated := range w.translator.translate(ev) {
				handle(translated)
			}
		}
		if n < len(w.events) {
			return
		}
	}
}

// Destroy closes the window.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
}

func scaleFactor(logical, physical float64) float64 {
	if logical <= 0 || physical <= 0 {
		return 1
	}
	return physical / logical
}
