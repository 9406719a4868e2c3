// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "github.com/pkg/errors"

// package errors
var (
	// ErrOutOfDate means the swapchain no longer matches the surface
	// and has to be rebuilt. Reported by acquire and present.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrUnsupportedDimensions means a swapchain can't be created with the
	// requested extent right now, usually while a window is being resized
	// or minimized.
	ErrUnsupportedDimensions = errors.New("unsupported swapchain dimensions")

	// ErrAcquireTimeout means no image became available within the
	// configured acquire timeout.
	ErrAcquireTimeout = errors.New("swapchain image acquire timed out")

	// ErrViewportCount means the dynamic state doesn't hold exactly one viewport.
	ErrViewportCount = errors.New("unexpected viewport count")

	// ErrUnknownPresentMode is wrapped by ConfigurationError for bad -mode values.
	ErrUnknownPresentMode = errors.New("unknown present mode")

	// ErrPresentModeUnsupported means the surface can't present in the configured mode.
	ErrPresentModeUnsupported = errors.New("present mode not supported by surface")

	// ErrNoSurfaceFormat means the surface reported no usable formats.
	ErrNoSurfaceFormat = errors.New("surface reports no formats")
)

// IsTransient reports whether err only means "try again next frame".
func IsTransient(err error) bool {
	return errors.Is(err, ErrOutOfDate) ||
		errors.Is(err, ErrUnsupportedDimensions) ||
		errors.Is(err, ErrAcquireTimeout)
}

// ConfigurationError is returned for invalid startup configuration.
type ConfigurationError struct {
	Option string
	Value  string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return "invalid -" + e.Option + " value \"" + e.Value + "\": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
