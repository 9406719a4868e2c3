// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device creates the Vulkan instance and picks the
// physical device and queue used for rendering.
package device

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Type          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint
}

// HasExtension reports whether the device exposes the named extension.
func (p PhysicalDeviceInfo) HasExtension(name string) bool {
	for _, ext := range p.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

// InstanceConfiguration is used to configure the Vulkan instance
type InstanceConfiguration struct {
	// Validation loads the validation layer and forwards
	// its reports to the logger.
	Validation bool
	Extensions []string
	Layers     []string
}

// QueueFamily is the part of a queue family that matters for choosing one.
type QueueFamily struct {
	Graphics bool
	Present  bool
}

// SelectQueueFamily returns the first family that can both render
// and present to the surface.
func SelectQueueFamily(families []QueueFamily) (uint32, bool) {
	for idx, family := range families {
		if family.Graphics && family.Present {
			return uint32(idx), true
		}
	}
	return 0, false
}

// deviceRank orders device types, discrete GPUs first.
var deviceRank = map[string]int{
	"discrete":   0,
	"integrated": 1,
	"virtual":    2,
	"cpu":        3,
	"other":      4,
}

// Preferred reports whether a should be chosen over b.
func Preferred(a, b PhysicalDeviceInfo) bool {
	ra, ok := deviceRank[a.Type]
	if !ok {
		ra = len(deviceRank)
	}
	rb, ok := deviceRank[b.Type]
	if !ok {
		rb = len(deviceRank)
	}
	return ra < rb
}
