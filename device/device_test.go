// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"testing"

	"github.com/devblok/camvis/device"
	"github.com/stretchr/testify/assert"
)

func TestSelectQueueFamily(t *testing.T) {
	tests := []struct {
		name     string
		families []device.QueueFamily
		want     uint32
		found    bool
	}{
		{"none", nil, 0, false},
		{"graphics without present", []device.QueueFamily{{Graphics: true}}, 0, false},
		{"separate queues", []device.QueueFamily{{Graphics: true}, {Present: true}}, 0, false},
		{"combined later", []device.QueueFamily{{Present: true}, {Graphics: true, Present: true}}, 1, true},
		{"first combined wins", []device.QueueFamily{{Graphics: true, Present: true}, {Graphics: true, Present: true}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := device.SelectQueueFamily(tt.families)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferred(t *testing.T) {
	discrete := device.PhysicalDeviceInfo{Type: "discrete"}
	integrated := device.PhysicalDeviceInfo{Type: "integrated"}
	cpu := device.PhysicalDeviceInfo{Type: "cpu"}
	unknown := device.PhysicalDeviceInfo{}

	assert.True(t, device.Preferred(discrete, integrated))
	assert.False(t, device.Preferred(integrated, discrete))
	assert.True(t, device.Preferred(integrated, cpu))
	assert.True(t, device.Preferred(cpu, unknown))
	assert.False(t, device.Preferred(discrete, discrete))
}

func TestHasExtension(t *testing.T) {
	info := device.PhysicalDeviceInfo{Extensions: []string{"VK_KHR_swapchain", "VK_KHR_maintenance1"}}
	assert.True(t, info.HasExtension("VK_KHR_swapchain"))
	assert.False(t, info.HasExtension("VK_KHR_display"))
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, "main\x00", device.SafeString("main"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, device.SafeStrings([]string{"a", "b"}))
	assert.Empty(t, device.SafeStrings(nil))
}
