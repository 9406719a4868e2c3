// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"unsafe"

	"github.com/devblok/camvis/model"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// Memory defines a usable memory region.
type Memory struct {
	mapped bool
	size   vk.DeviceSize
	device vk.Device
	memory vk.DeviceMemory
}

// Get returns the vulkan memory handle.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Map maps the whole region and returns a pointer to it.
func (m *Memory) Map() (unsafe.Pointer, error) {
	var mapped unsafe.Pointer
	if err := vk.Error(vk.MapMemory(m.device, m.memory, 0, m.size, 0, &mapped)); err != nil {
		return nil, errors.Wrap(err, "vk.MapMemory()")
	}
	m.mapped = true
	return mapped, nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = false
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
}

// NewMemoryAllocator creates a new memory allocator for the logical device,
// memory properties of the physical device decide the memory type used.
func NewMemoryAllocator(device vk.Device, physical vk.PhysicalDevice) *MemoryAllocator {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physical, &memProperties)
	memProperties.Deref()

	return &MemoryAllocator{
		device:        device,
		memProperties: memProperties,
	}
}

// MemoryAllocator hands out device memory.
type MemoryAllocator struct {
	device        vk.Device
	memProperties vk.PhysicalDeviceMemoryProperties
}

// Malloc allocates memory satisfying req with the given properties.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlagBits) (Memory, error) {
	memTypeIdx, err := ma.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(prop))
	if err != nil {
		return Memory{}, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(ma.device, &mai, nil, &memory)); err != nil {
		return Memory{}, errors.Wrap(err, "vk.AllocateMemory()")
	}
	return Memory{
		size:   req.Size,
		device: ma.device,
		memory: memory,
	}, nil
}

func (ma *MemoryAllocator) findMemoryType(filter uint32, prop vk.MemoryPropertyFlags) (uint32, error) {
	for idx := uint32(0); idx < ma.memProperties.MemoryTypeCount; idx++ {
		ma.memProperties.MemoryTypes[idx].Deref()
		if filter&(1<<idx) != 0 && (ma.memProperties.MemoryTypes[idx].PropertyFlags&prop) == prop {
			return idx, nil
		}
	}
	return 0, errors.New("suitable memory type not found")
}

// NewBuffer creates a host visible buffer and binds memory to it.
func NewBuffer(dev vk.Device, size uint, usage vk.BufferUsageFlagBits, ma *MemoryAllocator) (*Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(dev, &createInfo, nil, &buffer)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateBuffer()")
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &req)
	req.Deref()

	memory, err := ma.Malloc(req, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		return nil, err
	}

	if err := vk.Error(vk.BindBufferMemory(dev, buffer, memory.Get(), 0)); err != nil {
		vk.DestroyBuffer(dev, buffer, nil)
		memory.Release()
		return nil, errors.Wrap(err, "vk.BindBufferMemory()")
	}

	return &Buffer{
		device: dev,
		buffer: buffer,
		memory: memory,
	}, nil
}

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer

	memory Memory
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Release destroys the buffer and memory asociated with it.
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.memory.Release()
}

// VertexBuffer is a buffer filled with model vertices.
type VertexBuffer struct {
	*Buffer
	count uint32
}

// Count returns the number of vertices in the buffer.
func (v *VertexBuffer) Count() uint32 {
	return v.count
}

// NewVertexBuffer uploads vertices into a new host visible buffer.
func NewVertexBuffer(dev vk.Device, vertices []model.Vertex, ma *MemoryAllocator) (*VertexBuffer, error) {
	if len(vertices) == 0 {
		return nil, errors.New("no vertices to upload")
	}

	size := uint(unsafe.Sizeof(model.Vertex{})) * uint(len(vertices))
	buffer, err := NewBuffer(dev, size, vk.BufferUsageVertexBufferBit, ma)
	if err != nil {
		return nil, err
	}

	mapped, err := buffer.Mem().Map()
	if err != nil {
		buffer.Release()
		return nil, err
	}
	copy(unsafe.Slice((*model.Vertex)(mapped), len(vertices)), vertices)
	buffer.Mem().Unmap()

	return &VertexBuffer{
		Buffer: buffer,
		count:  uint32(len(vertices)),
	}, nil
}
