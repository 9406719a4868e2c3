// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds the geometry drawn by the renderer and
// its Vulkan vertex layout.
package model

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// CrosshairSize is the half length of a crosshair arm in clip space.
const CrosshairSize = 0.2

// Vertex is a model vertex
type Vertex struct {
	Pos glm.Vec2
}

// PushConstant is pushed to the vertex shader with every draw
type PushConstant struct {
	Offset glm.Vec2
}

// Crosshair returns two line segments crossing at the origin,
// meant to be drawn as a line list.
func Crosshair() []Vertex {
	return []Vertex{
		{Pos: glm.Vec2{-CrosshairSize, 0}},
		{Pos: glm.Vec2{CrosshairSize, 0}},
		{Pos: glm.Vec2{0, -CrosshairSize}},
		{Pos: glm.Vec2{0, CrosshairSize}},
	}
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Binding:  0,
		Location: 0,
		Format:   vk.FormatR32g32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
	}}
}

// PushConstantSize is the byte size of PushConstant
func PushConstantSize() uint32 {
	return uint32(unsafe.Sizeof(PushConstant{}))
}
