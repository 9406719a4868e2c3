// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shaders holds the GLSL sources of the crosshair pipeline.
// The compiled SPIR-V next to them is packed into the renderer by packr.
package shaders

//go:generate glslangValidator -V crosshair.vert -o crosshair.vert.spv
//go:generate glslangValidator -V crosshair.frag -o crosshair.frag.spv
