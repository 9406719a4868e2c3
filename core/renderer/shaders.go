// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"encoding/binary"
	"sort"

	"github.com/devblok/camvis/core"
	vk "github.com/devblok/vulkan"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
)

const spirvMagic = 0x07230203

// Shaders holds the compiled crosshair shaders.
var Shaders = packr.NewBox("../../shaders")

// ShaderSource lists and reads compiled shaders, packr.Box satisfies it.
type ShaderSource interface {
	List() []string
	Find(name string) ([]byte, error)
}

// ErrMissingShader is returned when a source lacks a vertex or fragment shader.
var ErrMissingShader = errors.New("missing compiled shader")

// selectShaders picks one vertex and one fragment shader from src.
// Files that are not compiled shaders are ignored, with several
// candidates of a type the first name in sorted order wins.
func selectShaders(src ShaderSource) (map[core.ShaderType][]byte, error) {
	names := src.List()
	sort.Strings(names)

	found := make(map[core.ShaderType][]byte, 2)
	for _, name := range names {
		st := core.ShaderTypeOf(name)
		if st == core.UnknownShaderType {
			continue
		}
		if _, ok := found[st]; ok {
			continue
		}
		code, err := src.Find(name)
		if err != nil {
			return nil, errors.Wrapf(err, "read shader %s", name)
		}
		found[st] = code
	}

	for _, st := range []core.ShaderType{core.VertexShaderType, core.FragmentShaderType} {
		if _, ok := found[st]; !ok {
			return nil, errors.Wrapf(ErrMissingShader, "%s", st)
		}
	}
	return found, nil
}

// spirvWords reinterprets SPIR-V bytecode as 32-bit words.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("invalid SPIR-V size %d", len(code))
	}
	words := make([]uint32, len(code)/4)
	for idx := range words {
		words[idx] = binary.LittleEndian.Uint32(code[idx*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Errorf("invalid SPIR-V magic %#x", words[0])
	}
	return words, nil
}

func newShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	words, err := spirvWords(code)
	if err != nil {
		return nil, err
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}

	var shader vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &smci, nil, &shader)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateShaderModule()")
	}
	return shader, nil
}
