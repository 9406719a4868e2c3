// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"path"
	"strings"
)

const shaderSuffix = ".spv"

// ShaderTypeOf classifies a compiled shader by its file name.
// The name must have exactly three dot separated parts: the shader
// name, the stage ("vert" or "frag") and the ".spv" suffix that marks
// it as compiled. Anything else is UnknownShaderType.
func ShaderTypeOf(filename string) ShaderType {
	base := path.Base(filename)
	if !strings.HasSuffix(base, shaderSuffix) {
		return UnknownShaderType
	}

	nodes := strings.Split(strings.TrimSuffix(base, shaderSuffix), ".")
	if len(nodes) != 2 || nodes[0] == "" {
		return UnknownShaderType
	}

	switch nodes[1] {
	case "vert":
		return VertexShaderType
	case "frag":
		return FragmentShaderType
	}
	return UnknownShaderType
}

func (t ShaderType) String() string {
	switch t {
	case VertexShaderType:
		return "vertex"
	case FragmentShaderType:
		return "fragment"
	}
	return "unknown"
}
