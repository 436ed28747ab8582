// Package shaderdi implements the shader compilation and reflection
// pipeline (C6): GLSL preprocessing, an injected GLSL->SPIR-V compiler
// boundary, SPIR-V reflection, interface/descriptor hashing, SDI
// binding-ABI generation, hot-reload classification, and
// device-capability validation. Grounded on the teacher's
// shaders.FullscreenWGSL-style embed boundary (shaders/shaders.go) for
// "shader source lives as data, not generated code" and on
// gapis/shadertools' external-compiler-call shape (CompileGlsl(src,
// shaderType, clientType) []uint32) for the compiler injection point.
package shaderdi

// Stage identifies a shader pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
	StageGeometry
	StageTessControl
	StageTessEval
	StageRayGen
	StageClosestHit
	StageIntersection
	StageMiss
	StageAnyHit
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	case StageGeometry:
		return "geometry"
	case StageTessControl:
		return "tess_control"
	case StageTessEval:
		return "tess_eval"
	case StageRayGen:
		return "raygen"
	case StageClosestHit:
		return "closest_hit"
	case StageIntersection:
		return "intersection"
	case StageMiss:
		return "miss"
	case StageAnyHit:
		return "any_hit"
	default:
		return "unknown"
	}
}

// StageModule is one compiled stage's SPIR-V plus the metadata needed to
// re-invoke the compiler (cache key material) and drive a pipeline
// (entry point name).
type StageModule struct {
	Stage      Stage
	EntryPoint string
	SPIRV      []uint32
}
