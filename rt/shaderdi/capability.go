package shaderdi

import "fmt"

// DeviceLimits is the subset of physical-device limits the validator
// checks against: per-set descriptor counts, push-constant size, and
// vertex-attribute count, plus which optional pipeline stages the
// device supports (geometry/tessellation/mesh/task/ray tracing).
type DeviceLimits struct {
	MaxDescriptorsPerSet  uint32
	MaxPushConstantsSize  uint32
	MaxVertexAttributes   uint32

	SupportsGeometryShader     bool
	SupportsTessellationShader bool
	SupportsMeshShader         bool
	SupportsTaskShader         bool
	SupportsRayTracing         bool
}

// RuleFailure records one failed validation rule; the validator
// collects every failure instead of stopping at the first, per spec
// §4.6's "composite error" requirement.
type RuleFailure struct {
	Rule    string
	Message string
}

// CapabilityReport aggregates every RuleFailure found validating a
// bundle against a device's limits.
type CapabilityReport struct {
	Failures []RuleFailure
}

func (r CapabilityReport) OK() bool { return len(r.Failures) == 0 }

func (r CapabilityReport) String() string {
	if r.OK() {
		return "ok"
	}
	s := ""
	for i, f := range r.Failures {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s: %s", f.Rule, f.Message)
	}
	return s
}

func stageRequiresCapability(stage Stage, limits DeviceLimits) (string, bool) {
	switch stage {
	case StageGeometry:
		return "geometry shaders", limits.SupportsGeometryShader
	case StageTessControl, StageTessEval:
		return "tessellation shaders", limits.SupportsTessellationShader
	case StageRayGen, StageClosestHit, StageIntersection, StageMiss, StageAnyHit:
		return "ray tracing pipeline", limits.SupportsRayTracing
	default:
		return "", true
	}
}

// Validate checks bundle's reflected requirements against limits,
// collecting every failed rule rather than returning on the first.
func Validate(bundle *Bundle, limits DeviceLimits) CapabilityReport {
	var report CapabilityReport

	for _, s := range bundle.Stages {
		if name, ok := stageRequiresCapability(s.Stage, limits); !ok {
			report.Failures = append(report.Failures, RuleFailure{
				Rule:    "stage-support",
				Message: fmt.Sprintf("%s stage requires %s, which this device does not support", s.Stage, name),
			})
		}
	}

	bySet := map[uint32]uint32{}
	for _, d := range bundle.Reflect.Descriptors {
		bySet[d.Set]++
	}
	for set, count := range bySet {
		if limits.MaxDescriptorsPerSet != 0 && count > limits.MaxDescriptorsPerSet {
			report.Failures = append(report.Failures, RuleFailure{
				Rule:    "descriptor-set-limit",
				Message: fmt.Sprintf("set %d declares %d bindings, device limit is %d", set, count, limits.MaxDescriptorsPerSet),
			})
		}
	}

	for _, pc := range bundle.Reflect.PushConstants {
		end := pc.Offset + pc.Size
		if limits.MaxPushConstantsSize != 0 && end > limits.MaxPushConstantsSize {
			report.Failures = append(report.Failures, RuleFailure{
				Rule:    "push-constant-size",
				Message: fmt.Sprintf("push constant range ends at byte %d, device limit is %d", end, limits.MaxPushConstantsSize),
			})
		}
	}

	if limits.MaxVertexAttributes != 0 && uint32(len(bundle.Reflect.VertexInputs)) > limits.MaxVertexAttributes {
		report.Failures = append(report.Failures, RuleFailure{
			Rule:    "vertex-attribute-count",
			Message: fmt.Sprintf("%d vertex attributes declared, device limit is %d", len(bundle.Reflect.VertexInputs), limits.MaxVertexAttributes),
		})
	}

	return report
}
