package shaderdi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rayTracingBundle() *Bundle {
	r := Reflection{
		Descriptors: []DescriptorBinding{
			{Set: 0, Binding: 0, Type: DescriptorStorageImage},
			{Set: 0, Binding: 1, Type: DescriptorAccelerationStructure},
			{Set: 0, Binding: 2, Type: DescriptorStorageBuffer},
		},
		PushConstants: []PushConstantRange{{Offset: 0, Size: 64}},
		VertexInputs:  []VertexInput{{Location: 0}, {Location: 1}, {Location: 2}},
	}
	descHash := computeDescriptorInterfaceHash(r)
	return &Bundle{
		Stages:                  []StageModule{{Stage: StageRayGen}, {Stage: StageClosestHit}, {Stage: StageMiss}},
		Reflect:                 r,
		Binding:                 GenerateSDI(r, descHash),
		DescriptorInterfaceHash: descHash,
	}
}

func TestValidateCollectsEveryFailureNotJustFirst(t *testing.T) {
	b := rayTracingBundle()
	limits := DeviceLimits{
		MaxDescriptorsPerSet: 2, // bundle declares 3 -> fails
		MaxPushConstantsSize: 32, // bundle declares 64 -> fails
		MaxVertexAttributes: 1,   // bundle declares 3 -> fails
		SupportsRayTracing:   false,
	}

	report := Validate(b, limits)
	assert.False(t, report.OK())
	// stage-support fails once per ray-tracing stage (raygen, closest-hit, miss) plus
	// the three resource-limit rules.
	assert.GreaterOrEqual(t, len(report.Failures), 6)

	rules := map[string]bool{}
	for _, f := range report.Failures {
		rules[f.Rule] = true
	}
	assert.True(t, rules["stage-support"])
	assert.True(t, rules["descriptor-set-limit"])
	assert.True(t, rules["push-constant-size"])
	assert.True(t, rules["vertex-attribute-count"])
}

func TestValidatePassesWhenWithinLimits(t *testing.T) {
	b := rayTracingBundle()
	limits := DeviceLimits{
		MaxDescriptorsPerSet: 8,
		MaxPushConstantsSize: 128,
		MaxVertexAttributes:  8,
		SupportsRayTracing:   true,
	}
	report := Validate(b, limits)
	assert.True(t, report.OK())
	assert.Equal(t, "ok", report.String())
}
