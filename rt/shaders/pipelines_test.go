package shaders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageListsAreNonEmptyAndCarrySource(t *testing.T) {
	assert.Len(t, ComputeStages(), 1)
	assert.Len(t, FragmentStages(), 2)
	assert.Len(t, HardwareAABBStages(), 4)

	for _, s := range ComputeStages() {
		assert.NotEmpty(t, s.Source)
	}
	for _, s := range FragmentStages() {
		assert.NotEmpty(t, s.Source)
	}
	for _, s := range HardwareAABBStages() {
		assert.NotEmpty(t, s.Source)
	}
}

func TestIncludeResolverCoversEveryIncludeDirective(t *testing.T) {
	resolver := IncludeResolver()
	src, err := resolver.Resolve("octree_common.glsl")
	assert.NoError(t, err)
	assert.Contains(t, src, "HitResult")
}
