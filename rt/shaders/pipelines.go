package shaders

import "github.com/gekko3d/esvo/rt/shaderdi"

// IncludeResolver returns the shaderdi.IncludeResolver every embedded
// source's #include directives resolve against.
func IncludeResolver() shaderdi.MapIncludeResolver {
	return shaderdi.MapIncludeResolver{
		"octree_common.glsl": OctreeCommonGLSL,
	}
}

// ComputeStages returns the compute traversal variant's single stage
// (spec 4.1's software DFS kernel).
func ComputeStages() []shaderdi.StageSpec {
	return []shaderdi.StageSpec{
		{Stage: shaderdi.StageCompute, Source: ESVOTraversalComp, EntryPoint: "main"},
	}
}

// FragmentStages returns the fullscreen-triangle fragment traversal
// variant's two stages.
func FragmentStages() []shaderdi.StageSpec {
	return []shaderdi.StageSpec{
		{Stage: shaderdi.StageVertex, Source: FullscreenVert, EntryPoint: "main"},
		{Stage: shaderdi.StageFragment, Source: ESVOTraversalFrag, EntryPoint: "main"},
	}
}

// HardwareAABBStages returns the hardware-RT variant's four stages:
// raygen, intersection, closest-hit, miss — the SDI contract spec 4.1
// names (binding 0 output image, binding 1 TLAS, binding 2 AABB buffer,
// binding 3 material-ID buffer, plus the shared octree uniform).
func HardwareAABBStages() []shaderdi.StageSpec {
	return []shaderdi.StageSpec{
		{Stage: shaderdi.StageRayGen, Source: HWRaygenRgen, EntryPoint: "main"},
		{Stage: shaderdi.StageIntersection, Source: HWIntersectionRint, EntryPoint: "main"},
		{Stage: shaderdi.StageClosestHit, Source: HWClosestHitRchit, EntryPoint: "main"},
		{Stage: shaderdi.StageMiss, Source: HWMissRmiss, EntryPoint: "main"},
	}
}
