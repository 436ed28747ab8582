// Package shaders embeds the module's GLSL shader sources as package
// data, the same boundary the teacher's shaders.FullscreenWGSL family
// uses: shader text lives on disk and ships as a Go string constant, it
// is never generated from Go code.
package shaders

import (
	_ "embed"
)

//go:embed octree_common.glsl
var OctreeCommonGLSL string

//go:embed esvo_traversal.comp
var ESVOTraversalComp string

//go:embed fullscreen.vert
var FullscreenVert string

//go:embed esvo_traversal.frag
var ESVOTraversalFrag string

//go:embed hw_raygen.rgen
var HWRaygenRgen string

//go:embed hw_intersection.rint
var HWIntersectionRint string

//go:embed hw_closesthit.rchit
var HWClosestHitRchit string

//go:embed hw_miss.rmiss
var HWMissRmiss string
