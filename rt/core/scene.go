package core

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/esvo/rt/bvh"
	"github.com/gekko3d/esvo/rt/esvo"
)

// VoxelObject is one ESVO-rendered instance in the scene: a transform, an
// octree (config + packed node descriptors + brick data) and a material
// table, plus an LOD cutoff threshold. Object authoring/voxelization is
// out of scope; VoxelObject only holds what the cull and traversal nodes
// need to read.
type VoxelObject struct {
	Transform     *Transform
	Config        *OctreeConfig
	Nodes         []esvo.Descriptor
	Bricks        esvo.BrickSource
	MaterialTable []Material
	WorldAABB     *[2]mgl32.Vec3 // Min, Max

	// LODThreshold tunes the traversal kernel's optional size cutoff
	// (esvo.Ray.SizeCoef/SizeBias): CameraState.PrimaryRay sets SizeCoef
	// to 1/LODThreshold, so a larger threshold trips the cutoff less
	// eagerly; zero disables the cutoff.
	LODThreshold float32
}

// NewVoxelObject returns a VoxelObject with an identity transform and the
// teacher's default LOD threshold.
func NewVoxelObject() *VoxelObject {
	return &VoxelObject{
		Transform:    NewTransform(),
		LODThreshold: 50.0,
	}
}

// UpdateWorldAABB recomputes WorldAABB from Config's local grid bounds
// transformed by Transform, skipping the work when an AABB already exists
// and Transform.Dirty is false. A change to Config alone is not detected.
// Returns whether it recomputed.
func (obj *VoxelObject) UpdateWorldAABB() bool {
	if !obj.Transform.Dirty && obj.WorldAABB != nil {
		return false
	}
	if obj.Config == nil {
		obj.WorldAABB = nil
		obj.Transform.Dirty = false
		return true
	}

	minB, maxB := obj.Config.GridMin, obj.Config.GridMax
	corners := [8]mgl32.Vec3{
		{minB.X(), minB.Y(), minB.Z()},
		{maxB.X(), minB.Y(), minB.Z()},
		{minB.X(), maxB.Y(), minB.Z()},
		{maxB.X(), maxB.Y(), minB.Z()},
		{minB.X(), minB.Y(), maxB.Z()},
		{maxB.X(), minB.Y(), maxB.Z()},
		{minB.X(), maxB.Y(), maxB.Z()},
		{maxB.X(), maxB.Y(), maxB.Z()},
	}

	o2w := obj.Transform.ObjectToWorld()
	inf := float32(1e20)
	wMin := mgl32.Vec3{inf, inf, inf}
	wMax := mgl32.Vec3{-inf, -inf, -inf}
	for _, c := range corners {
		wc := o2w.Mul4x1(c.Vec4(1.0)).Vec3()
		wMin = mgl32.Vec3{minf(wMin.X(), wc.X()), minf(wMin.Y(), wc.Y()), minf(wMin.Z(), wc.Z())}
		wMax = mgl32.Vec3{maxf(wMax.X(), wc.X()), maxf(wMax.Y(), wc.Y()), maxf(wMax.Z(), wc.Z())}
	}
	obj.WorldAABB = &[2]mgl32.Vec3{wMin, wMax}
	obj.Transform.Dirty = false
	return true
}

// Scene owns the object list and the result of the last Commit: the
// visibility-culled subset consumed by the frame graph's cull node.
type Scene struct {
	Objects        []*VoxelObject
	VisibleObjects []*VoxelObject

	// LinearBVH is the CPU-built top-level structure over VisibleObjects,
	// refreshed by every Commit; it's the software fallback used when no
	// hardware acceleration-structure device is attached, and is always
	// kept up to date even when a device is present since it's cheap
	// relative to a full BLAS/TLAS rebuild.
	LinearBVH []bvh.LinearNode
}

func NewScene() *Scene {
	return &Scene{}
}

func (s *Scene) AddObject(obj *VoxelObject) {
	s.Objects = append(s.Objects, obj)
}

func (s *Scene) RemoveObject(obj *VoxelObject) {
	for i, o := range s.Objects {
		if o == obj {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			return
		}
	}
}

// Commit recomputes every object's world AABB, then runs frustum and
// Hi-Z occlusion culling (via Cull) to populate VisibleObjects, and
// rebuilds LinearBVH over the survivors. Building the hardware BLAS/TLAS
// is the graph's job (rt/bvh.Builder), not Scene's.
func (s *Scene) Commit(planes [6]mgl32.Vec4, hizData []float32, hizW, hizH uint32, lastViewProj mgl32.Mat4) {
	for _, obj := range s.Objects {
		obj.UpdateWorldAABB()
	}

	aabbs := make([][2]mgl32.Vec3, 0, len(s.Objects))
	indexed := make([]*VoxelObject, 0, len(s.Objects))
	for _, obj := range s.Objects {
		if obj.WorldAABB == nil {
			continue
		}
		aabbs = append(aabbs, *obj.WorldAABB)
		indexed = append(indexed, obj)
	}

	cs := Cull(aabbs, planes, hizData, hizW, hizH, lastViewProj)
	s.VisibleObjects = s.VisibleObjects[:0]
	visibleAABBs := make([][2]mgl32.Vec3, 0, len(cs.Visible))
	for _, i := range cs.Visible {
		s.VisibleObjects = append(s.VisibleObjects, indexed[i])
		visibleAABBs = append(visibleAABBs, aabbs[i])
	}
	s.LinearBVH = bvh.BuildLinearBVH(visibleAABBs)
}
