package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testConfig() *OctreeConfig {
	return NewOctreeConfig(4, 3, 8, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 10, 10}, mgl32.Ident4())
}

func TestSceneCommitSeparatesObjectAABBs(t *testing.T) {
	scene := NewScene()

	obj1 := NewVoxelObject()
	obj1.Config = testConfig()
	obj1.Transform.Position = mgl32.Vec3{0, 0, 0}

	obj2 := NewVoxelObject()
	obj2.Config = testConfig()
	obj2.Transform.Position = mgl32.Vec3{100, 100, 100}

	scene.AddObject(obj1)
	scene.AddObject(obj2)
	scene.Commit(allPassPlanes(), nil, 0, 0, mgl32.Ident4())

	if obj1.WorldAABB == nil || obj2.WorldAABB == nil {
		t.Fatal("world AABBs should be computed")
	}
	b1Max, b2Min := obj1.WorldAABB[1], obj2.WorldAABB[0]
	if b1Max[0] >= b2Min[0] {
		t.Errorf("object 1 max X (%f) should be less than object 2 min X (%f)", b1Max[0], b2Min[0])
	}
}

func TestVoxelObjectAABBUpdateSkipsWhenNotDirty(t *testing.T) {
	obj := NewVoxelObject()
	obj.Config = testConfig()

	if !obj.UpdateWorldAABB() {
		t.Fatal("first update should recompute")
	}
	if obj.UpdateWorldAABB() {
		t.Error("second update with no transform change should be a no-op")
	}

	obj.Transform.Dirty = true
	if !obj.UpdateWorldAABB() {
		t.Error("update after marking dirty should recompute")
	}
}

func TestVoxelObjectWithoutConfigHasNoAABB(t *testing.T) {
	obj := NewVoxelObject()
	obj.UpdateWorldAABB()
	if obj.WorldAABB != nil {
		t.Error("an object with no octree config should have no world AABB")
	}
}

func TestSceneCommitPopulatesVisibleObjects(t *testing.T) {
	scene := NewScene()
	for i := 0; i < 3; i++ {
		obj := NewVoxelObject()
		obj.Config = testConfig()
		obj.Transform.Position = mgl32.Vec3{float32(i * 20), 0, 0}
		scene.AddObject(obj)
	}

	scene.Commit(allPassPlanes(), nil, 0, 0, mgl32.Ident4())

	if len(scene.VisibleObjects) != len(scene.Objects) {
		t.Errorf("expected all %d objects visible with all-pass planes, got %d", len(scene.Objects), len(scene.VisibleObjects))
	}
}

func TestRemoveObject(t *testing.T) {
	scene := NewScene()
	obj1 := NewVoxelObject()
	obj2 := NewVoxelObject()
	scene.AddObject(obj1)
	scene.AddObject(obj2)

	scene.RemoveObject(obj1)
	if len(scene.Objects) != 1 || scene.Objects[0] != obj2 {
		t.Fatal("RemoveObject should leave only the other object")
	}
}

func TestSceneCommitBuildsLinearBVHOverVisibleObjects(t *testing.T) {
	scene := NewScene()
	for i := 0; i < 2; i++ {
		obj := NewVoxelObject()
		obj.Config = testConfig()
		obj.Transform.Position = mgl32.Vec3{float32(i * 200), 0, 0}
		scene.AddObject(obj)
	}

	scene.Commit(allPassPlanes(), nil, 0, 0, mgl32.Ident4())

	if len(scene.LinearBVH) == 0 {
		t.Fatal("Commit should build a non-empty LinearBVH over visible objects")
	}
}

func TestVoxelObjectDefaultLODThreshold(t *testing.T) {
	obj := NewVoxelObject()
	if obj.LODThreshold != 50.0 {
		t.Errorf("expected default LOD threshold 50.0, got %f", obj.LODThreshold)
	}
}

// allPassPlanes returns frustum planes that accept any point (D term
// large and positive, normal zero), used where a test only cares about
// AABB bookkeeping, not frustum rejection.
func allPassPlanes() [6]mgl32.Vec4 {
	var planes [6]mgl32.Vec4
	for i := range planes {
		planes[i] = mgl32.Vec4{0, 0, 0, 1e6}
	}
	return planes
}
