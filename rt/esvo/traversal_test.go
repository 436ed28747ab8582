package esvo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// S1 — empty octree: any ray returns a miss in a single iteration.
func TestTraverseEmptyRootMisses(t *testing.T) {
	nodes := []Descriptor{makeDescriptor(0, 0)}
	cfg := Config{ESVOMaxScale: 5}
	ray := Ray{Origin: mgl32.Vec3{0.5, 0.5, -1}, Dir: mgl32.Vec3{0, 0, 1}}

	res := Traverse(nodes, cfg, ray, nil)
	if res.Kind != Miss {
		t.Fatalf("expected Miss, got %v", res.Kind)
	}
	if res.Iterations > 1 {
		t.Errorf("expected miss in <=1 iteration, got %d", res.Iterations)
	}
}

type fakeBrickSource struct {
	occupied map[[4]int]bool
}

func (f *fakeBrickSource) Occupied(brickIndex uint32, x, y, z int) bool {
	return f.occupied[[4]int{int(brickIndex), x, y, z}]
}

func (f *fakeBrickSource) Sample(brickIndex uint32, x, y, z int) Sample {
	return Sample{Material: 1}
}

// S2 — a single filled child at octant 0 of the root, leaf, brickIndex 0;
// the brick has exactly one material at voxel (0,0,0).
func TestTraverseSingleVoxelHitAtRoot(t *testing.T) {
	root := makeDescriptor(0b00000001, 0b00000001) // octant 0 valid + leaf
	root.Lo |= 1 // childPointer = 1 (leaf descriptor sits right after root)
	leaf := Descriptor{Hi: 0} // brickIndex 0, flags 0

	nodes := []Descriptor{root, leaf}
	cfg := Config{ESVOMaxScale: 0}

	src := &fakeBrickSource{occupied: map[[4]int]bool{{0, 0, 0, 0}: true}}
	ray := Ray{Origin: mgl32.Vec3{0.5, 0.5, -1}, Dir: mgl32.Vec3{0, 0, 1}}

	res := Traverse(nodes, cfg, ray, src)
	if res.Kind != HitVoxel {
		t.Fatalf("expected HitVoxel, got %v (iterations=%d)", res.Kind, res.Iterations)
	}
	if res.Sample.Material != 1 {
		t.Errorf("expected material 1, got %d", res.Sample.Material)
	}
}

// solidBrickSource reports every voxel of every brick as occupied, with a
// material that identifies which brickIndex produced the hit; used where
// the scenario under test is about which branch of the octree is reached,
// not about per-voxel occupancy inside a brick.
type solidBrickSource struct{}

func (solidBrickSource) Occupied(brickIndex uint32, x, y, z int) bool { return true }
func (solidBrickSource) Sample(brickIndex uint32, x, y, z int) Sample {
	return Sample{Material: uint8(brickIndex + 1)}
}

// S3 — mirrored traversal equivalence. All 8 root octants are populated as
// leaves, split into two materials by the X bit of their local octant
// index (material 1 for the x-low half, material 2 for the x-high half).
// A ray and its X-mirror image (origin.X -> 1-origin.X, dir.X -> -dir.X,
// Y/Z unchanged) must land on the reflected physical point with the
// material swapped accordingly, and with an identical Z-facing normal:
// mirroring the ray forces the opposite octant_mask bit for X, and
// MirroredToLocal must undo that mirroring correctly to pick the matching
// physical octant on each side.
func TestTraverseMirroredTraversalMatches(t *testing.T) {
	root := makeDescriptor(0xFF, 0xFF) // every octant valid + leaf
	root.Lo |= 1                       // childPointer = 1

	nodes := make([]Descriptor, 9)
	nodes[0] = root
	for octant := uint32(0); octant < 8; octant++ {
		brickIndex := uint32(0)
		if octant&1 == 1 {
			brickIndex = 1
		}
		nodes[1+octant] = Descriptor{Hi: brickIndex}
	}
	cfg := Config{ESVOMaxScale: 0}
	src := solidBrickSource{}

	rayA := Ray{Origin: mgl32.Vec3{0.3, 0.3, -1}, Dir: mgl32.Vec3{0.1, 0, 1}}
	rayB := Ray{Origin: mgl32.Vec3{0.7, 0.3, -1}, Dir: mgl32.Vec3{-0.1, 0, 1}}

	resA := Traverse(nodes, cfg, rayA, src)
	resB := Traverse(nodes, cfg, rayB, src)

	if resA.Kind != HitVoxel || resB.Kind != HitVoxel {
		t.Fatalf("expected both rays to hit, got A=%v B=%v", resA.Kind, resB.Kind)
	}
	if resA.Sample.Material != 1 {
		t.Errorf("expected ray A (x-low entry) to hit material 1, got %d", resA.Sample.Material)
	}
	if resB.Sample.Material != 2 {
		t.Errorf("expected ray B (x-high entry) to hit material 2, got %d", resB.Sample.Material)
	}
	const eps = 1e-3
	if absf(resA.T-resB.T) > eps {
		t.Errorf("expected matching hit times, got T_A=%f T_B=%f", resA.T, resB.T)
	}
	if absf(resA.Position.X()+resB.Position.X()-1.0) > eps {
		t.Errorf("expected reflected X positions summing to 1, got A.X=%f B.X=%f", resA.Position.X(), resB.Position.X())
	}
	if absf(resA.Position.Y()-resB.Position.Y()) > eps || absf(resA.Position.Z()-resB.Position.Z()) > eps {
		t.Errorf("expected matching Y/Z, got A=%v B=%v", resA.Position, resB.Position)
	}
	if absf(resA.Normal.X()-resB.Normal.X()) > eps || absf(resA.Normal.Y()-resB.Normal.Y()) > eps || absf(resA.Normal.Z()-resB.Normal.Z()) > eps {
		t.Errorf("expected matching normals, got A=%v B=%v", resA.Normal, resB.Normal)
	}
}

// S4 — scale POP crossing levels. Root octant 0 holds an internal node
// with no children at all; root octant 1 is a leaf. A ray aimed into
// octant 0 (the dead branch) is forced to ADVANCE immediately — since
// that internal node has zero valid children at any index — and the
// resulting POP must ascend past both the dead node's own scale and its
// parent's scale in one jump (traversal.go's IEEE-exponent carry
// detection, exp2OfScale/floatBits) to land back at the root and
// successfully descend into octant 1's occupied leaf. A buggy multi-level
// POP would either mis-ascend (losing track of the root) or never recover
// (reporting Miss) instead of reaching the only populated voxel in the
// tree.
func TestTraversePopCrossesScaleLevels(t *testing.T) {
	root := makeDescriptor(0b00000011, 0b00000010) // octant0 internal, octant1 leaf
	root.Lo |= 1                                    // childPointer = 1

	deadInternal := makeDescriptor(0, 0) // no children at all
	leaf := Descriptor{Hi: 7}            // brickIndex 7, a distinctive marker

	nodes := []Descriptor{root, deadInternal, leaf}
	cfg := Config{ESVOMaxScale: 2}
	src := solidBrickSource{}

	// Starts deep inside octant 0 (x,y,z all < 0.5) near its far edge
	// along X, traveling purely in +X so the only way to a hit is through
	// octant 0's empty internal node and back out to octant 1.
	ray := Ray{Origin: mgl32.Vec3{0.4, 0.1, 0.1}, Dir: mgl32.Vec3{1, 0, 0}}

	res := Traverse(nodes, cfg, ray, src)
	if res.Kind != HitVoxel {
		t.Fatalf("expected HitVoxel after popping out of the dead branch, got %v (iterations=%d)", res.Kind, res.Iterations)
	}
	if res.Sample.Material != 8 { // brickIndex 7 -> material 8 (solidBrickSource.Sample)
		t.Errorf("expected to reach octant 1's leaf (material 8), got %d", res.Sample.Material)
	}
	if res.Iterations < 2 {
		t.Errorf("expected more than one traversal iteration (PUSH into the dead branch, then ADVANCE/POP), got %d", res.Iterations)
	}
}

// LOD cutoff — the kernel terminates at any node, leaf or internal, once
// tc_max*size_coef+size_bias >= scale_exp2. Both subtests use the same
// octree shapes as S2 but with an extreme SizeCoef that trips the cutoff
// regardless of the exact tc_max the geometry produces, and a ray at
// x=y=0.25 so that it enters octant 0 rather than running along the
// x/y center plane.
func TestTraverseLODCutoff(t *testing.T) {
	t.Run("leaf", func(t *testing.T) {
		root := makeDescriptor(0b00000001, 0b00000001) // octant 0 valid + leaf
		root.Lo |= 1
		leaf := Descriptor{Hi: 0}
		nodes := []Descriptor{root, leaf}
		cfg := Config{ESVOMaxScale: 0}
		src := &fakeBrickSource{occupied: map[[4]int]bool{{0, 0, 0, 0}: true}}
		ray := Ray{Origin: mgl32.Vec3{0.25, 0.25, -1}, Dir: mgl32.Vec3{0, 0, 1}, SizeCoef: 1000}

		res := Traverse(nodes, cfg, ray, src)
		if res.Kind != HitLOD {
			t.Fatalf("expected HitLOD at a leaf child, got %v", res.Kind)
		}
	})

	t.Run("internal", func(t *testing.T) {
		root := makeDescriptor(0b00000001, 0) // octant 0 valid, internal (not leaf)
		root.Lo |= 1
		internalChild := makeDescriptor(0, 0)
		nodes := []Descriptor{root, internalChild}
		cfg := Config{ESVOMaxScale: 0}
		ray := Ray{Origin: mgl32.Vec3{0.25, 0.25, -1}, Dir: mgl32.Vec3{0, 0, 1}, SizeCoef: 1000}

		res := Traverse(nodes, cfg, ray, nil)
		if res.Kind != HitLOD {
			t.Fatalf("expected HitLOD at an internal child, got %v", res.Kind)
		}
	})
}
