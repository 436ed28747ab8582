package esvo

import "testing"

func makeDescriptor(validMask, leafMask uint32) Descriptor {
	return Descriptor{Lo: (validMask << 16) | (leafMask << 24)}
}

func TestChildExistsMatchesValidMask(t *testing.T) {
	d := makeDescriptor(0b00000101, 0)
	for k := uint32(0); k < 8; k++ {
		want := (0b00000101>>k)&1 != 0
		if got := d.ChildExists(k); got != want {
			t.Errorf("ChildExists(%d) = %v, want %v", k, got, want)
		}
	}
}

func TestCountInvariant(t *testing.T) {
	// Invariant 1: count_internal_children_before(8) + count_leaves_before(8)
	// == popcount(valid_mask).
	for valid := uint32(0); valid < 256; valid++ {
		for leaf := uint32(0); leaf < 256; leaf++ {
			leafBits := leaf & valid
			d := makeDescriptor(valid, leafBits)
			got := d.CountInternalChildrenBefore(8) + d.CountLeavesBefore(8)
			want := popcount(valid)
			if got != want {
				t.Fatalf("valid=%08b leaf=%08b: got %d want %d", valid, leafBits, got, want)
			}
		}
	}
}

func popcount(v uint32) uint32 {
	n := uint32(0)
	for v != 0 {
		n += v & 1
		v >>= 1
	}
	return n
}

func TestMirroredToLocalInvolution(t *testing.T) {
	// Invariant 2: mirrored_to_local(local_to_mirrored(x, m), m) == x.
	// The function is its own inverse so a single helper covers both
	// directions.
	for x := uint32(0); x < 8; x++ {
		for m := uint32(0); m < 8; m++ {
			mirrored := MirroredToLocal(x, m)
			back := MirroredToLocal(mirrored, m)
			if back != x {
				t.Errorf("x=%d m=%d: round-trip got %d", x, m, back)
			}
		}
	}
}

func TestChildArrayIndexLeavesAfterInternal(t *testing.T) {
	// internal children at octants 0,2; leaf children at octants 1,3
	valid := uint32(0b00001111)
	leaf := uint32(0b00001010)
	d := makeDescriptor(valid, leaf)

	if idx := d.ChildArrayIndex(0); idx != 0 {
		t.Errorf("internal octant 0: got %d want 0", idx)
	}
	if idx := d.ChildArrayIndex(2); idx != 1 {
		t.Errorf("internal octant 2: got %d want 1", idx)
	}
	// two internal children total, so leaves start at index 2
	if idx := d.ChildArrayIndex(1); idx != 2 {
		t.Errorf("leaf octant 1: got %d want 2", idx)
	}
	if idx := d.ChildArrayIndex(3); idx != 3 {
		t.Errorf("leaf octant 3: got %d want 3", idx)
	}
}

func TestBrickIndexSentinel(t *testing.T) {
	d := Descriptor{Hi: BrickIndexNone}
	if d.BrickIndex() != BrickIndexNone {
		t.Errorf("expected sentinel brick index, got %d", d.BrickIndex())
	}
}
