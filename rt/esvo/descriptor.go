// Package esvo implements the Efficient Sparse Voxel Octree node
// descriptor accessors and the three-phase DFS traversal kernel
// (Laine & Karras 2010).
package esvo

import "math/bits"

// Descriptor is a packed 64-bit ESVO node record: two little-endian
// uint32 words as they sit in the node buffer.
//
// First word: childPointer (bits 0-14), farBit (15), validMask (16-23),
// leafMask (24-31).
//
// Second word is context-dependent: for internal nodes, contourPointer
// (0-23) and contourMask (24-31); for leaf nodes, brickIndex (0-23,
// sentinel 0xFFFFFF means "no brick") and flags (24-31). The two
// interpretations never collide because a descriptor is a leaf iff the
// parent's leafMask bit is set for the octant selecting it.
type Descriptor struct {
	Lo uint32
	Hi uint32
}

// BrickIndexNone is the sentinel value for "no brick" leaf descriptors.
const BrickIndexNone = 0xFFFFFF

func (d Descriptor) ChildPointer() uint32 { return d.Lo & 0x7FFF }
func (d Descriptor) FarBit() bool         { return d.Lo&(1<<15) != 0 }
func (d Descriptor) ValidMask() uint32    { return (d.Lo >> 16) & 0xFF }
func (d Descriptor) LeafMask() uint32     { return (d.Lo >> 24) & 0xFF }

func (d Descriptor) ContourPointer() uint32 { return d.Hi & 0xFFFFFF }
func (d Descriptor) ContourMask() uint32    { return (d.Hi >> 24) & 0xFF }

func (d Descriptor) BrickIndex() uint32 { return d.Hi & 0xFFFFFF }
func (d Descriptor) Flags() uint32      { return (d.Hi >> 24) & 0xFF }

// ChildExists reports whether octant k (0-7) has a valid child.
func (d Descriptor) ChildExists(k uint32) bool {
	return d.ValidMask()&(1<<k) != 0
}

// IsLeaf reports whether octant k's child, if any, is a leaf descriptor
// rather than another internal node.
func (d Descriptor) IsLeaf(k uint32) bool {
	return d.LeafMask()&(1<<k) != 0
}

// CountInternalChildrenBefore returns the number of internal (non-leaf)
// children in octants [0, octant), used to compute a child's packed-array
// offset since internal children precede leaf children in memory.
func (d Descriptor) CountInternalChildrenBefore(octant uint32) uint32 {
	mask := d.ValidMask() &^ d.LeafMask()
	return uint32(bits.OnesCount32(mask & ((1 << octant) - 1)))
}

// CountLeavesBefore returns the number of leaf children in octants
// [0, octant).
func (d Descriptor) CountLeavesBefore(octant uint32) uint32 {
	mask := d.ValidMask() & d.LeafMask()
	return uint32(bits.OnesCount32(mask & ((1 << octant) - 1)))
}

// ChildArrayIndex returns the in-memory index of octant's child within
// the packed child array: internal descents index from 0, leaf lookups
// index after every internal child.
func (d Descriptor) ChildArrayIndex(octant uint32) uint32 {
	if d.IsLeaf(octant) {
		totalInternal := bits.OnesCount32(d.ValidMask() &^ d.LeafMask())
		return uint32(totalInternal) + d.CountLeavesBefore(octant)
	}
	return d.CountInternalChildrenBefore(octant)
}

// MirroredToLocal undoes the octant_mask XOR-mirroring applied during
// traversal: local = mirrored XOR ((~octant_mask) & 7). The function is
// its own inverse (an involution), i.e.
// MirroredToLocal(MirroredToLocal(x, m), m) == x.
func MirroredToLocal(mirrored, octantMask uint32) uint32 {
	return mirrored ^ ((^octantMask) & 7)
}
