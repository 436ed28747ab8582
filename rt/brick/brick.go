// Package brick implements the 8x8x8 voxel brick data model: the
// uncompressed material-ID layout, the DXT1-derived compressed color and
// normal codecs, and material palette lookup. The model is read-only;
// host-side construction (voxelization) is out of scope.
package brick

import "github.com/gekko3d/esvo/rt/esvo"

// Size is the brick edge length in voxels.
const Size = 8

// VoxelsPerBrick is the total voxel count of one brick (8^3).
const VoxelsPerBrick = Size * Size * Size

// LinearIndex computes the brick-local linear voxel index z*64+y*8+x.
func LinearIndex(x, y, z int) int { return z*64 + y*8 + x }

// Uncompressed is the flat 512-bytes-per-brick material ID buffer: one
// byte per voxel, bricks laid out flat and indexed by brick ID.
type Uncompressed struct {
	Data []byte
}

func NewUncompressed(brickCount int) *Uncompressed {
	return &Uncompressed{Data: make([]byte, brickCount*VoxelsPerBrick)}
}

func (u *Uncompressed) offset(brickIndex uint32, x, y, z int) int {
	return int(brickIndex)*VoxelsPerBrick + LinearIndex(x, y, z)
}

func (u *Uncompressed) MaterialAt(brickIndex uint32, x, y, z int) uint8 {
	return u.Data[u.offset(brickIndex, x, y, z)]
}

// Occupied and Sample satisfy esvo.BrickSource.
func (u *Uncompressed) Occupied(brickIndex uint32, x, y, z int) bool {
	return u.MaterialAt(brickIndex, x, y, z) != 0
}

func (u *Uncompressed) Sample(brickIndex uint32, x, y, z int) esvo.Sample {
	return esvo.Sample{Material: u.MaterialAt(brickIndex, x, y, z)}
}

// SetVoxel writes a material ID, used only by tests constructing fixture
// bricks (real authoring is out of scope).
func (u *Uncompressed) SetVoxel(brickIndex uint32, x, y, z int, material uint8) {
	u.Data[u.offset(brickIndex, x, y, z)] = material
}

// FillUniform writes the same material ID to every voxel of a brick, used
// by the round-trip test in invariant 5.
func (u *Uncompressed) FillUniform(brickIndex uint32, material uint8) {
	start := int(brickIndex) * VoxelsPerBrick
	for i := 0; i < VoxelsPerBrick; i++ {
		u.Data[start+i] = material
	}
}
