package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OctreeConfig is the per-frame static configuration shared by every ESVO
// traversal kernel variant. It is uploaded once per frame as a std140
// uniform buffer; EncodeUBO produces the exact byte layout described by
// the octree config UBO contract.
type OctreeConfig struct {
	ESVOMaxScale     int32
	UserMaxLevels    int32
	BrickDepthLevels int32
	BrickSize        int32

	MinESVOScale   int32
	BrickESVOScale int32
	BricksPerAxis  int32

	GridMin mgl32.Vec3
	GridMax mgl32.Vec3

	LocalToWorld mgl32.Mat4
	WorldToLocal mgl32.Mat4
}

// userToESVOScale converts a user-facing octree level to the ESVO scale
// unit, where one scale unit is a factor-of-two edge length in [1,2]^3.
func userToESVOScale(level int32) int32 {
	return level
}

// NewOctreeConfig builds a config with esvoMaxScale derived from
// userMaxLevels per the esvoMaxScale = userToESVOScale(userMaxLevels-1)
// relationship.
func NewOctreeConfig(userMaxLevels, brickDepthLevels, brickSize int32, gridMin, gridMax mgl32.Vec3, localToWorld mgl32.Mat4) *OctreeConfig {
	esvoMaxScale := userToESVOScale(userMaxLevels - 1)
	return &OctreeConfig{
		ESVOMaxScale:     esvoMaxScale,
		UserMaxLevels:    userMaxLevels,
		BrickDepthLevels: brickDepthLevels,
		BrickSize:        brickSize,
		MinESVOScale:     esvoMaxScale - userMaxLevels + 1,
		BrickESVOScale:   esvoMaxScale - userMaxLevels + 1 + brickDepthLevels,
		BricksPerAxis:    1 << brickDepthLevels,
		GridMin:          gridMin,
		GridMax:          gridMax,
		LocalToWorld:     localToWorld,
		WorldToLocal:     localToWorld.Inv(),
	}
}

// EncodeUBO packs the config into the exact std140 layout:
//
//	int    esvoMaxScale, userMaxLevels, brickDepthLevels, brickSize
//	int    minESVOScale, brickESVOScale, bricksPerAxis, _pad1
//	vec3   gridMin; float _pad2
//	vec3   gridMax; float _pad3
//	mat4   localToWorld
//	mat4   worldToLocal
func (c *OctreeConfig) EncodeUBO() []byte {
	buf := make([]byte, 192)
	putI32 := func(off int, v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)) }
	putF32 := func(off int, v float32) { binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v)) }

	putI32(0, c.ESVOMaxScale)
	putI32(4, c.UserMaxLevels)
	putI32(8, c.BrickDepthLevels)
	putI32(12, c.BrickSize)

	putI32(16, c.MinESVOScale)
	putI32(20, c.BrickESVOScale)
	putI32(24, c.BricksPerAxis)
	putI32(28, 0) // _pad1

	putF32(32, c.GridMin.X())
	putF32(36, c.GridMin.Y())
	putF32(40, c.GridMin.Z())
	putF32(44, 0) // _pad2

	putF32(48, c.GridMax.X())
	putF32(52, c.GridMax.Y())
	putF32(56, c.GridMax.Z())
	putF32(60, 0) // _pad3

	off := 64
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			putF32(off, c.LocalToWorld.At(row, col))
			off += 4
		}
	}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			putF32(off, c.WorldToLocal.At(row, col))
			off += 4
		}
	}
	return buf
}
