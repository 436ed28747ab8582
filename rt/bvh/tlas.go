package bvh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// Instance is the TLAS-side record the spec §3.6 describes: a BLAS
// reference, its placement transform, and the two small integer fields
// the intersection/closest-hit shaders read back via primitive_id —
// instance custom index and visibility mask.
type Instance struct {
	BLAS         ArenaHandle
	Transform    mgl32.Mat4
	CustomIndex  uint32 // 24 bits used; mirrors the brick/object index
	Mask         uint8
}

// InstanceManager tracks the live (BLAS handle, transform, custom index,
// mask) tuples and produces the packed instance buffer TLAS builds
// consume. Grounded on the teacher's bvh.TLASBuilder (builder.go),
// generalized from a CPU BVH blob to the real
// VkAccelerationStructureInstanceKHR wire layout.
type InstanceManager struct {
	arena     *Arena
	instances []Instance
}

func NewInstanceManager(arena *Arena) *InstanceManager {
	return &InstanceManager{arena: arena}
}

func (im *InstanceManager) Add(inst Instance) int {
	im.instances = append(im.instances, inst)
	return len(im.instances) - 1
}

func (im *InstanceManager) Clear() { im.instances = im.instances[:0] }

func (im *InstanceManager) Count() int { return len(im.instances) }

// instanceRecordSize is sizeof(VkAccelerationStructureInstanceKHR): a
// 3x4 row-major transform (48 bytes) packed with instanceCustomIndex
// (24 bits) + mask (8 bits) as one uint32, instanceShaderBindingTableRecordOffset
// (24 bits) + flags (8 bits) as another uint32, and a 64-bit device
// address for the referenced BLAS.
const instanceRecordSize = 64

// EncodeInstanceBuffer packs every tracked instance into the tightly
// packed VkAccelerationStructureInstanceKHR array the TLAS build
// consumes directly as its instance data buffer. A BLAS whose arena
// entry has already been retired is skipped (its device address is no
// longer valid to reference).
func (im *InstanceManager) EncodeInstanceBuffer(blasAddress func(ArenaHandle) (vk.DeviceAddress, bool)) []byte {
	out := make([]byte, 0, len(im.instances)*instanceRecordSize)
	for _, inst := range im.instances {
		addr, ok := blasAddress(inst.BLAS)
		if !ok {
			continue
		}
		rec := make([]byte, instanceRecordSize)
		// 3x4 row-major transform.
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				var v float32
				if col < 3 {
					v = inst.Transform.At(row, col)
				} else {
					v = inst.Transform.At(row, 3)
				}
				off := (row*4 + col) * 4
				binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(v))
			}
		}
		customIndexAndMask := (uint32(inst.Mask) << 24) | (inst.CustomIndex & 0xFFFFFF)
		binary.LittleEndian.PutUint32(rec[48:], customIndexAndMask)
		binary.LittleEndian.PutUint32(rec[52:], 0) // sbtOffset(24) + flags(8), both zero here
		binary.LittleEndian.PutUint64(rec[56:], uint64(addr))
		out = append(out, rec...)
	}
	return out
}

// TLAS is the single top-level acceleration structure wrapping every
// BLAS instance for the frame. Rebuilt (never refit) whenever instance
// topology changes, per spec §4.7 — this renderer never animates
// octree topology mid-frame, but instance membership (which bricks are
// visible, post-culling) can change frame to frame.
type TLAS struct {
	Handle          vk.AccelerationStructureKHR
	InstanceBuffer  vk.Buffer
	InstanceMemory  vk.DeviceMemory
	InstanceCount   uint32
	LastRebuildFrame uint64
	device          vk.Device
}

func (t *TLAS) Destroy() {
	if t.Handle != vk.NullAccelerationStructureKHR {
		vk.DestroyAccelerationStructureKHR(t.device, t.Handle, nil)
	}
	if t.InstanceBuffer != vk.NullBuffer {
		vk.DestroyBuffer(t.device, t.InstanceBuffer, nil)
	}
	if t.InstanceMemory != vk.NullDeviceMemory {
		vk.FreeMemory(t.device, t.InstanceMemory, nil)
	}
}

// BuildTLAS prepares the TLAS over im's current instance set: it encodes
// the instance records, creates an instance buffer of that size (at least
// one record) and grows the shared scratch buffer to twice that size. It
// does not upload the encoded records, create the acceleration-structure
// handle or record a build command, so the returned TLAS has a null
// Handle. Waiting for the contributing BLAS builds is left to the
// caller's pipeline barriers.
func (bd *Builder) BuildTLAS(im *InstanceManager, blasAddress func(ArenaHandle) (vk.DeviceAddress, bool), frame uint64) (*TLAS, error) {
	data := im.EncodeInstanceBuffer(blasAddress)
	byteSize := vk.DeviceSize(len(data))
	if byteSize == 0 {
		byteSize = instanceRecordSize // keep a valid non-zero buffer for an empty scene
	}

	bufInfo := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  byteSize,
		Usage: vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKhr) | vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit),
	}
	var instBuf vk.Buffer
	if ret := vk.CreateBuffer(bd.device, &bufInfo, nil, &instBuf); ret != vk.Success {
		return nil, errVkResult("create TLAS instance buffer", ret)
	}

	if err := bd.ensureScratch(byteSize * 2); err != nil {
		vk.DestroyBuffer(bd.device, instBuf, nil)
		return nil, err
	}

	return &TLAS{
		InstanceBuffer:   instBuf,
		InstanceCount:    uint32(im.Count()),
		LastRebuildFrame: frame,
		device:           bd.device,
	}, nil
}
