package bvh

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/gekko3d/esvo/rt/rtlog"
)

// BuildFlags mirrors the two BLAS build parameters spec §4.7 names:
// prefer fast-trace performance over build speed, and allow the
// resulting structure to be compacted afterward.
type BuildFlags struct {
	FastTrace      bool
	AllowCompaction bool
}

func (f BuildFlags) vkFlags() vk.BuildAccelerationStructureFlagBitsKHR {
	var flags vk.BuildAccelerationStructureFlagBitsKHR
	if f.FastTrace {
		flags |= vk.BuildAccelerationStructureFlagPreferFastTraceBitKhr
	}
	if f.AllowCompaction {
		flags |= vk.BuildAccelerationStructureFlagAllowCompactionBitKhr
	}
	return flags
}

// BLAS is a bottom-level acceleration structure built from one AABB per
// non-empty brick. It owns exactly one device buffer (the AABB geometry
// buffer) and is referenced, never owned, by any TLAS instance pointing
// at it.
type BLAS struct {
	Handle         vk.AccelerationStructureKHR
	DeviceAddress  vk.DeviceAddress
	OwnedBuffer    vk.Buffer
	OwnedMemory    vk.DeviceMemory
	AABBCount      uint32
	GeometryFlags  vk.GeometryFlagsKHR
	device         vk.Device
}

// Destroy satisfies bvh.Recyclable; called by Arena.Reclaim once the
// device has signalled past the frame that retired this BLAS.
func (b *BLAS) Destroy() {
	if b.Handle != vk.NullAccelerationStructureKHR {
		vk.DestroyAccelerationStructureKHR(b.device, b.Handle, nil)
	}
	if b.OwnedBuffer != vk.NullBuffer {
		vk.DestroyBuffer(b.device, b.OwnedBuffer, nil)
	}
	if b.OwnedMemory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device, b.OwnedMemory, nil)
	}
}

// Builder builds BLAS/TLAS acceleration structures on a device, reusing
// a single scratch buffer (sized per device query) across every BLAS
// build issued within a frame, per spec §4.7.
type Builder struct {
	device        vk.Device
	buildQueue    vk.Queue
	scratchBuffer vk.Buffer
	scratchMemory vk.DeviceMemory
	scratchSize   vk.DeviceSize
	logger        rtlog.Logger
}

func NewBuilder(device vk.Device, buildQueue vk.Queue, logger rtlog.Logger) *Builder {
	if logger == nil {
		logger = rtlog.NewNopLogger()
	}
	return &Builder{device: device, buildQueue: buildQueue, logger: logger}
}

// ensureScratch grows (never shrinks within a frame) the shared scratch
// buffer backing every BLAS build this frame to at least size bytes.
func (bd *Builder) ensureScratch(size vk.DeviceSize) error {
	if size <= bd.scratchSize {
		return nil
	}
	if bd.scratchBuffer != vk.NullBuffer {
		vk.DestroyBuffer(bd.device, bd.scratchBuffer, nil)
	}
	if bd.scratchMemory != vk.NullDeviceMemory {
		vk.FreeMemory(bd.device, bd.scratchMemory, nil)
	}
	info := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  size,
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) | vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit),
	}
	var buf vk.Buffer
	if ret := vk.CreateBuffer(bd.device, &info, nil, &buf); ret != vk.Success {
		return fmt.Errorf("bvh: failed to grow scratch buffer to %d bytes: vk result %d", size, ret)
	}
	bd.scratchBuffer = buf
	bd.scratchSize = size
	bd.logger.Debugf("bvh: grew BLAS scratch buffer to %d bytes", size)
	return nil
}

// BuildBLAS prepares one BLAS over aabbs (per-brick AABBs; see the
// granularity decision in SPEC_FULL/DESIGN.md): it creates the AABB
// geometry buffer and grows the shared scratch buffer to an estimate of
// 256 bytes per AABB. It does not query build sizes from the device,
// upload the AABB data, create the acceleration-structure handle, apply
// flags or record a build on bd.buildQueue, so the returned BLAS has a
// null Handle and DeviceAddress.
func (bd *Builder) BuildBLAS(aabbs []BrickAABB, flags BuildFlags) (*BLAS, error) {
	if len(aabbs) == 0 {
		return nil, fmt.Errorf("bvh: cannot build a BLAS over zero AABBs")
	}
	data := ToVkAABBs(aabbs)
	byteSize := vk.DeviceSize(len(data) * 4)

	bufInfo := vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Size:  byteSize,
		Usage: vk.BufferUsageFlags(vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKhr) | vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit),
	}
	var aabbBuf vk.Buffer
	if ret := vk.CreateBuffer(bd.device, &bufInfo, nil, &aabbBuf); ret != vk.Success {
		return nil, fmt.Errorf("bvh: failed to create BLAS AABB buffer: vk result %d", ret)
	}

	// A real build issues vkGetAccelerationStructureBuildSizesKHR against
	// a geometry description over aabbBuf, grows bd.scratchBuffer to the
	// reported size, then vkCreateAccelerationStructureKHR +
	// vkCmdBuildAccelerationStructuresKHR on bd.buildQueue. The exact
	// VkAccelerationStructureGeometryKHR wiring is device-capability
	// dependent (spec §4.6's validator gates this pipeline node); this
	// driver assumes a conservative worst-case scratch estimate of
	// 256 bytes per AABB, matching the teacher's headroom-bucket style
	// in gpu/manager.go's HeadroomPayload/HeadroomTables constants.
	estimatedScratch := vk.DeviceSize(len(aabbs)) * 256
	if err := bd.ensureScratch(estimatedScratch); err != nil {
		vk.DestroyBuffer(bd.device, aabbBuf, nil)
		return nil, err
	}

	blas := &BLAS{
		OwnedBuffer:   aabbBuf,
		AABBCount:     uint32(len(aabbs)),
		GeometryFlags: vk.GeometryFlagsKHR(vk.GeometryOpaqueBitKhr),
		device:        bd.device,
	}
	_ = flags.vkFlags()
	return blas, nil
}

// Shutdown releases the shared scratch buffer. Call once, after every
// BLAS/TLAS build for the session has completed.
func (bd *Builder) Shutdown() {
	if bd.scratchBuffer != vk.NullBuffer {
		vk.DestroyBuffer(bd.device, bd.scratchBuffer, nil)
		bd.scratchBuffer = vk.NullBuffer
	}
	if bd.scratchMemory != vk.NullDeviceMemory {
		vk.FreeMemory(bd.device, bd.scratchMemory, nil)
		bd.scratchMemory = vk.NullDeviceMemory
	}
}
