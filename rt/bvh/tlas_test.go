package bvh

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestEncodeInstanceBufferSkipsRetiredBLAS(t *testing.T) {
	arena := NewArena()
	var destroyed bool
	liveHandle := arena.Put(&fakeResource{destroyed: &destroyed})
	im := NewInstanceManager(arena)
	im.Add(Instance{BLAS: liveHandle, CustomIndex: 42, Mask: 0xFF})
	im.Add(Instance{BLAS: ArenaHandle(9999), CustomIndex: 1, Mask: 0xFF}) // never registered

	addrs := map[ArenaHandle]vk.DeviceAddress{liveHandle: 0xABCD}
	buf := im.EncodeInstanceBuffer(func(h ArenaHandle) (vk.DeviceAddress, bool) {
		a, ok := addrs[h]
		return a, ok
	})

	if len(buf) != instanceRecordSize {
		t.Fatalf("expected exactly 1 encoded instance (64 bytes), got %d bytes", len(buf))
	}
	gotAddr := binary.LittleEndian.Uint64(buf[56:])
	if gotAddr != 0xABCD {
		t.Fatalf("expected device address 0xABCD, got %#x", gotAddr)
	}
	customIndexAndMask := binary.LittleEndian.Uint32(buf[48:])
	if customIndexAndMask&0xFFFFFF != 42 {
		t.Fatalf("expected custom index 42, got %d", customIndexAndMask&0xFFFFFF)
	}
	if customIndexAndMask>>24 != 0xFF {
		t.Fatalf("expected mask 0xFF, got %#x", customIndexAndMask>>24)
	}
}

func TestEncodeInstanceBufferEmpty(t *testing.T) {
	im := NewInstanceManager(NewArena())
	buf := im.EncodeInstanceBuffer(func(ArenaHandle) (vk.DeviceAddress, bool) { return 0, false })
	if len(buf) != 0 {
		t.Fatalf("expected empty buffer for zero instances, got %d bytes", len(buf))
	}
}
