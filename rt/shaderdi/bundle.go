package shaderdi

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Bundle is the move-only ShaderDataBundle (spec §3.7): compiled SPIR-V
// per stage, the merged reflection, a descriptor-layout-derived binding
// table, a UUID, a generated binding-ABI header path, and the two
// content hashes used for caching and hot-reload classification.
//
// Go has no move-only types; the "move-only across all APIs" contract
// from spec §4.6 is realized as the Take() method: once a Bundle has
// been Taken, a second Take on it panics, so handing the same bundle to
// two owners through Take fails loudly. Field access and the package
// functions that read a Bundle do not check whether it was Taken.
// Grounded on the
// spec's explicit "single-owner value with explicit transfer points"
// redesign note (§9).
type Bundle struct {
	UUID     uuid.UUID
	Stages   []StageModule
	Reflect  Reflection
	Binding  BindingTable
	ABIPath  string

	InterfaceHash           string
	DescriptorInterfaceHash string

	taken bool
}

// Take transfers ownership of b to the caller: it returns a copy of b
// and marks b as taken, so a second Take on b panics. b's other fields
// are left as they were.
func (b *Bundle) Take() *Bundle {
	if b.taken {
		panic("shaderdi: bundle already taken")
	}
	moved := *b
	b.taken = true
	return &moved
}

// computeInterfaceHash hashes every stage's SPIR-V words, little-endian,
// in stage declaration order. Classify compares it to detect a SPIR-V
// change; the compile cache itself is keyed by cacheKey (spec §3.7,
// §4.6).
func computeInterfaceHash(stages []StageModule) string {
	h := sha256.New()
	for _, s := range stages {
		buf := make([]byte, 4)
		for _, w := range s.SPIRV {
			binary.LittleEndian.PutUint32(buf, w)
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// computeDescriptorInterfaceHash covers descriptors, push constants,
// vertex inputs, struct layouts and names, but deliberately excludes
// bundle identity (UUID) and timestamps — two bundles compiled from
// source that only differs in a shader constant, but whose descriptor
// layout is unchanged, must hash identically here (spec §4.6's
// hot-swap-safe classification, tested by scenario S7).
func computeDescriptorInterfaceHash(r Reflection) string {
	h := sha256.New()

	descs := append([]DescriptorBinding(nil), r.Descriptors...)
	sort.Slice(descs, func(i, j int) bool {
		if descs[i].Set != descs[j].Set {
			return descs[i].Set < descs[j].Set
		}
		return descs[i].Binding < descs[j].Binding
	})
	for _, d := range descs {
		fmt.Fprintf(h, "d:%d:%d:%d:%d:%s;", d.Set, d.Binding, d.Type, d.Count, d.ElementType)
	}

	pcs := append([]PushConstantRange(nil), r.PushConstants...)
	sort.Slice(pcs, func(i, j int) bool { return pcs[i].Offset < pcs[j].Offset })
	for _, pc := range pcs {
		fmt.Fprintf(h, "p:%d:%d;", pc.Offset, pc.Size)
		writeMembers(h, pc.Members)
	}

	vs := append([]VertexInput(nil), r.VertexInputs...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].Location < vs[j].Location })
	for _, v := range vs {
		fmt.Fprintf(h, "v:%d:%s:%s;", v.Location, v.Format, v.Name)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeMembers(h interface{ Write([]byte) (int, error) }, members []StructMember) {
	for _, m := range members {
		fmt.Fprintf(h, "m:%d:%d:%s:%s;", m.Offset, m.Size, m.Type, m.Name)
		if len(m.Members) > 0 {
			writeMembers(h, m.Members)
		}
	}
}

// HotSwapClass classifies what changed between two Bundles compiled
// from the same logical shader, per spec §4.6.
type HotSwapClass int

const (
	// ClassNoChange: both hashes identical, nothing to do.
	ClassNoChange HotSwapClass = iota
	// ClassSafeHotSwap: only SPIR-V changed; pipeline rebuild with no
	// downstream invalidation.
	ClassSafeHotSwap
	// ClassVertexInputsChanged: any pipeline consuming these vertex
	// inputs must rebuild.
	ClassVertexInputsChanged
	// ClassLayoutChanged: descriptor or push-constant layout changed;
	// downstream pipeline-layout-dependent resources must rebuild.
	ClassLayoutChanged
)

// Classify compares prev and next (same logical shader, two compiles)
// and reports what downstream invalidation, if any, is required.
func Classify(prev, next *Bundle) HotSwapClass {
	if prev.InterfaceHash == next.InterfaceHash {
		return ClassNoChange
	}
	if prev.DescriptorInterfaceHash != next.DescriptorInterfaceHash {
		if vertexInputsDiffer(prev.Reflect.VertexInputs, next.Reflect.VertexInputs) {
			return ClassVertexInputsChanged
		}
		return ClassLayoutChanged
	}
	return ClassSafeHotSwap
}

func vertexInputsDiffer(a, b []VertexInput) bool {
	if len(a) != len(b) {
		return true
	}
	key := func(vs []VertexInput) map[uint32]VertexInput {
		m := make(map[uint32]VertexInput, len(vs))
		for _, v := range vs {
			m[v.Location] = v
		}
		return m
	}
	am, bm := key(a), key(b)
	for loc, va := range am {
		vb, ok := bm[loc]
		if !ok || vb.Format != va.Format {
			return true
		}
	}
	return false
}
