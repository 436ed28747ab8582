package shaderdi

import (
	"fmt"
	"sort"
	"strings"
)

// BindingSite names one binding-site -> (set, binding, type) mapping in
// the generated SDI binding ABI, the form graph pipeline-building nodes
// consume directly and the persisted-state text artifact serializes.
type BindingSite struct {
	Name    string
	Set     uint32
	Binding uint32
	Type    DescriptorType
}

// PushConstantMemberSite names one push-constant member's (offset, size,
// type) in the generated ABI.
type PushConstantMemberSite struct {
	Name   string
	Offset uint32
	Size   uint32
	Type   string
}

// BindingTable is the SDI binding ABI generated from a bundle's merged
// Reflection: named constants for every binding site and push-constant
// member, plus the descriptor-only hash used to detect a safe
// hot-swap vs. a layout change.
type BindingTable struct {
	Bindings      []BindingSite
	PushConstants []PushConstantMemberSite
	LayoutHash    string
}

// GenerateSDI builds a BindingTable from a merged Reflection, naming
// each binding site "set<S>_binding<B>" and each push-constant member by
// its reflected name (falling back to an offset-derived name if the
// reflector didn't supply one).
func GenerateSDI(r Reflection, descriptorInterfaceHash string) BindingTable {
	bt := BindingTable{LayoutHash: descriptorInterfaceHash}
	for _, d := range r.Descriptors {
		bt.Bindings = append(bt.Bindings, BindingSite{
			Name:    fmt.Sprintf("set%d_binding%d", d.Set, d.Binding),
			Set:     d.Set,
			Binding: d.Binding,
			Type:    d.Type,
		})
	}
	sort.Slice(bt.Bindings, func(i, j int) bool {
		if bt.Bindings[i].Set != bt.Bindings[j].Set {
			return bt.Bindings[i].Set < bt.Bindings[j].Set
		}
		return bt.Bindings[i].Binding < bt.Bindings[j].Binding
	})

	for _, pc := range r.PushConstants {
		flattenPushConstantMembers(&bt.PushConstants, pc.Members, pc.Offset)
	}
	return bt
}

func flattenPushConstantMembers(out *[]PushConstantMemberSite, members []StructMember, baseOffset uint32) {
	for _, m := range members {
		if len(m.Members) > 0 {
			flattenPushConstantMembers(out, m.Members, baseOffset+m.Offset)
			continue
		}
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("offset%d", baseOffset+m.Offset)
		}
		*out = append(*out, PushConstantMemberSite{
			Name:   name,
			Offset: baseOffset + m.Offset,
			Size:   m.Size,
			Type:   m.Type,
		})
	}
}

// String renders the stable text artifact: every binding with (set,
// binding, numeric descriptor type) and every push-constant member with (offset,
// size, type), plus the layout hash — the persisted-state form spec §6
// describes for the generated binding-ABI header.
func (bt BindingTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// SDI binding ABI, layout_hash=%s\n", bt.LayoutHash)
	for _, bs := range bt.Bindings {
		fmt.Fprintf(&b, "binding %s set=%d binding=%d type=%d\n", bs.Name, bs.Set, bs.Binding, bs.Type)
	}
	for _, pc := range bt.PushConstants {
		fmt.Fprintf(&b, "push_constant %s offset=%d size=%d type=%s\n", pc.Name, pc.Offset, pc.Size, pc.Type)
	}
	return b.String()
}
