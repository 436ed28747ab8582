package shaderdi

// DescriptorType enumerates the binding kinds reflection can produce.
type DescriptorType int

const (
	DescriptorSampler DescriptorType = iota
	DescriptorCombinedImageSampler
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorAccelerationStructure
)

// DescriptorBinding is one reflected (set, binding) slot.
type DescriptorBinding struct {
	Set         uint32
	Binding     uint32
	Type        DescriptorType
	Count       uint32
	StageFlags  StageMask
	ElementType string // e.g. "vec4", "uint", name of a reflected struct
}

// StageMask is a bitmask of Stage values, used for the per-binding
// stage-flag union produced when reflections from multiple stages are
// merged into one program-wide reflection.
type StageMask uint32

func (m StageMask) With(s Stage) StageMask { return m | (1 << uint(s)) }
func (m StageMask) Has(s Stage) bool       { return m&(1<<uint(s)) != 0 }

// StructMember is one member of a push-constant or vertex-input struct,
// expanded recursively for nested structs.
type StructMember struct {
	Name    string
	Offset  uint32
	Size    uint32
	Type    string
	Members []StructMember // non-empty for nested struct members
}

// PushConstantRange is one reflected push-constant block.
type PushConstantRange struct {
	Offset     uint32
	Size       uint32
	StageFlags StageMask
	Members    []StructMember
}

// VertexInput is one reflected vertex shader input attribute.
type VertexInput struct {
	Location uint32
	Format   string
	Name     string
}

// SpecConstant is one reflected specialization constant.
type SpecConstant struct {
	ConstantID uint32
	Name       string
	Type       string
	Default    any
}

// Reflection is the merged, program-wide reflection across every stage
// in a bundle: descriptor bindings (deduplicated by set/binding with
// stage flags unioned), push-constant ranges, vertex inputs, and
// specialization constants.
type Reflection struct {
	Descriptors   []DescriptorBinding
	PushConstants []PushConstantRange
	VertexInputs  []VertexInput
	SpecConstants []SpecConstant
}

// Merge combines other into r, unioning stage flags for any descriptor
// binding already present at the same (set, binding) and appending
// everything else. Used to fold single-stage reflections from the
// external compiler/reflector into one bundle-wide Reflection.
func (r *Reflection) Merge(other Reflection, stage Stage) {
	for _, d := range other.Descriptors {
		merged := false
		for i := range r.Descriptors {
			if r.Descriptors[i].Set == d.Set && r.Descriptors[i].Binding == d.Binding {
				r.Descriptors[i].StageFlags = r.Descriptors[i].StageFlags.With(stage)
				merged = true
				break
			}
		}
		if !merged {
			d.StageFlags = d.StageFlags.With(stage)
			r.Descriptors = append(r.Descriptors, d)
		}
	}
	for _, pc := range other.PushConstants {
		pc.StageFlags = pc.StageFlags.With(stage)
		r.PushConstants = append(r.PushConstants, pc)
	}
	r.VertexInputs = append(r.VertexInputs, other.VertexInputs...)
	r.SpecConstants = append(r.SpecConstants, other.SpecConstants...)
}

// Reflector produces a single-stage Reflection from compiled SPIR-V. The
// real implementation (spirv-cross or similar) is an external
// collaborator per spec §1; this type is the seam it plugs into.
type Reflector interface {
	Reflect(spirv []uint32, stage Stage) (Reflection, error)
}

// ReflectFunc adapts a plain function to the Reflector interface.
type ReflectFunc func([]uint32, Stage) (Reflection, error)

func (f ReflectFunc) Reflect(spirv []uint32, stage Stage) (Reflection, error) {
	return f(spirv, stage)
}
