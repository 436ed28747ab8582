package core

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/esvo/rt/esvo"
)

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Dirty    bool
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Dirty:    true,
	}
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (t *Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	// Since we know component matrices, we can invert them cheaply.

	// Inverse Scale
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())

	// Inverse Rotation: Conjugate/Transpose for unit quat
	invRotate := t.Rotation.Conjugate().Mat4()

	// Inverse Translate
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// RayToLocal transforms a world-space ray into this object's local
// space via WorldToObject — the "rays are transformed by worldToLocal
// into the unit cube" step spec §4.1 requires before an ESVO node
// buffer rooted at this transform can be traversed.
func (t *Transform) RayToLocal(worldOrigin, worldDir mgl32.Vec3) esvo.Ray {
	m := t.WorldToObject()
	origin := m.Mul4x1(worldOrigin.Vec4(1.0)).Vec3()
	dir := m.Mul4x1(worldDir.Vec4(0.0)).Vec3().Normalize()
	return esvo.Ray{Origin: origin, Dir: dir}
}
