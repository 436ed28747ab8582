package core

import "github.com/go-gl/mathgl/mgl32"

// AABBInFrustum tests an object-space-computed world AABB against the six
// frustum planes returned by CameraState.ExtractFrustum. Planes point
// inward; an AABB is outside iff its most-positive corner along some
// plane's normal still has a negative signed distance.
func AABBInFrustum(aabb [2]mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	for i := 0; i < 6; i++ {
		plane := planes[i]
		var p mgl32.Vec3
		if plane[0] > 0 {
			p[0] = aabb[1][0]
		} else {
			p[0] = aabb[0][0]
		}
		if plane[1] > 0 {
			p[1] = aabb[1][1]
		} else {
			p[1] = aabb[0][1]
		}
		if plane[2] > 0 {
			p[2] = aabb[1][2]
		} else {
			p[2] = aabb[0][2]
		}
		dist := plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3]
		if dist < 0 {
			return false
		}
	}
	return true
}

// IsOccluded conservatively tests a world AABB against a Hi-Z depth buffer
// sampled from the previous frame's view-projection matrix. hizData holds
// linear ray-distance values at w x h resolution; the AABB is reported
// occluded only when its nearest corner is farther than every occluder
// sample within its projected screen-space footprint.
func IsOccluded(aabb [2]mgl32.Vec3, hizData []float32, w, h uint32, viewProj mgl32.Mat4) bool {
	corners := [8]mgl32.Vec3{
		{aabb[0].X(), aabb[0].Y(), aabb[0].Z()},
		{aabb[1].X(), aabb[0].Y(), aabb[0].Z()},
		{aabb[0].X(), aabb[1].Y(), aabb[0].Z()},
		{aabb[1].X(), aabb[1].Y(), aabb[0].Z()},
		{aabb[0].X(), aabb[0].Y(), aabb[1].Z()},
		{aabb[1].X(), aabb[0].Y(), aabb[1].Z()},
		{aabb[0].X(), aabb[1].Y(), aabb[1].Z()},
		{aabb[1].X(), aabb[1].Y(), aabb[1].Z()},
	}

	minP := mgl32.Vec3{1, 1, 1}
	maxP := mgl32.Vec3{-1, -1, 0}
	minZ := float32(1e20)

	for _, c := range corners {
		clip := viewProj.Mul4x1(c.Vec4(1.0))
		if clip.W() <= 0 {
			// Intersects the near plane: conservatively visible.
			return false
		}
		ndc := clip.Vec3().Mul(1.0 / clip.W())
		u := ndc.X()*0.5 + 0.5
		v := -ndc.Y()*0.5 + 0.5

		minP[0] = minf(minP[0], u)
		minP[1] = minf(minP[1], v)
		maxP[0] = maxf(maxP[0], u)
		maxP[1] = maxf(maxP[1], v)
		minZ = minf(minZ, clip.W())
	}

	minP[0] = maxf(minP[0], 0)
	minP[1] = maxf(minP[1], 0)
	maxP[0] = minf(maxP[0], 1)
	maxP[1] = minf(maxP[1], 1)
	if minP[0] >= maxP[0] || minP[1] >= maxP[1] {
		return false
	}

	startX := uint32(minP[0] * float32(w))
	startY := uint32(minP[1] * float32(h))
	endX := uint32(maxP[0] * float32(w))
	endY := uint32(maxP[1] * float32(h))
	if endX >= w {
		endX = w - 1
	}
	if endY >= h {
		endY = h - 1
	}
	if startX >= w {
		startX = w - 1
	}
	if startY >= h {
		startY = h - 1
	}
	if startX > endX || startY > endY {
		return false
	}

	maxOccluderDepth := float32(0.0)
	for y := startY; y <= endY; y++ {
		row := y * w
		for x := startX; x <= endX; x++ {
			if d := hizData[row+x]; d > maxOccluderDepth {
				maxOccluderDepth = d
			}
		}
	}

	return minZ > maxOccluderDepth
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// CullSet holds the subset of scene objects surviving frustum and Hi-Z
// occlusion culling for the current frame, consumed by the scene-binding
// graph node before traversal nodes execute.
type CullSet struct {
	Visible []int // indices into the scene's object list
}

// Cull runs frustum culling followed by Hi-Z occlusion culling over the
// given world AABBs, in that order — frustum rejection is cheap and
// removes most objects before the Hi-Z sampling cost is paid.
func Cull(aabbs [][2]mgl32.Vec3, planes [6]mgl32.Vec4, hizData []float32, w, h uint32, viewProj mgl32.Mat4) *CullSet {
	cs := &CullSet{}
	for i, aabb := range aabbs {
		if !AABBInFrustum(aabb, planes) {
			continue
		}
		if hizData != nil && IsOccluded(aabb, hizData, w, h, viewProj) {
			continue
		}
		cs.Visible = append(cs.Visible, i)
	}
	return cs
}
