package esvo

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SMax is the traversal stack depth: chosen so that the scale value fits
// in a float32 exponent.
const SMax = 23

// MaxIters bounds the DFS loop; exceeding it is reported as a miss rather
// than looping forever.
const MaxIters = 512

// MaxBrickSteps bounds the per-leaf Amanatides-Woo DDA march.
const MaxBrickSteps = 300

// DirEpsilon is the minimum magnitude a ray direction component is
// clamped to, avoiding singular plane equations on axis-aligned rays.
const DirEpsilon = 1e-5

// HitKind classifies a traversal result.
type HitKind int

const (
	Miss HitKind = iota
	HitVoxel
	HitLOD
)

// Sample is what a leaf lookup yields: either a raw material ID
// (uncompressed bricks) or a decoded color/normal pair (compressed
// bricks, DXT1 color + DXT normal).
type Sample struct {
	Material   uint8
	Color      [3]float32
	Normal     mgl32.Vec3
	Compressed bool
}

// BrickSource is implemented by the brick package's uncompressed and
// compressed brick models; the DDA stepper only needs occupancy and
// per-voxel sampling.
type BrickSource interface {
	Occupied(brickIndex uint32, x, y, z int) bool
	Sample(brickIndex uint32, x, y, z int) Sample
}

// Config is the subset of the octree config the kernel needs; it mirrors
// core.OctreeConfig's ESVO-scale fields without importing core (avoiding
// an esvo<->core import cycle, since core also wants to reference esvo
// buffer layouts for encode helpers).
type Config struct {
	ESVOMaxScale int32
}

// Ray is a traversal request in the octree's local [0,1]^3 space (already
// transformed from world space by worldToLocal on the caller's side).
// SizeCoef/SizeBias enable the optional LOD cutoff; both zero disables it.
type Ray struct {
	Origin   mgl32.Vec3
	Dir      mgl32.Vec3
	SizeCoef float32
	SizeBias float32
}

// Result is the outcome of a single traversal call.
type Result struct {
	Kind       HitKind
	T          float32
	Position   mgl32.Vec3
	Normal     mgl32.Vec3
	Sample     Sample
	BrickIndex uint32
	Iterations int
}

type stackEntry struct {
	parentPtr uint32
	tMax      float32
}

// Traverse runs the three-phase ESVO DFS (PUSH/ADVANCE/POP) over nodes,
// starting from the root at index 0, and resolves a brick hit through
// src when a leaf descriptor is reached. It reproduces Laine & Karras
// (2010): rays are mirrored into the "all negative direction" octant via
// octant_mask so a single code path handles every real octant.
func Traverse(nodes []Descriptor, cfg Config, ray Ray, src BrickSource) Result {
	origin := ray.Origin.Add(mgl32.Vec3{1, 1, 1})
	dir := ray.Dir

	var coef, bias [3]float32
	octantMask := uint32(7)
	for i := 0; i < 3; i++ {
		d := dir[i]
		if d > -DirEpsilon && d < DirEpsilon {
			if d < 0 {
				d = -DirEpsilon
			} else {
				d = DirEpsilon
			}
		}
		c := 1.0 / -absf(d)
		b := c * origin[i]
		if d > 0 {
			octantMask &^= 1 << uint(i)
			b = 3*c - b
		}
		coef[i] = c
		bias[i] = b
	}

	tMin := maxf3(2*coef[0]-bias[0], 2*coef[1]-bias[1], 2*coef[2]-bias[2])
	tMax := minf3(coef[0]-bias[0], coef[1]-bias[1], coef[2]-bias[2])

	insideUnitCube := ray.Origin.X() >= 0 && ray.Origin.X() <= 1 &&
		ray.Origin.Y() >= 0 && ray.Origin.Y() <= 1 &&
		ray.Origin.Z() >= 0 && ray.Origin.Z() <= 1
	if insideUnitCube {
		tMin = 0
	}
	if tMin > tMax {
		return Result{Kind: Miss}
	}

	scale := cfg.ESVOMaxScale
	scaleExp2 := exp2OfScale(scale, cfg.ESVOMaxScale)
	pos := [3]float32{1, 1, 1}
	idx := uint32(0)
	for i := 0; i < 3; i++ {
		center := 1.5*coef[i] - bias[i]
		if center > tMin {
			idx ^= 1 << uint(i)
			pos[i] = 1.5
		}
	}

	var stack [SMax]stackEntry
	parentPtr := uint32(0)
	h := tMax
	iterations := 0

	for scale <= cfg.ESVOMaxScale {
		iterations++
		if iterations > MaxIters {
			return Result{Kind: Miss, Iterations: iterations}
		}
		if int(parentPtr) >= len(nodes) {
			return Result{Kind: Miss, Iterations: iterations}
		}
		desc := nodes[parentPtr]
		if parentPtr == 0 && desc.ValidMask() == 0 {
			// An empty root has no child to visit.
			return Result{Kind: Miss, Iterations: iterations}
		}

		txCorner := pos[0]*coef[0] - bias[0]
		tyCorner := pos[1]*coef[1] - bias[1]
		tzCorner := pos[2]*coef[2] - bias[2]
		tcMax := minf3(txCorner, tyCorner, tzCorner)

		childOctant := MirroredToLocal(idx, octantMask)
		childValid := desc.ChildExists(childOctant) && tMin <= tMax

		if childValid {
			tvMax := minf(tMax, tcMax)
			if tMin <= tvMax {
				// The LOD cutoff is evaluated before descending into a child
				// at all, leaf or internal: a leaf small enough to trip the
				// cutoff reports HitLOD instead of paying for a full brick
				// DDA (the kernel terminates "at any node" for which the
				// test holds).
				if ray.SizeCoef != 0 || ray.SizeBias != 0 {
					if tcMax*ray.SizeCoef+ray.SizeBias >= scaleExp2 {
						return Result{Kind: HitLOD, T: tMin, Iterations: iterations}
					}
				}

				if desc.IsLeaf(childOctant) {
					base := resolveChildBase(nodes, parentPtr, desc)
					leafIdx := desc.ChildArrayIndex(childOctant)
					if int(base+leafIdx) >= len(nodes) {
						return Result{Kind: Miss, Iterations: iterations}
					}
					leaf := nodes[base+leafIdx]
					return resolveLeafHit(leaf, ray, origin, dir, octantMask, pos, scaleExp2, tMin, src, iterations)
				}

				if tcMax < h {
					stack[scale] = stackEntry{parentPtr, tMax}
				}
				h = tcMax

				base := resolveChildBase(nodes, parentPtr, desc)
				childIdx := desc.ChildArrayIndex(childOctant)
				newParentPtr := base + childIdx

				idx = 0
				scale--
				scaleExp2 *= 0.5
				half := scaleExp2
				txCenter := half*coef[0] + txCorner
				tyCenter := half*coef[1] + tyCorner
				tzCenter := half*coef[2] + tzCorner
				if txCenter > tMin {
					idx ^= 1
					pos[0] += scaleExp2
				}
				if tyCenter > tMin {
					idx ^= 2
					pos[1] += scaleExp2
				}
				if tzCenter > tMin {
					idx ^= 4
					pos[2] += scaleExp2
				}

				parentPtr = newParentPtr
				tMax = tvMax
				continue
			}
		}

		// ADVANCE
		stepMask := uint32(0)
		if txCorner <= tcMax {
			stepMask ^= 1
			pos[0] -= scaleExp2
		}
		if tyCorner <= tcMax {
			stepMask ^= 2
			pos[1] -= scaleExp2
		}
		if tzCorner <= tcMax {
			stepMask ^= 4
			pos[2] -= scaleExp2
		}

		tMin = tcMax
		idx ^= stepMask

		if idx&stepMask != 0 {
			// POP
			var differing uint32
			if stepMask&1 != 0 {
				differing |= floatBits(pos[0]) ^ floatBits(pos[0]+scaleExp2)
			}
			if stepMask&2 != 0 {
				differing |= floatBits(pos[1]) ^ floatBits(pos[1]+scaleExp2)
			}
			if stepMask&4 != 0 {
				differing |= floatBits(pos[2]) ^ floatBits(pos[2]+scaleExp2)
			}
			if differing == 0 {
				return Result{Kind: Miss, Iterations: iterations}
			}
			// The exponent of the differing bits is a mantissa bit position
			// in [1,2); a cell of size 2^(scale-ESVOMaxScale-1) sits at bit
			// scale-ESVOMaxScale+22, so convert between the two.
			bitPos := int32(floatBits(float32(differing))>>23) - 127
			newScale := bitPos - (SMax - 1) + cfg.ESVOMaxScale
			if newScale < 0 || newScale > cfg.ESVOMaxScale || int(newScale) >= len(stack) {
				return Result{Kind: Miss, Iterations: iterations}
			}
			scale = newScale
			scaleExp2 = bitsToFloat(uint32((scale-cfg.ESVOMaxScale-1+127)&0xFF) << 23)

			entry := stack[scale]
			parentPtr = entry.parentPtr
			tMax = entry.tMax

			shx := int32(floatBits(pos[0])) >> uint(bitPos)
			shy := int32(floatBits(pos[1])) >> uint(bitPos)
			shz := int32(floatBits(pos[2])) >> uint(bitPos)
			pos[0] = bitsToFloat(uint32(shx) << uint(bitPos))
			pos[1] = bitsToFloat(uint32(shy) << uint(bitPos))
			pos[2] = bitsToFloat(uint32(shz) << uint(bitPos))
			idx = uint32(shx&1) | uint32((shy&1)<<1) | uint32((shz&1)<<2)

			h = 0
		}
	}

	return Result{Kind: Miss, Iterations: iterations}
}

// resolveChildBase computes the absolute node-buffer index of the first
// child of parentPtr's descriptor, following the far-pointer indirection
// when farBit is set: the far slot holds the absolute base as a raw
// uint32 in its first word.
func resolveChildBase(nodes []Descriptor, parentIdx uint32, desc Descriptor) uint32 {
	base := parentIdx + desc.ChildPointer()
	if desc.FarBit() && int(base) < len(nodes) {
		return nodes[base].Lo
	}
	return base
}

func resolveLeafHit(leaf Descriptor, ray Ray, origin, dir mgl32.Vec3, octantMask uint32, pos [3]float32, scaleExp2, t float32, src BrickSource, iterations int) Result {
	brickIndex := leaf.BrickIndex()
	if brickIndex == BrickIndexNone || src == nil {
		return Result{Kind: Miss, Iterations: iterations}
	}

	hitLocal12 := origin.Add(dir.Mul(t))
	hitLocal01 := hitLocal12.Sub(mgl32.Vec3{1, 1, 1})

	cubeSize01 := 2 * scaleExp2
	var realMin01 mgl32.Vec3
	for i := 0; i < 3; i++ {
		if octantMask&(1<<uint(i)) == 0 {
			realMin01[i] = 3.0 - pos[i] - cubeSize01 - 1.0
		} else {
			realMin01[i] = pos[i] - 1.0
		}
	}

	var brickLocal mgl32.Vec3
	for i := 0; i < 3; i++ {
		frac := (hitLocal01[i] - realMin01[i]) / cubeSize01
		brickLocal[i] = clampf(frac, 0, 0.999999) * 8
	}

	hit, sample, normal, tLocal := brickDDA(src, brickIndex, brickLocal, dir)
	if !hit {
		return Result{Kind: Miss, Iterations: iterations}
	}

	worldNormal := unmirrorNormal(normal, octantMask)
	return Result{
		Kind:       HitVoxel,
		T:          t + tLocal*cubeSize01/8,
		Position:   hitLocal01,
		Normal:     worldNormal,
		Sample:     sample,
		BrickIndex: brickIndex,
		Iterations: iterations,
	}
}

// unmirrorNormal flips the sign of each normal component whose axis was
// mirrored during traversal, the single fact (bit=0 => axis mirrored)
// used throughout to undo mirroring at the very end.
func unmirrorNormal(n mgl32.Vec3, octantMask uint32) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		if octantMask&(1<<uint(i)) == 0 {
			n[i] = -n[i]
		}
	}
	return n
}

// brickDDA marches an Amanatides-Woo grid traversal through an 8x8x8
// brick starting at entry (brick-local coordinates in [0,8)^3), stopping
// at the first occupied voxel or MaxBrickSteps, whichever comes first.
func brickDDA(src BrickSource, brickIndex uint32, entry mgl32.Vec3, dir mgl32.Vec3) (bool, Sample, mgl32.Vec3, float32) {
	ix, iy, iz := clampVoxel(int(entry.X())), clampVoxel(int(entry.Y())), clampVoxel(int(entry.Z()))

	type axisState struct {
		step          int
		tMax, tDelta  float32
	}
	axes := make([]axisState, 3)
	coords := [3]float32{entry.X(), entry.Y(), entry.Z()}
	cells := [3]int{ix, iy, iz}
	for i := 0; i < 3; i++ {
		d := dir[i]
		switch {
		case d > 0:
			axes[i] = axisState{1, (float32(cells[i]+1) - coords[i]) / d, 1 / d}
		case d < 0:
			axes[i] = axisState{-1, (coords[i] - float32(cells[i])) / -d, 1 / -d}
		default:
			axes[i] = axisState{0, float32(math.Inf(1)), float32(math.Inf(1))}
		}
	}

	if src.Occupied(brickIndex, ix, iy, iz) {
		return true, src.Sample(brickIndex, ix, iy, iz), fallbackNormal(dir), 0
	}

	for step := 0; step < MaxBrickSteps; step++ {
		axis := 0
		if axes[1].tMax < axes[axis].tMax {
			axis = 1
		}
		if axes[2].tMax < axes[axis].tMax {
			axis = 2
		}

		tEnter := axes[axis].tMax
		cells[axis] += axes[axis].step
		axes[axis].tMax += axes[axis].tDelta

		if cells[0] < 0 || cells[0] >= 8 || cells[1] < 0 || cells[1] >= 8 || cells[2] < 0 || cells[2] >= 8 {
			return false, Sample{}, mgl32.Vec3{}, 0
		}
		if src.Occupied(brickIndex, cells[0], cells[1], cells[2]) {
			sample := src.Sample(brickIndex, cells[0], cells[1], cells[2])
			normal := mgl32.Vec3{}
			normal[axis] = float32(-axes[axis].step)
			return true, sample, normal, tEnter
		}
	}
	return false, Sample{}, mgl32.Vec3{}, 0
}

func fallbackNormal(dir mgl32.Vec3) mgl32.Vec3 {
	// Entry-voxel hit has no step axis; fall back to the dominant ray
	// direction component so the normal is never null.
	ax, ay, az := absf(dir.X()), absf(dir.Y()), absf(dir.Z())
	n := mgl32.Vec3{}
	switch {
	case ax >= ay && ax >= az:
		n[0] = -signf(dir.X())
	case ay >= az:
		n[1] = -signf(dir.Y())
	default:
		n[2] = -signf(dir.Z())
	}
	return n
}

func clampVoxel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 7 {
		return 7
	}
	return v
}

func exp2OfScale(scale, esvoMaxScale int32) float32 {
	return bitsToFloat(uint32((scale-esvoMaxScale-1+127)&0xFF) << 23)
}

func floatBits(f float32) uint32    { return math.Float32bits(f) }
func bitsToFloat(b uint32) float32  { return math.Float32frombits(b) }
func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
func signf(v float32) float32 {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
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
func minf3(a, b, c float32) float32 { return minf(minf(a, b), c) }
func maxf3(a, b, c float32) float32 { return maxf(maxf(a, b), c) }
func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
