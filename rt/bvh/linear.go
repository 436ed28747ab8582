package bvh

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// LinearNode is one flattened node of a CPU-built top-level BVH over
// scene-object AABBs: a median-split binary tree laid out in depth-first
// preorder (each node, then its left subtree, then its right) in a
// single buffer for upload as a software-traversable structure,
// used when no hardware acceleration-structure device is attached (the
// Builder/BLAS/TLAS types in this package require a real vk.Device).
type LinearNode struct {
	Min       mgl32.Vec3
	Max       mgl32.Vec3
	Left      int32
	Right     int32
	LeafFirst int32
	LeafCount int32
}

// linearNodeSize is the encoded byte stride of one LinearNode: two vec4s
// (min/max, w unused) plus four int32s fill the first 48 bytes and the
// remaining 16 are zero padding, matching the std430 layout a software
// traversal compute shader would bind.
const linearNodeSize = 64

func (n *LinearNode) encodeInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(n.Min.X()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(n.Min.Y()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Min.Z()))
	binary.LittleEndian.PutUint32(buf[12:16], 0)

	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(n.Max.X()))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(n.Max.Y()))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(n.Max.Z()))
	binary.LittleEndian.PutUint32(buf[28:32], 0)

	binary.LittleEndian.PutUint32(buf[32:36], uint32(n.Left))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(n.Right))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(n.LeafFirst))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(n.LeafCount))
}

type leafItem struct {
	min, max mgl32.Vec3
	centroid mgl32.Vec3
	index    int
}

// BuildLinearBVH builds a CPU top-level BVH over the given world AABBs
// using a median-split along the AABB's longest axis at each level, and
// returns the flattened node list (index 0 is the root).
func BuildLinearBVH(aabbs [][2]mgl32.Vec3) []LinearNode {
	if len(aabbs) == 0 {
		return nil
	}
	items := make([]leafItem, len(aabbs))
	for i, bounds := range aabbs {
		items[i] = leafItem{
			min:      bounds[0],
			max:      bounds[1],
			centroid: bounds[0].Add(bounds[1]).Mul(0.5),
			index:    i,
		}
	}
	var nodes []LinearNode
	buildLinearRecursive(items, &nodes)
	return nodes
}

func buildLinearRecursive(items []leafItem, nodes *[]LinearNode) int32 {
	idx := int32(len(*nodes))
	*nodes = append(*nodes, LinearNode{Left: -1, Right: -1, LeafFirst: -1})

	inf := float32(math.Inf(1))
	minB := mgl32.Vec3{inf, inf, inf}
	maxB := mgl32.Vec3{-inf, -inf, -inf}
	for _, it := range items {
		minB = mgl32.Vec3{minf(minB.X(), it.min.X()), minf(minB.Y(), it.min.Y()), minf(minB.Z(), it.min.Z())}
		maxB = mgl32.Vec3{maxf(maxB.X(), it.max.X()), maxf(maxB.Y(), it.max.Y()), maxf(maxB.Z(), it.max.Z())}
	}
	(*nodes)[idx].Min = minB
	(*nodes)[idx].Max = maxB

	if len(items) == 1 {
		(*nodes)[idx].LeafFirst = int32(items[0].index)
		(*nodes)[idx].LeafCount = 1
		return idx
	}

	extent := maxB.Sub(minB)
	axis := 0
	if extent.Y() > extent[axis] {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}
	sort.Slice(items, func(i, j int) bool { return items[i].centroid[axis] < items[j].centroid[axis] })

	mid := len(items) / 2
	left := buildLinearRecursive(items[:mid], nodes)
	right := buildLinearRecursive(items[mid:], nodes)
	(*nodes)[idx].Left = left
	(*nodes)[idx].Right = right
	return idx
}

// EncodeLinearBVH packs nodes into a single buffer, one linearNodeSize
// chunk per node, in the order BuildLinearBVH returned them (root
// first). An empty tree still encodes one zeroed node so callers always
// have a valid root to bind.
func EncodeLinearBVH(nodes []LinearNode) []byte {
	if len(nodes) == 0 {
		return make([]byte, linearNodeSize)
	}
	out := make([]byte, len(nodes)*linearNodeSize)
	for i := range nodes {
		nodes[i].encodeInto(out[i*linearNodeSize : (i+1)*linearNodeSize])
	}
	return out
}
