package bvh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuildLinearBVHTwoObjectsSplit(t *testing.T) {
	aabbs := [][2]mgl32.Vec3{
		{{-100, -1, -1}, {-98, 1, 1}},
		{{100, -1, -1}, {102, 1, 1}},
	}

	nodes := BuildLinearBVH(aabbs)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes (root + 2 leaves), got %d", len(nodes))
	}

	root := nodes[0]
	if root.Min.X() > -100 {
		t.Errorf("root min X should be <= -100, got %f", root.Min.X())
	}
	if root.Max.X() < 100 {
		t.Errorf("root max X should be >= 100, got %f", root.Max.X())
	}
	if root.Left == -1 || root.Right == -1 {
		t.Fatal("root should have both children")
	}
	if root.Left == root.Right {
		t.Error("left and right indices should differ")
	}
	if nodes[root.Left].Left != -1 || nodes[root.Right].Left != -1 {
		t.Error("both children should be leaves")
	}
}

func TestBuildLinearBVHSingleObjectIsLeafRoot(t *testing.T) {
	nodes := BuildLinearBVH([][2]mgl32.Vec3{{{0, 0, 0}, {1, 1, 1}}})
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Left != -1 || nodes[0].Right != -1 {
		t.Error("single-object root should be a leaf")
	}
	if nodes[0].LeafFirst != 0 || nodes[0].LeafCount != 1 {
		t.Errorf("leaf should reference object 0, got first=%d count=%d", nodes[0].LeafFirst, nodes[0].LeafCount)
	}
}

func TestBuildLinearBVHEmpty(t *testing.T) {
	if nodes := BuildLinearBVH(nil); nodes != nil {
		t.Errorf("expected nil for an empty AABB list, got %v", nodes)
	}
}

func TestEncodeLinearBVHEmptyStillProducesARoot(t *testing.T) {
	data := EncodeLinearBVH(nil)
	if len(data) != linearNodeSize {
		t.Fatalf("expected one zeroed node (%d bytes), got %d", linearNodeSize, len(data))
	}
}

func TestEncodeLinearBVHRoundTripsMinMax(t *testing.T) {
	nodes := BuildLinearBVH([][2]mgl32.Vec3{{{0, 0, 0}, {1, 1, 1}}})
	data := EncodeLinearBVH(nodes)
	if len(data) != linearNodeSize {
		t.Fatalf("expected %d bytes, got %d", linearNodeSize, len(data))
	}
	gotMaxX := math.Float32frombits(binary.LittleEndian.Uint32(data[16:20]))
	if gotMaxX != 1.0 {
		t.Errorf("expected encoded max X 1.0, got %f", gotMaxX)
	}
}
