package brick

import (
	"math"
	"testing"

	"golang.org/x/image/colornames"
)

// Invariant 3: decoded RGB is within [0,1]^3 for every block and texel.
func TestDecodeColorRange(t *testing.T) {
	c := NewCompressed(1)
	c.EncodeUniformColor(0, 200, 100, 50)
	for block := 0; block < 32; block++ {
		for texel := 0; texel < 16; texel++ {
			col := c.DecodeColor(0, block, texel)
			for _, ch := range col {
				if ch < 0 || ch > 1 {
					t.Fatalf("block=%d texel=%d channel=%f out of [0,1]", block, texel, ch)
				}
			}
		}
	}
}

// Invariant 4: decoded normal, after normalization, has unit length
// within 1e-3 for all 16 texels of a block.
func TestDecodeNormalUnitLength(t *testing.T) {
	c := NewCompressed(1)
	for block := 0; block < 32; block++ {
		for texel := 0; texel < 16; texel++ {
			n := c.DecodeNormal(0, block, texel)
			length := float64(n.Len())
			if math.Abs(length-1.0) > 1e-3 {
				t.Fatalf("block=%d texel=%d: length=%f", block, texel, length)
			}
		}
	}
}

// Invariant 5 (compressed leg): a uniform solid-color brick decodes to a
// color within 2/255 of the reference, plus a 0.02 allowance for RGB-565
// quantization, across every texel. Reference
// colors are drawn from golang.org/x/image/colornames so the fixtures
// are recognizable swatches rather than arbitrary triples.
func TestRoundTripUniformColor(t *testing.T) {
	swatches := []struct {
		name    string
		r, g, b uint8
	}{
		{"cornflowerblue", colornames.Cornflowerblue.R, colornames.Cornflowerblue.G, colornames.Cornflowerblue.B},
		{"firebrick", colornames.Firebrick.R, colornames.Firebrick.G, colornames.Firebrick.B},
		{"forestgreen", colornames.Forestgreen.R, colornames.Forestgreen.G, colornames.Forestgreen.B},
	}

	for _, sw := range swatches {
		t.Run(sw.name, func(t *testing.T) {
			c := NewCompressed(1)
			c.EncodeUniformColor(0, sw.r, sw.g, sw.b)
			ref := [3]float32{float32(sw.r) / 255.0, float32(sw.g) / 255.0, float32(sw.b) / 255.0}

			for block := 0; block < 32; block++ {
				for texel := 0; texel < 16; texel++ {
					col := c.DecodeColor(0, block, texel)
					for i := range col {
						diff := col[i] - ref[i]
						if diff < 0 {
							diff = -diff
						}
						if diff > 2.0/255.0+0.02 { // 565 quantization tolerance
							t.Fatalf("block=%d texel=%d channel=%d: got %f want %f", block, texel, i, col[i], ref[i])
						}
					}
				}
			}
		})
	}
}

func TestBlockAndTexelMapping(t *testing.T) {
	cases := []struct {
		linear, block, texel int
	}{
		{0, 0, 0},
		{15, 0, 15},
		{16, 1, 0},
		{511, 31, 15},
	}
	for _, c := range cases {
		block, texel := BlockAndTexel(c.linear)
		if block != c.block || texel != c.texel {
			t.Errorf("BlockAndTexel(%d) = (%d,%d), want (%d,%d)", c.linear, block, texel, c.block, c.texel)
		}
	}
}
