package simd

import (
	"math"
	"testing"
)

func TestMaskOps(t *testing.T) {
	m := MaskAll[F4]()
	if m != 0xf {
		t.Fatalf("expected mask 0xf; got 0x%x", uint32(m))
	}
	if !m.Lane(3) {
		t.Fatalf("expected lane 3 to be set")
	}

	m = m.Clear(1)
	if m.Lane(1) {
		t.Fatalf("expected lane 1 to be cleared")
	}
	if m != 0xd {
		t.Fatalf("expected mask 0xd; got 0x%x", uint32(m))
	}

	if MaskAll[F8]() != 0xff {
		t.Fatalf("expected mask 0xff; got 0x%x", uint32(MaskAll[F8]()))
	}
}

func TestXorSign(t *testing.T) {
	a := F4{1, -2, 3, -4}
	sgn := F4{-1, -1, 1, 1}

	out := XorSign(a, sgn)
	exp := F4{-1, 2, 3, -4}
	if out != exp {
		t.Fatalf("expected %v; got %v", exp, out)
	}

	// Negative zero must still flip signs.
	out = XorSign(F4{1, 1, 1, 1}, F4{float32(math.Copysign(0, -1)), 0, -0.0, 2})
	if out[0] != -1 {
		t.Fatalf("expected -0 to flip the sign; got %v", out[0])
	}
}

func TestMinMaxNaN(t *testing.T) {
	nan := float32(math.NaN())

	// A NaN in the second operand must not propagate: "b < a" is false
	// for NaN, so the first operand wins.
	out := Min(F4{1, 2, 3, 4}, F4{nan, 1, nan, 5})
	if out[0] != 1 || out[2] != 3 {
		t.Fatalf("expected NaN lanes to resolve to the first operand; got %v", out)
	}

	out = Max(F4{1, 2, 3, 4}, F4{nan, 5, nan, 1})
	if out[0] != 1 || out[2] != 3 {
		t.Fatalf("expected NaN lanes to resolve to the first operand; got %v", out)
	}
}

func TestCompares(t *testing.T) {
	a := F4{1, 2, 3, 4}
	b := F4{2, 2, 2, 2}

	if m := CmpLT(a, b); m != 0x1 {
		t.Fatalf("expected mask 0x1; got 0x%x", uint32(m))
	}
	if m := CmpLE(a, b); m != 0x3 {
		t.Fatalf("expected mask 0x3; got 0x%x", uint32(m))
	}
	if m := CmpGT(a, b); m != 0xc {
		t.Fatalf("expected mask 0xc; got 0x%x", uint32(m))
	}
	if m := CmpGE(a, b); m != 0xe {
		t.Fatalf("expected mask 0xe; got 0x%x", uint32(m))
	}
	if m := CmpNE(a, b); m != 0xd {
		t.Fatalf("expected mask 0xd; got 0x%x", uint32(m))
	}

	// NaN fails every comparison.
	nan := Splat[F4](float32(math.NaN()))
	if m := CmpLE(nan, b) | CmpGE(nan, b); m != 0 {
		t.Fatalf("expected NaN lanes to fail all comparisons; got 0x%x", uint32(m))
	}
}

func TestSelectMin(t *testing.T) {
	v := F4{4, 1, 2, 3}

	if i := SelectMin(MaskAll[F4](), v); i != 1 {
		t.Fatalf("expected lane 1; got %d", i)
	}

	// Masked-out lanes must not be considered.
	if i := SelectMin(Mask(0xd), v); i != 2 {
		t.Fatalf("expected lane 2; got %d", i)
	}
}

func TestSelect(t *testing.T) {
	out := Select(Mask(0x5), F4{1, 1, 1, 1}, F4{2, 2, 2, 2})
	exp := F4{1, 2, 1, 2}
	if out != exp {
		t.Fatalf("expected %v; got %v", exp, out)
	}
}
