// Package simd provides fixed-width lane math for the traversal kernels.
// The same algebra is instantiated at different widths through generics;
// lane predicates are expressed as bitmasks so that any/none checks and
// lane selection stay width-agnostic.
package simd

import "math"

// Supported lane widths. The union has no core type, so loops over lane
// values index explicitly instead of ranging.
type Float interface {
	[4]float32 | [8]float32
}

type F4 = [4]float32
type F8 = [8]float32

// A lane predicate. Bit i corresponds to lane i.
type Mask uint32

const signBit uint32 = 0x80000000

// Number of lanes for a width.
func Width[F Float]() int {
	var v F
	return len(v)
}

// Mask with all lanes of F set.
func MaskAll[F Float]() Mask {
	return Mask(1)<<Width[F]() - 1
}

func (m Mask) Any() bool  { return m != 0 }
func (m Mask) None() bool { return m == 0 }

// Test lane i.
func (m Mask) Lane(i int) bool { return m&(1<<i) != 0 }

// Clear lane i.
func (m Mask) Clear(i int) Mask { return m &^ (1 << i) }

// Broadcast a scalar to all lanes.
func Splat[F Float](s float32) F {
	var out F
	for i := 0; i < len(out); i++ {
		out[i] = s
	}
	return out
}

func Add[F Float](a, b F) F {
	for i := 0; i < len(a); i++ {
		a[i] += b[i]
	}
	return a
}

func Sub[F Float](a, b F) F {
	for i := 0; i < len(a); i++ {
		a[i] -= b[i]
	}
	return a
}

func Mul[F Float](a, b F) F {
	for i := 0; i < len(a); i++ {
		a[i] *= b[i]
	}
	return a
}

func MulS[F Float](a F, s float32) F {
	for i := 0; i < len(a); i++ {
		a[i] *= s
	}
	return a
}

func Div[F Float](a, b F) F {
	for i := 0; i < len(a); i++ {
		a[i] /= b[i]
	}
	return a
}

func Abs[F Float](a F) F {
	for i := 0; i < len(a); i++ {
		a[i] = math.Float32frombits(math.Float32bits(a[i]) &^ signBit)
	}
	return a
}

// Per-lane minimum. NaN lanes resolve to a: comparisons with NaN are
// false, which keeps the slab test conservative.
func Min[F Float](a, b F) F {
	for i := 0; i < len(a); i++ {
		if b[i] < a[i] {
			a[i] = b[i]
		}
	}
	return a
}

// Per-lane maximum.
func Max[F Float](a, b F) F {
	for i := 0; i < len(a); i++ {
		if b[i] > a[i] {
			a[i] = b[i]
		}
	}
	return a
}

// Fold the sign of sgn into a, lane-wise. This is the sign-bit XOR trick
// used to avoid dividing by the triangle denominator before the edge
// tests: a*sign(sgn) without a multiply.
func XorSign[F Float](a, sgn F) F {
	for i := 0; i < len(a); i++ {
		a[i] = math.Float32frombits(math.Float32bits(a[i]) ^ (math.Float32bits(sgn[i]) & signBit))
	}
	return a
}

func CmpGE[F Float](a, b F) Mask {
	var m Mask
	for i := 0; i < len(a); i++ {
		if a[i] >= b[i] {
			m |= 1 << i
		}
	}
	return m
}

func CmpGT[F Float](a, b F) Mask {
	var m Mask
	for i := 0; i < len(a); i++ {
		if a[i] > b[i] {
			m |= 1 << i
		}
	}
	return m
}

func CmpLE[F Float](a, b F) Mask {
	var m Mask
	for i := 0; i < len(a); i++ {
		if a[i] <= b[i] {
			m |= 1 << i
		}
	}
	return m
}

func CmpLT[F Float](a, b F) Mask {
	var m Mask
	for i := 0; i < len(a); i++ {
		if a[i] < b[i] {
			m |= 1 << i
		}
	}
	return m
}

func CmpNE[F Float](a, b F) Mask {
	var m Mask
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			m |= 1 << i
		}
	}
	return m
}

// Per-lane blend: a where the mask bit is set, b otherwise.
func Select[F Float](m Mask, a, b F) F {
	for i := 0; i < len(a); i++ {
		if m&(1<<i) == 0 {
			a[i] = b[i]
		}
	}
	return a
}

// Index of the lane holding the minimum value among masked lanes.
// At least one mask bit must be set.
func SelectMin[F Float](m Mask, v F) int {
	best := -1
	for i := 0; i < len(v); i++ {
		if m&(1<<i) == 0 {
			continue
		}
		if best < 0 || v[i] < v[best] {
			best = i
		}
	}
	return best
}
