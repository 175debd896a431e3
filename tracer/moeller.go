package tracer

import "github.com/altair-render/altair/simd"

// An unfinalized intersection candidate produced by the Moeller-Trumbore
// kernel. U, V and T are scaled by the (absolute) denominator; the
// division is deferred to Finalize so candidates rejected by the epilogue
// or beaten by a closer hit never pay for it.
type QuadHit[F simd.Float] struct {
	U, V, T, AbsDen F
	Ng              simd.Vec3[F]

	// Set when the candidate came from the second triangle of the quad
	// pair; Finalize remaps the barycentrics so both triangles share
	// one continuous parameterization across the diagonal.
	Second bool

	// Finalized outputs.
	FinalU, FinalV, FinalT F
}

// Divide the candidate through by the denominator and apply the diagonal
// remap for second-triangle hits.
func (h *QuadHit[F]) Finalize() {
	rcpAbsDen := simd.Div(simd.Splat[F](1), h.AbsDen)
	h.FinalT = simd.Mul(h.T, rcpAbsDen)
	u := simd.Mul(h.U, rcpAbsDen)
	v := simd.Mul(h.V, rcpAbsDen)
	if h.Second {
		u = simd.Sub(simd.Splat[F](1), u)
		v = simd.Sub(simd.Splat[F](1), v)
	}
	h.FinalU = u
	h.FinalV = v
}

// An injected hit acceptance strategy. Implementations decide between
// nearest-hit semantics (mutate the ray, shrink tfar) and occlusion
// semantics (signal termination); the kernel is compiled once per
// strategy through the type parameter.
type epilog[F simd.Float] interface {
	accept(valid simd.Mask, hit *QuadHit[F]) bool
}

// Moeller-Trumbore test of one triangle batch against ray lanes. Both
// kernel shapes share this implementation: the single-ray path broadcasts
// the ray across the batch lanes, the packet path broadcasts one triangle
// across the ray lanes. The sign of the denominator is folded into U, V
// and T through the sign bit, so no division happens before Finalize.
func triIntersect[F simd.Float, E epilog[F]](
	o, d simd.Vec3[F],
	tnear, tfar F,
	v0, v1, v2 simd.Vec3[F],
	second bool,
	cullBackface bool,
	active simd.Mask,
	epi E,
) bool {
	if active.None() {
		return false
	}

	e1 := v0.Sub(v1)
	e2 := v2.Sub(v0)
	ng := e1.Cross(e2)

	c := v0.Sub(o)
	r := d.Cross(c)
	den := ng.Dot(d)
	absDen := simd.Abs(den)

	// Signed edge functions.
	u := simd.XorSign(r.Dot(e2), den)
	v := simd.XorSign(r.Dot(e1), den)
	w := simd.Sub(simd.Sub(absDen, u), v)

	var zero F
	valid := active & simd.CmpGE(u, zero) & simd.CmpGE(v, zero) & simd.CmpGE(w, zero)
	if cullBackface {
		valid &= simd.CmpGT(den, zero)
	} else {
		// A zero denominator (ray parallel to the plane) is never a hit.
		valid &= simd.CmpNE(den, zero)
	}
	if valid.None() {
		return false
	}

	// Depth test against the scaled interval.
	t := simd.XorSign(ng.Dot(c), den)
	valid &= simd.CmpGT(t, simd.Mul(absDen, tnear)) & simd.CmpLT(t, simd.Mul(absDen, tfar))
	if valid.None() {
		return false
	}

	hit := QuadHit[F]{U: u, V: v, T: t, AbsDen: absDen, Ng: ng, Second: second}
	return epi.accept(valid, &hit)
}
