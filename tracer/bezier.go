package tracer

import (
	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/simd"
	"github.com/altair-render/altair/types"
)

// Number of points the curve is flattened to per query. The 8 samples
// give 7 chord capsules tested in one lane batch.
const curveSamples = 8

const chordMask simd.Mask = 1<<(curveSamples-1) - 1

// Lane constants 0..7 for reconstructing the curve parameter.
var chordIndex = simd.F8{0, 1, 2, 3, 4, 5, 6, 7}

// An unfinalized curve candidate: per-chord depth and curve parameter.
// The world-space tangent is derived only for the accepted lane.
type CurveHit struct {
	T, U simd.F8

	seg *scene.CurveSegment
}

// Geometric normal reported for a curve hit: the world-space tangent at
// the accepted parameter.
func (h *CurveHit) Ng(i int) types.Vec3 {
	return h.seg.EvalTangent(h.U[i])
}

type curveEpilog interface {
	accept(valid simd.Mask, hit *CurveHit) bool
}

// Swept-capsule test of one ray against one cubic hair segment. The
// control points are moved into a ray-aligned frame where the ray is the
// positive Z axis through the origin; the 3-D problem then reduces to
// the 2-D distance from the origin to the flattened curve, compared
// against the interpolated sweep radius. The same two-mode epilogue
// contract as the quad kernel applies.
func intersectCapsule[E curveEpilog](seg *scene.CurveSegment, ray *Ray, tr *travRay, epi E) bool {
	frame, invDirLen := tr.raySpace()

	local := func(p types.Vec4) types.Vec4 {
		q := frame.ToLocal(p.Vec3().Sub(ray.Org))
		return q.Vec4(p[3])
	}
	q0 := local(seg.P0)
	q1 := local(seg.P1)
	q2 := local(seg.P2)
	q3 := local(seg.P3)

	// Flatten: evaluate position and radius at 8 parameters in one lane
	// batch via the Bernstein basis.
	var px, py, pz, pr simd.F8
	for j := 0; j < curveSamples; j++ {
		t := float32(j) / (curveSamples - 1)
		t1 := 1 - t
		b0 := t1 * t1 * t1
		b1 := 3 * t1 * t1 * t
		b2 := 3 * t1 * t * t
		b3 := t * t * t
		px[j] = b0*q0[0] + b1*q1[0] + b2*q2[0] + b3*q3[0]
		py[j] = b0*q0[1] + b1*q1[1] + b2*q2[1] + b3*q3[1]
		pz[j] = b0*q0[2] + b1*q1[2] + b2*q2[2] + b3*q3[2]
		pr[j] = b0*q0[3] + b1*q1[3] + b2*q2[3] + b3*q3[3]
	}

	// Chord lanes: lane j spans sample j to j+1.
	var bx, by, bz, br simd.F8
	for j := 0; j < curveSamples-1; j++ {
		bx[j], by[j], bz[j], br[j] = px[j+1], py[j+1], pz[j+1], pr[j+1]
	}

	dx := simd.Sub(bx, px)
	dy := simd.Sub(by, py)
	len2 := simd.Add(simd.Mul(dx, dx), simd.Mul(dy, dy))

	// Closest point of each chord to the ray axis (the 2-D origin).
	// Degenerate chords produce NaN here and fail every comparison.
	s := simd.Div(simd.Sub(simd.F8{}, simd.Add(simd.Mul(px, dx), simd.Mul(py, dy))), len2)
	s = simd.Min(simd.Max(s, simd.F8{}), simd.Splat[simd.F8](1))

	cx := simd.Add(px, simd.Mul(s, dx))
	cy := simd.Add(py, simd.Mul(s, dy))
	d2 := simd.Add(simd.Mul(cx, cx), simd.Mul(cy, cy))
	r := simd.Add(pr, simd.Mul(s, simd.Sub(br, pr)))
	z := simd.Add(pz, simd.Mul(s, simd.Sub(bz, pz)))
	t := simd.MulS(z, invDirLen)

	valid := chordMask & simd.CmpLE(d2, simd.Mul(r, r))
	valid &= simd.CmpGE(t, simd.Splat[simd.F8](ray.TNear)) & simd.CmpLE(t, simd.Splat[simd.F8](ray.TFar))
	if valid.None() {
		return false
	}

	u := simd.MulS(simd.Add(chordIndex, s), 1.0/(curveSamples-1))
	hit := CurveHit{T: t, U: u, seg: seg}
	return epi.accept(valid, &hit)
}

// Nearest-hit curve epilogue: min-t selection, mask and filter checks,
// commit to the ray with u = curve parameter and v = 0.
type intersectCurveEpilog struct {
	ray    *Ray
	sc     *scene.Scene
	filter Filter
	stats  *Stats
}

func (e *intersectCurveEpilog) accept(valid simd.Mask, hit *CurveHit) bool {
	for valid.Any() {
		i := simd.SelectMin(valid, hit.T)
		geomID := hit.seg.GeomID
		if e.ray.Mask&e.sc.GeomMask(geomID) == 0 {
			return false
		}
		cand := Hit{
			GeomID: geomID,
			PrimID: hit.seg.PrimID,
			InstID: e.sc.InstID(geomID),
			U:      hit.U[i],
			V:      0,
			T:      hit.T[i],
			Ng:     hit.Ng(i),
		}
		if e.filter != nil {
			if e.stats != nil {
				e.stats.FilterCalls++
			}
			if !e.filter(e.ray, &cand) {
				valid = valid.Clear(i)
				continue
			}
		}

		e.ray.TFar = cand.T
		e.ray.GeomID = cand.GeomID
		e.ray.PrimID = cand.PrimID
		e.ray.InstID = cand.InstID
		e.ray.U = cand.U
		e.ray.V = cand.V
		e.ray.Ng = cand.Ng
		return true
	}
	return false
}

// Occlusion curve epilogue: first surviving chord wins.
type occludedCurveEpilog struct {
	ray    *Ray
	sc     *scene.Scene
	filter Filter
	stats  *Stats
}

func (e *occludedCurveEpilog) accept(valid simd.Mask, hit *CurveHit) bool {
	for valid.Any() {
		i := simd.SelectMin(valid, hit.T)
		geomID := hit.seg.GeomID
		if e.ray.Mask&e.sc.GeomMask(geomID) == 0 {
			return false
		}
		if e.filter != nil {
			cand := Hit{
				GeomID: geomID,
				PrimID: hit.seg.PrimID,
				InstID: e.sc.InstID(geomID),
				U:      hit.U[i],
				V:      0,
				T:      hit.T[i],
				Ng:     hit.Ng(i),
			}
			if e.stats != nil {
				e.stats.FilterCalls++
			}
			if !e.filter(e.ray, &cand) {
				valid = valid.Clear(i)
				continue
			}
		}
		return true
	}
	return false
}

func (it *Intersector) intersectBezier(seg *scene.CurveSegment, ray *Ray, tr *travRay) {
	if it.Stats != nil {
		it.Stats.PrimTests++
	}
	epi := &intersectCurveEpilog{ray: ray, sc: it.sc, filter: it.opts.Filter, stats: it.Stats}
	intersectCapsule(seg, ray, tr, epi)
}

func (it *Intersector) occludedBezier(seg *scene.CurveSegment, ray *Ray, tr *travRay) bool {
	if it.Stats != nil {
		it.Stats.PrimTests++
	}
	epi := &occludedCurveEpilog{ray: ray, sc: it.sc, filter: it.opts.Filter, stats: it.Stats}
	return intersectCapsule(seg, ray, tr, epi)
}
