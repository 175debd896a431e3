package tracer

import (
	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/simd"
	"github.com/altair-render/altair/types"
)

// A finalized hit candidate handed to the external filter.
type Hit struct {
	GeomID uint32
	PrimID uint32
	InstID uint32

	U, V float32
	T    float32

	// Unnormalized geometric normal.
	Ng types.Vec3
}

// An external accept/reject predicate over finalized hit attributes,
// enabling effects such as alpha masking. Invoked at most once per
// candidate triangle per query. Must be safe to call concurrently from
// multiple goroutines and must not mutate the ray.
type Filter func(ray *Ray, hit *Hit) bool

// Nearest-hit epilogue for the single-ray path: selects the closest
// surviving lane, applies the geometry mask and the filter, and commits
// the hit to the ray, shrinking its tfar. Subsequent box and depth tests
// prune against the shrunk interval with no extra signaling.
type intersect1Epilog struct {
	ray     *Ray
	sc      *scene.Scene
	geomIDs *[4]uint32
	primIDs *[4]uint32
	filter  Filter
	stats   *Stats
}

func (e *intersect1Epilog) accept(valid simd.Mask, hit *QuadHit[simd.F4]) bool {
	hit.Finalize()
	for valid.Any() {
		i := simd.SelectMin(valid, hit.FinalT)
		geomID := e.geomIDs[i]
		if e.ray.Mask&e.sc.GeomMask(geomID) == 0 {
			valid = valid.Clear(i)
			continue
		}
		cand := Hit{
			GeomID: geomID,
			PrimID: e.primIDs[i],
			InstID: e.sc.InstID(geomID),
			U:      hit.FinalU[i],
			V:      hit.FinalV[i],
			T:      hit.FinalT[i],
			Ng:     types.Vec3{hit.Ng.X[i], hit.Ng.Y[i], hit.Ng.Z[i]},
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

// Occlusion epilogue for the single-ray path: the first lane that passes
// the mask and filter reports success; the ray outputs stay untouched and
// the traversal engine halts.
type occluded1Epilog struct {
	ray     *Ray
	sc      *scene.Scene
	geomIDs *[4]uint32
	primIDs *[4]uint32
	filter  Filter
	stats   *Stats
}

func (e *occluded1Epilog) accept(valid simd.Mask, hit *QuadHit[simd.F4]) bool {
	hit.Finalize()
	for valid.Any() {
		i := simd.SelectMin(valid, hit.FinalT)
		geomID := e.geomIDs[i]
		if e.ray.Mask&e.sc.GeomMask(geomID) == 0 {
			valid = valid.Clear(i)
			continue
		}
		if e.filter != nil {
			cand := Hit{
				GeomID: geomID,
				PrimID: e.primIDs[i],
				InstID: e.sc.InstID(geomID),
				U:      hit.FinalU[i],
				V:      hit.FinalV[i],
				T:      hit.FinalT[i],
				Ng:     types.Vec3{hit.Ng.X[i], hit.Ng.Y[i], hit.Ng.Z[i]},
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

// Nearest-hit epilogue for the packet path: each surviving lane is an
// independent ray, so every lane that passes the mask and filter commits
// to its own lane of the packet.
type intersectKEpilog[F simd.Float, I Uints] struct {
	packet *RayPacket[F, I]
	sc     *scene.Scene
	geomID uint32
	primID uint32
	filter Filter
	stats  *Stats
}

func (e *intersectKEpilog[F, I]) accept(valid simd.Mask, hit *QuadHit[F]) bool {
	hit.Finalize()
	p := e.packet
	accepted := false
	for i := 0; i < simd.Width[F](); i++ {
		if !valid.Lane(i) {
			continue
		}
		if p.Mask[i]&e.sc.GeomMask(e.geomID) == 0 {
			continue
		}
		cand := Hit{
			GeomID: e.geomID,
			PrimID: e.primID,
			InstID: e.sc.InstID(e.geomID),
			U:      hit.FinalU[i],
			V:      hit.FinalV[i],
			T:      hit.FinalT[i],
			Ng:     types.Vec3{hit.Ng.X[i], hit.Ng.Y[i], hit.Ng.Z[i]},
		}
		if e.filter != nil {
			if e.stats != nil {
				e.stats.FilterCalls++
			}
			laneRay := p.Ray(i)
			if !e.filter(&laneRay, &cand) {
				continue
			}
		}

		p.TFar[i] = cand.T
		p.GeomID[i] = cand.GeomID
		p.PrimID[i] = cand.PrimID
		p.InstID[i] = cand.InstID
		p.U[i], p.V[i] = cand.U, cand.V
		p.NgX[i], p.NgY[i], p.NgZ[i] = cand.Ng[0], cand.Ng[1], cand.Ng[2]
		accepted = true
	}
	return accepted
}

// Occlusion epilogue for the packet path: lanes that pass accumulate into
// the occluded mask and drop out of the traversal.
type occludedKEpilog[F simd.Float, I Uints] struct {
	packet   *RayPacket[F, I]
	sc       *scene.Scene
	geomID   uint32
	primID   uint32
	filter   Filter
	stats    *Stats
	occluded *simd.Mask
}

func (e *occludedKEpilog[F, I]) accept(valid simd.Mask, hit *QuadHit[F]) bool {
	hit.Finalize()
	p := e.packet
	any := false
	for i := 0; i < simd.Width[F](); i++ {
		if !valid.Lane(i) {
			continue
		}
		if p.Mask[i]&e.sc.GeomMask(e.geomID) == 0 {
			continue
		}
		if e.filter != nil {
			cand := Hit{
				GeomID: e.geomID,
				PrimID: e.primID,
				InstID: e.sc.InstID(e.geomID),
				U:      hit.FinalU[i],
				V:      hit.FinalV[i],
				T:      hit.FinalT[i],
				Ng:     types.Vec3{hit.Ng.X[i], hit.Ng.Y[i], hit.Ng.Z[i]},
			}
			if e.stats != nil {
				e.stats.FilterCalls++
			}
			laneRay := p.Ray(i)
			if !e.filter(&laneRay, &cand) {
				continue
			}
		}
		*e.occluded |= 1 << i
		any = true
	}
	return any
}
