package tracer

import (
	"math"

	"github.com/altair-render/altair/simd"
	"github.com/altair-render/altair/types"
)

// Sentinel value for the ray output ids when nothing was hit.
const NoHit = ^uint32(0)

// A single ray query. The query interval is [TNear,TFar]; during a
// nearest-hit query TFar only ever shrinks. Output fields are written by
// the hit epilogues and keep their sentinel values on a miss.
//
// A Ray is owned exclusively by the goroutine issuing the query.
type Ray struct {
	Org types.Vec3
	Dir types.Vec3

	TNear float32
	TFar  float32

	// Visibility mask tested against per-geometry masks.
	Mask uint32

	// Time sample in [0,1] for motion blur. Carried for consumers; the
	// acceleration structure itself is static.
	Time float32

	// Hit outputs.
	GeomID uint32
	PrimID uint32
	InstID uint32
	U, V   float32
	Ng     types.Vec3
}

// Create a ray over [tnear,tfar) with cleared hit outputs.
func NewRay(org, dir types.Vec3, tnear, tfar float32) Ray {
	return Ray{
		Org:    org,
		Dir:    dir,
		TNear:  tnear,
		TFar:   tfar,
		Mask:   ^uint32(0),
		GeomID: NoHit,
		PrimID: NoHit,
		InstID: NoHit,
	}
}

// Create a ray spanning the full positive interval.
func NewPrimaryRay(org, dir types.Vec3) Ray {
	return NewRay(org, dir, 0, float32(math.Inf(1)))
}

// Report whether a nearest-hit query found anything.
func (r *Ray) HasHit() bool {
	return r.GeomID != NoHit
}

// Clear hit outputs and restore the query interval so the ray can be
// reissued.
func (r *Ray) Reset(tnear, tfar float32) {
	r.TNear = tnear
	r.TFar = tfar
	r.GeomID = NoHit
	r.PrimID = NoHit
	r.InstID = NoHit
	r.U = 0
	r.V = 0
	r.Ng = types.Vec3{}
}

// Integer lane storage matching the simd.Float widths.
type Uints interface {
	[4]uint32 | [8]uint32
}

// A packet of K rays in structure-of-arrays layout, one lane per ray.
// Lanes excluded from Active are never touched.
type RayPacket[F simd.Float, I Uints] struct {
	OrgX, OrgY, OrgZ F
	DirX, DirY, DirZ F

	TNear, TFar F
	Time        F
	Mask        I

	GeomID, PrimID, InstID I
	U, V                   F
	NgX, NgY, NgZ          F

	Active simd.Mask
}

type Packet4 = RayPacket[simd.F4, [4]uint32]
type Packet8 = RayPacket[simd.F8, [8]uint32]

// Load a ray into lane i and mark the lane active.
func (p *RayPacket[F, I]) SetRay(i int, r *Ray) {
	p.OrgX[i], p.OrgY[i], p.OrgZ[i] = r.Org[0], r.Org[1], r.Org[2]
	p.DirX[i], p.DirY[i], p.DirZ[i] = r.Dir[0], r.Dir[1], r.Dir[2]
	p.TNear[i], p.TFar[i] = r.TNear, r.TFar
	p.Time[i] = r.Time
	p.Mask[i] = r.Mask
	p.GeomID[i], p.PrimID[i], p.InstID[i] = r.GeomID, r.PrimID, r.InstID
	p.U[i], p.V[i] = r.U, r.V
	p.NgX[i], p.NgY[i], p.NgZ[i] = r.Ng[0], r.Ng[1], r.Ng[2]
	p.Active |= 1 << i
}

// Extract lane i as a single ray.
func (p *RayPacket[F, I]) Ray(i int) Ray {
	return Ray{
		Org:    types.Vec3{p.OrgX[i], p.OrgY[i], p.OrgZ[i]},
		Dir:    types.Vec3{p.DirX[i], p.DirY[i], p.DirZ[i]},
		TNear:  p.TNear[i],
		TFar:   p.TFar[i],
		Mask:   p.Mask[i],
		Time:   p.Time[i],
		GeomID: p.GeomID[i],
		PrimID: p.PrimID[i],
		InstID: p.InstID[i],
		U:      p.U[i],
		V:      p.V[i],
		Ng:     types.Vec3{p.NgX[i], p.NgY[i], p.NgZ[i]},
	}
}
