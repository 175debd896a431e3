package scene

import (
	"math"

	"github.com/altair-render/altair/simd"
	"github.com/altair-render/altair/types"
)

// Sentinel id marking unused batch slots and "no hit" ray outputs.
const InvalidID = ^uint32(0)

// Number of quads co-located in one leaf batch.
const QuadBatchSize = 4

// A batch of up to 4 co-located quads stored as structure of arrays, one
// lane per quad. A quad with corners v0,v1,v2,v3 is intersected as the
// triangle pair (v0,v1,v3) and (v2,v3,v1) sharing the v1-v3 diagonal.
//
// Slot validity is a prefix: once a slot is unused (GeomIDs holds
// InvalidID) all higher slots are unused too. Unused slots replicate the
// vertices of slot 0 so lane math stays free of NaNs; the prefix rule is
// what stops them from ever producing a hit.
type QuadBatch struct {
	V0, V1, V2, V3 simd.Vec3[simd.F4]

	GeomIDs [4]uint32
	PrimIDs [4]uint32
}

// Mark all slots unused.
func (b *QuadBatch) Reset() {
	for i := 0; i < 4; i++ {
		b.GeomIDs[i] = InvalidID
		b.PrimIDs[i] = InvalidID
	}
}

// Assign quad slot i.
func (b *QuadBatch) SetQuad(i int, v0, v1, v2, v3 types.Vec3, geomID, primID uint32) {
	set := func(dst *simd.Vec3[simd.F4], v types.Vec3) {
		dst.X[i], dst.Y[i], dst.Z[i] = v[0], v[1], v[2]
	}
	set(&b.V0, v0)
	set(&b.V1, v1)
	set(&b.V2, v2)
	set(&b.V3, v3)
	b.GeomIDs[i] = geomID
	b.PrimIDs[i] = primID

	// Pad the tail with copies of the last written quad.
	for j := i + 1; j < 4; j++ {
		b.V0.X[j], b.V0.Y[j], b.V0.Z[j] = v0[0], v0[1], v0[2]
		b.V1.X[j], b.V1.Y[j], b.V1.Z[j] = v1[0], v1[1], v1[2]
		b.V2.X[j], b.V2.Y[j], b.V2.Z[j] = v2[0], v2[1], v2[2]
		b.V3.X[j], b.V3.Y[j], b.V3.Z[j] = v3[0], v3[1], v3[2]
	}
}

// Report whether slot i holds a quad.
func (b *QuadBatch) Valid(i int) bool {
	return b.GeomIDs[i] != InvalidID
}

// Number of used slots.
func (b *QuadBatch) Size() int {
	for i := 0; i < 4; i++ {
		if !b.Valid(i) {
			return i
		}
	}
	return 4
}

// Bounds of all used slots.
func (b *QuadBatch) Bounds() (bmin, bmax types.Vec3) {
	bmin = types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	bmax = types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := 0; i < b.Size(); i++ {
		for _, v := range []*simd.Vec3[simd.F4]{&b.V0, &b.V1, &b.V2, &b.V3} {
			p := types.Vec3{v.X[i], v.Y[i], v.Z[i]}
			bmin = types.MinVec3(bmin, p)
			bmax = types.MaxVec3(bmax, p)
		}
	}
	return bmin, bmax
}
