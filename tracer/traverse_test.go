package tracer

import (
	"math"
	"testing"

	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/scene/compiler"
	"github.com/altair-render/altair/types"
)

// A scene holding a single unit quad in the z=0 plane.
func unitQuadScene() *scene.Scene {
	var b scene.QuadBatch
	b.Reset()
	b.SetQuad(0,
		types.Vec3{0, 0, 0},
		types.Vec3{1, 0, 0},
		types.Vec3{1, 1, 0},
		types.Vec3{0, 1, 0},
		0, 0,
	)
	return &scene.Scene{
		Accel: scene.BVH{
			Quads:    []scene.QuadBatch{b},
			Root:     scene.QuadLeafRef(0),
			MaxDepth: 1,
		},
	}
}

// A subdivided ground plane compiled through the scene compiler.
func floorScene(t testing.TB) *scene.Scene {
	var quads []compiler.Quad
	var primID uint32
	for cz := 0; cz < 8; cz++ {
		for cx := 0; cx < 8; cx++ {
			x0, z0 := float32(cx), float32(cz)
			quads = append(quads, compiler.Quad{
				V0:     types.Vec3{x0, 0, z0},
				V1:     types.Vec3{x0 + 1, 0, z0},
				V2:     types.Vec3{x0 + 1, 0, z0 + 1},
				V3:     types.Vec3{x0, 0, z0 + 1},
				GeomID: 0,
				PrimID: primID,
			})
			primID++
		}
	}

	sc, err := compiler.Compile(quads, nil)
	if err != nil {
		t.Fatalf("expected scene to compile; got %v", err)
	}
	return sc
}

func TestQuadHit(t *testing.T) {
	it := New(unitQuadScene(), Options{})

	ray := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)

	if !ray.HasHit() {
		t.Fatalf("expected a hit")
	}
	if ray.GeomID != 0 || ray.PrimID != 0 {
		t.Fatalf("expected geomID 0 primID 0; got %d, %d", ray.GeomID, ray.PrimID)
	}
	if ray.InstID != NoHit {
		t.Fatalf("expected instID to stay at the sentinel; got %d", ray.InstID)
	}
	if diff := ray.TFar - 1; diff < -1e-5 || diff > 1e-5 {
		t.Fatalf("expected t 1.0; got %f", ray.TFar)
	}
	if du, dv := ray.U-0.5, ray.V-0.5; du < -1e-5 || du > 1e-5 || dv < -1e-5 || dv > 1e-5 {
		t.Fatalf("expected u,v 0.5,0.5; got %f, %f", ray.U, ray.V)
	}

	// The geometric normal must be parallel to the z axis.
	if ray.Ng[0] != 0 || ray.Ng[1] != 0 || ray.Ng[2] == 0 {
		t.Fatalf("expected normal along z; got %v", ray.Ng)
	}
}

func TestParallelRayMiss(t *testing.T) {
	it := New(unitQuadScene(), Options{})

	// In-plane ray: the denominator is exactly zero.
	ray := NewPrimaryRay(types.Vec3{-1, 0.5, 0}, types.Vec3{1, 0, 0})
	it.Intersect(&ray)

	if ray.HasHit() {
		t.Fatalf("expected a miss; got geomID %d at t %f", ray.GeomID, ray.TFar)
	}
	if ray.GeomID != NoHit || ray.PrimID != NoHit || ray.InstID != NoHit {
		t.Fatalf("expected hit outputs to keep their sentinels")
	}
	if !math.IsInf(float64(ray.TFar), 1) {
		t.Fatalf("expected tfar to stay at +inf; got %f", ray.TFar)
	}
	if it.Occluded(&ray) {
		t.Fatalf("expected the occlusion query to miss too")
	}
}

// Three leaves at increasing depth along the ray: the ordered descent must
// commit the nearest hit without ever opening the farther leaves.
func TestOrderedTraversalPrunesFarLeaves(t *testing.T) {
	sc := &scene.Scene{}
	for i, z := range []float32{0, -5, -10} {
		var b scene.QuadBatch
		b.Reset()
		b.SetQuad(0,
			types.Vec3{0, 0, z},
			types.Vec3{1, 0, z},
			types.Vec3{1, 1, z},
			types.Vec3{0, 1, z},
			0, uint32(i),
		)
		sc.Accel.Quads = append(sc.Accel.Quads, b)
	}
	var root scene.AlignedNode
	root.Reset()
	// Deliberately out of order so the sorting network has to work.
	root.SetChild(0, scene.QuadLeafRef(2), types.Vec3{0, 0, -10}, types.Vec3{1, 1, -10})
	root.SetChild(1, scene.QuadLeafRef(0), types.Vec3{0, 0, 0}, types.Vec3{1, 1, 0})
	root.SetChild(2, scene.QuadLeafRef(1), types.Vec3{0, 0, -5}, types.Vec3{1, 1, -5})
	sc.Accel.Aligned = append(sc.Accel.Aligned, root)
	sc.Accel.Root = scene.AlignedRef(0)
	sc.Accel.MaxDepth = 2
	if err := sc.Accel.Validate(); err != nil {
		t.Fatalf("expected scene to validate; got %v", err)
	}

	it := New(sc, Options{})
	it.Stats = &Stats{}

	ray := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)

	if ray.PrimID != 0 {
		t.Fatalf("expected the nearest quad; got primID %d", ray.PrimID)
	}
	if diff := ray.TFar - 1; diff < -1e-5 || diff > 1e-5 {
		t.Fatalf("expected t 1.0; got %f", ray.TFar)
	}
	if it.Stats.Leafs != 1 {
		t.Fatalf("expected exactly 1 leaf visit; got %d", it.Stats.Leafs)
	}
	if it.Stats.AlignedNodes != 1 {
		t.Fatalf("expected exactly 1 node test; got %d", it.Stats.AlignedNodes)
	}
}

// A -0.0 direction component divides to -inf; slab plane selection must
// treat it like any negative component or the entry/exit interval inverts
// and the child is skipped.
func TestNegativeZeroDirection(t *testing.T) {
	sc := &scene.Scene{}
	var b scene.QuadBatch
	b.Reset()
	b.SetQuad(0,
		types.Vec3{0, 0, 0},
		types.Vec3{1, 0, 0},
		types.Vec3{1, 1, 0},
		types.Vec3{0, 1, 0},
		0, 0,
	)
	sc.Accel.Quads = []scene.QuadBatch{b}
	var root scene.AlignedNode
	root.Reset()
	root.SetChild(0, scene.QuadLeafRef(0), types.Vec3{0, 0, 0}, types.Vec3{1, 1, 0})
	sc.Accel.Aligned = append(sc.Accel.Aligned, root)
	sc.Accel.Root = scene.AlignedRef(0)
	sc.Accel.MaxDepth = 2

	it := New(sc, Options{})
	negZero := float32(math.Copysign(0, -1))
	for _, dir := range []types.Vec3{
		{negZero, 0, -1},
		{0, negZero, -1},
		{negZero, negZero, -1},
	} {
		ray := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, dir)
		it.Intersect(&ray)
		if !ray.HasHit() {
			t.Fatalf("expected a hit with direction %v", dir)
		}
		if diff := ray.TFar - 1; diff < -1e-5 || diff > 1e-5 {
			t.Fatalf("expected t 1.0 with direction %v; got %f", dir, ray.TFar)
		}

		shadow := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, dir)
		if !it.Occluded(&shadow) {
			t.Fatalf("expected occlusion with direction %v", dir)
		}
	}
}

// Full 4-wide fan-out: all four children hit, so the complete sorting
// network has to order them before the descent.
func TestOrderedTraversalFourChildren(t *testing.T) {
	sc := &scene.Scene{}
	for i, z := range []float32{0, -5, -10, -15} {
		var b scene.QuadBatch
		b.Reset()
		b.SetQuad(0,
			types.Vec3{0, 0, z},
			types.Vec3{1, 0, z},
			types.Vec3{1, 1, z},
			types.Vec3{0, 1, z},
			0, uint32(i),
		)
		sc.Accel.Quads = append(sc.Accel.Quads, b)
	}
	var root scene.AlignedNode
	root.Reset()
	root.SetChild(0, scene.QuadLeafRef(3), types.Vec3{0, 0, -15}, types.Vec3{1, 1, -15})
	root.SetChild(1, scene.QuadLeafRef(0), types.Vec3{0, 0, 0}, types.Vec3{1, 1, 0})
	root.SetChild(2, scene.QuadLeafRef(2), types.Vec3{0, 0, -10}, types.Vec3{1, 1, -10})
	root.SetChild(3, scene.QuadLeafRef(1), types.Vec3{0, 0, -5}, types.Vec3{1, 1, -5})
	sc.Accel.Aligned = append(sc.Accel.Aligned, root)
	sc.Accel.Root = scene.AlignedRef(0)
	sc.Accel.MaxDepth = 2
	if err := sc.Accel.Validate(); err != nil {
		t.Fatalf("expected scene to validate; got %v", err)
	}

	it := New(sc, Options{})
	it.Stats = &Stats{}

	ray := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)

	if ray.PrimID != 0 {
		t.Fatalf("expected the nearest quad; got primID %d", ray.PrimID)
	}
	if diff := ray.TFar - 1; diff < -1e-5 || diff > 1e-5 {
		t.Fatalf("expected t 1.0; got %f", ray.TFar)
	}
	if it.Stats.Leafs != 1 {
		t.Fatalf("expected exactly 1 leaf visit; got %d", it.Stats.Leafs)
	}
}

func TestIntersectIdempotent(t *testing.T) {
	it := New(unitQuadScene(), Options{})

	ray := NewPrimaryRay(types.Vec3{0.3, 0.6, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)
	if !ray.HasHit() {
		t.Fatalf("expected a hit")
	}

	// Reissuing the query with the shrunk interval must not change any
	// output: the committed hit is not strictly inside [tnear, tfar).
	before := ray
	it.Intersect(&ray)
	if ray != before {
		t.Fatalf("expected reissued query to leave the ray unchanged;\nbefore %+v\nafter  %+v", before, ray)
	}
}

func TestNearestOfBatch(t *testing.T) {
	// Two stacked quads in one batch with the far one in slot 0: min-t
	// selection must not depend on slot order.
	var b scene.QuadBatch
	b.Reset()
	b.SetQuad(0,
		types.Vec3{0, 0, -2}, types.Vec3{1, 0, -2}, types.Vec3{1, 1, -2}, types.Vec3{0, 1, -2},
		0, 7,
	)
	b.SetQuad(1,
		types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{1, 1, 0}, types.Vec3{0, 1, 0},
		0, 3,
	)
	sc := &scene.Scene{Accel: scene.BVH{Quads: []scene.QuadBatch{b}, Root: scene.QuadLeafRef(0), MaxDepth: 1}}

	it := New(sc, Options{})
	ray := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)

	if ray.PrimID != 3 {
		t.Fatalf("expected the nearest quad (primID 3); got %d", ray.PrimID)
	}
	if diff := ray.TFar - 1; diff < -1e-5 || diff > 1e-5 {
		t.Fatalf("expected t 1.0; got %f", ray.TFar)
	}
}

func TestOccludedConsistency(t *testing.T) {
	sc := floorScene(t)
	it := New(sc, Options{})

	for cx := 0; cx < 8; cx++ {
		for cz := 0; cz < 8; cz++ {
			org := types.Vec3{float32(cx) + 0.5, 1, float32(cz) + 0.5}

			down := NewPrimaryRay(org, types.Vec3{0, -1, 0})
			shadow := down
			it.Intersect(&down)
			if !down.HasHit() {
				t.Fatalf("expected a hit below (%f, %f)", org[0], org[2])
			}
			if !it.Occluded(&shadow) {
				t.Fatalf("expected the occlusion query to agree with the hit at (%f, %f)", org[0], org[2])
			}

			up := NewPrimaryRay(org, types.Vec3{0, 1, 0})
			shadow = up
			it.Intersect(&up)
			if up.HasHit() || it.Occluded(&shadow) {
				t.Fatalf("expected both queries to miss above (%f, %f)", org[0], org[2])
			}

			// A query interval that ends above the floor must miss too.
			short := NewRay(org, types.Vec3{0, -1, 0}, 0, 0.5)
			shadow = short
			it.Intersect(&short)
			if short.HasHit() || it.Occluded(&shadow) {
				t.Fatalf("expected the clipped interval to miss at (%f, %f)", org[0], org[2])
			}
		}
	}
}

func TestGeometryMask(t *testing.T) {
	var b scene.QuadBatch
	b.Reset()
	b.SetQuad(0,
		types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{1, 1, 0}, types.Vec3{0, 1, 0},
		0, 0,
	)
	b.SetQuad(1,
		types.Vec3{0, 0, -1}, types.Vec3{1, 0, -1}, types.Vec3{1, 1, -1}, types.Vec3{0, 1, -1},
		1, 0,
	)
	sc := &scene.Scene{
		Accel: scene.BVH{Quads: []scene.QuadBatch{b}, Root: scene.QuadLeafRef(0), MaxDepth: 1},
		Masks: []uint32{0x1, 0x2},
	}
	it := New(sc, Options{})

	// Both geometries visible: the near one wins.
	ray := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	ray.Mask = 0x3
	it.Intersect(&ray)
	if ray.GeomID != 0 {
		t.Fatalf("expected geomID 0; got %d", ray.GeomID)
	}

	// Near geometry masked out: the ray must pass through to the far one.
	ray = NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	ray.Mask = 0x2
	it.Intersect(&ray)
	if ray.GeomID != 1 {
		t.Fatalf("expected geomID 1; got %d", ray.GeomID)
	}
	if diff := ray.TFar - 2; diff < -1e-5 || diff > 1e-5 {
		t.Fatalf("expected t 2.0; got %f", ray.TFar)
	}

	// Nothing visible.
	ray = NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	ray.Mask = 0x4
	it.Intersect(&ray)
	if ray.HasHit() {
		t.Fatalf("expected a miss with mask 0x4; got geomID %d", ray.GeomID)
	}

	shadow := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	shadow.Mask = 0x4
	if it.Occluded(&shadow) {
		t.Fatalf("expected the occlusion query to respect the mask")
	}
}

func TestBackfaceCulling(t *testing.T) {
	front := NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	back := NewPrimaryRay(types.Vec3{0.5, 0.5, -1}, types.Vec3{0, 0, 1})

	// Culling off: both sides hit.
	it := New(unitQuadScene(), Options{})
	r := front
	it.Intersect(&r)
	if !r.HasHit() {
		t.Fatalf("expected a front side hit")
	}
	r = back
	it.Intersect(&r)
	if !r.HasHit() {
		t.Fatalf("expected a back side hit with culling off")
	}

	// Culling on: only the front side hits.
	it = New(unitQuadScene(), Options{BackfaceCulling: true})
	r = front
	it.Intersect(&r)
	if !r.HasHit() {
		t.Fatalf("expected a front side hit with culling on")
	}
	r = back
	it.Intersect(&r)
	if r.HasHit() {
		t.Fatalf("expected the back side to be culled")
	}
	r = back
	if it.Occluded(&r) {
		t.Fatalf("expected the occlusion query to cull the back side too")
	}
}

func TestFilter(t *testing.T) {
	calls := 0
	var seen Hit
	rejecting := New(unitQuadScene(), Options{
		Filter: func(ray *Ray, hit *Hit) bool {
			calls++
			seen = *hit
			return false
		},
	})
	rejecting.Stats = &Stats{}

	// Aim off the diagonal so only one triangle produces a candidate.
	ray := NewPrimaryRay(types.Vec3{0.3, 0.3, 1}, types.Vec3{0, 0, -1})
	rejecting.Intersect(&ray)
	if ray.HasHit() {
		t.Fatalf("expected the rejected candidate to leave the ray unchanged")
	}
	if calls != 1 {
		t.Fatalf("expected the filter to be invoked exactly once; got %d", calls)
	}
	if rejecting.Stats.FilterCalls != 1 {
		t.Fatalf("expected 1 recorded filter call; got %d", rejecting.Stats.FilterCalls)
	}
	if du, dv := seen.U-0.3, seen.V-0.3; du < -1e-5 || du > 1e-5 || dv < -1e-5 || dv > 1e-5 {
		t.Fatalf("expected the filter to see finalized u,v 0.3,0.3; got %f, %f", seen.U, seen.V)
	}
	if diff := seen.T - 1; diff < -1e-5 || diff > 1e-5 {
		t.Fatalf("expected the filter to see t 1.0; got %f", seen.T)
	}

	// An accepting filter must not change the committed result.
	calls = 0
	accepting := New(unitQuadScene(), Options{
		Filter: func(ray *Ray, hit *Hit) bool {
			calls++
			return true
		},
	})
	ray = NewPrimaryRay(types.Vec3{0.3, 0.3, 1}, types.Vec3{0, 0, -1})
	accepting.Intersect(&ray)
	if !ray.HasHit() || calls != 1 {
		t.Fatalf("expected one accepted candidate; hit %t calls %d", ray.HasHit(), calls)
	}

	// Occlusion path: a rejecting filter makes the blocker transparent.
	shadow := NewPrimaryRay(types.Vec3{0.3, 0.3, 1}, types.Vec3{0, 0, -1})
	if rejecting.Occluded(&shadow) {
		t.Fatalf("expected the rejecting filter to disable occlusion")
	}
	shadow = NewPrimaryRay(types.Vec3{0.3, 0.3, 1}, types.Vec3{0, 0, -1})
	if !accepting.Occluded(&shadow) {
		t.Fatalf("expected the accepting filter to report occlusion")
	}
}

// Both quad triangles must expose one continuous parameterization: u,v
// sampled on either side of the shared diagonal may not jump.
func TestDiagonalContinuity(t *testing.T) {
	it := New(unitQuadScene(), Options{})

	const delta = 1e-3
	targets := [][2]float32{
		{0.6 - delta, 0.4 - delta},
		{0.6 + delta, 0.4 + delta},
		{0.2 - delta, 0.8 - delta},
		{0.2 + delta, 0.8 + delta},
	}

	for _, tgt := range targets {
		ray := NewPrimaryRay(types.Vec3{tgt[0], tgt[1], 1}, types.Vec3{0, 0, -1})
		it.Intersect(&ray)
		if !ray.HasHit() {
			t.Fatalf("expected a hit at (%f, %f)", tgt[0], tgt[1])
		}

		// For the planar unit quad the parameterization is the hit
		// position itself, regardless of which triangle produced it.
		if du := ray.U - tgt[0]; du < -1e-3 || du > 1e-3 {
			t.Fatalf("expected u %f; got %f", tgt[0], ray.U)
		}
		if dv := ray.V - tgt[1]; dv < -1e-3 || dv > 1e-3 {
			t.Fatalf("expected v %f; got %f", tgt[1], ray.V)
		}
	}
}

func TestPartialBatch(t *testing.T) {
	var b scene.QuadBatch
	b.Reset()
	b.SetQuad(0,
		types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{1, 1, 0}, types.Vec3{0, 1, 0},
		0, 0,
	)
	b.SetQuad(1,
		types.Vec3{2, 0, 0}, types.Vec3{3, 0, 0}, types.Vec3{3, 1, 0}, types.Vec3{2, 1, 0},
		0, 1,
	)
	sc := &scene.Scene{Accel: scene.BVH{Quads: []scene.QuadBatch{b}, Root: scene.QuadLeafRef(0), MaxDepth: 1}}
	it := New(sc, Options{})

	ray := NewPrimaryRay(types.Vec3{2.5, 0.5, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)
	if ray.PrimID != 1 {
		t.Fatalf("expected primID 1; got %d", ray.PrimID)
	}

	// The padded tail lanes replicate slot 1 but must never produce a hit
	// of their own.
	ray = NewPrimaryRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)
	if ray.PrimID != 0 {
		t.Fatalf("expected primID 0; got %d", ray.PrimID)
	}
}

func TestEmptyScene(t *testing.T) {
	sc := &scene.Scene{Accel: scene.BVH{Root: scene.EmptyNode}}
	it := New(sc, Options{})

	ray := NewPrimaryRay(types.Vec3{0, 0, 1}, types.Vec3{0, 0, -1})
	it.Intersect(&ray)
	if ray.HasHit() {
		t.Fatalf("expected a miss on the empty scene")
	}
	if it.Occluded(&ray) {
		t.Fatalf("expected no occlusion on the empty scene")
	}

	// An inverted interval never hits either.
	ray = NewRay(types.Vec3{0.5, 0.5, 1}, types.Vec3{0, 0, -1}, 5, 1)
	it = New(unitQuadScene(), Options{})
	it.Intersect(&ray)
	if ray.HasHit() {
		t.Fatalf("expected a miss for the inverted interval")
	}
}

func BenchmarkIntersect(b *testing.B) {
	sc := floorScene(b)
	it := New(sc, Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ray := NewPrimaryRay(types.Vec3{float32(i%8) + 0.5, 1, 3.5}, types.Vec3{0, -1, 0})
		it.Intersect(&ray)
	}
}

func BenchmarkOccluded(b *testing.B) {
	sc := floorScene(b)
	it := New(sc, Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ray := NewPrimaryRay(types.Vec3{float32(i%8) + 0.5, 1, 3.5}, types.Vec3{0, -1, 0})
		it.Occluded(&ray)
	}
}
