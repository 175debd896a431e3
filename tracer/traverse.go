package tracer

import (
	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/simd"
)

type Options struct {
	// Reject hits whose geometric normal faces away from the ray.
	BackfaceCulling bool

	// External accept/reject predicate over finalized hit attributes.
	// Optional; nil accepts everything.
	Filter Filter
}

// An Intersector issues nearest-hit and occlusion queries against one
// compiled scene. It owns a fixed-capacity traversal stack, so it is not
// safe for concurrent use: create one Intersector per goroutine. The
// scene itself is read-only and freely shared.
type Intersector struct {
	sc   *scene.Scene
	opts Options

	// Optional traversal counters; nil disables collection.
	Stats *Stats

	stack [stackSize]stackItem
}

// Create an intersector for a compiled scene.
func New(sc *scene.Scene, opts Options) *Intersector {
	return &Intersector{sc: sc, opts: opts}
}

// The scene this intersector queries.
func (it *Intersector) Scene() *scene.Scene {
	return it.sc
}

// Intersect mutates ray to the nearest accepted hit, or leaves its output
// fields at their sentinel values when nothing is hit.
//
// The descent is ordered: at every interior node the surviving children
// are sorted by entry distance, the nearest is entered directly and the
// rest are deferred to the stack. Deferred entries that can no longer
// beat the shrinking ray.TFar are discarded when popped.
func (it *Intersector) Intersect(ray *Ray) {
	accel := &it.sc.Accel
	if accel.Root == scene.EmptyNode || ray.TNear > ray.TFar {
		return
	}

	tr := newTravRay(ray)
	cur := stackItem{ref: accel.Root, tNear: ray.TNear, tFar: ray.TFar}
	sp := 0

	for {
		if cur.ref.IsLeaf() {
			it.intersectLeaf(cur.ref, ray, &tr)
		} else {
			items, cnt := it.visitInterior(cur.ref, &tr, ray.TNear, ray.TFar)
			switch cnt {
			case 1:
				cur = items[0]
				continue
			case 2:
				sort2(&items[0], &items[1])
				it.stack[sp] = items[1]
				sp++
				cur = items[0]
				continue
			case 3:
				sort3(&items[0], &items[1], &items[2])
				it.stack[sp] = items[2]
				it.stack[sp+1] = items[1]
				sp += 2
				cur = items[0]
				continue
			case 4:
				sort4(&items[0], &items[1], &items[2], &items[3])
				it.stack[sp] = items[3]
				it.stack[sp+1] = items[2]
				it.stack[sp+2] = items[1]
				sp += 3
				cur = items[0]
				continue
			}
		}

		// Pop the nearest deferred subtree, lazily discarding entries
		// already beaten by the current tfar.
		for {
			if sp == 0 {
				return
			}
			sp--
			if it.stack[sp].tNear < ray.TFar {
				cur = it.stack[sp]
				break
			}
		}
	}
}

// Occluded reports whether anything blocks the ray interval. The first
// accepted hit halts the whole traversal; ray outputs are not written.
func (it *Intersector) Occluded(ray *Ray) bool {
	accel := &it.sc.Accel
	if accel.Root == scene.EmptyNode || ray.TNear > ray.TFar {
		return false
	}

	tr := newTravRay(ray)
	cur := stackItem{ref: accel.Root, tNear: ray.TNear, tFar: ray.TFar}
	sp := 0

	for {
		if cur.ref.IsLeaf() {
			if it.occludedLeaf(cur.ref, ray, &tr) {
				return true
			}
		} else {
			items, cnt := it.visitInterior(cur.ref, &tr, ray.TNear, ray.TFar)
			switch cnt {
			case 1:
				cur = items[0]
				continue
			case 2:
				sort2(&items[0], &items[1])
				it.stack[sp] = items[1]
				sp++
				cur = items[0]
				continue
			case 3:
				sort3(&items[0], &items[1], &items[2])
				it.stack[sp] = items[2]
				it.stack[sp+1] = items[1]
				sp += 2
				cur = items[0]
				continue
			case 4:
				sort4(&items[0], &items[1], &items[2], &items[3])
				it.stack[sp] = items[3]
				it.stack[sp+1] = items[2]
				it.stack[sp+2] = items[1]
				sp += 3
				cur = items[0]
				continue
			}
		}

		for {
			if sp == 0 {
				return false
			}
			sp--
			if it.stack[sp].tNear < ray.TFar {
				cur = it.stack[sp]
				break
			}
		}
	}
}

// Box-test the children of an interior node and gather the survivors.
func (it *Intersector) visitInterior(ref scene.NodeRef, tr *travRay, tnear, tfar float32) ([4]stackItem, int) {
	var (
		tN, tF   simd.F4
		hit      simd.Mask
		children *[4]scene.NodeRef
	)

	if ref.Kind() == scene.KindAligned {
		n := &it.sc.Accel.Aligned[ref.Index()]
		tN, tF, hit = intersectAlignedBox(n, tr, tnear, tfar)
		children = &n.Children
		if it.Stats != nil {
			it.Stats.AlignedNodes++
		}
	} else {
		n := &it.sc.Accel.Oriented[ref.Index()]
		tN, tF, hit = intersectOrientedBox(n, tr, tnear, tfar)
		children = &n.Children
		if it.Stats != nil {
			it.Stats.OrientedNodes++
		}
	}

	var items [4]stackItem
	cnt := 0
	for i := 0; i < 4; i++ {
		if !hit.Lane(i) || children[i] == scene.EmptyNode {
			continue
		}
		items[cnt] = stackItem{ref: children[i], tNear: tN[i], tFar: tF[i]}
		cnt++
	}
	return items, cnt
}

func (it *Intersector) intersectLeaf(ref scene.NodeRef, ray *Ray, tr *travRay) {
	if it.Stats != nil {
		it.Stats.Leafs++
	}
	switch ref.Kind() {
	case scene.KindQuadLeaf:
		it.intersectQuadBatch(&it.sc.Accel.Quads[ref.Index()], ray, tr)
	case scene.KindCurveLeaf:
		idx := int(ref.Index())
		for s := idx; s < idx+ref.Count(); s++ {
			it.intersectBezier(&it.sc.Accel.Curves[s], ray, tr)
		}
	}
}

func (it *Intersector) occludedLeaf(ref scene.NodeRef, ray *Ray, tr *travRay) bool {
	if it.Stats != nil {
		it.Stats.Leafs++
	}
	switch ref.Kind() {
	case scene.KindQuadLeaf:
		return it.occludedQuadBatch(&it.sc.Accel.Quads[ref.Index()], ray, tr)
	case scene.KindCurveLeaf:
		idx := int(ref.Index())
		for s := idx; s < idx+ref.Count(); s++ {
			if it.occludedBezier(&it.sc.Accel.Curves[s], ray, tr) {
				return true
			}
		}
	}
	return false
}

// Intersect one quad batch: the two triangles of each pair are tested as
// two 4-wide kernel invocations. tfar lanes are re-read between the two
// calls so a hit on the first triangle prunes the second.
func (it *Intersector) intersectQuadBatch(b *scene.QuadBatch, ray *Ray, tr *travRay) {
	active := simd.Mask(1<<b.Size()) - 1
	if active.None() {
		return
	}
	if it.Stats != nil {
		it.Stats.PrimTests += uint64(2 * b.Size())
	}

	o := simd.SplatVec3[simd.F4](ray.Org[0], ray.Org[1], ray.Org[2])
	d := simd.SplatVec3[simd.F4](ray.Dir[0], ray.Dir[1], ray.Dir[2])
	tnear := simd.Splat[simd.F4](ray.TNear)
	epi := &intersect1Epilog{
		ray:     ray,
		sc:      it.sc,
		geomIDs: &b.GeomIDs,
		primIDs: &b.PrimIDs,
		filter:  it.opts.Filter,
		stats:   it.Stats,
	}

	triIntersect(o, d, tnear, simd.Splat[simd.F4](ray.TFar), b.V0, b.V1, b.V3, false, it.opts.BackfaceCulling, active, epi)
	triIntersect(o, d, tnear, simd.Splat[simd.F4](ray.TFar), b.V2, b.V3, b.V1, true, it.opts.BackfaceCulling, active, epi)
}

func (it *Intersector) occludedQuadBatch(b *scene.QuadBatch, ray *Ray, tr *travRay) bool {
	active := simd.Mask(1<<b.Size()) - 1
	if active.None() {
		return false
	}
	if it.Stats != nil {
		it.Stats.PrimTests += uint64(2 * b.Size())
	}

	o := simd.SplatVec3[simd.F4](ray.Org[0], ray.Org[1], ray.Org[2])
	d := simd.SplatVec3[simd.F4](ray.Dir[0], ray.Dir[1], ray.Dir[2])
	tnear := simd.Splat[simd.F4](ray.TNear)
	tfar := simd.Splat[simd.F4](ray.TFar)
	epi := &occluded1Epilog{
		ray:     ray,
		sc:      it.sc,
		geomIDs: &b.GeomIDs,
		primIDs: &b.PrimIDs,
		filter:  it.opts.Filter,
		stats:   it.Stats,
	}

	if triIntersect(o, d, tnear, tfar, b.V0, b.V1, b.V3, false, it.opts.BackfaceCulling, active, epi) {
		return true
	}
	return triIntersect(o, d, tnear, tfar, b.V2, b.V3, b.V1, true, it.opts.BackfaceCulling, active, epi)
}
