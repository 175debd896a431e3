package tracer

import (
	"math"

	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/simd"
)

// A deferred subtree during packet traversal: per-lane entry distances,
// the lane mask that still wants the subtree and a scalar sort key (the
// nearest entry over those lanes).
type packetStackItem[F simd.Float] struct {
	ref   scene.NodeRef
	tNear F
	mask  simd.Mask
	dist  float32
}

// IntersectPacket runs a nearest-hit query for every active lane of the
// packet. A node is entered while any surviving lane intersects its
// bounds; per-lane tfar values shrink independently as lanes commit
// hits. Scenes containing curve geometry (and its oriented nodes) are
// single-ray only and are rejected up front with ErrOrientedPacket.
func IntersectPacket[F simd.Float, I Uints](it *Intersector, p *RayPacket[F, I]) error {
	return traversePacket(it, p, false, nil)
}

// OccludedPacket reports, per lane, whether anything blocks the lane's
// interval. Lanes drop out of the traversal as soon as they are found
// occluded; ray outputs are not written.
func OccludedPacket[F simd.Float, I Uints](it *Intersector, p *RayPacket[F, I]) (simd.Mask, error) {
	var occluded simd.Mask
	err := traversePacket(it, p, true, &occluded)
	return occluded, err
}

func traversePacket[F simd.Float, I Uints](it *Intersector, p *RayPacket[F, I], shadow bool, occluded *simd.Mask) error {
	accel := &it.sc.Accel
	if len(accel.Oriented) > 0 || len(accel.Curves) > 0 {
		return ErrOrientedPacket
	}

	active := p.Active & simd.CmpLE(p.TNear, p.TFar)
	if accel.Root == scene.EmptyNode || active.None() {
		return nil
	}

	one := simd.Splat[F](1)
	rdirX := simd.Div(one, p.DirX)
	rdirY := simd.Div(one, p.DirY)
	rdirZ := simd.Div(one, p.DirZ)

	var stack [stackSize]packetStackItem[F]
	sp := 0
	cur := packetStackItem[F]{ref: accel.Root, tNear: p.TNear, mask: active}

	for {
		live := cur.mask
		if shadow {
			live &^= *occluded
		}

		if live.Any() {
			if cur.ref.IsLeaf() {
				if it.Stats != nil {
					it.Stats.Leafs++
				}
				batch := &accel.Quads[cur.ref.Index()]
				if shadow {
					occludedQuadBatchPacket(it, batch, p, live, occluded)
					if (active &^ *occluded).None() {
						return nil
					}
				} else {
					intersectQuadBatchPacket(it, batch, p, live)
				}
			} else {
				n := &accel.Aligned[cur.ref.Index()]
				if it.Stats != nil {
					it.Stats.AlignedNodes++
				}

				var items [4]packetStackItem[F]
				cnt := 0
				for i := 0; i < 4; i++ {
					if n.Children[i] == scene.EmptyNode {
						continue
					}
					tN, m := intersectAlignedChildPacket(n, i, p, rdirX, rdirY, rdirZ, live)
					if m.None() {
						continue
					}
					dist := float32(math.Inf(1))
					for l := 0; l < simd.Width[F](); l++ {
						if m.Lane(l) && tN[l] < dist {
							dist = tN[l]
						}
					}
					items[cnt] = packetStackItem[F]{ref: n.Children[i], tNear: tN, mask: m, dist: dist}
					cnt++
				}

				// Nearest-first: insertion sort on the scalar key.
				for a := 1; a < cnt; a++ {
					for b := a; b > 0 && items[b].dist < items[b-1].dist; b-- {
						items[b], items[b-1] = items[b-1], items[b]
					}
				}
				if cnt > 0 {
					for a := cnt - 1; a >= 1; a-- {
						stack[sp] = items[a]
						sp++
					}
					cur = items[0]
					continue
				}
			}
		}

		// Pop, re-masking against the lanes' current tfar.
		popped := false
		for sp > 0 {
			sp--
			top := stack[sp]
			top.mask &= simd.CmpLT(top.tNear, p.TFar)
			if shadow {
				top.mask &^= *occluded
			}
			if top.mask.Any() {
				cur = top
				popped = true
				break
			}
		}
		if !popped {
			return nil
		}
	}
}

// Test every quad of a batch against all live packet lanes: the packet
// path broadcasts one triangle pair across the ray lanes.
func intersectQuadBatchPacket[F simd.Float, I Uints](it *Intersector, b *scene.QuadBatch, p *RayPacket[F, I], live simd.Mask) {
	o := simd.Vec3[F]{X: p.OrgX, Y: p.OrgY, Z: p.OrgZ}
	d := simd.Vec3[F]{X: p.DirX, Y: p.DirY, Z: p.DirZ}

	size := b.Size()
	if it.Stats != nil {
		it.Stats.PrimTests += uint64(2 * size)
	}
	for slot := 0; slot < size; slot++ {
		v0 := simd.SplatVec3[F](b.V0.X[slot], b.V0.Y[slot], b.V0.Z[slot])
		v1 := simd.SplatVec3[F](b.V1.X[slot], b.V1.Y[slot], b.V1.Z[slot])
		v2 := simd.SplatVec3[F](b.V2.X[slot], b.V2.Y[slot], b.V2.Z[slot])
		v3 := simd.SplatVec3[F](b.V3.X[slot], b.V3.Y[slot], b.V3.Z[slot])

		epi := &intersectKEpilog[F, I]{
			packet: p,
			sc:     it.sc,
			geomID: b.GeomIDs[slot],
			primID: b.PrimIDs[slot],
			filter: it.opts.Filter,
			stats:  it.Stats,
		}
		triIntersect(o, d, p.TNear, p.TFar, v0, v1, v3, false, it.opts.BackfaceCulling, live, epi)
		triIntersect(o, d, p.TNear, p.TFar, v2, v3, v1, true, it.opts.BackfaceCulling, live, epi)
	}
}

func occludedQuadBatchPacket[F simd.Float, I Uints](it *Intersector, b *scene.QuadBatch, p *RayPacket[F, I], live simd.Mask, occluded *simd.Mask) {
	o := simd.Vec3[F]{X: p.OrgX, Y: p.OrgY, Z: p.OrgZ}
	d := simd.Vec3[F]{X: p.DirX, Y: p.DirY, Z: p.DirZ}

	size := b.Size()
	if it.Stats != nil {
		it.Stats.PrimTests += uint64(2 * size)
	}
	for slot := 0; slot < size; slot++ {
		remaining := live &^ *occluded
		if remaining.None() {
			return
		}

		v0 := simd.SplatVec3[F](b.V0.X[slot], b.V0.Y[slot], b.V0.Z[slot])
		v1 := simd.SplatVec3[F](b.V1.X[slot], b.V1.Y[slot], b.V1.Z[slot])
		v2 := simd.SplatVec3[F](b.V2.X[slot], b.V2.Y[slot], b.V2.Z[slot])
		v3 := simd.SplatVec3[F](b.V3.X[slot], b.V3.Y[slot], b.V3.Z[slot])

		epi := &occludedKEpilog[F, I]{
			packet:   p,
			sc:       it.sc,
			geomID:   b.GeomIDs[slot],
			primID:   b.PrimIDs[slot],
			filter:   it.opts.Filter,
			stats:    it.Stats,
			occluded: occluded,
		}
		triIntersect(o, d, p.TNear, p.TFar, v0, v1, v3, false, it.opts.BackfaceCulling, remaining, epi)
		triIntersect(o, d, p.TNear, p.TFar, v2, v3, v1, true, it.opts.BackfaceCulling, remaining&^*occluded, epi)
	}
}
