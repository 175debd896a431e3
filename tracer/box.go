package tracer

import (
	"math"

	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/simd"
	"github.com/altair-render/altair/types"
)

// Per-query ray data shared by every box test of one traversal.
type travRay struct {
	org  types.Vec3
	dir  types.Vec3
	rdir types.Vec3

	// Direction sign per axis, used to pick near/far slab planes.
	neg [3]bool

	// Lazily built ray-space frame for curve leaves.
	haveFrame bool
	frame     types.Frame
	invDirLen float32
}

func newTravRay(ray *Ray) travRay {
	tr := travRay{
		org:  ray.Org,
		dir:  ray.Dir,
		rdir: types.Vec3{1 / ray.Dir[0], 1 / ray.Dir[1], 1 / ray.Dir[2]},
	}
	// Classify by sign bit, not by comparison: -0.0 yields rdir=-Inf,
	// so it must select the same planes as any negative direction.
	for axis := 0; axis < 3; axis++ {
		tr.neg[axis] = math.Float32bits(ray.Dir[axis])&0x80000000 != 0
	}
	return tr
}

// Ray-space frame for the swept-capsule test, built on first use.
func (tr *travRay) raySpace() (types.Frame, float32) {
	if !tr.haveFrame {
		l := tr.dir.Len()
		tr.invDirLen = 1 / l
		tr.frame = types.FrameFromZ(tr.dir.Mul(tr.invDirLen))
		tr.haveFrame = true
	}
	return tr.frame, tr.invDirLen
}

// Slab test of one ray against the 4 axis-aligned child bounds of a node.
// Returns per-child entry/exit distances and a mask of children whose
// slab interval overlaps [tnear,tfar]. Empty slots carry inverted bounds
// and never pass; NaN lanes (degenerate ray) fail every comparison and
// never pass either.
func intersectAlignedBox(n *scene.AlignedNode, tr *travRay, tnear, tfar float32) (simd.F4, simd.F4, simd.Mask) {
	bloX, bhiX := n.MinX, n.MaxX
	if tr.neg[0] {
		bloX, bhiX = bhiX, bloX
	}
	bloY, bhiY := n.MinY, n.MaxY
	if tr.neg[1] {
		bloY, bhiY = bhiY, bloY
	}
	bloZ, bhiZ := n.MinZ, n.MaxZ
	if tr.neg[2] {
		bloZ, bhiZ = bhiZ, bloZ
	}

	tNearX := simd.MulS(simd.Sub(bloX, simd.Splat[simd.F4](tr.org[0])), tr.rdir[0])
	tNearY := simd.MulS(simd.Sub(bloY, simd.Splat[simd.F4](tr.org[1])), tr.rdir[1])
	tNearZ := simd.MulS(simd.Sub(bloZ, simd.Splat[simd.F4](tr.org[2])), tr.rdir[2])
	tFarX := simd.MulS(simd.Sub(bhiX, simd.Splat[simd.F4](tr.org[0])), tr.rdir[0])
	tFarY := simd.MulS(simd.Sub(bhiY, simd.Splat[simd.F4](tr.org[1])), tr.rdir[1])
	tFarZ := simd.MulS(simd.Sub(bhiZ, simd.Splat[simd.F4](tr.org[2])), tr.rdir[2])

	tN := simd.Max(simd.Max(tNearX, tNearY), simd.Max(tNearZ, simd.Splat[simd.F4](tnear)))
	tF := simd.Min(simd.Min(tFarX, tFarY), simd.Min(tFarZ, simd.Splat[simd.F4](tfar)))

	return tN, tF, simd.CmpLE(tN, tF)
}

// Box test for oriented nodes: transform the ray into each child's
// world-to-unit-box frame, then slab test against [0,1].
func intersectOrientedBox(n *scene.OrientedNode, tr *travRay, tnear, tfar float32) (simd.F4, simd.F4, simd.Mask) {
	xfm := func(x, y, z float32) simd.Vec3[simd.F4] {
		out := simd.Vec3[simd.F4]{
			X: simd.MulS(n.VX.X, x),
			Y: simd.MulS(n.VX.Y, x),
			Z: simd.MulS(n.VX.Z, x),
		}
		out.X = simd.Add(out.X, simd.MulS(n.VY.X, y))
		out.Y = simd.Add(out.Y, simd.MulS(n.VY.Y, y))
		out.Z = simd.Add(out.Z, simd.MulS(n.VY.Z, y))
		out.X = simd.Add(out.X, simd.MulS(n.VZ.X, z))
		out.Y = simd.Add(out.Y, simd.MulS(n.VZ.Y, z))
		out.Z = simd.Add(out.Z, simd.MulS(n.VZ.Z, z))
		return out
	}

	dir := xfm(tr.dir[0], tr.dir[1], tr.dir[2])
	org := xfm(tr.org[0], tr.org[1], tr.org[2])
	org.X = simd.Add(org.X, n.P.X)
	org.Y = simd.Add(org.Y, n.P.Y)
	org.Z = simd.Add(org.Z, n.P.Z)

	one := simd.Splat[simd.F4](1)
	rdir := simd.Vec3[simd.F4]{X: simd.Div(one, dir.X), Y: simd.Div(one, dir.Y), Z: simd.Div(one, dir.Z)}

	slab := func(o, rd simd.F4) (lo, hi simd.F4) {
		t0 := simd.Mul(simd.Sub(simd.F4{}, o), rd)
		t1 := simd.Mul(simd.Sub(simd.Splat[simd.F4](1), o), rd)
		return simd.Min(t0, t1), simd.Max(t0, t1)
	}

	loX, hiX := slab(org.X, rdir.X)
	loY, hiY := slab(org.Y, rdir.Y)
	loZ, hiZ := slab(org.Z, rdir.Z)

	tN := simd.Max(simd.Max(loX, loY), simd.Max(loZ, simd.Splat[simd.F4](tnear)))
	tF := simd.Min(simd.Min(hiX, hiY), simd.Min(hiZ, simd.Splat[simd.F4](tfar)))

	return tN, tF, simd.CmpLE(tN, tF)
}

// Slab test of child slot i of an aligned node against all lanes of a
// packet. Returns per-lane entry distances and the surviving lane mask.
func intersectAlignedChildPacket[F simd.Float, I Uints](n *scene.AlignedNode, i int, p *RayPacket[F, I], rdirX, rdirY, rdirZ F, active simd.Mask) (F, simd.Mask) {
	slab := func(bmin, bmax float32, org, rdir F) (lo, hi F) {
		t0 := simd.Mul(simd.Sub(simd.Splat[F](bmin), org), rdir)
		t1 := simd.Mul(simd.Sub(simd.Splat[F](bmax), org), rdir)
		return simd.Min(t0, t1), simd.Max(t0, t1)
	}

	loX, hiX := slab(n.MinX[i], n.MaxX[i], p.OrgX, rdirX)
	loY, hiY := slab(n.MinY[i], n.MaxY[i], p.OrgY, rdirY)
	loZ, hiZ := slab(n.MinZ[i], n.MaxZ[i], p.OrgZ, rdirZ)

	tN := simd.Max(simd.Max(loX, loY), simd.Max(loZ, p.TNear))
	tF := simd.Min(simd.Min(hiX, hiY), simd.Min(hiZ, p.TFar))

	return tN, active & simd.CmpLE(tN, tF)
}
