package scene

import (
	"testing"

	"github.com/altair-render/altair/types"
)

func TestNodeRefEncoding(t *testing.T) {
	ref := AlignedRef(42)
	if ref.Kind() != KindAligned || ref.Index() != 42 || ref.IsLeaf() {
		t.Fatalf("expected aligned interior ref with index 42; got kind %d index %d", ref.Kind(), ref.Index())
	}

	ref = OrientedRef(7)
	if ref.Kind() != KindOriented || ref.Index() != 7 || ref.IsLeaf() {
		t.Fatalf("expected oriented interior ref with index 7; got kind %d index %d", ref.Kind(), ref.Index())
	}

	ref = QuadLeafRef(13)
	if ref.Kind() != KindQuadLeaf || ref.Index() != 13 || !ref.IsLeaf() {
		t.Fatalf("expected quad leaf ref with index 13; got kind %d index %d", ref.Kind(), ref.Index())
	}

	ref = CurveLeafRef(100, 5)
	if ref.Kind() != KindCurveLeaf || ref.Index() != 100 || ref.Count() != 5 || !ref.IsLeaf() {
		t.Fatalf("expected curve leaf ref with index 100 count 5; got kind %d index %d count %d", ref.Kind(), ref.Index(), ref.Count())
	}
}

func TestAlignedNodeReset(t *testing.T) {
	var n AlignedNode
	n.Reset()

	for i := 0; i < 4; i++ {
		if n.Children[i] != EmptyNode {
			t.Fatalf("expected child %d to be empty", i)
		}
		// Inverted bounds so the slab test rejects the slot.
		if n.MinX[i] <= n.MaxX[i] {
			t.Fatalf("expected slot %d bounds to be inverted; got [%f, %f]", i, n.MinX[i], n.MaxX[i])
		}
	}

	n.SetChild(2, QuadLeafRef(0), types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1})
	if n.Children[2] != QuadLeafRef(0) || n.MinY[2] != -1 || n.MaxY[2] != 1 {
		t.Fatalf("expected slot 2 to hold the assigned child bounds")
	}
}

func TestOrientedNodeMapsChildBoxToUnitBox(t *testing.T) {
	var n OrientedNode
	n.Reset()

	frame := types.FrameFromZ(types.Vec3{0, 0, 1})
	bmin := types.Vec3{1, 2, 3}
	bmax := types.Vec3{3, 4, 5}
	n.SetChild(1, CurveLeafRef(0, 1), frame, bmin, bmax)

	xfm := func(p types.Vec3) types.Vec3 {
		var out types.Vec3
		out[0] = n.VX.X[1]*p[0] + n.VY.X[1]*p[1] + n.VZ.X[1]*p[2] + n.P.X[1]
		out[1] = n.VX.Y[1]*p[0] + n.VY.Y[1]*p[1] + n.VZ.Y[1]*p[2] + n.P.Y[1]
		out[2] = n.VX.Z[1]*p[0] + n.VY.Z[1]*p[1] + n.VZ.Z[1]*p[2] + n.P.Z[1]
		return out
	}

	lo := xfm(bmin)
	hi := xfm(bmax)
	for axis := 0; axis < 3; axis++ {
		if lo[axis] < -1e-5 || lo[axis] > 1e-5 {
			t.Fatalf("expected bmin to map to 0 on axis %d; got %f", axis, lo[axis])
		}
		if hi[axis] < 1-1e-5 || hi[axis] > 1+1e-5 {
			t.Fatalf("expected bmax to map to 1 on axis %d; got %f", axis, hi[axis])
		}
	}
}

func TestQuadBatchPrefix(t *testing.T) {
	var b QuadBatch
	b.Reset()
	if b.Size() != 0 {
		t.Fatalf("expected reset batch size 0; got %d", b.Size())
	}

	b.SetQuad(0, types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{1, 1, 0}, types.Vec3{0, 1, 0}, 0, 0)
	b.SetQuad(1, types.Vec3{2, 0, 0}, types.Vec3{3, 0, 0}, types.Vec3{3, 1, 0}, types.Vec3{2, 1, 0}, 0, 1)
	if b.Size() != 2 {
		t.Fatalf("expected batch size 2; got %d", b.Size())
	}
	if b.Valid(2) || b.Valid(3) {
		t.Fatalf("expected tail slots to be unused")
	}

	// Tail lanes replicate the last written quad so lane math stays NaN
	// free.
	if b.V0.X[2] != 2 || b.V0.X[3] != 2 {
		t.Fatalf("expected tail lanes to replicate slot 1 vertices; got %f, %f", b.V0.X[2], b.V0.X[3])
	}

	bmin, bmax := b.Bounds()
	if bmin != (types.Vec3{0, 0, 0}) || bmax != (types.Vec3{3, 1, 0}) {
		t.Fatalf("expected bounds [(0 0 0), (3 1 0)]; got [%v, %v]", bmin, bmax)
	}
}
