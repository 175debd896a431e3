package scene

import (
	"math"

	"github.com/altair-render/altair/simd"
	"github.com/altair-render/altair/types"
)

// Max depth of a tree produced by the builder. Traversal stacks are sized
// for this depth and perform no bounds checks; Validate enforces it.
const MaxBuildDepth = 64

// A tagged reference to a BVH node or leaf.
//
// Layout: bits 0-1 hold the kind tag, bits 2-5 hold the item count for
// curve leaves and bits 6+ hold the index into the kind's storage slice.
type NodeRef uint32

const (
	KindAligned uint32 = iota
	KindOriented
	KindQuadLeaf
	KindCurveLeaf
)

const (
	refKindBits  = 2
	refCountBits = 4
	refKindMask  = 1<<refKindBits - 1
	refCountMask = 1<<refCountBits - 1

	// Marks an unused child slot.
	EmptyNode NodeRef = math.MaxUint32
)

// Create a reference to an axis-aligned interior node.
func AlignedRef(index uint32) NodeRef {
	return NodeRef(index<<(refKindBits+refCountBits) | KindAligned)
}

// Create a reference to an oriented interior node.
func OrientedRef(index uint32) NodeRef {
	return NodeRef(index<<(refKindBits+refCountBits) | KindOriented)
}

// Create a reference to a quad batch leaf.
func QuadLeafRef(index uint32) NodeRef {
	return NodeRef(index<<(refKindBits+refCountBits) | KindQuadLeaf)
}

// Create a reference to a run of count curve segments starting at index.
func CurveLeafRef(index uint32, count int) NodeRef {
	return NodeRef(index<<(refKindBits+refCountBits) | uint32(count)<<refKindBits | KindCurveLeaf)
}

func (r NodeRef) Kind() uint32  { return uint32(r) & refKindMask }
func (r NodeRef) Index() uint32 { return uint32(r) >> (refKindBits + refCountBits) }
func (r NodeRef) Count() int    { return int(uint32(r) >> refKindBits & refCountMask) }

func (r NodeRef) IsLeaf() bool {
	return r.Kind() >= KindQuadLeaf
}

// An interior node with up to 4 axis-aligned child bounds stored as
// structure of arrays, one lane per child.
type AlignedNode struct {
	MinX, MinY, MinZ simd.F4
	MaxX, MaxY, MaxZ simd.F4

	Children [4]NodeRef
}

// Mark all child slots empty. Empty slots carry inverted bounds so the
// slab test rejects them without a special case.
func (n *AlignedNode) Reset() {
	for i := 0; i < 4; i++ {
		n.MinX[i], n.MinY[i], n.MinZ[i] = float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))
		n.MaxX[i], n.MaxY[i], n.MaxZ[i] = float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))
		n.Children[i] = EmptyNode
	}
}

// Assign child slot i.
func (n *AlignedNode) SetChild(i int, ref NodeRef, bmin, bmax types.Vec3) {
	n.MinX[i], n.MinY[i], n.MinZ[i] = bmin[0], bmin[1], bmin[2]
	n.MaxX[i], n.MaxY[i], n.MaxZ[i] = bmax[0], bmax[1], bmax[2]
	n.Children[i] = ref
}

// An interior node with up to 4 oriented child bounds. Each child stores
// an affine transform that maps world space into the child's unit box, so
// the box test is a ray transform followed by a [0,1] slab test. Used over
// curve subtrees where axis-aligned bounds are too loose.
type OrientedNode struct {
	// World-to-unit-box transform columns, one lane per child:
	// local = VX*p.x + VY*p.y + VZ*p.z + P.
	VX, VY, VZ, P simd.Vec3[simd.F4]

	Children [4]NodeRef
}

// Mark all child slots empty. The zero transform collapses directions and
// sends origins to +inf, which empties the slab interval.
func (n *OrientedNode) Reset() {
	inf := float32(math.Inf(1))
	for i := 0; i < 4; i++ {
		n.VX.X[i], n.VX.Y[i], n.VX.Z[i] = 0, 0, 0
		n.VY.X[i], n.VY.Y[i], n.VY.Z[i] = 0, 0, 0
		n.VZ.X[i], n.VZ.Y[i], n.VZ.Z[i] = 0, 0, 0
		n.P.X[i], n.P.Y[i], n.P.Z[i] = inf, inf, inf
		n.Children[i] = EmptyNode
	}
}

// Assign child slot i from a frame and the child bounds expressed in that
// frame. The stored transform maps the frame-space box [bmin,bmax] to the
// unit box.
func (n *OrientedNode) SetChild(i int, ref NodeRef, frame types.Frame, bmin, bmax types.Vec3) {
	ext := bmax.Sub(bmin)
	for k := 0; k < 3; k++ {
		if ext[k] < 1e-6 {
			ext[k] = 1e-6
		}
	}
	rx := frame.VX.Mul(1 / ext[0])
	ry := frame.VY.Mul(1 / ext[1])
	rz := frame.VZ.Mul(1 / ext[2])

	n.VX.X[i], n.VX.Y[i], n.VX.Z[i] = rx[0], ry[0], rz[0]
	n.VY.X[i], n.VY.Y[i], n.VY.Z[i] = rx[1], ry[1], rz[1]
	n.VZ.X[i], n.VZ.Y[i], n.VZ.Z[i] = rx[2], ry[2], rz[2]
	n.P.X[i] = -bmin[0] / ext[0]
	n.P.Y[i] = -bmin[1] / ext[1]
	n.P.Z[i] = -bmin[2] / ext[2]
	n.Children[i] = ref
}

// A 4-wide bounding volume hierarchy over quad batches and curve segments.
// Nodes and leaves live in flat slices addressed through tagged NodeRefs;
// the structure is immutable once built and may be traversed concurrently.
type BVH struct {
	Aligned  []AlignedNode
	Oriented []OrientedNode
	Quads    []QuadBatch
	Curves   []CurveSegment

	Root NodeRef

	// Actual tree depth as reported by the builder.
	MaxDepth int
}
