package scene

import (
	"fmt"

	"github.com/altair-render/altair/types"
	"github.com/chewxy/math32"
)

// Containment slack: one float32 step around unity per bound component.
const boundsEpsilon float32 = 1e-4

// Validate walks the full tree and asserts the invariants the traversal
// hot path assumes without checking: depth within the stack capacity,
// references inside their storage slices, child bounds contained in their
// parent slot, prefix-valid quad batches and sane curve leaf counts. Runs
// off the hot path only.
//
// Containment is only tracked through aligned subtrees; below an oriented
// node the bounds live in per-child frame space and world containment no
// longer applies.
func (b *BVH) Validate() error {
	if b.Root == EmptyNode {
		if len(b.Aligned) != 0 || len(b.Oriented) != 0 {
			return ErrNoRoot
		}
		return nil
	}

	type visit struct {
		ref   NodeRef
		depth int

		// World bounds of the slot referencing this subtree, when known.
		bounded    bool
		bmin, bmax types.Vec3
	}
	contains := func(v visit, bmin, bmax types.Vec3) bool {
		if !v.bounded {
			return true
		}
		for axis := 0; axis < 3; axis++ {
			slack := boundsEpsilon * (1 + math32.Abs(v.bmin[axis]) + math32.Abs(v.bmax[axis]))
			if bmin[axis] < v.bmin[axis]-slack || bmax[axis] > v.bmax[axis]+slack {
				return false
			}
		}
		return true
	}

	stack := make([]visit, 0, MaxBuildDepth*3)
	stack = append(stack, visit{ref: b.Root, depth: 1})

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if v.depth > MaxBuildDepth {
			return fmt.Errorf("%w: depth %d > %d", ErrMaxDepthExceeded, v.depth, MaxBuildDepth)
		}

		switch v.ref.Kind() {
		case KindAligned:
			if int(v.ref.Index()) >= len(b.Aligned) {
				return fmt.Errorf("%w: aligned %d", ErrInvalidNodeRef, v.ref.Index())
			}
			node := &b.Aligned[v.ref.Index()]
			for i, child := range node.Children {
				if child == EmptyNode {
					continue
				}
				cmin := types.Vec3{node.MinX[i], node.MinY[i], node.MinZ[i]}
				cmax := types.Vec3{node.MaxX[i], node.MaxY[i], node.MaxZ[i]}
				if !contains(v, cmin, cmax) {
					return fmt.Errorf("%w: aligned %d slot %d", ErrBoundsEscape, v.ref.Index(), i)
				}
				stack = append(stack, visit{ref: child, depth: v.depth + 1, bounded: true, bmin: cmin, bmax: cmax})
			}
		case KindOriented:
			if int(v.ref.Index()) >= len(b.Oriented) {
				return fmt.Errorf("%w: oriented %d", ErrInvalidNodeRef, v.ref.Index())
			}
			node := &b.Oriented[v.ref.Index()]
			for _, child := range node.Children {
				if child != EmptyNode {
					stack = append(stack, visit{ref: child, depth: v.depth + 1})
				}
			}
		case KindQuadLeaf:
			if int(v.ref.Index()) >= len(b.Quads) {
				return fmt.Errorf("%w: quad leaf %d", ErrInvalidNodeRef, v.ref.Index())
			}
			batch := &b.Quads[v.ref.Index()]
			invalidSeen := false
			for i := 0; i < QuadBatchSize; i++ {
				if !batch.Valid(i) {
					invalidSeen = true
				} else if invalidSeen {
					return fmt.Errorf("%w: batch %d slot %d", ErrNonPrefixBatch, v.ref.Index(), i)
				}
			}
			if batch.Size() > 0 {
				bmin, bmax := batch.Bounds()
				if !contains(v, bmin, bmax) {
					return fmt.Errorf("%w: quad leaf %d", ErrBoundsEscape, v.ref.Index())
				}
			}
		case KindCurveLeaf:
			count := v.ref.Count()
			if count < 1 || count > refCountMask {
				return fmt.Errorf("%w: count %d", ErrInvalidLeafCount, count)
			}
			if int(v.ref.Index())+count > len(b.Curves) {
				return fmt.Errorf("%w: curve leaf %d+%d", ErrInvalidNodeRef, v.ref.Index(), count)
			}
		}
	}

	return nil
}
