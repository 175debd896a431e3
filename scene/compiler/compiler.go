package compiler

import (
	"time"

	"github.com/altair-render/altair/log"
	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/types"
)

// Max curve segments packed into a single leaf run. Must fit the count
// bits of a NodeRef.
const maxCurveLeafItems = 8

var logger = log.New("compiler")

// A raw quad primitive fed to Compile. Corners wind v0,v1,v2,v3 around
// the perimeter; the v1-v3 diagonal splits the quad into its two
// intersection triangles. Degenerate quads (a repeated corner) encode
// plain triangles.
type Quad struct {
	V0, V1, V2, V3 types.Vec3

	GeomID uint32
	PrimID uint32
}

func (q *Quad) BBox() [2]types.Vec3 {
	bmin := types.MinVec3(types.MinVec3(q.V0, q.V1), types.MinVec3(q.V2, q.V3))
	bmax := types.MaxVec3(types.MaxVec3(q.V0, q.V1), types.MaxVec3(q.V2, q.V3))
	return [2]types.Vec3{bmin, bmax}
}

func (q *Quad) Center() types.Vec3 {
	bbox := q.BBox()
	return bbox[0].Add(bbox[1]).Mul(0.5)
}

// Adapts a curve segment to the builder interfaces.
type curveVolume struct {
	seg scene.CurveSegment
}

func (c *curveVolume) BBox() [2]types.Vec3 {
	bmin, bmax := c.seg.Bounds()
	return [2]types.Vec3{bmin, bmax}
}

func (c *curveVolume) Center() types.Vec3 {
	bbox := c.BBox()
	return bbox[0].Add(bbox[1]).Mul(0.5)
}

func (c *curveVolume) Axis() types.Vec3 {
	return c.seg.Axis()
}

// Compile builds the acceleration structure for a set of quads and hair
// segments and returns the queryable scene.
//
// Quads get an axis-aligned subtree with batch leaves; curves get an
// oriented subtree whose bounds hug the hair direction. When both are
// present a two-child aligned node joins the subtrees. The result is
// validated before it is returned.
func Compile(quads []Quad, curves []scene.CurveSegment) (*scene.Scene, error) {
	start := time.Now()

	sc := &scene.Scene{}
	sc.Accel.Root = scene.EmptyNode

	quadRef := scene.EmptyNode
	curveRef := scene.EmptyNode
	var quadBounds, curveBounds [2]types.Vec3

	if len(quads) > 0 {
		workList := make([]BoundedVolume, len(quads))
		for i := range quads {
			workList[i] = &quads[i]
		}

		var err error
		quadRef, quadBounds, err = Build(&sc.Accel, workList, Options{
			MinLeafItems: scene.QuadBatchSize,
			MaxLeafItems: scene.QuadBatchSize,
			Score:        SurfaceAreaHeuristic,
			Leaf: func(items []BoundedVolume) scene.NodeRef {
				idx := len(sc.Accel.Quads)
				sc.Accel.Quads = append(sc.Accel.Quads, scene.QuadBatch{})
				batch := &sc.Accel.Quads[idx]
				batch.Reset()
				for slot, item := range items {
					q := item.(*Quad)
					batch.SetQuad(slot, q.V0, q.V1, q.V2, q.V3, q.GeomID, q.PrimID)
				}
				return scene.QuadLeafRef(uint32(idx))
			},
		})
		if err != nil {
			return nil, err
		}
	}

	if len(curves) > 0 {
		workList := make([]BoundedVolume, len(curves))
		for i := range curves {
			workList[i] = &curveVolume{seg: curves[i]}
		}

		var err error
		curveRef, curveBounds, err = Build(&sc.Accel, workList, Options{
			MinLeafItems: 2,
			MaxLeafItems: maxCurveLeafItems,
			Oriented:     true,
			Score:        SurfaceAreaHeuristic,
			Leaf: func(items []BoundedVolume) scene.NodeRef {
				first := len(sc.Accel.Curves)
				for _, item := range items {
					sc.Accel.Curves = append(sc.Accel.Curves, item.(*curveVolume).seg)
				}
				return scene.CurveLeafRef(uint32(first), len(items))
			},
		})
		if err != nil {
			return nil, err
		}
	}

	switch {
	case quadRef != scene.EmptyNode && curveRef != scene.EmptyNode:
		idx := len(sc.Accel.Aligned)
		sc.Accel.Aligned = append(sc.Accel.Aligned, scene.AlignedNode{})
		root := &sc.Accel.Aligned[idx]
		root.Reset()
		root.SetChild(0, quadRef, quadBounds[0], quadBounds[1])
		root.SetChild(1, curveRef, curveBounds[0], curveBounds[1])
		sc.Accel.Root = scene.AlignedRef(uint32(idx))
		sc.Accel.MaxDepth++
	case quadRef != scene.EmptyNode:
		sc.Accel.Root = quadRef
	case curveRef != scene.EmptyNode:
		sc.Accel.Root = curveRef
	}

	if err := sc.Accel.Validate(); err != nil {
		return nil, err
	}

	logger.Noticef(
		"compiled scene in %d ms (%d quads, %d curve segments)",
		time.Since(start).Nanoseconds()/1e6,
		len(quads), len(curves),
	)
	return sc, nil
}
