package compiler

import (
	"math"
	"sort"
	"time"

	"github.com/altair-render/altair/log"
	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// The builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the split step (calculated as side length / (1024 * depth+1))
	// is less than this threshold the builder will not evaluate
	// split candidates.
	minSplitStep float32 = 1e-5
)

var (
	// A split scoring strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic = surfaceAreaHeuristic{}
)

// The BoundedVolume interface is implemented by all primitives that can
// be partitioned by the builder.
type BoundedVolume interface {
	BBox() [2]types.Vec3
	Center() types.Vec3
}

// Implemented by volumes with a dominant direction (curve segments).
// The builder averages child axes to orient the bounds of oriented
// subtrees.
type OrientedVolume interface {
	Axis() types.Vec3
}

// A callback that packs a leaf's items into the target structure and
// returns the leaf reference.
type LeafCallback func(itemList []BoundedVolume) scene.NodeRef

// A split scoring strategy.
type ScoreStrategy interface {
	// Calculate a score for splitting workList at splitPoint along a particular Axis.
	ScoreSplit(workList []BoundedVolume, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for all items in workList.
	ScorePartition(workList []BoundedVolume) (score float32)
}

type Options struct {
	// Create a leaf whenever the incoming work length is <= MinLeafItems.
	MinLeafItems int

	// Never create a leaf with more than MaxLeafItems items; the builder
	// falls back to a median split when scoring finds no useful split.
	MaxLeafItems int

	// Emit oriented interior nodes instead of axis-aligned ones.
	Oriented bool

	Score ScoreStrategy
	Leaf  LeafCallback
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type stats struct {
	partitionedItems int
	totalItems       int
	nodes            int
	leafs            int
	maxDepth         int
}

// Intermediate binary node; pairs of binary levels are collapsed into
// the 4-wide output nodes.
type binNode struct {
	bmin, bmax  types.Vec3
	left, right *binNode

	// The items below this node. Interior nodes keep theirs so oriented
	// collapse can derive per-child frames.
	items []BoundedVolume
}

func (n *binNode) isLeaf() bool {
	return n.left == nil
}

type builder struct {
	logger log.Logger

	target *scene.BVH
	opts   Options

	// A channel for receiving score results.
	scoreChan chan splitScore

	stats stats
}

// Build constructs a subtree over workList inside target and returns the
// subtree root reference with its world bounds.
//
// The builder uses SAH for scoring splits (score = item count * bbox
// face area) on an intermediate binary tree, then collapses pairs of
// binary levels into 4-wide nodes. Leaf packing is delegated to the
// LeafCallback so the same builder serves quad batches and curve runs.
func Build(target *scene.BVH, workList []BoundedVolume, opts Options) (scene.NodeRef, [2]types.Vec3, error) {
	if len(workList) == 0 {
		return scene.EmptyNode, [2]types.Vec3{}, nil
	}
	if opts.Score == nil {
		opts.Score = SurfaceAreaHeuristic
	}

	b := &builder{
		logger:    log.New("builder"),
		target:    target,
		opts:      opts,
		scoreChan: make(chan splitScore),
		stats: stats{
			totalItems: len(workList),
		},
	}

	start := time.Now()
	root := b.partition(workList, 0)
	ref := b.collapse(root, 1)
	if b.stats.maxDepth > scene.MaxBuildDepth {
		return scene.EmptyNode, [2]types.Vec3{}, scene.ErrMaxDepthExceeded
	}
	if b.stats.maxDepth > target.MaxDepth {
		target.MaxDepth = b.stats.maxDepth
	}
	b.logger.Debugf(
		"bvh build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs,
	)
	return ref, [2]types.Vec3{root.bmin, root.bmax}, nil
}

// Partition worklist into an intermediate binary tree.
func (b *builder) partition(workList []BoundedVolume, depth int) *binNode {
	node := &binNode{
		bmin:  types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		bmax:  types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
		items: workList,
	}

	// Calculate bounding box for node
	for _, item := range workList {
		itemBBox := item.BBox()
		node.bmin = types.MinVec3(node.bmin, itemBBox[0])
		node.bmax = types.MaxVec3(node.bmax, itemBBox[1])
	}

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.opts.MinLeafItems {
		return node
	}

	// Calc current node score
	var bestScore float32 = b.opts.Score.ScorePartition(workList)
	var bestSplit *splitScore

	// Run axis split tests in parallel
	pendingScores := 0
	side := node.bmax.Sub(node.bmin)
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if bbox dimension is too small
		if side[axis] < minSideLength {
			continue
		}

		// We want the split steps to become more granular the deeper we go
		splitStep := side[axis] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := node.bmin[axis]; splitPoint < node.bmax[axis]; splitPoint += splitStep {
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := b.opts.Score.ScoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	// Process all scores and pick the best split
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	// If we can't find a split that improves the current node score
	// create a leaf, unless the leaf would overflow its batch; then
	// fall back to a rank split along the longest axis. Splitting by
	// item rank instead of a spatial plane keeps both halves non-empty
	// even when every item center coincides.
	if bestSplit == nil {
		if len(workList) <= b.opts.MaxLeafItems {
			return node
		}
		leftWorkList, rightWorkList := rankSplit(workList, Axis(side.MaxDim()))
		node.left = b.partition(leftWorkList, depth+1)
		node.right = b.partition(rightWorkList, depth+1)
		return node
	}

	// split work list into two sets
	leftWorkList := make([]BoundedVolume, 0, bestSplit.leftCount)
	rightWorkList := make([]BoundedVolume, 0, bestSplit.rightCount)
	for _, item := range workList {
		center := item.Center()
		if center[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	node.left = b.partition(leftWorkList, depth+1)
	node.right = b.partition(rightWorkList, depth+1)
	return node
}

// Split workList in half by center rank along axis.
func rankSplit(workList []BoundedVolume, axis Axis) ([]BoundedVolume, []BoundedVolume) {
	ranked := append([]BoundedVolume(nil), workList...)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Center()[axis] < ranked[j].Center()[axis]
	})
	mid := len(ranked) / 2
	return ranked[:mid], ranked[mid:]
}

// Collapse the binary tree into the target's 4-wide nodes.
func (b *builder) collapse(n *binNode, depth int) scene.NodeRef {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	if n.isLeaf() {
		b.stats.leafs++
		b.stats.partitionedItems += len(n.items)
		return b.opts.Leaf(n.items)
	}

	// Pull grandchildren up to fan out 4-wide.
	var children [4]*binNode
	cnt := 0
	for _, c := range [2]*binNode{n.left, n.right} {
		if c.isLeaf() || cnt+2 > len(children) {
			children[cnt] = c
			cnt++
			continue
		}
		children[cnt] = c.left
		children[cnt+1] = c.right
		cnt += 2
	}

	b.stats.nodes++
	if b.opts.Oriented {
		idx := len(b.target.Oriented)
		b.target.Oriented = append(b.target.Oriented, scene.OrientedNode{})
		b.target.Oriented[idx].Reset()
		for i := 0; i < cnt; i++ {
			ref := b.collapse(children[i], depth+1)
			frame := orientationFrame(children[i].items)
			fmin, fmax := frameBounds(frame, children[i].items)
			b.target.Oriented[idx].SetChild(i, ref, frame, fmin, fmax)
		}
		return scene.OrientedRef(uint32(idx))
	}

	idx := len(b.target.Aligned)
	b.target.Aligned = append(b.target.Aligned, scene.AlignedNode{})
	b.target.Aligned[idx].Reset()
	for i := 0; i < cnt; i++ {
		ref := b.collapse(children[i], depth+1)
		b.target.Aligned[idx].SetChild(i, ref, children[i].bmin, children[i].bmax)
	}
	return scene.AlignedRef(uint32(idx))
}

// Orientation frame for a child subtree: Z along the average dominant
// axis of its items.
func orientationFrame(items []BoundedVolume) types.Frame {
	var axis types.Vec3
	for _, item := range items {
		if ov, ok := item.(OrientedVolume); ok {
			axis = axis.Add(ov.Axis())
		}
	}
	axis = axis.Normalize()
	if axis.Len() < 0.5 {
		axis = types.Vec3{0, 0, 1}
	}
	return types.FrameFromZ(axis)
}

// Frame-space bounds of the items' world bounds.
func frameBounds(frame types.Frame, items []BoundedVolume) (types.Vec3, types.Vec3) {
	fmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	fmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, item := range items {
		bbox := item.BBox()
		for corner := 0; corner < 8; corner++ {
			p := types.Vec3{bbox[corner&1][0], bbox[corner>>1&1][1], bbox[corner>>2&1][2]}
			lp := frame.ToLocal(p)
			fmin = types.MinVec3(fmin, lp)
			fmax = types.MaxVec3(fmax, lp)
		}
	}
	return fmin, fmax
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it encounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	rmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	lmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	rmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	leftCount = 0
	rightCount = 0
	for _, item := range workList {
		center := item.Center()
		itemBBox := item.BBox()
		if center[axis] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, itemBBox[0])
			lmax = types.MaxVec3(lmax, itemBBox[1])
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, itemBBox[0])
			rmax = types.MaxVec3(rmax, itemBBox[1])
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	lside := lmax.Sub(lmin)
	rside := rmax.Sub(rmin)
	score = (float32(leftCount) * (lside[0]*lside[1] + lside[1]*lside[2] + lside[0]*lside[2])) +
		(float32(rightCount) * (rside[0]*rside[1] + rside[1]*rside[2] + rside[0]*rside[2]))

	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(workList []BoundedVolume) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	min := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	for _, item := range workList {
		itemBBox := item.BBox()
		min = types.MinVec3(min, itemBBox[0])
		max = types.MaxVec3(max, itemBBox[1])
	}

	side := max.Sub(min)
	return float32(len(workList)) * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}
