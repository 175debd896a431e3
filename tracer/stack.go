package tracer

import "github.com/altair-render/altair/scene"

// Traversal stack capacity. Each interior visit pushes at most 3 deferred
// siblings while descending into the nearest, so 1+3*maxDepth bounds the
// worst case.
const stackSize = 1 + 3*scene.MaxBuildDepth

// A deferred subtree on the traversal stack, ordered by tNear. Entries
// whose tNear no longer beats the ray's current tFar are discarded on pop
// rather than eagerly.
type stackItem struct {
	ref   scene.NodeRef
	tNear float32
	tFar  float32
}

// Sort 2 stack items.
func sort2(s1, s2 *stackItem) {
	if s2.tNear < s1.tNear {
		*s1, *s2 = *s2, *s1
	}
}

// Sort 3 stack items.
func sort3(s1, s2, s3 *stackItem) {
	if s2.tNear < s1.tNear {
		*s1, *s2 = *s2, *s1
	}
	if s3.tNear < s2.tNear {
		*s2, *s3 = *s3, *s2
	}
	if s2.tNear < s1.tNear {
		*s1, *s2 = *s2, *s1
	}
}

// Sort 4 stack items.
func sort4(s1, s2, s3, s4 *stackItem) {
	if s2.tNear < s1.tNear {
		*s1, *s2 = *s2, *s1
	}
	if s4.tNear < s3.tNear {
		*s3, *s4 = *s4, *s3
	}
	if s3.tNear < s1.tNear {
		*s1, *s3 = *s3, *s1
	}
	if s4.tNear < s2.tNear {
		*s2, *s4 = *s4, *s2
	}
	if s3.tNear < s2.tNear {
		*s2, *s3 = *s3, *s2
	}
}
