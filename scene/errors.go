package scene

import "errors"

var (
	ErrMaxDepthExceeded = errors.New("scene: bvh depth exceeds traversal stack capacity")
	ErrInvalidNodeRef   = errors.New("scene: node reference points outside its storage slice")
	ErrNonPrefixBatch   = errors.New("scene: quad batch validity is not a prefix")
	ErrInvalidLeafCount = errors.New("scene: curve leaf count out of range")
	ErrBoundsEscape     = errors.New("scene: child bounds escape the parent slot")
	ErrNoRoot           = errors.New("scene: bvh has no root")
)
