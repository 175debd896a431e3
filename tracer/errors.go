package tracer

import "errors"

var (
	ErrOrientedPacket = errors.New("tracer: packet traversal supports quad-only scenes")
)
