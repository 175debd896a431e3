package scene

import "github.com/altair-render/altair/types"

// A cubic Bezier hair segment. Control points carry the sweep radius in
// the W component.
type CurveSegment struct {
	P0, P1, P2, P3 types.Vec4

	GeomID uint32
	PrimID uint32
}

// Conservative world-space bounds: the control hull dilated by the
// largest control radius.
func (c *CurveSegment) Bounds() (bmin, bmax types.Vec3) {
	bmin = c.P0.Vec3()
	bmax = bmin
	r := c.P0[3]
	for _, p := range [3]types.Vec4{c.P1, c.P2, c.P3} {
		bmin = types.MinVec3(bmin, p.Vec3())
		bmax = types.MaxVec3(bmax, p.Vec3())
		if p[3] > r {
			r = p[3]
		}
	}
	pad := types.Vec3{r, r, r}
	return bmin.Sub(pad), bmax.Add(pad)
}

// Dominant axis of the segment, used to orient bounds for curve subtrees.
func (c *CurveSegment) Axis() types.Vec3 {
	return c.P3.Vec3().Sub(c.P0.Vec3()).Normalize()
}

// Evaluate the curve position and radius at parameter t.
func (c *CurveSegment) Eval(t float32) types.Vec4 {
	t1 := 1 - t
	b0 := t1 * t1 * t1
	b1 := 3 * t1 * t1 * t
	b2 := 3 * t1 * t * t
	b3 := t * t * t
	var out types.Vec4
	for k := 0; k < 4; k++ {
		out[k] = b0*c.P0[k] + b1*c.P1[k] + b2*c.P2[k] + b3*c.P3[k]
	}
	return out
}

// Evaluate the curve derivative at parameter t.
func (c *CurveSegment) EvalTangent(t float32) types.Vec3 {
	t1 := 1 - t
	d0 := c.P1.Vec3().Sub(c.P0.Vec3()).Mul(3 * t1 * t1)
	d1 := c.P2.Vec3().Sub(c.P1.Vec3()).Mul(6 * t1 * t)
	d2 := c.P3.Vec3().Sub(c.P2.Vec3()).Mul(3 * t * t)
	return d0.Add(d1).Add(d2)
}
