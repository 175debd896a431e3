package types

// An orthonormal coordinate frame. Rows are the basis vectors so that
// ToLocal maps a world-space vector into frame space with three dots.
type Frame struct {
	VX, VY, VZ Vec3
}

// Construct an orthonormal frame whose Z axis points along dir. The dir
// vector must be normalized. Branches on the dominant axis to avoid a
// degenerate cross product when dir is near an axis.
func FrameFromZ(dir Vec3) Frame {
	up := Vec3{0, 1, 0}
	if dir.MaxDim() == 1 {
		up = Vec3{1, 0, 0}
	}
	vx := up.Cross(dir).Normalize()
	vy := dir.Cross(vx)
	return Frame{VX: vx, VY: vy, VZ: dir}
}

// Transform a world-space vector into frame space.
func (f Frame) ToLocal(v Vec3) Vec3 {
	return Vec3{f.VX.Dot(v), f.VY.Dot(v), f.VZ.Dot(v)}
}

// Transform a frame-space vector back to world space.
func (f Frame) ToWorld(v Vec3) Vec3 {
	return f.VX.Mul(v[0]).Add(f.VY.Mul(v[1])).Add(f.VZ.Mul(v[2]))
}
