package simd

// A 3 component vector with one lane batch per axis (structure of arrays).
type Vec3[F Float] struct {
	X, Y, Z F
}

// Broadcast a scalar vector to all lanes.
func SplatVec3[F Float](x, y, z float32) Vec3[F] {
	return Vec3[F]{X: Splat[F](x), Y: Splat[F](y), Z: Splat[F](z)}
}

// Extract lane i as a scalar triple.
func (v Vec3[F]) Lane(i int) (x, y, z float32) {
	return v.X[i], v.Y[i], v.Z[i]
}

func (v Vec3[F]) Add(v2 Vec3[F]) Vec3[F] {
	return Vec3[F]{Add(v.X, v2.X), Add(v.Y, v2.Y), Add(v.Z, v2.Z)}
}

func (v Vec3[F]) Sub(v2 Vec3[F]) Vec3[F] {
	return Vec3[F]{Sub(v.X, v2.X), Sub(v.Y, v2.Y), Sub(v.Z, v2.Z)}
}

func (v Vec3[F]) Dot(v2 Vec3[F]) F {
	return Add(Add(Mul(v.X, v2.X), Mul(v.Y, v2.Y)), Mul(v.Z, v2.Z))
}

func (v Vec3[F]) Cross(v2 Vec3[F]) Vec3[F] {
	return Vec3[F]{
		X: Sub(Mul(v.Y, v2.Z), Mul(v.Z, v2.Y)),
		Y: Sub(Mul(v.Z, v2.X), Mul(v.X, v2.Z)),
		Z: Sub(Mul(v.X, v2.Y), Mul(v.Y, v2.X)),
	}
}
