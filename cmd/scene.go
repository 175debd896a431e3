package cmd

import (
	"math/rand"

	"github.com/altair-render/altair/scene"
	"github.com/altair-render/altair/scene/compiler"
	"github.com/altair-render/altair/types"
	"github.com/chewxy/math32"
)

// Geometry ids assigned by the demo scene.
const (
	floorGeomID uint32 = iota
	sphereGeomID
	hairGeomID
)

const (
	floorSize  float32 = 10.0
	floorCells         = 8

	sphereLatSteps = 16
	sphereLngSteps = 24
	sphereRadius   float32 = 1.0
)

var sphereCenter = types.Vec3{0, 1, 0}

// Build the procedural demo scene: a subdivided ground plane, a
// quad-meshed sphere resting on it and a tuft of hair segments sprouting
// from the sphere's pole.
func buildDemoScene(hairCount int) (*scene.Scene, error) {
	quads := make([]compiler.Quad, 0, floorCells*floorCells+sphereLatSteps*sphereLngSteps)

	// Ground plane, subdivided so the builder has something to partition.
	cell := floorSize / floorCells
	var floorPrimID uint32
	for cz := 0; cz < floorCells; cz++ {
		for cx := 0; cx < floorCells; cx++ {
			x0 := -floorSize/2 + float32(cx)*cell
			z0 := -floorSize/2 + float32(cz)*cell
			quads = append(quads, compiler.Quad{
				V0:     types.Vec3{x0, 0, z0},
				V1:     types.Vec3{x0 + cell, 0, z0},
				V2:     types.Vec3{x0 + cell, 0, z0 + cell},
				V3:     types.Vec3{x0, 0, z0 + cell},
				GeomID: floorGeomID,
				PrimID: floorPrimID,
			})
			floorPrimID++
		}
	}

	// Latitude/longitude sphere mesh. The pole rows produce quads with a
	// repeated corner, which the kernel treats as plain triangles.
	spherePoint := func(lat, lng int) types.Vec3 {
		theta := math32.Pi * float32(lat) / sphereLatSteps
		phi := 2 * math32.Pi * float32(lng) / sphereLngSteps
		return sphereCenter.Add(types.Vec3{
			sphereRadius * math32.Sin(theta) * math32.Cos(phi),
			sphereRadius * math32.Cos(theta),
			sphereRadius * math32.Sin(theta) * math32.Sin(phi),
		})
	}
	var spherePrimID uint32
	for lat := 0; lat < sphereLatSteps; lat++ {
		for lng := 0; lng < sphereLngSteps; lng++ {
			quads = append(quads, compiler.Quad{
				V0:     spherePoint(lat, lng),
				V1:     spherePoint(lat+1, lng),
				V2:     spherePoint(lat+1, lng+1),
				V3:     spherePoint(lat, lng+1),
				GeomID: sphereGeomID,
				PrimID: spherePrimID,
			})
			spherePrimID++
		}
	}

	// Hair tuft at the sphere pole. Deterministic so repeated runs render
	// the same frame.
	rng := rand.New(rand.NewSource(42))
	curves := make([]scene.CurveSegment, 0, hairCount)
	pole := sphereCenter.Add(types.Vec3{0, sphereRadius, 0})
	for i := 0; i < hairCount; i++ {
		lean := types.Vec3{rng.Float32() - 0.5, 0, rng.Float32() - 0.5}.Mul(0.6)
		root := pole.Add(types.Vec3{rng.Float32() - 0.5, 0, rng.Float32() - 0.5}.Mul(0.3))
		length := 0.5 + 0.3*rng.Float32()

		p0 := root
		p1 := root.Add(types.Vec3{0, length * 0.4, 0}).Add(lean.Mul(0.1))
		p2 := root.Add(types.Vec3{0, length * 0.8, 0}).Add(lean.Mul(0.5))
		p3 := root.Add(types.Vec3{0, length, 0}).Add(lean)
		curves = append(curves, scene.CurveSegment{
			P0:     p0.Vec4(0.010),
			P1:     p1.Vec4(0.007),
			P2:     p2.Vec4(0.004),
			P3:     p3.Vec4(0.002),
			GeomID: hairGeomID,
			PrimID: uint32(i),
		})
	}

	return compiler.Compile(quads, curves)
}
