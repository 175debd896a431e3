package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/altair-render/altair/tracer"
	"github.com/altair-render/altair/types"
	"github.com/chewxy/math32"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

const (
	cameraFov float32 = 50.0

	// Occlusion rays only probe a neighborhood of the hit point.
	aoRadius float32 = 2.5

	// Shadow ray origin offset along the normal.
	aoBias float32 = 1e-3
)

// Render an ambient occlusion frame of the demo scene.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	width := ctx.Int("width")
	height := ctx.Int("height")
	aoSamples := ctx.Int("ao-samples")
	imgFile := ctx.String("out")

	sc, err := buildDemoScene(ctx.Int("hair"))
	if err != nil {
		return err
	}

	// Orbit the camera around the vertical axis through the sphere.
	orbit := float32(ctx.Float64("orbit")) * math32.Pi / 180
	eye := types.QuatFromAxisAngle(types.Vec3{0, 1, 0}, orbit).Rotate(types.Vec3{0, 1.8, 4.2})
	look := sphereCenter

	forward := look.Sub(eye).Normalize()
	camFrame := types.FrameFromZ(forward)
	scale := math32.Tan(cameraFov * 0.5 * math32.Pi / 180)
	aspect := float32(width) / float32(height)

	logger.Noticef("rendering %dx%d frame with %d occlusion samples", width, height, aoSamples)
	img := image.NewGray(image.Rect(0, 0, width, height))

	workers := runtime.NumCPU()
	workerStats := make([]tracer.Stats, workers)
	rows := make(chan int, height)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			// Intersectors own their traversal stack so each worker gets
			// its own.
			it := tracer.New(sc, tracer.Options{})
			it.Stats = &workerStats[w]
			rng := rand.New(rand.NewSource(int64(w) + 1))

			for y := range rows {
				for x := 0; x < width; x++ {
					px := (2*(float32(x)+0.5)/float32(width) - 1) * scale * aspect
					py := (1 - 2*(float32(y)+0.5)/float32(height)) * scale
					dir := camFrame.VX.Mul(px).Add(camFrame.VY.Mul(py)).Add(forward).Normalize()

					ray := tracer.NewPrimaryRay(eye, dir)
					it.Intersect(&ray)

					var shade float32
					if ray.HasHit() {
						shade = ambientOcclusion(it, &ray, rng, aoSamples)
					}
					img.SetGray(x, y, color.Gray{Y: uint8(shade * 255)})
				}
			}
		}(w)
	}
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()
	renderTime := time.Since(start)
	logger.Noticef("rendered frame in %d ms", renderTime.Nanoseconds()/1e6)

	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = png.Encode(f, img); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s", imgFile)

	displayFrameStats(workerStats, renderTime)
	return nil
}

// Fraction of unoccluded cosine-weighted hemisphere samples around the
// hit normal.
func ambientOcclusion(it *tracer.Intersector, primary *tracer.Ray, rng *rand.Rand, samples int) float32 {
	n := primary.Ng.Normalize()
	if n.Dot(primary.Dir) > 0 {
		n = n.Mul(-1)
	}
	p := primary.Org.Add(primary.Dir.Mul(primary.TFar)).Add(n.Mul(aoBias))
	hemi := types.FrameFromZ(n)

	open := 0
	for s := 0; s < samples; s++ {
		r1, r2 := rng.Float32(), rng.Float32()
		sinT := math32.Sqrt(r1)
		cosT := math32.Sqrt(1 - r1)
		phi := 2 * math32.Pi * r2
		local := types.Vec3{sinT * math32.Cos(phi), sinT * math32.Sin(phi), cosT}

		shadow := tracer.NewRay(p, hemi.ToWorld(local), 0, aoRadius)
		if !it.Occluded(&shadow) {
			open++
		}
	}
	return float32(open) / float32(samples)
}

func displayFrameStats(workerStats []tracer.Stats, renderTime time.Duration) {
	var total tracer.Stats
	for i := range workerStats {
		total.AlignedNodes += workerStats[i].AlignedNodes
		total.OrientedNodes += workerStats[i].OrientedNodes
		total.Leafs += workerStats[i].Leafs
		total.PrimTests += workerStats[i].PrimTests
		total.FilterCalls += workerStats[i].FilterCalls
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Counter", "Count"})
	table.Append([]string{"Aligned node tests", fmt.Sprintf("%d", total.AlignedNodes)})
	table.Append([]string{"Oriented node tests", fmt.Sprintf("%d", total.OrientedNodes)})
	table.Append([]string{"Leaf visits", fmt.Sprintf("%d", total.Leafs)})
	table.Append([]string{"Primitive tests", fmt.Sprintf("%d", total.PrimTests)})
	table.Append([]string{"Filter calls", fmt.Sprintf("%d", total.FilterCalls)})
	table.SetFooter([]string{"Render time", fmt.Sprintf("%s", renderTime)})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
