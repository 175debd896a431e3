package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// A compiled scene: the acceleration structure plus the per-geometry
// tables the hit epilogues consult. Immutable once compiled; any number
// of goroutines may issue queries against it concurrently.
type Scene struct {
	Accel BVH

	// Ray visibility mask per geometry id. A hit is rejected when
	// ray.Mask & Masks[geomID] == 0. Empty slice disables masking.
	Masks []uint32

	// Instance id written to ray output per geometry id, for scenes
	// where geometries stand in for instanced base geometry. Consulted
	// only when an accepted hit is written back, never during
	// traversal. Empty slice leaves the instance id at InvalidID.
	InstIDs []uint32
}

// Visibility mask for a geometry id.
func (sc *Scene) GeomMask(geomID uint32) uint32 {
	if len(sc.Masks) == 0 || int(geomID) >= len(sc.Masks) {
		return ^uint32(0)
	}
	return sc.Masks[geomID]
}

// Instance id for a geometry id.
func (sc *Scene) InstID(geomID uint32) uint32 {
	if len(sc.InstIDs) == 0 || int(geomID) >= len(sc.InstIDs) {
		return InvalidID
	}
	return sc.InstIDs[geomID]
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	quads := 0
	for i := range sc.Accel.Quads {
		quads += sc.Accel.Quads[i].Size()
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"BVH", "---", "", fmtSize(sc.Accel.Aligned, sc.Accel.Oriented)})
	table.Append([]string{"", "Aligned nodes", fmt.Sprintf("%d", len(sc.Accel.Aligned)), fmtSize(sc.Accel.Aligned)})
	table.Append([]string{"", "Oriented nodes", fmt.Sprintf("%d", len(sc.Accel.Oriented)), fmtSize(sc.Accel.Oriented)})
	table.Append([]string{"", "Max depth", fmt.Sprintf("%d", sc.Accel.MaxDepth), ""})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Primitives", "---", "", fmtSize(sc.Accel.Quads, sc.Accel.Curves)})
	table.Append([]string{"", "Quads", fmt.Sprintf("%d", quads), fmtSize(sc.Accel.Quads)})
	table.Append([]string{"", "Curve segments", fmt.Sprintf("%d", len(sc.Accel.Curves)), fmtSize(sc.Accel.Curves)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Accel.Aligned, sc.Accel.Oriented, sc.Accel.Quads, sc.Accel.Curves, sc.Masks, sc.InstIDs), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%3.1f mb", totalBytes/1e6)
}
