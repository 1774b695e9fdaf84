// Package render triangulates density fields with marching cubes. Cells are
// triangulated concurrently by a fixed pool of workers and their results
// merged into a single grid-space vertex stream.
package render

import (
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/terrain/grid"
)

// Triangulator triangulates a single unit cell.
type Triangulator interface {
	// Triangulate writes the triangles of a cell with the given corner
	// densities into dst and returns the amount written, at most 5.
	// Corners are ordered as in [CornerOffsets]. Triangle vertices are in
	// the cell's local unit cube frame. dst must have room for 5 triangles.
	Triangulate(dst []ms3.Triangle, corners [8]float32, isovalue float32) (int, error)
}

// Result holds the triangles of one cell in the cell-local frame.
type Result struct {
	Offset    grid.Vec3i
	Triangles []ms3.Triangle
}

// CornerOffsets are the cell corner offsets in the order expected by a [Triangulator].
var CornerOffsets = [8]grid.Vec3i{
	{0, 0, 0},
	{1, 0, 0},
	{1, 1, 0},
	{0, 1, 0},
	{0, 0, 1},
	{1, 0, 1},
	{1, 1, 1},
	{0, 1, 1},
}

// Corners gathers the densities of the cell at offset in canonical corner order.
// offset must be in [0,N-1)³.
func Corners(f *grid.Field, offset grid.Vec3i) (corners [8]float32) {
	for i, c := range CornerOffsets {
		corners[i] = f.At(offset.Add(c))
	}
	return corners
}
