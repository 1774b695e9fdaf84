package d3

import "github.com/soypat/glgl/math/ms3"

// Box is a 3d bounding box.
type Box ms3.Box

// Bounds returns the smallest box containing every vector in the set.
// The set must not be empty.
func (a Set) Bounds() Box {
	return Box{Min: a.Min(), Max: a.Max()}
}
