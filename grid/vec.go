package grid

import "github.com/soypat/glgl/math/ms3"

// Vec3i is a 3D integer vector used for grid coordinates and cell offsets.
type Vec3i [3]int

// Add adds two vectors. Return v = a + b.
func (a Vec3i) Add(b Vec3i) Vec3i {
	return Vec3i{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Vec converts Vec3i (integer) to ms3.Vec (float).
func (a Vec3i) Vec() ms3.Vec {
	return ms3.Vec{X: float32(a[0]), Y: float32(a[1]), Z: float32(a[2])}
}
