package d3

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// ms3 vector helpers shared by the mesh packages.

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{X: math32.Min(a.X, b.X), Y: math32.Min(a.Y, b.Y), Z: math32.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{X: math32.Max(a.X, b.X), Y: math32.Max(a.Y, b.Y), Z: math32.Max(a.Z, b.Z)}
}

// Finite reports whether all components of a are neither NaN nor infinite.
func Finite(a ms3.Vec) bool {
	return !(math32.IsNaN(a.X) || math32.IsInf(a.X, 0) ||
		math32.IsNaN(a.Y) || math32.IsInf(a.Y, 0) ||
		math32.IsNaN(a.Z) || math32.IsInf(a.Z, 0))
}

// R3 converts a to a float64 vector.
func R3(a ms3.Vec) r3.Vec {
	return r3.Vec{X: float64(a.X), Y: float64(a.Y), Z: float64(a.Z)}
}

// FromR3 converts a to a float32 vector.
func FromR3(a r3.Vec) ms3.Vec {
	return ms3.Vec{X: float32(a.X), Y: float32(a.Y), Z: float32(a.Z)}
}

type Set []ms3.Vec

// Min return the minimum components of a set of vectors.
func (a Set) Min() ms3.Vec {
	vmin := a[0]
	for _, v := range a[1:] {
		vmin = MinElem(vmin, v)
	}
	return vmin
}

// Max return the maximum components of a set of vectors.
func (a Set) Max() ms3.Vec {
	vmax := a[0]
	for _, v := range a[1:] {
		vmax = MaxElem(vmax, v)
	}
	return vmax
}
