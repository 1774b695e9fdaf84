package grid

// Noise is a continuous 3D noise function returning values in [-1,1].
type Noise interface {
	Eval3(x, y, z float64) float64
}

// Sample evaluates noise at every grid coordinate scaled by scale and
// returns the resulting density field. Noise values are mapped from [-1,1]
// to [0,1] and clamped. Sample runs on the calling goroutine and the field
// is only returned once fully populated.
func Sample(noise Noise, n int, scale float64) *Field {
	if n < 2 {
		panic("field edge length must be 2 or larger")
	}
	ix := NewIndexer(n)
	data := make([]float32, ix.Len())
	for i := range data {
		c := ix.Coord(i)
		v := noise.Eval3(float64(c[0])*scale, float64(c[1])*scale, float64(c[2])*scale)
		data[i] = clamp01(float32((v + 1) / 2))
	}
	return &Field{ix: ix, data: data}
}

// clamp01 clamps x to [0,1]. NaN maps to 0.
func clamp01(x float32) float32 {
	if !(x > 0) {
		return 0
	} else if x > 1 {
		return 1
	}
	return x
}
