// Package noise provides the continuous noise functions used to seed
// terrain density fields.
package noise

import (
	"errors"

	"github.com/ojrac/opensimplex-go"
)

// Source is a continuous 3D noise function. Eval3 returns values in [-1,1].
type Source interface {
	Eval3(x, y, z float64) float64
}

// FractalParams configures layered OpenSimplex noise.
type FractalParams struct {
	Seed int64
	// Octaves is the amount of noise layers summed. Must be in [1,9].
	Octaves int
	// Period is the wavelength of the first octave in input units.
	Period float64
	// Persistence is the amplitude factor between successive octaves.
	Persistence float64
	// Lacunarity is the frequency factor between successive octaves.
	Lacunarity float64
}

// DefaultFractalParams returns the parameters of the reference terrain.
func DefaultFractalParams() FractalParams {
	return FractalParams{
		Seed:        0,
		Octaves:     3,
		Period:      64,
		Persistence: 0.5,
		Lacunarity:  2,
	}
}

// Fractal is a sum of OpenSimplex octaves normalized back to [-1,1].
// Fractal is safe for concurrent use.
type Fractal struct {
	octaves     []opensimplex.Noise
	period      float64
	persistence float64
	lacunarity  float64
}

var _ Source = (*Fractal)(nil)

// NewFractal returns fractal noise built from p.
func NewFractal(p FractalParams) (*Fractal, error) {
	switch {
	case p.Octaves < 1 || p.Octaves > 9:
		return nil, errors.New("noise octaves must be in [1,9]")
	case p.Period <= 0:
		return nil, errors.New("noise period must be positive")
	case p.Persistence <= 0:
		return nil, errors.New("noise persistence must be positive")
	case p.Lacunarity <= 0:
		return nil, errors.New("noise lacunarity must be positive")
	}
	f := &Fractal{
		octaves:     make([]opensimplex.Noise, p.Octaves),
		period:      p.Period,
		persistence: p.Persistence,
		lacunarity:  p.Lacunarity,
	}
	for i := range f.octaves {
		f.octaves[i] = opensimplex.New(p.Seed + int64(i))
	}
	return f, nil
}

// Eval3 evaluates the noise at (x,y,z).
func (f *Fractal) Eval3(x, y, z float64) float64 {
	x /= f.period
	y /= f.period
	z /= f.period
	amp := 1.0
	sum := f.octaves[0].Eval3(x, y, z)
	max := amp
	for _, oct := range f.octaves[1:] {
		x *= f.lacunarity
		y *= f.lacunarity
		z *= f.lacunarity
		amp *= f.persistence
		max += amp
		sum += amp * oct.Eval3(x, y, z)
	}
	return clamp(sum/max, -1, 1)
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	} else if x > b {
		return b
	}
	return x
}
