package grid

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Field is an immutable N³ grid of densities in [0,1]. A Field is safe
// for concurrent reads by any number of goroutines since nothing writes to it
// after construction.
type Field struct {
	ix   Indexer
	data []float32
}

// NewField returns a Field of edge length n holding a copy of values,
// which are laid out as described by [Indexer]. Values must be in [0,1].
func NewField(n int, values []float32) (*Field, error) {
	if n < 2 {
		return nil, errors.New("field edge length must be 2 or larger")
	}
	ix := NewIndexer(n)
	if len(values) != ix.Len() {
		return nil, fmt.Errorf("want %d field values for edge length %d, got %d", ix.Len(), n, len(values))
	}
	for i, v := range values {
		if !(v >= 0 && v <= 1) {
			return nil, fmt.Errorf("density %g at %v outside [0,1]", v, ix.Coord(i))
		}
	}
	data := make([]float32, len(values))
	copy(data, values)
	return &Field{ix: ix, data: data}, nil
}

// Indexer returns the indexer describing the field layout.
func (f *Field) Indexer() Indexer { return f.ix }

// Size returns the field edge length N.
func (f *Field) Size() int { return f.ix.n }

// At returns the density at grid coordinate c.
func (f *Field) At(c Vec3i) float32 { return f.data[f.ix.Index(c)] }

// AtIndex returns the density at flat index i.
func (f *Field) AtIndex(i int) float32 { return f.data[i] }

// Stats summarizes the density distribution of a field.
type Stats struct {
	Min, Max     float64
	Mean, StdDev float64
}

// Stats computes summary statistics over all field densities.
func (f *Field) Stats() Stats {
	x := make([]float64, len(f.data))
	for i, v := range f.data {
		x[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(x, nil)
	return Stats{
		Min:    floats.Min(x),
		Max:    floats.Max(x),
		Mean:   mean,
		StdDev: std,
	}
}
