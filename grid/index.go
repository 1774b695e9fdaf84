package grid

// Indexer maps grid coordinates in [0,N)³ to flat indices in [0,N³) and back.
// The layout is z-fastest: index = z + N*(y + N*x).
type Indexer struct {
	n int
}

// NewIndexer returns an Indexer for a grid of edge length n. Panics if n < 1.
func NewIndexer(n int) Indexer {
	if n < 1 {
		panic("grid edge length must be positive")
	}
	return Indexer{n: n}
}

// Size returns the grid edge length N.
func (ix Indexer) Size() int { return ix.n }

// Len returns the amount of points in the grid, N³.
func (ix Indexer) Len() int { return ix.n * ix.n * ix.n }

// Index returns the flat index of c. c must be contained in the grid.
func (ix Indexer) Index(c Vec3i) int {
	return c[2] + ix.n*(c[1]+ix.n*c[0])
}

// Coord is the inverse of Index. idx must be in [0,N³).
func (ix Indexer) Coord(idx int) Vec3i {
	z := idx % ix.n
	y := (idx / ix.n) % ix.n
	x := idx / (ix.n * ix.n)
	return Vec3i{x, y, z}
}

// Contains reports whether every component of c lies in [0,N).
func (ix Indexer) Contains(c Vec3i) bool {
	return c[0] >= 0 && c[0] < ix.n &&
		c[1] >= 0 && c[1] < ix.n &&
		c[2] >= 0 && c[2] < ix.n
}

// Cells returns the amount of unit cells in the grid interior, (N-1)³.
func (ix Indexer) Cells() int {
	m := ix.n - 1
	return m * m * m
}
