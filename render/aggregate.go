package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/soypat/glgl/math/ms3"
)

// ErrResultCount is returned when the amount of cell results received does
// not match the amount of cells dispatched.
var ErrResultCount = errors.New("cell result count mismatch")

// Stream is the grid-space triangle vertex stream of a marched field.
// Every three consecutive vertices form one triangle.
type Stream struct {
	Vertices []ms3.Vec
	// Jobs is the amount of cell jobs dispatched.
	Jobs int
	// Results is the amount of cell results aggregated.
	Results int
}

// Triangles returns the amount of triangles in the stream.
func (s Stream) Triangles() int { return len(s.Vertices) / 3 }

// Aggregate receives results until the channel is closed, translating every
// triangle by its cell offset and appending its vertices to the stream in
// arrival order. It fails with [ErrResultCount] if the amount of results
// received differs from expected and returns early if ctx is done.
func Aggregate(ctx context.Context, results <-chan Result, expected int) (Stream, error) {
	s := Stream{
		Vertices: make([]ms3.Vec, 0, 3*1024),
	}
	for {
		select {
		case <-ctx.Done():
			return s, fmt.Errorf("aggregated %d/%d results: %w", s.Results, expected, ctx.Err())
		case r, ok := <-results:
			if !ok {
				if s.Results != expected {
					return s, fmt.Errorf("%w: got %d, want %d", ErrResultCount, s.Results, expected)
				}
				return s, nil
			}
			s.Results++
			if s.Results > expected {
				return s, fmt.Errorf("%w: got more than %d", ErrResultCount, expected)
			}
			off := r.Offset.Vec()
			for _, t := range r.Triangles {
				s.Vertices = append(s.Vertices, ms3.Add(t[0], off), ms3.Add(t[1], off), ms3.Add(t[2], off))
			}
		}
	}
}
