package render

import (
	"context"
	"fmt"
	"runtime"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/terrain/grid"
)

// DefaultIsovalue separates solid from empty densities in the reference terrain.
const DefaultIsovalue = 0.5

// Scheduler marches a density field by dispatching one triangulation job per
// unit cell to a fixed size worker pool.
type Scheduler struct {
	// Workers is the pool size. Non-positive values use all logical CPUs.
	Workers int
	// Isovalue is the density threshold of the surface.
	Isovalue float32
	// Triangulator triangulates single cells. Nil uses [MarchingCubes].
	Triangulator Triangulator
}

// March triangulates every cell of f and returns the merged grid-space vertex
// stream. It returns only after exactly (N-1)³ cell results have been
// aggregated. Any cell failure aborts the march.
//
// If ctx is done before aggregation completes March returns immediately
// without waiting for in-flight cell jobs, which exit on their own.
func (s Scheduler) March(ctx context.Context, f *grid.Field) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	expected := f.Indexer().Cells()
	results := make(chan Result, 4*s.workers())
	var (
		jobs        int
		dispatchErr error
		done        = make(chan struct{})
	)
	go func() {
		defer close(done)
		defer close(results)
		jobs, dispatchErr = s.Dispatch(ctx, f, results)
	}()
	stream, err := Aggregate(ctx, results, expected)
	if err != nil && ctx.Err() != nil {
		return Stream{}, err
	}
	cancel()
	<-done
	stream.Jobs = jobs
	if dispatchErr != nil {
		return Stream{}, dispatchErr
	} else if err != nil {
		return Stream{}, err
	} else if jobs != expected {
		return Stream{}, fmt.Errorf("%w: dispatched %d jobs, want %d", ErrResultCount, jobs, expected)
	}
	return stream, nil
}

// Dispatch submits one job per cell offset in [0,N-1)³ to a new worker pool.
// Each job sends its [Result] on results, blocking until it is received or
// ctx is done. Dispatch returns the amount of jobs submitted once every job
// has finished, along with the first job error. results is not closed.
func (s Scheduler) Dispatch(ctx context.Context, f *grid.Field, results chan<- Result) (jobs int, err error) {
	tri := s.Triangulator
	if tri == nil {
		tri = MarchingCubes{}
	}
	pool := NewPool(ctx, s.Workers)
	m := f.Size() - 1
dispatch:
	for x := 0; x < m; x++ {
		for y := 0; y < m; y++ {
			for z := 0; z < m; z++ {
				err = pool.Submit(cellTask(f, grid.Vec3i{x, y, z}, tri, s.Isovalue, results))
				if err != nil {
					break dispatch
				}
				jobs++
			}
		}
	}
	if perr := pool.Close(); perr != nil {
		return jobs, perr
	}
	return jobs, err
}

func (s Scheduler) workers() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}

func cellTask(f *grid.Field, offset grid.Vec3i, tri Triangulator, isovalue float32, results chan<- Result) Task {
	return func(ctx context.Context) error {
		var buf [marchingCubesMaxTriangles]ms3.Triangle
		n, err := tri.Triangulate(buf[:], Corners(f, offset), isovalue)
		if err != nil {
			return fmt.Errorf("cell %v: %w", offset, err)
		} else if n < 0 || n > len(buf) {
			return fmt.Errorf("cell %v: triangulator reported %d triangles", offset, n)
		}
		r := Result{Offset: offset}
		if n > 0 {
			r.Triangles = append([]ms3.Triangle(nil), buf[:n]...)
		}
		select {
		case results <- r:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
