package terrain

import (
	"context"
	"sync"

	"github.com/soypat/terrain/mesh"
)

// ReloadFunc receives the outcome of a generation run by a [Reloader] along
// with the configuration it was generated from.
type ReloadFunc func(cfg Config, m *mesh.Mesh, stats Stats, err error)

// Reloader coalesces configuration updates into generations of a single
// [Generator]. At most one update is pending: updates arriving while a
// generation runs replace the pending one, which runs once the current
// generation finishes. The last update triggered is always generated.
type Reloader struct {
	gen  *Generator
	done ReloadFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	pending *Config
	running bool
}

// NewReloader returns a Reloader for gen. done may be nil.
func NewReloader(gen *Generator, done ReloadFunc) *Reloader {
	if done == nil {
		done = func(Config, *mesh.Mesh, Stats, error) {}
	}
	return &Reloader{gen: gen, done: done}
}

// Trigger schedules a generation with cfg and returns without waiting for it.
func (r *Reloader) Trigger(ctx context.Context, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = &cfg
	if r.running {
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.run(ctx)
}

// Wait blocks until no generation is running or pending.
// It must not be called concurrently with Trigger.
func (r *Reloader) Wait() { r.wg.Wait() }

func (r *Reloader) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		cfg := r.pending
		r.pending = nil
		if cfg == nil || ctx.Err() != nil {
			r.running = false
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()
		if err := r.gen.Reconfigure(*cfg); err != nil {
			r.done(*cfg, nil, Stats{}, err)
			continue
		}
		m, stats, err := r.gen.Generate(ctx)
		r.done(*cfg, m, stats, err)
	}
}
