package terrain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/soypat/terrain/grid"
	"github.com/soypat/terrain/mesh"
	"github.com/soypat/terrain/noise"
	"github.com/soypat/terrain/render"
)

// ErrBusy is returned when a generation is triggered while another one is running.
var ErrBusy = errors.New("terrain generation already running")

// State is the generation state of a [Generator].
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Stats describes a single generation.
type Stats struct {
	ID    uuid.UUID
	Field grid.Stats
	// Jobs and Results are the amount of cell jobs dispatched and aggregated.
	Jobs, Results int
	Triangles     int
	Vertices      int
	Indices       int
	// PackedSize is the size in bytes of the committed packed mesh.
	PackedSize int
	Sample     time.Duration
	March      time.Duration
	Assemble   time.Duration
}

// Total returns the summed duration of all generation phases.
func (s Stats) Total() time.Duration { return s.Sample + s.March + s.Assemble }

// Option configures a [Generator].
type Option func(*Generator)

// WithNoise sets the density noise source. Reconfiguring the Generator does
// not replace a noise source set with this option.
func WithNoise(src noise.Source) Option {
	return func(g *Generator) {
		g.noise = src
		g.customNoise = true
	}
}

// WithTriangulator sets the cell triangulator. The default is [render.MarchingCubes].
func WithTriangulator(t render.Triangulator) Option {
	return func(g *Generator) { g.tri = t }
}

// WithLogger sets the Generator logger. The default is [Logger].
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// Generator owns the terrain mesh slot and regenerates it on demand.
// Only one generation runs at a time. It is safe for concurrent use.
type Generator struct {
	state atomic.Int32

	mu          sync.RWMutex
	cfg         Config
	noise       noise.Source
	customNoise bool
	tri         render.Triangulator
	log         *log.Logger
	mesh        *mesh.Mesh
	packed      []byte
}

// NewGenerator returns an idle Generator with no mesh.
func NewGenerator(cfg Config, opts ...Option) (*Generator, error) {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = Logger()
	}
	if g.tri == nil {
		g.tri = render.MarchingCubes{}
	}
	if err := g.Reconfigure(cfg); err != nil {
		return nil, err
	}
	return g, nil
}

// Reconfigure validates and stores cfg for subsequent generations. A running
// generation is not affected.
func (g *Generator) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.customNoise {
		src, err := noise.NewFractal(cfg.Noise.Fractal())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		g.noise = src
	}
	g.cfg = cfg
	return nil
}

// Config returns the current configuration.
func (g *Generator) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// State reports whether a generation is running.
func (g *Generator) State() State { return State(g.state.Load()) }

// Mesh returns the last committed mesh or nil if no generation succeeded yet.
func (g *Generator) Mesh() *mesh.Mesh {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mesh
}

// Packed returns a copy of the last committed mesh in packed form.
func (g *Generator) Packed() []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.packed)
}

// Generate samples, marches and assembles a new terrain mesh and commits it
// to the Generator's mesh slot. It returns [ErrBusy] if a generation is
// already running. On failure nothing is committed and the previous mesh
// stays in place.
func (g *Generator) Generate(ctx context.Context) (*mesh.Mesh, Stats, error) {
	if !g.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, Stats{}, ErrBusy
	}
	defer g.state.Store(int32(StateIdle))

	g.mu.RLock()
	cfg, src, tri := g.cfg, g.noise, g.tri
	g.mu.RUnlock()

	stats := Stats{ID: uuid.New()}
	l := g.log.With("gen", stats.ID)
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout))
		defer cancel()
	}
	l.Debug("generating terrain", "grid", cfg.GridSize, "workers", cfg.Workers, "seed", cfg.Noise.Seed)

	start := time.Now()
	field := grid.Sample(src, cfg.GridSize, cfg.Noise.Scale)
	stats.Sample = time.Since(start)
	stats.Field = field.Stats()
	l.Debug("sampled density field", "points", humanize.Comma(int64(field.Indexer().Len())),
		"mean", stats.Field.Mean, "took", stats.Sample)
	if err := ctx.Err(); err != nil {
		l.Error("generation aborted after sampling", "err", err)
		return nil, stats, err
	}

	start = time.Now()
	sched := render.Scheduler{
		Workers:      cfg.Workers,
		Isovalue:     cfg.Isovalue,
		Triangulator: tri,
	}
	stream, err := sched.March(ctx, field)
	stats.March = time.Since(start)
	stats.Jobs, stats.Results = stream.Jobs, stream.Results
	if err != nil {
		l.Error("marching density field", "err", err)
		return nil, stats, fmt.Errorf("marching density field: %w", err)
	}
	l.Debug("marched density field", "jobs", humanize.Comma(int64(stream.Jobs)),
		"triangles", humanize.Comma(int64(stream.Triangles())), "took", stats.March)

	start = time.Now()
	m, err := mesh.Assemble(stream.Vertices)
	if err != nil {
		l.Error("assembling mesh", "err", err)
		return nil, stats, fmt.Errorf("assembling mesh: %w", err)
	}
	comp, err := mesh.ParseCompression(cfg.Compression)
	if err != nil {
		panic("bug: compression not validated: " + err.Error())
	}
	packed, err := mesh.Pack(m, comp)
	if err != nil {
		l.Error("packing mesh", "err", err)
		return nil, stats, fmt.Errorf("packing mesh: %w", err)
	}
	stats.Assemble = time.Since(start)
	stats.Triangles = m.NumTriangles()
	stats.Vertices = m.NumVertices()
	stats.Indices = m.NumIndices()
	stats.PackedSize = len(packed)

	if m.Empty() {
		l.Warn("density field has no surface, committing empty mesh", "isovalue", cfg.Isovalue)
	}
	g.mu.Lock()
	g.mesh = m
	g.packed = packed
	g.mu.Unlock()
	l.Info("committed terrain mesh",
		"triangles", humanize.Comma(int64(stats.Triangles)),
		"vertices", humanize.Comma(int64(stats.Vertices)),
		"packed", humanize.Bytes(uint64(stats.PackedSize)),
		"compression", comp,
		"took", stats.Total())
	return m, stats, nil
}
