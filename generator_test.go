package terrain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/terrain/mesh"
	"github.com/soypat/terrain/render"
)

// planeNoise crosses the 0.5 density isovalue on the x=3.5 plane.
type planeNoise struct{}

func (planeNoise) Eval3(x, y, z float64) float64 { return (x - 3.5) / 4 }

// switchTriangulator fails every cell while fail is set.
type switchTriangulator struct {
	fail atomic.Bool
}

func (s *switchTriangulator) Triangulate(dst []ms3.Triangle, corners [8]float32, iso float32) (int, error) {
	if s.fail.Load() {
		return 0, errors.New("triangulation disabled")
	}
	return render.MarchingCubes{}.Triangulate(dst, corners, iso)
}

// gateTriangulator blocks every cell until release is closed.
type gateTriangulator struct {
	entered chan struct{}
	once    sync.Once
	release chan struct{}
}

func (g *gateTriangulator) Triangulate(dst []ms3.Triangle, corners [8]float32, iso float32) (int, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return render.MarchingCubes{}.Triangulate(dst, corners, iso)
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.GridSize = 8
	cfg.Noise.Scale = 1
	cfg.Workers = 3
	return cfg
}

func TestGenerateReference(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full size terrain in short mode")
	}
	g, err := NewGenerator(DefaultConfig(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if g.Mesh() != nil {
		t.Fatal("new generator should have no mesh")
	}
	m, stats, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	const cells = 63 * 63 * 63
	if stats.Jobs != cells || stats.Results != cells {
		t.Errorf("want %d jobs and results, got %d and %d", cells, stats.Jobs, stats.Results)
	}
	if m.NumIndices()%3 != 0 || m.NumIndices() == 0 {
		t.Errorf("bad index count %d", m.NumIndices())
	}
	if stats.Indices != m.NumIndices() || stats.Vertices != m.NumVertices() || stats.Triangles != m.NumTriangles() {
		t.Errorf("stats %+v do not match mesh", stats)
	}
	if stats.Field.Min < 0 || stats.Field.Max > 1 {
		t.Errorf("densities outside [0,1]: %+v", stats.Field)
	}
	if g.Mesh() != m {
		t.Error("generated mesh was not committed")
	}
	bb := m.Bounds()
	if bb.Min.X < 0 || bb.Min.Y < 0 || bb.Min.Z < 0 || bb.Max.X > 63 || bb.Max.Y > 63 || bb.Max.Z > 63 {
		t.Errorf("mesh outside grid: %+v", bb)
	}
	unpacked, err := mesh.Unpack(g.Packed())
	if err != nil {
		t.Fatal(err)
	}
	if unpacked.NumIndices() != m.NumIndices() || unpacked.NumVertices() != m.NumVertices() {
		t.Error("packed mesh differs from committed mesh")
	}
}

func TestGeneratePlane(t *testing.T) {
	g, err := NewGenerator(smallConfig(), WithNoise(planeNoise{}), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	m, stats, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// One column of cells straddles the plane, two triangles each.
	if m.NumTriangles() != 7*7*2 {
		t.Errorf("want %d triangles, got %d", 7*7*2, m.NumTriangles())
	}
	if m.NumVertices() != 8*8 {
		t.Errorf("want %d welded vertices, got %d", 8*8, m.NumVertices())
	}
	if stats.Jobs != 7*7*7 || stats.Results != 7*7*7 {
		t.Errorf("bad job counts %d/%d", stats.Jobs, stats.Results)
	}
	// Empty space lies towards lower density, here -X.
	want := ms3.Vec{X: -1}
	for i := 0; i < m.NumVertices(); i++ {
		if v := m.Vertex(i); v.X != 3.5 {
			t.Errorf("vertex %d off plane: %v", i, v)
		}
		if n := m.Normal(i); !ms3.EqualElem(n, want, 1e-6) {
			t.Errorf("vertex %d normal %v, want %v", i, n, want)
		}
	}
}

func TestGenerateFailureKeepsMesh(t *testing.T) {
	tri := &switchTriangulator{}
	g, err := NewGenerator(smallConfig(), WithNoise(planeNoise{}), WithTriangulator(tri), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	first, _, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	packed := g.Packed()
	tri.fail.Store(true)
	m, _, err := g.Generate(context.Background())
	if err == nil || m != nil {
		t.Fatal("expected failed generation")
	}
	if g.Mesh() != first {
		t.Error("failed generation replaced committed mesh")
	}
	if !bytes.Equal(g.Packed(), packed) {
		t.Error("failed generation replaced packed mesh")
	}
	if g.State() != StateIdle {
		t.Errorf("generator should be idle after failure, got %s", g.State())
	}
}

func TestGenerateEmptyReplacesMesh(t *testing.T) {
	g, err := NewGenerator(smallConfig(), WithNoise(planeNoise{}), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err = g.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	cfg := smallConfig()
	cfg.Isovalue = 0.01
	if err = g.Reconfigure(cfg); err != nil {
		t.Fatal(err)
	}
	m, stats, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !m.Empty() || stats.Triangles != 0 || stats.Jobs != 7*7*7 {
		t.Errorf("want empty mesh from all %d cells, got %d triangles from %d jobs", 7*7*7, stats.Triangles, stats.Jobs)
	}
	if g.Mesh() != m {
		t.Error("empty mesh was not committed")
	}
	unpacked, err := mesh.Unpack(g.Packed())
	if err != nil {
		t.Fatal(err)
	}
	if !unpacked.Empty() {
		t.Error("committed packed mesh is not empty")
	}
}

func TestGenerateBusy(t *testing.T) {
	gate := &gateTriangulator{entered: make(chan struct{}), release: make(chan struct{})}
	g, err := NewGenerator(smallConfig(), WithNoise(planeNoise{}), WithTriangulator(gate), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() {
		_, _, err := g.Generate(context.Background())
		errc <- err
	}()
	<-gate.entered
	if g.State() != StateRunning {
		t.Errorf("want running state, got %s", g.State())
	}
	_, _, err = g.Generate(context.Background())
	if !errors.Is(err, ErrBusy) {
		t.Errorf("want ErrBusy, got %v", err)
	}
	close(gate.release)
	if err = <-errc; err != nil {
		t.Fatal(err)
	}
	if g.State() != StateIdle {
		t.Errorf("want idle state, got %s", g.State())
	}
	if _, _, err = g.Generate(context.Background()); err != nil {
		t.Errorf("generation after completion should succeed: %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	gate := &gateTriangulator{entered: make(chan struct{}), release: make(chan struct{})}
	defer close(gate.release)
	cfg := smallConfig()
	cfg.Timeout = Duration(20 * time.Millisecond)
	g, err := NewGenerator(cfg, WithNoise(planeNoise{}), WithTriangulator(gate), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = g.Generate(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("want deadline exceeded, got %v", err)
	}
	if g.State() != StateIdle {
		t.Errorf("want idle state after timeout, got %s", g.State())
	}
}

func TestReconfigure(t *testing.T) {
	g, err := NewGenerator(smallConfig(), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	bad := smallConfig()
	bad.GridSize = 1
	if err = g.Reconfigure(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("want ErrInvalidConfig, got %v", err)
	}
	if g.Config().GridSize != 8 {
		t.Error("invalid config was stored")
	}
	cfg := smallConfig()
	cfg.GridSize = 5
	if err = g.Reconfigure(cfg); err != nil {
		t.Fatal(err)
	}
	_, stats, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Jobs != 4*4*4 {
		t.Errorf("want %d jobs after reconfigure, got %d", 4*4*4, stats.Jobs)
	}
}

func BenchmarkGenerate(b *testing.B) {
	g, err := NewGenerator(DefaultConfig(), WithLogger(quietLogger()))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := g.Generate(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
