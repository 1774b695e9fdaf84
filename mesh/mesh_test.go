package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"runtime"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
)

// quad is two counter-clockwise triangles sharing the diagonal of the unit square.
var quad = []ms3.Vec{
	{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
}

// tetraStream returns the outward wound faces of a tetrahedron.
func tetraStream() []ms3.Vec {
	a := ms3.Vec{X: 0, Y: 0, Z: 0}
	b := ms3.Vec{X: 1, Y: 0, Z: 0}
	c := ms3.Vec{X: 0, Y: 1, Z: 0}
	d := ms3.Vec{X: 0, Y: 0, Z: 1}
	return []ms3.Vec{
		a, c, b,
		a, b, d,
		a, d, c,
		b, c, d,
	}
}

func TestAssembleWeld(t *testing.T) {
	m, err := Assemble(quad)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumVertices() != 4 {
		t.Errorf("want 4 welded vertices, got %d", m.NumVertices())
	}
	if m.NumIndices() != len(quad) || m.NumTriangles() != 2 {
		t.Errorf("want %d indices and 2 triangles, got %d and %d", len(quad), m.NumIndices(), m.NumTriangles())
	}
	for i, idx := range m.Indices() {
		if got := m.Vertex(int(idx)); got != quad[i] {
			t.Errorf("index %d resolves to %v, want stream vertex %v", i, got, quad[i])
		}
	}
	up := ms3.Vec{Z: 1}
	for i, n := range m.Normals() {
		if !ms3.EqualElem(n, up, 1e-6) {
			t.Errorf("vertex %d normal %v, want %v", i, n, up)
		}
	}
	if m.Primitive() != PrimitiveTriangles {
		t.Error("bad primitive")
	}
	bb := m.Bounds()
	if bb.Min != (ms3.Vec{}) || bb.Max != (ms3.Vec{X: 1, Y: 1}) {
		t.Errorf("unexpected bounds %+v", bb)
	}
}

func TestAssembleSmoothNormals(t *testing.T) {
	m, err := Assemble(tetraStream())
	if err != nil {
		t.Fatal(err)
	}
	if m.NumVertices() != 4 {
		t.Fatalf("want 4 welded vertices, got %d", m.NumVertices())
	}
	centroid := ms3.Vec{X: 0.25, Y: 0.25, Z: 0.25}
	for i := 0; i < m.NumVertices(); i++ {
		n := m.Normal(i)
		if l := ms3.Norm(n); l < 1-1e-5 || l > 1+1e-5 {
			t.Errorf("vertex %d normal not unit length: %v", i, n)
		}
		out := ms3.Sub(m.Vertex(i), centroid)
		if ms3.Dot(out, n) <= 0 {
			t.Errorf("vertex %d normal %v points inwards", i, n)
		}
	}
	// Origin vertex is shared by the three axis aligned faces.
	want := ms3.Unit(ms3.Vec{X: -1, Y: -1, Z: -1})
	if got := m.Normal(0); !ms3.EqualElem(got, want, 1e-6) {
		t.Errorf("origin normal %v, want %v", got, want)
	}
}

func TestAssembleDegenerate(t *testing.T) {
	stream := append([]ms3.Vec{}, quad...)
	p := ms3.Vec{X: 5, Y: 5, Z: 5}
	stream = append(stream, p, p, p)
	m, err := Assemble(stream)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumTriangles() != 3 {
		t.Fatalf("degenerate triangle should be kept, got %d triangles", m.NumTriangles())
	}
	if m.NumVertices() != 5 {
		t.Fatalf("want 5 vertices, got %d", m.NumVertices())
	}
	if n := m.Normal(4); n != (ms3.Vec{}) {
		t.Errorf("vertex of degenerate triangle should have zero normal, got %v", n)
	}
}

func TestAssembleErrors(t *testing.T) {
	_, err := Assemble(quad[:4])
	if !errors.Is(err, ErrStreamLength) {
		t.Errorf("want ErrStreamLength, got %v", err)
	}
	bad := append([]ms3.Vec{}, quad...)
	bad[2].Y = math32.NaN()
	_, err = Assemble(bad)
	if err == nil {
		t.Error("expected error for non-finite vertex")
	}
}

func TestEmptyMesh(t *testing.T) {
	m, err := Assemble(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Empty() || m.NumVertices() != 0 || m.NumIndices() != 0 || m.NumTriangles() != 0 {
		t.Fatalf("want empty mesh, got %d vertices and %d indices", m.NumVertices(), m.NumIndices())
	}
	if bb := m.Bounds(); bb != (ms3.Box{}) {
		t.Errorf("empty mesh bounds %+v, want zero box", bb)
	}
	if _, err = WriteSTL(io.Discard, m); !errors.Is(err, ErrEmpty) {
		t.Errorf("want ErrEmpty writing STL, got %v", err)
	}
	for _, c := range []Compression{CompressNone, CompressSnappy, CompressZstd} {
		b, err := Pack(m, c)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		got, err := Unpack(b)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if !got.Empty() || got.NumVertices() != 0 {
			t.Errorf("%s: unpacked mesh not empty", c)
		}
	}
	view := DefaultView()
	view.Width, view.Height = 16, 16
	img, err := RenderImage(m, view)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("image size %v, want 16x16", b.Size())
	}
}

func TestAccessorsCopy(t *testing.T) {
	m, err := Assemble(quad)
	if err != nil {
		t.Fatal(err)
	}
	v := m.Vertices()
	v[0] = ms3.Vec{X: 100}
	idx := m.Indices()
	idx[0] = 3
	if m.Vertex(0) == v[0] || m.Indices()[0] == 3 {
		t.Error("accessors must not alias mesh buffers")
	}
}

func TestSTLRoundTrip(t *testing.T) {
	m, err := Assemble(tetraStream())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, err := WriteSTL(&buf, m)
	if err != nil {
		t.Fatal(err)
	}
	if want := 84 + stlTriangleSize*m.NumTriangles(); n != want || buf.Len() != want {
		t.Fatalf("wrote %d bytes (buffer %d), want %d", n, buf.Len(), want)
	}
	got, err := ReadSTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want := m.Triangles()
	if len(got) != len(want) {
		t.Fatalf("read %d triangles, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triangle %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadSTLTruncated(t *testing.T) {
	m, err := Assemble(quad)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err = WriteSTL(&buf, m); err != nil {
		t.Fatal(err)
	}
	_, err = ReadSTL(bytes.NewReader(buf.Bytes()[:buf.Len()-10]))
	if err == nil {
		t.Error("expected error reading truncated STL")
	}
}

func TestPackRoundTrip(t *testing.T) {
	m, err := Assemble(tetraStream())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []Compression{CompressNone, CompressSnappy, CompressZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := Encode(&buf, m, c); err != nil {
				t.Fatal(err)
			}
			got, err := Decode(&buf)
			if err != nil {
				t.Fatal(err)
			}
			assertMeshEqual(t, got, m)
		})
	}
}

func TestUnpackErrors(t *testing.T) {
	m, err := Assemble(quad)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Pack(m, CompressNone)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = Unpack(b[:5]); err == nil {
		t.Error("expected error for short input")
	}
	bad := append([]byte{}, b...)
	bad[0] = 'X'
	if _, err = Unpack(bad); err == nil {
		t.Error("expected error for bad magic")
	}
	bad = append([]byte{}, b...)
	bad[5] = 200
	if _, err = Unpack(bad); err == nil {
		t.Error("expected error for unknown compression")
	}
	if _, err = Unpack(b[:len(b)-4]); err == nil {
		t.Error("expected error for truncated payload")
	}
	if _, err = Pack(m, Compression(200)); err == nil {
		t.Error("expected error packing with unknown compression")
	}
}

func TestUnpackForgedLength(t *testing.T) {
	m, err := Assemble(tetraStream())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []Compression{CompressNone, CompressSnappy, CompressZstd} {
		b, err := Pack(m, c)
		if err != nil {
			t.Fatal(err)
		}
		binary.LittleEndian.PutUint32(b[6:], math.MaxUint32)
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err = Unpack(b)
		runtime.ReadMemStats(&after)
		if err == nil {
			t.Errorf("%s: expected error for forged length", c)
		}
		if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 256<<20 {
			t.Errorf("%s: unpacking forged header allocated %d bytes", c, alloc)
		}
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressNone, CompressSnappy, CompressZstd} {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCompression(%q) = %v, %v", c.String(), got, err)
		}
	}
	if c, err := ParseCompression(""); err != nil || c != DefaultCompression {
		t.Errorf("empty compression should parse as default, got %v, %v", c, err)
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Error("expected error for unknown compression")
	}
}

func TestRenderImage(t *testing.T) {
	m, err := Assemble(tetraStream())
	if err != nil {
		t.Fatal(err)
	}
	view := DefaultView()
	view.Width, view.Height = 64, 48
	img, err := RenderImage(m, view)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("image size %v, want 64x48", b.Size())
	}
	var buf bytes.Buffer
	if err = RenderPNG(&buf, m, view); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
	view.Width = 0
	if _, err = RenderImage(m, view); err == nil {
		t.Error("expected error for zero width")
	}
}

func assertMeshEqual(t *testing.T, got, want *Mesh) {
	t.Helper()
	if got.NumVertices() != want.NumVertices() || got.NumIndices() != want.NumIndices() {
		t.Fatalf("mesh size mismatch: got %d/%d vertices/indices, want %d/%d",
			got.NumVertices(), got.NumIndices(), want.NumVertices(), want.NumIndices())
	}
	for i := 0; i < want.NumVertices(); i++ {
		if got.Vertex(i) != want.Vertex(i) || got.Normal(i) != want.Normal(i) {
			t.Errorf("vertex %d mismatch", i)
		}
	}
	gi, wi := got.Indices(), want.Indices()
	for i := range wi {
		if gi[i] != wi[i] {
			t.Errorf("index %d: got %d, want %d", i, gi[i], wi[i])
		}
	}
}
