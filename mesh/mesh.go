// Package mesh assembles triangle vertex streams into immutable indexed
// meshes with smooth normals and serializes them.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/terrain/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Primitive is the topology of a mesh index buffer.
type Primitive uint8

const (
	// PrimitiveTriangles means every three indices form one triangle.
	PrimitiveTriangles Primitive = 1
)

var (
	// ErrEmpty is returned when exporting a mesh with no triangles to a
	// format that cannot represent it.
	ErrEmpty = errors.New("mesh has no triangles")
	// ErrStreamLength is returned when a vertex stream does not hold whole triangles.
	ErrStreamLength = errors.New("vertex stream length not a multiple of 3")
)

// Mesh is an immutable indexed triangle list with per-vertex normals.
// Vertices sharing a position are welded into a single vertex.
type Mesh struct {
	vertices []ms3.Vec
	normals  []ms3.Vec
	indices  []uint32
}

// Assemble welds the vertices of a triangle list stream into an indexed mesh
// and computes smooth vertex normals. Stream order is preserved: welded
// vertices are numbered in order of first appearance and index i refers to
// stream vertex i. Triangles are expected to be wound so that
// cross(v1-v0, v2-v0) points outwards. An empty stream assembles into an
// empty mesh.
func Assemble(stream []ms3.Vec) (*Mesh, error) {
	if len(stream)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d vertices", ErrStreamLength, len(stream))
	} else if int64(len(stream)) > math.MaxUint32 {
		return nil, errors.New("vertex stream exceeds 32 bit index range")
	}
	weld := make(map[ms3.Vec]uint32, len(stream)/4)
	m := &Mesh{
		vertices: make([]ms3.Vec, 0, len(stream)/4),
		indices:  make([]uint32, len(stream)),
	}
	for i, v := range stream {
		if !d3.Finite(v) {
			return nil, fmt.Errorf("non-finite vertex %+v at stream position %d", v, i)
		}
		idx, ok := weld[v]
		if !ok {
			idx = uint32(len(m.vertices))
			weld[v] = idx
			m.vertices = append(m.vertices, v)
		}
		m.indices[i] = idx
	}
	m.normals = smoothNormals(m.vertices, m.indices)
	return m, nil
}

// smoothNormals sums the unit face normals of all triangles sharing a vertex
// and normalizes the result. Vertices only touched by degenerate triangles
// get a zero normal.
func smoothNormals(vertices []ms3.Vec, indices []uint32) []ms3.Vec {
	acc := make([]r3.Vec, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		ia, ib, ic := indices[i], indices[i+1], indices[i+2]
		n := faceNormal(vertices[ia], vertices[ib], vertices[ic])
		acc[ia] = r3.Add(acc[ia], n)
		acc[ib] = r3.Add(acc[ib], n)
		acc[ic] = r3.Add(acc[ic], n)
	}
	normals := make([]ms3.Vec, len(vertices))
	for i, n := range acc {
		if norm := r3.Norm(n); norm > 0 {
			normals[i] = d3.FromR3(r3.Scale(1/norm, n))
		}
	}
	return normals
}

// faceNormal returns the unit normal of triangle abc or the zero vector if degenerate.
func faceNormal(a, b, c ms3.Vec) r3.Vec {
	pa := d3.R3(a)
	n := r3.Cross(r3.Sub(d3.R3(b), pa), r3.Sub(d3.R3(c), pa))
	norm := r3.Norm(n)
	if norm == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/norm, n)
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool { return len(m.indices) == 0 }

// Primitive returns the mesh primitive type, always [PrimitiveTriangles].
func (m *Mesh) Primitive() Primitive { return PrimitiveTriangles }

// NumVertices returns the amount of welded vertices.
func (m *Mesh) NumVertices() int { return len(m.vertices) }

// NumIndices returns the length of the index buffer.
func (m *Mesh) NumIndices() int { return len(m.indices) }

// NumTriangles returns the amount of triangles in the mesh.
func (m *Mesh) NumTriangles() int { return len(m.indices) / 3 }

// Vertices returns a copy of the vertex buffer.
func (m *Mesh) Vertices() []ms3.Vec { return append([]ms3.Vec(nil), m.vertices...) }

// Normals returns a copy of the per-vertex normal buffer.
func (m *Mesh) Normals() []ms3.Vec { return append([]ms3.Vec(nil), m.normals...) }

// Indices returns a copy of the index buffer.
func (m *Mesh) Indices() []uint32 { return append([]uint32(nil), m.indices...) }

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) ms3.Vec { return m.vertices[i] }

// Normal returns the normal of vertex i.
func (m *Mesh) Normal(i int) ms3.Vec { return m.normals[i] }

// Triangle returns the i'th triangle of the mesh.
func (m *Mesh) Triangle(i int) ms3.Triangle {
	return ms3.Triangle{
		m.vertices[m.indices[3*i]],
		m.vertices[m.indices[3*i+1]],
		m.vertices[m.indices[3*i+2]],
	}
}

// Triangles returns the mesh as a triangle list.
func (m *Mesh) Triangles() []ms3.Triangle {
	t := make([]ms3.Triangle, m.NumTriangles())
	for i := range t {
		t[i] = m.Triangle(i)
	}
	return t
}

// Bounds returns the bounding box of the mesh vertices. An empty mesh has
// zero bounds.
func (m *Mesh) Bounds() ms3.Box {
	if len(m.vertices) == 0 {
		return ms3.Box{}
	}
	return ms3.Box(d3.Set(m.vertices).Bounds())
}

// validate checks buffer consistency of a decoded mesh.
func (m *Mesh) validate() error {
	switch {
	case len(m.indices)%3 != 0:
		return ErrStreamLength
	case len(m.normals) != len(m.vertices):
		return fmt.Errorf("got %d normals for %d vertices", len(m.normals), len(m.vertices))
	}
	for _, idx := range m.indices {
		if int(idx) >= len(m.vertices) {
			return fmt.Errorf("index %d out of range of %d vertices", idx, len(m.vertices))
		}
	}
	return nil
}
