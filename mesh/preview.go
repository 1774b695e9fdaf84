package mesh

import (
	"errors"
	"image"
	"image/png"
	"io"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/glgl/math/ms3"
)

// View configures the camera of a mesh preview render. The mesh is fit into
// a bi-unit cube centered at the origin before rendering.
type View struct {
	Width, Height int
	// Supersample is the supersampling factor used for antialiasing.
	Supersample int
	Eye         ms3.Vec
	Center      ms3.Vec
	Up          ms3.Vec
	Near, Far   float64
	// FOV is the vertical field of view in degrees.
	FOV float64
}

// DefaultView returns an isometric-like view of the bi-unit cube.
func DefaultView() View {
	return View{
		Width:       1024,
		Height:      768,
		Supersample: 2,
		Eye:         ms3.Vec{X: 3, Y: 3, Z: 3},
		Center:      ms3.Vec{},
		Up:          ms3.Vec{Z: 1},
		Near:        1,
		Far:         10,
		FOV:         30,
	}
}

// RenderImage rasterizes the mesh with a phong shader using its smooth normals.
// An empty mesh renders as the background color.
func RenderImage(m *Mesh, view View) (image.Image, error) {
	if view.Width <= 0 || view.Height <= 0 {
		return nil, errors.New("preview dimensions must be positive")
	}
	scale := max(view.Supersample, 1)
	tris := make([]*fauxgl.Triangle, m.NumTriangles())
	for i := range tris {
		var v [3]fauxgl.Vertex
		for j := range v {
			idx := m.indices[3*i+j]
			v[j] = fauxgl.Vertex{
				Position: fauxglVec(m.vertices[idx]),
				Normal:   fauxglVec(m.normals[idx]),
			}
		}
		tris[i] = fauxgl.NewTriangle(v[0], v[1], v[2])
	}
	var (
		eye    = fauxglVec(view.Eye)
		center = fauxglVec(view.Center)
		up     = fauxglVec(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	fm := fauxgl.NewTriangleMesh(tris)
	if len(tris) > 0 {
		fm.BiUnitCube()
	}
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(view.FOV, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(fm)
	img := context.Image()
	if scale > 1 {
		img = resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear)
	}
	return img, nil
}

// RenderPNG renders the mesh and writes it to w as a PNG image.
func RenderPNG(w io.Writer, m *Mesh, view View) error {
	img, err := RenderImage(m, view)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func fauxglVec(v ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(v.X), float64(v.Y), float64(v.Z))
}
