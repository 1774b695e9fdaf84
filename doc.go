// Package terrain generates smooth triangle meshes of 3D noise terrain.
//
// A [Generator] samples a noise function over a cubic grid into a density
// field, triangulates every grid cell concurrently with marching cubes and
// welds the resulting triangles into an indexed mesh with smooth normals.
// The latest successfully generated mesh is kept by the Generator and
// replaced atomically on every successful generation.
package terrain
