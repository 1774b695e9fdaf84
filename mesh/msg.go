package mesh

import (
	"fmt"

	"github.com/soypat/glgl/math/ms3"
	"github.com/tinylib/msgp/msgp"
)

var (
	_ msgp.Marshaler   = (*Mesh)(nil)
	_ msgp.Unmarshaler = (*Mesh)(nil)
	_ msgp.Sizer       = (*Mesh)(nil)
)

// MarshalMsg implements msgp.Marshaler. Vector buffers are flattened to
// float32 arrays of length 3*len.
func (m *Mesh) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, m.Msgsize())
	// map header, size 4
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "prim")
	o = msgp.AppendUint8(o, uint8(PrimitiveTriangles))
	o = msgp.AppendString(o, "v")
	o = appendVecs(o, m.vertices)
	o = msgp.AppendString(o, "n")
	o = appendVecs(o, m.normals)
	o = msgp.AppendString(o, "i")
	o = msgp.AppendArrayHeader(o, uint32(len(m.indices)))
	for _, idx := range m.indices {
		o = msgp.AppendUint32(o, idx)
	}
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler. The decoded buffers are validated
// for consistency.
func (m *Mesh) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "prim":
			var prim uint8
			prim, bts, err = msgp.ReadUint8Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "prim")
				return
			}
			if Primitive(prim) != PrimitiveTriangles {
				err = fmt.Errorf("unsupported mesh primitive %d", prim)
				return
			}
		case "v":
			m.vertices, bts, err = readVecs(bts)
			if err != nil {
				err = msgp.WrapError(err, "v")
				return
			}
		case "n":
			m.normals, bts, err = readVecs(bts)
			if err != nil {
				err = msgp.WrapError(err, "n")
				return
			}
		case "i":
			var zb0002 uint32
			zb0002, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "i")
				return
			}
			m.indices = make([]uint32, zb0002)
			for za0001 := range m.indices {
				m.indices[za0001], bts, err = msgp.ReadUint32Bytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "i", za0001)
					return
				}
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	if err = m.validate(); err != nil {
		return
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (m *Mesh) Msgsize() (s int) {
	s = msgp.MapHeaderSize +
		msgp.StringPrefixSize + 4 + msgp.Uint8Size +
		2*(msgp.StringPrefixSize+1+msgp.ArrayHeaderSize) + 3*(len(m.vertices)+len(m.normals))*msgp.Float32Size +
		msgp.StringPrefixSize + 1 + msgp.ArrayHeaderSize + len(m.indices)*msgp.Uint32Size
	return
}

func appendVecs(o []byte, vs []ms3.Vec) []byte {
	o = msgp.AppendArrayHeader(o, uint32(3*len(vs)))
	for _, v := range vs {
		o = msgp.AppendFloat32(o, v.X)
		o = msgp.AppendFloat32(o, v.Y)
		o = msgp.AppendFloat32(o, v.Z)
	}
	return o
}

func readVecs(bts []byte) (vs []ms3.Vec, o []byte, err error) {
	var sz uint32
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}
	if sz%3 != 0 {
		return nil, bts, fmt.Errorf("vector array length %d not a multiple of 3", sz)
	}
	vs = make([]ms3.Vec, sz/3)
	for i := range vs {
		var x, y, z float32
		if x, bts, err = msgp.ReadFloat32Bytes(bts); err != nil {
			return nil, bts, err
		}
		if y, bts, err = msgp.ReadFloat32Bytes(bts); err != nil {
			return nil, bts, err
		}
		if z, bts, err = msgp.ReadFloat32Bytes(bts); err != nil {
			return nil, bts, err
		}
		vs[i] = ms3.Vec{X: x, Y: y, Z: z}
	}
	return vs, bts, nil
}
