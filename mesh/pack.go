package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how packed meshes are compressed.
type Compression uint8

const (
	CompressNone Compression = iota
	CompressSnappy
	CompressZstd
)

// DefaultCompression is the compression used when committing terrain meshes.
const DefaultCompression = CompressZstd

func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "none"
	case CompressSnappy:
		return "snappy"
	case CompressZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression parses a compression name as returned by [Compression.String].
// The empty string parses as [DefaultCompression].
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "":
		return DefaultCompression, nil
	case "none":
		return CompressNone, nil
	case "snappy":
		return CompressSnappy, nil
	case "zstd":
		return CompressZstd, nil
	}
	return 0, fmt.Errorf("unknown mesh compression %q", s)
}

// Packed mesh layout:
//
//	magic "TMSH" | version u8 | compression u8 | raw length u32 LE | payload
const (
	packMagic      = "TMSH"
	packVersion    = 1
	packHeaderSize = 10
)

var errBadPack = errors.New("not a packed mesh")

// Pack serializes m with MessagePack and compresses the result.
func Pack(m *Mesh, c Compression) ([]byte, error) {
	raw, err := m.MarshalMsg(nil)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) > 1<<32-1 {
		return nil, errors.New("mesh too large to pack")
	}
	dst := make([]byte, packHeaderSize, packHeaderSize+len(raw)/2)
	copy(dst, packMagic)
	dst[4] = packVersion
	dst[5] = byte(c)
	binary.LittleEndian.PutUint32(dst[6:], uint32(len(raw)))
	switch c {
	case CompressNone:
		dst = append(dst, raw...)
	case CompressSnappy:
		dst = append(dst, snappy.Encode(nil, raw)...)
	case CompressZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		dst = enc.EncodeAll(raw, dst)
		if err = enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("illegal compression %s during packing", c)
	}
	return dst, nil
}

// Unpack is the inverse of [Pack].
func Unpack(b []byte) (*Mesh, error) {
	if len(b) < packHeaderSize || string(b[:4]) != packMagic {
		return nil, errBadPack
	}
	if b[4] != packVersion {
		return nil, fmt.Errorf("unsupported packed mesh version %d", b[4])
	}
	c := Compression(b[5])
	rawLen := binary.LittleEndian.Uint32(b[6:])
	payload := b[packHeaderSize:]
	var (
		raw []byte
		err error
	)
	switch c {
	case CompressNone:
		raw = payload
	case CompressSnappy:
		raw, err = unpackSnappy(payload, rawLen)
	case CompressZstd:
		raw, err = unpackZstd(payload, rawLen)
	default:
		return nil, fmt.Errorf("illegal compression %s in packed mesh", c)
	}
	if err != nil {
		return nil, fmt.Errorf("decompressing %s mesh: %w", c, err)
	}
	if int64(len(raw)) != int64(rawLen) {
		return nil, fmt.Errorf("packed mesh length mismatch: header %d, got %d", rawLen, len(raw))
	}
	var m Mesh
	if _, err = m.UnmarshalMsg(raw); err != nil {
		return nil, err
	}
	return &m, nil
}

// snappyMaxRatio bounds the expansion of a snappy block. The largest copy
// element emits 64 bytes from 3 bytes of input.
const snappyMaxRatio = 22

// unpackSnappy checks the block's decoded length against the header before
// allocating the output.
func unpackSnappy(payload []byte, rawLen uint32) ([]byte, error) {
	n, err := snappy.DecodedLen(payload)
	if err != nil {
		return nil, err
	}
	if n != int(rawLen) || n > snappyMaxRatio*len(payload)+16 {
		return nil, fmt.Errorf("snappy block length %d inconsistent with header %d and payload %d", n, rawLen, len(payload))
	}
	return snappy.Decode(nil, payload)
}

// unpackZstd decodes at most rawLen+1 bytes so output memory grows with the
// data actually decoded, never with the header value alone.
func unpackZstd(payload []byte, rawLen uint32) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(payload), zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(io.LimitReader(dec, int64(rawLen)+1))
}

// Encode writes the packed mesh to w.
func Encode(w io.Writer, m *Mesh, c Compression) (int, error) {
	b, err := Pack(m, c)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// Decode reads a packed mesh from r until EOF.
func Decode(r io.Reader) (*Mesh, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unpack(b)
}
