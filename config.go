package terrain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/terrain/mesh"
	"github.com/soypat/terrain/noise"
	"github.com/soypat/terrain/render"
)

// ErrInvalidConfig is wrapped by all configuration validation errors.
var ErrInvalidConfig = errors.New("invalid terrain config")

// Config is the terrain generation configuration. The zero value is not
// valid, start from [DefaultConfig].
type Config struct {
	// GridSize is the amount of density samples along each grid axis.
	GridSize int `toml:"grid_size"`
	// Isovalue is the density threshold separating solid from empty space.
	Isovalue float32     `toml:"isovalue"`
	Noise    NoiseConfig `toml:"noise"`
	// Workers is the size of the triangulation worker pool. Zero uses all logical CPUs.
	Workers int `toml:"workers"`
	// Timeout bounds a single generation. Zero means no timeout.
	Timeout Duration `toml:"timeout"`
	// Compression is the compression of the committed packed mesh: "zstd", "snappy" or "none".
	Compression string `toml:"compression"`
}

// NoiseConfig configures the fractal noise density source.
type NoiseConfig struct {
	// Scale multiplies grid coordinates before evaluating noise.
	Scale       float64 `toml:"scale"`
	Seed        int64   `toml:"seed"`
	Octaves     int     `toml:"octaves"`
	Period      float64 `toml:"period"`
	Persistence float64 `toml:"persistence"`
	Lacunarity  float64 `toml:"lacunarity"`
}

// Fractal returns the fractal noise parameters of c.
func (c NoiseConfig) Fractal() noise.FractalParams {
	return noise.FractalParams{
		Seed:        c.Seed,
		Octaves:     c.Octaves,
		Period:      c.Period,
		Persistence: c.Persistence,
		Lacunarity:  c.Lacunarity,
	}
}

// Duration is a time.Duration that decodes from strings such as "1.5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DefaultConfig returns the reference terrain configuration.
func DefaultConfig() Config {
	fp := noise.DefaultFractalParams()
	return Config{
		GridSize: 64,
		Isovalue: render.DefaultIsovalue,
		Noise: NoiseConfig{
			Scale:       4,
			Seed:        fp.Seed,
			Octaves:     fp.Octaves,
			Period:      fp.Period,
			Persistence: fp.Persistence,
			Lacunarity:  fp.Lacunarity,
		},
		Compression: mesh.DefaultCompression.String(),
	}
}

// Validate checks c for values that would make generation fail.
func (c Config) Validate() error {
	var msg string
	switch {
	case c.GridSize < 2:
		msg = fmt.Sprintf("grid size must be at least 2, got %d", c.GridSize)
	case !(c.Isovalue > 0 && c.Isovalue < 1):
		msg = fmt.Sprintf("isovalue must be in (0,1), got %g", c.Isovalue)
	case !(c.Noise.Scale > 0):
		msg = fmt.Sprintf("noise scale must be positive, got %g", c.Noise.Scale)
	case c.Noise.Octaves < 1 || c.Noise.Octaves > 9:
		msg = fmt.Sprintf("noise octaves must be in [1,9], got %d", c.Noise.Octaves)
	case !(c.Noise.Period > 0):
		msg = fmt.Sprintf("noise period must be positive, got %g", c.Noise.Period)
	case !(c.Noise.Persistence > 0):
		msg = fmt.Sprintf("noise persistence must be positive, got %g", c.Noise.Persistence)
	case !(c.Noise.Lacunarity > 0):
		msg = fmt.Sprintf("noise lacunarity must be positive, got %g", c.Noise.Lacunarity)
	case c.Workers < 0:
		msg = fmt.Sprintf("workers must not be negative, got %d", c.Workers)
	case c.Timeout < 0:
		msg = fmt.Sprintf("timeout must not be negative, got %s", time.Duration(c.Timeout))
	}
	if msg != "" {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
	}
	if _, err := mesh.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DecodeConfig decodes a TOML configuration from r on top of [DefaultConfig]
// and validates it. Unknown keys are an error.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding terrain config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes the TOML configuration file at filename.
func LoadConfig(filename string) (Config, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer fp.Close()
	return DecodeConfig(fp)
}

// Encode writes c to w as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
