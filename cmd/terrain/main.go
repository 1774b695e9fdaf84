// Command terrain generates a marching cubes terrain mesh from fractal noise
// and writes it as STL, packed mesh or PNG preview.
//
// Usage:
//
//	terrain [-config terrain.toml] [-stl out.stl] [-mesh out.tmsh] [-png out.png] [-watch] [-v]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/soypat/terrain"
	"github.com/soypat/terrain/mesh"
)

var (
	flagConfig  = flag.String("config", "", "TOML configuration file. Defaults are used if empty")
	flagSTL     = flag.String("stl", "", "write mesh as binary STL to this file")
	flagMesh    = flag.String("mesh", "", "write packed mesh to this file")
	flagPNG     = flag.String("png", "", "write a rendered preview PNG to this file")
	flagWatch   = flag.Bool("watch", false, "regenerate the mesh every time the configuration file is written")
	flagVerbose = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()
	logger := terrain.Logger()
	if *flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("terrain failed", "err", err)
	}
}

func run(ctx context.Context, logger *log.Logger) error {
	if *flagWatch && *flagConfig == "" {
		return errors.New("-watch requires -config")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, err := terrain.NewGenerator(cfg)
	if err != nil {
		return err
	}
	if err = generate(ctx, gen, logger); err != nil {
		return err
	}
	if !*flagWatch {
		return nil
	}
	return watch(ctx, gen, logger)
}

func loadConfig() (terrain.Config, error) {
	if *flagConfig == "" {
		return terrain.DefaultConfig(), nil
	}
	return terrain.LoadConfig(*flagConfig)
}

func generate(ctx context.Context, gen *terrain.Generator, logger *log.Logger) error {
	m, _, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	return writeOutputs(m, gen.Packed(), logger)
}

var outputMu sync.Mutex

func writeOutputs(m *mesh.Mesh, packed []byte, logger *log.Logger) error {
	outputMu.Lock()
	defer outputMu.Unlock()
	if *flagSTL != "" {
		if m.Empty() {
			logger.Warn("mesh is empty, skipping STL output", "file", *flagSTL)
		} else if err := writeFile(*flagSTL, func(fp *os.File) error {
			_, err := mesh.WriteSTL(fp, m)
			return err
		}); err != nil {
			return err
		}
	}
	if *flagMesh != "" {
		if err := os.WriteFile(*flagMesh, packed, 0o644); err != nil {
			return err
		}
	}
	if *flagPNG != "" {
		if err := writeFile(*flagPNG, func(fp *os.File) error {
			return mesh.RenderPNG(fp, m, mesh.DefaultView())
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(name string, write func(*os.File) error) error {
	fp, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = write(fp); err != nil {
		fp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return fp.Close()
}

// watch regenerates the terrain on every write to the configuration file
// until ctx is cancelled. Writes arriving during a generation are coalesced
// and the latest configuration is generated once it finishes.
func watch(ctx context.Context, gen *terrain.Generator, logger *log.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the directory so editors that replace the file are still seen.
	cfgPath := filepath.Clean(*flagConfig)
	if err = w.Add(filepath.Dir(cfgPath)); err != nil {
		return err
	}
	reloader := terrain.NewReloader(gen, func(cfg terrain.Config, m *mesh.Mesh, _ terrain.Stats, err error) {
		if err != nil {
			logger.Error("regenerating terrain", "err", err)
			return
		}
		if err = writeOutputs(m, gen.Packed(), logger); err != nil {
			logger.Error("writing outputs", "err", err)
		}
	})
	defer reloader.Wait()
	logger.Info("watching configuration", "file", cfgPath)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != cfgPath || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := terrain.LoadConfig(cfgPath)
			if err != nil {
				logger.Error("reloading configuration", "err", err)
				continue
			}
			reloader.Trigger(ctx, cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watching configuration", "err", err)
		}
	}
}
