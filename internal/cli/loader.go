package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/perch3d/sceneql/internal/engine"
	"github.com/perch3d/sceneql/internal/exec"
	"github.com/perch3d/sceneql/internal/history"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

// loadCatalog returns the schema catalog: the built-in one, or the
// CUE sources from --catalog when set.
func loadCatalog(opts *RootOptions) (*schema.Catalog, error) {
	if opts.Catalog == "" {
		return schema.Default(), nil
	}
	cat, err := schema.LoadDir(opts.Catalog)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load catalog", err)
	}
	return cat, nil
}

// loadScene loads the --scene snapshot into a memory adapter.
func loadScene(opts *RootOptions, cat *schema.Catalog) (*scene.MemScene, error) {
	if opts.Scene == "" {
		return nil, NewExitError(ExitCommandError, "no scene: pass --scene <snapshot.yaml>")
	}
	ms, err := scene.LoadSnapshotFile(opts.Scene, cat)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load scene", err)
	}
	return ms, nil
}

// buildEngine wires the engine from the global flags: catalog, scene,
// limits, logger and the optional history recorder. The returned
// cleanup closes the history database and must always be called.
func buildEngine(opts *RootOptions) (*engine.Engine, func(), error) {
	cat, err := loadCatalog(opts)
	if err != nil {
		return nil, nil, err
	}
	ms, err := loadScene(opts, cat)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	engineOpts := []engine.Option{
		engine.WithLimits(limitsFromFlags(opts)),
		engine.WithLogger(logger),
	}

	cleanup := func() {}
	if opts.History != "" {
		store, err := history.Open(opts.History)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "open history", err)
		}
		engineOpts = append(engineOpts, engine.WithRecorder(store))
		cleanup = func() { store.Close() }
	}

	return engine.New(ms, engineOpts...), cleanup, nil
}

func limitsFromFlags(opts *RootOptions) exec.Limits {
	lim := exec.Limits{
		MaxRows:              opts.MaxRows,
		MaxRelationshipDepth: opts.MaxDepth,
		Timeout:              opts.Timeout,
		MaxPayloadBytes:      opts.MaxBytes,
	}
	if lim.Timeout <= 0 {
		lim.Timeout = 5 * time.Second
	}
	return lim
}
