package model

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"soilcast/internal/types"
)

// Registry loads and holds the four per-parameter models. Slots transition
// unloaded -> loaded | not_found | error during LoadAll; there is no
// automatic retry, a reload requires an explicit LoadAll call.
//
// Reads (Model, Status, IsReady) take the read lock and are safe to call
// concurrently with a reload.
type Registry struct {
	dir    string
	logger *slog.Logger
	clock  types.Clock

	mu      sync.RWMutex
	models  map[types.Parameter]types.Model
	handles map[types.Parameter]types.ModelHandle
}

// NewRegistry creates a Registry over the given artifact directory. All slots
// start unloaded; call LoadAll before serving.
func NewRegistry(dir string, logger *slog.Logger, clock types.Clock) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}

	handles := make(map[types.Parameter]types.ModelHandle, len(types.AllParameters()))
	for _, p := range types.AllParameters() {
		spec, _ := types.SpecFor(p)
		handles[p] = types.ModelHandle{
			State:       types.ModelUnloaded,
			DisplayName: spec.DisplayName,
			ModelFile:   spec.ModelFile,
		}
	}

	return &Registry{
		dir:     dir,
		logger:  logger,
		clock:   clock,
		models:  make(map[types.Parameter]types.Model, len(handles)),
		handles: handles,
	}
}

// LoadAll attempts to load every parameter's artifact. Each load is
// independent: one missing or corrupt file yields a not_found/error status
// for that parameter only, and all others still load. Returns the number of
// models now loaded.
func (r *Registry) LoadAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, p := range types.AllParameters() {
		spec, _ := types.SpecFor(p)
		path := filepath.Join(r.dir, spec.ModelFile)
		handle := types.ModelHandle{
			State:       types.ModelUnloaded,
			DisplayName: spec.DisplayName,
			ModelFile:   spec.ModelFile,
		}
		delete(r.models, p)

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			handle.State = types.ModelNotFound
			handle.Error = "model file not found: " + path
			r.handles[p] = handle
			r.logger.Warn("model artifact not found",
				"parameter", string(p),
				"path", path,
			)
			continue
		}
		if err != nil {
			handle.State = types.ModelError
			handle.Error = err.Error()
			r.handles[p] = handle
			r.logger.Error("model artifact stat failed",
				"parameter", string(p),
				"path", path,
				"error", err,
			)
			continue
		}

		artifact, err := ReadArtifact(path)
		if err != nil {
			handle.State = types.ModelError
			handle.Error = err.Error()
			r.handles[p] = handle
			r.logger.Error("model artifact load failed",
				"parameter", string(p),
				"path", path,
				"error", err,
			)
			continue
		}

		m, err := NewDenseModel(artifact)
		if err != nil {
			handle.State = types.ModelError
			handle.Error = err.Error()
			r.handles[p] = handle
			r.logger.Error("model construction failed",
				"parameter", string(p),
				"error", err,
			)
			continue
		}

		handle.State = types.ModelLoaded
		handle.SizeBytes = info.Size()
		handle.LoadedAt = r.clock.Now()
		r.models[p] = m
		r.handles[p] = handle
		loaded++

		r.logger.Info("model loaded",
			"parameter", string(p),
			"file", spec.ModelFile,
			"size_bytes", info.Size(),
		)
	}

	r.logger.Info("model registry initialized",
		"loaded", loaded,
		"total", len(types.AllParameters()),
	)

	return loaded
}

// Model returns the loaded model for p, or false when the slot is not in the
// loaded state.
func (r *Registry) Model(p types.Parameter) (types.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[p]
	return m, ok
}

// Status returns the handle metadata for p.
func (r *Registry) Status(p types.Parameter) (types.ModelHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[p]
	return h, ok
}

// Handles returns a snapshot of all slots, keyed by parameter.
func (r *Registry) Handles() map[types.Parameter]types.ModelHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[types.Parameter]types.ModelHandle, len(r.handles))
	for p, h := range r.handles {
		out[p] = h
	}
	return out
}

// LoadedCount returns the number of slots currently in the loaded state.
func (r *Registry) LoadedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// IsReady reports whether the registry can serve any forecasts at all
// (at least one model loaded).
func (r *Registry) IsReady() bool {
	return r.LoadedCount() > 0
}
