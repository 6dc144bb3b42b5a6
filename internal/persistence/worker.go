// Package persistence mirrors the in-memory model to a single JSON file on
// disk, coalescing bursts of mutations into as few writes as correctness
// allows.
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/platform"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

// Worker waits on the model's modified signal and serializes its current
// state to DataFile, replacing it atomically. It implements platform.App so
// it can run under the same Launcher as the HTTP and AMQP surfaces.
type Worker struct {
	Model    *model.Model
	DataFile string
	Logger   mlog.Logger
}

// New creates a Worker that persists m to dataFile.
func New(m *model.Model, dataFile string, logger mlog.Logger) *Worker {
	return &Worker{Model: m, DataFile: dataFile, Logger: logger}
}

// Run drains the model's modified signal until ctx is canceled, saving once
// per drain. A signal that arrives while a save is in flight is coalesced
// into the next iteration rather than queued, so a burst of N mutations
// produces between 1 and N saves and the last save always reflects the last
// mutation observed before it started.
func (w *Worker) Run(ctx context.Context, _ *platform.Launcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Model.Modified():
			if err := w.save(); err != nil {
				w.Logger.Errorf("failed to persist model to %s: %s", w.DataFile, err)
			}
		}
	}
}

func (w *Worker) save() error {
	data, err := w.Model.PersistedJSON()
	if err != nil {
		return fmt.Errorf("rendering persisted document: %w", err)
	}

	dir := filepath.Dir(w.DataFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tempFile := w.DataFile + ".temp"

	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tempFile, err)
	}

	if err := os.Rename(tempFile, w.DataFile); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tempFile, w.DataFile, err)
	}

	w.Logger.Debugf("persisted model to %s", w.DataFile)

	return nil
}
