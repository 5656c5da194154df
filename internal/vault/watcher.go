package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lorekeep/internal/models"
)

// Importer applies an externally edited entry to the store.
type Importer interface {
	ImportEntry(ctx context.Context, e models.Entry) error
}

// settle is how long a file must be quiet before it is imported; editors
// often write a file in several steps.
const settle = 150 * time.Millisecond

// Watch imports external edits of mirrored entry files until ctx is
// cancelled. Files the mirror wrote itself are skipped.
func Watch(ctx context.Context, m *Mirror, imp Importer, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Join(m.Root(), entriesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("vault watcher: started", slog.String("dir", dir))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			fire = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("vault watcher: stopped")
			return nil

		case <-fire:
			for rel := range pending {
				importFile(ctx, m, imp, rel, logger)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			rel, err := filepath.Rel(m.Root(), ev.Name)
			if err != nil {
				continue
			}
			if _, ok := IDFromPath(rel); !ok {
				continue
			}
			pending[rel] = struct{}{}
			schedule()

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("vault watcher: error", slog.String("error", werr.Error()))
		}
	}
}

func importFile(ctx context.Context, m *Mirror, imp Importer, rel string, logger *slog.Logger) {
	data, err := m.fs.Read(rel)
	if err != nil {
		logger.Warn("vault watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if !m.external(rel, data) {
		return
	}
	e, err := m.Load(rel)
	if err != nil {
		logger.Warn("vault watcher: decode failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := imp.ImportEntry(ctx, e); err != nil {
		logger.Warn("vault watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("vault watcher: imported", slog.String("path", rel), slog.Int64("id", e.ID))
}
