package crew

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"fundamental/analyst-app/core"
	"github.com/fsnotify/fsnotify"
)

// DefinitionsSource hands out the definitions a new run should use.
type DefinitionsSource interface {
	Definitions() *Definitions
}

type staticDefinitions struct {
	defs *Definitions
}

func (s staticDefinitions) Definitions() *Definitions { return s.defs }

// Static returns a source that always yields defs.
func Static(defs *Definitions) DefinitionsSource {
	return staticDefinitions{defs: defs}
}

// DefinitionsWatcher serves definitions loaded from a directory and reloads
// them when agents.yaml or tasks.yaml change. An invalid edit is logged and
// the last valid definitions stay in use.
type DefinitionsWatcher struct {
	dir      string
	current  atomic.Pointer[Definitions]
	watcher  *fsnotify.Watcher
	onReload func(*Definitions, error)
	wg       sync.WaitGroup
}

func NewDefinitionsWatcher(dir string) (*DefinitionsWatcher, error) {
	defs, err := LoadDefinitionsDir(dir)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &DefinitionsWatcher{dir: dir, watcher: watcher}
	w.current.Store(defs)
	return w, nil
}

func (w *DefinitionsWatcher) Definitions() *Definitions {
	return w.current.Load()
}

// OnReload registers a callback invoked after every reload attempt. It must be
// set before Start.
func (w *DefinitionsWatcher) OnReload(f func(*Definitions, error)) {
	w.onReload = f
}

// Start processes file events until ctx is done or Close is called.
func (w *DefinitionsWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

func (w *DefinitionsWatcher) Close() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *DefinitionsWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != AgentsFile && name != TasksFile {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				core.Logger().Debug("definitions changed", slog.String("event", event.Op.String()), slog.String("file", event.Name))
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.Logger().Error("definitions watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *DefinitionsWatcher) reload() {
	defs, err := LoadDefinitionsDir(w.dir)
	if err != nil {
		core.Logger().Warn("definitions reload rejected, keeping previous", slog.String("dir", w.dir), slog.String("error", err.Error()))
	} else {
		w.current.Store(defs)
		core.Logger().Info("definitions reloaded", slog.String("dir", w.dir), slog.Int("tasks", len(defs.Tasks)))
	}
	if w.onReload != nil {
		w.onReload(defs, err)
	}
}
