package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
)

// Watcher reloads the model when model files or condition fragments under
// the root change. Bursts of changes are collapsed into one reload that
// receives the changed paths, relative to the root and sorted.
type Watcher struct {
	rootDir  string
	debounce time.Duration
	logger   ports.Logger
	fs       *fsnotify.Watcher
	onChange func(changed []string)

	pending  map[string]struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches rootDir and every directory below it.
func NewWatcher(rootDir string, debounce time.Duration, logger ports.Logger, onChange func(changed []string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		rootDir:  rootDir,
		debounce: debounce,
		logger:   logger,
		fs:       fsWatcher,
		onChange: onChange,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	if err := w.watchTree(rootDir); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", rootDir, err)
	}
	return w, nil
}

// Start runs the event loop in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher. Pending changes are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fs.Close()
		w.wg.Wait()
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.record(ev) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			changed := w.flush()
			w.logger.Info("model files changed", "files", changed)
			w.onChange(changed)
		}
	}
}

// record notes ev if it concerns the model and reports whether it did.
// New directories are watched as they appear.
func (w *Watcher) record(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watchTree(ev.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
			}
			return false
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	if !isModelSource(ev.Name) {
		return false
	}

	rel, err := filepath.Rel(w.rootDir, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	w.logger.Debug("model file event", "file", rel, "op", ev.Op.String())
	w.pending[rel] = struct{}{}
	return true
}

func (w *Watcher) flush() []string {
	changed := make([]string, 0, len(w.pending))
	for rel := range w.pending {
		changed = append(changed, rel)
	}
	clear(w.pending)
	slices.Sort(changed)
	return changed
}

func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// isModelSource reports whether a change to name can alter the loaded
// model: YAML model files, included partials and condition fragments.
// Hidden files, such as in-flight atomic writes, and editor backups are
// not.
func isModelSource(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return isYAMLFile(name) || strings.EqualFold(filepath.Ext(name), ".expr")
}
