// Package watch monitors directories for spreadsheets and hands each new or
// changed file to a handler once writes to it have settled.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before it is handled.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the spreadsheet types picked up when none are given.
var DefaultExtensions = []string{".xlsx", ".xls", ".csv"}

// Config holds the watcher configuration.
type Config struct {
	Directories []string
	Extensions  []string
	Pattern     string // glob on the base name, e.g. "sales_*"
	Recursive   bool
	Debounce    time.Duration
}

// Event records one handled file.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "processed", "error"
	Error     string    `json:"error,omitempty"`
}

// Handler processes a settled file.
type Handler func(ctx context.Context, path string) error

// Watcher monitors directories for file changes.
type Watcher struct {
	Config  Config
	Handler Handler

	logger   *slog.Logger
	mu       sync.Mutex
	events   []Event
	fsw      *fsnotify.Watcher
	debounce map[string]*time.Timer
	stopped  bool
	running  sync.WaitGroup
}

// New creates a Watcher. Nothing is watched until Start.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	exts := make([]string, len(cfg.Extensions))
	for i, e := range cfg.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[i] = e
	}
	cfg.Extensions = exts
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		Config:   cfg,
		Handler:  handler,
		logger:   logger.With("component", "watch"),
		fsw:      fsw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start watches the configured directories until ctx is cancelled. Pending
// files are dropped on shutdown; handlers already running are waited for.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()

	for _, dir := range w.Config.Directories {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}
		if w.Config.Recursive {
			err = w.addRecursive(abs)
		} else {
			err = w.fsw.Add(abs)
		}
		if err != nil {
			return fmt.Errorf("could not watch %s: %w", abs, err)
		}
	}
	w.logger.Info("watching", "directories", len(w.Config.Directories), "extensions", w.Config.Extensions)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.running.Wait()
			w.logger.Info("watcher stopped")
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if w.Config.Recursive && event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("could not watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.Matches(event.Name) {
		return
	}

	path, op := event.Name, event.Op.String()
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.Config.Debounce, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.debounce, path)
		w.running.Add(1)
		w.mu.Unlock()
		defer w.running.Done()
		w.process(ctx, path, op)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
}

func (w *Watcher) process(ctx context.Context, path, op string) {
	if ctx.Err() != nil {
		return
	}
	evt := Event{Time: time.Now(), Path: path, Operation: op, Status: "processed"}
	if w.Handler != nil {
		if err := w.Handler(ctx, path); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.logger.Warn("could not process file", "path", path, "error", err)
		} else {
			w.logger.Debug("processed file", "path", path)
		}
	}
	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// Matches reports whether path has a watched extension and matches the
// configured pattern. Office lock files are never matched.
func (w *Watcher) Matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return false
	}
	if !slices.Contains(w.Config.Extensions, strings.ToLower(filepath.Ext(base))) {
		return false
	}
	if w.Config.Pattern != "" {
		if ok, _ := filepath.Match(w.Config.Pattern, base); !ok {
			return false
		}
	}
	return true
}

// Events returns the handled files in order.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.events)
}
