package featurekit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileSource loads a toggle document from disk, optionally reloading it when the file changes.
// Files ending in .yaml or .yml are converted to JSON first.
type FileSource struct {
	loader   Loader
	path     string
	debounce time.Duration
	log      *slog.Logger
}

type FileSourceOption func(f *FileSource)

func WithFileLogger(logger *slog.Logger) FileSourceOption {
	return func(f *FileSource) {
		f.log = logger
	}
}

// WithFileDebounce sets how long the file must stay quiet before a change is reloaded.
func WithFileDebounce(d time.Duration) FileSourceOption {
	return func(f *FileSource) {
		f.debounce = d
	}
}

func NewFileSource(loader Loader, path string, options ...FileSourceOption) *FileSource {
	f := &FileSource{
		loader:   loader,
		path:     filepath.Clean(path),
		debounce: DefaultFileDebounce,
		log:      slog.Default(),
	}
	for _, opt := range options {
		opt(f)
	}
	f.log = f.log.With(slog.String("worker", "file"), slog.String("path", f.path))
	return f
}

// Load reads the file and hands it to the loader.
func (f *FileSource) Load() error {
	data, err := ReadDocumentFile(f.path)
	if err != nil {
		return err
	}
	return f.loader.Load(data)
}

// Watch reloads the file on every change until ctx is done. The parent directory is watched so
// editors that replace the file atomically are picked up.
func (f *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(f.debounce, func() {
				if err := f.Load(); err != nil {
					f.log.Error("failed to reload toggle document", "error", err)
					return
				}
				f.log.Info("toggle document reloaded")
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Warn("file watcher error", "error", err)
		}
	}
}

// ReadDocumentFile reads a toggle document, converting YAML to JSON by file extension.
func ReadDocumentFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	}
	return data, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return out, nil
}
