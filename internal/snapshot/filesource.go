package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goconfigship/internal/template"
)

// FileSource loads a template from a JSON file and keeps applying it on
// change, for development setups where templates are edited on disk.
// Malformed or invalid edits are logged and skipped, leaving the previously
// applied template in place.
type FileSource struct {
	path  string
	apply func(*template.Template) error
	log   zerolog.Logger
}

// NewFileSource creates a file source. apply receives every successfully
// parsed and validated template, initial load included.
func NewFileSource(path string, apply func(*template.Template) error, log zerolog.Logger) *FileSource {
	return &FileSource{path: path, apply: apply, log: log}
}

// Load reads, validates and applies the file once.
func (f *FileSource) Load() error {
	tpl, err := f.read()
	if err != nil {
		return err
	}
	return f.apply(tpl)
}

func (f *FileSource) read() (*template.Template, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}
	tpl, err := template.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse template file %s: %w", f.path, err)
	}
	if result := template.Validate(tpl); !result.Valid {
		return nil, fmt.Errorf("template file %s failed validation: %v", f.path, result.Errors)
	}
	return tpl, nil
}

// Watch blocks until ctx is cancelled, re-applying the file whenever it
// changes. The parent directory is watched rather than the file itself so
// editor rename-and-replace saves are picked up.
func (f *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(f.path)
	if err != nil {
		return fmt.Errorf("resolve template path: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, _ := filepath.Abs(event.Name)
			if name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := f.Load(); err != nil {
				f.log.Warn().Err(err).Str("path", f.path).Msg("template file change rejected; keeping previous template")
				continue
			}
			f.log.Info().Str("path", f.path).Msg("template file reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.log.Error().Err(err).Msg("template file watcher error")
		}
	}
}
