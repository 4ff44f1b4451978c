package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a flat YAML mapping of setting keys to scalar values.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: %s must be a scalar", ErrInvalidValue, k)
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

// Watch applies path to the store, then reapplies it whenever the file is
// written or replaced, until ctx ends. A missing file is not an error.
func (s *Store) Watch(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if err := s.reload(ctx, path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	s.log.Info().Str("path", path).Msg("watching settings file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.reload(ctx, path); err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("settings file rejected")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Error().Err(err).Msg("settings watcher error")
		}
	}
}

func (s *Store) reload(ctx context.Context, path string) error {
	values, err := LoadFile(path)
	if err != nil {
		return err
	}
	return s.Apply(ctx, values)
}
