package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dario.cat/mergo"
	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

// defaultsFile holds substitution data shared by every definition in the
// directory. Schedule-token data is merged over it, schedule winning.
const defaultsFile = "_defaults.yaml"

// Definitions is the Scheduler's store of workflow templates: a directory
// of *.yaml Go-template files, hot-reloaded on change so operators can
// edit a workflow definition without restarting the scheduler.
type Definitions struct {
	dir    string
	logger logr.Logger

	mu        sync.RWMutex
	templates map[string][]byte
	defaults  map[string]any
}

// LoadDefinitions reads every *.yaml template under dir.
func LoadDefinitions(dir string, logger logr.Logger) (*Definitions, error) {
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	d := &Definitions{dir: dir, logger: logger}
	if err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Definitions) reload() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("scheduler: read definitions dir: %w", err)
	}

	templates := map[string][]byte{}
	defaults := map[string]any{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(d.dir, name))
		if err != nil {
			return fmt.Errorf("scheduler: read definition %s: %w", name, err)
		}
		if name == defaultsFile {
			if err := yaml.Unmarshal(b, &defaults); err != nil {
				return fmt.Errorf("scheduler: parse %s: %w", defaultsFile, err)
			}
			continue
		}
		templates[strings.TrimSuffix(name, ".yaml")] = b
	}

	d.mu.Lock()
	d.templates = templates
	d.defaults = defaults
	d.mu.Unlock()
	d.logger.V(1).Info("loaded workflow definitions", "dir", d.dir, "count", len(templates))
	return nil
}

// Get returns the raw template bytes for one definition.
func (d *Definitions) Get(name string) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.templates[name]
	return b, ok
}

// MergedData returns data merged over the directory's shared defaults;
// keys present in data win.
func (d *Definitions) MergedData(data map[string]any) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	merged := map[string]any{}
	for k, v := range data {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, d.defaults); err != nil {
		return nil, fmt.Errorf("scheduler: merge definition defaults: %w", err)
	}
	return merged, nil
}

// Watch reloads the store whenever the directory changes, until ctx is
// cancelled. Errors reloading keep the previous definitions in place.
func (d *Definitions) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scheduler: watch definitions: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(d.dir); err != nil {
		return fmt.Errorf("scheduler: watch %s: %w", d.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			if err := d.reload(); err != nil {
				d.logger.Error(err, "reloading workflow definitions; keeping previous set")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Error(err, "definitions watcher error")
		}
	}
}
