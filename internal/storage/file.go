// Package storage persists planner snapshots as JSON files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hray3182/planbot/internal/models"
)

// ErrCorrupt is returned by a load whose file could not be decoded. The bad
// file has already been moved aside when it is returned.
var ErrCorrupt = errors.New("storage: corrupt snapshot")

const (
	plansFile     = "plans.json"
	timezonesFile = "timezones.json"
)

// File keeps one JSON document per collection inside a directory.
type File struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFile returns a File rooted at dir, creating the directory if missing.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &File{dir: dir, now: time.Now}, nil
}

// LoadPlans reads plans.json. A missing file yields no plans.
func (f *File) LoadPlans(_ context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := f.load(plansFile, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// SavePlans replaces plans.json with plans.
func (f *File) SavePlans(_ context.Context, plans []*models.Plan) error {
	if plans == nil {
		plans = []*models.Plan{}
	}
	return f.save(plansFile, plans)
}

// LoadTimezones reads timezones.json. A missing file yields an empty map.
func (f *File) LoadTimezones(_ context.Context) (map[int64]string, error) {
	zones := map[int64]string{}
	if err := f.load(timezonesFile, &zones); err != nil {
		return nil, err
	}
	if zones == nil {
		zones = map[int64]string{}
	}
	return zones, nil
}

// SaveTimezones replaces timezones.json with zones.
func (f *File) SaveTimezones(_ context.Context, zones map[int64]string) error {
	return f.save(timezonesFile, zones)
}

func (f *File) load(name string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		backup := fmt.Sprintf("%s.corrupt-%s", path, f.now().Format("20060102-150405"))
		if rerr := os.Rename(path, backup); rerr != nil {
			return fmt.Errorf("%w: %s: %v (backup failed: %v)", ErrCorrupt, name, err, rerr)
		}
		slog.Warn("corrupt snapshot moved aside", "component", "storage", "file", name, "backup", backup, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

// save writes to a temp file and renames it over the target so a crash
// mid-write never leaves a truncated document behind.
func (f *File) save(name string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
