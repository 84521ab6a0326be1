// Package storage persists JSON documents as files. Writes go through a temporary file that is
// renamed over the target so readers never observe a half written document, and every path has
// its own mutex so read-modify-write cycles on one file do not interleave.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/spf13/afero"
)

// ErrCorrupt is returned when a file exists but does not hold valid JSON.
var ErrCorrupt = errors.New("corrupt json document")

type Files struct {
	fs    afero.Fs
	locks cmap.ConcurrentMap
}

func New(fs afero.Fs) *Files {
	return &Files{
		fs:    fs,
		locks: cmap.New(),
	}
}

// NewOS returns a Files rooted at dir on the real filesystem.
func NewOS(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

func (f *Files) Fs() afero.Fs {
	return f.fs
}

func (f *Files) mutex(path string) *sync.Mutex {
	path = filepath.Clean(path)
	f.locks.SetIfAbsent(path, &sync.Mutex{})
	v, _ := f.locks.Get(path)
	return v.(*sync.Mutex)
}

// Locked runs fn while holding the lock of path.
func (f *Files) Locked(path string, fn func() error) error {
	mu := f.mutex(path)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Exists reports whether path is present.
func (f *Files) Exists(path string) (bool, error) {
	return afero.Exists(f.fs, path)
}

// Read decodes path into dest. It reports false without error when the file does not exist.
func (f *Files) Read(path string, dest interface{}) (bool, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// Write replaces path with the indented JSON encoding of v.
func (f *Files) Write(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(f.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		f.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		f.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := f.fs.Rename(tmpName, path); err != nil {
		f.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
