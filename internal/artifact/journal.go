package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Entry is the archived-blob metadata recorded per artifact key.
// Field names match the manifest wire format.
type Entry struct {
	BlobID   string `json:"blob_id"`
	EndEpoch int64  `json:"endEpoch"`
}

// Journal is the single writer of the manifest file: an append-only
// JSON mapping from artifact key to its remote storage metadata. All
// mutation is serialized through one mutex so concurrent turns cannot
// lose each other's entries.
type Journal struct {
	mu   sync.Mutex
	path string
}

// NewJournal creates a Journal over the manifest file at path. The
// file itself is created lazily on first Record.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Record inserts the entry under key. Existing keys are left untouched:
// artifact keys are unique by construction, and a duplicate insert is
// rejected rather than overwritten.
func (j *Journal) Record(key string, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	manifest, err := j.load()
	if err != nil {
		return err
	}
	if _, exists := manifest[key]; exists {
		return fmt.Errorf("manifest key %q already recorded", key)
	}
	manifest[key] = e

	return j.write(manifest)
}

// Snapshot returns a copy of the current manifest contents.
func (j *Journal) Snapshot() (map[string]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

// load parses the manifest file. A missing file is not an error; it
// yields an empty manifest.
func (j *Journal) load() (map[string]Entry, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Entry), nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	manifest := make(map[string]Entry)
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest, nil
}

// write replaces the manifest file atomically via a temp file rename,
// so readers never observe a partially written manifest.
func (j *Journal) write(manifest map[string]Entry) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "manifest-*.json")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, j.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}
