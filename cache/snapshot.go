package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SnapshotVersion is written to every snapshot file.
const SnapshotVersion = "1"

// Snapshot is the on-disk form of a memory cache.
type Snapshot struct {
	Version string          `json:"version"`
	SavedAt string          `json:"saved_at"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is one cached translation.
type SnapshotEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WriteSnapshot encodes the live entries of c as JSON, sorted by key.
func WriteSnapshot(w io.Writer, c *InMemoryCache) error {
	data := c.Entries()
	entries := make([]SnapshotEntry, 0, len(data))
	for key, value := range data {
		entries = append(entries, SnapshotEntry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	snap := Snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Entries: entries,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads snapshot entries into c and returns how many were set.
func ReadSnapshot(r io.Reader, c TranslationCache) (int, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return 0, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return 0, fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}

	n := 0
	for _, entry := range snap.Entries {
		if entry.Key == "" {
			continue
		}
		if err := c.Set(entry.Key, entry.Value); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// LoadSnapshot reads path into c. A missing file is an empty snapshot.
func LoadSnapshot(path string, c TranslationCache) (int, error) {
	f, err := os.Open(path) // #nosec G304 - path is user configuration
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("opening cache file: %w", err)
	}
	defer f.Close()

	return ReadSnapshot(f, c)
}

// SaveSnapshot writes c to path through a temporary file in the same
// directory, so a crash never leaves a truncated snapshot behind.
func SaveSnapshot(path string, c *InMemoryCache) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pagetran-cache-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteSnapshot(tmp, c); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
