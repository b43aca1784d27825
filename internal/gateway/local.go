// internal/gateway/local.go
//
// File-backed fallback leaderboard. Entries are kept sorted (score desc,
// newest first on ties) and capped at MaxEntries; every Add rewrites the
// file through a temp file + rename.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// MaxEntries caps both the local board and remote reads.
const MaxEntries = 50

// LocalBoard is the fallback leaderboard: a JSON file holding at most
// MaxEntries entries, score desc then date desc. An empty path keeps the
// board in memory only.
type LocalBoard struct {
	path string

	mu      sync.Mutex
	entries []Entry
}

// OpenLocalBoard loads the board at path. A missing file is an empty board.
func OpenLocalBoard(path string) (*LocalBoard, error) {
	b := &LocalBoard{path: path}
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local board: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &b.entries); err != nil {
			return nil, fmt.Errorf("decode local board %s: %w", path, err)
		}
	}
	b.entries = capEntries(b.entries)
	return b, nil
}

// Add inserts e, re-sorts, trims to MaxEntries and writes the file.
func (b *LocalBoard) Add(e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = capEntries(append(b.entries, e))
	return b.flush()
}

// Entries returns a copy of the board.
func (b *LocalBoard) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.entries)
}

func (b *LocalBoard) flush() error {
	if b.path == "" {
		return nil
	}
	if dir := filepath.Dir(b.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(b.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write local board: %w", err)
	}
	return os.Rename(tmp, b.path)
}

// capEntries sorts by score desc, date desc and keeps the first MaxEntries.
func capEntries(in []Entry) []Entry {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Entry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return b.Date.Compare(a.Date)
	})
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	if out == nil {
		out = []Entry{}
	}
	return out
}
