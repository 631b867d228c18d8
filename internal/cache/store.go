// Package cache persists percent-indexed analysis snapshots for a book.
//
// Each book owns a sidecar directory holding a consolidated main cache
// file plus an analysis subdirectory of immutable "NN%.json" slots, one
// per reading-progress percentage reached during analysis. Slots are
// append-mostly: a new percentage creates a new file, the same
// percentage overwrites in place.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/inkbound/xray/internal/home"
	"github.com/inkbound/xray/internal/xray"
)

// MainFileName is the consolidated snapshot file at the sidecar root.
const MainFileName = "xray.json"

const percentSuffix = "%.json"

// snapshotSchema guards the nearest-entry search against slots whose
// content drifted from the snapshot shape (partial writes, foreign
// files dropped into the directory).
var snapshotSchema = jsonschema.MustCompileString("snapshot.json", `{
	"type": "object",
	"properties": {
		"format_version": {"type": "integer"},
		"book_title": {"type": "string"},
		"author": {"type": "string"},
		"author_bio": {"type": "string"},
		"summary": {"type": "string"},
		"characters": {"type": "array"},
		"locations": {"type": "array"},
		"themes": {"type": "array"},
		"timeline": {"type": "array"},
		"historical_figures": {"type": "array"},
		"analysis_progress": {"type": "number"}
	}
}`)

// Store manages the snapshot files for one book's sidecar directory.
type Store struct {
	dir    string // sidecar root, e.g. ".../Author - Title.epub.sdr"
	logger *slog.Logger
}

// New creates a store rooted at the given sidecar directory.
func New(dir string) *Store {
	return &Store{dir: dir, logger: slog.Default()}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Dir returns the sidecar root directory.
func (s *Store) Dir() string {
	return s.dir
}

// AnalysisDir returns the directory holding the percent slots.
func (s *Store) AnalysisDir() string {
	return filepath.Join(s.dir, home.AnalysisDirName)
}

// MainPath returns the path of the consolidated cache file.
func (s *Store) MainPath() string {
	return filepath.Join(s.dir, MainFileName)
}

func (s *Store) slotPath(percent int) string {
	return filepath.Join(s.AnalysisDir(), fmt.Sprintf("%d%s", percent, percentSuffix))
}

// Save writes a snapshot to the slot for the given percent, creating
// the directory on first use. The write is atomic via rename.
func (s *Store) Save(percent int, snap *xray.Snapshot) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("percent out of range: %d", percent)
	}
	if err := os.MkdirAll(s.AnalysisDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create analysis directory: %w", err)
	}
	return writeJSON(s.slotPath(percent), snap)
}

// Get loads the slot for the given percent. A missing slot returns
// (nil, nil).
func (s *Store) Get(percent int) (*xray.Snapshot, error) {
	data, err := os.ReadFile(s.slotPath(percent))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	var snap xray.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &snap, nil
}

// List returns the existing slot percents in ascending order.
func (s *Store) List() ([]int, error) {
	entries, err := os.ReadDir(s.AnalysisDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis directory: %w", err)
	}

	var percents []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p, ok := parseSlotName(e.Name())
		if !ok {
			continue
		}
		percents = append(percents, p)
	}
	sort.Ints(percents)
	return percents, nil
}

// NearestAtOrBelow scans slots descending from target and returns the
// first whose content is valid and non-empty. A safety-blocked chunk
// can legitimately persist an empty, structurally valid snapshot; such
// entries are not usable resume points and are skipped.
func (s *Store) NearestAtOrBelow(target int) (int, *xray.Snapshot, bool) {
	percents, err := s.List()
	if err != nil {
		s.logger.Warn("cache scan failed", "dir", s.AnalysisDir(), "error", err)
		return 0, nil, false
	}

	for i := len(percents) - 1; i >= 0; i-- {
		p := percents[i]
		if p > target {
			continue
		}
		snap, err := s.loadValid(p)
		if err != nil {
			s.logger.Debug("skipping unusable cache entry", "percent", p, "error", err)
			continue
		}
		return p, snap, true
	}
	return 0, nil, false
}

// loadValid loads a slot and rejects invalid or empty content.
func (s *Store) loadValid(percent int) (*xray.Snapshot, error) {
	data, err := os.ReadFile(s.slotPath(percent))
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	if err := snapshotSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}

	var snap xray.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	if snap.Empty() {
		return nil, errors.New("empty snapshot")
	}
	return &snap, nil
}

// SaveMain writes the consolidated cache file at the sidecar root.
func (s *Store) SaveMain(snap *xray.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return writeJSON(s.MainPath(), snap)
}

// LoadMain loads the consolidated cache file. A missing file or a
// format-version mismatch is a silent miss, returning (nil, nil).
func (s *Store) LoadMain() (*xray.Snapshot, error) {
	data, err := os.ReadFile(s.MainPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read main cache: %w", err)
	}
	var snap xray.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode main cache: %w", err)
	}
	if snap.FormatVersion != xray.FormatVersion {
		s.logger.Debug("main cache version mismatch",
			"have", snap.FormatVersion, "want", xray.FormatVersion)
		return nil, nil
	}
	return &snap, nil
}

// SeedZero copies the lowest percent slot to 0%.json so a reader at
// the very start of the book still has a snapshot. A no-op when no
// slots exist or 0% is already present.
func (s *Store) SeedZero() error {
	percents, err := s.List()
	if err != nil {
		return err
	}
	if len(percents) == 0 || percents[0] == 0 {
		return nil
	}
	data, err := os.ReadFile(s.slotPath(percents[0]))
	if err != nil {
		return fmt.Errorf("failed to read seed source: %w", err)
	}
	return writeBytes(s.slotPath(0), data)
}

// Clear removes all percent slots and the main cache file. Removal is
// best-effort per file; Clear fails only when entries existed and none
// could be removed.
func (s *Store) Clear() error {
	var existed, removed int

	percents, _ := s.List()
	for _, p := range percents {
		existed++
		if err := os.Remove(s.slotPath(p)); err == nil {
			removed++
		} else {
			s.logger.Warn("failed to remove cache entry", "percent", p, "error", err)
		}
	}
	if _, err := os.Stat(s.MainPath()); err == nil {
		existed++
		if err := os.Remove(s.MainPath()); err == nil {
			removed++
		} else {
			s.logger.Warn("failed to remove main cache", "error", err)
		}
	}

	if existed > 0 && removed == 0 {
		return errors.New("failed to remove any cache entries")
	}
	return nil
}

// parseSlotName extracts the percent from a "NN%.json" file name.
func parseSlotName(name string) (int, bool) {
	if !strings.HasSuffix(name, percentSuffix) {
		return 0, false
	}
	p, err := strconv.Atoi(strings.TrimSuffix(name, percentSuffix))
	if err != nil || p < 0 || p > 100 {
		return 0, false
	}
	return p, true
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return writeBytes(path, data)
}

// writeBytes writes through a temp file and renames, so a crash mid
// write never leaves a truncated slot behind.
func writeBytes(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize cache file: %w", err)
	}
	return nil
}
