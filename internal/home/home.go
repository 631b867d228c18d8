package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the xray home directory.
	DefaultDirName = ".xray"

	// CacheDirName is the subdirectory holding per-book analysis caches.
	CacheDirName = "cache"

	// AnalysisDirName is the subdirectory inside a book's sdr folder that
	// holds the percent-indexed snapshot files.
	AnalysisDirName = "xray_analysis"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// CallLogFileName is the append-only provider call log.
	CallLogFileName = "calls.jsonl"
)

// unsafeChars are characters replaced when deriving directory names from
// book metadata.
var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", "\"", "_",
	"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
)

// Dir represents the xray home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.xray).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// CachePath returns the path to the cache directory.
func (d *Dir) CachePath() string {
	return filepath.Join(d.path, CacheDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CallLogPath returns the path to the provider call log.
func (d *Dir) CallLogPath() string {
	return filepath.Join(d.path, CallLogFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.CachePath(), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// SDRName derives the per-book cache folder name from book metadata,
// following the sidecar naming convention "Author - Title.epub.sdr".
func SDRName(title, author string) string {
	if title == "" {
		title = "Unknown"
	}
	if author == "" {
		author = "Unknown"
	}
	return fmt.Sprintf("%s - %s.epub.sdr",
		unsafeChars.Replace(author), unsafeChars.Replace(title))
}

// BookCacheDir returns the sdr directory for a book.
func (d *Dir) BookCacheDir(title, author string) string {
	return filepath.Join(d.CachePath(), SDRName(title, author))
}

// AnalysisDir returns the percent-indexed snapshot directory for a book.
func (d *Dir) AnalysisDir(title, author string) string {
	return filepath.Join(d.BookCacheDir(title, author), AnalysisDirName)
}

// EnsureAnalysisDir creates the snapshot directory for a book.
func (d *Dir) EnsureAnalysisDir(title, author string) error {
	return os.MkdirAll(d.AnalysisDir(title, author), 0o755)
}
