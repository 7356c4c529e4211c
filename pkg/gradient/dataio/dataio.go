// Package dataio is the file sink behind read_file and write_file.
//
// The format follows the file name: .csv, .json, .yaml/.yml, .db#table
// (an SQLite table) and plain text for anything else. A trailing .gz or .zst
// compresses the file. Values cross the package boundary as native Go data:
// int64, float64, string, bool, []any and [][]any.
package dataio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrFormat marks data that cannot be decoded, or values that the target
// format cannot hold.
var ErrFormat = errors.New("unsupported data")

// Format is a file format chosen from the file name.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatText   Format = "text"
	FormatSQLite Format = "sqlite"
)

// Compression is a stream compression chosen from the file name.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// Location is a parsed file name.
type Location struct {
	Path        string
	Table       string // SQLite only
	Format      Format
	Compression Compression
}

// Store reads and writes data files relative to a base directory.
type Store struct {
	BaseDir string
}

// NewStore creates a Store. An empty baseDir means the working directory.
func NewStore(baseDir string) *Store {
	if baseDir == "" {
		baseDir = "."
	}
	return &Store{BaseDir: baseDir}
}

// Locate resolves name against the base directory and works out its format.
func (s *Store) Locate(name string) (Location, error) {
	if strings.TrimSpace(name) == "" {
		return Location{}, fmt.Errorf("empty file name: %w", ErrFormat)
	}

	loc := Location{}
	path := name
	if i := strings.LastIndex(path, "#"); i >= 0 {
		loc.Table = path[i+1:]
		path = path[:i]
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.BaseDir, path)
	}
	loc.Path = path

	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".gz"):
		loc.Compression = CompressionGzip
		base = strings.TrimSuffix(base, ".gz")
	case strings.HasSuffix(base, ".zst"):
		loc.Compression = CompressionZstd
		base = strings.TrimSuffix(base, ".zst")
	}

	switch filepath.Ext(base) {
	case ".csv":
		loc.Format = FormatCSV
	case ".json":
		loc.Format = FormatJSON
	case ".yaml", ".yml":
		loc.Format = FormatYAML
	case ".db", ".sqlite", ".sqlite3":
		loc.Format = FormatSQLite
	default:
		loc.Format = FormatText
	}

	if loc.Format == FormatSQLite {
		if loc.Compression != CompressionNone {
			return Location{}, fmt.Errorf("%s: compressed databases are not supported: %w", name, ErrFormat)
		}
		if !validTableName(loc.Table) {
			return Location{}, fmt.Errorf("%s: want file.db#table with a plain table name: %w", name, ErrFormat)
		}
	} else if loc.Table != "" {
		return Location{}, fmt.Errorf("%s: only database files take a #table suffix: %w", name, ErrFormat)
	}
	return loc, nil
}

// Read loads a data file.
func (s *Store) Read(name string) (any, error) {
	loc, err := s.Locate(name)
	if err != nil {
		return nil, err
	}
	if loc.Format == FormatSQLite {
		return readTable(loc.Path, loc.Table)
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decompress(f, loc.Compression)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrFormat, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	value, err := decode(loc.Format, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return value, nil
}

// Write stores content, replacing the file or table.
func (s *Store) Write(name string, content any) error {
	loc, err := s.Locate(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(loc.Path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}
	if loc.Format == FormatSQLite {
		return writeTable(loc.Path, loc.Table, content)
	}

	data, err := encode(loc.Format, content)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	f, err := os.Create(loc.Path)
	if err != nil {
		return err
	}
	w, err := compress(f, loc.Compression)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return f.Close()
}

func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
