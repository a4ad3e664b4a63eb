package duckdb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// FileFingerprint identifies an input file by absolute path and content.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
	// Digest is the hex xxh3 hash of the file bytes.
	Digest string
}

// StatFile creates a FileFingerprint from an on-disk file. Standard input
// ("-") has no size, modification time or digest.
func StatFile(path string) (FileFingerprint, error) {
	if path == "-" {
		return FileFingerprint{Path: path}, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FileFingerprint{}, err
	}
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return FileFingerprint{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Microsecond),
		Digest:  strconv.FormatUint(h.Sum64(), 16),
	}, nil
}

// Matches reports whether two fingerprints describe the same file with
// the same contents. Modification time is informational only. Standard
// input never matches.
func (f FileFingerprint) Matches(o FileFingerprint) bool {
	if f.Path == "-" || o.Path == "-" || f.Digest == "" {
		return false
	}
	return f.Path == o.Path && f.Size == o.Size && f.Digest == o.Digest
}
