// Package storage maps uploaded binary content to deterministic locations
// on the local filesystem and streams it back out. The directory layout
// mirrors the logical organization of the archive so the disk can be
// browsed directly: exams/<year>/<semester>/<course-code>/ and
// cheatsheets/.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/IMSA-2025/portal-service/internal/models"
)

// ErrNotFound is returned when a stored file is missing.
var ErrNotFound = errors.New("file not found")

// FileInfo describes a stored file.
type FileInfo struct {
	Path string
	Size int64
}

// FileStore abstracts file placement so services can be tested against a
// temp-dir instance. Implementations must be safe for concurrent use.
type FileStore interface {
	// ExamDir derives the directory exam uploads are placed in.
	ExamDir(year int, semester models.Semester, courseCode string) string

	// CheatSheetDir derives the directory cheat-sheet uploads are placed in.
	CheatSheetDir() string

	// Store writes content to dir/name, creating dir if needed. The write
	// goes through the temp area and is renamed into place, so a partial
	// write never appears at the final path.
	Store(ctx context.Context, dir, name string, content io.Reader) (*FileInfo, error)

	// Open returns a reader for the file at path. The caller closes it.
	Open(ctx context.Context, path string) (io.ReadCloser, *FileInfo, error)

	// Delete removes the file at path. Missing files return ErrNotFound.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a readable file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// SweepTemp deletes temp-area files older than the retention window.
	// It returns the number of files removed.
	SweepTemp(ctx context.Context, olderThan time.Duration) (int, error)
}

// LocalStore is the filesystem-backed FileStore rooted at a base directory.
type LocalStore struct {
	root    string
	tempDir string
}

func NewLocalStore(root, tempDir string) (*LocalStore, error) {
	for _, dir := range []string{root, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &LocalStore{root: root, tempDir: tempDir}, nil
}

// ExamDir derives the storage directory for an exam upload.
func (s *LocalStore) ExamDir(year int, semester models.Semester, courseCode string) string {
	return filepath.Join(s.root, "exams",
		fmt.Sprintf("%d", year),
		string(semester),
		SanitizeFilename(strings.ToUpper(courseCode)))
}

// CheatSheetDir derives the storage directory for a cheat-sheet upload.
func (s *LocalStore) CheatSheetDir() string {
	return filepath.Join(s.root, "cheatsheets")
}

func (s *LocalStore) Store(ctx context.Context, dir, name string, content io.Reader) (*FileInfo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(s.tempDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	final := filepath.Join(dir, name)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("place upload: %w", err)
	}

	return &FileInfo{Path: final, Size: size}, nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, *FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return f, &FileInfo{Path: path, Size: stat.Size()}, nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStore) SweepTemp(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0, fmt.Errorf("read temp dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.tempDir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// SanitizeFilename strips characters outside letters, digits, underscore,
// hyphen and dot, preserving non-ASCII letters, to prevent path traversal
// and filesystem incompatibilities. Path separators never survive.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "file"
	}
	return out
}

// AllocateName builds a collision-resistant stored filename from the
// sanitized original: two uploads with identical user-supplied names never
// overwrite each other.
func AllocateName(originalName string) string {
	safe := SanitizeFilename(originalName)
	ext := filepath.Ext(safe)
	base := strings.TrimSuffix(safe, ext)
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s%s", base, suffix, ext)
}
