package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrFileTooLarge is returned by CopyFile when the source exceeds the configured limit.
var ErrFileTooLarge = errors.New("file size exceeds limit")

// FileStorage provides methods to manage files in a specific directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a new FileStorage instance with the given directory.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Path returns the full path of filename inside the storage directory.
func (s *FileStorage) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// EnsureDir creates the storage directory including parents.
func (s *FileStorage) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", s.dir, err)
	}
	return nil
}

// CreateFile creates a new file with the given filename in the storage directory.
func (s *FileStorage) CreateFile(filename string) (*os.File, error) {
	return os.Create(s.Path(filename))
}

// FileExists checks whether a file exists in the storage directory.
func (s *FileStorage) FileExists(filename string) bool {
	_, err := os.Stat(s.Path(filename))
	return err == nil
}

// GetFileSize returns the size of the file in bytes.
func (s *FileStorage) GetFileSize(filename string) (int64, error) {
	info, err := os.Stat(s.Path(filename))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes filename, ignoring files that do not exist.
func (s *FileStorage) Remove(filename string) error {
	if err := os.Remove(s.Path(filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CopyFile copies data from the provided reader to a file with the specified filename.
// A positive limit caps the number of bytes accepted; exceeding it removes the file and
// returns ErrFileTooLarge. Partially written files are removed on any error.
func (s *FileStorage) CopyFile(src io.Reader, dstFilename string, limit int64) (int64, error) {
	dst, err := s.CreateFile(dstFilename)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	reader := src
	var limited *io.LimitedReader
	if limit > 0 {
		limited = &io.LimitedReader{R: src, N: limit + 1}
		reader = limited
	}

	n, copyErr := io.Copy(dst, reader)
	closeErr := dst.Close()

	switch {
	case copyErr != nil:
		_ = s.Remove(dstFilename)
		return n, fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		_ = s.Remove(dstFilename)
		return n, fmt.Errorf("close file: %w", closeErr)
	case limited != nil && n > limit:
		_ = s.Remove(dstFilename)
		return n, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, limit)
	}

	return n, nil
}
