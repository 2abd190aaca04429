package source

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the dataset from a local file
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Location returns the file:// URL
func (s *FileSource) Location() string {
	return "file://" + s.path
}

// Fetch reads the file
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", s.path, err)
	}
	return body, nil
}
