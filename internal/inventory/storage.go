package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage defines the interface for item image storage
type Storage interface {
	// Save stores image bytes under a fresh unique filename and returns
	// the filename. ext is the extension including the dot, e.g. ".jpg".
	Save(data []byte, ext string) (string, error)

	// Get retrieves image bytes by filename
	Get(filename string) ([]byte, error)

	// Delete removes a stored image
	Delete(filename string) error
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save writes the image under a UUID-based filename
func (l *LocalStorage) Save(data []byte, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	filename := uuid.NewString() + ext
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}
	return filename, nil
}

// Get retrieves an image from local storage
func (l *LocalStorage) Get(filename string) ([]byte, error) {
	path := filepath.Join(l.basePath, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return data, nil
}

// Delete removes an image from local storage
func (l *LocalStorage) Delete(filename string) error {
	path := filepath.Join(l.basePath, filename)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting image file: %w", err)
	}
	return nil
}
