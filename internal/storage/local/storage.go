package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
)

// Storage implements interfaces.FileStorage on a local directory tree
type Storage struct {
	root   string
	logger arbor.ILogger
}

// NewStorage creates a Storage rooted at dir
func NewStorage(dir string, logger arbor.ILogger) *Storage {
	return &Storage{
		root:   dir,
		logger: logger,
	}
}

// Root returns the base folder
func (s *Storage) Root() string {
	return s.root
}

func (s *Storage) path(parts ...string) string {
	return filepath.Join(append([]string{s.root}, parts...)...)
}

// List returns the file names under prefix; a missing folder lists as empty
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.path(prefix))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// FileExists reports whether prefix/name exists
func (s *Storage) FileExists(ctx context.Context, prefix, name string) (bool, error) {
	_, err := os.Stat(s.path(prefix, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s/%s: %w", prefix, name, err)
}

// ReadFile returns the content of prefix/name
func (s *Storage) ReadFile(ctx context.Context, prefix, name string) (string, error) {
	data, err := os.ReadFile(s.path(prefix, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s/%s: %w", prefix, name, interfaces.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s: %w", prefix, name, err)
	}
	return string(data), nil
}

// WriteFile creates or overwrites prefix/name, creating parent folders
func (s *Storage) WriteFile(ctx context.Context, prefix, name, content string) error {
	target := s.path(prefix, name)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", target, err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

// AppendToFile appends content followed by a newline
func (s *Storage) AppendToFile(ctx context.Context, prefix, name, content string) error {
	target := s.path(prefix, name)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", target, err)
	}

	file, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", target, err)
	}
	defer file.Close()

	if _, err := file.WriteString(content + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", target, err)
	}
	return nil
}

// DownloadObject copies root/key to localPath; a no-op when both are the same file
func (s *Storage) DownloadObject(ctx context.Context, key, localPath string) error {
	return s.copyFile(s.path(key), localPath)
}

// UploadObject copies localPath to root/key; a no-op when both are the same file
func (s *Storage) UploadObject(ctx context.Context, localPath, key string) error {
	return s.copyFile(localPath, s.path(key))
}

func (s *Storage) copyFile(src, dst string) error {
	srcAbs, _ := filepath.Abs(src)
	dstAbs, _ := filepath.Abs(dst)
	if srcAbs == dstAbs {
		return nil
	}

	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", src, interfaces.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create folder for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	s.logger.Debug().Str("src", src).Str("dst", dst).Msg("Copied file")
	return nil
}
