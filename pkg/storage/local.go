package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Local is the filesystem driver.
type Local struct {
	root    string
	baseURL string
}

// NewLocal stores files under root; a relative root is resolved against the
// working directory.
func NewLocal(root, baseURL string) (*Local, error) {
	if root == "" {
		root = "storage"
	}
	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("storage/local: getwd: %w", err)
		}
		root = filepath.Join(cwd, root)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *Local) abs(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("storage/local: empty key")
	}
	return filepath.Join(d.root, clean), nil
}

func (d *Local) Put(_ context.Context, key string, content []byte, _ string) (string, error) {
	full, err := d.abs(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage/local: mkdir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("storage/local: write %s: %w", key, err)
	}
	return d.URL(key), nil
}

func (d *Local) Exists(_ context.Context, key string) (bool, error) {
	full, err := d.abs(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage/local: stat %s: %w", key, err)
	}
	return true, nil
}

func (d *Local) Delete(_ context.Context, key string) error {
	full, err := d.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage/local: delete %s: %w", key, err)
	}
	return nil
}

func (d *Local) URL(key string) string {
	return d.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(key), "/")
}

// Handler serves the stored files read-only, for mounting under /storage/.
func (d *Local) Handler() http.Handler {
	return http.FileServer(http.Dir(d.root))
}
