// Package storage keeps uploaded files and maps them to public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned for keys with no stored file.
var ErrNotExist = fs.ErrNotExist

// FileStore stores blobs under slash-separated keys such as "avatars/a.png".
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (size int64, err error)
	// KeyFor maps a URL produced by Put back to its key.
	KeyFor(url string) (string, bool)
}

// Local is a FileStore on the local disk.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates root if needed. URLs are baseURL + "/" + key.
func NewLocal(root, baseURL string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written under.
func (l *Local) Root() string { return l.root }

func (l *Local) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, `\`) || clean != "/"+key {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean[1:])), nil
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return l.baseURL + "/" + key, nil
}

// Delete removes key. A missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) Stat(_ context.Context, key string) (int64, error) {
	p, err := l.path(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) KeyFor(url string) (string, bool) {
	prefix := l.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if _, err := l.path(key); err != nil {
		return "", false
	}
	return key, true
}
