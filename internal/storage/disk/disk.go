// Package disk stores blobs as files under a root directory and serves them
// over HTTP at {publicURL}/storage/{key}.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid blob key")

type Store struct {
	root      string
	publicURL string
}

// New creates root when missing. publicURL is the externally reachable base
// of the API, e.g. http://localhost:8081.
func New(root, publicURL string) (*Store, error) {
	root = filepath.Clean(strings.TrimSpace(root))
	if root == "" || root == "." {
		return nil, fmt.Errorf("disk store root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create disk store root %s: %w", root, err)
	}
	return &Store{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Put writes r to a temp file next to the target, fsyncs it and renames it
// into place, so readers never observe a partial file.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), filepath.Base(full)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()

	writeErr := func() error {
		if _, err := io.Copy(tmp, r); err != nil {
			return err
		}
		if err := tmp.Sync(); err != nil {
			return err
		}
		return tmp.Close()
	}()
	if writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write blob %s: %w", key, writeErr)
	}

	if err := os.Rename(tmpPath, full); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalize blob %s: %w", key, err)
	}
	return key, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}
}

// Delete removes the file and prunes the now empty media/{id} directory.
func (s *Store) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	if dir := filepath.Dir(full); dir != s.root {
		_ = os.Remove(dir) // fails while not empty
	}
	return nil
}

func (s *Store) URL(key string) string {
	if key == "" {
		return ""
	}
	u := url.URL{Path: path.Join("/storage", key)}
	return s.publicURL + u.EscapedPath()
}

func (s *Store) Root() string {
	return s.root
}

// Handler serves blobs by key; mount it with the /storage prefix stripped.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		full, err := s.resolve(strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, full)
	})
}

// resolve maps a key to a path inside root and rejects anything that would
// escape it.
func (s *Store) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return full, nil
}
