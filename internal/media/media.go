// Package media stores report photos on local disk and serves them back.
//
// Files are named <xid>.jpg inside the media directory. Reports refer to them
// by their public path, /media/<xid>.jpg, which the HTTP server maps back onto
// the directory.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/trashwatch/internal/imaging"
)

// URLPrefix is where stored photos are served from.
const URLPrefix = "/media/"

// Store writes processed photos into a directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed and returns a Store rooted at it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory photos are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save normalises the photo read from src and writes it under a fresh name.
// It returns the public path of the stored file.
//
// The file is written to a temporary name first and renamed into place, so a
// half-written photo is never served.
func (s *Store) Save(ctx context.Context, src io.Reader) (string, error) {
	data, err := imaging.Process(src)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := xid.New().String() + ".jpg"
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("media: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("media: writing photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("media: closing photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("media: storing photo: %w", err)
	}

	return URLPrefix + name, nil
}

// Handler serves stored photos under URLPrefix. Directory listings are refused.
func (s *Store) Handler() http.Handler {
	files := http.StripPrefix(URLPrefix, http.FileServer(http.Dir(s.dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, URLPrefix)
		if name == "" || filepath.Ext(name) != ".jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
