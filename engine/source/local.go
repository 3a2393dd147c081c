package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
)

type localSource struct {
	baseDir  string
	filename string
	closed   atomic.Bool
}

var _ Source = &localSource{}

func newLocalSource(baseDir, filename string) *localSource {
	return &localSource{baseDir: baseDir, filename: filename}
}

func (s *localSource) Type() SourceType {
	return SourceTypeLocal
}

func (s *localSource) BaseDir() string {
	return s.baseDir
}

func (s *localSource) Open(ctx context.Context, rel string) (io.ReadCloser, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := s.resolve(rel)
	f, err := os.Open(p)
	if err != nil {
		return nil, &ResourceError{Path: p, Err: err}
	}
	return f, nil
}

func (s *localSource) Read(ctx context.Context, rel string) ([]byte, error) {
	rc, err := s.Open(ctx, rel)
	if err != nil {
		return nil, err
	}
	data, err := readAll(rc)
	if err != nil {
		return nil, &ResourceError{Path: s.resolve(rel), Err: err}
	}
	return data, nil
}

func (s *localSource) Close() error {
	s.closed.Store(true)
	return nil
}

// resolve maps a document reference to a file path. References are percent-encoded in glTF;
// a reference that fails to unescape is used verbatim. The document's own filename is a plain
// file name and is never unescaped.
func (s *localSource) resolve(rel string) string {
	if rel != s.filename {
		if unescaped, err := url.PathUnescape(rel); err == nil {
			rel = unescaped
		}
	}
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.baseDir, rel)
}
