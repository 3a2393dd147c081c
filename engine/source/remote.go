package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
)

type remoteSource struct {
	baseDir    string
	base       *url.URL
	client     *http.Client
	ownsClient bool
	headers    http.Header
	closed     atomic.Bool
}

var _ Source = &remoteSource{}

func newRemoteSource(baseDir string, cfg *sourceConfig) *remoteSource {
	s := &remoteSource{
		baseDir: baseDir,
		client:  cfg.client,
		headers: cfg.headers,
	}
	if s.client == nil {
		s.client = &http.Client{}
		s.ownsClient = true
	}
	// an unparsable base leaves references to be parsed as absolute URLs
	if u, err := url.Parse(baseDir); err == nil {
		s.base = u
	}
	return s
}

func (s *remoteSource) Type() SourceType {
	return SourceTypeRemote
}

func (s *remoteSource) BaseDir() string {
	return s.baseDir
}

func (s *remoteSource) Open(ctx context.Context, rel string) (io.ReadCloser, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	// malformed references are document faults, not transfer failures
	target, err := s.resolve(rel)
	if err != nil {
		return nil, fmt.Errorf("source: invalid reference %q: %w", rel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("source: invalid request for %q: %w", target, err)
	}
	for k, vs := range s.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", resp.Status),
		}
	}
	return resp.Body, nil
}

func (s *remoteSource) Read(ctx context.Context, rel string) ([]byte, error) {
	rc, err := s.Open(ctx, rel)
	if err != nil {
		return nil, err
	}
	data, err := readAll(rc)
	if err != nil {
		return nil, &FetchError{URL: rel, Err: err}
	}
	return data, nil
}

func (s *remoteSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.ownsClient {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *remoteSource) resolve(rel string) (string, error) {
	ref, err := url.Parse(rel)
	if err != nil {
		return "", err
	}
	if s.base == nil {
		return ref.String(), nil
	}
	return s.base.ResolveReference(ref).String(), nil
}
