package source

import (
	"errors"
	"fmt"
)

// ErrSourceClosed is returned by Open and Read after Close.
var ErrSourceClosed = errors.New("source: closed")

// FetchError is a network-origin failure of the remote source: a transport error or a non-2xx
// response. It is the only error class retried under the standard retry policy.
type FetchError struct {
	// URL is the address that was requested.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying transport error, if any.
	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ResourceError is a failure of local file I/O.
type ResourceError struct {
	// Path is the file that could not be read.
	Path string

	// Err is the underlying I/O error.
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
