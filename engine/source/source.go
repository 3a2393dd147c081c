package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// SourceType selects the data-access variant of a Source.
type SourceType int

const (
	// SourceTypeLocal reads from the local file system.
	SourceTypeLocal SourceType = iota

	// SourceTypeRemote fetches over HTTP.
	SourceTypeRemote
)

func (t SourceType) String() string {
	switch t {
	case SourceTypeLocal:
		return "local"
	case SourceTypeRemote:
		return "remote"
	default:
		return fmt.Sprintf("SourceType(%d)", int(t))
	}
}

// Source supplies the bytes of a scene document and of the sibling resources it references
// (buffers, textures). Relative paths are resolved against BaseDir.
//
// A Source is owned by a single load attempt and closed exactly once when the attempt ends.
type Source interface {
	// Type returns the variant of this source.
	//
	// Returns:
	//   - SourceType: SourceTypeLocal or SourceTypeRemote
	Type() SourceType

	// BaseDir returns the directory (or base URL) relative paths are resolved against.
	//
	// Returns:
	//   - string: the base directory
	BaseDir() string

	// Open opens a resource relative to BaseDir. The caller must close the returned reader.
	//
	// Parameters:
	//   - ctx: bounds the request for remote sources
	//   - rel: the percent-encoded relative reference, as written in the document
	//
	// Returns:
	//   - io.ReadCloser: the resource contents
	//   - error: *ResourceError (local), *FetchError (remote) or ErrSourceClosed
	Open(ctx context.Context, rel string) (io.ReadCloser, error)

	// Read reads a whole resource relative to BaseDir.
	//
	// Parameters:
	//   - ctx: bounds the request for remote sources
	//   - rel: the percent-encoded relative reference, as written in the document
	//
	// Returns:
	//   - []byte: the resource contents
	//   - error: *ResourceError (local), *FetchError (remote) or ErrSourceClosed
	Read(ctx context.Context, rel string) ([]byte, error)

	// Close releases the source. Further Open and Read calls fail with ErrSourceClosed.
	// Calling Close more than once is a no-op.
	//
	// Returns:
	//   - error: always nil for the built-in variants
	Close() error
}

// New creates the Source variant matching loc.Type.
//
// Parameters:
//   - loc: the resolved document location
//   - options: variadic list of SourceBuilderOption functions; HTTP options only affect remote sources
//
// Returns:
//   - Source: the new source
func New(loc Location, options ...SourceBuilderOption) Source {
	cfg := &sourceConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	switch loc.Type {
	case SourceTypeRemote:
		return newRemoteSource(loc.BaseDir, cfg)
	default:
		return newLocalSource(loc.BaseDir, loc.Filename)
	}
}

// sourceConfig collects the options shared by both variants.
type sourceConfig struct {
	client  *http.Client
	headers http.Header
}

// readAll reads and closes rc.
func readAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
