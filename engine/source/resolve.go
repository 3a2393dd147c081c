package source

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultAssetRoot is the asset root used when none is configured.
const DefaultAssetRoot = "./assets"

// separators are the path separator characters stripped from the front of a local URI.
const separators = `/\`

// Location is the resolved address of a scene document.
type Location struct {
	// FullPath is the resolved document path (local) or URL (remote).
	FullPath string

	// BaseDir is the directory sibling resources are resolved against. For remote locations it
	// is a URL ending in "/".
	BaseDir string

	// Filename is the document name passed to the importer.
	Filename string

	// Type is the source variant the location belongs to.
	Type SourceType
}

// ResolveOptions controls how Resolve interprets a URI.
type ResolveOptions struct {
	// Local selects the local-file variant instead of the remote-fetch variant.
	Local bool

	// AppendAssetRoot prefixes local URIs with AssetRoot.
	AppendAssetRoot bool

	// AssetRoot is the platform asset directory. Defaults to DefaultAssetRoot.
	AssetRoot string
}

// Resolve computes the Location of a scene document.
//
// For local URIs with AppendAssetRoot set, leading separators are stripped before joining so
// the URI never replaces the asset root. The filename is the URI's last path segment.
// Remote URIs must be absolute http or https URLs; the filename is the last segment of the
// escaped path, ignoring any query or fragment, so it resolves back to the same URL.
//
// Parameters:
//   - uri: the document location
//   - opts: the resolution options
//
// Returns:
//   - Location: the resolved location
//   - error: error if the URI is empty or is not a valid remote URL
func Resolve(uri string, opts ResolveOptions) (Location, error) {
	if strings.TrimSpace(uri) == "" {
		return Location{}, errors.New("source: empty uri")
	}
	if opts.Local {
		return resolveLocal(uri, opts), nil
	}
	return resolveRemote(uri)
}

func resolveLocal(uri string, opts ResolveOptions) Location {
	fullPath := uri
	if opts.AppendAssetRoot {
		root := opts.AssetRoot
		if root == "" {
			root = DefaultAssetRoot
		}
		fullPath = filepath.Join(root, strings.TrimLeft(uri, separators))
	}
	return Location{
		FullPath: fullPath,
		BaseDir:  filepath.Dir(fullPath),
		Filename: lastSegment(uri),
		Type:     SourceTypeLocal,
	}
}

func resolveRemote(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("source: invalid remote uri %q: %w", uri, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Location{}, fmt.Errorf("source: remote uri %q must use http or https", uri)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("source: remote uri %q has no host", uri)
	}

	// the filename is later resolved as a reference against BaseDir, so both stay escaped
	escaped := u.EscapedPath()

	base := *u
	base.RawQuery = ""
	base.Fragment = ""
	base.RawFragment = ""
	dir := path.Dir(escaped)
	if dir == "." || dir == "" {
		dir = "/"
	}
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	base.RawPath = dir
	if base.Path, err = url.PathUnescape(dir); err != nil {
		return Location{}, fmt.Errorf("source: invalid remote uri %q: %w", uri, err)
	}

	filename := path.Base(escaped)
	if filename == "/" || filename == "." {
		filename = ""
	}

	return Location{
		FullPath: u.String(),
		BaseDir:  base.String(),
		Filename: filename,
		Type:     SourceTypeRemote,
	}, nil
}

// lastSegment returns the part of p after the last separator of either kind.
func lastSegment(p string) string {
	if i := strings.LastIndexAny(p, separators); i >= 0 {
		return p[i+1:]
	}
	return p
}
