package source

import (
	"net/http"
)

// SourceBuilderOption is a functional option for configuring a Source via New.
type SourceBuilderOption func(*sourceConfig)

// WithHTTPClient sets the client remote sources fetch with. The source does not close idle
// connections of a client it was given.
//
// Parameters:
//   - client: the HTTP client
//
// Returns:
//   - SourceBuilderOption: a function that applies the client option
func WithHTTPClient(client *http.Client) SourceBuilderOption {
	return func(c *sourceConfig) {
		c.client = client
	}
}

// WithHeader adds a request header to every remote fetch.
//
// Parameters:
//   - key: the header name
//   - value: the header value
//
// Returns:
//   - SourceBuilderOption: a function that applies the header option
func WithHeader(key, value string) SourceBuilderOption {
	return func(c *sourceConfig) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Add(key, value)
	}
}
