package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"reviewetl/internal/datasource"
)

// Store is a datasource.Store over HTTP. HTTP has no listing, so a location
// is always exactly one object.
type Store struct {
	client  *Client
	headers http.Header
}

var _ datasource.Store = (*Store)(nil)

// NewStore returns a Store that sends headers with every request.
func NewStore(client *Client, headers http.Header) *Store {
	return &Store{client: client, headers: headers}
}

// List validates location as an absolute http(s) URL and returns it.
func (s *Store) List(_ context.Context, location string) ([]string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("httpds: parse %q: %w", location, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpds: %q is not an http(s) url", location)
	}
	return []string{location}, nil
}

// Open fetches name. Any final status outside 2xx is an error.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, name, s.headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: GET %s: status %d", name, resp.StatusCode)
	}
	return resp.Body, nil
}
