package choiceplugin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher looks up options matching a search term.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint, term string) ([]Option, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, endpoint, term string) ([]Option, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, endpoint, term string) ([]Option, error) {
	return f(ctx, endpoint, term)
}

// HTTPFetcher queries endpoint?q=term and decodes a JSON array of options or
// of plain strings.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Second}}
}

// Fetch performs the lookup. Cancelling ctx aborts the request.
func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint, term string) ([]Option, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup url: %w", err)
	}
	q := u.Query()
	q.Set("q", term)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup failed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return decodeOptions(body)
}

func decodeOptions(body []byte) ([]Option, error) {
	var opts []Option
	if err := json.Unmarshal(body, &opts); err == nil {
		return opts, nil
	}
	var values []string
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}
	opts = make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Value: v, Label: v}
	}
	return opts, nil
}
