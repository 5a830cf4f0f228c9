// Package musiclookup resolves music-platform track URLs into direct
// download links via an external lookup API whose response shape is only
// loosely structured.
package musiclookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/arjunmehra/streamfetch/pkg/retry"
	"github.com/arjunmehra/streamfetch/pkg/telemetry"
)

const defaultTitle = "Spotify Track"

// Client calls the lookup endpoint: GET <endpoint>?url=<trackURL>.
type Client struct {
	endpoint string
	http     *http.Client
	cache    *Cache
}

// NewClient creates a lookup client with a shared response cache.
func NewClient(endpoint string, cache *Cache) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		cache:    cache,
	}
}

// Resolve returns the download link and metadata for a track URL, serving
// from cache when a fresh entry exists.
func (c *Client) Resolve(ctx context.Context, trackURL string) (Resolved, error) {
	if r, ok := c.cache.Get(trackURL); ok {
		telemetry.LookupCacheHits.Inc()
		return r, nil
	}
	telemetry.LookupCacheMisses.Inc()

	var body []byte
	err := retry.Do(ctx, 2, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.endpoint+"?url="+url.QueryEscape(trackURL), nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("lookup API status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return Resolved{}, fmt.Errorf("Spotify API Error: %w", err)
	}

	r, err := Decode(body)
	if err != nil {
		return Resolved{}, fmt.Errorf("Spotify API Error: %w", err)
	}

	c.cache.Put(trackURL, r)
	return r, nil
}
