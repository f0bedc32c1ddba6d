package github

import (
	"net/http"
	"time"

	"github.com/okian/careerpulse/internal/domain/keyword"
	"github.com/okian/careerpulse/pkg/logger"
)

// Defaults and bounds for harvesting.
const (
	DefaultRepoLimit   = 20
	MaxRepoLimit       = 30
	DefaultConcurrency = 8
	MinConcurrency     = 5
	MaxConcurrency     = 10
	DefaultTimeout     = 30 * time.Second
	eventsPerPage      = 100
	maxEventPages      = 3
)

// Option applies a configuration option to the Harvester.
type Option func(*Harvester)

// WithBaseURL points the client at another API root, such as a test server
// or an enterprise host.
func WithBaseURL(raw string) Option {
	return func(h *Harvester) { h.rawBaseURL = raw }
}

// WithRepoLimit sets how many recently updated repositories are scanned.
func WithRepoLimit(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.repoLimit = min(n, MaxRepoLimit)
		}
	}
}

// WithConcurrency bounds in-flight sub-requests per harvest. Values are
// clamped to [MinConcurrency, MaxConcurrency]; non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.concurrency = int64(max(MinConcurrency, min(n, MaxConcurrency)))
		}
	}
}

// WithChunkSize sets the manifest streaming chunk size.
func WithChunkSize(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.chunkSize = n
		}
	}
}

// WithTimeout bounds a whole harvest. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Harvester) {
		if d >= 0 {
			h.timeout = d
		}
	}
}

// WithDictionary replaces the framework dictionary.
func WithDictionary(d keyword.Dictionary) Option {
	return func(h *Harvester) {
		if len(d) > 0 {
			h.dictionary = d
		}
	}
}

// WithHTTPClient sets the base HTTP client under the token transport.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Harvester) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithClock sets the time source used for the 30 day activity window.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) {
		if now != nil {
			h.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Harvester) {
		if l != nil {
			h.logger = l
		}
	}
}
