// Package fetch performs single timed page retrievals against the source
// site, with one shared politeness limiter in front of every outbound
// request.
package fetch

import (
	"context"
)

// PageFetcher retrieves one page of raw markup. The boolean result is false
// when the page is unavailable (non-success status, network failure, or
// timeout); callers decide what unavailability means, it is never fatal here.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, bool)
}
