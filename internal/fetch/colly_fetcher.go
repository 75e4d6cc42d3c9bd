package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/avdeev/switch-catalog/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
}

// DefaultHeaders returns the request header set presented to the source
// site. The site rejects default HTTP client identifiers, so the set mimics
// an ordinary browser.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	}
}

// CollyFetcher implements PageFetcher using the Colly collector.
type CollyFetcher struct {
	cfg           Config
	limiter       *Limiter
	logger        *zap.Logger
	transport     *http.Transport
	baseCollector *colly.Collector
}

// NewCollyFetcher builds a CollyFetcher. Every call to Fetch waits on the
// shared limiter before going to the network.
func NewCollyFetcher(cfg Config, limiter *Limiter, logger *zap.Logger) *CollyFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Headers == nil {
		cfg.Headers = DefaultHeaders()
	}
	transport := newHTTPTransport()
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(transport)

	return &CollyFetcher{
		cfg:           cfg,
		limiter:       limiter,
		logger:        logger,
		transport:     transport,
		baseCollector: c,
	}
}

// Close releases pooled connections. Called on every sync exit path so no
// connections leak across runs.
func (f *CollyFetcher) Close() {
	f.transport.CloseIdleConnections()
}

// Fetch executes a single HTTP GET. It returns the page body and true on a
// 200 response, or nil and false for any kind of unavailability.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, bool) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			f.logger.Warn("Fetch canceled while waiting for rate limiter",
				zap.String("url", url), zap.Error(err))
			return nil, false
		}
	}

	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range f.cfg.Headers {
			r.Headers.Set(key, value)
		}
	})

	// The result is written only by the collector callbacks and the visit
	// goroutine, and read only after it arrives on the channel. On
	// cancellation the result is never touched again from this side.
	res := &fetchResult{}
	collector.OnResponse(func(r *colly.Response) {
		res.statusCode = r.StatusCode
		res.body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.statusCode = r.StatusCode
		}
		res.err = err
	})

	done := make(chan *fetchResult, 1)
	go func() {
		if err := collector.Visit(url); err != nil && res.err == nil {
			res.err = err
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		metrics.ObservePageFetch(false, time.Since(start))
		f.logger.Warn("Fetch canceled mid-request",
			zap.String("url", url), zap.Error(ctx.Err()))
		return nil, false
	case res := <-done:
		duration := time.Since(start)
		ok := res.err == nil && res.statusCode == http.StatusOK && len(res.body) > 0
		metrics.ObservePageFetch(ok, duration)
		if !ok {
			f.logger.Warn("Page unavailable",
				zap.String("url", url),
				zap.Int("status_code", res.statusCode),
				zap.Duration("duration", duration),
				zap.Error(res.err),
			)
			return nil, false
		}
		return res.body, true
	}
}

type fetchResult struct {
	body       []byte
	statusCode int
	err        error
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
