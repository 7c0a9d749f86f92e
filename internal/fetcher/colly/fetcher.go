// Package collyfetcher implements the outbound HTTP executor using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

// Config controls collector behavior.
type Config struct {
	Timeout time.Duration
	// InsecureTLS skips certificate verification. Required for the
	// DNS-substitution strategy, where the URL host is a literal IP and the
	// certificate is issued for the original hostname.
	InsecureTLS bool
}

// Fetcher implements fetch.Executor. One base collector (and its pooled
// transport) is shared; every Do clones it, so concurrent calls are safe.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher with a pooled transport wrapped for Host overrides.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := &hostOverrideTransport{base: newHTTPTransport(cfg.InsecureTLS)}
	c := colly.NewCollector(colly.Async(false), colly.IgnoreRobotsTxt())
	c.WithTransport(transport)
	return &Fetcher{cfg: cfg, transport: transport, baseCollector: c}
}

// Do executes a single GET for the transformed request.
func (f *Fetcher) Do(ctx context.Context, request fetch.Request) (fetch.Response, error) {
	var (
		result   fetch.Response
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.WithTransport(f.transport)
	timeout := f.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	collector.SetRequestTimeout(timeout)

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
		if request.Host != "" {
			r.Headers.Set(hostOverrideHeader, request.Host)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = fetch.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly reports non-2xx statuses through OnError; those are still
		// responses the detector needs to see.
		if r != nil && r.StatusCode != 0 {
			var headers http.Header
			if r.Headers != nil {
				headers = r.Headers.Clone()
			}
			result = fetch.Response{
				URL:        request.URL,
				StatusCode: r.StatusCode,
				Headers:    headers,
				Body:       append([]byte(nil), r.Body...),
				Duration:   time.Since(start),
			}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return fetch.Response{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return fetch.Response{}, fmt.Errorf("http get: %w", fetchErr)
		}
		if result.StatusCode != 0 {
			return result, nil
		}
		if err != nil {
			return fetch.Response{}, fmt.Errorf("visit: %w", err)
		}
		return result, nil
	}
}

// hostOverrideHeader smuggles the desired wire Host through colly's header
// plumbing; net/http ignores a Host entry in the header map, so the
// transport moves it onto Request.Host before dialing.
const hostOverrideHeader = "X-Lawfetch-Host"

type hostOverrideTransport struct {
	base http.RoundTripper
}

func (t *hostOverrideTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if host := req.Header.Get(hostOverrideHeader); host != "" {
		req = req.Clone(req.Context())
		req.Host = host
		req.Header.Del(hostOverrideHeader)
	}
	return t.base.RoundTrip(req)
}

func newHTTPTransport(insecureTLS bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: insecureTLS}, //nolint:gosec // deliberate for IP-substituted hosts
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
