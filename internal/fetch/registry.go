package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrUnknownStrategy reports a strategy name in Policy.StrategyOrder that
// was never registered. It is a configuration error and surfaces before any
// network I/O happens.
var ErrUnknownStrategy = errors.New("unknown strategy")

// RegistryConfig controls how the built-in strategies shape their requests.
type RegistryConfig struct {
	// RelayBase is the CORS-relay prefix; the target URL is percent-encoded
	// and appended to it.
	RelayBase string
	// BrowserUserAgent is sent by the Direct and DNS strategies.
	BrowserUserAgent string
	// BotUserAgent is sent by the AltHeaders strategy; filtered sites often
	// whitelist search-engine crawlers.
	BotUserAgent string
	// AcceptLanguage is sent with browser-like header sets.
	AcceptLanguage string
	// MirrorHosts maps a blocked host to a known mirror host.
	MirrorHosts map[string]string
}

const (
	defaultRelayBase      = "https://api.allorigins.win/get?url="
	defaultBrowserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultBotUA          = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	defaultAcceptLanguage = "fa-IR,fa;q=0.9,en-US;q=0.6,en;q=0.4"
)

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.RelayBase == "" {
		c.RelayBase = defaultRelayBase
	}
	if c.BrowserUserAgent == "" {
		c.BrowserUserAgent = defaultBrowserUA
	}
	if c.BotUserAgent == "" {
		c.BotUserAgent = defaultBotUA
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = defaultAcceptLanguage
	}
	return c
}

// Registry holds the ordered, named set of built-in strategies. It is
// populated at construction time and never mutated afterwards, so it is safe
// to share across concurrent Fetch calls.
type Registry struct {
	order  []StrategyName
	byName map[StrategyName]Strategy
}

// NewRegistry registers the built-in strategies in their canonical order.
func NewRegistry(cfg RegistryConfig) *Registry {
	cfg = cfg.withDefaults()
	strategies := []Strategy{
		{Name: StrategyDirect, Transform: browserTransform(cfg)},
		{Name: StrategyDNS, Transform: browserTransform(cfg), ResolveHost: true},
		{Name: StrategyAltHeaders, Transform: botTransform(cfg)},
		{Name: StrategyRelay, Transform: relayTransform(cfg), RequiresRelay: true},
		{Name: StrategyMirror, Transform: mirrorTransform(cfg)},
	}
	r := &Registry{byName: make(map[StrategyName]Strategy, len(strategies))}
	for _, s := range strategies {
		r.order = append(r.order, s.Name)
		r.byName[s.Name] = s
	}
	return r
}

// DefaultOrder returns a copy of the canonical strategy order.
func (r *Registry) DefaultOrder() []StrategyName {
	return append([]StrategyName(nil), r.order...)
}

// Strategies resolves the requested order into concrete descriptors. An
// empty order means the default order. Unregistered names fail fast with
// ErrUnknownStrategy.
func (r *Registry) Strategies(order []StrategyName) ([]Strategy, error) {
	if len(order) == 0 {
		order = r.order
	}
	out := make([]Strategy, 0, len(order))
	for _, name := range order {
		s, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}
		out = append(out, s)
	}
	return out, nil
}

func browserTransform(cfg RegistryConfig) TransformFunc {
	return func(rawURL string, headers http.Header) (string, http.Header, error) {
		h := cloneHeader(headers)
		h.Set("User-Agent", cfg.BrowserUserAgent)
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		h.Set("Accept-Language", cfg.AcceptLanguage)
		return rawURL, h, nil
	}
}

func botTransform(cfg RegistryConfig) TransformFunc {
	return func(rawURL string, headers http.Header) (string, http.Header, error) {
		h := cloneHeader(headers)
		h.Set("User-Agent", cfg.BotUserAgent)
		h.Set("Accept", "*/*")
		return rawURL, h, nil
	}
}

func relayTransform(cfg RegistryConfig) TransformFunc {
	return func(rawURL string, headers http.Header) (string, http.Header, error) {
		h := cloneHeader(headers)
		h.Set("User-Agent", cfg.BrowserUserAgent)
		h.Set("Accept", "application/json")
		return cfg.RelayBase + url.QueryEscape(rawURL), h, nil
	}
}

func mirrorTransform(cfg RegistryConfig) TransformFunc {
	return func(rawURL string, headers http.Header) (string, http.Header, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", nil, fmt.Errorf("parse url for mirror: %w", err)
		}
		host := u.Hostname()
		if mirror, ok := cfg.MirrorHosts[host]; ok {
			u.Host = mirror
		} else if strings.HasPrefix(host, "www.") {
			u.Host = strings.TrimPrefix(host, "www.")
		} else {
			u.Host = "www." + host
		}
		h := cloneHeader(headers)
		h.Set("User-Agent", cfg.BrowserUserAgent)
		h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		h.Set("Accept-Language", cfg.AcceptLanguage)
		return u.String(), h, nil
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return make(http.Header)
	}
	return h.Clone()
}
