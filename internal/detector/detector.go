// Package detector classifies fetched responses as blocked interstitials,
// suspiciously empty bodies, or real documents.
package detector

import (
	"bytes"
	"net/http"

	"github.com/parsalaw/lawfetch/internal/fetch"
)

// DefaultMarkers is the deny-list matched case-insensitively against
// response bodies. It covers the common CDN interstitials plus the Persian
// filtering notice pages returned inside Iran.
func DefaultMarkers() []string {
	return []string{
		"cloudflare",
		"arvancloud",
		"access denied",
		"just a moment",
		"checking your browser",
		"attention required",
		"enable javascript and cookies",
		"ddos-guard",
		"دسترسی شما به این سایت محدود",
		"این سایت مسدود",
		"peyvandha.ir",
	}
}

var blockedStatuses = map[int]bool{
	http.StatusForbidden:          true,
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// Detector implements rule-based block detection. It is a heuristic: an
// interstitial that matches none of the markers will pass as Valid and is
// expected to land a low relevance score instead.
type Detector struct {
	markers [][]byte
}

// New builds a Detector; nil markers means DefaultMarkers.
func New(markers []string) *Detector {
	if markers == nil {
		markers = DefaultMarkers()
	}
	d := &Detector{markers: make([][]byte, 0, len(markers))}
	for _, m := range markers {
		d.markers = append(d.markers, bytes.ToLower([]byte(m)))
	}
	return d
}

// Classify applies the decision procedure in priority order: blocking
// status codes, then bodies shorter than minBytes, then the deny-list.
func (d *Detector) Classify(status int, body []byte, minBytes int) fetch.Verdict {
	if blockedStatuses[status] {
		return fetch.VerdictBlocked
	}
	if len(body) < minBytes {
		return fetch.VerdictEmpty
	}
	lower := bytes.ToLower(body)
	for _, m := range d.markers {
		if bytes.Contains(lower, m) {
			return fetch.VerdictBlocked
		}
	}
	return fetch.VerdictValid
}
