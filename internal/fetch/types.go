package fetch

import (
	"net/http"
	"time"
)

// StrategyName identifies a registered bypass strategy.
type StrategyName string

// Built-in strategy names, in their default execution order.
const (
	StrategyDirect     StrategyName = "Direct"
	StrategyDNS        StrategyName = "DNS"
	StrategyAltHeaders StrategyName = "AltHeaders"
	StrategyRelay      StrategyName = "Relay"
	StrategyMirror     StrategyName = "Mirror"
	// StrategyHeadless is not part of the registry order; it labels records
	// produced by the rendered-DOM escalation path.
	StrategyHeadless StrategyName = "Headless"
)

// Outcome is the terminal classification of one strategy attempt.
type Outcome string

// Attempt outcomes recorded in the attempt log.
const (
	OutcomeSuccess      Outcome = "success"
	OutcomeBlocked      Outcome = "blocked"
	OutcomeEmpty        Outcome = "empty"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeTimeout      Outcome = "timeout"
)

// Verdict is the block detector's classification of a response body.
type Verdict int

// Detector verdicts, in increasing order of usefulness.
const (
	VerdictBlocked Verdict = iota
	VerdictEmpty
	VerdictValid
)

// TransformFunc computes the effective URL and headers for a strategy.
// Implementations are pure: they never perform network I/O.
type TransformFunc func(rawURL string, headers http.Header) (string, http.Header, error)

// Strategy is a stateless descriptor of one bypass technique. The
// orchestrator executes the actual HTTP call with the transformed URL and
// headers so that every strategy shares one timeout/backoff implementation.
type Strategy struct {
	Name StrategyName
	// Transform computes the request the orchestrator should issue.
	Transform TransformFunc
	// RequiresRelay marks strategies whose response arrives wrapped in the
	// relay JSON envelope and must be unwrapped before block detection.
	RequiresRelay bool
	// ResolveHost marks strategies whose host must be resolved through the
	// alternate DNS servers and substituted into the URL as a literal IP.
	ResolveHost bool
}

// Policy controls one Fetch call. It is immutable for the duration of the
// call; the zero value of optional fields falls back to the documented
// defaults in withDefaults.
type Policy struct {
	// MaxAttempts bounds the number of full rounds through StrategyOrder.
	MaxAttempts int
	// StrategyOrder lists the strategies to try within each round. Empty
	// means the registry's default order.
	StrategyOrder []StrategyName
	// PerStrategyTimeout bounds each individual HTTP call.
	PerStrategyTimeout time.Duration
	// InterStrategyDelay is slept between strategies within a round.
	InterStrategyDelay time.Duration
	// InterAttemptDelay is slept between rounds.
	InterAttemptDelay time.Duration
	// MinContentBytes is the smallest body length the detector accepts.
	MinContentBytes int
	// Backoff overrides the constant delays above when set.
	Backoff Backoff
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.PerStrategyTimeout <= 0 {
		p.PerStrategyTimeout = 15 * time.Second
	}
	if p.MinContentBytes <= 0 {
		p.MinContentBytes = 500
	}
	return p
}

func (p Policy) backoff() Backoff {
	if p.Backoff != nil {
		return p.Backoff
	}
	return ConstantBackoff{Strategy: p.InterStrategyDelay, Round: p.InterAttemptDelay}
}

// Attempt records one strategy execution. Attempts are immutable once
// appended to the log and the full log is returned with the final result.
type Attempt struct {
	Strategy    StrategyName `json:"strategy"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     time.Time    `json:"ended_at"`
	HTTPStatus  int          `json:"http_status,omitempty"`
	ByteLength  int          `json:"byte_length"`
	Outcome     Outcome      `json:"outcome"`
	ErrorDetail string       `json:"error_detail,omitempty"`
}

// ContentRecord is the finalized document produced by a successful fetch.
// ContentHash is the SHA-256 of the normalized text and is unique per
// logical document; the store enforces first-write-wins on it.
type ContentRecord struct {
	ID             string         `json:"id,omitempty"`
	URL            string         `json:"url"`
	CanonicalURL   string         `json:"canonical_url"`
	ContentHash    string         `json:"content_hash"`
	RawText        string         `json:"raw_text"`
	StrategyUsed   string         `json:"strategy_used"`
	LegalScore     int            `json:"legal_score"`
	CategoryScores map[string]int `json:"category_scores"`
	FetchedAt      time.Time      `json:"fetched_at"`
}

// Result is created fresh per Fetch call and never mutated after return.
type Result struct {
	// Record is nil unless Success is true.
	Record   *ContentRecord `json:"record,omitempty"`
	Attempts []Attempt      `json:"attempts"`
	Success  bool           `json:"success"`
	// Exhausted reports that every strategy in every round failed.
	Exhausted bool `json:"exhausted"`
	// Stored is true when the persistence layer accepted the record as new.
	Stored bool `json:"stored"`
	// ExistingID carries the prior record's ID on a content-hash dedup hit.
	ExistingID string `json:"existing_id,omitempty"`
}

// StrategyUsed returns the name of the winning strategy, or "".
func (r Result) StrategyUsed() string {
	if r.Record == nil {
		return ""
	}
	return r.Record.StrategyUsed
}

// Response is what the executor hands back for one HTTP call.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Request captures everything the executor needs for one HTTP call. Host,
// when set, overrides the Host header sent on the wire (used after DNS
// substitution turns the URL host into a literal IP).
type Request struct {
	URL     string
	Headers http.Header
	Host    string
}
