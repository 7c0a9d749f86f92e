package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Deps wires the orchestrator's collaborators. Registry, Executor, Detector,
// Scorer, Normalizer and Hasher are required; the rest are optional.
type Deps struct {
	Registry   *Registry
	Executor   Executor
	Detector   Detector
	Scorer     Scorer
	Normalizer Normalizer
	Hasher     Hasher
	Resolver   Resolver
	Store      Store
	Observer   Observer
	Limiter    Limiter
	Clock      Clock
	IDGen      IDGenerator
}

// Orchestrator drives the strategy/round loop for one URL at a time. It
// holds no mutable state between calls, so independent Fetch calls may run
// concurrently over the same instance.
type Orchestrator struct {
	registry   *Registry
	exec       Executor
	detector   Detector
	scorer     Scorer
	normalizer Normalizer
	hasher     Hasher
	resolver   Resolver
	store      Store
	observer   Observer
	limiter    Limiter
	clock      Clock
	idGen      IDGenerator
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewOrchestrator validates required collaborators and builds the engine.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("orchestrator: registry is required")
	case deps.Executor == nil:
		return nil, errors.New("orchestrator: executor is required")
	case deps.Detector == nil:
		return nil, errors.New("orchestrator: detector is required")
	case deps.Scorer == nil:
		return nil, errors.New("orchestrator: scorer is required")
	case deps.Normalizer == nil:
		return nil, errors.New("orchestrator: normalizer is required")
	case deps.Hasher == nil:
		return nil, errors.New("orchestrator: hasher is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Orchestrator{
		registry:   deps.Registry,
		exec:       deps.Executor,
		detector:   deps.Detector,
		scorer:     deps.Scorer,
		normalizer: deps.Normalizer,
		hasher:     deps.Hasher,
		resolver:   deps.Resolver,
		store:      deps.Store,
		observer:   deps.Observer,
		limiter:    deps.Limiter,
		clock:      clock,
		idGen:      deps.IDGen,
	}, nil
}

// Fetch tries the policy's strategies in order, round after round, until one
// yields content that survives block detection or the rounds are spent. The
// returned attempt log always covers every attempt made, including on
// success. Configuration errors and caller cancellation are the only error
// returns; per-strategy failures are recovered into the log.
func (o *Orchestrator) Fetch(ctx context.Context, rawURL string, pol Policy) (Result, error) {
	pol = pol.withDefaults()
	strategies, err := o.registry.Strategies(pol.StrategyOrder)
	if err != nil {
		return Result{}, err
	}
	backoff := pol.backoff()

	attempts := make([]Attempt, 0, pol.MaxAttempts*len(strategies))
	for round := 0; round < pol.MaxAttempts; round++ {
		for i, st := range strategies {
			if ctx.Err() != nil {
				return o.canceled(rawURL, attempts, ctx.Err())
			}
			attempt, resp := o.attempt(ctx, rawURL, st, pol)
			attempts = append(attempts, attempt)
			if o.observer != nil {
				o.observer.OnAttempt(rawURL, attempt)
			}
			if attempt.Outcome == OutcomeSuccess {
				return o.finalize(ctx, rawURL, st.Name, resp, attempts)
			}
			if ctx.Err() != nil {
				return o.canceled(rawURL, attempts, ctx.Err())
			}
			if i < len(strategies)-1 {
				if err := sleepCtx(ctx, backoff.StrategyDelay(round, i)); err != nil {
					return o.canceled(rawURL, attempts, err)
				}
			}
		}
		if round < pol.MaxAttempts-1 {
			if err := sleepCtx(ctx, backoff.RoundDelay(round)); err != nil {
				return o.canceled(rawURL, attempts, err)
			}
		}
	}

	res := Result{Attempts: attempts, Exhausted: true}
	if o.observer != nil {
		o.observer.OnResult(rawURL, res)
	}
	return res, nil
}

// IngestRendered runs an externally rendered DOM (headless escalation)
// through the same detection, scoring and persistence path as a normal
// attempt, labeled with the Headless strategy.
func (o *Orchestrator) IngestRendered(ctx context.Context, rawURL string, body []byte, pol Policy) (Result, error) {
	pol = pol.withDefaults()
	a := Attempt{Strategy: StrategyHeadless, StartedAt: o.clock.Now(), ByteLength: len(body), HTTPStatus: http.StatusOK}
	verdict := o.detector.Classify(http.StatusOK, body, pol.MinContentBytes)
	switch verdict {
	case VerdictBlocked:
		a.Outcome = OutcomeBlocked
	case VerdictEmpty:
		a.Outcome = OutcomeEmpty
	default:
		a.Outcome = OutcomeSuccess
	}
	a.EndedAt = o.clock.Now()
	if o.observer != nil {
		o.observer.OnAttempt(rawURL, a)
	}
	attempts := []Attempt{a}
	if a.Outcome != OutcomeSuccess {
		res := Result{Attempts: attempts, Exhausted: true}
		if o.observer != nil {
			o.observer.OnResult(rawURL, res)
		}
		return res, nil
	}
	return o.finalize(ctx, rawURL, StrategyHeadless, Response{StatusCode: http.StatusOK, Body: body}, attempts)
}

func (o *Orchestrator) attempt(ctx context.Context, rawURL string, st Strategy, pol Policy) (Attempt, Response) {
	a := Attempt{Strategy: st.Name, StartedAt: o.clock.Now()}
	fail := func(outcome Outcome, detail string) (Attempt, Response) {
		a.Outcome = outcome
		a.ErrorDetail = detail
		a.EndedAt = o.clock.Now()
		return a, Response{}
	}

	effURL, headers, err := st.Transform(rawURL, nil)
	if err != nil {
		return fail(OutcomeNetworkError, "transform: "+err.Error())
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, effURL); err != nil {
			return fail(OutcomeNetworkError, "rate limit: "+err.Error())
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, pol.PerStrategyTimeout)
	defer cancel()

	hostOverride := ""
	if st.ResolveHost {
		if o.resolver == nil {
			return fail(OutcomeNetworkError, "no resolver configured")
		}
		u, perr := url.Parse(effURL)
		if perr != nil {
			return fail(OutcomeNetworkError, "parse url: "+perr.Error())
		}
		ip, rerr := o.resolver.Resolve(callCtx, u.Hostname())
		if rerr != nil {
			return fail(OutcomeNetworkError, rerr.Error())
		}
		effURL, hostOverride, err = substituteHost(effURL, ip)
		if err != nil {
			return fail(OutcomeNetworkError, err.Error())
		}
	}

	resp, err := o.exec.Do(callCtx, Request{URL: effURL, Headers: headers, Host: hostOverride})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fail(OutcomeTimeout, err.Error())
		}
		return fail(OutcomeNetworkError, err.Error())
	}
	a.HTTPStatus = resp.StatusCode

	if st.RequiresRelay {
		if resp.StatusCode != http.StatusOK {
			a.ByteLength = len(resp.Body)
			// A blocked status from the relay still means the relay itself is
			// being filtered; anything else is the relay's own failure page
			// and must never reach scoring or persistence.
			if o.detector.Classify(resp.StatusCode, resp.Body, pol.MinContentBytes) == VerdictBlocked {
				a.Outcome = OutcomeBlocked
				a.EndedAt = o.clock.Now()
				return a, resp
			}
			return fail(OutcomeNetworkError, fmt.Sprintf("relay status %d", resp.StatusCode))
		}
		contents, derr := unwrapRelay(resp.Body)
		if derr != nil {
			// Fail closed: a malformed envelope is a transport problem, not
			// evidence of blocking.
			a.ByteLength = len(resp.Body)
			return fail(OutcomeNetworkError, "relay envelope: "+derr.Error())
		}
		resp.Body = contents
	}
	a.ByteLength = len(resp.Body)

	switch o.detector.Classify(resp.StatusCode, resp.Body, pol.MinContentBytes) {
	case VerdictBlocked:
		a.Outcome = OutcomeBlocked
	case VerdictEmpty:
		a.Outcome = OutcomeEmpty
	default:
		a.Outcome = OutcomeSuccess
	}
	a.EndedAt = o.clock.Now()
	return a, resp
}

func (o *Orchestrator) finalize(ctx context.Context, rawURL string, strategy StrategyName, resp Response, attempts []Attempt) (Result, error) {
	rec, err := o.buildRecord(rawURL, strategy, resp.Body)
	if err != nil {
		res := Result{Attempts: attempts}
		if o.observer != nil {
			o.observer.OnResult(rawURL, res)
		}
		return res, err
	}
	res := Result{Record: rec, Attempts: attempts, Success: true}
	if o.store != nil {
		stored, existingID, serr := o.store.Store(ctx, *rec)
		if serr != nil {
			if o.observer != nil {
				o.observer.OnResult(rawURL, res)
			}
			return res, fmt.Errorf("store record: %w", serr)
		}
		res.Stored = stored
		res.ExistingID = existingID
	}
	if o.observer != nil {
		o.observer.OnResult(rawURL, res)
	}
	return res, nil
}

func (o *Orchestrator) buildRecord(rawURL string, strategy StrategyName, body []byte) (*ContentRecord, error) {
	text, err := o.normalizer.Normalize(string(body))
	if err != nil {
		return nil, fmt.Errorf("normalize content: %w", err)
	}
	hash, err := o.hasher.Hash([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("hash content: %w", err)
	}
	canonical, err := CanonicalURL(rawURL)
	if err != nil {
		canonical = rawURL
	}
	scores, overall := o.scorer.Score(text)

	rec := &ContentRecord{
		URL:            rawURL,
		CanonicalURL:   canonical,
		ContentHash:    hash,
		RawText:        string(body),
		StrategyUsed:   string(strategy),
		LegalScore:     overall,
		CategoryScores: scores,
		FetchedAt:      o.clock.Now(),
	}
	if o.idGen != nil {
		if id, err := o.idGen.NewID(); err == nil {
			rec.ID = id
		}
	}
	return rec, nil
}

func (o *Orchestrator) canceled(rawURL string, attempts []Attempt, cause error) (Result, error) {
	res := Result{Attempts: attempts, Exhausted: true}
	if o.observer != nil {
		o.observer.OnResult(rawURL, res)
	}
	return res, fmt.Errorf("fetch canceled: %w", cause)
}

type relayEnvelope struct {
	Contents string `json:"contents"`
}

func unwrapRelay(body []byte) ([]byte, error) {
	var env relayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if env.Contents == "" {
		return nil, errors.New("missing contents field")
	}
	return []byte(env.Contents), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
