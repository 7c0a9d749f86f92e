// Package api exposes the HTTP interface for the fetch service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parsalaw/lawfetch/internal/config"
	"github.com/parsalaw/lawfetch/internal/dispatcher"
	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/metrics"
	"github.com/parsalaw/lawfetch/internal/progress"
	"github.com/parsalaw/lawfetch/internal/store"
)

// EventFeed serves the recent in-process progress events.
type EventFeed interface {
	Recent() []progress.Event
}

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router     chi.Router
	jobs       fetch.JobStore
	docs       store.DocumentStore
	dispatcher *dispatcher.Dispatcher
	events     EventFeed
	idGen      fetch.IDGenerator
	clock      fetch.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	jobs fetch.JobStore,
	docs store.DocumentStore,
	disp *dispatcher.Dispatcher,
	events EventFeed,
	idGen fetch.IDGenerator,
	clock fetch.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobs:       jobs,
		docs:       docs,
		dispatcher: disp,
		events:     events,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.submitJob)
			r.Post("/standard", s.submitStandardJob)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getJobStatus)
				r.Get("/result", s.getJobResult)
				r.Post("/cancel", s.cancelJob)
			})
		})
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocuments)
			r.Get("/{content_hash}", s.getDocument)
		})
		r.Get("/events", s.listEvents)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The document store is the only hard downstream dependency.
	if _, err := s.docs.List(r.Context(), 1); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "document store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type jobRequest struct {
	URLs            []string          `json:"urls"`
	MaxAttempts     *int              `json:"max_attempts"`
	StrategyOrder   []string          `json:"strategy_order"`
	TimeoutSeconds  *int              `json:"timeout_seconds"`
	MinContentBytes *int              `json:"min_content_bytes"`
	HeadlessAllowed *bool             `json:"headless_allowed"`
	Tags            map[string]string `json:"tags"`
}

type standardJobRequest struct {
	Name string `json:"name"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toJobParameters(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueJob(r.Context(), params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) submitStandardJob(w http.ResponseWriter, r *http.Request) {
	var req standardJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "missing job name")
		return
	}
	template, ok := s.cfg.StandardJobs[req.Name]
	if !ok {
		s.writeError(w, http.StatusNotFound, "standard job template not found")
		return
	}
	jobID, err := s.enqueueJob(r.Context(), cloneJobParameters(template))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	results, err := s.jobs.ListResults(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch job results")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job, "results": results})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err := s.jobs.UpdateJobStatus(
		r.Context(),
		jobID,
		fetch.JobStatusCanceled,
		"canceled via API",
		job.Counters,
	); err != nil {
		if errors.Is(err, fetch.ErrJobFinished) {
			s.writeError(w, http.StatusConflict, "job already finished")
			return
		}
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": string(fetch.JobStatusCanceled)})
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be in 1..500")
			return
		}
		limit = n
	}
	docs, err := s.docs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []fetch.ContentRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "content_hash")
	doc, err := s.docs.Get(r.Context(), hash)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}

func (s *Server) listEvents(w http.ResponseWriter, _ *http.Request) {
	if s.events == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"events": []progress.Event{}})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": s.events.Recent()})
}

func (s *Server) enqueueJob(ctx context.Context, params fetch.JobParameters) (string, error) {
	if len(params.URLs) == 0 {
		return "", errors.New("at least one URL required")
	}
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := fetch.Job{
		ID:         jobID,
		Status:     fetch.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := fetch.QueueItem{
		JobID:     jobID,
		Params:    params,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

func (s *Server) toJobParameters(req jobRequest) (fetch.JobParameters, error) {
	if len(req.URLs) == 0 {
		return fetch.JobParameters{}, errors.New("urls required")
	}
	params := fetch.JobParameters{
		URLs:            req.URLs,
		HeadlessAllowed: boolOrDefault(req.HeadlessAllowed, s.cfg.Headless.Enabled),
		Tags:            req.Tags,
	}
	if params.Tags == nil {
		params.Tags = map[string]string{}
	}
	if req.MaxAttempts != nil || req.TimeoutSeconds != nil || req.MinContentBytes != nil || len(req.StrategyOrder) > 0 {
		pol := s.cfg.Policy()
		if req.MaxAttempts != nil {
			if *req.MaxAttempts <= 0 || *req.MaxAttempts > 10 {
				return fetch.JobParameters{}, errors.New("max_attempts must be in 1..10")
			}
			pol.MaxAttempts = *req.MaxAttempts
		}
		if req.TimeoutSeconds != nil {
			if *req.TimeoutSeconds <= 0 {
				return fetch.JobParameters{}, errors.New("timeout_seconds must be > 0")
			}
			pol.PerStrategyTimeout = time.Duration(*req.TimeoutSeconds) * time.Second
		}
		if req.MinContentBytes != nil {
			pol.MinContentBytes = *req.MinContentBytes
		}
		if len(req.StrategyOrder) > 0 {
			order := make([]fetch.StrategyName, 0, len(req.StrategyOrder))
			for _, name := range req.StrategyOrder {
				order = append(order, fetch.StrategyName(name))
			}
			pol.StrategyOrder = order
		}
		params.Policy = &pol
	}
	return params, nil
}

func boolOrDefault(ptr *bool, def bool) bool {
	if ptr == nil {
		return def
	}
	return *ptr
}

func cloneJobParameters(src fetch.JobParameters) fetch.JobParameters {
	cp := src
	if len(src.URLs) > 0 {
		cp.URLs = append([]string(nil), src.URLs...)
	}
	if src.Policy != nil {
		pol := *src.Policy
		cp.Policy = &pol
	}
	if src.Tags != nil {
		cp.Tags = make(map[string]string, len(src.Tags))
		for k, v := range src.Tags {
			cp.Tags[k] = v
		}
	}
	return cp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
