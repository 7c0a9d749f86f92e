// Package main hosts the lawfetch service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, job management,
//     document lookup and a live event feed. Requests are validated,
//     normalized into fetch.JobParameters, and persisted via the JobStore
//     before being enqueued for work.
//   - Dispatcher & queue: jobs flow through a bounded in-memory queue sized
//     by fetch.queue_depth and fan out to a fixed worker pool sized by
//     fetch.concurrency. Context cancellation stops workers cleanly on
//     shutdown.
//   - Fetch pipeline: each URL runs through the strategy loop (Direct,
//     alternate-DNS resolution, bot headers, CORS relay, mirror hosts) with
//     per-strategy timeouts and exponential inter-round backoff. Responses
//     pass block detection, Persian text normalization, keyword scoring and
//     content-hash deduplication. When every strategy is exhausted and the
//     job allows it, the page is rendered in headless Chrome and re-ingested.
//   - Persistence & fanout: normalized documents land in the configured
//     DocumentStore (memory/sqlite/postgres), raw HTML snapshots are archived
//     to the configured writer (memory/local/GCS), and a compact Pub/Sub
//     notification is published when a topic is configured. Progress events
//     are batched by the Hub and fanned out to log, Prometheus and in-memory
//     sinks.
//   - Configuration & plumbing: Viper populates config from env/files with
//     the LAWFETCH_ prefix; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Quick checklist:
//   - Configure env vars: LAWFETCH_SERVER_PORT, LAWFETCH_FETCH_CONCURRENCY,
//     LAWFETCH_FETCH_MAX_ATTEMPTS, LAWFETCH_STORE_BACKEND plus DSN/path,
//     LAWFETCH_ARCHIVE_BACKEND, LAWFETCH_HEADLESS_ENABLED and pubsub project
//     and topic when fanout beyond memory is required.
//   - Run locally: go run ./cmd/lawfetch serve --config config.yaml (or rely
//     solely on env overrides). One-shot: go run ./cmd/lawfetch fetch URL.
package main
