// Package main hosts the manifest service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes manifest submission, job polling, refresh, cache invalidation and a
//     provider connectivity check, plus health and metrics endpoints.
//   - Orchestration: internal/orchestrator owns every job record. Submissions are served from the manifest cache when
//     a fresh entry exists; otherwise a crawl is started at Firecrawl and advanced lazily each time a client polls.
//   - Persistence: manifests are cached per normalized URL in memory, on local disk, in GCS, Postgres or MongoDB,
//     selected by cache.backend. Job records live in memory and are evicted by internal/reaper once idle.
//   - Fanout: each completed job emits a ManifestEvent through Pub/Sub when a project is configured.
//
// Quick checklist:
//   - Configure env vars: LLMSTXT_PROVIDER_API_KEY (required), LLMSTXT_SERVER_PORT, LLMSTXT_CACHE_BACKEND and the
//     backend keys, LLMSTXT_AUTH_ENABLED/LLMSTXT_AUTH_API_KEY. A .env file next to the binary is loaded first.
//   - Run locally: go run ./cmd/llmstxt -config config.yaml (or rely solely on env overrides).
package main
