// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - POST /v1/manifests starts (or serves from cache) a manifest job.
//   - GET /v1/jobs/{job_id} polls a job and returns its JSON status.
//   - GET /v1/jobs/{job_id}/llms.txt polls a job and returns the manifest text.
//   - POST /v1/jobs/{job_id}/refresh recrawls a stale manifest.
//   - DELETE /v1/cache drops the cached manifest for a URL.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus scraping.
//
// POST /generate-llms-txt, GET /crawl-status/{job_id} and GET /test-connection
// are kept for clients of the earlier API.
package api
