// Package api hosts the read-only HTTP surface over the fellowship store.
// Routes:
//   - GET /api/fellowships lists the most recently updated records.
//   - GET /healthz reports liveness and store connectivity.
//   - GET /metrics for Prometheus scraping.
package api
