// Package metrics defines Prometheus metrics for bulkmail, covering recipient
// loading, relay sessions, and per-message delivery.
package metrics
