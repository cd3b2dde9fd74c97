// Package health derives a coarse verdict (HEALTHY, WARNING, CRITICAL) from
// periodic queue snapshots. The monitor is read-only: it observes bucket
// sizes, error rates, and disk headroom, and keeps a short history for trend
// and throughput questions.
package health
