// Package pipeline drives notifications from the durable queue through the
// consumer and records their outcomes. The runner drains the pending bucket
// in priority order, re-scanning periodically so high-priority arrivals
// preempt an old backlog, and owns the recovery and health loops.
package pipeline
