// Package recovery reconciles the durable queue against the upstream
// notification listing and resurrects failed records for another attempt.
package recovery
