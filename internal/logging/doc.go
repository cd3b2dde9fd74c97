// Package logging centralizes slog construction and the structured field
// vocabulary shared by pipeline components.
//
// Two output formats are supported: a console handler that renders compact
// key=value lines with the component promoted into the message prefix, and a
// JSON handler for machine consumption. Context carriage propagates item and
// correlation identifiers so every log line emitted while handling a work
// item can be traced back to it.
package logging
