// Package main hosts the voidbot CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the notification pipeline to the
// terminal: the long-running `run` daemon, queue inspection and maintenance,
// upstream reconciliation, health reporting, and configuration scaffolding.
// It centralizes configuration resolution and store wiring so subcommands
// stay declarative.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
