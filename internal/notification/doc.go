// Package notification defines the work item model shared by the queue,
// state store, and pipeline, plus the filename codec that makes lexical
// ordering of the pending bucket equal priority-then-chronological ordering.
package notification
