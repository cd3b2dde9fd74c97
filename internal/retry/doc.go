// Package retry classifies failures and applies capped exponential backoff.
// Only errors explicitly known to be recoverable are retried; anything
// unrecognized fails fast so a broken consumer cannot spin on the same item.
package retry
