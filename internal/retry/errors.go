package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel markers used to classify consumer and upstream failures. Wrap an
// error with one of these so the retry loop and the pipeline can decide what
// to do with it.
var (
	// ErrTransient marks failures worth retrying: rate limits, upstream
	// timeouts, momentary network trouble.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures that will not improve with retries:
	// malformed payloads, rejected content, validation errors.
	ErrPermanent = errors.New("permanent failure")
	// ErrInfrastructure marks failures in our own runtime: database
	// corruption, disk full, missing directories. Retried like transient
	// failures but escalated to the health monitor when they persist.
	ErrInfrastructure = errors.New("infrastructure failure")
	// ErrNoReply marks a deliberate consumer decision to stay silent. Never
	// retried; the item settles as no_reply.
	ErrNoReply = errors.New("no reply")
)

// Class is the retry disposition of an error.
type Class int

const (
	// ClassPermanent failures are surfaced immediately without retrying.
	// Unrecognized errors land here: only failures explicitly known to be
	// recoverable earn a retry.
	ClassPermanent Class = iota
	ClassTransient
	ClassInfrastructure
	ClassNoReply
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassInfrastructure:
		return "infrastructure"
	case ClassNoReply:
		return "no_reply"
	default:
		return "permanent"
	}
}

// Classify maps an error to its retry class.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}
	switch {
	case errors.Is(err, ErrNoReply):
		return ClassNoReply
	case errors.Is(err, ErrInfrastructure):
		return ClassInfrastructure
	case errors.Is(err, ErrTransient):
		return ClassTransient
	case errors.Is(err, ErrPermanent):
		return ClassPermanent
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"no space left", "disk full", "read-only file system"} {
		if strings.Contains(msg, marker) {
			return ClassInfrastructure
		}
	}
	for _, marker := range []string{"rate limit", "too many requests", "connection refused", "connection reset", "temporarily unavailable", "503", "502", "429"} {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassPermanent
}

// Retryable reports whether an error class earns another attempt.
func (c Class) Retryable() bool {
	return c == ClassTransient || c == ClassInfrastructure
}

// Wrap tags an error with a classification marker while adding component and
// operation context. The marker should be one of the exported sentinels.
func Wrap(marker error, component, operation string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	detail := component
	if operation = strings.TrimSpace(operation); operation != "" {
		if detail != "" {
			detail += ": " + operation
		} else {
			detail = operation
		}
	}
	if detail == "" {
		detail = "operation failed"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
