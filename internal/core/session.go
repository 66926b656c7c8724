package core

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// FailureClass separates quota/rate-limit failures, which get a modal-level
// notice and leave partial text untouched, from everything else, which
// overwrites the target record with a fixed failure string.
type FailureClass int

const (
	FailureGeneric FailureClass = iota
	FailureQuota
)

func (c FailureClass) String() string {
	if c == FailureQuota {
		return "quota"
	}
	return "generic"
}

// Substring fallback for quota detection, matched case-insensitively against
// the stringified error when no structured HTTP status is available.
var quotaKeywords = []string{"quota", "429", "limit", "requested entity was not found"}

// Classify determines the failure class of a generation error. A structured
// service 429 wins; otherwise the keyword match applies.
func Classify(err error) FailureClass {
	var aerr genai.APIError
	if errors.As(err, &aerr) && aerr.Code == http.StatusTooManyRequests {
		return FailureQuota
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range quotaKeywords {
		if strings.Contains(msg, kw) {
			return FailureQuota
		}
	}
	return FailureGeneric
}

// GenerationError carries a classified generation failure across the
// controller boundary.
type GenerationError struct {
	Class FailureClass
	Err   error
}

func (e *GenerationError) Error() string {
	return "generation failed (" + e.Class.String() + "): " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsQuota reports whether err is a quota-class generation failure.
func IsQuota(err error) bool {
	var gerr *GenerationError
	return errors.As(err, &gerr) && gerr.Class == FailureQuota
}

// ErrSessionDetached is returned by a sink's Publish when the target record
// no longer belongs to this session (cleared log, superseded generation).
// The controller keeps draining the stream but stops publishing.
var ErrSessionDetached = errors.New("session detached from target record")

// SessionSink is the caller-supplied emplacement and finalization strategy
// for one streaming session. The controller owns accumulation and error
// classification; the sink owns where the text goes.
type SessionSink interface {
	// Publish replaces the target record's text with the full accumulator
	// snapshot. first marks the first chunk, which clears any awaiting
	// indicator.
	Publish(full string, first bool) error
	// Complete delivers the final accumulated text. No further mutation of
	// the record occurs afterwards.
	Complete(full string) error
	// Fail overwrites the record with the call site's fixed failure string.
	// Only generic-class failures reach here; quota-class failures and
	// cancellation preserve whatever partial text accumulated.
	Fail(failText string) error
}

// RunStream drives one streaming generation session through its lifecycle
// and returns the accumulated text. The record's text is always re-derived
// from the accumulator, never appended in place, so retried or out-of-order
// deliveries cannot lose updates.
func RunStream(stream *TextStream, sink SessionSink, failText string) (string, error) {
	var acc strings.Builder
	first := true
	detached := false

	for chunk := range stream.Chunks() {
		acc.WriteString(chunk)
		if detached {
			continue
		}
		if err := sink.Publish(acc.String(), first); err != nil {
			if errors.Is(err, ErrSessionDetached) {
				// Keep draining so the producer can finish.
				detached = true
				continue
			}
			return acc.String(), err
		}
		first = false
	}

	if detached {
		return acc.String(), ErrSessionDetached
	}

	if err := stream.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancellation is not a generation failure; whatever text
			// accumulated stays on the record untouched.
			return acc.String(), err
		}
		genErr := &GenerationError{Class: Classify(err), Err: err}
		if genErr.Class == FailureGeneric {
			if ferr := sink.Fail(failText); ferr != nil && !errors.Is(ferr, ErrSessionDetached) {
				log.Printf("Failed to record generation failure: %v", ferr)
			}
		}
		return acc.String(), genErr
	}

	if err := sink.Complete(acc.String()); err != nil && !errors.Is(err, ErrSessionDetached) {
		return acc.String(), err
	}
	return acc.String(), nil
}

// RunOnce is the non-streaming variant: the result exists only on success,
// so no placeholder is ever created and failures carry only a class.
func RunOnce(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	text, err := call(ctx)
	if err != nil {
		return "", &GenerationError{Class: Classify(err), Err: err}
	}
	return text, nil
}
