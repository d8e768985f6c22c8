package models

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping (HTTP status) and worker
// ack/nack decisions. Every error surfaced across a component boundary in
// CIF carries one of these kinds.
type Kind int

const (
	// KindNotFound maps to 404 and a discarded (acked) worker message.
	KindNotFound Kind = iota
	// KindValidation maps to 422 and a discarded (acked) worker message.
	KindValidation
	// KindTimeout maps to 504 and a retried (nacked) worker message.
	KindTimeout
	// KindTransient is retried; once retries are exhausted it surfaces as 500.
	KindTransient
	// KindFatal aborts startup; never produced mid-request.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindTimeout:
		return "timeout"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// KindError is a typed error carrying a Kind alongside a field and message,
// errors.Is/As friendly via Unwrap.
type KindError struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *KindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *KindError) Unwrap() error {
	return e.Cause
}

// NotFound builds a KindNotFound error.
func NotFound(field, message string) *KindError {
	return &KindError{Kind: KindNotFound, Field: field, Message: message}
}

// Validation builds a KindValidation error.
func Validation(field, message string) *KindError {
	return &KindError{Kind: KindValidation, Field: field, Message: message}
}

// Timeout builds a KindTimeout error wrapping cause.
func Timeout(message string, cause error) *KindError {
	return &KindError{Kind: KindTimeout, Message: message, Cause: cause}
}

// Transient builds a KindTransient error wrapping cause.
func Transient(message string, cause error) *KindError {
	return &KindError{Kind: KindTransient, Message: message, Cause: cause}
}

// Fatal builds a KindFatal error wrapping cause.
func Fatal(message string, cause error) *KindError {
	return &KindError{Kind: KindFatal, Message: message, Cause: cause}
}

// ErrorKind extracts the Kind of err if it is (or wraps) a *KindError,
// defaulting to KindTransient for unclassified errors, which the worker
// treats as retryable rather than silently discarding unknown failures.
func ErrorKind(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindTransient
}

// Common validation errors shared across catalog model constructors.
var (
	// ErrSourceIDRequired indicates a required source ID field is zero.
	ErrSourceIDRequired = errors.New("source_id is required")

	// ErrExternalIDRequired indicates a required external ID field is empty.
	ErrExternalIDRequired = errors.New("external_id is required")

	// ErrVersionRequired indicates a required version field is empty.
	ErrVersionRequired = errors.New("version is required")

	// ErrArtifactIDRequired indicates a required artifact ID field is zero.
	ErrArtifactIDRequired = errors.New("artifact_id is required")

	// ErrGenerationIDRequired indicates a required generation ID is zero.
	ErrGenerationIDRequired = errors.New("generation_id is required")

	// ErrExtractorTypeRequired indicates a missing extractor type.
	ErrExtractorTypeRequired = errors.New("extractor_type is required")

	// ErrConnectorTypeRequired indicates a missing connector type.
	ErrConnectorTypeRequired = errors.New("connector_type is required")
)
