package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates caller input was rejected before any storage access
	ErrValidation = errors.New("validation failed")

	// ErrStorage indicates a persistence read or write failure
	ErrStorage = errors.New("storage failure")

	// ErrGeneration indicates the external generation capability failed
	ErrGeneration = errors.New("generation failure")
)

// Completion provider error types

var (
	// ErrLLMUnavailable indicates the language model service is unavailable
	ErrLLMUnavailable = errors.New("llm service unavailable")

	// ErrLLMTimeout indicates a request to the language model timed out
	ErrLLMTimeout = errors.New("llm request timeout")

	// ErrInvalidRequest indicates an invalid request was made (4xx client errors)
	ErrInvalidRequest = errors.New("invalid request")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps a failed store operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// GenerationError wraps a failed call to the generation provider
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrGeneration, e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGeneration, e.Err}
}
