package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrValidationFailed       = errors.New("validation failed")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrMailDispatchFailed     = errors.New("mail dispatch failed")

	ErrCatalogUnavailable = fmt.Errorf("catalog unavailable: %w", ErrPersistenceUnavailable)
	ErrCatalogWriteFailed = fmt.Errorf("catalog write failed: %w", ErrPersistenceUnavailable)
)

// ValidationError collects field level messages. The empty field name holds form level messages.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, e.Fields[k])
			continue
		}
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, " | ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
