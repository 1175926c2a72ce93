package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the requested post or media row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedFile indicates a file extension outside the allowed sets.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrFileTooLarge indicates an upload exceeding the configured size cap.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidationError reports per-field problems with a typed input. Nothing is
// persisted when validation fails.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
