package utils

import (
	"fmt"
	"strings"
)

type PermError string

func (e PermError) Error() string {
	return string(e)
}

func (e PermError) IsPermanent() bool {
	return true
}

var ErrQueryTimeout = PermError("query did not reach a terminal state before the deadline")

// ValidationError is returned before any I/O when the write request can not be satisfied
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

type CatalogAccessError struct {
	Op       string
	Database string
	Table    string
	Err      error
}

func (e *CatalogAccessError) Error() string {
	return fmt.Sprintf("catalog %s failed for %s.%s: %s", e.Op, e.Database, e.Table, e.Err)
}

func (e *CatalogAccessError) Unwrap() error {
	return e.Err
}

type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %s: %s", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// QueryFailedError carries the reason given by the query service, verbatim
type QueryFailedError struct {
	ExecutionID string
	State       string
	Reason      string
}

func (e *QueryFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("query ")
	sb.WriteString(e.ExecutionID)
	sb.WriteString(" ended in state ")
	sb.WriteString(e.State)
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}
