// Package errors defines the typed error values used across the indexing and
// query paths.
package errors

import (
	"errors"
	"fmt"

	"github.com/standardbeagle/hgrep/internal/types"
)

// ErrorType classifies an error for logging and API mapping.
type ErrorType string

const (
	// Query errors
	ErrorTypeQueryParse         ErrorType = "query_parse"
	ErrorTypeInvalidCommitIndex ErrorType = "invalid_commit_index"
	ErrorTypeBlobAbsent         ErrorType = "blob_absent"

	// Indexing errors
	ErrorTypeIndexing ErrorType = "indexing"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// QueryError represents a failure on the query path. Only QueryParse-grade
// messages are user visible; everything else maps to a generic internal
// response.
type QueryError struct {
	Type       ErrorType
	Query      string
	Underlying error
}

// NewQueryParseError creates an error for a regex that could not be parsed or
// uses unsupported constructs.
func NewQueryParseError(query string, err error) *QueryError {
	return &QueryError{
		Type:       ErrorTypeQueryParse,
		Query:      query,
		Underlying: err,
	}
}

// NewInvalidCommitIndexError reports an overlapped-commits bitmap referencing
// a commit outside the index. This is a data-integrity error and aborts the
// request.
func NewInvalidCommitIndexError(commit types.CommitIndex, commitCount int) *QueryError {
	return &QueryError{
		Type: ErrorTypeInvalidCommitIndex,
		Underlying: fmt.Errorf(
			"commit index %d out of range (index has %d commits)",
			commit, commitCount),
	}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s for query %q: %v", e.Type, e.Query, e.Underlying)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *QueryError) Unwrap() error {
	return e.Underlying
}

// IsQueryParse reports whether err is a user-visible query parse failure.
func IsQueryParse(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Type == ErrorTypeQueryParse
}

// IsInvalidCommitIndex reports whether err is a commit-index integrity error.
func IsInvalidCommitIndex(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Type == ErrorTypeInvalidCommitIndex
}

// IndexingError represents an unexpected state in the document model or the
// commit walk. Fatal during indexing: the walk stops and the error is logged
// and recorded, leaving the processed prefix consistent.
type IndexingError struct {
	Type       ErrorType
	FileID     types.FileID
	FilePath   string
	Commit     types.CommitIndex
	Operation  string
	Underlying error
}

// NewIndexingError creates a new indexing error with context
func NewIndexingError(op string, err error) *IndexingError {
	return &IndexingError{
		Type:       ErrorTypeIndexing,
		Operation:  op,
		Underlying: err,
	}
}

// WithFile adds file information to the error
func (e *IndexingError) WithFile(fileID types.FileID, path string) *IndexingError {
	e.FileID = fileID
	e.FilePath = path
	return e
}

// WithCommit adds the commit being indexed to the error
func (e *IndexingError) WithCommit(commit types.CommitIndex) *IndexingError {
	e.Commit = commit
	return e
}

// Error implements the error interface
func (e *IndexingError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s %s failed for %s at commit %d: %v",
			e.Type, e.Operation, e.FilePath, e.Commit, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed at commit %d: %v",
		e.Type, e.Operation, e.Commit, e.Underlying)
}

// Unwrap returns the underlying error
func (e *IndexingError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v",
		e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
