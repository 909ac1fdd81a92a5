// Package lsperrors is the error taxonomy shared by the cache, indexing,
// storage, and dispatch layers. Each error family embeds a Kind, carries the
// context that made it actionable (file, request id, cache key), and
// unwraps to its cause for errors.Is/errors.As.
package lsperrors

import (
	"fmt"
	"time"
)

// Kind classifies an error for logging and for JSON-RPC error-code mapping.
type Kind string

const (
	KindParse     Kind = "parse"
	KindIndex     Kind = "index"
	KindCache     Kind = "cache"
	KindDocument  Kind = "document"
	KindDispatch  Kind = "dispatch"
	KindConfig    Kind = "config"
	KindInternal  Kind = "internal"
)

// ParseError represents a failure to parse a source file, including a
// recovered parser panic (ParseError{Kind: internal}).
type ParseError struct {
	Kind        Kind
	File        string
	Line        int
	Column      int
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

func NewParseError(file string, line, column int, err error) *ParseError {
	return &ParseError{
		Kind:       KindParse,
		File:       file,
		Line:       line,
		Column:     column,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ParseError) WithRecoverable(r bool) *ParseError {
	e.Recoverable = r
	return e
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d:%d: %v", e.File, e.Line, e.Column, e.Underlying)
}

func (e *ParseError) Unwrap() error { return e.Underlying }

// IndexError represents a failure while scanning, extracting, or writing
// symbols for a file during initial scan or incremental update.
type IndexError struct {
	Kind        Kind
	File        string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

func NewIndexError(op, file string, err error) *IndexError {
	return &IndexError{
		Kind:       KindIndex,
		Operation:  op,
		File:       file,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *IndexError) WithRecoverable(r bool) *IndexError {
	e.Recoverable = r
	return e
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s failed for %s: %v", e.Operation, e.File, e.Underlying)
}

func (e *IndexError) Unwrap() error { return e.Underlying }

// CacheError represents a failure in the parse cache or dependency cache:
// eviction bookkeeping, singleflight construction, or a build-descriptor
// read.
type CacheError struct {
	Kind       Kind
	CacheKey   string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewCacheError(op, key string, err error) *CacheError {
	return &CacheError{
		Kind:       KindCache,
		Operation:  op,
		CacheKey:   key,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for key %s: %v", e.Operation, e.CacheKey, e.Underlying)
}

func (e *CacheError) Unwrap() error { return e.Underlying }

// DocumentError represents a failure in the document store: an out-of-order
// version, an edit applied to an unopened uri, or a malformed range.
type DocumentError struct {
	Kind       Kind
	URI        string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewDocumentError(op, uri string, err error) *DocumentError {
	return &DocumentError{
		Kind:       KindDocument,
		Operation:  op,
		URI:        uri,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s failed for %s: %v", e.Operation, e.URI, e.Underlying)
}

func (e *DocumentError) Unwrap() error { return e.Underlying }

// DispatchError represents a JSON-RPC framing or routing failure. Code
// follows the JSON-RPC 2.0 reserved ranges plus the LSP extensions
// (RequestCancelled = -32800).
type DispatchError struct {
	Kind       Kind
	Code       int
	Method     string
	Underlying error
	Timestamp  time.Time
}

func NewDispatchError(method string, code int, err error) *DispatchError {
	return &DispatchError{
		Kind:       KindDispatch,
		Code:       code,
		Method:     method,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error (%d) in %s: %v", e.Code, e.Method, e.Underlying)
}

func (e *DispatchError) Unwrap() error { return e.Underlying }

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeRequestCancelled = -32800
)

// ConfigError represents a malformed or missing configuration value.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %q): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// MultiError aggregates independent errors from a fan-out operation (e.g.
// the initial workspace scan), preserving each for errors.Is/As via Unwrap.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
	}
}

func (e *MultiError) Unwrap() []error { return e.Errors }
