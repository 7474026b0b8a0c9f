// Package apperr defines the error kinds surfaced by the filing pipeline.
//
// Every failure that leaves the pipeline carries one Kind so callers can branch
// with errors.Is(err, apperr.NotFound) instead of matching message text.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// NotFound: missing filing directory, template key or persisted index.
	NotFound Kind = "NOT_FOUND"
	// InvalidInput: malformed company symbol or unsupported filing type.
	InvalidInput Kind = "INVALID_INPUT"
	// UpstreamUnavailable: embedding, completion or filter translation failed.
	UpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	// Degraded: a section could not be located. Reported, never fatal.
	Degraded Kind = "DEGRADED"
)

// Error implements error so a Kind can be used as an errors.Is target.
func (k Kind) Error() string {
	return strings.ToLower(strings.ReplaceAll(string(k), "_", " "))
}

// Error is a classified failure with enough context to diagnose it.
// It deliberately carries no filesystem paths.
type Error struct {
	Kind       Kind
	Op         string // e.g. "query.Execute"
	Symbol     string
	FilingType string
	Key        string
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}

	var ctx []string
	if e.Symbol != "" {
		ctx = append(ctx, "symbol="+e.Symbol)
	}
	if e.FilingType != "" {
		ctx = append(ctx, "filing_type="+e.FilingType)
	}
	if e.Key != "" {
		ctx = append(ctx, fmt.Sprintf("key=%q", e.Key))
	}
	if len(ctx) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(ctx, ", "))
		sb.WriteString(")")
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New creates a classified error with a message.
func New(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// For attaches company context.
func (e *Error) For(symbol, filingType string) *Error {
	e.Symbol = symbol
	e.FilingType = filingType
	return e
}

// WithKey attaches the template key.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// Annotate fills in missing company context on an already classified error
// and returns it unchanged otherwise.
func Annotate(err error, symbol, filingType string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Symbol == "" {
			e.Symbol = symbol
		}
		if e.FilingType == "" {
			e.FilingType = filingType
		}
	}
	return err
}
