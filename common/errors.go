/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package common

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies the errors the engine can return from convert_pdf.
// Every non-nil error returned across a package boundary carries one
// of these so that callers can branch on failure mode without string
// matching.
type Kind int

const (
	// KindParse is a syntactic violation in PDF lexing, object parsing or xref resolution.
	KindParse Kind = iota
	// KindFont means a font could not be extracted or decoded.
	KindFont
	// KindRender means an internal invariant was violated while rendering a page.
	KindRender
	// KindText means the text extractor could not integrate a span.
	KindText
	// KindIO means reading input or writing output failed.
	KindIO
	// KindConfig means an option is outside its allowed range.
	KindConfig
	// KindZipBomb means decompression would exceed the configured ratio or ceiling.
	KindZipBomb
	// KindTimeout means the deadline expired at a page boundary.
	KindTimeout
	// KindUnsupported means a filter, encryption revision or feature isn't implemented.
	KindUnsupported
)

// String returns the taxonomy name used in log lines and CLI output.
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindFont:
		return "FontError"
	case KindRender:
		return "RenderError"
	case KindText:
		return "TextError"
	case KindIO:
		return "IoError"
	case KindConfig:
		return "ConfigError"
	case KindZipBomb:
		return "ZipBomb"
	case KindTimeout:
		return "Timeout"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "UnknownError"
	}
}

// Error is the engine's single error type. It is always constructed
// through one of the New* helpers so Kind is never left at its zero value
// by accident.
type Error struct {
	Kind  Kind
	Msg   string
	cause error

	// Ratio is populated only for KindZipBomb; the observed decompressed:compressed
	// ratio that tripped the detector.
	Ratio float64
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind: errors.Is(err, &Error{Kind: k}) holds when any *Error of
// kind k is in err's chain (IsKind only looks at the first *Error it finds).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// NewError builds an *Error of the given kind wrapping cause (which may be nil).
// It uses xerrors.Errorf so the resulting cause chain carries call-site frame
// information when %w is used deeper in the stack.
func NewError(kind Kind, msg string, cause error) *Error {
	if cause != nil {
		cause = xerrors.Errorf("%s: %w", msg, cause)
	}
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// NewZipBombError builds a KindZipBomb error carrying the observed ratio.
func NewZipBombError(msg string, ratio float64) *Error {
	return &Error{Kind: KindZipBomb, Msg: msg, Ratio: ratio}
}

// IsKind reports whether err (or something it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
