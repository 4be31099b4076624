/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import "errors"

// Sentinel errors returned by the lexer, object parser and xref resolver.
// Package model wraps these into common.Error via common.NewError(common.KindParse, ...)
// at its boundary; core itself stays independent of the common.Kind taxonomy
// so it can be unit-tested without pulling in the rest of the engine.
var (
	// ErrNotANumber is returned when a numeric accessor is applied to a non-numeric object.
	ErrNotANumber = errors.New("not a number")
	// ErrTypeError is returned when an object is not of the expected type.
	ErrTypeError = errors.New("type check error")
	// ErrRangeError is returned when a value (e.g. an array index) is outside its allowed range.
	ErrRangeError = errors.New("range check error")
	// ErrParseError is a generic lexing/object-grammar violation.
	ErrParseError = errors.New("parse error")
	// ErrUnsupportedEncodingParameters is returned for a filter the engine doesn't implement.
	ErrUnsupportedEncodingParameters = errors.New("unsupported encoding parameters")
	// ErrNotSupported marks a feature explicitly out of scope (e.g. non-RC4 encryption).
	ErrNotSupported = errors.New("feature not supported")
	// ErrEncrypted is returned when an operation needs decrypted content that hasn't been decrypted.
	ErrEncrypted = errors.New("file needs to be decrypted first")
)
