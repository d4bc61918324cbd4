// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"errors"
	"fmt"
)

// Kind classifies an extraction failure.
type Kind int

const (
	KindUnsupportedFormat Kind = iota + 1
	KindCorruptOrUnreadable
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindCorruptOrUnreadable:
		return "corrupt_or_unreadable"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrUnsupportedFormat   = errors.New("unsupported file type")
	ErrCorruptOrUnreadable = errors.New("corrupt or unreadable file")
	ErrNotImplemented      = errors.New("format not implemented")
)

const (
	msgUnsupported = "Unsupported file type"
	msgPowerPoint  = "PowerPoint files are not supported. Please convert to PDF first."
)

// Error is the single failure returned by Extract. Message is safe to show
// to the user verbatim.
type Error struct {
	Kind     Kind
	Filename string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindUnsupportedFormat:
		return target == ErrUnsupportedFormat
	case KindCorruptOrUnreadable:
		return target == ErrCorruptOrUnreadable
	case KindNotImplemented:
		return target == ErrNotImplemented
	}
	return false
}

// KindOf returns the Kind of err, or 0 when err is not an extraction error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func unsupported(filename string) *Error {
	return &Error{Kind: KindUnsupportedFormat, Filename: filename, Message: msgUnsupported}
}

func notImplemented(filename string) *Error {
	return &Error{Kind: KindNotImplemented, Filename: filename, Message: msgPowerPoint}
}

func corrupt(filename string, format Format, err error) *Error {
	return &Error{
		Kind:     KindCorruptOrUnreadable,
		Filename: filename,
		Message:  fmt.Sprintf("Failed to read %s file", format),
		Err:      err,
	}
}
