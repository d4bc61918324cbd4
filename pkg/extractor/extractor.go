// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package extractor turns uploaded documents into plain text.
//
// The format is chosen from the filename extension only. Each supported
// format is handled by a Converter; PowerPoint files and unknown extensions
// fail before any content is read. Extraction is all-or-nothing: a call
// returns either the full text or one *Error.
package extractor

import (
	"fmt"
)

// File is an uploaded document. It is only read for the duration of one
// Extract call.
type File struct {
	Name     string
	MimeType string
	Content  []byte
}

// Result is the text produced from a File.
type Result struct {
	Format Format
	Text   string
}

// Converter turns the raw bytes of one document format into text.
type Converter interface {
	Convert(content []byte) (string, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(content []byte) (string, error)

// Convert calls f(content).
func (f ConverterFunc) Convert(content []byte) (string, error) {
	return f(content)
}

// Extractor dispatches files to the converter registered for their format.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	converters map[Format]Converter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter replaces the converter used for format. Presentation and
// unknown formats are rejected before converters are consulted, so
// registering one for them has no effect.
func WithConverter(format Format, c Converter) Option {
	return func(e *Extractor) {
		e.converters[format] = c
	}
}

// New returns an Extractor backed by the built-in converters.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		converters: map[Format]Converter{
			FormatText:        ConverterFunc(extractText),
			FormatPDF:         ConverterFunc(extractPDF),
			FormatWord:        ConverterFunc(extractWord),
			FormatSpreadsheet: ConverterFunc(extractSpreadsheet),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the plain text of file or an *Error.
func (e *Extractor) Extract(file File) (*Result, error) {
	format := FormatFromFilename(file.Name)
	switch format {
	case FormatUnknown:
		return nil, unsupported(file.Name)
	case FormatPresentation:
		return nil, notImplemented(file.Name)
	}

	conv, ok := e.converters[format]
	if !ok || conv == nil {
		return nil, unsupported(file.Name)
	}

	text, err := convert(conv, file.Content)
	if err != nil {
		return nil, corrupt(file.Name, format, err)
	}
	return &Result{Format: format, Text: text}, nil
}

// convert runs c and turns a parser panic into an error. Some of the
// underlying parsers index into untrusted structures without bounds checks.
func convert(c Converter, content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return c.Convert(content)
}

var defaultExtractor = New()

// ExtractText extracts plain text from content using the default converters.
func ExtractText(content []byte, filename string) (string, error) {
	res, err := defaultExtractor.Extract(File{Name: filename, Content: content})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
