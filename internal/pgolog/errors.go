// Copyright The Telegen Authors
// SPDX-License-Identifier: Apache-2.0

package pgolog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for a recognized line whose fields do not parse.
	ErrMalformed = errors.New("malformed line")

	// ErrMissingContext is returned for a call site line before any method
	// header, or a class line before any call site.
	ErrMissingContext = errors.New("line outside of its enclosing record")
)

// LineError reports the line that stopped the parse.
type LineError struct {
	Number int // 1-based
	Text   string
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("can't parse line %d %q: %v", e.Number, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
