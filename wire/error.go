// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
	"io"
)

// ErrorKind classifies a MessageError so the transport can decide what to do
// with the offending connection without parsing error strings.
type ErrorKind int

const (
	// ErrStreamTruncated indicates the input ended before a complete field
	// or message could be read.
	ErrStreamTruncated ErrorKind = iota

	// ErrFormatViolation indicates a malformed field such as a bad network
	// magic, an invalid command name or a non-canonical variable length
	// integer.
	ErrFormatViolation

	// ErrLimitExceeded indicates a size or count exceeded its protocol
	// ceiling, for example the payload size or the number of hashes in a
	// block locator.
	ErrLimitExceeded

	// ErrSemanticFailure indicates a well-formed message that is
	// nevertheless inconsistent, such as a checksum mismatch or a payload
	// that does not consume exactly the length declared in its header.
	ErrSemanticFailure
)

// Map of ErrorKind values back to their constant names for pretty printing.
var errorKindStrings = map[ErrorKind]string{
	ErrStreamTruncated: "ErrStreamTruncated",
	ErrFormatViolation: "ErrFormatViolation",
	ErrLimitExceeded:   "ErrLimitExceeded",
	ErrSemanticFailure: "ErrSemanticFailure",
}

// String returns the ErrorKind as a human-readable name.
func (k ErrorKind) String() string {
	if s := errorKindStrings[k]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorKind (%d)", int(k))
}

// MessageError describes an issue with a message.  An example of some potential
// issues are messages from the wrong bitcoin network, invalid commands,
// mismatched checksums, and exceeding max payloads.
//
// This provides a mechanism for the caller to type assert the error to
// differentiate between general io errors such as io.EOF and issues that
// resulted from malformed messages.
type MessageError struct {
	Func        string    // Function name
	Kind        ErrorKind // Classification of the failure
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// messageError creates an error for the given function, kind and description.
func messageError(f string, kind ErrorKind, desc string) *MessageError {
	return &MessageError{Func: f, Kind: kind, Description: desc}
}

// IsErrorKind returns whether err is a MessageError of the given kind.  Short
// reads reported by the io package are treated as ErrStreamTruncated.
func IsErrorKind(err error, kind ErrorKind) bool {
	var msgErr *MessageError
	if errors.As(err, &msgErr) {
		return msgErr.Kind == kind
	}
	if kind == ErrStreamTruncated {
		return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	}
	return false
}

// truncationError converts short reads from the io package into a
// MessageError of kind ErrStreamTruncated and passes every other error
// through untouched.
func truncationError(f string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return messageError(f, ErrStreamTruncated, err.Error())
	}
	return err
}
