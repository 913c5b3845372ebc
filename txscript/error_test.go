// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinframe/btcproto/wire"
)

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ErrInternal", ErrInternal.String())
	require.Equal(t, "ErrStackOverflow", ErrStackOverflow.String())
	require.Equal(t, "Unknown ErrorCode (65535)", ErrorCode(0xffff).String())

	// Detect additional error codes that don't have the stringer added.
	require.Len(t, errorCodeStrings, int(numErrorCodes))
}

// TestErrorKind ensures script errors map onto the shared failure classes.
func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ErrorCode
		kind wire.ErrorKind
	}{
		{ErrStackOverflow, wire.ErrLimitExceeded},
		{ErrElementTooBig, wire.ErrLimitExceeded},
		{ErrScriptTooBig, wire.ErrLimitExceeded},
		{ErrMalformedPush, wire.ErrStreamTruncated},
		{ErrEvalFalse, wire.ErrSemanticFailure},
		{ErrStackUnderflow, wire.ErrSemanticFailure},
		{ErrSigHighS, wire.ErrFormatViolation},
		{ErrDisabledOpcode, wire.ErrFormatViolation},
	}
	for _, test := range tests {
		err := fmt.Errorf("wrapped: %w", scriptError(test.code, "desc"))
		require.Equalf(t, test.kind, ErrorKindOf(err), test.code.String())
		require.Truef(t, IsErrorCode(err, test.code), test.code.String())
	}

	require.Equal(t, wire.ErrSemanticFailure, ErrorKindOf(errors.New("other")))
	require.False(t, IsErrorCode(errors.New("other"), ErrInternal))
}
