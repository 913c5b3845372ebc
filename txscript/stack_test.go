// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStackOps tests that the stack operations produce the expected stacks
// and errors.
func TestStackOps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		before    [][]byte
		operation func(*opStack) error
		errCode   ErrorCode
		after     [][]byte
	}{{
		name:   "pop",
		before: [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error {
			v, err := s.Pop()
			if err == nil && !bytes.Equal(v, []byte{3}) {
				return scriptError(ErrVerify, "wrong item")
			}
			return err
		},
		after: [][]byte{{1}, {2}},
	}, {
		name:      "pop underflow",
		before:    nil,
		operation: func(s *opStack) error { _, err := s.Pop(); return err },
		errCode:   ErrStackUnderflow,
	}, {
		name:      "peek negative",
		before:    [][]byte{{1}},
		operation: func(s *opStack) error { _, err := s.PeekAt(-1); return err },
		errCode:   ErrInvalidStackOperation,
		after:     [][]byte{{1}},
	}, {
		name:      "dup2",
		before:    [][]byte{{1}, {2}},
		operation: func(s *opStack) error { return s.DupN(2) },
		after:     [][]byte{{1}, {2}, {1}, {2}},
	}, {
		name:      "dup3 underflow",
		before:    [][]byte{{1}, {2}},
		operation: func(s *opStack) error { return s.DupN(3) },
		errCode:   ErrStackUnderflow,
		after:     [][]byte{{1}, {2}},
	}, {
		name:      "rot",
		before:    [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error { return s.RotN(1) },
		after:     [][]byte{{2}, {3}, {1}},
	}, {
		name:      "2rot",
		before:    [][]byte{{1}, {2}, {3}, {4}, {5}, {6}},
		operation: func(s *opStack) error { return s.RotN(2) },
		after:     [][]byte{{3}, {4}, {5}, {6}, {1}, {2}},
	}, {
		name:      "swap",
		before:    [][]byte{{1}, {2}},
		operation: func(s *opStack) error { return s.SwapN(1) },
		after:     [][]byte{{2}, {1}},
	}, {
		name:      "2swap",
		before:    [][]byte{{1}, {2}, {3}, {4}},
		operation: func(s *opStack) error { return s.SwapN(2) },
		after:     [][]byte{{3}, {4}, {1}, {2}},
	}, {
		name:      "over",
		before:    [][]byte{{1}, {2}},
		operation: func(s *opStack) error { return s.OverN(1) },
		after:     [][]byte{{1}, {2}, {1}},
	}, {
		name:      "2over",
		before:    [][]byte{{1}, {2}, {3}, {4}},
		operation: func(s *opStack) error { return s.OverN(2) },
		after:     [][]byte{{1}, {2}, {3}, {4}, {1}, {2}},
	}, {
		name:      "nip",
		before:    [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error { return s.NipN(1) },
		after:     [][]byte{{1}, {3}},
	}, {
		name:      "tuck",
		before:    [][]byte{{1}, {2}},
		operation: func(s *opStack) error { return s.Tuck() },
		after:     [][]byte{{2}, {1}, {2}},
	}, {
		name:      "pick",
		before:    [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error { return s.PickN(2) },
		after:     [][]byte{{1}, {2}, {3}, {1}},
	}, {
		name:      "roll",
		before:    [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error { return s.RollN(2) },
		after:     [][]byte{{2}, {3}, {1}},
	}, {
		name:      "roll out of range",
		before:    [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error { return s.RollN(3) },
		errCode:   ErrStackUnderflow,
		after:     [][]byte{{1}, {2}, {3}},
	}, {
		name:      "drop 2",
		before:    [][]byte{{1}, {2}, {3}},
		operation: func(s *opStack) error { return s.DropN(2) },
		after:     [][]byte{{1}},
	}, {
		name:   "pop bool negative zero",
		before: [][]byte{{0x00, 0x80}},
		operation: func(s *opStack) error {
			v, err := s.PopBool()
			if err == nil && v {
				return scriptError(ErrVerify, "negative zero is true")
			}
			return err
		},
		after: [][]byte{},
	}}

	for _, test := range tests {
		var s opStack
		s.main = append(stack(nil), test.before...)

		err := test.operation(&s)
		if test.errCode != ErrInternal || err != nil {
			require.Truef(t, IsErrorCode(err, test.errCode),
				"%s: unexpected error %v", test.name, err)
			if test.after == nil {
				continue
			}
		}

		require.Lenf(t, s.main, len(test.after), test.name)
		for i := range test.after {
			require.Equalf(t, test.after[i], s.main[i], "%s: item %d",
				test.name, i)
		}
	}
}

// TestStackLimits ensures the combined item count and element size ceilings
// are enforced when items are pushed.
func TestStackLimits(t *testing.T) {
	t.Parallel()

	var s opStack
	item := bytes.Repeat([]byte{0x01}, MaxScriptElementSize)
	for i := 0; i < MaxStackSize; i++ {
		require.NoError(t, s.Push(item))
	}
	require.Equal(t, MaxStackSize, s.ItemCount())

	err := s.Push(nil)
	require.True(t, IsErrorCode(err, ErrStackOverflow), err)

	// The alt stack counts toward the same ceiling.
	_, err = s.Pop()
	require.NoError(t, err)
	require.NoError(t, s.AltPush([]byte{0x01}))
	err = s.Push(nil)
	require.True(t, IsErrorCode(err, ErrStackOverflow), err)

	var small opStack
	err = small.Push(make([]byte, MaxScriptElementSize+1))
	require.True(t, IsErrorCode(err, ErrElementTooBig), err)
	require.Zero(t, small.ItemCount())
}

// TestAsBool ensures all encodings of zero are false.
func TestAsBool(t *testing.T) {
	t.Parallel()

	require.False(t, asBool(nil))
	require.False(t, asBool([]byte{0x00, 0x00}))
	require.False(t, asBool([]byte{0x80}))
	require.False(t, asBool([]byte{0x00, 0x80}))
	require.True(t, asBool([]byte{0x80, 0x00}))
	require.True(t, asBool([]byte{0x01}))
}
