// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// asBool gets the boolean value of the byte array.
func asBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			// Negative 0 is also considered false.
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// fromBool converts a boolean into the appropriate byte array.
func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}

// stack is a single LIFO sequence of byte arrays.  Index 0 always refers to
// the top item.  Items may be shared, therefore if a value is to be changed it
// must be deep-copied first to avoid changing other values on the stack.
type stack [][]byte

// depth returns the number of items on the stack.
func (s stack) depth() int {
	return len(s)
}

// at returns the item idx positions below the top of the stack.
func (s stack) at(idx int) []byte {
	return s[len(s)-1-idx]
}

// removeAt removes and returns the item idx positions below the top of the
// stack.  The items above it shift down without being reordered.
func (s *stack) removeAt(idx int) []byte {
	sz := len(*s)
	pos := sz - 1 - idx
	so := (*s)[pos]
	if idx == 0 {
		*s = (*s)[:pos]
	} else {
		copy((*s)[pos:], (*s)[pos+1:])
		(*s)[sz-1] = nil
		*s = (*s)[:sz-1]
	}
	return so
}

// insertAt places so so that it ends up idx positions below the top.
func (s *stack) insertAt(idx int, so []byte) {
	pos := len(*s) - idx
	*s = append(*s, nil)
	copy((*s)[pos+1:], (*s)[pos:])
	(*s)[pos] = so
}

// opStack is the mutable stack handle threaded through every opcode of a
// single script execution.  It couples the main data stack with the
// alternate stack so that the combined item ceiling and the per-item size
// ceiling are enforced on every push.
type opStack struct {
	main stack
	alt  stack

	verifyMinimalData bool
}

// checkPush returns an error when adding n more items of which the largest is
// maxLen bytes would breach either ceiling.
func (s *opStack) checkPush(n, maxLen int) error {
	if maxLen > MaxScriptElementSize {
		str := fmt.Sprintf("element size %d exceeds max allowed size %d",
			maxLen, MaxScriptElementSize)
		return scriptError(ErrElementTooBig, str)
	}
	combined := len(s.main) + len(s.alt) + n
	if combined > MaxStackSize {
		str := fmt.Sprintf("combined stack size %d > max allowed %d",
			combined, MaxStackSize)
		return scriptError(ErrStackOverflow, str)
	}
	return nil
}

// checkDepth returns an underflow error unless the main stack holds at least
// n items.
func (s *opStack) checkDepth(n int) error {
	if n < 0 {
		str := fmt.Sprintf("attempt to access negative stack depth %d", n)
		return scriptError(ErrInvalidStackOperation, str)
	}
	if n > len(s.main) {
		str := fmt.Sprintf("operation requires %d items but stack "+
			"has only %d", n, len(s.main))
		return scriptError(ErrStackUnderflow, str)
	}
	return nil
}

// checkIndex returns an error unless idx addresses an existing item.
func (s *opStack) checkIndex(idx int) error {
	if idx < 0 {
		str := fmt.Sprintf("attempt to access negative stack index %d",
			idx)
		return scriptError(ErrInvalidStackOperation, str)
	}
	if idx >= len(s.main) {
		str := fmt.Sprintf("index %d is invalid for stack size %d", idx,
			len(s.main))
		return scriptError(ErrStackUnderflow, str)
	}
	return nil
}

// ItemCount returns the number of items on the main stack.
func (s *opStack) ItemCount() int {
	return len(s.main)
}

// AltItemCount returns the number of items on the alternate stack.
func (s *opStack) AltItemCount() int {
	return len(s.alt)
}

// Push adds the given byte array to the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 data]
func (s *opStack) Push(so []byte) error {
	if err := s.checkPush(1, len(so)); err != nil {
		return err
	}
	s.main = append(s.main, so)
	return nil
}

// PushN adds the given byte arrays to the stack in order, so the last one
// ends up on top.  Nothing is pushed when any of them would breach a limit.
func (s *opStack) PushN(items ...[]byte) error {
	maxLen := 0
	for _, item := range items {
		if len(item) > maxLen {
			maxLen = len(item)
		}
	}
	if err := s.checkPush(len(items), maxLen); err != nil {
		return err
	}
	s.main = append(s.main, items...)
	return nil
}

// PushInt converts the provided scriptNum to a suitable byte array then pushes
// it onto the top of the stack.
func (s *opStack) PushInt(val scriptNum) error {
	return s.Push(val.Bytes())
}

// PushBool converts the provided boolean to a suitable byte array then pushes
// it onto the top of the stack.
func (s *opStack) PushBool(val bool) error {
	return s.Push(fromBool(val))
}

// Insert places data so that it ends up idx positions below the top of the
// stack.  An idx equal to the item count places it at the bottom.
func (s *opStack) Insert(idx int, so []byte) error {
	if idx < 0 || idx > len(s.main) {
		str := fmt.Sprintf("insert index %d is invalid for stack size %d",
			idx, len(s.main))
		return scriptError(ErrInvalidStackOperation, str)
	}
	if err := s.checkPush(1, len(so)); err != nil {
		return err
	}
	s.main.insertAt(idx, so)
	return nil
}

// Pop pops the value off the top of the stack and returns it.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *opStack) Pop() ([]byte, error) {
	return s.PopAt(0)
}

// PopN removes the top n items and returns them with the former top item
// first.
func (s *opStack) PopN(n int) ([][]byte, error) {
	if err := s.checkDepth(n); err != nil {
		return nil, err
	}
	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		items[i] = s.main.removeAt(0)
	}
	return items, nil
}

// PopAt removes and returns the item idx positions below the top.  The items
// above it shift down without being reordered.
func (s *opStack) PopAt(idx int) ([]byte, error) {
	if err := s.checkIndex(idx); err != nil {
		return nil, err
	}
	return s.main.removeAt(idx), nil
}

// PopInt pops the value off the top of the stack, converts it into a script
// num, and returns it.  The act of converting to a script num enforces the
// consensus rules imposed on data interpreted as numbers.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *opStack) PopInt() (scriptNum, error) {
	so, err := s.Pop()
	if err != nil {
		return 0, err
	}

	return MakeScriptNum(so, s.verifyMinimalData, defaultScriptNumLen)
}

// PopBool pops the value off the top of the stack, converts it into a bool, and
// returns it.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *opStack) PopBool() (bool, error) {
	so, err := s.Pop()
	if err != nil {
		return false, err
	}

	return asBool(so), nil
}

// Peek returns the top item without removing it.
func (s *opStack) Peek() ([]byte, error) {
	return s.PeekAt(0)
}

// PeekN returns the top n items, top first, without removing them.
func (s *opStack) PeekN(n int) ([][]byte, error) {
	if err := s.checkDepth(n); err != nil {
		return nil, err
	}
	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		items[i] = s.main.at(i)
	}
	return items, nil
}

// PeekAt returns the Nth item on the stack without removing it.
func (s *opStack) PeekAt(idx int) ([]byte, error) {
	if err := s.checkIndex(idx); err != nil {
		return nil, err
	}
	return s.main.at(idx), nil
}

// PeekInt returns the Nth item on the stack as a script num without removing
// it.  The act of converting to a script num enforces the consensus rules
// imposed on data interpreted as numbers.
func (s *opStack) PeekInt(idx int) (scriptNum, error) {
	so, err := s.PeekAt(idx)
	if err != nil {
		return 0, err
	}

	return MakeScriptNum(so, s.verifyMinimalData, defaultScriptNumLen)
}

// PeekBool returns the Nth item on the stack as a bool without removing it.
func (s *opStack) PeekBool(idx int) (bool, error) {
	so, err := s.PeekAt(idx)
	if err != nil {
		return false, err
	}

	return asBool(so), nil
}

// AltPush moves data onto the alternate stack.
func (s *opStack) AltPush(so []byte) error {
	if err := s.checkPush(1, len(so)); err != nil {
		return err
	}
	s.alt = append(s.alt, so)
	return nil
}

// AltPop removes and returns the top item of the alternate stack.
func (s *opStack) AltPop() ([]byte, error) {
	if len(s.alt) == 0 {
		return nil, scriptError(ErrStackUnderflow,
			"alternate stack is empty")
	}
	return s.alt.removeAt(0), nil
}

// NipN removes the Nth object on the stack
//
// Stack transformation:
// NipN(0): [... x1 x2 x3] -> [... x1 x2]
// NipN(1): [... x1 x2 x3] -> [... x1 x3]
// NipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s *opStack) NipN(idx int) error {
	_, err := s.PopAt(idx)
	return err
}

// Tuck copies the item at the top of the stack and inserts it before the 2nd
// to top item.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func (s *opStack) Tuck() error {
	if err := s.checkDepth(2); err != nil {
		return err
	}
	return s.Insert(2, s.main.at(0))
}

// DropN removes the top N items from the stack.
//
// Stack transformation:
// DropN(1): [... x1 x2] -> [... x1]
// DropN(2): [... x1 x2] -> [...]
func (s *opStack) DropN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to drop %d items from stack", n)
		return scriptError(ErrInternal, str)
	}
	_, err := s.PopN(n)
	return err
}

// DupN duplicates the top N items on the stack.
//
// Stack transformation:
// DupN(1): [... x1 x2] -> [... x1 x2 x2]
// DupN(2): [... x1 x2] -> [... x1 x2 x1 x2]
func (s *opStack) DupN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to dup %d stack items", n)
		return scriptError(ErrInternal, str)
	}
	if err := s.checkDepth(n); err != nil {
		return err
	}

	// Iteratively duplicate the value n-1 down the stack n times.
	// This leaves an in-order duplicate of the top n items on the stack.
	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		items[i] = s.main.at(n - 1 - i)
	}
	return s.PushN(items...)
}

// RotN rotates the top 3N items on the stack to the left N times.
//
// Stack transformation:
// RotN(1): [... x1 x2 x3] -> [... x2 x3 x1]
// RotN(2): [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func (s *opStack) RotN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to rotate %d stack items", n)
		return scriptError(ErrInternal, str)
	}
	if err := s.checkDepth(3 * n); err != nil {
		return err
	}

	// Nip the 3n-1th item from the stack to the top n times to rotate
	// them up to the head of the stack.
	entry := 3*n - 1
	for i := n; i > 0; i-- {
		s.main = append(s.main, s.main.removeAt(entry))
	}
	return nil
}

// SwapN swaps the top N items on the stack with those below them.
//
// Stack transformation:
// SwapN(1): [... x1 x2] -> [... x2 x1]
// SwapN(2): [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func (s *opStack) SwapN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to swap %d stack items", n)
		return scriptError(ErrInternal, str)
	}
	if err := s.checkDepth(2 * n); err != nil {
		return err
	}

	entry := 2*n - 1
	for i := n; i > 0; i-- {
		// Swap 2n-1th entry to top.
		s.main = append(s.main, s.main.removeAt(entry))
	}
	return nil
}

// OverN copies N items N items back to the top of the stack.
//
// Stack transformation:
// OverN(1): [... x1 x2 x3] -> [... x1 x2 x3 x2]
// OverN(2): [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func (s *opStack) OverN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to perform over on %d stack items",
			n)
		return scriptError(ErrInternal, str)
	}
	if err := s.checkDepth(2 * n); err != nil {
		return err
	}

	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		items[i] = s.main.at(2*n - 1 - i)
	}
	return s.PushN(items...)
}

// PickN copies the item N items back in the stack to the top.
//
// Stack transformation:
// PickN(0): [x1 x2 x3] -> [x1 x2 x3 x3]
// PickN(1): [x1 x2 x3] -> [x1 x2 x3 x2]
// PickN(2): [x1 x2 x3] -> [x1 x2 x3 x1]
func (s *opStack) PickN(n int) error {
	so, err := s.PeekAt(n)
	if err != nil {
		return err
	}

	return s.Push(so)
}

// RollN moves the item N items back in the stack to the top.
//
// Stack transformation:
// RollN(0): [x1 x2 x3] -> [x1 x2 x3]
// RollN(1): [x1 x2 x3] -> [x1 x3 x2]
// RollN(2): [x1 x2 x3] -> [x2 x3 x1]
func (s *opStack) RollN(n int) error {
	so, err := s.PopAt(n)
	if err != nil {
		return err
	}

	return s.Push(so)
}

// String returns the stack in a readable format.
func (s *opStack) String() string {
	var result strings.Builder
	for _, stack := range s.main {
		if len(stack) == 0 {
			result.WriteString("00000000  <empty>\n")
		}
		result.WriteString(hex.Dump(stack))
	}

	return result.String()
}
