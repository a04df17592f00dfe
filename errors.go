// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import "errors"

// Errors
var (

	// ErrMalformedClassFile is returned on a bad magic number, a truncated
	// input or an unknown constant-pool tag.
	ErrMalformedClassFile = errors.New("malformed class file")

	// ErrUnsupportedAttribute is returned when an attribute name is not
	// recognized and Options.KeepUnknownAttributes is off.
	ErrUnsupportedAttribute = errors.New("unsupported attribute")

	// ErrUnsupportedOpcode is returned when the interpreter meets an opcode
	// outside the implemented subset, and for every invokedynamic call site
	// once it has been resolved.
	ErrUnsupportedOpcode = errors.New("unsupported opcode")

	// ErrStackUnderflow is returned when an opcode pops from an empty
	// operand stack.
	ErrStackUnderflow = errors.New("operand stack underflow")

	// ErrStackOverflow is returned when a push would exceed the max_stack
	// declared by the Code attribute.
	ErrStackOverflow = errors.New("operand stack exceeds max_stack")

	// ErrTypeMismatch is returned when an operand does not carry the type
	// an opcode requires.
	ErrTypeMismatch = errors.New("operand type mismatch")

	// ErrDivideByZero is returned by idiv with a zero divisor.
	ErrDivideByZero = errors.New("integer division by zero")

	// ErrOutOfBoundsArrayAccess is returned when an array index is negative
	// or past the array length.
	ErrOutOfBoundsArrayAccess = errors.New("array index out of bounds")

	// ErrUnresolvedSymbol is returned when a constant-pool entry, class,
	// method or field cannot be resolved.
	ErrUnresolvedSymbol = errors.New("unresolved symbol")

	// ErrUnsupportedHostCall is returned for an invokevirtual target, or a
	// printed value, the host does not model.
	ErrUnsupportedHostCall = errors.New("unsupported host call")

	// ErrInvalidDescriptor is returned for a field or method descriptor
	// that does not follow the descriptor grammar.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrClassInitFailure is returned when running a <clinit> initializer
	// fails.
	ErrClassInitFailure = errors.New("class initialization failed")

	// ErrLocalOutOfRange is returned when a local-variable index is outside
	// [0, max_locals).
	ErrLocalOutOfRange = errors.New("local variable index out of range")
)
