// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import "fmt"

// ParseFieldDescriptor maps a field descriptor to its operand type.
// B, C, I, S and Z all widen to INT on the operand stack.
func ParseFieldDescriptor(descriptor string) (OperandType, error) {
	t, rest, err := parseOneType(descriptor)
	if err != nil {
		return TypeVoid, err
	}
	if rest != "" {
		return TypeVoid, fmt.Errorf("trailing characters %q in field descriptor %q: %w",
			rest, descriptor, ErrInvalidDescriptor)
	}
	return t, nil
}

// ParseMethodDescriptor splits a method descriptor of the form (…)R into
// the parameter operand types and the return operand type.
func ParseMethodDescriptor(descriptor string) (args []OperandType, ret OperandType, err error) {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return nil, TypeVoid, fmt.Errorf("method descriptor %q does not open with '(': %w",
			descriptor, ErrInvalidDescriptor)
	}

	rest := descriptor[1:]
	for {
		if rest == "" {
			return nil, TypeVoid, fmt.Errorf("method descriptor %q misses ')': %w",
				descriptor, ErrInvalidDescriptor)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		var t OperandType
		if t, rest, err = parseOneType(rest); err != nil {
			return nil, TypeVoid, err
		}
		args = append(args, t)
	}

	if rest == "V" {
		return args, TypeVoid, nil
	}
	if ret, rest, err = parseOneType(rest); err != nil {
		return nil, TypeVoid, err
	}
	if rest != "" {
		return nil, TypeVoid, fmt.Errorf("trailing characters %q in method descriptor %q: %w",
			rest, descriptor, ErrInvalidDescriptor)
	}
	return args, ret, nil
}

// parseOneType consumes one type from the front of a descriptor and returns
// the remainder.
func parseOneType(s string) (OperandType, string, error) {
	if s == "" {
		return TypeVoid, "", fmt.Errorf("empty descriptor: %w", ErrInvalidDescriptor)
	}
	switch s[0] {
	case 'B', 'C', 'I', 'S', 'Z':
		return TypeInt, s[1:], nil
	case 'J':
		return TypeLong, s[1:], nil
	case 'F':
		return TypeFloat, s[1:], nil
	case 'D':
		return TypeDouble, s[1:], nil
	case 'L':
		for i := 1; i < len(s); i++ {
			if s[i] == ';' {
				if i == 1 {
					return TypeVoid, "", fmt.Errorf("empty class name in descriptor %q: %w",
						s, ErrInvalidDescriptor)
				}
				return TypeReference, s[i+1:], nil
			}
		}
		return TypeVoid, "", fmt.Errorf("unterminated class name in descriptor %q: %w",
			s, ErrInvalidDescriptor)
	case '[':
		// Arrays are references; descend to validate the element type.
		_, rest, err := parseOneType(s[1:])
		if err != nil {
			return TypeVoid, "", err
		}
		return TypeReference, rest, nil
	default:
		return TypeVoid, "", fmt.Errorf("unknown descriptor character %q: %w",
			s[0], ErrInvalidDescriptor)
	}
}
