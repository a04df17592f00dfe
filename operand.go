// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import "fmt"

// OperandType is the closed set of value categories on the operand stack.
type OperandType uint8

const (
	TypeObject OperandType = iota
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeReference
	TypeReturnAddr
	TypeVoid
)

func (t OperandType) String() string {
	switch t {
	case TypeObject:
		return "OBJECT"
	case TypeInt:
		return "INT"
	case TypeLong:
		return "LONG"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeReference:
		return "REFERENCE"
	case TypeReturnAddr:
		return "RETURN_ADDR"
	case TypeVoid:
		return "VOID"
	default:
		return fmt.Sprintf("OperandType(%d)", uint8(t))
	}
}

// IsCategory2 reports whether values of this type occupy two stack slots.
func (t OperandType) IsCategory2() bool {
	return t == TypeLong || t == TypeDouble
}

// StringRef is a REFERENCE payload naming a String constant by its stable
// 1-based pool index in the owning class file. Resolution back to text
// happens on use, so operands never point into pool entries.
type StringRef struct {
	Owner *File
	Index uint16
}

// Array is a runtime array cell referenced from the operand stack.
type Array struct {
	ElemType OperandType
	Elems    []Operand
}

// hostObject tags OBJECT sentinels pushed for host-modeled instances.
type hostObject string

// printStreamSentinel stands in for the java/io/PrintStream instance that
// java/lang/System.out resolves to.
const printStreamSentinel hostObject = "java/io/PrintStream"

// Operand is one typed value: the tag plus a payload whose dynamic type is
// fixed by the tag (int32, int64, float32, float64, *Array, StringRef,
// hostObject or nil for the null reference).
type Operand struct {
	Type  OperandType
	Value interface{}
}

// Typed constructors.

func IntOperand(v int32) Operand { return Operand{Type: TypeInt, Value: v} }

func LongOperand(v int64) Operand { return Operand{Type: TypeLong, Value: v} }

func FloatOperand(v float32) Operand { return Operand{Type: TypeFloat, Value: v} }

func DoubleOperand(v float64) Operand { return Operand{Type: TypeDouble, Value: v} }

func NullOperand() Operand { return Operand{Type: TypeReference, Value: nil} }

func ArrayOperand(a *Array) Operand { return Operand{Type: TypeReference, Value: a} }

func StringOperand(s StringRef) Operand { return Operand{Type: TypeReference, Value: s} }

func VoidOperand() Operand { return Operand{Type: TypeVoid} }

// Int returns the INT payload.
func (op Operand) Int() int32 {
	v, _ := op.Value.(int32)
	return v
}

// Long returns the LONG payload.
func (op Operand) Long() int64 {
	v, _ := op.Value.(int64)
	return v
}

// Float returns the FLOAT payload.
func (op Operand) Float() float32 {
	v, _ := op.Value.(float32)
	return v
}

// Double returns the DOUBLE payload.
func (op Operand) Double() float64 {
	v, _ := op.Value.(float64)
	return v
}

// Array returns the REFERENCE payload as an array cell, or nil.
func (op Operand) Array() *Array {
	v, _ := op.Value.(*Array)
	return v
}

// IsNull reports whether the operand is the null reference.
func (op Operand) IsNull() bool {
	return op.Type == TypeReference && op.Value == nil
}

func (op Operand) String() string {
	switch op.Type {
	case TypeReference:
		switch v := op.Value.(type) {
		case nil:
			return "null"
		case StringRef:
			return fmt.Sprintf("String#%d", v.Index)
		case *Array:
			return fmt.Sprintf("%s[%d]", v.ElemType, len(v.Elems))
		}
	case TypeVoid:
		return "void"
	}
	return fmt.Sprintf("%s(%v)", op.Type, op.Value)
}

// zeroOfType returns the zero value of an operand type; references default
// to null.
func zeroOfType(t OperandType) Operand {
	switch t {
	case TypeInt:
		return IntOperand(0)
	case TypeLong:
		return LongOperand(0)
	case TypeFloat:
		return FloatOperand(0)
	case TypeDouble:
		return DoubleOperand(0)
	default:
		return NullOperand()
	}
}

// zeroOperand returns the default value a static field of the given
// descriptor is initialized to before <clinit> runs.
func zeroOperand(descriptor string) (Operand, error) {
	t, err := ParseFieldDescriptor(descriptor)
	if err != nil {
		return Operand{}, err
	}
	return zeroOfType(t), nil
}
