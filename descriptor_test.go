// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		in       string
		wantArgs []OperandType
		wantRet  OperandType
	}{
		{"()V", nil, TypeVoid},
		{"(II)I", []OperandType{TypeInt, TypeInt}, TypeInt},
		{"(IJFD)V", []OperandType{TypeInt, TypeLong, TypeFloat, TypeDouble}, TypeVoid},
		{"(BCSZ)I", []OperandType{TypeInt, TypeInt, TypeInt, TypeInt}, TypeInt},
		{"(Ljava/lang/String;)V", []OperandType{TypeReference}, TypeVoid},
		{"([Ljava/lang/String;)V", []OperandType{TypeReference}, TypeVoid},
		{"([[I)[I", []OperandType{TypeReference}, TypeReference},
		{"(ILjava/lang/Object;F)Ljava/lang/Object;",
			[]OperandType{TypeInt, TypeReference, TypeFloat}, TypeReference},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			args, ret, err := ParseMethodDescriptor(tt.in)
			if err != nil {
				t.Fatalf("ParseMethodDescriptor(%q) failed, reason: %v", tt.in, err)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
			if ret != tt.wantRet {
				t.Errorf("return = %v, want %v", ret, tt.wantRet)
			}
		})
	}
}

func TestParseMethodDescriptorMalformed(t *testing.T) {
	tests := []string{
		"",
		"I",          // no parameter list
		"(I",         // unclosed
		"()",         // no return type
		"(Q)V",       // unknown type char
		"(L;)V",      // empty class name
		"(Ljava)V",   // unterminated class name
		"()VV",       // trailing characters
		"(I)II",      // trailing characters after return
		"([)V",       // array of nothing
		"(V)V",       // void parameter
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, _, err := ParseMethodDescriptor(in); !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("ParseMethodDescriptor(%q) gave %v, want ErrInvalidDescriptor", in, err)
			}
		})
	}
}

func TestParseFieldDescriptor(t *testing.T) {
	tests := []struct {
		in   string
		want OperandType
	}{
		{"I", TypeInt},
		{"Z", TypeInt},
		{"J", TypeLong},
		{"F", TypeFloat},
		{"D", TypeDouble},
		{"Ljava/io/PrintStream;", TypeReference},
		{"[I", TypeReference},
		{"[[Ljava/lang/String;", TypeReference},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldDescriptor(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFieldDescriptor(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
			}
		})
	}

	for _, in := range []string{"", "V", "II", "L;", "X"} {
		if _, err := ParseFieldDescriptor(in); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("ParseFieldDescriptor(%q) gave %v, want ErrInvalidDescriptor", in, err)
		}
	}
}
