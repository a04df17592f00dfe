// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

// AccessFlag is one named bit of an access_flags word.
type AccessFlag struct {
	Name string
	Mask uint16
}

// ClassAccessFlags are the recognized class-level access flags.
var ClassAccessFlags = []AccessFlag{
	{"ACC_PUBLIC", 0x0001},
	{"ACC_FINAL", 0x0010},
	{"ACC_SUPER", 0x0020},
	{"ACC_INTERFACE", 0x0200},
	{"ACC_ABSTRACT", 0x0400},
	{"ACC_SYNTHETIC", 0x1000},
	{"ACC_ANNOTATION", 0x2000},
	{"ACC_ENUM", 0x4000},
}

// MethodAccessFlags are the recognized method-level access flags.
var MethodAccessFlags = []AccessFlag{
	{"ACC_PUBLIC", 0x0001},
	{"ACC_PRIVATE", 0x0002},
	{"ACC_PROTECTED", 0x0004},
	{"ACC_STATIC", 0x0008},
	{"ACC_FINAL", 0x0010},
	{"ACC_SYNCHRONIZED", 0x0020},
	{"ACC_BRIDGE", 0x0040},
	{"ACC_VARARGS", 0x0080},
	{"ACC_NATIVE", 0x0100},
	{"ACC_ABSTRACT", 0x0400},
	{"ACC_STRICT", 0x0800},
	{"ACC_SYNTHETIC", 0x1000},
}

// FieldAccessFlags are the recognized field-level access flags.
var FieldAccessFlags = []AccessFlag{
	{"ACC_PUBLIC", 0x0001},
	{"ACC_PRIVATE", 0x0002},
	{"ACC_PROTECTED", 0x0004},
	{"ACC_STATIC", 0x0008},
	{"ACC_FINAL", 0x0010},
	{"ACC_VOLATILE", 0x0040},
	{"ACC_TRANSIENT", 0x0080},
	{"ACC_SYNTHETIC", 0x1000},
	{"ACC_ENUM", 0x4000},
}

// ParseFlags decodes a bitmask into the names of the recognized set bits.
func ParseFlags(value uint16, table []AccessFlag) []string {
	var names []string
	for _, flag := range table {
		if value&flag.Mask != 0 {
			names = append(names, flag.Name)
		}
	}
	return names
}

// HasFlag reports whether the decoded flag set contains name.
func HasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if f == name {
			return true
		}
	}
	return false
}
