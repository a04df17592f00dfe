// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"reflect"
	"testing"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name  string
		value uint16
		table []AccessFlag
		want  []string
	}{
		{"public super class", 0x0021, ClassAccessFlags,
			[]string{"ACC_PUBLIC", "ACC_SUPER"}},
		{"annotation interface", 0x2600, ClassAccessFlags,
			[]string{"ACC_INTERFACE", "ACC_ABSTRACT", "ACC_ANNOTATION"}},
		{"no flags", 0, ClassAccessFlags, nil},
		{"unknown bits dropped", 0x8000, ClassAccessFlags, nil},
		{"public static method", 0x0009, MethodAccessFlags,
			[]string{"ACC_PUBLIC", "ACC_STATIC"}},
		{"private synchronized varargs", 0x00A2, MethodAccessFlags,
			[]string{"ACC_PRIVATE", "ACC_SYNCHRONIZED", "ACC_VARARGS"}},
		{"static final field", 0x0018, FieldAccessFlags,
			[]string{"ACC_STATIC", "ACC_FINAL"}},
		{"volatile transient field", 0x00C0, FieldAccessFlags,
			[]string{"ACC_VOLATILE", "ACC_TRANSIENT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFlags(tt.value, tt.table)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFlags(%#x) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestHasFlag(t *testing.T) {
	flags := []string{"ACC_PUBLIC", "ACC_STATIC"}
	if !HasFlag(flags, "ACC_STATIC") {
		t.Error("HasFlag missed ACC_STATIC")
	}
	if HasFlag(flags, "ACC_FINAL") {
		t.Error("HasFlag found absent ACC_FINAL")
	}
}
