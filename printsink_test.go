// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"bytes"
	"errors"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.25, "0.25"},
		{1, "1"},
		{-2.5, "-2.5"},
		{0, "0"},
		{0.123456, "0.12346"}, // rounded to 5 fractional digits
		{0.000001, "0"},
		{45, "45"},
		{-0.000001, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatFloat(tt.in); got != tt.want {
				t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &WriterSink{W: &buf}

	if err := sink.Write("a"); err != nil {
		t.Fatalf("Write failed, reason: %v", err)
	}
	if err := sink.Writeln("b"); err != nil {
		t.Fatalf("Writeln failed, reason: %v", err)
	}
	if got := buf.String(); got != "ab\n" {
		t.Errorf("sink wrote %q, want %q", got, "ab\n")
	}
}

func TestFormatOperand(t *testing.T) {
	mc := newMainClass()
	str := mc.stringConst("Hello, World!")
	cf := parseClass(t, mc.build(1, 1, bc(OpReturn)))

	tests := []struct {
		name string
		op   Operand
		want string
	}{
		{"int", IntOperand(-14), "-14"},
		{"long", LongOperand(1 << 40), "1099511627776"},
		{"float", FloatOperand(0.25), "0.25"},
		{"double", DoubleOperand(2.5), "2.5"},
		{"null", NullOperand(), "null"},
		{"string", StringOperand(StringRef{Owner: cf, Index: str}), "Hello, World!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatOperand(cf, tt.op)
			if err != nil || got != tt.want {
				t.Errorf("formatOperand = %q, %v, want %q", got, err, tt.want)
			}
		})
	}

	if _, err := formatOperand(cf, VoidOperand()); !errors.Is(err, ErrUnsupportedHostCall) {
		t.Errorf("formatOperand(VOID) gave %v, want ErrUnsupportedHostCall", err)
	}
}
