// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PrintSink is the host capability standing in for java/io/PrintStream.
// The interpreter dispatches print and println calls through it.
type PrintSink interface {
	Write(text string) error
	Writeln(text string) error
}

// WriterSink writes to an io.Writer. The zero value writes to stdout.
type WriterSink struct {
	W io.Writer
}

// NewStdoutSink returns a sink on os.Stdout, the default for the CLI.
func NewStdoutSink() *WriterSink {
	return &WriterSink{W: os.Stdout}
}

func (s *WriterSink) writer() io.Writer {
	if s.W == nil {
		return os.Stdout
	}
	return s.W
}

// Write emits text without a trailing newline.
func (s *WriterSink) Write(text string) error {
	_, err := io.WriteString(s.writer(), text)
	return err
}

// Writeln emits text followed by a newline.
func (s *WriterSink) Writeln(text string) error {
	_, err := io.WriteString(s.writer(), text+"\n")
	return err
}

// BufferSink captures output for tests.
type BufferSink struct {
	buf bytes.Buffer
}

func (s *BufferSink) Write(text string) error {
	s.buf.WriteString(text)
	return nil
}

func (s *BufferSink) Writeln(text string) error {
	s.buf.WriteString(text)
	s.buf.WriteByte('\n')
	return nil
}

// String returns everything captured so far.
func (s *BufferSink) String() string {
	return s.buf.String()
}

// formatFloat renders a float the way the print stream model does: fixed
// notation rounded to five fractional digits, trailing zeros trimmed.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 5, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" || s == "-0" {
		return "0"
	}
	return s
}

// formatOperand renders an operand for the print sink. String constants are
// resolved against the class file that produced them.
func formatOperand(cf *File, op Operand) (string, error) {
	switch op.Type {
	case TypeInt:
		return strconv.FormatInt(int64(op.Int()), 10), nil
	case TypeLong:
		return strconv.FormatInt(op.Long(), 10), nil
	case TypeFloat:
		return formatFloat(float64(op.Float())), nil
	case TypeDouble:
		return formatFloat(op.Double()), nil
	case TypeReference:
		switch v := op.Value.(type) {
		case nil:
			return "null", nil
		case StringRef:
			owner := v.Owner
			if owner == nil {
				owner = cf
			}
			return owner.StringAt(v.Index)
		}
	}
	return "", fmt.Errorf("printing %s: %w", op.Type, ErrUnsupportedHostCall)
}
