// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader is a cursor over an in-memory byte image. The class-file format is
// big-endian throughout, so every multi-byte primitive below decodes
// big-endian. Reading past the end fails with ErrMalformedClassFile.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Len returns the total image length.
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) need(n int) error {
	if r.off+n > len(r.data) {
		return fmt.Errorf("truncated input: need %d bytes at offset %d of %d: %w",
			n, r.off, len(r.data), ErrMalformedClassFile)
	}
	return nil
}

// Read consumes and returns the next n bytes.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d: %w", n, ErrMalformedClassFile)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// U1 reads an unsigned byte.
func (r *Reader) U1() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

// U2 reads an unsigned big-endian 16-bit integer.
func (r *Reader) U2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// U4 reads an unsigned big-endian 32-bit integer.
func (r *Reader) U4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// I1 reads a signed byte.
func (r *Reader) I1() (int8, error) {
	v, err := r.U1()
	return int8(v), err
}

// I2 reads a signed big-endian 16-bit integer.
func (r *Reader) I2() (int16, error) {
	v, err := r.U2()
	return int16(v), err
}

// I4 reads a signed big-endian 32-bit integer.
func (r *Reader) I4() (int32, error) {
	v, err := r.U4()
	return int32(v), err
}

// F4 reads a big-endian IEEE-754 32-bit float.
func (r *Reader) F4() (float32, error) {
	v, err := r.U4()
	return math.Float32frombits(v), err
}

// F8 reads a big-endian IEEE-754 64-bit float.
func (r *Reader) F8() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return math.Float64frombits(v), nil
}

// Seek moves the cursor like io.Seeker, bounds-checked against the image.
func (r *Reader) Seek(offset int, whence int) error {
	var target int
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.off + offset
	case io.SeekEnd:
		target = len(r.data) + offset
	default:
		return fmt.Errorf("invalid seek whence %d: %w", whence, ErrMalformedClassFile)
	}
	if target < 0 || target > len(r.data) {
		return fmt.Errorf("seek target %d outside image of %d bytes: %w",
			target, len(r.data), ErrMalformedClassFile)
	}
	r.off = target
	return nil
}
