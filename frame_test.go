// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"errors"
	"testing"
)

func TestFramePushPop(t *testing.T) {
	f := NewFrame(2, 0)

	if err := f.Push(IntOperand(1)); err != nil {
		t.Fatalf("Push failed, reason: %v", err)
	}
	if err := f.Push(FloatOperand(2.5)); err != nil {
		t.Fatalf("Push failed, reason: %v", err)
	}
	if f.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", f.Depth())
	}

	v, err := f.PopExpected(TypeFloat)
	if err != nil || v.Float() != 2.5 {
		t.Fatalf("PopExpected(FLOAT) = %v, %v", v, err)
	}
	v, err = f.PopExpected(TypeInt)
	if err != nil || v.Int() != 1 {
		t.Fatalf("PopExpected(INT) = %v, %v", v, err)
	}
}

func TestFrameUnderflow(t *testing.T) {
	f := NewFrame(1, 0)
	if _, err := f.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("Pop on empty gave %v, want ErrStackUnderflow", err)
	}
	if _, err := f.PopExpected(TypeInt); !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("PopExpected on empty gave %v, want ErrStackUnderflow", err)
	}
}

func TestFrameOverflow(t *testing.T) {
	f := NewFrame(1, 0)
	if err := f.Push(IntOperand(1)); err != nil {
		t.Fatalf("first Push failed, reason: %v", err)
	}
	if err := f.Push(IntOperand(2)); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("Push beyond max_stack gave %v, want ErrStackOverflow", err)
	}
}

func TestFrameTypeMismatch(t *testing.T) {
	f := NewFrame(1, 0)
	if err := f.Push(IntOperand(1)); err != nil {
		t.Fatalf("Push failed, reason: %v", err)
	}
	if _, err := f.PopExpected(TypeFloat); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("PopExpected(FLOAT) on INT gave %v, want ErrTypeMismatch", err)
	}
}

func TestFrameLocals(t *testing.T) {
	f := NewFrame(0, 2)

	// Fresh locals hold no value.
	v, err := f.Local(0)
	if err != nil || v.Type != TypeVoid {
		t.Fatalf("fresh Local(0) = %v, %v, want VOID", v, err)
	}

	if err := f.SetLocal(1, IntOperand(42)); err != nil {
		t.Fatalf("SetLocal failed, reason: %v", err)
	}
	v, err = f.Local(1)
	if err != nil || v.Int() != 42 {
		t.Fatalf("Local(1) = %v, %v, want 42", v, err)
	}

	if _, err := f.Local(2); !errors.Is(err, ErrLocalOutOfRange) {
		t.Errorf("Local(2) gave %v, want ErrLocalOutOfRange", err)
	}
	if err := f.SetLocal(-1, IntOperand(0)); !errors.Is(err, ErrLocalOutOfRange) {
		t.Errorf("SetLocal(-1) gave %v, want ErrLocalOutOfRange", err)
	}
}
