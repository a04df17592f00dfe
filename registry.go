// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"fmt"
	"sort"
)

// RuntimeClass is a loaded class plus its static-field storage.
type RuntimeClass struct {
	File    *File
	Statics map[string]Operand

	name        string
	initialized bool
}

// Name returns the class's internal name.
func (rc *RuntimeClass) Name() string {
	return rc.name
}

// Initialized reports whether initialization already ran (or is running;
// the flag is set before <clinit> so self references resolve).
func (rc *RuntimeClass) Initialized() bool {
	return rc.initialized
}

func (rc *RuntimeClass) markInitialized() {
	rc.initialized = true
}

// allocStatics fills the static-field storage with each static field's
// descriptor-based zero value. It runs before <clinit>.
func (rc *RuntimeClass) allocStatics() error {
	for i := range rc.File.Fields {
		field := &rc.File.Fields[i]
		if !HasFlag(field.AccessFlags, "ACC_STATIC") {
			continue
		}
		zero, err := zeroOperand(field.Descriptor)
		if err != nil {
			return fmt.Errorf("field %s %s: %w", field.Name, field.Descriptor, err)
		}
		rc.Statics[field.Name] = zero
	}
	return nil
}

// GetStatic returns the static-field slot for name.
func (rc *RuntimeClass) GetStatic(name string) (Operand, error) {
	op, ok := rc.Statics[name]
	if !ok {
		return Operand{}, fmt.Errorf("no static field %s on %s: %w",
			name, rc.name, ErrUnresolvedSymbol)
	}
	return op, nil
}

// SetStatic stores op into an existing static-field slot.
func (rc *RuntimeClass) SetStatic(name string, op Operand) error {
	if _, ok := rc.Statics[name]; !ok {
		return fmt.Errorf("no static field %s on %s: %w",
			name, rc.name, ErrUnresolvedSymbol)
	}
	rc.Statics[name] = op
	return nil
}

// Registry holds the loaded classes keyed by internal name. Classes are
// registered up front and initialized lazily by the interpreter at first
// static use.
type Registry struct {
	classes map[string]*RuntimeClass
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*RuntimeClass)}
}

// Register wraps a parsed class file into a RuntimeClass. Registering the
// same class twice returns the existing entry.
func (reg *Registry) Register(cf *File) (*RuntimeClass, error) {
	name, err := cf.ThisClassName()
	if err != nil {
		return nil, err
	}
	if rc, ok := reg.classes[name]; ok {
		return rc, nil
	}
	rc := &RuntimeClass{
		File:    cf,
		Statics: make(map[string]Operand),
		name:    name,
	}
	reg.classes[name] = rc
	return rc, nil
}

// Lookup returns the registered class with the given internal name.
func (reg *Registry) Lookup(name string) (*RuntimeClass, bool) {
	rc, ok := reg.classes[name]
	return rc, ok
}

// Names returns the registered class names, sorted, for diagnostics.
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.classes))
	for name := range reg.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
