// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"fmt"
)

// Attribute names recognized by the decoder.
const (
	AttrCode                      = "Code"
	AttrBootstrapMethods          = "BootstrapMethods"
	AttrSourceFile                = "SourceFile"
	AttrInnerClasses              = "InnerClasses"
	AttrLineNumberTable           = "LineNumberTable"
	AttrStackMapTable             = "StackMapTable"
	AttrConstantValue             = "ConstantValue"
	AttrSignature                 = "Signature"
	AttrRuntimeVisibleAnnotations = "RuntimeVisibleAnnotations"
	AttrExceptions                = "Exceptions"
	AttrNestMembers               = "NestMembers"
	AttrLocalVariableTable        = "LocalVariableTable"
	AttrLocalVariableTypeTable    = "LocalVariableTypeTable"
)

// Attribute is one named attribute with its decoded payload. Exactly one of
// the payload pointers is set, matching Name; payloads kept opaque (the
// local-variable tables, and unknown names under KeepUnknownAttributes)
// live in Raw.
type Attribute struct {
	Name      string `json:"name"`
	NameIndex uint16 `json:"name_index"`
	Length    uint32 `json:"length"`

	Code                      *CodeAttribute                      `json:"code,omitempty"`
	BootstrapMethods          *BootstrapMethodsAttribute          `json:"bootstrap_methods,omitempty"`
	SourceFile                *SourceFileAttribute                `json:"source_file,omitempty"`
	InnerClasses              *InnerClassesAttribute              `json:"inner_classes,omitempty"`
	LineNumberTable           *LineNumberTableAttribute           `json:"line_number_table,omitempty"`
	StackMapTable             *StackMapTableAttribute             `json:"stack_map_table,omitempty"`
	ConstantValue             *ConstantValueAttribute             `json:"constant_value,omitempty"`
	Signature                 *SignatureAttribute                 `json:"signature,omitempty"`
	RuntimeVisibleAnnotations *RuntimeVisibleAnnotationsAttribute `json:"runtime_visible_annotations,omitempty"`
	Exceptions                *ExceptionsAttribute                `json:"exceptions,omitempty"`
	NestMembers               *NestMembersAttribute               `json:"nest_members,omitempty"`
	Raw                       []byte                              `json:"raw,omitempty"`
}

// CodeAttribute carries a method's executable bytecode.
type CodeAttribute struct {
	MaxStack       uint16                `json:"max_stack"`
	MaxLocals      uint16                `json:"max_locals"`
	Code           []byte                `json:"code"`
	ExceptionTable []ExceptionTableEntry `json:"exception_table,omitempty"`
	Attributes     []Attribute           `json:"attributes,omitempty"`
}

// ExceptionTableEntry is one handler range of a Code attribute. The table is
// decoded structurally; the interpreter never dispatches on it.
type ExceptionTableEntry struct {
	StartPC   uint16 `json:"start_pc"`
	EndPC     uint16 `json:"end_pc"`
	HandlerPC uint16 `json:"handler_pc"`
	CatchType uint16 `json:"catch_type"`
}

// BootstrapMethod is one entry of the BootstrapMethods attribute.
type BootstrapMethod struct {
	MethodRef uint16   `json:"bootstrap_method_ref"`
	Arguments []uint16 `json:"bootstrap_arguments"`
}

// BootstrapMethodsAttribute lists the bootstrap method specifiers referenced
// by InvokeDynamic constants.
type BootstrapMethodsAttribute struct {
	Methods []BootstrapMethod `json:"methods"`
}

// SourceFileAttribute points at the Utf8 constant holding the source name.
type SourceFileAttribute struct {
	SourceFileIndex uint16 `json:"sourcefile_index"`
}

// InnerClass is one entry of the InnerClasses attribute.
type InnerClass struct {
	InnerClassInfoIndex   uint16 `json:"inner_class_info_index"`
	OuterClassInfoIndex   uint16 `json:"outer_class_info_index"`
	InnerNameIndex        uint16 `json:"inner_name_index"`
	InnerClassAccessFlags uint16 `json:"inner_class_access_flags"`
}

// InnerClassesAttribute lists nested-class relationships.
type InnerClassesAttribute struct {
	Classes []InnerClass `json:"classes"`
}

// LineNumberEntry maps a bytecode offset to a source line.
type LineNumberEntry struct {
	StartPC    uint16 `json:"start_pc"`
	LineNumber uint16 `json:"line_number"`
}

// LineNumberTableAttribute maps code offsets to source lines.
type LineNumberTableAttribute struct {
	Entries []LineNumberEntry `json:"entries"`
}

// StackMapTableAttribute keeps the verifier frames structurally: the entry
// count plus the undecoded frame payload.
type StackMapTableAttribute struct {
	NumberOfEntries uint16 `json:"number_of_entries"`
	Entries         []byte `json:"entries,omitempty"`
}

// ConstantValueAttribute points at the pool constant initializing a static
// final field.
type ConstantValueAttribute struct {
	ConstantValueIndex uint16 `json:"constantvalue_index"`
}

// SignatureAttribute points at the generic signature Utf8 constant.
type SignatureAttribute struct {
	SignatureIndex uint16 `json:"signature_index"`
}

// RuntimeVisibleAnnotationsAttribute keeps the annotation count plus the
// undecoded element-value payload.
type RuntimeVisibleAnnotationsAttribute struct {
	NumAnnotations uint16 `json:"num_annotations"`
	Annotations    []byte `json:"annotations,omitempty"`
}

// ExceptionsAttribute lists the Class constants of a method's throws clause.
type ExceptionsAttribute struct {
	IndexTable []uint16 `json:"exception_index_table"`
}

// NestMembersAttribute lists the Class constants of a nest host's members.
type NestMembersAttribute struct {
	Classes []uint16 `json:"classes"`
}

// parseAttributes decodes count attributes from r. Each attribute is a
// u2 name index and u4 length followed by the payload; the name selects the
// structured decoder.
func (cf *File) parseAttributes(r *Reader, count uint16) ([]Attribute, error) {
	attributes := make([]Attribute, 0, count)
	for i := uint16(0); i < count; i++ {
		nameIndex, err := r.U2()
		if err != nil {
			return nil, err
		}
		length, err := r.U4()
		if err != nil {
			return nil, err
		}
		info, err := r.Read(int(length))
		if err != nil {
			return nil, err
		}

		name, err := cf.Utf8At(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute name: %w", err)
		}

		attr := Attribute{Name: name, NameIndex: nameIndex, Length: length}
		if err := cf.decodeAttribute(&attr, info); err != nil {
			return nil, err
		}
		attributes = append(attributes, attr)
	}
	return attributes, nil
}

func (cf *File) decodeAttribute(attr *Attribute, info []byte) error {
	r := NewReader(info)

	var err error
	switch attr.Name {
	case AttrCode:
		attr.Code, err = cf.parseCodeAttribute(r)
	case AttrBootstrapMethods:
		attr.BootstrapMethods, err = parseBootstrapMethods(r)
	case AttrSourceFile:
		sf := SourceFileAttribute{}
		sf.SourceFileIndex, err = r.U2()
		attr.SourceFile = &sf
	case AttrInnerClasses:
		attr.InnerClasses, err = parseInnerClasses(r)
	case AttrLineNumberTable:
		attr.LineNumberTable, err = parseLineNumberTable(r)
	case AttrStackMapTable:
		smt := StackMapTableAttribute{}
		smt.NumberOfEntries, err = r.U2()
		if err == nil {
			smt.Entries, err = r.Read(r.Remaining())
		}
		attr.StackMapTable = &smt
	case AttrConstantValue:
		cv := ConstantValueAttribute{}
		cv.ConstantValueIndex, err = r.U2()
		attr.ConstantValue = &cv
	case AttrSignature:
		sig := SignatureAttribute{}
		sig.SignatureIndex, err = r.U2()
		attr.Signature = &sig
	case AttrRuntimeVisibleAnnotations:
		rva := RuntimeVisibleAnnotationsAttribute{}
		rva.NumAnnotations, err = r.U2()
		if err == nil {
			rva.Annotations, err = r.Read(r.Remaining())
		}
		attr.RuntimeVisibleAnnotations = &rva
	case AttrExceptions:
		attr.Exceptions, err = parseExceptions(r)
	case AttrNestMembers:
		nm := NestMembersAttribute{}
		nm.Classes, err = readU2Table(r)
		attr.NestMembers = &nm
	case AttrLocalVariableTable, AttrLocalVariableTypeTable:
		// Debug-only tables, kept opaque.
		attr.Raw = info
	default:
		if !cf.opts.KeepUnknownAttributes {
			return fmt.Errorf("attribute %q: %w", attr.Name, ErrUnsupportedAttribute)
		}
		attr.Raw = info
	}
	if err != nil {
		return fmt.Errorf("attribute %q: %w", attr.Name, err)
	}
	if attr.Raw == nil && r.Remaining() != 0 {
		return fmt.Errorf("attribute %q leaves %d undecoded bytes: %w",
			attr.Name, r.Remaining(), ErrMalformedClassFile)
	}
	return nil
}

func (cf *File) parseCodeAttribute(r *Reader) (*CodeAttribute, error) {
	code := CodeAttribute{}

	var err error
	if code.MaxStack, err = r.U2(); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = r.U2(); err != nil {
		return nil, err
	}
	codeLength, err := r.U4()
	if err != nil {
		return nil, err
	}
	if code.Code, err = r.Read(int(codeLength)); err != nil {
		return nil, err
	}

	exceptionTableLength, err := r.U2()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < exceptionTableLength; i++ {
		var entry ExceptionTableEntry
		if entry.StartPC, err = r.U2(); err != nil {
			return nil, err
		}
		if entry.EndPC, err = r.U2(); err != nil {
			return nil, err
		}
		if entry.HandlerPC, err = r.U2(); err != nil {
			return nil, err
		}
		if entry.CatchType, err = r.U2(); err != nil {
			return nil, err
		}
		code.ExceptionTable = append(code.ExceptionTable, entry)
	}

	attributesCount, err := r.U2()
	if err != nil {
		return nil, err
	}
	if code.Attributes, err = cf.parseAttributes(r, attributesCount); err != nil {
		return nil, err
	}
	return &code, nil
}

func parseBootstrapMethods(r *Reader) (*BootstrapMethodsAttribute, error) {
	numMethods, err := r.U2()
	if err != nil {
		return nil, err
	}
	bsm := BootstrapMethodsAttribute{}
	for i := uint16(0); i < numMethods; i++ {
		method := BootstrapMethod{}
		if method.MethodRef, err = r.U2(); err != nil {
			return nil, err
		}
		if method.Arguments, err = readU2Table(r); err != nil {
			return nil, err
		}
		bsm.Methods = append(bsm.Methods, method)
	}
	return &bsm, nil
}

func parseInnerClasses(r *Reader) (*InnerClassesAttribute, error) {
	numberOfClasses, err := r.U2()
	if err != nil {
		return nil, err
	}
	ic := InnerClassesAttribute{}
	for i := uint16(0); i < numberOfClasses; i++ {
		var cls InnerClass
		if cls.InnerClassInfoIndex, err = r.U2(); err != nil {
			return nil, err
		}
		if cls.OuterClassInfoIndex, err = r.U2(); err != nil {
			return nil, err
		}
		if cls.InnerNameIndex, err = r.U2(); err != nil {
			return nil, err
		}
		if cls.InnerClassAccessFlags, err = r.U2(); err != nil {
			return nil, err
		}
		ic.Classes = append(ic.Classes, cls)
	}
	return &ic, nil
}

func parseLineNumberTable(r *Reader) (*LineNumberTableAttribute, error) {
	tableLength, err := r.U2()
	if err != nil {
		return nil, err
	}
	lnt := LineNumberTableAttribute{}
	for i := uint16(0); i < tableLength; i++ {
		var entry LineNumberEntry
		if entry.StartPC, err = r.U2(); err != nil {
			return nil, err
		}
		if entry.LineNumber, err = r.U2(); err != nil {
			return nil, err
		}
		lnt.Entries = append(lnt.Entries, entry)
	}
	return &lnt, nil
}

func parseExceptions(r *Reader) (*ExceptionsAttribute, error) {
	table, err := readU2Table(r)
	if err != nil {
		return nil, err
	}
	return &ExceptionsAttribute{IndexTable: table}, nil
}

// readU2Table reads a u2 count followed by that many u2 values.
func readU2Table(r *Reader) ([]uint16, error) {
	count, err := r.U2()
	if err != nil {
		return nil, err
	}
	values := make([]uint16, 0, count)
	for i := uint16(0); i < count; i++ {
		v, err := r.U2()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
