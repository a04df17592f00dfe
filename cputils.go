// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import "fmt"

// At returns the constant-pool entry at the given 1-based index.
func (cf *File) At(index uint16) (*ConstantPoolEntry, error) {
	if index == 0 || int(index) > len(cf.ConstantPool) {
		return nil, fmt.Errorf("constant pool index %d outside [1, %d]: %w",
			index, len(cf.ConstantPool), ErrUnresolvedSymbol)
	}
	entry := &cf.ConstantPool[index-1]
	if entry.Tag == ConstantUnusable {
		return nil, fmt.Errorf("constant pool index %d addresses the phantom slot of a long or double: %w",
			index, ErrUnresolvedSymbol)
	}
	return entry, nil
}

// at returns the entry at index after checking it carries the wanted tag.
func (cf *File) at(index uint16, want ConstantTag) (*ConstantPoolEntry, error) {
	entry, err := cf.At(index)
	if err != nil {
		return nil, err
	}
	if entry.Tag != want {
		return nil, fmt.Errorf("constant pool index %d holds %s, want %s: %w",
			index, entry.Tag, want, ErrUnresolvedSymbol)
	}
	return entry, nil
}

// Utf8At resolves the Utf8 entry at index to a decoded string.
func (cf *File) Utf8At(index uint16) (string, error) {
	entry, err := cf.at(index, ConstantUtf8)
	if err != nil {
		return "", err
	}
	return DecodeMUTF8(entry.Bytes)
}

// ClassNameAt resolves the Class entry at index to its internal name.
func (cf *File) ClassNameAt(index uint16) (string, error) {
	entry, err := cf.at(index, ConstantClass)
	if err != nil {
		return "", err
	}
	return cf.Utf8At(entry.NameIndex)
}

// NameAndTypeAt resolves the NameAndType entry at index to its name and
// descriptor strings.
func (cf *File) NameAndTypeAt(index uint16) (name, descriptor string, err error) {
	entry, err := cf.at(index, ConstantNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cf.Utf8At(entry.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = cf.Utf8At(entry.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef is a fully resolved Fieldref, Methodref or InterfaceMethodref.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

func (ref MemberRef) String() string {
	return ref.ClassName + "." + ref.Name + ":" + ref.Descriptor
}

func (cf *File) memberRefAt(index uint16, want ConstantTag) (MemberRef, error) {
	entry, err := cf.at(index, want)
	if err != nil {
		return MemberRef{}, err
	}
	var ref MemberRef
	if ref.ClassName, err = cf.ClassNameAt(entry.ClassIndex); err != nil {
		return MemberRef{}, err
	}
	if ref.Name, ref.Descriptor, err = cf.NameAndTypeAt(entry.NameAndTypeIndex); err != nil {
		return MemberRef{}, err
	}
	return ref, nil
}

// FieldrefAt resolves the Fieldref entry at index.
func (cf *File) FieldrefAt(index uint16) (MemberRef, error) {
	return cf.memberRefAt(index, ConstantFieldref)
}

// MethodrefAt resolves the Methodref entry at index.
func (cf *File) MethodrefAt(index uint16) (MemberRef, error) {
	return cf.memberRefAt(index, ConstantMethodref)
}

// StringAt resolves the String entry at index to its decoded text.
func (cf *File) StringAt(index uint16) (string, error) {
	entry, err := cf.at(index, ConstantString)
	if err != nil {
		return "", err
	}
	return cf.Utf8At(entry.StringIndex)
}

// BootstrapMethodAt returns the 0-based bootstrap method specifier from the
// class-level BootstrapMethods attribute. The attribute is located once and
// cached on the File; a class has at most one.
func (cf *File) BootstrapMethodAt(index uint16) (*BootstrapMethod, error) {
	if !cf.bsmResolved {
		cf.bsmResolved = true
		for i := range cf.Attributes {
			if cf.Attributes[i].Name == AttrBootstrapMethods {
				cf.bootstrapMethods = cf.Attributes[i].BootstrapMethods
				break
			}
		}
	}
	if cf.bootstrapMethods == nil {
		return nil, fmt.Errorf("class has no BootstrapMethods attribute: %w", ErrUnresolvedSymbol)
	}
	if int(index) >= len(cf.bootstrapMethods.Methods) {
		return nil, fmt.Errorf("bootstrap method index %d outside table of %d: %w",
			index, len(cf.bootstrapMethods.Methods), ErrUnresolvedSymbol)
	}
	return &cf.bootstrapMethods.Methods[index], nil
}
