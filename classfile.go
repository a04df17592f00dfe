// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"fmt"
	"os"
	"strings"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/jonaslsaa/pava/log"
)

const (
	// ClassMagic is the magic number opening every class file.
	ClassMagic = 0xCAFEBABE

	// MinClassFileSize is the size of the fixed header alone: magic,
	// minor/major version and an empty constant pool count.
	MinClassFileSize = 10
)

// Version is the class-file format version pair.
type Version struct {
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MemberKey addresses a field or method by name and descriptor.
type MemberKey struct {
	Name       string
	Descriptor string
}

// FieldInfo is one decoded field_info structure.
type FieldInfo struct {
	AccessFlags     []string    `json:"access_flags"`
	RawAccessFlags  uint16      `json:"raw_access_flags"`
	NameIndex       uint16      `json:"name_index"`
	DescriptorIndex uint16      `json:"descriptor_index"`
	Attributes      []Attribute `json:"attributes,omitempty"`

	// Name and Descriptor are resolved from the pool after decoding.
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

// MethodInfo is one decoded method_info structure.
type MethodInfo struct {
	AccessFlags     []string    `json:"access_flags"`
	RawAccessFlags  uint16      `json:"raw_access_flags"`
	NameIndex       uint16      `json:"name_index"`
	DescriptorIndex uint16      `json:"descriptor_index"`
	Attributes      []Attribute `json:"attributes,omitempty"`

	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

// IsStatic reports whether the method carries ACC_STATIC.
func (m *MethodInfo) IsStatic() bool {
	return HasFlag(m.AccessFlags, "ACC_STATIC")
}

// CodeAttribute returns the method's Code attribute, or nil for abstract
// and native methods.
func (m *MethodInfo) CodeAttribute() *CodeAttribute {
	for i := range m.Attributes {
		if m.Attributes[i].Name == AttrCode {
			return m.Attributes[i].Code
		}
	}
	return nil
}

// A File represents an open class file.
type File struct {
	Version      Version             `json:"version"`
	ConstantPool []ConstantPoolEntry `json:"constant_pool,omitempty"`
	AccessFlags  []string            `json:"access_flags,omitempty"`
	ThisClass    uint16              `json:"this_class"`
	SuperClass   uint16              `json:"super_class"`
	Interfaces   []uint16            `json:"interfaces,omitempty"`
	Fields       []FieldInfo         `json:"fields,omitempty"`
	Methods      []MethodInfo        `json:"methods,omitempty"`
	Attributes   []Attribute         `json:"attributes,omitempty"`

	RawAccessFlags uint16 `json:"raw_access_flags"`

	data   mmap.MMap
	size   uint32
	f      *os.File
	opts   *Options
	logger *log.Helper

	methodLookup map[MemberKey]*MethodInfo
	fieldLookup  map[MemberKey]*FieldInfo

	// bootstrapMethods caches the class-level BootstrapMethods attribute;
	// there is at most one per class file.
	bootstrapMethods *BootstrapMethodsAttribute
	bsmResolved      bool
}

// Options for parsing and execution.
type Options struct {

	// Keep unknown attributes as raw payloads instead of failing the
	// parse, by default (false).
	KeepUnknownAttributes bool

	// Log every executed opcode at debug level, by default (false).
	TraceExecution bool

	// A custom logger.
	Logger log.Logger
}

// New instantiates a class file instance with options given a file name.
func New(name string, opts *Options) (*File, error) {

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	// Memory map the file instead of using read/write.
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := newFile(data, opts)
	file.f = f
	return file, nil
}

// NewBytes instantiates a class file instance with options given a memory
// buffer.
func NewBytes(data []byte, opts *Options) (*File, error) {
	return newFile(data, opts), nil
}

func newFile(data []byte, opts *Options) *File {
	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}

	if file.opts.Logger == nil {
		logger := log.NewStdLogger(os.Stderr)
		file.logger = log.NewHelper(log.NewFilter(logger,
			log.FilterLevel(log.LevelError)))
	} else {
		file.logger = log.NewHelper(file.opts.Logger)
	}

	file.data = data
	file.size = uint32(len(file.data))
	return &file
}

// Close closes the File.
func (cf *File) Close() error {
	if cf.f != nil {
		if cf.data != nil {
			_ = cf.data.Unmap()
		}
		return cf.f.Close()
	}
	return nil
}

// Logger exposes the file's logger to collaborators driving execution.
func (cf *File) Logger() *log.Helper {
	return cf.logger
}

// Options returns the parse/execution options in effect.
func (cf *File) Options() *Options {
	return cf.opts
}

// Parse decodes the class-file image: header, constant pool, access flags,
// this/super classes, interfaces, fields, methods and class attributes, and
// builds the (name, descriptor) lookup maps for methods and fields.
func (cf *File) Parse() error {

	if len(cf.data) < MinClassFileSize {
		return fmt.Errorf("image of %d bytes is smaller than the class file header: %w",
			len(cf.data), ErrMalformedClassFile)
	}

	r := NewReader(cf.data)

	magic, err := r.U4()
	if err != nil {
		return err
	}
	if magic != ClassMagic {
		return fmt.Errorf("bad magic 0x%08X: %w", magic, ErrMalformedClassFile)
	}

	// Minor precedes major on disk.
	if cf.Version.Minor, err = r.U2(); err != nil {
		return err
	}
	if cf.Version.Major, err = r.U2(); err != nil {
		return err
	}

	poolCount, err := r.U2()
	if err != nil {
		return err
	}
	if cf.ConstantPool, err = cf.parseConstantPool(r, poolCount); err != nil {
		return err
	}

	if cf.RawAccessFlags, err = r.U2(); err != nil {
		return err
	}
	cf.AccessFlags = ParseFlags(cf.RawAccessFlags, ClassAccessFlags)

	if cf.ThisClass, err = r.U2(); err != nil {
		return err
	}
	if cf.SuperClass, err = r.U2(); err != nil {
		return err
	}

	interfacesCount, err := r.U2()
	if err != nil {
		return err
	}
	cf.Interfaces = make([]uint16, 0, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		index, err := r.U2()
		if err != nil {
			return err
		}
		cf.Interfaces = append(cf.Interfaces, index)
	}

	fieldsCount, err := r.U2()
	if err != nil {
		return err
	}
	for i := uint16(0); i < fieldsCount; i++ {
		field, err := cf.parseField(r)
		if err != nil {
			return err
		}
		cf.Fields = append(cf.Fields, field)
	}

	methodsCount, err := r.U2()
	if err != nil {
		return err
	}
	for i := uint16(0); i < methodsCount; i++ {
		method, err := cf.parseMethod(r)
		if err != nil {
			return err
		}
		cf.Methods = append(cf.Methods, method)
	}

	attributesCount, err := r.U2()
	if err != nil {
		return err
	}
	if cf.Attributes, err = cf.parseAttributes(r, attributesCount); err != nil {
		return err
	}

	if r.Remaining() != 0 {
		cf.logger.Warnf("%d trailing bytes after class structure", r.Remaining())
	}

	return cf.buildLookups()
}

func (cf *File) parseField(r *Reader) (FieldInfo, error) {
	var field FieldInfo

	var err error
	if field.RawAccessFlags, err = r.U2(); err != nil {
		return field, err
	}
	field.AccessFlags = ParseFlags(field.RawAccessFlags, FieldAccessFlags)
	if field.NameIndex, err = r.U2(); err != nil {
		return field, err
	}
	if field.DescriptorIndex, err = r.U2(); err != nil {
		return field, err
	}
	attributesCount, err := r.U2()
	if err != nil {
		return field, err
	}
	field.Attributes, err = cf.parseAttributes(r, attributesCount)
	return field, err
}

func (cf *File) parseMethod(r *Reader) (MethodInfo, error) {
	var method MethodInfo

	var err error
	if method.RawAccessFlags, err = r.U2(); err != nil {
		return method, err
	}
	method.AccessFlags = ParseFlags(method.RawAccessFlags, MethodAccessFlags)
	if method.NameIndex, err = r.U2(); err != nil {
		return method, err
	}
	if method.DescriptorIndex, err = r.U2(); err != nil {
		return method, err
	}
	attributesCount, err := r.U2()
	if err != nil {
		return method, err
	}
	method.Attributes, err = cf.parseAttributes(r, attributesCount)
	return method, err
}

// buildLookups resolves member names and descriptors from the pool and
// indexes them. Bytecode references members through name+descriptor pairs,
// so the maps turn linear scans into O(1) resolution.
func (cf *File) buildLookups() error {
	cf.methodLookup = make(map[MemberKey]*MethodInfo, len(cf.Methods))
	for i := range cf.Methods {
		m := &cf.Methods[i]

		var err error
		if m.Name, err = cf.Utf8At(m.NameIndex); err != nil {
			return fmt.Errorf("method name: %w", err)
		}
		if m.Descriptor, err = cf.Utf8At(m.DescriptorIndex); err != nil {
			return fmt.Errorf("method %s descriptor: %w", m.Name, err)
		}
		cf.methodLookup[MemberKey{m.Name, m.Descriptor}] = m
	}

	cf.fieldLookup = make(map[MemberKey]*FieldInfo, len(cf.Fields))
	for i := range cf.Fields {
		f := &cf.Fields[i]

		var err error
		if f.Name, err = cf.Utf8At(f.NameIndex); err != nil {
			return fmt.Errorf("field name: %w", err)
		}
		if f.Descriptor, err = cf.Utf8At(f.DescriptorIndex); err != nil {
			return fmt.Errorf("field %s descriptor: %w", f.Name, err)
		}
		cf.fieldLookup[MemberKey{f.Name, f.Descriptor}] = f
	}
	return nil
}

// ThisClassName returns the internal name of the class this file defines.
func (cf *File) ThisClassName() (string, error) {
	return cf.ClassNameAt(cf.ThisClass)
}

// SuperClassName returns the internal name of the direct superclass, or the
// empty string for java/lang/Object itself.
func (cf *File) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.ClassNameAt(cf.SuperClass)
}

// MethodByNameDesc returns the method with the given name and descriptor.
func (cf *File) MethodByNameDesc(name, descriptor string) (*MethodInfo, bool) {
	m, ok := cf.methodLookup[MemberKey{name, descriptor}]
	return m, ok
}

// FieldByNameDesc returns the field with the given name and descriptor.
func (cf *File) FieldByNameDesc(name, descriptor string) (*FieldInfo, bool) {
	f, ok := cf.fieldLookup[MemberKey{name, descriptor}]
	return f, ok
}

// MethodsByName returns every method with the given name regardless of
// descriptor, in declaration order.
func (cf *File) MethodsByName(name string) []*MethodInfo {
	var methods []*MethodInfo
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			methods = append(methods, &cf.Methods[i])
		}
	}
	return methods
}

// IsInterface returns true if the class file defines an interface.
func (cf *File) IsInterface() bool {
	return cf.RawAccessFlags&0x0200 != 0
}

// String summarizes the decoded class for diagnostics.
func (cf *File) String() string {
	name, err := cf.ThisClassName()
	if err != nil {
		name = "<unresolved>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "class %s (version %s, %d pool entries, %d fields, %d methods)",
		name, cf.Version, len(cf.ConstantPool), len(cf.Fields), len(cf.Methods))
	return b.String()
}
