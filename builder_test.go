// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"encoding/binary"
	"math"
	"testing"
)

func appendU2(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU4(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// classBuilder assembles syntactically valid class images in memory so the
// end-to-end scenarios run without compiled fixtures on disk.
type classBuilder struct {
	entries []byte
	count   uint16 // logical pool slots used, phantoms included
}

func newClassBuilder() *classBuilder {
	return &classBuilder{}
}

func (b *classBuilder) utf8(s string) uint16 {
	b.entries = append(b.entries, byte(ConstantUtf8))
	b.entries = appendU2(b.entries, uint16(len(s)))
	b.entries = append(b.entries, s...)
	b.count++
	return b.count
}

func (b *classBuilder) class(nameIndex uint16) uint16 {
	b.entries = append(b.entries, byte(ConstantClass))
	b.entries = appendU2(b.entries, nameIndex)
	b.count++
	return b.count
}

func (b *classBuilder) str(utf8Index uint16) uint16 {
	b.entries = append(b.entries, byte(ConstantString))
	b.entries = appendU2(b.entries, utf8Index)
	b.count++
	return b.count
}

func (b *classBuilder) integer(v int32) uint16 {
	b.entries = append(b.entries, byte(ConstantInteger))
	b.entries = appendU4(b.entries, uint32(v))
	b.count++
	return b.count
}

func (b *classBuilder) float(v float32) uint16 {
	b.entries = append(b.entries, byte(ConstantFloat))
	b.entries = appendU4(b.entries, math.Float32bits(v))
	b.count++
	return b.count
}

func (b *classBuilder) long(v int64) uint16 {
	b.entries = append(b.entries, byte(ConstantLong))
	b.entries = appendU4(b.entries, uint32(uint64(v)>>32))
	b.entries = appendU4(b.entries, uint32(uint64(v)))
	index := b.count + 1
	b.count += 2 // phantom slot
	return index
}

func (b *classBuilder) double(v float64) uint16 {
	bits := math.Float64bits(v)
	b.entries = append(b.entries, byte(ConstantDouble))
	b.entries = appendU4(b.entries, uint32(bits>>32))
	b.entries = appendU4(b.entries, uint32(bits))
	index := b.count + 1
	b.count += 2
	return index
}

func (b *classBuilder) nameAndType(nameIndex, descriptorIndex uint16) uint16 {
	b.entries = append(b.entries, byte(ConstantNameAndType))
	b.entries = appendU2(b.entries, nameIndex)
	b.entries = appendU2(b.entries, descriptorIndex)
	b.count++
	return b.count
}

func (b *classBuilder) ref(tag ConstantTag, classIndex, natIndex uint16) uint16 {
	b.entries = append(b.entries, byte(tag))
	b.entries = appendU2(b.entries, classIndex)
	b.entries = appendU2(b.entries, natIndex)
	b.count++
	return b.count
}

func (b *classBuilder) fieldref(classIndex, natIndex uint16) uint16 {
	return b.ref(ConstantFieldref, classIndex, natIndex)
}

func (b *classBuilder) methodref(classIndex, natIndex uint16) uint16 {
	return b.ref(ConstantMethodref, classIndex, natIndex)
}

func (b *classBuilder) invokeDynamic(bsmIndex, natIndex uint16) uint16 {
	b.entries = append(b.entries, byte(ConstantInvokeDynamic))
	b.entries = appendU2(b.entries, bsmIndex)
	b.entries = appendU2(b.entries, natIndex)
	b.count++
	return b.count
}

// rawAttr is an encoded attribute_info.
type rawAttr struct {
	nameIndex uint16
	info      []byte
}

// rawMember is an encoded field_info or method_info.
type rawMember struct {
	flags     uint16
	nameIndex uint16
	descIndex uint16
	attrs     []rawAttr
}

// codeAttr encodes a Code attribute with an empty exception table and no
// nested attributes.
func codeAttr(nameIndex uint16, maxStack, maxLocals uint16, code []byte) rawAttr {
	var info []byte
	info = appendU2(info, maxStack)
	info = appendU2(info, maxLocals)
	info = appendU4(info, uint32(len(code)))
	info = append(info, code...)
	info = appendU2(info, 0) // exception_table_length
	info = appendU2(info, 0) // attributes_count
	return rawAttr{nameIndex: nameIndex, info: info}
}

func appendAttrs(out []byte, attrs []rawAttr) []byte {
	out = appendU2(out, uint16(len(attrs)))
	for _, attr := range attrs {
		out = appendU2(out, attr.nameIndex)
		out = appendU4(out, uint32(len(attr.info)))
		out = append(out, attr.info...)
	}
	return out
}

func appendMembers(out []byte, members []rawMember) []byte {
	out = appendU2(out, uint16(len(members)))
	for _, m := range members {
		out = appendU2(out, m.flags)
		out = appendU2(out, m.nameIndex)
		out = appendU2(out, m.descIndex)
		out = appendAttrs(out, m.attrs)
	}
	return out
}

// build assembles the final image.
func (b *classBuilder) build(flags, thisClass, superClass uint16,
	fields, methods []rawMember, classAttrs []rawAttr) []byte {

	var out []byte
	out = appendU4(out, ClassMagic)
	out = appendU2(out, 0)  // minor
	out = appendU2(out, 52) // major, Java 8
	out = appendU2(out, b.count+1)
	out = append(out, b.entries...)
	out = appendU2(out, flags)
	out = appendU2(out, thisClass)
	out = appendU2(out, superClass)
	out = appendU2(out, 0) // interfaces_count
	out = appendMembers(out, fields)
	out = appendMembers(out, methods)
	out = appendAttrs(out, classAttrs)
	return out
}

// mainClass wires the constants every scenario needs: a Main class with a
// java/lang/Object superclass, System.out, the PrintStream println and
// print overloads, and a static main method running the given code.
type mainClass struct {
	b *classBuilder

	codeName uint16

	out        uint16 // Fieldref java/lang/System.out
	printlnStr uint16 // Methodref println(Ljava/lang/String;)V
	printlnInt uint16 // Methodref println(I)V
	printlnFlt uint16 // Methodref println(F)V
	printStr   uint16 // Methodref print(Ljava/lang/String;)V
	printInt   uint16 // Methodref print(I)V

	thisClass  uint16
	superClass uint16

	mainName uint16
	mainDesc uint16

	extraFields  []rawMember
	extraMethods []rawMember
	classAttrs   []rawAttr
}

func newMainClass() *mainClass {
	b := newClassBuilder()
	mc := &mainClass{b: b}

	mc.thisClass = b.class(b.utf8("Main"))
	mc.superClass = b.class(b.utf8("java/lang/Object"))

	system := b.class(b.utf8("java/lang/System"))
	outNat := b.nameAndType(b.utf8("out"), b.utf8("Ljava/io/PrintStream;"))
	mc.out = b.fieldref(system, outNat)

	stream := b.class(b.utf8("java/io/PrintStream"))
	printlnName := b.utf8("println")
	printName := b.utf8("print")
	strDesc := b.utf8("(Ljava/lang/String;)V")
	intDesc := b.utf8("(I)V")
	fltDesc := b.utf8("(F)V")
	mc.printlnStr = b.methodref(stream, b.nameAndType(printlnName, strDesc))
	mc.printlnInt = b.methodref(stream, b.nameAndType(printlnName, intDesc))
	mc.printlnFlt = b.methodref(stream, b.nameAndType(printlnName, fltDesc))
	mc.printStr = b.methodref(stream, b.nameAndType(printName, strDesc))
	mc.printInt = b.methodref(stream, b.nameAndType(printName, intDesc))

	mc.codeName = b.utf8("Code")
	mc.mainName = b.utf8("main")
	mc.mainDesc = b.utf8("([Ljava/lang/String;)V")
	return mc
}

// stringConst interns a String constant and returns its pool index.
func (mc *mainClass) stringConst(s string) uint16 {
	return mc.b.str(mc.b.utf8(s))
}

// staticIntField declares a static int field plus its Fieldref for
// getstatic/putstatic, returning the Fieldref index.
func (mc *mainClass) staticIntField(name string) uint16 {
	nameIndex := mc.b.utf8(name)
	descIndex := mc.b.utf8("I")
	mc.extraFields = append(mc.extraFields, rawMember{
		flags:     0x0008 | 0x0001, // ACC_STATIC | ACC_PUBLIC
		nameIndex: nameIndex,
		descIndex: descIndex,
	})
	nat := mc.b.nameAndType(nameIndex, descIndex)
	return mc.b.fieldref(mc.thisClass, nat)
}

// staticMethod declares a static method with the given code and returns its
// Methodref for invokestatic.
func (mc *mainClass) staticMethod(name, descriptor string, maxStack, maxLocals uint16, code []byte) uint16 {
	nameIndex := mc.b.utf8(name)
	descIndex := mc.b.utf8(descriptor)
	mc.extraMethods = append(mc.extraMethods, rawMember{
		flags:     0x0008 | 0x0001,
		nameIndex: nameIndex,
		descIndex: descIndex,
		attrs:     []rawAttr{codeAttr(mc.codeName, maxStack, maxLocals, code)},
	})
	nat := mc.b.nameAndType(nameIndex, descIndex)
	return mc.b.methodref(mc.thisClass, nat)
}

// build finishes the class with a main method running code.
func (mc *mainClass) build(maxStack, maxLocals uint16, code []byte) []byte {
	methods := []rawMember{{
		flags:     0x0008 | 0x0001,
		nameIndex: mc.mainName,
		descIndex: mc.mainDesc,
		attrs:     []rawAttr{codeAttr(mc.codeName, maxStack, maxLocals, code)},
	}}
	methods = append(methods, mc.extraMethods...)
	return mc.b.build(0x0021, mc.thisClass, mc.superClass, mc.extraFields, methods, mc.classAttrs)
}

// parseClass decodes a built image, failing the test on any parse error.
func parseClass(t *testing.T, data []byte) *File {
	t.Helper()
	cf, err := NewBytes(data, &Options{})
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if err := cf.Parse(); err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}
	return cf
}

// runMain interprets the class's main method and returns the captured
// print-sink output.
func runMain(t *testing.T, data []byte) (string, error) {
	t.Helper()
	cf := parseClass(t, data)
	sink := &BufferSink{}
	interp := NewInterpreter(NewRegistry(), sink, &Options{})
	err := interp.RunMain(cf)
	return sink.String(), err
}

// bc assembles opcode byte sequences for scenario code; uint16 elements
// encode big-endian operand pairs.
func bc(ops ...interface{}) []byte {
	var out []byte
	for _, op := range ops {
		switch v := op.(type) {
		case Opcode:
			out = append(out, byte(v))
		case int:
			out = append(out, byte(v))
		case uint16:
			out = appendU2(out, v)
		default:
			panic("unsupported bytecode element")
		}
	}
	return out
}
