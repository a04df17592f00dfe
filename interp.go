// Copyright 2023 Pava. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pava

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jonaslsaa/pava/log"
)

// Host-modeled class names.
const (
	systemClass      = "java/lang/System"
	printStreamClass = "java/io/PrintStream"
)

// Interpreter executes method bytecode against a class registry and a
// print sink. Execution is strictly sequential: one frame at a time, a
// callee frame nested inside its caller's RunMethod call.
type Interpreter struct {
	registry *Registry
	sink     PrintSink
	logger   *log.Helper
	opts     *Options
}

// NewInterpreter returns an interpreter over registry writing host output
// to sink. A nil registry, sink or opts selects the defaults.
func NewInterpreter(registry *Registry, sink PrintSink, opts *Options) *Interpreter {
	if registry == nil {
		registry = NewRegistry()
	}
	if sink == nil {
		sink = NewStdoutSink()
	}
	if opts == nil {
		opts = &Options{}
	}

	var helper *log.Helper
	if opts.Logger == nil {
		helper = log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr),
			log.FilterLevel(log.LevelError)))
	} else {
		helper = log.NewHelper(opts.Logger)
	}

	return &Interpreter{
		registry: registry,
		sink:     sink,
		logger:   helper,
		opts:     opts,
	}
}

// Registry exposes the interpreter's class registry.
func (in *Interpreter) Registry() *Registry {
	return in.registry
}

// Initialize makes the named class ready for static access: allocates the
// static-field zero values and runs <clinit> if present. It is idempotent;
// the initialized mark is set before <clinit> runs so self references from
// the initializer resolve, and <clinit> consequently runs at most once.
func (in *Interpreter) Initialize(name string) (*RuntimeClass, error) {
	rc, ok := in.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("class %s is not registered: %w", name, ErrUnresolvedSymbol)
	}
	if rc.Initialized() {
		return rc, nil
	}
	rc.markInitialized()

	if err := rc.allocStatics(); err != nil {
		return nil, fmt.Errorf("static fields of %s: %w: %w", name, err, ErrClassInitFailure)
	}
	if clinit, ok := rc.File.MethodByNameDesc("<clinit>", "()V"); ok {
		in.logger.Debugf("running <clinit> of %s", name)
		if _, err := in.RunMethod(rc, clinit, nil); err != nil {
			return nil, fmt.Errorf("<clinit> of %s: %w: %w", name, err, ErrClassInitFailure)
		}
	}
	return rc, nil
}

// RunMain registers cf, initializes it and runs its main method with
// zero-valued arguments. This is the CLI entry point.
func (in *Interpreter) RunMain(cf *File) error {
	rc, err := in.registry.Register(cf)
	if err != nil {
		return err
	}
	if rc, err = in.Initialize(rc.Name()); err != nil {
		return err
	}

	main, ok := cf.MethodByNameDesc("main", "([Ljava/lang/String;)V")
	if !ok {
		mains := cf.MethodsByName("main")
		if len(mains) != 1 {
			return fmt.Errorf("class %s has no unambiguous main method: %w",
				rc.Name(), ErrUnresolvedSymbol)
		}
		main = mains[0]
	}

	argTypes, _, err := ParseMethodDescriptor(main.Descriptor)
	if err != nil {
		return err
	}
	args := make([]Operand, 0, len(argTypes))
	for _, t := range argTypes {
		args = append(args, zeroOfType(t))
	}

	_, err = in.RunMethod(rc, main, args)
	return err
}

// RunMethod executes one method in a fresh frame. Arguments populate the
// local-variable slots in order; category-2 values take two slots. The
// return value is the operand a *return opcode terminated the frame with,
// VOID for plain return.
func (in *Interpreter) RunMethod(rc *RuntimeClass, m *MethodInfo, args []Operand) (Operand, error) {
	code := m.CodeAttribute()
	if code == nil {
		return Operand{}, fmt.Errorf("method %s.%s%s has no Code attribute: %w",
			rc.Name(), m.Name, m.Descriptor, ErrUnresolvedSymbol)
	}

	frame := NewFrame(code.MaxStack, code.MaxLocals)
	slot := 0
	for _, arg := range args {
		if err := frame.SetLocal(slot, arg); err != nil {
			return Operand{}, in.fault(rc, m, frame, 0, OpNop,
				fmt.Errorf("argument slot %d: %w", slot, err))
		}
		slot++
		if arg.Type.IsCategory2() {
			slot++
		}
	}

	r := NewReader(code.Code)
	for frame.state == frameRunning {
		if r.Remaining() == 0 {
			frame.fail()
			err := fmt.Errorf("control fell off the end of the code: %w", ErrMalformedClassFile)
			return Operand{}, in.fault(rc, m, frame, r.Offset(), OpNop, err)
		}

		pc := r.Offset()
		b, _ := r.U1()
		op := Opcode(b)
		if in.opts.TraceExecution {
			in.logger.Debugf("%s.%s %4d %s", rc.Name(), m.Name, pc, op)
		}

		if err := in.step(rc, frame, r, op, pc); err != nil {
			frame.fail()
			return Operand{}, in.fault(rc, m, frame, pc, op, err)
		}
	}
	return frame.result, nil
}

// fault logs the frame-level diagnostic snapshot and wraps err with the
// faulting location.
func (in *Interpreter) fault(rc *RuntimeClass, m *MethodInfo, frame *Frame, pc int, op Opcode, err error) error {
	in.logger.Errorf("fault in %s.%s%s at pc=%d opcode=%s: %v; %s; registered classes: %v",
		rc.Name(), m.Name, m.Descriptor, pc, op, err, frame.Snapshot(), in.registry.Names())
	return fmt.Errorf("%s.%s%s pc=%d %s: %w", rc.Name(), m.Name, m.Descriptor, pc, op, err)
}

// step executes a single decoded opcode. pc is the offset of the opcode
// byte itself; r is positioned right after it.
func (in *Interpreter) step(rc *RuntimeClass, frame *Frame, r *Reader, op Opcode, pc int) error {
	switch op {

	case OpNop:
		return nil

	case OpAconstNull:
		return frame.Push(NullOperand())

	case OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5:
		return frame.Push(IntOperand(int32(op - OpIconst0)))

	case OpLconst0, OpLconst1:
		return frame.Push(LongOperand(int64(op - OpLconst0)))

	case OpFconst0, OpFconst1, OpFconst2:
		return frame.Push(FloatOperand(float32(op - OpFconst0)))

	case OpBipush:
		v, err := r.I1()
		if err != nil {
			return err
		}
		return frame.Push(IntOperand(int32(v)))

	case OpSipush:
		v, err := r.I2()
		if err != nil {
			return err
		}
		return frame.Push(IntOperand(int32(v)))

	case OpLdc:
		index, err := r.U1()
		if err != nil {
			return err
		}
		return in.ldc(rc, frame, uint16(index))

	case OpIload:
		index, err := r.U1()
		if err != nil {
			return err
		}
		return in.loadLocal(frame, int(index), TypeInt)
	case OpIload0, OpIload1, OpIload2, OpIload3:
		return in.loadLocal(frame, int(op-OpIload0), TypeInt)
	case OpFload0, OpFload1, OpFload2, OpFload3:
		return in.loadLocal(frame, int(op-OpFload0), TypeFloat)
	case OpAload0, OpAload1, OpAload2, OpAload3:
		return in.loadLocal(frame, int(op-OpAload0), TypeReference)

	case OpIstore:
		index, err := r.U1()
		if err != nil {
			return err
		}
		return in.storeLocal(frame, int(index), TypeInt)
	case OpIstore0, OpIstore1, OpIstore2, OpIstore3:
		return in.storeLocal(frame, int(op-OpIstore0), TypeInt)
	case OpFstore0, OpFstore1, OpFstore2, OpFstore3:
		return in.storeLocal(frame, int(op-OpFstore0), TypeFloat)

	case OpAstore1:
		ref, err := frame.Pop()
		if err != nil {
			return err
		}
		if ref.Type != TypeReference && ref.Type != TypeReturnAddr {
			return fmt.Errorf("astore_1 of %s: %w", ref.Type, ErrTypeMismatch)
		}
		return frame.SetLocal(1, ref)

	case OpPop:
		_, err := frame.Pop()
		return err

	case OpDup:
		top, err := frame.Peek()
		if err != nil {
			return err
		}
		if top.Type.IsCategory2() {
			return fmt.Errorf("dup of category-2 %s: %w", top.Type, ErrTypeMismatch)
		}
		return frame.Push(top)

	case OpIadd, OpIsub, OpImul, OpIdiv:
		return in.intArithmetic(frame, op)

	case OpFadd, OpFsub, OpFmul, OpFdiv:
		return in.floatArithmetic(frame, op)

	case OpIinc:
		index, err := r.U1()
		if err != nil {
			return err
		}
		delta, err := r.I1()
		if err != nil {
			return err
		}
		local, err := frame.Local(int(index))
		if err != nil {
			return err
		}
		if local.Type != TypeInt {
			return fmt.Errorf("iinc of local %d holding %s: %w", index, local.Type, ErrTypeMismatch)
		}
		return frame.SetLocal(int(index), IntOperand(local.Int()+int32(delta)))

	case OpI2f:
		v, err := frame.PopExpected(TypeInt)
		if err != nil {
			return err
		}
		return frame.Push(FloatOperand(float32(v.Int())))

	case OpF2i:
		v, err := frame.PopExpected(TypeFloat)
		if err != nil {
			return err
		}
		return frame.Push(IntOperand(truncateToInt32(float64(v.Float()))))

	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
		return in.intCompareBranch(frame, r, op, pc)

	case OpGoto:
		offset, err := r.I2()
		if err != nil {
			return err
		}
		return r.Seek(pc+int(offset), io.SeekStart)

	case OpGetstatic:
		index, err := r.U2()
		if err != nil {
			return err
		}
		return in.getstatic(rc, frame, index)

	case OpPutstatic:
		index, err := r.U2()
		if err != nil {
			return err
		}
		return in.putstatic(rc, frame, index)

	case OpInvokevirtual:
		index, err := r.U2()
		if err != nil {
			return err
		}
		return in.invokevirtual(rc, frame, index)

	case OpInvokespecial:
		// Object allocation is not modeled; <init> chains are accepted
		// and skipped.
		_, err := r.U2()
		return err

	case OpInvokestatic:
		index, err := r.U2()
		if err != nil {
			return err
		}
		return in.invokestatic(frame, rc, index)

	case OpInvokedynamic:
		return in.invokedynamic(rc, r)

	case OpNewarray:
		atype, err := r.U1()
		if err != nil {
			return err
		}
		count, err := frame.PopExpected(TypeInt)
		if err != nil {
			return err
		}
		if count.Int() < 0 {
			return fmt.Errorf("newarray with negative count %d: %w",
				count.Int(), ErrOutOfBoundsArrayAccess)
		}
		elemType, elemZero, err := newarrayElem(atype)
		if err != nil {
			return err
		}
		array := &Array{ElemType: elemType, Elems: make([]Operand, count.Int())}
		for i := range array.Elems {
			array.Elems[i] = elemZero
		}
		return frame.Push(ArrayOperand(array))

	case OpArraylength:
		ref, err := frame.PopExpected(TypeReference)
		if err != nil {
			return err
		}
		array := ref.Array()
		if array == nil {
			return fmt.Errorf("arraylength of %s: %w", ref, ErrTypeMismatch)
		}
		return frame.Push(IntOperand(int32(len(array.Elems))))

	case OpIaload:
		index, err := frame.PopExpected(TypeInt)
		if err != nil {
			return err
		}
		array, err := in.popIntArray(frame)
		if err != nil {
			return err
		}
		i := index.Int()
		if i < 0 || int(i) >= len(array.Elems) {
			return fmt.Errorf("iaload index %d of array length %d: %w",
				i, len(array.Elems), ErrOutOfBoundsArrayAccess)
		}
		return frame.Push(array.Elems[i])

	case OpIastore:
		value, err := frame.PopExpected(TypeInt)
		if err != nil {
			return err
		}
		index, err := frame.PopExpected(TypeInt)
		if err != nil {
			return err
		}
		array, err := in.popIntArray(frame)
		if err != nil {
			return err
		}
		i := index.Int()
		if i < 0 || int(i) >= len(array.Elems) {
			return fmt.Errorf("iastore index %d of array length %d: %w",
				i, len(array.Elems), ErrOutOfBoundsArrayAccess)
		}
		array.Elems[i] = value
		return nil

	case OpIreturn:
		return in.returnTyped(frame, TypeInt)
	case OpLreturn:
		return in.returnTyped(frame, TypeLong)
	case OpFreturn:
		return in.returnTyped(frame, TypeFloat)
	case OpDreturn:
		return in.returnTyped(frame, TypeDouble)

	case OpAreturn:
		v, err := frame.Pop()
		if err != nil {
			return err
		}
		if v.Type != TypeReference && v.Type != TypeObject {
			return fmt.Errorf("areturn of %s: %w", v.Type, ErrTypeMismatch)
		}
		frame.returnWith(v)
		return nil

	case OpReturn:
		frame.returnWith(VoidOperand())
		return nil

	default:
		return fmt.Errorf("opcode 0x%02X: %w", uint8(op), ErrUnsupportedOpcode)
	}
}

func (in *Interpreter) ldc(rc *RuntimeClass, frame *Frame, index uint16) error {
	entry, err := rc.File.At(index)
	if err != nil {
		return err
	}
	switch entry.Tag {
	case ConstantString:
		return frame.Push(StringOperand(StringRef{Owner: rc.File, Index: index}))
	case ConstantInteger:
		return frame.Push(IntOperand(entry.Int))
	case ConstantFloat:
		return frame.Push(FloatOperand(entry.Float))
	default:
		return fmt.Errorf("ldc of %s constant: %w", entry.Tag, ErrUnsupportedOpcode)
	}
}

func (in *Interpreter) loadLocal(frame *Frame, index int, want OperandType) error {
	local, err := frame.Local(index)
	if err != nil {
		return err
	}
	if local.Type != want {
		return fmt.Errorf("local %d holds %s, want %s: %w",
			index, local.Type, want, ErrTypeMismatch)
	}
	return frame.Push(local)
}

func (in *Interpreter) storeLocal(frame *Frame, index int, want OperandType) error {
	v, err := frame.PopExpected(want)
	if err != nil {
		return err
	}
	return frame.SetLocal(index, v)
}

func (in *Interpreter) intArithmetic(frame *Frame, op Opcode) error {
	v2, err := frame.PopExpected(TypeInt)
	if err != nil {
		return err
	}
	v1, err := frame.PopExpected(TypeInt)
	if err != nil {
		return err
	}

	var result int32
	switch op {
	case OpIadd:
		result = v1.Int() + v2.Int()
	case OpIsub:
		result = v1.Int() - v2.Int()
	case OpImul:
		result = v1.Int() * v2.Int()
	case OpIdiv:
		if v2.Int() == 0 {
			return ErrDivideByZero
		}
		// Go and the JVM agree on truncation toward zero and on
		// MinInt32 / -1 wrapping to MinInt32.
		result = v1.Int() / v2.Int()
	}
	return frame.Push(IntOperand(result))
}

func (in *Interpreter) floatArithmetic(frame *Frame, op Opcode) error {
	v2, err := frame.PopExpected(TypeFloat)
	if err != nil {
		return err
	}
	v1, err := frame.PopExpected(TypeFloat)
	if err != nil {
		return err
	}

	var result float32
	switch op {
	case OpFadd:
		result = v1.Float() + v2.Float()
	case OpFsub:
		result = v1.Float() - v2.Float()
	case OpFmul:
		result = v1.Float() * v2.Float()
	case OpFdiv:
		// IEEE-754: division by zero yields an infinity or NaN.
		result = v1.Float() / v2.Float()
	}
	return frame.Push(FloatOperand(result))
}

// intCompareBranch implements the if_icmp<cond> family. The branch offset
// is signed 16-bit and relative to the opcode's own pc, and is consumed
// whether or not the branch is taken.
func (in *Interpreter) intCompareBranch(frame *Frame, r *Reader, op Opcode, pc int) error {
	v2, err := frame.PopExpected(TypeInt)
	if err != nil {
		return err
	}
	v1, err := frame.PopExpected(TypeInt)
	if err != nil {
		return err
	}
	offset, err := r.I2()
	if err != nil {
		return err
	}

	var taken bool
	switch op {
	case OpIfIcmpeq:
		taken = v1.Int() == v2.Int()
	case OpIfIcmpne:
		taken = v1.Int() != v2.Int()
	case OpIfIcmplt:
		taken = v1.Int() < v2.Int()
	case OpIfIcmpge:
		taken = v1.Int() >= v2.Int()
	case OpIfIcmpgt:
		taken = v1.Int() > v2.Int()
	case OpIfIcmple:
		taken = v1.Int() <= v2.Int()
	}
	if !taken {
		return nil
	}
	return r.Seek(pc+int(offset), io.SeekStart)
}

func (in *Interpreter) getstatic(rc *RuntimeClass, frame *Frame, index uint16) error {
	ref, err := rc.File.FieldrefAt(index)
	if err != nil {
		return err
	}

	// java/lang/System.out resolves to the host print-stream sentinel.
	if ref.ClassName == systemClass && ref.Name == "out" {
		return frame.Push(Operand{Type: TypeObject, Value: printStreamSentinel})
	}

	target, err := in.Initialize(ref.ClassName)
	if err != nil {
		return err
	}
	value, err := target.GetStatic(ref.Name)
	if err != nil {
		return err
	}
	return frame.Push(value)
}

func (in *Interpreter) putstatic(rc *RuntimeClass, frame *Frame, index uint16) error {
	ref, err := rc.File.FieldrefAt(index)
	if err != nil {
		return err
	}
	target, err := in.Initialize(ref.ClassName)
	if err != nil {
		return err
	}

	want, err := ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	value, err := frame.PopExpected(want)
	if err != nil {
		return err
	}
	return target.SetStatic(ref.Name, value)
}

func (in *Interpreter) invokevirtual(rc *RuntimeClass, frame *Frame, index uint16) error {
	ref, err := rc.File.MethodrefAt(index)
	if err != nil {
		return err
	}
	if ref.ClassName != printStreamClass || (ref.Name != "print" && ref.Name != "println") {
		return fmt.Errorf("invokevirtual %s: %w", ref, ErrUnsupportedHostCall)
	}

	argTypes, _, err := ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}
	if len(argTypes) != 1 {
		return fmt.Errorf("invokevirtual %s with %d arguments: %w",
			ref, len(argTypes), ErrUnsupportedHostCall)
	}

	arg, err := frame.PopExpected(argTypes[0])
	if err != nil {
		return err
	}
	receiver, err := frame.Pop()
	if err != nil {
		return err
	}
	if receiver.Type != TypeObject || receiver.Value != printStreamSentinel {
		return fmt.Errorf("invokevirtual %s on receiver %s: %w",
			ref, receiver, ErrUnsupportedHostCall)
	}

	text, err := formatOperand(rc.File, arg)
	if err != nil {
		return err
	}
	if ref.Name == "println" {
		return in.sink.Writeln(text)
	}
	return in.sink.Write(text)
}

func (in *Interpreter) invokestatic(frame *Frame, rc *RuntimeClass, index uint16) error {
	// The operand is a plain unsigned u2 pool index; nothing else follows
	// it in the encoding.
	ref, err := rc.File.MethodrefAt(index)
	if err != nil {
		return err
	}

	target, err := in.Initialize(ref.ClassName)
	if err != nil {
		return err
	}
	method, ok := target.File.MethodByNameDesc(ref.Name, ref.Descriptor)
	if !ok {
		return fmt.Errorf("invokestatic %s: %w", ref, ErrUnresolvedSymbol)
	}
	if !method.IsStatic() {
		return fmt.Errorf("invokestatic of non-static %s: %w", ref, ErrUnresolvedSymbol)
	}

	argTypes, returnType, err := ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}

	// Arguments sit on the stack in declaration order, so they pop off in
	// reverse.
	args := make([]Operand, len(argTypes))
	for i := len(argTypes) - 1; i >= 0; i-- {
		if args[i], err = frame.PopExpected(argTypes[i]); err != nil {
			return err
		}
	}

	result, err := in.RunMethod(target, method, args)
	if err != nil {
		return err
	}
	if returnType == TypeVoid {
		return nil
	}
	if result.Type != returnType {
		return fmt.Errorf("invokestatic %s returned %s, want %s: %w",
			ref, result.Type, returnType, ErrTypeMismatch)
	}
	return frame.Push(result)
}

// invokedynamic resolves the call site structurally: the InvokeDynamic
// constant, its bootstrap method and its name and type. Executing the call
// site is outside the subset.
func (in *Interpreter) invokedynamic(rc *RuntimeClass, r *Reader) error {
	index, err := r.U2()
	if err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		zero, err := r.U1()
		if err != nil {
			return err
		}
		if zero != 0 {
			return fmt.Errorf("invokedynamic reserved byte is 0x%02X: %w",
				zero, ErrMalformedClassFile)
		}
	}

	entry, err := rc.File.at(index, ConstantInvokeDynamic)
	if err != nil {
		return err
	}
	bsm, err := rc.File.BootstrapMethodAt(entry.BootstrapMethodAttrIndex)
	if err != nil {
		return err
	}
	name, descriptor, err := rc.File.NameAndTypeAt(entry.NameAndTypeIndex)
	if err != nil {
		return err
	}
	in.logger.Debugf("invokedynamic %s:%s bootstrap method ref %d with %d arguments",
		name, descriptor, bsm.MethodRef, len(bsm.Arguments))

	return fmt.Errorf("invokedynamic %s:%s: %w", name, descriptor, ErrUnsupportedOpcode)
}

func (in *Interpreter) popIntArray(frame *Frame) (*Array, error) {
	ref, err := frame.PopExpected(TypeReference)
	if err != nil {
		return nil, err
	}
	array := ref.Array()
	if array == nil {
		return nil, fmt.Errorf("array access through %s: %w", ref, ErrTypeMismatch)
	}
	if array.ElemType != TypeInt {
		return nil, fmt.Errorf("int access to %s array: %w", array.ElemType, ErrTypeMismatch)
	}
	return array, nil
}

func (in *Interpreter) returnTyped(frame *Frame, want OperandType) error {
	v, err := frame.PopExpected(want)
	if err != nil {
		return err
	}
	frame.returnWith(v)
	return nil
}

// truncateToInt32 converts a float to int with truncation toward zero and
// JVM saturation: NaN maps to zero, out-of-range values clamp.
func truncateToInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}
