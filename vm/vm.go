// Package vm implements the Gunderscript bytecode interpreter: a typed
// operand stack, a frame stack of scoped variable slots, a native
// callback table, and the opcode dispatch loop described in §4.4.
package vm

import (
	"gunderscript/bytecode"
)

// Program is a compiled unit ready to load into a VM: the raw
// instruction buffer plus its function directory. The compiler produces
// one directly; the gxb package produces one by decoding a .gxb file.
type Program struct {
	Code      []byte
	Functions []Function
}

// VM executes one Program at a time. One embedded instance holds one VM;
// ExecuteFunction runs to completion or error before returning, and
// callbacks must not re-enter the same instance (§5).
type VM struct {
	code      []byte
	operand   *operandStack
	frames    *frameStack
	callbacks *callbackRegistry
	functions *functionTable
	ip        int
	nativeErr *Error
}

// New constructs a VM with the given resource limits. Call
// RegisterCallback for every native function before the first
// ExecuteFunction call (§5, §6.4); the VM itself does not reject a
// RegisterCallback call made after execution has begun.
func New(limits Limits) *VM {
	return &VM{
		operand:   newOperandStack(limits.OperandStackSize),
		frames:    newFrameStack(limits.FrameStackSize),
		callbacks: newCallbackRegistry(limits.CallbackCapacity),
		functions: newFunctionTable(),
	}
}

// RegisterCallback installs a native callback under name, returning the
// dense index the compiler will embed into CALL_NATIVE instructions that
// call it by that name.
func (v *VM) RegisterCallback(name string, fn Callback) (int, error) {
	idx, code := v.callbacks.register(name, fn)
	if code != Success {
		return 0, newError(code, v.ip)
	}
	return idx, nil
}

// CallbackIndex returns the dense index registered for name, used by the
// compiler to resolve a call site at compile time.
func (v *VM) CallbackIndex(name string) (int, bool) {
	return v.callbacks.indexOf(name)
}

// Fail lets a native callback raise a VM-level runtime error in place of
// a result, mirroring the C ABI's vm_set_err-then-return-false idiom
// (src/libmath.c et al.): a callback calls `return vm.Fail(code)` instead
// of pushing a value. execCallNative checks for a pending failure right
// after the callback returns and, if set, aborts the run loop with it
// instead of treating the call as a normal (possibly valueless) return.
func (v *VM) Fail(code ErrCode) bool {
	v.nativeErr = newError(code, v.ip)
	return false
}

// Top returns the value currently on top of the operand stack without
// removing it, for tests and embedding code that need to inspect a
// native callback's result right after calling it directly.
func (v *VM) Top() (Value, bool) {
	return v.operand.peek()
}

// Push lets a native callback push a result value directly, for
// callbacks that produce more than Callback's boolean-plus-implicit-
// top-of-stack convention can express on its own (stdlib callbacks call
// this then return true).
func (v *VM) Push(val Value) bool {
	if err := v.push(val); err != nil {
		v.nativeErr = err
		return false
	}
	return true
}

// Load installs prog as the code this VM will execute. Exported
// functions become valid ExecuteFunction entry points.
func (v *VM) Load(prog Program) {
	v.code = prog.Code
	v.functions = newFunctionTable()
	for _, fn := range prog.Functions {
		v.functions.add(fn)
	}
}

// ExecuteFunction runs the exported script function named name to
// completion, passing args as its arguments, and returns its result (Null
// for a function that falls off its end without a return statement).
func (v *VM) ExecuteFunction(name string, args ...Value) (Value, error) {
	fn, ok := v.functions.lookup(name)
	if !ok || !fn.Exported {
		return Value{}, newError(NonexistentCallback, v.ip)
	}
	if len(args) != fn.ArgCount {
		return Value{}, newError(IncorrectArgCountToNativeCallback, v.ip)
	}

	slots := make([]Value, fn.TotalSlots)
	for i, a := range args {
		slots[i] = a
	}
	if !v.frames.push(Frame{ReturnAddr: noReturn, Slots: slots}) {
		return Value{}, newError(StackOverflow, v.ip)
	}
	v.ip = int(fn.Entry)

	return v.run()
}

func (v *VM) fail(code ErrCode) *Error {
	return newError(code, v.ip)
}

func (v *VM) fetchByte() (byte, *Error) {
	if v.ip >= len(v.code) {
		return 0, v.fail(UnexpectedEndOfCode)
	}
	b := v.code[v.ip]
	v.ip++
	return b, nil
}

func (v *VM) fetchU8() (int, *Error) {
	b, err := v.fetchByte()
	if err != nil {
		return 0, err
	}
	return int(b), nil
}

func (v *VM) fetchI32() (int32, *Error) {
	if v.ip+4 > len(v.code) {
		return 0, v.fail(UnexpectedEndOfCode)
	}
	val := bytecode.ReadI32(v.code, v.ip)
	v.ip += 4
	return val, nil
}

func (v *VM) fetchF64() (float64, *Error) {
	if v.ip+8 > len(v.code) {
		return 0, v.fail(UnexpectedEndOfCode)
	}
	val := bytecode.ReadF64(v.code, v.ip)
	v.ip += 8
	return val, nil
}

func (v *VM) fetchBytes(n int) ([]byte, *Error) {
	if v.ip+n > len(v.code) {
		return nil, v.fail(UnexpectedEndOfCode)
	}
	b := v.code[v.ip : v.ip+n]
	v.ip += n
	return b, nil
}

func (v *VM) pop() (Value, *Error) {
	val, ok := v.operand.pop()
	if !ok {
		return Value{}, v.fail(OperandStackEmpty)
	}
	return val, nil
}

func (v *VM) push(val Value) *Error {
	if !v.operand.push(val) {
		return v.fail(StackOverflow)
	}
	return nil
}

func (v *VM) popNumber() (float64, *Error) {
	val, err := v.pop()
	if err != nil {
		return 0, err
	}
	if val.Type != TypeNumber {
		return 0, v.fail(InvalidTypeInOperation)
	}
	return val.Number, nil
}

func (v *VM) popBoolean() (bool, *Error) {
	val, err := v.pop()
	if err != nil {
		return false, err
	}
	if val.Type != TypeBoolean {
		return false, v.fail(InvalidTypeInOperation)
	}
	return val.Boolean, nil
}

// run drives the fetch-decode-execute loop until the initial call frame
// unwinds back to depth zero or EXIT is hit, returning the result left on
// top of the operand stack (Null if none).
func (v *VM) run() (Value, error) {
	for {
		opByte, ferr := v.fetchByte()
		if ferr != nil {
			return Value{}, ferr
		}
		op := bytecode.Opcode(opByte)

		switch op {
		case bytecode.VAR_PUSH:
			if err := v.execVarPush(); err != nil {
				return Value{}, err
			}
		case bytecode.VAR_STOR:
			if err := v.execVarStor(); err != nil {
				return Value{}, err
			}
		case bytecode.FRM_PUSH:
			if err := v.execFrmPush(); err != nil {
				return Value{}, err
			}
		case bytecode.FRM_POP:
			result, done, err := v.execFrmPop()
			if err != nil {
				return Value{}, err
			}
			if done {
				return result, nil
			}
		case bytecode.CALL_SCRIPT:
			if err := v.execCallScript(); err != nil {
				return Value{}, err
			}
		case bytecode.CALL_NATIVE:
			if err := v.execCallNative(); err != nil {
				return Value{}, err
			}
		case bytecode.ADD:
			if err := v.execAdd(); err != nil {
				return Value{}, err
			}
		case bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD:
			if err := v.execArith(op); err != nil {
				return Value{}, err
			}
		case bytecode.LT, bytecode.GT, bytecode.LTE, bytecode.GTE, bytecode.EQUALS, bytecode.NOT_EQUALS:
			if err := v.execCompare(op); err != nil {
				return Value{}, err
			}
		case bytecode.AND, bytecode.OR:
			if err := v.execBoolLogic(op); err != nil {
				return Value{}, err
			}
		case bytecode.NOT:
			b, err := v.popBoolean()
			if err != nil {
				return Value{}, err
			}
			if err := v.push(NewBoolean(!b)); err != nil {
				return Value{}, err
			}
		case bytecode.NUM_PUSH:
			n, err := v.fetchF64()
			if err != nil {
				return Value{}, err
			}
			if perr := v.push(NewNumber(n)); perr != nil {
				return Value{}, perr
			}
		case bytecode.BOOL_PUSH:
			b, err := v.fetchU8()
			if err != nil {
				return Value{}, err
			}
			if b != 0 && b != 1 {
				return Value{}, v.fail(InvalidOpcodeParameter)
			}
			if perr := v.push(NewBoolean(b == 1)); perr != nil {
				return Value{}, perr
			}
		case bytecode.STR_PUSH:
			if err := v.execStrPush(); err != nil {
				return Value{}, err
			}
		case bytecode.NULL_PUSH:
			if err := v.push(Null); err != nil {
				return Value{}, err
			}
		case bytecode.GOTO:
			addr, err := v.fetchI32()
			if err != nil {
				return Value{}, err
			}
			if err := v.jump(addr); err != nil {
				return Value{}, err
			}
		case bytecode.TCOND_GOTO, bytecode.FCOND_GOTO:
			if err := v.execCondGoto(op); err != nil {
				return Value{}, err
			}
		case bytecode.POP:
			val, err := v.pop()
			if err != nil {
				return Value{}, err
			}
			val.decRef()
		case bytecode.EXIT:
			result, _ := v.operand.peek()
			return result, nil
		default:
			return Value{}, v.fail(InvalidOpcode)
		}
	}
}

func (v *VM) jump(addr int32) *Error {
	if addr < 0 || int(addr) > len(v.code) {
		return v.fail(InvalidAddress)
	}
	v.ip = int(addr)
	return nil
}

func (v *VM) execVarPush() *Error {
	d, err := v.fetchU8()
	if err != nil {
		return err
	}
	s, err := v.fetchU8()
	if err != nil {
		return err
	}
	frame, ok := v.frames.at(d)
	if !ok || s < 0 || s >= len(frame.Slots) {
		return v.fail(FrameVariableAccessFailed)
	}
	val := frame.Slots[s]
	val.incRef()
	return v.push(val)
}

func (v *VM) execVarStor() *Error {
	d, err := v.fetchU8()
	if err != nil {
		return err
	}
	s, err := v.fetchU8()
	if err != nil {
		return err
	}
	newVal, ok := v.operand.peek()
	if !ok {
		return v.fail(OperandStackEmpty)
	}
	frame, ok := v.frames.at(d)
	if !ok || s < 0 || s >= len(frame.Slots) {
		return v.fail(FrameVariableAccessFailed)
	}
	old := frame.Slots[s]
	newVal.incRef()
	frame.Slots[s] = newVal
	old.decRef()
	return nil
}

func (v *VM) execFrmPush() *Error {
	n, err := v.fetchU8()
	if err != nil {
		return err
	}
	if !v.frames.push(newFrame(n, noReturn)) {
		return v.fail(StackOverflow)
	}
	return nil
}

// execFrmPop pops the current frame. When the pop drains the frame stack
// back to depth zero, the current ExecuteFunction call is complete; the
// result is whatever value is left on top of the operand stack (Null for
// a function with no explicit return).
func (v *VM) execFrmPop() (Value, bool, *Error) {
	frame, ok := v.frames.pop()
	if !ok {
		return Value{}, false, v.fail(FrameStackEmpty)
	}
	if v.frames.depth() == 0 {
		result, ok := v.operand.pop()
		if !ok {
			result = Null
		}
		return result, true, nil
	}
	if frame.ReturnAddr != noReturn {
		v.ip = frame.ReturnAddr
	}
	return Value{}, false, nil
}

func (v *VM) execCallScript() *Error {
	n, err := v.fetchU8()
	if err != nil {
		return err
	}
	a, err := v.fetchU8()
	if err != nil {
		return err
	}
	addr, err := v.fetchI32()
	if err != nil {
		return err
	}
	if addr < 0 || int(addr) > len(v.code) {
		return v.fail(InvalidAddress)
	}
	if a > n {
		return v.fail(InvalidOpcodeParameter)
	}

	slots := make([]Value, n)
	for i := a - 1; i >= 0; i-- {
		val, perr := v.pop()
		if perr != nil {
			return perr
		}
		slots[i] = val
	}
	returnAddr := v.ip
	if !v.frames.push(Frame{ReturnAddr: returnAddr, Slots: slots}) {
		return v.fail(StackOverflow)
	}
	v.ip = int(addr)
	return nil
}

func (v *VM) execCallNative() *Error {
	a, err := v.fetchU8()
	if err != nil {
		return err
	}
	idx, err := v.fetchI32()
	if err != nil {
		return err
	}
	fn, ok := v.callbacks.at(int(idx))
	if !ok {
		return v.fail(NonexistentCallback)
	}
	args := make([]Value, a)
	for i := a - 1; i >= 0; i-- {
		val, perr := v.pop()
		if perr != nil {
			return perr
		}
		args[i] = val
	}
	pushedResult := fn(v, args)
	for _, arg := range args {
		arg.decRef()
	}
	if v.nativeErr != nil {
		err := v.nativeErr
		v.nativeErr = nil
		return err
	}
	if !pushedResult {
		return v.push(Null)
	}
	return nil
}

func (v *VM) execAdd() *Error {
	rhs, err := v.pop()
	if err != nil {
		return err
	}
	lhs, err := v.pop()
	if err != nil {
		return err
	}
	defer rhs.decRef()
	defer lhs.decRef()

	if lhs.Type == TypeNumber && rhs.Type == TypeNumber {
		return v.push(NewNumber(lhs.Number + rhs.Number))
	}
	lhsStr, lhsOK := stringPayload(lhs)
	rhsStr, rhsOK := stringPayload(rhs)
	if lhsOK && rhsOK {
		return v.push(newStringValue(lhsStr + rhsStr))
	}
	return v.fail(InvalidTypeInOperation)
}

func stringPayload(val Value) (string, bool) {
	return StringPayload(val)
}

func newStringValue(s string) Value {
	return NewString(s)
}

func (v *VM) execArith(op bytecode.Opcode) *Error {
	rhs, err := v.popNumber()
	if err != nil {
		return err
	}
	lhs, err := v.popNumber()
	if err != nil {
		return err
	}
	var result float64
	switch op {
	case bytecode.SUB:
		result = lhs - rhs
	case bytecode.MUL:
		result = lhs * rhs
	case bytecode.DIV:
		if rhs == 0 {
			return v.fail(DivideByZero)
		}
		result = lhs / rhs
	case bytecode.MOD:
		if rhs == 0 {
			return v.fail(DivideByZero)
		}
		result = float64(int64(lhs) % int64(rhs))
	}
	return v.push(NewNumber(result))
}

func (v *VM) execCompare(op bytecode.Opcode) *Error {
	rhs, err := v.popNumber()
	if err != nil {
		return err
	}
	lhs, err := v.popNumber()
	if err != nil {
		return err
	}
	var result bool
	switch op {
	case bytecode.LT:
		result = lhs < rhs
	case bytecode.GT:
		result = lhs > rhs
	case bytecode.LTE:
		result = lhs <= rhs
	case bytecode.GTE:
		result = lhs >= rhs
	case bytecode.EQUALS:
		result = lhs == rhs
	case bytecode.NOT_EQUALS:
		result = lhs != rhs
	}
	return v.push(NewBoolean(result))
}

func (v *VM) execBoolLogic(op bytecode.Opcode) *Error {
	rhs, err := v.popBoolean()
	if err != nil {
		return err
	}
	lhs, err := v.popBoolean()
	if err != nil {
		return err
	}
	var result bool
	if op == bytecode.AND {
		result = lhs && rhs
	} else {
		result = lhs || rhs
	}
	return v.push(NewBoolean(result))
}

func (v *VM) execStrPush() *Error {
	n, err := v.fetchU8()
	if err != nil {
		return err
	}
	raw, err := v.fetchBytes(n)
	if err != nil {
		return err
	}
	return v.push(newStringValue(string(raw)))
}

func (v *VM) execCondGoto(op bytecode.Opcode) *Error {
	addr, err := v.fetchI32()
	if err != nil {
		return err
	}
	cond, err := v.popBoolean()
	if err != nil {
		return err
	}
	jumpIf := op == bytecode.TCOND_GOTO
	if cond == jumpIf {
		return v.jump(addr)
	}
	return nil
}
