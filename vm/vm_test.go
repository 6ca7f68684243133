package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gunderscript/bytecode"
)

// asmMain hand-assembles a single-function program exporting "main" with
// no arguments, running body (already including its own trailing
// EXIT/FRM_POP-to-completion instructions), starting at offset 0.
func asmMain(totalSlots int, body func(w *bytecode.Writer)) Program {
	w := bytecode.NewWriter()
	body(w)
	return Program{
		Code: w.Bytes(),
		Functions: []Function{
			{Name: "main", Entry: 0, ArgCount: 0, TotalSlots: totalSlots, Exported: true},
		},
	}
}

func TestExecuteFunctionAddition(t *testing.T) {
	prog := asmMain(0, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(1)
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(2)
		w.WriteOp(bytecode.ADD)
		w.WriteOp(bytecode.FRM_POP)
	})

	m := New(DefaultLimits())
	m.Load(prog)

	result, err := m.ExecuteFunction("main")
	require.NoError(t, err)
	require.Equal(t, TypeNumber, result.Type)
	require.Equal(t, 3.0, result.Number)
}

func TestExecuteFunctionDivideByZero(t *testing.T) {
	prog := asmMain(0, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(1)
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(0)
		w.WriteOp(bytecode.DIV)
		w.WriteOp(bytecode.FRM_POP)
	})

	m := New(DefaultLimits())
	m.Load(prog)

	_, err := m.ExecuteFunction("main")
	require.Error(t, err)
	rtErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, DivideByZero, rtErr.Code)
}

func TestExecuteFunctionVarStoreAndLoad(t *testing.T) {
	prog := asmMain(1, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(41)
		w.WriteOp(bytecode.VAR_STOR)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.POP)

		w.WriteOp(bytecode.VAR_PUSH)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(1)
		w.WriteOp(bytecode.ADD)
		w.WriteOp(bytecode.FRM_POP)
	})

	m := New(DefaultLimits())
	m.Load(prog)

	result, err := m.ExecuteFunction("main")
	require.NoError(t, err)
	require.Equal(t, 42.0, result.Number)
}

func TestExecuteFunctionWhileLoop(t *testing.T) {
	// var i = 0; while (i < 3) { i = i + 1; } return i;
	prog := asmMain(1, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(0)
		w.WriteOp(bytecode.VAR_STOR)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.POP)

		loopStart := w.Len()
		w.WriteOp(bytecode.VAR_PUSH)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(3)
		w.WriteOp(bytecode.LT)
		w.WriteOp(bytecode.FCOND_GOTO)
		exitPatch := w.Len()
		w.WriteI32(0)

		w.WriteOp(bytecode.VAR_PUSH)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.NUM_PUSH)
		w.WriteF64(1)
		w.WriteOp(bytecode.ADD)
		w.WriteOp(bytecode.VAR_STOR)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.POP)

		w.WriteOp(bytecode.GOTO)
		w.WriteI32(int32(loopStart))

		exitAddr := w.Len()
		w.PatchI32(exitPatch, int32(exitAddr))

		w.WriteOp(bytecode.VAR_PUSH)
		w.WriteU8(0)
		w.WriteU8(0)
		w.WriteOp(bytecode.FRM_POP)
	})

	m := New(DefaultLimits())
	m.Load(prog)

	result, err := m.ExecuteFunction("main")
	require.NoError(t, err)
	require.Equal(t, 3.0, result.Number)
}

func TestExecuteFunctionStringConcatenation(t *testing.T) {
	prog := asmMain(0, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.STR_PUSH)
		w.WriteU8(5)
		w.WriteBytes([]byte("hello"))
		w.WriteOp(bytecode.STR_PUSH)
		w.WriteU8(6)
		w.WriteBytes([]byte(" world"))
		w.WriteOp(bytecode.ADD)
		w.WriteOp(bytecode.FRM_POP)
	})

	m := New(DefaultLimits())
	m.Load(prog)

	result, err := m.ExecuteFunction("main")
	require.NoError(t, err)
	require.Equal(t, TypeLibData, result.Type)
	s, ok := stringPayload(result)
	require.True(t, ok)
	require.Equal(t, "hello world", s)
}

func TestExecuteFunctionCallNativeDefaultsToNullResult(t *testing.T) {
	prog := asmMain(0, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.CALL_NATIVE)
		w.WriteU8(0)
		w.WriteI32(0)
		w.WriteOp(bytecode.POP)
		w.WriteOp(bytecode.NULL_PUSH)
		w.WriteOp(bytecode.FRM_POP)
	})

	m := New(DefaultLimits())
	var calls int
	_, regErr := m.RegisterCallback("noop", func(vm *VM, args []Value) bool {
		calls++
		return false
	})
	require.NoError(t, regErr)
	m.Load(prog)

	result, err := m.ExecuteFunction("main")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, TypeNull, result.Type)
}

func TestExecuteFunctionArityMismatch(t *testing.T) {
	prog := asmMain(0, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.FRM_POP)
	})
	m := New(DefaultLimits())
	m.Load(prog)

	_, err := m.ExecuteFunction("main", NewNumber(1))
	require.Error(t, err)
	rtErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, IncorrectArgCountToNativeCallback, rtErr.Code)
}

func TestExecuteFunctionUnknownEntryPoint(t *testing.T) {
	prog := asmMain(0, func(w *bytecode.Writer) {
		w.WriteOp(bytecode.FRM_POP)
	})
	m := New(DefaultLimits())
	m.Load(prog)

	_, err := m.ExecuteFunction("does_not_exist")
	require.Error(t, err)
}

func TestRegisterCallbackDuplicateName(t *testing.T) {
	m := New(DefaultLimits())
	_, err := m.RegisterCallback("sys_print", func(vm *VM, args []Value) bool { return false })
	require.NoError(t, err)

	_, err = m.RegisterCallback("sys_print", func(vm *VM, args []Value) bool { return false })
	require.Error(t, err)
	rtErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, DuplicateCallback, rtErr.Code)
}
