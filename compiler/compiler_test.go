package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gunderscript/vm"
)

func newTestVM(t *testing.T) (*vm.VM, *[]vm.Value) {
	t.Helper()
	m := vm.New(vm.DefaultLimits())
	var printed []vm.Value
	_, err := m.RegisterCallback("sys_print", func(v *vm.VM, args []vm.Value) bool {
		printed = append(printed, args...)
		return false
	})
	require.NoError(t, err)
	return m, &printed
}

func compileAndRun(t *testing.T, src string) (vm.Value, []vm.Value, error) {
	t.Helper()
	m, printed := newTestVM(t)
	prog, err := New(m).Compile(src)
	if err != nil {
		return vm.Value{}, nil, err
	}
	m.Load(prog)
	result, runErr := m.ExecuteFunction("main")
	return result, *printed, runErr
}

func TestHelloNumber(t *testing.T) {
	src := `function exported main() { sys_print(1 + 2 * 3); }`
	_, printed, err := compileAndRun(t, src)
	require.NoError(t, err)
	require.Len(t, printed, 1)
	require.Equal(t, 7.0, printed[0].Number)
}

func TestWhileLoopPrintsEachIteration(t *testing.T) {
	src := `
function exported main() {
  var i; i = 0;
  while (i < 3) { sys_print(i); i = i + 1; }
}`
	_, printed, err := compileAndRun(t, src)
	require.NoError(t, err)
	require.Len(t, printed, 3)
	require.Equal(t, []float64{0, 1, 2}, []float64{printed[0].Number, printed[1].Number, printed[2].Number})
}

func TestDoWhileExecutesOnce(t *testing.T) {
	src := `function exported main() { do { sys_print(1); } while (false); }`
	_, printed, err := compileAndRun(t, src)
	require.NoError(t, err)
	require.Len(t, printed, 1)
	require.Equal(t, 1.0, printed[0].Number)
}

func TestIfElse(t *testing.T) {
	src := `
function exported main() {
  if (2 == 2) { sys_print(true); } else { sys_print(false); }
}`
	_, printed, err := compileAndRun(t, src)
	require.NoError(t, err)
	require.Len(t, printed, 1)
	require.Equal(t, vm.TypeBoolean, printed[0].Type)
	require.True(t, printed[0].Boolean)
}

func TestDuplicateVariableFailsToCompile(t *testing.T) {
	src := `function exported main() { var x; var x; }`
	_, _, err := compileAndRun(t, src)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, DuplicateVariable, cerr.Code)
}

func TestUndefinedFunctionFailsToCompile(t *testing.T) {
	src := `function exported main() { no_such(); }`
	_, _, err := compileAndRun(t, src)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, UndefinedFunction, cerr.Code)
}

func TestDivideByZeroFailsAtRuntime(t *testing.T) {
	src := `function exported main() { sys_print(1/0); }`
	m, _ := newTestVM(t)
	prog, err := New(m).Compile(src)
	require.NoError(t, err)
	m.Load(prog)

	_, runErr := m.ExecuteFunction("main")
	require.Error(t, runErr)
	rtErr, ok := runErr.(*vm.Error)
	require.True(t, ok)
	require.Equal(t, vm.DivideByZero, rtErr.Code)
}

func TestForwardReferenceToLaterDefinedFunction(t *testing.T) {
	src := `
function exported main() { return helper(4); }
function helper(n) { return n * 2; }
`
	result, _, err := compileAndRun(t, src)
	require.NoError(t, err)
	require.Equal(t, 8.0, result.Number)
}

func TestArityMismatchFailsToCompile(t *testing.T) {
	src := `
function exported main() { return helper(1, 2); }
function helper(n) { return n; }
`
	_, _, err := compileAndRun(t, src)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, WrongArgumentCount, cerr.Code)
}

func TestNestedBlockScopingAndStringConcat(t *testing.T) {
	src := `
function exported main() {
  var greeting; greeting = "hello";
  if (true) {
    var suffix; suffix = " world";
    greeting = greeting + suffix;
  }
  return greeting;
}`
	result, _, err := compileAndRun(t, src)
	require.NoError(t, err)
	require.Equal(t, vm.TypeLibData, result.Type)
	require.Equal(t, "LIBSTR.STR", result.Lib.Tag)
	require.Equal(t, "hello world", result.Lib.Payload)
}
