package gsarray

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gunderscript/vm"
)

func TestInstallRegistersEveryFunction(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.NoError(t, Install(m))
	for _, name := range []string{"array", "array_size", "array_get", "array_set"} {
		_, ok := m.CallbackIndex(name)
		require.True(t, ok, name)
	}
}

func TestArrayNewIsNullFilled(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, arrayNew(m, []vm.Value{vm.NewNumber(3)}))
	arr, ok := m.Top()
	require.True(t, ok)
	elems, ok := asArray(arr)
	require.True(t, ok)
	require.Len(t, elems, 3)
	for _, e := range elems {
		require.Equal(t, vm.TypeNull, e.Type)
	}
}

func TestArrayNewRejectsNonPositiveSize(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.False(t, arrayNew(m, []vm.Value{vm.NewNumber(0)}))
}

func TestArraySetAndGet(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, arrayNew(m, []vm.Value{vm.NewNumber(2)}))
	arr, _ := m.Top()

	require.True(t, arraySet(m, []vm.Value{arr, vm.NewNumber(0), vm.NewNumber(42)}))
	require.True(t, arrayGet(m, []vm.Value{arr, vm.NewNumber(0)}))

	result, ok := m.Top()
	require.True(t, ok)
	require.Equal(t, 42.0, result.Number)
}

func TestArrayGetOutOfRange(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, arrayNew(m, []vm.Value{vm.NewNumber(1)}))
	arr, _ := m.Top()

	require.False(t, arrayGet(m, []vm.Value{arr, vm.NewNumber(5)}))
}

func TestArraySizeReflectsConstructorArgument(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, arrayNew(m, []vm.Value{vm.NewNumber(7)}))
	arr, _ := m.Top()

	require.True(t, arraySize(m, []vm.Value{arr}))
	result, _ := m.Top()
	require.Equal(t, 7.0, result.Number)
}

// TestArraySetOverwriteDropsOldStringRefcount checks arraySet's
// inc-new/dec-old discipline directly (bypassing the VM's own
// post-callback decref of its call arguments, which only applies inside
// a real CALL_NATIVE dispatch): storing a value increfs it once, and
// overwriting that slot later decrefs whatever was stored there before.
func TestArraySetOverwriteDropsOldStringRefcount(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, arrayNew(m, []vm.Value{vm.NewNumber(1)}))
	arr, _ := m.Top()

	first := vm.NewString("first")
	require.Equal(t, 1, first.Lib.RefCount())
	require.True(t, arraySet(m, []vm.Value{arr, vm.NewNumber(0), first}))
	require.Equal(t, 2, first.Lib.RefCount())

	second := vm.NewString("second")
	require.True(t, arraySet(m, []vm.Value{arr, vm.NewNumber(0), second}))
	require.Equal(t, 1, first.Lib.RefCount())
	require.Equal(t, 2, second.Lib.RefCount())
}
