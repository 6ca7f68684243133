package gsstrings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gunderscript/vm"
)

func TestInstallRegistersEveryFunction(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.NoError(t, Install(m))
	for _, name := range []string{
		"string_equals", "string_workshop", "string_workshop_prealloc",
		"string_workshop_length", "string_match", "string_replace_all",
		"string_upper", "string_lower",
	} {
		_, ok := m.CallbackIndex(name)
		require.True(t, ok, name)
	}
}

func TestStringEquals(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringEquals(m, []vm.Value{vm.NewString("a"), vm.NewString("a")}))
	result, ok := m.Top()
	require.True(t, ok)
	require.True(t, result.Boolean)
}

func TestStringEqualsRejectsNonStrings(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.False(t, stringEquals(m, []vm.Value{vm.NewNumber(1), vm.NewString("a")}))
}

func TestStringWorkshopRoundTrip(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringWorkshop(m, []vm.Value{vm.NewNumber(16)}))
	ws, ok := m.Top()
	require.True(t, ok)
	b, ok := asWorkshop(ws)
	require.True(t, ok)
	require.Equal(t, 0, b.Len())
}

func TestStringWorkshopRejectsNonPositiveSize(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.False(t, stringWorkshop(m, []vm.Value{vm.NewNumber(0)}))
}

func TestStringWorkshopLength(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringWorkshop(m, []vm.Value{vm.NewNumber(8)}))
	ws, ok := m.Top()
	require.True(t, ok)
	b, ok := asWorkshop(ws)
	require.True(t, ok)
	b.WriteString("hello")

	require.True(t, stringWorkshopLength(m, []vm.Value{ws}))
	result, ok := m.Top()
	require.True(t, ok)
	require.Equal(t, 5.0, result.Number)
}

func TestStringWorkshopPreallocGrows(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringWorkshop(m, []vm.Value{vm.NewNumber(1)}))
	ws, ok := m.Top()
	require.True(t, ok)

	require.True(t, stringWorkshopPrealloc(m, []vm.Value{ws, vm.NewNumber(64)}))
}

func TestStringMatch(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringMatch(m, []vm.Value{vm.NewString("hello123"), vm.NewString(`\d+`)}))
	result, ok := m.Top()
	require.True(t, ok)
	require.True(t, result.Boolean)
}

func TestStringReplaceAll(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringReplaceAll(m, []vm.Value{vm.NewString("a-b-c"), vm.NewString("-"), vm.NewString("_")}))
	result, ok := m.Top()
	require.True(t, ok)
	payload, ok := vm.StringPayload(result)
	require.True(t, ok)
	require.Equal(t, "a_b_c", payload)
}

func TestStringUpperLower(t *testing.T) {
	m := vm.New(vm.DefaultLimits())
	require.True(t, stringUpper(m, []vm.Value{vm.NewString("Hello")}))
	upper, _ := m.Top()
	upperPayload, _ := vm.StringPayload(upper)
	require.Equal(t, "HELLO", upperPayload)

	require.True(t, stringLower(m, []vm.Value{vm.NewString("Hello")}))
	lower, _ := m.Top()
	lowerPayload, _ := vm.StringPayload(lower)
	require.Equal(t, "hello", lowerPayload)
}
