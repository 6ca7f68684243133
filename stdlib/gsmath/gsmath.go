// Package gsmath installs the math native-callback module (§4.8,
// grounded on original_source/src/libmath.c's libmath_install): thin
// wrappers over the standard math package, each checking its own
// argument count and types the way the C natives check theirs against
// VMArg/TYPE_NUMBER, since Callback carries no compile-time arity or
// type metadata.
package gsmath

import (
	"math"
	"sort"

	"gunderscript/vm"
)

// Registerer is the subset of *vm.VM this package needs: RegisterCallback.
type Registerer interface {
	RegisterCallback(name string, fn vm.Callback) (int, error)
}

// Install registers every gsmath native under r.
func Install(r Registerer) error {
	fns := map[string]vm.Callback{
		"math_abs":   mathAbs,
		"math_sqrt":  mathSqrt,
		"math_pow":   mathPow,
		"math_round": mathRound,
		"math_sin":   unary(math.Sin),
		"math_cos":   unary(math.Cos),
		"math_tan":   unary(math.Tan),
		"math_asin":  unary(math.Asin),
		"math_acos":  unary(math.Acos),
		"math_atan":  unary(math.Atan),
		"math_atan2": mathAtan2,
	}
	// Register in sorted name order so callback indices are the same in
	// every process (a .gxb file bakes them into CALL_NATIVE).
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := r.RegisterCallback(name, fns[name]); err != nil {
			return err
		}
	}
	return nil
}

func numberArg(v vm.Value) (float64, bool) {
	if v.Type != vm.TypeNumber {
		return 0, false
	}
	return v.Number, true
}

// unary builds a Callback around a one-argument math.XXX function,
// mirroring vmn_math_sin/cos/tan/asin/acos/atan's identical
// argc/type-check-then-call shape.
func unary(f func(float64) float64) vm.Callback {
	return func(m *vm.VM, args []vm.Value) bool {
		if len(args) != 1 {
			return m.Fail(vm.IncorrectArgCountToNativeCallback)
		}
		n, ok := numberArg(args[0])
		if !ok {
			return m.Fail(vm.InvalidTypeInOperation)
		}
		return m.Push(vm.NewNumber(f(n)))
	}
}

func mathAbs(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	n, ok := numberArg(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewNumber(math.Abs(n)))
}

func mathSqrt(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	n, ok := numberArg(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewNumber(math.Sqrt(n)))
}

func mathPow(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	base, ok1 := numberArg(args[0])
	exp, ok2 := numberArg(args[1])
	if !ok1 || !ok2 {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewNumber(math.Pow(base, exp)))
}

// mathRound mirrors vmn_math_round's two accepted arities: round to the
// nearest integer with one argument, or to a given number of decimal
// places with two.
func mathRound(m *vm.VM, args []vm.Value) bool {
	switch len(args) {
	case 1:
		n, ok := numberArg(args[0])
		if !ok {
			return m.Fail(vm.InvalidTypeInOperation)
		}
		return m.Push(vm.NewNumber(math.Round(n)))
	case 2:
		n, ok1 := numberArg(args[0])
		precision, ok2 := numberArg(args[1])
		if !ok1 || !ok2 {
			return m.Fail(vm.InvalidTypeInOperation)
		}
		scale := math.Pow(10, precision)
		return m.Push(vm.NewNumber(math.Round(n*scale) / scale))
	default:
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
}

func mathAtan2(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	y, ok1 := numberArg(args[0])
	x, ok2 := numberArg(args[1])
	if !ok1 || !ok2 {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewNumber(math.Atan2(y, x)))
}
