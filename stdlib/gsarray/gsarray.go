// Package gsarray installs the array native-callback module (§4.8,
// grounded on original_source/src/libarray.c's libarray_install): a
// fixed-size, auto-nil-initialized array host object backed by a Go
// []vm.Value, with element refcounts incremented/decremented on every
// store or overwrite, mirroring array_cleanup/libarray_array_set.
package gsarray

import (
	"sort"

	"gunderscript/hostobject"
	"gunderscript/vm"
)

// arrayTag identifies the []vm.Value-backed host object the array
// native produces.
const arrayTag = "LIBARRAY.0"

// Registerer is the subset of *vm.VM this package needs.
type Registerer interface {
	RegisterCallback(name string, fn vm.Callback) (int, error)
}

// Install registers every gsarray native under r.
func Install(r Registerer) error {
	fns := map[string]vm.Callback{
		"array":      arrayNew,
		"array_size": arraySize,
		"array_get":  arrayGet,
		"array_set":  arraySet,
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

func arrayNew(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	if args[0].Type != vm.TypeNumber {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	size := int(args[0].Number)
	if size < 1 {
		return m.Fail(vm.ArgumentOutOfRange)
	}

	slots := make([]vm.Value, size)
	for i := range slots {
		slots[i] = vm.Null
	}
	cleanup := func(payload any) {
		elems, ok := payload.([]vm.Value)
		if !ok {
			return
		}
		for _, v := range elems {
			if v.Type == vm.TypeLibData && v.Lib != nil {
				v.Lib.DecRef()
			}
		}
	}
	return m.Push(vm.NewLibData(hostobject.New(arrayTag, slots, cleanup)))
}

func asArray(v vm.Value) ([]vm.Value, bool) {
	if v.Type != vm.TypeLibData || v.Lib == nil || v.Lib.Tag != arrayTag {
		return nil, false
	}
	elems, ok := v.Lib.Payload.([]vm.Value)
	return elems, ok
}

func arraySize(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	elems, ok := asArray(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewNumber(float64(len(elems))))
}

func indexArg(v vm.Value, size int) (int, bool) {
	if v.Type != vm.TypeNumber {
		return 0, false
	}
	i := int(v.Number)
	if i < 0 || i >= size {
		return 0, false
	}
	return i, true
}

func arrayGet(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	elems, ok := asArray(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	idx, ok := indexArg(args[1], len(elems))
	if !ok {
		return m.Fail(vm.ArgumentOutOfRange)
	}
	val := elems[idx]
	if val.Type == vm.TypeLibData && val.Lib != nil {
		val.Lib.IncRef()
	}
	return m.Push(val)
}

// arraySet overwrites the slot at the given index, dropping the
// refcount of whatever was there before and incrementing the new
// value's refcount for the reference the array now holds, mirroring
// libarray_array_set's inc-new/dec-old discipline.
func arraySet(m *vm.VM, args []vm.Value) bool {
	if len(args) != 3 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	elems, ok := asArray(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	idx, ok := indexArg(args[1], len(elems))
	if !ok {
		return m.Fail(vm.ArgumentOutOfRange)
	}

	newVal := args[2]
	if newVal.Type == vm.TypeLibData && newVal.Lib != nil {
		newVal.Lib.IncRef()
	}
	old := elems[idx]
	if old.Type == vm.TypeLibData && old.Lib != nil {
		old.Lib.DecRef()
	}
	elems[idx] = newVal
	return m.Push(vm.Null)
}
