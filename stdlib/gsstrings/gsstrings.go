// Package gsstrings installs the string native-callback module (§4.8,
// grounded on original_source/src/libstr.c's libstr_install): equality,
// a mutable "workshop" string builder host object, and (per §4.7's
// supplemented surface) regex matching/replacement and case folding.
package gsstrings

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"gunderscript/hostobject"
	"gunderscript/vm"
)

// workshopTag identifies the mutable strings.Builder-backed host object
// string_workshop produces, distinct from the immutable vm.StringTag
// value STR_PUSH produces.
const workshopTag = "LIBSTR.WORKSHOP"

// Registerer is the subset of *vm.VM this package needs.
type Registerer interface {
	RegisterCallback(name string, fn vm.Callback) (int, error)
}

// Install registers every gsstrings native under r.
func Install(r Registerer) error {
	fns := map[string]vm.Callback{
		"string_equals":            stringEquals,
		"string_workshop":          stringWorkshop,
		"string_workshop_prealloc": stringWorkshopPrealloc,
		"string_workshop_length":   stringWorkshopLength,
		"string_match":             stringMatch,
		"string_replace_all":       stringReplaceAll,
		"string_upper":             stringUpper,
		"string_lower":             stringLower,
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

func stringEquals(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	a, ok1 := vm.StringPayload(args[0])
	b, ok2 := vm.StringPayload(args[1])
	if !ok1 || !ok2 {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewBoolean(a == b))
}

// stringWorkshop allocates a strings.Builder wrapped as a LIBSTR.WORKSHOP
// host object, pre-sizing it the way vmn_str_workshop pre-sizes its
// fixed buffer.
func stringWorkshop(m *vm.VM, args []vm.Value) bool {
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
	var b strings.Builder
	b.Grow(size)
	return m.Push(vm.NewLibData(hostobject.New(workshopTag, &b, nil)))
}

func asWorkshop(v vm.Value) (*strings.Builder, bool) {
	if v.Type != vm.TypeLibData || v.Lib == nil || v.Lib.Tag != workshopTag {
		return nil, false
	}
	b, ok := v.Lib.Payload.(*strings.Builder)
	return b, ok
}

func stringWorkshopLength(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	b, ok := asWorkshop(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewNumber(float64(b.Len())))
}

// stringWorkshopPrealloc grows the workshop's capacity; strings.Builder
// only ever grows, mirroring workshop_resize's "can't make it smaller,
// only bigger" rule for free.
func stringWorkshopPrealloc(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	b, ok := asWorkshop(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	if args[1].Type != vm.TypeNumber {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	newSize := int(args[1].Number)
	if newSize < 1 {
		return m.Fail(vm.ArgumentOutOfRange)
	}
	b.Grow(newSize)
	return m.Push(vm.Null)
}

func stringMatch(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	s, ok1 := vm.StringPayload(args[0])
	pattern, ok2 := vm.StringPayload(args[1])
	if !ok1 || !ok2 {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	re, err := regexp2.Compile(pattern, 0)
	if err != nil {
		return m.Fail(vm.ArgumentOutOfRange)
	}
	matched, err := re.MatchString(s)
	if err != nil {
		return m.Fail(vm.ArgumentOutOfRange)
	}
	return m.Push(vm.NewBoolean(matched))
}

func stringReplaceAll(m *vm.VM, args []vm.Value) bool {
	if len(args) != 3 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	s, ok1 := vm.StringPayload(args[0])
	pattern, ok2 := vm.StringPayload(args[1])
	replacement, ok3 := vm.StringPayload(args[2])
	if !ok1 || !ok2 || !ok3 {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	re, err := regexp2.Compile(pattern, 0)
	if err != nil {
		return m.Fail(vm.ArgumentOutOfRange)
	}
	result, err := re.Replace(s, replacement, -1, -1)
	if err != nil {
		return m.Fail(vm.ArgumentOutOfRange)
	}
	return m.Push(vm.NewString(result))
}

func stringUpper(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	s, ok := vm.StringPayload(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewString(cases.Upper(language.Und).String(s)))
}

func stringLower(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	s, ok := vm.StringPayload(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewString(cases.Lower(language.Und).String(s)))
}
