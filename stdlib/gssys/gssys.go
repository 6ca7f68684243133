// Package gssys installs the system/file-I/O native-callback module
// (§4.8, grounded on original_source/src/libsys.c's libsys_install):
// console I/O, shell execution, file handles, type predicates, and the
// to_string/to_number/to_boolean coercions.
package gssys

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"gunderscript/hostobject"
	"gunderscript/vm"
)

// fileTag identifies the *os.File-backed host object file_open_read/
// file_open_write produce.
const fileTag = "SYS.FILE"

type filePayload struct {
	file   *os.File
	reader *bufio.Reader
}

// Registerer is the subset of *vm.VM this package needs.
type Registerer interface {
	RegisterCallback(name string, fn vm.Callback) (int, error)
}

// Install registers every gssys native under r.
func Install(r Registerer) error {
	fns := map[string]vm.Callback{
		"sys_print":       sysPrint,
		"sys_shell":       sysShell,
		"sys_getline":     sysGetline,
		"sys_getchar":     sysGetchar,
		"type":            typeOf,
		"file_exists":     fileExists,
		"file_delete":     fileDelete,
		"file_open_read":  fileOpenRead,
		"file_open_write": fileOpenWrite,
		"file_close":      fileClose,
		"file_read_char":  fileReadChar,
		"file_write_char": fileWriteChar,
		"is_boolean":      isBoolean,
		"is_number":       isNumber,
		"is_null":         isNull,
		"is_string":       isString,
		"to_string":       toString,
		"to_number":       toNumber,
		"to_boolean":      toBoolean,
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

// sysPrint writes every argument's display form to stdout and, matching
// vmn_print, never pushes a result.
func sysPrint(m *vm.VM, args []vm.Value) bool {
	for _, a := range args {
		fmt.Print(displayString(a))
	}
	return false
}

func displayString(v vm.Value) string {
	switch v.Type {
	case vm.TypeNull:
		return "null"
	case vm.TypeNumber:
		return fmt.Sprintf("%f", v.Number)
	case vm.TypeBoolean:
		if v.Boolean {
			return "true"
		}
		return "false"
	case vm.TypeLibData:
		if s, ok := vm.StringPayload(v); ok {
			return s
		}
		if v.Lib != nil {
			return fmt.Sprintf("LIBDATA{%s}", v.Lib.Tag)
		}
	}
	return ""
}

// sysShell feeds command into the host shell, mirroring vmn_shell's bare
// system() call, and pushes nothing (the C native doesn't either).
func sysShell(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	cmd, ok := vm.StringPayload(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	_ = exec.Command("sh", "-c", cmd).Run()
	return false
}

func sysGetline(m *vm.VM, args []vm.Value) bool {
	if len(args) != 0 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return m.Push(vm.Null)
	}
	return m.Push(vm.NewString(line))
}

func sysGetchar(m *vm.VM, args []vm.Value) bool {
	if len(args) != 0 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	var b [1]byte
	n, err := os.Stdin.Read(b[:])
	if err != nil || n == 0 {
		return m.Push(vm.Null)
	}
	return m.Push(vm.NewNumber(float64(b[0])))
}

func typeOf(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	switch args[0].Type {
	case vm.TypeNull:
		return m.Push(vm.NewString("NULL"))
	case vm.TypeBoolean:
		return m.Push(vm.NewString("BOOLEAN"))
	case vm.TypeNumber:
		return m.Push(vm.NewString("NUMBER"))
	case vm.TypeLibData:
		tag := "LIBDATA"
		if args[0].Lib != nil {
			tag = fmt.Sprintf("LIBDATA{%s}", args[0].Lib.Tag)
		}
		return m.Push(vm.NewString(tag))
	}
	return m.Fail(vm.InvalidTypeInOperation)
}

func fileExists(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	name, ok := vm.StringPayload(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	_, err := os.Stat(name)
	return m.Push(vm.NewBoolean(err == nil))
}

func fileDelete(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	name, ok := vm.StringPayload(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	return m.Push(vm.NewBoolean(os.Remove(name) == nil))
}

func asFile(v vm.Value) (*filePayload, bool) {
	if v.Type != vm.TypeLibData || v.Lib == nil || v.Lib.Tag != fileTag {
		return nil, false
	}
	fp, ok := v.Lib.Payload.(*filePayload)
	return fp, ok
}

func openFile(m *vm.VM, args []vm.Value, flag int) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	name, ok := vm.StringPayload(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	f, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		return m.Push(vm.Null)
	}
	fp := &filePayload{file: f, reader: bufio.NewReader(f)}
	cleanup := func(payload any) {
		if fp, ok := payload.(*filePayload); ok && fp.file != nil {
			fp.file.Close()
		}
	}
	return m.Push(vm.NewLibData(hostobject.New(fileTag, fp, cleanup)))
}

func fileOpenRead(m *vm.VM, args []vm.Value) bool {
	return openFile(m, args, os.O_RDONLY)
}

func fileOpenWrite(m *vm.VM, args []vm.Value) bool {
	return openFile(m, args, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// fileClose closes the underlying file immediately and nils the
// payload's handle, preventing the cleanup callback from double-closing
// it when the LibData's refcount later reaches zero (mirrors
// vmlibdata_set_data(filePointer, NULL) in vmn_file_close). It never
// pushes a result, matching the C native.
func fileClose(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	fp, ok := asFile(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	if fp.file != nil {
		fp.file.Close()
		fp.file = nil
	}
	return false
}

func fileReadChar(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	fp, ok := asFile(args[0])
	if !ok {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	if fp.file == nil {
		return m.Fail(vm.FileClosed)
	}
	b, err := fp.reader.ReadByte()
	if err != nil {
		return m.Push(vm.NewNumber(-1))
	}
	return m.Push(vm.NewNumber(float64(b)))
}

func fileWriteChar(m *vm.VM, args []vm.Value) bool {
	if len(args) != 2 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	fp, ok := asFile(args[0])
	if !ok || args[1].Type != vm.TypeNumber {
		return m.Fail(vm.InvalidTypeInOperation)
	}
	if fp.file == nil {
		return m.Fail(vm.FileClosed)
	}
	_, err := fp.file.Write([]byte{byte(int(args[1].Number))})
	return m.Push(vm.NewBoolean(err == nil))
}

func isBoolean(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	return m.Push(vm.NewBoolean(args[0].Type == vm.TypeBoolean))
}

func isNumber(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	return m.Push(vm.NewBoolean(args[0].Type == vm.TypeNumber))
}

func isNull(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	return m.Push(vm.NewBoolean(args[0].Type == vm.TypeNull))
}

func isString(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	_, ok := vm.StringPayload(args[0])
	return m.Push(vm.NewBoolean(ok))
}

func toString(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	if _, ok := vm.StringPayload(args[0]); ok {
		return m.Push(args[0])
	}
	if args[0].Type == vm.TypeLibData && args[0].Lib != nil {
		return m.Push(vm.NewString(fmt.Sprintf("LIBDATA{%s}", args[0].Lib.Tag)))
	}
	return m.Push(vm.NewString(displayString(args[0])))
}

func toNumber(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	switch args[0].Type {
	case vm.TypeNull:
		return m.Push(vm.NewNumber(0))
	case vm.TypeNumber:
		return m.Push(vm.NewNumber(args[0].Number))
	case vm.TypeBoolean:
		if args[0].Boolean {
			return m.Push(vm.NewNumber(1))
		}
		return m.Push(vm.NewNumber(0))
	default:
		return m.Fail(vm.InvalidTypeInOperation)
	}
}

// toBoolean mirrors vmn_to_boolean's string rule exactly: the literal
// string "true" converts to true and every other string converts to
// false; a non-string LibData converts to true.
func toBoolean(m *vm.VM, args []vm.Value) bool {
	if len(args) != 1 {
		return m.Fail(vm.IncorrectArgCountToNativeCallback)
	}
	switch args[0].Type {
	case vm.TypeNull:
		return m.Push(vm.NewBoolean(false))
	case vm.TypeNumber:
		return m.Push(vm.NewBoolean(args[0].Number != 0))
	case vm.TypeBoolean:
		return m.Push(vm.NewBoolean(args[0].Boolean))
	case vm.TypeLibData:
		if s, ok := vm.StringPayload(args[0]); ok {
			return m.Push(vm.NewBoolean(s == "true"))
		}
		return m.Push(vm.NewBoolean(true))
	default:
		return m.Fail(vm.InvalidTypeInOperation)
	}
}
