// Package gxb reads and writes the .gxb bytecode container format
// (§6.2): a fixed header, an exported-function directory, and the raw
// code buffer.
package gxb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"gunderscript/vm"
)

const (
	magic = "GXB1"

	// magicLen is the header's fixed-width magic field (§6.2: "fixed
	// length ASCII... padded/fixed at 8 bytes"); magic itself is
	// shorter and is null-padded out to this width.
	magicLen = 8

	// buildDateLen is the header's fixed-width build_date field, a
	// plain YYYY-MM-DD string.
	buildDateLen = 10

	// maxFunctionNameLen bounds a directory entry's name field (§6.2).
	maxFunctionNameLen = 64

	headerLen     = magicLen + buildDateLen + 4 + 4 // magic + build_date + bytecode_len + num_functions
	entryFixedLen = 1 + 4 + 4 + 4 + 1                // name_len + entry + arg_count + total_slots + exported
)

func paddedField(s string, width int) []byte {
	b := make([]byte, width)
	copy(b, s)
	return b
}

// Error is a typed load-time error. Structural validation failures are
// aggregated with github.com/hashicorp/go-multierror so a malformed file
// reports everything wrong with it at once, unlike the compiler/VM's
// first-error-latch contract for live source (§7).
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gxb: %s", e.Message)
}

// Write encodes prog as a .gxb file body. Only exported functions are
// written to the directory (§6.2); non-exported ones are only reachable
// through CALL_SCRIPT instructions that already carry their
// entry/arg_count/total_slots inline.
func Write(prog vm.Program) ([]byte, error) {
	var exported []vm.Function
	for _, fn := range prog.Functions {
		if !fn.Exported {
			continue
		}
		if len(fn.Name) >= maxFunctionNameLen {
			return nil, &Error{Message: fmt.Sprintf("function name %q too long for .gxb directory", fn.Name)}
		}
		exported = append(exported, fn)
	}
	if len(exported) == 0 {
		return nil, &Error{Message: "program has no exported functions to write"}
	}

	buf := make([]byte, 0, headerLen+len(exported)*entryFixedLen+len(prog.Code))

	buf = append(buf, paddedField(magic, magicLen)...)
	buf = append(buf, paddedField(BuildDate, buildDateLen)...)

	var lenBytes, countBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(prog.Code)))
	binary.BigEndian.PutUint32(countBytes[:], uint32(len(exported)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, countBytes[:]...)

	for _, fn := range exported {
		buf = append(buf, byte(len(fn.Name)))
		buf = append(buf, []byte(fn.Name)...)
		buf = appendI32(buf, fn.Entry)
		buf = appendI32(buf, int32(fn.ArgCount))
		buf = appendI32(buf, int32(fn.TotalSlots))
		if fn.Exported {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	buf = append(buf, prog.Code...)
	return buf, nil
}

func appendI32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// Read decodes a .gxb file body into a vm.Program. Every structural
// problem it finds is collected via go-multierror before returning, so a
// corrupt file reports all of its defects in one diagnostic rather than
// stopping at the first.
func Read(data []byte) (vm.Program, error) {
	var result *multierror.Error

	if len(data) < headerLen {
		result = multierror.Append(result, &Error{Message: "file shorter than header"})
		return vm.Program{}, result.ErrorOrNil()
	}

	if !bytes.Equal(data[:magicLen], paddedField(magic, magicLen)) {
		result = multierror.Append(result, &Error{Message: "bad magic, not a .gxb file"})
	}

	offset := magicLen
	fileBuildDate := string(data[offset : offset+buildDateLen])
	offset += buildDateLen
	if fileBuildDate != string(paddedField(BuildDate, buildDateLen)) {
		result = multierror.Append(result, &Error{
			Message: fmt.Sprintf("build date mismatch: file has %q, runtime is %q", fileBuildDate, BuildDate),
		})
	}

	codeLen := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4
	numFuncs := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	if numFuncs < 1 {
		result = multierror.Append(result, &Error{Message: "num_functions must be >= 1"})
	}
	if result.ErrorOrNil() != nil {
		// A corrupt header makes the rest of the buffer unparseable;
		// stop here rather than indexing off the end of data.
		return vm.Program{}, result.ErrorOrNil()
	}

	funcs := make([]vm.Function, 0, numFuncs)
	for i := uint32(0); i < numFuncs; i++ {
		if offset >= len(data) {
			result = multierror.Append(result, &Error{Message: "function directory truncated"})
			break
		}
		nameLen := int(data[offset])
		offset++
		if nameLen >= maxFunctionNameLen {
			result = multierror.Append(result, &Error{Message: fmt.Sprintf("function %d: name_len %d exceeds limit", i, nameLen)})
			break
		}
		if offset+nameLen+entryFixedLen-1 > len(data) {
			result = multierror.Append(result, &Error{Message: fmt.Sprintf("function %d: directory entry truncated", i)})
			break
		}
		name := string(data[offset : offset+nameLen])
		offset += nameLen

		entry := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		argCount := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		totalSlots := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		exported := data[offset] != 0
		offset++

		funcs = append(funcs, vm.Function{
			Name:       name,
			Entry:      entry,
			ArgCount:   int(argCount),
			TotalSlots: int(totalSlots),
			Exported:   exported,
		})
	}

	if offset+int(codeLen) > len(data) {
		result = multierror.Append(result, &Error{Message: "code buffer shorter than bytecode_len"})
		return vm.Program{}, result.ErrorOrNil()
	}
	code := data[offset : offset+int(codeLen)]

	if err := result.ErrorOrNil(); err != nil {
		return vm.Program{}, err
	}
	return vm.Program{Code: code, Functions: funcs}, nil
}
