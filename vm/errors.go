package vm

import "fmt"

// ErrCode is the VM's runtime error taxonomy (§4.4.3). The ordering
// mirrors original_source/include/vm.h's VMErr enum with VMERR_SUCCESS
// kept as the reserved zero value and VMERR_ALLOC_FAILED dropped (Go has
// no allocation-failure error path); the three callback-argument and
// file-handle errors named by the distilled spec but absent from the C
// enum are appended at the end.
type ErrCode int

const (
	Success ErrCode = iota
	InvalidOpcode
	StackOverflow
	OperandStackEmpty
	UnexpectedEndOfCode
	InvalidTypeInOperation
	DivideByZero
	FrameStackEmpty
	FrameVariableAccessFailed
	InvalidOpcodeParameter
	InvalidAddress
	CallbackBufferFull
	DuplicateCallback
	NonexistentCallback
	IncorrectArgCountToNativeCallback
	ArgumentOutOfRange
	FileClosed
)

var messages = map[ErrCode]string{
	Success:                           "success",
	InvalidOpcode:                     "invalid opcode",
	StackOverflow:                     "frame stack overflow",
	OperandStackEmpty:                 "operand stack empty",
	UnexpectedEndOfCode:               "unexpected end of code",
	InvalidTypeInOperation:            "invalid type in operation",
	DivideByZero:                      "divide by zero",
	FrameStackEmpty:                   "frame stack empty",
	FrameVariableAccessFailed:         "frame variable access failed",
	InvalidOpcodeParameter:            "invalid opcode parameter",
	InvalidAddress:                    "invalid address",
	CallbackBufferFull:                "callback buffer full",
	DuplicateCallback:                 "duplicate callback",
	NonexistentCallback:               "nonexistent callback",
	IncorrectArgCountToNativeCallback: "incorrect argument count to native callback",
	ArgumentOutOfRange:                "argument out of range",
	FileClosed:                        "file closed",
}

// Message returns the English diagnostic for code.
func (c ErrCode) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "unknown runtime error"
}

func (c ErrCode) String() string {
	return c.Message()
}

// Error is a runtime error: a stable numeric code plus the instruction
// pointer at which it was raised. The VM stops at the first Error and
// leaves the operand and frame stacks intact for inspection.
type Error struct {
	Code ErrCode
	IP   int
}

func (e *Error) Error() string {
	return fmt.Sprintf("runtime error %d at ip=%d: %s", e.Code, e.IP, e.Code.Message())
}

func newError(code ErrCode, ip int) *Error {
	return &Error{Code: code, IP: ip}
}
