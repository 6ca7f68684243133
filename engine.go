// Package gunderscript is the embedding API (§5): construct one Engine
// per embedded instance, register host callbacks, compile source (or
// load a prebuilt .gxb), and call exported functions. An Engine owns
// exactly one compiler and one VM, and must not be used concurrently or
// re-entered from within a callback it dispatched (§5).
package gunderscript

import (
	"github.com/sirupsen/logrus"

	"gunderscript/compiler"
	"gunderscript/gxb"
	"gunderscript/stdlib/gsarray"
	"gunderscript/stdlib/gsmath"
	"gunderscript/stdlib/gsstrings"
	"gunderscript/stdlib/gssys"
	"gunderscript/vm"
)

// Engine ties one compiler to one VM instance, matching spec.md §5's
// "one embedded instance holds one compiler and one VM" contract. The
// compiler resolves CALL_NATIVE sites against whatever callbacks are
// registered on the VM at Compile time, so RegisterCallback/
// InstallStandardLibrary calls must happen before the first Compile.
type Engine struct {
	vm  *vm.VM
	log *logrus.Entry
}

// New constructs an Engine with the given resource limits and no
// registered callbacks. Use vm.DefaultLimits() for the struct-tag
// defaults, or a Limits value populated from the environment by the
// host program (see cmd/gunderscript).
func New(limits vm.Limits) *Engine {
	return &Engine{vm: vm.New(limits)}
}

// WithLogger attaches a logrus.Entry that compile/execute phases report
// tracing information to. By default an Engine logs nothing, matching
// the "embeddable, host controls its own log sink" contract in §4.6;
// passing a nil entry restores silence.
func (e *Engine) WithLogger(log *logrus.Entry) *Engine {
	e.log = log
	return e
}

func (e *Engine) logf(format string, args ...any) {
	if e.log != nil {
		e.log.Debugf(format, args...)
	}
}

// RegisterCallback installs a single native callback, returning the
// dense index the compiler will embed into CALL_NATIVE instructions that
// call it by name (§6.4).
func (e *Engine) RegisterCallback(name string, fn vm.Callback) (int, error) {
	idx, err := e.vm.RegisterCallback(name, fn)
	if err != nil {
		return 0, err
	}
	e.logf("registered callback %q at index %d", name, idx)
	return idx, nil
}

// InstallStandardLibrary registers every native callback module named in
// spec.md §1 ("math, strings, system/file I/O, arrays") under this
// engine's VM: gsmath, gsstrings, gssys, gsarray.
func (e *Engine) InstallStandardLibrary() error {
	if err := gsmath.Install(e.vm); err != nil {
		return err
	}
	if err := gsstrings.Install(e.vm); err != nil {
		return err
	}
	if err := gssys.Install(e.vm); err != nil {
		return err
	}
	if err := gsarray.Install(e.vm); err != nil {
		return err
	}
	e.logf("standard library installed")
	return nil
}

// Compile lexes and compiles src against this engine's currently
// registered callbacks and loads the resulting program, replacing
// anything previously loaded. It does not execute anything; call
// ExecuteFunction afterward to run an exported function.
func (e *Engine) Compile(src string) (vm.Program, error) {
	c := compiler.New(e.vm)
	prog, err := c.Compile(src)
	if err != nil {
		return vm.Program{}, err
	}
	e.logf("compiled %d bytes of bytecode, %d exported functions", len(prog.Code), len(prog.Functions))
	e.vm.Load(prog)
	return prog, nil
}

// LoadBytecode decodes a .gxb container and loads it, replacing anything
// previously loaded. It does not recompile or revalidate callback
// indices: a .gxb file's CALL_NATIVE instructions were baked in against
// whatever callback table was registered when it was originally
// compiled, so the host must register the same callbacks, in the same
// order, before calling LoadBytecode (§6.2, §6.4).
func (e *Engine) LoadBytecode(data []byte) error {
	prog, err := gxb.Read(data)
	if err != nil {
		return err
	}
	e.logf("loaded .gxb: %d bytes of bytecode, %d exported functions", len(prog.Code), len(prog.Functions))
	e.vm.Load(prog)
	return nil
}

// SaveBytecode encodes prog (as returned by Compile) to a .gxb container
// ready to write to disk.
func (e *Engine) SaveBytecode(prog vm.Program) ([]byte, error) {
	return gxb.Write(prog)
}

// ExecuteFunction runs the exported script function named name to
// completion and returns its result, or the runtime error (§7) it
// stopped at. A Compile or LoadBytecode call must precede it.
func (e *Engine) ExecuteFunction(name string, args ...vm.Value) (vm.Value, error) {
	e.logf("executing function %q with %d argument(s)", name, len(args))
	return e.vm.ExecuteFunction(name, args...)
}
