package compiler

// funcInfo is the compile-time binding for one script function: name →
// (entry_offset, arg_count, total_slots, exported) (§4.3.4). entry and
// totalSlots are filled in once the function's own body finishes
// compiling in phase two; argCount and exported are known from the
// phase-one signature pre-scan, which is what lets call sites that
// appear earlier in the source than their callee still be checked for
// arity and resolved by name.
type funcInfo struct {
	name       string
	argCount   int
	exported   bool
	entry      int32
	totalSlots int
}

// pendingCall records a CALL_SCRIPT instruction emitted before its
// callee's entry/total_slots were known, so it can be back-patched once
// every function has finished compiling.
type pendingCall struct {
	totalSlotsOffset int
	entryOffset      int
	callee           string
}
