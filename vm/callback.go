package vm

import (
	"github.com/dolthub/swiss"
)

// Callback is a native function registered with the VM and invokable
// from script as if it were a script function (§4.5). It reads its
// arguments from args, optionally pushes one result onto the VM's
// operand stack, and reports whether a result was pushed. On error it
// sets the VM's error via vm.Fail and returns false.
type Callback func(vm *VM, args []Value) (pushedResult bool)

// callbackRegistry maps native callback names to their dense index
// (embedded by the compiler into CALL_NATIVE instructions) using the
// same swiss-table idiom the corpus uses for hot-path name lookups.
// Capacity is fixed at VM construction; register does not check whether
// execution has already begun.
type callbackRegistry struct {
	byName *swiss.Map[string, int]
	byIdx  []Callback
	cap    int
}

func newCallbackRegistry(capacity int) *callbackRegistry {
	return &callbackRegistry{
		byName: swiss.NewMap[string, int](uint32(capacity)),
		cap:    capacity,
	}
}

// register installs fn under name, returning its dense index. It fails
// with DuplicateCallback if name is already registered and
// CallbackBufferFull if capacity is exhausted.
func (r *callbackRegistry) register(name string, fn Callback) (int, ErrCode) {
	if _, ok := r.byName.Get(name); ok {
		return 0, DuplicateCallback
	}
	if len(r.byIdx) >= r.cap {
		return 0, CallbackBufferFull
	}
	idx := len(r.byIdx)
	r.byIdx = append(r.byIdx, fn)
	r.byName.Put(name, idx)
	return idx, Success
}

func (r *callbackRegistry) indexOf(name string) (int, bool) {
	return r.byName.Get(name)
}

func (r *callbackRegistry) at(idx int) (Callback, bool) {
	if idx < 0 || idx >= len(r.byIdx) {
		return nil, false
	}
	return r.byIdx[idx], true
}
