package vm

import "github.com/dolthub/swiss"

// Function describes one compiled script function's call-site contract:
// where its body starts, how many arguments it takes, how many frame
// slots its top-level block needs, and whether it is a valid
// ExecuteFunction entry point.
type Function struct {
	Name       string
	Entry      int32
	ArgCount   int
	TotalSlots int
	Exported   bool
}

// functionTable indexes a program's functions by name, keyed the same
// way as callbackRegistry, for ExecuteFunction entry-point lookup. Only
// exported functions are addressable this way; non-exported functions
// are only reachable through CALL_SCRIPT instructions that already carry
// their entry/arg_count/total_slots inline (§6.2).
type functionTable struct {
	byName *swiss.Map[string, Function]
}

func newFunctionTable() *functionTable {
	return &functionTable{byName: swiss.NewMap[string, Function](8)}
}

func (t *functionTable) add(fn Function) {
	t.byName.Put(fn.Name, fn)
}

func (t *functionTable) lookup(name string) (Function, bool) {
	return t.byName.Get(name)
}
