package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"gunderscript"
)

// runBytecodeCmd implements `gunderscript run-bytecode <entry> <bytecode.gxb>`.
type runBytecodeCmd struct {
	verbose bool
}

func (*runBytecodeCmd) Name() string     { return "run-bytecode" }
func (*runBytecodeCmd) Synopsis() string { return "load a .gxb file and execute its entry function" }
func (*runBytecodeCmd) Usage() string {
	return "run-bytecode <entry> <bytecode.gxb>\n"
}
func (c *runBytecodeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "enable debug tracing")
}

func (c *runBytecodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 2 {
		fmt.Println(c.Usage())
		return subcommands.ExitFailure
	}
	return subcommands.ExitStatus(c.run(args[0], args[1]))
}

// run loads bytecodePath and executes its entry function, returning 0 on
// success and 1 otherwise (§6.1).
func (c *runBytecodeCmd) run(entry, bytecodePath string) int {
	data, err := os.ReadFile(bytecodePath)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	log := newLogger(c.verbose)
	engine := gunderscript.New(loadLimits()).WithLogger(log.WithField("cmd", "run-bytecode"))
	if err := engine.InstallStandardLibrary(); err != nil {
		fmt.Println(err)
		return 1
	}

	if err := engine.LoadBytecode(data); err != nil {
		fmt.Println(err)
		return 1
	}

	if _, err := engine.ExecuteFunction(entry); err != nil {
		fmt.Println(err)
		return 1
	}

	return 0
}
