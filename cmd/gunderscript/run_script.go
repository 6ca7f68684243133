package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"gunderscript"
)

// runScriptCmd implements `gunderscript run-script <entry> <source.gxs>`.
type runScriptCmd struct {
	verbose bool
}

func (*runScriptCmd) Name() string     { return "run-script" }
func (*runScriptCmd) Synopsis() string { return "compile and execute a source file's entry function" }
func (*runScriptCmd) Usage() string {
	return "run-script <entry> <source.gxs>\n"
}
func (c *runScriptCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "enable debug tracing")
}

func (c *runScriptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 2 {
		fmt.Println(c.Usage())
		return subcommands.ExitFailure
	}
	return subcommands.ExitStatus(c.run(args[0], args[1]))
}

// run compiles sourcePath and executes its entry function, returning 0
// on success and 1 otherwise (§6.1).
func (c *runScriptCmd) run(entry, sourcePath string) int {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	log := newLogger(c.verbose)
	engine := gunderscript.New(loadLimits()).WithLogger(log.WithField("cmd", "run-script"))
	if err := engine.InstallStandardLibrary(); err != nil {
		fmt.Println(err)
		return 1
	}

	if _, err := engine.Compile(string(src)); err != nil {
		fmt.Println(err)
		return 1
	}

	if _, err := engine.ExecuteFunction(entry); err != nil {
		fmt.Println(err)
		return 1
	}

	return 0
}
