package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"gunderscript"
)

// buildScriptCmd implements `gunderscript build-script <source.gxs> <out.gxb>`.
type buildScriptCmd struct {
	verbose bool
}

func (*buildScriptCmd) Name() string     { return "build-script" }
func (*buildScriptCmd) Synopsis() string { return "compile a source file to a .gxb bytecode file" }
func (*buildScriptCmd) Usage() string {
	return "build-script <source.gxs> <out.gxb>\n"
}
func (c *buildScriptCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "enable debug tracing")
}

func (c *buildScriptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 2 {
		fmt.Println(c.Usage())
		return subcommands.ExitFailure
	}
	return subcommands.ExitStatus(c.run(args[0], args[1]))
}

// run compiles sourcePath and writes the resulting .gxb to outPath,
// returning 0 on success and 1 otherwise (§6.1). It is split out of
// Execute so tests can drive it without threading a subcommands.Command
// through flag parsing.
func (c *buildScriptCmd) run(sourcePath, outPath string) int {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	log := newLogger(c.verbose)
	engine := gunderscript.New(loadLimits()).WithLogger(log.WithField("cmd", "build-script"))
	if err := engine.InstallStandardLibrary(); err != nil {
		fmt.Println(err)
		return 1
	}

	prog, err := engine.Compile(string(src))
	if err != nil {
		fmt.Println(err)
		return 1
	}

	data, err := engine.SaveBytecode(prog)
	if err != nil {
		fmt.Println(err)
		return 1
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		fmt.Println(err)
		return 1
	}

	return 0
}
