// Command gunderscript is the Gunderscript CLI (§6.1): exactly three
// subcommands — build-script, run-script, run-bytecode — with exit code
// 0 on success and 1 otherwise.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	"gunderscript/vm"
)

// newLogger builds the CLI's single logrus.Logger, formatted for a
// human operator reading a terminal; verbose raises the level to Debug
// so Engine tracing (callback registration, compile/execute phases)
// becomes visible.
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&easy.Formatter{
		TimestampFormat: "15:04:05",
		LogFormat:       "[%lvl%] %time% - %msg%\n",
	})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// loadLimits builds vm.Limits from its struct-tag defaults, overridden
// by GS_OPERAND_STACK_SIZE/GS_FRAME_STACK_SIZE/GS_CALLBACK_CAPACITY when
// present in the environment (§4.6).
func loadLimits() vm.Limits {
	limits := vm.DefaultLimits()
	_ = env.Parse(&limits)
	return limits
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&buildScriptCmd{}, "")
	subcommands.Register(&runScriptCmd{}, "")
	subcommands.Register(&runBytecodeCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
