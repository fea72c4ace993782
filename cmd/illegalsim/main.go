// Command illegalsim is a developer console for exercising the
// illegal-instruction emulation core outside of any real hart: it lets
// you inject a synthetic trap, inspect the resulting register state, and
// load an extension/envcfg-fallback config file, the same way the
// original command console drove a running CPU.
package main

import (
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rv-illegal-insn/cmd/illegalsim/session"
	"github.com/rcornwell/rv-illegal-insn/command/reader"
	logger "github.com/rcornwell/rv-illegal-insn/util/logger"
)

func main() {
	optXLen := getopt.IntLong("xlen", 'x', 64, "XLEN (32 or 64)")
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("unable to create log file", "err", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, new(bool)))
	slog.SetDefault(log)

	if *optXLen != 32 && *optXLen != 64 {
		slog.Error("xlen must be 32 or 64", "xlen", *optXLen)
		os.Exit(1)
	}

	sess := session.New(*optXLen)

	if *optConfig != "" {
		if err := sess.LoadConfig(*optConfig); err != nil {
			slog.Error("loading config", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("illegalsim started", "xlen", *optXLen)
	reader.ConsoleReader(sess)
	slog.Info("illegalsim exiting")
}
