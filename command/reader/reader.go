// Package reader drives the illegalsim developer console: a liner-based
// read-eval-print loop over command/parser, unchanged in shape from the
// teacher's line-editing REPL.
package reader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/peterh/liner"

	"github.com/rcornwell/rv-illegal-insn/cmd/illegalsim/session"
	"github.com/rcornwell/rv-illegal-insn/command/parser"
)

// ConsoleReader reads commands from stdin until quit or EOF.
func ConsoleReader(sess *session.Session) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		return parser.CompleteCmd(l)
	})

	for {
		input, err := line.Prompt("illegalsim> ")
		if err == nil {
			line.AppendHistory(input)
			quit, err := parser.ProcessCommand(input, sess)
			if err != nil {
				fmt.Println("error: " + err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("error reading line", "err", err)
		return
	}
}
