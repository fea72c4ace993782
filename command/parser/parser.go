// Package parser implements the illegalsim developer console's command
// line: a small set of prefix-matched commands for injecting a synthetic
// illegal-instruction trap, inspecting register state, and loading a
// config file, scanned in the same hand-rolled line-scanner style the
// original configuration-file parser used.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/rv-illegal-insn/cmd/illegalsim/session"
)

type cmd struct {
	name     string
	min      int
	process  func(*cmdLine, *session.Session) (bool, error)
	complete func(*cmdLine) []string
}

type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "trap", min: 2, process: trapCmd},
	{name: "set", min: 3, process: setCmd},
	{name: "show", min: 2, process: showCmd, complete: showComplete},
	{name: "load", min: 2, process: loadCmd},
	{name: "help", min: 1, process: helpCmd},
	{name: "quit", min: 1, process: quitCmd},
}

// ProcessCommand executes one console input line against sess.
func ProcessCommand(commandLine string, sess *session.Session) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + name)
	}
	return match[0].process(&line, sess)
}

// CompleteCmd drives liner's tab completion.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	if !line.isEOL() && line.line[line.pos] == ' ' {
		line.skipSpace()
		match := matchList(name)
		if len(match) != 1 || match[0].complete == nil {
			return nil
		}
		return match[0].complete(&line)
	}

	match := matchList(name)
	out := make([]string, len(match))
	for i, m := range match {
		out[i] = m.name
	}
	return out
}

func matchCommand(m cmd, name string) bool {
	if len(name) > len(m.name) {
		return false
	}
	for i := range name {
		if name[i] != m.name[i] {
			return false
		}
	}
	return len(name) >= m.min
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var out []cmd
	for _, m := range cmdList {
		if matchCommand(m, name) {
			out = append(out, m)
		}
	}
	return out
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line) || l.line[l.pos] == '#'
}

func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && !unicode.IsSpace(rune(l.line[l.pos])) && l.line[l.pos] != '#' {
		l.pos++
	}
	return strings.ToLower(l.line[start:l.pos])
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// trap <hex instruction> [u|s|m]
func trapCmd(line *cmdLine, sess *session.Session) (bool, error) {
	insnStr := line.getWord()
	if insnStr == "" {
		return false, errors.New("trap requires an instruction value")
	}
	insn, err := parseHex(insnStr)
	if err != nil {
		return false, fmt.Errorf("bad instruction %q: %w", insnStr, err)
	}

	mode := line.getWord()
	rc := sess.InjectTrap(uint32(insn), mode)
	slog.Info("trap processed", "insn", fmt.Sprintf("%#x", insn), "rc", rc)
	fmt.Printf("result: %d\n", rc)
	return false, nil
}

// set reg <n> <hex value>  |  set fcsr <hex value>
func setCmd(line *cmdLine, sess *session.Session) (bool, error) {
	what := line.getWord()
	switch what {
	case "reg":
		numStr := line.getWord()
		valStr := line.getWord()
		num, err := strconv.ParseUint(numStr, 10, 5)
		if err != nil {
			return false, fmt.Errorf("bad register number %q: %w", numStr, err)
		}
		val, err := parseHex(valStr)
		if err != nil {
			return false, fmt.Errorf("bad value %q: %w", valStr, err)
		}
		sess.SetGPR(uint32(num), val)
		return false, nil
	case "fcsr":
		valStr := line.getWord()
		val, err := parseHex(valStr)
		if err != nil {
			return false, fmt.Errorf("bad value %q: %w", valStr, err)
		}
		sess.SetFCSR(uint32(val))
		return false, nil
	default:
		return false, errors.New("set: expected reg or fcsr")
	}
}

func showCmd(line *cmdLine, sess *session.Session) (bool, error) {
	what := line.getWord()
	switch what {
	case "", "regs":
		fmt.Println(sess.ShowRegs())
	case "fcsr":
		fmt.Println(sess.ShowFCSR())
	default:
		return false, errors.New("show: unknown target " + what)
	}
	return false, nil
}

func showComplete(*cmdLine) []string {
	return []string{"regs", "fcsr"}
}

func loadCmd(line *cmdLine, sess *session.Session) (bool, error) {
	line.skipSpace()
	path := line.line[line.pos:]
	if path == "" {
		return false, errors.New("load requires a config file path")
	}
	return false, sess.LoadConfig(path)
}

func helpCmd(*cmdLine, *session.Session) (bool, error) {
	fmt.Println("commands: trap <hex insn> [u|s|m], set reg <n> <hex>, set fcsr <hex>, show [regs|fcsr], load <path>, quit")
	return false, nil
}

func quitCmd(*cmdLine, *session.Session) (bool, error) {
	return true, nil
}
