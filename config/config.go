// Package config parses the core's configuration file: per-extension
// enable flags, and what to do when a CSR-access
// gate consults an senvcfg/menvcfg that the platform doesn't implement.
// The line grammar (# comments, "key = value", blank lines skipped)
// follows config/configparser's scanner-driven style, simplified since
// this core has no device tree to build.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EnvcfgPolicy decides what FSOff-style gating sees when the platform
// collaborator reports no senvcfg/menvcfg is implemented at all.
type EnvcfgPolicy int

const (
	// EnvcfgPermissive treats a missing senvcfg/menvcfg as if every gate
	// bit were set — cbo.zero/clean/flush/inval and the Zicbom/Zicboz
	// family all proceed. This is this core's default; see Open Question
	// #2.
	EnvcfgPermissive EnvcfgPolicy = iota
	// EnvcfgStrict treats a missing senvcfg/menvcfg as all-gates-closed,
	// redirecting any cbo.* whose platform doesn't implement the CSR.
	EnvcfgStrict
)

// Extensions records the per-extension enable flags read from the config
// file. Load starts from AllEnabled, so an empty config leaves every field
// true; the zero value has every field false. Handle does not consult
// these flags: it emulates every extension this core models regardless.
type Extensions struct {
	Zba, Zbb, Zbc, Zbs        bool
	Zicond                    bool
	Zicbom, Zicboz            bool
	Zicsr                     bool
	Zawrs, Zimop, Zcmop       bool
	Zcb                       bool
	Zfa, Zfhmin               bool
	Zvbb                      bool
}

// AllEnabled is the default extension set: everything on.
func AllEnabled() Extensions {
	return Extensions{
		Zba: true, Zbb: true, Zbc: true, Zbs: true,
		Zicond: true,
		Zicbom: true, Zicboz: true,
		Zicsr: true,
		Zawrs: true, Zimop: true, Zcmop: true,
		Zcb:    true,
		Zfa:    true, Zfhmin: true,
		Zvbb: true,
	}
}

// Config is the parsed policy this core runs under.
type Config struct {
	Ext            Extensions
	EnvcfgFallback EnvcfgPolicy
}

var extensionFields = map[string]func(*Extensions, bool){
	"zba":    func(e *Extensions, v bool) { e.Zba = v },
	"zbb":    func(e *Extensions, v bool) { e.Zbb = v },
	"zbc":    func(e *Extensions, v bool) { e.Zbc = v },
	"zbs":    func(e *Extensions, v bool) { e.Zbs = v },
	"zicond": func(e *Extensions, v bool) { e.Zicond = v },
	"zicbom": func(e *Extensions, v bool) { e.Zicbom = v },
	"zicboz": func(e *Extensions, v bool) { e.Zicboz = v },
	"zicsr":  func(e *Extensions, v bool) { e.Zicsr = v },
	"zawrs":  func(e *Extensions, v bool) { e.Zawrs = v },
	"zimop":  func(e *Extensions, v bool) { e.Zimop = v },
	"zcmop":  func(e *Extensions, v bool) { e.Zcmop = v },
	"zcb":    func(e *Extensions, v bool) { e.Zcb = v },
	"zfa":    func(e *Extensions, v bool) { e.Zfa = v },
	"zfhmin": func(e *Extensions, v bool) { e.Zfhmin = v },
	"zvbb":   func(e *Extensions, v bool) { e.Zvbb = v },
}

// Load parses a configuration stream into a Config seeded with
// AllEnabled and EnvcfgPermissive, overridden by whatever lines r
// contains.
func Load(r io.Reader) (*Config, error) {
	cfg := &Config{Ext: AllEnabled(), EnvcfgFallback: EnvcfgPermissive}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, err := splitKeyValue(line)
		if err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
		if err := cfg.apply(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

func splitKeyValue(line string) (key, value string, err error) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", errors.New("expected key = value")
	}
	key = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.ToLower(strings.TrimSpace(line[idx+1:]))
	if key == "" {
		return "", "", errors.New("empty key")
	}
	return key, value, nil
}

func (c *Config) apply(key, value string) error {
	if key == "envcfg_fallback" {
		switch value {
		case "permissive":
			c.EnvcfgFallback = EnvcfgPermissive
		case "strict":
			c.EnvcfgFallback = EnvcfgStrict
		default:
			return fmt.Errorf("envcfg_fallback: unknown value %q", value)
		}
		return nil
	}

	setter, ok := extensionFields[key]
	if !ok {
		return fmt.Errorf("unknown option %q", key)
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	setter(&c.Ext, enabled)
	return nil
}
