// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/decred/dcrd/dcrutil/v3"

	"github.com/lynxcoins/Lynx/internal/addressselector"
	"github.com/lynxcoins/Lynx/internal/miner"
)

const (
	defaultConfigFilename = "lynxd.conf"
	defaultLogLevel       = "info"
	defaultCPULimit       = "0.05"
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("lynxd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
)

// errSuppressUsage signals that the usage message should not be printed
// alongside an error, e.g. when the error is just a requested -h/--help.
type errSuppressUsage struct {
	inner error
}

func (e errSuppressUsage) Error() string { return e.inner.Error() }
func (e errSuppressUsage) Unwrap() error { return e.inner }

// config defines the configuration options for lynxd. See loadConfig for
// details on the configuration load process.
type config struct {
	ConfigFile string `short:"C" long:"conf" description:"Path to configuration file"`
	HomeDir    string `short:"A" long:"appdata" description:"Application data directory"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	DisableBuiltinMiner     bool   `long:"disablebuiltinminer" description:"Disable the built-in CPU miner"`
	CPULimitForBuiltinMiner string `long:"cpulimitforbuiltinminer" description:"Fraction of total CPU the built-in miner should target, in [0, 1]" default:"0.05"`
	DisableCheckSyncChain   bool   `long:"disablechecksyncchain" description:"Let the built-in miner mine even while the chain is not believed current"`
	MinerAddress            string `long:"mineraddress" description:"Comma-separated candidate reward addresses used by the built-in miner when no wallet is attached"`

	minerAddresses []string
	cpuLimit       float64
}

// cleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~") {
		if homeDir := filepath.Dir(defaultHomeDir); homeDir != "" {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return filepath.Clean(os.Expand(path, os.Getenv))
}

// parseMinerAddresses splits the -mineraddress flag value, which may
// separate its entries with any mix of commas, tabs and spaces, into its
// component addresses.
func parseMinerAddresses(raw string) []string {
	return addressselector.SplitMinerAddresses(raw)
}

// loadConfig initializes and parses the config using command line options
// and, if specified, a config file, then normalizes and validates the
// result. It returns any leftover, non-flag command-line arguments.
func loadConfig(appName string) (*config, []string, error) {
	cfg := config{
		ConfigFile:              defaultConfigFile,
		HomeDir:                 defaultHomeDir,
		DebugLevel:              defaultLogLevel,
		CPULimitForBuiltinMiner: defaultCPULimit,
	}

	// A pre-parse only resolves -appdata/-conf so the real parse below
	// knows which config file to load before flags override its values.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := preParser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil, errSuppressUsage{err}
		}
		return nil, nil, err
	}

	if preCfg.HomeDir != "" {
		cfg.HomeDir = cleanAndExpandPath(preCfg.HomeDir)
		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		}
	}
	if preCfg.ConfigFile != "" {
		cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	remainingArgs, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil, errSuppressUsage{err}
		}
		return nil, nil, err
	}

	limit, err := strconv.ParseFloat(cfg.CPULimitForBuiltinMiner, 64)
	if err != nil || limit < 0 || limit > 1 {
		return nil, nil, fmt.Errorf("%s: cpulimitforbuiltinminer must be a number within [0, 1]: %q",
			appName, cfg.CPULimitForBuiltinMiner)
	}
	cfg.cpuLimit = limit
	cfg.minerAddresses = parseMinerAddresses(cfg.MinerAddress)

	return &cfg, remainingArgs, nil
}

// minerConfigFromCLI adapts the parsed CLI config into miner.Config.
func minerConfigFromCLI(cfg *config) miner.Config {
	return miner.Config{
		CPULimit:       cfg.cpuLimit,
		CheckSyncChain: !cfg.DisableCheckSyncChain,
		MinerAddresses: cfg.minerAddresses,
		ConfPath:       cfg.ConfigFile,
	}
}
