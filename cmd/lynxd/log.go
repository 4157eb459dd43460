// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/decred/slog"

	"github.com/lynxcoins/Lynx/internal/addressselector"
	"github.com/lynxcoins/Lynx/internal/cpulimiter"
	"github.com/lynxcoins/Lynx/internal/lynxrules"
	"github.com/lynxcoins/Lynx/internal/miner"
)

// backendLog is the logging backend used to create all subsystem loggers.
// It writes to stdout only; lynxd has no log-rotation surface of its own.
var backendLog = slog.NewBackend(os.Stdout)

// Loggers per subsystem. When adding a new subsystem, add its logger
// variable here and to subsystemLoggers.
var (
	lynxLog = backendLog.Logger("LYNX")
	minrLog = backendLog.Logger("MINR")
	adxsLog = backendLog.Logger("ADXS")
	ruleLog = backendLog.Logger("RULE")
	cpulLog = backendLog.Logger("CPUL")
)

// subsystemLoggers maps each subsystem identifier to its associated
// logger, used by setLogLevel(s) to resolve -debuglevel arguments.
var subsystemLoggers = map[string]slog.Logger{
	"LYNX": lynxLog,
	"MINR": minrLog,
	"ADXS": adxsLog,
	"RULE": ruleLog,
	"CPUL": cpulLog,
}

func init() {
	miner.UseLogger(minrLog)
	addressselector.UseLogger(adxsLog)
	lynxrules.UseLogger(ruleLog)
	cpulimiter.UseLogger(cpulLog)
}

// setLogLevel sets the logging level for the provided subsystem. Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	level, ok := slog.LevelFromString(logLevel)
	if !ok {
		return
	}
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// parseAndSetDebugLevels attempts to parse the debug level, which is
// either a single string containing a global log level or a comma
// separated list of subsystem=level pairs, and sets the levels
// accordingly. It returns an error if any specified level or subsystem is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if _, ok := slog.LevelFromString(debugLevel); !ok {
			return fmt.Errorf("the specified debug level %q is invalid", debugLevel)
		}
		setLogLevels(debugLevel)
		return nil
	}

	for _, pair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an invalid "+
				"subsystem/level pair %q", pair)
		}
		subsystemID, logLevel := fields[0], fields[1]
		if _, ok := subsystemLoggers[subsystemID]; !ok {
			return fmt.Errorf("the specified subsystem %q is invalid", subsystemID)
		}
		if _, ok := slog.LevelFromString(logLevel); !ok {
			return fmt.Errorf("the specified debug level %q is invalid", logLevel)
		}
		setLogLevel(subsystemID, logLevel)
	}

	return nil
}
