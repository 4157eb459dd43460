// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lynxcoins/Lynx/internal/miner"
)

// version is lynxd's build version. Real releases would stamp this via
// -ldflags; this module carries no release-tooling of its own.
const version = "0.1.0"

var cfg *config

// newNodeDeps builds the collaborators the built-in miner needs from the
// rest of a running node: chain state, block template construction, proof
// of work verification and block submission. This binary only owns
// configuration, logging and the miner's own lifecycle; the node that
// embeds it is expected to set this hook during its own startup, the same
// way a platform-specific service entry point is only assigned on the
// platform it applies to. Left unset, lynxd still parses flags and
// initializes logging, but declines to start the miner.
var newNodeDeps func(cfg *config) (miner.Deps, error)

// lynxdMain is the real main function for lynxd. It is necessary to work
// around the fact that deferred functions do not run when os.Exit is
// called.
func lynxdMain() error {
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName)
	if err != nil {
		var suppress errSuppressUsage
		if !errors.As(err, &suppress) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintf(os.Stderr, "Use %s -h to show usage\n", appName)
		}
		return err
	}
	cfg = tcfg
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	ctx := shutdownListener()
	defer lynxLog.Info("Shutdown complete")

	lynxLog.Infof("Version %s (Go version %s %s/%s)", version,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	lynxLog.Infof("Home dir: %s", cfg.HomeDir)

	if cfg.DisableBuiltinMiner {
		lynxLog.Info("Built-in miner disabled by configuration")
		<-ctx.Done()
		return nil
	}

	if newNodeDeps == nil {
		err := errors.New("lynxd: no node wired the built-in miner's chain, template, " +
			"proof-of-work and block-submission collaborators")
		lynxLog.Errorf("%v", err)
		return err
	}
	deps, err := newNodeDeps(cfg)
	if err != nil {
		lynxLog.Errorf("Unable to build miner dependencies: %v", err)
		return err
	}

	m := miner.New(miner.Config{}, deps)
	if err := m.AppInit(miner.AppInitArgs{Config: minerConfigFromCLI(cfg)}); err != nil {
		lynxLog.Errorf("Unable to start built-in miner: %v", err)
		return err
	}
	defer m.Stop()

	<-ctx.Done()
	return nil
}

func main() {
	if err := lynxdMain(); err != nil {
		os.Exit(1)
	}
}
