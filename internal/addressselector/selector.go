// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addressselector resolves the coinbase reward script a mining
// worker should pay to on each iteration, from either an attached wallet
// or a configured list of candidate addresses.
package addressselector

import (
	"math/rand"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrutil/v3"
	"github.com/decred/dcrd/txscript/v3"

	"github.com/lynxcoins/Lynx/internal/lynxrules"
)

// ReloadConfigInterval bounds how long GetScriptForMining waits for an
// operator to add a candidate address to the configuration file before
// giving up on a cycle when neither a wallet nor any candidate is
// configured.
const ReloadConfigInterval = 120 * time.Second

// reloadPollInterval is the tick size ReloadConfigInterval's wait is
// broken into, so a caller's quit channel is honored promptly.
const reloadPollInterval = 200 * time.Millisecond

// ReserveScript is an output script reserved for the next mining attempt.
// KeepFn, when non-nil, commits the underlying wallet key on successful
// block acceptance; it must be called at most once.
type ReserveScript struct {
	Script []byte
	KeepFn func() error
}

// Keep commits the reserved script. It is a no-op when KeepFn is nil,
// which is always the case for candidate-list-derived scripts since they
// don't hold a wallet key pool slot.
func (r *ReserveScript) Keep() error {
	if r == nil || r.KeepFn == nil {
		return nil
	}
	return r.KeepFn()
}

// Selector resolves reward scripts for the built-in miner. When Wallet is
// non-nil it is always preferred; otherwise Candidates is consulted under
// rule1 gating.
type Selector struct {
	Wallet     Wallet
	Chain      ChainView
	Params     *lynxrules.Params
	NetParams  *chaincfg.Params
	Candidates []string

	// ConfPath is the configuration file GetScriptForMining reloads
	// mineraddress from when the candidate list is empty. Reloading is
	// skipped, and the wait simply elapses, when ConfPath is empty.
	ConfPath string
}

// GetScriptForMining returns the script to pay the next mining attempt's
// coinbase to, along with the chain height it was resolved at. If cached
// is non-nil and was resolved at the chain's current tip height, it is
// returned unchanged; the caller is expected to invalidate its cache on
// tip advance.
//
// If neither a wallet nor any candidate address is configured, this
// blocks for up to ReloadConfigInterval, periodically reloading
// mineraddress from ConfPath in case an operator adds one while the
// miner is running, before giving up and returning a nil script for this
// cycle. The wait is interrupted early if quit is closed.
func (s *Selector) GetScriptForMining(quit <-chan struct{}, cached *ReserveScript, cachedHeight int64) (*ReserveScript, int64, error) {
	tip := s.Chain.Tip()
	if tip == nil {
		return nil, cachedHeight, makeError(ErrChainUnavailable, "addressselector: chain has no tip")
	}
	height := tip.Height()

	if cached != nil && height == cachedHeight {
		return cached, height, nil
	}

	if s.Wallet != nil {
		script, err := s.Wallet.GetScriptForMining()
		if err != nil {
			return nil, height, err
		}
		return script, height, nil
	}

	if len(s.Candidates) == 0 {
		s.waitAndReloadCandidates(quit)
		if len(s.Candidates) == 0 {
			return nil, height, makeError(ErrNoWallet, "addressselector: no wallet and no candidate addresses configured")
		}
	}

	addr, err := s.pickCandidateAddress(tip, height)
	if err != nil {
		return nil, height, err
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, height, err
	}

	return &ReserveScript{Script: pkScript}, height, nil
}

// pickCandidateAddress selects a reward address from Candidates. When
// rule1 is active at height, candidates are scanned in configured order
// for the first that passes rule1/rule2 gating. When rule1 is not yet
// active, a single candidate is chosen uniformly at random; if that
// candidate fails to decode the selection fails outright, matching the
// reference implementation's no-retry behavior.
func (s *Selector) pickCandidateAddress(tip BlockIndex, height int64) (dcrutil.Address, error) {
	active, _ := lynxrules.LookupParam(height, s.Params.HardForkRule1Params)
	if !active {
		idx := rand.Intn(len(s.Candidates))
		addr, err := dcrutil.DecodeAddress(s.Candidates[idx], s.NetParams)
		if err != nil {
			log.Warnf("addressselector: mining address %s is invalid", s.Candidates[idx])
			return nil, makeError(ErrInvalidAddress, "addressselector: invalid mining address "+s.Candidates[idx])
		}
		return addr, nil
	}

	balances := make([]lynxrules.AddressBalance, 0, len(s.Candidates))
	for _, candidate := range s.Candidates {
		addr, err := dcrutil.DecodeAddress(candidate, s.NetParams)
		if err != nil {
			log.Warnf("addressselector: mining address %s is invalid", candidate)
			continue
		}
		balance, err := s.Chain.AddressBalance(addr)
		if err != nil {
			return nil, err
		}
		balances = append(balances, lynxrules.AddressBalance{Address: addr, Amount: balance})
	}

	addr, err := lynxrules.FindAddressForMining(s.Chain, balances, tip, s.Params)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, makeError(ErrNoWallet, "addressselector: no candidate address is currently eligible for mining")
	}
	return addr, nil
}

// waitAndReloadCandidates polls ConfPath for a non-empty mineraddress
// list every reloadPollInterval, up to ReloadConfigInterval or until quit
// is closed, updating s.Candidates as soon as a reload finds one.
func (s *Selector) waitAndReloadCandidates(quit <-chan struct{}) {
	deadline := time.Now().Add(ReloadConfigInterval)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		tick := reloadPollInterval
		if remaining < tick {
			tick = remaining
		}
		timer := time.NewTimer(tick)
		select {
		case <-timer.C:
		case <-quit:
			timer.Stop()
			return
		}

		addrs, err := loadMinerAddressesFromConfig(s.ConfPath)
		if err != nil {
			log.Warnf("addressselector: failed to reload miner addresses from %s: %v", s.ConfPath, err)
			continue
		}
		if len(addrs) > 0 {
			log.Infof("addressselector: reloaded %d miner address(es) from %s", len(addrs), s.ConfPath)
			s.Candidates = addrs
			return
		}
	}
}

// reloadableConfig mirrors the single field of cmd/lynxd's config struct
// that GetScriptForMining is allowed to observe changing at runtime.
type reloadableConfig struct {
	MinerAddress string `long:"mineraddress"`
}

// loadMinerAddressesFromConfig re-reads the mineraddress value out of the
// INI-formatted configuration file at path. An empty path is not an
// error: it simply yields no addresses.
func loadMinerAddressesFromConfig(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	var rc reloadableConfig
	parser := flags.NewParser(&rc, flags.IgnoreUnknown)
	if err := flags.NewIniParser(parser).ParseFile(path); err != nil {
		return nil, err
	}
	return SplitMinerAddresses(rc.MinerAddress), nil
}

// SplitMinerAddresses splits a mineraddress configuration value into
// its component addresses. Entries may be separated by any mix of
// commas, tabs and spaces; empty entries produced by adjacent separators
// are dropped.
func SplitMinerAddresses(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\t' || r == ' '
	})
}
