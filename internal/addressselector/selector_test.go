// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addressselector

import (
	"errors"
	"os"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrec"
	"github.com/decred/dcrd/dcrutil/v3"

	"github.com/lynxcoins/Lynx/internal/lynxrules"
)

func mustAddress(t *testing.T, seed byte) dcrutil.Address {
	t.Helper()
	var hash [20]byte
	hash[0] = seed
	addr, err := dcrutil.NewAddressPubKeyHash(hash[:], chaincfg.MainNetParams(), dcrec.STEcdsaSecp256k1)
	if err != nil {
		t.Fatalf("failed to build test address: %v", err)
	}
	return addr
}

type fakeIndex struct {
	height int64
	prev   *fakeIndex
}

func (i *fakeIndex) Height() int64 { return i.height }
func (i *fakeIndex) Prev() lynxrules.BlockIndex {
	if i.prev == nil {
		return nil
	}
	return i.prev
}

type fakeBlock struct {
	dests []dcrutil.Address
}

func (b fakeBlock) CoinbaseDestinations() ([]dcrutil.Address, error) { return b.dests, nil }
func (b fakeBlock) Hash() chainhash.Hash                             { return chainhash.Hash{} }

type fakeChain struct {
	tip      *fakeIndex
	balances map[string]dcrutil.Amount
}

func (c *fakeChain) Tip() lynxrules.BlockIndex { return c.tip }
func (c *fakeChain) ReadBlock(index lynxrules.BlockIndex) (lynxrules.Block, error) {
	return fakeBlock{}, nil
}
func (c *fakeChain) AddressBalance(addr dcrutil.Address) (dcrutil.Amount, error) {
	return c.balances[addr.Address()], nil
}
func (c *fakeChain) DifficultyAt(tip lynxrules.BlockIndex, nBack int64) (float64, error) {
	return 1, nil
}

type fakeWallet struct {
	script *ReserveScript
	err    error
}

func (w *fakeWallet) GetScriptForMining() (*ReserveScript, error) {
	return w.script, w.err
}

func TestGetScriptForMiningPrefersWallet(t *testing.T) {
	tip := &fakeIndex{height: 10}
	sel := &Selector{
		Wallet: &fakeWallet{script: &ReserveScript{Script: []byte{0x01}}},
		Chain:  &fakeChain{tip: tip},
	}

	script, height, err := sel.GetScriptForMining(nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 10 {
		t.Fatalf("expected height 10, got %d", height)
	}
	if script.Script[0] != 0x01 {
		t.Fatalf("expected wallet script to be used")
	}
}

func TestGetScriptForMiningReturnsCacheAtSameHeight(t *testing.T) {
	tip := &fakeIndex{height: 10}
	cached := &ReserveScript{Script: []byte{0xAA}}
	sel := &Selector{
		Wallet: &fakeWallet{script: &ReserveScript{Script: []byte{0x01}}},
		Chain:  &fakeChain{tip: tip},
	}

	script, height, err := sel.GetScriptForMining(nil, cached, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 10 || script != cached {
		t.Fatalf("expected cached script to be reused at unchanged height")
	}
}

func TestGetScriptForMiningNoWalletNoCandidatesReturnsPromptlyOnQuit(t *testing.T) {
	tip := &fakeIndex{height: 5}
	sel := &Selector{Chain: &fakeChain{tip: tip}}

	quit := make(chan struct{})
	close(quit)

	_, _, err := sel.GetScriptForMining(quit, nil, 0)
	var selErr Error
	if !errors.As(err, &selErr) || selErr.Err != ErrNoWallet {
		t.Fatalf("expected ErrNoWallet, got %v", err)
	}
}

func TestGetScriptForMiningReloadsCandidatesFromConfig(t *testing.T) {
	eligible := mustAddress(t, 4)

	dir := t.TempDir()
	confPath := dir + "/lynxd.conf"
	if err := os.WriteFile(confPath, []byte("mineraddress="+eligible.Address()+"\n"), 0o600); err != nil {
		t.Fatalf("failed to write test config file: %v", err)
	}

	tip := &fakeIndex{height: 5}
	chain := &fakeChain{
		tip:      tip,
		balances: map[string]dcrutil.Amount{eligible.Address(): 1_000_000_000},
	}

	sel := &Selector{
		Chain:     chain,
		NetParams: chaincfg.MainNetParams(),
		ConfPath:  confPath,
		Params: &lynxrules.Params{
			HardForkRule1Params:      []lynxrules.HFParam{{ActivationHeight: 0, Param: 10}},
			HardForkRule2Params:      []lynxrules.HFParam{{ActivationHeight: 0, Param: 1}},
			MinBalanceLowerLimit:     1000,
			MinBalanceUpperLimit:     1_000_000_000,
			DifficultyPrevBlockCount: 10,
		},
	}

	// The address is already on disk, so the very first reload poll tick
	// (reloadPollInterval) picks it up without waiting anywhere near
	// ReloadConfigInterval.
	script, _, err := sel.GetScriptForMining(nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script.Script) == 0 {
		t.Fatalf("expected a script derived from the reloaded candidate")
	}
	if len(sel.Candidates) != 1 || sel.Candidates[0] != eligible.Address() {
		t.Fatalf("expected candidates to be reloaded from config, got %v", sel.Candidates)
	}
}

func TestGetScriptForMiningSelectsEligibleCandidate(t *testing.T) {
	eligible := mustAddress(t, 1)
	underfunded := mustAddress(t, 2)

	tip := &fakeIndex{height: 5}
	chain := &fakeChain{
		tip: tip,
		balances: map[string]dcrutil.Amount{
			eligible.Address():    1_000_000_000,
			underfunded.Address(): 1,
		},
	}

	sel := &Selector{
		Chain:     chain,
		NetParams: chaincfg.MainNetParams(),
		Candidates: []string{
			underfunded.Address(),
			eligible.Address(),
		},
		Params: &lynxrules.Params{
			HardForkRule1Params:      []lynxrules.HFParam{{ActivationHeight: 0, Param: 10}},
			HardForkRule2Params:      []lynxrules.HFParam{{ActivationHeight: 0, Param: 1}},
			MinBalanceLowerLimit:     1000,
			MinBalanceUpperLimit:     1_000_000_000,
			DifficultyPrevBlockCount: 10,
		},
	}

	script, height, err := sel.GetScriptForMining(nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 5 {
		t.Fatalf("expected height 5, got %d", height)
	}
	if len(script.Script) == 0 {
		t.Fatalf("expected a non-empty payout script")
	}
}

func TestGetScriptForMiningInvalidCandidateIsSkipped(t *testing.T) {
	eligible := mustAddress(t, 3)

	tip := &fakeIndex{height: 5}
	chain := &fakeChain{
		tip: tip,
		balances: map[string]dcrutil.Amount{
			eligible.Address(): 1_000_000_000,
		},
	}

	sel := &Selector{
		Chain:      chain,
		NetParams:  chaincfg.MainNetParams(),
		Candidates: []string{"not-a-real-address", eligible.Address()},
		Params: &lynxrules.Params{
			HardForkRule1Params:      []lynxrules.HFParam{{ActivationHeight: 0, Param: 10}},
			HardForkRule2Params:      []lynxrules.HFParam{{ActivationHeight: 0, Param: 1}},
			MinBalanceLowerLimit:     1000,
			MinBalanceUpperLimit:     1_000_000_000,
			DifficultyPrevBlockCount: 10,
		},
	}

	script, _, err := sel.GetScriptForMining(nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(script.Script) == 0 {
		t.Fatalf("expected the valid candidate to still be selected")
	}
}
