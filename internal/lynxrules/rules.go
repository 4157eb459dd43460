// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package lynxrules implements the three height-gated consensus rules that
// restrict which address may receive a Lynx block's coinbase reward:
//
//   - rule1 prohibits an address that has already appeared as a coinbase
//     destination within the last N blocks.
//   - rule2 requires the reward address to hold a minimum balance derived
//     from recent difficulty.
//   - rule3 requires the last N hex characters of SHA-256(address) to
//     match the last N hex characters of the block hash.
//
// All functions are pure with respect to their ChainView argument: given
// the same chain state and consensus parameters, they always return the
// same result.
package lynxrules

import (
	"encoding/hex"
	"errors"
	"math"
	"strings"

	"github.com/decred/dcrd/dcrutil/v3"
	"github.com/minio/sha256-simd"
)

// MinBalanceForMining computes the minimum confirmed balance a reward
// address must hold to be eligible for mining at bestIndex, per rule2's
// parameter table. It returns 0 if rule2 is not yet active at this height.
func MinBalanceForMining(chain ChainView, bestIndex BlockIndex, params *Params) (dcrutil.Amount, error) {
	if bestIndex == nil {
		return 0, nil
	}

	active, pow := LookupParam(bestIndex.Height(), params.HardForkRule2Params)
	if !active {
		return 0, nil
	}

	difficulty, err := chain.DifficultyAt(bestIndex, params.DifficultyPrevBlockCount)
	if err != nil {
		return 0, makeError(ErrReadBlock, "lynxrules: failed to resolve difficulty for min balance: "+err.Error())
	}

	raw := math.Pow(difficulty, float64(pow)) * float64(dcrutil.AtomsPerCoin)
	if math.IsInf(raw, 0) || raw > float64(params.MinBalanceUpperLimit) {
		return params.MinBalanceUpperLimit, nil
	}

	amount := dcrutil.Amount(int64(raw))
	if amount < params.MinBalanceLowerLimit {
		return params.MinBalanceLowerLimit, nil
	}
	return amount, nil
}

// AddressesProhibited returns the set of addresses (keyed by their string
// encoding) that have appeared as a coinbase destination in one of the
// last N blocks ending at bestIndex, per rule1's parameter table. It
// returns an empty set, not an error, if rule1 is not yet active.
func AddressesProhibited(chain ChainView, bestIndex BlockIndex, params *Params) (map[string]struct{}, error) {
	result := make(map[string]struct{})

	if bestIndex == nil {
		return result, nil
	}

	active, n := LookupParam(bestIndex.Height(), params.HardForkRule1Params)
	if !active {
		return result, nil
	}

	index := bestIndex
	for i := int64(0); i < n && index != nil; i++ {
		block, err := chain.ReadBlock(index)
		if err != nil {
			return nil, makeError(ErrReadBlock, "lynxrules: failed to read block for prohibited-address scan: "+err.Error())
		}

		dests, err := block.CoinbaseDestinations()
		if err != nil {
			return nil, err
		}
		for _, dest := range dests {
			result[dest.Address()] = struct{}{}
		}

		index = index.Prev()
	}

	return result, nil
}

// FindAddressForMining returns the first address from balances (in the
// given order) that is neither prohibited by rule1 nor short of rule2's
// minimum balance. It returns nil, nil if no candidate qualifies.
func FindAddressForMining(chain ChainView, balances []AddressBalance, bestIndex BlockIndex, params *Params) (dcrutil.Address, error) {
	prohibited, err := AddressesProhibited(chain, bestIndex, params)
	if err != nil {
		return nil, err
	}

	minBalance, err := MinBalanceForMining(chain, bestIndex, params)
	if err != nil {
		return nil, err
	}

	for _, candidate := range balances {
		if _, blocked := prohibited[candidate.Address.Address()]; blocked {
			continue
		}
		if candidate.Amount < minBalance {
			continue
		}
		return candidate.Address, nil
	}

	return nil, nil
}

// AddressBalance pairs an address with its confirmed balance, preserving
// the caller-supplied iteration order that FindAddressForMining scans in.
type AddressBalance struct {
	Address dcrutil.Address
	Amount  dcrutil.Amount
}

// IsValidAddressForMining reports whether address is currently eligible to
// receive the coinbase reward, checking rule1 and rule2. The returned
// error, when non-nil, is one of ErrCoinbaseHistoryUnavailable,
// ErrRecentCoinbaseReward, or ErrInsufficientBalance.
func IsValidAddressForMining(chain ChainView, address dcrutil.Address, balance dcrutil.Amount, bestIndex BlockIndex, params *Params) error {
	prohibited, err := AddressesProhibited(chain, bestIndex, params)
	if err != nil {
		return ErrCoinbaseHistoryUnavailable
	}

	if _, blocked := prohibited[address.Address()]; blocked {
		return ErrRecentCoinbaseReward
	}

	minBalance, err := MinBalanceForMining(chain, bestIndex, params)
	if err != nil {
		return ErrCoinbaseHistoryUnavailable
	}
	if balance < minBalance {
		return ErrInsufficientBalance
	}

	return nil
}

// Rule1 reports whether block, extending block_index, avoids reusing a
// coinbase destination from any of the trailing blocks rule1's parameter
// table designates as its lookback window. It returns true unconditionally
// if rule1 is not yet active at blockIndex.Height().
func Rule1(chain ChainView, block Block, blockIndex BlockIndex, params *Params) (bool, error) {
	active, n := LookupParam(blockIndex.Height(), params.HardForkRule1Params)
	if !active {
		return true, nil
	}

	dests, err := block.CoinbaseDestinations()
	if err != nil {
		return false, err
	}
	newDests := make(map[string]struct{}, len(dests))
	for _, dest := range dests {
		newDests[dest.Address()] = struct{}{}
	}

	prev := blockIndex.Prev()
	for i := int64(0); i < n && prev != nil; i++ {
		prevBlock, err := chain.ReadBlock(prev)
		if err != nil {
			return false, makeError(ErrReadBlock, "rule1: failed to read prior block: "+err.Error())
		}

		prevDests, err := prevBlock.CoinbaseDestinations()
		if err != nil {
			return false, err
		}
		for _, dest := range prevDests {
			if _, reused := newDests[dest.Address()]; reused {
				log.Debugf("rule1: new block reuses coinbase destination %s within the "+
					"prohibited window", dest.Address())
				return false, nil
			}
		}

		prev = prev.Prev()
	}

	return true, nil
}

// Rule2 reports whether block's first coinbase destination holds at least
// MinBalanceForMining as of block_index.Prev(), the chain tip at the time
// the block was mined. It returns true unconditionally if rule2 is not yet
// active at blockIndex.Height().
func Rule2(chain ChainView, block Block, blockIndex BlockIndex, params *Params) (bool, error) {
	active, _ := LookupParam(blockIndex.Height(), params.HardForkRule2Params)
	if !active {
		return true, nil
	}

	dests, err := block.CoinbaseDestinations()
	if err != nil {
		return false, err
	}
	if len(dests) == 0 {
		return false, makeError(ErrMissingCoinbaseDestination, "rule2: coinbase has no destinations")
	}

	addr := dests[0]
	balance, err := chain.AddressBalance(addr)
	if err != nil {
		return false, err
	}

	minBalance, err := MinBalanceForMining(chain, blockIndex.Prev(), params)
	if err != nil {
		return false, err
	}
	if balance < minBalance {
		log.Debugf("rule2: address %s balance %v below minimum %v", addr.Address(), balance, minBalance)
		return false, nil
	}

	return true, nil
}

// Rule3 reports whether the last n hex characters of SHA-256(address)
// match the last n hex characters of block's hash, where n comes from
// rule3's parameter table at height. It returns true unconditionally if
// rule3 is not yet active at height.
//
// When fromBuiltinMiner is true, Rule3 emits diagnostic log lines
// mirroring the reward address, its hash, and the block hash; this never
// changes the boolean result and exists purely so an operator running the
// built-in miner can see why a candidate block was accepted or discarded.
func Rule3(block Block, height int64, params *Params, fromBuiltinMiner bool) (bool, error) {
	active, n := LookupParam(height, params.HardForkRule3Params)
	if !active {
		return true, nil
	}

	dests, err := block.CoinbaseDestinations()
	if err != nil {
		return false, err
	}
	if len(dests) == 0 {
		return false, makeError(ErrMissingCoinbaseDestination, "rule3: coinbase has no destinations")
	}

	addr := dests[0].Address()
	sum := sha256.Sum256([]byte(addr))
	addrHex := hex.EncodeToString(sum[:])
	blockHex := strings.ToLower(block.Hash().String())

	suffixLen := int(n)
	if suffixLen > len(addrHex) || suffixLen > len(blockHex) || suffixLen < 0 {
		return false, errors.New("rule3: suffix length out of range")
	}

	addrSuffix := addrHex[len(addrHex)-suffixLen:]
	blockSuffix := blockHex[len(blockHex)-suffixLen:]
	matched := addrSuffix == blockSuffix

	if fromBuiltinMiner {
		log.Debugf("BuiltinMiner: Reward address: %s", addr)
		log.Debugf("BuiltinMiner: Address_hash: %s", addrHex)
		log.Debugf("BuiltinMiner: Block hash: %s", blockHex)
		if matched {
			log.Debugf("BuiltinMiner: Candidate block %s Rule3 passed", blockHex)
		} else {
			log.Debugf("BuiltinMiner: Candidate block %s Rule3 failed. Block hash and sha256 "+
				"hash of the first destination should end on the same %d chars (%s<>%s)",
				blockHex, suffixLen, addrSuffix, blockSuffix)
		}
	}

	return matched, nil
}

// ValidationState is the minimal reject-reason sink CheckAll reports
// consensus failures to, mirroring the DoS-scored validation state the
// full block-validation pipeline (out of scope here) maintains.
type ValidationState struct {
	Rejected     bool
	RejectReason string
	DoSLevel     int
}

// DoS marks the state as rejected with the given DoS score and reason.
func (s *ValidationState) DoS(level int, reason string) {
	s.Rejected = true
	s.RejectReason = reason
	s.DoSLevel = level
}

// CheckAll applies rule1, rule2, and rule3 in order, stopping at the first
// failure. Any failure marks state with reject reason "bad-cb-destination"
// at DoS level 100.
func CheckAll(chain ChainView, block Block, blockIndex BlockIndex, params *Params, state *ValidationState) (bool, error) {
	ok, err := Rule1(chain, block, blockIndex, params)
	if err != nil {
		return false, err
	}
	if !ok {
		state.DoS(100, "bad-cb-destination")
		return false, nil
	}

	ok, err = Rule2(chain, block, blockIndex, params)
	if err != nil {
		return false, err
	}
	if !ok {
		state.DoS(100, "bad-cb-destination")
		return false, nil
	}

	ok, err = Rule3(block, blockIndex.Height(), params, false)
	if err != nil {
		return false, err
	}
	if !ok {
		state.DoS(100, "bad-cb-destination")
		return false, nil
	}

	return true, nil
}
