// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lynxrules

import "github.com/decred/dcrd/dcrutil/v3"

// HFParam is one entry of a height-gated hard-fork parameter table: the
// rule becomes active with the given param value starting strictly above
// ActivationHeight. Tables must be sorted ascending by ActivationHeight.
type HFParam struct {
	ActivationHeight int64
	Param            int64
}

// Params bundles the consensus parameters the Lynx coinbase-eligibility
// rules are evaluated against. It is the Go-native analogue of the
// relevant subset of Consensus::Params from the original implementation.
type Params struct {
	// HardForkRule1Params gates rule1: the value is the number of
	// trailing blocks whose coinbase destinations are prohibited from
	// reappearing.
	HardForkRule1Params []HFParam

	// HardForkRule2Params gates rule2: the value is the exponent applied
	// to difficulty when deriving the minimum mining balance.
	HardForkRule2Params []HFParam

	// HardForkRule3Params gates rule3: the value is the number of
	// trailing hex characters that must match between the reward
	// address's SHA-256 digest and the block hash.
	HardForkRule3Params []HFParam

	// MinBalanceLowerLimit floors MinBalanceForMining's result.
	MinBalanceLowerLimit dcrutil.Amount

	// MinBalanceUpperLimit caps MinBalanceForMining's result.
	MinBalanceUpperLimit dcrutil.Amount

	// DifficultyPrevBlockCount is how many blocks back from the tip
	// MinBalanceForMining samples difficulty from.
	DifficultyPrevBlockCount int64
}

// LookupParam scans params from the highest activation height downward and
// returns the param value of the first entry whose ActivationHeight is
// strictly less than height. It returns (false, 0) if no entry applies,
// meaning the rule is not yet active at this height.
//
// Note the strict inequality: at height == ActivationHeight the rule is
// not yet active. This matches the reference implementation exactly,
// including that corner case.
func LookupParam(height int64, params []HFParam) (bool, int64) {
	for i := len(params) - 1; i >= 0; i-- {
		if params[i].ActivationHeight < height {
			return true, params[i].Param
		}
	}
	return false, 0
}
