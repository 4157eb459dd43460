// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addressselector

import "github.com/lynxcoins/Lynx/internal/lynxrules"

// BlockIndex is the chain-position view the selector needs, identical to
// the one lynxrules evaluates its rules against.
type BlockIndex = lynxrules.BlockIndex

// ChainView is the chain access the selector needs: everything lynxrules
// requires plus the ability to resolve the current tip.
type ChainView interface {
	lynxrules.ChainView

	// Tip returns the index of the current best block, or nil if the
	// chain has no blocks yet.
	Tip() BlockIndex
}

// Wallet is the minimal wallet surface the selector calls into when a
// wallet is attached, instead of resolving a reward address from the
// configured candidate list.
type Wallet interface {
	// GetScriptForMining reserves and returns a fresh output script from
	// the wallet's key pool. It returns an error if the pool is
	// exhausted or the wallet is otherwise unable to service the
	// request.
	GetScriptForMining() (*ReserveScript, error)
}
