// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lynxrules

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v3"
)

// BlockIndex is the minimal view of a block's position in the chain that
// the rule checks need: its height and a way to walk back toward genesis.
// A concrete chain implementation's block-index type satisfies this
// interface without any adaptation.
type BlockIndex interface {
	// Height returns the block's height.
	Height() int64

	// Prev returns the index of the parent block, or nil at genesis.
	Prev() BlockIndex
}

// Block is the minimal view of a block that the rule checks need: the
// destinations its coinbase transaction pays out to, and its own hash.
type Block interface {
	// CoinbaseDestinations returns the payout addresses of the block's
	// coinbase transaction (transaction index 0).
	CoinbaseDestinations() ([]dcrutil.Address, error)

	// Hash returns the block's hash.
	Hash() chainhash.Hash
}

// ChainView is the subset of chain access the rule checks need: reading
// historical blocks, querying an address's confirmed balance, and
// resolving the difficulty some number of blocks back from a given tip.
type ChainView interface {
	// ReadBlock returns the full block at the given index.
	ReadBlock(index BlockIndex) (Block, error)

	// AddressBalance returns the confirmed balance of addr.
	AddressBalance(addr dcrutil.Address) (dcrutil.Amount, error)

	// DifficultyAt returns the difficulty of the block nBack blocks
	// behind tip, inclusive of tip when nBack is 0.
	DifficultyAt(tip BlockIndex, nBack int64) (float64, error)
}
