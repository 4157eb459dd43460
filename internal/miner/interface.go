// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/wire"

	"github.com/lynxcoins/Lynx/internal/addressselector"
	"github.com/lynxcoins/Lynx/internal/lynxrules"
)

// BlockIndex is the chain-position view the miner and its collaborators
// need.
type BlockIndex = lynxrules.BlockIndex

// ChainView is the chain access the miner needs: everything the address
// selector requires, plus initial-block-download status used to gate
// mining until the chain has caught up.
type ChainView interface {
	addressselector.ChainView

	// IsInitialBlockDownload reports whether the chain believes it is
	// still catching up to the network, in which case mining is
	// pointless: any solved block would almost certainly be orphaned.
	IsInitialBlockDownload() bool

	// IncrementExtraNonce atomically bumps and returns the chain's
	// extranonce counter under the same lock that guards Tip, so a
	// worker fetching a new template at an unchanged height still gets a
	// coinbase scriptSig distinct from every other template drawn at
	// that height.
	IncrementExtraNonce() (uint64, error)
}

// BlockTemplateSource supplies new block templates for the miner to solve.
type BlockTemplateSource interface {
	// NewBlockTemplate returns a new candidate block extending the
	// current chain tip, paying its coinbase reward to payToScript and
	// carrying extraNonce encoded into the coinbase scriptSig. A nil
	// block with a nil error means no template is available yet (e.g.
	// mempool warming up) and the caller should retry.
	NewBlockTemplate(payToScript []byte, extraNonce uint64) (*wire.MsgBlock, error)
}

// PowOracle validates a solved block header's proof of work against the
// difficulty target encoded in its own Bits field.
type PowOracle interface {
	// Check reports whether header's hash satisfies its own target.
	Check(header *wire.BlockHeader) (bool, error)
}

// BlockSink accepts a solved block for validation and relay.
type BlockSink interface {
	// Accept submits block through the same validation path used for a
	// block received from the network. A non-nil error means the block
	// was rejected.
	Accept(block *wire.MsgBlock) error
}

// Wallet optionally supplies reward scripts from a wallet's key pool
// instead of the configured candidate address list.
type Wallet = addressselector.Wallet

// Deps bundles the miner's external collaborators. Every collaborator
// field is an interface, none implemented by this package; NetParams and
// RuleParams carry the network and consensus-rule parameters.
type Deps struct {
	Chain      ChainView
	Templates  BlockTemplateSource
	Pow        PowOracle
	Sink       BlockSink
	Wallet     Wallet
	NetParams  *chaincfg.Params
	RuleParams *lynxrules.Params
}
