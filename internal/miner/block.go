// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrutil/v3"
	"github.com/decred/dcrd/txscript/v3"
	"github.com/decred/dcrd/wire"
)

// templateBlock adapts a *wire.MsgBlock to the lynxrules.Block interface so
// a mined candidate can be run through rule3 without lynxrules importing
// wire itself.
type templateBlock struct {
	msg    *wire.MsgBlock
	params *chaincfg.Params
}

// CoinbaseDestinations implements lynxrules.Block by extracting the
// payment addresses from the coinbase transaction's first output script.
func (b templateBlock) CoinbaseDestinations() ([]dcrutil.Address, error) {
	if len(b.msg.Transactions) == 0 || len(b.msg.Transactions[0].TxOut) == 0 {
		return nil, nil
	}
	out := b.msg.Transactions[0].TxOut[0]
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(out.Version, out.PkScript, b.params, false)
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// Hash implements lynxrules.Block.
func (b templateBlock) Hash() chainhash.Hash {
	return b.msg.BlockHash()
}
