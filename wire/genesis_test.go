// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/hex"
	"time"

	"github.com/coinframe/btcproto/chainhash"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  This is only provided for the hard-coded constants so errors in
// the source code can be detected.  It will only (and must only) be called for
// initialization purposes.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// genesisCoinbaseTx is the coinbase transaction of the main network genesis
// block.
var genesisCoinbaseTx = MsgTx{
	Version: 1,
	TxIn: []*TxIn{
		{
			PreviousOutPoint: OutPoint{
				Hash:  chainhash.Hash{},
				Index: 0xffffffff,
			},
			SignatureScript: hexToBytes("04ffff001d0104455468652054696d" +
				"65732030332f4a616e2f32303039204368616e63656c6c" +
				"6f72206f6e206272696e6b206f66207365636f6e642062" +
				"61696c6f757420666f722062616e6b73"),
			Sequence: 0xffffffff,
		},
	},
	TxOut: []*TxOut{
		{
			Value: 0x12a05f200,
			PkScript: hexToBytes("4104678afdb0fe5548271967f1a67130b7105" +
				"cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4" +
				"f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac"),
		},
	},
	LockTime: 0,
}

// genesisBlock is the main network genesis block.
var genesisBlock = MsgBlock{
	Header: BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: mainNetGenesisMerkleRoot,
		Timestamp:  time.Unix(0x495fab29, 0), // 2009-01-03 18:15:05 +0000 UTC
		Bits:       0x1d00ffff,
		Nonce:      0x7c2bac1d,
	},
	Transactions: []*MsgTx{&genesisCoinbaseTx},
}
