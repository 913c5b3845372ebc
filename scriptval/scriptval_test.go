// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scriptval

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/coinframe/btcproto/chainhash"
	"github.com/coinframe/btcproto/txscript"
	"github.com/coinframe/btcproto/wire"
	"github.com/stretchr/testify/require"
)

// testKey deterministically derives a private key from the passed seed.
func testKey(seed byte) *btcec.PrivateKey {
	var b [32]byte
	b[0] = 0x01
	b[31] = seed
	key, _ := btcec.PrivKeyFromBytes(b[:])
	return key
}

// fundingTx returns a coinbase-like transaction paying to each of the passed
// public key scripts.
func fundingTx(pkScripts ...[]byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	prevOut := wire.NewOutPoint(&chainhash.Hash{}, ^uint32(0))
	tx.AddTxIn(wire.NewTxIn(prevOut, []byte{txscript.OP_0, txscript.OP_0}, nil))
	for _, pkScript := range pkScripts {
		tx.AddTxOut(wire.NewTxOut(50000, pkScript))
	}
	return tx
}

// p2pkhSpend returns a transaction spending every output of the passed
// funding transaction, signed by the passed key.
func p2pkhSpend(t *testing.T, funding *wire.MsgTx, key *btcec.PrivateKey) *wire.MsgTx {
	t.Helper()

	fundingHash := funding.TxHash()
	tx := wire.NewMsgTx(wire.TxVersion)
	for i := range funding.TxOut {
		prevOut := wire.NewOutPoint(&fundingHash, uint32(i))
		tx.AddTxIn(wire.NewTxIn(prevOut, nil, nil))
	}
	tx.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_TRUE}))

	for i, txOut := range funding.TxOut {
		sigScript, err := txscript.SignatureScript(tx, i, txOut.PkScript,
			txscript.SigHashAll, key, true)
		require.NoError(t, err)
		tx.TxIn[i].SignatureScript = sigScript
	}
	return tx
}

// p2pkhScript returns a pay-to-pubkey-hash script for the passed key.
func p2pkhScript(t *testing.T, key *btcec.PrivateKey) []byte {
	t.Helper()

	pkScript, err := txscript.PayToPubKeyHashScript(
		key.PubKey().SerializeCompressed())
	require.NoError(t, err)
	return pkScript
}

// TestValidateTransactionScripts ensures signed inputs validate and that the
// different failure modes are reported with the expected error codes.
func TestValidateTransactionScripts(t *testing.T) {
	t.Parallel()

	key := testKey(1)
	pkScript := p2pkhScript(t, key)
	funding := fundingTx(pkScript, pkScript, pkScript)
	spend := p2pkhSpend(t, funding, key)

	fetcher := NewMultiPrevOutFetcher(nil)
	fetcher.AddTxOuts(funding)

	flags := txscript.StandardVerifyFlags
	sigCache := txscript.NewSigCache(100)
	require.NoError(t, ValidateTransactionScripts(spend, fetcher, flags,
		sigCache))

	// A second run hits the signature cache and still succeeds.
	require.NoError(t, ValidateTransactionScripts(spend, fetcher, flags,
		sigCache))

	// A nil signature cache is allowed.
	require.NoError(t, ValidateTransactionScripts(spend, fetcher, flags, nil))

	// Missing previous output.
	err := ValidateTransactionScripts(spend, NewMultiPrevOutFetcher(nil),
		flags, nil)
	require.True(t, IsErrorCode(err, ErrMissingTxOut), "got %v", err)
	var rerr RuleError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, wire.ErrSemanticFailure, rerr.Kind())

	// Signed by the wrong key.
	wrongKey := p2pkhSpend(t, funding, testKey(2))
	err = ValidateTransactionScripts(wrongKey, fetcher, flags, nil)
	require.True(t, IsErrorCode(err, ErrScriptValidation), "got %v", err)

	// Tampering with an output after signing invalidates the signatures.
	tampered := p2pkhSpend(t, funding, key)
	tampered.TxOut[0].Value = 999
	err = ValidateTransactionScripts(tampered, fetcher, flags, nil)
	require.True(t, IsErrorCode(err, ErrScriptValidation), "got %v", err)
	require.True(t, errors.As(err, &rerr))
	require.Error(t, rerr.Unwrap())
}

// TestValidateMalformedScript ensures a script that can't be used to create
// an engine is reported as malformed.
func TestValidateMalformedScript(t *testing.T) {
	t.Parallel()

	pkScript := []byte{txscript.OP_TRUE}
	funding := fundingTx(pkScript)
	fundingHash := funding.TxHash()

	tx := wire.NewMsgTx(wire.TxVersion)
	prevOut := wire.NewOutPoint(&fundingHash, 0)
	// The signature script must be push only so this fails up front.
	tx.AddTxIn(wire.NewTxIn(prevOut, []byte{txscript.OP_NOP}, nil))
	tx.AddTxOut(wire.NewTxOut(0, nil))

	fetcher := NewCannedPrevOutputFetcher(pkScript, 50000)
	err := ValidateTransactionScripts(tx, fetcher,
		txscript.StandardVerifyFlags, nil)
	require.True(t, IsErrorCode(err, ErrScriptMalformed), "got %v", err)
}

// TestValidateCoinbase ensures coinbase transactions have nothing to validate.
func TestValidateCoinbase(t *testing.T) {
	t.Parallel()

	coinbase := fundingTx([]byte{txscript.OP_TRUE})
	err := ValidateTransactionScripts(coinbase, NewMultiPrevOutFetcher(nil),
		txscript.StandardVerifyFlags, nil)
	require.NoError(t, err)
}

// TestValidateBlockScripts ensures every input of every transaction in a block
// is checked, including spends of outputs created earlier in the same block.
func TestValidateBlockScripts(t *testing.T) {
	t.Parallel()

	key := testKey(3)
	pkScript := p2pkhScript(t, key)

	// Enough inputs to exercise several validation goroutines.
	scripts := make([][]byte, 0, 40)
	for i := 0; i < 40; i++ {
		scripts = append(scripts, pkScript)
	}
	coinbase := fundingTx(scripts...)
	spend := p2pkhSpend(t, coinbase, key)

	header := wire.NewBlockHeader(1, &chainhash.Hash{}, &chainhash.Hash{},
		0x207fffff, 0)
	block := wire.NewMsgBlock(header)
	require.NoError(t, block.AddTransaction(coinbase))
	require.NoError(t, block.AddTransaction(spend))

	fetcher := NewMultiPrevOutFetcher(nil)
	for _, tx := range block.Transactions {
		fetcher.AddTxOuts(tx)
	}

	flags := txscript.StandardVerifyFlags
	require.NoError(t, ValidateBlockScripts(block, fetcher, flags,
		txscript.NewSigCache(100)))

	// Break a single input in the middle of the block.
	spend.TxIn[17].SignatureScript = []byte{txscript.OP_0}
	err := ValidateBlockScripts(block, fetcher, flags, nil)
	require.Error(t, err)
	require.True(t, IsErrorCode(err, ErrScriptValidation), "got %v", err)
}

// TestPrevOutFetchers ensures the in-memory fetchers behave as expected.
func TestPrevOutFetchers(t *testing.T) {
	t.Parallel()

	canned := NewCannedPrevOutputFetcher([]byte{txscript.OP_TRUE}, 7)
	txOut := canned.FetchPrevOutput(wire.OutPoint{Index: 99})
	require.Equal(t, int64(7), txOut.Value)
	require.Equal(t, []byte{txscript.OP_TRUE}, txOut.PkScript)

	op1 := wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0}
	op2 := wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 1}
	a := NewMultiPrevOutFetcher(nil)
	a.AddPrevOut(op1, wire.NewTxOut(1, nil))
	b := NewMultiPrevOutFetcher(map[wire.OutPoint]*wire.TxOut{
		op2: wire.NewTxOut(2, nil),
	})
	require.Nil(t, a.FetchPrevOutput(op2))

	a.Merge(b)
	require.Equal(t, int64(1), a.FetchPrevOutput(op1).Value)
	require.Equal(t, int64(2), a.FetchPrevOutput(op2).Value)
}

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrMissingTxOut, "ErrMissingTxOut"},
		{ErrScriptMalformed, "ErrScriptMalformed"},
		{ErrScriptValidation, "ErrScriptValidation"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	for _, test := range tests {
		require.Equal(t, test.want, test.in.String())
	}
}
