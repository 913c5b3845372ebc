// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/coinframe/btcproto/wire"
)

// RawTxInSignature returns the serialized ECDSA signature for the input idx of
// the given transaction, with hashType appended to it.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcSignatureHash(subScript, hashType, tx, idx)
	if err != nil {
		return nil, fmt.Errorf("cannot compute signature hash: %w", err)
	}
	signature := ecdsa.Sign(key, hash)

	return append(signature.Serialize(), byte(hashType)), nil
}

// SignatureScript creates an input signature script for tx to spend BTC sent
// from a previous output to the owner of privKey. tx must include all
// transaction inputs and outputs, however txin scripts are allowed to be filled
// or empty. The returned script is calculated to be used as the idx'th txin
// sigscript for tx. subscript is the PkScript of the previous output being used
// as the idx'th input. privKey is serialized in either a compressed or
// uncompressed format based on compress. This format must match the same format
// used to generate the payment address, or the script validation will fail.
func SignatureScript(tx *wire.MsgTx, idx int, subscript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey, compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return NewScriptBuilder().AddData(sig).AddData(pkData).Script()
}

// MultiSigSignatureScript signs the multisig script with every passed key, in
// the order given, and returns a signature script that satisfies it, including
// the leading dummy element consumed by OP_CHECKMULTISIG.  When redeemScript is
// true the multisig script is appended as the final push for a
// pay-to-script-hash spend.
func MultiSigSignatureScript(tx *wire.MsgTx, idx int, multiSigScript []byte,
	hashType SigHashType, keys []*btcec.PrivateKey, redeemScript bool) ([]byte, error) {

	builder := NewScriptBuilder().AddOp(OP_0)
	for _, key := range keys {
		sig, err := RawTxInSignature(tx, idx, multiSigScript, hashType, key)
		if err != nil {
			return nil, err
		}
		builder.AddData(sig)
	}
	if redeemScript {
		builder.AddData(multiSigScript)
	}

	return builder.Script()
}
