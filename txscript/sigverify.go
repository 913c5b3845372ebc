// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/coinframe/btcproto/chainhash"
)

// sigVerifier verifies a single ECDSA signature for the input currently being
// executed by the engine.  The signature and public key have already passed
// the encoding checks demanded by the engine flags.
type sigVerifier struct {
	vm *Engine

	pubKey *btcec.PublicKey
	sig    *ecdsa.Signature

	hashType SigHashType
}

// parseSigAndPubKey attempts to parse a signature and public key.
//
// When the strict encoding flags are set, any errors in the signature or public
// key encoding result in an immediate script error which is returned as an
// Error.  Any other parse failure is returned as a plain error and must be
// treated as a failed signature check, since the consensus rules without those
// flags do not have the strict encoding requirements.
func parseSigAndPubKey(pkBytes, fullSigBytes []byte,
	vm *Engine) (*btcec.PublicKey, *ecdsa.Signature, SigHashType, error) {

	hashType := SigHashType(fullSigBytes[len(fullSigBytes)-1])
	sigBytes := fullSigBytes[:len(fullSigBytes)-1]
	if err := vm.checkHashTypeEncoding(hashType); err != nil {
		return nil, nil, 0, err
	}
	if err := vm.checkSignatureEncoding(sigBytes); err != nil {
		return nil, nil, 0, err
	}
	if err := vm.checkPubKeyEncoding(pkBytes); err != nil {
		return nil, nil, 0, err
	}

	pubKey, err := btcec.ParsePubKey(pkBytes)
	if err != nil {
		return nil, nil, 0, err
	}

	sig, err := parseSig(sigBytes, vm)
	if err != nil {
		return nil, nil, 0, err
	}

	return pubKey, sig, hashType, nil
}

// parseSig parses a signature with the hash type already stripped, as DER when
// any strict encoding flag is set and leniently otherwise.
func parseSig(sigBytes []byte, vm *Engine) (*ecdsa.Signature, error) {
	if vm.hasFlag(ScriptVerifyStrictEncoding) ||
		vm.hasFlag(ScriptVerifyDERSignatures) {

		return ecdsa.ParseDERSignature(sigBytes)
	}
	return ecdsa.ParseSignature(sigBytes)
}

// verify checks the signature against the passed signature hash, consulting
// and filling the engine signature cache when one is configured.
func (v *sigVerifier) verify(sigHash []byte) bool {
	if v.vm.sigCache == nil {
		return v.sig.Verify(sigHash, v.pubKey)
	}

	var hash chainhash.Hash
	copy(hash[:], sigHash)
	if v.vm.sigCache.Exists(hash, v.sig, v.pubKey) {
		return true
	}
	if !v.sig.Verify(sigHash, v.pubKey) {
		return false
	}
	v.vm.sigCache.Add(hash, v.sig, v.pubKey)
	return true
}

// isScriptError returns whether err is a script Error as opposed to a plain
// parse failure.
func isScriptError(err error) bool {
	_, ok := err.(Error)
	return ok
}

// verifySig checks a signature, with its trailing hash type byte, against the
// public key for the input the engine is bound to.  The signature commits to
// script with the signature itself removed.
//
// A false result with a nil error is a failed check.  Encoding violations
// demanded by the engine flags are returned as script errors.
func (vm *Engine) verifySig(fullSigBytes, pkBytes, script []byte) (bool, error) {
	// The signature actually needs needs to be longer than this, but at
	// least 1 byte is needed for the hash type below.  The full length is
	// checked depending on the script flags and upon parsing the signature.
	if len(fullSigBytes) < 1 {
		return false, nil
	}

	pubKey, sig, hashType, err := parseSigAndPubKey(pkBytes, fullSigBytes, vm)
	if err != nil {
		if isScriptError(err) {
			return false, err
		}
		return false, nil
	}

	// Remove the signature since there is no way for a signature to sign
	// itself.
	subScript := removeOpcodeByData(script, fullSigBytes)
	sigHash, err := calcSignatureHash(subScript, hashType, &vm.tx, vm.txIdx)
	if err != nil {
		return false, err
	}

	verifier := sigVerifier{vm: vm, pubKey: pubKey, sig: sig, hashType: hashType}
	return verifier.verify(sigHash), nil
}

// opcodeCheckSig treats the top 2 items on the stack as a public key and a
// signature and replaces them with a bool which indicates if the signature was
// successfully verified.
//
// The process of verifying a signature requires calculating a signature hash
// in the same way the transaction signer did.  It involves hashing portions of
// the transaction based on the hash type byte (which is the final byte of the
// signature) and the portion of the script starting from the most recent
// OP_CODESEPARATOR (or the beginning of the script if there are none) to the
// end of the script (with any other OP_CODESEPARATORs removed).  Once this
// "script hash" is calculated, the signature is checked using standard
// cryptographic methods against the provided public key.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, data []byte, vm *Engine) error {
	pkBytes, err := vm.stk.Pop()
	if err != nil {
		return err
	}

	fullSigBytes, err := vm.stk.Pop()
	if err != nil {
		return err
	}

	valid, err := vm.verifySig(fullSigBytes, pkBytes, vm.subScript())
	if err != nil {
		return err
	}
	return vm.checkSigResult(valid, fullSigBytes)
}

// checkSigResult pushes the outcome of a single signature check, enforcing
// that failed checks used an empty signature when the null fail flag is set.
func (vm *Engine) checkSigResult(valid bool, fullSigBytes []byte) error {
	if !valid && vm.hasFlag(ScriptVerifyNullFail) && len(fullSigBytes) > 0 {
		str := "signature not empty on failed checksig"
		return scriptError(ErrNullFail, str)
	}
	return vm.stk.PushBool(valid)
}

// opcodeCheckSigVerify is a combination of opcodeCheckSig and opcodeVerify.
// The opcodeCheckSig function is invoked followed by opcodeVerify.  See the
// documentation for each of those opcodes for more details.
//
// Stack transformation: [... signature pubkey] -> [... bool] -> [...]
func opcodeCheckSigVerify(op *opcode, data []byte, vm *Engine) error {
	err := opcodeCheckSig(op, data, vm)
	if err == nil {
		err = abstractVerify(op, vm, ErrCheckSigVerify)
	}
	return err
}

// parsedSigInfo houses a raw signature along with its parsed form and a flag
// for whether or not it has already been parsed.  It is used to prevent parsing
// the same signature multiple times when verifying a multisig.
type parsedSigInfo struct {
	signature       []byte
	parsedSignature *ecdsa.Signature
	parsed          bool
}

// checkMultiSigDummy enforces the empty dummy element rule when the strict
// multisig flag is set.
func (vm *Engine) checkMultiSigDummy(dummy []byte) error {
	// Since the dummy argument is otherwise not checked, it could be any
	// value which unfortunately provides a source of malleability.  Thus,
	// there is a script flag to force an error when the value is NOT 0.
	if vm.hasFlag(ScriptStrictMultiSig) && len(dummy) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy))
		return scriptError(ErrSigNullDummy, str)
	}
	return nil
}

// verifyMultiSig checks signatures against public keys for the input the
// engine is bound to, both ordered from the top of the stack.  Each signature must
// match a public key later in the list than the one matched by the previous
// signature.  Every signature is removed from script before hashing and each
// signature hash is computed at most once per hash type.
//
// A false result with a nil error is a failed check.  Encoding violations
// demanded by the engine flags are returned as script errors.
func (vm *Engine) verifyMultiSig(sigs, pubKeys [][]byte, script []byte) (bool, error) {
	signatures := make([]*parsedSigInfo, 0, len(sigs))
	for _, sig := range sigs {
		signatures = append(signatures, &parsedSigInfo{signature: sig})
	}
	numSignatures := len(signatures)
	numPubKeys := len(pubKeys)

	// Remove every signature from the script since there is no way for a
	// signature to sign itself.
	for _, sigInfo := range signatures {
		script = removeOpcodeByData(script, sigInfo.signature)
	}

	// Signature hashes only depend on the hash type once the script is
	// fixed, so compute each one at most once.
	sigHashes := make(map[SigHashType][]byte)

	success := true
	numPubKeys++
	pubKeyIdx := -1
	signatureIdx := 0
	for numSignatures > 0 {
		// When there are more signatures than public keys remaining,
		// there is no way to succeed since too many signatures are
		// invalid, so exit early.
		pubKeyIdx++
		numPubKeys--
		if numSignatures > numPubKeys {
			success = false
			break
		}

		sigInfo := signatures[signatureIdx]
		pubKey := pubKeys[pubKeyIdx]

		// The order of the signature and public key evaluation is
		// important here since it can be distinguished by an
		// OP_CHECKMULTISIG NOT when the strict encoding flag is set.

		rawSig := sigInfo.signature
		if len(rawSig) == 0 {
			// Skip to the next pubkey if signature is empty.
			continue
		}

		// Split the signature into hash type and signature components.
		hashType := SigHashType(rawSig[len(rawSig)-1])
		signature := rawSig[:len(rawSig)-1]

		// Only parse and check the signature encoding once.
		var parsedSig *ecdsa.Signature
		if !sigInfo.parsed {
			if err := vm.checkHashTypeEncoding(hashType); err != nil {
				return false, err
			}
			if err := vm.checkSignatureEncoding(signature); err != nil {
				return false, err
			}

			var err error
			parsedSig, err = parseSig(signature, vm)
			sigInfo.parsed = true
			if err != nil {
				continue
			}
			sigInfo.parsedSignature = parsedSig
		} else {
			// Skip to the next pubkey if the signature is invalid.
			if sigInfo.parsedSignature == nil {
				continue
			}

			// Use the already parsed signature.
			parsedSig = sigInfo.parsedSignature
		}

		if err := vm.checkPubKeyEncoding(pubKey); err != nil {
			return false, err
		}

		parsedPubKey, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			continue
		}

		hash, ok := sigHashes[hashType]
		if !ok {
			hash, err = calcSignatureHash(script, hashType, &vm.tx, vm.txIdx)
			if err != nil {
				return false, err
			}
			sigHashes[hashType] = hash
		}

		verifier := sigVerifier{
			vm:       vm,
			pubKey:   parsedPubKey,
			sig:      parsedSig,
			hashType: hashType,
		}
		if verifier.verify(hash) {
			// PubKey verified, move on to the next signature.
			signatureIdx++
			numSignatures--
		}
	}

	return success, nil
}

// opcodeCheckMultiSig treats the top item on the stack as an integer number of
// public keys, followed by that many entries as raw data representing the public
// keys, followed by the integer number of signatures, followed by that many
// entries as raw data representing the signatures.
//
// Due to a bug in the original Satoshi client implementation, an additional
// dummy argument is also required by the consensus rules, although it is not
// used.  The dummy value SHOULD be an OP_0, although that is not required by
// the consensus rules.  When the ScriptStrictMultiSig flag is set, it must be
// OP_0.
//
// All of the aforementioned stack items are replaced with a bool which
// indicates if the requisite number of signatures were successfully verified.
//
// See the opcodeCheckSigVerify documentation for more details about the process
// for verifying each signature.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool]
func opcodeCheckMultiSig(op *opcode, data []byte, vm *Engine) error {
	numKeys, err := vm.stk.PopInt()
	if err != nil {
		return err
	}

	numPubKeys := int(numKeys.Int32())
	if numPubKeys < 0 {
		str := fmt.Sprintf("number of pubkeys %d is negative",
			numPubKeys)
		return scriptError(ErrInvalidPubKeyCount, str)
	}
	if numPubKeys > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("too many pubkeys: %d > %d",
			numPubKeys, MaxPubKeysPerMultiSig)
		return scriptError(ErrInvalidPubKeyCount, str)
	}
	vm.numOps += numPubKeys
	if vm.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return scriptError(ErrTooManyOperations, str)
	}

	pubKeys := make([][]byte, 0, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		pubKey, err := vm.stk.Pop()
		if err != nil {
			return err
		}
		pubKeys = append(pubKeys, pubKey)
	}

	numSigs, err := vm.stk.PopInt()
	if err != nil {
		return err
	}
	numSignatures := int(numSigs.Int32())
	if numSignatures < 0 {
		str := fmt.Sprintf("number of signatures %d is negative",
			numSignatures)
		return scriptError(ErrInvalidSignatureCount, str)
	}
	if numSignatures > numPubKeys {
		str := fmt.Sprintf("more signatures than pubkeys: %d > %d",
			numSignatures, numPubKeys)
		return scriptError(ErrInvalidSignatureCount, str)
	}

	signatures := make([][]byte, 0, numSignatures)
	for i := 0; i < numSignatures; i++ {
		signature, err := vm.stk.Pop()
		if err != nil {
			return err
		}
		signatures = append(signatures, signature)
	}

	// A bug in the original Satoshi client implementation means one more
	// stack value than should be used must be popped.  Unfortunately, this
	// buggy behavior is now part of the consensus and a hard fork would be
	// required to fix it.
	dummy, err := vm.stk.Pop()
	if err != nil {
		return err
	}
	if err := vm.checkMultiSigDummy(dummy); err != nil {
		return err
	}

	success, err := vm.verifyMultiSig(signatures, pubKeys, vm.subScript())
	if err != nil {
		return err
	}

	if !success && vm.hasFlag(ScriptVerifyNullFail) {
		for _, sig := range signatures {
			if len(sig) > 0 {
				str := "not all signatures empty on failed checkmultisig"
				return scriptError(ErrNullFail, str)
			}
		}
	}

	return vm.stk.PushBool(success)
}

// opcodeCheckMultiSigVerify is a combination of opcodeCheckMultiSig and
// opcodeVerify.  The opcodeCheckMultiSig is invoked followed by opcodeVerify.
// See the documentation for each of those opcodes for more details.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool] -> [...]
func opcodeCheckMultiSigVerify(op *opcode, data []byte, vm *Engine) error {
	err := opcodeCheckMultiSig(op, data, vm)
	if err == nil {
		err = abstractVerify(op, vm, ErrCheckMultiSigVerify)
	}
	return err
}
