// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/coinframe/btcproto/chainhash"
	"github.com/coinframe/btcproto/wire"
)

// repeatOp returns the short form of the passed opcode repeated n times.
func repeatOp(op string, n int) string {
	return strings.TrimSpace(strings.Repeat(op+" ", n))
}

// TestExecuteScripts runs a series of script pairs through the engine and
// checks the outcome.
func TestExecuteScripts(t *testing.T) {
	t.Parallel()

	const strict = ScriptBip16 | ScriptStrictMultiSig |
		ScriptVerifyStrictEncoding | ScriptVerifyDERSignatures

	tests := []struct {
		name      string
		sigScript string
		pkScript  string
		flags     ScriptFlags
		errCode   ErrorCode
		ok        bool
	}{{
		name:     "single true",
		pkScript: "1",
		ok:       true,
	}, {
		name:     "arithmetic",
		pkScript: "2 3 ADD 5 EQUAL",
		ok:       true,
	}, {
		name:     "within",
		pkScript: "5 0 10 WITHIN",
		ok:       true,
	}, {
		name:     "negative zero is false",
		pkScript: "0x02 0x0080",
		errCode:  ErrEvalFalse,
	}, {
		name:      "if else",
		sigScript: "0",
		pkScript:  "IF 2 ELSE 3 ENDIF 3 EQUAL",
		ok:        true,
	}, {
		name:     "nested notif",
		pkScript: "1 NOTIF 0 ELSE 1 IF 1 ENDIF ENDIF",
		ok:       true,
	}, {
		name:     "sha256 of empty",
		pkScript: "'' SHA256 0x20 0xe3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855 EQUAL",
		ok:       true,
	}, {
		name:     "hash160 size",
		pkScript: "'abc' HASH160 SIZE 20 EQUALVERIFY DROP 1",
		ok:       true,
	}, {
		name:     "alt stack round trip",
		pkScript: "7 TOALTSTACK 1 FROMALTSTACK 7 EQUALVERIFY",
		ok:       true,
	}, {
		name:     "empty stack",
		pkScript: "1 DROP",
		errCode:  ErrEmptyStack,
	}, {
		name:     "false result",
		pkScript: "0",
		errCode:  ErrEvalFalse,
	}, {
		name:     "both scripts empty",
		errCode:  ErrEvalFalse,
		pkScript: "",
	}, {
		name:     "verify failure",
		pkScript: "0 VERIFY 1",
		errCode:  ErrVerify,
	}, {
		name:     "equalverify failure",
		pkScript: "1 2 EQUALVERIFY 1",
		errCode:  ErrEqualVerify,
	}, {
		name:     "early return",
		pkScript: "1 RETURN",
		errCode:  ErrEarlyReturn,
	}, {
		name:     "disabled opcode in unexecuted branch",
		pkScript: "0 IF CAT ENDIF 1",
		errCode:  ErrDisabledOpcode,
	}, {
		name:     "verif in unexecuted branch",
		pkScript: "0 IF VERIF ENDIF 1",
		errCode:  ErrReservedOpcode,
	}, {
		name:     "reserved opcode skipped in unexecuted branch",
		pkScript: "0 IF RESERVED ENDIF 1",
		ok:       true,
	}, {
		name:     "reserved opcode executed",
		pkScript: "1 RESERVED",
		errCode:  ErrReservedOpcode,
	}, {
		name:     "unknown opcode executed",
		pkScript: "1 0xba",
		errCode:  ErrReservedOpcode,
	}, {
		name:     "unbalanced if",
		pkScript: "1 IF 1",
		errCode:  ErrUnbalancedConditional,
	}, {
		name:     "else without if",
		pkScript: "ELSE 1",
		errCode:  ErrUnbalancedConditional,
	}, {
		name:      "conditional straddling scripts",
		sigScript: "1 IF",
		pkScript:  "1 ENDIF",
		errCode:   ErrUnbalancedConditional,
	}, {
		name:     "malformed push",
		pkScript: "0x4c",
		errCode:  ErrMalformedPush,
	}, {
		name:     "max operations",
		pkScript: repeatOp("NOP", MaxOpsPerScript) + " 1",
		ok:       true,
	}, {
		name:     "too many operations",
		pkScript: repeatOp("NOP", MaxOpsPerScript+1) + " 1",
		errCode:  ErrTooManyOperations,
	}, {
		name:     "max stack",
		pkScript: repeatOp("1", MaxStackSize),
		ok:       true,
	}, {
		name:     "stack overflow",
		pkScript: repeatOp("1", MaxStackSize+1),
		errCode:  ErrStackOverflow,
	}, {
		name:     "element too big in unexecuted branch",
		pkScript: "0 IF 0x4d 0x0902 0x" + strings.Repeat("00", 521) + " ENDIF 1",
		errCode:  ErrElementTooBig,
	}, {
		name:     "discouraged nop",
		pkScript: "NOP1 1",
		flags:    ScriptDiscourageUpgradableNops,
		errCode:  ErrDiscourageUpgradableNOPs,
	}, {
		name:     "minimal data",
		pkScript: "0x01 0x05 DROP 1",
		flags:    ScriptVerifyMinimalData,
		errCode:  ErrMinimalData,
	}, {
		name:     "non-minimal data allowed without flag",
		pkScript: "0x01 0x05 DROP 1",
		ok:       true,
	}, {
		name:     "clean stack",
		pkScript: "1 1",
		flags:    ScriptBip16 | ScriptVerifyCleanStack,
		errCode:  ErrCleanStack,
	}, {
		name:     "clean stack without p2sh",
		pkScript: "1",
		flags:    ScriptVerifyCleanStack,
		errCode:  ErrInvalidFlags,
	}, {
		name:      "signature script not push only",
		sigScript: "1 DUP",
		pkScript:  "DROP",
		flags:     ScriptVerifySigPushOnly,
		errCode:   ErrNotPushOnly,
	}, {
		name:     "negative lock time",
		pkScript: "-1 CHECKLOCKTIMEVERIFY",
		flags:    ScriptVerifyCheckLockTimeVerify,
		errCode:  ErrNegativeLockTime,
	}, {
		name:      "empty multisig",
		sigScript: "0",
		pkScript:  "0 0 CHECKMULTISIG",
		flags:     strict,
		ok:        true,
	}, {
		name:      "multisig dummy not null",
		sigScript: "1",
		pkScript:  "0 0 CHECKMULTISIG",
		flags:     strict,
		errCode:   ErrSigNullDummy,
	}, {
		name:      "multisig too many pubkeys",
		sigScript: "0",
		pkScript:  "0 21 CHECKMULTISIG",
		errCode:   ErrInvalidPubKeyCount,
	}, {
		name:      "multisig more sigs than keys",
		sigScript: "0",
		pkScript:  "1 0 CHECKMULTISIG",
		errCode:   ErrInvalidSignatureCount,
	}, {
		name:     "empty signature is false",
		pkScript: "0 0x21 0x02" + strings.Repeat("11", 32) + " CHECKSIG NOT",
		flags:    strict,
		ok:       true,
	}, {
		name:     "short signature rejected with der flag",
		pkScript: "0x02 0x3001 0x21 0x02" + strings.Repeat("11", 32) + " CHECKSIG",
		flags:    strict,
		errCode:  ErrSigTooShort,
	}, {
		name:     "unparseable signature is false without flags",
		pkScript: "0x02 0x3001 0x21 0x02" + strings.Repeat("11", 32) + " CHECKSIG NOT",
		ok:       true,
	}}

	for _, test := range tests {
		sigScript := mustParseShortForm(t, test.sigScript)
		pkScript := mustParseShortForm(t, test.pkScript)

		err := execScripts(sigScript, pkScript, test.flags)
		if test.ok {
			require.NoErrorf(t, err, test.name)
			continue
		}
		require.Truef(t, IsErrorCode(err, test.errCode),
			"%s: got %v, want %v", test.name, err, test.errCode)
	}
}

// TestScriptTooBig ensures scripts over the size limit are rejected before
// execution.
func TestScriptTooBig(t *testing.T) {
	t.Parallel()

	pkScript := bytes.Repeat([]byte{OP_NOP}, MaxScriptSize+1)
	err := execScripts(nil, pkScript, 0)
	require.True(t, IsErrorCode(err, ErrScriptTooBig), err)
}

// TestInvalidInputIndex ensures an engine cannot be created for an input that
// does not exist.
func TestInvalidInputIndex(t *testing.T) {
	t.Parallel()

	pkScript := []byte{OP_1}
	tx := createSpendingTx(nil, pkScript)
	_, err := NewEngine(pkScript, tx, 1, 0, nil)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), err)
	_, err = NewEngine(pkScript, tx, -1, 0, nil)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), err)
}

// signedSpend returns a spending transaction for pkScript whose signature
// script is produced by sign.
func signedSpend(t *testing.T, pkScript []byte,
	sign func(tx *wire.MsgTx) ([]byte, error)) *wire.MsgTx {

	t.Helper()

	tx := createSpendingTx(nil, pkScript)
	sigScript, err := sign(tx)
	require.NoError(t, err)
	tx.TxIn[0].SignatureScript = sigScript
	return tx
}

// TestPayToPubKeyHash ensures signatures produced by SignatureScript verify
// and that altering the signed transaction breaks them.
func TestPayToPubKeyHash(t *testing.T) {
	t.Parallel()

	key := testKey(1)
	pkScript, err := PayToPubKeyHashScript(key.PubKey().SerializeCompressed())
	require.NoError(t, err)
	require.Equal(t, PubKeyHashTy, GetScriptClass(pkScript))

	tx := signedSpend(t, pkScript, func(tx *wire.MsgTx) ([]byte, error) {
		return SignatureScript(tx, 0, pkScript, SigHashAll, key, true)
	})

	vm, err := NewEngine(pkScript, tx, 0, StandardVerifyFlags, nil)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())

	// Changing an output invalidates the signature.  With the null fail
	// rule the non-empty signature is an error, without it the script
	// simply evaluates to false.
	tx.TxOut[0].Value++
	vm, err = NewEngine(pkScript, tx, 0, StandardVerifyFlags, nil)
	require.NoError(t, err)
	require.True(t, IsErrorCode(vm.Execute(), ErrNullFail))

	vm, err = NewEngine(pkScript, tx, 0, ScriptBip16|ScriptVerifyDERSignatures, nil)
	require.NoError(t, err)
	require.True(t, IsErrorCode(vm.Execute(), ErrEvalFalse))

	// A different key does not satisfy the hash commitment.
	other := testKey(2)
	tx = signedSpend(t, pkScript, func(tx *wire.MsgTx) ([]byte, error) {
		return SignatureScript(tx, 0, pkScript, SigHashAll, other, true)
	})
	vm, err = NewEngine(pkScript, tx, 0, StandardVerifyFlags, nil)
	require.NoError(t, err)
	require.True(t, IsErrorCode(vm.Execute(), ErrEqualVerify))
}

// TestPayToPubKeyHashSigCache ensures verified signatures are added to the
// signature cache and that cached entries are honored.
func TestPayToPubKeyHashSigCache(t *testing.T) {
	t.Parallel()

	key := testKey(3)
	pkScript, err := PayToPubKeyHashScript(key.PubKey().SerializeCompressed())
	require.NoError(t, err)
	tx := signedSpend(t, pkScript, func(tx *wire.MsgTx) ([]byte, error) {
		return SignatureScript(tx, 0, pkScript, SigHashAll, key, true)
	})

	pushes, err := PushedData(tx.TxIn[0].SignatureScript)
	require.NoError(t, err)
	require.Len(t, pushes, 2)
	rawSig := pushes[0]
	sig, err := ecdsa.ParseDERSignature(rawSig[:len(rawSig)-1])
	require.NoError(t, err)
	hash, err := CalcSignatureHash(pkScript, SigHashAll, tx, 0)
	require.NoError(t, err)
	var sigHash chainhash.Hash
	copy(sigHash[:], hash)

	cache := NewSigCache(10)
	require.False(t, cache.Exists(sigHash, sig, key.PubKey()))
	for i := 0; i < 2; i++ {
		vm, err := NewEngine(pkScript, tx, 0, StandardVerifyFlags, cache)
		require.NoError(t, err)
		require.NoError(t, vm.Execute())
	}
	require.True(t, cache.Exists(sigHash, sig, key.PubKey()))
}

// TestMultiSig exercises OP_CHECKMULTISIG with real keys both bare and wrapped
// in pay-to-script-hash.
func TestMultiSig(t *testing.T) {
	t.Parallel()

	keys := []*btcec.PrivateKey{testKey(10), testKey(11), testKey(12)}
	pubKeys := make([][]byte, 0, len(keys))
	for _, key := range keys {
		pubKeys = append(pubKeys, key.PubKey().SerializeCompressed())
	}

	msScript, err := MultiSigScript(pubKeys, 2)
	require.NoError(t, err)
	require.Equal(t, MultiSigTy, GetScriptClass(msScript))

	numPubKeys, numSigs, err := CalcMultiSigStats(msScript)
	require.NoError(t, err)
	require.Equal(t, 3, numPubKeys)
	require.Equal(t, 2, numSigs)

	const flags = ScriptBip16 | ScriptStrictMultiSig |
		ScriptVerifyStrictEncoding | ScriptVerifyDERSignatures

	run := func(pkScript []byte, signers []*btcec.PrivateKey, p2sh bool,
		flags ScriptFlags) error {

		redeem := msScript
		tx := signedSpend(t, pkScript, func(tx *wire.MsgTx) ([]byte, error) {
			return MultiSigSignatureScript(tx, 0, redeem, SigHashAll,
				signers, p2sh)
		})
		vm, err := NewEngine(pkScript, tx, 0, flags, nil)
		if err != nil {
			return err
		}
		return vm.Execute()
	}

	// Signatures in key order verify.
	require.NoError(t, run(msScript, keys[:2], false, flags))
	require.NoError(t, run(msScript, []*btcec.PrivateKey{keys[0], keys[2]},
		false, flags))

	// Out of order signatures do not.
	err = run(msScript, []*btcec.PrivateKey{keys[1], keys[0]}, false, flags)
	require.True(t, IsErrorCode(err, ErrEvalFalse), err)
	err = run(msScript, []*btcec.PrivateKey{keys[1], keys[0]}, false,
		flags|ScriptVerifyNullFail)
	require.True(t, IsErrorCode(err, ErrNullFail), err)

	// Pay-to-script-hash wrapping under the standard flags.
	p2sh, err := PayToScriptHashScript(msScript)
	require.NoError(t, err)
	require.Equal(t, ScriptHashTy, GetScriptClass(p2sh))
	require.NoError(t, run(p2sh, keys[1:], true, StandardVerifyFlags))

	// Without the p2sh flag only the hash commitment is checked.
	require.NoError(t, run(p2sh, keys[1:], true, ScriptStrictMultiSig))

	// A redeem script that does not hash to the commitment fails.
	other, err := PayToScriptHashScript([]byte{OP_1})
	require.NoError(t, err)
	err = run(other, keys[1:], true, StandardVerifyFlags)
	require.True(t, IsErrorCode(err, ErrEvalFalse), err)
}

// TestVerifySig ensures single and multiple signature verification bound to
// the engine transaction accepts valid signatures and reports mismatches as a
// false result rather than an error.
func TestVerifySig(t *testing.T) {
	t.Parallel()

	keys := []*btcec.PrivateKey{testKey(20), testKey(21), testKey(22)}
	pubKeys := make([][]byte, 0, len(keys))
	for _, key := range keys {
		pubKeys = append(pubKeys, key.PubKey().SerializeCompressed())
	}
	msScript, err := MultiSigScript(pubKeys, 2)
	require.NoError(t, err)

	tx := createSpendingTx(nil, msScript)
	sigs := make([][]byte, 0, len(keys))
	for _, key := range keys {
		sig, err := RawTxInSignature(tx, 0, msScript, SigHashAll, key)
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}

	vm, err := NewEngine(msScript, tx, 0, StandardVerifyFlags, nil)
	require.NoError(t, err)

	valid, err := vm.verifySig(sigs[0], pubKeys[0], msScript)
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = vm.verifySig(sigs[0], pubKeys[1], msScript)
	require.NoError(t, err)
	require.False(t, valid)

	valid, err = vm.verifySig(nil, pubKeys[0], msScript)
	require.NoError(t, err)
	require.False(t, valid)

	// Multisig lists are ordered from the top of the stack, so the keys
	// and signatures appear in reverse script order.
	stackKeys := [][]byte{pubKeys[2], pubKeys[1], pubKeys[0]}
	tests := []struct {
		name  string
		sigs  [][]byte
		valid bool
	}{
		{"first and second", [][]byte{sigs[1], sigs[0]}, true},
		{"first and third", [][]byte{sigs[2], sigs[0]}, true},
		{"out of order", [][]byte{sigs[0], sigs[1]}, false},
		{"repeated signature", [][]byte{sigs[0], sigs[0]}, false},
		{"empty signature", [][]byte{sigs[1], nil}, false},
		{"no signatures", nil, true},
	}
	for _, test := range tests {
		valid, err := vm.verifyMultiSig(test.sigs, stackKeys, msScript)
		require.NoError(t, err, test.name)
		require.Equal(t, test.valid, valid, test.name)
	}

	// Strict encoding violations are errors rather than false results.
	badKeys := [][]byte{{0x02}, pubKeys[1], pubKeys[0]}
	_, err = vm.verifyMultiSig([][]byte{sigs[2], sigs[0]}, badKeys, msScript)
	require.True(t, IsErrorCode(err, ErrPubKeyType), err)
}

// TestCheckSigEncodingRegimes ensures malformed signatures and public keys
// make OP_CHECKSIG push false when no encoding flags are set and fail the
// script when they are.
func TestCheckSigEncodingRegimes(t *testing.T) {
	t.Parallel()

	key := testKey(30)
	pubKey := key.PubKey().SerializeCompressed()
	sig, err := RawTxInSignature(createSpendingTx(nil, []byte{OP_1}), 0,
		[]byte{OP_1}, SigHashAll, key)
	require.NoError(t, err)

	checkSigNot := func(sig, pubKey []byte) []byte {
		script, err := NewScriptBuilder().AddData(sig).AddData(pubKey).
			AddOp(OP_CHECKSIG).AddOp(OP_NOT).Script()
		require.NoError(t, err)
		return script
	}
	badSig := checkSigNot([]byte{0x01}, pubKey)
	badKey := checkSigNot(sig, []byte{0x02})

	tests := []struct {
		name     string
		pkScript []byte
		flags    ScriptFlags
		ok       bool
		errCode  ErrorCode
	}{
		{"bad sig no flags", badSig, 0, true, 0},
		{"bad sig der", badSig, ScriptVerifyDERSignatures, false, ErrSigTooShort},
		{"bad sig strict", badSig, ScriptVerifyStrictEncoding, false, ErrSigTooShort},
		{"bad sig null fail", badSig, ScriptVerifyNullFail, false, ErrNullFail},
		{"bad key no flags", badKey, 0, true, 0},
		{"bad key der", badKey, ScriptVerifyDERSignatures, true, 0},
		{"bad key strict", badKey, ScriptVerifyStrictEncoding, false, ErrPubKeyType},
	}
	for _, test := range tests {
		err := execScripts(nil, test.pkScript, test.flags)
		if test.ok {
			require.NoError(t, err, test.name)
			continue
		}
		require.Truef(t, IsErrorCode(err, test.errCode),
			"%s: got %v, want %v", test.name, err, test.errCode)
	}
}

// TestPayToScriptHashNotPushOnly ensures the signature script of a p2sh spend
// must only push data.
func TestPayToScriptHashNotPushOnly(t *testing.T) {
	t.Parallel()

	p2sh, err := PayToScriptHashScript([]byte{OP_1})
	require.NoError(t, err)

	sigScript := mustParseShortForm(t, "0x01 0x51 NOP")
	err = execScripts(sigScript, p2sh, ScriptBip16)
	require.True(t, IsErrorCode(err, ErrNotPushOnly), err)

	sigScript = mustParseShortForm(t, "0x01 0x51")
	require.NoError(t, execScripts(sigScript, p2sh, ScriptBip16))
}

// TestEngineStepping ensures the engine can be stepped manually and reports
// its program counter along the way.
func TestEngineStepping(t *testing.T) {
	t.Parallel()

	sigScript := mustParseShortForm(t, "1")
	pkScript := mustParseShortForm(t, "DUP EQUAL")
	tx := createSpendingTx(sigScript, pkScript)
	vm, err := NewEngine(pkScript, tx, 0, 0, nil)
	require.NoError(t, err)

	pc, err := vm.DisasmPC()
	require.NoError(t, err)
	require.Equal(t, "00:0000: OP_1", pc)

	done, err := vm.Step()
	require.NoError(t, err)
	require.False(t, done)
	require.True(t, IsErrorCode(vm.CheckErrorCondition(true),
		ErrScriptUnfinished))

	pc, err = vm.DisasmPC()
	require.NoError(t, err)
	require.Equal(t, "01:0000: OP_DUP", pc)
	require.Equal(t, [][]byte{{1}}, vm.GetStack())

	dis, err := vm.DisasmScript(1)
	require.NoError(t, err)
	require.Equal(t, "01:0000: OP_DUP\n01:0001: OP_EQUAL\n", dis)

	for !done {
		done, err = vm.Step()
		require.NoError(t, err)
	}
	require.NoError(t, vm.CheckErrorCondition(true))

	_, err = vm.DisasmPC()
	require.True(t, IsErrorCode(err, ErrInvalidProgramCounter))
}

// TestParseScriptFlags ensures flag names round trip and unknown names are
// rejected.
func TestParseScriptFlags(t *testing.T) {
	t.Parallel()

	flags, err := ParseScriptFlags("P2SH, strictenc,NULLDUMMY")
	require.NoError(t, err)
	require.Equal(t, ScriptBip16|ScriptVerifyStrictEncoding|
		ScriptStrictMultiSig, flags)
	require.Equal(t, "P2SH,NULLDUMMY,STRICTENC", flags.String())

	flags, err = ParseScriptFlags("STANDARD")
	require.NoError(t, err)
	require.Equal(t, ScriptFlags(StandardVerifyFlags), flags)

	flags, err = ParseScriptFlags("NONE")
	require.NoError(t, err)
	require.Equal(t, "NONE", flags.String())

	_, err = ParseScriptFlags("P2SH,WITNESS")
	require.True(t, IsErrorCode(err, ErrUnknownFlag), err)
}
