// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScriptClass ensures all the scripts in scriptClassTests have the expected
// class.
func TestScriptClass(t *testing.T) {
	t.Parallel()

	compressed := "0x21 0x02" + strings.Repeat("11", 32)
	uncompressed := "0x41 0x04" + strings.Repeat("22", 64)
	hybrid := "0x41 0x06" + strings.Repeat("22", 64)

	tests := []struct {
		name   string
		script string
		class  ScriptClass
	}{
		{"pubkey compressed", compressed + " CHECKSIG", PubKeyTy},
		{"pubkey uncompressed", uncompressed + " CHECKSIG", PubKeyTy},
		{"pubkey hybrid", hybrid + " CHECKSIG", NonStandardTy},
		{"pubkeyhash", "DUP HASH160 0x14 0x" + strings.Repeat("00", 20) +
			" EQUALVERIFY CHECKSIG", PubKeyHashTy},
		{"scripthash", "HASH160 0x14 0x" + strings.Repeat("00", 20) +
			" EQUAL", ScriptHashTy},
		{"multisig 1 of 2", "1 " + compressed + " " + uncompressed +
			" 2 CHECKMULTISIG", MultiSigTy},
		{"multisig count mismatch", "1 " + compressed + " 2 CHECKMULTISIG",
			NonStandardTy},
		{"multisig more required than keys", "2 " + compressed +
			" 1 CHECKMULTISIG", NonStandardTy},
		{"nulldata empty", "RETURN", NullDataTy},
		{"nulldata small int", "RETURN 0", NullDataTy},
		{"nulldata push", "RETURN 0x04 0x01020304", NullDataTy},
		{"nulldata too big", "RETURN 0x4c 0x51 0x" + strings.Repeat("00", 81),
			NonStandardTy},
		{"nulldata trailing op", "RETURN 0x01 0x01 NOP", NonStandardTy},
		{"empty", "", NonStandardTy},
		{"nonstandard", "1 2 ADD", NonStandardTy},
	}

	for _, test := range tests {
		script := mustParseShortForm(t, test.script)
		require.Equalf(t, test.class, GetScriptClass(script), test.name)
	}
}

// TestScriptClassString ensures the script class names are as expected.
func TestScriptClassString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pubkeyhash", PubKeyHashTy.String())
	require.Equal(t, "nulldata", NullDataTy.String())
	require.Equal(t, "Invalid", ScriptClass(200).String())
}

// TestMultiSigScript ensures the multisig script builder validates its
// arguments and produces the expected template.
func TestMultiSigScript(t *testing.T) {
	t.Parallel()

	k1 := bytes.Repeat([]byte{0x02}, 33)
	k2 := append([]byte{0x03}, bytes.Repeat([]byte{0x44}, 32)...)

	script, err := MultiSigScript([][]byte{k1, k2}, 1)
	require.NoError(t, err)
	want := append(append(append([]byte{OP_1, OP_DATA_33}, k1...), OP_DATA_33),
		k2...)
	want = append(want, OP_2, OP_CHECKMULTISIG)
	require.Equal(t, want, script)

	pubKeys, required, err := ExtractMultisigPubKeys(script)
	require.NoError(t, err)
	require.Equal(t, 1, required)
	require.Equal(t, [][]byte{k1, k2}, pubKeys)

	_, err = MultiSigScript([][]byte{k1}, 2)
	require.True(t, IsErrorCode(err, ErrTooManyRequiredSigs), err)

	_, _, err = CalcMultiSigStats([]byte{OP_1})
	require.True(t, IsErrorCode(err, ErrNotMultisigScript), err)
}

// TestNullDataScript ensures null data scripts are created correctly and
// oversized payloads are rejected.
func TestNullDataScript(t *testing.T) {
	t.Parallel()

	script, err := NullDataScript([]byte{0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, []byte{OP_RETURN, OP_DATA_2, 0x01, 0x02}, script)
	require.Equal(t, NullDataTy, GetScriptClass(script))

	script, err = NullDataScript(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{OP_RETURN, OP_0}, script)

	_, err = NullDataScript(make([]byte, MaxDataCarrierSize+1))
	require.True(t, IsErrorCode(err, ErrElementTooBig), err)
}

// TestPushedData ensures the data pushed by a script is extracted, including
// empty pushes but excluding small integers.
func TestPushedData(t *testing.T) {
	t.Parallel()

	data, err := PushedData(mustParseShortForm(t, "0 1 0x02 0xaabb NOP 'hi'"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{nil, {0xaa, 0xbb}, []byte("hi")}, data)

	_, err = PushedData([]byte{OP_DATA_2, 0x01})
	require.True(t, IsErrorCode(err, ErrMalformedPush), err)
}

// TestExtractPkScriptHash ensures the committed hash is returned for the hash
// based templates only.
func TestExtractPkScriptHash(t *testing.T) {
	t.Parallel()

	hash := bytes.Repeat([]byte{0x5a}, 20)
	p2pkh, err := payToPubKeyHashScript(hash)
	require.NoError(t, err)
	got, class := ExtractPkScriptHash(p2pkh)
	require.Equal(t, PubKeyHashTy, class)
	require.Equal(t, hash, got)

	p2sh, err := payToScriptHashScript(hash)
	require.NoError(t, err)
	got, class = ExtractPkScriptHash(p2sh)
	require.Equal(t, ScriptHashTy, class)
	require.Equal(t, hash, got)

	got, class = ExtractPkScriptHash([]byte{OP_1})
	require.Equal(t, NonStandardTy, class)
	require.Nil(t, got)
}
