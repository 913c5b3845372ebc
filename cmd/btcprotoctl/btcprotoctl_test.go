// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/coinframe/btcproto/chainhash"
	"github.com/coinframe/btcproto/scriptval"
	"github.com/coinframe/btcproto/txscript"
	"github.com/coinframe/btcproto/wire"
	"github.com/stretchr/testify/require"
)

// testConfig returns a parsed configuration for the passed options.
func testConfig(t *testing.T, opts ...string) *config {
	t.Helper()

	cfg, args, err := loadConfig(opts)
	require.NoError(t, err)
	require.Empty(t, args)
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg := testConfig(t)
	require.Equal(t, wire.MainNet, cfg.params.net)
	require.Equal(t, txscript.StandardVerifyFlags, cfg.flags)
	require.NotNil(t, cfg.sigCache)

	cfg = testConfig(t, "--regtest", "--flags=P2SH,DERSIG",
		"--sigcachesize=0", "--pver=70001")
	require.Equal(t, wire.RegTest, cfg.params.net)
	require.Equal(t, txscript.ScriptBip16|txscript.ScriptVerifyDERSignatures,
		cfg.flags)
	require.Nil(t, cfg.sigCache)
	require.Equal(t, uint32(70001), cfg.ProtocolVer)

	_, args, err := loadConfig([]string{"--testnet", "disasm", "51"})
	require.NoError(t, err)
	require.Equal(t, []string{"disasm", "51"}, args)

	badOpts := [][]string{
		{"--testnet", "--regtest"},
		{"--flags=BOGUS"},
		{"--debuglevel=loud"},
		{"--pver=99999999"},
	}
	for _, opts := range badOpts {
		_, _, err := loadConfig(opts)
		require.Error(t, err, "options %v", opts)
	}
}

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"info", true},
		{"trace", true},
		{"SCRP=debug,PEER=trace", true},
		{"CTL=warn", true},
		{"verbose", false},
		{"SCRP=debug,PEER", false},
		{"NOPE=debug", false},
		{"SVAL=loud", false},
	}

	for _, test := range tests {
		err := parseAndSetDebugLevels(test.level)
		if test.valid {
			require.NoError(t, err, test.level)
		} else {
			require.Error(t, err, test.level)
		}
	}
	setLogLevels("off")
}

func TestRunCommandUsage(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.ErrorIs(t, runCommand(cfg, &out, nil), errUsage)
	require.ErrorIs(t, runCommand(cfg, &out, []string{"bogus"}), errUsage)
	require.ErrorIs(t, runCommand(cfg, &out, []string{"exec", "51"}), errUsage)
	require.Contains(t, listCommands(), "verify <tx hex> <pkscript hex> [amount]")
}

func TestDisasmCmd(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, runCommand(cfg, &out, []string{"disasm",
		"76a914000102030405060708090a0b0c0d0e0f1011121388ac"}))
	require.Equal(t, "OP_DUP OP_HASH160 000102030405060708090a0b0c0d0e0f10111213 "+
		"OP_EQUALVERIFY OP_CHECKSIG\n", out.String())

	out.Reset()
	require.Error(t, runCommand(cfg, &out, []string{"disasm", "4c05ab"}))
	require.Error(t, runCommand(cfg, &out, []string{"disasm", "zz"}))
}

func TestExecCmd(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	// OP_2 OP_2 | OP_ADD OP_4 OP_EQUAL
	require.NoError(t, runCommand(cfg, &out, []string{"exec", "5252", "935487"}))
	require.Equal(t, "OK (5 steps)\n", out.String())

	// OP_2 OP_3 | OP_ADD OP_4 OP_EQUAL
	err := runCommand(cfg, &out, []string{"exec", "5253", "935487"})
	require.True(t, txscript.IsErrorCode(err, txscript.ErrEvalFalse), "got %v", err)
	require.Contains(t, err.Error(), wire.ErrSemanticFailure.String())
}

func TestDecodeCmd(t *testing.T) {
	cfg := testConfig(t, "--testnet")

	tx := wire.NewMsgTx(wire.TxVersion)
	hash := wire.NewOutPoint(&chainhash.Hash{0x01}, 2)
	tx.AddTxIn(wire.NewTxIn(hash, []byte{txscript.OP_TRUE}, nil))
	pkScript := append([]byte{txscript.OP_DUP, txscript.OP_HASH160,
		txscript.OP_DATA_20}, make([]byte, 20)...)
	pkScript = append(pkScript, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)
	tx.AddTxOut(wire.NewTxOut(150000000, pkScript))

	var msgs bytes.Buffer
	require.NoError(t, wire.WriteMessage(&msgs, wire.NewMsgPing(9),
		cfg.ProtocolVer, wire.TestNet3))
	require.NoError(t, wire.WriteMessage(&msgs, tx, cfg.ProtocolVer,
		wire.TestNet3))

	var out bytes.Buffer
	require.NoError(t, runCommand(cfg, &out, []string{"decode",
		hex.EncodeToString(msgs.Bytes())}))
	got := out.String()
	require.True(t, strings.HasPrefix(got, "ping (32 bytes)\n"), got)
	require.Contains(t, got, "tx "+tx.TxHash().String())
	require.Contains(t, got, "out 0: 1.5 BTC pubkeyhash")
	require.Contains(t, got, "mfWxJ45yp2SFn7UciZyNpvDKrzbhyfKrY8")

	// A truncated trailing message is reported.
	truncated := msgs.Bytes()[:msgs.Len()-1]
	err := runCommand(cfg, &out, []string{"decode",
		hex.EncodeToString(truncated)})
	require.ErrorContains(t, err, "incomplete message")

	// The wrong network is a framing error.
	mainCfg := testConfig(t)
	err = runCommand(mainCfg, &out, []string{"decode",
		hex.EncodeToString(msgs.Bytes())})
	require.True(t, wire.IsErrorKind(err, wire.ErrFormatViolation), "got %v", err)
}

func TestVerifyCmd(t *testing.T) {
	cfg := testConfig(t)

	var seed [32]byte
	seed[31] = 0x42
	key, _ := btcec.PrivKeyFromBytes(seed[:])
	pkScript, err := txscript.PayToPubKeyHashScript(
		key.PubKey().SerializeCompressed())
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x07}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_TRUE}))
	sigScript, err := txscript.SignatureScript(tx, 0, pkScript,
		txscript.SigHashAll, key, true)
	require.NoError(t, err)
	tx.TxIn[0].SignatureScript = sigScript

	var raw bytes.Buffer
	require.NoError(t, tx.Serialize(&raw))
	txHex := hex.EncodeToString(raw.Bytes())
	pkHex := hex.EncodeToString(pkScript)

	var out bytes.Buffer
	require.NoError(t, runCommand(cfg, &out, []string{"verify", txHex, pkHex,
		"0.5"}))
	require.Contains(t, out.String(), "1 inputs spending 0.5 BTC each")

	// Spending a different script fails validation.
	err = runCommand(cfg, &out, []string{"verify", txHex, "51"})
	require.True(t, scriptval.IsErrorCode(err, scriptval.ErrScriptValidation),
		"got %v", err)

	require.Error(t, runCommand(cfg, &out, []string{"verify", txHex, pkHex,
		"lots"}))
	require.Error(t, runCommand(cfg, &out, []string{"verify", txHex + "00",
		pkHex}))
}
