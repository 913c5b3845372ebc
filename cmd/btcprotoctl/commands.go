// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/coinframe/btcproto/chainhash"
	"github.com/coinframe/btcproto/peer"
	"github.com/coinframe/btcproto/scriptval"
	"github.com/coinframe/btcproto/txscript"
	"github.com/coinframe/btcproto/wire"
	"github.com/davecgh/go-spew/spew"
)

// commandHandler runs a command with its arguments and writes the result to w.
type commandHandler func(cfg *config, w io.Writer, args []string) error

// command describes a command accepted on the command line.
type command struct {
	usage   string
	help    string
	minArgs int
	maxArgs int
	handler commandHandler
}

// commands houses every supported command keyed by name.  It is populated in
// init to avoid an initialization cycle with listCommands.
var commands map[string]command

func init() {
	commands = map[string]command{
		"decode": {
			usage:   "decode <hex>",
			help:    "Decode every framed wire message in the hex string",
			minArgs: 1,
			maxArgs: 1,
			handler: decodeCmd,
		},
		"disasm": {
			usage:   "disasm <script hex>",
			help:    "Disassemble a script",
			minArgs: 1,
			maxArgs: 1,
			handler: disasmCmd,
		},
		"exec": {
			usage:   "exec <sigscript hex> <pkscript hex>",
			help:    "Execute a signature script against a public key script",
			minArgs: 2,
			maxArgs: 2,
			handler: execCmd,
		},
		"verify": {
			usage:   "verify <tx hex> <pkscript hex> [amount]",
			help:    "Validate every input of a serialized transaction as spending pkscript",
			minArgs: 2,
			maxArgs: 3,
			handler: verifyCmd,
		},
	}
}

// listCommands returns a usage summary of all commands sorted by name.
func listCommands() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(&b, "  %-42s %s\n", cmd.usage, cmd.help)
	}
	return b.String()
}

// errUsage is returned when a command is invoked with the wrong arguments.
var errUsage = errors.New("invalid command usage")

// runCommand dispatches args to the named command.
func runCommand(cfg *config, w io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command specified", errUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	params := args[1:]
	if len(params) < cmd.minArgs || len(params) > cmd.maxArgs {
		return fmt.Errorf("%w: %s", errUsage, cmd.usage)
	}

	ctlLog.Debugf("Running %s with %d arguments on %s", args[0],
		len(params), cfg.params.name)
	return cmd.handler(cfg, w, params)
}

// decodeHexArg decodes a hex command argument, allowing an optional 0x
// prefix.
func decodeHexArg(name, arg string) ([]byte, error) {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "0x")
	b, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	return b, nil
}

// scriptAddress returns the base58 address a P2PKH or P2SH script pays to
// on the configured network, or an empty string for other scripts.
func scriptAddress(params *netParams, pkScript []byte) string {
	hash, class := txscript.ExtractPkScriptHash(pkScript)
	switch class {
	case txscript.PubKeyHashTy:
		return base58.CheckEncode(hash, params.pubKeyHashAddrID)
	case txscript.ScriptHashTy:
		return base58.CheckEncode(hash, params.scriptHashAddrID)
	}
	return ""
}

// disasm returns the disassembly of a script, including the error of a
// script that fails to parse.
func disasm(script []byte) string {
	s, err := txscript.DisasmString(script)
	if err != nil {
		return fmt.Sprintf("%s [error: %v]", s, err)
	}
	return s
}

// describeTx writes a human-readable description of a transaction.
func describeTx(w io.Writer, params *netParams, tx *wire.MsgTx) {
	fmt.Fprintf(w, "tx %s version %d locktime %d\n", tx.TxHash(),
		tx.Version, tx.LockTime)
	for i, txIn := range tx.TxIn {
		fmt.Fprintf(w, "  in  %d: %v seq %d\n", i, txIn.PreviousOutPoint,
			txIn.Sequence)
		fmt.Fprintf(w, "        sigscript: %s\n", disasm(txIn.SignatureScript))
	}
	for i, txOut := range tx.TxOut {
		class := txscript.GetScriptClass(txOut.PkScript)
		fmt.Fprintf(w, "  out %d: %v %s", i, btcutil.Amount(txOut.Value),
			class)
		if addr := scriptAddress(params, txOut.PkScript); addr != "" {
			fmt.Fprintf(w, " %s", addr)
		}
		fmt.Fprintf(w, "\n        pkscript: %s\n", disasm(txOut.PkScript))
	}
}

// describeMessage writes a human-readable description of a wire message.
func describeMessage(w io.Writer, params *netParams, msg wire.Message) {
	switch msg := msg.(type) {
	case *wire.MsgTx:
		describeTx(w, params, msg)

	case *wire.MsgBlock:
		fmt.Fprintf(w, "block %s prev %s, %d transactions\n",
			msg.BlockHash(), msg.Header.PrevBlock, len(msg.Transactions))
		for _, tx := range msg.Transactions {
			describeTx(w, params, tx)
		}

	default:
		fmt.Fprint(w, spew.Sdump(msg))
	}
}

// decodeCmd decodes every message framed in the hex argument.  Messages are
// run through a peer dispatcher so version negotiation applies to the
// messages that follow it.
func decodeCmd(cfg *config, w io.Writer, args []string) error {
	buf, err := decodeHexArg("message", args[0])
	if err != nil {
		return err
	}

	d := peer.NewDispatcher(&peer.Config{
		ChainNet:        cfg.params.net,
		ProtocolVersion: cfg.ProtocolVer,
		Addr:            "command line",
		Inbound:         true,
		Listeners: peer.MessageListeners{
			OnRead: func(_ *peer.Dispatcher, n int, msg wire.Message, err error) {
				if err != nil {
					return
				}
				fmt.Fprintf(w, "%s (%d bytes)\n", msg.Command(), n)
				describeMessage(w, &cfg.params, msg)
			},
		},
	})
	n, err := d.Feed(buf)
	if err != nil {
		return fmt.Errorf("offset %d: %w", n, err)
	}
	if n != len(buf) {
		return fmt.Errorf("offset %d: %w: incomplete message of %d bytes",
			n, io.ErrUnexpectedEOF, len(buf)-n)
	}
	return nil
}

// disasmCmd writes the disassembly of the script argument.
func disasmCmd(_ *config, w io.Writer, args []string) error {
	script, err := decodeHexArg("script", args[0])
	if err != nil {
		return err
	}
	s, err := txscript.DisasmString(script)
	fmt.Fprintln(w, s)
	return err
}

// spendingTx returns a transaction whose only input spends the only output of
// a fabricated funding transaction paying to pkScript.
func spendingTx(sigScript, pkScript []byte) *wire.MsgTx {
	fundingTx := wire.NewMsgTx(wire.TxVersion)
	outPoint := wire.NewOutPoint(&chainhash.Hash{}, ^uint32(0))
	fundingTx.AddTxIn(wire.NewTxIn(outPoint, []byte{txscript.OP_0,
		txscript.OP_0}, nil))
	fundingTx.AddTxOut(wire.NewTxOut(0, pkScript))

	tx := wire.NewMsgTx(wire.TxVersion)
	fundingHash := fundingTx.TxHash()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&fundingHash, 0), sigScript,
		nil))
	tx.AddTxOut(wire.NewTxOut(0, nil))
	return tx
}

// execCmd runs a script pair one step at a time, logging each step, and
// reports whether it succeeded.
func execCmd(cfg *config, w io.Writer, args []string) error {
	sigScript, err := decodeHexArg("sigscript", args[0])
	if err != nil {
		return err
	}
	pkScript, err := decodeHexArg("pkscript", args[1])
	if err != nil {
		return err
	}

	tx := spendingTx(sigScript, pkScript)
	vm, err := txscript.NewEngine(pkScript, tx, 0, cfg.flags, cfg.sigCache)
	if err != nil {
		return fmt.Errorf("%v: %w", txscript.ErrorKindOf(err), err)
	}

	steps := 0
	for {
		if dis, err := vm.DisasmPC(); err == nil {
			ctlLog.Debugf("step %d: %s", steps, dis)
		}
		done, err := vm.Step()
		if err != nil {
			return fmt.Errorf("step %d: %v: %w", steps,
				txscript.ErrorKindOf(err), err)
		}
		steps++
		if done {
			break
		}
	}
	if err := vm.CheckErrorCondition(true); err != nil {
		return fmt.Errorf("%v: %w", txscript.ErrorKindOf(err), err)
	}

	fmt.Fprintf(w, "OK (%d steps)\n", steps)
	return nil
}

// verifyCmd validates every input of a serialized transaction as spending an
// output with the given public key script.
func verifyCmd(cfg *config, w io.Writer, args []string) error {
	txBytes, err := decodeHexArg("transaction", args[0])
	if err != nil {
		return err
	}
	pkScript, err := decodeHexArg("pkscript", args[1])
	if err != nil {
		return err
	}
	var amount btcutil.Amount
	if len(args) > 2 {
		f, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
		amount, err = btcutil.NewAmount(f)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
	}

	var tx wire.MsgTx
	r := bytes.NewReader(txBytes)
	if err := tx.Deserialize(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after transaction", r.Len())
	}

	fetcher := scriptval.NewCannedPrevOutputFetcher(pkScript, int64(amount))
	err = scriptval.ValidateTransactionScripts(&tx, fetcher, cfg.flags,
		cfg.sigCache)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "OK %s: %d inputs spending %v each\n", tx.TxHash(),
		len(tx.TxIn), amount)
	return nil
}
