// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scriptval

import (
	"fmt"
	"runtime"
	"time"

	"github.com/coinframe/btcproto/txscript"
	"github.com/coinframe/btcproto/wire"
)

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
	tx        *wire.MsgTx
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	prevOuts     PrevOutputFetcher
	flags        txscript.ScriptFlags
	sigCache     *txscript.SigCache
}

// sendResult sends the result of a script pair validation on the internal
// result channel while respecting the quit channel.  This allows orderly
// shutdown when the validation process is aborted early due to a validation
// error in one of the other goroutines.
func (v *txValidator) sendResult(result error) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// validateItem runs the script pair for a single input and returns nil when
// the input is valid.
func (v *txValidator) validateItem(txVI *txValidateItem) error {
	// Ensure the referenced previous output is available.
	txIn := txVI.txIn
	prevOut := v.prevOuts.FetchPrevOutput(txIn.PreviousOutPoint)
	if prevOut == nil {
		str := fmt.Sprintf("unable to find unspent output %v "+
			"referenced from transaction %s:%d",
			txIn.PreviousOutPoint, txVI.tx.TxHash(), txVI.txInIndex)
		return ruleError(ErrMissingTxOut, str, nil)
	}

	// Create a new script engine for the script pair.
	sigScript := txIn.SignatureScript
	pkScript := prevOut.PkScript
	vm, err := txscript.NewEngine(pkScript, txVI.tx, txVI.txInIndex,
		v.flags, v.sigCache)
	if err != nil {
		str := fmt.Sprintf("failed to parse input %s:%d which "+
			"references output %v - %v (input script bytes %x, "+
			"prev output script bytes %x)", txVI.tx.TxHash(),
			txVI.txInIndex, txIn.PreviousOutPoint, err, sigScript,
			pkScript)
		return ruleError(ErrScriptMalformed, str, err)
	}

	// Execute the script pair.
	if err := vm.Execute(); err != nil {
		str := fmt.Sprintf("failed to validate input %s:%d which "+
			"references output %v - %v (input script bytes %x, "+
			"prev output script bytes %x)", txVI.tx.TxHash(),
			txVI.txInIndex, txIn.PreviousOutPoint, err, sigScript,
			pkScript)
		return ruleError(ErrScriptValidation, str, err)
	}

	return nil
}

// validateHandler consumes items to validate from the internal validate channel
// and returns the result of the validation on the internal result channel. It
// must be run as a goroutine.
func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			err := v.validateItem(txVI)
			v.sendResult(err)
			if err != nil {
				break out
			}

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs using
// multiple goroutines.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This helps ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	// Start up validation handlers that are used to asynchronously
	// validate each transaction input.
	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Validate each of the inputs.  The quit channel is closed when any
	// errors occur so all processing goroutines exit regardless of which
	// input had the validation error.
	numInputs := len(items)
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to
		// be processed.  The select statement will never select a nil
		// channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				close(v.quitChan)
				return err
			}
		}
	}

	close(v.quitChan)
	return nil
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(prevOuts PrevOutputFetcher, flags txscript.ScriptFlags,
	sigCache *txscript.SigCache) *txValidator {

	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		prevOuts:     prevOuts,
		flags:        flags,
		sigCache:     sigCache,
	}
}

// collectItems appends a validation item for every input of the passed
// transaction.  Coinbase transactions have no scripts to check.
func collectItems(items []*txValidateItem, tx *wire.MsgTx) []*txValidateItem {
	if tx.IsCoinBase() {
		return items
	}
	for txInIdx, txIn := range tx.TxIn {
		items = append(items, &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
			tx:        tx,
		})
	}
	return items
}

// ValidateTransactionScripts validates the scripts for the passed transaction
// using multiple goroutines.  The previous outputs spent by the transaction
// are looked up through the passed fetcher.  The sigCache may be nil.
func ValidateTransactionScripts(tx *wire.MsgTx, prevOuts PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache) error {

	// Collect all of the transaction inputs and required information for
	// validation.
	txValItems := collectItems(make([]*txValidateItem, 0, len(tx.TxIn)), tx)

	// Validate all of the inputs.
	validator := newTxValidator(prevOuts, flags, sigCache)
	return validator.Validate(txValItems)
}

// ValidateBlockScripts validates the scripts for all of the inputs of every
// transaction in the passed block using multiple goroutines.  The fetcher must
// be able to supply outputs created earlier in the same block.
func ValidateBlockScripts(block *wire.MsgBlock, prevOuts PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache) error {

	// Collect all of the transaction inputs and required information for
	// validation for all transactions in the block into a single slice.
	numInputs := 0
	for _, tx := range block.Transactions {
		numInputs += len(tx.TxIn)
	}
	txValItems := make([]*txValidateItem, 0, numInputs)
	for _, tx := range block.Transactions {
		txValItems = collectItems(txValItems, tx)
	}

	// Validate all of the inputs.
	validator := newTxValidator(prevOuts, flags, sigCache)
	start := time.Now()
	if err := validator.Validate(txValItems); err != nil {
		return err
	}
	elapsed := time.Since(start)

	log.Tracef("block %v took %v to verify", block.BlockHash(), elapsed)

	return nil
}
