// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package scriptval checks the input scripts of transactions and blocks.

Every input is run through a txscript.Engine together with the public key
script of the output it spends.  The outputs are supplied by the caller through
the PrevOutputFetcher interface, so the package has no opinion about how
unspent outputs are stored.  Inputs are validated concurrently by a bounded set
of goroutines and the first failure aborts the remaining work.

Errors

Validation failures are returned as a RuleError whose ErrorCode describes the
reason.  The underlying txscript error, when there is one, is available via
errors.As.
*/
package scriptval
