// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
btcprotoctl inspects bitcoin wire messages and scripts.

Usage:

	btcprotoctl [OPTIONS] <command> <args...>

Commands:

	decode <hex>                             Decode every framed wire message
	disasm <script hex>                      Disassemble a script
	exec <sigscript hex> <pkscript hex>      Execute a script pair
	verify <tx hex> <pkscript hex> [amount]  Validate every input of a transaction

Application Options:

	-V, --version       Display version information and exit
	    --testnet       Use the test network
	    --regtest       Use the regression test network
	    --pver=         Protocol version used to decode and encode messages
	-d, --debuglevel=   Logging level for all subsystems {trace, debug, info,
	                    warn, error, critical} or <subsystem>=<level>,...
	                    Use show to list available subsystems (info)
	    --logdir=       Directory to log output
	    --flags=        Comma separated script verification flags (STANDARD)
	    --sigcachesize= Maximum entries in the signature cache (10000)

Logging goes to standard error and, when --logdir is set, to a rotated log
file.  Command output goes to standard output.
*/
package main
