// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte double-sha256 hash type used for
// transaction, block and checksum identifiers on the bitcoin wire protocol.
package chainhash
