// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/lru"

	"github.com/coinframe/btcproto/chainhash"
)

// sigInfo represents an entry in the SigCache. Entries in the sigcache are a
// 3-tuple: (sigHash, sig, pubKey).
type sigInfo struct {
	sigHash chainhash.Hash
	sig     string
	pubKey  string
}

// SigCache implements an ECDSA signature verification cache with a least
// recently used eviction policy.  Only valid signatures are added to the
// cache.  A hit skips the elliptic curve verification entirely, which both
// bounds the cost of replaying crafted invalid transactions and speeds up
// block validation for transactions already seen in the mempool.
//
// SigCache is safe for concurrent access.
type SigCache struct {
	validSigs lru.Cache
}

// NewSigCache creates and initializes a new instance of SigCache. Its sole
// parameter 'maxEntries' represents the maximum number of entries allowed to
// exist in the SigCache at any particular moment.  The least recently used
// entry is evicted to make room for new entries that would cause the number
// of entries in the cache to exceed the max.
func NewSigCache(maxEntries uint) *SigCache {
	return &SigCache{validSigs: lru.NewCache(maxEntries)}
}

func makeSigInfo(sigHash chainhash.Hash, sig *ecdsa.Signature,
	pubKey *btcec.PublicKey) sigInfo {

	return sigInfo{
		sigHash: sigHash,
		sig:     string(sig.Serialize()),
		pubKey:  string(pubKey.SerializeCompressed()),
	}
}

// Exists returns true if an existing entry of 'sig' over 'sigHash' for public
// key 'pubKey' is found within the SigCache. Otherwise, false is returned.
func (s *SigCache) Exists(sigHash chainhash.Hash, sig *ecdsa.Signature,
	pubKey *btcec.PublicKey) bool {

	return s.validSigs.Contains(makeSigInfo(sigHash, sig, pubKey))
}

// Add adds an entry for a signature over 'sigHash' under public key 'pubKey'
// to the signature cache.
func (s *SigCache) Add(sigHash chainhash.Hash, sig *ecdsa.Signature,
	pubKey *btcec.PublicKey) {

	s.validSigs.Add(makeSigInfo(sigHash, sig, pubKey))
}
