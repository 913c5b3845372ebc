// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/coinframe/btcproto/chainhash"
)

// genRandomSig returns a random message, a signature of the message under the
// public key and the public key.  This function is used to generate randomized
// test data.
func genRandomSig(t *testing.T) (*chainhash.Hash, *ecdsa.Signature, *btcec.PublicKey) {
	t.Helper()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var msgHash chainhash.Hash
	_, err = rand.Read(msgHash[:])
	require.NoError(t, err)

	sig := ecdsa.Sign(privKey, msgHash[:])
	return &msgHash, sig, privKey.PubKey()
}

// TestSigCacheAddExists tests the ability to add, and later check the
// existence of a signature triplet in the signature cache.
func TestSigCacheAddExists(t *testing.T) {
	sigCache := NewSigCache(200)

	// Generate a random sigCache entry triplet.
	msg1, sig1, key1 := genRandomSig(t)

	// Add the triplet to the signature cache.
	sigCache.Add(*msg1, sig1, key1)

	// The previously added triplet should now be found within the sigcache.
	sig1Copy, err := ecdsa.ParseSignature(sig1.Serialize())
	require.NoError(t, err)
	key1Copy, err := btcec.ParsePubKey(key1.SerializeCompressed())
	require.NoError(t, err)
	require.True(t, sigCache.Exists(*msg1, sig1Copy, key1Copy))

	// A different message with the same signature and key is a miss.
	msg2, _, _ := genRandomSig(t)
	require.False(t, sigCache.Exists(*msg2, sig1, key1))
}

// TestSigCacheAddEvictEntry tests the eviction case where a new signature
// triplet is added to a full signature cache which should trigger randomized
// eviction, followed by adding the new element to the cache.
func TestSigCacheAddEvictEntry(t *testing.T) {
	// Create a sigcache that can hold up to 100 entries.
	sigCacheSize := uint(100)
	sigCache := NewSigCache(sigCacheSize)

	// Fill the sigcache up with some random sig triplets.
	var first struct {
		msg *chainhash.Hash
		sig *ecdsa.Signature
		key *btcec.PublicKey
	}
	for i := uint(0); i < sigCacheSize; i++ {
		msg, sig, key := genRandomSig(t)
		if i == 0 {
			first.msg, first.sig, first.key = msg, sig, key
		}
		sigCache.Add(*msg, sig, key)
		require.True(t, sigCache.Exists(*msg, sig, key))
	}

	// Add a new entry, this should cause eviction of the least recently
	// used entry.
	msgNew, sigNew, keyNew := genRandomSig(t)
	sigCache.Add(*msgNew, sigNew, keyNew)

	require.True(t, sigCache.Exists(*msgNew, sigNew, keyNew))
	require.False(t, sigCache.Exists(*first.msg, first.sig, first.key))
}
