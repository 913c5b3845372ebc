// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"encoding/binary"
	"net"
	"runtime"
	"testing"

	"github.com/coinframe/btcproto/chainhash"
	"github.com/coinframe/btcproto/wire"
	"github.com/stretchr/testify/require"
)

// encode returns the framed encoding of msg for the passed network and
// protocol version.
func encode(t *testing.T, msg wire.Message, pver uint32, net wire.BitcoinNet) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, wire.WriteMessage(&buf, msg, pver, net))
	return buf.Bytes()
}

// testHash returns a hash whose first byte is b.
func testHash(b byte) *chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return &h
}

// TestFeedPartial ensures Feed dispatches every complete message in a buffer
// and leaves an incomplete trailing message for the next call.
func TestFeedPartial(t *testing.T) {
	t.Parallel()

	var pings, pongs []uint64
	var reads int
	d := NewDispatcher(&Config{
		ChainNet: wire.TestNet3,
		Listeners: MessageListeners{
			OnPing: func(_ *Dispatcher, msg *wire.MsgPing) {
				pings = append(pings, msg.Nonce)
			},
			OnPong: func(_ *Dispatcher, msg *wire.MsgPong) {
				pongs = append(pongs, msg.Nonce)
			},
			OnRead: func(_ *Dispatcher, _ int, _ wire.Message, err error) {
				require.NoError(t, err)
				reads++
			},
		},
	})

	pver := d.ProtocolVersion()
	ping := encode(t, wire.NewMsgPing(1), pver, wire.TestNet3)
	pong := encode(t, wire.NewMsgPong(2), pver, wire.TestNet3)
	ping2 := encode(t, wire.NewMsgPing(3), pver, wire.TestNet3)

	stream := append(append(append([]byte{}, ping...), pong...), ping2...)
	split := len(ping) + len(pong) + 5

	n, err := d.Feed(stream[:split])
	require.NoError(t, err)
	require.Equal(t, len(ping)+len(pong), n)
	require.Equal(t, []uint64{1}, pings)
	require.Equal(t, []uint64{2}, pongs)
	require.Equal(t, 2, reads)

	// A header alone is not enough either.
	rest := stream[n:]
	n, err = d.Feed(rest[:wire.MessageHeaderSize])
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = d.Feed(rest)
	require.NoError(t, err)
	require.Equal(t, len(ping2), n)
	require.Equal(t, []uint64{1, 3}, pings)

	stats := d.StatsSnapshot()
	require.Equal(t, uint64(len(stream)), stats.BytesReceived)
	require.Equal(t, uint64(3), stats.MsgsReceived)
	require.False(t, stats.LastRecv.IsZero())

	// Nothing to do for an empty buffer.
	n, err = d.Feed(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

// TestFeedErrors ensures framing errors are returned to the caller along with
// the bytes consumed before the offending message.
func TestFeedErrors(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&Config{ChainNet: wire.MainNet})
	pver := d.ProtocolVersion()
	good := encode(t, wire.NewMsgPing(1), pver, wire.MainNet)

	// Wrong network magic.
	wrongNet := encode(t, wire.NewMsgPing(1), pver, wire.TestNet3)
	n, err := d.Feed(append(append([]byte{}, good...), wrongNet...))
	require.Equal(t, len(good), n)
	require.True(t, wire.IsErrorKind(err, wire.ErrFormatViolation), "got %v", err)

	// Corrupted checksum.
	badSum := append([]byte{}, good...)
	badSum[20] ^= 0xff
	n, err = d.Feed(badSum)
	require.Zero(t, n)
	require.True(t, wire.IsErrorKind(err, wire.ErrSemanticFailure), "got %v", err)

	// A payload too large for its message type.
	tooBig := append([]byte{}, good[:wire.MessageHeaderSize]...)
	tooBig[16] = 0xff
	n, err = d.Feed(tooBig)
	require.Zero(t, n)
	require.True(t, wire.IsErrorKind(err, wire.ErrLimitExceeded), "got %v", err)
}

// TestFeedLargePartialFrame ensures a frame whose declared payload has not
// fully arrived is left unconsumed without buffering the declared length on
// every call.
func TestFeedLargePartialFrame(t *testing.T) {
	const declared = 3900000

	d := NewDispatcher(&Config{ChainNet: wire.TestNet3})

	frame := make([]byte, wire.MessageHeaderSize+100)
	binary.LittleEndian.PutUint32(frame[0:4], uint32(wire.TestNet3))
	copy(frame[4:4+wire.CommandSize], wire.CmdBlock)
	binary.LittleEndian.PutUint32(frame[16:20], declared)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	for i := 0; i < 100; i++ {
		n, err := d.Feed(frame)
		require.NoError(t, err)
		require.Zero(t, n)
	}
	runtime.ReadMemStats(&after)

	// A single payload buffer for the declared length would exceed this.
	grew := after.TotalAlloc - before.TotalAlloc
	require.Less(t, grew, uint64(8<<20), "allocated %d bytes", grew)
	require.Zero(t, d.StatsSnapshot().BytesReceived)
}

// TestVersionNegotiation ensures the version handshake lowers the protocol
// version and duplicates are rejected.
func TestVersionNegotiation(t *testing.T) {
	t.Parallel()

	var gotVersion, gotVerAck bool
	d := NewDispatcher(&Config{
		ChainNet: wire.RegTest,
		Addr:     "127.0.0.1:18444",
		Inbound:  true,
		Listeners: MessageListeners{
			OnVersion: func(_ *Dispatcher, _ *wire.MsgVersion) {
				gotVersion = true
			},
			OnVerAck: func(_ *Dispatcher, _ *wire.MsgVerAck) {
				gotVerAck = true
			},
		},
	})
	require.Equal(t, "127.0.0.1:18444 (inbound)", d.String())

	na := wire.NewNetAddressIPPort(net.ParseIP("127.0.0.1"), 18444, 0)
	version := wire.NewMsgVersion(na, na, 7, 0)
	version.ProtocolVersion = int32(wire.BIP0037Version)
	buf := encode(t, version, MaxProtocolVersion, wire.RegTest)

	n, err := d.Feed(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.True(t, gotVersion)
	require.Equal(t, wire.BIP0037Version, d.ProtocolVersion())
	require.Equal(t, uint64(7), d.RemoteVersion().Nonce)

	verack := encode(t, wire.NewMsgVerAck(), d.ProtocolVersion(), wire.RegTest)
	_, err = d.Feed(verack)
	require.NoError(t, err)
	require.True(t, gotVerAck)

	_, err = d.Feed(encode(t, version, d.ProtocolVersion(), wire.RegTest))
	require.ErrorIs(t, err, ErrDuplicateVersion)

	_, err = d.Feed(verack)
	require.ErrorIs(t, err, ErrDuplicateVerAck)

	stats := d.StatsSnapshot()
	require.True(t, stats.VersionKnown)
	require.True(t, stats.VerAckReceived)

	// Versions below the minimum are refused.
	old := NewDispatcher(&Config{ChainNet: wire.RegTest})
	version.ProtocolVersion = 106
	_, err = old.Feed(encode(t, version, MaxProtocolVersion, wire.RegTest))
	require.ErrorIs(t, err, ErrOldProtocolVersion)
}

// TestKnownInventoryFilter ensures inventory already known to the peer is not
// delivered to OnInv again.
func TestKnownInventoryFilter(t *testing.T) {
	t.Parallel()

	var delivered [][]*wire.InvVect
	d := NewDispatcher(&Config{
		MaxKnownInventory: 2,
		Listeners: MessageListeners{
			OnInv: func(_ *Dispatcher, msg *wire.MsgInv) {
				delivered = append(delivered, msg.InvList)
			},
		},
	})
	pver := d.ProtocolVersion()

	invA := wire.NewInvVect(wire.InvTypeTx, testHash(1))
	invB := wire.NewInvVect(wire.InvTypeTx, testHash(2))
	invC := wire.NewInvVect(wire.InvTypeBlock, testHash(3))

	feedInv := func(ivs ...*wire.InvVect) {
		msg := wire.NewMsgInv()
		for _, iv := range ivs {
			require.NoError(t, msg.AddInvVect(iv))
		}
		_, err := d.Feed(encode(t, msg, pver, wire.MainNet))
		require.NoError(t, err)
	}

	feedInv(invA, invB)
	feedInv(invB)
	feedInv(invB, invC)
	require.Len(t, delivered, 2)
	require.Equal(t, []*wire.InvVect{invA, invB}, delivered[0])
	require.Equal(t, []*wire.InvVect{invC}, delivered[1])

	// The limit of two entries evicted the least recently used one.
	require.False(t, d.IsKnownInventory(invA))
	require.True(t, d.IsKnownInventory(invC))

	// Receiving a transaction marks it known.
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(testHash(9), 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(1, nil))
	_, err := d.Feed(encode(t, tx, pver, wire.MainNet))
	require.NoError(t, err)
	txHash := tx.TxHash()
	require.True(t, d.IsKnownInventory(wire.NewInvVect(wire.InvTypeTx, &txHash)))
}

// TestQueueInventory ensures inventory announcements respect the known
// inventory cache and trickling.
func TestQueueInventory(t *testing.T) {
	t.Parallel()

	var writes int
	d := NewDispatcher(&Config{
		ChainNet:         wire.TestNet3,
		TrickleInventory: true,
		Listeners: MessageListeners{
			OnWrite: func(_ *Dispatcher, n int, _ wire.Message, err error) {
				require.NoError(t, err)
				require.NotZero(t, n)
				writes++
			},
		},
	})
	pver := d.ProtocolVersion()

	known := wire.NewInvVect(wire.InvTypeTx, testHash(1))
	d.AddKnownInventory(known)
	for i := byte(0); i < 5; i++ {
		buf, err := d.QueueInventory(wire.NewInvVect(wire.InvTypeTx,
			testHash(i)))
		require.NoError(t, err)
		require.Nil(t, buf)
	}
	buf, err := d.AnnounceBlock(testHash(1))
	require.NoError(t, err)
	require.Nil(t, buf)

	msgs, err := d.FlushInventory()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, 1, writes)

	msg, _, err := wire.ReadMessage(bytes.NewReader(msgs[0]), pver,
		wire.TestNet3)
	require.NoError(t, err)
	inv := msg.(*wire.MsgInv)
	require.Len(t, inv.InvList, 5)
	require.Equal(t, wire.InvTypeBlock, inv.InvList[4].Type)

	// Everything announced is now known so a second flush is empty.
	msgs, err = d.FlushInventory()
	require.NoError(t, err)
	require.Empty(t, msgs)

	// Without trickling each item is announced immediately.
	direct := NewDispatcher(&Config{ChainNet: wire.TestNet3})
	buf, err = direct.QueueInventory(known)
	require.NoError(t, err)
	msg, _, err = wire.ReadMessage(bytes.NewReader(buf), pver, wire.TestNet3)
	require.NoError(t, err)
	require.Equal(t, []*wire.InvVect{known}, msg.(*wire.MsgInv).InvList)

	buf, err = direct.QueueInventory(known)
	require.NoError(t, err)
	require.Nil(t, buf)
	require.NotZero(t, direct.StatsSnapshot().BytesSent)
}

// TestQueueRoundTrip ensures messages serialized by Queue are dispatched by a
// dispatcher on the other end.
func TestQueueRoundTrip(t *testing.T) {
	t.Parallel()

	var got *wire.MsgReject
	sender := NewDispatcher(&Config{ChainNet: wire.RegTest})
	receiver := NewDispatcher(&Config{
		ChainNet: wire.RegTest,
		Listeners: MessageListeners{
			OnReject: func(_ *Dispatcher, msg *wire.MsgReject) {
				got = msg
			},
		},
	})

	reject := wire.NewMsgReject(wire.CmdTx, wire.RejectMalformed, "bad")
	reject.Hash = *testHash(4)
	buf, err := sender.Queue(reject)
	require.NoError(t, err)

	n, err := receiver.Feed(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, reject, got)
}

// TestMessageSummary ensures the log summaries of a few messages are as
// expected.
func TestMessageSummary(t *testing.T) {
	t.Parallel()

	inv := wire.NewMsgInv()
	require.Equal(t, "empty", messageSummary(inv))
	require.NoError(t, inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, testHash(0))))
	require.Equal(t, "tx "+testHash(0).String(), messageSummary(inv))

	reject := wire.NewMsgReject("<b>x</b>", wire.RejectMalformed, "why")
	require.Equal(t, "cmd bx/b, code REJECT_MALFORMED, reason why",
		messageSummary(reject))

	require.Equal(t, "", messageSummary(wire.NewMsgVerAck()))
	require.Equal(t, "height 10", formatLockTime(10))
}
