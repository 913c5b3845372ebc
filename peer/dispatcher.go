// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coinframe/btcproto/chainhash"
	"github.com/coinframe/btcproto/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/lru"
)

const (
	// MaxProtocolVersion is the max protocol version the dispatcher
	// supports.
	MaxProtocolVersion = wire.ProtocolVersion

	// DefaultKnownInventory is the default number of inventory items
	// remembered per dispatcher when Config.MaxKnownInventory is zero.
	DefaultKnownInventory = 1000

	// minAcceptableProtocolVersion is the lowest protocol version that a
	// connected peer may support.
	minAcceptableProtocolVersion = wire.MultipleAddressVersion
)

var (
	// ErrDuplicateVersion is returned by Feed when the remote peer sends a
	// second version message.
	ErrDuplicateVersion = errors.New("version already received")

	// ErrDuplicateVerAck is returned by Feed when the remote peer sends a
	// second verack message.
	ErrDuplicateVerAck = errors.New("verack already received")

	// ErrOldProtocolVersion is returned by Feed when the remote peer
	// advertises a protocol version below the minimum supported one.
	ErrOldProtocolVersion = errors.New("protocol version too old")
)

// MessageListeners defines callback function pointers to invoke with message
// listeners for a dispatcher.  Any listener which is not set to a concrete
// callback during dispatcher initialization is ignored.  Execution of multiple
// message listeners occurs serially, in the order the messages appear in the
// buffer handed to Feed.
//
// NOTE: The listeners are invoked from within Feed, so they must not call Feed
// on the same dispatcher.
type MessageListeners struct {
	// OnGetAddr is invoked when a getaddr bitcoin message is received.
	OnGetAddr func(d *Dispatcher, msg *wire.MsgGetAddr)

	// OnAddr is invoked when an addr bitcoin message is received.
	OnAddr func(d *Dispatcher, msg *wire.MsgAddr)

	// OnPing is invoked when a ping bitcoin message is received.
	OnPing func(d *Dispatcher, msg *wire.MsgPing)

	// OnPong is invoked when a pong bitcoin message is received.
	OnPong func(d *Dispatcher, msg *wire.MsgPong)

	// OnMemPool is invoked when a mempool bitcoin message is received.
	OnMemPool func(d *Dispatcher, msg *wire.MsgMemPool)

	// OnTx is invoked when a tx bitcoin message is received.
	OnTx func(d *Dispatcher, msg *wire.MsgTx)

	// OnBlock is invoked when a block bitcoin message is received.  The
	// raw payload bytes are passed along with the decoded block.
	OnBlock func(d *Dispatcher, msg *wire.MsgBlock, buf []byte)

	// OnInv is invoked when an inv bitcoin message is received.  Entries
	// already known to the dispatcher are removed before the callback and
	// it is not invoked at all when nothing new remains.
	OnInv func(d *Dispatcher, msg *wire.MsgInv)

	// OnHeaders is invoked when a headers bitcoin message is received.
	OnHeaders func(d *Dispatcher, msg *wire.MsgHeaders)

	// OnNotFound is invoked when a notfound bitcoin message is received.
	OnNotFound func(d *Dispatcher, msg *wire.MsgNotFound)

	// OnGetData is invoked when a getdata bitcoin message is received.
	OnGetData func(d *Dispatcher, msg *wire.MsgGetData)

	// OnGetBlocks is invoked when a getblocks bitcoin message is received.
	OnGetBlocks func(d *Dispatcher, msg *wire.MsgGetBlocks)

	// OnGetHeaders is invoked when a getheaders bitcoin message is
	// received.
	OnGetHeaders func(d *Dispatcher, msg *wire.MsgGetHeaders)

	// OnFeeFilter is invoked when a feefilter bitcoin message is received.
	OnFeeFilter func(d *Dispatcher, msg *wire.MsgFeeFilter)

	// OnFilterAdd is invoked when a filteradd bitcoin message is received.
	OnFilterAdd func(d *Dispatcher, msg *wire.MsgFilterAdd)

	// OnFilterClear is invoked when a filterclear bitcoin message is
	// received.
	OnFilterClear func(d *Dispatcher, msg *wire.MsgFilterClear)

	// OnFilterLoad is invoked when a filterload bitcoin message is
	// received.
	OnFilterLoad func(d *Dispatcher, msg *wire.MsgFilterLoad)

	// OnMerkleBlock  is invoked when a merkleblock bitcoin message is
	// received.
	OnMerkleBlock func(d *Dispatcher, msg *wire.MsgMerkleBlock)

	// OnVersion is invoked when a version bitcoin message is received.
	OnVersion func(d *Dispatcher, msg *wire.MsgVersion)

	// OnVerAck is invoked when a verack bitcoin message is received.
	OnVerAck func(d *Dispatcher, msg *wire.MsgVerAck)

	// OnReject is invoked when a reject bitcoin message is received.
	OnReject func(d *Dispatcher, msg *wire.MsgReject)

	// OnSendHeaders is invoked when a sendheaders bitcoin message is
	// received.
	OnSendHeaders func(d *Dispatcher, msg *wire.MsgSendHeaders)

	// OnSendCmpct is invoked when a sendcmpct bitcoin message is received.
	OnSendCmpct func(d *Dispatcher, msg *wire.MsgSendCmpct)

	// OnWTxIdRelay is invoked when a wtxidrelay bitcoin message is
	// received.
	OnWTxIdRelay func(d *Dispatcher, msg *wire.MsgWTxIdRelay)

	// OnSendAddrV2 is invoked when a sendaddrv2 bitcoin message is
	// received.
	OnSendAddrV2 func(d *Dispatcher, msg *wire.MsgSendAddrV2)

	// OnRead is invoked for every message Feed attempts to decode.  It
	// consists of the number of bytes read, the message, and whether or not
	// an error in the read occurred.  It is not invoked for an incomplete
	// trailing message.
	OnRead func(d *Dispatcher, bytesRead int, msg wire.Message, err error)

	// OnWrite is invoked when a message is serialized by Queue.  It
	// consists of the number of bytes written, the message, and whether or
	// not an error in the write occurred.
	OnWrite func(d *Dispatcher, bytesWritten int, msg wire.Message, err error)
}

// Config is the struct to hold configuration options useful to Dispatcher.
type Config struct {
	// ChainNet identifies the network magic the dispatcher frames and
	// expects messages with.  This field can be omitted in which case the
	// main network will be used.
	ChainNet wire.BitcoinNet

	// ProtocolVersion specifies the maximum protocol version to use.  This
	// field can be omitted in which case peer.MaxProtocolVersion will be
	// used.  The version negotiated with the remote peer never exceeds it.
	ProtocolVersion uint32

	// Addr is a label for the remote end used in log output.
	Addr string

	// Inbound marks the remote end as having connected to us.  It only
	// affects log output.
	Inbound bool

	// TrickleInventory batches inventory passed to QueueInventory until
	// FlushInventory is called instead of announcing each item on its own.
	TrickleInventory bool

	// MaxKnownInventory bounds the number of inventory items remembered
	// as known to the remote peer.  Zero selects DefaultKnownInventory.
	MaxKnownInventory uint

	// Listeners houses callback functions to be invoked on receiving peer
	// messages.
	Listeners MessageListeners
}

// StatsSnap is a snapshot of dispatcher stats at a point in time.
type StatsSnap struct {
	BytesSent       uint64
	BytesReceived   uint64
	MsgsReceived    uint64
	LastSend        time.Time
	LastRecv        time.Time
	ProtocolVersion uint32
	VersionKnown    bool
	VerAckReceived  bool
}

// Dispatcher turns bytes received from a remote bitcoin peer into decoded
// messages and routes each one to the configured listeners.  It owns no
// connection: the transport hands complete buffers to Feed and sends the bytes
// returned by Queue.
type Dispatcher struct {
	cfg Config

	knownInventory lru.Cache

	statsMtx       sync.RWMutex
	bytesReceived  uint64
	bytesSent      uint64
	msgsReceived   uint64
	lastRecv       time.Time
	lastSend       time.Time
	protocolVer    uint32
	versionKnown   bool
	verAckReceived bool
	remoteVersion  *wire.MsgVersion

	invMtx     sync.Mutex
	pendingInv []*wire.InvVect
}

// NewDispatcher returns a dispatcher for the passed configuration.
func NewDispatcher(cfg *Config) *Dispatcher {
	// Set the chain parameters and protocol version to defaults if the
	// caller did not specify them.
	c := *cfg
	if c.ChainNet == 0 {
		c.ChainNet = wire.MainNet
	}
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = MaxProtocolVersion
	}
	knownLimit := c.MaxKnownInventory
	if knownLimit == 0 {
		knownLimit = DefaultKnownInventory
	}

	return &Dispatcher{
		cfg:            c,
		knownInventory: lru.NewCache(knownLimit),
		protocolVer:    c.ProtocolVersion,
	}
}

// String returns the dispatcher's remote address and directionality as a
// human-readable string.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("%s (%s)", d.cfg.Addr, directionString(d.cfg.Inbound))
}

// ProtocolVersion returns the negotiated protocol version.
//
// This function is safe for concurrent access.
func (d *Dispatcher) ProtocolVersion() uint32 {
	d.statsMtx.RLock()
	protocolVersion := d.protocolVer
	d.statsMtx.RUnlock()

	return protocolVersion
}

// RemoteVersion returns the version message received from the remote peer, or
// nil if none has been received yet.
//
// This function is safe for concurrent access.
func (d *Dispatcher) RemoteVersion() *wire.MsgVersion {
	d.statsMtx.RLock()
	msg := d.remoteVersion
	d.statsMtx.RUnlock()

	return msg
}

// StatsSnapshot returns a snapshot of the current dispatcher stats.
//
// This function is safe for concurrent access.
func (d *Dispatcher) StatsSnapshot() *StatsSnap {
	d.statsMtx.RLock()
	defer d.statsMtx.RUnlock()

	return &StatsSnap{
		BytesSent:       d.bytesSent,
		BytesReceived:   d.bytesReceived,
		MsgsReceived:    d.msgsReceived,
		LastSend:        d.lastSend,
		LastRecv:        d.lastRecv,
		ProtocolVersion: d.protocolVer,
		VersionKnown:    d.versionKnown,
		VerAckReceived:  d.verAckReceived,
	}
}

// AddKnownInventory adds the passed inventory to the cache of known inventory
// for the remote peer.
//
// This function is safe for concurrent access.
func (d *Dispatcher) AddKnownInventory(invVect *wire.InvVect) {
	d.knownInventory.Add(*invVect)
}

// IsKnownInventory returns whether the passed inventory is known to the remote
// peer.
//
// This function is safe for concurrent access.
func (d *Dispatcher) IsKnownInventory(invVect *wire.InvVect) bool {
	return d.knownInventory.Contains(*invVect)
}

// Feed decodes every complete message held in buf and dispatches each one to
// the configured listeners in order.  It returns the number of bytes consumed.
// An incomplete trailing message is not consumed so the transport can hand it
// back with more data on the next call.  Any other decode or protocol error
// stops processing and is returned along with the bytes consumed before the
// offending message; deciding what to do with the connection is left to the
// transport.
func (d *Dispatcher) Feed(buf []byte) (int, error) {
	consumed := 0
	for consumed < len(buf) {
		pver := d.ProtocolVersion()
		if !d.frameComplete(buf[consumed:], pver) {
			log.Tracef("Waiting for the rest of a message from %s "+
				"(%d bytes buffered)", d, len(buf)-consumed)
			break
		}

		r := bytes.NewReader(buf[consumed:])
		n, msg, payload, err := wire.ReadMessageN(r, pver, d.cfg.ChainNet)

		d.statsMtx.Lock()
		d.bytesReceived += uint64(n)
		d.statsMtx.Unlock()
		if d.cfg.Listeners.OnRead != nil {
			d.cfg.Listeners.OnRead(d, n, msg, err)
		}
		if err != nil {
			log.Debugf("Cannot read message from %s: %v", d, err)
			return consumed, err
		}
		consumed += n

		d.logMessage("Received", "from", msg, payload)
		if err := d.handleMessage(msg, payload); err != nil {
			return consumed, err
		}
	}

	return consumed, nil
}

// frameComplete returns false when buf starts with a truncated header or with a
// valid header whose declared payload has not fully arrived.  The payload is
// not decoded or buffered until it is complete.  Malformed headers report true
// so the full read surfaces their error.
func (d *Dispatcher) frameComplete(buf []byte, pver uint32) bool {
	r := bytes.NewReader(buf)
	_, hdr, err := wire.ReadMessageHeader(r, d.cfg.ChainNet)
	if err != nil {
		return !wire.IsErrorKind(err, wire.ErrStreamTruncated)
	}
	if err := hdr.CheckPayloadLength(pver); err != nil {
		return true
	}
	return uint64(r.Len()) >= uint64(hdr.Length)
}

// logMessage logs the passed message at debug level and its contents at trace
// level.
func (d *Dispatcher) logMessage(verb, preposition string, msg wire.Message,
	payload []byte) {

	// Use closures to log expensive operations so they are only run when
	// the logging level requires it.
	log.Debugf("%v", newLogClosure(func() string {
		// Debug summary of message.
		summary := messageSummary(msg)
		if len(summary) > 0 {
			summary = " (" + summary + ")"
		}
		return fmt.Sprintf("%s %v%s %s %s", verb, msg.Command(),
			summary, preposition, d)
	}))
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(msg)
	}))
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(payload)
	}))
}

// handleVersionMsg records the remote version and negotiates the protocol
// version down to the lower of the two sides.
func (d *Dispatcher) handleVersionMsg(msg *wire.MsgVersion) error {
	if msg.ProtocolVersion < int32(minAcceptableProtocolVersion) {
		return fmt.Errorf("%w: %d, minimum %d", ErrOldProtocolVersion,
			msg.ProtocolVersion, minAcceptableProtocolVersion)
	}

	d.statsMtx.Lock()
	defer d.statsMtx.Unlock()

	if d.versionKnown {
		return ErrDuplicateVersion
	}
	d.versionKnown = true
	d.remoteVersion = msg
	if uint32(msg.ProtocolVersion) < d.protocolVer {
		d.protocolVer = uint32(msg.ProtocolVersion)
	}
	log.Debugf("Negotiated protocol version %d for peer %s",
		d.protocolVer, d)

	return nil
}

// handleVerAckMsg records the verack from the remote peer.
func (d *Dispatcher) handleVerAckMsg() error {
	d.statsMtx.Lock()
	defer d.statsMtx.Unlock()

	if d.verAckReceived {
		return ErrDuplicateVerAck
	}
	d.verAckReceived = true

	return nil
}

// filterKnownInventory returns the entries of invList the remote peer is not
// already known to have and marks them as known.
func (d *Dispatcher) filterKnownInventory(invList []*wire.InvVect) []*wire.InvVect {
	fresh := make([]*wire.InvVect, 0, len(invList))
	for _, iv := range invList {
		if d.knownInventory.Contains(*iv) {
			continue
		}
		d.knownInventory.Add(*iv)
		fresh = append(fresh, iv)
	}
	return fresh
}

// handleMessage routes a decoded message to the matching listener.
func (d *Dispatcher) handleMessage(rmsg wire.Message, payload []byte) error {
	d.statsMtx.Lock()
	d.lastRecv = time.Now()
	d.msgsReceived++
	d.statsMtx.Unlock()

	// Handle each supported message type.
	listeners := &d.cfg.Listeners
	switch msg := rmsg.(type) {
	case *wire.MsgVersion:
		if err := d.handleVersionMsg(msg); err != nil {
			return err
		}
		if listeners.OnVersion != nil {
			listeners.OnVersion(d, msg)
		}
	case *wire.MsgVerAck:
		if err := d.handleVerAckMsg(); err != nil {
			return err
		}
		if listeners.OnVerAck != nil {
			listeners.OnVerAck(d, msg)
		}
	case *wire.MsgGetAddr:
		if listeners.OnGetAddr != nil {
			listeners.OnGetAddr(d, msg)
		}
	case *wire.MsgAddr:
		if listeners.OnAddr != nil {
			listeners.OnAddr(d, msg)
		}
	case *wire.MsgPing:
		if listeners.OnPing != nil {
			listeners.OnPing(d, msg)
		}
	case *wire.MsgPong:
		if listeners.OnPong != nil {
			listeners.OnPong(d, msg)
		}
	case *wire.MsgMemPool:
		if listeners.OnMemPool != nil {
			listeners.OnMemPool(d, msg)
		}
	case *wire.MsgTx:
		txHash := msg.TxHash()
		d.AddKnownInventory(wire.NewInvVect(wire.InvTypeTx, &txHash))
		if listeners.OnTx != nil {
			listeners.OnTx(d, msg)
		}
	case *wire.MsgBlock:
		blockHash := msg.BlockHash()
		d.AddKnownInventory(wire.NewInvVect(wire.InvTypeBlock, &blockHash))
		if listeners.OnBlock != nil {
			listeners.OnBlock(d, msg, payload)
		}
	case *wire.MsgInv:
		fresh := d.filterKnownInventory(msg.InvList)
		if len(fresh) == 0 {
			log.Tracef("Ignoring inv with only known entries from %s", d)
			break
		}
		msg.InvList = fresh
		if listeners.OnInv != nil {
			listeners.OnInv(d, msg)
		}
	case *wire.MsgHeaders:
		if listeners.OnHeaders != nil {
			listeners.OnHeaders(d, msg)
		}
	case *wire.MsgNotFound:
		if listeners.OnNotFound != nil {
			listeners.OnNotFound(d, msg)
		}
	case *wire.MsgGetData:
		if listeners.OnGetData != nil {
			listeners.OnGetData(d, msg)
		}
	case *wire.MsgGetBlocks:
		if listeners.OnGetBlocks != nil {
			listeners.OnGetBlocks(d, msg)
		}
	case *wire.MsgGetHeaders:
		if listeners.OnGetHeaders != nil {
			listeners.OnGetHeaders(d, msg)
		}
	case *wire.MsgFeeFilter:
		if listeners.OnFeeFilter != nil {
			listeners.OnFeeFilter(d, msg)
		}
	case *wire.MsgFilterAdd:
		if listeners.OnFilterAdd != nil {
			listeners.OnFilterAdd(d, msg)
		}
	case *wire.MsgFilterClear:
		if listeners.OnFilterClear != nil {
			listeners.OnFilterClear(d, msg)
		}
	case *wire.MsgFilterLoad:
		if listeners.OnFilterLoad != nil {
			listeners.OnFilterLoad(d, msg)
		}
	case *wire.MsgMerkleBlock:
		if listeners.OnMerkleBlock != nil {
			listeners.OnMerkleBlock(d, msg)
		}
	case *wire.MsgReject:
		if listeners.OnReject != nil {
			listeners.OnReject(d, msg)
		}
	case *wire.MsgSendHeaders:
		if listeners.OnSendHeaders != nil {
			listeners.OnSendHeaders(d, msg)
		}
	case *wire.MsgSendCmpct:
		if listeners.OnSendCmpct != nil {
			listeners.OnSendCmpct(d, msg)
		}
	case *wire.MsgWTxIdRelay:
		if listeners.OnWTxIdRelay != nil {
			listeners.OnWTxIdRelay(d, msg)
		}
	case *wire.MsgSendAddrV2:
		if listeners.OnSendAddrV2 != nil {
			listeners.OnSendAddrV2(d, msg)
		}
	default:
		log.Debugf("Received unhandled message of type %v from %s",
			rmsg.Command(), d)
	}
	return nil
}

// Queue serializes the passed message, framed for the configured network and
// negotiated protocol version, and returns the bytes for the transport to
// send.
func (d *Dispatcher) Queue(msg wire.Message) ([]byte, error) {
	d.logMessage("Sending", "to", msg, nil)

	var buf bytes.Buffer
	n, err := wire.WriteMessageN(&buf, msg, d.ProtocolVersion(),
		d.cfg.ChainNet)

	d.statsMtx.Lock()
	d.bytesSent += uint64(n)
	if err == nil {
		d.lastSend = time.Now()
	}
	d.statsMtx.Unlock()
	if d.cfg.Listeners.OnWrite != nil {
		d.cfg.Listeners.OnWrite(d, n, msg, err)
	}
	if err != nil {
		return nil, err
	}

	// Announcing inventory marks it known to the remote peer.
	if inv, ok := msg.(*wire.MsgInv); ok {
		for _, iv := range inv.InvList {
			d.AddKnownInventory(iv)
		}
	}

	return buf.Bytes(), nil
}

// QueueInventory adds the passed inventory to the announcements for the remote
// peer.  Inventory already known to the peer is ignored.  When trickling is
// disabled the returned bytes hold an inv message announcing only this item;
// otherwise nil is returned and the item waits for FlushInventory.
//
// This function is safe for concurrent access.
func (d *Dispatcher) QueueInventory(invVect *wire.InvVect) ([]byte, error) {
	// Don't add the inventory to the send queue if the peer is already
	// known to have it.
	if d.IsKnownInventory(invVect) {
		return nil, nil
	}

	if !d.cfg.TrickleInventory {
		invMsg := wire.NewMsgInvSizeHint(1)
		if err := invMsg.AddInvVect(invVect); err != nil {
			return nil, err
		}
		return d.Queue(invMsg)
	}

	d.invMtx.Lock()
	d.pendingInv = append(d.pendingInv, invVect)
	d.invMtx.Unlock()
	return nil, nil
}

// FlushInventory returns inv messages announcing every trickled inventory item
// that is still unknown to the remote peer, split so no message exceeds
// wire.MaxInvPerMsg entries.  It returns nothing when there is nothing to
// announce.
//
// This function is safe for concurrent access.
func (d *Dispatcher) FlushInventory() ([][]byte, error) {
	d.invMtx.Lock()
	pending := d.pendingInv
	d.pendingInv = nil
	d.invMtx.Unlock()

	var msgs [][]byte
	var invMsg *wire.MsgInv
	seen := make(map[wire.InvVect]struct{}, len(pending))
	for _, iv := range pending {
		if _, ok := seen[*iv]; ok || d.IsKnownInventory(iv) {
			continue
		}
		seen[*iv] = struct{}{}

		if invMsg == nil {
			invMsg = wire.NewMsgInvSizeHint(uint(len(pending)))
		}
		if err := invMsg.AddInvVect(iv); err != nil {
			return msgs, err
		}
		if len(invMsg.InvList) >= wire.MaxInvPerMsg {
			buf, err := d.Queue(invMsg)
			if err != nil {
				return msgs, err
			}
			msgs = append(msgs, buf)
			invMsg = nil
		}
	}
	if invMsg != nil && len(invMsg.InvList) > 0 {
		buf, err := d.Queue(invMsg)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, buf)
	}

	return msgs, nil
}

// AnnounceBlock is a convenience for queueing a block hash as inventory.
func (d *Dispatcher) AnnounceBlock(hash *chainhash.Hash) ([]byte, error) {
	return d.QueueInventory(wire.NewInvVect(wire.InvTypeBlock, hash))
}
