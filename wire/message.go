// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/coinframe/btcproto/chainhash"
)

// MessageHeaderSize is the number of bytes in a bitcoin message header.
// Bitcoin network (magic) 4 bytes + command 12 bytes + payload length 4 bytes +
// checksum 4 bytes.
const MessageHeaderSize = 24

// CommandSize is the fixed size of all commands in the common bitcoin message
// header.  Shorter commands must be zero padded.
const CommandSize = 12

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = (1024 * 1024 * 32) // 32MB

// Commands used in bitcoin message headers which describe the type of message.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdGetAddr     = "getaddr"
	CmdAddr        = "addr"
	CmdGetBlocks   = "getblocks"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdBlock       = "block"
	CmdTx          = "tx"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdMemPool     = "mempool"
	CmdFilterAdd   = "filteradd"
	CmdFilterClear = "filterclear"
	CmdFilterLoad  = "filterload"
	CmdMerkleBlock = "merkleblock"
	CmdReject      = "reject"
	CmdSendHeaders = "sendheaders"
	CmdFeeFilter   = "feefilter"
	CmdSendCmpct   = "sendcmpct"
	CmdWTxIdRelay  = "wtxidrelay"
	CmdSendAddrV2  = "sendaddrv2"
)

// MessageEncoding represents the wire message encoding format to be used.
type MessageEncoding uint32

const (
	// BaseEncoding encodes all messages in the default format specified
	// for the Bitcoin wire protocol.
	BaseEncoding MessageEncoding = 1 << iota

	// WitnessEncoding encodes all messages other than transaction messages
	// using the default Bitcoin wire encoding. For transaction
	// messages, the new encoding format detailed in BIP0144 will be used.
	WitnessEncoding
)

// LatestEncoding is the most recently specified encoding for the Bitcoin wire
// protocol.
var LatestEncoding = WitnessEncoding

// Message is an interface that describes a bitcoin message.  A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	BtcDecode(io.Reader, uint32, MessageEncoding) error
	BtcEncode(io.Writer, uint32, MessageEncoding) error
	Command() string
	MaxPayloadLength(uint32) uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message
	switch command {
	case CmdVersion:
		msg = &MsgVersion{}

	case CmdVerAck:
		msg = &MsgVerAck{}

	case CmdGetAddr:
		msg = &MsgGetAddr{}

	case CmdAddr:
		msg = &MsgAddr{}

	case CmdGetBlocks:
		msg = &MsgGetBlocks{}

	case CmdBlock:
		msg = &MsgBlock{}

	case CmdInv:
		msg = &MsgInv{}

	case CmdGetData:
		msg = &MsgGetData{}

	case CmdNotFound:
		msg = &MsgNotFound{}

	case CmdTx:
		msg = &MsgTx{}

	case CmdPing:
		msg = &MsgPing{}

	case CmdPong:
		msg = &MsgPong{}

	case CmdGetHeaders:
		msg = &MsgGetHeaders{}

	case CmdHeaders:
		msg = &MsgHeaders{}

	case CmdMemPool:
		msg = &MsgMemPool{}

	case CmdFilterAdd:
		msg = &MsgFilterAdd{}

	case CmdFilterClear:
		msg = &MsgFilterClear{}

	case CmdFilterLoad:
		msg = &MsgFilterLoad{}

	case CmdMerkleBlock:
		msg = &MsgMerkleBlock{}

	case CmdReject:
		msg = &MsgReject{}

	case CmdSendHeaders:
		msg = &MsgSendHeaders{}

	case CmdFeeFilter:
		msg = &MsgFeeFilter{}

	case CmdSendCmpct:
		msg = &MsgSendCmpct{}

	case CmdWTxIdRelay:
		msg = &MsgWTxIdRelay{}

	case CmdSendAddrV2:
		msg = &MsgSendAddrV2{}

	default:
		str := fmt.Sprintf("undefined payload for command %q", command)
		return nil, messageError("makeEmptyMessage", ErrFormatViolation,
			str)
	}
	return msg, nil
}

// MessageHeader defines the header structure for all bitcoin protocol
// messages.
type MessageHeader struct {
	Net      BitcoinNet // 4 bytes
	Command  string     // 12 bytes
	Length   uint32     // 4 bytes
	Checksum [4]byte    // 4 bytes
}

// CheckPayloadLength returns an error when the length declared by the header
// exceeds the maximum payload of its message type at protocol version pver.
func (hdr *MessageHeader) CheckPayloadLength(pver uint32) error {
	_, err := hdr.checkPayloadLength(pver)
	return err
}

// checkPayloadLength is CheckPayloadLength returning the empty message for the
// header command on success.
func (hdr *MessageHeader) checkPayloadLength(pver uint32) (Message, error) {
	msg, err := makeEmptyMessage(hdr.Command)
	if err != nil {
		return nil, err
	}

	mpl := msg.MaxPayloadLength(pver)
	if hdr.Length > mpl {
		str := fmt.Sprintf("payload exceeds max length - header "+
			"indicates %v bytes, but max payload size for "+
			"messages of type [%v] is %v.", hdr.Length, hdr.Command, mpl)
		return nil, messageError("ReadMessage", ErrLimitExceeded, str)
	}
	return msg, nil
}

// parseCommand returns the command carried by a raw header command field.  The
// field must hold at least one printable ASCII character followed only by NUL
// padding.
func parseCommand(raw [CommandSize]byte) (string, bool) {
	end := bytes.IndexByte(raw[:], 0x00)
	if end == -1 {
		end = CommandSize
	}
	if end == 0 {
		return "", false
	}
	for _, c := range raw[:end] {
		if c < 0x20 || c > 0x7e {
			return "", false
		}
	}
	for _, c := range raw[end:] {
		if c != 0x00 {
			return "", false
		}
	}
	return string(raw[:end]), true
}

// ReadMessageHeader reads a bitcoin message header from r and validates it
// against the expected network.  The magic must match btcnet, the command must
// be a well formed name of a known payload, and the declared length must not
// exceed MaxMessagePayload.  The returned count is the number of bytes read.
func ReadMessageHeader(r io.Reader, btcnet BitcoinNet) (int, *MessageHeader, error) {
	// Since readElements doesn't return the amount of bytes read, attempt
	// to read the entire header into a buffer first in case there is a
	// short read so the proper amount of read bytes are known.  This works
	// since the header is a fixed size.
	var headerBytes [MessageHeaderSize]byte
	n, err := io.ReadFull(r, headerBytes[:])
	if err != nil {
		return n, nil, truncationError("ReadMessageHeader", err)
	}
	hr := bytes.NewReader(headerBytes[:])

	// Create and populate a MessageHeader struct from the raw header bytes.
	// The reads can't fail since the buffer holds a complete header.
	hdr := MessageHeader{}
	var command [CommandSize]byte
	readElements(hr, &hdr.Net, &command, &hdr.Length, &hdr.Checksum)

	if hdr.Net != btcnet {
		str := fmt.Sprintf("invalid network magic %08x [want %08x]",
			uint32(hdr.Net), uint32(btcnet))
		return n, nil, messageError("ReadMessageHeader",
			ErrFormatViolation, str)
	}

	cmd, ok := parseCommand(command)
	if !ok {
		str := fmt.Sprintf("invalid command name %x", command[:])
		return n, nil, messageError("ReadMessageHeader",
			ErrFormatViolation, str)
	}
	hdr.Command = cmd
	if _, err := makeEmptyMessage(cmd); err != nil {
		return n, nil, err
	}

	// Enforce maximum message payload.
	if hdr.Length > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - header "+
			"indicates %d bytes, but max message payload is %d "+
			"bytes.", hdr.Length, MaxMessagePayload)
		return n, nil, messageError("ReadMessageHeader",
			ErrLimitExceeded, str)
	}

	return n, &hdr, nil
}

// discardInput reads n bytes from reader r in chunks and discards the read
// bytes.  This is used to skip payloads when various errors occur and helps
// prevent rogue nodes from causing massive memory allocation through forging
// header length.
func discardInput(r io.Reader, n uint32) {
	maxSize := uint32(10 * 1024) // 10k at a time
	numReads := n / maxSize
	bytesRemaining := n % maxSize
	if n > 0 {
		buf := make([]byte, maxSize)
		for i := uint32(0); i < numReads; i++ {
			io.ReadFull(r, buf)
		}
	}
	if bytesRemaining > 0 {
		buf := make([]byte, bytesRemaining)
		io.ReadFull(r, buf)
	}
}

// WriteMessageN writes a bitcoin Message to w including the necessary header
// information and returns the number of bytes written.    This function is the
// same as WriteMessage except it also returns the number of bytes written.
func WriteMessageN(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) (int, error) {
	return WriteMessageWithEncodingN(w, msg, pver, btcnet, BaseEncoding)
}

// WriteMessage writes a bitcoin Message to w including the necessary header
// information.  This function is the same as WriteMessageN except it doesn't
// doesn't return the number of bytes written.
func WriteMessage(w io.Writer, msg Message, pver uint32, btcnet BitcoinNet) error {
	_, err := WriteMessageN(w, msg, pver, btcnet)
	return err
}

// WriteMessageWithEncodingN writes a bitcoin Message to w including the
// necessary header information and returns the number of bytes written.
// This function is the same as WriteMessageN except it also allows the caller
// to specify the message encoding format to be used when serializing wire
// messages.
func WriteMessageWithEncodingN(w io.Writer, msg Message, pver uint32,
	btcnet BitcoinNet, encoding MessageEncoding) (int, error) {

	totalBytes := 0

	// Enforce max command size.
	var command [CommandSize]byte
	cmd := msg.Command()
	if len(cmd) > CommandSize {
		str := fmt.Sprintf("command [%s] is too long [max %v]",
			cmd, CommandSize)
		return totalBytes, messageError("WriteMessage",
			ErrLimitExceeded, str)
	}
	copy(command[:], []byte(cmd))
	if _, ok := parseCommand(command); !ok {
		str := fmt.Sprintf("invalid command name %q", cmd)
		return totalBytes, messageError("WriteMessage",
			ErrFormatViolation, str)
	}

	// Encode the message payload.
	var bw bytes.Buffer
	err := msg.BtcEncode(&bw, pver, encoding)
	if err != nil {
		return totalBytes, err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	// Enforce maximum overall message payload.
	if lenp > MaxMessagePayload {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload is %d bytes",
			lenp, MaxMessagePayload)
		return totalBytes, messageError("WriteMessage",
			ErrLimitExceeded, str)
	}

	// Enforce maximum message payload based on the message type.
	mpl := msg.MaxPayloadLength(pver)
	if uint32(lenp) > mpl {
		str := fmt.Sprintf("message payload is too large - encoded "+
			"%d bytes, but maximum message payload size for "+
			"messages of type [%s] is %d.", lenp, cmd, mpl)
		return totalBytes, messageError("WriteMessage",
			ErrLimitExceeded, str)
	}

	// Create header for the message.
	hdr := MessageHeader{}
	hdr.Net = btcnet
	hdr.Command = cmd
	hdr.Length = uint32(lenp)
	hdr.Checksum = chainhash.Checksum(payload)

	// Encode the header for the message.  This is done to a buffer
	// rather than directly to the writer since writeElements doesn't
	// return the number of bytes written.
	hw := bytes.NewBuffer(make([]byte, 0, MessageHeaderSize))
	writeElements(hw, hdr.Net, command, hdr.Length, hdr.Checksum)

	// Write header.
	n, err := w.Write(hw.Bytes())
	totalBytes += n
	if err != nil {
		return totalBytes, err
	}

	// Only write the payload if there is one, e.g., verack messages don't
	// have one.
	if len(payload) > 0 {
		n, err = w.Write(payload)
		totalBytes += n
	}

	return totalBytes, err
}

// ReadMessageWithEncodingN reads, validates, and parses the next bitcoin Message
// from r for the provided protocol version and bitcoin network.  It returns the
// number of bytes read in addition to the parsed Message and raw bytes which
// comprise the message.  This function is the same as ReadMessageN except it
// allows the caller to specify which message encoding is to to consult when
// decoding wire messages.
func ReadMessageWithEncodingN(r io.Reader, pver uint32, btcnet BitcoinNet,
	enc MessageEncoding) (int, Message, []byte, error) {

	totalBytes := 0
	n, hdr, err := ReadMessageHeader(r, btcnet)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, err
	}

	// Check for maximum length based on the message type as a malicious client
	// could otherwise create a well-formed header and set the length to max
	// numbers in order to exhaust the machine's memory.
	msg, err := hdr.checkPayloadLength(pver)
	if err != nil {
		discardInput(r, hdr.Length)
		return totalBytes, nil, nil, err
	}

	// Read payload.
	payload := make([]byte, hdr.Length)
	n, err = io.ReadFull(r, payload)
	totalBytes += n
	if err != nil {
		return totalBytes, nil, nil, truncationError("ReadMessage", err)
	}

	// Test checksum.
	checksum := chainhash.Checksum(payload)
	if checksum != hdr.Checksum {
		str := fmt.Sprintf("invalid checksum - header "+
			"indicates %x, but actual checksum is %x.",
			hdr.Checksum, checksum)
		return totalBytes, nil, nil, messageError("ReadMessage",
			ErrSemanticFailure, str)
	}

	// Unmarshal message.  A payload that runs out of bytes before its
	// fields are complete is shorter than its own contents claim, so it
	// is reported as a length mismatch rather than a truncated stream.
	pr := bytes.NewReader(payload)
	err = msg.BtcDecode(pr, pver, enc)
	if err != nil {
		if IsErrorKind(err, ErrStreamTruncated) {
			str := fmt.Sprintf("invalid payload length in header "+
				"- %s payload of %d bytes is incomplete: %v",
				hdr.Command, hdr.Length, err)
			return totalBytes, nil, nil, messageError("ReadMessage",
				ErrSemanticFailure, str)
		}
		return totalBytes, nil, nil, err
	}

	// The payload must be consumed exactly.
	if pr.Len() != 0 {
		str := fmt.Sprintf("invalid payload length in header - %s "+
			"payload left %d of %d bytes unread", hdr.Command,
			pr.Len(), hdr.Length)
		return totalBytes, nil, nil, messageError("ReadMessage",
			ErrSemanticFailure, str)
	}

	return totalBytes, msg, payload, nil
}

// ReadMessageN reads, validates, and parses the next bitcoin Message from r for
// the provided protocol version and bitcoin network.  It returns the number of
// bytes read in addition to the parsed Message and raw bytes which comprise the
// message.  This function is the same as ReadMessage except it also returns the
// number of bytes read.
func ReadMessageN(r io.Reader, pver uint32, btcnet BitcoinNet) (int, Message, []byte, error) {
	return ReadMessageWithEncodingN(r, pver, btcnet, BaseEncoding)
}

// ReadMessage reads, validates, and parses the next bitcoin Message from r for
// the provided protocol version and bitcoin network.  It returns the parsed
// Message and raw bytes which comprise the message.  This function only differs
// from ReadMessageN in that it doesn't return the number of bytes read.
func ReadMessage(r io.Reader, pver uint32, btcnet BitcoinNet) (Message, []byte, error) {
	_, msg, buf, err := ReadMessageN(r, pver, btcnet)
	return msg, buf, err
}

// DecodeMessage parses the first complete message held in buf and returns it
// along with the number of bytes it occupied.  A buffer that ends before the
// message does yields an ErrStreamTruncated error so a caller collecting bytes
// from a transport knows to wait for more.
func DecodeMessage(buf []byte, pver uint32, btcnet BitcoinNet,
	enc MessageEncoding) (Message, int, error) {

	n, msg, _, err := ReadMessageWithEncodingN(bytes.NewReader(buf), pver,
		btcnet, enc)
	if err != nil {
		return nil, n, err
	}
	return msg, n, nil
}

// EncodeMessage returns the complete framed encoding of msg.
func EncodeMessage(msg Message, pver uint32, btcnet BitcoinNet,
	enc MessageEncoding) ([]byte, error) {

	var buf bytes.Buffer
	_, err := WriteMessageWithEncodingN(&buf, msg, pver, btcnet, enc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
