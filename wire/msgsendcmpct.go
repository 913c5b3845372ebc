// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"
)

// MsgSendCmpct implements the Message interface and represents a bitcoin
// sendcmpct message (BIP0152).  It announces whether the sender wants new
// blocks pushed as compact blocks and which compact block version it speaks.
//
// This message was not added until protocol versions starting with
// SendCmpctVersion.
type MsgSendCmpct struct {
	// AnnounceUsingCmpctBlock requests new blocks be announced with
	// cmpctblock messages instead of inv or headers.
	AnnounceUsingCmpctBlock bool

	// CmpctBlockVersion is the compact block protocol version.
	CmpctBlockVersion uint64
}

// BtcDecode decodes r using the bitcoin protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgSendCmpct) BtcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	if pver < SendCmpctVersion {
		str := fmt.Sprintf("sendcmpct message invalid for protocol "+
			"version %d", pver)
		return messageError("MsgSendCmpct.BtcDecode", ErrSemanticFailure,
			str)
	}

	return readElements(r, &msg.AnnounceUsingCmpctBlock,
		&msg.CmpctBlockVersion)
}

// BtcEncode encodes the receiver to w using the bitcoin protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgSendCmpct) BtcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	if pver < SendCmpctVersion {
		str := fmt.Sprintf("sendcmpct message invalid for protocol "+
			"version %d", pver)
		return messageError("MsgSendCmpct.BtcEncode", ErrSemanticFailure,
			str)
	}

	return writeElements(w, msg.AnnounceUsingCmpctBlock,
		msg.CmpctBlockVersion)
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgSendCmpct) Command() string {
	return CmdSendCmpct
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver.  This is part of the Message interface implementation.
func (msg *MsgSendCmpct) MaxPayloadLength(pver uint32) uint32 {
	// Announce flag 1 byte + version 8 bytes.
	return 9
}

// NewMsgSendCmpct returns a new bitcoin sendcmpct message that conforms to
// the Message interface.  See MsgSendCmpct for details.
func NewMsgSendCmpct(announce bool, version uint64) *MsgSendCmpct {
	return &MsgSendCmpct{
		AnnounceUsingCmpctBlock: announce,
		CmpctBlockVersion:       version,
	}
}
