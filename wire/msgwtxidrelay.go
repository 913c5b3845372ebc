// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgWTxIdRelay is sent during the handshake, before verack, to ask that
// transactions be announced by witness hash (BIP339).  It has an empty
// payload and requires WTxIdRelayVersion.
type MsgWTxIdRelay struct{}

// BtcDecode implements the Message interface.
func (msg *MsgWTxIdRelay) BtcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	return checkIntroduced("MsgWTxIdRelay.BtcDecode", CmdWTxIdRelay, pver,
		WTxIdRelayVersion)
}

// BtcEncode implements the Message interface.
func (msg *MsgWTxIdRelay) BtcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return checkIntroduced("MsgWTxIdRelay.BtcEncode", CmdWTxIdRelay, pver,
		WTxIdRelayVersion)
}

// Command implements the Message interface.
func (msg *MsgWTxIdRelay) Command() string {
	return CmdWTxIdRelay
}

// MaxPayloadLength implements the Message interface.  Any payload is too long.
func (msg *MsgWTxIdRelay) MaxPayloadLength(pver uint32) uint32 {
	return 0
}

// NewMsgWTxIdRelay returns an empty wtxidrelay message.
func NewMsgWTxIdRelay() *MsgWTxIdRelay {
	return &MsgWTxIdRelay{}
}
