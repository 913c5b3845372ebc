// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgSendAddrV2 is sent during the handshake, before verack, to say the sender
// accepts addrv2 gossip (BIP155).  It has an empty payload and requires
// AddrV2Version.
type MsgSendAddrV2 struct{}

// BtcDecode implements the Message interface.
func (msg *MsgSendAddrV2) BtcDecode(r io.Reader, pver uint32, enc MessageEncoding) error {
	return checkIntroduced("MsgSendAddrV2.BtcDecode", CmdSendAddrV2, pver,
		AddrV2Version)
}

// BtcEncode implements the Message interface.
func (msg *MsgSendAddrV2) BtcEncode(w io.Writer, pver uint32, enc MessageEncoding) error {
	return checkIntroduced("MsgSendAddrV2.BtcEncode", CmdSendAddrV2, pver,
		AddrV2Version)
}

// Command implements the Message interface.
func (msg *MsgSendAddrV2) Command() string {
	return CmdSendAddrV2
}

// MaxPayloadLength implements the Message interface.  Any payload is too long.
func (msg *MsgSendAddrV2) MaxPayloadLength(pver uint32) uint32 {
	return 0
}

// NewMsgSendAddrV2 returns an empty sendaddrv2 message.
func NewMsgSendAddrV2() *MsgSendAddrV2 {
	return &MsgSendAddrV2{}
}
