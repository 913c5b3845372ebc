// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the bitcoin wire protocol.

At a high level, this package provides support for marshalling and
unmarshalling supported bitcoin messages to and from the wire.  This package
does not deal with the specifics of message handling such as what to do when
a message is received.  This provides the caller with a high level of
flexibility.

# Message Overview

The bitcoin protocol consists of exchanging messages between peers.  Each
message is preceded by a header which identifies information about it such as
which bitcoin network it is a part of, its type, how big it is, and a checksum
to verify validity.  All encoding and decoding of message headers is handled
by this package.

To accomplish this, there is a generic interface for bitcoin messages named
Message which allows messages of any type to be read, written, or passed
around through channels, functions, etc.  In addition, concrete
implementations of most of the currently supported bitcoin messages are
provided.  For these supported messages, all of the details of marshalling
and unmarshalling to and from the wire using bitcoin encoding are handled so
the caller doesn't have to concern themselves with the specifics.

# Reading Messages

In order to unmarshal bitcoin messages from the wire, use the ReadMessage
function.  It accepts any io.Reader, but typically this will be a net.Conn
to a remote node running a bitcoin peer.  Transports which already hold a
complete buffer can use DecodeMessage instead.  Example syntax is:

	// Reads and validates the next bitcoin message from conn using the
	// protocol version pver and the bitcoin network btcnet.  The returns
	// are a wire.Message, a []byte which contains the unmarshalled
	// raw payload, and a possible error.
	msg, rawPayload, err := wire.ReadMessage(conn, pver, btcnet)
	if err != nil {
		// Log and handle the error
	}

# Writing Messages

In order to marshal bitcoin messages to the wire, use the WriteMessage
function.  It accepts any io.Writer, but typically this will be a net.Conn
to a remote node running a bitcoin peer.

# Errors

Errors returned by this package are either the raw errors provided by
underlying calls to read/write from streams such as io.EOF,
io.ErrUnexpectedEOF, and io.ErrShortWrite, or of type wire.MessageError.  A
MessageError carries an ErrorKind which separates truncated input, malformed
fields, exceeded limits and semantic failures such as a bad checksum.  Use
IsErrorKind to classify either form.
*/
package wire
