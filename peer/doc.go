// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package peer routes bitcoin network messages between a transport and the code
that handles them.

A Dispatcher does not own a connection.  The transport reads whatever bytes are
available and hands them to Feed, which decodes every complete message, routes
each to the matching callback in MessageListeners and reports how many bytes it
consumed.  An incomplete message at the end of the buffer is left for the next
call.  Decode failures are returned to the transport, which decides whether to
drop the connection.

Outbound messages are serialized with Queue, which returns the framed bytes for
the transport to write.  Inventory announcements go through QueueInventory and
are either sent immediately or batched until FlushInventory, depending on
Config.TrickleInventory.  Inventory the remote peer is known to have, because
it announced or sent it or because it was announced to it, is tracked in a
bounded LRU cache and filtered from both directions.

The version and verack messages are tracked so the dispatcher decodes with the
negotiated protocol version, and repeating either is an error.
*/
package peer
