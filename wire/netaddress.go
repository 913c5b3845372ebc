// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"net"
	"time"
)

const (
	// netAddressBaseSize is the encoded size of a NetAddress without its
	// timestamp: services 8 bytes, IPv6 (or v4-mapped) address 16 bytes and
	// port 2 bytes.
	netAddressBaseSize = 8 + 16 + 2

	// netAddressTimeSize is the size of the uint32 timestamp prefix.
	netAddressTimeSize = 4
)

// hasNetAddressTime reports whether an address encoded at pver carries the
// last seen timestamp.  Addresses inside a version message never do.
func hasNetAddressTime(pver uint32, ts bool) bool {
	return ts && pver >= NetAddressTimeVersion
}

// maxNetAddressPayload returns the largest encoding of a timestamped NetAddress
// at pver.
func maxNetAddressPayload(pver uint32) uint32 {
	if hasNetAddressTime(pver, true) {
		return netAddressBaseSize + netAddressTimeSize
	}
	return netAddressBaseSize
}

// NetAddress is a peer address as it appears in addr and version messages.
type NetAddress struct {
	// Timestamp is when the address was last seen, with one second
	// precision.  It is sent as a uint32 so it wraps in 2106.
	Timestamp time.Time

	// Services advertised for the address.
	Services ServiceFlag

	// IP is sent as 16 bytes, with IPv4 addresses in mapped form.
	IP net.IP

	// Port is the only big endian integer in the message set.
	Port uint16
}

// HasService returns whether every bit of service is advertised.
func (na *NetAddress) HasService(service ServiceFlag) bool {
	return na.Services&service == service
}

// AddService advertises service in addition to the current services.
func (na *NetAddress) AddService(service ServiceFlag) {
	na.Services |= service
}

// NewNetAddressIPPort returns an address last seen now.
func NewNetAddressIPPort(ip net.IP, port uint16, services ServiceFlag) *NetAddress {
	return NewNetAddressTimestamp(time.Now(), services, ip, port)
}

// NewNetAddressTimestamp returns an address last seen at timestamp, truncated to
// whole seconds to match what survives a round trip.
func NewNetAddressTimestamp(timestamp time.Time, services ServiceFlag,
	ip net.IP, port uint16) *NetAddress {

	return &NetAddress{
		Timestamp: time.Unix(timestamp.Unix(), 0),
		Services:  services,
		IP:        ip,
		Port:      port,
	}
}

// readNetAddress decodes an address into na.  ts selects the addr message
// layout with its leading timestamp.
func readNetAddress(r io.Reader, pver uint32, na *NetAddress, ts bool) error {
	var decoded NetAddress
	if hasNetAddressTime(pver, ts) {
		err := readElement(r, (*uint32Time)(&decoded.Timestamp))
		if err != nil {
			return err
		}
	}

	var ip [16]byte
	if err := readElements(r, &decoded.Services, &ip); err != nil {
		return err
	}
	port, err := binarySerializer.Uint16(r, bigEndian)
	if err != nil {
		return err
	}

	decoded.IP = net.IP(ip[:])
	decoded.Port = port
	*na = decoded
	return nil
}

// writeNetAddress encodes na, with its timestamp when ts is set.  A nil IP is
// written as sixteen zero bytes.
func writeNetAddress(w io.Writer, pver uint32, na *NetAddress, ts bool) error {
	if hasNetAddressTime(pver, ts) {
		err := writeElement(w, uint32(na.Timestamp.Unix()))
		if err != nil {
			return err
		}
	}

	var ip [16]byte
	if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if err := writeElements(w, na.Services, ip); err != nil {
		return err
	}
	return binarySerializer.PutUint16(w, bigEndian, na.Port)
}
