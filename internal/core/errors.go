// Package core defines sentinel errors.
package core

import "errors"

var (
	// Packet decoding errors
	ErrPacketTooShort   = errors.New("hop: packet too short")
	ErrUnsupportedProto = errors.New("hop: unsupported protocol")
	ErrIPv4Options      = errors.New("hop: ipv4 options not supported")
	ErrMalformedHeader  = errors.New("hop: malformed header")

	// Link errors
	ErrRecvTimeout         = errors.New("hop: receive timed out")
	ErrInterfaceNotFound   = errors.New("hop: interface not found")
	ErrNoInterfaces        = errors.New("hop: no interfaces matched")
	ErrUnsupportedPlatform = errors.New("hop: raw sockets not supported on this platform")

	// Forwarding errors
	ErrARPTimeout = errors.New("hop: arp resolution timed out")
	ErrNoRoute    = errors.New("hop: no route to destination")

	// Configuration errors
	ErrConfigInvalid = errors.New("hop: invalid configuration")
	ErrRouteSyntax   = errors.New("hop: invalid routing table entry")
)
