// Package config holds the compile-time constants shared by the frame
// transport core: buffer counts, frame sizing, timeouts and the
// EtherCAT wire identifiers.
package config

import "time"

const (
	// MaxBuf is the number of outstanding frame indices the port can
	// track at once (EC_MAXBUF in the original driver).
	MaxBuf = 16

	// MaxECatFrame is the largest Ethernet frame the core will ever
	// build or accept (EC_MAXECATFRAME).
	MaxECatFrame = 1518

	// EtherHeaderSize is the size in bytes of an Ethernet II header:
	// 6 byte destination MAC, 6 byte source MAC, 2 byte ethertype.
	EtherHeaderSize = 14

	// EtherTypeECAT is the EtherCAT ethertype, carried in network byte
	// order on the wire.
	EtherTypeECAT = 0x88A4

	// TimeoutRetry bounds a single redundancy retransmit attempt
	// (EC_TIMEOUTRET), distinct from a caller's outer timeout.
	TimeoutRetry = 2000 * time.Microsecond

	// DefaultReadTimeout is the near-zero read timeout a raw link is
	// configured with so a receive call never blocks the calling
	// goroutine for longer than this.
	DefaultReadTimeout = 1 * time.Microsecond
)

// Route identifiers are carried in the second 16-bit word of the
// (fabricated) Ethernet source MAC and are the only signal the
// redundancy controller has for which physical path a frame traversed.
// The first and third words are conventional; only the second word is
// ever read.
var (
	PrimaryMAC   = [3]uint16{0x0101, 0x0101, 0x0101}
	SecondaryMAC = [3]uint16{0x0202, 0x0202, 0x0202}
)

// RXPrimary and RXSecondary are the route tags the redundancy
// classifier compares a received frame's source-MAC second word
// against.
var (
	RXPrimary   = PrimaryMAC[1]
	RXSecondary = SecondaryMAC[1]
)
