package ecat

import (
	"encoding/binary"

	"github.com/opalrt/ecatcore/internal/config"
)

// Ethernet header field offsets, relative to the start of the frame.
const (
	ethDstOffset  = 0
	ethSrcOffset  = 6
	ethTypeOffset = 12
)

// Offsets within the EtherCAT payload, i.e. relative to the first byte
// after the 14-byte Ethernet header.
const (
	// ecatLengthOffset is where the 11-bit length field lives, packed
	// little-endian into the low 12 bits of the first 16-bit word
	// alongside a reserved bit and a 4-bit type field the core does not
	// interpret.
	ecatLengthOffset = 0
	ecatLengthMask   = 0x0FFF

	// ecatIndexOffset is the datagram index byte: 2 bytes of EtherCAT
	// header, one command byte, then the index.
	ecatIndexOffset = 3
)

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// buildEthHeader writes a broadcast-destination, EtherCAT-ethertype
// Ethernet header into buf[0:14], with the source MAC's second 16-bit
// word set to srcWord. The first and third words are conventional; only
// the second is ever read back by the redundancy classifier.
func buildEthHeader(buf []byte, srcWord uint16) {
	copy(buf[ethDstOffset:ethDstOffset+6], broadcastMAC[:])
	binary.BigEndian.PutUint16(buf[ethSrcOffset:ethSrcOffset+2], srcWord)
	binary.BigEndian.PutUint16(buf[ethSrcOffset+2:ethSrcOffset+4], srcWord)
	binary.BigEndian.PutUint16(buf[ethSrcOffset+4:ethSrcOffset+6], srcWord)
	binary.BigEndian.PutUint16(buf[ethTypeOffset:ethTypeOffset+2], config.EtherTypeECAT)
}

// setSrcWord rewrites only the second word of the source MAC, leaving the
// rest of the header (and any payload already staged after it) untouched.
func setSrcWord(buf []byte, srcWord uint16) {
	binary.BigEndian.PutUint16(buf[ethSrcOffset+2:ethSrcOffset+4], srcWord)
}

func srcWord(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[ethSrcOffset+2 : ethSrcOffset+4])
}

func ethType(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[ethTypeOffset : ethTypeOffset+2])
}

// ecatPayload returns the slice immediately following the Ethernet header.
func ecatPayload(frame []byte) []byte {
	return frame[config.EtherHeaderSize:]
}

func readLength(payload []byte) uint16 {
	return binary.LittleEndian.Uint16(payload[ecatLengthOffset:ecatLengthOffset+2]) & ecatLengthMask
}

func readDatagramIndex(payload []byte) byte {
	return payload[ecatIndexOffset]
}

func writeDatagramIndex(payload []byte, idx byte) {
	payload[ecatIndexOffset] = idx
}

// readWKC reads the little-endian 16-bit working counter that trails the
// datagram(s) at the given payload byte offset. The offset has no
// alignment guarantee, so this must never be expressed as a pointer cast.
func readWKC(payload []byte, offset uint16) uint16 {
	return uint16(payload[offset]) | uint16(payload[offset+1])<<8
}
