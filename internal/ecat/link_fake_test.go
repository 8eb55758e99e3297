package ecat

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/opalrt/ecatcore/internal/config"
)

// fakeLink is an in-memory Link used across this package's tests: Write
// records every transmitted frame (optionally failing the first N calls,
// to exercise src_confirm's retry path) and Read delivers frames injected
// via inject, one per call, in FIFO order.
type fakeLink struct {
	mu       sync.Mutex
	inbound  [][]byte
	sent     [][]byte
	failNext int
}

func (f *fakeLink) inject(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.inbound = append(f.inbound, cp)
}

func (f *fakeLink) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return 0, nil
	}
	next := f.inbound[0]
	f.inbound = f.inbound[1:]
	return copy(buf, next), nil
}

func (f *fakeLink) Write(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return 0, errors.New("fakeLink: injected write failure")
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.sent = append(f.sent, cp)
	return len(buf), nil
}

func (f *fakeLink) Close() error { return nil }

func (f *fakeLink) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// testDatagramHeaderLen is the offset, within the EtherCAT payload, of
// the working counter in every frame these tests construct.
const testDatagramHeaderLen = 10

// buildTestFrame constructs a complete Ethernet+EtherCAT frame carrying
// the given datagram index, source-MAC route word, and working counter,
// matching the wire layout in frame.go.
func buildTestFrame(idx byte, srcWord uint16, wkc uint16) []byte {
	frame := make([]byte, config.EtherHeaderSize+testDatagramHeaderLen+2)
	buildEthHeader(frame, srcWord)
	payload := ecatPayload(frame)
	binary.LittleEndian.PutUint16(payload[0:2], uint16(testDatagramHeaderLen)&ecatLengthMask)
	payload[ecatIndexOffset] = idx
	binary.LittleEndian.PutUint16(payload[testDatagramHeaderLen:testDatagramHeaderLen+2], wkc)
	return frame
}

// newTestPort returns a Port wired to fakeLink links without touching
// any real network interface, optionally in redundant mode.
func newTestPort(redundant bool) (*Port, *fakeLink, *fakeLink) {
	p := NewPort()
	primary := &fakeLink{}
	p.primary.link = primary
	p.prefillHeaders()

	var secondary *fakeLink
	if redundant {
		p.PrepareRedundant()
		secondary = &fakeLink{}
		p.redPort.link = secondary
		p.redPort.txBuf = p.primary.txBuf
		p.redPort.txBufLen = p.primary.txBufLen
		p.redPort.routeWord = config.RXSecondary
		p.redState = RedundancyDouble
	}
	return p, primary, secondary
}
