// Package ecat implements the EtherCAT frame transport core: the raw
// send/receive engine, its frame-index reorder buffer, and the
// cable-redundancy recovery algorithm. It has no knowledge of EtherCAT
// datagram contents above the frame header, of slave state machines, or
// of mailbox protocols — callers hand it already-composed payloads and
// get back working counters.
package ecat

import (
	"sync"

	"github.com/opalrt/ecatcore/internal/config"
)

// SlotState is the state of one buffer slot for one direction (primary or
// secondary). Transitions form the strict order Empty -> Alloc -> Tx ->
// (Rcvd ->)? Complete -> Empty.
type SlotState int

const (
	Empty SlotState = iota
	Alloc
	Tx
	Rcvd
	Complete
)

func (s SlotState) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Alloc:
		return "Alloc"
	case Tx:
		return "Tx"
	case Rcvd:
		return "Rcvd"
	case Complete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// RedundancyState selects whether a Port is driving one interface or two.
type RedundancyState int

const (
	RedundancyNone RedundancyState = iota
	RedundancyDouble
)

const maxBuf = config.MaxBuf

// bufferBank is the set of fixed-size arrays backing one direction
// (primary or secondary). txBuf/txBufLen point at the Port's single
// transmit buffer array (txBufStorage/txBufLenVals), which the primary
// bank and, in redundant mode, the secondary bank share.
type bufferBank struct {
	link Link

	txBuf      *[maxBuf][config.MaxECatFrame]byte
	txBufLen   *[maxBuf]int
	rxBuf      [maxBuf][config.MaxECatFrame]byte
	rxBufStat  [maxBuf]SlotState
	rxSA       [maxBuf]uint16
	tempInBuf  [config.MaxECatFrame]byte
	tempInLen  int
	routeWord  uint16
}

// Port is the top-level long-lived transport object: one primary
// direction, an optional secondary direction for cable redundancy, the
// frame-index allocator, and the three locks guarding concurrent
// send/receive/allocate.
type Port struct {
	primary bufferBank
	redPort *bufferBank

	// txBufStorage is the single transmit buffer array, owned by the
	// port and shared by pointer between the primary and secondary
	// banks in redundant mode.
	txBufStorage [maxBuf][config.MaxECatFrame]byte
	txBufLenVals [maxBuf]int

	// txBuf2/txBufLen2 back the dummy broadcast-read frame transmitted on
	// the secondary interface in redundant mode.
	txBuf2    [config.MaxECatFrame]byte
	txBufLen2 int

	lastIdx  int
	redState RedundancyState

	getIndexMu sync.Mutex
	txMu       sync.Mutex
	rxMu       sync.Mutex
}

// NewPort constructs an unopened port context. Call SetupNIC to attach it
// to one or two interfaces before using it.
func NewPort() *Port {
	p := &Port{}
	p.primary.txBuf = &p.txBufStorage
	p.primary.txBufLen = &p.txBufLenVals
	p.primary.routeWord = config.RXPrimary
	for i := range p.primary.rxBufStat {
		p.primary.rxBufStat[i] = Empty
	}
	return p
}

// direction selects which bufferBank an operation targets.
type direction int

const (
	dirPrimary direction = iota
	dirSecondary
)

// bank resolves a direction to its backing bufferBank. Secondary is only
// valid once SetupNIC has been called with secondary=true; callers that
// request it while no secondary bank has been allocated (PrepareRedundant)
// get the primary bank back, mirroring
// the source's behavior of treating wkc2 as always 0 when not redundant.
func (p *Port) bank(dir direction) *bufferBank {
	if dir == dirSecondary && p.redPort != nil {
		return p.redPort
	}
	return &p.primary
}

func (p *Port) redundant() bool {
	return p.redState == RedundancyDouble && p.redPort != nil
}
