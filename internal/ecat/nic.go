package ecat

import (
	"fmt"

	"github.com/opalrt/ecatcore/internal/config"
	"github.com/opalrt/ecatcore/internal/ecatlog"
)

// Options configures SetupNIC. The zero value has no link factory and
// SetupNIC fails fast rather than silently falling back to a default
// transport — the core stays decoupled from any one capture mechanism.
type Options struct {
	factory LinkFactory
}

type Option func(*Options)

// WithLinkFactory selects which Link implementation SetupNIC opens. Pass
// a constructor from internal/netlink (raw AF_PACKET, or AF_XDP for the
// accelerated path).
func WithLinkFactory(f LinkFactory) Option {
	return func(o *Options) { o.factory = f }
}

// SetupNIC attaches the port to ifname. With secondary=false this
// initializes the primary direction; with secondary=true it requires the
// primary to already be open and the secondary bank to have been
// allocated by PrepareRedundant, and attaches the redundant secondary
// direction, sharing the transmit buffer array with the primary.
func (p *Port) SetupNIC(ifname string, secondary bool, opts ...Option) error {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.factory == nil {
		return fmt.Errorf("ecat: SetupNIC requires WithLinkFactory")
	}
	if secondary && p.primary.link == nil {
		return fmt.Errorf("ecat: SetupNIC(secondary=true) requires a preceding primary SetupNIC")
	}

	link, err := o.factory(ifname)
	if err != nil {
		ecatlog.Warn("setup_nic: failed to open link", "ifname", ifname, "secondary", secondary, "err", err)
		return err
	}

	if !secondary {
		p.primary.link = link
		p.primary.routeWord = config.RXPrimary
		for i := range p.primary.rxBufStat {
			p.primary.rxBufStat[i] = Empty
		}
		p.prefillHeaders()
		ecatlog.Info("setup_nic: primary opened", "ifname", ifname)
		return nil
	}

	if p.redPort == nil {
		return fmt.Errorf("ecat: SetupNIC(secondary=true) requires a preceding PrepareRedundant")
	}
	p.redPort.link = link
	p.redPort.txBuf = p.primary.txBuf
	p.redPort.txBufLen = p.primary.txBufLen
	p.redPort.routeWord = config.RXSecondary
	for i := range p.redPort.rxBufStat {
		p.redPort.rxBufStat[i] = Empty
	}
	p.redState = RedundancyDouble
	buildEthHeader(p.txBuf2[:], config.RXSecondary)
	ecatlog.Info("setup_nic: secondary opened, redundancy enabled", "ifname", ifname)
	return nil
}

// PrepareRedundant allocates the secondary direction's buffer bank ahead
// of a SetupNIC(secondary=true) call. Spec requires a pre-allocated
// redport before the secondary endpoint is opened.
func (p *Port) PrepareRedundant() {
	if p.redPort == nil {
		p.redPort = &bufferBank{}
	}
}

// prefillHeaders writes the broadcast/EtherCAT Ethernet header into every
// transmit slot and the dummy secondary buffer, so the hot path never
// composes a header per send.
func (p *Port) prefillHeaders() {
	for i := range p.txBufStorage {
		buildEthHeader(p.txBufStorage[i][:config.EtherHeaderSize], config.RXPrimary)
	}
	buildEthHeader(p.txBuf2[:config.EtherHeaderSize], config.RXSecondary)
}

// CloseNIC closes the primary and, if open, secondary link.
func (p *Port) CloseNIC() error {
	var firstErr error
	if p.primary.link != nil {
		if err := p.primary.link.Close(); err != nil {
			firstErr = err
		}
		p.primary.link = nil
	}
	if p.redPort != nil && p.redPort.link != nil {
		if err := p.redPort.link.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.redPort.link = nil
	}
	return firstErr
}

// TxBufLen returns the current staged length of transmit slot idx.
func (p *Port) TxBufLen(idx int) int { return p.txBufLenVals[idx] }

// SetTxBuf stages payload into transmit slot idx, immediately after the
// pre-filled Ethernet header, and records the resulting frame length.
func (p *Port) SetTxBuf(idx int, payload []byte) {
	n := copy(p.txBufStorage[idx][config.EtherHeaderSize:], payload)
	p.txBufLenVals[idx] = config.EtherHeaderSize + n
}

// BufStat reports the current slot state on the given stack selector;
// exported for diagnostics (cmd/ecatctl) and tests.
func (p *Port) BufStat(idx int, sel Direction) SlotState {
	return p.bank(direction(sel)).rxBufStat[idx]
}

// RxBuf returns the payload received into slot idx (Ethernet header
// already stripped), valid once the slot reaches Rcvd or Complete.
func (p *Port) RxBuf(idx int, sel Direction) []byte {
	b := p.bank(direction(sel))
	return b.rxBuf[idx][:]
}

// Direction is the exported selector passed by callers; it mirrors the
// package-private direction type used internally.
type Direction = direction

const (
	Primary   = dirPrimary
	Secondary = dirSecondary
)
