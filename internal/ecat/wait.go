package ecat

import (
	"time"

	"github.com/opalrt/ecatcore/internal/config"
	"github.com/opalrt/ecatcore/internal/ecatlog"
)

// WaitInFrame blocks, polling InFrame on the primary stack, until a reply
// for idx arrives or timeoutUs elapses. In redundant mode it delegates to
// WaitInFrameRed so the redundancy classifier runs; in non-redundant mode
// that call degenerates to exactly this primary-only poll.
func (p *Port) WaitInFrame(idx int, timeoutUs int) int {
	return p.WaitInFrameRed(idx, timeoutUs)
}

// pollUntil calls fn at least once, then keeps calling it while the timer
// has not yet expired, stopping as soon as fn returns a value greater
// than NoFrame. This mirrors the source driver's do-while polling shape:
// a reply already queued is observed even if the timer happens to be
// exhausted the moment this stage starts (e.g. because an earlier stage
// consumed the whole window), since the first call runs unconditionally.
func pollUntil(timer pollTimer, fn func() int) int {
	result := fn()
	for result <= NoFrame && !timer.expired() {
		result = fn()
	}
	return result
}

// WaitInFrameRed polls both stacks (in non-redundant mode, only the
// primary) until each has a reply or the timer expires, then applies the
// redundancy classification table to decide which result — and which
// rxbuf — the caller sees. On timeout the slot is reset to Empty on both
// stacks and NoFrame is returned.
func (p *Port) WaitInFrameRed(idx int, timeoutUs int) int {
	timer := newPollTimer(time.Duration(timeoutUs) * time.Microsecond)

	wkc1 := pollUntil(timer, func() int { return p.InFrame(idx, Primary) })

	if !p.redundant() {
		if wkc1 <= NoFrame {
			p.SetBufStat(idx, Empty)
			return NoFrame
		}
		return wkc1
	}

	wkc2 := pollUntil(timer, func() int { return p.InFrame(idx, Secondary) })

	if wkc1 <= NoFrame && wkc2 <= NoFrame {
		p.SetBufStat(idx, Empty)
		return NoFrame
	}

	return p.classifyRedundancy(idx, wkc1, wkc2, timer)
}

// classifyRedundancy implements the §4.4 decision table: given which
// route identifier arrived on which interface, decide whether the ring is
// intact, needs a secondary retransmit, or falls back to the primary
// result.
func (p *Port) classifyRedundancy(idx, wkc1, wkc2 int, timer pollTimer) int {
	var primrx, secrx uint16
	if wkc1 > NoFrame {
		primrx = p.primary.rxSA[idx]
	}
	if wkc2 > NoFrame {
		secrx = p.redPort.rxSA[idx]
	}

	switch {
	case primrx == config.RXSecondary && secrx == config.RXPrimary:
		// Full ring: both interfaces saw the other's echo.
		p.primary.rxBuf[idx] = p.redPort.rxBuf[idx]
		return wkc2

	case primrx == 0 && secrx == config.RXSecondary:
		// Primary side broken; only the secondary half traversed.
		return p.retransmitSecondary(idx, timer, wkc2)

	case primrx == config.RXPrimary && secrx == config.RXSecondary:
		// Both halves captured locally without crossing: combine them by
		// feeding the primary's half back in on the secondary for a
		// second pass around the remaining slaves. retransmitSecondary
		// sends p.txBufStorage[idx], not the txBuf2 dummy, so the combined
		// payload must land there.
		copy(p.txBufStorage[idx][config.EtherHeaderSize:], p.primary.rxBuf[idx][:])
		return p.retransmitSecondary(idx, timer, wkc2)

	default:
		return wkc1
	}
}

// retransmitSecondary retransmits on the secondary interface and polls
// for a new reply, bounded by the smaller of the remaining outer timeout
// and the partial-retry timeout. If a reply arrives, it supersedes the
// secondary rxbuf into the primary's and its wkc is adopted; otherwise the
// caller's prior secondary wkc (possibly NoFrame) is kept.
func (p *Port) retransmitSecondary(idx int, outer pollTimer, fallback int) int {
	inner := config.TimeoutRetry
	if r := outer.remaining(); r < inner {
		inner = r
	}
	innerTimer := newPollTimer(inner)

	if _, err := p.OutFrame(idx, Secondary); err != nil {
		ecatlog.Warn("wait_in_frame_red: secondary retransmit failed", "idx", idx, "err", err)
		return fallback
	}

	wkc2 := pollUntil(innerTimer, func() int { return p.InFrame(idx, Secondary) })
	if wkc2 <= NoFrame {
		return fallback
	}

	p.primary.rxBuf[idx] = p.redPort.rxBuf[idx]
	return wkc2
}

// SrcConfirm retries OutFrameRed/WaitInFrameRed until a working counter is
// observed or timeoutUs elapses, whichever comes first. On final timeout
// the slot is reset to Empty.
func (p *Port) SrcConfirm(idx int, timeoutUs int) int {
	outer := newPollTimer(time.Duration(timeoutUs) * time.Microsecond)

	for {
		if _, err := p.OutFrameRed(idx); err != nil {
			ecatlog.Warn("src_confirm: transmit failed", "idx", idx, "err", err)
		}

		inner := config.TimeoutRetry
		if r := outer.remaining(); r < inner {
			inner = r
		}

		wkc := p.WaitInFrameRed(idx, int(inner/time.Microsecond))
		if wkc > NoFrame {
			return wkc
		}
		if outer.expired() {
			break
		}
	}

	p.SetBufStat(idx, Empty)
	return NoFrame
}
