package ecat

import (
	"github.com/opalrt/ecatcore/internal/config"
	"github.com/opalrt/ecatcore/internal/ecatlog"
)

// OutFrame writes transmit slot idx, at its staged length, to the link
// selected by sel, and marks the slot Tx on that stack.
func (p *Port) OutFrame(idx int, sel Direction) (int, error) {
	b := p.bank(direction(sel))
	frame := p.txBufStorage[idx][:p.txBufLenVals[idx]]
	n, err := b.link.Write(frame)
	if err != nil {
		ecatlog.Warn("out_frame: write failed", "idx", idx, "err", err)
		return n, err
	}
	b.rxBufStat[idx] = Tx
	return n, nil
}

// OutFrameRed transmits the primary slot after stamping it with the
// primary route identifier, and, in redundant mode, also transmits the
// shared dummy buffer carrying idx on the secondary link under tx_mutex —
// the dummy buffer is a point of contention between concurrent callers,
// which OutFrameRed alone must serialize.
func (p *Port) OutFrameRed(idx int) (int, error) {
	setSrcWord(p.txBufStorage[idx][:], config.RXPrimary)
	n, err := p.OutFrame(idx, Primary)
	if err != nil {
		return n, err
	}

	if !p.redundant() {
		return n, nil
	}

	p.txMu.Lock()
	defer p.txMu.Unlock()

	setSrcWord(p.txBuf2[:], config.RXSecondary)
	writeDatagramIndex(ecatPayload(p.txBuf2[:]), byte(idx))
	frameLen := p.txBufLenVals[idx]
	if frameLen > len(p.txBuf2) {
		frameLen = len(p.txBuf2)
	}
	p.txBufLen2 = frameLen

	n2, err := p.redPort.link.Write(p.txBuf2[:p.txBufLen2])
	if err != nil {
		ecatlog.Warn("out_frame_red: secondary write failed", "idx", idx, "err", err)
		return n2, err
	}
	p.redPort.rxBufStat[idx] = Tx
	return n2, nil
}

// InFrame is the non-blocking receive. It either delivers a frame already
// parked for idx, pulls one frame off the link and delivers/parks it, or
// reports NoFrame/OtherFrame.
func (p *Port) InFrame(idx int, sel Direction) int {
	b := p.bank(direction(sel))

	if b.rxBufStat[idx] == Rcvd {
		payload := b.rxBuf[idx][:]
		wkc := int(readWKC(payload, readLength(payload)))
		b.rxBufStat[idx] = Complete
		return wkc
	}

	p.rxMu.Lock()
	defer p.rxMu.Unlock()

	n, err := b.link.Read(b.tempInBuf[:])
	if err != nil {
		ecatlog.Warn("in_frame: read failed", "err", err)
		return NoFrame
	}
	if n == 0 {
		return NoFrame
	}
	b.tempInLen = n

	frame := b.tempInBuf[:n]
	if ethType(frame) != config.EtherTypeECAT {
		return OtherFrame
	}

	payload := ecatPayload(frame)
	idxf := int(readDatagramIndex(payload))
	length := readLength(payload)

	switch {
	case idxf == idx:
		want := p.txBufLenVals[idx] - config.EtherHeaderSize
		if want < 0 {
			want = 0
		}
		if want > len(payload) {
			want = len(payload)
		}
		copy(b.rxBuf[idx][:want], payload[:want])
		b.rxSA[idx] = srcWord(frame)
		b.rxBufStat[idx] = Complete
		return int(readWKC(payload, length))

	case idxf >= 0 && idxf < maxBuf:
		copy(b.rxBuf[idxf][:], payload)
		b.rxSA[idxf] = srcWord(frame)
		b.rxBufStat[idxf] = Rcvd
		return OtherFrame

	default:
		ecatlog.Warn("in_frame: datagram index out of range", "idxf", idxf)
		return OtherFrame
	}
}
