package ecat

import "github.com/opalrt/ecatcore/internal/ecatlog"

// GetIndex atomically reserves a slot index whose state is Empty,
// transitioning it to Alloc on the primary stack and, in redundant mode,
// on the secondary stack too, then returns it.
//
// If no Empty slot is found after probing all maxBuf slots, the index the
// probe started from is committed anyway — matching the source driver's
// behavior of never failing this call. Per the spec's open questions this
// is logged rather than silently accepted: a caller that hits this path
// has more than maxBuf frames outstanding and will lose whichever reply
// was owed to the reused index.
func (p *Port) GetIndex() int {
	p.getIndexMu.Lock()
	defer p.getIndexMu.Unlock()

	start := (p.lastIdx + 1) % maxBuf
	idx := start
	found := false
	for i := 0; i < maxBuf; i++ {
		cand := (start + i) % maxBuf
		if p.primary.rxBufStat[cand] == Empty {
			idx = cand
			found = true
			break
		}
	}
	if !found {
		ecatlog.Warn("get_index: no empty slot, reusing outstanding index", "index", idx)
	}

	p.setBufStatLocked(idx, Alloc)
	p.lastIdx = idx
	return idx
}

// SetBufStat sets the state of slot idx on both stacks (the secondary
// stack only if the port is in redundant mode).
func (p *Port) SetBufStat(idx int, state SlotState) {
	p.getIndexMu.Lock()
	defer p.getIndexMu.Unlock()
	p.setBufStatLocked(idx, state)
}

func (p *Port) setBufStatLocked(idx int, state SlotState) {
	p.primary.rxBufStat[idx] = state
	if p.redPort != nil {
		p.redPort.rxBufStat[idx] = state
	}
}
