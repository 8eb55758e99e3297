package ecat

// Stats is a point-in-time snapshot of port state for diagnostics
// consumers (cmd/ecatctl); it is not used on the hot path.
type Stats struct {
	Redundant      bool
	LastIndex      int
	PrimarySlots   [maxBuf]SlotState
	SecondarySlots [maxBuf]SlotState
}

// Stats returns a snapshot of the port's current slot occupancy and
// redundancy state.
func (p *Port) Stats() Stats {
	p.getIndexMu.Lock()
	defer p.getIndexMu.Unlock()

	s := Stats{
		Redundant: p.redundant(),
		LastIndex: p.lastIdx,
	}
	s.PrimarySlots = p.primary.rxBufStat
	if p.redPort != nil {
		s.SecondarySlots = p.redPort.rxBufStat
	}
	return s
}
