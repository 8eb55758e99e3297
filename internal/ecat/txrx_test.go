package ecat

import (
	"sync"
	"testing"

	"github.com/opalrt/ecatcore/internal/config"
)

// Property 3: reorder tolerance — transmits A, B, C returning in order
// A, C, B must each resolve to their own working counter regardless of
// call order.
func TestReorderTolerance(t *testing.T) {
	p, link, _ := newTestPort(false)

	idxA := p.GetIndex()
	idxB := p.GetIndex()
	idxC := p.GetIndex()

	for _, idx := range []int{idxA, idxB, idxC} {
		p.SetTxBuf(idx, []byte{0})
		if _, err := p.OutFrame(idx, Primary); err != nil {
			t.Fatalf("OutFrame(%d): %v", idx, err)
		}
	}

	// Replies arrive in order A, C, B.
	link.inject(buildTestFrame(byte(idxA), config.RXPrimary, 10))
	link.inject(buildTestFrame(byte(idxC), config.RXPrimary, 30))
	link.inject(buildTestFrame(byte(idxB), config.RXPrimary, 20))

	var wg sync.WaitGroup
	results := make(map[int]int, 3)
	var mu sync.Mutex
	for _, pair := range []struct {
		idx     int
		wantWKC int
	}{
		{idxA, 10}, {idxB, 20}, {idxC, 30},
	} {
		pair := pair
		wg.Add(1)
		go func() {
			defer wg.Done()
			wkc := p.WaitInFrame(pair.idx, 100_000)
			mu.Lock()
			results[pair.idx] = wkc
			mu.Unlock()
		}()
	}
	wg.Wait()

	if results[idxA] != 10 {
		t.Errorf("idxA wkc = %d, want 10", results[idxA])
	}
	if results[idxB] != 20 {
		t.Errorf("idxB wkc = %d, want 20", results[idxB])
	}
	if results[idxC] != 30 {
		t.Errorf("idxC wkc = %d, want 30", results[idxC])
	}
}

// Property 4: filter isolation — non-EtherCAT frames never surface
// through InFrame.
func TestFilterIsolationRejectsNonEtherCAT(t *testing.T) {
	p, link, _ := newTestPort(false)

	idx := p.GetIndex()
	p.SetTxBuf(idx, []byte{0})
	if _, err := p.OutFrame(idx, Primary); err != nil {
		t.Fatalf("OutFrame: %v", err)
	}

	nonECAT := buildTestFrame(byte(idx), config.RXPrimary, 99)
	// Corrupt the ethertype so it no longer reads 0x88A4.
	nonECAT[12], nonECAT[13] = 0x08, 0x00

	link.inject(nonECAT)

	got := p.InFrame(idx, Primary)
	if got != OtherFrame {
		t.Fatalf("InFrame on non-EtherCAT frame = %d, want OtherFrame", got)
	}
	if p.BufStat(idx, Primary) != Tx {
		t.Fatalf("state after dropped frame = %v, want unchanged Tx", p.BufStat(idx, Primary))
	}

	// A real EtherCAT reply for the same index must still be deliverable
	// afterwards.
	link.inject(buildTestFrame(byte(idx), config.RXPrimary, 7))
	wkc := p.WaitInFrame(idx, 50_000)
	if wkc != 7 {
		t.Fatalf("WaitInFrame after filtered frame = %d, want 7", wkc)
	}
}
