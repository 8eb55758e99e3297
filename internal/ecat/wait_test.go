package ecat

import (
	"testing"

	"github.com/opalrt/ecatcore/internal/config"
)

// Property 6: redundancy classifier — each row of the §4.4 decision
// table yields the working counter of the documented action. The
// contents of the primary rxbuf are not checked here.
func TestRedundancyClassifier(t *testing.T) {
	tests := []struct {
		name        string
		primPayload []byte // nil = primary never replies
		primRoute   uint16
		secPayload  []byte // nil = secondary never replies
		secRoute    uint16
		secRetransmitReply []byte // queued on secondary behind the first reply; read by the retransmit poll
		wantWKC     int
	}{
		{
			name:        "full ring both echoed",
			primPayload: []byte{0xAA},
			primRoute:   config.RXSecondary,
			secPayload:  []byte{0xBB},
			secRoute:    config.RXPrimary,
			wantWKC:     22,
		},
		{
			name:       "primary broken secondary only",
			primPayload: nil,
			secPayload:  []byte{0xCC},
			secRoute:    config.RXSecondary,
			secRetransmitReply: buildTestFrame(5, config.RXSecondary, 2),
			wantWKC:    2,
		},
		{
			name:        "both halves captured locally combine",
			primPayload: []byte{0xDD},
			primRoute:   config.RXPrimary,
			secPayload:  []byte{0xEE},
			secRoute:    config.RXSecondary,
			secRetransmitReply: buildTestFrame(5, config.RXSecondary, 33),
			wantWKC:    33,
		},
		{
			name:        "default keeps primary",
			primPayload: []byte{0xFF},
			primRoute:   0x9999,
			secPayload:  nil,
			wantWKC:     11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, primaryLink, secondaryLink := newTestPort(true)
			idx := 5
			p.SetBufStat(idx, Tx)

			if tt.primPayload != nil {
				primaryLink.inject(buildTestFrame(byte(idx), tt.primRoute, 11))
			}
			if tt.secPayload != nil {
				secondaryLink.inject(buildTestFrame(byte(idx), tt.secRoute, 22))
			}
			if tt.secRetransmitReply != nil {
				secondaryLink.inject(tt.secRetransmitReply)
			}

			wkc := p.WaitInFrameRed(idx, 50_000)
			if wkc != tt.wantWKC {
				t.Fatalf("WaitInFrameRed = %d, want %d", wkc, tt.wantWKC)
			}
		})
	}
}

// Property 7: src_confirm retry — a link that drops the first K transmit
// attempts and succeeds on attempt K+1 still yields the correct working
// counter, provided K*EC_TIMEOUTRET < timeout_us.
func TestSrcConfirmRetriesThroughDroppedTransmits(t *testing.T) {
	p, link, _ := newTestPort(false)
	link.failNext = 2 // first two OutFrameRed primary writes fail

	idx := p.GetIndex()
	p.SetTxBuf(idx, []byte{0})

	go func() {
		// src_confirm polls in a loop; once the third attempt's frame
		// has gone out, answer it.
		for link.sentCount() < 1 {
		}
		link.inject(buildTestFrame(byte(idx), config.RXPrimary, 3))
	}()

	wkc := p.SrcConfirm(idx, 50_000)
	if wkc != 3 {
		t.Fatalf("SrcConfirm = %d, want 3", wkc)
	}
}
