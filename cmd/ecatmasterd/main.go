// ecatmasterd runs a minimal EtherCAT frame transport cycle: it opens a
// port on one interface (optionally a second for cable redundancy),
// repeatedly sends a broadcast datagram and confirms its working
// counter, and shuts down cleanly on SIGINT/SIGTERM.
//
// It demonstrates internal/ecat end to end; a real master would compose
// its datagrams from slave configuration state rather than the fixed
// demo payload used here.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cilium/ebpf/rlimit"

	"github.com/opalrt/ecatcore/internal/ecat"
	"github.com/opalrt/ecatcore/internal/ecatlog"
	"github.com/opalrt/ecatcore/internal/netlink"
)

func main() {
	var (
		ifname    = flag.String("ifname", "eth0", "primary network interface")
		redIfname = flag.String("redundant-ifname", "", "secondary interface for cable redundancy (optional)")
		useXDP    = flag.Bool("xdp", false, "use the AF_XDP-accelerated link instead of raw AF_PACKET")
		cycleUs   = flag.Int("cycle-us", 1000, "cyclic send-and-confirm period, microseconds")
		timeoutUs = flag.Int("timeout-us", 5000, "src_confirm timeout, microseconds")
	)
	flag.Parse()

	factory := ecat.LinkFactory(netlink.NewRaw)
	if *useXDP {
		if err := rlimit.RemoveMemlock(); err != nil {
			ecatlog.Fatal("failed to remove memlock for AF_XDP", "err", err)
		}
		factory = netlink.NewXDP
	}

	port := ecat.NewPort()
	if *redIfname != "" {
		port.PrepareRedundant()
	}
	if err := port.SetupNIC(*ifname, false, ecat.WithLinkFactory(factory)); err != nil {
		ecatlog.Fatal("setup_nic failed on primary interface", "ifname", *ifname, "err", err)
	}
	if *redIfname != "" {
		if err := port.SetupNIC(*redIfname, true, ecat.WithLinkFactory(factory)); err != nil {
			ecatlog.Fatal("setup_nic failed on secondary interface", "ifname", *redIfname, "err", err)
		}
	}
	defer port.CloseNIC()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go runCycle(port, time.Duration(*cycleUs)*time.Microsecond, *timeoutUs, done)

	<-sig
	close(done)
	ecatlog.Info("ecatmasterd: shutting down")
}

// runCycle repeatedly allocates an index, stages a minimal broadcast
// datagram, and confirms it, at the configured period, until done is
// closed.
func runCycle(port *ecat.Port, period time.Duration, timeoutUs int, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			idx := port.GetIndex()
			datagram := demoDatagram()
			datagram[3] = byte(idx)
			port.SetTxBuf(idx, datagram)

			wkc := port.SrcConfirm(idx, timeoutUs)
			if wkc == ecat.NoFrame {
				ecatlog.Warn("cycle: no reply", "idx", idx)
				continue
			}
			ecatlog.Debug("cycle: confirmed", "idx", idx, "wkc", wkc)
		}
	}
}

// demoDatagram returns a minimal EtherCAT payload: a 2-byte header with
// length encoding "no further bytes before the working counter", an
// all-zero command/index/address/len/irq datagram header, and a 2-byte
// working counter placeholder. The caller must still stamp the index
// byte at offset 3 before transmitting — out_frame_red never touches
// the primary txbuf's datagram index, only the dummy secondary buffer's.
func demoDatagram() []byte {
	const datagramHeaderLen = 10
	buf := make([]byte, datagramHeaderLen+2)
	buf[0] = byte(datagramHeaderLen)
	buf[1] = 0
	return buf
}
