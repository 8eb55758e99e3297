//go:build linux

package netlink

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"golang.org/x/sys/unix"
	"gvisor.dev/gvisor/pkg/xdp"

	"github.com/opalrt/ecatcore/internal/config"
	"github.com/opalrt/ecatcore/internal/ecat"
	"github.com/opalrt/ecatcore/internal/ecatlog"
)

// DefaultXDPObjPath is where NewXDP looks for the compiled redirect
// program (see internal/netlink/xdpprog/redirect.c) when the caller
// doesn't supply one via NewXDPFromPath. Unlike the teacher's go:embed of
// a prebuilt object, this core loads it from disk: the program is built
// out of band by the deploying project's own BPF toolchain, not vendored
// as a binary into this module.
const DefaultXDPObjPath = "/usr/lib/ecatcore/xdp_redirect.o"

const (
	xdpProgramName = "xdp_ecat_redirect"
	xsksMapName    = "xsks_map"
)

// xdpLink is an AF_XDP-accelerated Link: frames are redirected straight
// into a UMEM-backed ring by the kernel instead of copied through a
// normal AF_PACKET socket. Ring bookkeeping (UMEM lock discipline,
// fill/RX/TX/completion peek-get-release) is adapted from the teacher's
// internal/core/af_xdp.go and xdp_rb.go, generalized from a continuous
// IP-bridge pump loop to the single-frame Read/Write shape ecat.Link
// requires.
type xdpLink struct {
	mu      sync.Mutex
	coll    *ebpf.Collection
	xdpLink link.Link
	cb      *xdp.ControlBlock
	ifname  string
}

// NewXDP opens an AF_XDP-accelerated link on ifname using the redirect
// program at DefaultXDPObjPath. Its signature matches ecat.LinkFactory.
func NewXDP(ifname string) (ecat.Link, error) {
	return NewXDPFromPath(ifname, DefaultXDPObjPath)
}

// NewXDPFromPath is NewXDP with an explicit object file path, for
// deployments that install the compiled program outside the default
// location.
func NewXDPFromPath(ifname, objPath string) (ecat.Link, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("netlink: interface %s: %w", ifname, err)
	}

	objBytes, err := os.ReadFile(objPath)
	if err != nil {
		return nil, fmt.Errorf("netlink: read XDP object %s: %w", objPath, err)
	}
	spec, err := ebpf.LoadCollectionSpecFromReader(bytes.NewReader(objBytes))
	if err != nil {
		return nil, fmt.Errorf("netlink: parse XDP object %s: %w", objPath, err)
	}
	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("netlink: load XDP collection: %w", err)
	}

	prog := coll.Programs[xdpProgramName]
	if prog == nil {
		coll.Close()
		return nil, fmt.Errorf("netlink: program %q not found in %s", xdpProgramName, objPath)
	}
	xsksMap := coll.Maps[xsksMapName]
	if xsksMap == nil {
		coll.Close()
		return nil, fmt.Errorf("netlink: map %q not found in %s", xsksMapName, objPath)
	}

	queueID := uint32(0)
	opts := xdp.DefaultOpts()
	opts.NFrames = 4096
	opts.FrameSize = config.MaxECatFrame
	opts.NDescriptors = 2048
	opts.Bind = true
	opts.UseNeedWakeup = true

	cb, err := xdp.New(uint32(ifi.Index), queueID, opts)
	if err != nil {
		coll.Close()
		return nil, fmt.Errorf("netlink: create AF_XDP socket on %s: %w", ifname, err)
	}

	if err := xsksMap.Update(queueID, cb.UMEM.SockFD(), ebpf.UpdateAny); err != nil {
		coll.Close()
		return nil, fmt.Errorf("netlink: insert socket into xsks_map: %w", err)
	}

	xl, err := link.AttachXDP(link.XDPOptions{
		Program:   prog,
		Interface: ifi.Index,
		Flags:     link.XDPDriverMode,
	})
	if err != nil {
		ecatlog.Warn("netlink: XDP driver mode attach failed, falling back to generic mode", "ifname", ifname, "err", err)
		xl, err = link.AttachXDP(link.XDPOptions{
			Program:   prog,
			Interface: ifi.Index,
			Flags:     link.XDPGenericMode,
		})
		if err != nil {
			coll.Close()
			return nil, fmt.Errorf("netlink: attach XDP to %s: %w", ifname, err)
		}
	}

	l := &xdpLink{coll: coll, xdpLink: xl, cb: cb, ifname: ifname}

	cb.UMEM.Lock()
	cb.Fill.FillAll(&cb.UMEM)
	cb.UMEM.Unlock()

	ecatlog.Info("netlink: AF_XDP link opened", "ifname", ifname, "ifindex", ifi.Index)
	return l, nil
}

// Read delivers one captured frame, if the RX ring has one ready; it
// never blocks. The consumed descriptor's frame is freed and the fill
// ring topped back up before returning.
func (l *xdpLink) Read(buf []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cb.UMEM.Lock()
	defer l.cb.UMEM.Unlock()

	n, index := l.cb.RX.Peek()
	if n == 0 {
		l.cb.Fill.FillAll(&l.cb.UMEM)
		return 0, nil
	}

	desc := l.cb.RX.Get(index)
	data := l.cb.UMEM.Get(desc)
	copied := copy(buf, data)
	l.cb.RX.Release(1)
	l.cb.UMEM.FreeFrame(uint64(desc.Addr))
	l.cb.Fill.FillAll(&l.cb.UMEM)

	return copied, nil
}

// Write injects one frame, first reclaiming any completed TX descriptors
// so the UMEM frame pool doesn't starve under sustained send load.
func (l *xdpLink) Write(buf []byte) (int, error) {
	if len(buf) > config.MaxECatFrame {
		return 0, fmt.Errorf("netlink: frame of %d bytes exceeds max %d", len(buf), config.MaxECatFrame)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cb.UMEM.Lock()
	defer l.cb.UMEM.Unlock()

	if nCompleted, completionIndex := l.cb.Completion.Peek(); nCompleted > 0 {
		for i := uint32(0); i < nCompleted; i++ {
			l.cb.UMEM.FreeFrame(l.cb.Completion.Get(completionIndex + i))
		}
		l.cb.Completion.Release(nCompleted)
	}

	nReserved, index := l.cb.TX.Reserve(&l.cb.UMEM, 1)
	if nReserved == 0 {
		return 0, errors.New("netlink: TX ring full")
	}

	frameAddr := l.cb.UMEM.AllocFrame()
	if frameAddr == 0 {
		return 0, errors.New("netlink: no free UMEM frames")
	}

	desc := unix.XDPDesc{Addr: frameAddr, Len: uint32(len(buf))}
	frame := l.cb.UMEM.Get(desc)
	copy(frame, buf)

	l.cb.TX.Set(index, desc)
	l.cb.TX.Notify()

	return len(buf), nil
}

func (l *xdpLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.xdpLink.Close()
	l.coll.Close()
	return err
}
