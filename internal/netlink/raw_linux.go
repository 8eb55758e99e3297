//go:build linux

// Package netlink provides the Link implementations that internal/ecat's
// Port opens via SetupNIC: a raw AF_PACKET socket (this file) and an
// optional AF_XDP-accelerated path (xdp_linux.go).
package netlink

import (
	"encoding/binary"
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/opalrt/ecatcore/internal/config"
	"github.com/opalrt/ecatcore/internal/ecat"
	"github.com/opalrt/ecatcore/internal/ecatlog"
)

// packetIgnoreOutgoing mirrors unix.PACKET_IGNORE_OUTGOING, which is not
// exposed by golang.org/x/sys/unix on older module versions; its value is
// fixed by the kernel UAPI (include/uapi/linux/if_packet.h).
const packetIgnoreOutgoing = 23

// rawLink is a raw-Ethernet capture/injection endpoint over AF_PACKET,
// filtered in-kernel to EtherCAT frames only. It is the Linux analog of
// the original driver's /dev/bpfN device: same contract (open, filtered
// read, verbatim write, close), different kernel facility.
type rawLink struct {
	fd     int
	ifname string
}

// NewRaw opens an AF_PACKET raw socket on ifname, installs a classic BPF
// filter accepting only EtherCAT frames, and configures a near-zero read
// timeout so Read never blocks the caller for long. Its signature matches
// ecat.LinkFactory.
func NewRaw(ifname string) (ecat.Link, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("netlink: socket: %w", err)
	}

	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: interface %s: %w", ifname, err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: bind %s: %w", ifname, err)
	}

	mreq := unix.PacketMreq{
		Ifindex: int32(iface.Index),
		Type:    unix.PACKET_MR_PROMISC,
	}
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: set promiscuous on %s: %w", ifname, err)
	}

	filterOwnTx := false
	if err := unix.SetsockoptInt(fd, unix.SOL_PACKET, packetIgnoreOutgoing, 1); err != nil {
		ecatlog.Warn("netlink: PACKET_IGNORE_OUTGOING unsupported, falling back to source-MAC filtering in the BPF program", "ifname", ifname, "err", err)
		filterOwnTx = true
	}

	if err := installFilter(fd, filterOwnTx); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: install filter on %s: %w", ifname, err)
	}

	tv := unix.NsecToTimeval(config.DefaultReadTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink: set read timeout on %s: %w", ifname, err)
	}

	ecatlog.Info("netlink: raw link opened", "ifname", ifname, "ifindex", iface.Index, "filter_own_tx", filterOwnTx)
	return &rawLink{fd: fd, ifname: ifname}, nil
}

// installFilter assembles and attaches a classic BPF program that accepts
// only frames whose ethertype at byte offset 12 is 0x88A4, dropping
// everything else in-kernel before it reaches userspace. This is the
// Linux SO_ATTACH_FILTER analog of the source driver's /dev/bpf filter
// program.
//
// When dropOwnTx is set (PACKET_IGNORE_OUTGOING is unsupported), the
// program also drops frames whose source-MAC first word matches one of
// our own fabricated route identifiers, mirroring the source driver's
// BIOCSDIRECTION fallback. Like that fallback, this is a best-effort
// filter: since a genuine ring reply carries the same unmodified
// route word the frame was transmitted with, this cannot distinguish a
// local transmit echo from a real reply travelling the same route, and
// only catches the common case.
func installFilter(fd int, dropOwnTx bool) error {
	var insns []bpf.Instruction
	if dropOwnTx {
		insns = []bpf.Instruction{
			bpf.LoadAbsolute{Off: 12, Size: 2},
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: config.EtherTypeECAT, SkipFalse: 4},
			bpf.LoadAbsolute{Off: 6, Size: 2},
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(config.PrimaryMAC[0]), SkipTrue: 2},
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(config.SecondaryMAC[0]), SkipTrue: 1},
			bpf.RetConstant{Val: 0xffff},
			bpf.RetConstant{Val: 0},
		}
	} else {
		insns = []bpf.Instruction{
			bpf.LoadAbsolute{Off: 12, Size: 2},
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: config.EtherTypeECAT, SkipFalse: 1},
			bpf.RetConstant{Val: 0xffff},
			bpf.RetConstant{Val: 0},
		}
	}

	raw, err := bpf.Assemble(insns)
	if err != nil {
		return err
	}

	sockFilter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		sockFilter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	prog := unix.SockFprog{
		Len:    uint16(len(sockFilter)),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&sockFilter[0])),
	}
	return unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog)
}

func htons(v uint16) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return binary.LittleEndian.Uint16(b)
}

func (l *rawLink) Read(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(l.fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (l *rawLink) Write(buf []byte) (int, error) {
	return unix.Write(l.fd, buf)
}

func (l *rawLink) Close() error {
	return unix.Close(l.fd)
}
