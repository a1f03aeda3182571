//go:build linux

package netprobe

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

func htons(v uint16) uint16 { return v<<8 | v>>8 }

// packetConn is an AF_PACKET socket.
type packetConn struct {
	fd       int
	ifindex  int
	outgoing bool
}

// openLink opens a packet socket on ifi, or on every interface when ifi is
// nil. Frames the host sends itself are only delivered when outgoing is set.
func openLink(ifi *net.Interface, outgoing bool) (link, error) {
	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(proto))
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	c := &packetConn{fd: fd, outgoing: outgoing}
	sa := &unix.SockaddrLinklayer{Protocol: proto}
	if ifi != nil {
		c.ifindex = ifi.Index
		sa.Ifindex = ifi.Index
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	tv := unix.NsecToTimeval(int64(100 * time.Millisecond))
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	return c, nil
}

func (c *packetConn) Send(frame []byte) error {
	if c.ifindex == 0 {
		return fmt.Errorf("cannot send on all interfaces at once")
	}
	if len(frame) < 14 {
		return fmt.Errorf("frame too short (%d bytes)", len(frame))
	}
	sa := &unix.SockaddrLinklayer{Ifindex: c.ifindex, Halen: 6}
	copy(sa.Addr[:6], frame[0:6])
	return os.NewSyscallError("sendto", unix.Sendto(c.fd, frame, 0, sa))
}

func (c *packetConn) Receive(ctx context.Context, until time.Time, fn func([]byte) bool) error {
	buf := make([]byte, 1<<16)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(until) {
			return nil
		}
		n, from, err := unix.Recvfrom(c.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return os.NewSyscallError("recvfrom", err)
		}
		if ll, ok := from.(*unix.SockaddrLinklayer); ok && !c.outgoing && ll.Pkttype == unix.PACKET_OUTGOING {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		if !fn(frame) {
			return nil
		}
	}
}

func (c *packetConn) Close() error { return unix.Close(c.fd) }

// defaultGateway reads the IPv4 default route from /proc/net/route.
func defaultGateway() (net.IP, error) {
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseRoutes(f)
}

func parseRoutes(r io.Reader) (net.IP, error) {
	sc := bufio.NewScanner(r)
	sc.Scan() // header
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(raw))
		return ip, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("no default route")
}
