package netprobe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"humanlang/internal/capability"
	"humanlang/internal/value"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	protocolICMP = 1
	maxHops      = 30
	hopTimeout   = 2 * time.Second
)

var echoPayload = []byte("humanlang-probe")

// echoConn is an ICMP socket. Unprivileged sockets are datagram-based and
// the kernel rewrites the echo identifier, so it is not checked for them.
type echoConn struct {
	*icmp.PacketConn
	privileged bool
}

func (c *echoConn) addr(ip net.IP) net.Addr {
	if c.privileged {
		return &net.IPAddr{IP: ip}
	}
	return &net.UDPAddr{IP: ip}
}

// listenEcho opens a raw ICMP socket, falling back to an unprivileged ping
// socket when allowed.
func listenEcho(allowUnprivileged bool) (*echoConn, error) {
	c, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err == nil {
		return &echoConn{PacketConn: c, privileged: true}, nil
	}
	if !allowUnprivileged || !errors.Is(err, os.ErrPermission) {
		return nil, err
	}
	c, uerr := icmp.ListenPacket("udp4", "0.0.0.0")
	if uerr != nil {
		return nil, err
	}
	return &echoConn{PacketConn: c}, nil
}

func echoRequest(id, seq int) ([]byte, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: echoPayload},
	}
	return msg.Marshal(nil)
}

func resolve4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("only IPv4 targets are supported: %s", host)
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	return ips[0].To4(), nil
}

func peerIP(a net.Addr) net.IP {
	switch a := a.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	return nil
}

// Ping sends one echo request and summarizes the reply. Failures other than
// missing privileges are reported in the result text.
func Ping(ctx context.Context, args []value.Value) (value.Value, error) {
	host, err := capability.StringArg(args, 0, "host")
	if err != nil {
		return nil, err
	}
	slog.Info("ping", slog.String("host", host))
	summary, err := ping(ctx, host)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, privileged(err, msgPing)
		}
		slog.Info("ping failed", slog.String("host", host), slog.Any("error", err))
		return value.StringVal("Ping failed: " + err.Error()), nil
	}
	return value.StringVal(summary), nil
}

func ping(ctx context.Context, host string) (string, error) {
	dst, err := resolve4(ctx, host)
	if err != nil {
		return "", err
	}
	conn, err := listenEcho(true)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	req, err := echoRequest(id, 1)
	if err != nil {
		return "", err
	}
	if err := conn.SetDeadline(deadline(ctx, 4*time.Second)); err != nil {
		return "", err
	}
	start := time.Now()
	if _, err := conn.WriteTo(req, conn.addr(dst)); err != nil {
		return "", err
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "Lost 1 packets.", nil
			}
			return "", err
		}
		rtt := time.Since(start)
		msg, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || msg.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := msg.Body.(*icmp.Echo)
		if !ok || (conn.privileged && echo.ID != id) || !peerIP(peer).Equal(dst) {
			continue
		}
		return fmt.Sprintf("Received 1 packets from %s:\n  - Reply from %s: time=%.2fms",
			host, peerIP(peer), float64(rtt.Microseconds())/1000), nil
	}
}

// Hop is one answered traceroute step.
type Hop struct {
	TTL  int
	Addr net.IP
	RTT  time.Duration
}

// Traceroute sends echo requests with increasing TTL until the target
// answers or the hop limit is reached, and returns a table of the answered
// hops.
func Traceroute(ctx context.Context, args []value.Value) (value.Value, error) {
	host, err := capability.StringArg(args, 0, "host")
	if err != nil {
		return nil, err
	}
	slog.Info("traceroute", slog.String("host", host))
	hops, err := trace(ctx, host)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, privileged(err, msgTraceroute)
		}
		slog.Info("traceroute failed", slog.String("host", host), slog.Any("error", err))
		return value.StringVal("Traceroute failed: " + err.Error()), nil
	}
	return value.StringVal(FormatHops(host, hops)), nil
}

// FormatHops renders hops as the traceroute result table.
func FormatHops(host string, hops []Hop) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Traceroute to %s:\n", host)
	sb.WriteString("Hop\tRTT (ms)\tAddress\n")
	sb.WriteString("---------------------------------------\n")
	for _, h := range hops {
		fmt.Fprintf(&sb, "%d\t%-15.2f\t%s\n", h.TTL, float64(h.RTT.Microseconds())/1000, h.Addr)
	}
	return sb.String()
}

func trace(ctx context.Context, host string) ([]Hop, error) {
	dst, err := resolve4(ctx, host)
	if err != nil {
		return nil, err
	}
	// time-exceeded replies are only readable on a raw socket
	conn, err := listenEcho(false)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	pc := conn.IPv4PacketConn()

	id := os.Getpid() & 0xffff
	end := deadline(ctx, 30*time.Second)
	buf := make([]byte, 1500)
	var hops []Hop

	for ttl := 1; ttl <= maxHops; ttl++ {
		if ctx.Err() != nil || time.Now().After(end) {
			break
		}
		if err := pc.SetTTL(ttl); err != nil {
			return nil, err
		}
		req, err := echoRequest(id, ttl)
		if err != nil {
			return nil, err
		}
		hopEnd := time.Now().Add(hopTimeout)
		if hopEnd.After(end) {
			hopEnd = end
		}
		if err := conn.SetReadDeadline(hopEnd); err != nil {
			return nil, err
		}
		start := time.Now()
		if _, err := conn.WriteTo(req, conn.addr(dst)); err != nil {
			return nil, err
		}

		hop, reached, err := readHop(conn, buf, id, ttl, dst, start)
		if err != nil {
			return nil, err
		}
		if hop != nil {
			slog.Debug("traceroute hop", slog.Int("ttl", ttl), slog.String("addr", hop.Addr.String()))
			hops = append(hops, *hop)
		}
		if reached {
			break
		}
	}
	return hops, nil
}

// readHop waits for the answer to probe seq. A nil hop means it timed out.
func readHop(conn *echoConn, buf []byte, id, seq int, dst net.IP, start time.Time) (*Hop, bool, error) {
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, false, nil
			}
			return nil, false, err
		}
		rtt := time.Since(start)
		msg, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}
		switch msg.Type {
		case ipv4.ICMPTypeEchoReply:
			echo, ok := msg.Body.(*icmp.Echo)
			if ok && echo.ID == id && echo.Seq == seq && peerIP(peer).Equal(dst) {
				return &Hop{TTL: seq, Addr: peerIP(peer), RTT: rtt}, true, nil
			}
		case ipv4.ICMPTypeTimeExceeded:
			te, ok := msg.Body.(*icmp.TimeExceeded)
			if ok && quotedEcho(te.Data, id, seq) {
				return &Hop{TTL: seq, Addr: peerIP(peer), RTT: rtt}, false, nil
			}
		}
	}
}

// quotedEcho reports whether data, the original datagram quoted in an ICMP
// error, is our echo request with the given id and sequence.
func quotedEcho(data []byte, id, seq int) bool {
	if len(data) < 20 {
		return false
	}
	ihl := int(data[0]&0x0f) * 4
	if len(data) < ihl+8 {
		return false
	}
	echo := data[ihl:]
	return echo[0] == byte(ipv4.ICMPTypeEcho) &&
		int(binary.BigEndian.Uint16(echo[4:6])) == id &&
		int(binary.BigEndian.Uint16(echo[6:8])) == seq
}
