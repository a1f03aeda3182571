package netprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"humanlang/internal/capability"
	"humanlang/internal/value"

	"golang.org/x/sync/errgroup"
)

// link is a link-layer socket bound to one interface, or to all of them.
type link interface {
	Send(frame []byte) error
	// Receive calls fn with each frame until fn returns false, ctx is done
	// or until has passed.
	Receive(ctx context.Context, until time.Time, fn func([]byte) bool) error
	Close() error
}

const maxDiscoverBits = 12

const broadcastMAC = "ff:ff:ff:ff:ff:ff"

// interfaceFor returns the interface that reaches ip and its IPv4 address.
func interfaceFor(ip net.IP) (*net.Interface, net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, nil, err
	}
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if n, ok := a.(*net.IPNet); ok && n.IP.To4() != nil && n.Contains(ip) {
				return ifi, n.IP.To4(), nil
			}
		}
	}

	// not on-link: ask the routing table which source address it would use
	conn, err := net.Dial("udp4", net.JoinHostPort(ip.String(), "9"))
	if err != nil {
		return nil, nil, fmt.Errorf("no route to %s: %w", ip, err)
	}
	local := conn.LocalAddr().(*net.UDPAddr).IP.To4()
	conn.Close()
	for i := range ifaces {
		ifi := &ifaces[i]
		addrs, _ := ifi.Addrs()
		for _, a := range addrs {
			if n, ok := a.(*net.IPNet); ok && n.IP.Equal(local) {
				return ifi, local, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("no interface carries %s", local)
}

// onLink reports whether ip is in a subnet directly attached to ifi.
func onLink(ifi *net.Interface, ip net.IP) bool {
	addrs, err := ifi.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if n, ok := a.(*net.IPNet); ok && n.Contains(ip) {
			return true
		}
	}
	return false
}

func hosts(cidr string) ([]net.IP, error) {
	if ip := net.ParseIP(cidr); ip != nil && ip.To4() != nil {
		return []net.IP{ip.To4()}, nil
	}
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid network %q", cidr)
	}
	ones, bits := n.Mask.Size()
	if bits != 32 {
		return nil, fmt.Errorf("only IPv4 networks are supported: %s", cidr)
	}
	if bits-ones > maxDiscoverBits {
		return nil, fmt.Errorf("network %s is too large to scan (limit /%d)", cidr, 32-maxDiscoverBits)
	}
	base := n.IP.To4()
	count := 1 << (bits - ones)
	var out []net.IP
	for i := 0; i < count; i++ {
		// skip network and broadcast addresses of real subnets
		if count > 2 && (i == 0 || i == count-1) {
			continue
		}
		ip := make(net.IP, 4)
		v := uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])
		v += uint32(i)
		ip[0], ip[1], ip[2], ip[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
		out = append(out, ip)
	}
	return out, nil
}

func arpRequest(ifi *net.Interface, src, target net.IP) ([]byte, error) {
	f, err := NewFrame("ETHER", "ARP")
	if err != nil {
		return nil, err
	}
	mac := value.StringVal(ifi.HardwareAddr.String())
	for key, v := range map[string]value.Value{
		"ether_dst": value.StringVal(broadcastMAC),
		"ether_src": mac,
		"hwsrc":     mac,
		"psrc":      value.StringVal(src.String()),
		"pdst":      value.StringVal(target.String()),
	} {
		if err := f.SetProperty(key, v); err != nil {
			return nil, err
		}
	}
	return f.Encode()
}

// arpReply extracts the sender of an ARP reply.
func arpReply(b []byte) (ip, mac string, ok bool) {
	f, err := Decode(b)
	if err != nil {
		return "", "", false
	}
	l := f.layer("ARP")
	if l == nil || l.num("op") != 2 {
		return "", "", false
	}
	return l.str("psrc"), l.str("hwsrc"), true
}

// Discover sends an ARP request to every host in a network and returns the
// hosts that answered as a list of {ip, mac} objects, sorted by address.
func Discover(ctx context.Context, args []value.Value) (value.Value, error) {
	cidr, err := capability.StringArg(args, 0, "network")
	if err != nil {
		return nil, err
	}
	targets, err := hosts(cidr)
	if err != nil {
		return nil, err
	}
	ifi, src, err := interfaceFor(targets[0])
	if err != nil {
		return nil, err
	}
	slog.Info("arp scan", slog.String("network", cidr), slog.String("interface", ifi.Name), slog.Int("hosts", len(targets)))

	conn, err := openLink(ifi, false)
	if err != nil {
		return nil, privileged(err, msgARP)
	}
	defer conn.Close()

	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		wanted[t.String()] = true
	}
	found := map[string]string{}
	until := deadline(ctx, 3*time.Second)

	var g errgroup.Group
	g.Go(func() error {
		return conn.Receive(ctx, until, func(b []byte) bool {
			if ip, mac, ok := arpReply(b); ok && wanted[ip] {
				found[ip] = mac
			}
			return true
		})
	})
	g.Go(func() error {
		for _, t := range targets {
			req, err := arpRequest(ifi, src, t)
			if err != nil {
				return err
			}
			if err := conn.Send(req); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, privileged(err, msgARP)
	}

	ips := make([]net.IP, 0, len(found))
	for ip := range found {
		ips = append(ips, net.ParseIP(ip).To4())
	}
	sort.Slice(ips, func(i, j int) bool { return bytes.Compare(ips[i], ips[j]) < 0 })
	out := make([]value.Value, len(ips))
	for i, ip := range ips {
		m := value.NewMap()
		m.Set("ip", value.StringVal(ip.String()))
		m.Set("mac", value.StringVal(found[ip.String()]))
		out[i] = m
	}
	slog.Info("arp scan complete", slog.Int("found", len(out)))
	return value.NewList(out...), nil
}

// resolveMAC asks for the hardware address of ip on the link.
func resolveMAC(ctx context.Context, conn link, ifi *net.Interface, src, ip net.IP) (string, error) {
	req, err := arpRequest(ifi, src, ip)
	if err != nil {
		return "", err
	}
	if err := conn.Send(req); err != nil {
		return "", err
	}
	until := time.Now().Add(time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(until) {
		until = d
	}
	var mac string
	err = conn.Receive(ctx, until, func(b []byte) bool {
		if rip, rmac, ok := arpReply(b); ok && rip == ip.String() {
			mac = rmac
			return false
		}
		return true
	})
	if err != nil {
		return "", err
	}
	if mac == "" {
		return "", fmt.Errorf("no ARP reply from %s", ip)
	}
	return mac, nil
}

// prepare puts an Ethernet header on f if it has none and fills unset
// source fields from the outgoing interface.
func prepare(f *Frame, ifi *net.Interface, src net.IP) *Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &Frame{layers: f.layers}
	if out.layers[0].name != "ETHER" {
		eth := &layer{name: "ETHER", fields: map[string]value.Value{}}
		for _, d := range layerDefs["ETHER"] {
			eth.fields[d.name] = d.def
		}
		out.layers = append([]*layer{eth}, out.layers...)
	}
	mac := value.StringVal(ifi.HardwareAddr.String())
	if len(ifi.HardwareAddr) == 0 {
		mac = "00:00:00:00:00:00"
	}
	zeroMAC := value.StringVal("00:00:00:00:00:00")
	zeroIP := value.StringVal("0.0.0.0")
	for _, l := range out.layers {
		switch l.name {
		case "ETHER":
			if l.fields["src"] == zeroMAC {
				l.fields["src"] = mac
			}
		case "ARP":
			if l.fields["hwsrc"] == zeroMAC {
				l.fields["hwsrc"] = mac
			}
			if l.fields["psrc"] == zeroIP {
				l.fields["psrc"] = value.StringVal(src.String())
			}
		case "IP":
			if l.fields["src"] == zeroIP {
				l.fields["src"] = value.StringVal(src.String())
			}
		}
	}
	return out
}

// target is the address a frame is sent towards.
func target(ctx context.Context, f *Frame) (net.IP, error) {
	f.mu.Lock()
	var host string
	if l := f.layer("IP"); l != nil {
		host = l.str("dst")
	} else if l := f.layer("ARP"); l != nil {
		host = l.str("pdst")
	}
	f.mu.Unlock()
	if host == "" {
		return nil, fmt.Errorf("packet has no IP or ARP layer to address")
	}
	ip, err := resolve4(ctx, host)
	if err != nil {
		return nil, err
	}
	if l := f.layer("IP"); l != nil {
		f.mu.Lock()
		l.fields["dst"] = value.StringVal(ip.String())
		f.mu.Unlock()
	}
	return ip, nil
}

// isReply reports whether got answers sent.
func isReply(sent, got *Frame) bool {
	if arp := sent.layer("ARP"); arp != nil {
		r := got.layer("ARP")
		return r != nil && r.num("op") == 2 && r.str("psrc") == arp.str("pdst")
	}
	ip, rip := sent.layer("IP"), got.layer("IP")
	if ip == nil || rip == nil || rip.str("src") != ip.str("dst") || rip.str("dst") != ip.str("src") {
		return false
	}
	switch {
	case sent.Has("TCP"):
		t, rt := sent.layer("TCP"), got.layer("TCP")
		return rt != nil && rt.num("sport") == t.num("dport") && rt.num("dport") == t.num("sport")
	case sent.Has("UDP"):
		u, ru := sent.layer("UDP"), got.layer("UDP")
		return got.Has("ICMP") || (ru != nil && ru.num("sport") == u.num("dport"))
	case sent.Has("ICMP"):
		c := got.layer("ICMP")
		return c != nil && c.num("type") != 8
	}
	return true
}

// Send transmits a packet and returns the first reply, or null when nothing
// answers before the deadline.
func Send(ctx context.Context, args []value.Value) (value.Value, error) {
	v, err := capability.Arg(args, 0, "packet")
	if err != nil {
		return nil, err
	}
	f, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("send packet expects a Packet, got %s", v.TypeName())
	}
	dst, err := target(ctx, f)
	if err != nil {
		return nil, err
	}
	ifi, src, err := interfaceFor(dst)
	if err != nil {
		return nil, err
	}
	out := prepare(f, ifi, src)

	conn, err := openLink(ifi, false)
	if err != nil {
		return nil, privileged(err, msgSend)
	}
	defer conn.Close()

	eth := out.layers[0]
	if out.Has("IP") && eth.str("dst") == broadcastMAC && len(ifi.HardwareAddr) > 0 {
		hop := dst
		if !onLink(ifi, dst) {
			gw, err := defaultGateway()
			if err != nil {
				return nil, err
			}
			hop = gw
		}
		mac, err := resolveMAC(ctx, conn, ifi, src, hop)
		if err != nil {
			return nil, err
		}
		eth.fields["dst"] = value.StringVal(mac)
	}

	b, err := out.Encode()
	if err != nil {
		return nil, err
	}
	slog.Info("sending packet", slog.String("to", dst.String()), slog.String("packet", out.Summary()))
	if err := conn.Send(b); err != nil {
		return nil, privileged(err, msgSend)
	}

	var reply *Frame
	err = conn.Receive(ctx, deadline(ctx, 3*time.Second), func(b []byte) bool {
		got, err := Decode(b)
		if err == nil && isReply(out, got) {
			reply = got
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if reply == nil {
		slog.Info("no reply received", slog.String("to", dst.String()))
		return value.Null, nil
	}
	slog.Info("reply received", slog.String("packet", reply.Summary()))
	return reply, nil
}

// Capture records frames on an interface for a number of seconds and
// returns their summaries. The interface "any" (or empty) listens on all.
func Capture(ctx context.Context, args []value.Value) (value.Value, error) {
	name, err := capability.StringArg(args, 0, "interface")
	if err != nil {
		return nil, err
	}
	seconds, err := capability.NumberArg(args, 1, "duration")
	if err != nil {
		return nil, err
	}
	if seconds <= 0 || seconds > 3600 {
		return nil, fmt.Errorf("capture duration must be between 1 and 3600 seconds, got %s", strconv.FormatFloat(seconds, 'f', -1, 64))
	}
	expr := ""
	if len(args) > 2 {
		expr = args[2].String()
	}
	flt, err := ParseFilter(expr)
	if err != nil {
		return nil, err
	}

	var ifi *net.Interface
	if name != "" && name != "any" {
		if ifi, err = net.InterfaceByName(name); err != nil {
			return nil, err
		}
	}
	conn, err := openLink(ifi, true)
	if err != nil {
		return nil, privileged(err, msgSniff)
	}
	defer conn.Close()

	slog.Info("capture", slog.String("interface", name), slog.String("filter", expr), slog.Float64("seconds", seconds))
	var out []value.Value
	until := time.Now().Add(time.Duration(seconds * float64(time.Second)))
	err = conn.Receive(ctx, until, func(b []byte) bool {
		f, err := Decode(b)
		if err == nil && flt.Match(f) {
			out = append(out, value.StringVal(f.Summary()))
		}
		return true
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	slog.Info("capture complete", slog.Int("packets", len(out)))
	return value.NewList(out...), nil
}
