package netprobe

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"humanlang/internal/capability"
	"humanlang/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePorts(t *testing.T) {
	cases := []struct {
		spec string
		want []int
	}{
		{"80", []int{80}},
		{"22, 80,443", []int{22, 80, 443}},
		{"20-25", []int{20, 21, 22, 23, 24, 25}},
		{"80,20-22,80", []int{80, 20, 21, 22}},
	}
	for _, c := range cases {
		got, err := ParsePorts(c.spec)
		require.NoError(t, err, c.spec)
		assert.Equal(t, c.want, got, c.spec)
	}

	for _, bad := range []string{"", "http", "25-20", "0", "70000", "1-65535"} {
		_, err := ParsePorts(bad)
		assert.Error(t, err, bad)
	}
}

func TestFrameDefaultsAndFields(t *testing.T) {
	f, err := NewFrame("ether", "IP", "tcp")
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHER", "IP", "TCP"}, f.Layers())
	assert.Equal(t, "Packet", f.TypeName())

	v, ok := f.Property("dport")
	require.True(t, ok)
	assert.Equal(t, value.NumberVal(80), v)

	// an IPv4 address does not fit the Ethernet dst, so IP takes it
	require.NoError(t, f.SetProperty("dst", value.StringVal("10.0.0.2")))
	v, _ = f.Property("ip_dst")
	assert.Equal(t, value.StringVal("10.0.0.2"), v)
	v, _ = f.Property("dst")
	assert.Equal(t, value.StringVal("ff:ff:ff:ff:ff:ff"), v)

	require.NoError(t, f.SetProperty("dport", value.StringVal("443")))
	require.NoError(t, f.SetProperty("ether_dst", value.StringVal("AA:BB:CC:DD:EE:FF")))
	v, _ = f.Property("ether_dst")
	assert.Equal(t, value.StringVal("aa:bb:cc:dd:ee:ff"), v)

	assert.Error(t, f.SetProperty("ttl", value.StringVal("many")))
	assert.Error(t, f.SetProperty("colour", value.StringVal("red")))
	_, ok = f.Property("colour")
	assert.False(t, ok)

	layers, _ := f.Property("layers")
	assert.Equal(t, value.StringVal("ETHER/IP/TCP"), layers)
}

func TestUnknownLayer(t *testing.T) {
	_, err := BuildFrame(context.Background(), []value.Value{value.StringVal("IP"), value.StringVal("SCTP")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCTP")
}

func TestEncodeDecodeTCP(t *testing.T) {
	f, err := NewFrame("ETHER", "IP", "TCP", "RAW")
	require.NoError(t, err)
	require.NoError(t, f.SetProperty("ip_src", value.StringVal("10.0.0.1")))
	require.NoError(t, f.SetProperty("ip_dst", value.StringVal("10.0.0.2")))
	require.NoError(t, f.SetProperty("dport", value.NumberVal(443)))
	require.NoError(t, f.SetProperty("flags", value.StringVal("SA")))
	require.NoError(t, f.SetProperty("load", value.StringVal("hi")))

	b, err := f.Encode()
	require.NoError(t, err)
	require.Len(t, b, 14+20+20+2)
	assert.Equal(t, uint16(etherIPv4), binary.BigEndian.Uint16(b[12:14]))
	assert.Zero(t, checksum(b[14:34]), "IP header checksum")
	assert.Zero(t, pseudoChecksum(b[26:30], b[30:34], protoTCP, b[34:]), "TCP checksum")

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHER", "IP", "TCP", "RAW"}, got.Layers())
	assert.Equal(t, "Ether / IP / TCP / Raw 10.0.0.1:20 > 10.0.0.2:443 SA", got.Summary())
	load, _ := got.Property("load")
	assert.Equal(t, value.StringVal("hi"), load)
}

func TestEncodeDecodeARPAndICMP(t *testing.T) {
	f, err := NewFrame("ETHER", "ARP")
	require.NoError(t, err)
	require.NoError(t, f.SetProperty("psrc", value.StringVal("192.168.1.10")))
	require.NoError(t, f.SetProperty("pdst", value.StringVal("192.168.1.1")))
	assert.Equal(t, "Ether / ARP who has 192.168.1.1 says 192.168.1.10", f.Summary())

	b, err := f.Encode()
	require.NoError(t, err)
	assert.Len(t, b, 42)
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, f.Summary(), got.Summary())

	p, err := NewFrame("IP", "ICMP")
	require.NoError(t, err)
	assert.Equal(t, "IP / ICMP 0.0.0.0 > 127.0.0.1 echo-request 0", p.String())
	b, err = p.Encode()
	require.NoError(t, err)
	assert.Zero(t, checksum(b[20:]), "ICMP checksum")
}

func TestDecodeShortFrame(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func tcpFrame(t *testing.T, src, dst string, sport, dport int) *Frame {
	t.Helper()
	f, err := NewFrame("ETHER", "IP", "TCP")
	require.NoError(t, err)
	require.NoError(t, f.SetProperty("ip_src", value.StringVal(src)))
	require.NoError(t, f.SetProperty("ip_dst", value.StringVal(dst)))
	require.NoError(t, f.SetProperty("sport", value.NumberVal(sport)))
	require.NoError(t, f.SetProperty("dport", value.NumberVal(dport)))
	return f
}

func TestFilter(t *testing.T) {
	web := tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80)
	ssh := tcpFrame(t, "10.0.0.3", "10.0.0.2", 40001, 22)
	arp, err := NewFrame("ETHER", "ARP")
	require.NoError(t, err)

	cases := []struct {
		expr string
		want [3]bool // web, ssh, arp
	}{
		{"", [3]bool{true, true, true}},
		{"tcp", [3]bool{true, true, false}},
		{"arp", [3]bool{false, false, true}},
		{"tcp and port 80", [3]bool{true, false, false}},
		{"dst port 22 or arp", [3]bool{false, true, true}},
		{"src port 22", [3]bool{false, false, false}},
		{"host 10.0.0.3", [3]bool{false, true, false}},
		{"not arp and not port 80", [3]bool{false, true, false}},
	}
	for _, c := range cases {
		flt, err := ParseFilter(c.expr)
		require.NoError(t, err, c.expr)
		got := [3]bool{flt.Match(web), flt.Match(ssh), flt.Match(arp)}
		assert.Equal(t, c.want, got, c.expr)
	}

	for _, bad := range []string{"port", "or tcp", "tcp or", "host nowhere", "greater 100", "not"} {
		_, err := ParseFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsReply(t *testing.T) {
	sent := tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80)
	assert.True(t, isReply(sent, tcpFrame(t, "10.0.0.2", "10.0.0.1", 80, 40000)))
	assert.False(t, isReply(sent, tcpFrame(t, "10.0.0.2", "10.0.0.1", 81, 40000)))
	assert.False(t, isReply(sent, tcpFrame(t, "10.0.0.9", "10.0.0.1", 80, 40000)))
}

func TestHosts(t *testing.T) {
	ips, err := hosts("192.168.1.0/30")
	require.NoError(t, err)
	require.Len(t, ips, 2)
	assert.Equal(t, "192.168.1.1", ips[0].String())
	assert.Equal(t, "192.168.1.2", ips[1].String())

	ips, err = hosts("10.0.0.7")
	require.NoError(t, err)
	assert.Len(t, ips, 1)

	_, err = hosts("10.0.0.0/8")
	assert.Error(t, err)
	_, err = hosts("not a network")
	assert.Error(t, err)
}

func TestFormatHops(t *testing.T) {
	got := FormatHops("example.com", []Hop{
		{TTL: 1, Addr: net.ParseIP("192.168.1.1"), RTT: 1500 * time.Microsecond},
		{TTL: 2, Addr: net.ParseIP("10.0.0.1"), RTT: 12 * time.Millisecond},
	})
	want := "Traceroute to example.com:\n" +
		"Hop\tRTT (ms)\tAddress\n" +
		"---------------------------------------\n" +
		"1\t1.50           \t192.168.1.1\n" +
		"2\t12.00          \t10.0.0.1\n"
	assert.Equal(t, want, got)
}

func TestQuotedEcho(t *testing.T) {
	req, err := echoRequest(0x1234, 7)
	require.NoError(t, err)
	header := make([]byte, 20)
	header[0] = 0x45
	data := append(header, req...)

	assert.True(t, quotedEcho(data, 0x1234, 7))
	assert.False(t, quotedEcho(data, 0x1234, 8))
	assert.False(t, quotedEcho(data[:24], 0x1234, 7))
}

func TestPortScanLocal(t *testing.T) {
	open, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer open.Close()
	go func() {
		for {
			c, err := open.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	// a port that was just released is closed
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closed := l.Addr().(*net.TCPAddr).Port
	l.Close()

	openPort := open.Addr().(*net.TCPAddr).Port
	spec := strconv.Itoa(openPort) + "," + strconv.Itoa(closed)

	r := capability.NewRegistry()
	Register(r)
	v, err := r.Call(context.Background(), capability.Request{
		Name:    capability.NetPortScan,
		Args:    []value.Value{value.StringVal("127.0.0.1"), value.StringVal(spec)},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	m, ok := v.(*value.MapVal)
	require.True(t, ok)
	assert.Equal(t, []string{strconv.Itoa(openPort), strconv.Itoa(closed)}, m.Keys)
	state, _ := m.Get(strconv.Itoa(openPort))
	assert.Equal(t, value.StringVal(PortOpen), state)
	state, _ = m.Get(strconv.Itoa(closed))
	assert.Equal(t, value.StringVal(PortClosed), state)
}

func TestCaptureRejectsBadInput(t *testing.T) {
	_, err := Capture(context.Background(), []value.Value{value.StringVal("any"), value.NumberVal(0), value.StringVal("")})
	assert.Error(t, err)

	_, err = Capture(context.Background(), []value.Value{value.StringVal("any"), value.NumberVal(1), value.StringVal("bogus words")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bogus"))
}

func TestSendNeedsPacket(t *testing.T) {
	_, err := Send(context.Background(), []value.Value{value.StringVal("not a packet")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Packet")
}
