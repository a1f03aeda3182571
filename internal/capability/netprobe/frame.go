package netprobe

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"humanlang/internal/value"
)

// fieldKind says how a layer field is stored and encoded.
type fieldKind int

const (
	kindNumber fieldKind = iota
	kindMAC
	kindIP
	kindText
)

type fieldDef struct {
	name string
	kind fieldKind
	def  value.Value
}

// layerDefs lists the supported layers and their fields in wire order.
var layerDefs = map[string][]fieldDef{
	"ETHER": {
		{"dst", kindMAC, value.StringVal("ff:ff:ff:ff:ff:ff")},
		{"src", kindMAC, value.StringVal("00:00:00:00:00:00")},
		{"type", kindNumber, value.NumberVal(0)},
	},
	"ARP": {
		{"op", kindNumber, value.NumberVal(1)},
		{"hwsrc", kindMAC, value.StringVal("00:00:00:00:00:00")},
		{"psrc", kindIP, value.StringVal("0.0.0.0")},
		{"hwdst", kindMAC, value.StringVal("00:00:00:00:00:00")},
		{"pdst", kindIP, value.StringVal("0.0.0.0")},
	},
	"IP": {
		{"src", kindIP, value.StringVal("0.0.0.0")},
		{"dst", kindIP, value.StringVal("127.0.0.1")},
		{"ttl", kindNumber, value.NumberVal(64)},
		{"id", kindNumber, value.NumberVal(1)},
		{"proto", kindNumber, value.NumberVal(0)},
	},
	"TCP": {
		{"sport", kindNumber, value.NumberVal(20)},
		{"dport", kindNumber, value.NumberVal(80)},
		{"flags", kindText, value.StringVal("S")},
		{"seq", kindNumber, value.NumberVal(0)},
		{"ack", kindNumber, value.NumberVal(0)},
		{"window", kindNumber, value.NumberVal(8192)},
	},
	"UDP": {
		{"sport", kindNumber, value.NumberVal(53)},
		{"dport", kindNumber, value.NumberVal(53)},
	},
	"ICMP": {
		{"type", kindNumber, value.NumberVal(8)},
		{"code", kindNumber, value.NumberVal(0)},
		{"id", kindNumber, value.NumberVal(0)},
		{"seq", kindNumber, value.NumberVal(0)},
	},
	"RAW": {
		{"load", kindText, value.StringVal("")},
	},
}

var layerAliases = map[string]string{
	"ETHERNET": "ETHER",
	"IPV4":     "IP",
	"PAYLOAD":  "RAW",
}

var displayNames = map[string]string{
	"ETHER": "Ether", "ARP": "ARP", "IP": "IP", "TCP": "TCP",
	"UDP": "UDP", "ICMP": "ICMP", "RAW": "Raw",
}

type layer struct {
	name   string
	fields map[string]value.Value
}

func (l *layer) defs() []fieldDef { return layerDefs[l.name] }

func (l *layer) def(name string) (fieldDef, bool) {
	for _, d := range l.defs() {
		if d.name == name {
			return d, true
		}
	}
	return fieldDef{}, false
}

func (l *layer) num(name string) int {
	if n, ok := l.fields[name].(value.NumberVal); ok {
		return int(n)
	}
	return 0
}

func (l *layer) str(name string) string {
	if v, ok := l.fields[name]; ok {
		return v.String()
	}
	return ""
}

// Frame is a stacked packet built from layer names such as ETHER/IP/TCP.
// Field reads and writes go to the first layer declaring the field, or to a
// specific layer with a "layer_field" key such as "ip_dst".
type Frame struct {
	mu     sync.Mutex
	layers []*layer
}

// NewFrame builds a frame with default field values.
func NewFrame(names ...string) (*Frame, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("a packet needs at least one layer")
	}
	f := &Frame{}
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if a, ok := layerAliases[n]; ok {
			n = a
		}
		defs, ok := layerDefs[n]
		if !ok {
			return nil, fmt.Errorf("unknown packet layer %q", n)
		}
		l := &layer{name: n, fields: make(map[string]value.Value, len(defs))}
		for _, d := range defs {
			l.fields[d.name] = d.def
		}
		f.layers = append(f.layers, l)
	}
	return f, nil
}

func (f *Frame) TypeName() string { return "Packet" }
func (f *Frame) String() string   { return f.Summary() }

// Layers returns the layer names, outermost first.
func (f *Frame) Layers() []string {
	out := make([]string, len(f.layers))
	for i, l := range f.layers {
		out[i] = l.name
	}
	return out
}

// Has reports whether the frame carries the named layer.
func (f *Frame) Has(name string) bool { return f.layer(name) != nil }

func (f *Frame) layer(name string) *layer {
	for _, l := range f.layers {
		if l.name == name {
			return l
		}
	}
	return nil
}

// qualified resolves a "layer_field" key such as "ip_dst".
func (f *Frame) qualified(key string) (*layer, fieldDef, bool) {
	pfx, field, ok := strings.Cut(strings.ToLower(key), "_")
	if !ok {
		return nil, fieldDef{}, false
	}
	name := strings.ToUpper(pfx)
	if a, ok := layerAliases[name]; ok {
		name = a
	}
	if l := f.layer(name); l != nil {
		if d, ok := l.def(field); ok {
			return l, d, true
		}
	}
	return nil, fieldDef{}, false
}

// Property reads a field. "layers" and "summary" are also readable.
func (f *Frame) Property(key string) (value.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch strings.ToLower(key) {
	case "layers":
		return value.StringVal(strings.Join(f.Layers(), "/")), true
	case "summary":
		return value.StringVal(f.summary()), true
	}
	cands := f.candidates(key)
	if len(cands) == 0 {
		return nil, false
	}
	c := cands[0]
	return c.layer.fields[c.def.name], true
}

// SetProperty assigns a field, converting the value to the field's kind.
// When the first declaring layer cannot hold the value (an IPv4 address for
// an Ethernet "dst") the next declaring layer is tried.
func (f *Frame) SetProperty(key string, v value.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cands := f.candidates(key)
	if len(cands) == 0 {
		return fmt.Errorf("packet layers %s have no field %q", strings.Join(f.Layers(), "/"), key)
	}
	var first error
	for _, c := range cands {
		conv, err := convertField(c.def, v)
		if err == nil {
			c.layer.fields[c.def.name] = conv
			return nil
		}
		if first == nil {
			first = fmt.Errorf("%s field %q: %w", displayNames[c.layer.name], c.def.name, err)
		}
	}
	return first
}

type candidate struct {
	layer *layer
	def   fieldDef
}

// candidates lists the layer fields a key may refer to, in lookup order.
func (f *Frame) candidates(key string) []candidate {
	if l, d, ok := f.qualified(key); ok {
		return []candidate{{l, d}}
	}
	var out []candidate
	key = strings.ToLower(key)
	for _, l := range f.layers {
		if d, ok := l.def(key); ok {
			out = append(out, candidate{l, d})
		}
	}
	return out
}

func convertField(d fieldDef, v value.Value) (value.Value, error) {
	switch d.kind {
	case kindNumber:
		switch n := v.(type) {
		case value.NumberVal:
			return n, nil
		case value.StringVal:
			s := strings.TrimSpace(string(n))
			if i, err := strconv.ParseInt(s, 0, 64); err == nil {
				return value.NumberVal(i), nil
			}
		}
		return nil, fmt.Errorf("expects a number, got %s", value.Repr(v))
	case kindMAC:
		hw, err := net.ParseMAC(v.String())
		if err != nil || len(hw) != 6 {
			return nil, fmt.Errorf("expects a MAC address, got %s", value.Repr(v))
		}
		return value.StringVal(hw.String()), nil
	case kindIP:
		ip := net.ParseIP(v.String())
		if ip == nil {
			// host names resolve at send time
			return value.StringVal(v.String()), nil
		}
		if ip.To4() == nil {
			return nil, fmt.Errorf("only IPv4 addresses are supported, got %s", v.String())
		}
		return value.StringVal(ip.To4().String()), nil
	}
	return value.StringVal(v.String()), nil
}

// Summary renders a one-line description of the frame.
func (f *Frame) Summary() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary()
}

func (f *Frame) summary() string {
	var parts []string
	for _, l := range f.layers {
		parts = append(parts, displayNames[l.name])
	}
	top := f.layers[len(f.layers)-1]
	if top.name == "RAW" && len(f.layers) > 1 {
		top = f.layers[len(f.layers)-2]
	}
	ip := f.layer("IP")
	detail := ""
	switch top.name {
	case "ARP":
		if top.num("op") == 2 {
			detail = fmt.Sprintf("is at %s says %s", top.str("hwsrc"), top.str("psrc"))
		} else {
			detail = fmt.Sprintf("who has %s says %s", top.str("pdst"), top.str("psrc"))
		}
	case "TCP":
		if ip != nil {
			detail = fmt.Sprintf("%s:%d > %s:%d %s", ip.str("src"), top.num("sport"), ip.str("dst"), top.num("dport"), top.str("flags"))
		}
	case "UDP":
		if ip != nil {
			detail = fmt.Sprintf("%s:%d > %s:%d", ip.str("src"), top.num("sport"), ip.str("dst"), top.num("dport"))
		}
	case "ICMP":
		if ip != nil {
			detail = fmt.Sprintf("%s > %s %s %d", ip.str("src"), ip.str("dst"), icmpName(top.num("type")), top.num("code"))
		}
	case "IP":
		detail = fmt.Sprintf("%s > %s", top.str("src"), top.str("dst"))
	case "ETHER":
		detail = fmt.Sprintf("%s > %s (type 0x%04x)", top.str("src"), top.str("dst"), top.num("type"))
	}
	s := strings.Join(parts, " / ")
	if detail != "" {
		s += " " + detail
	}
	return s
}

func icmpName(t int) string {
	switch t {
	case 0:
		return "echo-reply"
	case 3:
		return "dest-unreach"
	case 8:
		return "echo-request"
	case 11:
		return "time-exceeded"
	}
	return "type-" + strconv.Itoa(t)
}

// ---- wire encoding ----

const (
	etherARP  = 0x0806
	etherIPv4 = 0x0800

	protoICMP = 1
	protoTCP  = 6
	protoUDP  = 17
)

var tcpFlagBits = map[rune]byte{'F': 0x01, 'S': 0x02, 'R': 0x04, 'P': 0x08, 'A': 0x10, 'U': 0x20, 'E': 0x40, 'C': 0x80}

func tcpFlags(s string) byte {
	var b byte
	for _, r := range strings.ToUpper(s) {
		b |= tcpFlagBits[r]
	}
	return b
}

func tcpFlagString(b byte) string {
	var sb strings.Builder
	for _, r := range "FSRPAUEC" {
		if b&tcpFlagBits[r] != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func macBytes(s string) []byte {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return make([]byte, 6)
	}
	return hw
}

func ipBytes(s string) []byte {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return make([]byte, 4)
	}
	return ip
}

// checksum is the Internet checksum over b.
func checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i:]))
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

func pseudoChecksum(src, dst []byte, proto byte, segment []byte) uint16 {
	buf := make([]byte, 0, 12+len(segment))
	buf = append(buf, src...)
	buf = append(buf, dst...)
	buf = append(buf, 0, proto)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(segment)))
	buf = append(buf, segment...)
	return checksum(buf)
}

// Encode serializes the frame, innermost layer first so that lengths and
// checksums of outer layers cover their payload.
func (f *Frame) Encode() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var payload []byte
	for i := len(f.layers) - 1; i >= 0; i-- {
		l := f.layers[i]
		var next string
		if i+1 < len(f.layers) {
			next = f.layers[i+1].name
		}
		var err error
		payload, err = f.encodeLayer(l, next, payload)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func (f *Frame) encodeLayer(l *layer, next string, payload []byte) ([]byte, error) {
	switch l.name {
	case "RAW":
		return append([]byte(l.str("load")), payload...), nil

	case "ETHER":
		typ := uint16(l.num("type"))
		switch next {
		case "ARP":
			typ = etherARP
		case "IP":
			typ = etherIPv4
		}
		b := make([]byte, 14, 14+len(payload))
		copy(b[0:6], macBytes(l.str("dst")))
		copy(b[6:12], macBytes(l.str("src")))
		binary.BigEndian.PutUint16(b[12:14], typ)
		return append(b, payload...), nil

	case "ARP":
		b := make([]byte, 28, 28+len(payload))
		binary.BigEndian.PutUint16(b[0:2], 1)
		binary.BigEndian.PutUint16(b[2:4], etherIPv4)
		b[4], b[5] = 6, 4
		binary.BigEndian.PutUint16(b[6:8], uint16(l.num("op")))
		copy(b[8:14], macBytes(l.str("hwsrc")))
		copy(b[14:18], ipBytes(l.str("psrc")))
		copy(b[18:24], macBytes(l.str("hwdst")))
		copy(b[24:28], ipBytes(l.str("pdst")))
		return append(b, payload...), nil

	case "IP":
		proto := byte(l.num("proto"))
		switch next {
		case "TCP":
			proto = protoTCP
		case "UDP":
			proto = protoUDP
		case "ICMP":
			proto = protoICMP
		}
		src, dst := ipBytes(l.str("src")), ipBytes(l.str("dst"))
		if next == "TCP" || next == "UDP" {
			fixTransportChecksum(next, src, dst, payload)
		}
		total := 20 + len(payload)
		if total > 0xffff {
			return nil, fmt.Errorf("packet too large (%d bytes)", total)
		}
		b := make([]byte, 20, total)
		b[0] = 0x45
		binary.BigEndian.PutUint16(b[2:4], uint16(total))
		binary.BigEndian.PutUint16(b[4:6], uint16(l.num("id")))
		b[8] = byte(l.num("ttl"))
		b[9] = proto
		copy(b[12:16], src)
		copy(b[16:20], dst)
		binary.BigEndian.PutUint16(b[10:12], checksum(b))
		return append(b, payload...), nil

	case "TCP":
		b := make([]byte, 20, 20+len(payload))
		binary.BigEndian.PutUint16(b[0:2], uint16(l.num("sport")))
		binary.BigEndian.PutUint16(b[2:4], uint16(l.num("dport")))
		binary.BigEndian.PutUint32(b[4:8], uint32(l.num("seq")))
		binary.BigEndian.PutUint32(b[8:12], uint32(l.num("ack")))
		b[12] = 5 << 4
		b[13] = tcpFlags(l.str("flags"))
		binary.BigEndian.PutUint16(b[14:16], uint16(l.num("window")))
		return append(b, payload...), nil

	case "UDP":
		b := make([]byte, 8, 8+len(payload))
		binary.BigEndian.PutUint16(b[0:2], uint16(l.num("sport")))
		binary.BigEndian.PutUint16(b[2:4], uint16(l.num("dport")))
		binary.BigEndian.PutUint16(b[4:6], uint16(8+len(payload)))
		return append(b, payload...), nil

	case "ICMP":
		b := make([]byte, 8, 8+len(payload))
		b[0] = byte(l.num("type"))
		b[1] = byte(l.num("code"))
		binary.BigEndian.PutUint16(b[4:6], uint16(l.num("id")))
		binary.BigEndian.PutUint16(b[6:8], uint16(l.num("seq")))
		b = append(b, payload...)
		binary.BigEndian.PutUint16(b[2:4], checksum(b))
		return b, nil
	}
	return nil, fmt.Errorf("cannot encode layer %s", l.name)
}

// fixTransportChecksum fills the TCP or UDP checksum in segment, which
// must already hold the complete header and payload.
func fixTransportChecksum(name string, src, dst, segment []byte) {
	switch name {
	case "TCP":
		if len(segment) >= 20 {
			binary.BigEndian.PutUint16(segment[16:18], 0)
			binary.BigEndian.PutUint16(segment[16:18], pseudoChecksum(src, dst, protoTCP, segment))
		}
	case "UDP":
		if len(segment) >= 8 {
			binary.BigEndian.PutUint16(segment[6:8], 0)
			binary.BigEndian.PutUint16(segment[6:8], pseudoChecksum(src, dst, protoUDP, segment))
		}
	}
}

// ---- decoding ----

// Decode parses an Ethernet frame. Unknown upper layers are kept as Raw.
func Decode(b []byte) (*Frame, error) {
	if len(b) < 14 {
		return nil, fmt.Errorf("frame too short (%d bytes)", len(b))
	}
	f := &Frame{}
	eth := f.push("ETHER")
	eth.fields["dst"] = value.StringVal(net.HardwareAddr(b[0:6]).String())
	eth.fields["src"] = value.StringVal(net.HardwareAddr(b[6:12]).String())
	typ := binary.BigEndian.Uint16(b[12:14])
	eth.fields["type"] = value.NumberVal(typ)
	rest := b[14:]

	switch typ {
	case etherARP:
		if len(rest) < 28 {
			break
		}
		arp := f.push("ARP")
		arp.fields["op"] = value.NumberVal(binary.BigEndian.Uint16(rest[6:8]))
		arp.fields["hwsrc"] = value.StringVal(net.HardwareAddr(rest[8:14]).String())
		arp.fields["psrc"] = value.StringVal(net.IP(rest[14:18]).String())
		arp.fields["hwdst"] = value.StringVal(net.HardwareAddr(rest[18:24]).String())
		arp.fields["pdst"] = value.StringVal(net.IP(rest[24:28]).String())
		rest = nil

	case etherIPv4:
		if len(rest) < 20 || rest[0]>>4 != 4 {
			break
		}
		ihl := int(rest[0]&0x0f) * 4
		total := int(binary.BigEndian.Uint16(rest[2:4]))
		if ihl < 20 || len(rest) < ihl {
			break
		}
		if total >= ihl && total <= len(rest) {
			rest = rest[:total]
		}
		ip := f.push("IP")
		ip.fields["id"] = value.NumberVal(binary.BigEndian.Uint16(rest[4:6]))
		ip.fields["ttl"] = value.NumberVal(rest[8])
		ip.fields["proto"] = value.NumberVal(rest[9])
		ip.fields["src"] = value.StringVal(net.IP(rest[12:16]).String())
		ip.fields["dst"] = value.StringVal(net.IP(rest[16:20]).String())
		proto := rest[9]
		rest = rest[ihl:]
		rest = f.decodeTransport(proto, rest)
	}

	if len(rest) > 0 {
		raw := f.push("RAW")
		raw.fields["load"] = value.StringVal(rest)
	}
	return f, nil
}

func (f *Frame) decodeTransport(proto byte, b []byte) []byte {
	switch proto {
	case protoTCP:
		if len(b) < 20 {
			return b
		}
		off := int(b[12]>>4) * 4
		if off < 20 || off > len(b) {
			off = 20
		}
		t := f.push("TCP")
		t.fields["sport"] = value.NumberVal(binary.BigEndian.Uint16(b[0:2]))
		t.fields["dport"] = value.NumberVal(binary.BigEndian.Uint16(b[2:4]))
		t.fields["seq"] = value.NumberVal(binary.BigEndian.Uint32(b[4:8]))
		t.fields["ack"] = value.NumberVal(binary.BigEndian.Uint32(b[8:12]))
		t.fields["flags"] = value.StringVal(tcpFlagString(b[13]))
		t.fields["window"] = value.NumberVal(binary.BigEndian.Uint16(b[14:16]))
		return b[off:]
	case protoUDP:
		if len(b) < 8 {
			return b
		}
		u := f.push("UDP")
		u.fields["sport"] = value.NumberVal(binary.BigEndian.Uint16(b[0:2]))
		u.fields["dport"] = value.NumberVal(binary.BigEndian.Uint16(b[2:4]))
		return b[8:]
	case protoICMP:
		if len(b) < 8 {
			return b
		}
		c := f.push("ICMP")
		c.fields["type"] = value.NumberVal(b[0])
		c.fields["code"] = value.NumberVal(b[1])
		c.fields["id"] = value.NumberVal(binary.BigEndian.Uint16(b[4:6]))
		c.fields["seq"] = value.NumberVal(binary.BigEndian.Uint16(b[6:8]))
		return b[8:]
	}
	return b
}

func (f *Frame) push(name string) *layer {
	l := &layer{name: name, fields: map[string]value.Value{}}
	for _, d := range layerDefs[name] {
		l.fields[d.name] = d.def
	}
	f.layers = append(f.layers, l)
	return l
}
