package netprobe

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Filter is a capture filter in a small subset of the pcap syntax:
// protocol words (arp, ip, tcp, udp, icmp), "port N", "src|dst port N",
// "host A", "src|dst host A", combined with "and", "or" and "not".
// Operators bind in the usual order: not, and, or.
type Filter struct {
	or [][]term // disjunction of conjunctions
}

type term struct {
	negate bool
	match  func(f *Frame) bool
}

// ParseFilter compiles a filter expression. The empty filter matches every
// frame.
func ParseFilter(expr string) (*Filter, error) {
	words := strings.Fields(strings.ToLower(expr))
	f := &Filter{}
	var conj []term
	for i := 0; i < len(words); {
		switch words[i] {
		case "or":
			if len(conj) == 0 {
				return nil, fmt.Errorf("filter %q: 'or' needs a left side", expr)
			}
			f.or = append(f.or, conj)
			conj = nil
			i++
			continue
		case "and", "&&":
			i++
			continue
		}
		negate := false
		for i < len(words) && (words[i] == "not" || words[i] == "!") {
			negate = !negate
			i++
		}
		if i >= len(words) {
			return nil, fmt.Errorf("filter %q: dangling 'not'", expr)
		}
		m, n, err := parsePrimitive(words[i:])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", expr, err)
		}
		conj = append(conj, term{negate: negate, match: m})
		i += n
	}
	if len(conj) > 0 {
		f.or = append(f.or, conj)
	} else if len(f.or) > 0 {
		return nil, fmt.Errorf("filter %q: 'or' needs a right side", expr)
	}
	return f, nil
}

func parsePrimitive(w []string) (func(*Frame) bool, int, error) {
	dir := ""
	n := 0
	if w[0] == "src" || w[0] == "dst" {
		dir, w, n = w[0], w[1:], 1
		if len(w) == 0 {
			return nil, 0, fmt.Errorf("'%s' needs 'port' or 'host'", dir)
		}
	}
	switch w[0] {
	case "arp", "ip", "tcp", "udp", "icmp":
		if dir != "" {
			return nil, 0, fmt.Errorf("unexpected '%s' before '%s'", dir, w[0])
		}
		name := strings.ToUpper(w[0])
		return func(f *Frame) bool { return f.Has(name) }, 1, nil
	case "port":
		if len(w) < 2 {
			return nil, 0, fmt.Errorf("'port' needs a number")
		}
		p, err := strconv.Atoi(w[1])
		if err != nil || p < 0 || p > 65535 {
			return nil, 0, fmt.Errorf("invalid port %q", w[1])
		}
		return func(f *Frame) bool { return f.hasPort(dir, p) }, n + 2, nil
	case "host":
		if len(w) < 2 {
			return nil, 0, fmt.Errorf("'host' needs an address")
		}
		ip := net.ParseIP(w[1])
		if ip == nil || ip.To4() == nil {
			return nil, 0, fmt.Errorf("invalid host %q", w[1])
		}
		addr := ip.To4().String()
		return func(f *Frame) bool { return f.hasHost(dir, addr) }, n + 2, nil
	}
	return nil, 0, fmt.Errorf("unsupported filter word %q", w[0])
}

// Match reports whether the frame passes the filter.
func (flt *Filter) Match(f *Frame) bool {
	if flt == nil || len(flt.or) == 0 {
		return true
	}
	for _, conj := range flt.or {
		ok := true
		for _, t := range conj {
			if t.match(f) == t.negate {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (f *Frame) hasPort(dir string, port int) bool {
	for _, name := range []string{"TCP", "UDP"} {
		l := f.layer(name)
		if l == nil {
			continue
		}
		if (dir != "dst" && l.num("sport") == port) || (dir != "src" && l.num("dport") == port) {
			return true
		}
	}
	return false
}

func (f *Frame) hasHost(dir, addr string) bool {
	if l := f.layer("IP"); l != nil {
		return (dir != "dst" && l.str("src") == addr) || (dir != "src" && l.str("dst") == addr)
	}
	if l := f.layer("ARP"); l != nil {
		return (dir != "dst" && l.str("psrc") == addr) || (dir != "src" && l.str("pdst") == addr)
	}
	return false
}
