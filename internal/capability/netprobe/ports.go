package netprobe

import (
	"fmt"
	"strconv"
	"strings"
)

// maxPorts bounds a single scan.
const maxPorts = 4096

// ParsePorts expands a port specification: a single port ("80"), a comma
// list ("22,80,443") or an inclusive range ("20-25"). Ranges and single
// ports may be mixed in a list. Duplicates are dropped; order is kept.
func ParsePorts(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty port list")
	}
	seen := map[int]bool{}
	var ports []int
	add := func(p int) error {
		if p < 1 || p > 65535 {
			return fmt.Errorf("port %d out of range", p)
		}
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
		if len(ports) > maxPorts {
			return fmt.Errorf("too many ports (limit %d)", maxPorts)
		}
		return nil
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < start {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			for p := start; p <= end; p++ {
				if err := add(p); err != nil {
					return nil, err
				}
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		if err := add(p); err != nil {
			return nil, err
		}
	}
	return ports, nil
}
