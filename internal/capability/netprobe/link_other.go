//go:build !linux

package netprobe

import "net"

func openLink(ifi *net.Interface, outgoing bool) (link, error) {
	return nil, ErrUnsupported
}

func defaultGateway() (net.IP, error) {
	return nil, ErrUnsupported
}
