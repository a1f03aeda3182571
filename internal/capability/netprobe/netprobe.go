// Package netprobe implements the network capabilities: host discovery,
// TCP port scans, ping, traceroute and raw packet construction, sending and
// capture.
//
// Ping and traceroute use ICMP sockets. Discovery, raw sends and capture
// use link-layer sockets, which are only available on Linux; elsewhere
// those capabilities fail with ErrUnsupported. Most operations need
// elevated privileges and report a privilege error when the kernel refuses
// the socket.
package netprobe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"humanlang/internal/capability"
	"humanlang/internal/value"
)

// ErrUnsupported is returned for link-layer operations on platforms without
// packet sockets.
var ErrUnsupported = errors.New("raw packet access is not supported on this platform")

const (
	msgARP        = "ARP scans require root/administrator privileges"
	msgPing       = "Ping operations require root/administrator privileges"
	msgTraceroute = "Traceroute operations require root/administrator privileges"
	msgSend       = "Sending custom packets requires root/administrator privileges"
	msgSniff      = "Sniffing requires root/administrator privileges"
)

// Register installs every net.* capability into r.
func Register(r *capability.Registry) {
	r.Handle(capability.NetDiscover, Discover)
	r.Handle(capability.NetPortScan, PortScan)
	r.Handle(capability.NetPing, Ping)
	r.Handle(capability.NetTraceroute, Traceroute)
	r.Handle(capability.NetFrameBuild, BuildFrame)
	r.Handle(capability.NetFrameSend, Send)
	r.Handle(capability.NetCapture, Capture)
}

// BuildFrame creates a packet from layer names such as "ETHER", "IP", "TCP".
func BuildFrame(ctx context.Context, args []value.Value) (value.Value, error) {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.String()
	}
	f, err := NewFrame(names...)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// privileged replaces a permission failure with msg.
func privileged(err error, msg string) error {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}

// deadline is the context deadline, or def from now when there is none.
func deadline(ctx context.Context, def time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(def)
}
