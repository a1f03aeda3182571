package netprobe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"syscall"
	"time"

	"humanlang/internal/capability"
	"humanlang/internal/value"

	"golang.org/x/sync/errgroup"
)

// Port states reported by a scan.
const (
	PortOpen     = "Open"
	PortClosed   = "Closed"
	PortFiltered = "Filtered"
)

const (
	scanWorkers     = 64
	scanDialTimeout = 2 * time.Second
)

// PortScan probes each port with a TCP connect and returns an Object mapping
// port number to Open, Closed or Filtered, in the order the ports were given.
func PortScan(ctx context.Context, args []value.Value) (value.Value, error) {
	host, err := capability.StringArg(args, 0, "host")
	if err != nil {
		return nil, err
	}
	spec, err := capability.StringArg(args, 1, "ports")
	if err != nil {
		return nil, err
	}
	ports, err := ParsePorts(spec)
	if err != nil {
		return nil, err
	}

	slog.Info("port scan", slog.String("host", host), slog.String("ports", spec))
	states := make([]string, len(ports))
	dialer := &net.Dialer{Timeout: scanDialTimeout}

	var g errgroup.Group
	g.SetLimit(scanWorkers)
	for i, port := range ports {
		g.Go(func() error {
			states[i] = probePort(ctx, dialer, host, port)
			return nil
		})
	}
	_ = g.Wait()

	result := value.NewMap()
	for i, port := range ports {
		result.Set(strconv.Itoa(port), value.StringVal(states[i]))
	}
	slog.Info("port scan complete", slog.String("host", host), slog.Int("ports", len(ports)))
	return result, nil
}

func probePort(ctx context.Context, d *net.Dialer, host string, port int) string {
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		conn.Close()
		return PortOpen
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return PortClosed
	}
	return PortFiltered
}
