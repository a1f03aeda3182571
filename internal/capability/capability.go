// Package capability is the boundary between the interpreter and the outside
// world. Every side effect a program can have goes through a named
// capability: console output and input, files, HTTP, JSON decoding and the
// network probes in the netprobe subpackage.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"humanlang/internal/value"
)

// Request is one capability invocation.
type Request struct {
	Name    string
	Args    []value.Value
	Timeout time.Duration // zero means no limit
}

// Provider serves capability requests.
type Provider interface {
	Call(ctx context.Context, req Request) (value.Value, error)
}

// Handler implements a single capability.
type Handler func(ctx context.Context, args []value.Value) (value.Value, error)

// Registry is a Provider that dispatches by capability name.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Handle registers h under name, replacing any previous handler.
func (r *Registry) Handle(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the named handler with the request's timeout applied.
func (r *Registry) Call(ctx context.Context, req Request) (value.Value, error) {
	r.mu.RLock()
	h, ok := r.handlers[req.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown capability %q", req.Name)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := h(ctx, req.Args)
	slog.Debug("capability call",
		slog.String("name", req.Name),
		slog.Int("args", len(req.Args)),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil))
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = value.Null
	}
	return v, nil
}

// ---- argument helpers ----

// Arg returns args[i] or an error naming the missing operand.
func Arg(args []value.Value, i int, what string) (value.Value, error) {
	if i >= len(args) || args[i] == nil {
		return nil, fmt.Errorf("missing %s", what)
	}
	return args[i], nil
}

// StringArg returns the display form of args[i].
func StringArg(args []value.Value, i int, what string) (string, error) {
	v, err := Arg(args, i, what)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// NumberArg returns args[i] as a number. Numeric strings are accepted.
func NumberArg(args []value.Value, i int, what string) (float64, error) {
	v, err := Arg(args, i, what)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case value.NumberVal:
		return float64(n), nil
	case value.StringVal:
		var f float64
		if _, err := fmt.Sscan(string(n), &f); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%s must be a number, got %s", what, v.TypeName())
}
