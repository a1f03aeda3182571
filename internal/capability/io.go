package capability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"humanlang/internal/value"
)

// maxBody caps the size of an HTTP response body.
const maxBody = 10 << 20

// RegisterFiles installs file.read and file.write.
func RegisterFiles(r *Registry) {
	r.Handle(FileRead, readFile)
	r.Handle(FileWrite, writeFile)
}

func readFile(ctx context.Context, args []value.Value) (value.Value, error) {
	path, err := StringArg(args, 0, "file path")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return value.StringVal(data), nil
}

// writeFile replaces the file's contents with the display form of the value.
func writeFile(ctx context.Context, args []value.Value) (value.Value, error) {
	content, err := Arg(args, 0, "content")
	if err != nil {
		return nil, err
	}
	path, err := StringArg(args, 1, "file path")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(Display(content)), 0644); err != nil {
		return nil, err
	}
	return value.Null, nil
}

// HTTP serves http.get.
type HTTP struct {
	Client *http.Client
}

// NewHTTP creates an HTTP provider. A zero timeout leaves the limit to the
// request context.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{Client: &http.Client{Timeout: timeout}}
}

// Register installs http.get into r.
func (h *HTTP) Register(r *Registry) {
	r.Handle(HTTPGet, h.Get)
}

// Get fetches a URL and returns the body as a string. Non-2xx statuses fail.
func (h *HTTP) Get(ctx context.Context, args []value.Value) (value.Value, error) {
	url, err := StringArg(args, 0, "URL")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP request failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	return value.StringVal(body), nil
}

// RegisterJSON installs json.parse.
func RegisterJSON(r *Registry) {
	r.Handle(JSONParse, parseJSON)
}

func parseJSON(ctx context.Context, args []value.Value) (value.Value, error) {
	text, err := StringArg(args, 0, "JSON string")
	if err != nil {
		return nil, err
	}
	v, err := value.FromJSON([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return v, nil
}

// Standard returns a registry with the console, file, HTTP and JSON
// capabilities installed. Network probes are added by the netprobe package.
func Standard(out io.Writer, in io.Reader) *Registry {
	r := NewRegistry()
	NewConsole(out, in).Register(r)
	RegisterFiles(r)
	NewHTTP(0).Register(r)
	RegisterJSON(r)
	return r
}
