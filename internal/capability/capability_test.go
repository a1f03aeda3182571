package capability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"humanlang/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, r *Registry, name string, args ...value.Value) (value.Value, error) {
	t.Helper()
	return r.Call(context.Background(), Request{Name: name, Args: args})
}

func TestUnknownCapability(t *testing.T) {
	_, err := call(t, NewRegistry(), "teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestTimeoutIsApplied(t *testing.T) {
	r := NewRegistry()
	r.Handle("slow", func(ctx context.Context, args []value.Value) (value.Value, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := r.Call(context.Background(), Request{Name: "slow", Timeout: 10 * time.Millisecond})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestConsolePrintAndAsk(t *testing.T) {
	var out bytes.Buffer
	r := Standard(&out, strings.NewReader("Ada\n"))

	_, err := call(t, r, ConsolePrint, value.NewList(value.NumberVal(1), value.StringVal("a")))
	require.NoError(t, err)
	v, err := call(t, r, ConsoleAsk, value.StringVal("Name?"))
	require.NoError(t, err)

	assert.Equal(t, value.StringVal("Ada"), v)
	assert.Equal(t, "[1, \"a\"]\nName? ", out.String())

	_, err = call(t, r, ConsoleAsk, value.StringVal("Again?"))
	assert.Error(t, err, "input is exhausted")
}

func TestConsoleSerializesWrites(t *testing.T) {
	var out bytes.Buffer
	r := Standard(&out, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = call(t, r, ConsolePrint, value.StringVal("line"))
		}()
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat("line\n", 20), out.String())
}

func TestFileRoundTrip(t *testing.T) {
	r := Standard(&bytes.Buffer{}, nil)
	path := filepath.Join(t.TempDir(), "notes.txt")

	_, err := call(t, r, FileWrite, value.StringVal("hello"), value.StringVal(path))
	require.NoError(t, err)
	v, err := call(t, r, FileRead, value.StringVal(path))
	require.NoError(t, err)
	assert.Equal(t, value.StringVal("hello"), v)

	_, err = call(t, r, FileRead, value.StringVal(filepath.Join(t.TempDir(), "missing")))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestHTTPGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	r := Standard(&bytes.Buffer{}, nil)
	v, err := call(t, r, HTTPGet, value.StringVal(srv.URL+"/data"))
	require.NoError(t, err)
	assert.Equal(t, value.StringVal(`{"ok": true}`), v)

	_, err = call(t, r, HTTPGet, value.StringVal(srv.URL+"/missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestJSONParse(t *testing.T) {
	r := Standard(&bytes.Buffer{}, nil)
	v, err := call(t, r, JSONParse, value.StringVal(`{"name": "Rex", "tags": [1, 2]}`))
	require.NoError(t, err)
	m, ok := v.(*value.MapVal)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "tags"}, m.Keys)

	_, err = call(t, r, JSONParse, value.StringVal(`{nope`))
	assert.Error(t, err)
}

func TestNumberArg(t *testing.T) {
	n, err := NumberArg([]value.Value{value.StringVal("5")}, 0, "seconds")
	require.NoError(t, err)
	assert.Equal(t, 5.0, n)

	_, err = NumberArg([]value.Value{value.BoolVal(true)}, 0, "seconds")
	assert.Error(t, err)
	_, err = NumberArg(nil, 0, "seconds")
	assert.Error(t, err)
}

func TestTimeoutKey(t *testing.T) {
	assert.Equal(t, "http", TimeoutKey(HTTPGet))
	assert.Equal(t, "default", TimeoutKey(FileRead))
	assert.Equal(t, "", TimeoutKey(NetCapture))
}
