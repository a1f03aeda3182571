package value

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "7", NumberVal(7).String())
	assert.Equal(t, "3.5", NumberVal(3.5).String())
	assert.Equal(t, "-2", NumberVal(-2).String())
}

func TestStringProperties(t *testing.T) {
	s := StringVal("  hello world ")
	up, ok := s.Property("upper")
	require.True(t, ok)
	assert.Equal(t, StringVal("  HELLO WORLD "), up)

	strip, _ := s.Property("strip")
	assert.Equal(t, StringVal("hello world"), strip)

	title, _ := StringVal("hello world").Property("Title")
	assert.Equal(t, StringVal("Hello World"), title)

	_, ok = s.Property("nope")
	assert.False(t, ok)
}

func TestContainers(t *testing.T) {
	list := NewList(NumberVal(1), StringVal("a"), BoolVal(true))
	assert.Equal(t, `[1, "a", true]`, list.String())
	n, ok := Length(list)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	m := NewMap()
	m.Set("Name", StringVal("Rex"))
	m.Set("age", NumberVal(3))
	assert.Equal(t, `{"Name": "Rex", "age": 3}`, m.String())

	v, ok := m.Get("name")
	require.True(t, ok, "lower-case fallback")
	assert.Equal(t, StringVal("Rex"), v)

	m.Set("age", NumberVal(4))
	assert.Equal(t, []string{"Name", "age"}, m.Keys)
}

func TestEqualAndCompare(t *testing.T) {
	assert.True(t, Equal(NumberVal(1), NumberVal(1)))
	assert.False(t, Equal(NumberVal(1), StringVal("1")))
	assert.True(t, Equal(Null, NullVal{}))
	assert.True(t, Equal(NewList(NumberVal(1)), NewList(NumberVal(1))))

	c, ok := Compare(NumberVal(10), NumberVal(5))
	assert.True(t, ok)
	assert.Equal(t, 1, c)
	c, ok = Compare(StringVal("a"), StringVal("b"))
	assert.True(t, ok)
	assert.Equal(t, -1, c)
	_, ok = Compare(StringVal("a"), NumberVal(1))
	assert.False(t, ok)
}

func TestTruthy(t *testing.T) {
	assert.False(t, IsTruthy(Null))
	assert.False(t, IsTruthy(NumberVal(0)))
	assert.False(t, IsTruthy(StringVal("")))
	assert.True(t, IsTruthy(BoolVal(true)))
	assert.True(t, IsTruthy(NewList(Null)))
}

func TestTypeMatches(t *testing.T) {
	assert.True(t, TypeMatches(NumberVal(1), "Number"))
	assert.True(t, TypeMatches(NumberVal(1), "any"))
	assert.False(t, TypeMatches(NumberVal(1), "String"))
	assert.True(t, TypeMatches(NewList(), "List of Number"))
	assert.True(t, TypeMatches(Null, "String"))
}

func TestFromJSONKeepsOrder(t *testing.T) {
	v, err := FromJSON([]byte(`{"b": 1, "a": [true, null, "x"], "c": {"d": 2.5}}`))
	require.NoError(t, err)
	m, ok := v.(*MapVal)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys)
	assert.Equal(t, `{"b": 1, "a": [true, null, "x"], "c": {"d": 2.5}}`, m.String())

	_, err = FromJSON([]byte(`{"b": 1} trailing`))
	assert.Error(t, err)
}

func TestHandle(t *testing.T) {
	h := NewHandle("fetch")
	assert.Contains(t, h.String(), "pending")

	go h.Complete(NumberVal(1), nil)
	v, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NumberVal(1), v)
	assert.Contains(t, h.String(), "done")

	// Later completions are ignored.
	h.Complete(nil, errors.New("late"))
	_, err = h.Wait(context.Background())
	assert.NoError(t, err)
}

func TestHandleWaitCancelled(t *testing.T) {
	h := NewHandle("slow")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
