package scope

import (
	"sync"
	"testing"

	"humanlang/internal/diag"
	"humanlang/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWalksOutward(t *testing.T) {
	global := New(nil)
	global.Set("x", value.NumberVal(1), "Number")
	inner := New(New(global))

	v, ok := inner.Get("x")
	require.True(t, ok)
	assert.Equal(t, value.NumberVal(1), v)
	assert.Equal(t, "Number", inner.Type("x"))

	_, ok = inner.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, AnyType, inner.Type("missing"))
}

func TestSetShadowsLocally(t *testing.T) {
	global := New(nil)
	global.Set("x", value.NumberVal(1), "")
	inner := New(global)
	inner.Set("x", value.NumberVal(2), "")

	v, _ := inner.Get("x")
	assert.Equal(t, value.NumberVal(2), v)
	v, _ = global.Get("x")
	assert.Equal(t, value.NumberVal(1), v)
}

func TestUpdateMutatesNearest(t *testing.T) {
	global := New(nil)
	global.Set("count", value.NumberVal(0), "")
	loop := New(global)

	assert.True(t, loop.Update("count", value.NumberVal(5)))
	v, _ := global.Get("count")
	assert.Equal(t, value.NumberVal(5), v)
	assert.False(t, loop.DeclaredHere("count"))

	assert.False(t, loop.Update("nobody", value.NumberVal(1)))
}

func TestUpdateFindsDeclaredOnlyName(t *testing.T) {
	global := New(nil)
	require.NoError(t, global.Declare("x", "Number"))
	inner := New(global)

	assert.True(t, inner.Update("x", value.NumberVal(3)))
	v, ok := global.Get("x")
	require.True(t, ok)
	assert.Equal(t, value.NumberVal(3), v)
}

func TestDeclareTwiceFails(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Declare("x", "Number"))
	err := s.Declare("x", "String")
	require.Error(t, err)
	assert.Equal(t, diag.DeclarationError, diag.KindOf(err))

	// Re-declaring in a nested scope shadows.
	inner := New(s)
	require.NoError(t, inner.Declare("x", "String"))
	assert.Equal(t, "String", inner.Type("x"))
	assert.Equal(t, "Number", s.Type("x"))
}

func TestSetKeepsDeclaredTypeForAny(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Declare("x", "Number"))
	s.Set("x", value.NumberVal(1), AnyType)
	assert.Equal(t, "Number", s.Type("x"))
}

func TestNames(t *testing.T) {
	global := New(nil)
	global.Set("b", value.Null, "")
	inner := New(global)
	inner.Set("a", value.Null, "")
	require.NoError(t, inner.Declare("c", "Number"))
	assert.Equal(t, []string{"a", "b", "c"}, inner.Names())
}

func TestPendingCollection(t *testing.T) {
	global := New(nil)
	inner := New(global)

	assert.Nil(t, inner.Drain())

	h1 := value.NewHandle("a")
	inner.Detach(h1)
	assert.Equal(t, 1, inner.Pending())
	assert.Equal(t, 0, global.Pending(), "collection lives on the issuing scope")

	nested := New(inner)
	h2 := value.NewHandle("b")
	nested.Detach(h2)
	assert.Equal(t, 2, inner.Pending(), "nested detach joins the nearest collection")

	handles := nested.Drain()
	assert.Equal(t, []*value.HandleVal{h1, h2}, handles)
	assert.Equal(t, 0, inner.Pending())
}

func TestConcurrentAccess(t *testing.T) {
	s := New(nil)
	s.Set("n", value.NumberVal(0), "")
	s.Detach(value.NewHandle("root"))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := New(s)
			child.Set("i", value.NumberVal(float64(i)), "")
			s.Update("n", value.NumberVal(float64(i)))
			_, _ = child.Get("n")
			child.Detach(value.NewHandle("t"))
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Drain(), 17)
}
