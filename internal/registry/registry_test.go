package registry

import (
	"testing"

	"humanlang/internal/diag"
	"humanlang/internal/parser"
	"humanlang/internal/sentence"
	"humanlang/internal/span"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defineAnimals(t *testing.T) (*Registry, *Class, *Class) {
	t.Helper()
	r := New()
	animal, err := r.DefineClass("Animal", "", span.Span{})
	require.NoError(t, err)
	animal.AddProperty("name", "String")
	animal.AddMethod(&Task{Name: "speak"})
	animal.AddMethod(&Task{Name: "describe", Params: []sentence.Param{{Name: "prefix", Type: "String"}}})

	dog, err := r.DefineClass("Dog", "Animal", span.Span{})
	require.NoError(t, err)
	dog.AddProperty("breed", "String")
	dog.AddMethod(&Task{Name: "speak"})
	return r, animal, dog
}

func TestMethodLookupWalksParent(t *testing.T) {
	r, animal, dog := defineAnimals(t)

	m, ok := r.FindMethod(dog, "describe")
	require.True(t, ok)
	assert.Equal(t, "Animal", m.Class)
	assert.Equal(t, 1, m.Arity())

	m, ok = r.FindMethod(dog, "speak")
	require.True(t, ok)
	assert.Equal(t, "Dog", m.Class, "subclass method overrides")

	_, ok = r.FindMethod(animal, "fetch")
	assert.False(t, ok)
}

func TestPropertyLookupWalksParent(t *testing.T) {
	r, _, dog := defineAnimals(t)

	typ, ok := r.FindProperty(dog, "name")
	require.True(t, ok)
	assert.Equal(t, "String", typ)

	_, ok = r.FindProperty(dog, "age")
	assert.False(t, ok)
}

func TestIsSubclass(t *testing.T) {
	r, animal, dog := defineAnimals(t)
	assert.True(t, r.IsSubclass(dog, "Animal"))
	assert.True(t, r.IsSubclass(dog, "Dog"))
	assert.False(t, r.IsSubclass(animal, "Dog"))
	assert.Same(t, animal, r.Parent(dog))
	assert.Nil(t, r.Parent(animal))
}

func TestUnknownParent(t *testing.T) {
	r := New()
	_, err := r.DefineClass("Cat", "Feline", span.Line(3, 10))
	require.Error(t, err)
	assert.Equal(t, diag.UnknownIdentifierError, diag.KindOf(err))
}

func TestRedefineKeepsIndex(t *testing.T) {
	r, animal, dog := defineAnimals(t)
	again, err := r.DefineClass("Animal", "", span.Span{})
	require.NoError(t, err)
	assert.Equal(t, animal.Index(), again.Index())
	assert.Same(t, again, r.Parent(dog))

	_, ok := r.FindMethod(dog, "describe")
	assert.False(t, ok, "replaced definition has no methods yet")
	assert.Equal(t, []string{"Animal", "Dog"}, r.ClassNames())
}

func TestTasks(t *testing.T) {
	r := New()
	r.DefineTask(&Task{Name: "greet"})
	r.DefineTask(&Task{Name: "fetch", Async: true})

	task, ok := r.Task("fetch")
	require.True(t, ok)
	assert.True(t, task.Async)

	_, ok = r.Task("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"fetch", "greet"}, r.TaskNames())
}

func TestMethodNames(t *testing.T) {
	r, _, dog := defineAnimals(t)
	assert.Equal(t, []string{"describe", "speak"}, r.MethodNames(dog))
}

func TestCollect(t *testing.T) {
	source := `
define a class named "Animal".
  it has a property named "name" of type String.
  define a task named "speak".
    show me "...".
  end task.
end class.
define a class named "Dog" that inherits from "Animal".
  define a task named "speak".
    show me "Woof".
  end task.
end class.
if true then.
  define an asynchronous task named "fetch" that accepts "url" of type String and returns a String.
    return url.
  end task.
end if.
`
	file, diags := parser.Parse("collect.hl", source)
	require.Empty(t, diags)

	r := New()
	require.NoError(t, r.Collect(file.Body))
	assert.Equal(t, []string{"Animal", "Dog"}, r.ClassNames())
	assert.Equal(t, []string{"fetch"}, r.TaskNames(), "methods are not free tasks")

	fetch, ok := r.Task("fetch")
	require.True(t, ok)
	assert.True(t, fetch.Async)
	assert.Equal(t, "String", fetch.Returns)
	assert.Equal(t, []sentence.Param{{Name: "url", Type: "String"}}, fetch.Params)
	assert.Len(t, fetch.Body, 1)

	dog, _ := r.Class("Dog")
	typ, ok := r.FindProperty(dog, "name")
	require.True(t, ok)
	assert.Equal(t, "String", typ)
}

func TestCollectMalformedParameter(t *testing.T) {
	file, _ := parser.Parse("bad.hl", "define a task named \"t\" that accepts url.\nend task.\n")
	err := New().Collect(file.Body)
	require.Error(t, err)
	assert.Equal(t, diag.StructuralParseError, diag.KindOf(err))
}
