// Package checker implements the static type-checking pass that runs over the
// whole block tree before any statement executes.
//
// The checker is gradual: every binding without a declaration has type
// "any", and "any" is compatible with everything. The first failure aborts
// the pass.
package checker

import (
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/parser"
	"humanlang/internal/registry"
	"humanlang/internal/scope"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"log/slog"
)

// Checker holds the registry being checked against and the global type
// scope. A Checker may be reused across REPL entries; declarations persist.
type Checker struct {
	reg    *registry.Registry
	global *scope.Scope
}

// frame describes the task body being checked, if any.
type frame struct {
	task  *registry.Task
	class *registry.Class
}

// New creates a checker over a populated registry.
func New(reg *registry.Registry) *Checker {
	return &Checker{reg: reg, global: scope.New(nil)}
}

// Check runs a fresh checker over file.
func Check(reg *registry.Registry, file *ast.File) error {
	return New(reg).Check(file.Body)
}

// Check walks body in the global checker scope.
func (c *Checker) Check(body []ast.Element) error {
	slog.Debug("type check", slog.Int("elements", len(body)))
	return c.checkBody(body, c.global, nil)
}

func (c *Checker) checkBody(elems []ast.Element, sc *scope.Scope, fr *frame) error {
	for _, e := range elems {
		switch n := e.(type) {
		case *ast.Stmt:
			if n.Marker {
				continue
			}
			if err := c.checkStmt(n, sc, fr); err != nil {
				return err
			}
		case *ast.Block:
			if err := c.checkBlock(n, sc, fr); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) checkBlock(b *ast.Block, sc *scope.Scope, fr *frame) error {
	line := b.Line()
	switch b.Kind {
	case ast.BlockIf:
		cond, err := sentence.ParseIf(b.Head, line)
		if err != nil {
			return err
		}
		if err := c.checkCondition("if", cond, line, sc); err != nil {
			return err
		}
		return c.checkBody(b.Body, sc, fr)

	case ast.BlockWhile:
		cond, err := sentence.ParseWhile(b.Head, line)
		if err != nil {
			return err
		}
		if err := c.checkCondition("while", cond, line, sc); err != nil {
			return err
		}
		return c.checkBody(b.Body, sc, fr)

	case ast.BlockFor:
		head, err := sentence.ParseForEach(b.Head, line)
		if err != nil {
			return err
		}
		listType := c.Infer(head.Iterable, line, sc)
		loop := scope.New(sc)
		if err := loop.Declare(head.Var, sentence.ElementType(listType)); err != nil {
			return at(err, span.Line(line, len(b.Head)))
		}
		return c.checkBody(b.Body, loop, fr)

	case ast.BlockTry:
		guarded, handler, ok := parser.SplitHandler(b.Body)
		if !ok {
			return parser.MissingHandler(b)
		}
		if err := c.checkBody(guarded, sc, fr); err != nil {
			return err
		}
		hs := scope.New(sc)
		if err := hs.Declare("error_message", sentence.TypeString); err != nil {
			return err
		}
		return c.checkBody(handler, hs, fr)

	case ast.BlockClass:
		return c.checkClass(b)

	case ast.BlockTask:
		t, err := registry.NewTask(b)
		if err != nil {
			return err
		}
		return c.checkTask(t, nil)
	}
	return nil
}

func (c *Checker) checkCondition(what, text string, line int, sc *scope.Scope) error {
	typ := c.Infer(text, line, sc)
	if typ != sentence.TypeBoolean && typ != sentence.TypeAny {
		return diag.Errorf(diag.TypeMismatchError, "E2209", span.Line(line, len(text)),
			"%s condition must be a Boolean, but it is of type '%s'", what, typ)
	}
	return nil
}

func (c *Checker) checkClass(b *ast.Block) error {
	head, err := sentence.ParseClass(b.Head, b.Line())
	if err != nil {
		return err
	}
	cls, ok := c.reg.Class(head.Name)
	if !ok {
		return diag.Errorf(diag.UnknownIdentifierError, "E2104", span.Line(b.Line(), len(b.Head)),
			"class '%s' was not registered", head.Name)
	}
	for _, e := range b.Body {
		nb, ok := e.(*ast.Block)
		if !ok || nb.Kind != ast.BlockTask {
			continue
		}
		t, err := registry.NewTask(nb)
		if err != nil {
			return err
		}
		if err := c.checkTask(t, cls); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkTask(t *registry.Task, cls *registry.Class) error {
	sc := scope.New(c.global)
	headSpan := span.Line(t.Line, len(t.Name))
	if cls != nil {
		if err := sc.Declare("this", cls.Name); err != nil {
			return at(err, headSpan)
		}
	}
	for _, p := range t.Params {
		if err := sc.Declare(p.Name, p.Type); err != nil {
			return at(err, headSpan)
		}
	}
	return c.checkBody(t.Body, sc, &frame{task: t, class: cls})
}

// at attaches a location to a diagnostic that has none.
func at(err error, s span.Span) error {
	if d, ok := diag.As(err); ok {
		return d.At(s)
	}
	return err
}
