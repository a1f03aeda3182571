package registry

import (
	"humanlang/internal/ast"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"log/slog"
)

// Collect registers every class and task defined in body. Task definitions
// nested in control blocks or other tasks become free tasks; task
// definitions inside a class body become methods of that class only.
func (r *Registry) Collect(body []ast.Element) error {
	for _, e := range body {
		b, ok := e.(*ast.Block)
		if !ok {
			continue
		}
		switch b.Kind {
		case ast.BlockClass:
			if err := r.collectClass(b); err != nil {
				return err
			}
		case ast.BlockTask:
			t, err := NewTask(b)
			if err != nil {
				return err
			}
			r.DefineTask(t)
			slog.Debug("registered task", slog.String("task", t.Name), slog.Int("line", t.Line), slog.Bool("async", t.Async))
			if err := r.Collect(b.Body); err != nil {
				return err
			}
		default:
			if err := r.Collect(b.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) collectClass(b *ast.Block) error {
	head, err := sentence.ParseClass(b.Head, b.Line())
	if err != nil {
		return err
	}
	c, err := r.DefineClass(head.Name, head.Parent, span.Line(b.Line(), len(b.Head)))
	if err != nil {
		return err
	}
	slog.Debug("registered class", slog.String("class", c.Name), slog.String("parent", head.Parent), slog.Int("line", b.Line()))

	for _, e := range b.Body {
		switch n := e.(type) {
		case *ast.Stmt:
			p, ok, err := sentence.ParseProperty(n.Text, n.Line())
			if err != nil {
				return err
			}
			if ok {
				c.AddProperty(p.Name, p.Type)
			}
		case *ast.Block:
			if n.Kind != ast.BlockTask {
				continue
			}
			t, err := NewTask(n)
			if err != nil {
				return err
			}
			c.AddMethod(t)
		}
	}
	return nil
}

// NewTask builds a task definition from a task block.
func NewTask(b *ast.Block) (*Task, error) {
	head, err := sentence.ParseTask(b.Head, b.Line())
	if err != nil {
		return nil, err
	}
	return &Task{
		Name:    head.Name,
		Params:  head.Params,
		Body:    b.Body,
		Returns: head.Returns,
		Async:   head.Async,
		Line:    b.Line(),
	}, nil
}
