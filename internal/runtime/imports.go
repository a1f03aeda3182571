package runtime

import (
	"context"
	"fmt"
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"log/slog"
)

type use struct {
	path string
	line int
}

// uses finds every library import in the tree, in source order.
func uses(body []ast.Element) []use {
	var out []use
	ast.Walk(body, func(e ast.Element) bool {
		st, ok := e.(*ast.Stmt)
		if !ok {
			return true
		}
		if s, err := sentence.Classify(st.Text, st.Line()); err == nil {
			if u, ok := s.(*sentence.Use); ok {
				out = append(out, use{path: u.Path, line: st.Line()})
			}
		}
		return false
	})
	return out
}

// importAll loads the libraries a program uses. Each library is parsed,
// prepared and run in its own global scope; its classes and tasks land in
// the shared registry.
func (i *Interpreter) importAll(ctx context.Context, prog *Program) error {
	for _, u := range uses(prog.File.Body) {
		if err := i.importLibrary(ctx, u, prog.Path); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interpreter) importLibrary(ctx context.Context, u use, importer string) (err error) {
	loc := span.Line(u.line, 0)
	fail := func(err error) error {
		if _, ok := diag.As(err); ok {
			return err
		}
		return diag.Wrap("E3013", loc, fmt.Errorf("cannot use library %q: %w", u.path, err))
	}

	abs, err := i.loader.Resolve(u.path, importer)
	if err != nil {
		return fail(err)
	}
	fresh, err := i.loader.Begin(abs)
	if err != nil {
		return fail(err)
	}
	if !fresh {
		slog.Debug("library already loaded", slog.String("path", abs))
		return nil
	}
	defer func() { i.loader.Finish(abs, err) }()

	src, err := i.loader.Read(abs)
	if err != nil {
		return fail(err)
	}
	prog, err := Compile(abs, src)
	if err != nil {
		return err
	}
	prog.Path = abs

	slog.Debug("import", slog.String("library", abs), slog.String("importer", importer))
	lib := i.library()
	if err := lib.prepare(ctx, prog); err != nil {
		return err
	}
	return lib.Execute(ctx, prog)
}
