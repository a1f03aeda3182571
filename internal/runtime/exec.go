package runtime

import (
	"context"
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/parser"
	"humanlang/internal/registry"
	"humanlang/internal/scope"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"humanlang/internal/value"
	"log/slog"
)

// frame is the task invocation a body runs in; nil at top level.
type frame struct {
	task *registry.Task
}

// ============================================================
// Block execution
// ============================================================

func (i *Interpreter) execBody(ctx context.Context, elems []ast.Element, sc *scope.Scope, fr *frame) (ExecResult, error) {
	for _, e := range elems {
		if err := ctx.Err(); err != nil {
			return resultNone, cancelled(err, e.GetSpan())
		}

		var (
			result ExecResult
			err    error
		)
		switch n := e.(type) {
		case *ast.Stmt:
			if n.Marker {
				continue
			}
			result, err = i.execStmt(ctx, n, sc, fr)
		case *ast.Block:
			result, err = i.execBlock(ctx, n, sc, fr)
		}
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate return
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execBlock(ctx context.Context, b *ast.Block, sc *scope.Scope, fr *frame) (ExecResult, error) {
	switch b.Kind {
	case ast.BlockIf:
		return i.execIf(ctx, b, sc, fr)
	case ast.BlockWhile:
		return i.execWhile(ctx, b, sc, fr)
	case ast.BlockFor:
		return i.execForEach(ctx, b, sc, fr)
	case ast.BlockTry:
		return i.execTry(ctx, b, sc, fr)
	default:
		// definitions were registered before execution
		return resultNone, nil
	}
}

func (i *Interpreter) execIf(ctx context.Context, b *ast.Block, sc *scope.Scope, fr *frame) (ExecResult, error) {
	cond, err := sentence.ParseIf(b.Head, b.Line())
	if err != nil {
		return resultNone, err
	}
	then, otherwise := parser.SplitBranches(b.Body)
	if value.IsTruthy(i.evalText(cond, b.Line(), sc)) {
		return i.execBody(ctx, then, sc, fr)
	}
	return i.execBody(ctx, otherwise, sc, fr)
}

func (i *Interpreter) execWhile(ctx context.Context, b *ast.Block, sc *scope.Scope, fr *frame) (ExecResult, error) {
	cond, err := sentence.ParseWhile(b.Head, b.Line())
	if err != nil {
		return resultNone, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return resultNone, cancelled(err, b.Span)
		}
		if !value.IsTruthy(i.evalText(cond, b.Line(), sc)) {
			break
		}
		result, err := i.execBody(ctx, b.Body, sc, fr)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execForEach(ctx context.Context, b *ast.Block, sc *scope.Scope, fr *frame) (ExecResult, error) {
	head, err := sentence.ParseForEach(b.Head, b.Line())
	if err != nil {
		return resultNone, err
	}

	var items []value.Value
	switch it := i.evalText(head.Iterable, b.Line(), sc).(type) {
	case *value.ListVal:
		items = append(items, it.Elements...)
	case *value.MapVal:
		for _, k := range it.Keys {
			items = append(items, value.StringVal(k))
		}
	default:
		return resultNone, runtimeErr("E3004", b.Line(),
			"cannot loop over '%s': it is a %s, not a List", head.Iterable, it.TypeName())
	}

	for _, item := range items {
		loop := scope.New(sc)
		loop.Set(head.Var, item, "")
		result, err := i.execBody(ctx, b.Body, loop, fr)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execTry(ctx context.Context, b *ast.Block, sc *scope.Scope, fr *frame) (ExecResult, error) {
	guarded, handler, ok := parser.SplitHandler(b.Body)
	if !ok {
		return resultNone, parser.MissingHandler(b)
	}

	result, err := i.execBody(ctx, guarded, sc, fr)
	if err == nil {
		return result, nil
	}
	if !recoverable(ctx, err) {
		return resultNone, err
	}

	// Error occurred - run the handler once
	msg := diag.Message(err)
	slog.Info("error absorbed", slog.Int("line", b.Line()), slog.String("error", msg))
	hs := scope.New(sc)
	hs.Set("error_message", value.StringVal(msg), sentence.TypeString)
	return i.execBody(ctx, handler, hs, fr)
}

// recoverable reports whether an error-guarded block may absorb err.
// Cancellation of the run is never absorbed; a capability timing out on
// its own deadline is an ordinary failure.
func recoverable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return diag.KindOf(err).Recoverable()
}

func cancelled(err error, s span.Span) error {
	d := diag.Wrap("E3012", s, err)
	d.Message = "execution cancelled: " + err.Error()
	return d
}
