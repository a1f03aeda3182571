package runtime

import (
	"context"
	"humanlang/internal/diag"
	"humanlang/internal/registry"
	"humanlang/internal/scope"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"humanlang/internal/value"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ============================================================
// Task invocation
// ============================================================

func (i *Interpreter) perform(ctx context.Context, st *sentence.Perform, line int, sc *scope.Scope) error {
	loc := span.Line(line, 0)

	var (
		task *registry.Task
		recv *Object
	)
	if st.IsMethod() {
		v, err := i.evalStrict(st.Receiver, line, sc)
		if err != nil {
			return diag.Wrap("E3008", loc, err)
		}
		obj, ok := v.(*Object)
		if !ok {
			return diag.Errorf(diag.UnknownIdentifierError, "E3008", loc,
				"cannot perform task '%s' on '%s': it is a %s, not an object", st.Task, st.Receiver, v.TypeName())
		}
		m, ok := i.reg.FindMethod(obj.Class, st.Task)
		if !ok {
			d := diag.Errorf(diag.UnknownIdentifierError, "E3008", loc,
				"class '%s' has no task named '%s'", obj.Class.Name, st.Task)
			if hint := sentence.Closest(st.Task, i.reg.MethodNames(obj.Class)); hint != "" {
				d.WithHint("did you mean '" + hint + "'?")
			}
			return d
		}
		task, recv = m, obj
	} else {
		t, ok := i.reg.Task(st.Task)
		if !ok {
			d := diag.Errorf(diag.UnknownIdentifierError, "E3007", loc,
				"attempted to call an unknown task '%s'", st.Task)
			if hint := sentence.Closest(st.Task, i.reg.TaskNames()); hint != "" {
				d.WithHint("did you mean '" + hint + "'?")
			}
			return d
		}
		task = t
	}

	// Arguments belong to the caller's scope.
	args := i.evalArgs(st.Args, line, sc)

	if st.Async {
		if !task.Async {
			return runtimeErr("E3005", line, "task '%s' is not declared asynchronous", task.Name)
		}
		h := i.detach(ctx, task, recv, args, line, sc)
		if st.Into != "" {
			store(sc, st.Into, h, "")
		}
		return nil
	}

	result, err := i.invoke(ctx, task, recv, args, line)
	if err != nil {
		return err
	}
	if st.Into != "" {
		store(sc, st.Into, result, task.Returns)
	}
	return nil
}

// invoke runs a task synchronously in a fresh scope nested in the global
// scope. recv is bound as "this" for methods.
func (i *Interpreter) invoke(ctx context.Context, t *registry.Task, recv *Object, args []value.Value, line int) (value.Value, error) {
	if len(args) != t.Arity() {
		return nil, diag.Errorf(diag.ArgumentCountError, "E3009", span.Line(line, 0),
			"task '%s' expects %d argument(s) but got %d", t.Name, t.Arity(), len(args))
	}

	callee := scope.New(i.global)
	if recv != nil {
		callee.Set("this", recv, recv.Class.Name)
	}
	for n, p := range t.Params {
		callee.Set(p.Name, args[n], p.Type)
	}

	slog.Debug("invoke", slog.String("task", t.Name), slog.String("class", t.Class), slog.Int("line", line))
	result, err := i.execBody(ctx, t.Body, callee, &frame{task: t})
	if err != nil {
		return nil, err
	}
	if result.Signal == SigReturn && result.Value != nil {
		return result.Value, nil
	}
	return value.Null, nil
}

// detach starts an invocation in the background and registers its handle on
// the nearest pending collection.
func (i *Interpreter) detach(ctx context.Context, t *registry.Task, recv *Object, args []value.Value, line int, sc *scope.Scope) *value.HandleVal {
	h := value.NewHandle(t.Name)
	sc.Detach(h)
	i.unawaited.add(h, line)
	slog.Debug("detach", slog.String("task", t.Name), slog.String("handle", h.ID.String()), slog.Int("line", line))

	i.detached.Add(1)
	go func() {
		defer i.detached.Done()
		start := time.Now()
		v, err := i.invoke(ctx, t, recv, args, line)
		if err != nil {
			slog.Warn("detached task failed", slog.String("task", t.Name), slog.String("error", diag.Message(err)))
		}
		slog.Debug("detached task done", slog.String("task", t.Name), slog.Duration("elapsed", time.Since(start)))
		h.Complete(v, err)
	}()
	return h
}

// await drains the nearest pending collection and waits for every handle.
// The first failure is returned once all of them have finished.
func (i *Interpreter) await(ctx context.Context, sc *scope.Scope, loc span.Span) error {
	handles := sc.Drain()
	i.unawaited.remove(handles)
	slog.Debug("await", slog.Int("tasks", len(handles)), slog.Int("line", loc.Start.Line))

	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			_, err := h.Wait(ctx)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return cancelled(err, loc)
			}
			d := diag.Errorf(diag.KindOf(err), "E3011", loc, "task '%s' failed: %s", h.Task, diag.Message(err))
			d.Cause = err
			return d
		})
	}
	return g.Wait()
}

// ---- unawaited handles ----

type detachedHandle struct {
	h    *value.HandleVal
	line int
}

// handleSet tracks detached handles that no barrier has drained yet.
type handleSet struct {
	mu      sync.Mutex
	handles []detachedHandle
}

func (s *handleSet) add(h *value.HandleVal, line int) {
	s.mu.Lock()
	s.handles = append(s.handles, detachedHandle{h: h, line: line})
	s.mu.Unlock()
}

func (s *handleSet) remove(drained []*value.HandleVal) {
	if len(drained) == 0 {
		return
	}
	gone := make(map[*value.HandleVal]bool, len(drained))
	for _, h := range drained {
		gone[h] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.handles[:0]
	for _, d := range s.handles {
		if !gone[d.h] {
			kept = append(kept, d)
		}
	}
	s.handles = kept
}

func (s *handleSet) take() []detachedHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.handles
	s.handles = nil
	return out
}

// unawaitedFailure returns the first failure among finished handles that no
// barrier collected, in detach order.
func (i *Interpreter) unawaitedFailure() error {
	for _, d := range i.unawaited.take() {
		<-d.h.Done()
		_, err := d.h.Wait(context.Background())
		if err == nil {
			continue
		}
		e := diag.Errorf(diag.KindOf(err), "E3011", span.Line(d.line, 0),
			"task '%s' failed and was never awaited: %s", d.h.Task, diag.Message(err))
		e.Cause = err
		return e
	}
	return nil
}
