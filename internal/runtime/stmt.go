package runtime

import (
	"context"
	"humanlang/internal/ast"
	"humanlang/internal/capability"
	"humanlang/internal/diag"
	"humanlang/internal/scope"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"humanlang/internal/token"
	"humanlang/internal/value"
)

var mathOps = map[sentence.MathOp]token.Kind{
	sentence.MathAdd:      token.PLUS,
	sentence.MathSubtract: token.MINUS,
	sentence.MathMultiply: token.STAR,
	sentence.MathDivide:   token.SLASH,
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(ctx context.Context, n *ast.Stmt, sc *scope.Scope, fr *frame) (ExecResult, error) {
	line := n.Line()
	loc := span.Line(line, len(n.Text))

	s, err := sentence.Classify(n.Text, line)
	if err != nil {
		return resultNone, err
	}
	if s == nil {
		d := runtimeErr("E3003", line, "I don't understand the command: '%s'", n.Text)
		if hint := sentence.Suggest(n.Text); hint != "" {
			d.WithHint("did you mean '" + hint + " ...'?")
		}
		return resultNone, d
	}

	switch st := s.(type) {
	case *sentence.Declare:
		if !sc.DeclaredHere(st.Name) {
			if err := sc.Declare(st.Name, st.Type); err != nil {
				return resultNone, diag.Wrap("E2001", loc, err)
			}
			sc.Set(st.Name, value.Null, st.Type)
		}

	case *sentence.Set:
		v := i.evalText(st.Value, line, sc)
		return resultNone, i.assign(st.Target, v, line, sc)

	case *sentence.Create:
		return resultNone, i.instantiate(ctx, st, line, sc)

	case *sentence.CreatePacket:
		args := make([]value.Value, len(st.Layers))
		for n, l := range st.Layers {
			args[n] = value.StringVal(l)
		}
		v, err := i.call(ctx, capability.NetFrameBuild, args, loc)
		if err != nil {
			return resultNone, err
		}
		sc.Set(st.Into, v, "Packet")

	case *sentence.Math:
		old := i.evalText(st.TargetText, line, sc)
		operand := i.evalText(st.Value, line, sc)
		v, err := binaryOp(mathOps[st.Op], old, operand)
		if err != nil {
			return resultNone, runtimeErr("E3014", line, "cannot %s %s: %s", st.Op, st.TargetText, err)
		}
		return resultNone, i.assign(st.Target, v, line, sc)

	case *sentence.Capability:
		args := make([]value.Value, 0, len(st.Operands)+len(st.Literals))
		for _, op := range st.Operands {
			args = append(args, i.evalText(op, line, sc))
		}
		for _, lit := range st.Literals {
			args = append(args, value.StringVal(lit))
		}
		v, err := i.call(ctx, st.Name, args, loc)
		if err != nil {
			return resultNone, err
		}
		if st.Into != "" {
			store(sc, st.Into, v, st.ResultType)
		}

	case *sentence.Perform:
		return resultNone, i.perform(ctx, st, line, sc)

	case *sentence.Await:
		return resultNone, i.await(ctx, sc, loc)

	case *sentence.Return:
		if fr == nil {
			return resultNone, runtimeErr("E3002", line, "return outside of a task")
		}
		v := value.Null
		if st.Value != "" {
			v = i.evalText(st.Value, line, sc)
		}
		return ExecResult{Signal: SigReturn, Value: v}, nil

	case *sentence.Use:
		// resolved before execution
	}
	return resultNone, nil
}

// call performs a side effect through the provider.
func (i *Interpreter) call(ctx context.Context, name string, args []value.Value, loc span.Span) (value.Value, error) {
	v, err := i.provider.Call(ctx, capability.Request{
		Name:    name,
		Args:    args,
		Timeout: i.timeouts.For(capability.TimeoutKey(name)),
	})
	if err != nil {
		return nil, diag.Wrap("E3001", loc, err)
	}
	if v == nil {
		v = value.Null
	}
	return v, nil
}

// store assigns to the nearest binding of name, or binds it here.
func store(sc *scope.Scope, name string, v value.Value, typ string) {
	if !sc.Update(name, v) {
		sc.Set(name, v, typ)
	}
}

// assign writes a variable or an object property.
func (i *Interpreter) assign(t sentence.Target, v value.Value, line int, sc *scope.Scope) error {
	if !t.IsProperty() {
		store(sc, t.Name, v, "")
		return nil
	}
	recv, err := i.evalStrict(t.Receiver, line, sc)
	if err != nil {
		return diag.Wrap("E3008", span.Line(line, 0), err)
	}
	w, ok := recv.(value.PropertyWriter)
	if !ok {
		return runtimeErr("E3010", line, "cannot set property '%s' on '%s' of type %s", t.Property, t.Receiver, recv.TypeName())
	}
	if err := w.SetProperty(t.Property, v); err != nil {
		d := runtimeErr("E3010", line, "cannot set %s: %s", t, err)
		d.Cause = err
		return d
	}
	return nil
}

// instantiate creates an object, binds it and runs its initializer.
func (i *Interpreter) instantiate(ctx context.Context, st *sentence.Create, line int, sc *scope.Scope) error {
	cls, ok := i.reg.Class(st.Class)
	if !ok {
		d := diag.Errorf(diag.UnknownIdentifierError, "E3006", span.Line(line, 0),
			"attempted to create an instance of an unknown class '%s'", st.Class)
		if hint := sentence.Closest(st.Class, i.reg.ClassNames()); hint != "" {
			d.WithHint("did you mean '" + hint + "'?")
		}
		return d
	}
	obj := newObject(i.reg, cls)
	sc.Set(st.Into, obj, cls.Name)

	ctor, ok := i.reg.FindMethod(cls, "initializer")
	if !ok {
		return nil
	}
	args := i.evalArgs(st.Args, line, sc)
	_, err := i.invoke(ctx, ctor, obj, args, line)
	return err
}

func (i *Interpreter) evalArgs(texts []string, line int, sc *scope.Scope) []value.Value {
	args := make([]value.Value, len(texts))
	for n, text := range texts {
		args[n] = i.evalText(text, line, sc)
	}
	return args
}
