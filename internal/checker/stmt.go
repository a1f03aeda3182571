package checker

import (
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/registry"
	"humanlang/internal/scope"
	"humanlang/internal/sentence"
	"humanlang/internal/span"
	"strings"
)

func (c *Checker) checkStmt(n *ast.Stmt, sc *scope.Scope, fr *frame) error {
	s, err := sentence.Classify(n.Text, n.Line())
	if err != nil {
		return err
	}
	line := n.Line()
	loc := span.Line(line, len(n.Text))

	switch st := s.(type) {
	case *sentence.Declare:
		if err := sc.Declare(st.Name, st.Type); err != nil {
			return at(err, loc)
		}

	case *sentence.Set:
		valueType := c.Infer(st.Value, line, sc)
		if !st.Target.IsProperty() {
			expected := sc.Type(st.Target.Name)
			if !c.Compatible(expected, valueType) {
				return diag.Errorf(diag.TypeMismatchError, "E2201", loc,
					"cannot assign expression of type '%s' to variable '%s' of type '%s'",
					valueType, st.Target.Name, expected)
			}
			return nil
		}
		expected, err := c.propertyType(st.Target, line, sc, fr, loc)
		if err != nil {
			return err
		}
		if !c.Compatible(expected, valueType) {
			return diag.Errorf(diag.TypeMismatchError, "E2203", loc,
				"cannot assign type '%s' to property '%s' of type '%s'", valueType, st.Target.Property, expected)
		}

	case *sentence.Create:
		return c.checkCreate(st, line, sc, loc)

	case *sentence.CreatePacket:
		if !sc.DeclaredHere(st.Into) {
			return at(sc.Declare(st.Into, "Packet"), loc)
		}

	case *sentence.Math:
		return c.checkMath(st, line, sc, fr, loc)

	case *sentence.Capability:
		if st.Into == "" || st.ResultType == "" {
			return nil
		}
		expected := sc.Type(st.Into)
		if !c.Compatible(expected, st.ResultType) {
			return diag.Errorf(diag.TypeMismatchError, "E2204", loc,
				"cannot store a %s result in '%s' of type '%s'", st.ResultType, st.Into, expected)
		}

	case *sentence.Perform:
		return c.checkPerform(st, line, sc, fr, loc)

	case *sentence.Return:
		if fr == nil || fr.task.Returns == sentence.TypeAny || st.Value == "" {
			return nil
		}
		actual := c.Infer(st.Value, line, sc)
		if !c.Compatible(fr.task.Returns, actual) {
			return diag.Errorf(diag.TypeMismatchError, "E2208", loc,
				"task '%s' returns %s, but the returned expression is of type '%s'",
				fr.task.Name, fr.task.Returns, actual)
		}
	}
	return nil
}

// propertyType resolves the declared type of a property assignment target.
func (c *Checker) propertyType(t sentence.Target, line int, sc *scope.Scope, fr *frame, loc span.Span) (string, error) {
	if t.Receiver == "this" && (fr == nil || fr.class == nil) {
		return "", diag.Errorf(diag.UnknownIdentifierError, "E2107", loc,
			"'this' can only be used inside a class method")
	}
	recvType := c.Infer(t.Receiver, line, sc)
	if recvType == sentence.TypeAny {
		return sentence.TypeAny, nil
	}
	cls, ok := c.reg.Class(recvType)
	if !ok {
		if isScalar(recvType) {
			return "", diag.Errorf(diag.TypeMismatchError, "E2202", loc,
				"cannot set property on '%s' of type '%s'", t.Receiver, recvType)
		}
		return sentence.TypeAny, nil
	}
	typ, ok := c.reg.FindProperty(cls, t.Property)
	if !ok {
		return "", diag.Errorf(diag.UnknownIdentifierError, "E2103", loc,
			"class '%s' has no declared property named '%s'", cls.Name, t.Property)
	}
	return typ, nil
}

func isScalar(typ string) bool {
	switch typ {
	case sentence.TypeNumber, sentence.TypeString, sentence.TypeBoolean:
		return true
	}
	return sentence.IsListType(typ)
}

func (c *Checker) checkCreate(st *sentence.Create, line int, sc *scope.Scope, loc span.Span) error {
	cls, ok := c.reg.Class(st.Class)
	if !ok {
		d := diag.Errorf(diag.UnknownIdentifierError, "E2104", loc,
			"attempted to create an instance of an unknown class '%s'", st.Class)
		if hint := sentence.Closest(st.Class, c.reg.ClassNames()); hint != "" {
			d.WithHint("did you mean '" + hint + "'?")
		}
		return d
	}
	if sc.DeclaredHere(st.Into) {
		if expected := sc.Type(st.Into); !c.Compatible(expected, cls.Name) {
			return diag.Errorf(diag.TypeMismatchError, "E2201", loc,
				"cannot store a new %s in '%s' of type '%s'", cls.Name, st.Into, expected)
		}
	} else if err := sc.Declare(st.Into, cls.Name); err != nil {
		return at(err, loc)
	}
	if init, ok := c.reg.FindMethod(cls, "initializer"); ok {
		if err := c.checkArgs(init, st.Args, line, sc, loc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkMath(st *sentence.Math, line int, sc *scope.Scope, fr *frame, loc span.Span) error {
	var targetType string
	if st.Target.IsProperty() {
		typ, err := c.propertyType(st.Target, line, sc, fr, loc)
		if err != nil {
			return err
		}
		targetType = typ
	} else {
		targetType = sc.Type(st.Target.Name)
	}
	valueType := c.Infer(st.Value, line, sc)
	result := sentence.TypeNumber
	if st.Op == sentence.MathAdd {
		result = plusType(targetType, valueType)
	}
	if !c.Compatible(targetType, result) {
		return diag.Errorf(diag.TypeMismatchError, "E2201", loc,
			"cannot %s a %s value into '%s' of type '%s'", st.Op, valueType, st.TargetText, targetType)
	}
	return nil
}

func (c *Checker) checkPerform(st *sentence.Perform, line int, sc *scope.Scope, fr *frame, loc span.Span) error {
	var task *registry.Task
	if st.IsMethod() {
		if st.Receiver == "this" && (fr == nil || fr.class == nil) {
			return diag.Errorf(diag.UnknownIdentifierError, "E2107", loc,
				"'this' can only be used inside a class method")
		}
		recvType := c.Infer(st.Receiver, line, sc)
		if recvType == sentence.TypeAny {
			return nil
		}
		cls, ok := c.reg.Class(recvType)
		if !ok {
			return diag.Errorf(diag.TypeMismatchError, "E2205", loc,
				"cannot perform task '%s' on '%s' of type '%s'", st.Task, st.Receiver, recvType)
		}
		m, ok := c.reg.FindMethod(cls, st.Task)
		if !ok {
			d := diag.Errorf(diag.UnknownIdentifierError, "E2105", loc,
				"class '%s' has no task named '%s'", cls.Name, st.Task)
			if hint := sentence.Closest(st.Task, c.reg.MethodNames(cls)); hint != "" {
				d.WithHint("did you mean '" + hint + "'?")
			}
			return d
		}
		task = m
	} else {
		t, ok := c.reg.Task(st.Task)
		if !ok {
			d := diag.Errorf(diag.UnknownIdentifierError, "E2106", loc,
				"attempted to call an unknown task '%s'", st.Task)
			if hint := sentence.Closest(st.Task, c.reg.TaskNames()); hint != "" {
				d.WithHint("did you mean '" + hint + "'?")
			}
			return d
		}
		task = t
	}

	if err := c.checkArgs(task, st.Args, line, sc, loc); err != nil {
		return err
	}
	if st.Into != "" {
		expected := sc.Type(st.Into)
		if !c.Compatible(expected, task.Returns) {
			return diag.Errorf(diag.TypeMismatchError, "E2207", loc,
				"cannot store the %s result of '%s' in '%s' of type '%s'", task.Returns, task.Name, st.Into, expected)
		}
	}
	return nil
}

func (c *Checker) checkArgs(t *registry.Task, args []string, line int, sc *scope.Scope, loc span.Span) error {
	if len(args) != t.Arity() {
		return diag.Errorf(diag.ArgumentCountError, "E2301", loc,
			"task '%s' expects %d %s but got %d", t.Name, t.Arity(), plural(t.Arity(), "argument"), len(args))
	}
	for i, p := range t.Params {
		actual := c.Infer(args[i], line, sc)
		if !c.Compatible(p.Type, actual) {
			return diag.Errorf(diag.TypeMismatchError, "E2206", loc,
				"argument '%s' of task '%s' expects %s, got %s", p.Name, t.Name, p.Type, actual)
		}
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Compatible reports whether a value of type actual may be stored in a
// binding declared as expected.
func (c *Checker) Compatible(expected, actual string) bool {
	if expected == sentence.TypeAny || actual == sentence.TypeAny || expected == actual {
		return true
	}
	if sentence.IsListType(expected) && sentence.IsListType(actual) {
		if expected == sentence.TypeList || actual == sentence.TypeList {
			return true
		}
		return c.Compatible(sentence.ElementType(expected), sentence.ElementType(actual))
	}
	if cls, ok := c.reg.Class(actual); ok {
		return c.reg.IsSubclass(cls, expected)
	}
	return strings.EqualFold(expected, actual) && sentence.IsBuiltinType(expected)
}
