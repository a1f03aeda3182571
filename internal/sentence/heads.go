package sentence

import (
	"humanlang/internal/diag"
	"humanlang/internal/span"
	"strings"
)

// Param is a declared task parameter.
type Param struct {
	Name string
	Type string
}

// TaskHead is a parsed "define a task" line.
type TaskHead struct {
	Name    string
	Params  []Param
	Returns string
	Async   bool
}

// ClassHead is a parsed "define a class" line.
type ClassHead struct {
	Name   string
	Parent string
}

// Property is a parsed "it has a property" line.
type Property struct {
	Name string
	Type string
}

// ForEachHead is a parsed "for each X in Y" line.
type ForEachHead struct {
	Var      string
	Iterable string
}

var (
	ifRe       = pattern(`if (.+?)(?:,? then)?`)
	whileRe    = pattern(`while (.+?)(?: is true)?`)
	forEachRe  = pattern(`for each (\w+) in (.+)`)
	classRe    = pattern(`define an? class named "([^"]+)"(?: that inherits from "([^"]+)")?`)
	propertyRe = pattern(`it has an? property named "([^"]+)"(?: of type (.+))?`)
	taskRe     = pattern(`define an? (asynchronous )?task named "([^"]+)"(?: that accepts (.+?))?(?: and returns (?:an? )?(.+))?`)
	paramRe    = pattern(`"([^"]+)"(?: of type (.+))?`)
)

func headError(line int, head, format string, args ...interface{}) error {
	return diag.Errorf(diag.StructuralParseError, "E1302", span.Line(line, len(head)), format, args...)
}

// ParseIf returns the condition of an "if C then" head.
func ParseIf(head string, line int) (string, error) {
	m := ifRe.FindStringSubmatch(head)
	if m == nil {
		return "", headError(line, head, "malformed conditional: %s", head)
	}
	return strings.TrimSpace(m[1]), nil
}

// ParseWhile returns the condition of a "while C [is true]" head.
func ParseWhile(head string, line int) (string, error) {
	m := whileRe.FindStringSubmatch(head)
	if m == nil {
		return "", headError(line, head, "malformed loop: %s", head)
	}
	return strings.TrimSpace(m[1]), nil
}

// ParseForEach parses a "for each X in Y" head.
func ParseForEach(head string, line int) (ForEachHead, error) {
	m := forEachRe.FindStringSubmatch(head)
	if m == nil {
		return ForEachHead{}, headError(line, head, "malformed loop, expected 'for each X in Y': %s", head)
	}
	return ForEachHead{Var: m[1], Iterable: strings.TrimSpace(m[2])}, nil
}

// ParseClass parses a class definition head.
func ParseClass(head string, line int) (ClassHead, error) {
	m := classRe.FindStringSubmatch(head)
	if m == nil {
		return ClassHead{}, headError(line, head, "malformed class definition: %s", head)
	}
	return ClassHead{Name: m[1], Parent: m[2]}, nil
}

// ParseProperty parses an "it has a property" line. ok is false when the
// line is not a property declaration at all.
func ParseProperty(text string, line int) (p Property, ok bool, err error) {
	if !hasPrefix(strings.ToLower(text), "it has a property") && !hasPrefix(strings.ToLower(text), "it has an property") {
		return Property{}, false, nil
	}
	m := propertyRe.FindStringSubmatch(text)
	if m == nil {
		return Property{}, true, headError(line, text, "malformed property declaration: %s", text)
	}
	return Property{Name: m[1], Type: NormalizeType(m[2])}, true, nil
}

// ParseTask parses a task definition head.
func ParseTask(head string, line int) (TaskHead, error) {
	m := taskRe.FindStringSubmatch(head)
	if m == nil {
		return TaskHead{}, headError(line, head, "malformed task definition: %s", head)
	}
	th := TaskHead{
		Name:    m[2],
		Async:   m[1] != "",
		Returns: NormalizeType(m[4]),
	}
	for _, p := range SplitArgs(m[3]) {
		pm := paramRe.FindStringSubmatch(p)
		if pm == nil {
			return TaskHead{}, headError(line, head, "invalid parameter definition in task '%s': %s", th.Name, p)
		}
		th.Params = append(th.Params, Param{Name: pm[1], Type: NormalizeType(pm[2])})
	}
	return th, nil
}
