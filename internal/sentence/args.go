package sentence

import (
	"regexp"
	"strings"
)

// SplitArgs splits an argument list on top-level commas. Commas inside
// quotes, brackets, braces or parentheses do not split.
func SplitArgs(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var (
		args  []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"':
			quote = ch
		case ch == '\'' && !isPossessive(text, i):
			quote = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			if depth > 0 {
				depth--
			}
		case ch == ',' && depth == 0:
			args = append(args, strings.TrimSpace(text[start:i]))
			start = i + 1
		}
	}
	return append(args, strings.TrimSpace(text[start:]))
}

// isPossessive reports whether the quote at i is the "'s" suffix of a word.
func isPossessive(text string, i int) bool {
	if i == 0 || i+1 >= len(text) {
		return false
	}
	prev := text[i-1]
	if prev == ' ' || prev == '\t' || prev == ',' || prev == '(' || prev == '[' {
		return false
	}
	if text[i+1] != 's' && text[i+1] != 'S' {
		return false
	}
	return i+2 >= len(text) || !isWordByte(text[i+2])
}

func isWordByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

var (
	targetPathRe = regexp.MustCompile(`(?i)^((?:this|\w+)(?:'s \w+)*)'s (\w+)$`)
	targetNameRe = regexp.MustCompile(`^\w+$`)
)

// ParseTarget parses an assignment destination: "x", "this's p" or
// "dog's owner's name".
func ParseTarget(text string) (Target, bool) {
	text = strings.TrimSpace(text)
	if m := targetPathRe.FindStringSubmatch(text); m != nil {
		recv := m[1]
		if strings.EqualFold(recv, "this") {
			recv = "this"
		}
		return Target{Receiver: recv, Property: m[2]}, true
	}
	if targetNameRe.MatchString(text) {
		return Target{Name: text}, true
	}
	return Target{}, false
}

// Builtin type names.
const (
	TypeAny     = "any"
	TypeNumber  = "Number"
	TypeString  = "String"
	TypeBoolean = "Boolean"
	TypeList    = "List"
	TypeObject  = "Object"
)

var builtinTypes = map[string]string{
	"any":     TypeAny,
	"number":  TypeNumber,
	"string":  TypeString,
	"text":    TypeString,
	"boolean": TypeBoolean,
	"list":    TypeList,
	"object":  TypeObject,
	"map":     TypeObject,
}

var listOfRe = regexp.MustCompile(`(?i)^list of (.+)$`)

// NormalizeType canonicalises a written type: builtin names get their
// canonical case, "list of x" becomes "List of X", class names are kept.
func NormalizeType(t string) string {
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return TypeAny
	}
	if m := listOfRe.FindStringSubmatch(t); m != nil {
		return TypeList + " of " + NormalizeType(m[1])
	}
	if canon, ok := builtinTypes[strings.ToLower(t)]; ok {
		return canon
	}
	return t
}

// ElementType returns T for "List of T" and any for every other type.
func ElementType(t string) string {
	if m := listOfRe.FindStringSubmatch(t); m != nil {
		return NormalizeType(m[1])
	}
	return TypeAny
}

// IsListType reports whether t is "List" or "List of T".
func IsListType(t string) bool {
	return t == TypeList || listOfRe.MatchString(t)
}

// IsBuiltinType reports whether t names a builtin (non-class) type.
func IsBuiltinType(t string) bool {
	if IsListType(t) {
		return true
	}
	_, ok := builtinTypes[strings.ToLower(t)]
	return ok
}
