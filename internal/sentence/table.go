package sentence

import (
	"humanlang/internal/capability"
	"humanlang/internal/diag"
	"humanlang/internal/span"
	"regexp"
	"strings"
)

// rule is one row of the sentence table. A line is tried against a rule when
// it starts with one of the rule's prefixes; the first rule whose pattern
// matches and whose build succeeds wins.
type rule struct {
	prefixes []string
	re       *regexp.Regexp
	build    func(m []string) Sentence
}

func pattern(s string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + s + `$`)
}

func capture(name, resultType string, into int, operands ...int) func(m []string) Sentence {
	return func(m []string) Sentence {
		c := &Capability{Name: name, ResultType: resultType}
		for _, i := range operands {
			c.Operands = append(c.Operands, strings.TrimSpace(m[i]))
		}
		if into > 0 {
			c.Into = m[into]
		}
		return c
	}
}

func math(op MathOp, valueFirst bool) func(m []string) Sentence {
	return func(m []string) Sentence {
		value, target := m[1], m[2]
		if !valueFirst {
			value, target = m[2], m[1]
		}
		t, ok := ParseTarget(target)
		if !ok {
			return nil
		}
		return &Math{Op: op, Value: strings.TrimSpace(value), Target: t, TargetText: strings.TrimSpace(target)}
	}
}

// table is ordered: more specific prefixes precede generic ones.
var table = []rule{
	{
		prefixes: []string{"declare"},
		re:       pattern(`declare (\w+) as (?:an? )?(.+)`),
		build: func(m []string) Sentence {
			return &Declare{Name: m[1], Type: NormalizeType(m[2])}
		},
	},
	{
		prefixes: []string{"set"},
		re:       pattern(`set ((?:this|\w+)(?:'s \w+)*)'s (\w+) to (.+)`),
		build: func(m []string) Sentence {
			recv := m[1]
			if strings.EqualFold(recv, "this") {
				recv = "this"
			}
			return &Set{Target: Target{Receiver: recv, Property: m[2]}, Value: strings.TrimSpace(m[3])}
		},
	},
	{
		prefixes: []string{"set"},
		re:       pattern(`set (\w+) to (.+)`),
		build: func(m []string) Sentence {
			return &Set{Target: Target{Name: m[1]}, Value: strings.TrimSpace(m[2])}
		},
	},
	{
		prefixes: []string{`create a new "packet" with layers`},
		re:       pattern(`create a new "packet" with layers "([^"]+)" and call it (\w+)`),
		build: func(m []string) Sentence {
			var layers []string
			for _, l := range strings.Split(m[1], "/") {
				if l = strings.ToUpper(strings.TrimSpace(l)); l != "" {
					layers = append(layers, l)
				}
			}
			return &CreatePacket{Layers: layers, Into: m[2]}
		},
	},
	{
		prefixes: []string{"create a new"},
		re:       pattern(`create a new "([^"]+)"(?: with (.+?))? and call it (\w+)`),
		build: func(m []string) Sentence {
			return &Create{Class: m[1], Args: SplitArgs(m[2]), Into: m[3]}
		},
	},
	{prefixes: []string{"add"}, re: pattern(`add (.+?) to (.+)`), build: math(MathAdd, true)},
	{prefixes: []string{"subtract"}, re: pattern(`subtract (.+?) from (.+)`), build: math(MathSubtract, true)},
	{prefixes: []string{"multiply"}, re: pattern(`multiply (.+?) by (.+)`), build: math(MathMultiply, false)},
	{prefixes: []string{"divide"}, re: pattern(`divide (.+?) by (.+)`), build: math(MathDivide, false)},
	{
		prefixes: []string{"ask"},
		re:       pattern(`ask (.+?) and set the answer to (\w+)`),
		build:    capture(capability.ConsoleAsk, TypeString, 2, 1),
	},
	{
		prefixes: []string{"perform an arp scan on"},
		re:       pattern(`perform an arp scan on (.+?) and store the results in (\w+)`),
		build:    capture(capability.NetDiscover, "List of Object", 2, 1),
	},
	{
		prefixes: []string{"perform a port scan on"},
		re:       pattern(`perform a port scan on (.+?) for ports (.+?) and store the results in (\w+)`),
		build:    capture(capability.NetPortScan, TypeObject, 3, 1, 2),
	},
	{
		prefixes: []string{"perform a ping to"},
		re:       pattern(`perform a ping to (.+?) and store the result in (\w+)`),
		build:    capture(capability.NetPing, TypeString, 2, 1),
	},
	{
		prefixes: []string{"perform a traceroute to"},
		re:       pattern(`perform a traceroute to (.+?) and store the result in (\w+)`),
		build:    capture(capability.NetTraceroute, TypeString, 2, 1),
	},
	{
		prefixes: []string{"send packet"},
		re:       pattern(`send packet (.+?) and store the reply in (\w+)`),
		build:    capture(capability.NetFrameSend, TypeAny, 2, 1),
	},
	{
		prefixes: []string{"start sniffing"},
		re:       pattern(`start sniffing on interface (.+?) with filter "([^"]*)" for (.+?) seconds and store packets in (\w+)`),
		build: func(m []string) Sentence {
			c := capture(capability.NetCapture, TypeList, 4, 1, 3)(m).(*Capability)
			c.Literals = []string{m[2]}
			return c
		},
	},
	{
		prefixes: []string{"perform an http get request to"},
		re:       pattern(`perform an http get request to (.+?) and store the result in (\w+)`),
		build:    capture(capability.HTTPGet, TypeString, 2, 1),
	},
	{
		prefixes: []string{"perform"},
		re:       pattern(`perform "([^"]+)"(?: with (.+?))? asynchronously`),
		build: func(m []string) Sentence {
			return &Perform{Task: m[1], Args: SplitArgs(m[2]), Async: true}
		},
	},
	{
		prefixes: []string{"perform"},
		re:       pattern(`perform (this|\w+)'s task named "([^"]+)"(?: with (.+?))?(?: and store the result in (\w+))?`),
		build: func(m []string) Sentence {
			recv := m[1]
			if strings.EqualFold(recv, "this") {
				recv = "this"
			}
			return &Perform{Receiver: recv, Task: m[2], Args: SplitArgs(m[3]), Into: m[4]}
		},
	},
	{
		prefixes: []string{"perform"},
		re:       pattern(`perform "([^"]+)"(?: with (.+?))?(?: and store the result in (\w+))?`),
		build: func(m []string) Sentence {
			return &Perform{Task: m[1], Args: SplitArgs(m[2]), Into: m[3]}
		},
	},
	{
		prefixes: []string{"await all tasks"},
		re:       pattern(`await all tasks`),
		build:    func(m []string) Sentence { return &Await{} },
	},
	{
		prefixes: []string{"parse the json string"},
		re:       pattern(`parse the json string (.+?) and store the result in (\w+)`),
		build:    capture(capability.JSONParse, TypeObject, 2, 1),
	},
	{
		prefixes: []string{"return"},
		re:       pattern(`return(?: (.+))?`),
		build: func(m []string) Sentence {
			return &Return{Value: strings.TrimSpace(m[1])}
		},
	},
	{
		prefixes: []string{"show me", "print", "display"},
		re:       pattern(`(?:show me|print|display) (.+)`),
		build:    capture(capability.ConsolePrint, "", 0, 1),
	},
	{
		prefixes: []string{"write"},
		re:       pattern(`write (.+?) to the file (.+)`),
		build:    capture(capability.FileWrite, "", 0, 1, 2),
	},
	{
		prefixes: []string{"read the file"},
		re:       pattern(`read the file (.+?) and store the contents in (\w+)`),
		build:    capture(capability.FileRead, TypeString, 2, 1),
	},
	{
		prefixes: []string{"use the library"},
		re:       pattern(`use the library "([^"]+)"`),
		build: func(m []string) Sentence {
			return &Use{Path: m[1]}
		},
	},
}

// hasPrefix reports whether lower starts with prefix as whole words.
func hasPrefix(lower, prefix string) bool {
	if !strings.HasPrefix(lower, prefix) {
		return false
	}
	if len(lower) == len(prefix) {
		return true
	}
	return !isWordByte(lower[len(prefix)]) || !isWordByte(prefix[len(prefix)-1])
}

// Classify resolves a statement line to a sentence. A line that starts with a
// known prefix but does not fit any of its patterns is a structural error; a
// line with no known prefix yields (nil, nil).
func Classify(text string, line int) (Sentence, error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	matched := ""
	for _, r := range table {
		hit := ""
		for _, p := range r.prefixes {
			if hasPrefix(lower, p) {
				hit = p
				break
			}
		}
		if hit == "" {
			continue
		}
		if matched == "" {
			matched = hit
		}
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if s := r.build(m); s != nil {
			return s, nil
		}
	}
	if matched != "" {
		return nil, diag.Errorf(diag.StructuralParseError, "E1301", span.Line(line, len(text)),
			"malformed '%s' sentence: %s", matched, text)
	}
	return nil, nil
}

// Prefixes returns every sentence prefix in table order, without duplicates.
func Prefixes() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range table {
		for _, p := range r.prefixes {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
