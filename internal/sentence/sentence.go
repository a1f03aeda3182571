// Package sentence classifies single humanlang lines into typed sentences and
// parses the head lines of control and definition blocks.
//
// Operand fields hold raw expression text; evaluation happens later against a
// live scope.
package sentence

// Kind identifies the shape of a classified sentence.
type Kind int

const (
	KindDeclare Kind = iota
	KindSet
	KindCreate
	KindCreatePacket
	KindMath
	KindCapability
	KindPerform
	KindAwait
	KindReturn
	KindUse
)

var kindNames = map[Kind]string{
	KindDeclare:      "declare",
	KindSet:          "set",
	KindCreate:       "create",
	KindCreatePacket: "create packet",
	KindMath:         "math",
	KindCapability:   "capability",
	KindPerform:      "perform",
	KindAwait:        "await",
	KindReturn:       "return",
	KindUse:          "use",
}

func (k Kind) String() string { return kindNames[k] }

// Sentence is a classified statement line.
type Sentence interface {
	Kind() Kind
}

// Target is an assignment destination: either a variable Name or a Property
// of the value reached by the Receiver path ("this", "dog", "dog's owner").
type Target struct {
	Name     string
	Receiver string
	Property string
}

// IsProperty reports whether the target writes an object property.
func (t Target) IsProperty() bool { return t.Property != "" }

func (t Target) String() string {
	if t.IsProperty() {
		return t.Receiver + "'s " + t.Property
	}
	return t.Name
}

// Declare is "declare x as a T".
type Declare struct {
	Name string
	Type string
}

// Set is "set x to E" or "set r's p to E".
type Set struct {
	Target Target
	Value  string
}

// Create is "create a new "C" [with ARGS] and call it x".
type Create struct {
	Class string
	Args  []string
	Into  string
}

// CreatePacket is "create a new "Packet" with layers "ETHER/IP" and call it x".
type CreatePacket struct {
	Layers []string
	Into   string
}

// MathOp is one of the four in-place arithmetic sentences.
type MathOp string

const (
	MathAdd      MathOp = "add"
	MathSubtract MathOp = "subtract"
	MathMultiply MathOp = "multiply"
	MathDivide   MathOp = "divide"
)

// Math is "add E to T", "subtract E from T", "multiply T by E" or
// "divide T by E".
type Math struct {
	Op     MathOp
	Value  string
	Target Target
	// TargetText is the target as written, evaluated to read the old value.
	TargetText string
}

// Capability is any sentence served by a capability provider: console
// output and input, files, HTTP, JSON and network probes.
type Capability struct {
	Name       string   // capability name, e.g. "net.ping"
	Operands   []string // expression text, evaluated in order
	Literals   []string // operands taken verbatim (capture filters)
	Into       string   // result variable, empty when nothing is stored
	ResultType string   // declared type of the stored result
}

// Perform is a task or method invocation.
type Perform struct {
	Task     string
	Receiver string // set for method calls
	Args     []string
	Into     string
	Async    bool
}

// IsMethod reports whether the invocation targets a method on a receiver.
func (p *Perform) IsMethod() bool { return p.Receiver != "" }

// Await is "await all tasks".
type Await struct{}

// Return is "return E".
type Return struct {
	Value string
}

// Use is "use the library "path"".
type Use struct {
	Path string
}

func (*Declare) Kind() Kind      { return KindDeclare }
func (*Set) Kind() Kind          { return KindSet }
func (*Create) Kind() Kind       { return KindCreate }
func (*CreatePacket) Kind() Kind { return KindCreatePacket }
func (*Math) Kind() Kind         { return KindMath }
func (*Capability) Kind() Kind   { return KindCapability }
func (*Perform) Kind() Kind      { return KindPerform }
func (*Await) Kind() Kind        { return KindAwait }
func (*Return) Kind() Kind       { return KindReturn }
func (*Use) Kind() Kind          { return KindUse }
