// Package runtime executes humanlang programs: it resolves imports,
// registers classes and tasks, runs the type checker and then walks the
// block tree statement by statement.
package runtime

import (
	"context"
	"humanlang/internal/ast"
	"humanlang/internal/capability"
	"humanlang/internal/checker"
	"humanlang/internal/config"
	"humanlang/internal/diag"
	"humanlang/internal/modules"
	"humanlang/internal/parser"
	"humanlang/internal/registry"
	"humanlang/internal/scope"
	"humanlang/internal/span"
	"humanlang/internal/value"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from task
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  value.Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Interpreter
// ============================================================

// Provider performs every side effect on behalf of a program.
type Provider = capability.Provider

// Options configures an Interpreter. Zero values get defaults: a fresh
// registry, a loader with no library paths and the default timeouts.
type Options struct {
	Provider Provider
	Registry *registry.Registry
	Loader   *modules.Loader
	Timeouts *config.Timeouts
}

// Interpreter runs programs against one class/task registry. The global
// scope and the checker's declarations persist across runs, which is what
// the REPL relies on.
type Interpreter struct {
	reg      *registry.Registry
	global   *scope.Scope
	checker  *checker.Checker
	provider Provider
	loader   *modules.Loader
	timeouts config.Timeouts

	exprs     sync.Map       // exprKey -> parsed
	detached  sync.WaitGroup // detached task invocations still running
	unawaited handleSet
}

// NewInterpreter creates an interpreter.
func NewInterpreter(opts Options) *Interpreter {
	i := &Interpreter{
		reg:      opts.Registry,
		provider: opts.Provider,
		loader:   opts.Loader,
		global:   scope.New(nil),
	}
	if i.reg == nil {
		i.reg = registry.New()
	}
	if i.loader == nil {
		i.loader = modules.NewLoader()
	}
	if opts.Timeouts != nil {
		i.timeouts = *opts.Timeouts
	} else {
		i.timeouts = config.Default().Timeouts
	}
	if i.provider == nil {
		i.provider = capability.Standard(os.Stdout, os.Stdin)
	}
	i.checker = checker.New(i.reg)
	return i
}

// library creates an interpreter for an imported file: same registry,
// provider and loader, its own global scope.
func (i *Interpreter) library() *Interpreter {
	return NewInterpreter(Options{
		Provider: i.provider,
		Registry: i.reg,
		Loader:   i.loader,
		Timeouts: &i.timeouts,
	})
}

// Registry returns the class and task registry.
func (i *Interpreter) Registry() *registry.Registry { return i.reg }

// Global returns the global scope (useful for REPL).
func (i *Interpreter) Global() *scope.Scope { return i.global }

// Program is a parsed source file.
type Program struct {
	Path     string // absolute path, empty for inline source
	File     *ast.File
	Warnings []*diag.Diagnostic
}

// Compile parses source. Parser warnings are kept on the program; the first
// parser error fails.
func Compile(name, source string) (*Program, error) {
	file, diags := parser.Parse(name, source)
	if d := diag.FirstError(diags); d != nil {
		return nil, d
	}
	return &Program{File: file, Warnings: diags}, nil
}

// Load reads and parses a program file.
func Load(path string) (*Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	prog, err := Compile(abs, string(data))
	if err != nil {
		return nil, err
	}
	prog.Path = abs
	return prog, nil
}

// Prepare resolves the program's imports, registers its classes and tasks
// and type-checks it. Nothing in the program itself runs.
func (i *Interpreter) Prepare(ctx context.Context, prog *Program) error {
	if prog.Path != "" {
		i.loader.MarkLoaded(prog.Path)
	}
	return i.prepare(ctx, prog)
}

func (i *Interpreter) prepare(ctx context.Context, prog *Program) error {
	for _, w := range prog.Warnings {
		slog.Warn("parse warning", slog.String("file", prog.File.Name), slog.String("diagnostic", w.String()))
	}
	if err := i.importAll(ctx, prog); err != nil {
		return err
	}
	if err := i.reg.Collect(prog.File.Body); err != nil {
		return err
	}
	return i.checker.Check(prog.File.Body)
}

// Execute runs a prepared program's top level. Detached tasks that were
// never awaited are waited for before it returns, and the first of them to
// have failed is reported when the top level itself succeeded.
func (i *Interpreter) Execute(ctx context.Context, prog *Program) error {
	_, err := i.execBody(ctx, prog.File.Body, i.global, nil)
	i.detached.Wait()
	failed := i.unawaitedFailure()
	if err != nil {
		return err
	}
	return failed
}

// Run compiles, prepares and executes inline source.
func (i *Interpreter) Run(ctx context.Context, name, source string) error {
	prog, err := Compile(name, source)
	if err != nil {
		return err
	}
	if err := i.Prepare(ctx, prog); err != nil {
		return err
	}
	return i.Execute(ctx, prog)
}

// RunFile loads, prepares and executes a program file.
func (i *Interpreter) RunFile(ctx context.Context, path string) error {
	prog, err := Load(path)
	if err != nil {
		return err
	}
	if err := i.Prepare(ctx, prog); err != nil {
		return err
	}
	return i.Execute(ctx, prog)
}

// runtimeErr creates a RuntimeFailure at a line.
func runtimeErr(code string, line int, format string, args ...interface{}) *diag.Diagnostic {
	return diag.Errorf(diag.RuntimeFailure, code, span.Line(line, 0), format, args...)
}
