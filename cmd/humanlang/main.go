// Command humanlang runs programs written in humanlang, a block-structured
// language of English sentences.
//
// Usage:
//
//	humanlang [flags] run    <file>   Check and run a program
//	humanlang [flags] check  <file>   Parse and type-check only
//	humanlang [flags] blocks <file>   Print the block tree as JSON
//	humanlang [flags] tokens <file>   Print expression tokens per line
//	humanlang [flags] repl            Start interactive REPL
package main

import (
	"context"
	"flag"
	"fmt"
	"humanlang/internal/ast"
	"humanlang/internal/capability"
	"humanlang/internal/capability/netprobe"
	"humanlang/internal/config"
	"humanlang/internal/diag"
	"humanlang/internal/lexer"
	"humanlang/internal/modules"
	"humanlang/internal/parser"
	"humanlang/internal/runtime"
	"humanlang/internal/token"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
)

var (
	// logging
	logLevel string
	logFile  string
	// config
	configDir string
	jsonMode  bool
)

func init() {
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, none (default from humanlang.toml, else none)")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
	flag.StringVar(&configDir, "config", "", "Directory to search for humanlang.toml (default: the program's directory)")
	flag.BoolVar(&jsonMode, "json", false, "Print tokens as JSON")
	flag.Usage = usage
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		return exitUsage
	}

	command, args := flag.Arg(0), flag.Args()[1:]
	needsFile := command != "repl"
	if needsFile && len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: missing file argument")
		return exitUsage
	}

	start := configDir
	if start == "" {
		start = "."
		if needsFile {
			start = filepath.Dir(args[0])
		}
	}
	cfg, err := config.FindAndLoad(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUsage
	}
	if logLevel == "" {
		logLevel = cfg.Run.LogLevel
	}
	configureLogging()
	slog.Debug("configuration", slog.String("dir", cfg.Dir), slog.Any("imports", cfg.ImportPaths()))

	switch command {
	case "run":
		if cfg.Run.CheckOnly {
			return cmdCheck(cfg, args[0])
		}
		return cmdRun(cfg, args[0])
	case "check":
		return cmdCheck(cfg, args[0])
	case "blocks":
		return cmdBlocks(args[0])
	case "tokens":
		return cmdTokens(args[0])
	case "repl":
		return cmdRepl(cfg)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command '%s'\n", command)
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  humanlang [flags] run    <file>   Check and run a program")
	fmt.Fprintln(os.Stderr, "  humanlang [flags] check  <file>   Parse and type-check only")
	fmt.Fprintln(os.Stderr, "  humanlang [flags] blocks <file>   Print the block tree as JSON")
	fmt.Fprintln(os.Stderr, "  humanlang [flags] tokens <file>   Print expression tokens per line (-json for JSON)")
	fmt.Fprintln(os.Stderr, "  humanlang [flags] repl            Start interactive REPL")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

// ---- logging ----

func configureLogging() {
	if strings.EqualFold(logLevel, "none") {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return
	}
	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(logLevel),
	}
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOptions)))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(configureLogWriter(), loggerOptions)))
}

func configureLogWriter() *os.File {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	logWriter, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return logWriter
}

func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// ---- interpreter wiring ----

func newInterpreter(cfg *config.Config, out io.Writer, in io.Reader) *runtime.Interpreter {
	provider := capability.Standard(out, in)
	netprobe.Register(provider)
	return runtime.NewInterpreter(runtime.Options{
		Provider: provider,
		Loader:   modules.NewLoader(cfg.ImportPaths()...),
		Timeouts: &cfg.Timeouts,
	})
}

// load reads and parses a program, reporting failures on stderr.
func load(path string) (*runtime.Program, int) {
	prog, err := runtime.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, exitCode(err)
	}
	printDiagsText(os.Stderr, prog.Warnings)
	return prog, exitOK
}

// ---- run command ----

func cmdRun(cfg *config.Config, path string) int {
	prog, code := load(path)
	if prog == nil {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interp := newInterpreter(cfg, os.Stdout, os.Stdin)
	if err := interp.Prepare(ctx, prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return prepareExitCode(err)
	}
	if err := interp.Execute(ctx, prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if _, ok := diag.As(err); !ok {
			return exitRuntime
		}
		return exitCode(err)
	}
	return exitOK
}

// ---- check command ----

func cmdCheck(cfg *config.Config, path string) int {
	prog, code := load(path)
	if prog == nil {
		return code
	}
	interp := newInterpreter(cfg, os.Stdout, os.Stdin)
	if err := interp.Prepare(context.Background(), prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return prepareExitCode(err)
	}
	fmt.Printf("%s: ok\n", path)
	return exitOK
}

// ---- blocks command ----

func cmdBlocks(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", path, err)
		return exitUsage
	}
	file, diags := parser.Parse(path, string(source))
	printJSON(map[string]interface{}{
		"ast":         ast.NodeToMap(file),
		"diagnostics": diagsToSlice(diags),
	})
	if diag.HasErrors(diags) {
		return exitStatic
	}
	return exitOK
}

// ---- tokens command ----

func cmdTokens(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", path, err)
		return exitUsage
	}

	var (
		tokens []token.Token
		diags  []*diag.Diagnostic
	)
	for _, line := range parser.Lines(string(source)) {
		toks, ds := lexer.NewAt(line.Text, line.Number).Tokenize()
		tokens = append(tokens, toks...)
		diags = append(diags, ds...)
	}

	if jsonMode {
		printTokensJSON(tokens, diags)
	} else {
		printTokensText(tokens)
		printDiagsText(os.Stderr, diags)
	}
	if len(diags) > 0 {
		return exitStatic
	}
	return exitOK
}
