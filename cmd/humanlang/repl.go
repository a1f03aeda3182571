package main

import (
	"context"
	"errors"
	"fmt"
	"humanlang/internal/capability"
	"humanlang/internal/config"
	"humanlang/internal/parser"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

const (
	promptMain = colorGreen + "humanlang> " + colorReset
	promptMore = colorGray + "...        " + colorReset
)

// ---- repl command ----

func cmdRepl(cfg *config.Config) int {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptMain,
		HistoryFile:       cfg.HistoryPath(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		return exitUsage
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%shumanlang REPL%s %s(type 'exit' or Ctrl+D to quit, 'names' to list bindings)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	interp := newInterpreter(cfg, rl.Stdout(), os.Stdin)
	var accumulated strings.Builder
	depth := 0

	for {
		if depth > 0 {
			rl.SetPrompt(promptMore)
		} else {
			rl.SetPrompt(promptMain)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if depth > 0 {
					// Cancel the unfinished block
					accumulated.Reset()
					depth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		trimmed := parser.CleanLine(line)
		if depth == 0 {
			switch trimmed {
			case "exit", "quit":
				return exitOK
			case "names":
				for _, name := range interp.Global().Names() {
					v, _ := interp.Global().Get(name)
					fmt.Fprintf(rl.Stdout(), "%s%s%s : %s = %s\n", colorYellow, name, colorReset, interp.Global().Type(name), capability.Display(v))
				}
				continue
			}
		}

		// Blocks are run once their last closer arrives
		depth += parser.DepthDelta(line)
		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		if depth > 0 {
			continue
		}
		depth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = interp.Run(ctx, "<repl>", source)
		stop()
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "%serror: %s%s\n", colorRed, err, colorReset)
		}
	}
	return exitOK
}
