package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/PREPONDERANCE/Lox/internal/session"
	"github.com/PREPONDERANCE/Lox/internal/vm"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const Version = "v1.0.0"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Recovered from panic:", r)
			debug.PrintStack()
		}
	}()

	showDisassembly := flag.Bool("disassembly", false, "Show bytecode disassembly")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help message")
	historyPath := flag.String("history-db", "", "Path to a sqlite file recording run history (default: next to the script, or under the user cache dir for the REPL)")
	showHistory := flag.Int("history", 0, "Print the N most recent runs from history-db and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lox [options] [file]\n\nOptions:\n")
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  --%s\n\t%s\n", f.Name, f.Usage)
		})
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}
	if *showVersion {
		fmt.Printf("lox %s\n", Version)
		return
	}

	args := flag.Args()

	store, err := session.Open(resolveHistoryPath(*historyPath, args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: %s\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *showHistory > 0 {
		printHistory(store, *showHistory)
		return
	}

	if len(args) < 1 {
		startREPL(store, *showDisassembly)
		return
	}

	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	runFile(store, filename, string(content), *showDisassembly)
}

// resolveHistoryPath implements SPEC_FULL.md §2's default placement: an
// explicit --history-db always wins; otherwise a file run's history sits
// next to the script, and the REPL's sits under the user's cache dir (so
// REPL history survives across script-less invocations in the same
// directory).
func resolveHistoryPath(explicit string, args []string) string {
	if explicit != "" {
		return explicit
	}

	if len(args) > 0 {
		dir := filepath.Dir(args[0])
		return filepath.Join(dir, ".lox_history.db")
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	loxCacheDir := filepath.Join(cacheDir, "lox")
	if err := os.MkdirAll(loxCacheDir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(loxCacheDir, "history.db")
}

func printHistory(store *session.Store, limit int) {
	entries, err := store.Recent(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: %s\n", err)
		os.Exit(1)
	}
	for _, e := range entries {
		src := e.Source
		if len(src) > 40 {
			src = src[:37] + "..."
		}
		fmt.Printf("%-14s %-8s %-8s %s\n",
			humanize.Time(e.CreatedAt), e.Result, humanize.Comma(e.DurationMs)+"ms", strings.ReplaceAll(src, "\n", " "))
	}
}

func runFile(store *session.Store, filename, source string, showDisasm bool) {
	machine := vm.New()
	defer machine.Close()

	if showDisasm {
		if err := machine.Disassemble(filename, source); err != nil {
			fmt.Printf("Compiler error: %s\n", err)
			os.Exit(65)
		}
		fmt.Printf("(source: %s)\n\n", humanize.Bytes(uint64(len(source))))
	}

	start := time.Now()
	result := machine.Interpret(source)
	elapsed := time.Since(start)

	if showDisasm {
		fmt.Printf("ran in %s\n", elapsed)
	}

	if err := store.Record(source, result.String(), elapsed); err != nil {
		fmt.Fprintf(os.Stderr, "lox: recording history: %s\n", err)
	}

	if result != vm.InterpretOK {
		os.Exit(interpretExitCode(result))
	}
}

func interpretExitCode(result vm.InterpretResult) int {
	switch result {
	case vm.InterpretCompileError:
		return 65
	case vm.InterpretRuntimeError:
		return 70
	default:
		return 0
	}
}

func startREPL(store *session.Store, showDisasm bool) {
	interactive := isatty.IsTerminal(os.Stdout.Fd())
	if interactive {
		fmt.Printf("lox REPL %s (history run %s)\n", Version, store.RunID[:8])
		fmt.Println("Type 'exit' to quit.")
	}

	machine := vm.New()
	defer machine.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "exit" {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if showDisasm {
			if err := machine.Disassemble("REPL", line); err != nil {
				fmt.Printf("Compiler error: %s\n", err)
				continue
			}
		}

		start := time.Now()
		result := machine.Interpret(line)
		elapsed := time.Since(start)

		if err := store.Record(line, result.String(), elapsed); err != nil {
			fmt.Fprintf(os.Stderr, "lox: recording history: %s\n", err)
		}
	}
}
