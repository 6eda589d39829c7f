// Command lumen is the CLI for the Lumen scripting language: a REPL, a
// file runner, and a `-e` one-liner mode.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"lumen/pkg/driver"
	"lumen/pkg/errors"
	"lumen/pkg/vm"
)

// Exit codes follow the sysexits.h convention the teacher's CLI also uses.
const (
	exitUsage   = 64
	exitData    = 65
	exitRuntime = 70
	exitIOErr   = 74
)

func main() {
	exprFlag := flag.String("e", "", "Run the given expression and exit")
	bytecodeFlag := flag.Bool("bytecode", false, "Show compiled bytecode before execution")
	tokensFlag := flag.Bool("tokens", false, "Show the token stream before execution")
	stressGCFlag := flag.Bool("stress-gc", false, "Collect garbage before every allocation")

	flag.Parse()

	options := driver.RunOptions{ShowBytecode: *bytecodeFlag, ShowTokens: *tokensFlag}
	cfg := vm.Config{StressGC: *stressGCFlag}

	switch {
	case *exprFlag != "":
		runExpression(*exprFlag, options, cfg)
	case flag.NArg() > 1:
		fmt.Fprintln(os.Stderr, "usage: lumen [script] or lumen -e \"expression\"")
		os.Exit(exitUsage)
	case flag.NArg() == 1:
		runFile(flag.Arg(0), options, cfg)
	default:
		runRepl(options, cfg)
	}
}

func runExpression(expr string, options driver.RunOptions, cfg vm.Config) {
	s := driver.NewSessionWithConfig(cfg)
	s.Options = options
	value, errs := s.RunString(expr)
	os.Exit(report(expr, value, errs))
}

func runFile(filename string, options driver.RunOptions, cfg vm.Config) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: could not read file '%s': %s\n", filename, err)
		os.Exit(exitIOErr)
	}

	s := driver.NewSessionWithConfig(cfg)
	s.Options = options
	value, errs := s.RunString(string(content))
	os.Exit(report(string(content), value, errs))
}

// report prints value or errs in the canonical form and returns the process
// exit code the run earned: a clean run is 0, a syntax/compile fault is
// exitData, and a runtime fault is exitRuntime.
func report(sourceCode string, value vm.Value, errs []errors.LumenError) int {
	if len(errs) == 0 {
		fmt.Println(vm.Print(value))
		return 0
	}
	errors.DisplayErrors(errs, sourceCode)
	for _, e := range errs {
		if e.Kind() == "Runtime" {
			return exitRuntime
		}
	}
	return exitData
}

func runRepl(options driver.RunOptions, cfg vm.Config) {
	reader := bufio.NewReader(os.Stdin)
	s := driver.NewSessionWithConfig(cfg)
	s.Options = options

	fmt.Println("Lumen (Ctrl+D to exit)")
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Fprintf(os.Stderr, "error reading input: %s\n", err)
			return
		}
		if line == "\n" {
			continue
		}
		value, errs := s.RunString(line)
		driver.DisplayResult(line, value, errs)
	}
}
