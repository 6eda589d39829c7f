// Package driver glues the lexer, compiler and VM into the session API the
// CLI and REPL use: lex+compile+run a string or a file, and report errors
// and results in the canonical textual form.
package driver

import (
	"fmt"
	"os"

	"lumen/pkg/compiler"
	"lumen/pkg/errors"
	"lumen/pkg/lexer"
	"lumen/pkg/source"
	"lumen/pkg/vm"
)

// Session is a persistent interpreter session: one VM instance whose
// globals and interned strings survive across repeated RunString calls, as
// a REPL needs (§6).
type Session struct {
	vmInstance *vm.VM
	Options    RunOptions
}

// RunOptions toggles optional diagnostic output.
type RunOptions struct {
	ShowBytecode bool
	ShowTokens   bool
}

// NewSession creates a fresh interpreter session with its own VM.
func NewSession() *Session {
	return NewSessionWithConfig(vm.Config{})
}

func NewSessionWithConfig(cfg vm.Config) *Session {
	return &Session{vmInstance: vm.NewVMWithConfig(cfg)}
}

// RunString lexes, compiles and executes sourceCode in the session, reusing
// the session's VM (so globals defined by an earlier call remain visible).
func (s *Session) RunString(sourceCode string) (vm.Value, []errors.LumenError) {
	return s.run(source.NewEvalSource(sourceCode))
}

// RunFile lexes, compiles and executes the contents of filename.
func (s *Session) RunFile(filename string) (vm.Value, []errors.LumenError) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return vm.Nil, []errors.LumenError{
			errors.NewCompileError(errors.Position{}, "could not read file '%s': %s", filename, err),
		}
	}
	return s.run(source.FromFile(filename, string(content)))
}

func (s *Session) run(src *source.SourceFile) (vm.Value, []errors.LumenError) {
	l := lexer.New(src)
	if s.Options.ShowTokens {
		dumpTokens(l)
		l = lexer.New(src)
	}

	comp := compiler.New(src, s.vmInstance)
	s.vmInstance.SetCompilerRoots(comp.Roots)
	fn, compileErrs := comp.CompileScript(l)
	if len(compileErrs) > 0 {
		return vm.Nil, compileErrs
	}

	if s.Options.ShowBytecode {
		fmt.Fprint(os.Stderr, fn.Chunk.DisassembleChunk("<script>"))
	}

	value, runtimeErr := s.vmInstance.Interpret(fn)
	if runtimeErr != nil {
		return vm.Nil, []errors.LumenError{runtimeErr}
	}
	return value, nil
}

func dumpTokens(l *lexer.Lexer) {
	for {
		tok := l.NextToken()
		fmt.Fprintf(os.Stderr, "%-14s %q (line %d)\n", tok.Type, tok.Lexeme, tok.Line)
		if tok.Type == lexer.TokenEOF {
			return
		}
	}
}

// DisplayResult prints errs (if any) or value's printed form (REPL-style),
// and reports whether the run was clean.
func DisplayResult(sourceCode string, value vm.Value, errs []errors.LumenError) bool {
	if len(errs) > 0 {
		errors.DisplayErrors(errs, sourceCode)
		return false
	}
	fmt.Println(vm.Print(value))
	return true
}

// RunString runs sourceCode in a fresh, one-off session and reports the
// result.
func RunString(sourceCode string, options RunOptions) (vm.Value, []errors.LumenError) {
	s := NewSession()
	s.Options = options
	return s.RunString(sourceCode)
}

// RunFile runs the contents of filename in a fresh, one-off session.
func RunFile(filename string, options RunOptions) (vm.Value, []errors.LumenError) {
	s := NewSession()
	s.Options = options
	return s.RunFile(filename)
}
