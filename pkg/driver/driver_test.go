package driver_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"lumen/pkg/driver"
	"lumen/pkg/vm"
)

// runAndCapture runs source in a fresh session and returns whatever it
// printed via `print`, trimmed of surrounding whitespace, plus the message
// and kind of each error.
func runAndCapture(t *testing.T, src string) (string, []string, []string) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	s := driver.NewSessionWithConfig(vm.Config{Stdout: w})
	_, errs := s.RunString(src)
	w.Close()

	var buf bytes.Buffer
	buf.ReadFrom(r)

	var msgs, kinds []string
	for _, e := range errs {
		msgs = append(msgs, e.Message())
		kinds = append(kinds, e.Kind())
	}
	return strings.TrimSpace(buf.String()), msgs, kinds
}

type scriptCase struct {
	name     string
	src      string
	want     string
	wantErr  bool
	errKind  string // "Syntax", "Compile", "Runtime" — checked only if non-empty
	errSubst string
}

func TestScripts(t *testing.T) {
	cases := []scriptCase{
		{name: "ArithmeticPrecedence", src: `print 1 + 2 * 3;`, want: "7"},
		{name: "StringConcat", src: `print "foo" + "bar";`, want: "foobar"},
		{name: "Globals", src: `var x = 10; x = x + 5; print x;`, want: "15"},
		{name: "IfElse", src: `var r = 0; if (1 < 2) { r = 1; } else { r = 2; } print r;`, want: "1"},
		{name: "WhileLoop", src: `var i = 0; var sum = 0; while (i < 5) { sum = sum + i; i = i + 1; } print sum;`, want: "10"},
		{name: "ForLoop", src: `var sum = 0; for (var i = 0; i < 5; i = i + 1) { sum = sum + i; } print sum;`, want: "10"},
		{
			name: "BreakContinue",
			src: `
				var out = "";
				for (var i = 0; i < 5; i = i + 1) {
					if (i == 1) continue;
					if (i == 4) break;
					out = out + str(i);
				}
				print out;
			`,
			want: "023",
		},
		{
			name: "FunctionAndClosure",
			src: `
				fun makeCounter() {
					var count = 0;
					fun counter() {
						count = count + 1;
						return count;
					}
					return counter;
				}
				var c = makeCounter();
				c();
				c();
				print c();
			`,
			want: "3",
		},
		{
			name: "Recursion",
			src: `
				fun fib(n) {
					if (n < 2) return n;
					return fib(n - 1) + fib(n - 2);
				}
				print fib(10);
			`,
			want: "55",
		},
		{
			name: "ClassAndMethod",
			src: `
				class Greeter {
					init(name) {
						this.name = name;
					}
					greet() {
						return "hello " + this.name;
					}
				}
				var g = Greeter("world");
				print g.greet();
			`,
			want: "hello world",
		},
		{
			name: "Inheritance",
			src: `
				class Animal {
					speak() {
						return "...";
					}
				}
				class Dog < Animal {
					speak() {
						return "woof";
					}
					parentSpeak() {
						return super.speak();
					}
				}
				var d = Dog();
				print d.speak();
				print d.parentSpeak();
			`,
			want: "woof\n...",
		},
		{
			name: "FieldsShadowMethods",
			src: `
				class Box {
					value() { return "method"; }
				}
				var b = Box();
				b.value = "field";
				print b.value;
			`,
			want: "field",
		},
		{
			name:     "UndefinedGlobalFaults",
			src:      `print nope;`,
			wantErr:  true,
			errKind:  "Runtime",
			errSubst: "Undefined variable",
		},
		{
			name:     "CallNonFunctionFaults",
			src:      `var x = 5; x();`,
			wantErr:  true,
			errKind:  "Runtime",
			errSubst: "Can only call",
		},
		{
			name:     "InheritFromNonClassFaults",
			src:      `var NotAClass = 5; class Bad < NotAClass {}`,
			wantErr:  true,
			errKind:  "Runtime",
			errSubst: "Superclass must be a class",
		},
		{
			name:     "SyntaxErrorMissingSemicolon",
			src:      `print 1`,
			wantErr:  true,
			errKind:  "Compile",
			errSubst: "Expect ';'",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, errMsgs, errKinds := runAndCapture(t, tc.src)
			if tc.wantErr {
				if len(errMsgs) == 0 {
					t.Fatalf("expected an error, got none (output: %q)", out)
				}
				if tc.errKind != "" {
					kindFound := false
					for _, k := range errKinds {
						if k == tc.errKind {
							kindFound = true
						}
					}
					if !kindFound {
						t.Fatalf("expected an error of kind %q, got %v", tc.errKind, errKinds)
					}
				}
				if tc.errSubst != "" {
					found := false
					for _, m := range errMsgs {
						if strings.Contains(m, tc.errSubst) {
							found = true
						}
					}
					if !found {
						t.Fatalf("expected an error containing %q, got %v", tc.errSubst, errMsgs)
					}
				}
				return
			}
			if len(errMsgs) != 0 {
				t.Fatalf("unexpected errors: %v", errMsgs)
			}
			if out != tc.want {
				t.Fatalf("output = %q, want %q", out, tc.want)
			}
		})
	}
}

// TestSessionPersistsGlobalsUnderStressGC reproduces the §8.1 property that
// sequential RunString calls on one Session share live globals even when a
// collection runs on every allocation: a global's name must survive as a
// globals-table key, not just its value, or re-interning it on the next
// call misses by identity and the global reads back as undefined.
func TestSessionPersistsGlobalsUnderStressGC(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	s := driver.NewSessionWithConfig(vm.Config{Stdout: w, StressGC: true})

	if _, errs := s.RunString("var counter = 0;"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, errs := s.RunString("print counter;"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	w.Close()

	var buf bytes.Buffer
	buf.ReadFrom(r)
	if got := strings.TrimSpace(buf.String()); got != "0" {
		t.Fatalf("output = %q, want %q (global dropped under stress GC)", got, "0")
	}
}

func TestSessionPersistsGlobalsAcrossCalls(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	s := driver.NewSessionWithConfig(vm.Config{Stdout: w})

	if _, errs := s.RunString("var counter = 0;"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, errs := s.RunString("counter = counter + 1;"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, errs := s.RunString("print counter;"); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	w.Close()

	var buf bytes.Buffer
	buf.ReadFrom(r)
	if got := strings.TrimSpace(buf.String()); got != "1" {
		t.Fatalf("output = %q, want %q", got, "1")
	}
}
