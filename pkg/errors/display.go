package errors

import (
	"fmt"
	"os"
	"strings"
)

// DisplayErrors prints each error to stderr along with the offending source
// line and a caret pointing at the column, mirroring a typical compiler's
// diagnostic output. sourceCode is the full text the errors were produced
// against; it is only used for the caret line and may be empty.
func DisplayErrors(errs []LumenError, sourceCode string) {
	lines := strings.Split(sourceCode, "\n")
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "%s Error at %d:%d: %s\n", err.Kind(), err.Pos().Line, err.Pos().Column, err.Message())
		if idx := err.Pos().Line - 1; idx >= 0 && idx < len(lines) {
			fmt.Fprintf(os.Stderr, "    %s\n", lines[idx])
			if col := err.Pos().Column; col > 0 {
				fmt.Fprintf(os.Stderr, "    %s^\n", strings.Repeat(" ", col-1))
			}
		}
		if re, ok := err.(*RuntimeError); ok {
			for _, frame := range re.Frames {
				if frame.FunctionName == "" {
					fmt.Fprintf(os.Stderr, "[line %d] in script\n", frame.Line)
				} else {
					fmt.Fprintf(os.Stderr, "[line %d] in %s()\n", frame.Line, frame.FunctionName)
				}
			}
		}
	}
}
