package compiler

import (
	"fmt"
	"io"
)

// Reporter is the diagnostic sink for semantic errors. Each message is
// prefixed with the source line it was reported at and counted, so callers
// can decide whether the translation unit is worth generating code for.
type Reporter struct {
	w      io.Writer
	errors int
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report writes a single formatted diagnostic for the given source line.
func (r *Reporter) Report(line int, format string, args ...any) {
	fmt.Fprintf(r.w, "line %d: %s\n", line, fmt.Sprintf(format, args...))
	r.errors++
}

// Errors returns the number of diagnostics reported so far.
func (r *Reporter) Errors() int {
	return r.errors
}
