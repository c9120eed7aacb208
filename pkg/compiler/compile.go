package compiler

import (
	"fmt"
	"io"
)

// Compile runs the whole pipeline over one Simple C source text: scan,
// parse and check, then generate. The assembly goes to out and diagnostics
// to errOut. Lexical and syntax errors abort immediately and are returned;
// semantic errors are reported, counted, and suppress code generation.
func Compile(src string, out, errOut io.Writer) error {
	tokens, err := Lex(src)
	if err != nil {
		return err
	}

	reporter := NewReporter(errOut)
	unit, err := Parse(tokens, reporter)
	if err != nil {
		return err
	}

	if n := reporter.Errors(); n > 0 {
		return fmt.Errorf("%d error(s)", n)
	}

	assembly, err := Generate(unit)
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, assembly)
	return err
}
