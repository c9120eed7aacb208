package compiler

import (
	"bytes"
	"strings"
	"testing"
)

// parseError runs the front end over src and returns the syntax error.
func parseError(t *testing.T, src string) error {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	_, err = Parse(tokens, NewReporter(&bytes.Buffer{}))
	return err
}

func TestParseDeclarations(t *testing.T) {
	t.Run("GlobalKinds", func(t *testing.T) {
		unit, diag := analyze(t, "int x; char *p, **q; double a[10]; int f(int n); char g(void);")
		if diag != "" {
			t.Fatalf("unexpected diagnostics:\n%s", diag)
		}

		want := map[string]string{
			"x": "int",
			"p": "char *",
			"q": "char **",
			"a": "double[10]",
			"f": "int(int)",
			"g": "char(void)",
		}
		for name, typ := range want {
			sym := unit.Globals.Find(name)
			if sym == nil {
				t.Errorf("global %q missing", name)
				continue
			}
			if got := sym.Type().String(); got != typ {
				t.Errorf("global %q has type %s, want %s", name, got, typ)
			}
		}
	})

	t.Run("VariadicDeclaration", func(t *testing.T) {
		unit, _ := analyze(t, "int printf(char *fmt, ...);")
		sym := unit.Globals.Find("printf")
		if sym == nil {
			t.Fatal("printf missing")
		}
		if !sym.Type().Parameters().Variadic {
			t.Error("printf is not variadic")
		}
	})

	t.Run("ParametersBecomeBodyScope", func(t *testing.T) {
		unit, _ := analyze(t, "int f(int a, char *b){ int c; return a; }")
		scope := unit.Functions[0].Body.Scope

		names := []string{"a", "b", "c"}
		syms := scope.Symbols()
		if len(syms) != len(names) {
			t.Fatalf("body scope has %d symbols, want %d", len(syms), len(names))
		}
		for i, name := range names {
			if syms[i].Name() != name {
				t.Errorf("symbol %d is %q, want %q", i, syms[i].Name(), name)
			}
		}
	})

	t.Run("EmptyParameterList", func(t *testing.T) {
		unit, diag := analyze(t, "int main(){ return 0; }")
		if diag != "" {
			t.Fatalf("unexpected diagnostics:\n%s", diag)
		}
		params := unit.Functions[0].Id.Type().Parameters()
		if len(params.Types) != 0 || params.Variadic {
			t.Errorf("main() should have no parameters, got %v", params)
		}
	})
}

func TestParseStatements(t *testing.T) {
	t.Run("DanglingElseBindsInner", func(t *testing.T) {
		unit, _ := analyze(t, "int f(int a){ if (a) if (a > 1) return 1; else return 2; return 0; }")
		outer := unit.Functions[0].Body.Stmts[0].(*If)

		if outer.Else != nil {
			t.Error("else bound to the outer if")
		}
		inner, ok := outer.Then.(*If)
		if !ok {
			t.Fatalf("outer then is %T, want *If", outer.Then)
		}
		if inner.Else == nil {
			t.Error("else not bound to the inner if")
		}
	})

	t.Run("NestedBlocksOwnScopes", func(t *testing.T) {
		unit, diag := analyze(t, "int f(void){ int a; { int a; a = 1; } a = 2; }")
		if diag != "" {
			t.Fatalf("unexpected diagnostics:\n%s", diag)
		}
		block := unit.Functions[0].Body.Stmts[0].(*Block)
		if block.Scope.Find("a") == nil {
			t.Error("inner block scope lost its declaration")
		}
	})

	t.Run("ForParts", func(t *testing.T) {
		unit, _ := analyze(t, "int f(void){ int i; int n; n = 0; for (i = 0; i < 10; i++) n = n + i; return n; }")
		loop := unit.Functions[0].Body.Stmts[1].(*For)

		if _, ok := loop.Init.(*Assignment); !ok {
			t.Errorf("for init is %T, want *Assignment", loop.Init)
		}
		if _, ok := loop.Cond.(*LessThan); !ok {
			t.Errorf("for condition is %T, want *LessThan", loop.Cond)
		}
		if _, ok := loop.Incr.(*ExprStmt); !ok {
			t.Errorf("for increment is %T, want *ExprStmt", loop.Incr)
		}
	})

	t.Run("WhileBody", func(t *testing.T) {
		unit, _ := analyze(t, "int f(int n){ while (n > 0) n--; return n; }")
		loop := unit.Functions[0].Body.Stmts[0].(*While)
		if _, ok := loop.Body.(*ExprStmt); !ok {
			t.Errorf("while body is %T, want *ExprStmt", loop.Body)
		}
	})
}

func TestParseExpressions(t *testing.T) {
	t.Run("CastVersusParenthesized", func(t *testing.T) {
		unit, _ := analyze(t, "int f(void){ int x; x = (int) 3.5; x = (x); }")
		stmts := unit.Functions[0].Body.Stmts

		if _, ok := stmts[0].(*Assignment).Right.(*Cast); !ok {
			t.Errorf("(int) 3.5 built a %T, want *Cast", stmts[0].(*Assignment).Right)
		}
		if _, ok := stmts[1].(*Assignment).Right.(*Identifier); !ok {
			t.Errorf("(x) built a %T, want *Identifier", stmts[1].(*Assignment).Right)
		}
	})

	t.Run("SizeofTypeBeatsCast", func(t *testing.T) {
		// "sizeof(int) * n" multiplies, it does not cast a dereference.
		unit, diag := analyze(t, "int f(int n){ return sizeof(int) * n; }")
		if diag != "" {
			t.Fatalf("unexpected diagnostics:\n%s", diag)
		}
		mul, ok := unit.Functions[0].Body.Stmts[0].(*Return).Expr.(*Multiply)
		if !ok {
			t.Fatal("sizeof(int) * n did not parse as a multiplication")
		}
		if lit, ok := mul.Left.(*Integer); !ok || lit.Value != "4" {
			t.Errorf("left operand is %v, want the folded constant 4", mul.Left)
		}
	})

	t.Run("PrecedenceAndAssociativity", func(t *testing.T) {
		unit, _ := analyze(t, "int f(void){ int a; a = 1 + 2 * 3 - 4; return a; }")
		sub := unit.Functions[0].Body.Stmts[0].(*Assignment).Right.(*Subtract)

		sum, ok := sub.Left.(*Add)
		if !ok {
			t.Fatalf("left of - is %T, want *Add", sub.Left)
		}
		if _, ok := sum.Right.(*Multiply); !ok {
			t.Errorf("right of + is %T, want *Multiply", sum.Right)
		}
	})

	t.Run("UnaryChains", func(t *testing.T) {
		unit, _ := analyze(t, "int f(void){ int **pp; int i; i = **pp; i = !-i; }")
		stmts := unit.Functions[0].Body.Stmts

		outer := stmts[0].(*Assignment).Right.(*Dereference)
		if _, ok := outer.Expr.(*Dereference); !ok {
			t.Errorf("**pp inner is %T, want *Dereference", outer.Expr)
		}

		not := stmts[1].(*Assignment).Right.(*Not)
		if _, ok := not.Expr.(*Negate); !ok {
			t.Errorf("!-i inner is %T, want *Negate", not.Expr)
		}
	})

	t.Run("CharacterLiteralIsInt", func(t *testing.T) {
		unit, _ := analyze(t, "int f(void){ return 'A'; }")
		lit := unit.Functions[0].Body.Stmts[0].(*Return).Expr.(*Integer)
		if lit.Value != "65" {
			t.Errorf("'A' lexed as %s, want 65", lit.Value)
		}
		if !lit.Type().Equals(NewScalar(INT, 0)) {
			t.Errorf("'A' has type %s, want int", lit.Type())
		}
	})

	t.Run("ShortCircuitShape", func(t *testing.T) {
		unit, _ := analyze(t, "int f(int a, int b, int c){ return a || b && c; }")
		or := unit.Functions[0].Body.Stmts[0].(*Return).Expr.(*LogicalOr)
		if _, ok := or.Right.(*LogicalAnd); !ok {
			t.Errorf("right of || is %T, want *LogicalAnd binding tighter", or.Right)
		}
	})
}

func TestParseRendering(t *testing.T) {
	// Rendering the checked tree shows exactly one node per source
	// construct, with promotions made explicit.
	cases := []struct {
		src  string
		want string
	}{
		{"int f(int a, int b){ return a + b * 2; }", "(a + (b * 2))"},
		{"int f(int a){ return a < 1 && a != 3; }", "((a < 1) && (a != 3))"},
		{"int f(int *p){ return *p; }", "*p"},
		{"int f(int *p, int i){ return p[i]; }", "*(p + i)"},
		{"int g(int n); int f(void){ return g(41) + 1; }", "(g(41) + 1)"},
		{"int f(char c){ return c; }", "(int) c"},
		{"int f(void){ int a[3]; return a[0]; }", "*(&a + 0)"},
	}

	for _, tt := range cases {
		unit, diag := analyze(t, tt.src)
		if diag != "" {
			t.Fatalf("%s: unexpected diagnostics:\n%s", tt.src, diag)
		}
		fn := unit.Functions[len(unit.Functions)-1]
		ret := fn.Body.Stmts[0].(*Return)
		if got := ret.Expr.String(); got != tt.want {
			t.Errorf("%s renders as %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"MissingSemicolon", "int x int y;", "syntax error at 'int'"},
		{"UnbalancedParen", "int f(void){ return (1; }", "syntax error at ';'"},
		{"StatementOutsideFunction", "return 0;", "syntax error at 'return'"},
		{"TruncatedInput", "int f(void){ return 0;", "syntax error at end of file"},
		{"ArrayWithoutLength", "int a[];", "syntax error at ']'"},
		{"AssignmentInCondition", "int f(int a){ if (a = 1) return 1; return 0; }", "syntax error at '='"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(t, tt.src)
			if err == nil {
				t.Fatal("parse succeeded, want a syntax error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}
