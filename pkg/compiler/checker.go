package compiler

import "strconv"

// Diagnostic templates. Each takes at most one %s argument.
const (
	errRedefined        = "redefinition of '%s'"
	errRedeclared       = "redeclaration of '%s'"
	errConflicting      = "conflicting types for '%s'"
	errUndeclared       = "'%s' undeclared"
	errBreak            = "break statement not within loop"
	errReturnType       = "invalid return type"
	errTestExpression   = "invalid type for test expression"
	errLvalueRequired   = "lvalue required in expression"
	errInvalidBinary    = "invalid operands to binary %s"
	errInvalidUnary     = "invalid operand to unary %s"
	errInvalidSizeof    = "invalid operand in sizeof expression"
	errInvalidCast      = "invalid operand in cast expression"
	errNotFunction      = "called object is not a function"
	errInvalidArguments = "invalid arguments to called function"
)

// Checker performs the semantic analysis of Simple C and builds the abstract
// syntax tree while doing so. A check that fails reports a diagnostic and
// yields the error type, which silently absorbs every later check on the same
// subexpression, so one root cause produces at most one message.
type Checker struct {
	reporter  *Reporter
	toplevel  *Scope
	outermost *Scope
	defined   map[string]bool
	line      int // source line of the parser's current token
}

func NewChecker(reporter *Reporter) *Checker {
	return &Checker{reporter: reporter, defined: make(map[string]bool)}
}

func (c *Checker) report(format string, args ...any) {
	c.reporter.Report(c.line, format, args...)
}

// OpenScope creates a scope and makes it the new top-level scope. The first
// scope ever opened becomes the outermost scope, where functions live.
func (c *Checker) OpenScope() *Scope {
	c.toplevel = NewScope(c.toplevel)
	if c.outermost == nil {
		c.outermost = c.toplevel
	}
	return c.toplevel
}

// CloseScope removes the top-level scope and returns it; its enclosing scope
// becomes the new top level. The caller either attaches the removed scope to
// a block or discards it (parameter scopes of pure declarations).
func (c *Checker) CloseScope() *Scope {
	old := c.toplevel
	c.toplevel = c.toplevel.Enclosing()
	return old
}

// Outermost returns the global scope.
func (c *Checker) Outermost() *Scope {
	return c.outermost
}

// DeclareVariable declares name in the current scope. A redeclaration in an
// inner scope or a conflicting redeclaration at file scope is reported and
// discarded; the original symbol is retained either way.
func (c *Checker) DeclareVariable(name string, typ Type) *Symbol {
	sym := c.toplevel.Find(name)

	if sym == nil {
		sym = NewSymbol(name, typ)
		c.toplevel.Insert(sym)
	} else if c.outermost != c.toplevel {
		c.report(errRedeclared, name)
	} else if !typ.Equals(sym.Type()) {
		c.report(errConflicting, name)
	}

	return sym
}

// DeclareFunction declares name in the outermost scope. A conflicting
// redeclaration is reported and its parameter list discarded.
func (c *Checker) DeclareFunction(name string, typ Type) *Symbol {
	sym := c.outermost.Find(name)

	if sym == nil {
		sym = NewSymbol(name, typ)
		c.outermost.Insert(sym)
	} else if !typ.Equals(sym.Type()) {
		c.report(errConflicting, name)
	}

	return sym
}

// DefineFunction marks name as defined and declares it. A second definition
// is reported and the original symbol returned unchanged.
func (c *Checker) DefineFunction(name string, typ Type) *Symbol {
	if c.defined[name] {
		c.report(errRedefined, name)
		return c.outermost.Find(name)
	}
	c.defined[name] = true
	return c.DeclareFunction(name, typ)
}

// CheckIdentifier looks name up through all open scopes. An undeclared name
// is reported once and inserted with the error type so that further uses stay
// quiet.
func (c *Checker) CheckIdentifier(name string) *Symbol {
	sym := c.toplevel.Lookup(name)

	if sym == nil {
		c.report(errUndeclared, name)
		sym = NewSymbol(name, ErrorType())
		c.toplevel.Insert(sym)
	}

	return sym
}

// promoteExpr materializes the implicit conversions in the tree: a char
// operand is wrapped in a cast to int and an array or string literal in an
// address-of with the decayed pointer type, so the emitter never sees an
// unpromoted operand.
func (c *Checker) promoteExpr(e Expr) Expr {
	t := e.Type()
	if t.IsError() {
		return e
	}
	if t.IsScalar() && t.Specifier() == CHAR && t.Indirection() == 0 {
		return &Cast{unary{exprBase{typ: NewScalar(INT, 0)}, e}}
	}
	if t.IsArray() {
		return &Address{unary{exprBase{typ: NewScalar(t.Specifier(), t.Indirection()+1)}, e}}
	}
	return e
}

// isArithmetic reports whether t is a plain char, int, or double scalar.
func isArithmetic(t Type) bool {
	return t.IsNumeric() || (t.IsScalar() && t.Specifier() == CHAR && t.Indirection() == 0)
}

// castIfNeeded wraps e in a cast to want when both are arithmetic scalars of
// distinct types, making every implicit conversion explicit in the tree.
// Unlike an explicit source-level cast, the target here may be char: the
// assignment and return conversions need the narrowing.
func castIfNeeded(e Expr, want Type) Expr {
	t := e.Type()
	if isArithmetic(t) && isArithmetic(want) && !t.Equals(want) {
		return &Cast{unary{exprBase{typ: want}, e}}
	}
	return e
}

// elementSize returns the size of the type a pointer refers to.
func elementSize(ptr Type) int {
	return NewScalar(ptr.Specifier(), ptr.Indirection()-1).Size()
}

var integerType = NewScalar(INT, 0)
var doubleType = NewScalar(DOUBLE, 0)

// checkLogical validates the operands of && and ||: both must be predicates
// and the result is int.
func (c *Checker) checkLogical(left, right Expr, op string) Type {
	lt, rt := left.Type(), right.Type()
	if lt.IsError() || rt.IsError() {
		return ErrorType()
	}
	if lt.IsPredicate() && rt.IsPredicate() {
		return integerType
	}
	c.report(errInvalidBinary, op)
	return ErrorType()
}

func (c *Checker) CheckLogicalAnd(left, right Expr) Expr {
	left, right = c.promoteExpr(left), c.promoteExpr(right)
	typ := c.checkLogical(left, right, "&&")
	return &LogicalAnd{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckLogicalOr(left, right Expr) Expr {
	left, right = c.promoteExpr(left), c.promoteExpr(right)
	typ := c.checkLogical(left, right, "||")
	return &LogicalOr{binary{exprBase{typ: typ}, left, right}}
}

// checkCompare validates the operands of the equality and relational
// operators: they must be compatible and the result is int. Mixed numeric
// operands are brought to double so the comparison happens in one domain.
func (c *Checker) checkCompare(left, right Expr, op string) (Expr, Expr, Type) {
	lt, rt := left.Type(), right.Type()
	if lt.IsError() || rt.IsError() {
		return left, right, ErrorType()
	}
	if !lt.IsCompatibleWith(rt) {
		c.report(errInvalidBinary, op)
		return left, right, ErrorType()
	}
	if lt.IsDouble() || rt.IsDouble() {
		left = castIfNeeded(left, doubleType)
		right = castIfNeeded(right, doubleType)
	}
	return left, right, integerType
}

func (c *Checker) CheckEqual(left, right Expr) Expr {
	left, right, typ := c.checkCompare(c.promoteExpr(left), c.promoteExpr(right), "==")
	return &Equal{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckNotEqual(left, right Expr) Expr {
	left, right, typ := c.checkCompare(c.promoteExpr(left), c.promoteExpr(right), "!=")
	return &NotEqual{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckLessThan(left, right Expr) Expr {
	left, right, typ := c.checkCompare(c.promoteExpr(left), c.promoteExpr(right), "<")
	return &LessThan{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckGreaterThan(left, right Expr) Expr {
	left, right, typ := c.checkCompare(c.promoteExpr(left), c.promoteExpr(right), ">")
	return &GreaterThan{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckLessOrEqual(left, right Expr) Expr {
	left, right, typ := c.checkCompare(c.promoteExpr(left), c.promoteExpr(right), "<=")
	return &LessOrEqual{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckGreaterOrEqual(left, right Expr) Expr {
	left, right, typ := c.checkCompare(c.promoteExpr(left), c.promoteExpr(right), ">=")
	return &GreaterOrEqual{binary{exprBase{typ: typ}, left, right}}
}

// CheckAdd handles numeric addition and pointer displacement. The scale
// fields record which operand must be multiplied by the element size.
func (c *Checker) CheckAdd(left, right Expr) Expr {
	left, right = c.promoteExpr(left), c.promoteExpr(right)
	lt, rt := left.Type(), right.Type()

	var typ Type
	var scaleLeft, scaleRight int

	switch {
	case lt.IsError() || rt.IsError():
		typ = ErrorType()
	case lt.IsNumeric() && rt.IsNumeric():
		if lt.IsDouble() || rt.IsDouble() {
			typ = doubleType
			left = castIfNeeded(left, doubleType)
			right = castIfNeeded(right, doubleType)
		} else {
			typ = integerType
		}
	case lt.IsPointer() && rt.IsInteger():
		typ = lt
		scaleRight = elementSize(lt)
	case lt.IsInteger() && rt.IsPointer():
		typ = rt
		scaleLeft = elementSize(rt)
	default:
		c.report(errInvalidBinary, "+")
		typ = ErrorType()
	}

	return &Add{binary{exprBase{typ: typ}, left, right}, scaleLeft, scaleRight}
}

// CheckSubtract handles numeric subtraction, pointer minus integer, and
// pointer difference, which divides the byte distance by the element size.
func (c *Checker) CheckSubtract(left, right Expr) Expr {
	left, right = c.promoteExpr(left), c.promoteExpr(right)
	lt, rt := left.Type(), right.Type()

	var typ Type
	var scaleRight, scaleResult int

	switch {
	case lt.IsError() || rt.IsError():
		typ = ErrorType()
	case lt.IsNumeric() && rt.IsNumeric():
		if lt.IsDouble() || rt.IsDouble() {
			typ = doubleType
			left = castIfNeeded(left, doubleType)
			right = castIfNeeded(right, doubleType)
		} else {
			typ = integerType
		}
	case lt.IsPointer() && rt.IsInteger():
		typ = lt
		scaleRight = elementSize(lt)
	case lt.IsPointer() && lt.Equals(rt):
		typ = integerType
		scaleResult = elementSize(lt)
	default:
		c.report(errInvalidBinary, "-")
		typ = ErrorType()
	}

	return &Subtract{binary{exprBase{typ: typ}, left, right}, scaleRight, scaleResult}
}

// checkMultiplicative validates *, /: both operands numeric, result double
// when either side is.
func (c *Checker) checkMultiplicative(left, right Expr, op string) (Expr, Expr, Type) {
	lt, rt := left.Type(), right.Type()
	if lt.IsError() || rt.IsError() {
		return left, right, ErrorType()
	}
	if lt.IsNumeric() && rt.IsNumeric() {
		if lt.IsDouble() || rt.IsDouble() {
			return castIfNeeded(left, doubleType), castIfNeeded(right, doubleType), doubleType
		}
		return left, right, integerType
	}
	c.report(errInvalidBinary, op)
	return left, right, ErrorType()
}

func (c *Checker) CheckMultiply(left, right Expr) Expr {
	left, right, typ := c.checkMultiplicative(c.promoteExpr(left), c.promoteExpr(right), "*")
	return &Multiply{binary{exprBase{typ: typ}, left, right}}
}

func (c *Checker) CheckDivide(left, right Expr) Expr {
	left, right, typ := c.checkMultiplicative(c.promoteExpr(left), c.promoteExpr(right), "/")
	return &Divide{binary{exprBase{typ: typ}, left, right}}
}

// CheckRemainder validates %: integers only.
func (c *Checker) CheckRemainder(left, right Expr) Expr {
	left, right = c.promoteExpr(left), c.promoteExpr(right)
	lt, rt := left.Type(), right.Type()

	typ := integerType
	if lt.IsError() || rt.IsError() {
		typ = ErrorType()
	} else if !lt.IsInteger() || !rt.IsInteger() {
		c.report(errInvalidBinary, "%")
		typ = ErrorType()
	}

	return &Remainder{binary{exprBase{typ: typ}, left, right}}
}

// CheckNot validates !: the operand must be a predicate and the result is int.
func (c *Checker) CheckNot(operand Expr) Expr {
	operand = c.promoteExpr(operand)
	t := operand.Type()

	typ := integerType
	if t.IsError() {
		typ = ErrorType()
	} else if !t.IsPredicate() {
		c.report(errInvalidUnary, "!")
		typ = ErrorType()
	}

	return &Not{unary{exprBase{typ: typ}, operand}}
}

// CheckNegate validates unary minus: the operand must be numeric and the
// result keeps its specifier.
func (c *Checker) CheckNegate(operand Expr) Expr {
	operand = c.promoteExpr(operand)
	t := operand.Type()

	var typ Type
	if t.IsError() {
		typ = ErrorType()
	} else if t.IsNumeric() {
		typ = NewScalar(t.Specifier(), 0)
	} else {
		c.report(errInvalidUnary, "-")
		typ = ErrorType()
	}

	return &Negate{unary{exprBase{typ: typ}, operand}}
}

// CheckDereference validates unary *: the operand must be a pointer and the
// result drops one level of indirection. A dereference is always an lvalue.
func (c *Checker) CheckDereference(operand Expr) Expr {
	operand = c.promoteExpr(operand)
	t := operand.Type()

	var typ Type
	if t.IsError() {
		typ = ErrorType()
	} else if t.IsPointer() {
		typ = NewScalar(t.Specifier(), t.Indirection()-1)
	} else {
		c.report(errInvalidUnary, "*")
		typ = ErrorType()
	}

	return &Dereference{unary{exprBase{typ: typ, lvalue: true}, operand}}
}

// CheckAddress validates unary &: the operand must be an lvalue and the
// result adds one level of indirection.
func (c *Checker) CheckAddress(operand Expr) Expr {
	t := operand.Type()

	var typ Type
	if t.IsError() {
		typ = ErrorType()
	} else if operand.Lvalue() {
		typ = NewScalar(t.Specifier(), t.Indirection()+1)
	} else {
		c.report(errLvalueRequired)
		typ = ErrorType()
	}

	return &Address{unary{exprBase{typ: typ}, operand}}
}

// CheckSizeofType folds sizeof(specifier pointers) to an integer literal.
func (c *Checker) CheckSizeofType(t Type) Expr {
	return NewInteger(strconv.Itoa(t.Size()))
}

// CheckSizeofExpr folds sizeof expr to an integer literal holding the size
// of the operand's type. The operand itself is never evaluated, so its tree
// is discarded here.
func (c *Checker) CheckSizeofExpr(operand Expr) Expr {
	t := operand.Type()
	if t.IsError() {
		return &Integer{exprBase: exprBase{typ: ErrorType()}, Value: "0"}
	}
	if t.IsFunction() {
		c.report(errInvalidSizeof)
		return &Integer{exprBase: exprBase{typ: ErrorType()}, Value: "0"}
	}
	return NewInteger(strconv.Itoa(t.Size()))
}

// CheckCast validates an explicit conversion of a promoted operand: numeric
// to numeric, pointer to pointer, and int to or from pointer.
func (c *Checker) CheckCast(result Type, operand Expr) Expr {
	operand = c.promoteExpr(operand)
	t := operand.Type()

	typ := result
	switch {
	case t.IsError():
		typ = ErrorType()
	case result.IsNumeric() && t.IsNumeric():
	case result.IsPointer() && t.IsPointer():
	case result.IsInteger() && t.IsPointer():
	case result.IsPointer() && t.IsInteger():
	default:
		c.report(errInvalidCast)
		typ = ErrorType()
	}

	return &Cast{unary{exprBase{typ: typ}, operand}}
}

// CheckIndex lowers left[index] to *(left + index) with the add scaled by
// the element size. The result designates an element, so it is an lvalue.
func (c *Checker) CheckIndex(left, index Expr) Expr {
	left, index = c.promoteExpr(left), c.promoteExpr(index)
	lt, rt := left.Type(), index.Type()

	var typ Type
	var scale int
	switch {
	case lt.IsError() || rt.IsError():
		typ = ErrorType()
	case lt.IsPointer() && rt.IsInteger():
		typ = NewScalar(lt.Specifier(), lt.Indirection()-1)
		scale = elementSize(lt)
	default:
		c.report(errInvalidBinary, "[]")
		typ = ErrorType()
	}

	sum := &Add{binary{exprBase{typ: lt}, left, index}, 0, scale}
	return &Dereference{unary{exprBase{typ: typ, lvalue: true}, sum}}
}

// checkModify validates ++ and --: the operand must be an lvalue. The scale
// is the element size for pointers so that p++ advances one element.
func (c *Checker) checkModify(operand Expr) (Type, int) {
	t := operand.Type()
	if t.IsError() {
		return ErrorType(), 1
	}
	if !operand.Lvalue() {
		c.report(errLvalueRequired)
		return ErrorType(), 1
	}

	scale := 1
	if t.IsPointer() {
		scale = elementSize(t)
	}
	return NewScalar(t.Specifier(), t.Indirection()), scale
}

func (c *Checker) CheckIncrement(operand Expr) Expr {
	typ, scale := c.checkModify(operand)
	return &Increment{unary{exprBase{typ: typ}, operand}, scale}
}

func (c *Checker) CheckDecrement(operand Expr) Expr {
	typ, scale := c.checkModify(operand)
	return &Decrement{unary{exprBase{typ: typ}, operand}, scale}
}

// CheckCall validates a call through the given symbol: it must name a
// function, the argument count must match the fixed parameters (or reach
// them, for a variadic function), and each fixed argument must be compatible
// with its parameter.
func (c *Checker) CheckCall(sym *Symbol, args []Expr) Expr {
	t := sym.Type()

	for i, arg := range args {
		args[i] = c.promoteExpr(arg)
	}

	var typ Type
	switch {
	case t.IsError():
		typ = ErrorType()
	case !t.IsFunction():
		c.report(errNotFunction)
		typ = ErrorType()
	default:
		typ = NewScalar(t.Specifier(), t.Indirection())
		params := t.Parameters()

		count := len(args) == len(params.Types)
		if params.Variadic {
			count = len(args) >= len(params.Types)
		}
		if !count {
			c.report(errInvalidArguments)
			typ = ErrorType()
			break
		}

		for i, p := range params.Types {
			at := args[i].Type()
			if at.IsError() {
				typ = ErrorType()
				break
			}
			if !p.Promote().IsCompatibleWith(at) {
				c.report(errInvalidArguments)
				typ = ErrorType()
				break
			}
			args[i] = castIfNeeded(args[i], p.Promote())
		}
	}

	return &Call{exprBase{typ: typ}, sym, args}
}

// CheckAssignment validates left = right: the left side must be an lvalue
// and the two sides compatible. A numeric right side is converted to the
// left side's type.
func (c *Checker) CheckAssignment(left, right Expr) *Assignment {
	lt := left.Type()
	if lt.IsError() || right.Type().IsError() {
		return &Assignment{left, right}
	}

	if !left.Lvalue() {
		c.report(errLvalueRequired)
		return &Assignment{left, right}
	}

	right = c.promoteExpr(right)
	if !lt.Promote().IsCompatibleWith(right.Type()) {
		c.report(errInvalidBinary, "=")
		return &Assignment{left, right}
	}

	return &Assignment{left, castIfNeeded(right, lt)}
}

// CheckTest validates the condition of if, while, and for: it must be a
// predicate. Control flow continues either way.
func (c *Checker) CheckTest(cond Expr) Expr {
	if cond.Type().IsError() {
		return cond
	}
	cond = c.promoteExpr(cond)
	if !cond.Type().IsPredicate() {
		c.report(errTestExpression)
	}
	return cond
}

// CheckBreak reports a break statement outside any loop.
func (c *Checker) CheckBreak(loopDepth int) {
	if loopDepth <= 0 {
		c.report(errBreak)
	}
}

// CheckReturn validates a return against the enclosing function's declared
// return type and converts a numeric value to it.
func (c *Checker) CheckReturn(e Expr, declared Type) *Return {
	if e.Type().IsError() || declared.IsError() {
		return &Return{e}
	}

	e = c.promoteExpr(e)
	if !e.Type().IsCompatibleWith(declared.Promote()) {
		c.report(errReturnType)
		return &Return{e}
	}

	return &Return{castIfNeeded(e, declared)}
}
