// Package typecheck implements the circuit language's type checker: the
// centerpiece of the compiler (spec.md §4.3). It validates an AST,
// enforces the constrainedness and linearity discipline, and produces a
// typed program the IR generator and R1CS lowering can trust.
package typecheck

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/alk0x1/lof/ast"
)

// binding is a symbol-table entry: a name's type, its current
// constrainedness tag, whether a NonZero refinement has been
// established for it, and (for linear bindings) a use counter.
type binding struct {
	typ      *ast.Type
	tag      ast.ConstraintStatus
	nonZero  bool
	linear   bool
	useCount int
}

// scope is one proof/component's symbol table plus the bookkeeping
// needed for the constrainedness and linearity passes.
type scope struct {
	vars        map[string]*binding
	pending     map[string]bool // witnesses not yet Constrained
	deps        map[string][]string
	inProofBody bool
	letBound    map[string]bool

	// funcs and enums are registered once per program (register_function
	// /register_component and enum declarations) and shared read-only
	// across every proof/component's scope.
	funcs map[string]callSig
	enums map[string][]string
}

func newScope() *scope {
	return &scope{
		vars:     make(map[string]*binding),
		pending:  make(map[string]bool),
		deps:     make(map[string][]string),
		letBound: make(map[string]bool),
	}
}

// callSig is a registered function/component's call signature: only the
// parameter count is needed here, since the IR generator and R1CS
// lowering are the stages that actually perform the substitution.
type callSig struct {
	paramCount int
}

// collectCallSigs registers every top-level function and component
// declaration's arity, mirroring ir/generator.go's and r1cs/lower.go's
// collectCallables: a component's parameter count is its number of
// input signals.
func collectCallSigs(prog *ast.Program) map[string]callSig {
	out := make(map[string]callSig)
	for i := range prog.Decls {
		decl := &prog.Decls[i]
		switch decl.Kind {
		case ast.EFuncDef:
			out[decl.FuncName] = callSig{paramCount: len(decl.FuncParams)}
		case ast.EComponent:
			n := 0
			for _, sig := range decl.Signals {
				if sig.Visibility == ast.VisInput {
					n++
				}
			}
			out[decl.DeclName] = callSig{paramCount: n}
		}
	}
	return out
}

// collectEnums registers every enum declaration's variant names, keyed
// by enum name, for checkMatch's variant-coverage tracking.
func collectEnums(prog *ast.Program) map[string][]string {
	out := make(map[string][]string)
	for i := range prog.Decls {
		decl := &prog.Decls[i]
		if decl.Kind == ast.EEnumDef {
			names := make([]string, len(decl.EnumVariants))
			for i, v := range decl.EnumVariants {
				names[i] = v.Name
			}
			out[decl.EnumName] = names
		}
	}
	return out
}

// TypedProgram is the output of CheckProgram: the same AST, having
// passed every check in §4.3.
type TypedProgram struct {
	Program *ast.Program
}

// CheckProgram validates every declaration in prog per spec.md §4.3 and
// returns a TypedProgram, or the first error encountered (no recovery).
func CheckProgram(prog *ast.Program) (*TypedProgram, error) {
	funcs := collectCallSigs(prog)
	enums := collectEnums(prog)
	for i := range prog.Decls {
		decl := &prog.Decls[i]
		if decl.Kind == ast.EProof || decl.Kind == ast.EComponent {
			if err := checkDecl(decl, funcs, enums); err != nil {
				return nil, err
			}
		}
	}
	return &TypedProgram{Program: prog}, nil
}

func checkDecl(decl *ast.Expr, funcs map[string]callSig, enums map[string][]string) error {
	sc := newScope()
	sc.inProofBody = decl.Kind == ast.EProof
	sc.funcs = funcs
	sc.enums = enums

	var hasPublic bool
	for _, sig := range decl.Signals {
		b := &binding{typ: sig.Type}
		switch sig.Visibility {
		case ast.VisInput, ast.VisOutput:
			b.tag = ast.Constrained
			hasPublic = true
		case ast.VisWitness:
			b.tag = ast.Unconstrained
			b.linear = true
			sc.pending[sig.Name] = true
		}
		if sig.Type != nil && sig.Type.Kind == ast.TField && sig.Type.Refinement != nil && sig.Type.Refinement.Kind == ast.RefineNonZero {
			b.nonZero = true
		}
		sc.vars[sig.Name] = b
	}
	if !hasPublic {
		return &NoPublicSignalsError{}
	}

	nConstraints := 0
	if decl.Body != nil {
		n, err := checkBlock(decl.Body, sc)
		if err != nil {
			return err
		}
		nConstraints += n
	}
	if nConstraints == 0 {
		return &NoConstraintsError{}
	}

	for name := range sc.pending {
		if sc.vars[name].tag != ast.Constrained {
			return &UnconstrainedWitnessError{Name: name}
		}
	}

	if cycle := findCycle(sc.deps); cycle != nil {
		return &CircularDependencyError{Cycle: cycle}
	}

	for name := range sc.letBound {
		if b, ok := sc.vars[name]; ok && b.useCount == 0 {
			return &UnusedVariableError{Name: name}
		}
	}

	return nil
}

// checkBlock walks a block's statements in source order, threading
// statement-form `let` bindings (LetBody == nil) into the remaining
// scope, and returns the number of constraint-introducing forms seen
// (===  and assert).
func checkBlock(block *ast.Expr, sc *scope) (int, error) {
	n := 0
	for i := range block.Statements {
		stmt := &block.Statements[i]
		cnt, err := checkStatement(stmt, sc)
		if err != nil {
			return 0, err
		}
		n += cnt
	}
	if block.Trailing != nil {
		cnt, err := checkStatement(block.Trailing, sc)
		if err != nil {
			return 0, err
		}
		n += cnt
	}
	return n, nil
}

func checkStatement(e *ast.Expr, sc *scope) (int, error) {
	switch e.Kind {
	case ast.EAssert:
		if err := checkExpr(e.Cond, sc); err != nil {
			return 0, err
		}
		markConstrained(e.Cond, sc)
		recordNonZeroFact(e.Cond, sc)
		return 1, nil
	case ast.ELet:
		if err := checkExpr(e.LetValue, sc); err != nil {
			return 0, err
		}
		bindPattern(e.LetPattern, e.LetValue, sc)
		addLetDeps(e.LetPattern, e.LetValue, sc)
		if e.LetBody != nil {
			return checkStatement(e.LetBody, sc)
		}
		return 0, nil
	case ast.EBinary:
		if err := checkExpr(e, sc); err != nil {
			return 0, err
		}
		if e.Op == ast.OpAssert {
			markConstrained(e, sc)
			return 1, nil
		}
		return 0, nil
	default:
		return 0, checkExpr(e, sc)
	}
}

func bindPattern(pat ast.Pattern, value *ast.Expr, sc *scope) {
	switch pat.Kind {
	case ast.PVariable:
		sc.vars[pat.Name] = &binding{tag: ast.Unconstrained, linear: true}
		sc.letBound[pat.Name] = true
	case ast.PTuple:
		for _, sub := range pat.Elements {
			bindPattern(sub, nil, sc)
		}
	case ast.PWildcard, ast.PLiteral, ast.PConstructor:
		// no bindings introduced; constructor sub-patterns are not bound
	}
}

// checkExpr validates kinds, arities, and variable references. It does
// not, by itself, propagate constrainedness — that is markConstrained's
// job, invoked from assert/=== contexts.
func checkExpr(e *ast.Expr, sc *scope) error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ast.ENumber:
		return nil
	case ast.EVariable:
		return useVariable(e.Name, sc)
	case ast.EBinary:
		return checkBinary(e, sc)
	case ast.EUnaryNot:
		return checkExpr(e.Left, sc)
	case ast.EUnaryNeg:
		return checkExpr(e.Left, sc)
	case ast.ECall:
		if e.Callee == "decompose" {
			if len(e.Args) != 1 {
				return &TypeMismatchError{Expected: "decompose(x)", Found: "wrong arity"}
			}
			return checkExpr(&e.Args[0], sc)
		}
		sig, ok := sc.funcs[e.Callee]
		if !ok {
			return &UndefinedFunctionError{Name: e.Callee}
		}
		if len(e.Args) != sig.paramCount {
			return &TypeMismatchError{
				Expected: fmt.Sprintf("%d argument(s) to %q", sig.paramCount, e.Callee),
				Found:    fmt.Sprintf("%d argument(s)", len(e.Args)),
			}
		}
		for i := range e.Args {
			if err := checkExpr(&e.Args[i], sc); err != nil {
				return err
			}
		}
		return nil
	case ast.ELet:
		if err := checkExpr(e.LetValue, sc); err != nil {
			return err
		}
		bindPattern(e.LetPattern, e.LetValue, sc)
		addLetDeps(e.LetPattern, e.LetValue, sc)
		if e.LetBody != nil {
			return checkExpr(e.LetBody, sc)
		}
		return nil
	case ast.EBlock:
		_, err := checkBlock(e, sc)
		return err
	case ast.EMatch:
		return checkMatch(e, sc)
	case ast.EAssert:
		if err := checkExpr(e.Cond, sc); err != nil {
			return err
		}
		markConstrained(e.Cond, sc)
		return nil
	case ast.ETuple:
		for i := range e.Elements {
			if err := checkExpr(&e.Elements[i], sc); err != nil {
				return err
			}
		}
		return nil
	case ast.EArrayLiteral:
		for i := range e.Elements {
			if err := checkExpr(&e.Elements[i], sc); err != nil {
				return err
			}
		}
		return nil
	case ast.EArrayIndex:
		if err := checkExpr(e.Array, sc); err != nil {
			return err
		}
		return checkExpr(e.Index, sc)
	default:
		return nil
	}
}

func checkBinary(e *ast.Expr, sc *scope) error {
	if err := checkExpr(e.Left, sc); err != nil {
		return err
	}
	if err := checkExpr(e.Right, sc); err != nil {
		return err
	}
	if err := checkOperandTypes(e, sc); err != nil {
		return err
	}
	switch e.Op {
	case ast.OpDiv:
		if !rootIsNonZero(e.Right, sc) {
			return &NonZeroRequiredError{Name: describeExpr(e.Right)}
		}
	case ast.OpMul, ast.OpAssert:
		if deg := exprDegree(e); deg > 2 {
			return &DegreeViolationError{Degree: deg}
		}
		markConstrained(e, sc)
	}
	return nil
}

// exprDegree computes an expression's polynomial degree over the
// circuit's variables: addition/subtraction takes the larger of its two
// operands' degrees, multiplication sums them, and R1CS lowering can only
// encode a product up to degree 2 in a single constraint (§4.5 step 3).
func exprDegree(e *ast.Expr) int {
	if e == nil {
		return 0
	}
	switch e.Kind {
	case ast.ENumber:
		return 0
	case ast.EVariable:
		return 1
	case ast.EUnaryNeg:
		return exprDegree(e.Left)
	case ast.EBinary:
		switch e.Op {
		case ast.OpAdd, ast.OpSub:
			l, r := exprDegree(e.Left), exprDegree(e.Right)
			if l > r {
				return l
			}
			return r
		case ast.OpMul:
			return exprDegree(e.Left) + exprDegree(e.Right)
		default:
			return 0
		}
	default:
		return 0
	}
}

// inferType returns e's static type where it can be determined without a
// full inference pass: a variable's declared type, or a derived type for
// the comparison/logical operators that always produce Bool. It returns
// nil for an untyped integer literal (compatible with any numeric type)
// and for forms (calls, matches, ...) this checker does not infer a type
// for; nil never triggers a mismatch, only a concrete-vs-concrete
// disagreement does.
func inferType(e *ast.Expr, sc *scope) *ast.Type {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ast.ENumber:
		return nil
	case ast.EVariable:
		if b, ok := sc.vars[e.Name]; ok {
			return b.typ
		}
		return nil
	case ast.EUnaryNeg:
		return inferType(e.Left, sc)
	case ast.EUnaryNot:
		return &ast.Type{Kind: ast.TBool}
	case ast.EBinary:
		switch e.Op {
		case ast.OpAnd, ast.OpOr, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe, ast.OpEq, ast.OpNeq, ast.OpAssert:
			return &ast.Type{Kind: ast.TBool}
		default:
			if t := inferType(e.Left, sc); t != nil {
				return t
			}
			return inferType(e.Right, sc)
		}
	default:
		return nil
	}
}

func isNumericKind(k ast.TypeKind) bool {
	return k == ast.TField || k == ast.TNat || k == ast.TBits
}

func typeName(t *ast.Type) string {
	if t == nil {
		return "<untyped>"
	}
	switch t.Kind {
	case ast.TField:
		return "Field"
	case ast.TBool:
		return "Bool"
	case ast.TNat:
		return "Nat"
	case ast.TBits:
		return "Bits"
	case ast.TArray:
		return "Array"
	case ast.TTuple:
		return "Tuple"
	default:
		return "<type>"
	}
}

// checkOperandTypes enforces §4.3's "each binary operator's operand
// types are compatible": the boolean connectives require two Bool
// operands, arithmetic requires two numeric operands, and any operator
// whose two sides resolve to different concrete kinds is rejected. An
// untyped integer literal (inferType returning nil) is compatible with
// either side, since it carries no fixed kind of its own.
func checkOperandTypes(e *ast.Expr, sc *scope) error {
	lt := inferType(e.Left, sc)
	rt := inferType(e.Right, sc)

	switch e.Op {
	case ast.OpAnd, ast.OpOr:
		if lt != nil && lt.Kind != ast.TBool {
			return &InvalidOperatorError{Op: e.Op.String(), Found: typeName(lt)}
		}
		if rt != nil && rt.Kind != ast.TBool {
			return &InvalidOperatorError{Op: e.Op.String(), Found: typeName(rt)}
		}
		return nil
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		if lt != nil && !isNumericKind(lt.Kind) {
			return &InvalidOperatorError{Op: e.Op.String(), Found: typeName(lt)}
		}
		if rt != nil && !isNumericKind(rt.Kind) {
			return &InvalidOperatorError{Op: e.Op.String(), Found: typeName(rt)}
		}
	}

	if lt != nil && rt != nil && lt.Kind != rt.Kind {
		return &TypeMismatchError{Expected: typeName(lt), Found: typeName(rt)}
	}
	return nil
}

// rootIsNonZero reports whether the divisor expression is known
// NonZero: either a bare variable carrying the refinement, or a literal
// nonzero constant.
func rootIsNonZero(e *ast.Expr, sc *scope) bool {
	switch e.Kind {
	case ast.EVariable:
		b, ok := sc.vars[e.Name]
		return ok && b.nonZero
	case ast.ENumber:
		return e.Value.Sign() != 0
	default:
		return false
	}
}

func describeExpr(e *ast.Expr) string {
	if e.Kind == ast.EVariable {
		return e.Name
	}
	return "<expr>"
}

func useVariable(name string, sc *scope) error {
	b, ok := sc.vars[name]
	if !ok {
		return &UndefinedVariableError{Name: name}
	}
	if b.linear && !sc.inProofBody {
		b.useCount++
		if b.useCount > 1 {
			return &LinearityViolationError{Name: name}
		}
	} else {
		b.useCount++
	}
	return nil
}

// markConstrained records which variables are in the transitive support
// of e and flips their tag to Constrained, per the triple-equals and
// assert propagation rules of §4.3. It is a deterministic post-order
// pass, per the Constrainedness tagging design note in spec.md §9.
func markConstrained(e *ast.Expr, sc *scope) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.EVariable:
		if b, ok := sc.vars[e.Name]; ok {
			already := b.tag == ast.Constrained
			b.tag = ast.Constrained
			delete(sc.pending, e.Name)
			if !already {
				// follow let-binding dependencies so the names a let-bound
				// variable was computed from are constrained too
				for _, dep := range sc.deps[e.Name] {
					markConstrained(&ast.Expr{Kind: ast.EVariable, Name: dep}, sc)
				}
			}
		}
	case ast.EBinary:
		markConstrained(e.Left, sc)
		markConstrained(e.Right, sc)
	case ast.EUnaryNot, ast.EUnaryNeg:
		markConstrained(e.Left, sc)
	case ast.ECall:
		for i := range e.Args {
			markConstrained(&e.Args[i], sc)
		}
	case ast.ETuple, ast.EArrayLiteral:
		for i := range e.Elements {
			markConstrained(&e.Elements[i], sc)
		}
	case ast.EArrayIndex:
		markConstrained(e.Array, sc)
		markConstrained(e.Index, sc)
	}
}

// recordNonZeroFact primes a variable's NonZero flag from a preceding
// `assert x != 0`, per §4.3's recognized syntactic refinement form.
func recordNonZeroFact(cond *ast.Expr, sc *scope) {
	if cond.Kind != ast.EBinary || cond.Op != ast.OpNeq {
		return
	}
	if cond.Left.Kind == ast.EVariable && cond.Right.Kind == ast.ENumber && cond.Right.Value.Cmp(big.NewInt(0)) == 0 {
		if b, ok := sc.vars[cond.Left.Name]; ok {
			b.nonZero = true
		}
	}
}

// addLetDeps records that pat's bound name(s) depend on every free
// variable of value, per spec.md §4.3/§9's "dependency graph built from
// the right-hand sides of bindings" — the realistic source of a
// circular dependency (e.g. `let a = b; let b = a`).
func addLetDeps(pat ast.Pattern, value *ast.Expr, sc *scope) {
	vars := collectVars(value, nil)
	switch pat.Kind {
	case ast.PVariable:
		sc.deps[pat.Name] = append(sc.deps[pat.Name], vars...)
	case ast.PTuple:
		for _, sub := range pat.Elements {
			addLetDeps(sub, value, sc)
		}
	}
}

func collectVars(e *ast.Expr, out []string) []string {
	if e == nil {
		return out
	}
	switch e.Kind {
	case ast.EVariable:
		out = append(out, e.Name)
	case ast.EBinary:
		out = collectVars(e.Left, out)
		out = collectVars(e.Right, out)
	case ast.EUnaryNot, ast.EUnaryNeg:
		out = collectVars(e.Left, out)
	case ast.ECall:
		for i := range e.Args {
			out = collectVars(&e.Args[i], out)
		}
	}
	return out
}

// checkMatch validates every arm and then enforces §4.3's exhaustiveness
// rule ("a match over an integer literal set with no default is
// rejected"): any wildcard/variable-binding arm makes a match exhaustive
// regardless of what else it covers; a match with no such catch-all arm
// is exhaustive only if it covers every variant of a known enum scrutinee
// type, and is never exhaustive over a literal set (the Field/Nat domain
// has no finite enumeration for the checker to confirm coverage against).
func checkMatch(e *ast.Expr, sc *scope) error {
	if err := checkExpr(e.Scrutinee, sc); err != nil {
		return err
	}
	hasWildcard := false
	hasLiteral := false
	covered := map[string]bool{}
	for _, arm := range e.Arms {
		switch arm.Pattern.Kind {
		case ast.PWildcard, ast.PVariable:
			hasWildcard = true
		case ast.PLiteral:
			hasLiteral = true
		case ast.PConstructor:
			covered[arm.Pattern.Name] = true
		}
		armSc := *sc
		armSc.vars = cloneVars(sc.vars)
		bindPattern(arm.Pattern, nil, &armSc)
		body := arm.Body
		if err := checkExpr(&body, &armSc); err != nil {
			return err
		}
	}
	if hasWildcard {
		return nil
	}
	if len(e.Arms) == 0 {
		return &IncompletePatternsError{Missing: "no arms"}
	}
	if hasLiteral {
		return &IncompletePatternsError{Missing: "a wildcard or default arm (a literal pattern set is never exhaustive)"}
	}
	if len(covered) > 0 {
		if variants := enumVariantsFor(e.Scrutinee, sc); variants != nil {
			var missing []string
			for _, v := range variants {
				if !covered[v] {
					missing = append(missing, v)
				}
			}
			if len(missing) > 0 {
				return &IncompletePatternsError{Missing: strings.Join(missing, ", ")}
			}
		}
	}
	return nil
}

// enumVariantsFor returns the declared variant names of e's enum type,
// or nil if e's type cannot be resolved to a known enum (in which case
// checkMatch skips variant-coverage checking rather than risk a false
// positive).
func enumVariantsFor(e *ast.Expr, sc *scope) []string {
	t := inferType(e, sc)
	if t == nil || t.Kind != ast.TIdentifier {
		return nil
	}
	return sc.enums[t.Name]
}

func cloneVars(m map[string]*binding) map[string]*binding {
	out := make(map[string]*binding, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}
