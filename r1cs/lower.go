package r1cs

import (
	"fmt"
	"math/big"

	"github.com/alk0x1/lof/ast"
)

// lowerer holds per-proof state; reset between proofs per §4.5 ("Generator
// state is reset between proofs"). defs is shared across every proof in
// the program, since register_function/register_component run once over
// the whole program before any proof is lowered.
type lowerer struct {
	varIndex    map[string]int
	nextVar     int
	bindings    map[string]LC
	constraints []Constraint
	pubNames    []string
	witNames    []string
	defs        map[string]callable
	inlining    map[string]bool
}

// callable is a registered function or component definition, mirroring
// ir/generator.go's callable: a parameter name list plus the body
// expression substituted at each call site.
type callable struct {
	params []string
	body   *ast.Expr
}

// collectCallables registers every top-level function and component
// declaration for call-site inlining, exactly as ir/generator.go's
// collectCallables does: a component's input signals become its
// parameter list, in declaration order.
func collectCallables(prog *ast.Program) map[string]callable {
	defs := make(map[string]callable)
	for i := range prog.Decls {
		decl := &prog.Decls[i]
		switch decl.Kind {
		case ast.EFuncDef:
			params := make([]string, len(decl.FuncParams))
			for i, p := range decl.FuncParams {
				params[i] = p.Name
			}
			defs[decl.FuncName] = callable{params: params, body: decl.FuncBody}
		case ast.EComponent:
			var params []string
			for _, sig := range decl.Signals {
				if sig.Visibility == ast.VisInput {
					params = append(params, sig.Name)
				}
			}
			defs[decl.DeclName] = callable{params: params, body: decl.Body}
		}
	}
	return defs
}

// Lower produces one System per `proof` declaration in prog, in source
// order. `function` and `component` declarations are registered for
// call-site inlining but, per §4.4's call-inlining model, do not
// themselves produce a standalone System.
func Lower(prog *ast.Program) ([]*System, error) {
	defs := collectCallables(prog)

	var out []*System
	for i := range prog.Decls {
		decl := &prog.Decls[i]
		if decl.Kind != ast.EProof {
			continue
		}
		s, err := lowerProof(decl, defs)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func flattenNames(name string, t *ast.Type) []string {
	if t == nil {
		return []string{name}
	}
	switch t.Kind {
	case ast.TArray:
		var out []string
		for i := 0; i < t.Size; i++ {
			out = append(out, fmt.Sprintf("%s[%d]", name, i))
		}
		return out
	case ast.TTuple:
		var out []string
		for i := range t.Elems {
			out = append(out, fmt.Sprintf("%s_%d", name, i))
		}
		return out
	default:
		return []string{name}
	}
}

func lowerProof(decl *ast.Expr, defs map[string]callable) (*System, error) {
	l := &lowerer{
		varIndex: map[string]int{},
		bindings: map[string]LC{},
		defs:     defs,
		inlining: map[string]bool{},
	}
	l.varIndex["ONE"] = 0
	l.nextVar = 1

	for _, sig := range decl.Signals {
		if sig.Visibility != ast.VisInput && sig.Visibility != ast.VisOutput {
			continue
		}
		for _, name := range flattenNames(sig.Name, sig.Type) {
			l.varIndex[name] = l.nextVar
			l.nextVar++
			l.pubNames = append(l.pubNames, name)
		}
	}
	for _, sig := range decl.Signals {
		if sig.Visibility != ast.VisWitness {
			continue
		}
		for _, name := range flattenNames(sig.Name, sig.Type) {
			l.varIndex[name] = l.nextVar
			l.nextVar++
			l.witNames = append(l.witNames, name)
		}
	}

	if decl.Body != nil {
		if err := l.lowerStatement(decl.Body); err != nil {
			return nil, err
		}
	}

	return &System{
		Name:        decl.DeclName,
		PubNames:    l.pubNames,
		WitNames:    l.witNames,
		NumVars:     l.nextVar,
		Constraints: l.constraints,
	}, nil
}

func (l *lowerer) freshVar() int {
	v := l.nextVar
	l.nextVar++
	return v
}

func (l *lowerer) lowerStatement(e *ast.Expr) error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ast.EBlock:
		for i := range e.Statements {
			if err := l.lowerStatement(&e.Statements[i]); err != nil {
				return err
			}
		}
		return l.lowerStatement(e.Trailing)

	case ast.ELet:
		if err := l.lowerLet(e); err != nil {
			return err
		}
		return l.lowerStatement(e.LetBody)

	case ast.EAssert:
		return l.lowerAssertedCond(e.Cond)

	case ast.EBinary:
		if e.Op == ast.OpAssert {
			return l.emitEquality(e.Left, e.Right)
		}
		return nil

	default:
		return nil
	}
}

// lowerAssertedCond handles the body of `assert <cond>`: an equality
// constraint is emitted for `lhs === rhs`; `x != 0` carries no
// constraint-system encoding (it is purely the type checker's
// NonZero-refinement evidence); anything else has no defined lowering.
func (l *lowerer) lowerAssertedCond(cond *ast.Expr) error {
	if cond == nil {
		return nil
	}
	if cond.Kind == ast.EBinary {
		switch cond.Op {
		case ast.OpAssert:
			return l.emitEquality(cond.Left, cond.Right)
		case ast.OpNeq:
			return nil
		}
	}
	return &UnsupportedConstraintError{Reason: "assert form has no R1CS encoding"}
}

func (l *lowerer) emitEquality(lhs, rhs *ast.Expr) error {
	left, err := l.lowerToLC(lhs)
	if err != nil {
		return err
	}
	right, err := l.lowerToLC(rhs)
	if err != nil {
		return err
	}
	l.constraints = append(l.constraints, Constraint{A: left, B: oneTerm(0, 1), C: right})
	return nil
}

// lowerLet binds a variable pattern to either an alias (generic case:
// the pattern name refers to the value's linear combination directly,
// with no new variable or constraint) or, for division, to a fresh
// variable constrained by `v * divisor = dividend` (division has no
// linear-combination conversion rule of its own, per §4.5 step 3, so it
// is only supported in this one let-bound position).
func (l *lowerer) lowerLet(e *ast.Expr) error {
	if e.LetPattern.Kind != ast.PVariable {
		return &UnsupportedConstraintError{Reason: "only variable let-patterns are supported in R1CS lowering"}
	}
	name := e.LetPattern.Name

	if e.LetValue.Kind == ast.EBinary && e.LetValue.Op == ast.OpDiv {
		dividend, err := l.lowerToLC(e.LetValue.Left)
		if err != nil {
			return err
		}
		divisor, err := l.lowerToLC(e.LetValue.Right)
		if err != nil {
			return err
		}
		v := l.freshVar()
		l.witNames = append(l.witNames, name+"_quot")
		l.constraints = append(l.constraints, Constraint{A: oneTerm(v, 1), B: divisor, C: dividend})
		l.bindings[name] = oneTerm(v, 1)
		return nil
	}

	val, err := l.lowerToLC(e.LetValue)
	if err != nil {
		return err
	}
	l.bindings[name] = val
	return nil
}

// lowerToLC converts an expression to a linear combination per §4.5
// step 3, allocating a fresh temporary and emitting a multiplication
// constraint whenever it crosses a `*`.
func (l *lowerer) lowerToLC(e *ast.Expr) (LC, error) {
	switch e.Kind {
	case ast.ENumber:
		return constLC(e.Value), nil

	case ast.EVariable:
		if lc, ok := l.bindings[e.Name]; ok {
			return lc, nil
		}
		if idx, ok := l.varIndex[e.Name]; ok {
			return oneTerm(idx, 1), nil
		}
		return nil, &UndefinedVariableError{Name: e.Name}

	case ast.EUnaryNeg:
		inner, err := l.lowerToLC(e.Left)
		if err != nil {
			return nil, err
		}
		return negLC(inner), nil

	case ast.EBinary:
		switch e.Op {
		case ast.OpAdd:
			left, err := l.lowerToLC(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := l.lowerToLC(e.Right)
			if err != nil {
				return nil, err
			}
			return addLC(left, right), nil
		case ast.OpSub:
			left, err := l.lowerToLC(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := l.lowerToLC(e.Right)
			if err != nil {
				return nil, err
			}
			return addLC(left, negLC(right)), nil
		case ast.OpMul:
			left, err := l.lowerToLC(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := l.lowerToLC(e.Right)
			if err != nil {
				return nil, err
			}
			t := l.freshVar()
			l.constraints = append(l.constraints, Constraint{A: left, B: right, C: oneTerm(t, 1)})
			return oneTerm(t, 1), nil
		default:
			return nil, &NonQuadraticError{Reason: fmt.Sprintf("operator %v has no linear-combination conversion", e.Op)}
		}

	case ast.ECall:
		if e.Callee == "decompose" {
			return l.lowerDecompose(e)
		}
		return l.inlineCall(e)

	case ast.ELet:
		if err := l.lowerLet(e); err != nil {
			return nil, err
		}
		if e.LetBody != nil {
			return l.lowerToLC(e.LetBody)
		}
		return LC{}, nil

	case ast.EBlock:
		for i := range e.Statements {
			if err := l.lowerStatement(&e.Statements[i]); err != nil {
				return nil, err
			}
		}
		if e.Trailing != nil {
			return l.lowerToLC(e.Trailing)
		}
		return LC{}, nil

	case ast.EAssert:
		if err := l.lowerAssertedCond(e.Cond); err != nil {
			return nil, err
		}
		return oneTerm(0, 1), nil

	default:
		return nil, &NonQuadraticError{Reason: "expression form has no linear-combination conversion"}
	}
}

// inlineCall resolves a function/component call by substituting its
// parameters with the (already-lowered) argument linear combinations and
// lowering its body in place, mirroring ir/generator.go's inlineCall and,
// through it, ir_generator.rs's Expression::FunctionCall handling:
// arguments are evaluated under the caller's current bindings, then the
// callee's binding scope overlays the caller's for the duration of the
// body, and is restored afterward.
func (l *lowerer) inlineCall(e *ast.Expr) (LC, error) {
	def, ok := l.defs[e.Callee]
	if !ok {
		return nil, &UnknownCalleeError{Name: e.Callee}
	}
	if len(e.Args) != len(def.params) {
		return nil, &CallArityError{Name: e.Callee, Want: len(def.params), Got: len(e.Args)}
	}
	if l.inlining[e.Callee] {
		return nil, &UnsupportedConstraintError{Reason: fmt.Sprintf("recursive call to %q (no recursion supported)", e.Callee)}
	}

	args := make([]LC, len(e.Args))
	for i := range e.Args {
		arg, err := l.lowerToLC(&e.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	saved := l.bindings
	newBindings := make(map[string]LC, len(saved)+len(def.params))
	for k, v := range saved {
		newBindings[k] = v
	}
	for i, p := range def.params {
		newBindings[p] = args[i]
	}
	l.bindings = newBindings
	l.inlining[e.Callee] = true

	result, err := l.lowerToLC(def.body)

	l.inlining[e.Callee] = false
	l.bindings = saved
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lowerDecompose allocates 8 witness bits, emits a booleanity constraint
// b·(1−b) = 0 for each, and returns Σ 2^i·b_i, per §4.5 step 3.
func (l *lowerer) lowerDecompose(e *ast.Expr) (LC, error) {
	if len(e.Args) != 1 {
		return nil, &NonQuadraticError{Reason: "decompose requires exactly one argument"}
	}
	base := "tmp"
	if e.Args[0].Kind == ast.EVariable {
		base = e.Args[0].Name
	}

	var sum LC
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("%s_bit_%d", base, i)
		bit := l.freshVar()
		l.witNames = append(l.witNames, name)
		// b · (1 − b) = 0
		oneMinusB := LC{{Var: 0, Coeff: big.NewInt(1)}, {Var: bit, Coeff: big.NewInt(-1)}}
		l.constraints = append(l.constraints, Constraint{A: oneTerm(bit, 1), B: oneMinusB, C: LC{}})
		weight := new(big.Int).Lsh(big.NewInt(1), uint(i))
		sum = append(sum, Term{Var: bit, Coeff: weight})
	}
	return sum, nil
}
