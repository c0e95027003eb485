package ir

import (
	"fmt"

	"github.com/alk0x1/lof/ast"
)

// callable is a registered function or component definition: a
// parameter name list plus the body expression substituted at each call
// site, mirroring `ir_generator.rs`'s `function_defs`/`component_defs`
// maps.
type callable struct {
	params []string
	body   *ast.Expr
}

// generator holds per-proof state; its instructions and variable
// substitutions are discarded and recreated for each proof so that, per
// §4.4, they "all clear" between proofs in the same program. Registered
// function/component definitions are shared across every proof in the
// program, since `register_function`/`register_component` run once over
// the whole program before any proof is converted.
type generator struct {
	instructions []Instruction
	defs         map[string]callable
	subst        map[string]Expr
	inlining     map[string]bool // guards against recursive inlining
}

// Generate produces one Circuit per `proof` declaration in prog, in
// source order. `function` and `component` declarations are registered
// for call-site inlining (per §4.4's "inline the callee after
// registering it via register_function/register_component") but do not
// themselves produce a Circuit: spec.md §4.4's "no recursion supported"
// call-inlining model only resolves a component to concrete signals once
// it is invoked from a proof, so a component has no standalone
// public/witness/output split of its own until inlined.
func Generate(prog *ast.Program) ([]*Circuit, error) {
	defs := collectCallables(prog)

	var out []*Circuit
	for i := range prog.Decls {
		decl := &prog.Decls[i]
		if decl.Kind != ast.EProof {
			continue
		}
		c, err := generateProof(decl, defs)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// collectCallables registers every top-level function and component
// declaration for call-site inlining. A component's input signals
// become its parameter list, in declaration order, matching the
// original's treatment of component_defs with the same
// (Vec<Parameter>, Expression) shape as function_defs.
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

func generateProof(decl *ast.Expr, defs map[string]callable) (*Circuit, error) {
	g := &generator{defs: defs, subst: make(map[string]Expr), inlining: make(map[string]bool)}
	c := &Circuit{Name: decl.DeclName}

	for _, sig := range decl.Signals {
		named := flattenSignal(sig.Name, sig.Type)
		switch sig.Visibility {
		case ast.VisInput:
			c.PubInputs = append(c.PubInputs, named...)
		case ast.VisOutput:
			c.Outputs = append(c.Outputs, named...)
		case ast.VisWitness:
			c.Witnesses = append(c.Witnesses, named...)
		}
	}

	if decl.Body != nil {
		if err := g.lowerStatement(decl.Body); err != nil {
			return nil, err
		}
	}
	c.Instructions = g.instructions
	return c, nil
}

// flattenSignal expands array-typed signals to name[0], name[1], ... and
// tuple-typed signals to name_0, name_1, ..., per §4.4.
func flattenSignal(name string, t *ast.Type) []Named {
	if t == nil {
		return []Named{{Name: name, Type: Type{Kind: TField}}}
	}
	switch t.Kind {
	case ast.TArray:
		var out []Named
		for i := 0; i < t.Size; i++ {
			out = append(out, Named{Name: fmt.Sprintf("%s[%d]", name, i), Type: Type{Kind: TField}})
		}
		return out
	case ast.TTuple:
		var out []Named
		for i := range t.Elems {
			out = append(out, Named{Name: fmt.Sprintf("%s_%d", name, i), Type: Type{Kind: TField}})
		}
		return out
	case ast.TBool:
		return []Named{{Name: name, Type: Type{Kind: TBool}}}
	default:
		return []Named{{Name: name, Type: Type{Kind: TField}}}
	}
}

// lowerStatement lowers one block-level form, appending instructions to
// g.instructions in source order, then (for `let`) continues into its
// body, which may itself be another statement-form let (see parser's
// comment on statement-form `let`).
func (g *generator) lowerStatement(e *ast.Expr) error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ast.EBlock:
		for i := range e.Statements {
			if err := g.lowerStatement(&e.Statements[i]); err != nil {
				return err
			}
		}
		if e.Trailing != nil {
			return g.lowerStatement(e.Trailing)
		}
		return nil

	case ast.EAssert:
		if e.Cond != nil && e.Cond.Kind == ast.EBinary && e.Cond.Op == ast.OpAssert {
			// `assert lhs === rhs` is the constraint itself.
			return g.lowerStatement(e.Cond)
		}
		cond, err := g.lowerExpr(e.Cond)
		if err != nil {
			return err
		}
		g.instructions = append(g.instructions, Instruction{Kind: Assert, Expr: cond})
		return nil

	case ast.ELet:
		if err := g.lowerLet(e); err != nil {
			return err
		}
		if e.LetBody != nil {
			return g.lowerStatement(e.LetBody)
		}
		return nil

	case ast.EBinary:
		if e.Op == ast.OpAssert {
			left, err := g.lowerExpr(e.Left)
			if err != nil {
				return err
			}
			right, err := g.lowerExpr(e.Right)
			if err != nil {
				return err
			}
			g.instructions = append(g.instructions, Instruction{Kind: ConstrainInst, Left: left, Right: right})
			return nil
		}
		_, err := g.lowerExpr(e)
		return err

	default:
		_, err := g.lowerExpr(e)
		return err
	}
}

// lowerLet handles the three pattern forms of §4.4: variable binding
// (Assign), literal pattern (Constrain against the literal), and
// wildcard (drop the value). Tuple patterns destructure via TupleField.
func (g *generator) lowerLet(e *ast.Expr) error {
	valExpr, err := g.lowerExpr(e.LetValue)
	if err != nil {
		return err
	}
	return g.bindPattern(e.LetPattern, valExpr)
}

func (g *generator) bindPattern(pat ast.Pattern, val Expr) error {
	switch pat.Kind {
	case ast.PVariable:
		g.instructions = append(g.instructions, Instruction{Kind: Assign, Target: pat.Name, Expr: val})
		return nil
	case ast.PWildcard:
		return nil
	case ast.PLiteral:
		lit := ConstExpr(pat.Literal.String())
		g.instructions = append(g.instructions, Instruction{Kind: ConstrainInst, Left: val, Right: lit})
		return nil
	case ast.PTuple:
		// val must itself be a Variable referencing the tuple's source
		// name; TupleField indexes into it.
		if val.Kind != Variable {
			tmp := freshTupleTemp()
			g.instructions = append(g.instructions, Instruction{Kind: Assign, Target: tmp, Expr: val})
			val = VarExpr(tmp)
		}
		for i, sub := range pat.Elements {
			field := Expr{Kind: TupleField, Name: val.Name, Index: i}
			if err := g.bindPattern(sub, field); err != nil {
				return err
			}
		}
		return nil
	default:
		return &UnsupportedExpressionError{Reason: "pattern kind"}
	}
}

// inlineCall resolves a function/component call by substituting its
// parameters with the (already-lowered) argument expressions and
// lowering its body in place, mirroring ir_generator.rs's
// `Expression::FunctionCall` handling: arguments are evaluated under the
// caller's current substitutions, then the callee's parameters are
// overlaid on a copy of the caller's substitutions for the duration of
// the body, and the caller's substitutions are restored afterward.
func (g *generator) inlineCall(e *ast.Expr) (Expr, error) {
	def, ok := g.defs[e.Callee]
	if !ok {
		return Expr{}, &UnknownCalleeError{Name: e.Callee}
	}
	if len(e.Args) != len(def.params) {
		return Expr{}, &CallArityError{Name: e.Callee, Want: len(def.params), Got: len(e.Args)}
	}
	if g.inlining[e.Callee] {
		return Expr{}, &UnsupportedExpressionError{Reason: fmt.Sprintf("recursive call to %q (no recursion supported)", e.Callee)}
	}

	args := make([]Expr, len(e.Args))
	for i := range e.Args {
		arg, err := g.lowerExpr(&e.Args[i])
		if err != nil {
			return Expr{}, err
		}
		args[i] = arg
	}

	saved := g.subst
	newSubst := make(map[string]Expr, len(saved)+len(def.params))
	for k, v := range saved {
		newSubst[k] = v
	}
	for i, p := range def.params {
		newSubst[p] = args[i]
	}
	g.subst = newSubst
	g.inlining[e.Callee] = true

	result, err := g.lowerExpr(def.body)

	g.inlining[e.Callee] = false
	g.subst = saved
	if err != nil {
		return Expr{}, err
	}
	return result, nil
}

var tupleTempCounter int

func freshTupleTemp() string {
	tupleTempCounter++
	return fmt.Sprintf("__tuple_tmp_%d", tupleTempCounter)
}

var binOpToIR = map[ast.BinOp]ExprKind{
	ast.OpAdd: Add,
	ast.OpSub: Sub,
	ast.OpMul: Mul,
	ast.OpDiv: Div,
	ast.OpLt:  Lt,
	ast.OpGt:  Gt,
	ast.OpLe:  Le,
	ast.OpGe:  Ge,
	ast.OpEq:  Equal,
	ast.OpNeq: NotEqual,
	ast.OpAnd: And,
	ast.OpOr:  Or,
}

// lowerExpr lowers e to its IR-expression value, emitting any nested
// let/assert/match side-effect instructions along the way.
func (g *generator) lowerExpr(e *ast.Expr) (Expr, error) {
	if e == nil {
		return Expr{}, nil
	}
	switch e.Kind {
	case ast.ENumber:
		return ConstExpr(e.Value.String()), nil

	case ast.EVariable:
		if sub, ok := g.subst[e.Name]; ok {
			return sub, nil
		}
		return VarExpr(e.Name), nil

	case ast.EUnaryNot:
		operand, err := g.lowerExpr(e.Left)
		if err != nil {
			return Expr{}, err
		}
		return NotExpr(operand), nil

	case ast.EUnaryNeg:
		operand, err := g.lowerExpr(e.Left)
		if err != nil {
			return Expr{}, err
		}
		return SubExpr(ConstExpr("0"), operand), nil

	case ast.EBinary:
		if e.Op == ast.OpAssert {
			left, err := g.lowerExpr(e.Left)
			if err != nil {
				return Expr{}, err
			}
			right, err := g.lowerExpr(e.Right)
			if err != nil {
				return Expr{}, err
			}
			g.instructions = append(g.instructions, Instruction{Kind: ConstrainInst, Left: left, Right: right})
			return ConstExpr("1"), nil
		}
		kind, ok := binOpToIR[e.Op]
		if !ok {
			return Expr{}, &UnsupportedExpressionError{Reason: fmt.Sprintf("operator %v", e.Op)}
		}
		left, err := g.lowerExpr(e.Left)
		if err != nil {
			return Expr{}, err
		}
		right, err := g.lowerExpr(e.Right)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: kind, Left: &left, Right: &right}, nil

	case ast.ECall:
		if e.Callee == "decompose" {
			if len(e.Args) != 1 {
				return Expr{}, &UnsupportedExpressionError{Reason: "decompose requires exactly one argument"}
			}
			arg, err := g.lowerExpr(&e.Args[0])
			if err != nil {
				return Expr{}, err
			}
			return CallExpr("decompose", []Expr{arg}), nil
		}
		return g.inlineCall(e)

	case ast.EArrayIndex:
		if e.Array.Kind != ast.EVariable {
			return Expr{}, &UnsupportedExpressionError{Reason: "array index base must be a variable"}
		}
		if e.Index.Kind != ast.ENumber {
			return Expr{}, &UnsupportedExpressionError{Reason: "dynamic array index"}
		}
		return Expr{Kind: ArrayIndex, Name: e.Array.Name, Index: int(e.Index.Value.Int64())}, nil

	case ast.ETuple:
		switch len(e.Elements) {
		case 0:
			return ConstExpr("0"), nil
		case 1:
			return g.lowerExpr(&e.Elements[0])
		default:
			return Expr{}, &UnsupportedExpressionError{Reason: "tuple of arity > 1 in expression position"}
		}

	case ast.EArrayLiteral:
		return Expr{}, &UnsupportedExpressionError{Reason: "array literal"}

	case ast.ELet:
		if err := g.lowerLet(e); err != nil {
			return Expr{}, err
		}
		if e.LetBody != nil {
			return g.lowerExpr(e.LetBody)
		}
		return ConstExpr("0"), nil

	case ast.EBlock:
		for i := range e.Statements {
			if err := g.lowerStatement(&e.Statements[i]); err != nil {
				return Expr{}, err
			}
		}
		if e.Trailing != nil {
			return g.lowerExpr(e.Trailing)
		}
		return ConstExpr("0"), nil

	case ast.EAssert:
		cond, err := g.lowerExpr(e.Cond)
		if err != nil {
			return Expr{}, err
		}
		g.instructions = append(g.instructions, Instruction{Kind: Assert, Expr: cond})
		return ConstExpr("1"), nil

	case ast.EMatch:
		return g.lowerMatch(e)

	default:
		return Expr{}, &UnsupportedExpressionError{Reason: "unrecognized expression kind"}
	}
}

// lowerMatch implements the weighted-sum lowering of §4.4: result =
// Σ_i selector_i · arm_value_i, where selector_0 = guard_0 and
// selector_{i>0} = (1 − Σ_{j<i} selector_j) · guard_i. A literal arm's
// guard is (scrutinee == literal); a variable-binding or wildcard arm's
// guard is the constant 1. Side-effecting arm bodies are rejected
// (§9 Open Question: "forbid side-effecting arms until explicitly
// designed").
func (g *generator) lowerMatch(e *ast.Expr) (Expr, error) {
	scrutinee, err := g.lowerExpr(e.Scrutinee)
	if err != nil {
		return Expr{}, err
	}

	var cumulative *Expr
	var sum *Expr

	for i := range e.Arms {
		arm := e.Arms[i]
		var guard Expr
		switch arm.Pattern.Kind {
		case ast.PLiteral:
			lit := ConstExpr(arm.Pattern.Literal.String())
			guard = Expr{Kind: Equal, Left: &scrutinee, Right: &lit}
		case ast.PVariable, ast.PWildcard:
			guard = ConstExpr("1")
		default:
			return Expr{}, &UnsupportedExpressionError{Reason: "match arm pattern kind"}
		}

		var selector Expr
		if cumulative == nil {
			selector = guard
		} else {
			oneMinus := SubExpr(ConstExpr("1"), *cumulative)
			selector = MulExpr(oneMinus, guard)
		}

		if arm.Pattern.Kind == ast.PVariable {
			g.instructions = append(g.instructions, Instruction{Kind: Assign, Target: arm.Pattern.Name, Expr: scrutinee})
		}
		if containsSideEffect(&arm.Body) {
			return Expr{}, &UnsupportedExpressionError{Reason: "side-effecting match arm"}
		}

		armVal, err := g.lowerExpr(&arm.Body)
		if err != nil {
			return Expr{}, err
		}
		term := MulExpr(selector, armVal)
		if sum == nil {
			sum = &term
		} else {
			next := AddExpr(*sum, term)
			sum = &next
		}
		if cumulative == nil {
			cumulative = &selector
		} else {
			next := AddExpr(*cumulative, selector)
			cumulative = &next
		}
	}

	if sum == nil {
		return ConstExpr("0"), nil
	}
	return *sum, nil
}

// containsSideEffect reports whether e contains a let or assert that
// would mutate the witness environment, which the weighted-sum match
// lowering does not support (see lowerMatch's doc comment).
func containsSideEffect(e *ast.Expr) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ast.ELet, ast.EAssert:
		return true
	case ast.EBlock:
		for i := range e.Statements {
			if containsSideEffect(&e.Statements[i]) {
				return true
			}
		}
		return containsSideEffect(e.Trailing)
	case ast.EBinary:
		return containsSideEffect(e.Left) || containsSideEffect(e.Right)
	default:
		return false
	}
}
