package parser

import (
	"testing"

	"github.com/alk0x1/lof/ast"
)

func TestParseMultiply(t *testing.T) {
	src := `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("want 1 decl, got %d", len(prog.Decls))
	}
	d := prog.Decls[0]
	if d.Kind != ast.EProof || d.DeclName != "Multiply" {
		t.Fatalf("got %+v", d)
	}
	if len(d.Signals) != 3 {
		t.Fatalf("want 3 signals, got %d", len(d.Signals))
	}
	if d.Signals[2].Visibility != ast.VisWitness || d.Signals[2].Name != "c" {
		t.Fatalf("got %+v", d.Signals[2])
	}
}

func TestAssertRightAssociative(t *testing.T) {
	// a === b === c should parse as a === (b === c)
	prog, err := Parse(`proof P { input a: Field; input b: Field; input c: Field;
	  assert a === b === c }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := prog.Decls[0].Body
	assertStmt := body.Statements[0]
	if assertStmt.Kind != ast.EAssert {
		t.Fatalf("got %+v", assertStmt)
	}
	outer := assertStmt.Cond
	if outer.Op != ast.OpAssert {
		t.Fatalf("want outer op ===, got %v", outer.Op)
	}
	if outer.Left.Kind != ast.EVariable || outer.Left.Name != "a" {
		t.Fatalf("want left=a, got %+v", outer.Left)
	}
	inner := outer.Right
	if inner.Op != ast.OpAssert || inner.Left.Name != "b" || inner.Right.Name != "c" {
		t.Fatalf("want right-assoc (b === c), got %+v", inner)
	}
}

func TestPrecedenceChain(t *testing.T) {
	// a + b * c should parse as a + (b * c)
	prog, err := Parse(`proof P { input a: Field; input b: Field; input c: Field;
	  assert a + b * c === a }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpr := prog.Decls[0].Body.Statements[0].Cond
	lhs := assertExpr.Left
	if lhs.Op != ast.OpAdd {
		t.Fatalf("want top-level +, got %v", lhs.Op)
	}
	if lhs.Right.Op != ast.OpMul {
		t.Fatalf("want right operand *, got %v", lhs.Right.Op)
	}
}

func TestParseLetIn(t *testing.T) {
	prog, err := Parse(`proof Bad { input d: Field; witness x: Field;
	  let r = x / d in assert r > 0 }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := prog.Decls[0].Body.Trailing
	if stmt == nil {
		stmt = &prog.Decls[0].Body.Statements[0]
	}
	if stmt.Kind != ast.ELet {
		t.Fatalf("want ELet, got %+v", stmt)
	}
	if stmt.LetPattern.Kind != ast.PVariable || stmt.LetPattern.Name != "r" {
		t.Fatalf("got pattern %+v", stmt.LetPattern)
	}
	if stmt.LetValue.Op != ast.OpDiv {
		t.Fatalf("want division, got %+v", stmt.LetValue)
	}
}

func TestParseRangeDecompose(t *testing.T) {
	prog, err := Parse(`proof Range { input value: Field;
	  assert value === decompose(value) }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpr := prog.Decls[0].Body.Statements[0].Cond
	if assertExpr.Right.Kind != ast.ECall || assertExpr.Right.Callee != "decompose" {
		t.Fatalf("got %+v", assertExpr.Right)
	}
}

func TestParseMatchExpr(t *testing.T) {
	prog, err := Parse(`proof M { input x: Field; witness y: Field;
	  let y = match x { 0 => 1, _ => 2 } in assert y === y }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = prog
}

func TestUnexpectedTokenError(t *testing.T) {
	_, err := Parse(`proof P { input a Field; }`)
	if err == nil {
		t.Fatal("expected parse error for missing colon")
	}
	if _, ok := err.(*UnexpectedTokenError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestRefinedFieldType(t *testing.T) {
	prog, err := Parse(`proof P { input a: Field<0..100>; }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig := prog.Decls[0].Signals[0]
	if sig.Type.Refinement == nil || sig.Type.Refinement.Kind != ast.RefineRange {
		t.Fatalf("got %+v", sig.Type)
	}
	if sig.Type.Refinement.Min != 0 || sig.Type.Refinement.Max != 100 {
		t.Fatalf("got %+v", sig.Type.Refinement)
	}
}
