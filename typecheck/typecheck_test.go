package typecheck

import (
	"testing"

	"github.com/alk0x1/lof/parser"
)

func check(t *testing.T, src string) error {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = CheckProgram(prog)
	return err
}

func TestMultiplyTypeChecks(t *testing.T) {
	err := check(t, `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	if err != nil {
		t.Fatalf("expected Multiply to type check, got %v", err)
	}
}

func TestUnconstrainedWitnessRejected(t *testing.T) {
	err := check(t, `proof Bad { input x: Field; witness w: Field;
	  assert x > 0 }`)
	if err == nil {
		t.Fatal("expected UnconstrainedWitnessError")
	}
	uw, ok := err.(*UnconstrainedWitnessError)
	if !ok {
		t.Fatalf("got %T: %v", err, err)
	}
	if uw.Name != "w" {
		t.Errorf("got witness %q, want %q", uw.Name, "w")
	}
}

func TestDivisionRequiresNonZero(t *testing.T) {
	err := check(t, `proof Bad { input d: Field; witness x: Field;
	  let r = x / d in assert r > 0 }`)
	if err == nil {
		t.Fatal("expected NonZeroRequiredError")
	}
	if _, ok := err.(*NonZeroRequiredError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestDivisionOkAfterAssertNonZero(t *testing.T) {
	err := check(t, `proof Good { input d: Field; witness x: Field;
	  assert d != 0;
	  let r = x / d in assert r === r }`)
	if err != nil {
		t.Fatalf("expected type check to pass once d is asserted nonzero, got %v", err)
	}
}

func TestRangeDecomposeTypeChecks(t *testing.T) {
	err := check(t, `proof Range { input value: Field;
	  assert value === decompose(value) }`)
	if err != nil {
		t.Fatalf("expected Range to type check, got %v", err)
	}
}

func TestUndefinedVariable(t *testing.T) {
	err := check(t, `proof Bad { input a: Field; witness w: Field;
	  assert w === z }`)
	if err == nil {
		t.Fatal("expected UndefinedVariableError")
	}
	if _, ok := err.(*UndefinedVariableError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestUndefinedFunctionCallRejected(t *testing.T) {
	err := check(t, `proof Bad { input a: Field; witness w: Field;
	  assert w === Foo(a) }`)
	if err == nil {
		t.Fatal("expected UndefinedFunctionError")
	}
	if _, ok := err.(*UndefinedFunctionError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestCallArityMismatchRejected(t *testing.T) {
	err := check(t, `component Square { input x: Field; output y: Field;
	  assert y === x * x }
	proof Bad { input a: Field; input b: Field; witness w: Field;
	  assert w === Square(a, b) }`)
	if err == nil {
		t.Fatal("expected a TypeMismatchError for the arity mismatch")
	}
	if _, ok := err.(*TypeMismatchError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestBooleanOperandTypeMismatchRejected(t *testing.T) {
	err := check(t, `proof Bad { input a: Field; witness w: Field;
	  assert w === (a && a) }`)
	if err == nil {
		t.Fatal("expected InvalidOperatorError for a non-Bool && operand")
	}
	if _, ok := err.(*InvalidOperatorError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestDegreeViolationRejected(t *testing.T) {
	err := check(t, `proof Bad { input a: Field; input b: Field; input c: Field; witness w: Field;
	  assert w === a * b * c }`)
	if err == nil {
		t.Fatal("expected DegreeViolationError for a cubic product")
	}
	if _, ok := err.(*DegreeViolationError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestUnusedLetBindingRejected(t *testing.T) {
	err := check(t, `proof Bad { input a: Field; input b: Field; witness w: Field;
	  let unused = a + b in assert w === a }`)
	if err == nil {
		t.Fatal("expected UnusedVariableError")
	}
	uv, ok := err.(*UnusedVariableError)
	if !ok {
		t.Fatalf("got %T: %v", err, err)
	}
	if uv.Name != "unused" {
		t.Errorf("got unused variable %q, want %q", uv.Name, "unused")
	}
}
