// Package r1cs implements R1CS lowering (C5) and the constraint-system
// binary codec (C6): translating a typed proof's constraint forms into
// rank-1 constraints over an indexed variable vector, and persisting
// that constraint system to and from bytes.
//
// Grounded on zkcompile/constraint.go's term/LC shape and
// original_source/lof/src/r1cs.rs's variable-index and byte-layout
// design (the coefficient encoding is widened from a fixed 8-byte i64
// to arbitrary precision, per the binary layout described for this
// implementation).
package r1cs

import (
	"fmt"
	"math/big"
)

// Term is one (variable, coefficient) pair of a linear combination.
type Term struct {
	Var   int
	Coeff *big.Int
}

// LC is a linear combination: a sum of Terms.
type LC []Term

func oneTerm(v int, coeff int64) LC {
	return LC{{Var: v, Coeff: big.NewInt(coeff)}}
}

func constLC(v *big.Int) LC {
	return LC{{Var: 0, Coeff: new(big.Int).Set(v)}}
}

func addLC(a, b LC) LC {
	out := make(LC, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func negLC(a LC) LC {
	out := make(LC, len(a))
	for i, t := range a {
		out[i] = Term{Var: t.Var, Coeff: new(big.Int).Neg(t.Coeff)}
	}
	return out
}

// Constraint is one rank-1 constraint: ⟨A,z⟩ · ⟨B,z⟩ = ⟨C,z⟩.
type Constraint struct {
	A, B, C LC
}

// System is a complete constraint system for one proof, plus the
// public-input and witness name tables needed to decode external
// values into the variable vector.
type System struct {
	Name      string
	PubNames  []string
	WitNames  []string
	NumVars   int
	Constraints []Constraint
}

// NonQuadraticError is returned when a construct has no defined
// linear-combination conversion (§4.5 step 3 lists only variables,
// literals, addition, subtraction, multiplication, and decompose). Every
// multiplication is given its own temporary, so lowering never builds a
// constraint above degree 2.
type NonQuadraticError struct{ Reason string }

func (e *NonQuadraticError) Error() string { return "non-quadratic constraint: " + e.Reason }

// UnsupportedConstraintError is returned for assert/constraint forms
// R1CS lowering does not convert (e.g. ordering comparisons, which the
// type checker accepts inside an assert but which carry no
// constraint-system encoding here).
type UnsupportedConstraintError struct{ Reason string }

func (e *UnsupportedConstraintError) Error() string { return "unsupported constraint: " + e.Reason }

// UndefinedVariableError mirrors the type checker's error for a name
// with no declared signal or let-binding; lowering assumes the program
// already type-checked, so this indicates an internal inconsistency.
type UndefinedVariableError struct{ Name string }

func (e *UndefinedVariableError) Error() string { return "undefined variable: " + e.Name }

// UnknownCalleeError mirrors the type checker's arity/existence check
// for a call site naming a function or component that was never
// registered via a top-level definition; lowering assumes the program
// already type-checked, so this indicates an internal inconsistency.
type UnknownCalleeError struct{ Name string }

func (e *UnknownCalleeError) Error() string { return "call to undefined function or component: " + e.Name }

// CallArityError mirrors the type checker's arity check for a call
// site whose argument count does not match the callee's declared
// parameter count.
type CallArityError struct {
	Name     string
	Want, Got int
}

func (e *CallArityError) Error() string {
	return fmt.Sprintf("call to %q: expected %d argument(s), got %d", e.Name, e.Want, e.Got)
}
