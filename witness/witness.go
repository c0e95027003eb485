// Package witness implements the witness solver (C7): given a decoded
// R1CS and the public-input values (plus, optionally, user-declared
// witness values), it derives the full witness vector by repeated
// fixed-point passes over the constraint list.
//
// Grounded on zkcompile/witness.go's assignment-table and solve-loop
// shape, generalized from Petri-net place/transition values to field
// elements over the BN254 scalar field that proving/ ultimately proves
// against.
package witness

import (
	"fmt"
	"math/big"

	"github.com/alk0x1/lof/r1cs"
)

// Modulus is the BN254 scalar field's prime modulus; all arithmetic in
// this package is performed mod Modulus so the resulting witness vector
// is consistent with what the proving adapter (C8) later encodes.
var Modulus, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

const maxIterations = 1000

// IncompleteWitnessError is returned when solving stops (a full pass
// makes no progress, or the hard iteration cap is reached) with
// unassigned variables remaining.
type IncompleteWitnessError struct{ Remaining []int }

func (e *IncompleteWitnessError) Error() string {
	return fmt.Sprintf("incomplete witness: %d variable(s) unassigned after fixed point", len(e.Remaining))
}

// DivisionByZeroError is returned when a solved divisor evaluates to
// zero, so no field inverse exists.
type DivisionByZeroError struct{ ConstraintIndex int }

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero solving constraint %d", e.ConstraintIndex)
}

// MissingPublicInputError is returned when a required public-input name
// has no supplied value.
type MissingPublicInputError struct{ Name string }

func (e *MissingPublicInputError) Error() string {
	return fmt.Sprintf("missing value for public input %q", e.Name)
}

func mod(v *big.Int) *big.Int {
	m := new(big.Int).Mod(v, Modulus)
	return m
}

// lcState summarizes how far an LC can be evaluated against the current
// partial assignment: known is the sum of its already-assigned terms;
// unknown, when non-nil, is the single remaining unassigned term (the
// case that makes this side of the constraint solvable); count is the
// total number of unassigned terms (>1 means unsolvable this pass).
type lcState struct {
	known   *big.Int
	unknown *r1cs.Term
	count   int
}

func evalLC(lc r1cs.LC, z []*big.Int) lcState {
	sum := big.NewInt(0)
	var unk *r1cs.Term
	count := 0
	for i, t := range lc {
		if t.Var < len(z) && z[t.Var] != nil {
			sum.Add(sum, new(big.Int).Mul(t.Coeff, z[t.Var]))
			continue
		}
		count++
		if unk == nil {
			term := lc[i]
			unk = &term
		}
	}
	return lcState{known: mod(sum), unknown: unk, count: count}
}

func fieldDiv(numer, denom *big.Int) (*big.Int, bool) {
	if denom.Sign() == 0 {
		return nil, false
	}
	inv := new(big.Int).ModInverse(denom, Modulus)
	if inv == nil {
		return nil, false
	}
	return mod(new(big.Int).Mul(numer, inv)), true
}

// Solve runs the fixed-point algorithm of §4.7 and returns the complete
// witness vector, indexed exactly as sys.NumVars describes (ONE at 0,
// public inputs at 1..P, declared/derived witnesses at P+1..).
func Solve(sys *r1cs.System, public map[string]*big.Int, declared map[string]*big.Int) ([]*big.Int, error) {
	z := make([]*big.Int, sys.NumVars)
	z[0] = big.NewInt(1)

	for i, name := range sys.PubNames {
		v, ok := public[name]
		if !ok {
			return nil, &MissingPublicInputError{Name: name}
		}
		z[1+i] = mod(v)
	}
	for i, name := range sys.WitNames {
		if v, ok := declared[name]; ok {
			z[1+len(sys.PubNames)+i] = mod(v)
		}
	}

	// The constraint A·B = C is solved for whichever of the three sides
	// carries the lone remaining unknown term, given the other two are
	// fully evaluable — the C-side case is §4.7's literal rule; A and B
	// follow symmetrically since the same equation determines them
	// (A = C/B, B = C/A) once a value has been assigned.
	for iter := 0; iter < maxIterations; iter++ {
		progressed := false
		for ci, c := range sys.Constraints {
			aState := evalLC(c.A, z)
			bState := evalLC(c.B, z)
			cState := evalLC(c.C, z)

			var target *r1cs.Term
			var value *big.Int
			switch {
			case aState.count == 0 && bState.count == 0 && cState.count == 1:
				total := mod(new(big.Int).Mul(aState.known, bState.known))
				remainder := mod(new(big.Int).Sub(total, cState.known))
				target = cState.unknown
				v, ok := fieldDiv(remainder, target.Coeff)
				if !ok {
					return nil, &DivisionByZeroError{ConstraintIndex: ci}
				}
				value = v

			case bState.count == 0 && cState.count == 0 && aState.count == 1:
				aTotal, ok := fieldDiv(cState.known, bState.known)
				if !ok {
					continue // B is zero: A is unconstrained by this equation
				}
				remainder := mod(new(big.Int).Sub(aTotal, aState.known))
				target = aState.unknown
				v, ok := fieldDiv(remainder, target.Coeff)
				if !ok {
					return nil, &DivisionByZeroError{ConstraintIndex: ci}
				}
				value = v

			case aState.count == 0 && cState.count == 0 && bState.count == 1:
				bTotal, ok := fieldDiv(cState.known, aState.known)
				if !ok {
					continue // A is zero: B is unconstrained by this equation
				}
				remainder := mod(new(big.Int).Sub(bTotal, bState.known))
				target = bState.unknown
				v, ok := fieldDiv(remainder, target.Coeff)
				if !ok {
					return nil, &DivisionByZeroError{ConstraintIndex: ci}
				}
				value = v

			default:
				continue
			}

			if target.Var >= len(z) || z[target.Var] != nil {
				continue
			}
			z[target.Var] = value
			progressed = true
		}
		if !progressed {
			break
		}
	}

	var missing []int
	for i, v := range z {
		if v == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteWitnessError{Remaining: missing}
	}
	return z, nil
}
