// Package proving implements the proving adapter (C8): it bridges a
// compiled R1CS system and its solved witness into gnark's Groth16/BN254
// backend, and persists the resulting keys and circuit-cache metadata.
//
// Grounded on prover/prover.go's CompiledCircuit/LoadOrCompile shape and
// prover/persist.go's SaveTo/LoadFrom, retargeted from hand-written
// gnark frontend.Circuit structs to a generic adapter driven entirely by
// an r1cs.System value — per spec.md §4.8, the adapter is "the only
// module aware of the scalar field's concrete type and the backend's
// wire-variable API."
package proving

import (
	"fmt"
	"math/big"

	"github.com/alk0x1/lof/r1cs"
	"github.com/consensys/gnark/frontend"
)

// dynamicCircuit is a gnark frontend.Circuit whose shape (how many
// public and secret wires to allocate) is determined entirely by an
// r1cs.System at construction time, rather than by a hand-written
// Define method per use case.
type dynamicCircuit struct {
	Public []frontend.Variable `gnark:",public"`
	Secret []frontend.Variable

	sys *r1cs.System
}

func newDynamicCircuit(sys *r1cs.System) *dynamicCircuit {
	return &dynamicCircuit{
		Public: make([]frontend.Variable, len(sys.PubNames)),
		Secret: make([]frontend.Variable, len(sys.WitNames)),
		sys:    sys,
	}
}

// Define maps every R1CS constraint's variable indices to wire handles
// and replays it inside gnark's API, per §4.8. Each multiplication
// constraint whose C side is the single fresh temporary it defines
// (coefficient 1) is treated as defining that wire; every other
// constraint is checked with AssertIsEqual.
func (c *dynamicCircuit) Define(api frontend.API) error {
	wires := make([]frontend.Variable, c.sys.NumVars)
	assigned := make([]bool, c.sys.NumVars)

	wires[0] = frontend.Variable(1)
	assigned[0] = true
	for i, v := range c.Public {
		wires[1+i] = v
		assigned[1+i] = true
	}
	base := 1 + len(c.Public)
	for i, v := range c.Secret {
		wires[base+i] = v
		assigned[base+i] = true
	}

	evalLC := func(lc r1cs.LC) (frontend.Variable, bool) {
		var acc frontend.Variable = 0
		for _, t := range lc {
			if t.Var >= len(assigned) || !assigned[t.Var] {
				return nil, false
			}
			term := api.Mul(wires[t.Var], t.Coeff)
			acc = api.Add(acc, term)
		}
		return acc, true
	}

	for ci, cons := range c.sys.Constraints {
		aVal, aOK := evalLC(cons.A)
		bVal, bOK := evalLC(cons.B)

		if aOK && bOK && len(cons.C) == 1 {
			target := cons.C[0]
			if !assigned[target.Var] && target.Coeff.Cmp(big.NewInt(1)) == 0 {
				wires[target.Var] = api.Mul(aVal, bVal)
				assigned[target.Var] = true
				continue
			}
		}

		if !aOK {
			return fmt.Errorf("constraint %d: A side references an unresolved variable", ci)
		}
		if !bOK {
			return fmt.Errorf("constraint %d: B side references an unresolved variable", ci)
		}
		cVal, cOK := evalLC(cons.C)
		if !cOK {
			return fmt.Errorf("constraint %d: C side references an unresolved variable", ci)
		}
		api.AssertIsEqual(api.Mul(aVal, bVal), cVal)
	}
	return nil
}
