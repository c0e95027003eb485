package proving

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"

	"github.com/alk0x1/lof/r1cs"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	gnarkr1cs "github.com/consensys/gnark/frontend/cs/r1cs"
)

// Curve is the scalar field every compiled circuit and proof is defined
// over. spec.md §9's "Backend coupling" note: only this package is aware
// of the concrete field/backend; everything upstream speaks in
// arbitrary-precision integers and names.
var Curve = ecc.BN254

// CompiledCircuit is a gnark-compiled constraint system plus its
// Groth16 key pair, wrapping one r1cs.System.
type CompiledCircuit struct {
	Name         string
	System       *r1cs.System
	CS           constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
}

// BackendError wraps any error surfaced by the gnark backend, per
// spec.md §7's error taxonomy for the proving adapter.
type BackendError struct {
	Stage   string
	Wrapped error
}

func (e *BackendError) Error() string { return fmt.Sprintf("backend error (%s): %v", e.Stage, e.Wrapped) }
func (e *BackendError) Unwrap() error { return e.Wrapped }

// Compile maps sys onto a dynamicCircuit and runs frontend.Compile.
func Compile(sys *r1cs.System) (*CompiledCircuit, error) {
	circuit := newDynamicCircuit(sys)
	cs, err := frontend.Compile(Curve.ScalarField(), gnarkr1cs.NewBuilder, circuit)
	if err != nil {
		return nil, &BackendError{Stage: "compile", Wrapped: err}
	}
	return &CompiledCircuit{Name: sys.Name, System: sys, CS: cs}, nil
}

// Setup runs groth16.Setup over an already-compiled circuit.
func Setup(cc *CompiledCircuit) error {
	pk, vk, err := groth16.Setup(cc.CS)
	if err != nil {
		return &BackendError{Stage: "setup", Wrapped: err}
	}
	cc.ProvingKey = pk
	cc.VerifyingKey = vk
	return nil
}

// LoadOrCompile compiles sys, then either loads cached keys from disk
// (if the constraint-system hash in dir matches) or runs Setup and saves
// the new keys, mirroring the teacher's disk-caching LoadOrCompile.
func LoadOrCompile(sys *r1cs.System, keyDir string) (*CompiledCircuit, error) {
	cc, err := Compile(sys)
	if err != nil {
		return nil, err
	}
	if keyDir == "" {
		if err := Setup(cc); err != nil {
			return nil, err
		}
		return cc, nil
	}

	dir := filepath.Join(keyDir, sys.Name)
	currentHash, err := hashConstraintSystem(cc.CS)
	if err != nil {
		return nil, &BackendError{Stage: "hash", Wrapped: err}
	}

	if savedHash, err := os.ReadFile(filepath.Join(dir, "circuit.hash")); err == nil {
		if string(savedHash) == currentHash {
			if loaded, err := LoadFrom(dir); err == nil {
				loaded.Name = sys.Name
				loaded.System = sys
				slog.Info("loaded circuit keys from disk", "name", sys.Name, "dir", dir)
				return loaded, nil
			} else {
				slog.Warn("failed to load cached keys, regenerating", "name", sys.Name, "err", err)
			}
		} else {
			slog.Info("circuit changed, regenerating keys", "name", sys.Name)
		}
	}

	if err := Setup(cc); err != nil {
		return nil, err
	}
	if err := cc.SaveTo(dir); err != nil {
		slog.Warn("failed to save keys to disk", "name", sys.Name, "err", err)
	} else {
		slog.Info("saved circuit keys to disk", "name", sys.Name, "dir", dir)
	}
	return cc, nil
}

// assignmentCircuit builds the frontend.Circuit value carrying concrete
// field values for proving, ordered to match sys.PubNames/WitNames.
func assignmentCircuit(sys *r1cs.System, z []*big.Int) *dynamicCircuit {
	c := newDynamicCircuit(sys)
	for i := range sys.PubNames {
		c.Public[i] = z[1+i]
	}
	for i := range sys.WitNames {
		c.Secret[i] = z[1+len(sys.PubNames)+i]
	}
	return c
}

// Prove drives frontend.NewWitness → groth16.Prove → witness.Public(),
// per §4.8. z is the full witness vector as produced by witness.Solve.
func Prove(cc *CompiledCircuit, z []*big.Int) (groth16.Proof, witness.Witness, error) {
	assignment := assignmentCircuit(cc.System, z)
	w, err := frontend.NewWitness(assignment, Curve.ScalarField())
	if err != nil {
		return nil, nil, &BackendError{Stage: "witness", Wrapped: err}
	}
	proof, err := groth16.Prove(cc.CS, cc.ProvingKey, w)
	if err != nil {
		return nil, nil, &BackendError{Stage: "prove", Wrapped: err}
	}
	pub, err := w.Public()
	if err != nil {
		return nil, nil, &BackendError{Stage: "public-witness", Wrapped: err}
	}
	return proof, pub, nil
}

// Verify drives groth16.Verify.
func Verify(cc *CompiledCircuit, proof groth16.Proof, public witness.Witness) error {
	if err := groth16.Verify(proof, cc.VerifyingKey, public); err != nil {
		return &BackendError{Stage: "verify", Wrapped: err}
	}
	return nil
}
