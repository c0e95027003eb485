package witness

import (
	"math/big"
	"testing"

	"github.com/alk0x1/lof/parser"
	"github.com/alk0x1/lof/r1cs"
)

func lowerOne(t *testing.T, src string) *r1cs.System {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	systems, err := r1cs.Lower(prog)
	if err != nil {
		t.Fatalf("lower error: %v", err)
	}
	return systems[0]
}

func TestSolveMultiply(t *testing.T) {
	sys := lowerOne(t, `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	z, err := Solve(sys, map[string]*big.Int{"a": big.NewInt(3), "b": big.NewInt(5)}, nil)
	if err != nil {
		t.Fatalf("solve error: %v", err)
	}
	cIdx := 1 + len(sys.PubNames) // c is the only declared witness
	if z[cIdx] == nil || z[cIdx].Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("expected c = 15, got %v", z[cIdx])
	}
}

// TestSolveFixedPointChain exercises the chained-multiplication scenario
// of §8 (t1 = a·b, t2 = t1·c, out = t2 + d) where each intermediate is
// itself a declared witness tied to the chain by its own constraint.
func TestSolveFixedPointChain(t *testing.T) {
	sys := lowerOne(t, `proof Chain {
	  input a: Field; input b: Field; input c: Field; input d: Field;
	  witness t1: Field; witness t2: Field; witness out: Field;
	  assert t1 === a * b;
	  assert t2 === t1 * c;
	  assert out === t2 + d }`)
	public := map[string]*big.Int{
		"a": big.NewInt(2), "b": big.NewInt(3), "c": big.NewInt(4), "d": big.NewInt(5),
	}
	z, err := Solve(sys, public, nil)
	if err != nil {
		t.Fatalf("solve error: %v", err)
	}
	witIdx := map[string]int{}
	for i, n := range sys.WitNames {
		witIdx[n] = 1 + len(sys.PubNames) + i
	}
	want := map[string]int64{"t1": 6, "t2": 24, "out": 29}
	for name, wantVal := range want {
		got := z[witIdx[name]]
		if got == nil || got.Cmp(big.NewInt(wantVal)) != 0 {
			t.Errorf("%s: got %v, want %d", name, got, wantVal)
		}
	}
}

func TestSolveMissingPublicInput(t *testing.T) {
	sys := lowerOne(t, `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	_, err := Solve(sys, map[string]*big.Int{"a": big.NewInt(3)}, nil)
	if err == nil {
		t.Fatal("expected MissingPublicInputError")
	}
	if _, ok := err.(*MissingPublicInputError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}
