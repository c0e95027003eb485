package ir

import (
	"reflect"
	"testing"

	"github.com/alk0x1/lof/parser"
)

func generateOne(t *testing.T, src string) *Circuit {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	circuits, err := Generate(prog)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if len(circuits) != 1 {
		t.Fatalf("expected 1 circuit, got %d", len(circuits))
	}
	return circuits[0]
}

func TestGenerateMultiply(t *testing.T) {
	c := generateOne(t, `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	if len(c.PubInputs) != 2 {
		t.Fatalf("expected 2 public inputs, got %d", len(c.PubInputs))
	}
	if len(c.Witnesses) != 1 {
		t.Fatalf("expected 1 witness, got %d", len(c.Witnesses))
	}
	if len(c.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(c.Instructions))
	}
	inst := c.Instructions[0]
	if inst.Kind != ConstrainInst {
		t.Fatalf("expected ConstrainInst, got %v", inst.Kind)
	}
	if inst.Left.Kind != Variable || inst.Left.Name != "c" {
		t.Fatalf("expected left = var c, got %+v", inst.Left)
	}
	if inst.Right.Kind != Mul {
		t.Fatalf("expected right = Mul, got %+v", inst.Right)
	}
}

func TestGenerateRangeUsesDecomposeCall(t *testing.T) {
	c := generateOne(t, `proof Range { input value: Field;
	  assert value === decompose(value) }`)
	inst := c.Instructions[0]
	if inst.Right.Kind != Call || inst.Right.Name != "decompose" {
		t.Fatalf("expected decompose call, got %+v", inst.Right)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`
	c1 := generateOne(t, src)
	c2 := generateOne(t, src)
	if !reflect.DeepEqual(c1, c2) {
		t.Fatalf("expected identical artifacts for identical source, got diff:\n%+v\nvs\n%+v", c1, c2)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := generateOne(t, `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	data, err := Encode(c)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if string(data[:8]) != "lof-ir\x00\x00" {
		t.Fatalf("unexpected magic: %q", data[:8])
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !reflect.DeepEqual(c, decoded) {
		t.Fatalf("round trip mismatch:\n%+v\nvs\n%+v", c, decoded)
	}
}

func TestCodecRejectsBadMagic(t *testing.T) {
	data := []byte("not-an-ir-file-000000000000")
	if _, err := Decode(data); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestGenerateLetBinding(t *testing.T) {
	c := generateOne(t, `proof Good { input d: Field; witness x: Field;
	  assert d != 0;
	  let r = x / d in assert r === r }`)
	var sawAssign, sawAssert bool
	for _, inst := range c.Instructions {
		switch inst.Kind {
		case Assign:
			sawAssign = true
			if inst.Target != "r" {
				t.Fatalf("expected assign target r, got %q", inst.Target)
			}
		case ConstrainInst:
			sawAssert = true
		}
	}
	if !sawAssign {
		t.Fatal("expected an Assign instruction for let binding")
	}
	if !sawAssert {
		t.Fatal("expected a ConstrainInst for r === r")
	}
}

// TestGenerateComponentCallInlines exercises §4.4's call-site inlining:
// a component registered via register_component is inlined at its call
// site, substituting its parameter for the argument.
func TestGenerateComponentCallInlines(t *testing.T) {
	c := generateOne(t, `component Square { input x: Field; output y: Field; x * x }
	  proof UsesSquare { input v: Field; witness r: Field;
	    assert r === Square(v) }`)
	if len(c.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(c.Instructions))
	}
	inst := c.Instructions[0]
	if inst.Kind != ConstrainInst {
		t.Fatalf("expected ConstrainInst, got %v", inst.Kind)
	}
	if inst.Right.Kind != Mul {
		t.Fatalf("expected the inlined call to produce a Mul expression, got %+v", inst.Right)
	}
	if inst.Right.Left.Name != "v" || inst.Right.Right.Name != "v" {
		t.Fatalf("expected Square's parameter substituted with v on both sides, got %+v", inst.Right)
	}
}

func TestGenerateUnknownCalleeRejected(t *testing.T) {
	prog, err := parser.Parse(`proof Bad { input a: Field; witness w: Field;
	  assert w === Foo(a) }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = Generate(prog)
	if err == nil {
		t.Fatal("expected UnknownCalleeError")
	}
	if _, ok := err.(*UnknownCalleeError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestGenerateCallArityMismatchRejected(t *testing.T) {
	prog, err := parser.Parse(`component Square { input x: Field; output y: Field; x * x }
	  proof Bad { input a: Field; input b: Field; witness w: Field;
	    assert w === Square(a, b) }`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = Generate(prog)
	if err == nil {
		t.Fatal("expected CallArityError")
	}
	if _, ok := err.(*CallArityError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestGenerateMatchWeightedSum(t *testing.T) {
	c := generateOne(t, `proof Select { input s: Field; witness out: Field;
	  assert out === match s { 0 => 10, 1 => 20, _ => 0 } }`)
	inst := c.Instructions[0]
	if inst.Right.Kind != Add && inst.Right.Kind != Mul {
		t.Fatalf("expected match lowering to produce an arithmetic sum/term, got %+v", inst.Right.Kind)
	}
}
