package ir

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

var irMagic = [8]byte{'l', 'o', 'f', '-', 'i', 'r', 0, 0}

const irVersion uint32 = 1

// jsonCircuit mirrors Circuit's shape for serialization; Type is encoded
// as a small recursive struct rather than relying on Go's default struct
// tags scattered across ir.go.
type jsonExpr struct {
	Kind   ExprKind    `json:"kind"`
	Value  string      `json:"value,omitempty"`
	Name   string      `json:"name,omitempty"`
	Left   *jsonExpr   `json:"left,omitempty"`
	Right  *jsonExpr   `json:"right,omitempty"`
	Operand *jsonExpr  `json:"operand,omitempty"`
	Index  int         `json:"index,omitempty"`
	Args   []jsonExpr  `json:"args,omitempty"`
}

type jsonInstruction struct {
	Kind   InstructionKind `json:"kind"`
	Target string          `json:"target,omitempty"`
	Expr   *jsonExpr       `json:"expr,omitempty"`
	Left   *jsonExpr       `json:"left,omitempty"`
	Right  *jsonExpr       `json:"right,omitempty"`
}

type jsonType struct {
	Kind  TypeKind   `json:"kind"`
	Elem  *jsonType  `json:"elem,omitempty"`
	Size  int        `json:"size,omitempty"`
	Elems []jsonType `json:"elems,omitempty"`
}

type jsonNamed struct {
	Name string   `json:"name"`
	Type jsonType `json:"type"`
}

type jsonCircuit struct {
	Name         string            `json:"name"`
	PubInputs    []jsonNamed       `json:"pub_inputs"`
	Witnesses    []jsonNamed       `json:"witnesses"`
	Outputs      []jsonNamed       `json:"outputs"`
	Instructions []jsonInstruction `json:"instructions"`
}

func toJSONExpr(e Expr) *jsonExpr {
	je := &jsonExpr{Kind: e.Kind, Value: e.Value, Name: e.Name, Index: e.Index}
	if e.Left != nil {
		je.Left = toJSONExpr(*e.Left)
	}
	if e.Right != nil {
		je.Right = toJSONExpr(*e.Right)
	}
	if e.Operand != nil {
		je.Operand = toJSONExpr(*e.Operand)
	}
	for _, a := range e.Args {
		je.Args = append(je.Args, *toJSONExpr(a))
	}
	return je
}

func fromJSONExpr(je *jsonExpr) Expr {
	if je == nil {
		return Expr{}
	}
	e := Expr{Kind: je.Kind, Value: je.Value, Name: je.Name, Index: je.Index}
	if je.Left != nil {
		l := fromJSONExpr(je.Left)
		e.Left = &l
	}
	if je.Right != nil {
		r := fromJSONExpr(je.Right)
		e.Right = &r
	}
	if je.Operand != nil {
		o := fromJSONExpr(je.Operand)
		e.Operand = &o
	}
	for _, a := range je.Args {
		e.Args = append(e.Args, fromJSONExpr(&a))
	}
	return e
}

func toJSONType(t Type) jsonType {
	jt := jsonType{Kind: t.Kind, Size: t.Size}
	if t.Elem != nil {
		sub := toJSONType(*t.Elem)
		jt.Elem = &sub
	}
	for _, e := range t.Elems {
		jt.Elems = append(jt.Elems, toJSONType(e))
	}
	return jt
}

func fromJSONType(jt jsonType) Type {
	t := Type{Kind: jt.Kind, Size: jt.Size}
	if jt.Elem != nil {
		sub := fromJSONType(*jt.Elem)
		t.Elem = &sub
	}
	for _, e := range jt.Elems {
		t.Elems = append(t.Elems, fromJSONType(e))
	}
	return t
}

func toJSONNamed(ns []Named) []jsonNamed {
	out := make([]jsonNamed, len(ns))
	for i, n := range ns {
		out[i] = jsonNamed{Name: n.Name, Type: toJSONType(n.Type)}
	}
	return out
}

func fromJSONNamed(ns []jsonNamed) []Named {
	if len(ns) == 0 {
		return nil
	}
	out := make([]Named, len(ns))
	for i, n := range ns {
		out[i] = Named{Name: n.Name, Type: fromJSONType(n.Type)}
	}
	return out
}

func toJSONCircuit(c *Circuit) *jsonCircuit {
	jc := &jsonCircuit{
		Name:      c.Name,
		PubInputs: toJSONNamed(c.PubInputs),
		Witnesses: toJSONNamed(c.Witnesses),
		Outputs:   toJSONNamed(c.Outputs),
	}
	for _, inst := range c.Instructions {
		ji := jsonInstruction{Kind: inst.Kind, Target: inst.Target}
		if inst.Kind == ConstrainInst {
			ji.Left = toJSONExpr(inst.Left)
			ji.Right = toJSONExpr(inst.Right)
		} else {
			ji.Expr = toJSONExpr(inst.Expr)
		}
		jc.Instructions = append(jc.Instructions, ji)
	}
	return jc
}

func fromJSONCircuit(jc *jsonCircuit) *Circuit {
	c := &Circuit{
		Name:      jc.Name,
		PubInputs: fromJSONNamed(jc.PubInputs),
		Witnesses: fromJSONNamed(jc.Witnesses),
		Outputs:   fromJSONNamed(jc.Outputs),
	}
	for _, ji := range jc.Instructions {
		inst := Instruction{Kind: ji.Kind, Target: ji.Target}
		if ji.Kind == ConstrainInst {
			inst.Left = fromJSONExpr(ji.Left)
			inst.Right = fromJSONExpr(ji.Right)
		} else {
			inst.Expr = fromJSONExpr(ji.Expr)
		}
		c.Instructions = append(c.Instructions, inst)
	}
	return c
}

// Encode serializes c to the binary IR file format: an 8-byte magic, a
// little-endian u32 version, then a pretty-printed JSON payload.
func Encode(c *Circuit) ([]byte, error) {
	payload, err := json.MarshalIndent(toJSONCircuit(c), "", "  ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(irMagic[:])
	var versionBytes [4]byte
	binary.LittleEndian.PutUint32(versionBytes[:], irVersion)
	buf.Write(versionBytes[:])
	buf.Write(payload)
	return buf.Bytes(), nil
}

// MalformedIRError is returned when a byte stream fails IR decoding.
type MalformedIRError struct{ Reason string }

func (e *MalformedIRError) Error() string { return fmt.Sprintf("malformed IR file: %s", e.Reason) }

// Decode parses the binary IR file format produced by Encode.
func Decode(data []byte) (*Circuit, error) {
	if len(data) < 12 {
		return nil, &MalformedIRError{Reason: "truncated header"}
	}
	if !bytes.Equal(data[:8], irMagic[:]) {
		return nil, &MalformedIRError{Reason: "bad magic"}
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != irVersion {
		return nil, &MalformedIRError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	var jc jsonCircuit
	if err := json.Unmarshal(data[12:], &jc); err != nil {
		return nil, &MalformedIRError{Reason: err.Error()}
	}
	return fromJSONCircuit(&jc), nil
}
