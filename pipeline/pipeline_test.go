package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompileMultiply(t *testing.T) {
	p := New(t.TempDir())
	result, err := p.Compile(`proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected a non-empty run ID")
	}
	if len(result.Systems) != 1 {
		t.Fatalf("expected 1 system, got %d", len(result.Systems))
	}
	if len(result.IRCircuits) != 1 {
		t.Fatalf("expected 1 IR circuit, got %d", len(result.IRCircuits))
	}
	if result.Stats.Proofs != 1 {
		t.Fatalf("expected 1 proof counted, got %d", result.Stats.Proofs)
	}
	if result.Stats.PublicInputs != 2 {
		t.Fatalf("expected 2 public inputs, got %d", result.Stats.PublicInputs)
	}
	if result.Stats.Witnesses != 1 {
		t.Fatalf("expected 1 witness, got %d", result.Stats.Witnesses)
	}
}

func TestCompileParseErrorWrapped(t *testing.T) {
	p := New(t.TempDir())
	_, err := p.Compile(`proof Broken { input a: Field`)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	cerr, ok := err.(*CompilerError)
	if !ok {
		t.Fatalf("expected *CompilerError, got %T", err)
	}
	if cerr.Stage != "parse" {
		t.Fatalf("expected stage 'parse', got %q", cerr.Stage)
	}
}

func TestCompileTypecheckErrorWrapped(t *testing.T) {
	p := New(t.TempDir())
	_, err := p.Compile(`proof Bad { input a: Field; witness w: Field;
	  assert w === z }`)
	if err == nil {
		t.Fatal("expected a typecheck error")
	}
	cerr, ok := err.(*CompilerError)
	if !ok {
		t.Fatalf("expected *CompilerError, got %T", err)
	}
	if cerr.Stage != "typecheck" {
		t.Fatalf("expected stage 'typecheck', got %q", cerr.Stage)
	}
}

func TestWriteFilesProducesArtifacts(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	result, err := p.Compile(`proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if err := p.WriteFiles(result); err != nil {
		t.Fatalf("write files error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Multiply.lofir")); err != nil {
		t.Fatalf("expected Multiply.lofir to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Multiply.lofr1cs")); err != nil {
		t.Fatalf("expected Multiply.lofr1cs to exist: %v", err)
	}
}

func TestSummaryMentionsRunID(t *testing.T) {
	p := New(t.TempDir())
	result, err := p.Compile(`proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	summary := result.Summary()
	if !strings.Contains(summary, result.RunID) {
		t.Fatalf("expected summary to mention run ID %q, got: %s", result.RunID, summary)
	}
}
