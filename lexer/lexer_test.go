package lexer

import "testing"

func TestNextTokenSymbols(t *testing.T) {
	input := `=== => == != <= >= && || .. ( ) { } [ ] , ; : + - * /`
	want := []TokenType{
		EQEQEQ, ARROW, EQEQ, NEQ, LE, GE, AND, OR, DOTDOT,
		LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET,
		COMMA, SEMI, COLON, PLUS, MINUS, STAR, SLASH, EOF,
	}
	toks, err := Tokenize(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, tt)
		}
	}
}

func TestNextTokenKeywordsAfterFullIdentifier(t *testing.T) {
	toks, err := Tokenize("proof proofing input inputs witness")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TokenType{PROOF, IDENT, INPUT, IDENT, WITNESS, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %v (%q), want %v", i, toks[i].Type, toks[i].Literal, tt)
		}
	}
}

func TestMultiplyProgram(t *testing.T) {
	src := `proof Multiply { input a: Field; input b: Field; witness c: Field;
	  assert c === a * b }`
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[len(toks)-1].Type != EOF {
		t.Fatalf("last token must be EOF, got %v", toks[len(toks)-1])
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("input a: Field; # bad")
	if err == nil {
		t.Fatal("expected an error for unexpected character '#'")
	}
	uce, ok := err.(*UnexpectedCharacterError)
	if !ok {
		t.Fatalf("expected *UnexpectedCharacterError, got %T", err)
	}
	if uce.Ch != '#' {
		t.Errorf("got offending char %q, want '#'", uce.Ch)
	}
}

func TestSingleAmpersandIsError(t *testing.T) {
	_, err := Tokenize("a & b")
	if err == nil {
		t.Fatal("expected an error for single '&'")
	}
}

func TestCommentSkipped(t *testing.T) {
	toks, err := Tokenize("input a: Field; // a comment\nwitness b: Field;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Type != INPUT {
		t.Fatalf("expected first token INPUT, got %v", toks[0].Type)
	}
}

func TestNumberLiteral(t *testing.T) {
	toks, err := Tokenize("170")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Type != INT || toks[0].Literal != "170" {
		t.Fatalf("got %v, want INT 170", toks[0])
	}
}
