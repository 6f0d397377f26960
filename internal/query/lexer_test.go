package query

import "testing"

func TestLex_SplitsWordsAndOperators(t *testing.T) {
	toks := lex(`report AND ext:pdf OR NOT (draft)`)

	want := []tokenKind{tokenWord, tokenAnd, tokenFieldOrWord, tokenOr, tokenNot, tokenLParen, tokenWord, tokenRParen, tokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}

	for i, k := range want {
		if toks[i].kind != k {
			t.Errorf("token %d: got kind %v, want %v (text %q)", i, toks[i].kind, k, toks[i].text)
		}
	}
}

func TestLex_QuotedSubstringKeepsSpaces(t *testing.T) {
	toks := lex(`"final report" draft`)

	if toks[0].kind != tokenWord || toks[0].text != "final report" {
		t.Fatalf("got %+v, want a single word token with embedded space", toks[0])
	}

	if toks[1].kind != tokenWord || toks[1].text != "draft" {
		t.Fatalf("got %+v, want a second word token", toks[1])
	}
}

func TestLex_LowercaseAndIsALiteralNotAnOperator(t *testing.T) {
	toks := lex(`sand and castle`)

	for _, tok := range toks {
		if tok.kind == tokenAnd {
			t.Fatalf("lowercase 'and' should not lex as an operator: %+v", toks)
		}
	}
}

func TestLex_RecordsByteOffsets(t *testing.T) {
	toks := lex(`foo bar`)

	if toks[0].offset != 0 {
		t.Errorf("first token offset = %d, want 0", toks[0].offset)
	}

	if toks[1].offset != 4 {
		t.Errorf("second token offset = %d, want 4", toks[1].offset)
	}
}
