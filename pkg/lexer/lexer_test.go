package lexer

import (
	"testing"

	"flowa/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `let x = 5
def add a b = a + b
if x == 0 then x else => add x 1
[1, 2] :: tail
"hi\n" :ok _`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LET, "let"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NUM, "5"},
		{token.DEF, "def"},
		{token.IDENT, "add"},
		{token.IDENT, "a"},
		{token.IDENT, "b"},
		{token.ASSIGN, "="},
		{token.IDENT, "a"},
		{token.PLUS, "+"},
		{token.IDENT, "b"},
		{token.IF, "if"},
		{token.IDENT, "x"},
		{token.EQ, "=="},
		{token.NUM, "0"},
		{token.THEN, "then"},
		{token.IDENT, "x"},
		{token.ELSE, "else"},
		{token.TAILARROW, "=>"},
		{token.IDENT, "add"},
		{token.IDENT, "x"},
		{token.NUM, "1"},
		{token.LBRACKET, "["},
		{token.NUM, "1"},
		{token.COMMA, ","},
		{token.NUM, "2"},
		{token.RBRACKET, "]"},
		{token.CONS, "::"},
		{token.IDENT, "tail"},
		{token.STR, "hi\n"},
		{token.SYM, "ok"},
		{token.WILDCARD, "_"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}
