package dice

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenizeKinds(t *testing.T) {
	tokens, err := Tokenize("(3d20b2 + 11) ^ (d4 * 2) / 2d100w")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	got := make([]string, len(tokens))
	for i, tok := range tokens {
		got[i] = tok.Kind.String() + ":" + tok.Text
	}
	want := []string{
		"LPAREN:(", "DICE:3d20b2", "OPERATOR:+", "NUMBER:11", "RPAREN:)",
		"OPERATOR:^",
		"LPAREN:(", "DICE:d4", "OPERATOR:*", "NUMBER:2", "RPAREN:)",
		"OPERATOR:/", "DICE:2d100w",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeDiceSpecs(t *testing.T) {
	tests := []struct {
		input string
		want  Spec
	}{
		{input: "d4", want: Spec{Count: 1, Size: 4}},
		{input: "1d4", want: Spec{Count: 1, Size: 4}},
		{input: "2D6", want: Spec{Count: 2, Size: 6}},
		{input: "6d8b4", want: Spec{Count: 6, Size: 8, Keep: Keep{Mode: KeepBest, Amount: 4}}},
		{input: "6d8W4", want: Spec{Count: 6, Size: 8, Keep: Keep{Mode: KeepWorst, Amount: 4}}},
		{input: "2d20w", want: Spec{Count: 2, Size: 20, Keep: Keep{Mode: KeepWorst, Amount: 1}}},
		{input: "2d20b", want: Spec{Count: 2, Size: 20, Keep: Keep{Mode: KeepBest, Amount: 1}}},
		{input: "d1", want: Spec{Count: 1, Size: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error = %v", tt.input, err)
			}
			if len(tokens) != 1 || tokens[0].Kind != TokenDice {
				t.Fatalf("Tokenize(%q) = %v, want one dice token", tt.input, tokens)
			}
			if diff := cmp.Diff(tt.want, tokens[0].Dice); diff != "" {
				t.Fatalf("spec mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizeDefaultCount(t *testing.T) {
	short, err := Tokenize("d4")
	if err != nil {
		t.Fatalf("Tokenize(d4) error = %v", err)
	}
	long, err := Tokenize("1d4")
	if err != nil {
		t.Fatalf("Tokenize(1d4) error = %v", err)
	}
	if short[0].Dice != long[0].Dice {
		t.Fatalf("d4 = %+v, 1d4 = %+v", short[0].Dice, long[0].Dice)
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{input: "11", want: 11},
		{input: "2.5", want: 2.5},
		{input: "0.5", want: 0.5},
		{input: "007", want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error = %v", tt.input, err)
			}
			if len(tokens) != 1 || tokens[0].Kind != TokenNumber || tokens[0].Number != tt.want {
				t.Fatalf("Tokenize(%q) = %v, want number %v", tt.input, tokens, tt.want)
			}
		})
	}
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize("-1 - 2 × 3 x 4 ÷ 5 X 6")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	var symbols []rune
	var unary []bool
	for _, tok := range tokens {
		if tok.Kind == TokenOperator {
			symbols = append(symbols, tok.Op.Symbol)
			unary = append(unary, tok.Op.Unary)
		}
	}
	if diff := cmp.Diff([]rune{'-', '-', '*', '*', '/', '*'}, symbols); diff != "" {
		t.Fatalf("symbols mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true, false, false, false, false, false}, unary); diff != "" {
		t.Fatalf("unary mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeUnaryAfterParen(t *testing.T) {
	tokens, err := Tokenize("(-d6)")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if !tokens[1].Op.Unary {
		t.Fatalf("expected unary minus after '(', got %v", tokens[1])
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantPos int
	}{
		{name: "unknown character", input: "2 + a", wantErr: ErrInvalidCharacter, wantPos: 4},
		{name: "unknown symbol", input: "2 % 3", wantErr: ErrInvalidCharacter, wantPos: 2},
		{name: "two decimal points", input: "1.2.3", wantErr: ErrMalformedNumber, wantPos: 0},
		{name: "lone point", input: "1 + .", wantErr: ErrMalformedNumber, wantPos: 4},
		{name: "leading point", input: "2 * .5", wantErr: ErrMalformedNumber, wantPos: 4},
		{name: "trailing point", input: "5. + 1", wantErr: ErrMalformedNumber, wantPos: 0},
		{name: "missing size", input: "2d", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "missing size before keep", input: "2db1", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "size then operator", input: "3d+1", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "zero size", input: "d0", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "zero count", input: "0d6", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "fractional count", input: "1.5d6", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "zero keep", input: "4d6b0", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "keep more than rolled", input: "1 + 2d6b3", wantErr: ErrMalformedDiceSpec, wantPos: 4},
		{name: "implied count keep", input: "d20b2", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "fractional size", input: "2d6.5", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "stacked dice", input: "2d6d6", wantErr: ErrMalformedDiceSpec, wantPos: 0},
		{name: "count out of range", input: "99999999999d6", wantErr: ErrMalformedDiceSpec, wantPos: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Tokenize(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			var exprErr *Error
			if !errors.As(err, &exprErr) {
				t.Fatalf("Tokenize(%q) error %T is not *Error", tt.input, err)
			}
			if exprErr.Pos != tt.wantPos {
				t.Fatalf("Tokenize(%q) error position = %d, want %d", tt.input, exprErr.Pos, tt.wantPos)
			}
		})
	}
}

func TestTokenizeWhitespaceOnly(t *testing.T) {
	tokens, err := Tokenize(" \t ")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected no tokens, got %v", tokens)
	}
}

func TestErrorMessage(t *testing.T) {
	_, err := Tokenize("2d6b3")
	want := `malformed dice spec "2d6b3" at position 1: cannot keep 3 of 2 dice`
	if err == nil || err.Error() != want {
		t.Fatalf("error = %v, want %q", err, want)
	}
}
