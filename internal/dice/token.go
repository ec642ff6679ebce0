// Package dice parses and evaluates dice-and-arithmetic roll expressions.
//
// An expression such as "(3d20b2 + 11) ^ (d4 * 2) / 2d100w" is tokenized,
// converted to Reverse Polish Notation with the shunting-yard algorithm and
// evaluated on a value stack. Dice are only rolled during evaluation, using
// the Source handed to Evaluate, and every roll is recorded so a Formatter can
// explain how the result was reached.
package dice

import (
	"fmt"
	"strconv"
)

// TokenKind identifies the variant held by a Token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenDice
	TokenOperator
	TokenLeftParen
	TokenRightParen
)

// String returns the string representation of a token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenNumber:
		return "NUMBER"
	case TokenDice:
		return "DICE"
	case TokenOperator:
		return "OPERATOR"
	case TokenLeftParen:
		return "LPAREN"
	case TokenRightParen:
		return "RPAREN"
	}
	return "UNKNOWN"
}

// KeepMode selects which faces of a dice roll count toward its total.
type KeepMode int

const (
	KeepAll KeepMode = iota
	KeepBest
	KeepWorst
)

// Keep is the optional best/worst selection of a dice spec.
// The zero value keeps every face.
type Keep struct {
	Mode   KeepMode
	Amount int
}

// Spec describes a dice term: Count dice with Size faces each.
type Spec struct {
	Count int
	Size  int
	Keep  Keep
}

// String renders the spec in canonical notation, e.g. "3d20b2".
func (s Spec) String() string {
	out := strconv.Itoa(s.Count) + "d" + strconv.Itoa(s.Size)
	switch s.Keep.Mode {
	case KeepBest:
		out += "b" + strconv.Itoa(s.Keep.Amount)
	case KeepWorst:
		out += "w" + strconv.Itoa(s.Keep.Amount)
	}
	return out
}

// kept returns how many faces count toward the total.
func (s Spec) kept() int {
	if s.Keep.Mode == KeepAll {
		return s.Count
	}
	return s.Keep.Amount
}

// Associativity of a binary operator.
type Associativity int

const (
	AssocLeft Associativity = iota
	AssocRight
)

// Operator carries the metadata the converter needs. The evaluator only
// looks at Symbol and Unary.
type Operator struct {
	Symbol     rune
	Precedence int
	Assoc      Associativity
	Unary      bool
}

var (
	opAdd = Operator{Symbol: '+', Precedence: 2, Assoc: AssocLeft}
	opSub = Operator{Symbol: '-', Precedence: 2, Assoc: AssocLeft}
	opMul = Operator{Symbol: '*', Precedence: 3, Assoc: AssocLeft}
	opDiv = Operator{Symbol: '/', Precedence: 3, Assoc: AssocLeft}
	opPow = Operator{Symbol: '^', Precedence: 4, Assoc: AssocRight}
	// Negation binds tighter than every binary operator, so -2^2 is 4.
	opNeg = Operator{Symbol: '-', Precedence: 5, Assoc: AssocRight, Unary: true}
)

// binaryOperator maps an input rune, including the aliases accepted from chat
// users, to its binary operator.
func binaryOperator(r rune) (Operator, bool) {
	switch r {
	case '+':
		return opAdd, true
	case '-':
		return opSub, true
	case '*', '×', 'x', 'X':
		return opMul, true
	case '/', '÷':
		return opDiv, true
	case '^':
		return opPow, true
	}
	return Operator{}, false
}

// Token is a single lexical element of a roll expression.
type Token struct {
	Kind   TokenKind
	Pos    int    // byte offset in the input
	Text   string // source text of the token
	Number float64
	Dice   Spec
	Op     Operator
}

// String returns a debugging representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d)", t.Kind, t.Text, t.Pos)
}

// isOperand reports whether the token pushes a value when evaluated.
func (t Token) isOperand() bool {
	return t.Kind == TokenNumber || t.Kind == TokenDice
}
