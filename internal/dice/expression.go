package dice

import "strings"

// Expression is a parsed roll expression that can be evaluated any number of
// times. It holds no mutable state and may be shared between goroutines.
type Expression struct {
	source string
	rpn    []Token
}

// Parse tokenizes input and converts it to RPN.
func Parse(input string) (*Expression, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	rpn, err := ToRPN(tokens)
	if err != nil {
		return nil, err
	}
	return &Expression{source: strings.TrimSpace(input), rpn: rpn}, nil
}

// String returns the trimmed source text.
func (e *Expression) String() string {
	return e.source
}

// RPN returns a copy of the postfix token sequence.
func (e *Expression) RPN() []Token {
	out := make([]Token, len(e.rpn))
	copy(out, e.rpn)
	return out
}

// DiceCount returns the number of dice a single evaluation rolls, which
// callers use to bound the work done for untrusted input.
func (e *Expression) DiceCount() int64 {
	var n int64
	for _, tok := range e.rpn {
		if tok.Kind == TokenDice {
			n += int64(tok.Dice.Count)
		}
	}
	return n
}

// HasDice reports whether the expression contains at least one dice term.
func (e *Expression) HasDice() bool {
	for _, tok := range e.rpn {
		if tok.Kind == TokenDice {
			return true
		}
	}
	return false
}

// Eval evaluates the expression with src.
func (e *Expression) Eval(src Source) (Result, error) {
	return Evaluate(e.rpn, src)
}

// Roll parses and evaluates input in one step.
func Roll(input string, src Source) (Result, error) {
	expr, err := Parse(input)
	if err != nil {
		return Result{}, err
	}
	return expr.Eval(src)
}
