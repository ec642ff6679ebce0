package dice

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// character classification constants.
const (
	charPeriod = '.'
	charLParen = '('
	charRParen = ')'
	charMinus  = '-'
)

type lexer struct {
	input  string
	pos    int
	tokens []Token
}

// Tokenize splits a roll expression into tokens. Whitespace between tokens is
// ignored. It is a pure function of its input.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.tokens, nil
		}
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func (l *lexer) nextToken() (Token, error) {
	start := l.pos
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])

	switch {
	case isDigit(r) || r == charPeriod:
		return l.scanNumber()
	case isDiceLetter(r):
		return l.scanDice(start, 1)
	case r == charLParen:
		l.pos += size
		return Token{Kind: TokenLeftParen, Pos: start, Text: "("}, nil
	case r == charRParen:
		l.pos += size
		return Token{Kind: TokenRightParen, Pos: start, Text: ")"}, nil
	case r == charMinus && l.expectOperand():
		l.pos += size
		return Token{Kind: TokenOperator, Pos: start, Text: "-", Op: opNeg}, nil
	}

	if op, ok := binaryOperator(r); ok {
		l.pos += size
		return Token{Kind: TokenOperator, Pos: start, Text: string(r), Op: op}, nil
	}
	return Token{}, newError(ErrInvalidCharacter, start, string(r), "")
}

// expectOperand reports whether the next token starts an operand, which is
// where a minus sign means negation.
func (l *lexer) expectOperand() bool {
	if len(l.tokens) == 0 {
		return true
	}
	last := l.tokens[len(l.tokens)-1]
	return last.Kind == TokenOperator || last.Kind == TokenLeftParen
}

// scanNumber reads a numeric literal, or the count of a dice spec when the
// digits run straight into a 'd'.
func (l *lexer) scanNumber() (Token, error) {
	start := l.pos
	dots := 0
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == charPeriod {
			dots++
		} else if !isDigit(rune(c)) {
			break
		}
		l.pos++
	}
	text := l.input[start:l.pos]

	if l.pos < len(l.input) && isDiceLetter(rune(l.input[l.pos])) {
		if dots > 0 {
			return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), "dice count must be a whole number")
		}
		count, err := parseDiceInt(text)
		if err != nil {
			return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), err.Error())
		}
		return l.scanDice(start, count)
	}

	if dots > 1 {
		return Token{}, newError(ErrMalformedNumber, start, text, "more than one decimal point")
	}
	if text == "." {
		return Token{}, newError(ErrMalformedNumber, start, text, "no digits")
	}
	if text[0] == charPeriod || text[len(text)-1] == charPeriod {
		return Token{}, newError(ErrMalformedNumber, start, text, "digits required on both sides of the decimal point")
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, newError(ErrMalformedNumber, start, text, "")
	}
	return Token{Kind: TokenNumber, Pos: start, Text: text, Number: value}, nil
}

// scanDice reads "d<size>[b|w[amount]]" with l.pos on the 'd'. The count has
// already been consumed (or defaulted to 1).
func (l *lexer) scanDice(start, count int) (Token, error) {
	l.pos++ // 'd' or 'D'

	sizeText := l.scanDigits()
	if sizeText == "" {
		return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), "missing die size")
	}
	size, err := parseDiceInt(sizeText)
	if err != nil {
		return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), err.Error())
	}
	if count < 1 {
		return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), "dice count must be at least 1")
	}
	if size < 1 {
		return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), "die size must be at least 1")
	}

	spec := Spec{Count: count, Size: size}
	if l.pos < len(l.input) {
		if mode, ok := keepMode(l.input[l.pos]); ok {
			l.pos++
			amount := 1
			if amountText := l.scanDigits(); amountText != "" {
				amount, err = parseDiceInt(amountText)
				if err != nil {
					return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), err.Error())
				}
			}
			if amount < 1 {
				return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), "keep amount must be at least 1")
			}
			if amount > count {
				return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start),
					fmt.Sprintf("cannot keep %d of %d dice", amount, count))
			}
			spec.Keep = Keep{Mode: mode, Amount: amount}
		}
	}

	if l.pos < len(l.input) && isSpecTrailer(l.input[l.pos]) {
		return Token{}, newError(ErrMalformedDiceSpec, start, l.specText(start), "unexpected trailing characters")
	}
	return Token{Kind: TokenDice, Pos: start, Text: l.input[start:l.pos], Dice: spec}, nil
}

func (l *lexer) scanDigits() string {
	start := l.pos
	for l.pos < len(l.input) && isDigit(rune(l.input[l.pos])) {
		l.pos++
	}
	return l.input[start:l.pos]
}

// specText returns the run of spec-like characters starting at start, used to
// quote the offending dice spec in errors.
func (l *lexer) specText(start int) string {
	end := start
	for end < len(l.input) {
		c := l.input[end]
		if !isDigit(rune(c)) && c != charPeriod && !isASCIILetter(c) {
			break
		}
		end++
	}
	return l.input[start:end]
}

func parseDiceInt(text string) (int, error) {
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s is out of range", text)
	}
	return int(n), nil
}

func keepMode(c byte) (KeepMode, bool) {
	switch c {
	case 'b', 'B':
		return KeepBest, true
	case 'w', 'W':
		return KeepWorst, true
	}
	return KeepAll, false
}

// isSpecTrailer reports characters that may not directly follow a dice spec.
// 'x' is allowed since it is the multiplication alias.
func isSpecTrailer(c byte) bool {
	if c == 'x' || c == 'X' {
		return false
	}
	return isDigit(rune(c)) || c == charPeriod || isASCIILetter(c)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isDiceLetter(r rune) bool {
	return r == 'd' || r == 'D'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
