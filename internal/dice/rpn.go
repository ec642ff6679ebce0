package dice

// ToRPN converts infix tokens to Reverse Polish Notation using the
// shunting-yard algorithm. All precedence and associativity handling lives
// here; the evaluator consumes the result without knowing about either.
//
// Besides balancing parentheses, ToRPN checks that operands and operators
// alternate, so a successful result is always a valid postfix sequence.
func ToRPN(tokens []Token) ([]Token, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyExpression
	}

	output := make([]Token, 0, len(tokens))
	stack := make([]Token, 0, len(tokens)/2+1)
	expectOperand := true
	var prev *Token

	for i := range tokens {
		tok := tokens[i]
		switch tok.Kind {
		case TokenNumber, TokenDice:
			if !expectOperand {
				return nil, newError(ErrUnexpectedToken, tok.Pos, tok.Text, "missing operator before operand")
			}
			output = append(output, tok)
			expectOperand = false

		case TokenOperator:
			if tok.Op.Unary {
				if !expectOperand {
					return nil, newError(ErrUnexpectedToken, tok.Pos, tok.Text, "")
				}
				stack = append(stack, tok)
				break
			}
			if expectOperand {
				return nil, newError(ErrUnexpectedToken, tok.Pos, tok.Text, "missing left operand")
			}
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.Kind != TokenOperator || !yields(top.Op, tok.Op) {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)
			expectOperand = true

		case TokenLeftParen:
			if !expectOperand {
				return nil, newError(ErrUnexpectedToken, tok.Pos, tok.Text, "missing operator before parenthesis")
			}
			stack = append(stack, tok)

		case TokenRightParen:
			if !hasOpenParen(stack) {
				return nil, newError(ErrUnbalancedParens, tok.Pos, tok.Text, "no matching opening parenthesis")
			}
			if expectOperand {
				reason := "missing operand"
				if prev != nil && prev.Kind == TokenLeftParen {
					reason = "empty parentheses"
				}
				return nil, newError(ErrUnexpectedToken, tok.Pos, tok.Text, reason)
			}
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.Kind == TokenLeftParen {
					break
				}
				output = append(output, top)
			}
		}
		prev = &tokens[i]
	}

	for _, tok := range stack {
		if tok.Kind == TokenLeftParen {
			return nil, newError(ErrUnbalancedParens, tok.Pos, tok.Text, "missing closing parenthesis")
		}
	}
	if expectOperand {
		last := tokens[len(tokens)-1]
		return nil, newError(ErrIncompleteExpression, last.Pos, last.Text, "expected an operand")
	}
	for len(stack) > 0 {
		output = append(output, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return output, nil
}

func hasOpenParen(stack []Token) bool {
	for _, tok := range stack {
		if tok.Kind == TokenLeftParen {
			return true
		}
	}
	return false
}

// yields reports whether the operator on top of the holding stack must be
// emitted before incoming is pushed.
func yields(top, incoming Operator) bool {
	if top.Precedence > incoming.Precedence {
		return true
	}
	return top.Precedence == incoming.Precedence && incoming.Assoc == AssocLeft
}
