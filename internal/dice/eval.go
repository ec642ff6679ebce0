package dice

import (
	"math"
	"sort"
)

// Source produces die faces. Implementations shared between goroutines must be
// safe for concurrent use.
type Source interface {
	// Roll returns a uniformly distributed integer in [1, sides].
	Roll(sides int) int
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(sides int) int

// Roll calls f(sides).
func (f SourceFunc) Roll(sides int) int {
	return f(sides)
}

// RollRecord is the trace of a single dice term.
type RollRecord struct {
	Spec  Spec
	Faces []int  // in roll order
	Kept  []bool // parallel to Faces
	Total int64  // sum of kept faces
}

// KeptCount returns the number of faces that count toward Total.
func (r RollRecord) KeptCount() int {
	n := 0
	for _, k := range r.Kept {
		if k {
			n++
		}
	}
	return n
}

// Result is the outcome of evaluating an expression.
type Result struct {
	Value float64
	Rolls []RollRecord // in evaluation order
}

type operand struct {
	value float64
	rolls []RollRecord
}

// Evaluate runs an RPN sequence produced by ToRPN, rolling dice with src as
// they are reached. It never rounds the value.
func Evaluate(rpn []Token, src Source) (Result, error) {
	stack := make([]operand, 0, len(rpn))

	for _, tok := range rpn {
		switch tok.Kind {
		case TokenNumber:
			stack = append(stack, operand{value: tok.Number})

		case TokenDice:
			rec := rollSpec(tok.Dice, src)
			stack = append(stack, operand{value: float64(rec.Total), rolls: []RollRecord{rec}})

		case TokenOperator:
			if tok.Op.Unary {
				if len(stack) < 1 {
					return Result{}, newError(ErrStackUnderflow, tok.Pos, tok.Text, "negation needs one operand")
				}
				top := &stack[len(stack)-1]
				top.value = -top.value
				break
			}
			if len(stack) < 2 {
				return Result{}, newError(ErrStackUnderflow, tok.Pos, tok.Text, "operator needs two operands")
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			value, err := apply(tok, left.value, right.value)
			if err != nil {
				return Result{}, err
			}
			stack = append(stack, operand{value: value, rolls: joinRolls(left.rolls, right.rolls)})

		default:
			return Result{}, newError(ErrUnexpectedToken, tok.Pos, tok.Text, "not valid in RPN")
		}
	}

	switch len(stack) {
	case 0:
		return Result{}, newError(ErrStackUnderflow, -1, "", "no value left")
	case 1:
		return Result{Value: stack[0].value, Rolls: stack[0].rolls}, nil
	default:
		return Result{}, newError(ErrStackOverflow, -1, "", "more than one value left")
	}
}

func apply(tok Token, left, right float64) (float64, error) {
	switch tok.Op.Symbol {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, newError(ErrDivisionByZero, tok.Pos, tok.Text, "")
		}
		return left / right, nil
	case '^':
		return math.Pow(left, right), nil
	}
	return 0, newError(ErrUnexpectedToken, tok.Pos, tok.Text, "unknown operator")
}

func joinRolls(left, right []RollRecord) []RollRecord {
	if len(left) == 0 {
		return right
	}
	if len(right) == 0 {
		return left
	}
	out := make([]RollRecord, 0, len(left)+len(right))
	out = append(out, left...)
	return append(out, right...)
}

// rollSpec draws every face of spec independently and marks the kept ones.
func rollSpec(spec Spec, src Source) RollRecord {
	faces := make([]int, spec.Count)
	for i := range faces {
		faces[i] = src.Roll(spec.Size)
	}
	kept := selectKept(faces, spec.Keep)

	var total int64
	for i, face := range faces {
		if kept[i] {
			total += int64(face)
		}
	}
	return RollRecord{Spec: spec, Faces: faces, Kept: kept, Total: total}
}

// selectKept returns the kept mask for faces. Among equal faces the earlier
// roll wins.
func selectKept(faces []int, keep Keep) []bool {
	kept := make([]bool, len(faces))
	if keep.Mode == KeepAll {
		for i := range kept {
			kept[i] = true
		}
		return kept
	}

	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if keep.Mode == KeepBest {
			return faces[order[i]] > faces[order[j]]
		}
		return faces[order[i]] < faces[order[j]]
	})
	amount := keep.Amount
	if amount > len(order) {
		amount = len(order)
	}
	for _, idx := range order[:amount] {
		kept[idx] = true
	}
	return kept
}
