package dice

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sequence returns a source that yields faces in order and fails the test when
// it runs dry or a face exceeds the requested size.
func sequence(t *testing.T, faces ...int) Source {
	t.Helper()
	i := 0
	return SourceFunc(func(sides int) int {
		if i >= len(faces) {
			t.Fatalf("source exhausted after %d faces", len(faces))
		}
		face := faces[i]
		i++
		if face < 1 || face > sides {
			t.Fatalf("scripted face %d outside [1, %d]", face, sides)
		}
		return face
	})
}

func seeded(seed int64) Source {
	rng := rand.New(rand.NewSource(seed))
	return SourceFunc(func(sides int) int {
		return rng.Intn(sides) + 1
	})
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{input: "2 + 3 * 4", want: 14},
		{input: "(2 + 3) * 4", want: 20},
		{input: "2 ^ 3 ^ 2", want: 512},
		{input: "10 - 4 - 3", want: 3},
		{input: "12 / 4 / 3", want: 1},
		{input: "7 / 2", want: 3.5},
		{input: "2 ^ -1", want: 0.5},
		{input: "4 ^ 0.5", want: 2},
		{input: "-2 ^ 2", want: 4},
		{input: "-(2 ^ 2)", want: -4},
		{input: "3 - -2", want: 5},
		{input: "1.5 × 4 ÷ 3", want: 2},
		{input: "2 x 3", want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := Roll(tt.input, sequence(t))
			if err != nil {
				t.Fatalf("Roll(%q) error = %v", tt.input, err)
			}
			if math.Abs(res.Value-tt.want) > 1e-9 {
				t.Fatalf("Roll(%q) = %v, want %v", tt.input, res.Value, tt.want)
			}
			if len(res.Rolls) != 0 {
				t.Fatalf("Roll(%q) recorded %d rolls for a dice-free expression", tt.input, len(res.Rolls))
			}
		})
	}
}

func TestEvaluateKeepBest(t *testing.T) {
	res, err := Roll("6d8b4", sequence(t, 3, 7, 1, 7, 5, 2))
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	rec := res.Rolls[0]
	wantKept := []bool{true, true, false, true, true, false}
	if diff := cmp.Diff(wantKept, rec.Kept); diff != "" {
		t.Fatalf("kept mismatch (-want +got):\n%s", diff)
	}
	if rec.Total != 22 || res.Value != 22 {
		t.Fatalf("total = %d, value = %v, want 22", rec.Total, res.Value)
	}
	if rec.KeptCount() != 4 {
		t.Fatalf("KeptCount() = %d, want 4", rec.KeptCount())
	}
}

func TestEvaluateKeepWorst(t *testing.T) {
	res, err := Roll("6d8w4", sequence(t, 3, 7, 1, 7, 5, 2))
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	rec := res.Rolls[0]
	wantKept := []bool{true, false, true, false, true, true}
	if diff := cmp.Diff(wantKept, rec.Kept); diff != "" {
		t.Fatalf("kept mismatch (-want +got):\n%s", diff)
	}
	if rec.Total != 11 {
		t.Fatalf("total = %d, want 11", rec.Total)
	}
}

func TestEvaluateKeepTiesPreferEarlierRolls(t *testing.T) {
	tests := []struct {
		input    string
		faces    []int
		wantKept []bool
	}{
		{input: "4d6b2", faces: []int{5, 6, 5, 5}, wantKept: []bool{true, true, false, false}},
		{input: "4d6w2", faces: []int{2, 1, 2, 2}, wantKept: []bool{true, true, false, false}},
		{input: "3d4b2", faces: []int{4, 4, 4}, wantKept: []bool{true, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := Roll(tt.input, sequence(t, tt.faces...))
			if err != nil {
				t.Fatalf("Roll() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantKept, res.Rolls[0].Kept); diff != "" {
				t.Fatalf("kept mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateTraceOrder(t *testing.T) {
	// d4 is resolved before 2d6 once the parentheses reorder evaluation.
	res, err := Roll("d20 - (d4 * 2d6)", sequence(t, 15, 3, 2, 5))
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	var specs []string
	for _, rec := range res.Rolls {
		specs = append(specs, rec.Spec.String())
	}
	if diff := cmp.Diff([]string{"1d20", "1d4", "2d6"}, specs); diff != "" {
		t.Fatalf("roll order mismatch (-want +got):\n%s", diff)
	}
	if res.Value != 15-3*7 {
		t.Fatalf("value = %v, want %v", res.Value, 15-3*7)
	}
}

func TestEvaluateFaceBounds(t *testing.T) {
	specs := []string{"1d1", "3d4", "10d6", "6d8b4", "6d8w4", "20d20b3", "50d100"}
	src := seeded(7)
	for _, input := range specs {
		expr, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		for i := 0; i < 200; i++ {
			res, err := expr.Eval(src)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", input, err)
			}
			rec := res.Rolls[0]
			for _, face := range rec.Faces {
				if face < 1 || face > rec.Spec.Size {
					t.Fatalf("%s rolled %d, out of range [1, %d]", input, face, rec.Spec.Size)
				}
			}
			k := int64(rec.Spec.kept())
			if rec.Total < k || rec.Total > k*int64(rec.Spec.Size) {
				t.Fatalf("%s total %d outside [%d, %d]", input, rec.Total, k, k*int64(rec.Spec.Size))
			}
			if rec.KeptCount() != int(k) {
				t.Fatalf("%s kept %d faces, want %d", input, rec.KeptCount(), k)
			}
		}
	}
}

func TestEvaluateDeterministicWithSeed(t *testing.T) {
	const input = "(3d20b2 + 11) ^ (d4 * 2) / 2d100w"
	first, err := Roll(input, seeded(12345))
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	second, err := Roll(input, seeded(12345))
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("seeded results differ (-first +second):\n%s", diff)
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	for _, input := range []string{"5 / 0", "1 / (2 - 2)", "d6 / 0.0"} {
		t.Run(input, func(t *testing.T) {
			_, err := Roll(input, seeded(1))
			if !errors.Is(err, ErrDivisionByZero) {
				t.Fatalf("Roll(%q) error = %v, want %v", input, err, ErrDivisionByZero)
			}
			if IsInternal(err) {
				t.Fatalf("division by zero must be a user error")
			}
		})
	}
}

func TestEvaluateStackErrors(t *testing.T) {
	num := func(v float64) Token { return Token{Kind: TokenNumber, Number: v} }
	plus := Token{Kind: TokenOperator, Text: "+", Op: opAdd}
	neg := Token{Kind: TokenOperator, Text: "-", Op: opNeg}

	tests := []struct {
		name    string
		rpn     []Token
		wantErr error
	}{
		{name: "empty", rpn: nil, wantErr: ErrStackUnderflow},
		{name: "binary short", rpn: []Token{num(1), plus}, wantErr: ErrStackUnderflow},
		{name: "unary short", rpn: []Token{neg}, wantErr: ErrStackUnderflow},
		{name: "leftover", rpn: []Token{num(1), num(2)}, wantErr: ErrStackOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.rpn, seeded(1))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Evaluate() error = %v, want %v", err, tt.wantErr)
			}
			if !IsInternal(err) {
				t.Fatalf("expected %v to be internal", err)
			}
		})
	}
}

func TestEvaluateDoesNotMutateRPN(t *testing.T) {
	expr, err := Parse("-(2d6 + 1)")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	before := expr.RPN()
	if _, err := expr.Eval(seeded(3)); err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if diff := cmp.Diff(before, expr.RPN()); diff != "" {
		t.Fatalf("RPN changed by evaluation (-before +after):\n%s", diff)
	}
}
