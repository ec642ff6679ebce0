package roller

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/generator"
	"github.com/verte-zerg/tuidice/internal/model"
)

type fakeSaved struct {
	rolls map[string]model.SavedRoll
}

func newFakeSaved(rolls ...model.SavedRoll) *fakeSaved {
	f := &fakeSaved{rolls: map[string]model.SavedRoll{}}
	for _, r := range rolls {
		f.rolls[strings.ToLower(r.Name)] = r
	}
	return f
}

func (f *fakeSaved) SaveRoll(_ context.Context, roll model.SavedRoll) error {
	f.rolls[strings.ToLower(roll.Name)] = roll
	return nil
}

func (f *fakeSaved) FindSavedRoll(_ context.Context, prefix string) (model.SavedRoll, error) {
	prefix = strings.ToLower(prefix)
	for key, roll := range f.rolls {
		if strings.HasPrefix(key, prefix) {
			return roll, nil
		}
	}
	return model.SavedRoll{}, errors.New("not found")
}

func (f *fakeSaved) ListSavedRolls(context.Context) ([]model.SavedRoll, error) {
	var out []model.SavedRoll
	for _, roll := range f.rolls {
		out = append(out, roll)
	}
	return out, nil
}

func (f *fakeSaved) DeleteSavedRoll(_ context.Context, name string) error {
	key := strings.ToLower(name)
	if _, ok := f.rolls[key]; !ok {
		return errors.New("not found")
	}
	delete(f.rolls, key)
	return nil
}

type fakeHistory struct {
	entries []model.RollEntry
	err     error
}

func (f *fakeHistory) InsertRoll(_ context.Context, entry model.RollEntry) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.entries = append(f.entries, entry)
	return int64(len(f.entries)), nil
}

func testConfig() model.Config {
	return model.Config{MaxDice: 1000, MaxBatch: 100, History: true}
}

func newTestRoller(seed int64, saved SavedRollStore, history HistoryStore) *Roller {
	r := New(testConfig(), generator.NewSeeded(seed), saved, history, zap.NewNop())
	r.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestSplitAnnotation(t *testing.T) {
	tests := []struct {
		in         string
		expr, note string
	}{
		{in: "2d20b + 5", expr: "2d20b + 5"},
		{in: " d20 + 3 ! attack roll ", expr: "d20 + 3", note: "attack roll"},
		{in: "d6!", expr: "d6"},
		{in: "! only a reason", note: "only a reason"},
		{in: "d4 ! a ! b", expr: "d4", note: "a ! b"},
	}
	for _, tt := range tests {
		expr, note := SplitAnnotation(tt.in)
		if expr != tt.expr || note != tt.note {
			t.Fatalf("SplitAnnotation(%q) = (%q, %q), want (%q, %q)", tt.in, expr, note, tt.expr, tt.note)
		}
	}
}

func TestRollRecordsHistory(t *testing.T) {
	history := &fakeHistory{}
	r := newTestRoller(3, nil, history)
	out, err := r.Roll(context.Background(), "3d6b2 + 1 ! damage")
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	want, err := dice.Roll("3d6b2 + 1", generator.NewSeeded(3))
	if err != nil {
		t.Fatalf("dice.Roll() error = %v", err)
	}
	if diff := cmp.Diff(want, out.Result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if out.Expression != "3d6b2 + 1" || out.Annotation != "damage" {
		t.Fatalf("unexpected outcome %q / %q", out.Expression, out.Annotation)
	}
	if len(history.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history.entries))
	}
	entry := history.entries[0]
	if out.Entry.ID != 1 || entry.Total != out.Result.Value || entry.DiceCount != 3 {
		t.Fatalf("unexpected entry %+v", out.Entry)
	}
	if len(entry.Rolls) != 1 || entry.Rolls[0].Spec != "3d6b2" || entry.Rolls[0].Sides != 6 {
		t.Fatalf("unexpected entry rolls %+v", entry.Rolls)
	}
}

func TestRollWithoutHistory(t *testing.T) {
	history := &fakeHistory{}
	r := newTestRoller(1, nil, history)
	r.cfg.History = false
	if _, err := r.Roll(context.Background(), "d20"); err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	if len(history.entries) != 0 {
		t.Fatalf("expected history to be skipped")
	}
}

func TestRollSurvivesHistoryFailure(t *testing.T) {
	r := newTestRoller(1, nil, &fakeHistory{err: errors.New("disk full")})
	out, err := r.Roll(context.Background(), "d20")
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	if out.Entry.ID != 0 {
		t.Fatalf("expected unrecorded entry, got id %d", out.Entry.ID)
	}
}

func TestRollErrors(t *testing.T) {
	r := newTestRoller(1, nil, nil)
	tests := []struct {
		input string
		want  error
	}{
		{input: "1001d6", want: ErrTooManyDice},
		{input: "600d6 + 600d6", want: ErrTooManyDice},
		{input: "5 / 0", want: dice.ErrDivisionByZero},
		{input: "(1 + 2", want: dice.ErrUnbalancedParens},
		{input: "! just words", want: dice.ErrEmptyExpression},
	}
	for _, tt := range tests {
		if _, err := r.Roll(context.Background(), tt.input); !errors.Is(err, tt.want) {
			t.Fatalf("Roll(%q) error = %v, want %v", tt.input, err, tt.want)
		}
	}
}

func TestBatchDeterministic(t *testing.T) {
	defer goleak.VerifyNone(t)

	history := &fakeHistory{}
	a, err := newTestRoller(42, nil, history).Batch(context.Background(), 20, "4d6b3 ! stats")
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	b, err := newTestRoller(42, nil, nil).Batch(context.Background(), 20, "4d6b3 ! stats")
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if diff := cmp.Diff(a.Results, b.Results); diff != "" {
		t.Fatalf("batch results differ (-a +b):\n%s", diff)
	}
	if len(a.Results) != 20 || a.Annotation != "stats" {
		t.Fatalf("unexpected batch %d results, annotation %q", len(a.Results), a.Annotation)
	}
	for i, res := range a.Results {
		if res.Value < 3 || res.Value > 18 {
			t.Fatalf("result %d = %v, out of range", i, res.Value)
		}
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct batch ids, got %q and %q", a.ID, b.ID)
	}
	if len(history.entries) != 20 {
		t.Fatalf("expected 20 history entries, got %d", len(history.entries))
	}
	for i, entry := range history.entries {
		if entry.BatchID != a.ID {
			t.Fatalf("entry %d batch id = %q, want %q", i, entry.BatchID, a.ID)
		}
		if entry.Total != a.Results[i].Value {
			t.Fatalf("entry %d total = %v, want %v", i, entry.Total, a.Results[i].Value)
		}
	}
}

func TestBatchLimits(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newTestRoller(1, nil, nil)
	if _, err := r.Batch(context.Background(), 1, "d6"); !errors.Is(err, ErrBatchTooSmall) {
		t.Fatalf("expected ErrBatchTooSmall, got %v", err)
	}
	if _, err := r.Batch(context.Background(), 101, "d6"); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	if _, err := r.Batch(context.Background(), 3, "d6 / 0"); !errors.Is(err, dice.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestBatchCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestRoller(1, nil, nil).Batch(ctx, 5, "d6"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSaveValidation(t *testing.T) {
	saved := newFakeSaved()
	r := newTestRoller(1, saved, nil)
	ctx := context.Background()

	if err := r.Save(ctx, "attack", "d20 + 5 ! sword"); !errors.Is(err, ErrAnnotationNotAllowed) {
		t.Fatalf("expected ErrAnnotationNotAllowed, got %v", err)
	}
	if err := r.Save(ctx, "attack", "d20 +"); !errors.Is(err, dice.ErrIncompleteExpression) {
		t.Fatalf("expected ErrIncompleteExpression, got %v", err)
	}
	if err := r.Save(ctx, "  ", "d20"); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := r.Save(ctx, "attack", " d20 + 5 "); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := saved.rolls["attack"].Command; got != "d20 + 5" {
		t.Fatalf("saved command = %q, want trimmed", got)
	}

	if err := New(testConfig(), nil, nil, nil, nil).Save(ctx, "x", "d4"); !errors.Is(err, ErrNoSavedRolls) {
		t.Fatalf("expected ErrNoSavedRolls, got %v", err)
	}
}

func TestCombineSaved(t *testing.T) {
	saved := model.SavedRoll{Name: "Fireball", Command: "8d6"}
	tests := []struct {
		extra         string
		command, note string
	}{
		{extra: "", command: "8d6", note: "Fireball"},
		{extra: "* 2", command: "(8d6) * 2", note: "Fireball"},
		{extra: "! upcast", command: "8d6", note: "Fireball; upcast"},
		{extra: "+ d6 ! level 4", command: "(8d6) + d6", note: "Fireball; level 4"},
	}
	for _, tt := range tests {
		command, note := CombineSaved(saved, tt.extra)
		if command != tt.command || note != tt.note {
			t.Fatalf("CombineSaved(%q) = (%q, %q), want (%q, %q)", tt.extra, command, note, tt.command, tt.note)
		}
	}
}

func TestRunSaved(t *testing.T) {
	saved := newFakeSaved(model.SavedRoll{Name: "Stealth", Command: "d20 + 7"})
	r := newTestRoller(5, saved, nil)
	out, err := r.Run(context.Background(), "STE", "- 2 ! sneaking")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Expression != "(d20 + 7) - 2" || out.Annotation != "Stealth; sneaking" {
		t.Fatalf("unexpected outcome %q / %q", out.Expression, out.Annotation)
	}
	if out.Result.Value < 6 || out.Result.Value > 25 {
		t.Fatalf("value %v out of range", out.Result.Value)
	}

	if _, err := r.Run(context.Background(), "missing", ""); err == nil {
		t.Fatalf("expected error for unknown saved roll")
	}
	if err := r.Forget(context.Background(), "stealth"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	rolls, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rolls) != 0 {
		t.Fatalf("expected no saved rolls, got %+v", rolls)
	}
}

func TestDiceJail(t *testing.T) {
	r := newTestRoller(9, nil, nil)
	before := r.gen
	res := r.DiceJail()
	if r.gen == before {
		t.Fatalf("expected dice to be replaced")
	}
	if len(res.Rolls) != 1 || res.Rolls[0].Spec.String() != "5d20" {
		t.Fatalf("unexpected jail sample %+v", res.Rolls)
	}
	if res.Value < 5 || res.Value > 100 || float64(res.Rolls[0].Total) != res.Value {
		t.Fatalf("unexpected jail total %v", res.Value)
	}

	again := newTestRoller(9, nil, nil).DiceJail()
	if diff := cmp.Diff(res, again); diff != "" {
		t.Fatalf("jail sample not reproducible for a seed (-first +second):\n%s", diff)
	}

	want, err := dice.Roll("5d20", generator.NewSeeded(9).Split(1)[0])
	if err != nil {
		t.Fatalf("Roll() error = %v", err)
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("jail sample differs from an engine roll (-want +got):\n%s", diff)
	}
}
