// Package roller runs roll commands on top of the dice engine: annotations,
// dice limits, batches, saved rolls and history recording.
package roller

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/generator"
	"github.com/verte-zerg/tuidice/internal/model"
)

// AnnotationChar separates a roll expression from its reason.
const AnnotationChar = '!'

// Jail rolls a sample of JailCount dice of JailSize sides after swapping dice.
const (
	JailCount = 5
	JailSize  = 20
)

// Errors returned by Roller.
var (
	ErrTooManyDice          = errors.New("too many dice")
	ErrBatchTooLarge        = errors.New("batch too large")
	ErrBatchTooSmall        = errors.New("batch needs at least 2 rolls")
	ErrAnnotationNotAllowed = errors.New("saved rolls cannot include an annotation")
	ErrEmptyName            = errors.New("saved roll name is empty")
	ErrNoSavedRolls         = errors.New("saved rolls are unavailable")
	ErrInternal             = errors.New("internal error while evaluating roll")
)

// SavedRollStore persists named roll commands.
type SavedRollStore interface {
	SaveRoll(ctx context.Context, roll model.SavedRoll) error
	FindSavedRoll(ctx context.Context, prefix string) (model.SavedRoll, error)
	ListSavedRolls(ctx context.Context) ([]model.SavedRoll, error)
	DeleteSavedRoll(ctx context.Context, name string) error
}

// HistoryStore records evaluated rolls.
type HistoryStore interface {
	InsertRoll(ctx context.Context, entry model.RollEntry) (int64, error)
}

// Outcome is one evaluated roll command.
type Outcome struct {
	Expression string
	Annotation string
	Result     dice.Result
	Entry      model.RollEntry
}

// BatchOutcome holds the results of rolling one expression several times, in
// roll order.
type BatchOutcome struct {
	ID         string
	Expression string
	Annotation string
	Results    []dice.Result
	Entries    []model.RollEntry
}

// Roller evaluates roll commands.
type Roller struct {
	cfg     model.Config
	saved   SavedRollStore
	history HistoryStore
	logger  *zap.Logger
	workers int
	now     func() time.Time

	mu  sync.Mutex
	gen *generator.Generator
}

// New creates a Roller. A nil gen is replaced by a randomly seeded generator,
// nil stores disable saved rolls or history, and a nil logger discards logs.
func New(cfg model.Config, gen *generator.Generator, saved SavedRollStore, history HistoryStore, logger *zap.Logger) *Roller {
	if gen == nil {
		gen = generator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{
		cfg:     cfg,
		gen:     gen,
		saved:   saved,
		history: history,
		logger:  logger,
		workers: runtime.GOMAXPROCS(0),
		now:     time.Now,
	}
}

// SplitAnnotation splits input at the first '!' into a trimmed expression and
// a trimmed annotation.
func SplitAnnotation(input string) (expr, annotation string) {
	idx := strings.IndexRune(input, AnnotationChar)
	if idx < 0 {
		return strings.TrimSpace(input), ""
	}
	return strings.TrimSpace(input[:idx]), strings.TrimSpace(input[idx+1:])
}

// Parse parses expr and enforces the configured dice limit.
func (r *Roller) Parse(expr string) (*dice.Expression, error) {
	parsed, err := dice.Parse(expr)
	if err != nil {
		return nil, err
	}
	if r.cfg.MaxDice > 0 && parsed.DiceCount() > int64(r.cfg.MaxDice) {
		return nil, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManyDice, parsed.DiceCount(), r.cfg.MaxDice)
	}
	return parsed, nil
}

// Roll evaluates a command of the form "expression ! annotation".
func (r *Roller) Roll(ctx context.Context, input string) (Outcome, error) {
	expr, annotation := SplitAnnotation(input)
	return r.roll(ctx, expr, annotation)
}

func (r *Roller) roll(ctx context.Context, expr, annotation string) (Outcome, error) {
	parsed, err := r.Parse(expr)
	if err != nil {
		return Outcome{}, err
	}
	res, err := parsed.Eval(r.source())
	if err != nil {
		return Outcome{}, r.evalError(parsed, err)
	}
	entry := newEntry(parsed, annotation, "", res, r.now())
	entry = r.record(ctx, entry)
	return Outcome{Expression: parsed.String(), Annotation: annotation, Result: res, Entry: entry}, nil
}

// Batch evaluates input count times in parallel. Results keep index order and
// are reproducible for a seeded generator.
func (r *Roller) Batch(ctx context.Context, count int, input string) (BatchOutcome, error) {
	if count < 2 {
		return BatchOutcome{}, fmt.Errorf("%w: got %d", ErrBatchTooSmall, count)
	}
	if r.cfg.MaxBatch > 0 && count > r.cfg.MaxBatch {
		return BatchOutcome{}, fmt.Errorf("%w: %d requested, limit is %d", ErrBatchTooLarge, count, r.cfg.MaxBatch)
	}
	expr, annotation := SplitAnnotation(input)
	parsed, err := r.Parse(expr)
	if err != nil {
		return BatchOutcome{}, err
	}

	r.mu.Lock()
	gens := r.gen.Split(count)
	r.mu.Unlock()

	results := make([]dice.Result, count)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i := range count {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := parsed.Eval(gens[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return BatchOutcome{}, err
		}
		return BatchOutcome{}, r.evalError(parsed, err)
	}

	out := BatchOutcome{
		ID:         uuid.NewString(),
		Expression: parsed.String(),
		Annotation: annotation,
		Results:    results,
		Entries:    make([]model.RollEntry, count),
	}
	now := r.now()
	for i, res := range results {
		out.Entries[i] = r.record(ctx, newEntry(parsed, annotation, out.ID, res, now))
	}
	r.logger.Info("batch rolled",
		zap.String("batch_id", out.ID),
		zap.String("expression", out.Expression),
		zap.Int("count", count),
	)
	return out, nil
}

// Save stores command under name. Commands must parse and cannot carry an
// annotation.
func (r *Roller) Save(ctx context.Context, name, command string) error {
	if r.saved == nil {
		return ErrNoSavedRolls
	}
	name = strings.TrimSpace(name)
	command = strings.TrimSpace(command)
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsRune(command, AnnotationChar) {
		return ErrAnnotationNotAllowed
	}
	if _, err := r.Parse(command); err != nil {
		return err
	}
	if err := r.saved.SaveRoll(ctx, model.SavedRoll{Name: name, Command: command, CreatedAt: r.now()}); err != nil {
		return fmt.Errorf("failed to save roll: %w", err)
	}
	return nil
}

// Run rolls the saved command whose name starts with name. Extra text is
// applied to the saved command as "(saved) extra" and any annotation in it is
// appended to the saved name as the reason.
func (r *Roller) Run(ctx context.Context, name, extra string) (Outcome, error) {
	if r.saved == nil {
		return Outcome{}, ErrNoSavedRolls
	}
	saved, err := r.saved.FindSavedRoll(ctx, strings.TrimSpace(name))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to find saved roll: %w", err)
	}
	command, reason := CombineSaved(saved, extra)
	return r.roll(ctx, command, reason)
}

// CombineSaved builds the command and reason for running saved with extra.
func CombineSaved(saved model.SavedRoll, extra string) (command, reason string) {
	extraExpr, extraNote := SplitAnnotation(extra)
	command = saved.Command
	if extraExpr != "" {
		command = "(" + command + ") " + extraExpr
	}
	reason = saved.Name
	if extraNote != "" {
		reason += "; " + extraNote
	}
	return command, reason
}

// List returns all saved rolls.
func (r *Roller) List(ctx context.Context) ([]model.SavedRoll, error) {
	if r.saved == nil {
		return nil, ErrNoSavedRolls
	}
	rolls, err := r.saved.ListSavedRolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved rolls: %w", err)
	}
	return rolls, nil
}

// Forget deletes the saved roll called name.
func (r *Roller) Forget(ctx context.Context, name string) error {
	if r.saved == nil {
		return ErrNoSavedRolls
	}
	if err := r.saved.DeleteSavedRoll(ctx, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("failed to forget saved roll: %w", err)
	}
	return nil
}

// jailExpr is the sample DiceJail rolls with the new dice.
var jailExpr = mustParse(dice.Spec{Count: JailCount, Size: JailSize}.String())

func mustParse(input string) *dice.Expression {
	expr, err := dice.Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

// DiceJail swaps the current dice for a generator derived from them and rolls
// a sample of the new dice. Samples are not recorded.
func (r *Roller) DiceJail() dice.Result {
	r.mu.Lock()
	r.gen = r.gen.Split(1)[0]
	gen := r.gen
	r.mu.Unlock()

	res, err := jailExpr.Eval(gen)
	if err != nil {
		r.logger.Error("dice jail sample failed", zap.Error(err))
	}
	return res
}

func (r *Roller) source() dice.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

func (r *Roller) evalError(parsed *dice.Expression, err error) error {
	if dice.IsInternal(err) {
		r.logger.Error("internal evaluation error",
			zap.String("expression", parsed.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %q", ErrInternal, parsed.String())
	}
	return err
}

func (r *Roller) record(ctx context.Context, entry model.RollEntry) model.RollEntry {
	if r.history == nil || !r.cfg.History {
		return entry
	}
	id, err := r.history.InsertRoll(ctx, entry)
	if err != nil {
		r.logger.Warn("failed to record roll",
			zap.String("expression", entry.Expression),
			zap.Error(err),
		)
		return entry
	}
	entry.ID = id
	r.logger.Debug("roll recorded", zap.Int64("id", id), zap.Float64("total", entry.Total))
	return entry
}

func newEntry(parsed *dice.Expression, annotation, batchID string, res dice.Result, at time.Time) model.RollEntry {
	entry := model.RollEntry{
		BatchID:    batchID,
		RolledAt:   at,
		Expression: parsed.String(),
		Annotation: annotation,
		Total:      res.Value,
		DiceCount:  parsed.DiceCount(),
	}
	for _, rec := range res.Rolls {
		entry.Rolls = append(entry.Rolls, model.DiceRoll{
			Spec:  rec.Spec.String(),
			Sides: rec.Spec.Size,
			Faces: append([]int(nil), rec.Faces...),
			Kept:  append([]bool(nil), rec.Kept...),
			Total: rec.Total,
		})
	}
	return entry
}
