// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuidice/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when no saved roll matches a lookup.
var ErrNotFound = errors.New("saved roll not found")

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for saved rolls and roll history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saved_rolls (
			name TEXT PRIMARY KEY COLLATE NOCASE,
			command TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS roll_history (
			id INTEGER PRIMARY KEY,
			batch_id TEXT NOT NULL DEFAULT '',
			rolled_at TEXT NOT NULL,
			expression TEXT NOT NULL,
			annotation TEXT NOT NULL DEFAULT '',
			total REAL,
			dice_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS roll_records (
			roll_id INTEGER NOT NULL,
			record_idx INTEGER NOT NULL,
			spec TEXT NOT NULL,
			sides INTEGER NOT NULL,
			total INTEGER NOT NULL,
			PRIMARY KEY (roll_id, record_idx)
		);`,
		`CREATE TABLE IF NOT EXISTS roll_faces (
			roll_id INTEGER NOT NULL,
			record_idx INTEGER NOT NULL,
			position INTEGER NOT NULL,
			sides INTEGER NOT NULL,
			face INTEGER NOT NULL,
			kept INTEGER NOT NULL,
			PRIMARY KEY (roll_id, record_idx, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_roll_history_rolled_at ON roll_history(rolled_at);`,
		`CREATE INDEX IF NOT EXISTS idx_roll_history_expression ON roll_history(expression);`,
		`CREATE INDEX IF NOT EXISTS idx_roll_faces_sides ON roll_faces(sides);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRoll stores a named command, replacing any roll saved under the same
// name regardless of case.
func (s *Store) SaveRoll(ctx context.Context, roll model.SavedRoll) error {
	if roll.CreatedAt.IsZero() {
		roll.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_rolls (name, command, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET name = excluded.name, command = excluded.command, created_at = excluded.created_at`,
		roll.Name, roll.Command, roll.CreatedAt.UTC().Format(timeLayout))
	return err
}

// FindSavedRoll returns the saved roll whose name starts with prefix, ignoring
// case. An exact match wins; otherwise the alphabetically first match is used.
func (s *Store) FindSavedRoll(ctx context.Context, prefix string) (model.SavedRoll, error) {
	pattern := escapeLike(prefix) + "%"
	row := s.db.QueryRowContext(ctx,
		`SELECT name, command, created_at FROM saved_rolls
		 WHERE name LIKE ? ESCAPE '\'
		 ORDER BY (name = ?) DESC, name ASC
		 LIMIT 1`, pattern, prefix)
	var roll model.SavedRoll
	var createdAt string
	if err := row.Scan(&roll.Name, &roll.Command, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SavedRoll{}, fmt.Errorf("%w: %q", ErrNotFound, prefix)
		}
		return model.SavedRoll{}, err
	}
	parsed, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.SavedRoll{}, err
	}
	roll.CreatedAt = parsed
	return roll, nil
}

// ListSavedRolls returns all saved rolls ordered by name.
func (s *Store) ListSavedRolls(ctx context.Context) ([]model.SavedRoll, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, command, created_at FROM saved_rolls ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SavedRoll
	for rows.Next() {
		var roll model.SavedRoll
		var createdAt string
		if err := rows.Scan(&roll.Name, &roll.Command, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, err
		}
		roll.CreatedAt = parsed
		result = append(result, roll)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteSavedRoll removes the saved roll with the given name, ignoring case.
func (s *Store) DeleteSavedRoll(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_rolls WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// InsertRoll stores an evaluated roll together with its dice faces.
func (s *Store) InsertRoll(ctx context.Context, entry model.RollEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO roll_history (batch_id, rolled_at, expression, annotation, total, dice_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.BatchID,
		entry.RolledAt.UTC().Format(timeLayout),
		entry.Expression,
		entry.Annotation,
		totalValue(entry.Total),
		entry.DiceCount,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(entry.Rolls) > 0 {
		err = insertRecords(ctx, tx, id, entry.Rolls)
		if err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, id int64, rolls []model.DiceRoll) error {
	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO roll_records (roll_id, record_idx, spec, sides, total) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := recStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	faceStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO roll_faces (roll_id, record_idx, position, sides, face, kept) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := faceStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for idx, roll := range rolls {
		if _, err := recStmt.ExecContext(ctx, id, idx, roll.Spec, roll.Sides, roll.Total); err != nil {
			return err
		}
		for pos, face := range roll.Faces {
			kept := pos < len(roll.Kept) && roll.Kept[pos]
			if _, err := faceStmt.ExecContext(ctx, id, idx, pos, roll.Sides, face, boolToInt(kept)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListHistory returns rolls filtered by stats config, oldest first. When
// cfg.Last is positive only the most recent Last rolls are returned.
func (s *Store) ListHistory(ctx context.Context, cfg model.StatsConfig) ([]model.RollEntry, error) {
	where, args := historyFilter(cfg)
	query := fmt.Sprintf(`SELECT id, batch_id, rolled_at, expression, annotation, total, dice_count
		FROM roll_history
		WHERE %s
		ORDER BY rolled_at DESC, id DESC`, where)
	if cfg.Last > 0 {
		query += " LIMIT ?"
		args = append(args, cfg.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.RollEntry
	for rows.Next() {
		var entry model.RollEntry
		var rolledAt string
		var total sql.NullFloat64
		if err := rows.Scan(&entry.ID, &entry.BatchID, &rolledAt, &entry.Expression, &entry.Annotation, &total, &entry.DiceCount); err != nil {
			return nil, err
		}
		entry.Total = totalFloat(total)
		parsed, err := time.Parse(timeLayout, rolledAt)
		if err != nil {
			return nil, err
		}
		entry.RolledAt = parsed
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for display and sparklines.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if len(entries) == 0 {
		return entries, nil
	}
	ids := make([]int64, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	rolls, err := s.listRollsForEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rolls = rolls[entries[i].ID]
	}
	return entries, nil
}

func (s *Store) listRollsForEntries(ctx context.Context, ids []int64) (map[int64][]model.DiceRoll, error) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT r.roll_id, r.record_idx, r.spec, r.sides, r.total, f.face, f.kept
		FROM roll_records r
		JOIN roll_faces f ON f.roll_id = r.roll_id AND f.record_idx = r.record_idx
		WHERE r.roll_id IN (%s)
		ORDER BY r.roll_id, r.record_idx, f.position`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64][]model.DiceRoll{}
	for rows.Next() {
		var (
			rollID    int64
			recordIdx int
			roll      model.DiceRoll
			face      int
			kept      int
		)
		if err := rows.Scan(&rollID, &recordIdx, &roll.Spec, &roll.Sides, &roll.Total, &face, &kept); err != nil {
			return nil, err
		}
		list := result[rollID]
		if len(list) <= recordIdx {
			list = append(list, roll)
		}
		list[recordIdx].Faces = append(list[recordIdx].Faces, face)
		list[recordIdx].Kept = append(list[recordIdx].Kept, kept != 0)
		result[rollID] = list
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListExpressionAggregates summarizes history per expression, most rolled first.
func (s *Store) ListExpressionAggregates(ctx context.Context, cfg model.StatsConfig) ([]model.ExpressionAggregate, error) {
	where, args := historyFilter(cfg)
	// A NaN anywhere makes the sum NaN; MIN and MAX skip NaN rolls.
	query := fmt.Sprintf(`SELECT expression, COUNT(*),
			CASE WHEN COUNT(total) < COUNT(*) THEN NULL ELSE SUM(total) END,
			MIN(total), MAX(total)
		FROM roll_history
		WHERE %s
		GROUP BY expression
		ORDER BY COUNT(*) DESC, expression ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ExpressionAggregate
	for rows.Next() {
		var agg model.ExpressionAggregate
		var sum, lo, hi sql.NullFloat64
		if err := rows.Scan(&agg.Expression, &agg.Count, &sum, &lo, &hi); err != nil {
			return nil, err
		}
		agg.Sum, agg.Min, agg.Max = totalFloat(sum), totalFloat(lo), totalFloat(hi)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListFaceAggregates counts every face rolled per die size.
func (s *Store) ListFaceAggregates(ctx context.Context, cfg model.StatsConfig) ([]model.FaceAggregate, error) {
	where, args := historyFilter(cfg)
	query := fmt.Sprintf(`SELECT f.sides, f.face, COUNT(*), SUM(f.kept)
		FROM roll_faces f
		JOIN roll_history h ON h.id = f.roll_id
		WHERE %s
		GROUP BY f.sides, f.face
		ORDER BY f.sides ASC, f.face ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.FaceAggregate
	for rows.Next() {
		var agg model.FaceAggregate
		if err := rows.Scan(&agg.Sides, &agg.Face, &agg.Count, &agg.Kept); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func historyFilter(cfg model.StatsConfig) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Expression != "" {
		clauses = append(clauses, "expression = ?")
		args = append(args, cfg.Expression)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "rolled_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	return strings.Join(clauses, " AND "), args
}

// totalValue binds NaN as NULL; SQLite has no NaN and infinities store as REAL.
func totalValue(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func totalFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
