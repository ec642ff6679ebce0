// Package main provides the CLI entrypoint for tuidice.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/verte-zerg/tuidice/internal/config"
	"github.com/verte-zerg/tuidice/internal/export"
	"github.com/verte-zerg/tuidice/internal/generator"
	"github.com/verte-zerg/tuidice/internal/model"
	"github.com/verte-zerg/tuidice/internal/roller"
	"github.com/verte-zerg/tuidice/internal/script"
	"github.com/verte-zerg/tuidice/internal/stats"
	"github.com/verte-zerg/tuidice/internal/statsui"
	"github.com/verte-zerg/tuidice/internal/store"
	"github.com/verte-zerg/tuidice/internal/tui"
)

const (
	defaultMaxDice     = 1000
	defaultMaxBatch    = 100
	defaultMaxRollsLen = 1024
	defaultFormat      = "text"
	defaultHistoryLast = 20
	defaultStatsWindow = 5
)

var (
	rollSeed        int64
	rollMaxDice     int
	rollMaxBatch    int
	rollMaxRollsLen int
	rollFormat      string
	rollNoHistory   bool
	rollVerbose     bool

	historyLast int

	statsExpr   string
	statsSince  string
	statsLast   int
	statsWindow int
	statsTUI    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tuidice [expression] [! reason]",
		Short: "Dice roller with history",
		Long: `Roll dice expressions such as "3d20b2 + 11" or "(d6 + 2) * 2 ! fireball".
Without arguments on a terminal, tuidice starts an interactive roller.

Flags go before the expression; everything after it is part of the roll, so
"tuidice 5 -3" rolls 5 - 3. An expression that starts with '-' needs "--"
first, as in "tuidice -- -d6 + 10".`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRollCmd,
	}
	rootCmd.Flags().SetInterspersed(false)

	flags := rootCmd.PersistentFlags()
	flags.Int64Var(&rollSeed, "seed", 0, "seed for reproducible rolls")
	flags.IntVar(&rollMaxDice, "max-dice", defaultMaxDice, "maximum dice per expression")
	flags.IntVar(&rollMaxBatch, "max-batch", defaultMaxBatch, "maximum rolls per batch")
	flags.IntVar(&rollMaxRollsLen, "max-rolls-len", defaultMaxRollsLen, "clip roll listings longer than this (0 disables)")
	flags.StringVar(&rollFormat, "format", defaultFormat, "output format: text, json or yaml")
	flags.BoolVar(&rollNoHistory, "no-history", false, "do not record rolls")
	flags.BoolVar(&rollVerbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newSaveCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSavedCmd())
	rootCmd.AddCommand(newForgetCmd())
	rootCmd.AddCommand(newJailCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newFileCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app holds the collaborators shared by roll commands.
type app struct {
	cfg    model.Config
	format export.Format
	store  *store.Store
	roller *roller.Roller
	logger *zap.Logger
}

// openApp resolves configuration and wires the roller. The database is only
// opened when needStore is set or history is enabled.
func openApp(cmd *cobra.Command, needStore bool) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(rollVerbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, format: format, logger: logger}
	var saved roller.SavedRollStore
	var history roller.HistoryStore
	if needStore || cfg.History {
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			if needStore {
				return nil, fmt.Errorf("failed to open db: %w", err)
			}
			logger.Warn("history disabled, failed to open db", zap.Error(err))
		} else {
			a.store = st
			saved = st
			history = st
		}
	}

	var gen *generator.Generator
	if cfg.Seed != nil {
		gen = generator.NewSeeded(*cfg.Seed)
	}
	a.roller = roller.New(cfg, gen, saved, history, logger)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	// Sync on a terminal returns ENOTTY; nothing useful to report.
	_ = a.logger.Sync()
}

func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "max-dice", &rollMaxDice, fileCfg.Roll.MaxDice)
	applyIntConfig(cmd, "max-batch", &rollMaxBatch, fileCfg.Roll.MaxBatch)
	applyIntConfig(cmd, "max-rolls-len", &rollMaxRollsLen, fileCfg.Roll.MaxRollsLen)
	applyStringConfig(cmd, "format", &rollFormat, fileCfg.Roll.Format)

	cfg := model.Config{
		MaxDice:     rollMaxDice,
		MaxBatch:    rollMaxBatch,
		MaxRollsLen: rollMaxRollsLen,
		Format:      rollFormat,
		History:     true,
	}
	if fileCfg.Roll.History != nil {
		cfg.History = *fileCfg.Roll.History
	}
	if cmd.Flags().Changed("no-history") {
		cfg.History = !rollNoHistory
	}
	switch {
	case cmd.Flags().Changed("seed"):
		seed := rollSeed
		cfg.Seed = &seed
	case fileCfg.Roll.Seed != nil:
		seed := *fileCfg.Roll.Seed
		cfg.Seed = &seed
	}

	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.MaxDice <= 0 {
		return fmt.Errorf("--max-dice must be > 0")
	}
	if cfg.MaxBatch < 2 {
		return fmt.Errorf("--max-batch must be >= 2")
	}
	if cfg.MaxRollsLen < 0 {
		return fmt.Errorf("--max-rolls-len must be >= 0")
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func runRollCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if len(args) > 0 {
		out, err := a.roller.Roll(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeOutcome(cmd.OutOrStdout(), a.format, out, a.cfg.MaxRollsLen)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		lines, err := script.Read(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read rolls from stdin: %w", err)
		}
		return runLines(ctx, cmd, a, lines)
	}

	program := tea.NewProgram(tui.NewModel(a.roller, a.cfg.MaxRollsLen), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <count> <expression> [! reason]",
		Short: "Roll an expression several times",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runBatchCmd,
	}
	// Expressions may contain "-3"; stop flag parsing at the first argument.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", args[0], err)
	}
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	out, err := a.roller.Batch(cmd.Context(), count, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	return writeBatch(cmd.OutOrStdout(), a.format, out, a.cfg.MaxRollsLen)
}

func newSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <name> <expression>",
		Short: "Save a roll under a name",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSaveCmd,
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runSaveCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	command := strings.Join(args[1:], " ")
	if err := a.roller.Save(cmd.Context(), args[0], command); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s\n", args[0], command)
	return err
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <name> [extra] [! reason]",
		Short: "Roll a saved roll",
		Long:  `Roll the saved roll whose name starts with <name>. Extra text is applied as "(saved) extra".`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRunCmd,
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	out, err := a.roller.Run(cmd.Context(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved roll matches %q", args[0])
		}
		return err
	}
	return writeOutcome(cmd.OutOrStdout(), a.format, out, a.cfg.MaxRollsLen)
}

func newSavedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List saved rolls",
		Args:  cobra.NoArgs,
		RunE:  runSavedCmd,
	}
}

func runSavedCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	rolls, err := a.roller.List(cmd.Context())
	if err != nil {
		return err
	}
	return writeSavedRolls(cmd.OutOrStdout(), a.format, rolls)
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <name>",
		Short: "Delete a saved roll",
		Args:  cobra.ExactArgs(1),
		RunE:  runForgetCmd,
	}
}

func runForgetCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.roller.Forget(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved roll named %q", args[0])
		}
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
	return err
}

func newJailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jail",
		Short: "Put the current dice in dice jail and roll new ones",
		Args:  cobra.NoArgs,
		RunE:  runJailCmd,
	}
}

func runJailCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	var gen *generator.Generator
	if cfg.Seed != nil {
		gen = generator.NewSeeded(*cfg.Seed)
	}
	r := roller.New(cfg, gen, nil, nil, nil)
	return writeJail(cmd.OutOrStdout(), format, r.DiceJail())
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent rolls",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "number of recent rolls (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.store.ListHistory(cmd.Context(), model.StatsConfig{Last: historyLast})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return export.WriteEntries(cmd.OutOrStdout(), a.format, entries)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show roll statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsExpr, "expr", "", "expression filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N rolls")
	cmd.Flags().IntVar(&statsWindow, "window", defaultStatsWindow, "moving average window")
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "browse stats interactively")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	cfg := model.StatsConfig{
		Expression: strings.TrimSpace(statsExpr),
		Since:      sinceTime,
		Last:       statsLast,
		Window:     statsWindow,
	}

	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	if statsTUI {
		program := tea.NewProgram(statsui.NewModel(a.store, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(cmd.Context(), a.store, cfg)
	if err != nil {
		return err
	}
	if a.format != export.FormatText {
		return export.Encode(cmd.OutOrStdout(), a.format, report)
	}
	return report.Render(cmd.OutOrStdout(), 0)
}

func newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Roll every expression in a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runFileCmd,
	}
}

func runFileCmd(cmd *cobra.Command, args []string) error {
	lines, err := script.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	return runLines(cmd.Context(), cmd, a, lines)
}

// runLines rolls each line, reporting failures per line and continuing.
func runLines(ctx context.Context, cmd *cobra.Command, a *app, lines []script.Line) error {
	failed := 0
	w := cmd.OutOrStdout()
	for i, line := range lines {
		if a.format == export.FormatText {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "> %s\n", line.Command); err != nil {
				return err
			}
		}
		out, err := a.roller.Roll(ctx, line.Command)
		if err != nil {
			failed++
			logErrf("line %d: %v\n", line.Number, err)
			continue
		}
		if err := writeOutcome(w, a.format, out, a.cfg.MaxRollsLen); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rolls failed", failed, len(lines))
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuidice configuration
# Uncomment a value to enable it. TUIDICE_* environment variables override
# config values and CLI flags override both.

[roll]
# max-dice = %d           # Maximum dice per expression
# max-batch = %d           # Maximum rolls per batch
# max-rolls-len = %d     # Clip roll listings longer than this (0 disables)
# seed = 42                # Fixed seed for reproducible rolls
# format = %q          # Output format: text, json or yaml
# history = true           # Record rolls for history and stats
`,
		defaultMaxDice,
		defaultMaxBatch,
		defaultMaxRollsLen,
		defaultFormat,
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
