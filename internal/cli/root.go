package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pindral/brainstore/internal/audit"
	"github.com/pindral/brainstore/internal/config"
	"github.com/pindral/brainstore/internal/repo"
	"github.com/pindral/brainstore/internal/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Brain   string // active brain override for this invocation
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the brainstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "brainstore",
		Short: "brainstore - versioned, content-addressed document store",
		Long: `A flat-file store for structured project data.

Every save becomes an immutable, hash-addressed version inside a single
canonical JSON file per brain; any version can be inspected or restored
by number or commit hash.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Brain, "brain", "", "brain to operate on (defaults to the configured active brain)")

	cmd.AddCommand(NewBrainCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewEntityCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewCommitsCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreBackupCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds the output formatter for a command invocation.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// session is one opened store plus its configuration.
type session struct {
	Config *config.Config
	Repo   *repo.Repository
	Audit  *audit.Log
}

// Close releases session resources.
func (s *session) Close() {
	if s.Audit != nil {
		s.Audit.Close()
	}
}

// openSession loads configuration, opens the repository, activates the
// requested brain, and attaches the audit log when enabled.
func openSession(opts *RootOptions) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	layout, err := storage.NewLayout(cfg.BaseDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize storage", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	r, err := repo.New(layout, repo.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	s := &session{Config: cfg, Repo: r}
	if cfg.Audit {
		log, err := audit.Open(filepath.Join(cfg.BaseDir, "audit.db"))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open audit log", err)
		}
		log.Attach(r.Events())
		s.Audit = log
	}

	active := cfg.ActiveBrain
	if opts.Brain != "" {
		active = opts.Brain
	}
	if err := r.EnsureBrain(active); err != nil {
		s.Close()
		return nil, err
	}
	if err := r.Use(active); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
