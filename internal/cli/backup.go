package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		label    string
		compress bool
	)

	cmd := &cobra.Command{
		Use:           "backup [slug]",
		Short:         "Snapshot a brain into the backups directory",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			slug := s.Repo.Active()
			if len(args) == 1 {
				slug = args[0]
			}
			path, err := s.Repo.Backup(slug, label, compress)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(map[string]string{"brain": slug, "path": path})
			}
			return f.Success(fmt.Sprintf("backed up %q to %s", slug, path))
		},
	}

	cmd.Flags().StringVar(&label, "label", "snapshot", "label embedded in the backup file name")
	cmd.Flags().BoolVar(&compress, "compress", false, "gzip the snapshot")
	return cmd
}

// NewRestoreBackupCommand creates the restore-backup command.
func NewRestoreBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		target    string
		overwrite bool
		activate  bool
	)

	cmd := &cobra.Command{
		Use:           "restore-backup <file>",
		Short:         "Rebuild a brain from a backup snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			restored, err := s.Repo.RestoreFromBackup(args[0], target, overwrite, activate)
			if err != nil {
				return f.Fail(err)
			}
			if activate {
				s.Config.ActiveBrain = restored
				if err := s.Config.Save(); err != nil {
					return f.Fail(WrapExitError(ExitCommandError, "failed to save configuration", err))
				}
			}
			if f.Format == "json" {
				return f.Success(map[string]string{"brain": restored})
			}
			return f.Success(fmt.Sprintf("restored brain %q from %s", restored, args[0]))
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "restore under this slug (defaults to the snapshot's)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "allow replacing an existing brain")
	cmd.Flags().BoolVar(&activate, "activate", false, "make the restored brain active")
	return cmd
}

// NewEventsCommand creates the events command for the audit log.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "events",
		Short:         "Show recent entries from the audit log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			if s.Audit == nil {
				return f.Fail(NewExitError(ExitCommandError, "audit log is disabled; set audit: true in config.yaml"))
			}
			entries, err := s.Audit.Recent(cmd.Context(), limit)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(entries)
			}

			out := ""
			for _, e := range entries {
				loc := e.Brain
				if e.Project != "" {
					loc += "/" + e.Project
				}
				if e.Entity != "" {
					loc += "/" + e.Entity
				}
				out += fmt.Sprintf("%s\t%s\t%s\n", e.RecordedAt.UTC().Format("2006-01-02T15:04:05Z07:00"), e.Name, loc)
			}
			return f.Success(out)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}
