package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewCleanupCommand creates the cleanup command group.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Maintenance operations on a project",
	}
	cmd.AddCommand(newCleanupPurgeCommand(rootOpts))
	cmd.AddCommand(newCleanupCompactCommand(rootOpts))
	cmd.AddCommand(newCleanupRepairCommand(rootOpts))
	return cmd
}

func newCleanupPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		entity     string
		keepNewest int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "purge <project>",
		Short: "Irreversibly delete old inactive versions",
		Long: `Irreversibly delete non-active versions beyond a retention count.

For each entity the newest --keep non-active versions survive; anything
older is deleted from the ledger and its commit entries purged. Active
versions are never touched. Use --dry-run to preview.`,
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

			report, err := s.Repo.PurgeInactiveVersions(args[0], entity, keepNewest, dryRun)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(report)
			}

			var b strings.Builder
			verb := "purged"
			if report.DryRun {
				verb = "would purge"
			}
			fmt.Fprintf(&b, "%s %d versions\n", verb, len(report.Purged))
			for _, pv := range report.Purged {
				fmt.Fprintf(&b, "  %s@%d\n", pv.Entity, pv.Version)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "restrict to this path and its subtree")
	cmd.Flags().IntVar(&keepNewest, "keep", 1, "non-active versions to retain per entity")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be purged without mutating")
	return cmd
}

func newCleanupCompactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "compact <project>",
		Short:         "Rebuild the commit index from the version ledgers",
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

			report, err := s.Repo.Compact(args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(report)
			}
			return f.Success(fmt.Sprintf("index rebuilt: %d entries (%d stale removed, %d missing added)",
				report.IndexEntries, report.RemovedStale, report.AddedMissing))
		},
	}
}

func newCleanupRepairCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:           "repair <project>",
		Short:         "Detect and fix inconsistent entity metadata",
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

			report, err := s.Repo.Repair(args[0], dryRun)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(report)
			}

			if len(report.Findings) == 0 {
				return f.Success("no inconsistencies found")
			}
			var b strings.Builder
			for _, finding := range report.Findings {
				action := finding.Action
				if report.DryRun {
					action = "would be: " + action
				}
				fmt.Fprintf(&b, "%s: %s (%s)\n", finding.Entity, finding.Issue, action)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report findings without fixing")
	return cmd
}
