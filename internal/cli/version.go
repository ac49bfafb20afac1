package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command group.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Inspect and restore entity versions",
	}
	cmd.AddCommand(newVersionListCommand(rootOpts))
	cmd.AddCommand(newVersionRestoreCommand(rootOpts))
	return cmd
}

func newVersionListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <project> <path>",
		Short:         "List an entity's versions",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			infos, err := s.Repo.ListVersions(args[0], args[1])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(infos)
			}

			var b strings.Builder
			for _, info := range infos {
				fmt.Fprintf(&b, "@%d\t%s\t%s\t%s\n",
					info.Version, info.Status, shortHash(info.Commit),
					info.CommittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newVersionRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <project> <selector>",
		Short: "Reactivate a prior version as the new active version",
		Long: `Reactivate a prior version as the new active version.

The selector names the version to restore: path@7 by number, or
path#<hex> by commit hash. No new version number is created.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			path, ref := splitSelector(args[1])
			view, err := s.Repo.RestoreVersion(args[0], path, ref)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(view)
			}
			return f.Success(fmt.Sprintf("restored %s@%d", view.Entity, view.Version))
		},
	}
}

// NewCommitsCommand creates the commits command group.
func NewCommitsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commits",
		Short: "Inspect the commit index",
	}
	cmd.AddCommand(newCommitsListCommand(rootOpts))
	return cmd
}

func newCommitsListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		entity string
		limit  int
	)

	cmd := &cobra.Command{
		Use:           "list <project>",
		Short:         "List commit entries for a project",
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

			infos, err := s.Repo.ListCommits(args[0], entity, limit)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(infos)
			}

			var b strings.Builder
			for _, info := range infos {
				fmt.Fprintf(&b, "%s\t%s@%d\n", info.Hash, info.Entity, info.Version)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "restrict to this path and its subtree")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 = unlimited)")
	return cmd
}
