package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewBrainCommand creates the brain command group.
func NewBrainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brain",
		Short: "Manage brains (top-level stores)",
	}
	cmd.AddCommand(newBrainCreateCommand(rootOpts))
	cmd.AddCommand(newBrainUseCommand(rootOpts))
	cmd.AddCommand(newBrainListCommand(rootOpts))
	cmd.AddCommand(newBrainDeleteCommand(rootOpts))
	return cmd
}

func newBrainCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create <slug>",
		Short:         "Create a new brain",
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

			if err := s.Repo.CreateBrain(args[0]); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("brain %q created", args[0]))
		},
	}
}

func newBrainUseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "use <slug>",
		Short:         "Set the active brain for subsequent commands",
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

			if err := s.Repo.EnsureBrain(args[0]); err != nil {
				return f.Fail(err)
			}
			if err := s.Repo.Use(args[0]); err != nil {
				return f.Fail(err)
			}
			s.Config.ActiveBrain = args[0]
			if err := s.Config.Save(); err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "failed to save configuration", err))
			}
			return f.Success(fmt.Sprintf("active brain is now %q", args[0]))
		},
	}
}

func newBrainListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all brains",
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

			slugs, err := s.Repo.ListBrains()
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(slugs)
			}

			var b strings.Builder
			for _, slug := range slugs {
				marker := " "
				if slug == s.Repo.Active() {
					marker = "*"
				}
				fmt.Fprintf(&b, "%s %s\n", marker, slug)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newBrainDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <slug>",
		Short:         "Delete a brain and its file",
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

			if err := s.Repo.DeleteBrain(args[0]); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("brain %q deleted", args[0]))
		},
	}
}
