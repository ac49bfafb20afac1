package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pindral/brainstore/internal/repo"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects inside the active brain",
	}
	cmd.AddCommand(newProjectCreateCommand(rootOpts))
	cmd.AddCommand(newProjectUpdateCommand(rootOpts))
	cmd.AddCommand(newProjectArchiveCommand(rootOpts))
	cmd.AddCommand(newProjectRestoreCommand(rootOpts))
	cmd.AddCommand(newProjectDeleteCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))
	return cmd
}

func newProjectCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:           "create <slug>",
		Short:         "Create a project",
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

			if err := s.Repo.CreateProject(args[0], title, description); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("project %q created", args[0]))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "project title (defaults to the slug)")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	return cmd
}

func newProjectUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:           "update <slug>",
		Short:         "Update a project's title or description",
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

			upd := repo.ProjectUpdate{}
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			if err := s.Repo.UpdateProject(args[0], upd); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("project %q updated", args[0]))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

func newProjectArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "archive <slug>",
		Short:         "Archive a project, parking its active versions",
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

			if err := s.Repo.ArchiveProject(args[0]); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("project %q archived", args[0]))
		},
	}
}

func newProjectRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var reactivate bool

	cmd := &cobra.Command{
		Use:           "restore <slug>",
		Short:         "Unarchive a project",
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

			if err := s.Repo.RestoreProject(args[0], reactivate); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("project %q restored", args[0]))
		},
	}

	cmd.Flags().BoolVar(&reactivate, "reactivate", false, "reactivate each entity's newest archived version")
	return cmd
}

func newProjectDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var keepCommits bool

	cmd := &cobra.Command{
		Use:           "delete <slug>",
		Short:         "Delete a project and its entities",
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

			if err := s.Repo.DeleteProject(args[0], !keepCommits); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("project %q deleted", args[0]))
		},
	}

	cmd.Flags().BoolVar(&keepCommits, "keep-commits", false, "leave the project's commit entries for the next compact")
	return cmd
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List projects in the active brain",
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

			infos, err := s.Repo.ListProjects()
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(infos)
			}

			var b strings.Builder
			for _, info := range infos {
				suffix := ""
				if info.Archived {
					suffix = " (archived)"
				}
				fmt.Fprintf(&b, "%s\t%s\t%d entities%s\n", info.Slug, info.Title, info.Entities, suffix)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}
