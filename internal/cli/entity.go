package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/canon"
	"github.com/pindral/brainstore/internal/repo"
)

// NewEntityCommand creates the entity command group.
func NewEntityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entities inside a project",
	}
	cmd.AddCommand(newEntitySaveCommand(rootOpts))
	cmd.AddCommand(newEntityMoveCommand(rootOpts))
	cmd.AddCommand(newEntityRemoveCommand(rootOpts))
	cmd.AddCommand(newEntityDeleteCommand(rootOpts))
	cmd.AddCommand(newEntityListCommand(rootOpts))
	cmd.AddCommand(newEntityShowCommand(rootOpts))
	return cmd
}

func newEntitySaveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		payloadArg  string
		payloadFile string
		parent      string
		schemaSel   string
		metaArg     string
	)

	cmd := &cobra.Command{
		Use:   "save <project> <path>",
		Short: "Save a new version of an entity",
		Long: `Save a new version of an entity.

The payload is JSON, given inline with --payload, from a file with
--payload-file, or from stdin with --payload-file -. Omitting the
payload makes the call a pure reposition or schema binding.

Example:
  brainstore entity save worldbook characters/aria --payload '{"name":"Aria"}'
  brainstore entity save worldbook characters/aria --schema 'schemas/character@2'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			opts := repo.SaveOptions{}
			if cmd.Flags().Changed("parent") {
				opts.Parent = &parent
			}
			if schemaSel != "" {
				slug, ref := splitSelector(schemaSel)
				opts.Schema = &brain.SchemaRef{Slug: slug, Ref: ref}
			}
			if metaArg != "" {
				var meta map[string]any
				if err := json.Unmarshal([]byte(metaArg), &meta); err != nil {
					return f.Fail(WrapExitError(ExitCommandError, "invalid --meta JSON", err))
				}
				mv, err := canon.FromAny(meta)
				if err != nil {
					return f.Fail(WrapExitError(ExitCommandError, "invalid --meta value", err))
				}
				opts.Meta = mv.(canon.Object)
			}

			payload, err := readPayload(cmd.InOrStdin(), payloadArg, payloadFile)
			if err != nil {
				return f.Fail(err)
			}

			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			res, err := s.Repo.SaveEntity(args[0], args[1], payload, opts)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(res)
			}
			if res.Version == 0 {
				return f.Success(fmt.Sprintf("entity %q updated (no new version)", res.Entity))
			}
			return f.Success(fmt.Sprintf("saved %s@%d (commit %s)", res.Entity, res.Version, shortHash(res.Commit)))
		},
	}

	cmd.Flags().StringVar(&payloadArg, "payload", "", "payload as inline JSON")
	cmd.Flags().StringVar(&payloadFile, "payload-file", "", "payload from a JSON file, or - for stdin")
	cmd.Flags().StringVar(&parent, "parent", "", "reposition under this parent path (empty string moves to root)")
	cmd.Flags().StringVar(&schemaSel, "schema", "", "bind to a schema entity (selector, e.g. schemas/character@2)")
	cmd.Flags().StringVar(&metaArg, "meta", "", "commit metadata as inline JSON object")
	return cmd
}

// readPayload resolves the payload source. Returns nil when no payload
// was given at all.
func readPayload(stdin io.Reader, inline, file string) (any, error) {
	if inline != "" && file != "" {
		return nil, NewExitError(ExitCommandError, "--payload and --payload-file are mutually exclusive")
	}

	var data []byte
	switch {
	case inline != "":
		data = []byte(inline)
	case file == "-":
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
	case file != "":
		var err error
		if data, err = os.ReadFile(file); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read payload file", err)
		}
	default:
		return nil, nil
	}

	value, err := canon.Decode(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid payload JSON", err)
	}
	return value, nil
}

func newEntityMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:           "move <project> <source-path> <target-path>",
		Short:         "Move an entity and its subtree to a new path",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			mode := repo.MoveMerge
			if replace {
				mode = repo.MoveReplace
			}
			if err := s.Repo.MoveEntity(args[0], args[1], args[2], mode); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("moved %q to %q", args[1], args[2]))
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace a pre-existing target's subtree instead of merging")
	return cmd
}

func newEntityRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:           "remove <project> <path>...",
		Short:         "Deactivate entities (soft, restorable)",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			if err := s.Repo.RemoveEntity(args[0], args[1:], recursive); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("removed %s", strings.Join(args[1:], ", ")))
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "deactivate the whole subtree instead of promoting children")
	return cmd
}

func newEntityDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:           "delete <project> <path>...",
		Short:         "Delete entities and their version history (hard)",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(rootOpts)
			if err != nil {
				return f.Fail(err)
			}
			defer s.Close()

			if err := s.Repo.DeleteEntity(args[0], args[1:], recursive); err != nil {
				return f.Fail(err)
			}
			return f.Success(fmt.Sprintf("deleted %s", strings.Join(args[1:], ", ")))
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete the whole subtree instead of promoting children")
	return cmd
}

func newEntityListCommand(rootOpts *RootOptions) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:           "list <project>",
		Short:         "List entities in a project",
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

			infos, err := s.Repo.ListEntities(args[0], parent)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(infos)
			}

			var b strings.Builder
			for _, info := range infos {
				active := "-"
				if info.ActiveVersion > 0 {
					active = fmt.Sprintf("@%d", info.ActiveVersion)
				}
				fmt.Fprintf(&b, "%s\t%s\t%d versions\n", info.Path, active, info.Versions)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "restrict to this path and its subtree")
	return cmd
}

func newEntityShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project> <selector>",
		Short: "Show one version of an entity, payload included",
		Long: `Show one version of an entity, payload included.

The selector is a path, optionally with a version (path@7) or a commit
hash (path#<hex>). Without a suffix the active version is shown.`,
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
			view, err := s.Repo.ResolveVersion(args[0], path, ref)
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.Success(view)
			}

			payload, err := json.MarshalIndent(view.Payload, "", "  ")
			if err != nil {
				return f.Fail(err)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s@%d (%s)\n", view.Entity, view.Version, view.Status)
			fmt.Fprintf(&b, "hash:    %s\n", view.Hash)
			fmt.Fprintf(&b, "commit:  %s\n", view.Commit)
			fmt.Fprintf(&b, "at:      %s\n", view.CommittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
			b.Write(payload)
			return f.Success(b.String())
		},
	}
}

// shortHash abbreviates a hex hash for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
