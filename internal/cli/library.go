package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/runcost/internal/compiler"
	"github.com/roach88/runcost/internal/ir"
	"github.com/roach88/runcost/internal/store"
)

// LibraryEntry is the listing form of a stored series.
type LibraryEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContentHash   string `json:"content_hash"`
	SpecVersion   string `json:"spec_version"`
	EngineVersion string `json:"engine_version"`
	Seq           int64  `json:"seq"`
}

// SaveOutcome reports one saved series.
type SaveOutcome struct {
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
	Changed     bool   `json:"changed"`
}

// RevisionEntry is the listing form of a stored revision.
type RevisionEntry struct {
	ID          string `json:"id"`
	ContentHash string `json:"content_hash"`
	Seq         int64  `json:"seq"`
}

// NewLibraryCommand creates the library command group.
func NewLibraryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage saved series definitions",
		Long: `Save, list, show and delete series definitions in a SQLite library.

The library path comes from --db or RUNCOST_DB. Saving a definition whose
content is unchanged is a no-op; every distinct version is kept as a
revision.`,
	}

	cmd.AddCommand(newLibrarySaveCommand(rootOpts))
	cmd.AddCommand(newLibraryListCommand(rootOpts))
	cmd.AddCommand(newLibraryShowCommand(rootOpts))
	cmd.AddCommand(newLibraryHistoryCommand(rootOpts))
	cmd.AddCommand(newLibraryDeleteCommand(rootOpts))

	return cmd
}

// openLibrary opens the configured library.
func openLibrary(opts *RootOptions) (*store.Store, error) {
	path := opts.database()
	if path == "" {
		return nil, &LoadError{Code: ErrCodeLibrary, Message: "no library configured: set --db or RUNCOST_DB"}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLibrary, Message: err.Error()}
	}
	return st, nil
}

// withLibrary opens the library, runs fn and closes it.
func withLibrary(opts *RootOptions, formatter *OutputFormatter, fn func(st *store.Store) error) error {
	st, err := openLibrary(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLibrary, "failed to open library", err)
	}
	defer st.Close()
	return fn(st)
}

// libraryFail maps a store error to an exit error.
func libraryFail(formatter *OutputFormatter, name string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeSeriesNotFound, fmt.Sprintf("series %q is not in the library", name), nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeLibrary, "library operation failed", err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newLibrarySaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <file-or-dir> [series...]",
		Short: "Validate and save series definitions",
		Long: `Validate series definitions and save them to the library.

Without series names every series found is saved. A series that declares no
window of its own is saved with the file window.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			selected, err := fileSeries(args[0], args[1:])
			if err != nil {
				return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load series", err)
			}

			loc := rootOpts.location()
			for _, ns := range selected {
				if verrs := compiler.Validate(ns.Spec, loc); len(verrs) > 0 {
					return formatter.Fail(ExitFailure, verrs[0].Code, fmt.Sprintf("series %q is invalid", ns.Spec.Name), verrs[0])
				}
			}

			return withLibrary(rootOpts, formatter, func(st *store.Store) error {
				ctx := commandContext(cmd)
				outcomes := make([]SaveOutcome, 0, len(selected))
				for _, ns := range selected {
					spec := ns.Spec
					if spec.Window == nil && ns.File != nil {
						spec.Window = ns.File.Window
					}
					rec, changed, err := st.Save(ctx, spec)
					if err != nil {
						return libraryFail(formatter, spec.Name, err)
					}
					rootOpts.logger().Info("saved series", "name", rec.Name, "hash", rec.ContentHash, "changed", changed)
					outcomes = append(outcomes, SaveOutcome{Name: rec.Name, ContentHash: rec.ContentHash, Changed: changed})
				}

				if formatter.JSON() {
					return formatter.Success(outcomes)
				}
				for _, o := range outcomes {
					status := "saved"
					if !o.Changed {
						status = "unchanged"
					}
					fmt.Fprintf(formatter.Writer, "%-9s %s (%s)\n", status, o.Name, shortHash(o.ContentHash))
				}
				return nil
			})
		},
	}
}

func newLibraryListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved series",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withLibrary(rootOpts, formatter, func(st *store.Store) error {
				records, err := st.List(commandContext(cmd))
				if err != nil {
					return libraryFail(formatter, "", err)
				}

				entries := make([]LibraryEntry, len(records))
				for i, r := range records {
					entries[i] = LibraryEntry{
						ID:            r.ID,
						Name:          r.Name,
						ContentHash:   r.ContentHash,
						SpecVersion:   r.SpecVersion,
						EngineVersion: r.EngineVersion,
						Seq:           r.Seq,
					}
				}

				if formatter.JSON() {
					return formatter.Success(entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(formatter.Writer, "Library is empty.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(formatter.Writer, "%-24s %s  seq %d\n", e.Name, shortHash(e.ContentHash), e.Seq)
				}
				return nil
			})
		},
	}
}

func newLibraryShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <name>",
		Short:         "Print a saved series definition",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withLibrary(rootOpts, formatter, func(st *store.Store) error {
				rec, err := st.Get(commandContext(cmd), args[0])
				if err != nil {
					return libraryFail(formatter, args[0], err)
				}

				if formatter.JSON() {
					return formatter.Success(rec.Spec)
				}
				return writeSpecYAML(formatter, rec.Spec)
			})
		},
	}
}

// writeSpecYAML prints a spec in the YAML definition-file layout.
func writeSpecYAML(formatter *OutputFormatter, spec ir.SeriesSpec) error {
	doc := map[string]map[string]ir.SeriesSpec{
		"series": {spec.Name: spec},
	}
	enc := yaml.NewEncoder(formatter.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func newLibraryHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <name>",
		Short:         "List the saved revisions of a series",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withLibrary(rootOpts, formatter, func(st *store.Store) error {
				revisions, err := st.Revisions(commandContext(cmd), args[0])
				if err != nil {
					return libraryFail(formatter, args[0], err)
				}

				entries := make([]RevisionEntry, len(revisions))
				for i, r := range revisions {
					entries[i] = RevisionEntry{ID: r.ID, ContentHash: r.ContentHash, Seq: r.Seq}
				}

				if formatter.JSON() {
					return formatter.Success(entries)
				}
				for _, e := range entries {
					fmt.Fprintf(formatter.Writer, "seq %-6d %s\n", e.Seq, shortHash(e.ContentHash))
				}
				return nil
			})
		},
	}
}

func newLibraryDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a saved series and its revisions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withLibrary(rootOpts, formatter, func(st *store.Store) error {
				if err := st.Delete(commandContext(cmd), args[0]); err != nil {
					return libraryFail(formatter, args[0], err)
				}
				rootOpts.logger().Info("deleted series", "name", args[0])

				if formatter.JSON() {
					return formatter.Success(map[string]string{"deleted": args[0]})
				}
				fmt.Fprintf(formatter.Writer, "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// shortHash abbreviates a content hash for text output.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
