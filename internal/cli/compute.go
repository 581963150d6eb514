package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/runcost/internal/compiler"
	"github.com/roach88/runcost/internal/engine"
	"github.com/roach88/runcost/internal/ir"
	"github.com/roach88/runcost/internal/store"
)

// ComputeOptions holds flags for the compute command.
type ComputeOptions struct {
	*RootOptions
	Start    string // overrides the window start
	End      string // overrides the window end
	MaxSteps int    // negative means RUNCOST_MAX_STEPS
	Library  bool   // read series from the library instead of a file
	Hash     bool   // include the result hash
}

// WindowOutput is a resolved computation window.
type WindowOutput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SeriesResult is the computed output of one series definition.
type SeriesResult struct {
	Name   string        `json:"name"`
	Window WindowOutput  `json:"window"`
	Plot   ir.PlotType   `json:"plot"`
	Steps  int           `json:"steps"`
	Hash   string        `json:"hash,omitempty"`
	Output []ChartSeries `json:"output"`
}

// ComputeResult holds every computed series.
type ComputeResult struct {
	Series []SeriesResult `json:"series"`
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute <file-or-dir> [series...]",
		Short: "Compute series over their windows",
		Long: `Compute series from a definition file or directory.

Without series names every series found is computed. Each series uses its
own window, falling back to the file window; --start and --end override
either bound. Output is rendered in plot order: the running cost before
the primary series when plotted alongside.

With --library the arguments are names of series saved in the library.

Examples:
  runcost compute savings.cue
  runcost compute definitions/ savings allowance --end 2030-01-01
  runcost compute --library savings --format json --hash`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "window start (date, RFC 3339 or epoch seconds)")
	cmd.Flags().StringVar(&opts.End, "end", "", "window end (date, RFC 3339 or epoch seconds)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", -1, "maximum events per series, 0 for unlimited (default $RUNCOST_MAX_STEPS)")
	cmd.Flags().BoolVar(&opts.Library, "library", false, "read series by name from the library")
	cmd.Flags().BoolVar(&opts.Hash, "hash", false, "print a content hash of each result")

	return cmd
}

func runCompute(ctx context.Context, opts *ComputeOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var (
		selected []namedSeries
		err      error
	)
	if opts.Library {
		selected, err = librarySeries(ctx, opts.RootOptions, args)
	} else {
		selected, err = fileSeries(args[0], args[1:])
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load series", err)
	}
	if len(selected) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeSeriesNotFound, "no series to compute", nil)
	}

	maxSteps := opts.MaxSteps
	if maxSteps < 0 {
		maxSteps = opts.Config.MaxSteps
	}

	result := ComputeResult{Series: make([]SeriesResult, 0, len(selected))}
	for _, ns := range selected {
		formatter.VerboseLog("Computing %s", ns.Spec.Name)
		sr, err := computeSeries(ns, opts, maxSteps)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeComputeFailed, fmt.Sprintf("series %q", ns.Spec.Name), err)
		}
		result.Series = append(result.Series, sr)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputComputeText(formatter, result)
}

// fileSeries loads definitions from path and selects names.
func fileSeries(path string, names []string) ([]namedSeries, error) {
	loaded, errs := LoadDefinitions(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return selectSeries(loaded.Files, names)
}

// librarySeries reads the named series from the library.
func librarySeries(ctx context.Context, opts *RootOptions, names []string) ([]namedSeries, error) {
	st, err := openLibrary(opts)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	selected := make([]namedSeries, 0, len(names))
	for _, name := range names {
		rec, err := st.Get(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &LoadError{Code: ErrCodeSeriesNotFound, Message: fmt.Sprintf("series %q is not in the library", name)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLibrary, Message: err.Error()}
		}
		selected = append(selected, namedSeries{Spec: rec.Spec})
	}
	return selected, nil
}

// computeSeries validates, builds and computes one series.
func computeSeries(ns namedSeries, opts *ComputeOptions, maxSteps int) (SeriesResult, error) {
	loc := opts.location()
	spec := ns.Spec

	if verrs := compiler.Validate(spec, loc); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return SeriesResult{}, errors.Join(errs...)
	}

	def, err := compiler.Build(spec, loc)
	if err != nil {
		return SeriesResult{}, err
	}

	window := spec.Window
	if ns.File != nil {
		window = ns.File.WindowFor(spec)
	}
	start, end, err := compiler.ResolveWindow(window, opts.Start, opts.End, loc)
	if err != nil {
		return SeriesResult{}, err
	}

	res, err := engine.Compute(def, start, end,
		engine.WithLogger(opts.logger().With(slog.String("command", "compute"))),
		engine.WithMaxSteps(maxSteps),
	)
	if err != nil {
		return SeriesResult{}, err
	}

	output := res.Output()
	sr := SeriesResult{
		Name: spec.Name,
		Window: WindowOutput{
			Start: formatTime(start, loc),
			End:   formatTime(end, loc),
		},
		Plot:   res.Plot,
		Steps:  res.Steps,
		Output: chartSeries(output, loc),
	}
	if opts.Hash {
		hash, err := ir.ResultHash(output)
		if err != nil {
			return SeriesResult{}, err
		}
		sr.Hash = hash
	}
	return sr, nil
}

// chartSeries converts computed series to chart points with dates in loc.
func chartSeries(series []ir.Series, loc *time.Location) []ChartSeries {
	out := make([]ChartSeries, len(series))
	for i, s := range series {
		points := make([]ChartPoint, len(s.Data))
		for j, dp := range s.Data {
			points[j] = ChartPoint{
				Time:      formatTime(dp.Timestamp, loc),
				Timestamp: dp.Timestamp,
				Value:     dp.Value,
				Amount:    Amount(dp.Value),
			}
		}
		out[i] = ChartSeries{Label: s.Label, Points: points}
	}
	return out
}

func formatTime(ts ir.Timestamp, loc *time.Location) string {
	return ts.Time(loc).Format(time.RFC3339)
}

// outputComputeText renders computed series as aligned text.
func outputComputeText(formatter *OutputFormatter, result ComputeResult) error {
	w := formatter.Writer
	for i, sr := range result.Series {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s: %s .. %s (%d steps)\n", sr.Name, sr.Window.Start, sr.Window.End, sr.Steps)
		for _, cs := range sr.Output {
			fmt.Fprintf(w, "  %s\n", cs.Label)
			for _, p := range cs.Points {
				fmt.Fprintf(w, "    %s  %14s\n", p.Time, p.Amount.StringFixed(2))
			}
		}
		if sr.Hash != "" {
			fmt.Fprintf(w, "  hash: %s\n", sr.Hash)
		}
	}
	return nil
}
