package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/core"
)

type convertOptions struct {
	dedupe  bool
	fill    bool
	columns []string
	format  string
	out     string
	chart   bool
	dryRun  bool
	maxSize int64
}

func newConvertCommand() *cobra.Command {
	opts := convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [files or directories...]",
		Short: "Clean files and write them as CSV or Excel",
		Long: `Convert reads each CSV or Excel file, optionally removes duplicate rows,
fills missing numeric values with the column mean and keeps a subset of
columns, then writes the result to the output directory.

Steps always run in this order: dedupe, fill, select columns, export.
A file that cannot be read is reported and the rest still run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := opts.plan(cmd.Flags().Changed("columns"))
			if err != nil {
				return err
			}
			return runConvert(cmd.OutOrStdout(), args, plan, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.dedupe, "dedupe", false, "remove duplicate rows")
	f.BoolVar(&opts.fill, "fill", false, "fill missing numeric values with the column mean")
	f.StringSliceVar(&opts.columns, "columns", nil, "columns to keep, comma separated (default: all)")
	f.StringVarP(&opts.format, "format", "f", "csv", "output format: csv or excel")
	f.StringVarP(&opts.out, "out", "o", ".", "output directory")
	f.BoolVar(&opts.chart, "chart", false, "warn when a file has fewer than two numeric columns to chart")
	f.BoolVar(&opts.dryRun, "dry-run", false, "process files without writing output")
	f.Int64Var(&opts.maxSize, "max-size", core.DefaultMaxFileSize, "maximum input file size in bytes")
	return cmd
}

func (o convertOptions) plan(explicitColumns bool) (core.Plan, error) {
	format, ok := core.ParseFormat(o.format)
	if !ok {
		return core.Plan{}, fmt.Errorf("--format %q: %w", o.format, core.ErrUnsupportedFormat)
	}
	plan := core.Plan{
		Dedupe:    o.dedupe,
		Fill:      o.fill,
		Selection: core.AllColumns(),
		Format:    format,
		Chart:     o.chart,
	}
	if explicitColumns {
		cols := make([]string, 0, len(o.columns))
		for _, c := range o.columns {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
		plan.Selection = core.Columns(cols...)
	}
	return plan, nil
}

func runConvert(stdout io.Writer, args []string, plan core.Plan, opts convertOptions) error {
	paths, err := collectInputs(args)
	if err != nil {
		return err
	}
	if !opts.dryRun {
		if err := os.MkdirAll(opts.out, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tROWS\tCOLS\tRESULT")

	results := make([]core.FileResult, len(paths))
	var batch []core.UploadedFile
	var slots []int
	for i, path := range paths {
		f, err := loadFile(path, opts.maxSize)
		if err != nil {
			slog.Warn("read failed", "file", path, "error", err)
			results[i] = core.FileResult{Name: path, Status: core.StatusFailed, Err: err}
			continue
		}
		batch = append(batch, f)
		slots = append(slots, i)
	}

	used := make(map[string]bool)
	for j, res := range core.ProcessBatch(batch, plan) {
		res.Name = paths[slots[j]]
		results[slots[j]] = writeOutput(res, opts, used)
	}
	for _, res := range results {
		writeRow(tw, res)
	}

	sum := core.Summarize(results)
	fmt.Fprintf(tw, "\n%d converted, %d skipped, %d failed\n", sum.OK, sum.Skipped, sum.Failed)
	if err := tw.Flush(); err != nil {
		return err
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", sum.Failed, len(results))
	}
	return nil
}

// writeOutput saves a converted file under a name no earlier file of the run
// used. Dry runs only report the destination.
func writeOutput(res core.FileResult, opts convertOptions, used map[string]bool) core.FileResult {
	logger := slog.Default().With("file", res.Name)
	if res.Status != core.StatusOK || res.Export == nil {
		logger.Warn("not converted", "status", res.Status, "error", res.Err)
		return res
	}

	dest := outputPath(opts.out, res.Export.FileName, used)
	if opts.dryRun {
		res.Warnings = append(res.Warnings, "dry run: would write "+dest)
		return res
	}
	if err := os.WriteFile(dest, res.Export.Data, 0o644); err != nil {
		res.Status, res.Err = core.StatusFailed, fmt.Errorf("write %s: %w", dest, err)
		return res
	}
	res.Export.FileName = dest
	logger.Info("converted", "output", dest, "elapsed", res.Elapsed)
	return res
}

func writeRow(w io.Writer, res core.FileResult) {
	rows, cols := "-", "-"
	if res.Table != nil {
		rows, cols = fmt.Sprint(res.Table.NumRows()), fmt.Sprint(res.Table.NumCols())
	}

	var detail string
	switch {
	case res.Err != nil:
		msg := core.MapError(res.Err)
		detail = fmt.Sprintf("%s (%s): %v", msg.Message, msg.Code, res.Err)
	case res.Export != nil:
		detail = res.Export.FileName
	}
	if len(res.Warnings) > 0 && res.Status != core.StatusSkipped {
		detail = strings.TrimSpace(detail + " " + strings.Join(res.Warnings, "; "))
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", res.Name, res.Status, rows, cols, detail)
}
