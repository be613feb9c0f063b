package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataprep/internal/core"
)

func newInspectCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show size, column kinds and the first rows of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFile(args[0], core.DefaultMaxFileSize)
			if err != nil {
				return err
			}
			t, err := core.ParseUpload(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return writeInspect(cmd.OutOrStdout(), f, t, rows)
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", core.PreviewRows, "number of rows to show")
	return cmd
}

func writeInspect(w io.Writer, f core.UploadedFile, t *core.Table, n int) error {
	fmt.Fprintf(w, "File: %s\nSize: %.2f KB\nRows: %d\n\n", f.Name, f.SizeKB(), t.NumRows())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tKIND\tMISSING")
	for _, c := range t.Columns() {
		missing := 0
		for _, cell := range c.Cells {
			if cell.IsMissing() {
				missing++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Kind, missing)
	}
	fmt.Fprintln(tw)

	if t.NumCols() > 0 {
		fmt.Fprintln(tw, strings.Join(t.ColumnNames(), "\t"))
		for _, row := range t.Head(n) {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	return tw.Flush()
}
