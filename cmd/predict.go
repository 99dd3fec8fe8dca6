package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agri-cli/internal/frame"
)

var (
	predictInput    string
	predictOutput   string
	predictEncoding string
	predictPreview  int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict suitability and yield for a farm table",
	Long: `Reads a CSV or XLSX table of farm records, runs the suitability classifier
and yield regressor over every row, and writes the table back with
Predicted_Suitability and Predicted_Yield_tons appended.

Examples:
  # Predictions to stdout
  agri-cli predict --input farms.csv

  # Predictions to a file with a 5-row preview
  agri-cli predict --input farms.xlsx --output predictions.csv --preview 5`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("encoding") {
			cfg.Predict.Encoding = predictEncoding
		}
		if cmd.Flags().Changed("preview") {
			cfg.Predict.PreviewRows = predictPreview
		}
		if err := cfg.Validate("predict"); err != nil {
			return err
		}

		f, err := os.Open(predictInput)
		if err != nil {
			return eris.Wrap(err, "predict: open input")
		}
		defer f.Close() //nolint:errcheck

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			// Run history is best effort.
			zap.L().Warn("run history unavailable", zap.Error(err))
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		p := &predictor{
			loader:   newLoader(cfg.Artifacts),
			store:    st,
			encoding: cfg.Predict.Encoding,
		}
		res, err := p.run(ctx, sourceCLI, filepath.Base(predictInput), f)
		if err != nil {
			return eris.Wrap(err, "predict")
		}

		out, preview := cmd.OutOrStdout(), cmd.OutOrStdout()
		if predictOutput == "" || predictOutput == "-" {
			preview = cmd.ErrOrStderr()
		} else {
			file, err := os.Create(predictOutput)
			if err != nil {
				return eris.Wrap(err, "predict: create output")
			}
			defer file.Close() //nolint:errcheck
			out = file
		}

		if err := res.Output.WriteCSV(out); err != nil {
			return eris.Wrap(err, "predict: write output")
		}

		if n := cfg.Predict.PreviewRows; n > 0 {
			formatPreview(preview, "Input", res.Input, n)
			formatPreview(preview, "Predictions", res.Output, n)
			formatSummary(preview, res)
		}
		return nil
	},
}

// formatPreview writes the first n rows of f as an aligned table.
func formatPreview(out io.Writer, title string, f *frame.Frame, n int) {
	head := f.Head(n)
	_, _ = fmt.Fprintf(out, "%s (%d of %d rows)\n", title, head.Len(), f.Len())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(head.Columns, "\t"))
	for _, row := range head.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

// formatSummary writes the aggregate figures of a prediction.
func formatSummary(out io.Writer, res *prediction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	}
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", res.Summary.Rows)
	_, _ = fmt.Fprintf(w, "Suitable:\t%d (%.1f%%)\n", res.Summary.Suitable, res.Summary.SuitableShare()*100)
	_, _ = fmt.Fprintf(w, "Mean yield:\t%.2f tons\n", res.Summary.MeanYield)
	_ = w.Flush()
}

func init() {
	predictCmd.Flags().StringVar(&predictInput, "input", "", "CSV or XLSX file of farm records")
	predictCmd.Flags().StringVar(&predictOutput, "output", "", "predictions CSV path (default stdout)")
	predictCmd.Flags().StringVar(&predictEncoding, "encoding", "utf-8", "input text encoding")
	predictCmd.Flags().IntVar(&predictPreview, "preview", 20, "rows to preview (0 disables)")
	_ = predictCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(predictCmd)
}
