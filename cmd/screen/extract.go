package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Print the text extracted from a PDF",
	Long:  "Runs the layout-aware text extraction used by the screener and prints the result, which is what the classifier and oracle see.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var extractSignals bool

func init() {
	extractCmd.Flags().BoolVar(&extractSignals, "signals", false, "Also print how many resume signals the heuristic finds")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	content, err := services.NewTextExtractor(zap.NewNop()).ExtractFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, content.Text)

	if extractSignals {
		fmt.Fprintf(cmd.ErrOrStderr(), "pages: %d, resume signals: %d\n",
			content.PageCount, services.CountResumeSignals(content.Text))
	}

	return nil
}
