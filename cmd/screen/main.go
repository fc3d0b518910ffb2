// Package main provides the screen CLI, which runs one batch against a
// directory of PDFs without a database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen resumes against a job description",
	Long:  "screen classifies and scores a directory of PDF resumes against a job description using the configured LLM provider, and prints a ranked report.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
