package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/app"
	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/export"
	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

const cliOwner = "cli@localhost"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen every PDF in a directory",
	Long:  "Reads the job description from --job-file, screens every .pdf in --dir in name order and prints the ranked candidates.",
	RunE:  runScreen,
}

var (
	runJobFile string
	runDir     string
	runTitle   string
	runXLSX    string
	runJSON    bool
	runVerbose bool
)

func init() {
	runCmd.Flags().StringVarP(&runJobFile, "job-file", "j", "", "Path to a plain-text job description (required)")
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "Directory containing PDF resumes (required)")
	runCmd.Flags().StringVarP(&runTitle, "title", "t", "", "Job title shown in the report (defaults to the job file name)")
	runCmd.Flags().StringVar(&runXLSX, "xlsx", "", "Also write the report to this .xlsx file")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the report as JSON instead of a table")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Log pipeline progress to stderr")

	if err := runCmd.MarkFlagRequired("job-file"); err != nil {
		panic(fmt.Sprintf("failed to mark job-file flag as required: %v", err))
	}
	if err := runCmd.MarkFlagRequired("dir"); err != nil {
		panic(fmt.Sprintf("failed to mark dir flag as required: %v", err))
	}

	rootCmd.AddCommand(runCmd)
}

func runScreen(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := zap.NewNop()
	if runVerbose {
		var err error
		if log, err = logger.New(false, cfg.Log.Debug); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	description, err := os.ReadFile(runJobFile)
	if err != nil {
		return fmt.Errorf("failed to read job file %s: %w", runJobFile, err)
	}

	uploads, err := loadResumes(runDir)
	if err != nil {
		return err
	}

	uploadDir, err := os.MkdirTemp("", "screen-*")
	if err != nil {
		return fmt.Errorf("failed to create temp upload dir: %w", err)
	}
	defer os.RemoveAll(uploadDir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pipeline, err := app.NewPipeline(ctx, cfg, log, nil)
	if err != nil {
		return err
	}

	jobs := repositories.NewMemoryJobRepository()
	batches := repositories.NewMemoryBatchRepository()
	storage := services.NewStorageService(uploadDir)

	title := runTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(runJobFile), filepath.Ext(runJobFile))
	}
	job := &models.Job{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(string(description)),
		OwnerEmail:  cliOwner,
	}
	if err := jobs.Create(ctx, job); err != nil {
		return err
	}

	orchestrator := pipeline.NewOrchestrator(cfg, batches, storage, log, nil)
	batchService := services.NewBatchService(jobs, batches, storage, orchestrator, nil, log, nil)

	batch, err := batchService.Submit(ctx, services.SubmitBatchInput{
		JobID:          job.ID.String(),
		RequesterEmail: cliOwner,
		Files:          uploads,
		Wait:           true,
	})
	if err != nil {
		return err
	}

	report := models.NewBatchReport(batch)

	if runXLSX != "" {
		path, err := export.SaveReport(report, runXLSX)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
	}

	if runJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	return printReport(cmd.OutOrStdout(), report)
}

// loadResumes reads every .pdf in dir, ordered by file name.
func loadResumes(dir string) ([]services.UploadedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	uploads := make([]services.UploadedFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		uploads = append(uploads, services.UploadedFile{FileName: name, Data: data})
	}

	return uploads, nil
}

func printReport(w io.Writer, report models.BatchReportResponse) error {
	fmt.Fprintf(w, "%s: %d resumes, average score %.1f\n\n", report.JobTitle, report.TotalProcessed, report.AverageScore)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tFILE\tSCORE\tSTATUS\tMISSING")
	for i, r := range report.Results {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			i+1, r.FileName, r.MatchScore, r.Status, strings.Join(r.MissingSkills, ", "))
	}
	return tw.Flush()
}
