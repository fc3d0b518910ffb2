package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-screener/internal/models"
)

func TestLoadResumesReadsPDFsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	uploads, err := loadResumes(dir)
	require.NoError(t, err)

	require.Len(t, uploads, 2)
	assert.Equal(t, "a.PDF", uploads[0].FileName)
	assert.Equal(t, "b.pdf", uploads[1].FileName)
	assert.Equal(t, []byte("b.pdf"), uploads[1].Data)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	err := printReport(&buf, models.BatchReportResponse{
		JobTitle:       "Backend Engineer",
		TotalProcessed: 2,
		AverageScore:   61.5,
		Results: []models.MatchResult{
			{FileName: "jane.pdf", MatchScore: 88, Status: models.StatusApproved},
			{FileName: "john.pdf", MatchScore: 35, Status: models.StatusNotAMatch, MissingSkills: []string{"Go", "SQL"}},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Backend Engineer: 2 resumes, average score 61.5")
	assert.Contains(t, out, "jane.pdf")
	assert.Contains(t, out, "Go, SQL")
}
