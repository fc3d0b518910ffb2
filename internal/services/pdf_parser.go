package services

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

// layoutUnit converts PDF points into the coarse units the line tolerance is
// expressed in.
const layoutUnit = 16.0

// Horizontal glyph spacing, in ems of the larger of the two font sizes.
// Kerning may pull a glyph back by up to glyphOverlapEm; a gap above
// wordSpaceEm is a space inside the run and one above wordBreakEm starts a
// new fragment.
const (
	glyphOverlapEm = 0.15
	wordSpaceEm    = 0.1
	wordBreakEm    = 0.2
)

type TextExtractor interface {
	Extract(fileName string, data []byte) (*PDFContent, error)
	ExtractFile(path string) (*PDFContent, error)
}

type PDFContent struct {
	Text      string
	PageCount int
}

type pdfTextExtractor struct {
	tolerance float64
	log       *zap.Logger
}

func NewTextExtractor(log *zap.Logger) TextExtractor {
	return &pdfTextExtractor{
		tolerance: DefaultLineTolerance,
		log:       logger.OrNop(log),
	}
}

func (p *pdfTextExtractor) ExtractFile(path string) (*PDFContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{FileName: path, Err: err}
	}
	return p.Extract(path, data)
}

// Extract parses a PDF held in memory. The parser panics on some malformed
// content streams; those are reported as ExtractionError like any other
// parse failure.
func (p *pdfTextExtractor) Extract(fileName string, data []byte) (content *PDFContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = &ExtractionError{FileName: fileName, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	if len(data) == 0 {
		return nil, &ExtractionError{FileName: fileName, Err: errors.New("empty document")}
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{FileName: fileName, Err: err}
	}

	totalPage := r.NumPage()
	pages := make([][]Fragment, 0, totalPage)
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, pageFragments(page))
	}

	text := LayoutText(pages, p.tolerance)
	if text == "" {
		p.log.Warn("no text content found in PDF",
			zap.String("file", fileName),
			zap.Int("pages", totalPage))
	}

	p.log.Debug("extracted text",
		zap.String("file", fileName),
		zap.Int("pages", totalPage),
		zap.Int("chars", len([]rune(text))),
		zap.String("preview", logger.TruncateForLog(text, 120)))

	return &PDFContent{Text: text, PageCount: totalPage}, nil
}

// pageFragments merges the per-glyph output of the PDF reader into runs and
// converts them into top-down layout coordinates.
func pageFragments(page pdf.Page) []Fragment {
	glyphs := page.Content().Text
	if len(glyphs) == 0 {
		return nil
	}

	top := pageTop(page, glyphs)

	var fragments []Fragment
	var run strings.Builder
	var runX, runY, runEnd, runSize float64

	flush := func() {
		if run.Len() == 0 {
			return
		}
		fragments = append(fragments, Fragment{
			X:    runX / layoutUnit,
			Y:    (top - runY) / layoutUnit,
			Text: run.String(),
		})
		run.Reset()
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}

		em := math.Max(runSize, g.FontSize)
		gap := g.X - runEnd
		adjacent := run.Len() > 0 &&
			math.Abs(g.Y-runY) < 0.5 &&
			gap >= -glyphOverlapEm*em &&
			gap <= wordBreakEm*em
		switch {
		case !adjacent:
			flush()
			runX, runY, runSize = g.X, g.Y, g.FontSize
		case gap > wordSpaceEm*em:
			run.WriteByte(' ')
		}

		run.WriteString(g.S)
		runEnd = g.X + g.W
	}
	flush()

	return fragments
}

// pageTop returns the upper edge of the page in PDF space, falling back to
// the highest glyph when the media box is missing.
func pageTop(page pdf.Page, glyphs []pdf.Text) float64 {
	if box := page.V.Key("MediaBox"); box.Len() == 4 {
		if top := box.Index(3).Float64(); top > 0 {
			return top
		}
	}

	top := 0.0
	for _, g := range glyphs {
		if y := g.Y + g.FontSize; y > top {
			top = y
		}
	}
	return top
}
