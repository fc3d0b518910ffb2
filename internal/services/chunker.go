package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText splits text into chunks of at most maxChunkSize runes, breaking
// on sentence boundaries where possible. Each chunk after the first starts
// with the last overlap runes of the previous one.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		currentLen = 0

		if tail := getLastNChars(chunk, overlap); tail != "" {
			current.WriteString(tail)
			currentLen = utf8.RuneCountInString(tail)
		}
	}

	for _, piece := range splitPieces(text, maxChunkSize-overlap-1) {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+1+pieceLen > maxChunkSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}

	// A trailing buffer holding only overlap adds nothing new.
	if currentLen > 0 && (len(chunks) == 0 || currentLen > overlap) {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitPieces breaks text into sentences, and sentences longer than limit
// into runs of words.
func splitPieces(text string, limit int) []string {
	if limit < 1 {
		limit = 1
	}

	var pieces []string
	for _, sentence := range splitIntoSentences(text) {
		if utf8.RuneCountInString(sentence) <= limit {
			pieces = append(pieces, sentence)
			continue
		}

		var run []string
		runLen := 0
		for _, word := range strings.Fields(sentence) {
			wordLen := utf8.RuneCountInString(word)
			if runLen > 0 && runLen+1+wordLen > limit {
				pieces = append(pieces, strings.Join(run, " "))
				run, runLen = nil, 0
			}
			if runLen > 0 {
				runLen++
			}
			run = append(run, word)
			runLen += wordLen
		}
		if len(run) > 0 {
			pieces = append(pieces, strings.Join(run, " "))
		}
	}
	return pieces
}

// splitIntoSentences splits after '.', '!' and '?' and keeps the punctuation.
func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func getLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
