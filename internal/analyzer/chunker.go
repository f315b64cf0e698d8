package analyzer

import (
	"regexp"
	"strings"
	"unicode"
)

// ChunkMode selects the splitting strategy for Chunk.
type ChunkMode string

const (
	ChunkParagraph ChunkMode = "paragraph"
	ChunkSentence  ChunkMode = "sentence"
	ChunkFixed     ChunkMode = "fixed"
)

// DefaultOverlap is the token overlap applied between adjacent fixed-window
// chunks when the caller does not specify one.
const DefaultOverlap = 32

var blankLineRuns = regexp.MustCompile(`\n\s*\n+`)

// Chunk splits text according to mode. Sentence and fixed modes bound each
// piece to approximately maxTokens tokens (by whitespace-split word count);
// paragraph mode splits on blank lines only and does not apply maxTokens.
func Chunk(text string, mode ChunkMode, maxTokens, overlap int) []string {
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	switch mode {
	case ChunkParagraph:
		return chunkParagraph(text)
	case ChunkFixed:
		return chunkFixed(text, maxTokens, overlap)
	default:
		return chunkSentence(text, maxTokens)
	}
}

func chunkParagraph(text string) []string {
	parts := blankLineRuns.Split(text, -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	return out
}

// sentenceSplit returns the longest maximal runs of [^.!?\n]+[.!?\n]* — the
// greedy sentence-fragment rule the accumulator below consumes.
var sentenceSplit = regexp.MustCompile(`[^.!?\n]+[.!?\n]*`)

func chunkSentence(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	fragments := sentenceSplit.FindAllString(text, -1)
	var out []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			out = append(out, s)
		}
		current.Reset()
		currentTokens = 0
	}

	for _, frag := range fragments {
		trimmed := strings.TrimSpace(frag)
		if trimmed == "" {
			continue
		}
		tc := wordCount(trimmed)
		if currentTokens > 0 && currentTokens+tc > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(trimmed)
		currentTokens += tc
	}
	flush()
	return out
}

func chunkFixed(text string, maxTokens, overlap int) []string {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if overlap >= maxTokens {
		overlap = maxTokens - 1
	}
	if overlap < 0 {
		overlap = 0
	}
	step := maxTokens - overlap
	if step <= 0 {
		step = maxTokens
	}

	var out []string
	for start := 0; start < len(words); start += step {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
