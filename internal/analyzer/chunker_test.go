package analyzer

import (
	"strings"
	"testing"
)

func TestChunk_ParagraphMode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLen int
	}{
		{name: "empty", content: "", wantLen: 0},
		{name: "whitespace only", content: "   \n\n\t  ", wantLen: 0},
		{name: "single paragraph", content: "Just one paragraph of text.", wantLen: 1},
		{
			name:    "two paragraphs separated by blank line",
			content: "First paragraph.\n\nSecond paragraph.",
			wantLen: 2,
		},
		{
			name:    "blank runs collapse",
			content: "First.\n\n\n\nSecond.\n\nThird.",
			wantLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(tt.content, ChunkParagraph, 200, 0)
			if len(chunks) != tt.wantLen {
				t.Errorf("Chunk() got %d chunks, want %d", len(chunks), tt.wantLen)
			}
			for i, c := range chunks {
				if strings.TrimSpace(c) == "" {
					t.Errorf("chunk[%d] is empty", i)
				}
			}
		})
	}
}

func TestChunk_SentenceModeRespectsMaxTokens(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine. Ten eleven twelve."
	chunks := Chunk(text, ChunkSentence, 6, 0)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if wordCount(c) > 6 {
			t.Errorf("chunk[%d] has %d words, want <= 6: %q", i, wordCount(c), c)
		}
	}
}

func TestChunk_SentenceModeSingleOversizedSentenceStillEmitted(t *testing.T) {
	text := "one two three four five six seven eight nine ten."
	chunks := Chunk(text, ChunkSentence, 3, 0)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 (a single fragment can't be split further)", len(chunks))
	}
}

func TestChunk_FixedModeOverlapsAdjacentWindows(t *testing.T) {
	words := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		words = append(words, wordAt(i))
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text, ChunkFixed, 10, 4)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	firstWords := strings.Fields(chunks[0])
	secondWords := strings.Fields(chunks[1])
	overlap := 0
	for _, w := range firstWords[len(firstWords)-4:] {
		for _, w2 := range secondWords[:4] {
			if w == w2 {
				overlap++
			}
		}
	}
	if overlap != 4 {
		t.Errorf("got %d overlapping words between adjacent windows, want 4", overlap)
	}
}

func TestChunk_FixedModeCoversEveryWordExactlyToTheEnd(t *testing.T) {
	text := "a b c d e"
	chunks := Chunk(text, ChunkFixed, 2, 0)
	last := chunks[len(chunks)-1]
	if !strings.Contains(last, "e") {
		t.Errorf("last chunk %q does not reach the final word", last)
	}
}

func TestChunk_EmptyTextReturnsNoChunksRegardlessOfMode(t *testing.T) {
	for _, mode := range []ChunkMode{ChunkParagraph, ChunkSentence, ChunkFixed} {
		chunks := Chunk("", mode, 100, 0)
		if len(chunks) != 0 {
			t.Errorf("mode %s: got %d chunks for empty text, want 0", mode, len(chunks))
		}
	}
}

func wordAt(n int) string {
	digits := "0123456789"
	if n < 10 {
		return "w" + string(digits[n])
	}
	return "w" + string(digits[n/10]) + string(digits[n%10])
}
