package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDF_MonotoneNonIncreasingInDF(t *testing.T) {
	const n = 100
	prev := IDF(0, n)
	for df := 1; df <= n; df++ {
		cur := IDF(df, n)
		assert.LessOrEqualf(t, cur, prev, "idf(%d) should be <= idf(%d)", df, df-1)
		prev = cur
	}
}

func TestIDF_NonNegative(t *testing.T) {
	for df := 0; df <= 50; df++ {
		assert.GreaterOrEqual(t, IDF(df, 50), 0.0)
	}
}

func TestBM25_MonotoneNonDecreasingInTF(t *testing.T) {
	const dl, avgdl = 40, 35.0
	idfTerm := IDF(5, 100)

	tests := []struct {
		name string
		tf1  int
		tf2  int
	}{
		{"zero vs one", 0, 1},
		{"one vs two", 1, 2},
		{"two vs ten", 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.LessOrEqual(t, tt.tf1, tt.tf2)
			s1 := BM25(tt.tf1, dl, avgdl, idfTerm)
			s2 := BM25(tt.tf2, dl, avgdl, idfTerm)
			assert.LessOrEqual(t, s1, s2)
		})
	}
}

func TestBM25_ZeroTermFrequencyScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, BM25(0, 10, 10, 1.5))
}

func TestBM25_DegenerateAvgdlDoesNotDivideByZero(t *testing.T) {
	assert.NotPanics(t, func() {
		BM25(3, 10, 0, 1.5)
	})
}
