package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   \n\t "))
	assert.Equal(t, 3, WordCount("one two three"))
	assert.Equal(t, 2, WordCount("  spaced \n out  "))
}

func TestSplitEmptyText(t *testing.T) {
	c := New()
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("\n\n  \n"))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New()
	chunks := c.Split("A short paragraph that fits in one chunk.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short paragraph that fits in one chunk.", chunks[0])
}

func TestSplitMergesSmallParagraphs(t *testing.T) {
	c := New()
	chunks := c.Split("First small paragraph.\n\nSecond small paragraph.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "First small paragraph.\n\nSecond small paragraph.", chunks[0])
}

func TestSplitOversizedParagraphAtSentences(t *testing.T) {
	c := &Chunker{MinWords: 3, TargetWords: 5, MaxWords: 8}

	chunks := c.Split("Sentence one is here. Sentence two is here. Sentence three is here.")
	require.Len(t, chunks, 2)
	assert.Equal(t, 8, WordCount(chunks[0]))
	assert.Equal(t, 4, WordCount(chunks[1]))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, WordCount(chunk), c.MaxWords)
	}
}

func TestSplitRespectsMaxBound(t *testing.T) {
	c := New()

	paragraph := strings.TrimSpace(strings.Repeat("word ", 200))
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, WordCount(chunk), c.MaxWords, "chunk %d over the ceiling", i)
	}
}

func TestSplitIsLossless(t *testing.T) {
	c := &Chunker{MinWords: 3, TargetWords: 6, MaxWords: 12}

	text := "The quick brown fox jumps over the lazy dog. It was a bright cold day in April. " +
		"The clocks were striking thirteen.\n\nA second paragraph follows here. It has several " +
		"short sentences. They must all survive chunking. Nothing may be lost or reordered."

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestSplitSingleParagraphFallsBackToLines(t *testing.T) {
	c := &Chunker{MinWords: 1, TargetWords: 3, MaxWords: 5}

	// No blank lines and no sentence punctuation: the line fallback is the
	// only way to get under the ceiling.
	chunks := c.Split("alpha beta gamma\ndelta epsilon zeta\neta theta iota")
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, WordCount(chunk), c.MaxWords)
	}
	assert.Equal(t,
		[]string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota"},
		strings.Fields(strings.Join(chunks, " ")))
}

func TestSplitFoldsUndersizedTail(t *testing.T) {
	c := &Chunker{MinWords: 3, TargetWords: 4, MaxWords: 6}

	chunks := c.Split("alpha beta gamma delta.\n\nfin.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha beta gamma delta.\n\nfin.", chunks[0])
}

func TestSplitKeepsUnmatchedRemainder(t *testing.T) {
	c := &Chunker{MinWords: 1, TargetWords: 3, MaxWords: 4}

	// The trailing words carry no sentence punctuation.
	chunks := c.Split("One full sentence here. trailing words without punctuation")
	assert.Contains(t, strings.Join(chunks, " "), "trailing words without punctuation")
}
