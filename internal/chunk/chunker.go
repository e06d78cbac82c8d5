// Package chunk splits article text into paragraph-sized translation units
// bounded by word count. Chunks never overlap or drop text: concatenating
// them in order reproduces the source word sequence.
package chunk

import (
	"regexp"
	"strings"
)

const (
	DefaultMinWords    = 50
	DefaultTargetWords = 250
	DefaultMaxWords    = 500
)

// Chunker splits text into chunks of ideally [MinWords, MaxWords] words,
// aiming for TargetWords. The bounds are fields so tests can force splits on
// short inputs.
type Chunker struct {
	MinWords    int
	TargetWords int
	MaxWords    int
}

// New returns a Chunker with the default word-count bounds.
func New() *Chunker {
	return &Chunker{
		MinWords:    DefaultMinWords,
		TargetWords: DefaultTargetWords,
		MaxWords:    DefaultMaxWords,
	}
}

var (
	blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)
	sentenceRe  = regexp.MustCompile(`[^.!?…]+[.!?…]+["'”’)\]]*[ \t\n]*`)
)

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Split breaks text into ordered chunks.
//
// The passes are: split on blank lines (re-splitting on single newlines when
// the whole text is one oversized paragraph), re-split oversized segments at
// sentence boundaries, greedily merge undersized neighbors, and finally fold
// an undersized trailing chunk into its predecessor when the sum stays under
// the ceiling.
func (c *Chunker) Split(text string) []string {
	segments := splitParagraphs(text)
	if len(segments) == 1 && WordCount(segments[0]) > c.MaxWords {
		segments = splitLines(segments[0])
	}

	var sized []string
	for _, seg := range segments {
		if WordCount(seg) > c.MaxWords {
			sized = append(sized, c.splitBySentence(seg)...)
		} else {
			sized = append(sized, seg)
		}
	}

	merged := c.mergeNeighbors(sized)
	return c.foldUndersizedTail(merged)
}

func splitParagraphs(text string) []string {
	var ret []string
	for _, p := range blankLineRe.Split(text, -1) {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ret = append(ret, trimmed)
		}
	}
	return ret
}

func splitLines(text string) []string {
	var ret []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			ret = append(ret, trimmed)
		}
	}
	return ret
}

// splitBySentence packs the segment's sentences greedily into sub-chunks of
// up to TargetWords. Trailing text that defeats the sentence pattern is
// appended as a remainder so no words are lost.
func (c *Chunker) splitBySentence(segment string) []string {
	matches := sentenceRe.FindAllStringIndex(segment, -1)

	var sentences []string
	lastEnd := 0
	for _, m := range matches {
		if s := strings.TrimSpace(segment[m[0]:m[1]]); s != "" {
			sentences = append(sentences, s)
		}
		lastEnd = m[1]
	}
	if remainder := strings.TrimSpace(segment[lastEnd:]); remainder != "" {
		sentences = append(sentences, remainder)
	}
	if len(sentences) == 0 {
		return []string{segment}
	}

	var chunks []string
	var current []string
	currentWords := 0
	for _, sentence := range sentences {
		words := WordCount(sentence)
		if len(current) > 0 && currentWords+words > c.TargetWords {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentWords = 0
		}
		current = append(current, sentence)
		currentWords += words
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// mergeNeighbors greedily merges a segment into its predecessor when either
// side is under MinWords, or both are under TargetWords, as long as the
// merged size stays within MaxWords.
func (c *Chunker) mergeNeighbors(segments []string) []string {
	var out []string
	for _, seg := range segments {
		if len(out) == 0 {
			out = append(out, seg)
			continue
		}
		prev := out[len(out)-1]
		prevWords, segWords := WordCount(prev), WordCount(seg)

		undersized := prevWords < c.MinWords || segWords < c.MinWords
		bothBelowTarget := prevWords < c.TargetWords && segWords < c.TargetWords
		if (undersized || bothBelowTarget) && prevWords+segWords <= c.MaxWords {
			out[len(out)-1] = prev + "\n\n" + seg
			continue
		}
		out = append(out, seg)
	}
	return out
}

// foldUndersizedTail merges a final chunk still under MinWords into the
// second-to-last chunk when the sum stays within MaxWords.
func (c *Chunker) foldUndersizedTail(chunks []string) []string {
	n := len(chunks)
	if n < 2 {
		return chunks
	}
	last, prev := chunks[n-1], chunks[n-2]
	if WordCount(last) < c.MinWords && WordCount(last)+WordCount(prev) <= c.MaxWords {
		chunks[n-2] = prev + "\n\n" + last
		return chunks[:n-1]
	}
	return chunks
}
