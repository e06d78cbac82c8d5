package translator

import "context"

// Block is one translated unit of an article. Bridge is an interlinear gloss
// in the pivot language, sentence-aligned 1:1 with Translated; the reader UI
// depends on that alignment for word highlighting.
type Block struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
	Bridge     string `json:"bridge,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
}

// Result is the outcome of translating one chunk. Translation never fails
// outright: a degraded result carries the source text in place of a
// translation plus the reason, so callers treat chunk failures as data.
type Result struct {
	Block    Block
	Degraded bool
	Reason   string
}

// Translated wraps a successful block.
func Translated(block Block) Result {
	return Result{Block: block}
}

// Degraded builds the fallback result for a failed chunk: the source text
// stands in for both fields and the block is flagged.
func Degraded(chunk string, reason string) Result {
	return Result{
		Block: Block{
			Original:   chunk,
			Translated: chunk,
			Degraded:   true,
		},
		Degraded: true,
		Reason:   reason,
	}
}

// Request carries one chunk and its translation constraints.
type Request struct {
	Chunk          string
	TargetLanguage string
	CEFRLevel      string
	// CleanOriginal instructs the model to extract the article text itself
	// and return a cleaned original field. Used for raw-HTML site strategies.
	CleanOriginal bool
}

// Translator adapts one chunk of source text to the target language at the
// requested proficiency level.
type Translator interface {
	Translate(ctx context.Context, req Request) Result
}
