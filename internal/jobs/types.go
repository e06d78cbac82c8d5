package jobs

import (
	"fmt"
	"strings"
	"time"

	"github.com/pretzelai/openlingo/internal/translator"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusFetching    Status = "fetching"
	StatusTranslating Status = "translating"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Terminal reports whether the status admits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TranslationJob is the persisted record of one article translation.
// SourceURL, TargetLanguage and CEFRLevel are immutable inputs; everything
// else is written by the pipeline as the job advances.
type TranslationJob struct {
	ID             string `json:"id"`
	SourceURL      string `json:"source_url"`
	TargetLanguage string `json:"target_language"`
	CEFRLevel      string `json:"cefr_level"`

	Title          string `json:"title,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	Status         Status `json:"status"`

	OriginalChunks   []string           `json:"original_chunks,omitempty"`
	TranslatedBlocks []translator.Block `json:"translated_blocks,omitempty"`

	TranslationProgress int `json:"translation_progress"`
	TotalParagraphs     int `json:"total_paragraphs"`
	WordCount           int `json:"word_count"`

	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DedupeKey identifies an equivalent in-flight request: same article, same
// target language, same level.
func (j *TranslationJob) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%s",
		strings.TrimSpace(j.SourceURL),
		strings.ToLower(strings.TrimSpace(j.TargetLanguage)),
		strings.ToUpper(strings.TrimSpace(j.CEFRLevel)))
}

// Clone returns a copy safe to hand out across goroutines.
func (j *TranslationJob) Clone() *TranslationJob {
	if j == nil {
		return nil
	}
	tmp := *j
	tmp.OriginalChunks = append([]string(nil), j.OriginalChunks...)
	tmp.TranslatedBlocks = append([]translator.Block(nil), j.TranslatedBlocks...)
	return &tmp
}
