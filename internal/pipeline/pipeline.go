// Package pipeline drives the article translation job state machine:
// fetch -> extract -> chunk -> detect -> translate in bounded waves, with a
// persisted checkpoint after every wave.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pretzelai/openlingo/internal/chunk"
	"github.com/pretzelai/openlingo/internal/extract"
	"github.com/pretzelai/openlingo/internal/fetch"
	"github.com/pretzelai/openlingo/internal/jobs"
	"github.com/pretzelai/openlingo/internal/translator"
	"github.com/pretzelai/openlingo/pkg/log"
)

// DefaultWaveSize caps concurrent translation calls per wave.
const DefaultWaveSize = 15

const (
	fetchFailedMessage   = "could not fetch article content"
	extractFailedMessage = "could not extract readable article content"
)

// Fetcher resolves a source URL to raw HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// LanguageDetector names the language of a text sample.
type LanguageDetector interface {
	Detect(ctx context.Context, sample string) string
}

// ExtractFunc reduces raw HTML to a document; StrategyFunc resolves the
// per-site handling for a URL. Both default to the extract package.
type (
	ExtractFunc  func(html string, url string) (*extract.Document, error)
	StrategyFunc func(url string) extract.Strategy
)

// Pipeline owns every write to a job record for the job's lifetime. All
// other components are pure functions over text and bytes.
type Pipeline struct {
	store      jobs.Store
	fetcher    Fetcher
	translator translator.Translator
	detector   LanguageDetector

	extract  ExtractFunc
	strategy StrategyFunc
	chunker  *chunk.Chunker
	waveSize int
}

type Option func(*Pipeline)

func WithWaveSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.waveSize = n
		}
	}
}

func WithChunker(c *chunk.Chunker) Option {
	return func(p *Pipeline) { p.chunker = c }
}

func WithExtractFunc(fn ExtractFunc) Option {
	return func(p *Pipeline) { p.extract = fn }
}

func WithStrategyFunc(fn StrategyFunc) Option {
	return func(p *Pipeline) { p.strategy = fn }
}

func New(store jobs.Store, fetcher Fetcher, trans translator.Translator, detector LanguageDetector, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		fetcher:    fetcher,
		translator: trans,
		detector:   detector,
		extract:    extract.Extract,
		strategy:   extract.ResolveStrategy,
		chunker:    chunk.New(),
		waveSize:   DefaultWaveSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one job to a terminal state. Fetch and extraction failures
// are terminal; per-chunk translation failures are absorbed as degraded
// blocks. Store errors propagate so the queue can log them.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		log.Warn("Job %s is already %s, skipping", jobID, job.Status)
		return nil
	}

	if err := p.setStatus(ctx, jobID, jobs.StatusFetching); err != nil {
		return err
	}

	fetched, err := p.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil || fetched == nil {
		return p.fail(ctx, jobID, fetchFailedMessage)
	}
	log.Info("Fetched %s via %s (%d bytes)", job.SourceURL, fetched.Method, len(fetched.HTML))

	strategy := p.strategy(job.SourceURL)

	var title, content string
	if strategy.SkipExtraction {
		title = extract.Title(fetched.HTML)
		content = extract.StripNoise(fetched.HTML)
	} else {
		doc, err := p.extract(fetched.HTML, job.SourceURL)
		if err != nil || doc == nil {
			return p.fail(ctx, jobID, extractFailedMessage)
		}
		title, content = doc.Title, doc.Content
	}
	if strings.TrimSpace(content) == "" {
		return p.fail(ctx, jobID, extractFailedMessage)
	}

	var chunks []string
	if strategy.SkipChunking {
		chunks = []string{content}
	} else {
		chunks = p.chunker.Split(content)
	}
	if len(chunks) == 0 {
		return p.fail(ctx, jobID, extractFailedMessage)
	}

	sourceLanguage := p.detector.Detect(ctx, content)
	log.Info("Job %s: %d chunks, source language %s", jobID, len(chunks), sourceLanguage)

	translating := jobs.StatusTranslating
	progress := 0
	total := len(chunks)
	if err := p.store.UpdateJob(ctx, jobID, jobs.JobUpdate{
		Status:              &translating,
		Title:               &title,
		SourceLanguage:      &sourceLanguage,
		OriginalChunks:      &chunks,
		TotalParagraphs:     &total,
		TranslationProgress: &progress,
	}); err != nil {
		return err
	}

	return p.translateAll(ctx, job, chunks, strategy.TranslatorCleans)
}

// translateAll fans chunks out in waves of at most waveSize concurrent
// translation calls, checkpointing blocks and progress after every wave.
// A panic anywhere in here marks the job failed but keeps whatever was
// already checkpointed.
func (p *Pipeline) translateAll(ctx context.Context, job *jobs.TranslationJob, chunks []string, cleanOriginal bool) (err error) {
	jobID := job.ID
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job %s panicked during translation: %v", jobID, r)
			err = p.fail(ctx, jobID, fmt.Sprintf("translation aborted: %v", r))
		}
	}()

	blocks := make([]translator.Block, 0, len(chunks))
	degradedCount := 0

	for start := 0; start < len(chunks); start += p.waveSize {
		end := min(start+p.waveSize, len(chunks))
		wave := chunks[start:end]

		// Results are written positionally so the final order always
		// matches source order, independent of completion order.
		results := make([]translator.Result, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		for i, text := range wave {
			i, text := i, text
			g.Go(func() error {
				results[i] = p.translator.Translate(gctx, translator.Request{
					Chunk:          text,
					TargetLanguage: job.TargetLanguage,
					CEFRLevel:      job.CEFRLevel,
					CleanOriginal:  cleanOriginal,
				})
				return nil
			})
		}
		_ = g.Wait()

		for _, result := range results {
			if result.Degraded {
				degradedCount++
				log.Warn("Job %s: chunk degraded: %s", jobID, result.Reason)
			}
			blocks = append(blocks, result.Block)
		}

		progress := len(blocks)
		if err := p.store.UpdateJob(ctx, jobID, jobs.JobUpdate{
			TranslatedBlocks:    &blocks,
			TranslationProgress: &progress,
		}); err != nil {
			return err
		}
	}

	wordCount := 0
	for _, block := range blocks {
		wordCount += len(strings.Fields(block.Translated))
	}

	completed := jobs.StatusCompleted
	total := len(chunks)
	if err := p.store.UpdateJob(ctx, jobID, jobs.JobUpdate{
		Status:              &completed,
		TranslatedBlocks:    &blocks,
		TranslationProgress: &total,
		WordCount:           &wordCount,
	}); err != nil {
		return err
	}

	log.Info("Job %s completed: %d blocks (%d degraded), %d words", jobID, len(blocks), degradedCount, wordCount)
	return nil
}

func (p *Pipeline) setStatus(ctx context.Context, jobID string, status jobs.Status) error {
	return p.store.UpdateJob(ctx, jobID, jobs.JobUpdate{Status: &status})
}

// fail records the terminal failure without touching checkpointed content.
func (p *Pipeline) fail(ctx context.Context, jobID string, message string) error {
	log.Error("Job %s failed: %s", jobID, message)
	failed := jobs.StatusFailed
	return p.store.UpdateJob(ctx, jobID, jobs.JobUpdate{
		Status:       &failed,
		ErrorMessage: &message,
	})
}
