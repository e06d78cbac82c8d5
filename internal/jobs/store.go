package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/pretzelai/openlingo/internal/translator"
)

// ErrNotFound is returned for operations against an unknown job id.
var ErrNotFound = errors.New("job not found")

// JobUpdate is a partial-field update. Nil fields are left untouched, so the
// pipeline can checkpoint exactly the fields a transition owns.
type JobUpdate struct {
	Status              *Status
	Title               *string
	SourceLanguage      *string
	OriginalChunks      *[]string
	TranslatedBlocks    *[]translator.Block
	TranslationProgress *int
	TotalParagraphs     *int
	WordCount           *int
	ErrorMessage        *string
}

// Store persists translation jobs.
//
// UpdateJob must be a no-op once the job is in a terminal status, so a
// completed or failed record can never be mutated by a straggling writer.
// ResetJobForRetry is the one sanctioned exception: it restarts a job from
// scratch as an explicit external action.
type Store interface {
	CreateJob(ctx context.Context, job *TranslationJob) error
	GetJob(ctx context.Context, id string) (*TranslationJob, error)
	ListJobs(ctx context.Context) ([]*TranslationJob, error)
	UpdateJob(ctx context.Context, id string, update JobUpdate) error
	ResetJobForRetry(ctx context.Context, id string) error
	// DeleteTerminalJobsBefore removes completed/failed jobs last touched
	// before the cutoff and reports how many were deleted.
	DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error)
}
