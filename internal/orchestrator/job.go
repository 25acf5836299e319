package orchestrator

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/extract"
	"github.com/kiranshivaraju/docingest/internal/quality"
)

// Progress checkpoints, in percent.
const (
	progressExtracting = 10
	progressQuality    = 25
	progressOCREnd     = 50
	progressUploading  = 55
	progressProcessing = 70
	progressBatchEnd   = 95
	progressDone       = 100
)

// Job is the serializable state of one file's ingestion. The extracted text
// is kept in memory only; a Job restored from JSON re-extracts on resume.
type Job struct {
	File        string          `json:"file"`
	Kind        extract.Kind    `json:"kind"`
	State       State           `json:"state"`
	Phase       Phase           `json:"phase"`
	Progress    int             `json:"progressPercent"`
	DocumentID  uuid.UUID       `json:"documentId,omitempty"`
	StoragePath string          `json:"storagePath,omitempty"`
	NeedsOCR    bool            `json:"needsOcr,omitempty"`
	UsedOCR     bool            `json:"usedOcr,omitempty"`
	Quality     *quality.Result `json:"quality,omitempty"`
	PageCount   int             `json:"pageCount,omitempty"`
	Batches     int             `json:"batches,omitempty"`
	Status      string          `json:"status,omitempty"`
	Warning     string          `json:"warning,omitempty"`
	Error       string          `json:"error,omitempty"`

	text string
}

// NewJob returns an idle job for the named file.
func NewJob(file string) *Job {
	return &Job{File: file, State: StateIdle, Phase: PhaseIdle}
}

// AwaitingChoice reports whether the job is halted for a use-text, OCR or
// cancel decision.
func (j *Job) AwaitingChoice() bool {
	return j.State == StateOCRPending
}

// apply moves the job along e and updates its phase.
func (j *Job) apply(e Event) error {
	next, err := Transition(j.State, e)
	if err != nil {
		return err
	}
	j.State = next
	j.Phase = next.Phase()
	return nil
}

func scale(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}
