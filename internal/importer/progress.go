package importer

import (
	"sync"
	"time"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

// Outcome is what happened to one row.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Tracker owns the progress of the single import a process runs at a time.
//
// State machine: idle -> running -> done | error. A finished import stays in
// its terminal state until the next Begin.
type Tracker struct {
	mu  sync.Mutex
	p   model.ImportProgress
	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		p:   model.ImportProgress{Status: model.ImportStatusIdle},
		now: time.Now,
	}
}

// Begin resets the progress for a new import. It fails while another import
// is running.
func (t *Tracker) Begin(mode model.ImportMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.p.Status == model.ImportStatusRunning {
		return apperr.ImportInProgressErr
	}

	now := t.now()
	t.p = model.ImportProgress{
		Status:    model.ImportStatusRunning,
		Mode:      mode,
		StartedAt: &now,
	}
	return nil
}

// SetTotal records how many rows the running import will process.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Total = total
}

// Advance counts one processed row.
func (t *Tracker) Advance(outcome Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.p.Processed++
	switch outcome {
	case OutcomeInserted:
		t.p.Inserted++
	case OutcomeUpdated:
		t.p.Updated++
	case OutcomeSkipped:
		t.p.Skipped++
	case OutcomeFailed:
		t.p.Failed++
	}
}

// Finish marks the running import as done.
func (t *Tracker) Finish() {
	t.finish(model.ImportStatusDone, "")
}

// Fail marks the running import as failed. Rows already written stay written.
func (t *Tracker) Fail(err error) {
	t.finish(model.ImportStatusError, err.Error())
}

func (t *Tracker) finish(status model.ImportStatus, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.p.Status = status
	t.p.Error = msg
	t.p.FinishedAt = &now
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() model.ImportProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.p
	if p.StartedAt != nil {
		started := *p.StartedAt
		p.StartedAt = &started
	}
	if p.FinishedAt != nil {
		finished := *p.FinishedAt
		p.FinishedAt = &finished
	}
	return p
}
