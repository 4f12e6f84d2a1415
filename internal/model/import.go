package model

import (
	"fmt"
	"time"
)

// ImportMode selects how imported rows are reconciled with the catalog.
type ImportMode string

const (
	// ImportModeInsert inserts every row with a freshly allocated code.
	ImportModeInsert ImportMode = "insert"
	// ImportModeUpsert matches rows by their explicit code.
	ImportModeUpsert ImportMode = "upsert"
)

func (m ImportMode) Validate() error {
	switch m {
	case ImportModeInsert, ImportModeUpsert:
		return nil
	default:
		return fmt.Errorf("invalid import mode: %q", string(m))
	}
}

type ImportStatus string

const (
	ImportStatusIdle    ImportStatus = "idle"
	ImportStatusRunning ImportStatus = "running"
	ImportStatusDone    ImportStatus = "done"
	ImportStatusError   ImportStatus = "error"
)

// ImportProgress is a snapshot of the current (or last) import.
type ImportProgress struct {
	Status ImportStatus `json:"status"`
	Mode   ImportMode   `json:"mode,omitempty"`
	Total  int          `json:"total"`
	// Processed is exposed as "atual" for existing dashboard clients.
	Processed int `json:"atual"`

	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`

	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
