package autosave

import (
	"fmt"

	"cramkle/app/internal/content"
)

type State int

const (
	StateIdle State = iota
	StateSaving
	StateSaved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the visible save status of a target. Snapshot is the payload of
// the last dispatched request while saving or failed.
type Outcome struct {
	State    State
	Target   Target
	Snapshot *content.Raw
	Err      error
}

func (o Outcome) clone() Outcome {
	if o.Snapshot != nil {
		snap := o.Snapshot.Clone()
		o.Snapshot = &snap
	}
	return o
}

// PersistFailedError is reported when the transport rejects a save. Snapshot
// is the payload a retry will resend.
type PersistFailedError struct {
	Target   Target
	Snapshot content.Raw
	Err      error
}

func (e *PersistFailedError) Error() string {
	return fmt.Sprintf("autosave: persist %s: %v", e.Target, e.Err)
}

func (e *PersistFailedError) Unwrap() error {
	return e.Err
}
