package models

import (
	"time"
)

type State string

const (
	StateIdle           State = "IDLE"
	StateCardOpened     State = "CARD_OPENED"
	StateDetailLoaded   State = "DETAIL_LOADED"
	StateModalOpened    State = "MODAL_OPENED"
	StateStepInProgress State = "STEP_IN_PROGRESS"
	StateSubmitted      State = "SUBMITTED"
	StateAbandoned      State = "ABANDONED"
	StateSkipped        State = "SKIPPED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateAbandoned || s == StateSkipped
}

// ErrorKind is the recorded reason for a non-submitted outcome.
type ErrorKind string

const (
	ErrNone               ErrorKind = ""
	ErrNotFound           ErrorKind = "NotFound"
	ErrTimeout            ErrorKind = "Timeout"
	ErrInteractionBlocked ErrorKind = "InteractionBlocked"
	ErrScoringFailed      ErrorKind = "ScoringFailed"
	ErrSessionLost        ErrorKind = "SessionLost"

	ErrDetailLoadTimeout       ErrorKind = "DetailLoadTimeout"
	ErrApplyControlUnavailable ErrorKind = "ApplyControlUnavailable"
	ErrModalTimeout            ErrorKind = "ModalTimeout"
	ErrStepLimitReached        ErrorKind = "StepLimitReached"
	ErrLowRelevance            ErrorKind = "LowRelevance"
	ErrExcluded                ErrorKind = "Excluded"
	ErrDuplicate               ErrorKind = "Duplicate"
	ErrCanceled                ErrorKind = "Canceled"
	ErrUnexpected              ErrorKind = "Unexpected"
)

// ApplicationAttempt is the mutable state of one job's apply protocol.
type ApplicationAttempt struct {
	ID             string
	Job            JobRecord
	State          State
	StepsCompleted int
	LastError      ErrorKind
	Detail         string
	StartedAt      time.Time
}

// Outcome is the immutable record emitted for every attempt.
type Outcome struct {
	ID             string    `json:"id"`
	RunID          string    `json:"run_id"`
	Index          int       `json:"index"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	URL            string    `json:"url,omitempty"`
	RelevanceScore *float64  `json:"relevance_score,omitempty"`
	State          State     `json:"state"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	StepsCompleted int       `json:"steps_completed"`
	Screenshot     string    `json:"screenshot,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Settled means the listing should not be retried in later runs.
func (o Outcome) Settled() bool {
	switch {
	case o.State == StateSubmitted:
		return true
	case o.State == StateSkipped:
		switch o.ErrorKind {
		case ErrLowRelevance, ErrExcluded, ErrApplyControlUnavailable:
			return true
		}
	}
	return false
}

func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Outcome freezes the attempt into its report record.
func (a *ApplicationAttempt) Outcome(runID, url string, finished time.Time) Outcome {
	return Outcome{
		ID:             a.ID,
		RunID:          runID,
		Index:          a.Job.Index,
		Title:          a.Job.Title,
		Company:        a.Job.Company,
		Location:       a.Job.Location,
		URL:            url,
		RelevanceScore: a.Job.RelevanceScore,
		State:          a.State,
		ErrorKind:      a.LastError,
		Detail:         a.Detail,
		StepsCompleted: a.StepsCompleted,
		StartedAt:      a.StartedAt,
		FinishedAt:     finished,
	}
}
