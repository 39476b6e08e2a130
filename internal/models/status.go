package models

import (
	"errors"
	"fmt"
)

// JobState is the coarse position of a (identifier, variant) pair in its
// lifecycle.
type JobState string

const (
	StateStarted    JobState = "STARTED"
	StateInProgress JobState = "IN_PROGRESS"
	StateDone       JobState = "DONE"
)

// JobStage is the pipeline phase reported while a pair is IN_PROGRESS.
type JobStage string

const (
	StageFetching     JobStage = "fetching"
	StageTransforming JobStage = "transforming"
	StagePublishing   JobStage = "publishing"
)

// ErrInvariant marks a structurally invalid snapshot. This is a programming
// defect, not an input error, and construction fails loudly instead of
// coercing the value.
var ErrInvariant = errors.New("invalid status snapshot")

// StatusSnapshot is one immutable progress record for a (identifier, variant)
// pair. A new snapshot replaces the previous one on every transition; a
// snapshot is never mutated after construction.
type StatusSnapshot struct {
	Identifier string    `json:"identifier"`
	Variant    string    `json:"variant"`
	State      JobState  `json:"state"`
	Stage      *JobStage `json:"stage"`
	Percentage *int      `json:"percentage"`
	Failed     bool      `json:"failed"`
	Cancelled  bool      `json:"cancelled"`
	Result     *string   `json:"result"`
}

// Validate enforces the structural invariants:
// stage is present iff state is IN_PROGRESS, failed and cancelled are never
// both set, and a failed or cancelled snapshot is always DONE.
func (s *StatusSnapshot) Validate() error {
	if s.Identifier == "" || s.Variant == "" {
		return fmt.Errorf("%w: identifier and variant are required", ErrInvariant)
	}
	switch s.State {
	case StateStarted, StateInProgress, StateDone:
	default:
		return fmt.Errorf("%w: unknown state %q", ErrInvariant, s.State)
	}
	if (s.State == StateInProgress) != (s.Stage != nil) {
		return fmt.Errorf("%w: stage must be set iff state is IN_PROGRESS", ErrInvariant)
	}
	if s.Stage != nil {
		switch *s.Stage {
		case StageFetching, StageTransforming, StagePublishing:
		default:
			return fmt.Errorf("%w: unknown stage %q", ErrInvariant, *s.Stage)
		}
	}
	if s.Failed && s.Cancelled {
		return fmt.Errorf("%w: failed and cancelled are mutually exclusive", ErrInvariant)
	}
	if (s.Failed || s.Cancelled) && s.State != StateDone {
		return fmt.Errorf("%w: failed or cancelled requires state DONE", ErrInvariant)
	}
	if s.Percentage != nil && (*s.Percentage < 0 || *s.Percentage > 100) {
		return fmt.Errorf("%w: percentage %d out of range", ErrInvariant, *s.Percentage)
	}
	if s.Result != nil && (s.State != StateDone || s.Failed || s.Cancelled) {
		return fmt.Errorf("%w: result is only valid on a successful DONE", ErrInvariant)
	}
	return nil
}

// Terminal reports whether no further snapshot will follow this one.
func (s *StatusSnapshot) Terminal() bool {
	return s.State == StateDone
}

// NewStartedSnapshot builds the initial STARTED snapshot for a pair.
func NewStartedSnapshot(identifier, variant string) (*StatusSnapshot, error) {
	s := &StatusSnapshot{Identifier: identifier, Variant: variant, State: StateStarted}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewProgressSnapshot builds an IN_PROGRESS snapshot for the given stage.
// percentage may be nil when the stage has no measurable progress.
func NewProgressSnapshot(identifier, variant string, stage JobStage, percentage *int) (*StatusSnapshot, error) {
	s := &StatusSnapshot{
		Identifier: identifier,
		Variant:    variant,
		State:      StateInProgress,
		Stage:      &stage,
		Percentage: percentage,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDoneSnapshot builds the successful terminal snapshot carrying the
// published artifact reference.
func NewDoneSnapshot(identifier, variant, result string) (*StatusSnapshot, error) {
	s := &StatusSnapshot{Identifier: identifier, Variant: variant, State: StateDone, Result: &result}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFailedSnapshot builds the terminal snapshot for a failed pair.
func NewFailedSnapshot(identifier, variant string) (*StatusSnapshot, error) {
	s := &StatusSnapshot{Identifier: identifier, Variant: variant, State: StateDone, Failed: true}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewCancelledSnapshot builds the terminal snapshot for a cancelled pair.
func NewCancelledSnapshot(identifier, variant string) (*StatusSnapshot, error) {
	s := &StatusSnapshot{Identifier: identifier, Variant: variant, State: StateDone, Cancelled: true}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Percent is a convenience for the optional percentage field.
func Percent(n int) *int {
	return &n
}
