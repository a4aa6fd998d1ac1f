package snapshot

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers branch on.
var (
	// ErrNotFound is returned when a referenced snapshot or live database
	// file does not exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrSchemaMismatch is returned when a snapshot fails validation for
	// its declared kind.
	ErrSchemaMismatch = errors.New("snapshot schema mismatch")

	// ErrIdentityUnresolvable is returned when no fallback source yields a
	// usable drive id during restore.
	ErrIdentityUnresolvable = errors.New("drive identity unresolvable")
)

// RestoreStep names one step of the restore state machine.
type RestoreStep string

const (
	StepValidate        RestoreStep = "Validate"
	StepResolveIdentity RestoreStep = "ResolveIdentity"
	StepCopy            RestoreStep = "CopyToLiveLocation"
	StepReinsert        RestoreStep = "ReinsertIntoCatalog"
	StepReinitialize    RestoreStep = "ReinitializeLiveDatabase"
	StepRebuildIndex    RestoreStep = "RebuildSearchIndex"
	StepVerify          RestoreStep = "VerifyReinsertion"
)

// RestoreError wraps a step failure with enough context to know which step
// failed. There is no automatic rollback of steps already completed: a
// failure after ReinsertIntoCatalog leaves the drive present but possibly
// un-searchable until the restore is retried.
type RestoreError struct {
	Step RestoreStep
	Err  error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore step %s: %v", e.Step, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

func restoreFailed(step RestoreStep, err error) *RestoreError {
	return &RestoreError{Step: step, Err: err}
}
