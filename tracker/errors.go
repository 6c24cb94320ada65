package tracker

import (
	"fmt"
	"strings"

	"paneltrack/stage"
)

// The error taxonomy below is part of the operator contract: every
// terminal rejection carries a human-readable reason naming what is
// actually wrong, so a station worker knows why a task is refused.

// DependencyNotMetError reports a completion attempt on a locked stage.
type DependencyNotMetError struct {
	Stage   stage.Stage
	Missing []stage.Stage
}

func (e *DependencyNotMetError) Error() string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = string(s)
	}
	return fmt.Sprintf("stage %s is locked: waiting on %s", e.Stage, strings.Join(names, ", "))
}

// RoleMismatchError reports a worker acting outside their station role.
type RoleMismatchError struct {
	Role  string
	Stage stage.Stage
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("worker role %q may not complete stage %s", e.Role, e.Stage)
}

// PrerequisiteError reports an out-of-order foil sub-step, such as a
// "done" marker with no preceding "pick".
type PrerequisiteError struct {
	Reason string
}

func (e *PrerequisiteError) Error() string {
	return e.Reason
}

// NotFoundError reports an unknown unit, worker or record id.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// NotMostRecentError reports an undo of anything but the latest record
// for its (unit, stage) pair.
type NotMostRecentError struct {
	RecordID int64
}

func (e *NotMostRecentError) Error() string {
	return fmt.Sprintf("record %d is not the most recent for its unit and stage", e.RecordID)
}

// BlockedError reports a completion attempt on a manually held unit.
type BlockedError struct {
	UnitID int64
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("unit %d is blocked by a manual hold", e.UnitID)
}
