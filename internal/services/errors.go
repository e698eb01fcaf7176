package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrRoomNotFound       = errors.New("room does not exist")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrForbidden)
	ErrNotRoomOwner       = fmt.Errorf("%w: not the room owner", ErrForbidden)
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrPartialConsistency = errors.New("partial consistency failure")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PartialConsistencyError reports a workflow where one of two required
// writes landed and the other did not. The stores disagree until an operator
// or the reconciler repairs them.
type PartialConsistencyError struct {
	Op        string
	RoomID    string
	Completed []string
	Failed    []string
	Err       error
}

func (e *PartialConsistencyError) Error() string {
	return fmt.Sprintf("%s room %s: completed [%s], failed [%s]: %v",
		e.Op, e.RoomID, strings.Join(e.Completed, ", "), strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialConsistencyError) Unwrap() error {
	return e.Err
}

func (e *PartialConsistencyError) Is(target error) bool {
	return target == ErrPartialConsistency
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}
