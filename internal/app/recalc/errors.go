package recalc

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel kinds for recalculation errors.
var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrPartialFailure = errors.New("partial failure")
	ErrClosed         = errors.New("recalculator closed")
)

// PartialFailureError reports members whose records could not be persisted
// while the rest of the cohort was written.
type PartialFailureError struct {
	GroupID  string
	Failures map[string]error
}

// MemberIDs returns the failed member ids in order.
func (e *PartialFailureError) MemberIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *PartialFailureError) Error() string {
	ids := e.MemberIDs()
	return fmt.Sprintf("recalculate %s: %d members not persisted: %s", e.GroupID, len(ids), strings.Join(ids, ","))
}

func (e *PartialFailureError) Unwrap() error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrPartialFailure)
	for _, id := range e.MemberIDs() {
		errs = append(errs, e.Failures[id])
	}
	return errors.Join(errs...)
}
