package validate

import (
	"sync/atomic"

	"github.com/and161185/flasheng/internal/errs"
)

// Submission marks one form as submitting. A form that passed validation
// calls Begin before its request and End once the request settles;
// Begin fails with errs.ErrSubmitting while a previous request is pending.
type Submission struct {
	busy atomic.Bool
}

func (s *Submission) Begin() error {
	if !s.busy.CompareAndSwap(false, true) {
		return errs.ErrSubmitting
	}
	return nil
}

func (s *Submission) End() { s.busy.Store(false) }

// Submitting reports whether a request is pending.
func (s *Submission) Submitting() bool { return s.busy.Load() }
