package service

import (
	"strings"
	"time"

	"care-session-service/internal/domain"
)

// AutoCompleteStale applies the staleness policy to one session in place and
// reports whether it mutated anything. The caller commits the change.
//
// A session is stale when its check-in is strictly before now minus the
// threshold, i.e. it has been idle for two hours or more. Completed sessions
// are never touched, so re-applying the policy is a no-op.
func AutoCompleteStale(s *domain.CareSession, now time.Time) bool {
	if s.Status != domain.SessionInProgress {
		return false
	}
	cutoff := now.Add(-domain.AutoCompleteThreshold)
	if !s.CheckInTime.Before(cutoff) {
		return false
	}

	checkOut := now
	s.CheckOutTime = &checkOut
	s.Status = domain.SessionCompleted
	s.CaregiverNotes = strings.TrimSpace(s.CaregiverNotes + "\n" + domain.AutoCompleteNote)
	s.UpdatedAt = now
	return true
}
