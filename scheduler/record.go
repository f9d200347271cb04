package scheduler

import "time"

// EmailCategory distinguishes the opening email of a sequence from its
// follow-ups.
type EmailCategory string

const (
	CategoryInitial  EmailCategory = "initial"
	CategoryFollowUp EmailCategory = "follow_up"
)

// EmailStatus is the lifecycle state of a recorded email. Statuses other
// than pending and sent (failed, cancelled) exist in storage but are
// invisible to the classifier.
type EmailStatus string

const (
	StatusPending   EmailStatus = "pending"
	StatusSent      EmailStatus = "sent"
	StatusFailed    EmailStatus = "failed"
	StatusCancelled EmailStatus = "cancelled"
)

// EmailRecord is one element of a recipient's email history, read-only to
// the scheduler. FollowupNumber is 0 for the initial email. ThreadID is
// empty until the initial email has actually been transmitted.
type EmailRecord struct {
	ID             uint
	Category       EmailCategory
	FollowupNumber int
	Status         EmailStatus
	ThreadID       string
	InitialEmailID *uint
	ScheduledAt    time.Time
}

// History is a recipient's recorded emails, ordered by creation sequence.
// "Last" and "second to last" are meaningful only under this ordering.
type History []EmailRecord

// Active filters the history down to the records the classifier considers:
// pending and sent ones. Failed and cancelled records do not block or
// trigger scheduling.
func (h History) Active() History {
	out := make(History, 0, len(h))
	for _, rec := range h {
		if rec.Status == StatusPending || rec.Status == StatusSent {
			out = append(out, rec)
		}
	}
	return out
}

// Initial returns the initial email record, or nil if none exists.
func (h History) Initial() *EmailRecord {
	for i := range h {
		if h[i].Category == CategoryInitial {
			return &h[i]
		}
	}
	return nil
}

// Last returns the most recently recorded element, or nil for an empty
// history.
func (h History) Last() *EmailRecord {
	if len(h) == 0 {
		return nil
	}
	return &h[len(h)-1]
}

// SecondToLast returns the element before the last one, or nil.
func (h History) SecondToLast() *EmailRecord {
	if len(h) < 2 {
		return nil
	}
	return &h[len(h)-2]
}

// ThreadID returns the conversation thread of the sequence, carried on the
// initial record once it has been sent. Empty if no thread exists yet.
func (h History) ThreadID() string {
	if initial := h.Initial(); initial != nil {
		return initial.ThreadID
	}
	return ""
}
