package scheduler

// State is the classifier's verdict on what, if anything, should be
// scheduled next for a recipient. It is recomputed from current data on
// every pass, never persisted.
type State string

const (
	// NoEmailsScheduled: the recipient has no history at all.
	NoEmailsScheduled State = "no_emails_scheduled"

	// InitialEmailScheduled: the sequence is in its opening stage (initial
	// email, possibly the first follow-up) and the next step can be booked.
	InitialEmailScheduled State = "initial_email_scheduled"

	// FirstFollowupScheduled: the sequence is past its first follow-up with
	// nothing queued; the next two steps are booked together.
	FirstFollowupScheduled State = "first_followup_scheduled"

	// NoSchedulingRequired: a later step is already queued, nothing to add.
	NoSchedulingRequired State = "no_scheduling_required"

	// MaxFollowupsReached: the follow-up cap is hit; suppresses everything
	// else, including stale pending records.
	MaxFollowupsReached State = "max_followups_reached"
)

// Classify maps a recipient's email history to a scheduling state.
// currentFollowup is the highest follow-up number already recorded (0 if
// only an initial email or nothing exists), maxFollowups the plan's cap.
//
// The checks run in a fixed precedence order. The cap check comes first and
// always wins, so a stale pending record can never cause scheduling past
// the cap. The remaining checks are deliberately conservative: no state may
// lead the decision engine to create a duplicate pending email for a
// follow-up number that already has one.
func Classify(history History, currentFollowup, maxFollowups int) State {
	if currentFollowup >= maxFollowups {
		return MaxFollowupsReached
	}

	active := history.Active()
	if len(active) == 0 {
		return NoEmailsScheduled
	}

	last := active.Last()

	if last.Status == StatusPending {
		if last.Category == CategoryInitial {
			// Initial queued on its own, first follow-up not booked yet.
			return InitialEmailScheduled
		}
		if last.FollowupNumber == 1 {
			prev := active.SecondToLast()
			if prev != nil && prev.Status == StatusPending {
				// Initial and first follow-up both still queued.
				return NoSchedulingRequired
			}
			// Initial already went out, first follow-up queued: the second
			// follow-up can be booked behind it.
			return InitialEmailScheduled
		}
		// A follow-up past the first is already queued.
		return NoSchedulingRequired
	}

	// Last active record was sent and nothing is queued behind it.
	if last.Category == CategoryInitial {
		return InitialEmailScheduled
	}
	return FirstFollowupScheduled
}
