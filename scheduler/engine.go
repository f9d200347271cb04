package scheduler

import "time"

// ScheduledEmail is a new email the engine has decided to create. Content
// is rendered later by the template collaborator; the engine only fixes
// structure and timing. Values are never mutated after creation.
type ScheduledEmail struct {
	RecipientID    uint
	Category       EmailCategory
	FollowupNumber int
	InitialEmailID *uint
	ThreadID       string
	ScheduledAt    time.Time
}

// DecisionInput carries everything the engine needs for one recipient:
// the classified state, the interval plan and the relevant facts pulled
// from the recipient's history.
type DecisionInput struct {
	RecipientID      uint
	State            State
	Plan             *IntervalPlan
	CurrentFollowup  int
	InitialContactAt *time.Time
	LastEmailDate    time.Time
	InitialEmailID   *uint
	ThreadID         string
}

// Decide maps a scheduling state to the concrete emails to create.
//
//   - NoEmailsScheduled books the initial email and the first follow-up
//     together, so the pipeline is never left with a follow-up-less initial.
//   - InitialEmailScheduled books exactly the next follow-up.
//   - FirstFollowupScheduled books the next two follow-ups, chained off each
//     other, both carrying the thread id.
//   - MaxFollowupsReached and NoSchedulingRequired book nothing.
func Decide(in DecisionInput) ([]ScheduledEmail, error) {
	switch in.State {
	case MaxFollowupsReached, NoSchedulingRequired:
		return nil, nil

	case NoEmailsScheduled:
		if in.InitialContactAt == nil {
			return nil, &ValidationError{RecipientID: in.RecipientID, Reason: "no initial contact date set"}
		}
		initialDate := *in.InitialContactAt
		firstFollowup, err := in.followupAfter(initialDate, 1)
		if err != nil {
			return nil, err
		}
		initial := ScheduledEmail{
			RecipientID: in.RecipientID,
			Category:    CategoryInitial,
			ScheduledAt: initialDate,
		}
		return []ScheduledEmail{initial, firstFollowup}, nil

	case InitialEmailScheduled:
		next, err := in.followupAfter(in.LastEmailDate, in.CurrentFollowup+1)
		if err != nil {
			return nil, err
		}
		return []ScheduledEmail{next}, nil

	case FirstFollowupScheduled:
		first, err := in.followupAfter(in.LastEmailDate, in.CurrentFollowup+1)
		if err != nil {
			return nil, err
		}
		emails := []ScheduledEmail{first}
		if in.CurrentFollowup+2 <= in.Plan.MaxFollowups() {
			second, err := in.followupAfter(first.ScheduledAt, in.CurrentFollowup+2)
			if err != nil {
				return nil, err
			}
			emails = append(emails, second)
		}
		return emails, nil
	}

	return nil, &InvariantError{RecipientID: in.RecipientID, Detail: "unknown scheduling state " + string(in.State)}
}

func (in DecisionInput) followupAfter(after time.Time, number int) (ScheduledEmail, error) {
	if number > in.Plan.MaxFollowups() {
		return ScheduledEmail{}, &InvariantError{
			RecipientID: in.RecipientID,
			Detail:      "follow-up number past the plan cap",
		}
	}
	days, err := in.Plan.WaitDays(number)
	if err != nil {
		return ScheduledEmail{}, &LookupFailure{RecipientID: in.RecipientID, Op: "interval plan lookup", Err: err}
	}
	return ScheduledEmail{
		RecipientID:    in.RecipientID,
		Category:       CategoryFollowUp,
		FollowupNumber: number,
		InitialEmailID: in.InitialEmailID,
		ThreadID:       in.ThreadID,
		ScheduledAt:    after.AddDate(0, 0, days),
	}, nil
}
