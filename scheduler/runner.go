package scheduler

import (
	"fmt"
	"log"
	"time"
)

// HistoryProvider answers questions about a recipient's recorded emails.
// The GORM-backed implementation lives in the store package; tests supply
// in-memory doubles.
type HistoryProvider interface {
	GetHistory(recipientID uint) (History, error)
	GetCurrentFollowupNumber(recipientID uint) (int, error)
	GetLastEmailDate(recipientID uint) (time.Time, error)
}

// IntervalPlanProvider supplies the interval plan for the sequence being
// scheduled.
type IntervalPlanProvider interface {
	GetPlan() (*IntervalPlan, error)
}

// Recipient is the scheduling view of a contact: just the identity and the
// configured first-contact date.
type Recipient struct {
	ID               uint
	Email            string
	InitialContactAt *time.Time
}

// SchedulingResult aggregates the emails produced by a scheduling pass.
// Callers persist and send them; the scheduler itself never does either.
type SchedulingResult struct {
	InitialEmails  []ScheduledEmail
	FollowupEmails []ScheduledEmail
	Skipped        int
}

func (r *SchedulingResult) add(emails []ScheduledEmail) {
	for _, email := range emails {
		if email.Category == CategoryInitial {
			r.InitialEmails = append(r.InitialEmails, email)
		} else {
			r.FollowupEmails = append(r.FollowupEmails, email)
		}
	}
}

// Total is the number of emails produced across both categories.
func (r *SchedulingResult) Total() int {
	return len(r.InitialEmails) + len(r.FollowupEmails)
}

// Runner walks a batch of recipients through classification and the
// decision engine. Collaborators are injected so tests can substitute
// doubles for the history and plan stores.
type Runner struct {
	History HistoryProvider
	Plans   IntervalPlanProvider
	Logger  *log.Logger
}

func NewRunner(history HistoryProvider, plans IntervalPlanProvider, logger *log.Logger) *Runner {
	return &Runner{
		History: history,
		Plans:   plans,
		Logger:  logger,
	}
}

// ScheduleOne runs a single recipient through the state machine and returns
// the emails to create. Re-running it against the history that includes its
// own output produces nothing new.
func (r *Runner) ScheduleOne(recipient Recipient) (SchedulingResult, error) {
	plan, err := r.Plans.GetPlan()
	if err != nil {
		return SchedulingResult{}, fmt.Errorf("interval plan unavailable: %w", err)
	}
	return r.scheduleWithPlan(plan, recipient)
}

// ScheduleBatch schedules every recipient independently. A failing
// recipient is logged and skipped; it never aborts the rest of the batch.
// Only a systemic failure (the plan provider itself unreachable) is
// returned as an error.
func (r *Runner) ScheduleBatch(recipients []Recipient) (SchedulingResult, error) {
	var result SchedulingResult
	if len(recipients) == 0 {
		return result, nil
	}

	plan, err := r.Plans.GetPlan()
	if err != nil {
		return result, fmt.Errorf("interval plan unavailable: %w", err)
	}

	for _, recipient := range recipients {
		one, err := r.scheduleWithPlan(plan, recipient)
		if err != nil {
			r.Logger.Printf("Skipping recipient %d (%s): %v", recipient.ID, recipient.Email, err)
			result.Skipped++
			continue
		}
		result.add(one.InitialEmails)
		result.add(one.FollowupEmails)
	}
	return result, nil
}

func (r *Runner) scheduleWithPlan(plan *IntervalPlan, recipient Recipient) (SchedulingResult, error) {
	var result SchedulingResult

	history, err := r.History.GetHistory(recipient.ID)
	if err != nil {
		return result, &LookupFailure{RecipientID: recipient.ID, Op: "fetch history", Err: err}
	}

	currentFollowup, err := r.History.GetCurrentFollowupNumber(recipient.ID)
	if err != nil {
		return result, &LookupFailure{RecipientID: recipient.ID, Op: "fetch current follow-up number", Err: err}
	}

	state := Classify(history, currentFollowup, plan.MaxFollowups())

	input := DecisionInput{
		RecipientID:      recipient.ID,
		State:            state,
		Plan:             plan,
		CurrentFollowup:  currentFollowup,
		InitialContactAt: recipient.InitialContactAt,
		ThreadID:         history.ThreadID(),
	}
	if initial := history.Initial(); initial != nil {
		id := initial.ID
		input.InitialEmailID = &id
	}
	if state == InitialEmailScheduled || state == FirstFollowupScheduled {
		lastDate, err := r.History.GetLastEmailDate(recipient.ID)
		if err != nil {
			return result, &LookupFailure{RecipientID: recipient.ID, Op: "fetch last email date", Err: err}
		}
		input.LastEmailDate = lastDate
	}

	emails, err := Decide(input)
	if err != nil {
		return result, err
	}
	result.add(emails)
	return result, nil
}
