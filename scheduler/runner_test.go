package scheduler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"
)

// memoryHistory is an in-memory HistoryProvider that can also absorb the
// runner's output, so tests can replay the full lifecycle of a recipient.
type memoryHistory struct {
	histories map[uint]History
	failFor   map[uint]error
	nextID    uint
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{
		histories: make(map[uint]History),
		failFor:   make(map[uint]error),
		nextID:    100,
	}
}

func (m *memoryHistory) GetHistory(recipientID uint) (History, error) {
	if err := m.failFor[recipientID]; err != nil {
		return nil, err
	}
	return m.histories[recipientID], nil
}

func (m *memoryHistory) GetCurrentFollowupNumber(recipientID uint) (int, error) {
	if err := m.failFor[recipientID]; err != nil {
		return 0, err
	}
	highest := 0
	for _, rec := range m.histories[recipientID].Active() {
		if rec.FollowupNumber > highest {
			highest = rec.FollowupNumber
		}
	}
	return highest, nil
}

func (m *memoryHistory) GetLastEmailDate(recipientID uint) (time.Time, error) {
	if err := m.failFor[recipientID]; err != nil {
		return time.Time{}, err
	}
	var last time.Time
	for _, rec := range m.histories[recipientID].Active() {
		if rec.ScheduledAt.After(last) {
			last = rec.ScheduledAt
		}
	}
	if last.IsZero() {
		return time.Time{}, ErrRecipientNotFound
	}
	return last, nil
}

// persist appends the runner's output as pending records, the way the
// store layer would, linking fresh follow-ups to their initial.
func (m *memoryHistory) persist(result SchedulingResult) {
	var initialID *uint
	for _, email := range result.InitialEmails {
		m.nextID++
		id := m.nextID
		initialID = &id
		m.histories[email.RecipientID] = append(m.histories[email.RecipientID], EmailRecord{
			ID:          id,
			Category:    CategoryInitial,
			Status:      StatusPending,
			ScheduledAt: email.ScheduledAt,
		})
	}
	for _, email := range result.FollowupEmails {
		m.nextID++
		ref := email.InitialEmailID
		if ref == nil {
			ref = initialID
		}
		m.histories[email.RecipientID] = append(m.histories[email.RecipientID], EmailRecord{
			ID:             m.nextID,
			Category:       CategoryFollowUp,
			FollowupNumber: email.FollowupNumber,
			Status:         StatusPending,
			ThreadID:       email.ThreadID,
			InitialEmailID: ref,
			ScheduledAt:    email.ScheduledAt,
		})
	}
}

// markNextSent flips the earliest pending record to sent, assigning the
// thread id on the initial the way the dispatcher does.
func (m *memoryHistory) markNextSent(recipientID uint, threadID string) bool {
	history := m.histories[recipientID]
	for i := range history {
		if history[i].Status != StatusPending {
			continue
		}
		history[i].Status = StatusSent
		if history[i].Category == CategoryInitial {
			history[i].ThreadID = threadID
		}
		return true
	}
	return false
}

type staticPlans struct {
	plan *IntervalPlan
	err  error
}

func (s staticPlans) GetPlan() (*IntervalPlan, error) { return s.plan, s.err }

func quietRunner(history HistoryProvider, plans IntervalPlanProvider) *Runner {
	return NewRunner(history, plans, log.New(io.Discard, "", 0))
}

func fourStepPlan(t *testing.T) *IntervalPlan {
	t.Helper()
	return testPlan(t, WaitPeriod{1, 3}, WaitPeriod{2, 4}, WaitPeriod{3, 5}, WaitPeriod{4, 7})
}

func TestScheduleOneFirstContact(t *testing.T) {
	history := newMemoryHistory()
	runner := quietRunner(history, staticPlans{plan: fourStepPlan(t)})
	start := day(0)

	result, err := runner.ScheduleOne(Recipient{ID: 7, Email: "lead@example.com", InitialContactAt: &start})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.InitialEmails) != 1 || len(result.FollowupEmails) != 1 {
		t.Fatalf("expected one initial and one follow-up, got %d/%d",
			len(result.InitialEmails), len(result.FollowupEmails))
	}
	if !result.InitialEmails[0].ScheduledAt.Equal(day(0)) {
		t.Errorf("initial scheduled at %v, want day 0", result.InitialEmails[0].ScheduledAt)
	}
	if !result.FollowupEmails[0].ScheduledAt.Equal(day(3)) {
		t.Errorf("follow-up scheduled at %v, want day 3", result.FollowupEmails[0].ScheduledAt)
	}
}

func TestScheduleOneIsIdempotent(t *testing.T) {
	history := newMemoryHistory()
	runner := quietRunner(history, staticPlans{plan: fourStepPlan(t)})
	start := day(0)
	recipient := Recipient{ID: 7, Email: "lead@example.com", InitialContactAt: &start}

	first, err := runner.ScheduleOne(recipient)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	history.persist(first)

	second, err := runner.ScheduleOne(recipient)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Total() != 0 {
		t.Errorf("second pass produced %d emails, want 0", second.Total())
	}
}

func TestScheduleOneAfterInitialSent(t *testing.T) {
	// Sent initial on day 0, pending follow-up #1 on day 3: exactly one
	// follow-up #2 comes out, dated day 3 plus wait_days(2).
	history := newMemoryHistory()
	history.histories[7] = History{
		initialRecord(StatusSent, "thr-7"),
		followupRecord(1, StatusPending, day(3)),
	}
	runner := quietRunner(history, staticPlans{plan: fourStepPlan(t)})

	result, err := runner.ScheduleOne(Recipient{ID: 7, Email: "lead@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.InitialEmails) != 0 || len(result.FollowupEmails) != 1 {
		t.Fatalf("expected a single follow-up, got %d/%d",
			len(result.InitialEmails), len(result.FollowupEmails))
	}
	followup := result.FollowupEmails[0]
	if followup.FollowupNumber != 2 {
		t.Errorf("follow-up number = %d, want 2", followup.FollowupNumber)
	}
	if !followup.ScheduledAt.Equal(day(7)) {
		t.Errorf("scheduled at %v, want day 7", followup.ScheduledAt)
	}
	if followup.ThreadID != "thr-7" {
		t.Errorf("thread id = %q, want thr-7", followup.ThreadID)
	}
}

func TestScheduleOneAtCap(t *testing.T) {
	history := newMemoryHistory()
	history.histories[7] = History{
		initialRecord(StatusSent, "thr-7"),
		followupRecord(1, StatusSent, day(3)),
		followupRecord(2, StatusSent, day(7)),
		followupRecord(3, StatusSent, day(12)),
		followupRecord(4, StatusSent, day(19)),
	}
	runner := quietRunner(history, staticPlans{plan: fourStepPlan(t)})

	result, err := runner.ScheduleOne(Recipient{ID: 7, Email: "lead@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("expected nothing at the cap, got %d emails", result.Total())
	}
}

func TestLifecycleNumbersMonotonicAndCapped(t *testing.T) {
	// Drive one recipient through the whole sequence: schedule, persist,
	// send, repeat. Follow-up numbers must increase without gaps or
	// repeats and never pass the cap.
	history := newMemoryHistory()
	plan := fourStepPlan(t)
	runner := quietRunner(history, staticPlans{plan: plan})
	start := day(0)
	recipient := Recipient{ID: 7, Email: "lead@example.com", InitialContactAt: &start}

	seen := make(map[int]bool)
	highest := 0
	for pass := 0; pass < 20; pass++ {
		result, err := runner.ScheduleOne(recipient)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if result.Total() > 2 {
			t.Fatalf("pass %d produced %d emails, never more than two expected", pass, result.Total())
		}
		for _, email := range result.FollowupEmails {
			n := email.FollowupNumber
			if n > plan.MaxFollowups() {
				t.Fatalf("follow-up #%d exceeds cap %d", n, plan.MaxFollowups())
			}
			if seen[n] {
				t.Fatalf("follow-up #%d scheduled twice", n)
			}
			if n != highest+1 {
				t.Fatalf("follow-up numbering skipped: got #%d after #%d", n, highest)
			}
			seen[n] = true
			highest = n
		}
		history.persist(result)
		if !history.markNextSent(recipient.ID, "thr-7") && result.Total() == 0 {
			break
		}
	}

	if highest != plan.MaxFollowups() {
		t.Errorf("sequence stopped at follow-up #%d, want %d", highest, plan.MaxFollowups())
	}
	final, err := runner.ScheduleOne(recipient)
	if err != nil {
		t.Fatalf("final pass: %v", err)
	}
	if final.Total() != 0 {
		t.Errorf("completed sequence still produced %d emails", final.Total())
	}
}

func TestScheduleBatchIsolatesFailures(t *testing.T) {
	history := newMemoryHistory()
	history.failFor[3] = fmt.Errorf("storage offline")
	runner := quietRunner(history, staticPlans{plan: fourStepPlan(t)})
	start := day(0)

	batch := []Recipient{
		{ID: 1, Email: "a@example.com", InitialContactAt: &start},
		{ID: 2, Email: "b@example.com"}, // no contact date: validation failure
		{ID: 3, Email: "c@example.com", InitialContactAt: &start}, // lookup failure
		{ID: 4, Email: "d@example.com", InitialContactAt: &start},
	}

	result, err := runner.ScheduleBatch(batch)
	if err != nil {
		t.Fatalf("batch must not fail for individual recipients: %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", result.Skipped)
	}
	if len(result.InitialEmails) != 2 || len(result.FollowupEmails) != 2 {
		t.Errorf("expected output for the two valid recipients, got %d/%d",
			len(result.InitialEmails), len(result.FollowupEmails))
	}
	for _, email := range append(result.InitialEmails, result.FollowupEmails...) {
		if email.RecipientID == 2 || email.RecipientID == 3 {
			t.Errorf("failed recipient %d leaked into the result", email.RecipientID)
		}
	}
}

func TestScheduleBatchEmptyInput(t *testing.T) {
	runner := quietRunner(newMemoryHistory(), staticPlans{plan: fourStepPlan(t)})

	for _, batch := range [][]Recipient{nil, {}} {
		result, err := runner.ScheduleBatch(batch)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result.Total() != 0 || result.Skipped != 0 {
			t.Errorf("empty batch produced %d emails, %d skipped", result.Total(), result.Skipped)
		}
	}
}

func TestScheduleBatchPlanUnreachable(t *testing.T) {
	runner := quietRunner(newMemoryHistory(), staticPlans{err: errors.New("plan store down")})
	start := day(0)

	_, err := runner.ScheduleBatch([]Recipient{{ID: 1, InitialContactAt: &start}})
	if err == nil {
		t.Fatal("expected systemic plan failure to propagate")
	}
}

func TestScheduleOneWrapsLookupFailures(t *testing.T) {
	history := newMemoryHistory()
	history.failFor[7] = errors.New("connection reset")
	runner := quietRunner(history, staticPlans{plan: fourStepPlan(t)})

	_, err := runner.ScheduleOne(Recipient{ID: 7, Email: "lead@example.com"})
	var lookup *LookupFailure
	if !errors.As(err, &lookup) {
		t.Fatalf("expected LookupFailure, got %v", err)
	}
	if lookup.RecipientID != 7 {
		t.Errorf("failure recipient = %d, want 7", lookup.RecipientID)
	}
}
