package scheduler

import (
	"errors"
	"testing"
)

func testPlan(t *testing.T, steps ...WaitPeriod) *IntervalPlan {
	t.Helper()
	plan, err := NewIntervalPlan(steps)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	return plan
}

func TestDecideNoEmailsScheduled(t *testing.T) {
	// Scenario: empty history, max 4 follow-ups, wait_days(1)=3.
	plan := testPlan(t, WaitPeriod{1, 3}, WaitPeriod{2, 4}, WaitPeriod{3, 5}, WaitPeriod{4, 7})
	start := day(0)

	emails, err := Decide(DecisionInput{
		RecipientID:      7,
		State:            NoEmailsScheduled,
		Plan:             plan,
		InitialContactAt: &start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("expected initial plus first follow-up, got %d emails", len(emails))
	}

	initial, followup := emails[0], emails[1]
	if initial.Category != CategoryInitial || !initial.ScheduledAt.Equal(day(0)) {
		t.Errorf("initial = %+v, want initial email at day 0", initial)
	}
	if followup.Category != CategoryFollowUp || followup.FollowupNumber != 1 {
		t.Errorf("followup = %+v, want follow-up #1", followup)
	}
	if !followup.ScheduledAt.Equal(day(3)) {
		t.Errorf("follow-up scheduled at %v, want day 3", followup.ScheduledAt)
	}
}

func TestDecideNoEmailsScheduledWithoutContactDate(t *testing.T) {
	plan := testPlan(t, WaitPeriod{1, 3})

	_, err := Decide(DecisionInput{RecipientID: 7, State: NoEmailsScheduled, Plan: plan})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.RecipientID != 7 {
		t.Errorf("error recipient = %d, want 7", verr.RecipientID)
	}
}

func TestDecideInitialEmailScheduled(t *testing.T) {
	// Scenario: sent initial on day 0, pending follow-up #1 on day 3; the
	// engine books follow-up #2 at day 3 plus its wait.
	plan := testPlan(t, WaitPeriod{1, 3}, WaitPeriod{2, 4}, WaitPeriod{3, 5}, WaitPeriod{4, 7})
	initialID := uint(1)

	emails, err := Decide(DecisionInput{
		RecipientID:     7,
		State:           InitialEmailScheduled,
		Plan:            plan,
		CurrentFollowup: 1,
		LastEmailDate:   day(3),
		InitialEmailID:  &initialID,
		ThreadID:        "thr-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("expected exactly one email, got %d", len(emails))
	}
	got := emails[0]
	if got.FollowupNumber != 2 {
		t.Errorf("follow-up number = %d, want 2", got.FollowupNumber)
	}
	if !got.ScheduledAt.Equal(day(7)) {
		t.Errorf("scheduled at %v, want day 7", got.ScheduledAt)
	}
	if got.ThreadID != "thr-1" {
		t.Errorf("thread id = %q, want carried over", got.ThreadID)
	}
	if got.InitialEmailID == nil || *got.InitialEmailID != initialID {
		t.Errorf("initial email reference not carried: %+v", got.InitialEmailID)
	}
}

func TestDecideFirstFollowupScheduledBooksTwo(t *testing.T) {
	plan := testPlan(t, WaitPeriod{1, 3}, WaitPeriod{2, 4}, WaitPeriod{3, 5}, WaitPeriod{4, 7})
	initialID := uint(1)

	emails, err := Decide(DecisionInput{
		RecipientID:     7,
		State:           FirstFollowupScheduled,
		Plan:            plan,
		CurrentFollowup: 1,
		LastEmailDate:   day(3),
		InitialEmailID:  &initialID,
		ThreadID:        "thr-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("expected two chained follow-ups, got %d", len(emails))
	}
	if emails[0].FollowupNumber != 2 || emails[1].FollowupNumber != 3 {
		t.Errorf("follow-up numbers = %d, %d; want 2, 3", emails[0].FollowupNumber, emails[1].FollowupNumber)
	}
	// First chained off day 3 (+4), second off the first (+5).
	if !emails[0].ScheduledAt.Equal(day(7)) || !emails[1].ScheduledAt.Equal(day(12)) {
		t.Errorf("scheduled at %v and %v, want day 7 and day 12", emails[0].ScheduledAt, emails[1].ScheduledAt)
	}
	for _, email := range emails {
		if email.ThreadID != "thr-1" {
			t.Errorf("follow-up #%d missing thread id", email.FollowupNumber)
		}
	}
}

func TestDecideFirstFollowupScheduledClampsAtCap(t *testing.T) {
	plan := testPlan(t, WaitPeriod{1, 3}, WaitPeriod{2, 4})

	emails, err := Decide(DecisionInput{
		RecipientID:     7,
		State:           FirstFollowupScheduled,
		Plan:            plan,
		CurrentFollowup: 1,
		LastEmailDate:   day(3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("expected the second follow-up to be dropped at the cap, got %d emails", len(emails))
	}
	if emails[0].FollowupNumber != 2 {
		t.Errorf("follow-up number = %d, want 2", emails[0].FollowupNumber)
	}
}

func TestDecideQuietStates(t *testing.T) {
	plan := testPlan(t, WaitPeriod{1, 3})
	for _, state := range []State{MaxFollowupsReached, NoSchedulingRequired} {
		emails, err := Decide(DecisionInput{RecipientID: 7, State: state, Plan: plan})
		if err != nil {
			t.Errorf("state %s: unexpected error: %v", state, err)
		}
		if len(emails) != 0 {
			t.Errorf("state %s: expected no emails, got %d", state, len(emails))
		}
	}
}
