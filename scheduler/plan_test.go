package scheduler

import (
	"errors"
	"testing"
)

func TestNewIntervalPlanValidation(t *testing.T) {
	cases := []struct {
		name    string
		steps   []WaitPeriod
		wantErr bool
	}{
		{
			name:  "valid contiguous steps",
			steps: []WaitPeriod{{1, 3}, {2, 5}, {3, 7}},
		},
		{
			name:  "valid out of order input",
			steps: []WaitPeriod{{2, 5}, {1, 3}},
		},
		{
			name:  "empty plan",
			steps: nil,
		},
		{
			name:    "missing step",
			steps:   []WaitPeriod{{1, 3}, {3, 7}},
			wantErr: true,
		},
		{
			name:    "duplicate step",
			steps:   []WaitPeriod{{1, 3}, {1, 5}},
			wantErr: true,
		},
		{
			name:    "starts at zero",
			steps:   []WaitPeriod{{0, 3}},
			wantErr: true,
		},
		{
			name:    "negative wait days",
			steps:   []WaitPeriod{{1, -1}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := NewIntervalPlan(tc.steps)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got plan with %d steps", plan.MaxFollowups())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.MaxFollowups() != len(tc.steps) {
				t.Errorf("expected max %d, got %d", len(tc.steps), plan.MaxFollowups())
			}
		})
	}
}

func TestWaitDays(t *testing.T) {
	plan, err := NewIntervalPlan([]WaitPeriod{{1, 3}, {2, 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	days, err := plan.WaitDays(0)
	if err != nil || days != 0 {
		t.Errorf("WaitDays(0) = %d, %v; want 0, nil", days, err)
	}

	days, err = plan.WaitDays(2)
	if err != nil || days != 5 {
		t.Errorf("WaitDays(2) = %d, %v; want 5, nil", days, err)
	}

	if _, err := plan.WaitDays(3); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("WaitDays(3) error = %v; want ErrStepNotFound", err)
	}
	if _, err := plan.WaitDays(-1); !errors.Is(err, ErrStepNotFound) {
		t.Errorf("WaitDays(-1) error = %v; want ErrStepNotFound", err)
	}
}
