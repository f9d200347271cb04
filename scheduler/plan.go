package scheduler

import "fmt"

// WaitPeriod is one step of an interval plan: how many days after the
// previous email the given follow-up should fire.
type WaitPeriod struct {
	FollowupNumber int `json:"followup_number"`
	Days           int `json:"days"`
}

// IntervalPlan is the ordered wait-days table for a sequence, one entry per
// follow-up number 1..MaxFollowups. Built once per scheduling pass and
// read-only afterwards.
type IntervalPlan struct {
	steps map[int]int
	max   int
}

// NewIntervalPlan validates the steps and builds the lookup table.
// Follow-up numbers must be contiguous starting at 1, with no duplicates
// and no negative wait days.
func NewIntervalPlan(steps []WaitPeriod) (*IntervalPlan, error) {
	table := make(map[int]int, len(steps))
	for _, step := range steps {
		if step.FollowupNumber < 1 {
			return nil, fmt.Errorf("invalid follow-up number %d", step.FollowupNumber)
		}
		if step.Days < 0 {
			return nil, fmt.Errorf("negative wait days for follow-up %d", step.FollowupNumber)
		}
		if _, exists := table[step.FollowupNumber]; exists {
			return nil, fmt.Errorf("duplicate follow-up number %d", step.FollowupNumber)
		}
		table[step.FollowupNumber] = step.Days
	}
	for n := 1; n <= len(steps); n++ {
		if _, ok := table[n]; !ok {
			return nil, fmt.Errorf("follow-up numbers not contiguous: missing step %d", n)
		}
	}
	return &IntervalPlan{steps: table, max: len(steps)}, nil
}

// MaxFollowups is the number of follow-up steps the plan allows.
func (p *IntervalPlan) MaxFollowups() int { return p.max }

// WaitDays returns the configured wait for the given follow-up number.
// WaitDays(0) is 0: there is no wait before the initial email.
func (p *IntervalPlan) WaitDays(followupNumber int) (int, error) {
	if followupNumber == 0 {
		return 0, nil
	}
	days, ok := p.steps[followupNumber]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrStepNotFound, followupNumber)
	}
	return days, nil
}
