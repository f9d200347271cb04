package scheduler

import (
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func initialRecord(status EmailStatus, threadID string) EmailRecord {
	return EmailRecord{ID: 1, Category: CategoryInitial, Status: status, ThreadID: threadID, ScheduledAt: day(0)}
}

func followupRecord(number int, status EmailStatus, scheduledAt time.Time) EmailRecord {
	initialID := uint(1)
	return EmailRecord{
		ID:             uint(10 + number),
		Category:       CategoryFollowUp,
		FollowupNumber: number,
		Status:         status,
		InitialEmailID: &initialID,
		ScheduledAt:    scheduledAt,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name            string
		history         History
		currentFollowup int
		maxFollowups    int
		want            State
	}{
		{
			name:         "empty history",
			history:      nil,
			maxFollowups: 4,
			want:         NoEmailsScheduled,
		},
		{
			name: "max reached wins over stale pending",
			history: History{
				initialRecord(StatusSent, "thr-1"),
				followupRecord(4, StatusPending, day(12)),
			},
			currentFollowup: 4,
			maxFollowups:    4,
			want:            MaxFollowupsReached,
		},
		{
			name:            "max reached with empty history and zero-step plan",
			history:         nil,
			currentFollowup: 0,
			maxFollowups:    0,
			want:            MaxFollowupsReached,
		},
		{
			name:         "pending initial alone",
			history:      History{initialRecord(StatusPending, "")},
			maxFollowups: 4,
			want:         InitialEmailScheduled,
		},
		{
			name: "initial and first followup both pending",
			history: History{
				initialRecord(StatusPending, ""),
				followupRecord(1, StatusPending, day(3)),
			},
			currentFollowup: 1,
			maxFollowups:    4,
			want:            NoSchedulingRequired,
		},
		{
			name: "sent initial with pending first followup",
			history: History{
				initialRecord(StatusSent, "thr-1"),
				followupRecord(1, StatusPending, day(3)),
			},
			currentFollowup: 1,
			maxFollowups:    4,
			want:            InitialEmailScheduled,
		},
		{
			name:         "sent initial with nothing queued",
			history:      History{initialRecord(StatusSent, "thr-1")},
			maxFollowups: 4,
			want:         InitialEmailScheduled,
		},
		{
			name: "later followup already queued",
			history: History{
				initialRecord(StatusSent, "thr-1"),
				followupRecord(1, StatusSent, day(3)),
				followupRecord(2, StatusPending, day(8)),
			},
			currentFollowup: 2,
			maxFollowups:    4,
			want:            NoSchedulingRequired,
		},
		{
			name: "past first followup with nothing queued",
			history: History{
				initialRecord(StatusSent, "thr-1"),
				followupRecord(1, StatusSent, day(3)),
			},
			currentFollowup: 1,
			maxFollowups:    4,
			want:            FirstFollowupScheduled,
		},
		{
			name: "cancelled and failed records are invisible",
			history: History{
				initialRecord(StatusSent, "thr-1"),
				followupRecord(1, StatusFailed, day(3)),
				followupRecord(2, StatusCancelled, day(8)),
			},
			currentFollowup: 2,
			maxFollowups:    4,
			want:            InitialEmailScheduled,
		},
		{
			name: "history of only inactive records counts as empty",
			history: History{
				{Category: CategoryInitial, Status: StatusCancelled, ScheduledAt: day(0)},
			},
			currentFollowup: 0,
			maxFollowups:    4,
			want:            NoEmailsScheduled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.history, tc.currentFollowup, tc.maxFollowups)
			if got != tc.want {
				t.Errorf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}
