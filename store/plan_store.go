package store

import (
	"gorm.io/gorm"

	"cadence/models"
	"cadence/scheduler"
)

// PlanStore loads a sequence's steps as an interval plan. It implements
// scheduler.IntervalPlanProvider for a single sequence.
type PlanStore struct {
	DB         *gorm.DB
	SequenceID uint
}

func NewPlanStore(db *gorm.DB, sequenceID uint) *PlanStore {
	return &PlanStore{DB: db, SequenceID: sequenceID}
}

func (ps *PlanStore) GetPlan() (*scheduler.IntervalPlan, error) {
	var steps []models.SequenceStep
	if err := ps.DB.
		Where("sequence_id = ?", ps.SequenceID).
		Order("followup_number ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}

	periods := make([]scheduler.WaitPeriod, 0, len(steps))
	for _, step := range steps {
		periods = append(periods, scheduler.WaitPeriod{
			FollowupNumber: step.FollowupNumber,
			Days:           step.WaitDays,
		})
	}
	return scheduler.NewIntervalPlan(periods)
}
