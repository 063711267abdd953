package automation

import (
	"time"

	"github.com/google/uuid"
)

// TriggerSequence expands a sequence into concrete scheduled rows for one
// target, one row per active qualifying step.
//
// The anchor is the instant step delays are relative to. For trigger-moment
// workflows that is the moment of the business event; for payment
// collection it is the due date, so negative delays land before it. The
// caller always picks the anchor, the scheduler never guesses it from the
// sequence type.
//
// Step conditions are checked best-effort here with whatever facts exist at
// trigger time: a condition that evaluates false skips the step, one whose
// facts are not yet knowable materializes the row anyway and is re-validated
// by the delivery worker.
func (a *application) TriggerSequence(sequenceId, clientId uuid.UUID, jobId *uuid.UUID, anchor time.Time) ([]ScheduledEmail, error) {
	sequence, err := a.sequenceRepo.Get(sequenceId)
	if err != nil {
		return nil, err
	}

	if !sequence.Active {
		return nil, InactiveSequenceErr
	}

	bag, err := a.gatherFacts(clientId, jobId)
	if err != nil {
		return nil, err
	}

	created := make([]ScheduledEmail, 0, len(sequence.Steps))

	for _, step := range sequence.OrderedSteps() {
		if !step.Active {
			continue
		}

		if step.Condition != nil {
			if holds, known := step.Condition.Evaluate(bag); known && !holds {
				continue
			}
		}

		exists, err := a.scheduledRepo.ExistsForStep(sequence.Id, step.Id, clientId, jobId)
		if err != nil {
			return created, err
		}

		if exists {
			a.logger.
				WithField("sequenceId", sequence.Id).
				WithField("stepId", step.Id).
				WithField("clientId", clientId).
				Debug("step already materialized for target, skipping")

			continue
		}

		now := time.Now()
		seqId := sequence.Id
		stepId := step.Id

		email := ScheduledEmail{
			Id:             uuid.New(),
			TemplateId:     step.TemplateId,
			ClientId:       clientId,
			JobId:          jobId,
			SequenceId:     &seqId,
			SequenceStepId: &stepId,
			Condition:      step.Condition,
			ScheduledAt:    anchor.AddDate(0, 0, step.DelayDays),
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := a.scheduledRepo.Create(&email); err != nil {
			return created, err
		}

		created = append(created, email)
	}

	return created, nil
}

// TriggerEvent fires every active sequence bound to the given business
// event, e.g. "lead_created" or "job_completed".
func (a *application) TriggerEvent(event string, clientId uuid.UUID, jobId *uuid.UUID, anchor time.Time) ([]ScheduledEmail, error) {
	sequences, err := a.sequenceRepo.GetByTrigger(event)
	if err != nil {
		return nil, err
	}

	var created []ScheduledEmail

	for _, sequence := range sequences {
		if !sequence.Active {
			continue
		}

		emails, err := a.TriggerSequence(sequence.Id, clientId, jobId, anchor)
		if err != nil {
			return created, err
		}

		created = append(created, emails...)
	}

	return created, nil
}
