package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ProcessPendingEmails is the delivery worker entry point, invoked by a
// periodic job runner or by the internal polling loop. It visits every due
// pending row once; a failure on one row never aborts the rest of the pass.
// Returns the number of rows that reached sent during this pass.
func (a *application) ProcessPendingEmails(ctx context.Context, now time.Time) (int, error) {
	due, err := a.scheduledRepo.GetDuePending(now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load due scheduled emails")
	}

	sent := 0

	for i := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		ok, err := a.processOne(ctx, &due[i], now)
		if err != nil {
			a.logger.
				WithField("scheduledEmailId", due[i].Id).
				WithField("templateId", due[i].TemplateId).
				WithError(err).
				Error("failed to process scheduled email")

			continue
		}

		if ok {
			sent++
		}
	}

	return sent, nil
}

// processOne attempts delivery of a single due row. The claim is a
// check-and-set pending -> sending transition, so overlapping passes make
// at most one transport call per row.
//
// Outcomes:
//   - claim lost: another worker owns the row, nothing to do
//   - gating condition unmet or unknowable: row released back to pending
//     and retried on a later pass once the facts change
//   - missing template or missing client: row marked failed, terminal
//   - transport error: row released back to pending, retried by re-polling
//   - transport success: row marked sent with SentAt set exactly once
func (a *application) processOne(ctx context.Context, email *ScheduledEmail, now time.Time) (bool, error) {
	claimed, err := a.scheduledRepo.Claim(email.Id)
	if err != nil {
		return false, errors.Wrap(err, "failed to claim scheduled email")
	}

	if !claimed {
		return false, nil
	}

	email.Status = StatusSending

	bag, err := a.gatherFacts(email.ClientId, email.JobId)
	if err != nil {
		if errors.Cause(err) == ClientNotFoundErr {
			return false, a.markFailed(email, "client record no longer exists")
		}

		return false, a.release(email, err)
	}

	if email.Condition != nil {
		holds, known := email.Condition.Evaluate(bag)
		if !known || !holds {
			// Wait-for-precondition: the row stays pending and is
			// revisited on the next pass, indefinitely.
			a.logger.
				WithField("scheduledEmailId", email.Id).
				WithField("condition", email.Condition.Field).
				Debug("gating condition not met, deferring")

			return false, a.release(email, nil)
		}
	}

	template, err := a.templateRepo.Get(email.TemplateId)
	if err != nil {
		if err == TemplateNotFoundErr {
			return false, a.markFailed(email, "template "+email.TemplateId.String()+" does not exist")
		}

		return false, a.release(email, err)
	}

	subject, body := a.renderer.Render(template, bag)

	messageId, err := a.transport.Send(ctx, bag.Client.Email, a.from, subject, body, a.replyTo)
	if err != nil {
		a.logger.
			WithField("scheduledEmailId", email.Id).
			WithField("templateId", template.Id).
			WithError(err).
			Warn("transport failed, will retry on next pass")

		return false, a.release(email, nil)
	}

	email.Status = StatusSent
	email.SentAt = &now
	email.MessageId = messageId
	email.LastError = ""
	email.UpdatedAt = now

	if err := a.scheduledRepo.Update(email); err != nil {
		return false, errors.Wrap(err, "message sent but failed to persist sent state")
	}

	return true, nil
}

// release hands a claimed row back to the pending pool.
func (a *application) release(email *ScheduledEmail, cause error) error {
	email.Status = StatusPending
	email.UpdatedAt = time.Now()

	if cause != nil {
		email.LastError = cause.Error()
	}

	if err := a.scheduledRepo.Update(email); err != nil {
		return errors.Wrap(err, "failed to release claimed scheduled email")
	}

	return cause
}

// markFailed parks an unrenderable row in its terminal failed state so a
// misconfigured sequence does not retry forever.
func (a *application) markFailed(email *ScheduledEmail, reason string) error {
	email.Status = StatusFailed
	email.LastError = reason
	email.UpdatedAt = time.Now()

	if err := a.scheduledRepo.Update(email); err != nil {
		return errors.Wrap(err, "failed to persist failed state")
	}

	return errors.New(reason)
}

// gatherFacts assembles the data bag for a target. The client must exist;
// job, payment and gallery are attached when present and silently absent
// otherwise.
func (a *application) gatherFacts(clientId uuid.UUID, jobId *uuid.UUID) (DataBag, error) {
	bag := DataBag{}

	client, err := a.clients.Get(clientId)
	if err != nil {
		if err == ClientNotFoundErr {
			return bag, ClientNotFoundErr
		}

		return bag, errors.Wrap(err, "failed to load client")
	}

	bag.Client = &client

	if jobId == nil {
		return bag, nil
	}

	if a.jobs != nil {
		job, err := a.jobs.Get(*jobId)
		switch err {
		case nil:
			bag.Job = &job

		case JobNotFoundErr:
			// Leave the job facts out of the bag.

		default:
			return bag, errors.Wrap(err, "failed to load job")
		}
	}

	if a.payments != nil {
		payment, err := a.payments.GetForJob(*jobId)
		switch err {
		case nil:
			bag.Payment = &payment

		case PaymentNotFoundErr:

		default:
			return bag, errors.Wrap(err, "failed to load payment")
		}
	}

	if a.galleries != nil {
		gallery, err := a.galleries.Get(*jobId)
		switch err {
		case nil:
			bag.Gallery = &gallery

		case GalleryNotFoundErr:

		default:
			return bag, errors.Wrap(err, "failed to load gallery")
		}
	}

	return bag, nil
}

// MarkOpened records open telemetry for a sent row. Safe to call more than
// once, only the first open is kept.
func (a *application) MarkOpened(id uuid.UUID, at time.Time) error {
	email, err := a.scheduledRepo.Get(id)
	if err != nil {
		return err
	}

	if email.OpenedAt != nil {
		return nil
	}

	email.OpenedAt = &at
	email.UpdatedAt = time.Now()

	return a.scheduledRepo.Update(&email)
}

// MarkClicked records click telemetry for a sent row. A click implies an
// open, so an unset OpenedAt is backfilled.
func (a *application) MarkClicked(id uuid.UUID, at time.Time) error {
	email, err := a.scheduledRepo.Get(id)
	if err != nil {
		return err
	}

	if email.ClickedAt != nil {
		return nil
	}

	email.ClickedAt = &at
	if email.OpenedAt == nil {
		email.OpenedAt = &at
	}
	email.UpdatedAt = time.Now()

	return a.scheduledRepo.Update(&email)
}
