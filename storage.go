package automation

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	TemplateNotFoundErr       = errors.New("The template was not found")
	SequenceNotFoundErr       = errors.New("The sequence was not found")
	ScheduledEmailNotFoundErr = errors.New("The scheduled email was not found")
	ClientNotFoundErr         = errors.New("The client was not found")
	JobNotFoundErr            = errors.New("The job was not found")
	GalleryNotFoundErr        = errors.New("No gallery has been delivered for the job")
	PaymentNotFoundErr        = errors.New("The payment was not found")

	InactiveSequenceErr = errors.New("The sequence is not active")
	AlreadySentErr      = errors.New("The scheduled email has already been sent")
	AlreadyCancelledErr = errors.New("The scheduled email has already been cancelled")
)

type TemplateRepository interface {
	Get(id uuid.UUID) (EmailTemplate, error)
	GetAll() ([]EmailTemplate, error)

	Create(template *EmailTemplate) error
	Update(template *EmailTemplate) error
	Delete(template *EmailTemplate) error
}

type SequenceRepository interface {
	Get(id uuid.UUID) (EmailSequence, error)
	GetAll() ([]EmailSequence, error)
	GetByTrigger(event string) ([]EmailSequence, error)

	Create(sequence *EmailSequence) error
	Update(sequence *EmailSequence) error
	Delete(sequence *EmailSequence) error
}

// ScheduledEmailRepository is the durable delivery queue. Claim and Cancel
// are check-and-set transitions: they must be atomic with respect to
// concurrent callers and report whether this caller won the transition.
type ScheduledEmailRepository interface {
	Get(id uuid.UUID) (ScheduledEmail, error)
	GetDuePending(now time.Time) ([]ScheduledEmail, error)

	// ExistsForStep reports whether a row for this step/target tuple has
	// already been materialized, in any state. Re-triggering a sequence
	// must not duplicate sends.
	ExistsForStep(sequenceId, stepId, clientId uuid.UUID, jobId *uuid.UUID) (bool, error)

	Create(email *ScheduledEmail) error
	Update(email *ScheduledEmail) error

	// Claim performs the pending -> sending transition, returning false
	// when another worker already owns the row or it left pending state.
	Claim(id uuid.UUID) (bool, error)

	// Cancel performs the pending -> cancelled transition, returning
	// false when the row is no longer pending.
	Cancel(id uuid.UUID) (bool, error)
}
