package automation

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the lifecycle state of a scheduled email.
//
// Legal transitions:
//
//	pending -> sending    (worker claim, check-and-set)
//	sending -> sent       (transport accepted the message, terminal)
//	sending -> pending    (transport failure or gating condition not yet
//	                       met, retried on a later pass)
//	sending -> failed     (unrenderable row, e.g. missing template, terminal)
//	pending -> cancelled  (explicit admin action, terminal)
//
// The pending -> sending claim is the one hard concurrency guarantee:
// overlapping worker passes race on it and exactly one wins, so a row is
// handed to the transport at most once per due moment.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSending   DeliveryStatus = "sending"
	StatusSent      DeliveryStatus = "sent"
	StatusCancelled DeliveryStatus = "cancelled"
	StatusFailed    DeliveryStatus = "failed"
)

// ScheduledEmail is one materialized send: a template bound to a client at
// an absolute instant. Rows created by a sequence trigger carry the
// sequence and step back-references; the step's gating condition is copied
// onto the row so delivery-time re-validation survives later sequence
// edits.
type ScheduledEmail struct {
	Id uuid.UUID `json:"id"`

	TemplateId uuid.UUID  `json:"templateId"`
	ClientId   uuid.UUID  `json:"clientId"`
	JobId      *uuid.UUID `json:"jobId,omitempty"`

	SequenceId     *uuid.UUID     `json:"sequenceId,omitempty"`
	SequenceStepId *uuid.UUID     `json:"sequenceStepId,omitempty"`
	Condition      *StepCondition `sql:",type:jsonb" json:"condition,omitempty"`

	ScheduledAt time.Time      `json:"scheduledAt"`
	Status      DeliveryStatus `json:"status"`

	SentAt    *time.Time `json:"sentAt,omitempty"`
	MessageId string     `json:"messageId,omitempty"`
	LastError string     `json:"lastError,omitempty"`

	OpenedAt  *time.Time `json:"openedAt,omitempty"`
	ClickedAt *time.Time `json:"clickedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sent reports whether the row reached its terminal success state.
func (e *ScheduledEmail) Sent() bool {
	return e.Status == StatusSent
}

// Due reports whether the row should be picked up by a worker pass at now.
func (e *ScheduledEmail) Due(now time.Time) bool {
	return e.Status == StatusPending && !e.ScheduledAt.After(now)
}
