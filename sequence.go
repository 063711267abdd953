package automation

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// SequenceType categorizes a sequence by the workflow it automates.
type SequenceType string

const (
	SequenceBookingWorkflow     SequenceType = "booking_workflow"
	SequenceGalleryDelivery     SequenceType = "gallery_delivery"
	SequencePaymentCollection   SequenceType = "payment_collection"
	SequencePostSessionFollowup SequenceType = "post_session_followup"
	SequenceClientNurture       SequenceType = "client_nurture"
)

// SequenceStep is one element of a sequence: a template reference, a signed
// relative delay and an optional gating condition.
//
// DelayDays is relative to the anchor instant the caller passes to trigger.
// Positive means after the anchor, negative means before it (payment
// reminders anchor on the due date). The scheduler never infers the anchor
// from the sequence type; the caller must pass the semantically correct one.
type SequenceStep struct {
	Id         uuid.UUID      `json:"id"`
	TemplateId uuid.UUID      `json:"templateId"`
	DelayDays  int            `json:"delayDays"`
	Condition  *StepCondition `json:"condition,omitempty"`
	Active     bool           `json:"active"`
	Order      int            `json:"order"`
}

// EmailSequence is an admin-authored, ordered set of steps bound to a
// trigger event.
type EmailSequence struct {
	Id   uuid.UUID    `json:"id"`
	Name string       `json:"name"`
	Type SequenceType `json:"type"`

	TriggerEvent string `json:"triggerEvent"`
	Active       bool   `sql:",notnull" json:"active"`

	Steps []SequenceStep `sql:",type:jsonb" json:"steps"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderedSteps returns the steps sorted by their explicit order field.
// Ties keep their original relative order.
func (s *EmailSequence) OrderedSteps() []SequenceStep {
	steps := make([]SequenceStep, len(s.Steps))
	copy(steps, s.Steps)

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})

	return steps
}
