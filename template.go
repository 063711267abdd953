package automation

import (
	"time"

	"github.com/google/uuid"
)

// TemplateType categorizes a template by the client-lifecycle moment it serves.
type TemplateType string

const (
	TemplateInquiryResponse     TemplateType = "inquiry_response"
	TemplateBookingConfirmation TemplateType = "booking_confirmation"
	TemplateSessionPreparation  TemplateType = "session_preparation"
	TemplateSessionReminder     TemplateType = "session_reminder"
	TemplateGalleryDelivery     TemplateType = "gallery_delivery"
	TemplatePaymentReminder     TemplateType = "payment_reminder"
	TemplateThankYou            TemplateType = "thank_you"
	TemplateReviewRequest       TemplateType = "review_request"
	TemplateReferralRequest     TemplateType = "referral_request"
	TemplateAnniversary         TemplateType = "anniversary"
)

// EmailTemplate is a named subject/body pair. Subject and body may contain
// {{scope.field}} placeholders, single-level {{#if ...}} blocks and the
// static bracket tokens resolved by the renderer.
type EmailTemplate struct {
	Id   uuid.UUID    `json:"id"`
	Name string       `json:"name"`
	Type TemplateType `json:"type"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	IsDefault bool `sql:",notnull" json:"isDefault"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
