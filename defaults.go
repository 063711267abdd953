package automation

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTemplates returns the canned studio templates seeded on first
// boot. Each carries fresh ids; callers persist them through
// CreateTemplate.
func DefaultTemplates() []EmailTemplate {
	now := time.Now()

	templates := []EmailTemplate{
		{
			Name:    "Inquiry response",
			Type:    TemplateInquiryResponse,
			Subject: "Thanks for reaching out, {{client.firstName}}!",
			Body: "Hi {{client.firstName}},\n\n" +
				"Thank you for your interest in a {{job.type}} session. We would love to " +
				"hear more about what you have in mind.\n\n" +
				"You can browse recent work at [PORTFOLIO_LINK] and pick a time that " +
				"suits you at [BOOKING_LINK].\n\n" +
				"[CONTACT_INFO]",
		},
		{
			Name:    "Booking confirmation",
			Type:    TemplateBookingConfirmation,
			Subject: "Your {{job.type}} session is booked for {{job.date}}",
			Body: "Hi {{client.firstName}},\n\n" +
				"{{#if job.type === 'wedding'}}Congratulations to you and " +
				"{{client.partnerName}}! {{else}}We are excited to work with you! {{/if}}" +
				"Your session is confirmed for {{job.date}}, {{job.startTime}} to " +
				"{{job.endTime}} at {{job.location}}.\n\n" +
				"{{job.locationNotes}}\n\n" +
				"[CONTACT_INFO]",
		},
		{
			Name:    "Session reminder",
			Type:    TemplateSessionReminder,
			Subject: "See you soon - {{job.date}} at {{job.location}}",
			Body: "Hi {{client.firstName}},\n\n" +
				"A quick reminder about your upcoming session on {{job.date}}, starting " +
				"at {{job.startTime}}.\n\n" +
				"Location: {{job.location}}\n{{job.locationNotes}}\n\n" +
				"[CONTACT_INFO]",
		},
		{
			Name:    "Gallery delivery",
			Type:    TemplateGalleryDelivery,
			Subject: "Your photos are ready!",
			Body: "Hi {{client.firstName}},\n\n" +
				"Your gallery is ready to view: [GALLERY_LINK]\n" +
				"Password: {{client.galleryPassword}}\n\n" +
				"We hope you love them as much as we do.\n\n" +
				"[CONTACT_INFO]",
		},
		{
			Name:    "Payment reminder",
			Type:    TemplatePaymentReminder,
			Subject: "Invoice {{payment.invoiceId}} is due {{payment.dueDate}}",
			Body: "Hi {{client.firstName}},\n\n" +
				"This is a friendly reminder that a payment of {{payment.amount}} is due " +
				"on {{payment.dueDate}}.\n\n" +
				"You can pay online at [PAYMENT_LINK].\n\n" +
				"[CONTACT_INFO]",
		},
		{
			Name:    "Thank you",
			Type:    TemplateThankYou,
			Subject: "Thank you, {{client.firstName}}!",
			Body: "Hi {{client.firstName}},\n\n" +
				"Thank you for choosing us for your {{job.type}} session. It was a " +
				"pleasure working with you.\n\n" +
				"If you enjoyed the experience, we would be grateful for a review.\n\n" +
				"[CONTACT_INFO]",
		},
	}

	for i := range templates {
		templates[i].Id = uuid.New()
		templates[i].IsDefault = true
		templates[i].CreatedAt = now
		templates[i].UpdatedAt = now
	}

	return templates
}
