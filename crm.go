package automation

import (
	"time"

	"github.com/google/uuid"
)

// Client is the CRM record the engine renders against. The surrounding
// application owns these records, the engine only reads them.
type Client struct {
	Id              uuid.UUID `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	PartnerName     string    `json:"partnerName"`
	GalleryPassword string    `json:"galleryPassword"`
}

// Job is a booked photography session.
type Job struct {
	Id            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Date          time.Time `json:"date"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	Location      string    `json:"location"`
	LocationNotes string    `json:"locationNotes"`
	Status        string    `json:"status"`
}

// Payment is an invoice installment attached to a job.
type Payment struct {
	Id        uuid.UUID `json:"id"`
	Amount    float64   `json:"amount"`
	DueDate   time.Time `json:"dueDate"`
	InvoiceId string    `json:"invoiceId"`
	Status    string    `json:"status"`
}

// Gallery is a delivered photo gallery for a job.
type Gallery struct {
	Url      string `json:"url"`
	Password string `json:"password"`
}

// ClientStore is implemented by the surrounding CRM.
type ClientStore interface {
	Get(clientId uuid.UUID) (Client, error)
}

// JobStore is implemented by the surrounding CRM.
type JobStore interface {
	Get(jobId uuid.UUID) (Job, error)
}

// PaymentStore is implemented by the surrounding CRM. GetForJob returns the
// next relevant payment for a job; scheduled rows only carry a job reference.
type PaymentStore interface {
	Get(paymentId uuid.UUID) (Payment, error)
	GetForJob(jobId uuid.UUID) (Payment, error)
}

// GalleryStore is implemented by the surrounding CRM. A job without a
// delivered gallery returns GalleryNotFoundErr.
type GalleryStore interface {
	Get(jobId uuid.UUID) (Gallery, error)
}

// DataBag carries the facts a render runs against. Absent records simply
// leave their placeholders empty. The renderer never reads the clock; any
// time-dependent value must already be on the records.
type DataBag struct {
	Client  *Client
	Job     *Job
	Payment *Payment
	Gallery *Gallery
}
