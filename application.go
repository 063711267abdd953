package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const UserAgent = "ApertureStudios/EmailAutomation-1.0"

// Application is the engine's in-process surface. The surrounding CRM calls
// the template/sequence CRUD and trigger methods; a periodic job runner
// calls ProcessPendingEmails, or StartPolling runs that loop internally.
type Application interface {
	HttpHandler() *HttpHandler

	CreateTemplate(template *EmailTemplate) error
	UpdateTemplate(template *EmailTemplate) error
	Template(id uuid.UUID) (EmailTemplate, error)
	Templates() ([]EmailTemplate, error)
	DeleteTemplate(id uuid.UUID) error

	CreateSequence(sequence *EmailSequence) error
	UpdateSequence(sequence *EmailSequence) error
	Sequence(id uuid.UUID) (EmailSequence, error)
	Sequences() ([]EmailSequence, error)
	DeleteSequence(id uuid.UUID) error

	TriggerSequence(sequenceId, clientId uuid.UUID, jobId *uuid.UUID, anchor time.Time) ([]ScheduledEmail, error)
	TriggerEvent(event string, clientId uuid.UUID, jobId *uuid.UUID, anchor time.Time) ([]ScheduledEmail, error)

	SendTest(ctx context.Context, templateId, clientId uuid.UUID, jobId *uuid.UUID, to string) (string, error)

	ScheduleEmail(templateId, clientId uuid.UUID, jobId *uuid.UUID, at time.Time) (ScheduledEmail, error)
	CancelScheduledEmail(id uuid.UUID) error
	PendingEmails(now time.Time) ([]ScheduledEmail, error)

	ProcessPendingEmails(ctx context.Context, now time.Time) (int, error)

	MarkOpened(id uuid.UUID, at time.Time) error
	MarkClicked(id uuid.UUID, at time.Time) error

	StartPolling(interval time.Duration)
	Shutdown(ctx context.Context)
}

type AppOption func(a *application)

func SetLogger(logger logrus.FieldLogger) AppOption {
	return func(a *application) {
		a.logger = logger
	}
}

func SetTemplateRepo(repo TemplateRepository) AppOption {
	return func(a *application) {
		a.templateRepo = repo
	}
}

func SetSequenceRepo(repo SequenceRepository) AppOption {
	return func(a *application) {
		a.sequenceRepo = repo
	}
}

func SetScheduledEmailRepo(repo ScheduledEmailRepository) AppOption {
	return func(a *application) {
		a.scheduledRepo = repo
	}
}

func SetEmailTransport(transport EmailTransport) AppOption {
	return func(a *application) {
		a.transport = transport
	}
}

func SetClientStore(store ClientStore) AppOption {
	return func(a *application) {
		a.clients = store
	}
}

func SetJobStore(store JobStore) AppOption {
	return func(a *application) {
		a.jobs = store
	}
}

func SetPaymentStore(store PaymentStore) AppOption {
	return func(a *application) {
		a.payments = store
	}
}

func SetGalleryStore(store GalleryStore) AppOption {
	return func(a *application) {
		a.galleries = store
	}
}

func SetLinks(links Links) AppOption {
	return func(a *application) {
		a.renderer = NewRenderer(links)
	}
}

func SetSender(from, replyTo string) AppOption {
	return func(a *application) {
		a.from = from
		a.replyTo = replyTo
	}
}

type application struct {
	logger logrus.FieldLogger

	templateRepo  TemplateRepository
	sequenceRepo  SequenceRepository
	scheduledRepo ScheduledEmailRepository

	clients   ClientStore
	jobs      JobStore
	payments  PaymentStore
	galleries GalleryStore

	transport EmailTransport
	renderer  *Renderer

	from    string
	replyTo string

	pollCancel context.CancelFunc
}

func NewApplication(options ...AppOption) (Application, error) {
	app := &application{
		logger:   logrus.New(),
		renderer: NewRenderer(Links{}),
	}

	for _, option := range options {
		option(app)
	}

	if err := app.ensureUsableConfiguration(); err != nil {
		return app, err
	}

	return app, nil
}

func (a *application) ensureUsableConfiguration() error {
	if a.templateRepo == nil {
		return errors.New("Missing template repository")
	}

	if a.sequenceRepo == nil {
		return errors.New("Missing sequence repository")
	}

	if a.scheduledRepo == nil {
		return errors.New("Missing scheduled email repository")
	}

	if a.clients == nil {
		return errors.New("Missing client store")
	}

	if a.transport == nil {
		return errors.New("Missing email transport")
	}

	return nil
}

func (a *application) HttpHandler() *HttpHandler {
	return &HttpHandler{
		app: a,
	}
}

func (a *application) CreateTemplate(template *EmailTemplate) error {
	if template.Id == uuid.Nil {
		template.Id = uuid.New()
	}

	now := time.Now()
	template.CreatedAt = now
	template.UpdatedAt = now

	return a.templateRepo.Create(template)
}

func (a *application) UpdateTemplate(template *EmailTemplate) error {
	template.UpdatedAt = time.Now()

	return a.templateRepo.Update(template)
}

func (a *application) Template(id uuid.UUID) (EmailTemplate, error) {
	return a.templateRepo.Get(id)
}

func (a *application) Templates() ([]EmailTemplate, error) {
	return a.templateRepo.GetAll()
}

// DeleteTemplate refuses to remove a template that any sequence step still
// references, a missing template at render time is a fatal configuration
// error for those steps.
func (a *application) DeleteTemplate(id uuid.UUID) error {
	template, err := a.templateRepo.Get(id)
	if err != nil {
		return err
	}

	sequences, err := a.sequenceRepo.GetAll()
	if err != nil {
		return err
	}

	for _, sequence := range sequences {
		for _, step := range sequence.Steps {
			if step.TemplateId == id {
				return errors.Errorf("Template %s is still referenced by sequence %s", id, sequence.Id)
			}
		}
	}

	return a.templateRepo.Delete(&template)
}

func (a *application) CreateSequence(sequence *EmailSequence) error {
	if sequence.Id == uuid.Nil {
		sequence.Id = uuid.New()
	}

	for i := range sequence.Steps {
		if sequence.Steps[i].Id == uuid.Nil {
			sequence.Steps[i].Id = uuid.New()
		}
	}

	if err := a.validateSequenceSteps(sequence); err != nil {
		return err
	}

	now := time.Now()
	sequence.CreatedAt = now
	sequence.UpdatedAt = now

	return a.sequenceRepo.Create(sequence)
}

func (a *application) UpdateSequence(sequence *EmailSequence) error {
	for i := range sequence.Steps {
		if sequence.Steps[i].Id == uuid.Nil {
			sequence.Steps[i].Id = uuid.New()
		}
	}

	if err := a.validateSequenceSteps(sequence); err != nil {
		return err
	}

	sequence.UpdatedAt = time.Now()

	return a.sequenceRepo.Update(sequence)
}

func (a *application) validateSequenceSteps(sequence *EmailSequence) error {
	for _, step := range sequence.Steps {
		if _, err := a.templateRepo.Get(step.TemplateId); err != nil {
			if err == TemplateNotFoundErr {
				return errors.Errorf("Step %s references unknown template %s", step.Id, step.TemplateId)
			}

			return err
		}
	}

	return nil
}

func (a *application) Sequence(id uuid.UUID) (EmailSequence, error) {
	return a.sequenceRepo.Get(id)
}

func (a *application) Sequences() ([]EmailSequence, error) {
	return a.sequenceRepo.GetAll()
}

func (a *application) DeleteSequence(id uuid.UUID) error {
	sequence, err := a.sequenceRepo.Get(id)
	if err != nil {
		return err
	}

	return a.sequenceRepo.Delete(&sequence)
}

// SendTest renders a template against a real target's facts and delivers it
// immediately to the given address, bypassing the queue.
func (a *application) SendTest(ctx context.Context, templateId, clientId uuid.UUID, jobId *uuid.UUID, to string) (string, error) {
	template, err := a.templateRepo.Get(templateId)
	if err != nil {
		return "", err
	}

	bag, err := a.gatherFacts(clientId, jobId)
	if err != nil {
		return "", err
	}

	subject, body := a.renderer.Render(template, bag)

	messageId, err := a.transport.Send(ctx, to, a.from, subject, body, a.replyTo)
	if err != nil {
		return "", errors.Wrap(err, "failed to deliver test email")
	}

	return messageId, nil
}

// ScheduleEmail queues a one-off send outside any sequence.
func (a *application) ScheduleEmail(templateId, clientId uuid.UUID, jobId *uuid.UUID, at time.Time) (ScheduledEmail, error) {
	if _, err := a.templateRepo.Get(templateId); err != nil {
		return ScheduledEmail{}, err
	}

	now := time.Now()
	email := ScheduledEmail{
		Id:          uuid.New(),
		TemplateId:  templateId,
		ClientId:    clientId,
		JobId:       jobId,
		ScheduledAt: at,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := a.scheduledRepo.Create(&email); err != nil {
		return ScheduledEmail{}, err
	}

	return email, nil
}

// CancelScheduledEmail cancels a pending row. Cancelling a row that has
// already gone out reports AlreadySentErr without touching it.
func (a *application) CancelScheduledEmail(id uuid.UUID) error {
	cancelled, err := a.scheduledRepo.Cancel(id)
	if err != nil {
		return err
	}

	if cancelled {
		return nil
	}

	email, err := a.scheduledRepo.Get(id)
	if err != nil {
		return err
	}

	switch email.Status {
	case StatusSent, StatusSending:
		return AlreadySentErr

	case StatusCancelled:
		return AlreadyCancelledErr

	default:
		return errors.Errorf("Scheduled email %s cannot be cancelled in status %s", id, email.Status)
	}
}

func (a *application) PendingEmails(now time.Time) ([]ScheduledEmail, error) {
	return a.scheduledRepo.GetDuePending(now)
}

// StartPolling drives the delivery worker on a ticker for deployments that
// do not wire an external job runner. A fresh tick also drains any rows
// that were already due before the process started.
func (a *application) StartPolling(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	a.pollCancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				if _, err := a.ProcessPendingEmails(ctx, time.Now()); err != nil {
					a.logger.
						WithError(err).
						Error("delivery pass failed")
				}
			}
		}
	}()
}

func (a *application) Shutdown(ctx context.Context) {
	<-ctx.Done()

	if a.pollCancel != nil {
		a.pollCancel()
	}
}
