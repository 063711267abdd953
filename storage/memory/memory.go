// Package memory provides mutex-guarded in-memory implementations of the
// engine's repositories, suitable for tests and single-process deployments.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	automation "github.com/aperture-studios/go-email-automation"
)

func NewTemplateRepository() automation.TemplateRepository {
	return &templateRepository{
		templates: map[uuid.UUID]automation.EmailTemplate{},
	}
}

type templateRepository struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]automation.EmailTemplate
}

func (repo *templateRepository) Get(id uuid.UUID) (automation.EmailTemplate, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	template, ok := repo.templates[id]
	if !ok {
		return automation.EmailTemplate{}, automation.TemplateNotFoundErr
	}

	return template, nil
}

func (repo *templateRepository) GetAll() ([]automation.EmailTemplate, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	templates := make([]automation.EmailTemplate, 0, len(repo.templates))
	for _, template := range repo.templates {
		templates = append(templates, template)
	}

	return templates, nil
}

func (repo *templateRepository) Create(template *automation.EmailTemplate) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.templates[template.Id] = *template

	return nil
}

func (repo *templateRepository) Update(template *automation.EmailTemplate) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.templates[template.Id]; !ok {
		return automation.TemplateNotFoundErr
	}

	repo.templates[template.Id] = *template

	return nil
}

func (repo *templateRepository) Delete(template *automation.EmailTemplate) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.templates, template.Id)

	return nil
}

func NewSequenceRepository() automation.SequenceRepository {
	return &sequenceRepository{
		sequences: map[uuid.UUID]automation.EmailSequence{},
	}
}

type sequenceRepository struct {
	mu        sync.RWMutex
	sequences map[uuid.UUID]automation.EmailSequence
}

func (repo *sequenceRepository) Get(id uuid.UUID) (automation.EmailSequence, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	sequence, ok := repo.sequences[id]
	if !ok {
		return automation.EmailSequence{}, automation.SequenceNotFoundErr
	}

	return sequence, nil
}

func (repo *sequenceRepository) GetAll() ([]automation.EmailSequence, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	sequences := make([]automation.EmailSequence, 0, len(repo.sequences))
	for _, sequence := range repo.sequences {
		sequences = append(sequences, sequence)
	}

	return sequences, nil
}

func (repo *sequenceRepository) GetByTrigger(event string) ([]automation.EmailSequence, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	sequences := make([]automation.EmailSequence, 0)
	for _, sequence := range repo.sequences {
		if sequence.TriggerEvent == event {
			sequences = append(sequences, sequence)
		}
	}

	return sequences, nil
}

func (repo *sequenceRepository) Create(sequence *automation.EmailSequence) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.sequences[sequence.Id] = *sequence

	return nil
}

func (repo *sequenceRepository) Update(sequence *automation.EmailSequence) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.sequences[sequence.Id]; !ok {
		return automation.SequenceNotFoundErr
	}

	repo.sequences[sequence.Id] = *sequence

	return nil
}

func (repo *sequenceRepository) Delete(sequence *automation.EmailSequence) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.sequences, sequence.Id)

	return nil
}

func NewScheduledEmailRepository() automation.ScheduledEmailRepository {
	return &scheduledEmailRepository{
		emails: map[uuid.UUID]automation.ScheduledEmail{},
	}
}

type scheduledEmailRepository struct {
	mu     sync.Mutex
	emails map[uuid.UUID]automation.ScheduledEmail
}

func (repo *scheduledEmailRepository) Get(id uuid.UUID) (automation.ScheduledEmail, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	email, ok := repo.emails[id]
	if !ok {
		return automation.ScheduledEmail{}, automation.ScheduledEmailNotFoundErr
	}

	return email, nil
}

func (repo *scheduledEmailRepository) GetDuePending(now time.Time) ([]automation.ScheduledEmail, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	due := make([]automation.ScheduledEmail, 0)
	for _, email := range repo.emails {
		if email.Due(now) {
			due = append(due, email)
		}
	}

	return due, nil
}

func (repo *scheduledEmailRepository) ExistsForStep(sequenceId, stepId, clientId uuid.UUID, jobId *uuid.UUID) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, email := range repo.emails {
		if email.SequenceId == nil || email.SequenceStepId == nil {
			continue
		}

		if *email.SequenceId != sequenceId || *email.SequenceStepId != stepId || email.ClientId != clientId {
			continue
		}

		if equalJobRef(email.JobId, jobId) {
			return true, nil
		}
	}

	return false, nil
}

func (repo *scheduledEmailRepository) Create(email *automation.ScheduledEmail) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.emails[email.Id] = *email

	return nil
}

func (repo *scheduledEmailRepository) Update(email *automation.ScheduledEmail) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.emails[email.Id]; !ok {
		return automation.ScheduledEmailNotFoundErr
	}

	repo.emails[email.Id] = *email

	return nil
}

func (repo *scheduledEmailRepository) Claim(id uuid.UUID) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	email, ok := repo.emails[id]
	if !ok {
		return false, automation.ScheduledEmailNotFoundErr
	}

	if email.Status != automation.StatusPending {
		return false, nil
	}

	email.Status = automation.StatusSending
	email.UpdatedAt = time.Now()
	repo.emails[id] = email

	return true, nil
}

func (repo *scheduledEmailRepository) Cancel(id uuid.UUID) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	email, ok := repo.emails[id]
	if !ok {
		return false, automation.ScheduledEmailNotFoundErr
	}

	if email.Status != automation.StatusPending {
		return false, nil
	}

	email.Status = automation.StatusCancelled
	email.UpdatedAt = time.Now()
	repo.emails[id] = email

	return true, nil
}

func equalJobRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
