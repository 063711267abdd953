package gopg

import (
	"time"

	"github.com/go-pg/pg"
	"github.com/google/uuid"

	automation "github.com/aperture-studios/go-email-automation"
)

func NewScheduledEmailRepository(db *pg.DB) automation.ScheduledEmailRepository {
	return &scheduledEmailRepository{
		db: db,
	}
}

type scheduledEmailRepository struct {
	db *pg.DB
}

type scheduledEmailWrapper struct {
	TableName struct{} `sql:"studio_scheduled_emails,alias:se" json:"-"`

	*automation.ScheduledEmail
}

func (repo *scheduledEmailRepository) Get(id uuid.UUID) (automation.ScheduledEmail, error) {
	wrapped := &scheduledEmailWrapper{
		ScheduledEmail: &automation.ScheduledEmail{},
	}

	if err := repo.db.Model(wrapped).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return *wrapped.ScheduledEmail, automation.ScheduledEmailNotFoundErr
		}

		return *wrapped.ScheduledEmail, err
	}

	return *wrapped.ScheduledEmail, nil
}

func (repo *scheduledEmailRepository) GetDuePending(now time.Time) ([]automation.ScheduledEmail, error) {
	var wrapped []scheduledEmailWrapper
	emails := make([]automation.ScheduledEmail, 0)

	err := repo.db.Model(&wrapped).
		Where("status = ?", automation.StatusPending).
		Where("scheduled_at <= ?", now).
		Select()
	if err != nil && err != pg.ErrNoRows {
		return emails, err
	}

	for _, e := range wrapped {
		emails = append(emails, *e.ScheduledEmail)
	}

	return emails, nil
}

func (repo *scheduledEmailRepository) ExistsForStep(sequenceId, stepId, clientId uuid.UUID, jobId *uuid.UUID) (bool, error) {
	builder := repo.db.Model(&scheduledEmailWrapper{}).
		Where("sequence_id = ?", sequenceId).
		Where("sequence_step_id = ?", stepId).
		Where("client_id = ?", clientId)

	if jobId == nil {
		builder.Where("job_id is null")
	} else {
		builder.Where("job_id = ?", *jobId)
	}

	count, err := builder.Count()
	if err != nil && err != pg.ErrNoRows {
		return false, err
	}

	return count > 0, nil
}

func (repo *scheduledEmailRepository) Create(email *automation.ScheduledEmail) error {
	return repo.db.Insert(&scheduledEmailWrapper{ScheduledEmail: email})
}

func (repo *scheduledEmailRepository) Update(email *automation.ScheduledEmail) error {
	email.UpdatedAt = time.Now()

	return repo.db.Update(&scheduledEmailWrapper{ScheduledEmail: email})
}

// Claim performs the pending -> sending transition as a guarded update so
// concurrent worker passes cannot both own the row.
func (repo *scheduledEmailRepository) Claim(id uuid.UUID) (bool, error) {
	res, err := repo.db.Model(&scheduledEmailWrapper{}).
		Set("status = ?", automation.StatusSending).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, automation.StatusPending).
		Update()
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (repo *scheduledEmailRepository) Cancel(id uuid.UUID) (bool, error) {
	res, err := repo.db.Model(&scheduledEmailWrapper{}).
		Set("status = ?", automation.StatusCancelled).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, automation.StatusPending).
		Update()
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}
