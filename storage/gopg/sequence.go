package gopg

import (
	"time"

	"github.com/go-pg/pg"
	"github.com/google/uuid"

	automation "github.com/aperture-studios/go-email-automation"
)

func NewSequenceRepository(db *pg.DB) automation.SequenceRepository {
	return &sequenceRepository{
		db: db,
	}
}

type sequenceRepository struct {
	db *pg.DB
}

type sequenceWrapper struct {
	TableName struct{} `sql:"studio_email_sequences,alias:es" json:"-"`

	*automation.EmailSequence
}

func (repo *sequenceRepository) Get(id uuid.UUID) (automation.EmailSequence, error) {
	wrapped := &sequenceWrapper{
		EmailSequence: &automation.EmailSequence{},
	}

	if err := repo.db.Model(wrapped).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return *wrapped.EmailSequence, automation.SequenceNotFoundErr
		}

		return *wrapped.EmailSequence, err
	}

	return *wrapped.EmailSequence, nil
}

func (repo *sequenceRepository) GetAll() ([]automation.EmailSequence, error) {
	var wrapped []sequenceWrapper
	sequences := make([]automation.EmailSequence, 0)

	if err := repo.db.Model(&wrapped).Order("created_at ASC").Select(); err != nil && err != pg.ErrNoRows {
		return sequences, err
	}

	for _, s := range wrapped {
		sequences = append(sequences, *s.EmailSequence)
	}

	return sequences, nil
}

func (repo *sequenceRepository) GetByTrigger(event string) ([]automation.EmailSequence, error) {
	var wrapped []sequenceWrapper
	sequences := make([]automation.EmailSequence, 0)

	if err := repo.db.Model(&wrapped).Where("trigger_event = ?", event).Select(); err != nil && err != pg.ErrNoRows {
		return sequences, err
	}

	for _, s := range wrapped {
		sequences = append(sequences, *s.EmailSequence)
	}

	return sequences, nil
}

func (repo *sequenceRepository) Create(sequence *automation.EmailSequence) error {
	return repo.db.Insert(&sequenceWrapper{EmailSequence: sequence})
}

func (repo *sequenceRepository) Update(sequence *automation.EmailSequence) error {
	sequence.UpdatedAt = time.Now()

	return repo.db.Update(&sequenceWrapper{EmailSequence: sequence})
}

func (repo *sequenceRepository) Delete(sequence *automation.EmailSequence) error {
	return repo.db.Delete(&sequenceWrapper{EmailSequence: sequence})
}
