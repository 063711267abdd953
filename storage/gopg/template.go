package gopg

import (
	"time"

	"github.com/go-pg/pg"
	"github.com/google/uuid"

	automation "github.com/aperture-studios/go-email-automation"
)

func NewTemplateRepository(db *pg.DB) automation.TemplateRepository {
	return &templateRepository{
		db: db,
	}
}

type templateRepository struct {
	db *pg.DB
}

type templateWrapper struct {
	TableName struct{} `sql:"studio_email_templates,alias:et" json:"-"`

	*automation.EmailTemplate
}

func (repo *templateRepository) Get(id uuid.UUID) (automation.EmailTemplate, error) {
	wrapped := &templateWrapper{
		EmailTemplate: &automation.EmailTemplate{},
	}

	if err := repo.db.Model(wrapped).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return *wrapped.EmailTemplate, automation.TemplateNotFoundErr
		}

		return *wrapped.EmailTemplate, err
	}

	return *wrapped.EmailTemplate, nil
}

func (repo *templateRepository) GetAll() ([]automation.EmailTemplate, error) {
	var wrapped []templateWrapper
	templates := make([]automation.EmailTemplate, 0)

	if err := repo.db.Model(&wrapped).Order("created_at ASC").Select(); err != nil && err != pg.ErrNoRows {
		return templates, err
	}

	for _, t := range wrapped {
		templates = append(templates, *t.EmailTemplate)
	}

	return templates, nil
}

func (repo *templateRepository) Create(template *automation.EmailTemplate) error {
	return repo.db.Insert(&templateWrapper{EmailTemplate: template})
}

func (repo *templateRepository) Update(template *automation.EmailTemplate) error {
	template.UpdatedAt = time.Now()

	return repo.db.Update(&templateWrapper{EmailTemplate: template})
}

func (repo *templateRepository) Delete(template *automation.EmailTemplate) error {
	return repo.db.Delete(&templateWrapper{EmailTemplate: template})
}
