package automation_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	automation "github.com/aperture-studios/go-email-automation"
)

func (suite *engineTestSuite) TestTriggerSequenceExpandsAllSteps() {
	client := suite.createClient()
	job := suite.createJob("wedding", "booked")
	template := suite.createTemplate("Workflow mail")

	sequence := suite.createSequence(true, []automation.SequenceStep{
		{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
		{TemplateId: template.Id, DelayDays: 1, Active: true, Order: 2},
		{TemplateId: template.Id, DelayDays: 7, Active: true, Order: 3},
		{TemplateId: template.Id, DelayDays: 30, Active: true, Order: 4},
	})

	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	jobId := job.Id

	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, &jobId, anchor)
	suite.Require().NoError(err)
	suite.Require().Len(created, 4)

	for i, delay := range []int{0, 1, 7, 30} {
		assert.Equal(suite.T(), anchor.AddDate(0, 0, delay), created[i].ScheduledAt)
		assert.Equal(suite.T(), automation.StatusPending, created[i].Status)
		suite.Require().NotNil(created[i].SequenceId)
		assert.Equal(suite.T(), sequence.Id, *created[i].SequenceId)
	}
}

func (suite *engineTestSuite) TestTriggerSequenceSkipsInactiveSteps() {
	client := suite.createClient()
	template := suite.createTemplate("Workflow mail")

	sequence := suite.createSequence(true, []automation.SequenceStep{
		{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
		{TemplateId: template.Id, DelayDays: 1, Active: true, Order: 2},
		{TemplateId: template.Id, DelayDays: 2, Active: false, Order: 3},
		{TemplateId: template.Id, DelayDays: 3, Active: true, Order: 4},
	})

	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, nil, time.Now())
	suite.Require().NoError(err)
	assert.Len(suite.T(), created, 3)
}

func (suite *engineTestSuite) TestTriggerSequenceRespectsStepOrder() {
	client := suite.createClient()
	template := suite.createTemplate("Workflow mail")

	// Steps stored out of order, the explicit order field wins.
	sequence := suite.createSequence(true, []automation.SequenceStep{
		{TemplateId: template.Id, DelayDays: 7, Active: true, Order: 3},
		{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
		{TemplateId: template.Id, DelayDays: 1, Active: true, Order: 2},
	})

	anchor := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, nil, anchor)
	suite.Require().NoError(err)
	suite.Require().Len(created, 3)

	assert.Equal(suite.T(), anchor, created[0].ScheduledAt)
	assert.Equal(suite.T(), anchor.AddDate(0, 0, 1), created[1].ScheduledAt)
	assert.Equal(suite.T(), anchor.AddDate(0, 0, 7), created[2].ScheduledAt)
}

func (suite *engineTestSuite) TestTriggerSequenceUnknownId() {
	client := suite.createClient()

	_, err := suite.app.TriggerSequence(uuid.New(), client.Id, nil, time.Now())
	assert.Equal(suite.T(), automation.SequenceNotFoundErr, err)
}

func (suite *engineTestSuite) TestTriggerSequenceInactive() {
	client := suite.createClient()
	template := suite.createTemplate("Workflow mail")

	sequence := suite.createSequence(false, []automation.SequenceStep{
		{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
	})

	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, nil, time.Now())
	assert.Equal(suite.T(), automation.InactiveSequenceErr, err)
	assert.Empty(suite.T(), created)

	pending, err := suite.scheduled.GetDuePending(time.Now().AddDate(1, 0, 0))
	suite.Require().NoError(err)
	assert.Empty(suite.T(), pending)
}

func (suite *engineTestSuite) TestTriggerSequenceIsIdempotent() {
	client := suite.createClient()
	template := suite.createTemplate("Workflow mail")

	sequence := suite.createSequence(true, []automation.SequenceStep{
		{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
		{TemplateId: template.Id, DelayDays: 1, Active: true, Order: 2},
	})

	anchor := time.Now()

	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, nil, anchor)
	suite.Require().NoError(err)
	assert.Len(suite.T(), created, 2)

	// Re-triggering the same sequence for the same target must not
	// duplicate pending sends.
	created, err = suite.app.TriggerSequence(sequence.Id, client.Id, nil, anchor)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), created)

	pending, err := suite.scheduled.GetDuePending(anchor.AddDate(0, 0, 2))
	suite.Require().NoError(err)
	assert.Len(suite.T(), pending, 2)
}

func (suite *engineTestSuite) TestTriggerSequenceDistinguishesJobs() {
	client := suite.createClient()
	template := suite.createTemplate("Workflow mail")

	sequence := suite.createSequence(true, []automation.SequenceStep{
		{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
	})

	jobA := suite.createJob("wedding", "booked").Id
	jobB := suite.createJob("portrait", "booked").Id

	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, &jobA, time.Now())
	suite.Require().NoError(err)
	assert.Len(suite.T(), created, 1)

	created, err = suite.app.TriggerSequence(sequence.Id, client.Id, &jobB, time.Now())
	suite.Require().NoError(err)
	assert.Len(suite.T(), created, 1, "A different job is a different target")
}

func (suite *engineTestSuite) TestTriggerSequenceConditionFalseSkipsStep() {
	client := suite.createClient()
	job := suite.createJob("portrait", "booked")
	template := suite.createTemplate("Wedding mail")

	sequence := suite.createSequence(true, []automation.SequenceStep{
		{
			TemplateId: template.Id,
			DelayDays:  0,
			Active:     true,
			Order:      1,
			Condition:  &automation.StepCondition{Field: "job.type", Op: automation.ConditionEquals, Value: "wedding"},
		},
		{TemplateId: template.Id, DelayDays: 1, Active: true, Order: 2},
	})

	jobId := job.Id
	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, &jobId, time.Now())
	suite.Require().NoError(err)

	assert.Len(suite.T(), created, 1, "The known-false step must be skipped at scheduling time")
}

func (suite *engineTestSuite) TestTriggerSequenceUnknowableConditionMaterializes() {
	client := suite.createClient()
	job := suite.createJob("wedding", "booked")
	template := suite.createTemplate("Gallery mail")

	// No gallery exists yet, so the condition cannot be evaluated at
	// trigger time. The row is still materialized and gated at delivery.
	sequence := suite.createSequence(true, []automation.SequenceStep{
		{
			TemplateId: template.Id,
			DelayDays:  0,
			Active:     true,
			Order:      1,
			Condition:  &automation.StepCondition{Field: "gallery.url", Op: automation.ConditionExists},
		},
	})

	jobId := job.Id
	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, &jobId, time.Now())
	suite.Require().NoError(err)

	suite.Require().Len(created, 1)
	suite.Require().NotNil(created[0].Condition)
	assert.Equal(suite.T(), "gallery.url", created[0].Condition.Field)
}

func (suite *engineTestSuite) TestTriggerEventFiresMatchingSequences() {
	client := suite.createClient()
	template := suite.createTemplate("Workflow mail")

	first := automation.EmailSequence{
		Name:         "Nurture A",
		Type:         automation.SequenceClientNurture,
		TriggerEvent: "lead_created",
		Active:       true,
		Steps: []automation.SequenceStep{
			{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
		},
	}
	suite.Require().NoError(suite.app.CreateSequence(&first))

	second := automation.EmailSequence{
		Name:         "Nurture B",
		Type:         automation.SequenceClientNurture,
		TriggerEvent: "lead_created",
		Active:       true,
		Steps: []automation.SequenceStep{
			{TemplateId: template.Id, DelayDays: 3, Active: true, Order: 1},
		},
	}
	suite.Require().NoError(suite.app.CreateSequence(&second))

	unrelated := automation.EmailSequence{
		Name:         "Unrelated",
		Type:         automation.SequenceBookingWorkflow,
		TriggerEvent: "job_booked",
		Active:       true,
		Steps: []automation.SequenceStep{
			{TemplateId: template.Id, DelayDays: 0, Active: true, Order: 1},
		},
	}
	suite.Require().NoError(suite.app.CreateSequence(&unrelated))

	created, err := suite.app.TriggerEvent("lead_created", client.Id, nil, time.Now())
	suite.Require().NoError(err)

	assert.Len(suite.T(), created, 2)
}
