package automation_test

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	automation "github.com/aperture-studios/go-email-automation"
)

func (suite *engineTestSuite) TestProcessSendsDueEmails() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	due := time.Now().Add(-time.Hour)
	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, due)
	suite.Require().NoError(err)

	now := time.Now()
	sent, err := suite.app.ProcessPendingEmails(testContext(), now)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), 1, sent)
	assert.Equal(suite.T(), 1, suite.transport.Calls())

	mail := suite.transport.Sent()[0]
	assert.Equal(suite.T(), "karni@example.com", mail.to)
	assert.Equal(suite.T(), "studio@example.com", mail.from)
	assert.Equal(suite.T(), "reply@example.com", mail.replyTo)
	assert.Equal(suite.T(), "Hi Karni", mail.subject)

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusSent, loaded.Status)
	suite.Require().NotNil(loaded.SentAt)
	assert.NotEmpty(suite.T(), loaded.MessageId)
}

func (suite *engineTestSuite) TestProcessIgnoresFutureEmails() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	_, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(time.Hour))
	suite.Require().NoError(err)

	sent, err := suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)

	assert.Zero(suite.T(), sent)
	assert.Zero(suite.T(), suite.transport.Calls())
}

// Overlapping worker passes race on the pending -> sending claim, only one
// may reach the transport.
func (suite *engineTestSuite) TestConcurrentPassesSendExactlyOnce() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	now := time.Now()

	var wg sync.WaitGroup
	results := make([]int, 8)

	for i := 0; i < len(results); i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			sent, err := suite.app.ProcessPendingEmails(testContext(), now)
			assert.NoError(suite.T(), err)
			results[i] = sent
		}(i)
	}

	wg.Wait()

	total := 0
	for _, sent := range results {
		total += sent
	}

	assert.Equal(suite.T(), 1, total)
	assert.Equal(suite.T(), 1, suite.transport.Calls())

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusSent, loaded.Status)
}

// A second pass after the first succeeded must be a no-op, not a second
// send: the worker is at-least-once and the queue absorbs the repeats.
func (suite *engineTestSuite) TestRepeatedPassesDoNotResend() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	_, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	now := time.Now()

	sent, err := suite.app.ProcessPendingEmails(testContext(), now)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, sent)

	sent, err = suite.app.ProcessPendingEmails(testContext(), now)
	suite.Require().NoError(err)
	assert.Zero(suite.T(), sent)

	assert.Equal(suite.T(), 1, suite.transport.Calls())
}

func (suite *engineTestSuite) TestDeferredUntilConditionHolds() {
	client := suite.createClient()
	template := suite.createTemplate("Gallery mail")

	sequence := suite.createSequence(true, []automation.SequenceStep{
		{
			TemplateId: template.Id,
			DelayDays:  0,
			Active:     true,
			Order:      1,
			Condition:  &automation.StepCondition{Field: "job.status", Op: automation.ConditionEquals, Value: "completed"},
		},
	})

	// The job record does not exist at trigger time, so the condition is
	// unknowable and the row is materialized anyway.
	jobId := uuid.New()
	created, err := suite.app.TriggerSequence(sequence.Id, client.Id, &jobId, time.Now().Add(-time.Hour))
	suite.Require().NoError(err)
	suite.Require().Len(created, 1)

	job := automation.Job{Id: jobId, Type: "wedding", Status: "booked"}
	suite.jobs.jobs[jobId] = job

	// Job not completed yet, the row defers and stays pending.
	sent, err := suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)
	assert.Zero(suite.T(), sent)
	assert.Zero(suite.T(), suite.transport.Calls())

	loaded, err := suite.scheduled.Get(created[0].Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusPending, loaded.Status)

	// Condition becomes true, the next pass delivers.
	job.Status = "completed"
	suite.jobs.jobs[jobId] = job

	sent, err = suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, sent)
	assert.Equal(suite.T(), 1, suite.transport.Calls())
}

func (suite *engineTestSuite) TestTransportFailureLeavesRowPending() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	suite.transport.SetFail(true)

	sent, err := suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err, "A transport failure must not abort the pass")
	assert.Zero(suite.T(), sent)

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusPending, loaded.Status)
	assert.Nil(suite.T(), loaded.SentAt)

	// Retry by re-polling once the transport recovers.
	suite.transport.SetFail(false)

	sent, err = suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, sent)
}

func (suite *engineTestSuite) TestMissingTemplateMarksRowFailed() {
	client := suite.createClient()

	now := time.Now()
	email := automation.ScheduledEmail{
		Id:          uuid.New(),
		TemplateId:  uuid.New(),
		ClientId:    client.Id,
		ScheduledAt: now.Add(-time.Minute),
		Status:      automation.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	suite.Require().NoError(suite.scheduled.Create(&email))

	sent, err := suite.app.ProcessPendingEmails(testContext(), now)
	suite.Require().NoError(err)
	assert.Zero(suite.T(), sent)
	assert.Zero(suite.T(), suite.transport.Calls())

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusFailed, loaded.Status)
	assert.NotEmpty(suite.T(), loaded.LastError)

	// Failed is terminal, later passes leave the row alone.
	sent, err = suite.app.ProcessPendingEmails(testContext(), now)
	suite.Require().NoError(err)
	assert.Zero(suite.T(), sent)
}

func (suite *engineTestSuite) TestMissingClientMarksRowFailed() {
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, uuid.New(), nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	sent, err := suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)
	assert.Zero(suite.T(), sent)

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusFailed, loaded.Status)
}

func (suite *engineTestSuite) TestFailureOnOneRowDoesNotAbortPass() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	// One row with a broken template reference, one healthy row.
	now := time.Now()
	broken := automation.ScheduledEmail{
		Id:          uuid.New(),
		TemplateId:  uuid.New(),
		ClientId:    client.Id,
		ScheduledAt: now.Add(-time.Minute),
		Status:      automation.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	suite.Require().NoError(suite.scheduled.Create(&broken))

	healthy, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, now.Add(-time.Minute))
	suite.Require().NoError(err)

	sent, err := suite.app.ProcessPendingEmails(testContext(), now)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, sent)

	loaded, err := suite.scheduled.Get(healthy.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusSent, loaded.Status)
}

func (suite *engineTestSuite) TestCancelPendingEmail() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.app.CancelScheduledEmail(email.Id))

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusCancelled, loaded.Status)

	// Cancelled rows are never delivered.
	sent, err := suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)
	assert.Zero(suite.T(), sent)
	assert.Zero(suite.T(), suite.transport.Calls())
}

func (suite *engineTestSuite) TestCancelAlreadySentEmail() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	sent, err := suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)
	suite.Require().Equal(1, sent)

	before, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)

	err = suite.app.CancelScheduledEmail(email.Id)
	assert.Equal(suite.T(), automation.AlreadySentErr, err)

	after, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), automation.StatusSent, after.Status)
	assert.Equal(suite.T(), before.SentAt, after.SentAt)
}

func (suite *engineTestSuite) TestCancelAlreadyCancelledEmail() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now())
	suite.Require().NoError(err)

	suite.Require().NoError(suite.app.CancelScheduledEmail(email.Id))

	err = suite.app.CancelScheduledEmail(email.Id)
	assert.Equal(suite.T(), automation.AlreadyCancelledErr, err)
}

func (suite *engineTestSuite) TestMarkOpenedAndClicked() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	email, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, time.Now().Add(-time.Minute))
	suite.Require().NoError(err)

	_, err = suite.app.ProcessPendingEmails(testContext(), time.Now())
	suite.Require().NoError(err)

	openedAt := time.Now()
	suite.Require().NoError(suite.app.MarkOpened(email.Id, openedAt))

	// A second open keeps the first timestamp.
	suite.Require().NoError(suite.app.MarkOpened(email.Id, openedAt.Add(time.Hour)))

	loaded, err := suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	suite.Require().NotNil(loaded.OpenedAt)
	assert.Equal(suite.T(), openedAt, *loaded.OpenedAt)

	clickedAt := openedAt.Add(time.Minute)
	suite.Require().NoError(suite.app.MarkClicked(email.Id, clickedAt))

	loaded, err = suite.scheduled.Get(email.Id)
	suite.Require().NoError(err)
	suite.Require().NotNil(loaded.ClickedAt)
	assert.Equal(suite.T(), clickedAt, *loaded.ClickedAt)
}

func (suite *engineTestSuite) TestPendingEmails() {
	client := suite.createClient()
	template := suite.createTemplate("Session reminder")

	now := time.Now()

	_, err := suite.app.ScheduleEmail(template.Id, client.Id, nil, now.Add(-time.Hour))
	suite.Require().NoError(err)
	_, err = suite.app.ScheduleEmail(template.Id, client.Id, nil, now.Add(time.Hour))
	suite.Require().NoError(err)

	due, err := suite.app.PendingEmails(now)
	suite.Require().NoError(err)

	assert.Len(suite.T(), due, 1)
}
