package internal

import (
	"time"

	"github.com/google/uuid"
)

type TemplateRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	IsDefault bool   `json:"isDefault"`
}

type SequenceStepRequest struct {
	Id         *uuid.UUID     `json:"id,omitempty"`
	TemplateId uuid.UUID      `json:"templateId"`
	DelayDays  int            `json:"delayDays"`
	Condition  *StepCondition `json:"condition,omitempty"`
	Active     bool           `json:"active"`
	Order      int            `json:"order"`
}

type StepCondition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
}

type SequenceRequest struct {
	Name         string                `json:"name"`
	Type         string                `json:"type"`
	TriggerEvent string                `json:"triggerEvent"`
	Active       bool                  `json:"active"`
	Steps        []SequenceStepRequest `json:"steps"`
}

type TriggerSequenceRequest struct {
	ClientId uuid.UUID  `json:"clientId"`
	JobId    *uuid.UUID `json:"jobId,omitempty"`
	Anchor   time.Time  `json:"anchor"`
}

type TestSendRequest struct {
	ClientId uuid.UUID  `json:"clientId"`
	JobId    *uuid.UUID `json:"jobId,omitempty"`
	To       string     `json:"to"`
}

type ScheduleEmailRequest struct {
	TemplateId  uuid.UUID  `json:"templateId"`
	ClientId    uuid.UUID  `json:"clientId"`
	JobId       *uuid.UUID `json:"jobId,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
}
