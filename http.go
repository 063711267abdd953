package automation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/aperture-studios/go-email-automation/internal"
)

// trackingPixel is a transparent 1x1 gif.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type HttpHandler struct {
	app *application
}

// Routes registers the admin and tracking endpoints on the given router.
func (h *HttpHandler) Routes(r *mux.Router) {
	r.HandleFunc("/templates", h.GetAllTemplates).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.CreateTemplate).Methods(http.MethodPost)
	r.HandleFunc("/templates/{id}", h.GetTemplate).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id}", h.UpdateTemplate).Methods(http.MethodPut)
	r.HandleFunc("/templates/{id}", h.DeleteTemplate).Methods(http.MethodDelete)
	r.HandleFunc("/templates/{id}/test-send", h.TestSendTemplate).Methods(http.MethodPost)

	r.HandleFunc("/sequences", h.GetAllSequences).Methods(http.MethodGet)
	r.HandleFunc("/sequences", h.CreateSequence).Methods(http.MethodPost)
	r.HandleFunc("/sequences/{id}", h.GetSequence).Methods(http.MethodGet)
	r.HandleFunc("/sequences/{id}", h.UpdateSequence).Methods(http.MethodPut)
	r.HandleFunc("/sequences/{id}", h.DeleteSequence).Methods(http.MethodDelete)
	r.HandleFunc("/sequences/{id}/trigger", h.TriggerSequence).Methods(http.MethodPost)

	r.HandleFunc("/scheduled", h.GetPendingEmails).Methods(http.MethodGet)
	r.HandleFunc("/scheduled", h.ScheduleEmail).Methods(http.MethodPost)
	r.HandleFunc("/scheduled/{id}/cancel", h.CancelScheduledEmail).Methods(http.MethodPost)

	r.HandleFunc("/track/open/{id}.gif", h.TrackOpen).Methods(http.MethodGet)
	r.HandleFunc("/track/click/{id}", h.TrackClick).Methods(http.MethodGet)
}

func routeId(r *http.Request) (uuid.UUID, bool) {
	raw, ok := mux.Vars(r)["id"]
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func writeJson(w http.ResponseWriter, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to convert to json", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *HttpHandler) GetAllTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.app.Templates()
	if err != nil {
		http.Error(w, "Failed to retrieve templates", 500)
		return
	}

	payload := struct {
		Data []EmailTemplate `json:"data"`
	}{templates}

	writeJson(w, payload)
}

func (h *HttpHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	template, err := h.app.Template(id)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve template", 500)
		return
	}

	writeJson(w, template)
}

func (h *HttpHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	body := &internal.TemplateRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	template := &EmailTemplate{
		Name:      body.Name,
		Type:      TemplateType(body.Type),
		Subject:   body.Subject,
		Body:      body.Body,
		IsDefault: body.IsDefault,
	}

	if err := h.app.CreateTemplate(template); err != nil {
		http.Error(w, "Failed to create template", 500)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, template)
}

func (h *HttpHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	template, err := h.app.Template(id)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve template", 500)
		return
	}

	body := &internal.TemplateRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	template.Name = body.Name
	template.Type = TemplateType(body.Type)
	template.Subject = body.Subject
	template.Body = body.Body
	template.IsDefault = body.IsDefault

	if err := h.app.UpdateTemplate(&template); err != nil {
		http.Error(w, "Failed to update template", 500)
		return
	}

	writeJson(w, template)
}

func (h *HttpHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	if err := h.app.DeleteTemplate(id); err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to delete template", 409)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) TestSendTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	body := &internal.TestSendRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	if body.To == "" {
		http.Error(w, "Missing recipient address", 400)
		return
	}

	messageId, err := h.app.SendTest(r.Context(), id, body.ClientId, body.JobId, body.To)
	if err != nil {
		switch err {
		case TemplateNotFoundErr:
			http.Error(w, "Template not found", 404)

		case ClientNotFoundErr:
			http.Error(w, "Client not found", 404)

		default:
			http.Error(w, "Failed to deliver test email", 500)
		}

		return
	}

	payload := struct {
		MessageId string `json:"messageId"`
	}{messageId}

	writeJson(w, payload)
}

func (h *HttpHandler) GetAllSequences(w http.ResponseWriter, r *http.Request) {
	sequences, err := h.app.Sequences()
	if err != nil {
		http.Error(w, "Failed to retrieve sequences", 500)
		return
	}

	payload := struct {
		Data []EmailSequence `json:"data"`
	}{sequences}

	writeJson(w, payload)
}

func (h *HttpHandler) GetSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	sequence, err := h.app.Sequence(id)
	if err != nil {
		if err == SequenceNotFoundErr {
			http.Error(w, "Sequence not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve sequence", 500)
		return
	}

	writeJson(w, sequence)
}

func sequenceFromRequest(sequence *EmailSequence, body *internal.SequenceRequest) {
	sequence.Name = body.Name
	sequence.Type = SequenceType(body.Type)
	sequence.TriggerEvent = body.TriggerEvent
	sequence.Active = body.Active

	sequence.Steps = make([]SequenceStep, 0, len(body.Steps))
	for _, step := range body.Steps {
		converted := SequenceStep{
			TemplateId: step.TemplateId,
			DelayDays:  step.DelayDays,
			Active:     step.Active,
			Order:      step.Order,
		}

		if step.Id != nil {
			converted.Id = *step.Id
		}

		if step.Condition != nil {
			converted.Condition = &StepCondition{
				Field: step.Condition.Field,
				Op:    ConditionOp(step.Condition.Op),
				Value: step.Condition.Value,
			}
		}

		sequence.Steps = append(sequence.Steps, converted)
	}
}

func (h *HttpHandler) CreateSequence(w http.ResponseWriter, r *http.Request) {
	body := &internal.SequenceRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	sequence := &EmailSequence{}
	sequenceFromRequest(sequence, body)

	if err := h.app.CreateSequence(sequence); err != nil {
		http.Error(w, "Failed to create sequence", 500)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, sequence)
}

func (h *HttpHandler) UpdateSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	sequence, err := h.app.Sequence(id)
	if err != nil {
		if err == SequenceNotFoundErr {
			http.Error(w, "Sequence not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve sequence", 500)
		return
	}

	body := &internal.SequenceRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	sequenceFromRequest(&sequence, body)

	if err := h.app.UpdateSequence(&sequence); err != nil {
		http.Error(w, "Failed to update sequence", 500)
		return
	}

	writeJson(w, sequence)
}

func (h *HttpHandler) DeleteSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	if err := h.app.DeleteSequence(id); err != nil {
		if err == SequenceNotFoundErr {
			http.Error(w, "Sequence not found", 404)
			return
		}

		http.Error(w, "Failed to delete sequence", 500)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) TriggerSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	body := &internal.TriggerSequenceRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	anchor := body.Anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}

	created, err := h.app.TriggerSequence(id, body.ClientId, body.JobId, anchor)
	if err != nil {
		switch err {
		case SequenceNotFoundErr:
			http.Error(w, "Sequence not found", 404)

		case InactiveSequenceErr:
			http.Error(w, "Sequence is not active", 409)

		default:
			http.Error(w, "Failed to trigger sequence", 500)
		}

		return
	}

	payload := struct {
		Data []ScheduledEmail `json:"data"`
	}{created}

	writeJson(w, payload)
}

func (h *HttpHandler) GetPendingEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.app.PendingEmails(time.Now())
	if err != nil {
		http.Error(w, "Failed to retrieve pending emails", 500)
		return
	}

	payload := struct {
		Data []ScheduledEmail `json:"data"`
	}{emails}

	writeJson(w, payload)
}

func (h *HttpHandler) ScheduleEmail(w http.ResponseWriter, r *http.Request) {
	body := &internal.ScheduleEmailRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	email, err := h.app.ScheduleEmail(body.TemplateId, body.ClientId, body.JobId, body.ScheduledAt)
	if err != nil {
		if err == TemplateNotFoundErr {
			http.Error(w, "Template not found", 404)
			return
		}

		http.Error(w, "Failed to schedule email", 500)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJson(w, email)
}

func (h *HttpHandler) CancelScheduledEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := routeId(r)
	if !ok {
		http.Error(w, "Invalid id provided, uuid expected", 400)
		return
	}

	if err := h.app.CancelScheduledEmail(id); err != nil {
		switch err {
		case ScheduledEmailNotFoundErr:
			http.Error(w, "Scheduled email not found", 404)

		case AlreadySentErr:
			http.Error(w, "Already sent", 409)

		case AlreadyCancelledErr:
			http.Error(w, "Already cancelled", 409)

		default:
			http.Error(w, "Failed to cancel scheduled email", 500)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	if id, ok := routeId(r); ok {
		// Tracking failures never surface to the mail client.
		h.app.MarkOpened(id, time.Now())
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(trackingPixel)
}

func (h *HttpHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	if id, ok := routeId(r); ok {
		h.app.MarkClicked(id, time.Now())
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}
