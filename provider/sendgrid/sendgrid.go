package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	automation "github.com/aperture-studios/go-email-automation"
)

const sendgridApi = "https://api.sendgrid.com/v3/mail/send"

type sendgridTransport struct {
	client *retryablehttp.Client

	apiKey string
}

func NewSendgridTransport(apiKey string) automation.EmailTransport {
	return &sendgridTransport{
		client: retryablehttp.NewClient(),
		apiKey: apiKey,
	}
}

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	ReplyTo          *address          `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

func (t *sendgridTransport) Send(ctx context.Context, to, from, subject, html, replyTo string) (string, error) {
	payload := sendRequest{
		Personalizations: []personalization{
			{To: []address{{Email: to}}},
		},
		From:    address{Email: from},
		Subject: subject,
		Content: []content{
			{Type: "text/html", Value: html},
		},
	}

	if replyTo != "" {
		payload.ReplyTo = &address{Email: replyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, sendgridApi, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req = req.WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", automation.UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 || resp.StatusCode <= 199 {
		return "", errors.Errorf("Unexpected response code %d received from sendgrid", resp.StatusCode)
	}

	return resp.Header.Get("X-Message-Id"), nil
}
