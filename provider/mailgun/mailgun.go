package mailgun

import (
	"context"

	"github.com/mailgun/mailgun-go/v3"
	"github.com/pkg/errors"

	automation "github.com/aperture-studios/go-email-automation"
)

type MailgunOption func(t *mailgunTransport)

// SetTag tags every outgoing message for mailgun-side analytics.
func SetTag(tag string) MailgunOption {
	return func(t *mailgunTransport) {
		t.tag = tag
	}
}

type mailgunTransport struct {
	mg mailgun.Mailgun

	tag string
}

func NewMailgunTransport(mailgunClient mailgun.Mailgun, options ...MailgunOption) automation.EmailTransport {
	t := &mailgunTransport{
		mg: mailgunClient,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

func (t *mailgunTransport) Send(ctx context.Context, to, from, subject, html, replyTo string) (string, error) {
	msg := t.mg.NewMessage(from, subject, "", to)
	msg.SetHtml(html)

	if replyTo != "" {
		msg.SetReplyTo(replyTo)
	}

	if t.tag != "" {
		if err := msg.AddTag(t.tag); err != nil {
			return "", errors.Wrap(err, "Failed to add tag")
		}
	}

	_, id, err := t.mg.Send(ctx, msg)
	if err != nil {
		return "", errors.Wrap(err, "Failed to send message")
	}

	return id, nil
}
