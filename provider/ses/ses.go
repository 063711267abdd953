package ses

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"

	automation "github.com/aperture-studios/go-email-automation"
)

type sesTransport struct {
	ses *ses.SES

	charset string
}

func NewSesTransport(sess *session.Session) automation.EmailTransport {
	return &sesTransport{
		ses:     ses.New(sess),
		charset: "UTF-8",
	}
}

func (transport *sesTransport) Send(ctx context.Context, to, from, subject, html, replyTo string) (string, error) {
	input := &ses.SendEmailInput{
		Destination: &ses.Destination{
			ToAddresses: []*string{
				aws.String(to),
			},
		},
		Message: &ses.Message{
			Body: &ses.Body{
				Html: &ses.Content{
					Charset: aws.String(transport.charset),
					Data:    aws.String(html),
				},
			},
			Subject: &ses.Content{
				Charset: aws.String(transport.charset),
				Data:    aws.String(subject),
			},
		},

		Source: aws.String(from),
	}

	if replyTo != "" {
		input.ReplyToAddresses = []*string{aws.String(replyTo)}
	}

	out, err := transport.ses.SendEmailWithContext(ctx, input)
	if err != nil {
		return "", err
	}

	return aws.StringValue(out.MessageId), nil
}
