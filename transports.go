package automation

import "context"

// EmailTransport delivers a fully rendered message. Implementations live
// under provider/. A transport error is transient from the engine's point
// of view: the row stays pending and is retried on a later worker pass.
type EmailTransport interface {
	Send(ctx context.Context, to, from, subject, html, replyTo string) (messageId string, err error)
}
