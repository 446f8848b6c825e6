package notifier

import (
	"context"
	"log/slog"

	"github.com/piae/company-expenses/internal/core/events"
)

// RegisterEventHandlers wires the email client to the invitation events.
// Handler errors stay inside the bus; a failed email never fails the
// request that triggered it.
func RegisterEventHandlers(bus *events.EventBus, client *Client, logger *slog.Logger) {
	handle := func(resend bool) events.Handler {
		return func(ctx context.Context, event events.Event) error {
			issued, ok := event.(*events.InvitationIssuedEvent)
			if !ok {
				logger.Warn("unexpected event payload", "event_type", event.EventType())
				return nil
			}
			client.Enqueue(EmailJob{
				InvitationID:  issued.InvitationID,
				Recipient:     issued.Email,
				Token:         issued.Token,
				WorkplaceName: issued.WorkplaceName,
				Resend:        resend,
			})
			return nil
		}
	}

	bus.Subscribe(events.EventTypeInvitationCreated, handle(false))
	bus.Subscribe(events.EventTypeInvitationResent, handle(true))
}
