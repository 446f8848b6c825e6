package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInvitationCreated = "invitation.created"
	EventTypeInvitationResent  = "invitation.resent"
)

// InvitationIssuedEvent is published whenever an invitation needs an email
// sent, both on first creation and on resend.
type InvitationIssuedEvent struct {
	BaseEvent
	InvitationID  string `json:"invitation_id"`
	Email         string `json:"email"`
	Token         string `json:"token"`
	WorkplaceName string `json:"workplace_name,omitempty"`
}

func NewInvitationCreatedEvent(invitationID, email, token, workplaceName string) *InvitationIssuedEvent {
	return newInvitationIssuedEvent(EventTypeInvitationCreated, invitationID, email, token, workplaceName)
}

func NewInvitationResentEvent(invitationID, email, token, workplaceName string) *InvitationIssuedEvent {
	return newInvitationIssuedEvent(EventTypeInvitationResent, invitationID, email, token, workplaceName)
}

func newInvitationIssuedEvent(eventType, invitationID, email, token, workplaceName string) *InvitationIssuedEvent {
	return &InvitationIssuedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invitation_id": invitationID,
				"email":         email,
			},
		},
		InvitationID:  invitationID,
		Email:         email,
		Token:         token,
		WorkplaceName: workplaceName,
	}
}
