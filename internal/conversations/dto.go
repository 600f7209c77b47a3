package conversations

import (
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/google/uuid"
)

// ConversationSummary is one row of the dashboard conversation list.
type ConversationSummary struct {
	ID              uuid.UUID              `json:"id"`
	CustomerPhone   string                 `json:"numero_cliente"`
	CustomerName    *string                `json:"nome_cliente,omitempty"`
	Status          *string                `json:"status,omitempty"`
	Mode            enums.ConversationMode `json:"modo"`
	AgentName       *string                `json:"atendente,omitempty"`
	ClaimedAt       *time.Time             `json:"assumido_em,omitempty"`
	LockExpiresAt   *time.Time             `json:"bloqueio_expira_em,omitempty"`
	ClaimExpired    bool                   `json:"bloqueio_expirado"`
	LastInteraction time.Time              `json:"ultima_interacao"`
}

// ConversationList wraps a page of conversations plus the next cursor.
type ConversationList struct {
	Conversations []ConversationSummary `json:"conversations"`
	NextCursor    string                `json:"next_cursor,omitempty"`
}

// MessageView is one stored chat message.
type MessageView struct {
	ID                uuid.UUID              `json:"id"`
	ConversationID    uuid.UUID              `json:"conversa_id"`
	Direction         enums.MessageDirection `json:"tipo"`
	Content           string                 `json:"conteudo"`
	Timestamp         time.Time              `json:"timestamp"`
	ProviderMessageID string                 `json:"provider_message_id,omitempty"`
}

// ConversationDetail is a conversation with its message history.
type ConversationDetail struct {
	ConversationSummary
	Messages []MessageView `json:"mensagens"`
}

// ClaimResult is returned by a successful takeover.
type ClaimResult struct {
	ConversationID uuid.UUID              `json:"id"`
	Mode           enums.ConversationMode `json:"modo"`
	AgentName      string                 `json:"atendente"`
	ClaimedAt      time.Time              `json:"assumido_em"`
	ExpiresAt      time.Time              `json:"bloqueio_expira_em"`
}

// ReleaseResult is returned by a successful release.
type ReleaseResult struct {
	ConversationID uuid.UUID              `json:"id"`
	Mode           enums.ConversationMode `json:"modo"`
}

// IngestResult reports what a webhook delivery produced.
type IngestResult struct {
	ConversationID uuid.UUID `json:"conversa_id,omitempty"`
	MessageID      uuid.UUID `json:"mensagem_id,omitempty"`
	Duplicate      bool      `json:"duplicate"`
}

func toSummary(c models.Conversation, now time.Time) ConversationSummary {
	return ConversationSummary{
		ID:              c.ID,
		CustomerPhone:   c.CustomerPhone,
		CustomerName:    c.CustomerName,
		Status:          c.Status,
		Mode:            c.Mode,
		AgentName:       c.AgentName,
		ClaimedAt:       c.ClaimedAt,
		LockExpiresAt:   c.LockExpiresAt,
		ClaimExpired:    claimExpired(c, now),
		LastInteraction: c.LastInteraction,
	}
}

func toMessageView(m models.Message) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Direction:      m.Direction,
		Content:        m.Content,
		Timestamp:      m.Timestamp,
	}
}

// claimExpired reports whether a human claim is past its advisory expiry.
func claimExpired(c models.Conversation, now time.Time) bool {
	return c.Mode == enums.ConversationModeHuman && c.LockExpiresAt != nil && !now.Before(*c.LockExpiresAt)
}
