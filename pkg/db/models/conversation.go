package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/comanda-backend/pkg/enums"
)

// Conversation is one WhatsApp customer thread, unique per customer phone.
type Conversation struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	CustomerPhone   string                 `gorm:"column:numero_cliente;not null;uniqueIndex"`
	CustomerName    *string                `gorm:"column:nome_cliente"`
	Status          *string                `gorm:"column:status"`
	Mode            enums.ConversationMode `gorm:"column:modo;type:text;not null;index"`
	AgentName       *string                `gorm:"column:atendente"`
	ClaimedAt       *time.Time             `gorm:"column:assumido_em"`
	LockExpiresAt   *time.Time             `gorm:"column:bloqueio_expira_em"`
	LastInteraction time.Time              `gorm:"column:ultima_interacao;not null"`
	Messages        []Message              `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
