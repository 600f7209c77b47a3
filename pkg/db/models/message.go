package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/comanda-backend/pkg/enums"
)

type Message struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ConversationID uuid.UUID              `gorm:"column:conversa_id;type:uuid;not null;index"`
	Direction      enums.MessageDirection `gorm:"column:tipo;type:text;not null"`
	Content        string                 `gorm:"column:conteudo;type:text;not null"`
	Timestamp      time.Time              `gorm:"column:timestamp;not null"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
