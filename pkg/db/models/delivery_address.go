package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryAddress is written once with its order. Pickup orders carry
// placeholder values instead of a street address.
type DeliveryAddress struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RecipientName string    `gorm:"column:nome_destinatario;not null"`
	Phone         string    `gorm:"column:telefone;not null;index"`
	PostalCode    *string   `gorm:"column:cep"`
	Street        string    `gorm:"column:rua;not null"`
	Number        string    `gorm:"column:numero;not null"`
	Complement    *string   `gorm:"column:complemento"`
	Neighborhood  string    `gorm:"column:bairro;not null"`
	City          string    `gorm:"column:cidade;not null"`
	State         string    `gorm:"column:estado;not null"`
	Reference     *string   `gorm:"column:referencia"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DeliveryAddress) TableName() string { return "delivery_addresses" }

func (a *DeliveryAddress) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
