package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a menu entry. The catalog is maintained outside this service.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:nome;not null"`
	Category  *string         `gorm:"column:categoria"`
	Price     decimal.Decimal `gorm:"column:preco;type:numeric(10,2);not null"`
	Active    bool            `gorm:"column:ativo;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
