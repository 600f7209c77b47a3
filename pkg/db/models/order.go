package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comanda-backend/pkg/enums"
)

// Order is a customer order placed through checkout. Rows are never removed;
// cancellation is a status.
type Order struct {
	ID            string              `gorm:"column:id;type:text;primaryKey"`
	ServiceType   enums.ServiceType   `gorm:"column:tipo_servico;type:text;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;index"`
	PaymentMethod enums.PaymentMethod `gorm:"column:forma_pagamento;type:text;not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DeliveryFee   decimal.Decimal     `gorm:"column:taxa_entrega;type:numeric(10,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	CashTendered  decimal.NullDecimal `gorm:"column:troco_para;type:numeric(10,2)"`
	ChangeDue     decimal.NullDecimal `gorm:"column:troco;type:numeric(10,2)"`
	Notes         *string             `gorm:"column:observacoes"`
	AddressID     *uuid.UUID          `gorm:"column:endereco_id;type:uuid"`
	Address       *DeliveryAddress    `gorm:"foreignKey:AddressID"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt   *time.Time          `gorm:"column:confirmed_at"`
	CanceledAt    *time.Time          `gorm:"column:canceled_at"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
