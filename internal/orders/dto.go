package orders

import (
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilters describe the inputs supported by the dashboard order list.
type ListFilters struct {
	Status      *enums.OrderStatus
	ServiceType *enums.ServiceType
}

// OrderSummary is one row of the dashboard list.
type OrderSummary struct {
	ID            string              `json:"id"`
	DisplayCode   string              `json:"display_code"`
	Status        enums.OrderStatus   `json:"status"`
	ServiceType   enums.ServiceType   `json:"tipo_servico"`
	PaymentMethod enums.PaymentMethod `json:"forma_pagamento"`
	Total         decimal.Decimal     `json:"total"`
	CustomerName  string              `json:"customer_name,omitempty"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	NextStatuses  []enums.OrderStatus `json:"next_statuses"`
}

// OrderList wraps a page of orders plus the cursor for the next one.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// AddressDetail mirrors the stored delivery address.
type AddressDetail struct {
	RecipientName string  `json:"nome_destinatario"`
	Phone         string  `json:"telefone"`
	PostalCode    *string `json:"cep,omitempty"`
	Street        string  `json:"rua"`
	Number        string  `json:"numero"`
	Complement    *string `json:"complemento,omitempty"`
	Neighborhood  string  `json:"bairro"`
	City          string  `json:"cidade"`
	State         string  `json:"estado"`
	Reference     *string `json:"referencia,omitempty"`
}

// OrderItemDetail is one line of an order with its product name resolved.
type OrderItemDetail struct {
	ProductID   uuid.UUID       `json:"produto_id"`
	ProductName string          `json:"produto_nome,omitempty"`
	Quantity    int             `json:"quantidade"`
	UnitPrice   decimal.Decimal `json:"preco_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Notes       *string         `json:"observacoes,omitempty"`
}

// OrderDetail is the full order view shown to kitchen and attendants.
type OrderDetail struct {
	OrderSummary
	Subtotal     decimal.Decimal     `json:"subtotal"`
	DeliveryFee  decimal.Decimal     `json:"taxa_entrega"`
	CashTendered decimal.NullDecimal `json:"troco_para"`
	ChangeDue    decimal.NullDecimal `json:"troco"`
	Notes        *string             `json:"observacoes,omitempty"`
	Address      *AddressDetail      `json:"endereco,omitempty"`
	Items        []OrderItemDetail   `json:"itens"`
	ConfirmedAt  *time.Time          `json:"confirmed_at,omitempty"`
	CanceledAt   *time.Time          `json:"canceled_at,omitempty"`
	DeliveredAt  *time.Time          `json:"delivered_at,omitempty"`
}

// TransitionResult reports a status change that was applied.
type TransitionResult struct {
	OrderID      string              `json:"id"`
	From         enums.OrderStatus   `json:"from"`
	Status       enums.OrderStatus   `json:"status"`
	NextStatuses []enums.OrderStatus `json:"next_statuses"`
}

// CheckoutItemInput is one cart line submitted at checkout.
type CheckoutItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Notes     *string
}

// CheckoutAddressInput carries the customer contact and, for delivery, the
// street address.
type CheckoutAddressInput struct {
	RecipientName string
	Phone         string
	PostalCode    *string
	Street        string
	Number        string
	Complement    *string
	Neighborhood  string
	City          string
	State         string
	Reference     *string
}

// CheckoutInput is the full client-side cart plus customer data.
type CheckoutInput struct {
	ServiceType   enums.ServiceType
	PaymentMethod enums.PaymentMethod
	Items         []CheckoutItemInput
	Address       CheckoutAddressInput
	CashTendered  *decimal.Decimal
	Notes         *string
}

// CheckoutResult is returned to the customer after the order is stored.
type CheckoutResult struct {
	OrderID     string              `json:"id"`
	DisplayCode string              `json:"display_code"`
	Status      enums.OrderStatus   `json:"status"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	DeliveryFee decimal.Decimal     `json:"taxa_entrega"`
	Total       decimal.Decimal     `json:"total"`
	ChangeDue   decimal.NullDecimal `json:"troco"`
}

// LookupMatch is one customer-facing order found by code or phone.
type LookupMatch struct {
	OrderID      string            `json:"id"`
	DisplayCode  string            `json:"display_code"`
	DisplayPhone string            `json:"display_phone"`
	Status       enums.OrderStatus `json:"status"`
	ServiceType  enums.ServiceType `json:"tipo_servico"`
	Total        decimal.Decimal   `json:"total"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (s *service) toSummary(order models.Order) OrderSummary {
	summary := OrderSummary{
		ID:            order.ID,
		DisplayCode:   DisplayCode(s.codePrefix, order.ID),
		Status:        order.Status,
		ServiceType:   order.ServiceType,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		CreatedAt:     order.CreatedAt,
		NextStatuses:  NextStatuses(order.Status, order.ServiceType),
	}
	if order.Address != nil {
		summary.CustomerName = order.Address.RecipientName
		summary.CustomerPhone = order.Address.Phone
	}
	return summary
}

func (s *service) toDetail(order models.Order) *OrderDetail {
	detail := &OrderDetail{
		OrderSummary: s.toSummary(order),
		Subtotal:     order.Subtotal,
		DeliveryFee:  order.DeliveryFee,
		CashTendered: order.CashTendered,
		ChangeDue:    order.ChangeDue,
		Notes:        order.Notes,
		Items:        make([]OrderItemDetail, 0, len(order.Items)),
		ConfirmedAt:  order.ConfirmedAt,
		CanceledAt:   order.CanceledAt,
		DeliveredAt:  order.DeliveredAt,
	}
	if a := order.Address; a != nil {
		detail.Address = &AddressDetail{
			RecipientName: a.RecipientName,
			Phone:         a.Phone,
			PostalCode:    a.PostalCode,
			Street:        a.Street,
			Number:        a.Number,
			Complement:    a.Complement,
			Neighborhood:  a.Neighborhood,
			City:          a.City,
			State:         a.State,
			Reference:     a.Reference,
		}
	}
	for _, item := range order.Items {
		line := OrderItemDetail{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
			Notes:     item.Notes,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
		}
		detail.Items = append(detail.Items, line)
	}
	return detail
}
