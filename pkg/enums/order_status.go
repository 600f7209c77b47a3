package enums

import "fmt"

// OrderStatus tracks where an order is in the kitchen/delivery lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendente"
	OrderStatusConfirmed OrderStatus = "confirmado"
	OrderStatusPreparing OrderStatus = "preparando"
	OrderStatusReady     OrderStatus = "pronto"
	OrderStatusInTransit OrderStatus = "em_entrega"
	OrderStatusDelivered OrderStatus = "entregue"
	OrderStatusCanceled  OrderStatus = "cancelado"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
