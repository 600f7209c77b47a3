package orders

import (
	"fmt"

	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
)

// Action names the caller intent behind a status change.
type Action string

const (
	ActionConfirmPayment Action = "confirm_payment"
	ActionAdvance        Action = "advance"
	ActionCancel         Action = "cancel"
)

// NextStatus returns the single forward status reachable from current. The
// branch after pronto depends on the service type.
func NextStatus(current enums.OrderStatus, serviceType enums.ServiceType) (enums.OrderStatus, bool) {
	switch current {
	case enums.OrderStatusPending:
		return enums.OrderStatusConfirmed, true
	case enums.OrderStatusConfirmed:
		return enums.OrderStatusPreparing, true
	case enums.OrderStatusPreparing:
		return enums.OrderStatusReady, true
	case enums.OrderStatusReady:
		if serviceType == enums.ServiceTypePickup {
			return enums.OrderStatusDelivered, true
		}
		return enums.OrderStatusInTransit, true
	case enums.OrderStatusInTransit:
		if serviceType == enums.ServiceTypePickup {
			return "", false
		}
		return enums.OrderStatusDelivered, true
	default:
		return "", false
	}
}

// NextStatuses lists every status a staff member may move the order to,
// forward step first, cancellation last.
func NextStatuses(current enums.OrderStatus, serviceType enums.ServiceType) []enums.OrderStatus {
	out := []enums.OrderStatus{}
	if next, ok := NextStatus(current, serviceType); ok {
		out = append(out, next)
	}
	if current == enums.OrderStatusPending {
		out = append(out, enums.OrderStatusCanceled)
	}
	return out
}

// resolveTarget decides the status an action moves the order to, or returns
// INVALID_TRANSITION.
func resolveTarget(action Action, current enums.OrderStatus, serviceType enums.ServiceType, requested enums.OrderStatus) (enums.OrderStatus, error) {
	switch action {
	case ActionConfirmPayment:
		if current != enums.OrderStatusPending {
			return "", invalidTransition(action, current, enums.OrderStatusConfirmed, serviceType)
		}
		return enums.OrderStatusConfirmed, nil
	case ActionCancel:
		if current != enums.OrderStatusPending {
			return "", invalidTransition(action, current, enums.OrderStatusCanceled, serviceType)
		}
		return enums.OrderStatusCanceled, nil
	case ActionAdvance:
		next, ok := NextStatus(current, serviceType)
		if !ok || requested != next {
			return "", invalidTransition(action, current, requested, serviceType)
		}
		return next, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown action %q", action))
	}
}

func invalidTransition(action Action, current, requested enums.OrderStatus, serviceType enums.ServiceType) error {
	msg := fmt.Sprintf("cannot move order from %s to %s", current, requested)
	if current.IsTerminal() {
		msg = fmt.Sprintf("order is %s and can no longer change", current)
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, msg).WithDetails(map[string]any{
		"action":    action,
		"current":   current,
		"requested": requested,
		"allowed":   NextStatuses(current, serviceType),
	})
}

func timestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusConfirmed:
		return "confirmed_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	case enums.OrderStatusCanceled:
		return "canceled_at"
	default:
		return ""
	}
}
