package orders

import (
	"testing"

	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatusBranchesOnServiceType(t *testing.T) {
	cases := []struct {
		current enums.OrderStatus
		service enums.ServiceType
		want    enums.OrderStatus
		ok      bool
	}{
		{enums.OrderStatusPending, enums.ServiceTypeDelivery, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusConfirmed, enums.ServiceTypeDelivery, enums.OrderStatusPreparing, true},
		{enums.OrderStatusPreparing, enums.ServiceTypePickup, enums.OrderStatusReady, true},
		{enums.OrderStatusReady, enums.ServiceTypeDelivery, enums.OrderStatusInTransit, true},
		{enums.OrderStatusReady, enums.ServiceTypePickup, enums.OrderStatusDelivered, true},
		{enums.OrderStatusInTransit, enums.ServiceTypeDelivery, enums.OrderStatusDelivered, true},
		{enums.OrderStatusInTransit, enums.ServiceTypePickup, "", false},
		{enums.OrderStatusDelivered, enums.ServiceTypeDelivery, "", false},
		{enums.OrderStatusCanceled, enums.ServiceTypePickup, "", false},
	}
	for _, tc := range cases {
		got, ok := NextStatus(tc.current, tc.service)
		assert.Equal(t, tc.ok, ok, "%s/%s", tc.current, tc.service)
		assert.Equal(t, tc.want, got, "%s/%s", tc.current, tc.service)
	}
}

func TestNextStatusesIncludesCancelOnlyWhilePending(t *testing.T) {
	assert.Equal(t,
		[]enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCanceled},
		NextStatuses(enums.OrderStatusPending, enums.ServiceTypeDelivery))
	assert.Equal(t,
		[]enums.OrderStatus{enums.OrderStatusPreparing},
		NextStatuses(enums.OrderStatusConfirmed, enums.ServiceTypeDelivery))
	assert.Empty(t, NextStatuses(enums.OrderStatusDelivered, enums.ServiceTypePickup))
	assert.Empty(t, NextStatuses(enums.OrderStatusCanceled, enums.ServiceTypeDelivery))
}

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		name      string
		action    Action
		current   enums.OrderStatus
		service   enums.ServiceType
		requested enums.OrderStatus
		want      enums.OrderStatus
		wantCode  pkgerrors.Code
	}{
		{"confirm payment from pending", ActionConfirmPayment, enums.OrderStatusPending, enums.ServiceTypeDelivery, "", enums.OrderStatusConfirmed, ""},
		{"confirm payment twice", ActionConfirmPayment, enums.OrderStatusConfirmed, enums.ServiceTypeDelivery, "", "", pkgerrors.CodeInvalidTransition},
		{"cancel pending", ActionCancel, enums.OrderStatusPending, enums.ServiceTypePickup, "", enums.OrderStatusCanceled, ""},
		{"cancel preparing", ActionCancel, enums.OrderStatusPreparing, enums.ServiceTypePickup, "", "", pkgerrors.CodeInvalidTransition},
		{"advance pending to confirmed", ActionAdvance, enums.OrderStatusPending, enums.ServiceTypeDelivery, enums.OrderStatusConfirmed, enums.OrderStatusConfirmed, ""},
		{"advance skips a step", ActionAdvance, enums.OrderStatusConfirmed, enums.ServiceTypeDelivery, enums.OrderStatusReady, "", pkgerrors.CodeInvalidTransition},
		{"advance backwards", ActionAdvance, enums.OrderStatusReady, enums.ServiceTypeDelivery, enums.OrderStatusPreparing, "", pkgerrors.CodeInvalidTransition},
		{"advance delivery from ready", ActionAdvance, enums.OrderStatusReady, enums.ServiceTypeDelivery, enums.OrderStatusInTransit, enums.OrderStatusInTransit, ""},
		{"pickup never goes in transit", ActionAdvance, enums.OrderStatusReady, enums.ServiceTypePickup, enums.OrderStatusInTransit, "", pkgerrors.CodeInvalidTransition},
		{"pickup ready to delivered", ActionAdvance, enums.OrderStatusReady, enums.ServiceTypePickup, enums.OrderStatusDelivered, enums.OrderStatusDelivered, ""},
		{"advance to canceled", ActionAdvance, enums.OrderStatusPending, enums.ServiceTypeDelivery, enums.OrderStatusCanceled, "", pkgerrors.CodeInvalidTransition},
		{"delivered is terminal", ActionAdvance, enums.OrderStatusDelivered, enums.ServiceTypeDelivery, enums.OrderStatusInTransit, "", pkgerrors.CodeInvalidTransition},
		{"canceled is terminal", ActionConfirmPayment, enums.OrderStatusCanceled, enums.ServiceTypeDelivery, "", "", pkgerrors.CodeInvalidTransition},
		{"unknown action", Action("refund"), enums.OrderStatusPending, enums.ServiceTypeDelivery, "", "", pkgerrors.CodeInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveTarget(tc.action, tc.current, tc.service, tc.requested)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, tc.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTerminalStatusMessage(t *testing.T) {
	_, err := resolveTarget(ActionCancel, enums.OrderStatusDelivered, enums.ServiceTypeDelivery, "")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "order is entregue and can no longer change", typed.Message())
}
