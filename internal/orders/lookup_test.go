package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, service enums.ServiceType, status enums.OrderStatus, total string, phone string) models.Order {
	return models.Order{
		ID:          id,
		ServiceType: service,
		Status:      status,
		Total:       decimal.RequireFromString(total),
		Address:     &models.DeliveryAddress{Phone: phone},
		CreatedAt:   time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC),
	}
}

func collect(t *testing.T, seq func(func(LookupMatch) bool)) []LookupMatch {
	t.Helper()
	var out []LookupMatch
	for m := range seq {
		out = append(out, m)
	}
	return out
}

func TestDisplayCode(t *testing.T) {
	assert.Equal(t, "DELABCD5678", DisplayCode("DEL", "6f1c2d3e-aaaa-bbbb-cccc-0123abcd5678"))
	assert.Equal(t, "DELAB12", DisplayCode("DEL", "ab12"))
}

func TestEligibleForLookup(t *testing.T) {
	cases := []struct {
		name  string
		order models.Order
		want  bool
	}{
		{"delivery with phone", candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusPending, "10.00", "11987654321"), true},
		{"canceled", candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusCanceled, "10.00", "11987654321"), false},
		{"zero total", candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusPending, "0", "11987654321"), false},
		{"delivery with placeholder phone", candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusPending, "10.00", " n/a "), false},
		{"delivery with pickup sentinel", candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusPending, "10.00", "retirada no local"), false},
		{"delivery with blank phone", candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusPending, "10.00", "  "), false},
		{"pickup without phone", candidate("a", enums.ServiceTypePickup, enums.OrderStatusReady, "10.00", ""), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, eligibleForLookup(tc.order))
		})
	}

	noAddress := candidate("a", enums.ServiceTypeDelivery, enums.OrderStatusPending, "10.00", "")
	noAddress.Address = nil
	assert.False(t, eligibleForLookup(noAddress))
}

func TestLookupByCodeStripsPrefix(t *testing.T) {
	repo := &stubOrdersRepo{candidates: []models.Order{
		candidate("0000-abc12345", enums.ServiceTypeDelivery, enums.OrderStatusPending, "30.00", "11987654321"),
	}}
	svc := newStubService(t, repo)

	seq, err := svc.LookupByCode(context.Background(), "  DELabc12345 ")
	require.NoError(t, err)
	assert.Equal(t, "abc12345", repo.lastSuffix)

	matches := collect(t, seq)
	require.Len(t, matches, 1)
	assert.Equal(t, "DELABC12345", matches[0].DisplayCode)
	assert.Equal(t, "11987654321", matches[0].DisplayPhone)

	_, err = svc.LookupByCode(context.Background(), "del")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
	_, err = svc.LookupByCode(context.Background(), "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
	assert.Equal(t, 1, repo.lookupCalls)
}

func TestLookupByPhoneRequiresTenDigitsWithoutStoreCall(t *testing.T) {
	repo := &stubOrdersRepo{}
	svc := newStubService(t, repo)

	_, err := svc.LookupByPhone(context.Background(), "(11) 9876-543")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
	assert.Zero(t, repo.lookupCalls)
}

func TestLookupNotFoundIsDistinctFromInvalidInput(t *testing.T) {
	repo := &stubOrdersRepo{candidates: []models.Order{
		candidate("0000-abc12345", enums.ServiceTypeDelivery, enums.OrderStatusCanceled, "30.00", "11987654321"),
	}}
	svc := newStubService(t, repo)

	_, err := svc.LookupByCode(context.Background(), "abc12345")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.False(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
}

func TestLookupSequenceIsSingleUse(t *testing.T) {
	repo := &stubOrdersRepo{candidates: []models.Order{
		candidate("1111-aaaa0001", enums.ServiceTypeDelivery, enums.OrderStatusPending, "30.00", "(11) 98765-4321"),
		candidate("2222-aaaa0002", enums.ServiceTypePickup, enums.OrderStatusReady, "12.00", ""),
		candidate("3333-aaaa0003", enums.ServiceTypeDelivery, enums.OrderStatusCanceled, "12.00", "(11) 98765-4321"),
	}}
	svc := newStubService(t, repo)

	seq, err := svc.LookupByPhone(context.Background(), "11 98765 4321")
	require.NoError(t, err)

	first := collect(t, seq)
	require.Len(t, first, 1)
	assert.Equal(t, "1111-aaaa0001", first[0].OrderID)
	assert.Empty(t, collect(t, seq))
}

func TestLookupPickupFallsBackToPlaceholderPhone(t *testing.T) {
	repo := &stubOrdersRepo{candidates: []models.Order{
		candidate("2222-aaaa0002", enums.ServiceTypePickup, enums.OrderStatusReady, "12.00", "N/A"),
	}}
	svc := newStubService(t, repo)

	seq, err := svc.LookupByCode(context.Background(), "aaaa0002")
	require.NoError(t, err)
	matches := collect(t, seq)
	require.Len(t, matches, 1)
	assert.Equal(t, PickupPlaceholder, matches[0].DisplayPhone)
}

func TestLookupRoundTripThroughStore(t *testing.T) {
	fx := newSQLiteService(t)
	ctx := context.Background()
	pizza := insertProduct(t, fx.db, "Pizza", "39.90", true)

	placed, err := fx.svc.Checkout(ctx, CheckoutInput{
		ServiceType:   enums.ServiceTypeDelivery,
		PaymentMethod: enums.PaymentMethodCard,
		Items:         []CheckoutItemInput{{ProductID: pizza.ID, Quantity: 1}},
		Address: CheckoutAddressInput{
			RecipientName: "Joao",
			Phone:         "(11) 91234-5678",
			Street:        "Av. Brasil",
			Number:        "200",
			Neighborhood:  "Jardim",
			City:          "Campinas",
			State:         "SP",
		},
	})
	require.NoError(t, err)

	seq, err := fx.svc.LookupByCode(ctx, placed.DisplayCode)
	require.NoError(t, err)
	byCode := collect(t, seq)
	require.Len(t, byCode, 1)
	assert.Equal(t, placed.OrderID, byCode[0].OrderID)

	seq, err = fx.svc.LookupByPhone(ctx, "11912345678")
	require.NoError(t, err)
	byPhone := collect(t, seq)
	require.Len(t, byPhone, 1)
	assert.Equal(t, placed.OrderID, byPhone[0].OrderID)
	assert.Equal(t, placed.DisplayCode, byPhone[0].DisplayCode)

	_, err = fx.svc.Cancel(ctx, placed.OrderID)
	require.NoError(t, err)
	_, err = fx.svc.LookupByCode(ctx, placed.DisplayCode)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
