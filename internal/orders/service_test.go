package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db"
	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/metrics"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Level: zerolog.Disabled, Output: io.Discard})
}

type stubAvailability struct {
	unavailable map[uuid.UUID]bool
	err         error
	calls       int
}

func (s *stubAvailability) IsAvailable(ctx context.Context, productID uuid.UUID) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return !s.unavailable[productID], nil
}

type noopTx struct{}

func (noopTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// stubOrdersRepo records lookups and serves a fixed candidate set.
type stubOrdersRepo struct {
	order       *models.Order
	candidates  []models.Order
	applied     bool
	updateErr   error
	findErr     error
	lookupCalls int
	lastSuffix  string
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindOrderDetail(ctx context.Context, orderID string) (*models.Order, error) {
	return s.FindOrder(ctx, orderID)
}

func (s *stubOrdersRepo) ListOrders(ctx context.Context, query ListQuery) ([]models.Order, error) {
	return s.candidates, nil
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, orderID string, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	return s.applied, s.updateErr
}

func (s *stubOrdersRepo) FindByCodeSuffix(ctx context.Context, suffix string, limit int) ([]models.Order, error) {
	s.lookupCalls++
	s.lastSuffix = suffix
	return s.candidates, nil
}

func (s *stubOrdersRepo) FindByPhoneDigits(ctx context.Context, digits string, limit int) ([]models.Order, error) {
	s.lookupCalls++
	return s.candidates, nil
}

func (s *stubOrdersRepo) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

func (s *stubOrdersRepo) CreateAddress(ctx context.Context, address *models.DeliveryAddress) error {
	return nil
}

func (s *stubOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) error { return nil }

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func newStubService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:         repo,
		Tx:           noopTx{},
		Availability: &stubAvailability{},
		CodePrefix:   "DEL",
		Logger:       testLogger(),
		Now:          func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return svc.(*service)
}

type sqliteFixture struct {
	db           *gorm.DB
	svc          *service
	availability *stubAvailability
	registry     *prometheus.Registry
}

func newSQLiteService(t *testing.T, opts ...func(*ServiceParams)) sqliteFixture {
	t.Helper()
	conn := setupOrdersTestDB(t)
	availability := &stubAvailability{}
	registry := prometheus.NewRegistry()
	params := ServiceParams{
		Repo:         NewRepository(conn),
		Tx:           db.Wrap(conn),
		Availability: availability,
		DeliveryFee:  decimal.RequireFromString("7.50"),
		CodePrefix:   "DEL",
		Metrics:      metrics.NewOrderMetrics(registry),
		Logger:       testLogger(),
		Now:          func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return sqliteFixture{db: conn, svc: svc.(*service), availability: availability, registry: registry}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{
		Repo:         &stubOrdersRepo{},
		Tx:           noopTx{},
		Availability: &stubAvailability{},
		Logger:       testLogger(),
		DeliveryFee:  decimal.NewFromInt(-1),
	})
	assert.Error(t, err)
}

func TestDeliveryOrderLifecycle(t *testing.T) {
	fx := newSQLiteService(t)
	ctx := context.Background()
	pizza := insertProduct(t, fx.db, "Pizza Margherita", "39.90", true)

	placed, err := fx.svc.Checkout(ctx, CheckoutInput{
		ServiceType:   enums.ServiceTypeDelivery,
		PaymentMethod: enums.PaymentMethodPix,
		Items:         []CheckoutItemInput{{ProductID: pizza.ID, Quantity: 2}},
		Address: CheckoutAddressInput{
			RecipientName: "Maria",
			Phone:         "(11) 98765-4321",
			Street:        "Rua das Flores",
			Number:        "10",
			Neighborhood:  "Centro",
			City:          "Campinas",
			State:         "SP",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, placed.Status)

	res, err := fx.svc.ConfirmPayment(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, res.Status)
	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusPreparing}, res.NextStatuses)

	for _, target := range []enums.OrderStatus{
		enums.OrderStatusPreparing,
		enums.OrderStatusReady,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
	} {
		res, err = fx.svc.Advance(ctx, placed.OrderID, target)
		require.NoError(t, err, "advance to %s", target)
		assert.Equal(t, target, res.Status)
	}
	assert.Empty(t, res.NextStatuses)

	_, err = fx.svc.Cancel(ctx, placed.OrderID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	detail, err := fx.svc.Detail(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, detail.Status)
	require.NotNil(t, detail.ConfirmedAt)
	require.NotNil(t, detail.DeliveredAt)
	assert.Nil(t, detail.CanceledAt)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "Pizza Margherita", detail.Items[0].ProductName)
	assert.Equal(t, 2, detail.Items[0].Quantity)

	transitions, err := testutil.GatherAndCount(fx.registry, "order_status_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 5, transitions)
	rejections, err := testutil.GatherAndCount(fx.registry, "order_transition_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, rejections)
}

func TestCancelOnlyFromPending(t *testing.T) {
	fx := newSQLiteService(t)
	ctx := context.Background()

	pending := insertOrder(t, fx.db, seedOrder{phone: "11987654321"})
	res, err := fx.svc.Cancel(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, res.Status)

	var stored models.Order
	require.NoError(t, fx.db.First(&stored, "id = ?", pending.ID).Error)
	require.NotNil(t, stored.CanceledAt)

	_, err = fx.svc.Advance(ctx, pending.ID, enums.OrderStatusConfirmed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	preparing := insertOrder(t, fx.db, seedOrder{phone: "11987654321", status: enums.OrderStatusPreparing})
	_, err = fx.svc.Cancel(ctx, preparing.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestTransitionMissingOrder(t *testing.T) {
	fx := newSQLiteService(t)
	_, err := fx.svc.ConfirmPayment(context.Background(), uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = fx.svc.Detail(context.Background(), uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransitionLostRaceIsInvalidTransition(t *testing.T) {
	repo := &stubOrdersRepo{
		order:   &models.Order{ID: "o-1", Status: enums.OrderStatusPending, ServiceType: enums.ServiceTypePickup},
		applied: false,
	}
	svc := newStubService(t, repo)

	_, err := svc.ConfirmPayment(context.Background(), "o-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestTransitionStoreFailureIsUpstream(t *testing.T) {
	repo := &stubOrdersRepo{findErr: errors.New("connection reset")}
	svc := newStubService(t, repo)
	_, err := svc.ConfirmPayment(context.Background(), "o-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))

	repo = &stubOrdersRepo{
		order:     &models.Order{ID: "o-1", Status: enums.OrderStatusPending, ServiceType: enums.ServiceTypePickup},
		updateErr: errors.New("connection reset"),
	}
	svc = newStubService(t, repo)
	_, err = svc.Cancel(context.Background(), "o-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
}

func TestAdvanceRejectsUnknownStatus(t *testing.T) {
	svc := newStubService(t, &stubOrdersRepo{})
	_, err := svc.Advance(context.Background(), "o-1", enums.OrderStatus("shipped"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
}

func TestListPaginatesWithCursor(t *testing.T) {
	fx := newSQLiteService(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		insertOrder(t, fx.db, seedOrder{phone: "11987654321", createdAt: base.Add(time.Duration(i) * time.Minute)})
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := fx.svc.List(ctx, pagination.Params{Limit: 2, Cursor: cursor}, ListFilters{})
		require.NoError(t, err)
		pages++
		for _, o := range page.Orders {
			assert.False(t, seen[o.ID], "order %s returned twice", o.ID)
			seen[o.ID] = true
			assert.Equal(t, "DEL", o.DisplayCode[:3])
			assert.Equal(t, []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCanceled}, o.NextStatuses)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
}

func TestListRejectsBadInput(t *testing.T) {
	svc := newStubService(t, &stubOrdersRepo{})

	_, err := svc.List(context.Background(), pagination.Params{Cursor: "%%%"}, ListFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))

	bogus := enums.OrderStatus("lost")
	_, err = svc.List(context.Background(), pagination.Params{}, ListFilters{Status: &bogus})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
}
