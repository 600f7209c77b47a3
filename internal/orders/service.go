package orders

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/metrics"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes the order workflow, checkout and lookup operations.
type Service interface {
	ConfirmPayment(ctx context.Context, orderID string) (*TransitionResult, error)
	Advance(ctx context.Context, orderID string, target enums.OrderStatus) (*TransitionResult, error)
	Cancel(ctx context.Context, orderID string) (*TransitionResult, error)
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	Detail(ctx context.Context, orderID string) (*OrderDetail, error)
	LookupByCode(ctx context.Context, fragment string) (iter.Seq[LookupMatch], error)
	LookupByPhone(ctx context.Context, fragment string) (iter.Seq[LookupMatch], error)
}

// ServiceParams groups the dependencies of NewService.
type ServiceParams struct {
	Repo         Repository
	Tx           db.TxRunner
	Availability AvailabilityChecker
	Policy       AvailabilityPolicy
	Window       DeliveryWindow
	DeliveryFee  decimal.Decimal
	CodePrefix   string
	Metrics      *metrics.OrderMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	repo         Repository
	tx           db.TxRunner
	availability AvailabilityChecker
	policy       AvailabilityPolicy
	window       DeliveryWindow
	deliveryFee  decimal.Decimal
	codePrefix   string
	metrics      *metrics.OrderMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DeliveryFee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must not be negative")
	}
	policy := params.Policy
	if policy == "" {
		policy = AssumeAvailable
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		availability: params.Availability,
		policy:       policy,
		window:       params.Window,
		deliveryFee:  params.DeliveryFee,
		codePrefix:   params.CodePrefix,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, orderID string) (*TransitionResult, error) {
	return s.transition(ctx, orderID, ActionConfirmPayment, enums.OrderStatusConfirmed)
}

func (s *service) Advance(ctx context.Context, orderID string, target enums.OrderStatus) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown status %q", target))
	}
	return s.transition(ctx, orderID, ActionAdvance, target)
}

func (s *service) Cancel(ctx context.Context, orderID string) (*TransitionResult, error) {
	return s.transition(ctx, orderID, ActionCancel, enums.OrderStatusCanceled)
}

func (s *service) transition(ctx context.Context, orderID string, action Action, requested enums.OrderStatus) (*TransitionResult, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "load order")
	}

	target, err := resolveTarget(action, order.Status, order.ServiceType, requested)
	if err != nil {
		s.metrics.IncRejection(string(action))
		return nil, err
	}

	now := s.now().UTC()
	extra := map[string]any{}
	if column := timestampColumn(target); column != "" {
		extra[column] = now
	}

	applied, err := s.repo.UpdateStatus(ctx, orderID, order.Status, target, extra)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "update order status")
	}
	if !applied {
		s.metrics.IncRejection(string(action))
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status changed concurrently").
			WithDetails(map[string]any{"action": action, "expected": order.Status})
	}

	s.metrics.IncTransition(string(order.Status), string(target))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":   order.Status,
		"to":     target,
		"action": action,
	}), "order status changed")

	return &TransitionResult{
		OrderID:      orderID,
		From:         order.Status,
		Status:       target,
		NextStatuses: NextStatuses(target, order.ServiceType),
	}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "invalid cursor")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown status %q", *filters.Status))
	}
	if filters.ServiceType != nil && !filters.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown service type %q", *filters.ServiceType))
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListOrders(ctx, ListQuery{
		Filters: filters,
		Cursor:  cursor,
		Limit:   limit + 1,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, min(len(rows), limit))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, s.toSummary(row))
	}
	return list, nil
}

func (s *service) Detail(ctx context.Context, orderID string) (*OrderDetail, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "order id required")
	}
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "load order detail")
	}
	return s.toDetail(*order), nil
}

// storeError maps a missing row to NOT_FOUND and anything else to
// UPSTREAM_ERROR.
func storeError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, action)
}
