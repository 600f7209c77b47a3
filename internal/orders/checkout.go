package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Checkout prices the submitted cart against the catalog and stores the
// address, order and items in one transaction. New orders start pendente.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	if input.ServiceType == enums.ServiceTypeDelivery && !s.window.Contains(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "delivery is closed right now").
			WithDetails(map[string]any{"window": s.window.String()})
	}

	products, err := s.loadProducts(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, input.Items); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero
	for _, line := range input.Items {
		product := products[line.ProductID]
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Subtotal:  lineTotal,
			Notes:     trimmedOrNil(line.Notes),
		})
	}

	fee := decimal.Zero
	if input.ServiceType == enums.ServiceTypeDelivery {
		fee = s.deliveryFee
	}
	total := subtotal.Add(fee)

	var tendered, change decimal.NullDecimal
	if input.PaymentMethod == enums.PaymentMethodCash && input.CashTendered != nil {
		if input.CashTendered.LessThan(total) {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "cash tendered is less than the order total").
				WithDetails(map[string]any{"total": total.StringFixed(2), "troco_para": input.CashTendered.StringFixed(2)})
		}
		tendered = decimal.NewNullDecimal(*input.CashTendered)
		if input.CashTendered.GreaterThan(total) {
			change = decimal.NewNullDecimal(input.CashTendered.Sub(total))
		}
	}

	address := buildAddress(input.ServiceType, input.Address)
	order := models.Order{
		ID:            uuid.NewString(),
		ServiceType:   input.ServiceType,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Total:         total,
		CashTendered:  tendered,
		ChangeDue:     change,
		Notes:         trimmedOrNil(input.Notes),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateAddress(ctx, &address); err != nil {
			return err
		}
		order.AddressID = &address.ID
		if err := repo.CreateOrder(ctx, &order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		return repo.CreateItems(ctx, items)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "store order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"tipo_servico": order.ServiceType,
		"total":        total.StringFixed(2),
		"items":        len(items),
	}), "order placed")

	return &CheckoutResult{
		OrderID:     order.ID,
		DisplayCode: DisplayCode(s.codePrefix, order.ID),
		Status:      order.Status,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       total,
		ChangeDue:   change,
	}, nil
}

func validateCheckout(input CheckoutInput) error {
	if !input.ServiceType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown service type %q", input.ServiceType))
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "cart is empty")
	}
	for i, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeInvalidInput, "product id required").WithDetails(map[string]any{"item": i})
		}
		if line.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeInvalidInput, "quantity must be at least 1").WithDetails(map[string]any{"item": i})
		}
	}
	if input.CashTendered != nil && input.CashTendered.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "cash tendered must not be negative")
	}

	a := input.Address
	missing := []string{}
	required := map[string]string{
		"nome_destinatario": a.RecipientName,
		"telefone":          a.Phone,
	}
	if input.ServiceType == enums.ServiceTypeDelivery {
		required["rua"] = a.Street
		required["numero"] = a.Number
		required["bairro"] = a.Neighborhood
		required["cidade"] = a.City
		required["estado"] = a.State
	}
	for _, field := range []string{"nome_destinatario", "telefone", "rua", "numero", "bairro", "cidade", "estado"} {
		value, ok := required[field]
		if ok && strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "address is incomplete").WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func (s *service) loadProducts(ctx context.Context, lines []CheckoutItemInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	rows, err := s.repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "product not found").
				WithDetails(map[string]any{"produto_id": id})
		}
	}
	return byID, nil
}

// checkAvailability applies the configured policy when the checker itself
// fails.
func (s *service) checkAvailability(ctx context.Context, lines []CheckoutItemInput) error {
	checked := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := checked[line.ProductID]; ok {
			continue
		}
		checked[line.ProductID] = struct{}{}

		available, err := s.availability.IsAvailable(ctx, line.ProductID)
		if err != nil {
			if s.policy == AssumeUnavailable {
				return pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "product availability could not be confirmed").
					WithDetails(map[string]any{"produto_id": line.ProductID})
			}
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"produto_id": line.ProductID.String(),
				"error":      err.Error(),
			}), "availability check failed, assuming available")
			continue
		}
		if !available {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "product is unavailable").
				WithDetails(map[string]any{"produto_id": line.ProductID})
		}
	}
	return nil
}

func buildAddress(serviceType enums.ServiceType, in CheckoutAddressInput) models.DeliveryAddress {
	address := models.DeliveryAddress{
		RecipientName: strings.TrimSpace(in.RecipientName),
		Phone:         strings.TrimSpace(in.Phone),
	}
	if serviceType == enums.ServiceTypePickup {
		address.Street = PickupPlaceholder
		address.Number = NotApplicable
		address.Neighborhood = NotApplicable
		address.City = NotApplicable
		address.State = NotApplicable
		return address
	}
	address.PostalCode = trimmedOrNil(in.PostalCode)
	address.Street = strings.TrimSpace(in.Street)
	address.Number = strings.TrimSpace(in.Number)
	address.Complement = trimmedOrNil(in.Complement)
	address.Neighborhood = strings.TrimSpace(in.Neighborhood)
	address.City = strings.TrimSpace(in.City)
	address.State = strings.TrimSpace(in.State)
	address.Reference = trimmedOrNil(in.Reference)
	return address
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
