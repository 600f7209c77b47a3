package orders

import (
	"context"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/phone"
)

const (
	// PickupPlaceholder fills address fields of pickup orders and doubles as
	// the display phone when none is recorded.
	PickupPlaceholder = "Retirada no local"
	// NotApplicable fills address fields that do not apply.
	NotApplicable = "N/A"

	minPhoneDigits      = 10
	displaySuffixLength = 8
	lookupCandidateCap  = 50
)

// DisplayCode renders the customer-facing tracking code of an order.
func DisplayCode(prefix, orderID string) string {
	suffix := orderID
	if len(suffix) > displaySuffixLength {
		suffix = suffix[len(suffix)-displaySuffixLength:]
	}
	return prefix + strings.ToUpper(suffix)
}

// isPlaceholder reports whether a stored value stands for "absent".
func isPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, NotApplicable) || strings.EqualFold(v, PickupPlaceholder)
}

// eligibleForLookup drops cancelled orders, zero-value orders and delivery
// orders with no usable contact phone. Pickup orders skip the phone check.
func eligibleForLookup(order models.Order) bool {
	if order.Status == enums.OrderStatusCanceled {
		return false
	}
	if !order.Total.IsPositive() {
		return false
	}
	if order.ServiceType == enums.ServiceTypeDelivery {
		if order.Address == nil || isPlaceholder(order.Address.Phone) {
			return false
		}
	}
	return true
}

func (s *service) toMatch(order models.Order) LookupMatch {
	displayPhone := PickupPlaceholder
	if order.Address != nil && !isPlaceholder(order.Address.Phone) {
		displayPhone = strings.TrimSpace(order.Address.Phone)
	}
	return LookupMatch{
		OrderID:      order.ID,
		DisplayCode:  DisplayCode(s.codePrefix, order.ID),
		DisplayPhone: displayPhone,
		Status:       order.Status,
		ServiceType:  order.ServiceType,
		Total:        order.Total,
		CreatedAt:    order.CreatedAt,
	}
}

// LookupByCode finds orders whose id ends with the fragment, after trimming
// and removing the tracking prefix.
func (s *service) LookupByCode(ctx context.Context, fragment string) (iter.Seq[LookupMatch], error) {
	code := strings.TrimSpace(fragment)
	if s.codePrefix != "" && len(code) >= len(s.codePrefix) && strings.EqualFold(code[:len(s.codePrefix)], s.codePrefix) {
		code = strings.TrimSpace(code[len(s.codePrefix):])
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "order code is required")
	}

	candidates, err := s.repo.FindByCodeSuffix(ctx, code, lookupCandidateCap)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "lookup orders by code")
	}
	lower := strings.ToLower(code)
	return s.matches(candidates, func(o models.Order) bool {
		return strings.HasSuffix(strings.ToLower(o.ID), lower)
	})
}

// LookupByPhone finds orders whose address phone contains the digits of
// the fragment.
func (s *service) LookupByPhone(ctx context.Context, fragment string) (iter.Seq[LookupMatch], error) {
	digits := phone.Digits(fragment)
	if len(digits) < minPhoneDigits {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "phone must have at least 10 digits").
			WithDetails(map[string]any{"digits": len(digits)})
	}

	candidates, err := s.repo.FindByPhoneDigits(ctx, digits, lookupCandidateCap)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "lookup orders by phone")
	}
	return s.matches(candidates, func(o models.Order) bool {
		return o.Address != nil && strings.Contains(phone.Digits(o.Address.Phone), digits)
	})
}

// matches returns NOT_FOUND when no candidate survives, otherwise a sequence
// that filters and annotates candidates as it is ranged over. The sequence
// yields only on its first iteration.
func (s *service) matches(candidates []models.Order, match func(models.Order) bool) (iter.Seq[LookupMatch], error) {
	keep := func(o models.Order) bool { return match(o) && eligibleForLookup(o) }

	found := false
	for _, o := range candidates {
		if keep(o) {
			found = true
			break
		}
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders found")
	}

	var consumed atomic.Bool
	return func(yield func(LookupMatch) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, o := range candidates {
			if !keep(o) {
				continue
			}
			if !yield(s.toMatch(o)) {
				return
			}
		}
	}, nil
}
