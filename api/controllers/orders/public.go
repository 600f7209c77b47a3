package orders

import (
	"iter"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comanda-backend/api/responses"
	"github.com/angelmondragon/comanda-backend/api/validators"
	internalorders "github.com/angelmondragon/comanda-backend/internal/orders"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
)

const maxNotesLen = 500

type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"produto_id" validate:"required"`
	Quantity  int       `json:"quantidade" validate:"gte=1"`
	Notes     *string   `json:"observacoes"`
}

type checkoutAddressRequest struct {
	RecipientName string  `json:"nome_destinatario" validate:"required"`
	Phone         string  `json:"telefone" validate:"required"`
	PostalCode    *string `json:"cep"`
	Street        string  `json:"rua"`
	Number        string  `json:"numero"`
	Complement    *string `json:"complemento"`
	Neighborhood  string  `json:"bairro"`
	City          string  `json:"cidade"`
	State         string  `json:"estado"`
	Reference     *string `json:"referencia"`
}

type checkoutRequest struct {
	ServiceType   string                 `json:"tipo_servico" validate:"required,oneof=entrega retirada"`
	PaymentMethod string                 `json:"forma_pagamento" validate:"required,oneof=pix cartao dinheiro"`
	Items         []checkoutItemRequest  `json:"itens" validate:"required,min=1,dive"`
	Address       checkoutAddressRequest `json:"endereco"`
	CashTendered  *decimal.Decimal       `json:"troco_para"`
	Notes         *string                `json:"observacoes"`
}

func (req checkoutRequest) toInput() internalorders.CheckoutInput {
	input := internalorders.CheckoutInput{
		ServiceType:   enums.ServiceType(req.ServiceType),
		PaymentMethod: enums.PaymentMethod(req.PaymentMethod),
		Items:         make([]internalorders.CheckoutItemInput, 0, len(req.Items)),
		Address: internalorders.CheckoutAddressInput{
			RecipientName: validators.SanitizeString(req.Address.RecipientName, 120),
			Phone:         validators.SanitizeString(req.Address.Phone, 32),
			PostalCode:    req.Address.PostalCode,
			Street:        validators.SanitizeString(req.Address.Street, 200),
			Number:        validators.SanitizeString(req.Address.Number, 20),
			Complement:    req.Address.Complement,
			Neighborhood:  validators.SanitizeString(req.Address.Neighborhood, 120),
			City:          validators.SanitizeString(req.Address.City, 120),
			State:         validators.SanitizeString(req.Address.State, 60),
			Reference:     req.Address.Reference,
		},
		CashTendered: req.CashTendered,
		Notes:        sanitizeNotes(req.Notes),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, internalorders.CheckoutItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Notes:     sanitizeNotes(item.Notes),
		})
	}
	return input
}

// Checkout stores a customer order built from the client-side cart.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Lookup finds customer orders by tracking code (?codigo=) or phone (?telefone=).
func Lookup(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		query := r.URL.Query()
		code := strings.TrimSpace(query.Get("codigo"))
		phone := strings.TrimSpace(query.Get("telefone"))

		var (
			seq iter.Seq[internalorders.LookupMatch]
			err error
		)
		switch {
		case code != "" && phone != "":
			err = pkgerrors.New(pkgerrors.CodeInvalidInput, "provide either codigo or telefone, not both")
		case code != "":
			seq, err = svc.LookupByCode(r.Context(), code)
		case phone != "":
			if logg != nil {
				r = r.WithContext(logg.WithCustomerPhone(r.Context(), phone))
			}
			seq, err = svc.LookupByPhone(r.Context(), phone)
		default:
			err = pkgerrors.New(pkgerrors.CodeInvalidInput, "codigo or telefone is required")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orders": slices.Collect(seq)})
	}
}

func sanitizeNotes(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := validators.SanitizeString(*value, maxNotesLen)
	return &trimmed
}
