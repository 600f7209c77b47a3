package orders

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/config"
	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/angelmondragon/comanda-backend/pkg/phone"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// phoneScanBatch bounds each page read while matching phones in Go.
const phoneScanBatch = 200

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderDetail(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Address").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Product").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, query ListQuery) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Address")
	if query.Filters.Status != nil {
		q = q.Where("status = ?", *query.Filters.Status)
	}
	if query.Filters.ServiceType != nil {
		q = q.Where("tipo_servico = ?", *query.Filters.ServiceType)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Limit(query.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus moves the order only when it is still in from. It reports
// false when another writer changed the status first.
func (r *repository) UpdateStatus(ctx context.Context, orderID string, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// lookupEligible keeps orders a customer may look up: not cancelled, a
// positive total, and for deliveries an address phone that is not a
// placeholder. Limits apply after this filter.
func lookupEligible(db *gorm.DB) *gorm.DB {
	usablePhones := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.DeliveryAddress{}).
		Select("id").
		Where("TRIM(telefone) <> '' AND LOWER(TRIM(telefone)) NOT IN ?",
			[]string{strings.ToLower(NotApplicable), strings.ToLower(PickupPlaceholder)})
	return db.
		Where("orders.status <> ?", enums.OrderStatusCanceled).
		Where("orders.total > 0").
		Where("(orders.tipo_servico <> ? OR orders.endereco_id IN (?))", enums.ServiceTypeDelivery, usablePhones)
}

func (r *repository) FindByCodeSuffix(ctx context.Context, suffix string, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Scopes(lookupEligible).
		Preload("Address").
		Where(`LOWER(orders.id) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(suffix))).
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByPhoneDigits returns up to limit eligible orders whose address phone,
// reduced to digits, contains digits. Postgres narrows candidates with
// regexp_replace; every driver pages newest first and re-checks in Go.
func (r *repository) FindByPhoneDigits(ctx context.Context, digits string, limit int) ([]models.Order, error) {
	var (
		out    []models.Order
		cursor *pagination.Cursor
	)
	for len(out) < limit {
		q := r.db.WithContext(ctx).
			Scopes(lookupEligible).
			Preload("Address").
			Where("orders.endereco_id IS NOT NULL")
		if r.db.Dialector.Name() == config.DBDriverPostgres {
			addresses := r.db.Session(&gorm.Session{NewDB: true}).
				Model(&models.DeliveryAddress{}).
				Select("id").
				Where(`regexp_replace(telefone, '\D', '', 'g') LIKE ?`, "%"+digits+"%")
			q = q.Where("orders.endereco_id IN (?)", addresses)
		}
		if cursor != nil {
			q = q.Where("(orders.created_at < ? OR (orders.created_at = ? AND orders.id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}

		var batch []models.Order
		if err := q.Order("orders.created_at DESC").Order("orders.id DESC").Limit(phoneScanBatch).Find(&batch).Error; err != nil {
			return nil, err
		}
		for _, o := range batch {
			if o.Address == nil || !strings.Contains(phone.Digits(o.Address.Phone), digits) {
				continue
			}
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
		if len(batch) < phoneScanBatch {
			break
		}
		last := batch[len(batch)-1]
		cursor = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return out, nil
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateAddress(ctx context.Context, address *models.DeliveryAddress) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
