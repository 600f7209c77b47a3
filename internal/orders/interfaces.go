package orders

import (
	"context"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
	FindOrderDetail(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, query ListQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to enums.OrderStatus, extra map[string]any) (bool, error)
	FindByCodeSuffix(ctx context.Context, suffix string, limit int) ([]models.Order, error)
	FindByPhoneDigits(ctx context.Context, digits string, limit int) ([]models.Order, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	CreateAddress(ctx context.Context, address *models.DeliveryAddress) error
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
}

// ListQuery is the repository form of a dashboard list request.
type ListQuery struct {
	Filters ListFilters
	Cursor  *pagination.Cursor
	Limit   int
}

// AvailabilityChecker reports whether a product can currently be ordered.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, productID uuid.UUID) (bool, error)
}
