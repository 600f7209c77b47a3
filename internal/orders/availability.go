package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/comanda-backend/pkg/config"
	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilityPolicy decides what checkout does when an availability check
// itself fails.
type AvailabilityPolicy string

const (
	AssumeAvailable   AvailabilityPolicy = config.AvailabilityAssumeAvailable
	AssumeUnavailable AvailabilityPolicy = config.AvailabilityAssumeUnavailable
)

// ParseAvailabilityPolicy converts the configured value into a policy.
func ParseAvailabilityPolicy(value string) (AvailabilityPolicy, error) {
	switch AvailabilityPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case AssumeAvailable, "":
		return AssumeAvailable, nil
	case AssumeUnavailable:
		return AssumeUnavailable, nil
	default:
		return "", fmt.Errorf("unknown availability policy %q", value)
	}
}

type productAvailability struct {
	db *gorm.DB
}

// NewProductAvailability checks the products.ativo flag.
func NewProductAvailability(db *gorm.DB) AvailabilityChecker {
	return &productAvailability{db: db}
}

func (p *productAvailability) IsAvailable(ctx context.Context, productID uuid.UUID) (bool, error) {
	var product models.Product
	err := p.db.WithContext(ctx).Select("id", "ativo").Where("id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return product.Active, nil
}
