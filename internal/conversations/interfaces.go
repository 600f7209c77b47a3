package conversations

import (
	"context"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists conversations and their messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindByPhone(ctx context.Context, phone string) (*models.Conversation, error)
	Upsert(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error)
	AppendMessage(ctx context.Context, message *models.Message) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Claim(ctx context.Context, id uuid.UUID, agent string, claimedAt, expiresAt time.Time) (bool, error)
	Release(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
	List(ctx context.Context, query ListQuery) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ListQuery is the repository form of a dashboard list request.
type ListQuery struct {
	Mode   *enums.ConversationMode
	Cursor *pagination.Cursor
	Limit  int
}

// DedupeGuard remembers webhook fingerprints so provider redeliveries are
// acknowledged without a second write.
type DedupeGuard interface {
	// Claim reports true the first time a fingerprint is seen.
	Claim(ctx context.Context, fingerprint string) (bool, error)
	// Forget drops a fingerprint whose delivery could not be stored.
	Forget(ctx context.Context, fingerprint string) error
}

// Messenger sends outbound replies through the messaging provider.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) (string, error)
}
