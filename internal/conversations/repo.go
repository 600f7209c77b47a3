package conversations

import (
	"context"
	"slices"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a conversations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).Where("numero_cliente = ?", phone).First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Upsert inserts a conversation or refreshes name, status and last
// interaction of the row with the same phone. Mode and claim fields of an
// existing row are never touched.
func (r *repository) Upsert(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "numero_cliente"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "nome_cliente"}, Value: gorm.Expr("COALESCE(excluded.nome_cliente, conversations.nome_cliente)")},
				{Column: clause.Column{Name: "status"}, Value: gorm.Expr("COALESCE(excluded.status, conversations.status)")},
				{Column: clause.Column{Name: "ultima_interacao"}, Value: gorm.Expr("excluded.ultima_interacao")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
		}).
		Create(conversation).Error
	if err != nil {
		return nil, err
	}
	return r.FindByPhone(ctx, conversation.CustomerPhone)
}

func (r *repository) AppendMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"ultima_interacao": at, "updated_at": at}).Error
}

// Claim hands a bot conversation to agent. It reports false when the row
// is missing or already human.
func (r *repository) Claim(ctx context.Context, id uuid.UUID, agent string, claimedAt, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND modo = ?", id, enums.ConversationModeBot).
		Updates(map[string]any{
			"modo":               enums.ConversationModeHuman,
			"atendente":          agent,
			"assumido_em":        claimedAt,
			"bloqueio_expira_em": expiresAt,
			"updated_at":         claimedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release hands a human conversation back to the bot.
func (r *repository) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND modo = ?", id, enums.ConversationModeHuman).
		Updates(releasedColumns(time.Now().UTC()))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseExpired returns every claim whose expiry is at or before now to
// the bot.
func (r *repository) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("modo = ? AND bloqueio_expira_em IS NOT NULL AND bloqueio_expira_em <= ?", enums.ConversationModeHuman, now).
		Updates(releasedColumns(now))
	return res.RowsAffected, res.Error
}

func releasedColumns(at time.Time) map[string]any {
	return map[string]any{
		"modo":               enums.ConversationModeBot,
		"atendente":          nil,
		"assumido_em":        nil,
		"bloqueio_expira_em": nil,
		"updated_at":         at,
	}
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Conversation, error) {
	q := r.db.WithContext(ctx).Model(&models.Conversation{})
	if query.Mode != nil {
		q = q.Where("modo = ?", *query.Mode)
	}
	if query.Cursor != nil {
		q = q.Where("(ultima_interacao < ?) OR (ultima_interacao = ? AND id < ?)", query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Conversation
	if err := q.Order("ultima_interacao DESC").Order("id DESC").Limit(query.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Where("conversa_id = ?", conversationID).
		Order(`"timestamp" DESC`).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return rows, nil
}

// Delete removes the conversation and its messages. Messages go first;
// SQLite leaves foreign keys unenforced by default.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversa_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected == 1
		return nil
	})
	return deleted, err
}
