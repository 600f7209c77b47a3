package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db"
	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/metrics"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultTakeoverTTL is the advisory claim length when none is configured.
	DefaultTakeoverTTL = 5 * time.Minute

	historyLimit = 200
)

// Service is the messaging bridge: webhook ingestion, human takeover and
// agent replies.
type Service interface {
	Ingest(ctx context.Context, raw []byte) (*IngestResult, error)
	Takeover(ctx context.Context, id uuid.UUID, agent string) (*ClaimResult, error)
	Release(ctx context.Context, id uuid.UUID) (*ReleaseResult, error)
	SendReply(ctx context.Context, id uuid.UUID, content string) (*MessageView, error)
	List(ctx context.Context, params pagination.Params, mode *enums.ConversationMode) (*ConversationList, error)
	Detail(ctx context.Context, id uuid.UUID) (*ConversationDetail, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExpireClaims(ctx context.Context) (int64, error)
}

// ServiceParams groups the dependencies of NewService. Dedupe and
// Messenger are optional.
type ServiceParams struct {
	Repo        Repository
	Tx          db.TxRunner
	Dedupe      DedupeGuard
	Messenger   Messenger
	TakeoverTTL time.Duration
	Metrics     *metrics.ConversationMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	tx          db.TxRunner
	dedupe      DedupeGuard
	messenger   Messenger
	takeoverTTL time.Duration
	metrics     *metrics.ConversationMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the messaging bridge service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("conversations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TakeoverTTL
	if ttl <= 0 {
		ttl = DefaultTakeoverTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		dedupe:      params.Dedupe,
		messenger:   params.Messenger,
		takeoverTTL: ttl,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Ingest stores one webhook delivery: the conversation is upserted by phone
// and exactly one message row is appended.
func (s *service) Ingest(ctx context.Context, raw []byte) (*IngestResult, error) {
	now := s.now().UTC()
	in, err := ParseWebhookPayload(raw, now)
	if err != nil {
		s.metrics.IncWebhook("rejected")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"payload": string(raw),
			"reason":  err.Error(),
		}), "webhook payload rejected")
		return nil, err
	}
	ctx = s.logg.WithCustomerPhone(ctx, in.Phone)

	// Without a provider timestamp two identical replies are indistinguishable
	// from a redelivery, so only timestamped deliveries are deduplicated.
	fingerprint := Fingerprint(in)
	checkRedelivery := s.dedupe != nil && in.RawTimestamp != ""
	if checkRedelivery {
		first, err := s.dedupe.Claim(ctx, fingerprint)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "check webhook redelivery")
		}
		if !first {
			s.metrics.IncWebhook("duplicate")
			s.logg.Info(s.logg.WithField(ctx, "fingerprint", fingerprint), "webhook redelivery ignored")
			return &IngestResult{Duplicate: true}, nil
		}
	}

	var result IngestResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		conversation, err := repo.Upsert(ctx, &models.Conversation{
			CustomerPhone:   in.Phone,
			CustomerName:    in.CustomerName,
			Status:          in.Status,
			Mode:            enums.ConversationModeBot,
			LastInteraction: in.LastInteraction,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		message := &models.Message{
			ConversationID: conversation.ID,
			Direction:      in.Direction,
			Content:        in.Content,
			Timestamp:      in.Timestamp,
		}
		if err := repo.AppendMessage(ctx, message); err != nil {
			return err
		}
		result = IngestResult{ConversationID: conversation.ID, MessageID: message.ID}
		return nil
	})
	if err != nil {
		if checkRedelivery {
			if ferr := s.dedupe.Forget(ctx, fingerprint); ferr != nil {
				s.logg.Error(ctx, "failed to drop webhook fingerprint", ferr)
			}
		}
		s.metrics.IncWebhook("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "store webhook message")
	}

	s.metrics.IncWebhook("stored")
	s.logg.Info(s.logg.WithConversationID(ctx, result.ConversationID.String()), "webhook message stored")
	return &result, nil
}

func (s *service) Takeover(ctx context.Context, id uuid.UUID, agent string) (*ClaimResult, error) {
	agent = strings.TrimSpace(agent)
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "conversation id required")
	}
	if agent == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "agent name required")
	}
	ctx = s.logg.WithConversationID(ctx, id.String())

	claimedAt := s.now().UTC()
	expiresAt := claimedAt.Add(s.takeoverTTL)
	applied, err := s.repo.Claim(ctx, id, agent, claimedAt, expiresAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "claim conversation")
	}
	if !applied {
		current, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		s.metrics.IncTakeover("already_claimed")
		details := map[string]any{"modo": current.Mode}
		if current.AgentName != nil {
			details["atendente"] = *current.AgentName
		}
		if current.LockExpiresAt != nil {
			details["bloqueio_expira_em"] = current.LockExpiresAt.UTC()
		}
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "conversation is already handled by an agent").WithDetails(details)
	}

	s.metrics.IncTakeover("claimed")
	s.logg.Info(s.logg.WithField(ctx, "atendente", agent), "conversation taken over")
	return &ClaimResult{
		ConversationID: id,
		Mode:           enums.ConversationModeHuman,
		AgentName:      agent,
		ClaimedAt:      claimedAt,
		ExpiresAt:      expiresAt,
	}, nil
}

func (s *service) Release(ctx context.Context, id uuid.UUID) (*ReleaseResult, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "conversation id required")
	}
	ctx = s.logg.WithConversationID(ctx, id.String())

	applied, err := s.repo.Release(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "release conversation")
	}
	if !applied {
		if _, err := s.find(ctx, id); err != nil {
			return nil, err
		}
		s.metrics.IncTakeover("already_bot")
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyBot, "conversation is already handled by the bot")
	}

	s.metrics.IncTakeover("released")
	s.logg.Info(ctx, "conversation released")
	return &ReleaseResult{ConversationID: id, Mode: enums.ConversationModeBot}, nil
}

// SendReply delivers an agent message through the provider and stores it
// as outbound. The conversation must be in human mode.
func (s *service) SendReply(ctx context.Context, id uuid.UUID, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "message content required")
	}
	ctx = s.logg.WithConversationID(ctx, id.String())

	conversation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.Mode != enums.ConversationModeHuman {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyBot, "take over the conversation before replying")
	}
	if s.messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "messaging provider is not configured")
	}

	providerID, err := s.messenger.SendText(ctx, conversation.CustomerPhone, content)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "send reply")
	}

	now := s.now().UTC()
	message := &models.Message{
		ConversationID: conversation.ID,
		Direction:      enums.MessageDirectionOutbound,
		Content:        content,
		Timestamp:      now,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.AppendMessage(ctx, message); err != nil {
			return err
		}
		return repo.Touch(ctx, conversation.ID, now)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "store reply")
	}

	view := toMessageView(*message)
	view.ProviderMessageID = providerID
	s.logg.Info(s.logg.WithField(ctx, "provider_message_id", providerID), "reply sent")
	return &view, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, mode *enums.ConversationMode) (*ConversationList, error) {
	if mode != nil && !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown mode %q", *mode))
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, ListQuery{Mode: mode, Cursor: cursor, Limit: limit + 1})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "list conversations")
	}

	list := &ConversationList{Conversations: make([]ConversationSummary, 0, min(len(rows), limit))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.LastInteraction, ID: last.ID.String()})
		rows = rows[:limit]
	}
	now := s.now()
	for _, row := range rows {
		list.Conversations = append(list.Conversations, toSummary(row, now))
	}
	return list, nil
}

func (s *service) Detail(ctx context.Context, id uuid.UUID) (*ConversationDetail, error) {
	conversation, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, id, historyLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load messages")
	}
	detail := &ConversationDetail{
		ConversationSummary: toSummary(*conversation, s.now()),
		Messages:            make([]MessageView, 0, len(messages)),
	}
	for _, m := range messages {
		detail.Messages = append(detail.Messages, toMessageView(m))
	}
	return detail, nil
}

// Delete removes a conversation and all of its messages.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "conversation id required")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "delete conversation")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	s.logg.Info(s.logg.WithConversationID(ctx, id.String()), "conversation deleted")
	return nil
}

// ExpireClaims hands every conversation whose claim expired back to the
// bot. Takeover and release never look at the expiry themselves.
func (s *service) ExpireClaims(ctx context.Context) (int64, error) {
	released, err := s.repo.ReleaseExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "release expired claims")
	}
	s.metrics.AddTakeovers("expired", released)
	return released, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "load conversation")
	}
	return conversation, nil
}
