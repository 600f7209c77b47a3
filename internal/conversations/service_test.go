package conversations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/db"
	"github.com/angelmondragon/comanda-backend/pkg/db/models"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/metrics"
	"github.com/angelmondragon/comanda-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const anaPayload = `{"conversa":{"numero_cliente":"5511999999999","nome_cliente":"Ana"},"mensagem":{"tipo":"in","conteudo":"oi","timestamp":"2026-03-02T19:58:00Z"}}`

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

type memoryDedupe struct {
	seen map[string]bool
	err  error
}

func (m *memoryDedupe) Claim(ctx context.Context, fingerprint string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[fingerprint] {
		return false, nil
	}
	m.seen[fingerprint] = true
	return true, nil
}

func (m *memoryDedupe) Forget(ctx context.Context, fingerprint string) error {
	delete(m.seen, fingerprint)
	return nil
}

type stubMessenger struct {
	phone string
	text  string
	err   error
}

func (s *stubMessenger) SendText(ctx context.Context, phone, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.phone, s.text = phone, text
	return "msg-123", nil
}

type fixture struct {
	db        *gorm.DB
	svc       Service
	clock     *clock
	dedupe    *memoryDedupe
	messenger *stubMessenger
	registry  *prometheus.Registry
}

func setupConversationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Conversation{}, &models.Message{}))
	return conn
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := setupConversationsTestDB(t)
	fx := fixture{
		db:        conn,
		clock:     &clock{now: time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)},
		dedupe:    &memoryDedupe{seen: map[string]bool{}},
		messenger: &stubMessenger{},
		registry:  prometheus.NewRegistry(),
	}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Tx:          db.Wrap(conn),
		Dedupe:      fx.dedupe,
		Messenger:   fx.messenger,
		TakeoverTTL: 5 * time.Minute,
		Metrics:     metrics.NewConversationMetrics(fx.registry),
		Logger:      logger.New(logger.Options{ServiceName: "conversations-test", Level: zerolog.Disabled, Output: io.Discard}),
		Now:         fx.clock.Now,
	})
	require.NoError(t, err)
	fx.svc = svc
	return fx
}

func (fx fixture) counts(t *testing.T) (conversations, messages int64) {
	t.Helper()
	require.NoError(t, fx.db.Model(&models.Conversation{}).Count(&conversations).Error)
	require.NoError(t, fx.db.Model(&models.Message{}).Count(&messages).Error)
	return conversations, messages
}

func (fx fixture) ingestAna(t *testing.T) uuid.UUID {
	t.Helper()
	res, err := fx.svc.Ingest(context.Background(), []byte(anaPayload))
	require.NoError(t, err)
	return res.ConversationID
}

func TestIngestCreatesOneConversationAndOneMessage(t *testing.T) {
	fx := newFixture(t)

	res, err := fx.svc.Ingest(context.Background(), []byte(anaPayload))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	conversations, messages := fx.counts(t)
	assert.Equal(t, int64(1), conversations)
	assert.Equal(t, int64(1), messages)

	var stored models.Conversation
	require.NoError(t, fx.db.First(&stored, "numero_cliente = ?", "5511999999999").Error)
	assert.Equal(t, res.ConversationID, stored.ID)
	assert.Equal(t, enums.ConversationModeBot, stored.Mode)
	require.NotNil(t, stored.CustomerName)
	assert.Equal(t, "Ana", *stored.CustomerName)

	var message models.Message
	require.NoError(t, fx.db.First(&message).Error)
	assert.Equal(t, stored.ID, message.ConversationID)
	assert.Equal(t, enums.MessageDirectionInbound, message.Direction)
	assert.Equal(t, "oi", message.Content)
}

func TestIngestRedeliveryIsAcknowledgedWithoutWrite(t *testing.T) {
	fx := newFixture(t)
	fx.ingestAna(t)

	res, err := fx.svc.Ingest(context.Background(), []byte(anaPayload))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	_, messages := fx.counts(t)
	assert.Equal(t, int64(1), messages)

	duplicates, err := testutil.GatherAndCount(fx.registry, "webhook_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 2, duplicates, "stored and duplicate series")
}

func TestIngestWithoutTimestampKeepsRepeatedReplies(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	payload := []byte(`{"conversa":{"numero_cliente":"5511999999999"},"mensagem":{"tipo":"in","conteudo":"sim"}}`)

	first, err := fx.svc.Ingest(ctx, payload)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	fx.clock.now = fx.clock.now.Add(30 * time.Second)
	second, err := fx.svc.Ingest(ctx, payload)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.NotEqual(t, first.MessageID, second.MessageID)

	_, messages := fx.counts(t)
	assert.Equal(t, int64(2), messages)
	assert.Empty(t, fx.dedupe.seen, "untimestamped deliveries are never claimed")
}

func TestIngestUpdatesExistingConversationWithoutTouchingMode(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	_, err := fx.svc.Takeover(ctx, id, "Carlos")
	require.NoError(t, err)

	res, err := fx.svc.Ingest(ctx, []byte(`{"body":{"conversa":{"numero_cliente":"5511999999999","nome_cliente":"Ana Paula","status":"aguardando"},"mensagem":{"tipo":"in","conteudo":"alguem ai?","timestamp":"2026-03-02T19:59:00Z"}}}`))
	require.NoError(t, err)
	assert.Equal(t, id, res.ConversationID)

	conversations, messages := fx.counts(t)
	assert.Equal(t, int64(1), conversations)
	assert.Equal(t, int64(2), messages)

	var stored models.Conversation
	require.NoError(t, fx.db.First(&stored, "id = ?", id).Error)
	assert.Equal(t, enums.ConversationModeHuman, stored.Mode)
	require.NotNil(t, stored.AgentName)
	assert.Equal(t, "Carlos", *stored.AgentName)
	assert.Equal(t, "Ana Paula", *stored.CustomerName)
	require.NotNil(t, stored.Status)
	assert.Equal(t, "aguardando", *stored.Status)
}

func TestIngestRejectsUnknownShape(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Ingest(context.Background(), []byte(`{"mensagem":{"conteudo":"oi"}}`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	conversations, messages := fx.counts(t)
	assert.Zero(t, conversations)
	assert.Zero(t, messages)
}

func TestIngestDedupeFailureIsUpstream(t *testing.T) {
	fx := newFixture(t)
	fx.dedupe.err = errors.New("redis down")

	_, err := fx.svc.Ingest(context.Background(), []byte(anaPayload))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))
}

func TestTakeoverAndReleaseAreIdempotentGuards(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	claim, err := fx.svc.Takeover(ctx, id, "Carlos")
	require.NoError(t, err)
	assert.Equal(t, enums.ConversationModeHuman, claim.Mode)
	assert.Equal(t, fx.clock.now.Add(5*time.Minute), claim.ExpiresAt)

	_, err = fx.svc.Takeover(ctx, id, "Beatriz")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyClaimed))

	released, err := fx.svc.Release(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, enums.ConversationModeBot, released.Mode)

	_, err = fx.svc.Release(ctx, id)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyBot))

	var stored models.Conversation
	require.NoError(t, fx.db.First(&stored, "id = ?", id).Error)
	assert.Nil(t, stored.AgentName)
	assert.Nil(t, stored.ClaimedAt)
	assert.Nil(t, stored.LockExpiresAt)
}

func TestTakeoverMissingConversation(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Takeover(context.Background(), uuid.New(), "Carlos")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = fx.svc.Release(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = fx.svc.Takeover(context.Background(), uuid.New(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
}

func TestExpiredClaimStillBlocksUntilSwept(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	_, err := fx.svc.Takeover(ctx, id, "Carlos")
	require.NoError(t, err)

	fx.clock.now = fx.clock.now.Add(6 * time.Minute)

	_, err = fx.svc.Takeover(ctx, id, "Beatriz")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyClaimed), "expiry is advisory for takeover")

	detail, err := fx.svc.Detail(ctx, id)
	require.NoError(t, err)
	assert.True(t, detail.ClaimExpired)

	n, err := fx.svc.ExpireClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	claim, err := fx.svc.Takeover(ctx, id, "Beatriz")
	require.NoError(t, err)
	assert.Equal(t, "Beatriz", claim.AgentName)
}

func TestExpireClaimsLeavesLiveClaims(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	_, err := fx.svc.Takeover(ctx, id, "Carlos")
	require.NoError(t, err)

	fx.clock.now = fx.clock.now.Add(time.Minute)
	n, err := fx.svc.ExpireClaims(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendReplyRequiresHumanMode(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	_, err := fx.svc.SendReply(ctx, id, "Ola, Ana!")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyBot))

	_, err = fx.svc.Takeover(ctx, id, "Carlos")
	require.NoError(t, err)

	view, err := fx.svc.SendReply(ctx, id, "Ola, Ana!")
	require.NoError(t, err)
	assert.Equal(t, "msg-123", view.ProviderMessageID)
	assert.Equal(t, enums.MessageDirectionOutbound, view.Direction)
	assert.Equal(t, "5511999999999", fx.messenger.phone)

	detail, err := fx.svc.Detail(ctx, id)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, enums.MessageDirectionOutbound, detail.Messages[1].Direction)
}

func TestSendReplyProviderFailure(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)
	_, err := fx.svc.Takeover(ctx, id, "Carlos")
	require.NoError(t, err)

	fx.messenger.err = errors.New("instance disconnected")
	_, err = fx.svc.SendReply(ctx, id, "Ola")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstream))

	_, messages := fx.counts(t)
	assert.Equal(t, int64(1), messages)
}

func TestDetailShowsNewestMessagesOldestFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	history := make([]models.Message, 0, historyLimit)
	for i := range historyLimit {
		history = append(history, models.Message{
			ConversationID: id,
			Direction:      enums.MessageDirectionOutbound,
			Content:        fmt.Sprintf("hist-%03d", i),
			Timestamp:      fx.clock.now.Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, fx.db.CreateInBatches(&history, 50).Error)

	detail, err := fx.svc.Detail(ctx, id)
	require.NoError(t, err)
	require.Len(t, detail.Messages, historyLimit)
	assert.Equal(t, "hist-000", detail.Messages[0].Content)
	assert.Equal(t, fmt.Sprintf("hist-%03d", historyLimit-1), detail.Messages[historyLimit-1].Content)
	for _, m := range detail.Messages {
		assert.NotEqual(t, "oi", m.Content, "oldest message falls outside the history window")
	}
}

func TestDeleteCascadesMessages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.ingestAna(t)

	require.NoError(t, fx.svc.Delete(ctx, id))
	conversations, messages := fx.counts(t)
	assert.Zero(t, conversations)
	assert.Zero(t, messages)

	err := fx.svc.Delete(ctx, id)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersByMode(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	ana := fx.ingestAna(t)
	_, err := fx.svc.Ingest(ctx, []byte(`{"conversa":{"numero_cliente":"5511888888888"},"mensagem":{"conteudo":"cardapio?","timestamp":"2026-03-02T19:59:30Z"}}`))
	require.NoError(t, err)

	_, err = fx.svc.Takeover(ctx, ana, "Carlos")
	require.NoError(t, err)

	human := enums.ConversationModeHuman
	list, err := fx.svc.List(ctx, pagination.Params{}, &human)
	require.NoError(t, err)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, ana, list.Conversations[0].ID)

	all, err := fx.svc.List(ctx, pagination.Params{Limit: 1}, nil)
	require.NoError(t, err)
	require.Len(t, all.Conversations, 1)
	assert.Equal(t, "5511888888888", all.Conversations[0].CustomerPhone)
	require.NotEmpty(t, all.NextCursor)

	next, err := fx.svc.List(ctx, pagination.Params{Limit: 1, Cursor: all.NextCursor}, nil)
	require.NoError(t, err)
	require.Len(t, next.Conversations, 1)
	assert.Equal(t, ana, next.Conversations[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
