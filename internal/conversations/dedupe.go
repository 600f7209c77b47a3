package conversations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const dedupeScope = "webhook"

type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	DedupeKey(scope, fingerprint string) string
}

type redisDedupe struct {
	store dedupeStore
	ttl   time.Duration
}

// NewRedisDedupe builds a DedupeGuard backed by SETNX keys that expire
// after ttl.
func NewRedisDedupe(store dedupeStore, ttl time.Duration) DedupeGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisDedupe{store: store, ttl: ttl}
}

func (d *redisDedupe) Claim(ctx context.Context, fingerprint string) (bool, error) {
	return d.store.SetNX(ctx, d.store.DedupeKey(dedupeScope, fingerprint), "1", d.ttl)
}

func (d *redisDedupe) Forget(ctx context.Context, fingerprint string) error {
	return d.store.Del(ctx, d.store.DedupeKey(dedupeScope, fingerprint))
}

// Fingerprint identifies one provider delivery. It is only meaningful when
// the delivery carries a timestamp.
func Fingerprint(in *InboundMessage) string {
	raw := strings.Join([]string{
		in.Phone,
		in.RawTimestamp,
		string(in.Direction),
		in.Content,
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
