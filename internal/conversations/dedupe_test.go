package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDedupeStore struct {
	keys map[string]time.Duration
}

func (f *fakeDedupeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeDedupeStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}

func (f *fakeDedupeStore) DedupeKey(scope, fingerprint string) string {
	return "comanda:dedupe:" + scope + ":" + fingerprint
}

func TestRedisDedupeClaimAndForget(t *testing.T) {
	store := &fakeDedupeStore{keys: map[string]time.Duration{}}
	guard := NewRedisDedupe(store, time.Hour)
	ctx := context.Background()

	first, err := guard.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, time.Hour, store.keys["comanda:dedupe:webhook:abc"])

	again, err := guard.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, guard.Forget(ctx, "abc"))
	first, err = guard.Claim(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, first)
}
