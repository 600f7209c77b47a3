package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 19, 30, 0, 123, time.UTC)
	encoded := EncodeCursor(Cursor{CreatedAt: created, ID: "0f6c1a2e-9b1d-4c55-8f3a-5be7c2d4e9a1"})

	cursor, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.True(t, cursor.CreatedAt.Equal(created))
	require.Equal(t, "0f6c1a2e-9b1d-4c55-8f3a-5be7c2d4e9a1", cursor.ID)
}

func TestParseCursor_Empty(t *testing.T) {
	cursor, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, cursor)
}

func TestParseCursor_Invalid(t *testing.T) {
	_, err := ParseCursor("%%%")
	require.Error(t, err)

	_, err = ParseCursor("bm9waXBl")
	require.Error(t, err)
}
