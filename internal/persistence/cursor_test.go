package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitness/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &domain.Cursor{PerformedAt: time.Date(2026, time.May, 3, 7, 30, 0, 123, time.UTC), ID: "a1"}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.True(t, in.PerformedAt.Equal(out.PerformedAt))
	require.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorEmptyAndInvalid(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)
	require.Empty(t, EncodeCursor(nil))

	for _, token := range []string{
		"%%%",
		base64.RawURLEncoding.EncodeToString([]byte("not-json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"at":0,"id":"a1"}`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"at":1}`)),
	} {
		_, err = DecodeCursor(token)
		require.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}
