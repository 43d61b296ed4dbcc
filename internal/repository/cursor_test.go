package repository

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-session-service/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	key := CursorKey{
		Timestamp: time.Date(2026, 8, 28, 11, 30, 15, 123456789, time.UTC),
		ID:        "8c9f6a3e",
	}
	token := EncodeCursor(key)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, decoded.Timestamp.Equal(key.Timestamp))
	assert.Equal(t, key.ID, decoded.ID)
}

func TestDecodeCursorRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not base64":      "%%%",
		"not json":        base64.RawURLEncoding.EncodeToString([]byte("plain text")),
		"missing id":      base64.RawURLEncoding.EncodeToString([]byte(`{"v":1,"ts":"2026-08-28T11:00:00Z","id":""}`)),
		"bad timestamp":   base64.RawURLEncoding.EncodeToString([]byte(`{"v":1,"ts":"yesterday","id":"x"}`)),
		"wrong version":   base64.RawURLEncoding.EncodeToString([]byte(`{"v":2,"ts":"2026-08-28T11:00:00Z","id":"x"}`)),
		"missing version": base64.RawURLEncoding.EncodeToString([]byte(`{"ts":"2026-08-28T11:00:00Z","id":"x"}`)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, domain.ErrInvalidCursor)
		})
	}
}
