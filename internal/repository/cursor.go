package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"care-session-service/internal/domain"
)

// CursorKey is the compound pagination position: the ordering timestamp plus
// the row id as tiebreak. Timestamp alone would skip or repeat rows when many
// sessions share one timestamp.
type CursorKey struct {
	Timestamp time.Time
	ID        string
}

const cursorVersion = 1

type cursorPayload struct {
	Version   int    `json:"v"`
	Timestamp string `json:"ts"`
	ID        string `json:"id"`
}

// EncodeCursor renders k as an opaque URL-safe token.
func EncodeCursor(k CursorKey) string {
	payload := cursorPayload{
		Version:   cursorVersion,
		Timestamp: k.Timestamp.UTC().Format(time.RFC3339Nano),
		ID:        k.ID,
	}
	b, _ := json.Marshal(payload)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a client-supplied token. Every malformed input maps to
// domain.ErrInvalidCursor.
func DecodeCursor(s string) (CursorKey, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return CursorKey{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	var payload cursorPayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return CursorKey{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	if payload.Version != cursorVersion {
		return CursorKey{}, fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidCursor, payload.Version)
	}
	if payload.ID == "" {
		return CursorKey{}, fmt.Errorf("%w: missing id", domain.ErrInvalidCursor)
	}
	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return CursorKey{}, fmt.Errorf("%w: bad timestamp", domain.ErrInvalidCursor)
	}
	return CursorKey{Timestamp: ts, ID: payload.ID}, nil
}
