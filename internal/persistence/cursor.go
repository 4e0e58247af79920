// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"example.com/fitness/internal/domain"
)

// ErrInvalidCursor is returned for page tokens this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// cursorToken is the JSON body of a page token. At is UnixNano so ordering
// survives the round trip without timezone loss.
type cursorToken struct {
	At int64  `json:"at"`
	ID string `json:"id"`
}

// EncodeCursor serialises the cursor to an opaque token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw, _ := json.Marshal(cursorToken{At: c.PerformedAt.UnixNano(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. A blank token yields nil.
func DecodeCursor(token string) (*domain.Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var ct cursorToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if ct.ID == "" || ct.At <= 0 {
		return nil, ErrInvalidCursor
	}
	return &domain.Cursor{PerformedAt: time.Unix(0, ct.At).UTC(), ID: ct.ID}, nil
}
