package service

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/points-service/internal/repository"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// encodeCursor renders the position after (createdAt, id) as an opaque token.
func encodeCursor(createdAt time.Time, id string) string {
	raw := strconv.FormatInt(createdAt.UnixNano(), 10) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(token string) (*repository.PageCursor, error) {
	if token == "" {
		return nil, nil
	}
	invalid := apperrors.NewValidationError("invalid cursor", map[string]any{"cursor": token})
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalid
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, invalid
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, invalid
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, invalid
	}
	return &repository.PageCursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
