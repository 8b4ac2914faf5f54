package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_DefaultsOutsideRequest(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_TagsLoggerAndFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, fields := WithFields(WithLogger(context.Background(), base))
	ctx = With(ctx, "user_id", "u-1")

	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "user_id=u-1")
	assert.Equal(t, []any{"user_id", "u-1"}, fields.Attrs())
}

func TestWith_WithoutFieldsCollector(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	FromContext(With(ctx, "role", "ADMIN")).Info("hello")

	assert.Contains(t, buf.String(), "role=ADMIN")
}
