package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestWithAttrs_Accumulates(t *testing.T) {
	ctx := WithAttrs(context.Background(), slog.String("request_id", "r1"))
	ctx = WithAttrs(ctx, slog.String("scene", "12"))

	assert.Equal(t, []slog.Attr{slog.String("request_id", "r1"), slog.String("scene", "12")}, AttrsFrom(ctx))
	assert.Empty(t, AttrsFrom(context.Background()))
}

func TestWithAttrs_DoesNotLeakToParent(t *testing.T) {
	parent := WithAttrs(context.Background(), slog.String("request_id", "r1"))
	_ = WithAttrs(parent, slog.String("scene", "12"))

	assert.Len(t, AttrsFrom(parent), 1)
}

func TestContextHandler_KeepsProviderThroughWith(t *testing.T) {
	var buf bytes.Buffer
	h := newContextHandler(textHandler(&buf, slog.LevelInfo), func(context.Context) []slog.Attr {
		return []slog.Attr{slog.String("storage", "memory")}
	})

	slog.New(h).With("component", "worker").WithGroup("").Info("ready")

	assert.Contains(t, buf.String(), "component=worker")
	assert.Contains(t, buf.String(), "storage=memory")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newContextHandler(textHandler(&buf, slog.LevelInfo), nil))

	logger.InfoContext(WithAttrs(context.Background(), slog.String("scene", "7")), "loaded")
	assert.Contains(t, buf.String(), "scene=7")
}

func TestFanout_DropsNilAndFansOut(t *testing.T) {
	var a, b bytes.Buffer
	f := newFanout(nil, textHandler(&a, slog.LevelInfo), nil, textHandler(&b, slog.LevelInfo))
	assert.Len(t, f, 2)

	slog.New(f).Info("tags refreshed")
	assert.Contains(t, a.String(), "tags refreshed")
	assert.Contains(t, b.String(), "tags refreshed")
}

func TestFanout_Enabled(t *testing.T) {
	var buf bytes.Buffer
	info := textHandler(&buf, slog.LevelInfo)
	debug := textHandler(&buf, slog.LevelDebug)
	ctx := context.Background()

	assert.False(t, newFanout().Enabled(ctx, slog.LevelError))
	assert.False(t, newFanout(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, newFanout(info, debug).Enabled(ctx, slog.LevelDebug))
}

func TestFanout_RespectsPerHandlerLevel(t *testing.T) {
	var quiet, verbose bytes.Buffer
	logger := slog.New(newFanout(textHandler(&quiet, slog.LevelWarn), textHandler(&verbose, slog.LevelDebug)))

	logger.Debug("track assigned")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "track assigned")
}

func TestFanout_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(textHandler(&buf, slog.LevelInfo))

	slog.New(f.WithAttrs([]slog.Attr{slog.String("component", "planner")}).WithGroup("plan")).
		Info("applied", "outcome", "split")

	assert.Contains(t, buf.String(), "component=planner")
	assert.Contains(t, buf.String(), "plan.outcome=split")
	assert.Equal(t, f, f.WithGroup(""))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestFanout_ErrorDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(failingHandler{}, textHandler(&buf, slog.LevelInfo))

	err := f.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "still delivered", 0))

	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "still delivered")
}
