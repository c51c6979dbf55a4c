package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/adapters/logger"
	"go.trai.ch/basis/internal/core/domain"
)

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		msg        string
		goldenName string
	}{
		{name: "info", level: slog.LevelInfo, msg: "watching 4 file sets", goldenName: "handler_info"},
		{name: "warn", level: slog.LevelWarn, msg: "no sessions", goldenName: "handler_warn"},
		{name: "error", level: slog.LevelError, msg: "task failed", goldenName: "handler_error"},
		{name: "debug filtered", level: slog.LevelDebug, msg: "hidden", goldenName: "handler_debug_filtered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			var buf bytes.Buffer
			lg := slog.New(logger.NewPrettyHandler(&buf, nil))
			lg.Log(t.Context(), tt.level, tt.msg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	handler := logger.NewPrettyHandler(&buf, nil).
		WithAttrs([]slog.Attr{slog.String("task", "postcss")}).
		WithGroup("file")
	slog.New(handler).Info("written", "path", "style.css", slog.Group("map", slog.Int("lines", 3)))

	g := goldie.New(t)
	g.Assert(t, "handler_attrs", buf.Bytes())
}

func TestCollectErrorEntries(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []logger.ErrorEntry
	}{
		{
			name: "standard error",
			err:  errors.New("boom"),
			want: []logger.ErrorEntry{{Message: "boom"}},
		},
		{
			name: "wrapped chain",
			err:  zerr.Wrap(zerr.With(zerr.New("root cause"), "file", "a.scss"), "outer"),
			want: []logger.ErrorEntry{
				{Message: "outer"},
				{Message: "root cause", Metadata: map[string]any{"file": "a.scss"}},
			},
		},
		{
			name: "tagged sentinel",
			err:  domain.Tag(domain.ErrTaskNotFound, "task", "stlyes"),
			want: []logger.ErrorEntry{
				{Message: "task not found", Metadata: map[string]any{"task": "stlyes"}},
			},
		},
		{
			name: "nil",
			err:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.CollectErrorEntries(tt.err))
		})
	}
}

func TestFormatErrorEntries(t *testing.T) {
	got := logger.FormatErrorEntries([]logger.ErrorEntry{
		{Message: "build execution failed"},
		{Message: "sass: style.scss:3:1: expected \"}\"\nsecond line", Metadata: map[string]any{"task": "postcss", "b": 1}},
	})

	g := goldie.New(t)
	g.Assert(t, "error_chain", []byte(got))
}

func TestLogger_Pretty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	lg := logger.New()
	lg.SetOutput(&buf)

	lg.Info("starting")
	lg.Warn("slow")
	lg.Error(zerr.Wrap(errors.New("disk full"), "write failed"))
	lg.Error(nil)

	g := goldie.New(t)
	g.Assert(t, "logger_pretty", buf.Bytes())
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	lg := logger.New()
	lg.SetOutput(&buf)
	lg.SetJSON(true)

	lg.Error(errors.New("disk full"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "operation failed", record["msg"])
	assert.Equal(t, "disk full", record["error"])
}

func TestPrettyHandler_AttrsKeepTheirGroup(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	handler := logger.NewPrettyHandler(&buf, nil).
		WithGroup("chain").
		WithAttrs([]slog.Attr{slog.String("task", "postcss"), {}}).
		WithGroup("file").
		WithAttrs([]slog.Attr{slog.String("stage", "sass")})
	slog.New(handler).Info("written", "path", "style.css")

	assert.Equal(t, "written chain.task=postcss chain.file.stage=sass chain.file.path=style.css\n", buf.String())
}
