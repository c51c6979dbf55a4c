package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/basis/internal/adapters/telemetry"
	"go.trai.ch/basis/internal/core/ports"
	"go.trai.ch/basis/internal/core/ports/mocks"
)

func TestOTelTracer_StreamsLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	var logged []byte
	renderer.EXPECT().OnTaskStart(gomock.Any(), gomock.Any(), "concat", gomock.Any())
	renderer.EXPECT().OnTaskLog(gomock.Any(), gomock.Any()).
		Do(func(_ string, data []byte) { logged = append(logged, data...) }).
		MinTimes(1)
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), gomock.Any()).
		Do(func(_ string, _ any, err error) { require.EqualError(t, err, "boom") })

	tracer := telemetry.NewOTelTracerWithProvider(telemetry.NewProvider(renderer), "test").
		WithRenderer(renderer)
	_, span := tracer.Start(context.Background(), "concat", ports.WithAttribute("files", 3))

	n, err := span.Write([]byte("wrote src/scripts/project.js\n"))
	require.NoError(t, err)
	assert.Equal(t, 29, n)

	span.RecordError(errors.New("boom"))
	span.End()

	assert.Equal(t, "wrote src/scripts/project.js\n", string(logged))
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)

	deps := map[string][]string{"styles": {"cssnano"}}
	renderer.EXPECT().OnPlanEmit([]string{"cssnano", "styles"}, deps, []string{"styles"})

	tracer := telemetry.NewOTelTracer("test").WithRenderer(renderer)
	tracer.EmitPlan(context.Background(), []string{"cssnano", "styles"}, deps, []string{"styles"})
}

func TestOTelTracer_WithoutRenderer(t *testing.T) {
	tracer := telemetry.NewOTelTracer("test")
	tracer.EmitPlan(context.Background(), []string{"a"}, nil, []string{"a"})

	_, span := tracer.Start(context.Background(), "a")
	span.SetAttribute("string", "v")
	span.SetAttribute("int", 1)
	span.SetAttribute("int64", int64(2))
	span.SetAttribute("float", 1.5)
	span.SetAttribute("bool", true)
	span.SetAttribute("slice", []string{"x"})
	span.SetAttribute("other", struct{}{})

	n, err := span.Write([]byte("log"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	span.End()
}

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()

	newCtx, span := tracer.Start(ctx, "task")
	assert.Equal(t, ctx, newCtx)
	tracer.EmitPlan(ctx, []string{"task"}, nil, nil)

	span.SetAttribute("k", "v")
	span.RecordError(errors.New("ignored"))
	n, err := span.Write([]byte("data"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	span.End()
}
