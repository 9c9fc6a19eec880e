package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(""))
	assert.Equal(t, 0.25, sampleRatio("0.25"))
	assert.Equal(t, 1.0, sampleRatio("2"))
	assert.Equal(t, 1.0, sampleRatio("abc"))
}

func TestInitTracerDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")

	shutdown := InitTracer()

	assert.NoError(t, shutdown(context.Background()))
}
