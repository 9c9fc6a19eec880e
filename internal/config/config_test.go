package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 10, cfg.Pipeline.HistoryLimit)
	assert.Equal(t, 4, cfg.Pipeline.MaxToolCalls)
	assert.Equal(t, "gemini", cfg.Ai.LLMProvider)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PIPELINE_HISTORY_LIMIT", "6")
	t.Setenv("PIPELINE_TURN_TIMEOUT", "45s")
	t.Setenv("PIPELINE_REDIS_LOCK", "true")
	t.Setenv("PIPELINE_MAX_TOOL_CALLS", "many")

	cfg := Load()

	assert.Equal(t, 6, cfg.Pipeline.HistoryLimit)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.TurnTimeout)
	assert.True(t, cfg.Pipeline.UseRedisLock)
	assert.Equal(t, 4, cfg.Pipeline.MaxToolCalls)
}
