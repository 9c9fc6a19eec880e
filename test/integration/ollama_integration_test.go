package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"nutria-assistant-be/pkg/llm"
	"nutria-assistant-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a local Ollama server, e.g. OLLAMA_BASE_URL=http://localhost:11434 OLLAMA_MODEL=gemma:2b.
func TestOllamaChatJSON(t *testing.T) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	model := os.Getenv("OLLAMA_MODEL")
	if baseURL == "" || model == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL or OLLAMA_MODEL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out, err := ollama.NewOllamaProvider(baseURL, model).Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: `Responda SOMENTE com {"admissible": true|false, "calming_reply": ""}`},
		{Role: llm.RoleUser, Content: "Bom dia!"},
	}, llm.WithJSONResponse(), llm.WithTemperature(0))

	require.NoError(t, err)
	assert.Contains(t, out, "admissible")
}
