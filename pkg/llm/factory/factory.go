package factory

import (
	"fmt"

	"nutria-assistant-be/pkg/llm"
	"nutria-assistant-be/pkg/llm/gemini"
	"nutria-assistant-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "gemini", "":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return gemini.NewGeminiProvider(apiKey, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// ModelSet is the pair of model tiers one pipeline attempt runs with.
// Smart answers as a specialist; Fast classifies and reviews.
type ModelSet struct {
	Smart llm.LLMProvider
	Fast  llm.LLMProvider
}

type ModelSetFactory struct {
	ProviderType string
	BaseURL      string
	SmartModel   string
	FastModel    string
}

// ForKey builds both tiers bound to one API credential.
func (f ModelSetFactory) ForKey(apiKey string) (*ModelSet, error) {
	smart, err := NewLLMProvider(f.ProviderType, f.SmartModel, f.BaseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("smart model: %w", err)
	}
	fast, err := NewLLMProvider(f.ProviderType, f.FastModel, f.BaseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("fast model: %w", err)
	}

	return &ModelSet{
		Smart: llm.Tuned(smart, llm.WithTemperature(0.7), llm.WithTopP(0.95)),
		Fast:  llm.Tuned(fast, llm.WithTemperature(0.2)),
	}, nil
}
