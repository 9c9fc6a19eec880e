package nutrition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nutria-assistant-be/pkg/agent/structured"
	"nutria-assistant-be/pkg/llm"
)

const maxImageBytes = 8 << 20

// ScannedLabel is the structured content read from a nutrition label photo.
type ScannedLabel struct {
	ProductName string             `json:"product_name"`
	Unit        string             `json:"unit"`
	Portion     float64            `json:"portion"`
	PerPortion  map[string]float64 `json:"per_portion"`
}

type Scanner interface {
	Scan(ctx context.Context, imageURL string) (*ScannedLabel, error)
}

// KeySource yields the API key for one scan.
type KeySource func(ctx context.Context) (string, error)

// GeminiScanner reads nutrition labels with a multimodal Gemini model.
type GeminiScanner struct {
	BaseURL   string
	ModelName string
	Keys      KeySource
	Client    *http.Client
}

func NewGeminiScanner(modelName string, keys KeySource) *GeminiScanner {
	return &GeminiScanner{
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		ModelName: modelName,
		Keys:      keys,
		Client:    &http.Client{Timeout: 120 * time.Second},
	}
}

const scanInstruction = `Leia a tabela nutricional da imagem e responda SOMENTE com JSON:
{"product_name": "", "unit": "g|ml", "portion": 0, "per_portion": {"energia_kcal": 0, "carboidratos_g": 0, "acucares_totais_g": 0, "acucares_adicionados_g": 0, "proteinas_g": 0, "gorduras_totais_g": 0, "gorduras_saturadas_g": 0, "gorduras_trans_g": 0, "fibra_alimentar_g": 0, "sodio_mg": 0}}
Inclua apenas nutrientes legíveis na imagem.`

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type scanPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type scanContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []scanPart `json:"parts"`
}

type scanRequest struct {
	Contents         []scanContent     `json:"contents"`
	GenerationConfig map[string]string `json:"generationConfig"`
}

type scanResponse struct {
	Candidates []struct {
		Content scanContent `json:"content"`
	} `json:"candidates"`
}

func (s *GeminiScanner) Scan(ctx context.Context, imageURL string) (*ScannedLabel, error) {
	image, mimeType, err := s.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	key, err := s.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner key: %w", err)
	}

	payload := scanRequest{
		Contents: []scanContent{{
			Role: "user",
			Parts: []scanPart{
				{Text: scanInstruction},
				{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			},
		}},
		GenerationConfig: map[string]string{"responseMimeType": "application/json"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.BaseURL, s.ModelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scanner request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, llm.NewStatusError("gemini", resp.StatusCode, respBytes)
	}

	var out scanResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("scanner returned no candidates")
	}

	label, err := structured.Decode[ScannedLabel](out.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, fmt.Errorf("scanner output: %w", err)
	}
	return &label, nil
}

func (s *GeminiScanner) fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("image request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
