package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type searchFlow struct {
	path string
	once sync.Once
	text string
	err  error
}

// SearchFlow serves the static app guide stored at path. The file is read
// once, on first use.
func SearchFlow(path string) Tool { return &searchFlow{path: path} }

func (t *searchFlow) Name() string { return "search_flow" }

func (t *searchFlow) Description() string {
	return `retorna o guia de uso do aplicativo (telas, fluxos e funcionalidades). Sem argumentos: {}.`
}

func (t *searchFlow) Call(context.Context, json.RawMessage) (any, error) {
	t.once.Do(func() {
		data, err := os.ReadFile(t.path)
		if err != nil {
			t.err = fmt.Errorf("read app guide: %w", err)
			return
		}
		t.text = string(data)
	})
	if t.err != nil {
		return nil, t.err
	}
	return map[string]string{"guide": t.text}, nil
}
