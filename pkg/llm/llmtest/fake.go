// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"nutria-assistant-be/pkg/llm"
)

// Call is one recorded Chat invocation.
type Call struct {
	Stage    string
	Messages []llm.Message
	Options  llm.Options
}

// Input returns the last message sent, normally the stage input.
func (c Call) Input() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].Content
}

type Responder func(call Call) (string, error)

// Fake answers each call with the responder registered for the first stage
// header found in the call's system message.
type Fake struct {
	mu         sync.Mutex
	order      []string
	responders map[string]Responder
	calls      []Call
}

var _ llm.LLMProvider = &Fake{}

func New() *Fake {
	return &Fake{responders: make(map[string]Responder)}
}

func (f *Fake) On(header string, r Responder) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.responders[header]; !ok {
		f.order = append(f.order, header)
	}
	f.responders[header] = r
	return f
}

func (f *Fake) Reply(header, text string) *Fake {
	return f.On(header, func(Call) (string, error) { return text, nil })
}

func (f *Fake) Fail(header string, err error) *Fake {
	return f.On(header, func(Call) (string, error) { return "", err })
}

// Script replies with texts in order, repeating the last one.
func Script(texts ...string) Responder {
	var mu sync.Mutex
	i := 0
	return func(Call) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		t := texts[i]
		if i < len(texts)-1 {
			i++
		}
		return t, nil
	}
}

func (f *Fake) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var system string
	if len(history) > 0 && history[0].Role == llm.RoleSystem {
		system = history[0].Content
	}

	f.mu.Lock()
	call := Call{Messages: append([]llm.Message(nil), history...), Options: llm.Apply(llm.Options{}, opts...)}
	var responder Responder
	for _, header := range f.order {
		if strings.Contains(system, header) {
			call.Stage = header
			responder = f.responders[header]
			break
		}
	}
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if responder == nil {
		return "", fmt.Errorf("llmtest: no responder for call")
	}
	return responder(call)
}

func (f *Fake) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Calls returns recorded calls for one stage header, or all calls when header is "".
func (f *Fake) Calls(header string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if header == "" || c.Stage == header {
			out = append(out, c)
		}
	}
	return out
}
