package prompt

import (
	"strings"
	"time"

	"nutria-assistant-be/pkg/llm"
	"nutria-assistant-be/pkg/store"
)

// Shot is one few-shot example pair.
type Shot struct {
	User      string
	Assistant string
}

// Builder assembles the message list for one stage call:
// system instructions, few-shot pairs, rolling history, current input.
type Builder struct {
	system  []string
	shots   []Shot
	history []llm.Message
}

func NewBuilder(system ...string) *Builder {
	return &Builder{system: system}
}

func (b *Builder) WithShots(shots ...Shot) *Builder {
	b.shots = append(b.shots, shots...)
	return b
}

func (b *Builder) WithHistory(history []llm.Message) *Builder {
	b.history = append(b.history, history...)
	return b
}

func (b *Builder) Build(input string) []llm.Message {
	msgs := make([]llm.Message, 0, 2+2*len(b.shots)+len(b.history))

	if sys := strings.TrimSpace(strings.Join(b.system, "\n\n")); sys != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: sys})
	}
	for _, shot := range b.shots {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: shot.User},
			llm.Message{Role: llm.RoleAssistant, Content: shot.Assistant},
		)
	}
	msgs = append(msgs, b.history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: input})
	return msgs
}

// History converts stored messages into provider messages.
func History(messages []store.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleUser
		if m.Role == store.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

var saoPaulo = loadZone()

func loadZone() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// Today renders the date the persona should consider current.
func Today(now time.Time) string {
	return now.In(saoPaulo).Format("02/01/2006")
}
