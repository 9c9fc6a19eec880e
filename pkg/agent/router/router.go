// Package router classifies admissible input into a single route.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/prompt"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/structured"
	"nutria-assistant-be/pkg/llm"
)

type Stage struct {
	logger logger.ILogger
	now    func() time.Time
}

func NewStage(log logger.ILogger) *Stage {
	return &Stage{logger: log, now: time.Now}
}

type decisionReply struct {
	Route              string `json:"route"`
	ClarifyingQuestion string `json:"clarifying_question"`
	SmallTalkReply     string `json:"small_talk_reply"`
}

var errNotAdmissible = errors.New("router called with an inadmissible verdict")

// Route classifies the verdict's question. The question itself is copied into
// the decision untouched; the model only chooses the route and optional texts.
func (s *Stage) Route(ctx context.Context, model llm.LLMProvider, verdict *schema.GuardrailVerdict, history []llm.Message, trace schema.Tracer) (*schema.RouterDecision, error) {
	if verdict == nil || !verdict.Admissible {
		return nil, errNotAdmissible
	}

	msgs := prompt.NewBuilder(
		fmt.Sprintf(constant.PersonaPrompt, prompt.Today(s.now())),
		constant.RouterSystemPrompt,
	).WithShots(shots...).WithHistory(history).Build(verdict.OriginalQuestion)

	raw, err := model.Chat(ctx, msgs, llm.WithJSONResponse())
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	trace.Record(constant.StageRouter, llm.RoleAssistant, raw)

	reply, err := structured.Decode[decisionReply](raw)
	if err != nil {
		return nil, s.fail(raw, err)
	}
	route, err := schema.ParseRoute(reply.Route)
	if err != nil {
		return nil, s.fail(raw, err)
	}

	decision := &schema.RouterDecision{Route: route}
	if route == schema.RouteSmallTalk {
		decision.SmallTalkReply = strings.TrimSpace(reply.SmallTalkReply)
	} else {
		decision.OriginalQuestion = verdict.OriginalQuestion
		decision.PersonaCopy = constant.PersonaCopy
		decision.ClarifyingQuestion = strings.TrimSpace(reply.ClarifyingQuestion)
	}
	if err := decision.Validate(); err != nil {
		return nil, s.fail(raw, err)
	}

	s.logger.Info("Router", "Route selected", map[string]interface{}{
		"route":   string(route),
		"clarify": decision.ClarifyingQuestion != "",
	})
	return decision, nil
}

func (s *Stage) fail(raw string, err error) error {
	s.logger.Warn("Router", "Unusable routing reply", map[string]interface{}{
		"error": err.Error(),
		"raw":   truncateLog(raw, 200),
	})
	return &schema.ClassificationError{Stage: constant.StageRouter, Raw: raw, Err: err}
}

func truncateLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

var shots = []prompt.Shot{
	{User: "Oi, tudo bem?", Assistant: `{"route": "small_talk", "clarifying_question": "", "small_talk_reply": "Oi! Tudo ótimo por aqui. Como posso ajudar com seus rótulos e tabelas nutricionais hoje?"}`},
	{User: "Quais ingredientes da categoria farinhas eu tenho cadastrados?", Assistant: `{"route": "data", "clarifying_question": "", "small_talk_reply": ""}`},
	{User: "A partir de quanto sódio o produto precisa da lupa de alto teor?", Assistant: `{"route": "engineering", "clarifying_question": "", "small_talk_reply": ""}`},
	{User: "Como faço para exportar a tabela em PDF?", Assistant: `{"route": "app", "clarifying_question": "", "small_talk_reply": ""}`},
	{User: "Das minhas tabelas de biscoito, qual precisaria de lupa de açúcar adicionado?", Assistant: `{"route": "full_analysis", "clarifying_question": "", "small_talk_reply": ""}`},
	{User: "Me recomenda um filme?", Assistant: `{"route": "small_talk", "clarifying_question": "", "small_talk_reply": "Filmes não são minha especialidade, mas posso ajudar com rotulagem, ingredientes e tabelas nutricionais."}`},
}
