// Package judge gives the aggregated answer a final quality review.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

type reviewReply struct {
	Approved *bool  `json:"approved"`
	Text     string `json:"text"`
}

// Review always yields user-facing text. An approved answer is returned
// byte-for-byte; a rejected one is replaced by the model's rewrite. Any
// failure other than a quota error falls back to the aggregated text.
func (s *Stage) Review(ctx context.Context, model llm.LLMProvider, question string, answer *schema.AggregatedAnswer, history []llm.Message, trace schema.Tracer) (string, error) {
	input := "Pergunta do usuário:\n" + question + "\n\nResposta proposta:\n" + answer.FinalText

	// No few-shot examples: the judge only sees the real conversation.
	msgs := prompt.NewBuilder(
		fmt.Sprintf(constant.PersonaPrompt, prompt.Today(s.now())),
		constant.JudgeSystemPrompt,
	).WithHistory(history).Build(input)

	raw, err := model.Chat(ctx, msgs, llm.WithJSONResponse())
	if err != nil {
		if llm.IsQuota(err) {
			return "", fmt.Errorf("judge: %w", err)
		}
		return s.keep(answer, "judge call failed", err), nil
	}
	trace.Record(constant.StageJudge, llm.RoleAssistant, raw)

	reply, err := structured.Decode[reviewReply](raw)
	if err != nil {
		return s.keep(answer, "unusable judge reply", err), nil
	}
	if reply.Approved == nil {
		return s.keep(answer, "unusable judge reply", errors.New("missing approved flag")), nil
	}
	if *reply.Approved {
		return answer.FinalText, nil
	}

	rewrite := strings.TrimSpace(reply.Text)
	if rewrite == "" {
		return s.keep(answer, "judge rejected without a rewrite", nil), nil
	}

	s.logger.Info("Judge", "Answer rewritten", map[string]interface{}{
		"route":       string(answer.Route),
		"before_size": len(answer.FinalText),
		"after_size":  len(rewrite),
	})
	return rewrite, nil
}

func (s *Stage) keep(answer *schema.AggregatedAnswer, reason string, err error) string {
	details := map[string]interface{}{"route": string(answer.Route)}
	if err != nil {
		details["error"] = err.Error()
	}
	s.logger.Warn("Judge", reason+", keeping aggregated answer", details)
	return answer.FinalText
}
