package pipeline

import (
	"context"
	"fmt"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/pkg/agent/aggregator"
	"nutria-assistant-be/pkg/agent/prompt"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/specialist"
	"nutria-assistant-be/pkg/llm"
	"nutria-assistant-be/pkg/llm/credential"
	"nutria-assistant-be/pkg/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// attempt runs Guardrail through Judge on a private copy of base, so a
// failed attempt leaves nothing behind. It returns the working copy carrying
// the attempt's raw log.
func (c *Controller) attempt(ctx context.Context, base *store.Session, text, apiKey string, n int) (*TurnResult, *store.Session, error) {
	models, err := c.models.ForKey(apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("build models: %w", err)
	}
	ctx = credential.WithAttempt(ctx, apiKey)

	key := base.Key
	working := base.Clone()
	tr := &sessionTrace{session: working, now: c.now, sink: c.sink(key, n)}
	history := prompt.History(base.Recent(c.cfg.HistoryLimit))
	result := &TurnResult{Question: text, Attempts: n}

	tr.Record(constant.StageGuardrail, llm.RoleUser, text)

	c.transition(key, StateGuardrail, "", n)
	var verdict *schema.GuardrailVerdict
	err = c.stage(ctx, StateGuardrail, n, func(ctx context.Context) error {
		verdict, err = c.guardrail.Classify(ctx, models.Fast, text, history, tr)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if !verdict.Admissible {
		c.transition(key, StateRejected, "", n)
		result.Answer = verdict.CalmingReply
		result.Outcome = OutcomeRejected
		return result, working, nil
	}

	c.transition(key, StateRouter, "", n)
	var decision *schema.RouterDecision
	err = c.stage(ctx, StateRouter, n, func(ctx context.Context) error {
		decision, err = c.router.Route(ctx, models.Fast, verdict, history, tr)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	result.Route = decision.Route
	if decision.Route == schema.RouteSmallTalk {
		c.transition(key, StateSmallTalk, decision.Route, n)
		result.Answer = decision.SmallTalkReply
		result.Outcome = OutcomeSmallTalk
		return result, working, nil
	}

	c.transition(key, StateDispatch, decision.Route, n)
	var answers []schema.SpecialistAnswer
	err = c.stage(ctx, StateDispatch, n, func(ctx context.Context) error {
		answers, err = c.dispatcher.Dispatch(ctx, models.Smart, decision, history, tr)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	result.Specialists = specialist.Summary(answers)
	c.logger.Info("Pipeline", "Specialists answered", map[string]interface{}{
		"session":     key.String(),
		"route":       string(decision.Route),
		"specialists": result.Specialists,
		"attempt":     n,
	})

	c.transition(key, StateAggregate, decision.Route, n)
	merged, err := aggregator.Merge(decision.Route, answers)
	if err != nil {
		return nil, nil, err
	}
	tr.Record(constant.StageAggregator, llm.RoleAssistant, merged.FinalText)

	c.transition(key, StateJudge, decision.Route, n)
	var final string
	err = c.stage(ctx, StateJudge, n, func(ctx context.Context) error {
		final, err = c.judge.Review(ctx, models.Fast, text, merged, history, tr)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	result.Answer = final
	result.Outcome = OutcomeAnswered
	return result, working, nil
}

func (c *Controller) stage(ctx context.Context, state State, attempt int, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "pipeline."+string(state), trace.WithAttributes(
		attribute.Int("attempt", attempt),
	))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Controller) sink(key store.Key, attempt int) func(stage, role, content string) {
	if c.traceLogger == nil {
		return nil
	}
	return func(stage, role, content string) {
		c.traceLogger.Info("Pipeline", "Model exchange", map[string]interface{}{
			"session": key.String(),
			"attempt": attempt,
			"stage":   stage,
			"role":    role,
			"content": content,
		})
	}
}
