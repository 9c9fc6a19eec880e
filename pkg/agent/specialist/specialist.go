// Package specialist implements the domain experts that answer routed requests.
package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/prompt"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/structured"
	"nutria-assistant-be/pkg/agent/tools"
	"nutria-assistant-be/pkg/llm"
)

const DefaultMaxToolCalls = 4

// Request is what a specialist consumes.
type Request struct {
	Input   string
	History []llm.Message
	Trace   schema.Tracer
}

type Specialist interface {
	Domain() schema.Domain
	Answer(ctx context.Context, model llm.LLMProvider, req Request) (*schema.SpecialistAnswer, error)
}

type toolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type reply struct {
	ToolCall           *toolCall `json:"tool_call"`
	Intent             string    `json:"intent"`
	Answer             string    `json:"answer"`
	Recommendation     string    `json:"recommendation"`
	Followup           string    `json:"followup"`
	ClarifyingQuestion string    `json:"clarifying_question"`
}

// agent runs a bounded call-tool/observe loop until the model returns a
// final answer. With no tools registered a single call is made.
type agent struct {
	domain       schema.Domain
	stage        string
	system       []string
	shots        []prompt.Shot
	tools        *tools.Registry
	maxToolCalls int
	logger       logger.ILogger
	now          func() time.Time
}

// NewData answers from stored data only, through its tools.
func NewData(registry *tools.Registry, maxToolCalls int, log logger.ILogger) Specialist {
	return &agent{
		domain:       schema.DomainData,
		stage:        constant.StageData,
		system:       []string{constant.DataSystemPrompt + registry.Catalog(), fmt.Sprintf(constant.DataAnswerContract, schema.DomainData)},
		shots:        dataShots,
		tools:        registry,
		maxToolCalls: maxToolCalls,
		logger:       log,
		now:          time.Now,
	}
}

// NewEngineering answers from domain knowledge and never calls tools.
func NewEngineering(log logger.ILogger) Specialist {
	return &agent{
		domain: schema.DomainEngineering,
		stage:  constant.StageEngineering,
		system: []string{fmt.Sprintf(constant.EngineeringSystemPrompt, schema.DomainEngineering)},
		shots:  engineeringShots,
		logger: log,
		now:    time.Now,
	}
}

// NewApp answers usage questions from the static app guide.
func NewApp(registry *tools.Registry, maxToolCalls int, log logger.ILogger) Specialist {
	return &agent{
		domain:       schema.DomainApp,
		stage:        constant.StageApp,
		system:       []string{constant.AppSystemPrompt + registry.Catalog(), fmt.Sprintf(constant.AppAnswerContract, schema.DomainApp)},
		shots:        appShots,
		tools:        registry,
		maxToolCalls: maxToolCalls,
		logger:       log,
		now:          time.Now,
	}
}

func (a *agent) Domain() schema.Domain { return a.domain }

func (a *agent) Answer(ctx context.Context, model llm.LLMProvider, req Request) (*schema.SpecialistAnswer, error) {
	trace := req.Trace
	if trace == nil {
		trace = schema.NopTracer
	}

	system := append([]string{fmt.Sprintf(constant.PersonaPrompt, prompt.Today(a.now()))}, a.system...)
	msgs := prompt.NewBuilder(system...).WithShots(a.shots...).WithHistory(req.History).Build(req.Input)
	trace.Record(a.stage, llm.RoleUser, req.Input)

	calls := 0
	for {
		raw, err := model.Chat(ctx, msgs, llm.WithJSONResponse())
		if err != nil {
			return nil, fmt.Errorf("%s specialist: %w", a.domain, err)
		}
		trace.Record(a.stage, llm.RoleAssistant, raw)

		out, err := structured.Decode[reply](raw)
		if err != nil {
			return nil, a.fail(raw, err)
		}

		if out.ToolCall == nil {
			answer := &schema.SpecialistAnswer{
				Domain:             a.domain,
				Intent:             strings.TrimSpace(out.Intent),
				Answer:             strings.TrimSpace(out.Answer),
				Recommendation:     strings.TrimSpace(out.Recommendation),
				Followup:           strings.TrimSpace(out.Followup),
				ClarifyingQuestion: strings.TrimSpace(out.ClarifyingQuestion),
			}
			if err := answer.Validate(); err != nil {
				return nil, a.fail(raw, err)
			}
			a.logger.Info("Specialist", "Answer produced", map[string]interface{}{
				"domain":     string(a.domain),
				"tool_calls": calls,
			})
			return answer, nil
		}

		if a.tools == nil || a.tools.Len() == 0 {
			return nil, a.fail(raw, fmt.Errorf("tool call %q from a specialist without tools", out.ToolCall.Name))
		}
		if calls >= a.maxToolCalls {
			return nil, a.fail(raw, fmt.Errorf("tool budget of %d calls exhausted", a.maxToolCalls))
		}
		calls++

		observation, err := a.invoke(ctx, out.ToolCall)
		if err != nil {
			return nil, err
		}
		trace.Record(constant.StageTool, llm.RoleUser, observation)
		msgs = append(msgs,
			llm.Message{Role: llm.RoleAssistant, Content: raw},
			llm.Message{Role: llm.RoleUser, Content: observation},
		)
	}
}

// invoke runs one tool call. Argument problems and unknown tools are turned
// into observations for the model; lookup failures and infrastructure errors
// end the specialist run.
func (a *agent) invoke(ctx context.Context, call *toolCall) (string, error) {
	tool, ok := a.tools.Lookup(call.Name)
	if !ok {
		return observe(call.Name, map[string]string{"status": "error", "message": "ferramenta desconhecida"}), nil
	}

	result, err := tool.Call(ctx, call.Arguments)
	var argErr *tools.ArgumentError
	switch {
	case err == nil:
		return observe(call.Name, result), nil
	case errors.As(err, &argErr):
		return observe(call.Name, map[string]string{"status": "error", "message": argErr.Reason}), nil
	case schema.IsLookup(err):
		a.logger.Info("Specialist", "Lookup failed", map[string]interface{}{
			"domain": string(a.domain),
			"tool":   call.Name,
			"error":  err.Error(),
		})
		return "", err
	default:
		return "", fmt.Errorf("tool %s: %w", call.Name, err)
	}
}

func (a *agent) fail(raw string, err error) error {
	a.logger.Warn("Specialist", "Unusable specialist reply", map[string]interface{}{
		"domain": string(a.domain),
		"error":  err.Error(),
	})
	return &schema.ClassificationError{Stage: a.stage, Raw: raw, Err: err}
}

func observe(tool string, v any) string {
	body, err := json.Marshal(v)
	if err != nil {
		body = []byte(`{"status":"error","message":"resultado ilegível"}`)
	}
	return fmt.Sprintf("%s (%s):\n%s", constant.ToolResultPrefix, tool, body)
}
