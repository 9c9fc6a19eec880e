package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/tools"
	"nutria-assistant-be/pkg/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTool returns result, or err when set.
type stubTool struct {
	name   string
	result any
	err    error
	calls  int
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Call(context.Context, json.RawMessage) (any, error) {
	s.calls++
	return s.result, s.err
}

const (
	findCall    = `{"tool_call": {"name": "ingredient_find", "arguments": {"name": "farinha"}}}`
	dataAnswer  = `{"domain": "data", "intent": "consulta", "answer": "A Farinha de trigo tem 360 kcal por 100 g.", "recommendation": "Use a tabela v2."}`
	engAnswer   = `{"domain": "engineering", "intent": "análise", "answer": "Com 360 kcal/100 g não há exigência de lupa.", "recommendation": "Mantenha o rótulo atual."}`
	appAnswer   = `{"domain": "app", "intent": "ajuda", "answer": "Vá em Menu > Tabelas > Exportar.", "recommendation": "Exporte em PDF."}`
	unknownCall = `{"tool_call": {"name": "delete_everything", "arguments": {}}}`
)

func nop() logger.ILogger { return logger.NewNopLogger() }

func TestData_ToolLoop(t *testing.T) {
	tool := &stubTool{name: "ingredient_find", result: map[string]int{"count": 1}}
	fake := llmtest.New().On(constant.HeaderData, llmtest.Script(findCall, dataAnswer))
	data := NewData(tools.NewRegistry(tool), DefaultMaxToolCalls, nop())

	answer, err := data.Answer(context.Background(), fake, Request{Input: "Quanto de energia tem a farinha?"})

	require.NoError(t, err)
	assert.Equal(t, schema.DomainData, answer.Domain)
	assert.Equal(t, "Use a tabela v2.", answer.Recommendation)
	assert.Equal(t, 1, tool.calls)

	calls := fake.Calls(constant.HeaderData)
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[1].Input(), constant.ToolResultPrefix+" (ingredient_find)"))
	assert.Contains(t, calls[1].Input(), `{"count":1}`)
}

func TestData_LookupErrorStopsTheLoop(t *testing.T) {
	tool := &stubTool{name: "ingredient_find", err: &schema.LookupError{Entity: "ingrediente", Name: "farinha lunar"}}
	fake := llmtest.New().On(constant.HeaderData, llmtest.Script(findCall, dataAnswer))
	data := NewData(tools.NewRegistry(tool), DefaultMaxToolCalls, nop())

	_, err := data.Answer(context.Background(), fake, Request{Input: "x"})

	assert.True(t, schema.IsLookup(err))
	assert.Len(t, fake.Calls(constant.HeaderData), 1)
}

func TestData_ArgumentErrorAndUnknownToolAreObservations(t *testing.T) {
	tool := &stubTool{name: "ingredient_find", err: &tools.ArgumentError{Tool: "ingredient_find", Reason: "name or category is required"}}
	fake := llmtest.New().On(constant.HeaderData, llmtest.Script(findCall, unknownCall, dataAnswer))
	data := NewData(tools.NewRegistry(tool), DefaultMaxToolCalls, nop())

	answer, err := data.Answer(context.Background(), fake, Request{Input: "x"})

	require.NoError(t, err)
	assert.NotEmpty(t, answer.Answer)
	calls := fake.Calls(constant.HeaderData)
	require.Len(t, calls, 3)
	assert.Contains(t, calls[1].Input(), "name or category is required")
	assert.Contains(t, calls[2].Input(), "ferramenta desconhecida")
}

func TestData_ToolBudgetIsBounded(t *testing.T) {
	tool := &stubTool{name: "ingredient_find", result: []string{}}
	fake := llmtest.New().Reply(constant.HeaderData, findCall)
	data := NewData(tools.NewRegistry(tool), 2, nop())

	_, err := data.Answer(context.Background(), fake, Request{Input: "x"})

	require.Error(t, err)
	assert.True(t, schema.IsClassification(err))
	assert.Equal(t, 2, tool.calls)
	assert.Len(t, fake.Calls(constant.HeaderData), 3)
}

func TestData_InfrastructureErrorIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	tool := &stubTool{name: "ingredient_find", err: boom}
	fake := llmtest.New().On(constant.HeaderData, llmtest.Script(findCall, dataAnswer))

	_, err := NewData(tools.NewRegistry(tool), DefaultMaxToolCalls, nop()).Answer(context.Background(), fake, Request{Input: "x"})

	assert.ErrorIs(t, err, boom)
}

func TestEngineering_RejectsToolCalls(t *testing.T) {
	fake := llmtest.New().Reply(constant.HeaderEngineering, findCall)

	_, err := NewEngineering(nop()).Answer(context.Background(), fake, Request{Input: "x"})

	assert.True(t, schema.IsClassification(err))
}

func TestSpecialist_InvalidReplies(t *testing.T) {
	tests := map[string]string{
		"empty answer": `{"domain": "engineering", "answer": "  "}`,
		"prose":        "A resposta é 42.",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			fake := llmtest.New().Reply(constant.HeaderEngineering, raw)
			_, err := NewEngineering(nop()).Answer(context.Background(), fake, Request{Input: "x"})
			assert.True(t, schema.IsClassification(err))
		})
	}
}

func newDispatcher(dataTool tools.Tool) *Dispatcher {
	return NewDispatcher(nop(),
		NewData(tools.NewRegistry(dataTool), DefaultMaxToolCalls, nop()),
		NewEngineering(nop()),
		NewApp(tools.NewRegistry(&stubTool{name: "search_flow", result: map[string]string{"guide": "..."}}), DefaultMaxToolCalls, nop()),
	)
}

func TestDispatch_FullAnalysisChainsDataIntoEngineering(t *testing.T) {
	fake := llmtest.New().
		On(constant.HeaderData, llmtest.Script(findCall, dataAnswer)).
		Reply(constant.HeaderEngineering, engAnswer)
	d := newDispatcher(&stubTool{name: "ingredient_find", result: []string{}})
	decision := &schema.RouterDecision{Route: schema.RouteFullAnalysis, OriginalQuestion: "Minha farinha precisa de lupa?"}

	answers, err := d.Dispatch(context.Background(), fake, decision, nil, schema.NopTracer)

	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, schema.DomainData, answers[0].Domain)
	assert.Equal(t, schema.DomainEngineering, answers[1].Domain)

	engInput := fake.Calls(constant.HeaderEngineering)[0].Input()
	assert.Contains(t, engInput, answers[0].Answer)
	assert.True(t, strings.HasPrefix(engInput, decision.OriginalQuestion))
}

func TestDispatch_LookupBecomesClarification(t *testing.T) {
	fake := llmtest.New().
		On(constant.HeaderData, llmtest.Script(findCall, dataAnswer)).
		Reply(constant.HeaderEngineering, engAnswer)
	d := newDispatcher(&stubTool{name: "ingredient_find", err: &schema.LookupError{Entity: "ingrediente", Name: "farinha lunar"}})
	decision := &schema.RouterDecision{Route: schema.RouteFullAnalysis, OriginalQuestion: "A farinha lunar precisa de lupa?"}

	answers, err := d.Dispatch(context.Background(), fake, decision, nil, schema.NopTracer)

	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Contains(t, answers[0].Answer, "farinha lunar")
	assert.NotEmpty(t, answers[0].ClarifyingQuestion)
	assert.Empty(t, fake.Calls(constant.HeaderEngineering))
}

func TestDispatch_SingleRoutes(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderEngineering, engAnswer).
		On(constant.HeaderApp, llmtest.Script(`{"tool_call": {"name": "search_flow", "arguments": {}}}`, appAnswer))
	d := newDispatcher(&stubTool{name: "ingredient_find"})

	answers, err := d.Dispatch(context.Background(), fake, &schema.RouterDecision{Route: schema.RouteApp, OriginalQuestion: "Como exporto?"}, nil, schema.NopTracer)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, schema.DomainApp, answers[0].Domain)

	answers, err = d.Dispatch(context.Background(), fake, &schema.RouterDecision{Route: schema.RouteEngineering, OriginalQuestion: "O que é lupa?", ClarifyingQuestion: "Qual categoria?"}, nil, schema.NopTracer)
	require.NoError(t, err)
	assert.Equal(t, "engineering", Summary(answers))
	assert.True(t, strings.HasPrefix(fake.Calls(constant.HeaderEngineering)[0].Input(), "O que é lupa?"))
	assert.Contains(t, fake.Calls(constant.HeaderEngineering)[0].Input(), "Qual categoria?")
}

func TestDispatch_SmallTalkHasNoSpecialists(t *testing.T) {
	_, err := newDispatcher(&stubTool{name: "ingredient_find"}).Dispatch(context.Background(), llmtest.New(), &schema.RouterDecision{Route: schema.RouteSmallTalk, SmallTalkReply: "oi"}, nil, schema.NopTracer)
	assert.Error(t, err)
}
