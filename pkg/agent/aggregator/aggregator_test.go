package aggregator

import (
	"strings"
	"testing"

	"nutria-assistant-be/pkg/agent/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		route   schema.Route
		answers []schema.SpecialistAnswer
		want    string
	}{
		{
			name:  "single answer with recommendation",
			route: schema.RouteData,
			answers: []schema.SpecialistAnswer{
				{Domain: schema.DomainData, Answer: "Você tem 3 tabelas.", Recommendation: "Revise a v1."},
			},
			want: "Você tem 3 tabelas.\n\nRecomendação: Revise a v1.",
		},
		{
			name:  "chain keeps only the last recommendation",
			route: schema.RouteFullAnalysis,
			answers: []schema.SpecialistAnswer{
				{Domain: schema.DomainData, Answer: "Sódio: 600 mg/100 g.", Recommendation: "ignorada"},
				{Domain: schema.DomainEngineering, Answer: "Exige lupa de sódio.", Recommendation: "Reduza o sal.", Followup: "Quer simular?"},
			},
			want: "Sódio: 600 mg/100 g.\n\nExige lupa de sódio.\n\nRecomendação: Reduza o sal.\n\nPróximo passo: Quer simular?",
		},
		{
			name:  "clarification already in answer is not repeated",
			route: schema.RouteData,
			answers: []schema.SpecialistAnswer{
				{Domain: schema.DomainData, Answer: "Qual produto?", ClarifyingQuestion: "Qual produto?"},
			},
			want: "Qual produto?",
		},
		{
			name:  "separate clarifying question is appended",
			route: schema.RouteEngineering,
			answers: []schema.SpecialistAnswer{
				{Domain: schema.DomainEngineering, Answer: "Depende da categoria.", ClarifyingQuestion: "É bebida ou sólido?"},
			},
			want: "Depende da categoria.\n\nÉ bebida ou sólido?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.route, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.route, got.Route)
			assert.Equal(t, tt.want, got.FinalText)
		})
	}
}

func TestMerge_ContainsEveryAnswer(t *testing.T) {
	answers := []schema.SpecialistAnswer{
		{Domain: schema.DomainData, Answer: "linha 1\ncom quebra", Recommendation: "r1"},
		{Domain: schema.DomainEngineering, Answer: "segunda resposta com {chaves} e \"aspas\"", Recommendation: "r2"},
	}

	got, err := Merge(schema.RouteFullAnalysis, answers)
	require.NoError(t, err)

	for _, a := range answers {
		assert.True(t, strings.Contains(got.FinalText, a.Answer), "missing %q", a.Answer)
	}
	assert.Contains(t, got.FinalText, "r2")
	assert.NotContains(t, got.FinalText, "r1")
}

func TestMerge_Empty(t *testing.T) {
	_, err := Merge(schema.RouteData, nil)
	assert.ErrorIs(t, err, ErrNoAnswers)
}
