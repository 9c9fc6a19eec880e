// Package aggregator merges specialist answers into the text shown to the user.
package aggregator

import (
	"errors"
	"strings"

	"nutria-assistant-be/pkg/agent/schema"
)

var ErrNoAnswers = errors.New("nothing to aggregate")

const (
	recommendationLabel = "Recomendação: "
	followupLabel       = "Próximo passo: "
)

// Merge concatenates every answer in invocation order and then appends the
// last specialist's recommendation, followup and clarifying question. Only
// specialist text is used, so the result never states anything new.
func Merge(route schema.Route, answers []schema.SpecialistAnswer) (*schema.AggregatedAnswer, error) {
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}

	sections := make([]string, 0, len(answers)+3)
	for _, a := range answers {
		sections = append(sections, a.Answer)
	}

	last := answers[len(answers)-1]
	if last.Recommendation != "" {
		sections = append(sections, recommendationLabel+last.Recommendation)
	}
	if last.Followup != "" {
		sections = append(sections, followupLabel+last.Followup)
	}
	if last.ClarifyingQuestion != "" && !strings.Contains(last.Answer, last.ClarifyingQuestion) {
		sections = append(sections, last.ClarifyingQuestion)
	}

	return &schema.AggregatedAnswer{
		Route:     route,
		FinalText: strings.Join(sections, "\n\n"),
	}, nil
}
