package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/llm"
)

// Input builds the specialist input from a routing decision: the user's text
// verbatim, followed by the router's clarification hint when there is one.
func Input(d *schema.RouterDecision) string {
	if d.ClarifyingQuestion == "" {
		return d.OriginalQuestion
	}
	return d.OriginalQuestion + "\n\n[Sugestão do roteador: " + d.ClarifyingQuestion + "]"
}

// ChainedInput feeds the first specialist's answer to the second one.
func ChainedInput(question, previousAnswer string) string {
	return question + "\n\nDados levantados pelo especialista de dados:\n" + previousAnswer
}

// Clarification turns a failed lookup into the answer shown to the user.
func Clarification(domain schema.Domain, lookup *schema.LookupError) schema.SpecialistAnswer {
	q := fmt.Sprintf(constant.ClarificationTemplate, lookup.Entity, lookup.Name)
	return schema.SpecialistAnswer{
		Domain:             domain,
		Intent:             "esclarecimento",
		Answer:             q,
		ClarifyingQuestion: q,
	}
}

// Dispatcher runs the specialists of a route strictly in sequence.
type Dispatcher struct {
	specialists map[schema.Domain]Specialist
	logger      logger.ILogger
}

func NewDispatcher(log logger.ILogger, specialists ...Specialist) *Dispatcher {
	m := make(map[schema.Domain]Specialist, len(specialists))
	for _, s := range specialists {
		m[s.Domain()] = s
	}
	return &Dispatcher{specialists: m, logger: log}
}

// Dispatch returns the answers in invocation order. A LookupError is not an
// error here: the failing specialist's slot becomes a clarification request
// and nothing after it runs.
func (d *Dispatcher) Dispatch(ctx context.Context, model llm.LLMProvider, decision *schema.RouterDecision, history []llm.Message, trace schema.Tracer) ([]schema.SpecialistAnswer, error) {
	domains := decision.Route.Domains()
	if len(domains) == 0 {
		return nil, fmt.Errorf("route %q has no specialists", decision.Route)
	}

	answers := make([]schema.SpecialistAnswer, 0, len(domains))
	input := Input(decision)
	for i, domain := range domains {
		s, ok := d.specialists[domain]
		if !ok {
			return nil, fmt.Errorf("no specialist registered for %q", domain)
		}

		answer, err := s.Answer(ctx, model, Request{Input: input, History: history, Trace: trace})
		if err != nil {
			var lookup *schema.LookupError
			if errors.As(err, &lookup) {
				d.logger.Info("Dispatch", "Asking user to clarify", map[string]interface{}{
					"domain": string(domain),
					"entity": lookup.Entity,
				})
				return append(answers, Clarification(domain, lookup)), nil
			}
			return nil, err
		}
		answers = append(answers, *answer)

		if i+1 < len(domains) {
			input = ChainedInput(decision.OriginalQuestion, answer.Answer)
		}
	}
	return answers, nil
}

// Summary is a short log-friendly description of the answers.
func Summary(answers []schema.SpecialistAnswer) string {
	parts := make([]string, len(answers))
	for i, a := range answers {
		parts[i] = string(a.Domain)
	}
	return strings.Join(parts, ">")
}
