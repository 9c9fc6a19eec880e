package schema

import (
	"errors"
	"strings"
)

// GuardrailVerdict screens one user message.
// CalmingReply is non-empty exactly when Admissible is false.
type GuardrailVerdict struct {
	Admissible       bool   `json:"admissible"`
	OriginalQuestion string `json:"original_question"`
	CalmingReply     string `json:"calming_reply,omitempty"`
}

func (v GuardrailVerdict) Validate() error {
	hasReply := strings.TrimSpace(v.CalmingReply) != ""
	switch {
	case v.Admissible && hasReply:
		return errors.New("admissible verdict must not carry a calming reply")
	case !v.Admissible && !hasReply:
		return errors.New("inadmissible verdict requires a calming reply")
	}
	return nil
}

// RouterDecision is the routing outcome for an admissible message.
// SmallTalkReply is set for RouteSmallTalk, OriginalQuestion otherwise.
type RouterDecision struct {
	Route              Route  `json:"route"`
	OriginalQuestion   string `json:"original_question,omitempty"`
	PersonaCopy        string `json:"persona_copy,omitempty"`
	ClarifyingQuestion string `json:"clarifying_question,omitempty"`
	SmallTalkReply     string `json:"small_talk_reply,omitempty"`
}

func (d RouterDecision) Validate() error {
	if _, err := ParseRoute(string(d.Route)); err != nil {
		return err
	}
	hasReply := strings.TrimSpace(d.SmallTalkReply) != ""
	hasQuestion := d.OriginalQuestion != ""

	if d.Route == RouteSmallTalk {
		if !hasReply || hasQuestion {
			return errors.New("small_talk decision must carry only a small talk reply")
		}
		return nil
	}
	if !hasQuestion || hasReply {
		return errors.New("specialist decision must carry only the original question")
	}
	return nil
}

// SpecialistAnswer is produced once per specialist invocation.
type SpecialistAnswer struct {
	Domain             Domain `json:"domain"`
	Intent             string `json:"intent"`
	Answer             string `json:"answer"`
	Recommendation     string `json:"recommendation"`
	Followup           string `json:"followup,omitempty"`
	ClarifyingQuestion string `json:"clarifying_question,omitempty"`
}

func (a SpecialistAnswer) Validate() error {
	if strings.TrimSpace(a.Answer) == "" {
		return errors.New("specialist answer is empty")
	}
	return nil
}

// AggregatedAnswer merges the specialist answers of one turn.
type AggregatedAnswer struct {
	Route     Route  `json:"route"`
	FinalText string `json:"final_text"`
}
