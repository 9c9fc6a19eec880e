package pipeline

import (
	"time"

	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/store"
)

// State is a step of the per-turn state machine.
type State string

const (
	StateStart     State = "start"
	StateGuardrail State = "guardrail"
	StateRejected  State = "rejected"
	StateRouter    State = "router"
	StateSmallTalk State = "small_talk"
	StateDispatch  State = "dispatch"
	StateAggregate State = "aggregate"
	StateJudge     State = "judge"
	StatePersist   State = "persist"
)

// Outcome tells which branch of the state machine produced the answer.
type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeSmallTalk Outcome = "small_talk"
	OutcomeAnswered  Outcome = "answered"
)

// TurnResult is what one turn hands back to the caller.
type TurnResult struct {
	Question string
	Answer   string
	Route    schema.Route
	// Specialists lists the domains that answered, in order ("data>engineering").
	Specialists string
	Outcome     Outcome
	Attempts    int
	Persisted   bool
}

// sessionTrace appends every model exchange of an attempt to the working
// copy of the session and mirrors it to the pipeline log.
type sessionTrace struct {
	session *store.Session
	now     func() time.Time
	sink    func(stage, role, content string)
}

func (t *sessionTrace) Record(stage, role, content string) {
	t.session.Record(stage, role, content, t.now())
	if t.sink != nil {
		t.sink(stage, role, content)
	}
}
