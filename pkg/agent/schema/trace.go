package schema

// Tracer receives every message object exchanged with a model during a turn.
type Tracer interface {
	Record(stage, role, content string)
}

type nopTracer struct{}

func (nopTracer) Record(string, string, string) {}

// NopTracer discards records.
var NopTracer Tracer = nopTracer{}
