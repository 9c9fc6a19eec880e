// Package pipeline runs one conversational turn end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/guardrail"
	"nutria-assistant-be/pkg/agent/judge"
	"nutria-assistant-be/pkg/agent/router"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/session"
	"nutria-assistant-be/pkg/agent/specialist"
	"nutria-assistant-be/pkg/events"
	"nutria-assistant-be/pkg/llm"
	"nutria-assistant-be/pkg/llm/factory"
	"nutria-assistant-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyInput = errors.New("empty user message")

// SessionCache is the turn-scoped working set of sessions.
type SessionCache interface {
	Save(s *store.Session)
	Get(key store.Key) (*store.Session, bool)
	Delete(key store.Key)
}

type Credentials interface {
	Primary(ctx context.Context) (string, error)
	Reserve(used string) (string, error)
}

type ModelFactory interface {
	ForKey(apiKey string) (*factory.ModelSet, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	HistoryLimit int
	TurnTimeout  time.Duration
}

type Deps struct {
	Guardrail   *guardrail.Stage
	Router      *router.Stage
	Dispatcher  *specialist.Dispatcher
	Judge       *judge.Stage
	Memory      store.MemoryStore
	Cache       SessionCache
	Locker      session.Locker
	Credentials Credentials
	Models      ModelFactory
	Events      EventPublisher // optional
	Logger      logger.ILogger
	TraceLogger logger.ILogger // optional, receives every model exchange
}

type Controller struct {
	guardrail   *guardrail.Stage
	router      *router.Stage
	dispatcher  *specialist.Dispatcher
	judge       *judge.Stage
	memory      store.MemoryStore
	cache       SessionCache
	locker      session.Locker
	credentials Credentials
	models      ModelFactory
	events      EventPublisher
	logger      logger.ILogger
	traceLogger logger.ILogger
	tracer      trace.Tracer
	cfg         Config
	now         func() time.Time
}

func NewController(deps Deps, cfg Config) *Controller {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	locker := deps.Locker
	if locker == nil {
		locker = session.NewLocalLocker()
	}
	return &Controller{
		guardrail:   deps.Guardrail,
		router:      deps.Router,
		dispatcher:  deps.Dispatcher,
		judge:       deps.Judge,
		memory:      deps.Memory,
		cache:       deps.Cache,
		locker:      locker,
		credentials: deps.Credentials,
		models:      deps.Models,
		events:      deps.Events,
		logger:      deps.Logger,
		traceLogger: deps.TraceLogger,
		tracer:      otel.Tracer("nutria-assistant-be/pipeline"),
		cfg:         cfg,
		now:         time.Now,
	}
}

// Run executes one turn for key. Turns sharing a key never overlap.
//
// A quota error from any model call re-runs the whole turn once on the
// reserved credential; any failure of that second attempt is returned as is.
// When the answer was computed but memory could not be written, Run returns
// the result together with a *schema.PersistenceError.
func (c *Controller) Run(ctx context.Context, key store.Key, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if c.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.TurnTimeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "pipeline.turn", trace.WithAttributes(
		attribute.String("session", key.String()),
	))
	defer span.End()

	unlock, err := c.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, c.fail(ctx, span, key, err)
	}
	defer unlock()

	c.transition(key, StateStart, "", 0)

	base, err := c.load(ctx, key)
	if err != nil {
		return nil, c.fail(ctx, span, key, err)
	}
	defer c.cache.Delete(key)

	apiKey, err := c.credentials.Primary(ctx)
	if err != nil {
		return nil, c.fail(ctx, span, key, err)
	}

	result, working, err := c.attempt(ctx, base, text, apiKey, 1)
	if err != nil && llm.IsQuota(err) {
		reserve, rerr := c.credentials.Reserve(apiKey)
		if rerr != nil {
			return nil, c.fail(ctx, span, key, fmt.Errorf("%w (retry unavailable: %v)", err, rerr))
		}
		c.logger.Warn("Pipeline", "Quota exhausted, retrying turn on reserved credential", map[string]interface{}{
			"session": key.String(),
			"error":   err.Error(),
		})
		result, working, err = c.attempt(ctx, base, text, reserve, 2)
	}
	if err != nil {
		return nil, c.fail(ctx, span, key, err)
	}

	span.SetAttributes(
		attribute.String("route", string(result.Route)),
		attribute.String("outcome", string(result.Outcome)),
		attribute.Int("attempts", result.Attempts),
	)

	if err := c.persist(ctx, working, text, result); err != nil {
		span.RecordError(err)
		c.logger.Error("Pipeline", "Turn answered but memory not persisted", map[string]interface{}{
			"session": key.String(),
			"error":   err.Error(),
		})
		c.publish(ctx, constant.EventChatTurnCompleted, key, result, err)
		return result, err
	}

	c.publish(ctx, constant.EventChatTurnCompleted, key, result, nil)
	return result, nil
}

// load returns the turn's base session, populating the cache from the store.
func (c *Controller) load(ctx context.Context, key store.Key) (*store.Session, error) {
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}
	s, err := c.memory.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c.cache.Save(s)
	return s.Clone(), nil
}

func (c *Controller) persist(ctx context.Context, working *store.Session, question string, result *TurnResult) error {
	c.transition(working.Key, StatePersist, result.Route, result.Attempts)

	ctx, span := c.tracer.Start(ctx, "pipeline."+string(StatePersist))
	defer span.End()

	working.AppendExchange(question, result.Answer, c.now())
	if err := c.memory.Save(ctx, working); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &schema.PersistenceError{Key: working.Key.String(), Err: err}
	}
	result.Persisted = true
	return nil
}

func (c *Controller) fail(ctx context.Context, span trace.Span, key store.Key, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("Pipeline", "Turn failed", map[string]interface{}{
		"session": key.String(),
		"error":   err.Error(),
	})
	c.publish(ctx, constant.EventChatTurnFailed, key, nil, err)
	return err
}

func (c *Controller) transition(key store.Key, state State, route schema.Route, attempt int) {
	c.logger.Info("Pipeline", "State transition", map[string]interface{}{
		"session": key.String(),
		"state":   string(state),
		"route":   string(route),
		"attempt": attempt,
	})
}

func (c *Controller) publish(ctx context.Context, eventType string, key store.Key, result *TurnResult, err error) {
	if c.events == nil {
		return
	}

	data := map[string]interface{}{
		"user_id":    key.UserID.String(),
		"chat_index": key.Chat,
	}
	if result != nil {
		data["route"] = string(result.Route)
		if result.Specialists != "" {
			data["specialists"] = result.Specialists
		}
		data["outcome"] = string(result.Outcome)
		data["attempts"] = result.Attempts
		data["persisted"] = result.Persisted
	}
	if err != nil {
		data["error"] = err.Error()
	}

	// The turn context may have expired; events are best effort.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if perr := c.events.Publish(pubCtx, events.New(eventType, data, c.now())); perr != nil {
		c.logger.Warn("Pipeline", "Failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": perr.Error(),
		})
	}
}
