package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/internal/entity"
	"nutria-assistant-be/internal/pkg/logger"
	"nutria-assistant-be/pkg/agent/guardrail"
	"nutria-assistant-be/pkg/agent/judge"
	"nutria-assistant-be/pkg/agent/router"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/agent/specialist"
	"nutria-assistant-be/pkg/agent/tools"
	"nutria-assistant-be/pkg/events"
	"nutria-assistant-be/pkg/llm"
	"nutria-assistant-be/pkg/llm/credential"
	"nutria-assistant-be/pkg/llm/factory"
	"nutria-assistant-be/pkg/llm/llmtest"
	"nutria-assistant-be/pkg/nutrition"
	"nutria-assistant-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	admissible   = `{"admissible": true, "calming_reply": ""}`
	inadmissible = `{"admissible": false, "calming_reply": "Vamos manter o respeito? Estou aqui para ajudar."}`
	smallTalk    = `{"route": "small_talk", "clarifying_question": "", "small_talk_reply": "Oi! Tudo ótimo, e com você?"}`
	dataRoute    = `{"route": "data", "clarifying_question": "", "small_talk_reply": ""}`
	fullRoute    = `{"route": "full_analysis", "clarifying_question": "", "small_talk_reply": ""}`
	approved     = `{"approved": true, "text": ""}`

	lunarCall  = `{"tool_call": {"name": "ingredient_find", "arguments": {"name": "farinha lunar"}}}`
	dataAnswer = `{"domain": "data", "intent": "consulta", "answer": "O Pão de queijo tem 290 mg de sódio por porção.", "recommendation": "Confira a tabela v2."}`
	engAnswer  = `{"domain": "engineering", "intent": "análise", "answer": "Abaixo de 600 mg/100 g não há lupa para sódio.", "recommendation": "Mantenha o rótulo."}`
)

// emptyCatalog resolves nothing.
type emptyCatalog struct{}

func (emptyCatalog) FindIngredients(context.Context, tools.IngredientFilter) ([]*entity.Ingredient, error) {
	return nil, nil
}
func (emptyCatalog) FindProductByName(context.Context, string) (*entity.Product, error) {
	return nil, nil
}
func (emptyCatalog) FindProductById(context.Context, int64) (*entity.Product, error) { return nil, nil }
func (emptyCatalog) SearchProducts(context.Context, string, int) ([]*entity.Product, error) {
	return nil, nil
}
func (emptyCatalog) FindTables(context.Context, tools.TableFilter) ([]*entity.NutritionTable, error) {
	return nil, nil
}

// models hands out one scripted fake per credential and records the keys asked for.
type models struct {
	mu    sync.Mutex
	fakes map[string]*llmtest.Fake
	keys  []string
}

func (m *models) ForKey(key string) (*factory.ModelSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	f, ok := m.fakes[key]
	if !ok {
		return nil, errors.New("unknown key")
	}
	return &factory.ModelSet{Smart: f, Fast: f}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type failingStore struct{ *store.InMemoryStore }

func (failingStore) Save(context.Context, *store.Session) error {
	return errors.New("connection reset")
}

type harness struct {
	ctrl   *Controller
	memory store.MemoryStore
	models *models
	events *recordingPublisher
	cache  *fakeCache
}

type fakeCache struct {
	mu sync.Mutex
	m  map[store.Key]*store.Session
}

func (c *fakeCache) Save(s *store.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[s.Key] = s.Clone()
}

func (c *fakeCache) Get(k store.Key) (*store.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[k]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *fakeCache) Delete(k store.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, k)
}

func (c *fakeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func newHarness(t *testing.T, mem store.MemoryStore, fakes map[string]*llmtest.Fake) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	if mem == nil {
		mem = store.NewInMemoryStore()
	}

	registry := tools.NewRegistry(tools.IngredientFind(emptyCatalog{}), tools.ProductFind(emptyCatalog{}))
	dispatcher := specialist.NewDispatcher(log,
		specialist.NewData(registry, specialist.DefaultMaxToolCalls, log),
		specialist.NewEngineering(log),
	)

	h := &harness{
		memory: mem,
		models: &models{fakes: fakes},
		events: &recordingPublisher{},
		cache:  &fakeCache{m: make(map[store.Key]*store.Session)},
	}
	h.ctrl = NewController(Deps{
		Guardrail:   guardrail.NewStage(log),
		Router:      router.NewStage(log),
		Dispatcher:  dispatcher,
		Judge:       judge.NewStage(log),
		Memory:      mem,
		Cache:       h.cache,
		Credentials: credential.NewPool(nil, "primary-key", "reserve-key", log),
		Models:      h.models,
		Events:      h.events,
		Logger:      log,
	}, Config{HistoryLimit: 10})
	return h
}

func newKey() store.Key { return store.Key{UserID: uuid.New(), Chat: 1} }

func TestRun_RejectedInputSkipsDownstreamStages(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderGuardrail, inadmissible).
		Reply(constant.HeaderRouter, smallTalk).
		Reply(constant.HeaderJudge, approved)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": fake})
	key := newKey()

	result, err := h.ctrl.Run(context.Background(), key, "sua inútil")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "Vamos manter o respeito? Estou aqui para ajudar.", result.Answer)
	assert.Len(t, fake.Calls(""), 1)
	assert.Empty(t, fake.Calls(constant.HeaderRouter))
	assert.Empty(t, fake.Calls(constant.HeaderJudge))

	s, err := h.memory.Load(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, result.Answer, s.Messages[1].Content)
}

func TestRun_SmallTalkEndToEnd(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, smallTalk)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": fake})
	key := newKey()

	result, err := h.ctrl.Run(context.Background(), key, "Oi, tudo bem?")

	require.NoError(t, err)
	assert.Equal(t, "Oi! Tudo ótimo, e com você?", result.Answer)
	assert.Equal(t, "Oi, tudo bem?", result.Question)
	assert.Equal(t, schema.RouteSmallTalk, result.Route)
	assert.Equal(t, OutcomeSmallTalk, result.Outcome)
	assert.Empty(t, result.Specialists)
	assert.True(t, result.Persisted)
	assert.Equal(t, 1, result.Attempts)

	assert.Len(t, fake.Calls(constant.HeaderGuardrail), 1)
	assert.Len(t, fake.Calls(constant.HeaderRouter), 1)
	assert.Len(t, fake.Calls(""), 2, "no specialist or judge call")

	s, err := h.memory.Load(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, store.Message{Role: store.RoleUser, Content: "Oi, tudo bem?", CreatedAt: s.Messages[0].CreatedAt}, s.Messages[0])
	assert.Equal(t, result.Answer, s.Messages[1].Content)
	assert.NotEmpty(t, s.Raw)

	assert.Zero(t, h.cache.len(), "cache is evicted after persistence")
	assert.Equal(t, []string{constant.EventChatTurnCompleted}, h.events.types())
}

func TestRun_QuotaRetriesOnceWithReservedKey(t *testing.T) {
	throttled := llmtest.New().Fail(constant.HeaderGuardrail, &llm.QuotaError{Provider: "gemini", StatusCode: 429})
	healthy := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, smallTalk)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": throttled, "reserve-key": healthy})

	result, err := h.ctrl.Run(context.Background(), newKey(), "Oi, tudo bem?")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []string{"primary-key", "reserve-key"}, h.models.keys)
	assert.Len(t, throttled.Calls(""), 1)
	assert.Len(t, healthy.Calls(constant.HeaderGuardrail), 1, "the retry restarts at the guardrail")
}

func TestRun_QuotaInLaterStageRestartsWholeTurn(t *testing.T) {
	throttled := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, fullRoute).
		Reply(constant.HeaderData, dataAnswer).
		Reply(constant.HeaderEngineering, engAnswer).
		Fail(constant.HeaderJudge, &llm.QuotaError{Provider: "gemini", StatusCode: 429})
	healthy := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, fullRoute).
		Reply(constant.HeaderData, dataAnswer).
		Reply(constant.HeaderEngineering, engAnswer).
		Reply(constant.HeaderJudge, approved)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": throttled, "reserve-key": healthy})
	key := newKey()

	result, err := h.ctrl.Run(context.Background(), key, "Meu pão de queijo precisa de lupa?")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Len(t, healthy.Calls(constant.HeaderGuardrail), 1)
	assert.Equal(t, "data>engineering", result.Specialists)
	assert.Contains(t, result.Answer, "O Pão de queijo tem 290 mg de sódio por porção.")
	assert.Contains(t, result.Answer, "Abaixo de 600 mg/100 g não há lupa para sódio.")

	s, err := h.memory.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 2)
	inputs := 0
	for _, raw := range s.Raw {
		if raw.Stage == constant.StageGuardrail && raw.Role == llm.RoleUser {
			inputs++
		}
	}
	assert.Equal(t, 1, inputs, "the throttled attempt leaves no raw log behind")
}

func TestRun_SecondFailureIsFatal(t *testing.T) {
	quota := &llm.QuotaError{Provider: "gemini", StatusCode: 429}
	primary := llmtest.New().Fail(constant.HeaderGuardrail, quota)
	reserve := llmtest.New().Fail(constant.HeaderGuardrail, quota)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": primary, "reserve-key": reserve})
	key := newKey()

	_, err := h.ctrl.Run(context.Background(), key, "Oi")

	require.Error(t, err)
	assert.True(t, llm.IsQuota(err))
	assert.Equal(t, []string{"primary-key", "reserve-key"}, h.models.keys, "no third attempt")
	assert.Equal(t, []string{constant.EventChatTurnFailed}, h.events.types())

	s, err := h.memory.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, s.Messages)
}

func TestRun_ClassificationErrorIsNotRetried(t *testing.T) {
	fake := llmtest.New().Reply(constant.HeaderGuardrail, "acho que sim")
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": fake, "reserve-key": fake})

	_, err := h.ctrl.Run(context.Background(), newKey(), "Oi")

	assert.True(t, schema.IsClassification(err))
	assert.Equal(t, []string{"primary-key"}, h.models.keys)
}

func TestRun_AppendInvariantAndReload(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		On(constant.HeaderRouter, llmtest.Script(smallTalk,
			`{"route": "small_talk", "clarifying_question": "", "small_talk_reply": "Posso ajudar com rótulos."}`))
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": fake})
	key := newKey()
	ctx := context.Background()

	_, err := h.ctrl.Run(ctx, key, "Oi, tudo bem?")
	require.NoError(t, err)
	before, err := h.memory.Load(ctx, key)
	require.NoError(t, err)

	_, err = h.ctrl.Run(ctx, key, "O que você faz?")
	require.NoError(t, err)
	after, err := h.memory.Load(ctx, key)
	require.NoError(t, err)

	require.Len(t, after.Messages, len(before.Messages)+2)
	assert.Equal(t, before.Messages, after.Messages[:len(before.Messages)])
	assert.Equal(t, store.RoleUser, after.Messages[2].Role)
	assert.Equal(t, "O que você faz?", after.Messages[2].Content)
	assert.Equal(t, store.RoleAssistant, after.Messages[3].Role)
	assert.Equal(t, "Posso ajudar com rótulos.", after.Messages[3].Content)

	// The second turn saw the first exchange as history.
	second := fake.Calls(constant.HeaderGuardrail)[1].Messages
	var joined []string
	for _, m := range second {
		joined = append(joined, m.Content)
	}
	assert.Contains(t, strings.Join(joined, "\n"), "Oi! Tudo ótimo, e com você?")
}

func TestRun_UnknownIngredientAsksForClarification(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, dataRoute).
		Reply(constant.HeaderData, lunarCall).
		Reply(constant.HeaderJudge, approved)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": fake})

	result, err := h.ctrl.Run(context.Background(), newKey(), "Quantas calorias tem a farinha lunar?")

	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, result.Outcome)
	assert.Contains(t, result.Answer, `Não encontrei ingrediente "farinha lunar"`)
	assert.Len(t, fake.Calls(constant.HeaderData), 1)
	assert.Len(t, fake.Calls(constant.HeaderJudge), 1)
}

func TestRun_PersistenceFailureStillReturnsAnswer(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, smallTalk)
	h := newHarness(t, failingStore{store.NewInMemoryStore()}, map[string]*llmtest.Fake{"primary-key": fake})

	result, err := h.ctrl.Run(context.Background(), newKey(), "Oi, tudo bem?")

	require.Error(t, err)
	assert.True(t, schema.IsPersistence(err))
	require.NotNil(t, result)
	assert.False(t, result.Persisted)
	assert.Equal(t, "Oi! Tudo ótimo, e com você?", result.Answer)
}

func TestRun_EmptyInput(t *testing.T) {
	h := newHarness(t, nil, map[string]*llmtest.Fake{})

	_, err := h.ctrl.Run(context.Background(), newKey(), "   ")

	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, h.models.keys)
}

func TestRun_SameSessionTurnsDoNotLoseMessages(t *testing.T) {
	fake := llmtest.New().
		Reply(constant.HeaderGuardrail, admissible).
		Reply(constant.HeaderRouter, smallTalk)
	h := newHarness(t, nil, map[string]*llmtest.Fake{"primary-key": fake})
	key := newKey()

	const turns = 8
	var wg sync.WaitGroup
	errs := make(chan error, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.ctrl.Run(context.Background(), key, "Oi, tudo bem?")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := h.memory.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 2*turns)
	assert.Equal(t, int64(turns), s.Version)
}

// labelServer serves a label photo and a Gemini endpoint that throttles
// the primary key. It records the key of every scan request.
func labelServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var keys []string

	label, err := json.Marshal(`{"product_name": "Pão de queijo", "unit": "g", "portion": 50, "per_portion": {"sodio_mg": 290}}`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
			return
		}
		key := r.Header.Get("x-goog-api-key")
		mu.Lock()
		keys = append(keys, key)
		mu.Unlock()
		if key == "primary-key" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":` + string(label) + `}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), keys...)
	}
}

func TestRun_QuotaRetryMovesScannerToReservedKey(t *testing.T) {
	srv, scanKeys := labelServer(t)
	log := logger.NewNopLogger()
	pool := credential.NewPool(nil, "primary-key", "reserve-key", log)

	scanner := nutrition.NewGeminiScanner("gemini-2.0-flash", pool.Current)
	scanner.BaseURL = srv.URL
	registry := tools.NewRegistry(tools.TableScan(scanner))

	scanCall := `{"tool_call": {"name": "table_scan", "arguments": {"image_url": "` + srv.URL + `/label.png"}}}`
	newFake := func() *llmtest.Fake {
		return llmtest.New().
			Reply(constant.HeaderGuardrail, admissible).
			Reply(constant.HeaderRouter, dataRoute).
			On(constant.HeaderData, llmtest.Script(scanCall, dataAnswer)).
			Reply(constant.HeaderJudge, approved)
	}
	primary, reserve := newFake(), newFake()
	m := &models{fakes: map[string]*llmtest.Fake{"primary-key": primary, "reserve-key": reserve}}

	ctrl := NewController(Deps{
		Guardrail:   guardrail.NewStage(log),
		Router:      router.NewStage(log),
		Dispatcher:  specialist.NewDispatcher(log, specialist.NewData(registry, specialist.DefaultMaxToolCalls, log)),
		Judge:       judge.NewStage(log),
		Memory:      store.NewInMemoryStore(),
		Cache:       &fakeCache{m: make(map[store.Key]*store.Session)},
		Credentials: pool,
		Models:      m,
		Logger:      log,
	}, Config{HistoryLimit: 10})

	result, err := ctrl.Run(context.Background(), newKey(), "Leia a tabela desta foto")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []string{"primary-key", "reserve-key"}, m.keys)
	assert.Equal(t, []string{"primary-key", "reserve-key"}, scanKeys(), "the retried scan uses the reserved key")
	require.Len(t, reserve.Calls(constant.HeaderData), 2)
	assert.Contains(t, reserve.Calls(constant.HeaderData)[1].Input(), "Pão de queijo")
}
