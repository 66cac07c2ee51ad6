package command

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/KNICEX/crypto-scout/internal/service/notification/telegram"
	"github.com/KNICEX/crypto-scout/internal/service/subscription"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// botAPIStub 记录 sendMessage/editMessageText 调用
type botAPIStub struct {
	mu    sync.Mutex
	sent  []string
	edits []string
}

func (s *botAPIStub) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		text, _ := payload["text"].(string)

		s.mu.Lock()
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			s.sent = append(s.sent, text)
		}
		if strings.HasSuffix(r.URL.Path, "/editMessageText") {
			s.edits = append(s.edits, text)
		}
		s.mu.Unlock()

		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":9}}`))
	}))
}

type stubSource struct {
	obs []market.Observation
	err error
}

func (s *stubSource) Fetch(ctx context.Context, query market.Query) ([]market.Observation, error) {
	return s.obs, s.err
}

type countTrigger struct {
	n int
}

func (t *countTrigger) TriggerNow() {
	t.n++
}

func newTestHandler(t *testing.T, stub *botAPIStub, source market.Source, trigger Trigger) (*TelegramHandler, *subscription.Registry) {
	t.Helper()
	ts := stub.server()
	t.Cleanup(ts.Close)

	registry := subscription.NewRegistry()
	api := telegram.NewService("tok", telegram.WithBaseURL(ts.URL))
	h := NewTelegramHandler(api, registry, trigger, source,
		market.Query{Mode: market.QueryLowCapAscending, Limit: 10}, decimal.NewFromInt(200000))
	return h, registry
}

func TestHandler_StartSubscribes(t *testing.T) {
	stub := &botAPIStub{}
	h, registry := newTestHandler(t, stub, &stubSource{}, &countTrigger{})

	h.handle(context.Background(), 42, "/start")

	assert.Contains(t, registry.Scopes(42), subscription.AllTracked())
	assert.Len(t, stub.sent, 1)
	assert.Contains(t, stub.sent[0], "subscribed")
}

func TestHandler_SubscribeVariants(t *testing.T) {
	stub := &botAPIStub{}
	h, registry := newTestHandler(t, stub, &stubSource{}, &countTrigger{})

	h.handle(context.Background(), 42, "/subscribe")
	h.handle(context.Background(), 42, "/subscribe bitcoin")
	h.handle(context.Background(), 42, "/subscribe new")

	scopes := registry.Scopes(42)
	assert.Contains(t, scopes, subscription.AllTracked())
	assert.Contains(t, scopes, subscription.Single("bitcoin"))
	assert.Contains(t, scopes, subscription.NewListings())
}

func TestHandler_Unsubscribe(t *testing.T) {
	stub := &botAPIStub{}
	h, registry := newTestHandler(t, stub, &stubSource{}, &countTrigger{})

	registry.Subscribe(42, subscription.Single("bitcoin"))
	registry.Subscribe(42, subscription.NewListings())

	h.handle(context.Background(), 42, "/unsubscribe bitcoin")
	assert.NotContains(t, registry.Scopes(42), subscription.Single("bitcoin"))

	h.handle(context.Background(), 42, "/unsubscribe")
	assert.Empty(t, registry.Scopes(42))

	// 未订阅时告知而不是报错
	h.handle(context.Background(), 42, "/unsubscribe ethereum")
	assert.Contains(t, stub.sent[len(stub.sent)-1], "not subscribed")
}

func TestHandler_LowCap(t *testing.T) {
	stub := &botAPIStub{}
	trigger := &countTrigger{}
	source := &stubSource{obs: []market.Observation{
		{ID: "tinycoin", Name: "TinyCoin", Symbol: "TINY",
			Price: decimal.RequireFromString("0.0042"), MarketCap: decimal.NewFromInt(52500)},
		{ID: "bigcoin", Name: "BigCoin", Symbol: "BIG",
			Price: decimal.NewFromInt(10), MarketCap: decimal.NewFromInt(500000)},
	}}
	h, _ := newTestHandler(t, stub, source, trigger)

	h.handle(context.Background(), 42, "/lowcap")

	assert.Equal(t, 1, trigger.n)
	// 占位消息 + 原地编辑为结果
	assert.Len(t, stub.sent, 1)
	assert.Len(t, stub.edits, 1)
	assert.Contains(t, stub.edits[0], "TinyCoin (TINY)")
	assert.Contains(t, stub.edits[0], "Market Cap: $52,500")
	assert.NotContains(t, stub.edits[0], "BigCoin")
}

func TestHandler_LowCapEmpty(t *testing.T) {
	stub := &botAPIStub{}
	h, _ := newTestHandler(t, stub, &stubSource{}, &countTrigger{})

	h.handle(context.Background(), 42, "/lowcap")

	assert.Len(t, stub.edits, 1)
	assert.Contains(t, stub.edits[0], "No coins under $200,000")
}

func TestHandler_EchoFallback(t *testing.T) {
	stub := &botAPIStub{}
	h, _ := newTestHandler(t, stub, &stubSource{}, &countTrigger{})

	h.handle(context.Background(), 42, "what do I do")

	assert.Len(t, stub.sent, 1)
	assert.Contains(t, stub.sent[0], "/lowcap")
}
