package subscription

import (
	"sync"
	"testing"

	"github.com/KNICEX/crypto-scout/internal/service/monitor"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_SubscribeIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Subscribe(1, AllTracked())
	r.Subscribe(1, AllTracked())

	assert.Len(t, r.Scopes(1), 1)
}

func TestRegistry_MultiScopePerRecipient(t *testing.T) {
	r := NewRegistry()

	r.Subscribe(1, AllTracked())
	r.Subscribe(1, Single("bitcoin"))
	r.Subscribe(1, NewListings())

	assert.Len(t, r.Scopes(1), 3)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry()

	r.Subscribe(1, Single("bitcoin"))

	assert.True(t, r.Unsubscribe(1, Single("bitcoin")))
	assert.False(t, r.Unsubscribe(1, Single("bitcoin")))
	assert.False(t, r.Unsubscribe(2, AllTracked()))
	assert.Empty(t, r.Recipients())
}

func TestRegistry_UnsubscribeAll(t *testing.T) {
	r := NewRegistry()

	r.Subscribe(1, AllTracked())
	r.Subscribe(1, NewListings())
	r.Subscribe(2, AllTracked())

	r.UnsubscribeAll(1)

	assert.Empty(t, r.Scopes(1))
	assert.Equal(t, []int64{2}, r.Recipients())
}

func TestRegistry_ResolveScopeIsolation(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(1, AllTracked())
	r.Subscribe(2, Single("bitcoin"))
	r.Subscribe(3, NewListings())
	r.Subscribe(4, Single("ethereum"))

	results := []monitor.Result{
		{ID: "bitcoin", Class: monitor.AlertChanged},
		{ID: "newcoin", Class: monitor.AlertNew},
		{ID: "solana", Class: monitor.Unchanged},
	}

	deliveries := r.Resolve(results)

	// AllTracked 收到全部告警
	assert.Len(t, deliveries[1], 2)
	// Single(bitcoin) 只收 bitcoin, 收不到 ethereum/newcoin
	assert.Len(t, deliveries[2], 1)
	assert.Equal(t, "bitcoin", deliveries[2][0].ID)
	// NewListings 只收新币, 收不到已跟踪币种的变化
	assert.Len(t, deliveries[3], 1)
	assert.Equal(t, monitor.AlertNew, deliveries[3][0].Class)
	// Single(ethereum) 本轮没有对应告警
	assert.NotContains(t, deliveries, int64(4))
}

func TestRegistry_ResolveDeduplicatesOverlappingScopes(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(1, AllTracked())
	r.Subscribe(1, Single("bitcoin"))

	results := []monitor.Result{{ID: "bitcoin", Class: monitor.AlertChanged}}

	deliveries := r.Resolve(results)
	assert.Len(t, deliveries[1], 1)
}

func TestRegistry_ResolveNeverMatchesNonAlerts(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(1, AllTracked())

	results := []monitor.Result{
		{ID: "bitcoin", Class: monitor.Unchanged},
		{ID: "newcoin", Class: monitor.SuppressedDuplicate},
		{ID: "ethereum", Class: monitor.New},
	}

	assert.Empty(t, r.Resolve(results))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	results := []monitor.Result{{ID: "bitcoin", Class: monitor.AlertChanged}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(recipient int64) {
			defer wg.Done()
			r.Subscribe(recipient, AllTracked())
			r.Resolve(results)
			r.Unsubscribe(recipient, AllTracked())
		}(int64(i))
	}
	wg.Wait()

	assert.Empty(t, r.Recipients())
}
