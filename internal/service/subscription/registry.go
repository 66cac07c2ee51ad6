package subscription

import (
	"sync"

	"github.com/KNICEX/crypto-scout/internal/service/monitor"
	"github.com/samber/lo"
)

type ScopeKind string

const (
	KindAllTracked  ScopeKind = "all_tracked"
	KindSingle      ScopeKind = "single"
	KindNewListings ScopeKind = "new_listings"
)

// Scope 订阅范围, 可比较, 直接作为集合键
type Scope struct {
	Kind     ScopeKind
	EntityID string
}

func AllTracked() Scope {
	return Scope{Kind: KindAllTracked}
}

func Single(entityID string) Scope {
	return Scope{Kind: KindSingle, EntityID: entityID}
}

func NewListings() Scope {
	return Scope{Kind: KindNewListings}
}

func (s Scope) Matches(r monitor.Result) bool {
	switch s.Kind {
	case KindAllTracked:
		return r.IsAlert()
	case KindSingle:
		return r.ID == s.EntityID && r.IsAlert()
	case KindNewListings:
		return r.Class == monitor.AlertNew
	default:
		return false
	}
}

// Registry 接收者 -> 订阅范围集合。一个接收者可以同时持有多个范围。
// 订阅命令与轮询周期并发执行, 读多写少, 用读写锁保护。
type Registry struct {
	mu   sync.RWMutex
	subs map[int64]map[Scope]struct{}
}

var _ monitor.Resolver = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[int64]map[Scope]struct{}),
	}
}

// Subscribe 幂等, 重复订阅同一范围是 no-op
func (r *Registry) Subscribe(recipient int64, scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scopes, ok := r.subs[recipient]
	if !ok {
		scopes = make(map[Scope]struct{})
		r.subs[recipient] = scopes
	}
	scopes[scope] = struct{}{}
}

// Unsubscribe 返回是否真的移除了一条订阅
func (r *Registry) Unsubscribe(recipient int64, scope Scope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	scopes, ok := r.subs[recipient]
	if !ok {
		return false
	}
	if _, ok = scopes[scope]; !ok {
		return false
	}
	delete(scopes, scope)
	if len(scopes) == 0 {
		delete(r.subs, recipient)
	}
	return true
}

func (r *Registry) UnsubscribeAll(recipient int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, recipient)
}

func (r *Registry) Scopes(recipient int64) []Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.subs[recipient])
}

func (r *Registry) Recipients() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.subs)
}

// Resolve 在一次读锁内基于一致的订阅快照计算投递集合, 每个结果对同一接收者至多出现一次
func (r *Registry) Resolve(results []monitor.Result) map[int64][]monitor.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deliveries := make(map[int64][]monitor.Result)
	for _, res := range results {
		for recipient, scopes := range r.subs {
			for scope := range scopes {
				if scope.Matches(res) {
					deliveries[recipient] = append(deliveries[recipient], res)
					break
				}
			}
		}
	}
	return deliveries
}
