package monitor

import (
	"github.com/KNICEX/crypto-scout/internal/service/market"
)

// Store 每个币种最近一次接受的观测, 仅由检测循环单线程读写, 无需加锁
type Store struct {
	entries map[string]market.Observation
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]market.Observation),
	}
}

func (s *Store) Get(id string) (market.Observation, bool) {
	obs, ok := s.entries[id]
	return obs, ok
}

// Put 无条件覆盖, 快照永远对齐最近一轮, 与是否告警无关
func (s *Store) Put(obs market.Observation) {
	s.entries[obs.ID] = obs
}

func (s *Store) Len() int {
	return len(s.entries)
}

// SeenSet 新币告警去重账本, 进程生命周期内只增不减
type SeenSet struct {
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{
		ids: make(map[string]struct{}),
	}
}

func (s *SeenSet) Add(id string) {
	s.ids[id] = struct{}{}
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Len() int {
	return len(s.ids)
}
