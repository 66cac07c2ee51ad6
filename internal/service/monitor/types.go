package monitor

import (
	"context"

	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/shopspring/decimal"
)

type Classification string

const (
	// New 首次观测, 无基线可比, 不告警
	New Classification = "new"
	// AlertNew 新上榜低市值币种, 首次且仅此一次告警
	AlertNew Classification = "alert_new"
	// SuppressedDuplicate 已经作为新币告警过, 去重抑制
	SuppressedDuplicate Classification = "suppressed_duplicate"
	AlertChanged        Classification = "alert_changed"
	Unchanged           Classification = "unchanged"
)

type Field string

const (
	FieldMarketCap Field = "market_cap"
	FieldVolume    Field = "volume"
)

type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

type FieldChange struct {
	Field     Field
	Old       decimal.Decimal
	New       decimal.Decimal
	Direction Direction
}

// Result 单个币种在一轮检测中的分类结果
type Result struct {
	ID      string
	Class   Classification
	Obs     market.Observation
	Prev    market.Observation
	Changes []FieldChange
}

func (r Result) IsAlert() bool {
	return r.Class == AlertNew || r.Class == AlertChanged
}

// Resolver 根据当前订阅关系计算每个接收者应收到的结果
type Resolver interface {
	Resolve(results []Result) map[int64][]Result
}

type Dispatcher interface {
	Dispatch(ctx context.Context, deliveries map[int64][]Result)
}
