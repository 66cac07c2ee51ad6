package market

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Observation 某币种单次轮询的市场快照
type Observation struct {
	ID         string
	Name       string
	Symbol     string
	Price      decimal.Decimal
	MarketCap  decimal.Decimal
	Volume     decimal.Decimal
	ObservedAt time.Time
}

type QueryMode string

const (
	// QueryFixedIDs 按固定币种列表查询
	QueryFixedIDs QueryMode = "fixed_ids"
	// QueryLowCapAscending 按市值升序取前N个
	QueryLowCapAscending QueryMode = "low_cap_ascending"
)

type Query struct {
	Mode  QueryMode
	IDs   []string
	Limit int
}

type FetchErrorKind string

const (
	FetchErrNetwork FetchErrorKind = "network"
	FetchErrTimeout FetchErrorKind = "timeout"
	FetchErrSchema  FetchErrorKind = "schema"
)

// FetchError 行情拉取失败, 调用方应整体跳过本轮, 不得使用部分数据
type FetchError struct {
	Kind FetchErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("market fetch %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Source interface {
	Fetch(ctx context.Context, query Query) ([]Observation, error)
}

// FilterBelowCap 留下市值严格小于阈值的币种, 零市值(数据缺失)一并剔除
func FilterBelowCap(obs []Observation, threshold decimal.Decimal) []Observation {
	return lo.Filter(obs, func(o Observation, _ int) bool {
		return o.MarketCap.IsPositive() && o.MarketCap.LessThan(threshold)
	})
}
