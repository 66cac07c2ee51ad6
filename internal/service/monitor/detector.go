package monitor

import (
	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Epsilon 变化小于等于该值视为无变化, 过滤行情抖动
	Epsilon decimal.Decimal
	// ListingMode 新上榜模式: 只报首次出现的低市值币种, 不报增量变化
	ListingMode bool
	// Threshold 市值阈值, 仅 ListingMode 下生效, 达到或超过的币种整体忽略
	Threshold decimal.Decimal
}

type Detector struct {
	cfg   Config
	store *Store
	seen  *SeenSet
}

func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:   cfg,
		store: NewStore(),
		seen:  NewSeenSet(),
	}
}

// DetectBatch 对一轮完整观测做分类, 并无条件刷新快照。首次观测只入库不告警。
func (d *Detector) DetectBatch(obs []market.Observation) []Result {
	if d.cfg.ListingMode {
		// 阈值过滤在分类之前, 高于阈值的币种不入库、不告警、不占用去重名额
		obs = market.FilterBelowCap(obs, d.cfg.Threshold)
	}

	results := make([]Result, 0, len(obs))
	for _, o := range obs {
		results = append(results, d.detectOne(o))
	}
	return results
}

func (d *Detector) detectOne(o market.Observation) Result {
	prev, ok := d.store.Get(o.ID)
	defer d.store.Put(o)

	if d.cfg.ListingMode {
		if d.seen.Has(o.ID) {
			return Result{ID: o.ID, Class: SuppressedDuplicate, Obs: o, Prev: prev}
		}
		d.seen.Add(o.ID)
		return Result{ID: o.ID, Class: AlertNew, Obs: o, Prev: prev}
	}

	if !ok {
		return Result{ID: o.ID, Class: New, Obs: o}
	}

	changes := d.compare(prev, o)
	if len(changes) == 0 {
		return Result{ID: o.ID, Class: Unchanged, Obs: o, Prev: prev}
	}
	return Result{ID: o.ID, Class: AlertChanged, Obs: o, Prev: prev, Changes: changes}
}

func (d *Detector) compare(prev, cur market.Observation) []FieldChange {
	var changes []FieldChange
	if c, ok := d.fieldChange(FieldMarketCap, prev.MarketCap, cur.MarketCap); ok {
		changes = append(changes, c)
	}
	if c, ok := d.fieldChange(FieldVolume, prev.Volume, cur.Volume); ok {
		changes = append(changes, c)
	}
	return changes
}

// fieldChange 增量绝对值严格大于 epsilon 才算变化
func (d *Detector) fieldChange(field Field, old, cur decimal.Decimal) (FieldChange, bool) {
	delta := cur.Sub(old)
	if delta.Abs().LessThanOrEqual(d.cfg.Epsilon) {
		return FieldChange{}, false
	}
	dir := Increase
	if delta.IsNegative() {
		dir = Decrease
	}
	return FieldChange{Field: field, Old: old, New: cur, Direction: dir}, true
}
