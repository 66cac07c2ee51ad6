package monitor

import (
	"context"
	"log/slog"

	"github.com/KNICEX/crypto-scout/internal/schedule"
	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/samber/lo"
)

// WatchTask 一轮完整的 fetch -> detect -> resolve -> dispatch
type WatchTask struct {
	name       string
	source     market.Source
	query      market.Query
	detector   *Detector
	resolver   Resolver
	dispatcher Dispatcher
}

func NewWatchTask(name string, source market.Source, query market.Query,
	detector *Detector, resolver Resolver, dispatcher Dispatcher) schedule.Task {
	return &WatchTask{
		name:       name,
		source:     source,
		query:      query,
		detector:   detector,
		resolver:   resolver,
		dispatcher: dispatcher,
	}
}

func (t *WatchTask) Run(ctx context.Context) error {
	obs, err := t.source.Fetch(ctx, t.query)
	if err != nil {
		// 拉取失败整轮跳过, 不触碰快照状态, 下一轮照常
		return err
	}

	results := t.detector.DetectBatch(obs)

	alerts := lo.CountBy(results, func(r Result) bool {
		return r.IsAlert()
	})
	slog.Info("detect cycle finished", "task", t.name, "observed", len(obs), "alerts", alerts)
	if alerts == 0 {
		return nil
	}

	deliveries := t.resolver.Resolve(results)
	if len(deliveries) == 0 {
		return nil
	}
	t.dispatcher.Dispatch(ctx, deliveries)
	return nil
}

func (t *WatchTask) Name() string {
	return t.name
}
