package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/crypto-scout/internal/entity"
	"github.com/KNICEX/crypto-scout/internal/repo"
	"github.com/KNICEX/crypto-scout/internal/service/monitor"
	"github.com/KNICEX/crypto-scout/internal/service/notification"
)

const (
	defaultConcurrency = 8
	defaultSendTimeout = 10 * time.Second
)

var _ monitor.Dispatcher = (*Dispatcher)(nil)

// Dispatcher 并发扇出告警, 单个接收者失败只记录日志, 不影响其他投递, 当轮不重试
type Dispatcher struct {
	transport   notification.Transport
	alertRepo   repo.AlertRepo
	concurrency int
	sendTimeout time.Duration
}

type Option func(d *Dispatcher)

// WithAlertRepo 开启告警留痕, 写库失败不阻塞投递
func WithAlertRepo(alertRepo repo.AlertRepo) Option {
	return func(d *Dispatcher) {
		d.alertRepo = alertRepo
	}
}

func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.concurrency = n
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.sendTimeout = timeout
	}
}

func NewDispatcher(transport notification.Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport:   transport,
		concurrency: defaultConcurrency,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch 每条结果单独成一条消息, 全部投递结束后才返回
func (d *Dispatcher) Dispatch(ctx context.Context, deliveries map[int64][]monitor.Result) {
	type job struct {
		recipient int64
		res       monitor.Result
	}

	var jobs []job
	for recipient, results := range deliveries {
		for _, res := range results {
			jobs = append(jobs, job{recipient: recipient, res: res})
		}
	}
	if len(jobs) == 0 {
		return
	}

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	var sent, failed atomic.Int64

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text := FormatResult(j.res)

			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()
			ref, err := d.transport.Send(sendCtx, j.recipient, text)
			if err != nil {
				failed.Add(1)
				slog.Error("alert delivery failed", "recipient", j.recipient, "entity", j.res.ID, "error", err)
				return
			}
			sent.Add(1)

			if d.alertRepo == nil {
				return
			}
			_, err = d.alertRepo.Create(ctx, entity.AlertRecord{
				Recipient: j.recipient,
				EntityID:  j.res.ID,
				Kind:      string(j.res.Class),
				Message:   text,
				MessageID: int64(ref),
				CreatedAt: time.Now(),
			})
			if err != nil {
				slog.Error("fail to record alert", "recipient", j.recipient, "entity", j.res.ID, "error", err)
			}
		}(j)
	}
	wg.Wait()

	slog.Info("dispatch finished", "deliveries", len(jobs), "sent", sent.Load(), "failed", failed.Load())
}
