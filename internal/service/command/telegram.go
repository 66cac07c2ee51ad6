package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/KNICEX/crypto-scout/internal/service/notification"
	"github.com/KNICEX/crypto-scout/internal/service/notification/telegram"
	"github.com/KNICEX/crypto-scout/internal/service/subscription"
	"github.com/KNICEX/crypto-scout/pkg/decimalx"
	"github.com/shopspring/decimal"
)

const helpText = "Commands:\n" +
	"/start - Welcome message\n" +
	"/subscribe - Alerts for all tracked coins\n" +
	"/subscribe <coin-id> - Alerts for one coin\n" +
	"/subscribe new - New low-cap listing alerts\n" +
	"/unsubscribe [<coin-id>|new|all] - Stop alerts\n" +
	"/lowcap - Crypto under the market-cap threshold"

// Trigger 请求一次带外轮询
type Trigger interface {
	TriggerNow()
}

// TelegramHandler 把用户指令翻译成注册表/调度器调用, 纯粘合层
type TelegramHandler struct {
	api         *telegram.Service
	registry    *subscription.Registry
	lowCapPoll  Trigger
	source      market.Source
	lowCapQuery market.Query
	threshold   decimal.Decimal

	offset int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelegramHandler(api *telegram.Service, registry *subscription.Registry, lowCapPoll Trigger,
	source market.Source, lowCapQuery market.Query, threshold decimal.Decimal) *TelegramHandler {
	return &TelegramHandler{
		api:         api,
		registry:    registry,
		lowCapPoll:  lowCapPoll,
		source:      source,
		lowCapQuery: lowCapQuery,
		threshold:   threshold,
	}
}

func (h *TelegramHandler) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(1)
	go h.run()

	slog.Info("telegram command handler started")
}

func (h *TelegramHandler) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("telegram command handler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *TelegramHandler) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		default:
		}

		updates, err := h.api.Updates(h.ctx, h.offset+1, 30)
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			slog.Error("fail to poll telegram updates", "error", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, u := range updates {
			h.offset = u.UpdateID
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			h.handle(h.ctx, u.Message.Chat.ID, u.Message.Text)
		}
	}
}

func (h *TelegramHandler) handle(ctx context.Context, chatID int64, text string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/start":
		h.registry.Subscribe(chatID, subscription.AllTracked())
		h.reply(ctx, chatID, "Welcome! You are now subscribed to market cap/volume alerts.")
	case "/help":
		h.reply(ctx, chatID, helpText)
	case "/subscribe":
		h.subscribe(ctx, chatID, arg)
	case "/unsubscribe":
		h.unsubscribe(ctx, chatID, arg)
	case "/lowcap":
		h.lowCap(ctx, chatID)
	default:
		h.reply(ctx, chatID, "I'm here! Use /lowcap to get small-cap crypto info, /help for commands.")
	}
}

func (h *TelegramHandler) subscribe(ctx context.Context, chatID int64, arg string) {
	switch arg {
	case "":
		h.registry.Subscribe(chatID, subscription.AllTracked())
		h.reply(ctx, chatID, "You are now subscribed to updates.")
	case "new":
		h.registry.Subscribe(chatID, subscription.NewListings())
		h.reply(ctx, chatID, "You are now subscribed to new low-cap listing alerts.")
	default:
		h.registry.Subscribe(chatID, subscription.Single(arg))
		h.reply(ctx, chatID, fmt.Sprintf("You are now subscribed to %s updates.", arg))
	}
}

func (h *TelegramHandler) unsubscribe(ctx context.Context, chatID int64, arg string) {
	switch arg {
	case "", "all":
		h.registry.UnsubscribeAll(chatID)
		h.reply(ctx, chatID, "You have been unsubscribed.")
	case "new":
		if h.registry.Unsubscribe(chatID, subscription.NewListings()) {
			h.reply(ctx, chatID, "New listing alerts disabled.")
		} else {
			h.reply(ctx, chatID, "You are not subscribed.")
		}
	default:
		if h.registry.Unsubscribe(chatID, subscription.Single(arg)) {
			h.reply(ctx, chatID, fmt.Sprintf("Unsubscribed from %s.", arg))
		} else {
			h.reply(ctx, chatID, "You are not subscribed.")
		}
	}
}

// lowCap 即时响应一次按需查询, 同时请求一轮带外监控周期
func (h *TelegramHandler) lowCap(ctx context.Context, chatID int64) {
	h.lowCapPoll.TriggerNow()

	ref, err := h.api.Send(ctx, chatID, "Fetching low-cap listings...")
	if err != nil {
		slog.Error("fail to reply lowcap placeholder", "recipient", chatID, "error", err)
		return
	}

	obs, err := h.source.Fetch(ctx, h.lowCapQuery)
	if err != nil {
		h.edit(ctx, chatID, ref, "Market data is unavailable right now, try again later.")
		return
	}

	filtered := market.FilterBelowCap(obs, h.threshold)
	if len(filtered) == 0 {
		h.edit(ctx, chatID, ref, fmt.Sprintf("No coins under $%s mcap found right now.", decimalx.Comma(h.threshold)))
		return
	}

	parts := make([]string, 0, len(filtered))
	for _, o := range filtered {
		parts = append(parts, fmt.Sprintf("%s (%s)\nPrice: $%s\nMarket Cap: $%s",
			o.Name, o.Symbol, decimalx.Comma(o.Price), decimalx.Comma(o.MarketCap)))
	}
	h.edit(ctx, chatID, ref, strings.Join(parts, "\n\n"))
}

func (h *TelegramHandler) reply(ctx context.Context, chatID int64, text string) {
	if _, err := h.api.Send(ctx, chatID, text); err != nil {
		slog.Error("fail to reply command", "recipient", chatID, "error", err)
	}
}

func (h *TelegramHandler) edit(ctx context.Context, chatID int64, ref notification.MessageRef, text string) {
	if err := h.api.Edit(ctx, chatID, ref, text); err != nil {
		slog.Error("fail to edit reply", "recipient", chatID, "error", err)
	}
}
