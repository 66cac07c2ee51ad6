package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ market.Source = (*Service)(nil)

// coingecko 风格 id -> 币安 base, 追踪列表两种写法都认
var idToBase = map[string]string{
	"bitcoin":          "BTC",
	"ethereum":         "ETH",
	"solana":           "SOL",
	"ripple":           "XRP",
	"binancecoin":      "BNB",
	"cardano":          "ADA",
	"dogecoin":         "DOGE",
	"polkadot":         "DOT",
	"litecoin":         "LTC",
	"chainlink":        "LINK",
	"tron":             "TRX",
	"avalanche-2":      "AVAX",
	"uniswap":          "UNI",
	"cosmos":           "ATOM",
	"near":             "NEAR",
	"aptos":            "APT",
	"arbitrum":         "ARB",
	"optimism":         "OP",
	"sui":              "SUI",
	"the-open-network": "TON",
}

// Service 基于币安24h行情的备用数据源, 只支持固定币种模式, 不提供市值
type Service struct {
	cli   *binance.Client
	quote string
}

func NewService(cli *binance.Client) *Service {
	return &Service{
		cli:   cli,
		quote: "USDT",
	}
}

func (s *Service) Fetch(ctx context.Context, query market.Query) ([]market.Observation, error) {
	if query.Mode != market.QueryFixedIDs {
		return nil, &market.FetchError{
			Kind: market.FetchErrSchema,
			Op:   "ticker/24hr",
			Err:  fmt.Errorf("query mode %q not supported by binance source", query.Mode),
		}
	}
	if len(query.IDs) == 0 {
		return nil, &market.FetchError{
			Kind: market.FetchErrSchema,
			Op:   "ticker/24hr",
			Err:  errors.New("fixed ids query without ids"),
		}
	}

	stats, err := s.cli.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		kind := market.FetchErrNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			kind = market.FetchErrTimeout
		}
		return nil, &market.FetchError{Kind: kind, Op: "ticker/24hr", Err: err}
	}

	wanted := lo.SliceToMap(query.IDs, func(id string) (string, string) {
		return s.toSymbol(id), id
	})

	now := time.Now()
	matched := make(map[string]struct{}, len(query.IDs))
	obs := make([]market.Observation, 0, len(query.IDs))
	for _, st := range stats {
		id, ok := wanted[st.Symbol]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(st.LastPrice)
		if err != nil {
			slog.Error("fail to parse binance last price", "symbol", st.Symbol, "price", st.LastPrice, "error", err)
			return nil, &market.FetchError{Kind: market.FetchErrSchema, Op: "ticker/24hr", Err: err}
		}
		volume, err := decimal.NewFromString(st.QuoteVolume)
		if err != nil {
			slog.Error("fail to parse binance quote volume", "symbol", st.Symbol, "volume", st.QuoteVolume, "error", err)
			return nil, &market.FetchError{Kind: market.FetchErrSchema, Op: "ticker/24hr", Err: err}
		}
		matched[id] = struct{}{}
		obs = append(obs, market.Observation{
			ID:         id,
			Name:       strings.TrimSuffix(st.Symbol, s.quote),
			Symbol:     strings.TrimSuffix(st.Symbol, s.quote),
			Price:      price,
			Volume:     volume,
			ObservedAt: now,
		})
	}

	// 配置里的 id 在交易所不存在不能无声吞掉
	missing := lo.Reject(query.IDs, func(id string, _ int) bool {
		_, ok := matched[id]
		return ok
	})
	if len(obs) == 0 {
		return nil, &market.FetchError{
			Kind: market.FetchErrSchema,
			Op:   "ticker/24hr",
			Err:  fmt.Errorf("none of the requested ids matched binance 24h stats: %s", strings.Join(missing, ",")),
		}
	}
	if len(missing) > 0 {
		slog.Warn("some requested ids missing from binance 24h stats", "ids", missing)
	}
	return obs, nil
}

// toSymbol bitcoin/BTC/BTCUSDT 均归一为 BTCUSDT
func (s *Service) toSymbol(id string) string {
	base, ok := idToBase[strings.ToLower(id)]
	if !ok {
		base = strings.ToUpper(id)
	}
	if strings.HasSuffix(base, s.quote) {
		return base
	}
	return base + s.quote
}
