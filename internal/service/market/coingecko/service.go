package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com"

var _ market.Source = (*Service)(nil)

type Service struct {
	baseURL    string
	vsCurrency string
	cli        *http.Client
}

type Option func(s *Service)

func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(cli *http.Client) Option {
	return func(s *Service) {
		s.cli = cli
	}
}

func NewService(opts ...Option) *Service {
	svc := &Service{
		baseURL:    defaultBaseURL,
		vsCurrency: "usd",
		cli: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// coinMarket /coins/markets 返回的单个币种, 数值字段用 json.Number 避免浮点误差
type coinMarket struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Name         string      `json:"name"`
	CurrentPrice json.Number `json:"current_price"`
	MarketCap    json.Number `json:"market_cap"`
	TotalVolume  json.Number `json:"total_volume"`
}

func (s *Service) Fetch(ctx context.Context, query market.Query) ([]market.Observation, error) {
	req, err := s.buildRequest(ctx, query)
	if err != nil {
		return nil, &market.FetchError{Kind: market.FetchErrSchema, Op: "build request", Err: err}
	}

	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, &market.FetchError{Kind: classifyTransportErr(err), Op: "coins/markets", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &market.FetchError{
			Kind: market.FetchErrNetwork,
			Op:   "coins/markets",
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var coins []coinMarket
	if err = dec.Decode(&coins); err != nil {
		return nil, &market.FetchError{Kind: market.FetchErrSchema, Op: "coins/markets", Err: err}
	}

	now := time.Now()
	obs := make([]market.Observation, 0, len(coins))
	for _, c := range coins {
		o, err := c.toObservation(now)
		if err != nil {
			return nil, &market.FetchError{Kind: market.FetchErrSchema, Op: "coins/markets", Err: err}
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func (s *Service) buildRequest(ctx context.Context, query market.Query) (*http.Request, error) {
	params := url.Values{}
	params.Set("vs_currency", s.vsCurrency)

	switch query.Mode {
	case market.QueryFixedIDs:
		if len(query.IDs) == 0 {
			return nil, errors.New("fixed ids query without ids")
		}
		params.Set("ids", strings.Join(query.IDs, ","))
	case market.QueryLowCapAscending:
		limit := query.Limit
		if limit <= 0 {
			limit = 10
		}
		params.Set("order", "market_cap_asc")
		params.Set("per_page", strconv.Itoa(limit))
		params.Set("page", "1")
	default:
		return nil, fmt.Errorf("unknown query mode %q", query.Mode)
	}

	u := fmt.Sprintf("%s/api/v3/coins/markets?%s", s.baseURL, params.Encode())
	return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
}

func (c coinMarket) toObservation(at time.Time) (market.Observation, error) {
	price, err := parseNumber(c.CurrentPrice)
	if err != nil {
		return market.Observation{}, fmt.Errorf("coin %s current_price: %w", c.ID, err)
	}
	mcap, err := parseNumber(c.MarketCap)
	if err != nil {
		return market.Observation{}, fmt.Errorf("coin %s market_cap: %w", c.ID, err)
	}
	volume, err := parseNumber(c.TotalVolume)
	if err != nil {
		return market.Observation{}, fmt.Errorf("coin %s total_volume: %w", c.ID, err)
	}
	return market.Observation{
		ID:         c.ID,
		Name:       c.Name,
		Symbol:     strings.ToUpper(c.Symbol),
		Price:      price,
		MarketCap:  mcap,
		Volume:     volume,
		ObservedAt: at,
	}, nil
}

// parseNumber null 市值按零处理, 由检测侧的阈值过滤剔除
func parseNumber(n json.Number) (decimal.Decimal, error) {
	if n.String() == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}

func classifyTransportErr(err error) market.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return market.FetchErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return market.FetchErrTimeout
	}
	return market.FetchErrNetwork
}
