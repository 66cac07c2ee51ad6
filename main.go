package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KNICEX/crypto-scout/internal/repo"
	"github.com/KNICEX/crypto-scout/internal/schedule"
	"github.com/KNICEX/crypto-scout/internal/service/command"
	"github.com/KNICEX/crypto-scout/internal/service/dispatch"
	"github.com/KNICEX/crypto-scout/internal/service/market"
	"github.com/KNICEX/crypto-scout/internal/service/monitor"
	"github.com/KNICEX/crypto-scout/internal/service/subscription"
	"github.com/KNICEX/crypto-scout/ioc"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

type monitorConfig struct {
	Interval     int      `mapstructure:"interval"` // 秒
	ThresholdUSD string   `mapstructure:"threshold_usd"`
	Epsilon      string   `mapstructure:"epsilon"`
	Tracked      []string `mapstructure:"tracked"`
	TopN         int      `mapstructure:"top_n"`
	Source       string   `mapstructure:"source"` // coingecko(默认) | binance
}

// loadMonitorConfig 配置非法直接终止进程, 不带病启动
func loadMonitorConfig() (monitorConfig, decimal.Decimal, decimal.Decimal) {
	var cfg monitorConfig
	if err := viper.UnmarshalKey("monitor", &cfg); err != nil {
		panic(err)
	}
	if cfg.Interval <= 0 {
		panic("monitor.interval must be positive")
	}
	threshold, err := decimal.NewFromString(cfg.ThresholdUSD)
	if err != nil || !threshold.IsPositive() {
		panic(fmt.Sprintf("invalid monitor.threshold_usd %q", cfg.ThresholdUSD))
	}
	epsilon, err := decimal.NewFromString(cfg.Epsilon)
	if err != nil || epsilon.IsNegative() {
		panic(fmt.Sprintf("invalid monitor.epsilon %q", cfg.Epsilon))
	}
	if len(cfg.Tracked) == 0 && cfg.TopN <= 0 {
		panic("set monitor.tracked and/or monitor.top_n")
	}
	return cfg, threshold, epsilon
}

func main() {
	initViper()
	cfg, threshold, epsilon := loadMonitorConfig()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	alertRepo := repo.NewAlertRepo(db)

	gecko := ioc.InitCoinGecko()
	var trackedSource market.Source = gecko
	if cfg.Source == "binance" {
		trackedSource = ioc.InitBinanceSource()
	}

	tg := ioc.InitTelegram()
	registry := subscription.NewRegistry()
	dispatcher := dispatch.NewDispatcher(tg, dispatch.WithAlertRepo(alertRepo))

	interval := time.Duration(cfg.Interval) * time.Second
	ctx := context.Background()

	var schedulers []*schedule.Scheduler

	if len(cfg.Tracked) > 0 {
		trackedTask := monitor.NewWatchTask(
			"tracked assets watch",
			trackedSource,
			market.Query{Mode: market.QueryFixedIDs, IDs: cfg.Tracked},
			monitor.NewDetector(monitor.Config{Epsilon: epsilon}),
			registry,
			dispatcher,
		)
		schedulers = append(schedulers, schedule.NewScheduler(schedule.Config{Interval: interval}, trackedTask))
	}

	lowCapQuery := market.Query{Mode: market.QueryLowCapAscending, Limit: cfg.TopN}
	var listingSched *schedule.Scheduler
	if cfg.TopN > 0 {
		listingTask := monitor.NewWatchTask(
			"low cap listing watch",
			gecko,
			lowCapQuery,
			monitor.NewDetector(monitor.Config{ListingMode: true, Threshold: threshold, Epsilon: epsilon}),
			registry,
			dispatcher,
		)
		listingSched = schedule.NewScheduler(schedule.Config{Interval: interval}, listingTask)
		schedulers = append(schedulers, listingSched)
	}

	for _, s := range schedulers {
		s.Start(ctx)
	}

	var trigger command.Trigger = noopTrigger{}
	if listingSched != nil {
		trigger = listingSched
	}
	commands := command.NewTelegramHandler(tg, registry, trigger, gecko, lowCapQuery, threshold)
	commands.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := commands.Stop(shutdownCtx); err != nil {
		slog.Error("command handler stop timeout", "error", err)
	}
	for _, s := range schedulers {
		if err := s.Stop(shutdownCtx); err != nil {
			slog.Error("scheduler stop timeout", "error", err)
		}
	}
}

type noopTrigger struct{}

func (noopTrigger) TriggerNow() {}
