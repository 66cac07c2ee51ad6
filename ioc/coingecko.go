package ioc

import (
	"github.com/KNICEX/crypto-scout/internal/service/market/coingecko"
	"github.com/spf13/viper"
)

func InitCoinGecko() *coingecko.Service {
	type Config struct {
		BaseURL string `mapstructure:"base_url"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("coingecko", &cfg); err != nil {
		panic(err)
	}

	var opts []coingecko.Option
	if cfg.BaseURL != "" {
		opts = append(opts, coingecko.WithBaseURL(cfg.BaseURL))
	}
	return coingecko.NewService(opts...)
}
