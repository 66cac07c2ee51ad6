package ioc

import (
	binanceapi "github.com/adshao/go-binance/v2"
	"github.com/spf13/viper"

	"github.com/KNICEX/crypto-scout/internal/service/market/binance"
)

// InitBinanceSource 备用行情源, 只读公开行情, api key 可以为空
func InitBinanceSource() *binance.Service {
	type Config struct {
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("cex.binance", &cfg); err != nil {
		panic(err)
	}

	cli := binanceapi.NewClient(cfg.ApiKey, cfg.ApiSecret)
	return binance.NewService(cli)
}
