package ioc

import (
	"github.com/KNICEX/crypto-scout/internal/service/notification/telegram"
	"github.com/spf13/viper"
)

func InitTelegram() *telegram.Service {
	type Config struct {
		Token   string `mapstructure:"token"`
		BaseURL string `mapstructure:"base_url"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("telegram", &cfg); err != nil {
		panic(err)
	}
	if cfg.Token == "" {
		panic("no telegram bot token set")
	}

	var opts []telegram.Option
	if cfg.BaseURL != "" {
		opts = append(opts, telegram.WithBaseURL(cfg.BaseURL))
	}
	return telegram.NewService(cfg.Token, opts...)
}
