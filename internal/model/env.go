package model

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

const (
	EnvTelegramToken = "DFSWATCH_TELEGRAM_TOKEN"
	EnvTelegramChat  = "DFSWATCH_TELEGRAM_CHAT"

	DefaultTelegramBaseURL = "https://api.telegram.org"

	envBotToken = "TELEGRAM_BOT_TOKEN"
)

// ApplyEnv overrides secrets and the default chat from the environment.
// Environment has a precedence over the config file. A Telegram section is
// created when a token is found in the environment only.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	if err := v.BindEnv("telegram.token", EnvTelegramToken, envBotToken); err != nil {
		return err
	}
	if err := v.BindEnv("telegram.chat", EnvTelegramChat); err != nil {
		return err
	}

	if token := v.GetString("telegram.token"); token != "" {
		if cfg.Telegram == nil {
			cfg.Telegram = &Telegram{
				Enabled: true,
				BaseURL: DefaultTelegramBaseURL,
			}
		}
		cfg.Telegram.Token = token
	}

	if raw := v.GetString("telegram.chat"); raw != "" {
		chat, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTelegramChat, err)
		}
		if cfg.Telegram == nil {
			return fmt.Errorf("%s set, but telegram is not configured", EnvTelegramChat)
		}
		cfg.Telegram.Chat = &chat
	}
	return nil
}
