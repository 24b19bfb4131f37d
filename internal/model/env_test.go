package model_test

import (
	"testing"

	"github.com/CZERTAINLY/dfswatch/internal/model"
	"github.com/stretchr/testify/require"
)

// can't be parallel as it touches the environment

func TestApplyEnv(t *testing.T) {
	t.Run("token creates telegram section", func(t *testing.T) {
		t.Setenv(model.EnvTelegramToken, "")
		t.Setenv("TELEGRAM_BOT_TOKEN", "fallback")
		t.Setenv(model.EnvTelegramChat, "")

		cfg := model.DefaultConfig()
		require.NoError(t, model.ApplyEnv(&cfg))
		require.NotNil(t, cfg.Telegram)
		require.True(t, cfg.Telegram.Enabled)
		require.Equal(t, "fallback", cfg.Telegram.Token)
		require.Equal(t, model.DefaultTelegramBaseURL, cfg.Telegram.BaseURL)
		require.Nil(t, cfg.Telegram.Chat)
	})

	t.Run("precedence", func(t *testing.T) {
		t.Setenv(model.EnvTelegramToken, "primary")
		t.Setenv("TELEGRAM_BOT_TOKEN", "fallback")
		t.Setenv(model.EnvTelegramChat, "-100200")

		cfg := model.DefaultConfig()
		cfg.Telegram = &model.Telegram{Enabled: true, Token: "from-file", BaseURL: "http://localhost"}
		require.NoError(t, model.ApplyEnv(&cfg))
		require.Equal(t, "primary", cfg.Telegram.Token)
		require.Equal(t, "http://localhost", cfg.Telegram.BaseURL)
		require.NotNil(t, cfg.Telegram.Chat)
		require.Equal(t, int64(-100200), *cfg.Telegram.Chat)
	})

	t.Run("bad chat", func(t *testing.T) {
		t.Setenv(model.EnvTelegramToken, "primary")
		t.Setenv(model.EnvTelegramChat, "general")

		cfg := model.DefaultConfig()
		err := model.ApplyEnv(&cfg)
		require.Error(t, err)
		require.ErrorContains(t, err, model.EnvTelegramChat)
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv(model.EnvTelegramToken, "")
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv(model.EnvTelegramChat, "")

		cfg := model.DefaultConfig()
		require.NoError(t, model.ApplyEnv(&cfg))
		require.Nil(t, cfg.Telegram)
	})
}
