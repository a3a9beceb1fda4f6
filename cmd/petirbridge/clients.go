package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/petirbridge/providers/claudecode"
	"github.com/quailyquaily/petirbridge/providers/deepseek"
	"github.com/quailyquaily/petirbridge/providers/webfetch"
	"github.com/quailyquaily/petirbridge/relay"
	"github.com/quailyquaily/petirbridge/telegram"
	"github.com/quailyquaily/petirbridge/tools"
	tgtools "github.com/quailyquaily/petirbridge/tools/telegram"
	"github.com/spf13/viper"
)

func telegramClientFromToken(token string) (*telegram.Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("missing telegram.bot_token (set via config or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
	}
	return telegram.NewClient(nil, viper.GetString("telegram.base_url"), token), nil
}

func telegramClientFromViper() (*telegram.Client, error) {
	return telegramClientFromToken(viper.GetString("telegram.bot_token"))
}

func handlersFromViper(client *telegram.Client, logger *slog.Logger) *relay.Handlers {
	return &relay.Handlers{
		Deliverer: relay.NewDeliverer(client, logger),
		Fetcher: webfetch.New(
			viper.GetDuration("fetch.timeout"),
			viper.GetInt64("fetch.max_bytes"),
			viper.GetString("fetch.user_agent"),
		),
		Answerer: deepseek.New(
			viper.GetString("deepseek.base_url"),
			viper.GetString("deepseek.api_key"),
			viper.GetString("deepseek.model"),
			viper.GetDuration("deepseek.timeout"),
		),
		Runner: claudecode.New(
			viper.GetString("claude.base_url"),
			viper.GetString("claude.api_key"),
			viper.GetString("claude.model"),
			viper.GetString("claude.work_dir"),
			viper.GetDuration("claude.timeout"),
		),
		Logger: logger,
	}
}

// toolRegistry builds the fixed facade tool set. A nil api is fine for
// listing; executing a tool requires a real transport.
func toolRegistry(api tgtools.API) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tgtools.NewSendMessageTool(api))
	reg.Register(tgtools.NewGetUpdatesTool(api))
	return reg
}

func allowedChatIDsFromViper() map[int64]bool {
	ids := viper.GetIntSlice("telegram.allowed_chat_ids")
	if len(ids) == 0 {
		return nil
	}
	allowed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		allowed[int64(id)] = true
	}
	return allowed
}
