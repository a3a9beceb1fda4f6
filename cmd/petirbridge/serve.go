package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/quailyquaily/petirbridge/internal/logutil"
	"github.com/quailyquaily/petirbridge/internal/worker"
	"github.com/quailyquaily/petirbridge/relay"
	"github.com/quailyquaily/petirbridge/telegram"
	"github.com/spf13/cobra"
)

const (
	defaultPollTimeout = 50 * time.Second
	pollBatchLimit     = 100
	pollErrorSleep     = time.Second

	// maxConcurrentJobs caps handler work across all chats. Each chat
	// still runs its own commands strictly in order.
	maxConcurrentJobs = 4
	chatQueueDepth    = 16
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge: poll Telegram and dispatch commands to backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	cmd.Flags().String("bot-token", "", "Telegram bot token (overrides telegram.bot_token).")
	cmd.Flags().Duration("poll-timeout", defaultPollTimeout, "Long-poll timeout for getUpdates.")
	return cmd
}

type job struct {
	inv           relay.Invocation
	correlationID string
}

func runServe(cmd *cobra.Command) error {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	client, err := telegramClientFromToken(flagOrViperString(cmd, "bot-token", "telegram.bot_token"))
	if err != nil {
		return err
	}
	pollTimeout := flagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout")
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	allowed := allowedChatIDsFromViper()
	handlers := handlersFromViper(client, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := client.GetMe(ctx)
	if err != nil {
		return err
	}
	logger.Info("bridge_start", "bot_username", me.Username, "poll_timeout", pollTimeout.String(), "allowed_chats", len(allowed))

	sem := make(chan struct{}, maxConcurrentJobs)
	chatJobs := make(map[int64]chan job)
	jobsFor := func(chatID int64) chan job {
		if ch, ok := chatJobs[chatID]; ok {
			return ch
		}
		ch := make(chan job, chatQueueDepth)
		chatJobs[chatID] = ch
		worker.Start(worker.StartOptions[job]{
			Ctx:  ctx,
			Sem:  sem,
			Jobs: ch,
			Handle: func(ctx context.Context, j job) {
				h := *handlers
				h.Logger = logger.With("correlation_id", j.correlationID, "command", j.inv.Command, "chat_id", j.inv.ChatID)
				started := time.Now()
				h.Dispatch(ctx, j.inv)
				h.Logger.Info("relay_command_done", "elapsed", time.Since(started).String())
			},
		})
		return ch
	}

	var offset int64
	for {
		if ctx.Err() != nil {
			logger.Info("bridge_stop")
			return nil
		}

		updates, next, err := client.GetUpdates(ctx, offset, pollBatchLimit, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("bridge_stop")
				return nil
			}
			if telegram.IsPollTimeout(err) {
				continue
			}
			logger.Warn("telegram_get_updates_error", "error", err.Error())
			time.Sleep(pollErrorSleep)
			continue
		}
		offset = next

		for _, upd := range updates {
			inv, ok := relay.ParseInvocation(upd.Message, me.Username)
			if !ok {
				continue
			}
			if len(allowed) > 0 && !allowed[inv.ChatID] {
				logger.Debug("telegram_chat_ignored", "chat_id", inv.ChatID)
				continue
			}
			j := job{inv: inv, correlationID: uuid.NewString()}
			logger.Info("relay_command", "correlation_id", j.correlationID, "command", inv.Command, "chat_id", inv.ChatID, "args", len(inv.Args))
			if err := worker.Enqueue(ctx, jobsFor(inv.ChatID), j); err != nil {
				logger.Info("bridge_stop")
				return nil
			}
		}
	}
}
