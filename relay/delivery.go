package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/quailyquaily/petirbridge/internal/retryutil"
	"github.com/quailyquaily/petirbridge/telegram"
)

// Transport is the slice of the bot API the relay writes through. The
// concrete client is injected at startup; handlers never construct one.
type Transport interface {
	SendMessage(ctx context.Context, chatID any, text string, replyTo int64) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) (*telegram.Message, error)
}

const sendMaxAttempts = 3

// Deliverer wraps the transport's send and edit calls with transient-error
// retry. Waits between attempts grow as baseDelay * 2^attempt.
type Deliverer struct {
	transport Transport
	logger    *slog.Logger
	baseDelay time.Duration
	sleep     func(time.Duration)
}

func NewDeliverer(transport Transport, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{
		transport: transport,
		logger:    logger,
		baseDelay: time.Second,
		sleep:     time.Sleep,
	}
}

// SendReply sends text into chatID as a reply to replyTo (0 for a plain
// message), retrying transient transport failures. Once attempts are
// exhausted the final error is returned to the caller: a reply that never
// went out means the command itself failed.
func (d *Deliverer) SendReply(ctx context.Context, chatID, replyTo int64, text string) (*telegram.Message, error) {
	var sent *telegram.Message
	err := retryutil.Do(ctx, d.retryOptions("telegram_send"), func(ctx context.Context) error {
		msg, err := d.transport.SendMessage(ctx, chatID, text, replyTo)
		if err != nil {
			return err
		}
		sent = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sent, nil
}

// EditStatus rewrites a previously sent status message. Unlike SendReply
// it never reports failure: a status edit that cannot land is logged and
// dropped so the surrounding handler keeps going. A nil status handle is
// a no-op.
func (d *Deliverer) EditStatus(ctx context.Context, status *telegram.Message, text string) *telegram.Message {
	if status == nil || status.Chat == nil {
		return nil
	}
	var edited *telegram.Message
	err := retryutil.Do(ctx, d.retryOptions("telegram_edit"), func(ctx context.Context) error {
		msg, err := d.transport.EditMessageText(ctx, status.Chat.ID, status.MessageID, text)
		if err != nil {
			return err
		}
		edited = msg
		return nil
	})
	if err != nil {
		d.logger.Warn("telegram_edit_dropped", "chat_id", status.Chat.ID, "message_id", status.MessageID, "error", err.Error())
		return nil
	}
	return edited
}

func (d *Deliverer) retryOptions(name string) retryutil.Options {
	return retryutil.Options{
		Name:        name,
		MaxAttempts: sendMaxAttempts,
		BaseDelay:   d.baseDelay,
		Logger:      d.logger,
		Retryable:   telegram.IsTransient,
		Sleep:       d.sleep,
	}
}
