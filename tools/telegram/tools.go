package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tg "github.com/quailyquaily/petirbridge/telegram"
)

// API is the slice of the bot transport the tools write through. Tool
// calls go straight to the transport; the command-handler retry and
// chunking layer is not involved.
type API interface {
	SendMessage(ctx context.Context, chatID any, text string, replyTo int64) (*tg.Message, error)
	GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]tg.Update, int64, error)
}

const defaultUpdateLimit = 10

type SendMessageTool struct {
	api API
}

type GetUpdatesTool struct {
	api API
}

func NewSendMessageTool(api API) *SendMessageTool {
	return &SendMessageTool{api: api}
}

func NewGetUpdatesTool(api API) *GetUpdatesTool {
	return &GetUpdatesTool{api: api}
}

func (t *SendMessageTool) Name() string { return "send_telegram_message" }

func (t *SendMessageTool) Description() string {
	return "Send a message to a Telegram chat"
}

func (t *SendMessageTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"chat_id": map[string]any{
				"type":        "string",
				"description": "Telegram chat ID or username (e.g., '@myautomaticagentbot')",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "Message text to send",
			},
		},
		"required": []string{"chat_id", "text"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *SendMessageTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	chatID, _ := params["chat_id"].(string)
	text, _ := params["text"].(string)
	if strings.TrimSpace(chatID) == "" || text == "" {
		return "", fmt.Errorf("chat_id and text are required")
	}

	msg, err := t.api.SendMessage(ctx, normalizeChatID(chatID), text, 0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Message sent successfully!\nChat ID: %d\nMessage ID: %d", msg.Chat.ID, msg.MessageID), nil
}

// normalizeChatID passes "@username" targets through as strings and
// converts numeric IDs so the wire request carries a JSON number.
func normalizeChatID(raw string) any {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id
	}
	return raw
}

func (t *GetUpdatesTool) Name() string { return "get_telegram_updates" }

func (t *GetUpdatesTool) Description() string {
	return "Get recent messages from Telegram bot"
}

func (t *GetUpdatesTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{
				"type":        "number",
				"description": "Number of updates to retrieve (default: 10)",
				"default":     defaultUpdateLimit,
			},
		},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *GetUpdatesTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	limit := defaultUpdateLimit
	switch v := params["limit"].(type) {
	case float64:
		if v > 0 {
			limit = int(v)
		}
	case int:
		if v > 0 {
			limit = v
		}
	}

	updates, _, err := t.api.GetUpdates(ctx, 0, limit, 0)
	if err != nil {
		return "", err
	}
	if len(updates) > limit {
		updates = updates[len(updates)-limit:]
	}

	var b strings.Builder
	b.WriteString("Recent messages:\n\n")
	found := false
	for _, upd := range updates {
		msg := upd.Message
		if msg == nil {
			continue
		}
		found = true
		firstName, username := "", ""
		if msg.From != nil {
			firstName = msg.From.FirstName
			username = msg.From.Username
		}
		var chatID int64
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		fmt.Fprintf(&b, "From: %s (@%s)\n", firstName, username)
		fmt.Fprintf(&b, "Chat ID: %d\n", chatID)
		fmt.Fprintf(&b, "Text: %s\n", msg.Text)
		fmt.Fprintf(&b, "Date: %s\n\n", time.Unix(msg.Date, 0).UTC().Format("2006-01-02 15:04:05"))
	}
	if !found {
		return "No recent messages", nil
	}
	return b.String(), nil
}
