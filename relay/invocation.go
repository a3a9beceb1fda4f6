package relay

import (
	"strings"

	"github.com/quailyquaily/petirbridge/telegram"
)

// Invocation is one inbound slash command: the normalized command name,
// its argument tokens, and the chat/message it came from. It lives for
// the duration of a single dispatch and is never stored.
type Invocation struct {
	Command   string
	Args      []string
	ChatID    int64
	MessageID int64
}

// Argument joins the raw tokens back into the free-form argument string
// used by commands that take a sentence rather than a single token.
func (inv Invocation) Argument() string {
	return strings.Join(inv.Args, " ")
}

// ParseInvocation extracts a command invocation from an inbound message.
// It returns ok=false for non-command text and for "/cmd@OtherBot"
// mentions addressed to a different bot.
func ParseInvocation(msg *telegram.Message, botUsername string) (Invocation, bool) {
	if msg == nil || msg.Chat == nil {
		return Invocation{}, false
	}
	cmd, rest := splitCommand(msg.Text)
	cmd, mention := normalizeSlashCommand(cmd)
	if cmd == "" {
		return Invocation{}, false
	}
	if mention != "" && botUsername != "" && !strings.EqualFold(mention, botUsername) {
		return Invocation{}, false
	}
	return Invocation{
		Command:   cmd,
		Args:      strings.Fields(rest),
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}, true
}

func splitCommand(text string) (cmd string, rest string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	i := strings.IndexAny(text, " \n\t")
	if i == -1 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}

func normalizeSlashCommand(cmd string) (name string, mention string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || !strings.HasPrefix(cmd, "/") {
		return "", ""
	}
	// Allow "/cmd@BotName" variants by splitting off the mention.
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		mention = cmd[at+1:]
		cmd = cmd[:at]
	}
	if cmd == "/" {
		return "", ""
	}
	return strings.ToLower(strings.TrimPrefix(cmd, "/")), mention
}
