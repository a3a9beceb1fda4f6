package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quailyquaily/petirbridge/backend"
	"github.com/quailyquaily/petirbridge/internal/outputfmt"
	"github.com/quailyquaily/petirbridge/telegram"
)

const (
	// textChunkLimit bounds fetch and answer replies; execChunkLimit
	// bounds code-execution output, which carries a longer label.
	textChunkLimit = 4000
	execChunkLimit = 3800

	truncationMark = "\n\n... (truncated)"
)

// Handlers dispatches inbound command invocations to the configured
// backends and relays their results through the deliverer. One Handlers
// value serves all chats; per-invocation state (the status message handle)
// lives on the stack of the handling call.
type Handlers struct {
	Deliverer *Deliverer
	Fetcher   backend.Fetcher
	Answerer  backend.Answerer
	Runner    backend.Runner
	Logger    *slog.Logger
}

// Dispatch routes one invocation to its handler. Unknown commands are
// ignored so the bot stays quiet in group chats it shares with other bots.
func (h *Handlers) Dispatch(ctx context.Context, inv Invocation) bool {
	switch inv.Command {
	case "fetch":
		h.HandleFetch(ctx, inv)
	case "deepseek":
		h.HandleDeepSeek(ctx, inv)
	case "claude":
		h.HandleClaude(ctx, inv)
	default:
		return false
	}
	return true
}

func (h *Handlers) HandleFetch(ctx context.Context, inv Invocation) {
	if len(inv.Args) == 0 {
		h.reply(ctx, inv, "Please provide a URL.\nUsage: /fetch <url>")
		return
	}
	url := inv.Args[0]

	if _, err := h.Deliverer.SendReply(ctx, inv.ChatID, inv.MessageID, fmt.Sprintf("Fetching content from: %s\n\nPlease wait...", url)); err != nil {
		h.logger().Error("fetch_announce_error", "chat_id", inv.ChatID, "error", err.Error())
		return
	}

	content, err := h.Fetcher.Fetch(ctx, url)
	if err != nil {
		h.logger().Error("fetch_error", "chat_id", inv.ChatID, "url", url, "error", err.Error())
		h.reply(ctx, inv, "Error fetching URL: "+outputfmt.FormatErrorForDisplay(err))
		return
	}

	if len(content) > textChunkLimit {
		content = content[:runeSafeCut(content, textChunkLimit)] + truncationMark
	}
	h.reply(ctx, inv, "Content:\n\n"+content)
}

func (h *Handlers) HandleDeepSeek(ctx context.Context, inv Invocation) {
	if len(inv.Args) == 0 {
		h.reply(ctx, inv, "Please provide a question.\nUsage: /deepseek <your question>")
		return
	}
	question := inv.Argument()

	status, err := h.Deliverer.SendReply(ctx, inv.ChatID, inv.MessageID, "🤔 DeepSeek is thinking...")
	if err != nil {
		h.logger().Error("deepseek_announce_error", "chat_id", inv.ChatID, "error", err.Error())
		return
	}

	h.Deliverer.EditStatus(ctx, status, "🤔 DeepSeek is working on your question...")

	answer, err := h.Answerer.Ask(ctx, question)
	switch {
	case errors.Is(err, backend.ErrNotConfigured):
		h.logger().Warn("deepseek_not_configured", "chat_id", inv.ChatID)
		h.Deliverer.EditStatus(ctx, status, "⚠️ DeepSeek API is not configured")
		h.reply(ctx, inv, "⚠️ DeepSeek API is not configured. Set deepseek.api_key (or DEEPSEEK_API_KEY) and restart the bot.")
		return
	case err != nil:
		h.logger().Error("deepseek_error", "chat_id", inv.ChatID, "error", err.Error())
		h.Deliverer.EditStatus(ctx, status, "❌ DeepSeek request failed")
		h.reply(ctx, inv, "❌ Error: "+outputfmt.FormatErrorForDisplay(err)+"\n\nPlease try again later.")
		return
	}

	h.Deliverer.EditStatus(ctx, status, "✅ DeepSeek answered")

	if len(answer) > textChunkLimit {
		for i, chunk := range chunkString(answer, textChunkLimit) {
			h.reply(ctx, inv, fmt.Sprintf("📝 Answer (part %d):\n\n%s", i+1, chunk))
		}
		return
	}
	h.reply(ctx, inv, "📝 Answer:\n\n"+answer)
}

const claudeUsage = "Please describe an operation.\n" +
	"Usage: /claude <operation>\n\n" +
	"Examples:\n" +
	"• /claude list the files in the current directory\n" +
	"• /claude create a file named test.txt\n" +
	"• /claude write a Python script that prints the Fibonacci sequence"

func (h *Handlers) HandleClaude(ctx context.Context, inv Invocation) {
	if len(inv.Args) == 0 {
		h.reply(ctx, inv, claudeUsage)
		return
	}
	operation := inv.Argument()

	status, err := h.Deliverer.SendReply(ctx, inv.ChatID, inv.MessageID, "💻 Claude Code is starting...")
	if err != nil {
		h.logger().Error("claude_announce_error", "chat_id", inv.ChatID, "error", err.Error())
		return
	}

	for upd := range h.Runner.Run(ctx, operation) {
		switch upd.Kind {
		case backend.UpdateStatus:
			h.Deliverer.EditStatus(ctx, status, "💻 "+upd.Message)
		case backend.UpdateProgress:
			h.Deliverer.EditStatus(ctx, status, "⚙️ "+upd.Message)
		case backend.UpdateResult:
			if upd.Err != nil {
				h.logger().Error("claude_error", "chat_id", inv.ChatID, "error", upd.Err.Error())
				h.Deliverer.EditStatus(ctx, status, "❌ Claude Code errored")
				h.reply(ctx, inv, "❌ Error: "+outputfmt.FormatErrorForDisplay(upd.Err))
				return
			}
			h.finishClaude(ctx, inv, status, upd.Result)
			return
		}
	}
	// The runner closed the stream without a terminal event, which only
	// happens when ctx was cancelled mid-run.
	h.logger().Warn("claude_stream_truncated", "chat_id", inv.ChatID)
}

func (h *Handlers) finishClaude(ctx context.Context, inv Invocation, status *telegram.Message, result *backend.ExecResult) {
	// Success is the adapter's verdict; return code is reported alongside
	// but does not override it.
	if result.Success {
		h.Deliverer.EditStatus(ctx, status, "✅ Claude Code finished")

		output := strings.TrimSpace(result.Stdout)
		if output == "" {
			output = "The operation succeeded with no output."
		}
		if len(output) > execChunkLimit {
			chunks := chunkString(output, execChunkLimit)
			for i, chunk := range chunks {
				h.reply(ctx, inv, fmt.Sprintf("📄 Output (part %d/%d):\n\n%s", i+1, len(chunks), chunk))
			}
			return
		}
		h.reply(ctx, inv, "📄 Output:\n\n"+output)
		return
	}

	h.Deliverer.EditStatus(ctx, status, "❌ Claude Code failed")

	errMsg := strings.TrimSpace(result.Stderr)
	if errMsg == "" {
		errMsg = strings.TrimSpace(result.Stdout)
	}
	if len(errMsg) > execChunkLimit {
		errMsg = errMsg[:runeSafeCut(errMsg, execChunkLimit)] + truncationMark
	}
	h.reply(ctx, inv, fmt.Sprintf("❌ Operation failed (exit code %d)\n\n%s", result.ReturnCode, errMsg))
}

// reply sends a final (non-status) message and logs delivery failure.
// By this point the handler has nothing further to do with the error.
func (h *Handlers) reply(ctx context.Context, inv Invocation, text string) {
	if _, err := h.Deliverer.SendReply(ctx, inv.ChatID, inv.MessageID, text); err != nil {
		h.logger().Error("telegram_reply_error", "chat_id", inv.ChatID, "command", inv.Command, "error", err.Error())
	}
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// chunkString splits s into consecutive pieces of at most size bytes,
// backing each cut up to a rune start so no UTF-8 sequence is torn.
// Concatenating the pieces restores s exactly.
func chunkString(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, (len(s)+size-1)/size)
	for len(s) > size {
		i := runeSafeCut(s, size)
		chunks = append(chunks, s[:i])
		s = s[i:]
	}
	return append(chunks, s)
}

// runeSafeCut returns the largest i <= max such that s[:i] ends on a rune
// boundary. It never returns 0 for max >= utf8.UTFMax, so chunking always
// makes progress.
func runeSafeCut(s string, max int) int {
	if len(s) <= max {
		return len(s)
	}
	i := max
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	if i == 0 {
		return max
	}
	return i
}
