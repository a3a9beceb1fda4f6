// Package claudecode runs operation descriptions against the Anthropic
// messages API with the computer-use and bash tools declared, and streams
// progress back to the caller as backend updates.
package claudecode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quailyquaily/petirbridge/backend"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-3-5-sonnet-20241022"
	apiVersion       = "2023-06-01"
	requestMaxTokens = 4096
)

type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	WorkDir string
	HTTP    *http.Client
}

func New(baseURL, apiKey, model, workDir string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if strings.TrimSpace(workDir) == "" {
		workDir = "."
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		WorkDir: workDir,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
	Tools     []any         `json:"tools"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Input   json.RawMessage `json:"input,omitempty"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

// Run issues one messages call for the operation and emits backend updates
// on the returned channel: status/progress while the call is in flight, then
// exactly one terminal update, then the channel closes. The sequence is
// single-pass; it is not restartable.
func (c *Client) Run(ctx context.Context, operation string) <-chan backend.Update {
	updates := make(chan backend.Update, 8)
	go func() {
		defer close(updates)

		emit := func(u backend.Update) bool {
			select {
			case updates <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if strings.TrimSpace(c.APIKey) == "" {
			emit(backend.Update{Kind: backend.UpdateResult, Err: fmt.Errorf("claude api key is missing: %w", backend.ErrNotConfigured)})
			return
		}

		if !emit(backend.Update{Kind: backend.UpdateStatus, Message: "preparing request"}) {
			return
		}
		if !emit(backend.Update{Kind: backend.UpdateStatus, Message: "calling Claude API"}) {
			return
		}

		raw, err := c.call(ctx, operation)
		if err != nil {
			emit(backend.Update{Kind: backend.UpdateResult, Err: err})
			return
		}

		if !emit(backend.Update{Kind: backend.UpdateProgress, Message: "processing response"}) {
			return
		}

		// The API reports no process exit; a normal return is always
		// surfaced as a zero return code, even when the extracted text
		// describes a failed operation.
		emit(backend.Update{
			Kind: backend.UpdateResult,
			Result: &backend.ExecResult{
				Stdout:     extractResultText(raw),
				Stderr:     "",
				ReturnCode: 0,
				Success:    true,
			},
		})
	}()
	return updates
}

func (c *Client) call(ctx context.Context, operation string) (*messagesResponse, error) {
	body := messagesRequest{
		Model:     c.Model,
		MaxTokens: requestMaxTokens,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: fmt.Sprintf("Please execute this operation in the directory %s: %s", c.WorkDir, operation),
			},
		},
		Tools: []any{
			map[string]any{
				"type":              "computer_20241022",
				"name":              "computer",
				"display_width_px":  1024,
				"display_height_px": 768,
				"display_number":    1,
			},
			map[string]any{
				"type": "bash_20241022",
				"name": "bash",
			},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("claude http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// extractResultText joins the text of all "text" blocks and the stringified
// payload of all "tool_use" blocks in response order.
func extractResultText(data *messagesResponse) string {
	if data == nil || len(data.Content) == 0 {
		return "No response content"
	}
	var parts []string
	for _, block := range data.Content {
		switch block.Type {
		case "text":
			parts = append(parts, block.Text)
		case "tool_use":
			if payload := stringifyRaw(block.Content); payload != "" {
				parts = append(parts, payload)
			} else if payload := stringifyRaw(block.Input); payload != "" {
				parts = append(parts, payload)
			}
		}
	}
	if len(parts) == 0 {
		return "Operation completed"
	}
	return strings.Join(parts, "\n")
}

func stringifyRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
