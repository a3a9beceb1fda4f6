package outputfmt

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeErrorTextRemovesHostAndRedactsKey(t *testing.T) {
	in := `Post "https://api.deepseek.com/chat/completions?api_key=sk-test-secret": context deadline exceeded`
	out := SanitizeErrorText(in)
	if strings.Contains(out, "api.deepseek.com") {
		t.Fatalf("host should be removed, got %q", out)
	}
	if strings.Contains(out, "sk-test-secret") {
		t.Fatalf("key value should be redacted, got %q", out)
	}
	if !strings.Contains(out, "/chat/completions?") {
		t.Fatalf("path should be kept, got %q", out)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	if got := FormatErrorForDisplay(nil); got != "" {
		t.Fatalf("nil error should format as empty string, got %q", got)
	}
	err := errors.New(`fetch https://example.com/page?token=abc failed: bad gateway`)
	got := FormatErrorForDisplay(err)
	if strings.Contains(got, "example.com") {
		t.Fatalf("host should be removed, got %q", got)
	}
	if !strings.Contains(got, "/page?token=%5Bredacted%5D") {
		t.Fatalf("query should be kept with redacted token, got %q", got)
	}
	if !strings.Contains(got, "bad gateway") {
		t.Fatalf("non-url text should be kept, got %q", got)
	}
}

func TestSanitizeErrorTextPlainText(t *testing.T) {
	in := "deepseek http 500: internal error"
	if got := SanitizeErrorText(in); got != in {
		t.Fatalf("plain text should pass through, got %q", got)
	}
}
