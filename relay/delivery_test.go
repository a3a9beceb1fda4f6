package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/quailyquaily/petirbridge/telegram"
)

type sentCall struct {
	chatID  any
	text    string
	replyTo int64
}

type editCall struct {
	chatID    int64
	messageID int64
	text      string
}

// fakeTransport replays scripted errors before succeeding. A nil entry in
// an error script means that attempt succeeds.
type fakeTransport struct {
	sendErrs []error
	editErrs []error

	sent   []sentCall
	edits  []editCall
	nextID int64
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID any, text string, replyTo int64) (*telegram.Message, error) {
	attempt := len(f.sent)
	f.sent = append(f.sent, sentCall{chatID: chatID, text: text, replyTo: replyTo})
	if attempt < len(f.sendErrs) && f.sendErrs[attempt] != nil {
		return nil, f.sendErrs[attempt]
	}
	f.nextID++
	id := chatID.(int64)
	return &telegram.Message{MessageID: f.nextID, Chat: &telegram.Chat{ID: id}}, nil
}

func (f *fakeTransport) EditMessageText(ctx context.Context, chatID, messageID int64, text string) (*telegram.Message, error) {
	attempt := len(f.edits)
	f.edits = append(f.edits, editCall{chatID: chatID, messageID: messageID, text: text})
	if attempt < len(f.editErrs) && f.editErrs[attempt] != nil {
		return nil, f.editErrs[attempt]
	}
	return &telegram.Message{MessageID: messageID, Chat: &telegram.Chat{ID: chatID}}, nil
}

func newTestDeliverer(transport Transport) (*Deliverer, *[]time.Duration) {
	var waits []time.Duration
	d := NewDeliverer(transport, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.sleep = func(dur time.Duration) { waits = append(waits, dur) }
	return d, &waits
}

func transientErr() error {
	return &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}
}

func TestSendReplyRetriesTransient(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{sendErrs: []error{transientErr(), transientErr(), nil}}
	d, waits := newTestDeliverer(transport)

	msg, err := d.SendReply(context.Background(), 42, 7, "hello")
	if err != nil {
		t.Fatalf("SendReply() error = %v", err)
	}
	if msg == nil || msg.Chat.ID != 42 {
		t.Fatalf("SendReply() message = %+v", msg)
	}
	if len(transport.sent) != 3 {
		t.Fatalf("attempts = %d, want 3", len(transport.sent))
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i, w := range want {
		if (*waits)[i] != w {
			t.Fatalf("waits[%d] = %v, want %v", i, (*waits)[i], w)
		}
	}
}

func TestSendReplyPropagatesAfterExhaustion(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{sendErrs: []error{transientErr(), transientErr(), transientErr()}}
	d, waits := newTestDeliverer(transport)

	if _, err := d.SendReply(context.Background(), 1, 0, "x"); err == nil {
		t.Fatal("SendReply() error = nil, want exhaustion error")
	}
	if len(transport.sent) != 3 {
		t.Fatalf("attempts = %d, want 3", len(transport.sent))
	}
	if len(*waits) != 2 {
		t.Fatalf("waits = %d, want 2", len(*waits))
	}
}

func TestSendReplyDoesNotRetryAPIErrors(t *testing.T) {
	t.Parallel()

	apiErr := &telegram.RequestError{StatusCode: 400, Description: "Bad Request: chat not found"}
	transport := &fakeTransport{sendErrs: []error{apiErr}}
	d, _ := newTestDeliverer(transport)

	_, err := d.SendReply(context.Background(), 1, 0, "x")
	if !errors.Is(err, apiErr) {
		t.Fatalf("SendReply() error = %v, want %v", err, apiErr)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("attempts = %d, want 1", len(transport.sent))
	}
}

func TestEditStatusNeverFails(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{editErrs: []error{transientErr(), transientErr(), transientErr()}}
	d, _ := newTestDeliverer(transport)

	status := &telegram.Message{MessageID: 9, Chat: &telegram.Chat{ID: 5}}
	if got := d.EditStatus(context.Background(), status, "still working"); got != nil {
		t.Fatalf("EditStatus() = %+v, want nil after exhaustion", got)
	}
	if len(transport.edits) != 3 {
		t.Fatalf("attempts = %d, want 3", len(transport.edits))
	}
}

func TestEditStatusNilHandle(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	d, _ := newTestDeliverer(transport)

	if got := d.EditStatus(context.Background(), nil, "x"); got != nil {
		t.Fatalf("EditStatus(nil) = %+v, want nil", got)
	}
	if len(transport.edits) != 0 {
		t.Fatalf("edits = %d, want 0", len(transport.edits))
	}
}
