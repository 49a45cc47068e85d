package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-tldr-bot/internal/models"
)

type fakeGateway struct {
	mu       sync.Mutex
	messages []models.RawMessage
	listErr  error
	users    map[string]*models.SlackUser
	// delays lets a test force lookups to complete out of order
	delays map[string]time.Duration
}

func (g *fakeGateway) ListMessages(ctx context.Context, channelID string, sinceEpoch int64, limit int) ([]models.RawMessage, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.messages, nil
}

func (g *fakeGateway) ResolveUser(ctx context.Context, userID string) (*models.SlackUser, error) {
	if d, ok := g.delays[userID]; ok {
		time.Sleep(d)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	user, ok := g.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	return user, nil
}

func newTestPipeline(gw Gateway, failOpen bool) *Pipeline {
	return NewPipeline(gw, 1000, failOpen, zerolog.Nop())
}

func TestCollect_EmptyChannel(t *testing.T) {
	p := newTestPipeline(&fakeGateway{}, true)

	res, err := p.Collect(context.Background(), "C1", 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !res.Empty() {
		t.Fatal("want empty result for empty channel")
	}
	if len(res.Messages) != 0 {
		t.Fatalf("want no messages, got %d", len(res.Messages))
	}
}

func TestCollect_FetchFailureFailOpen(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("slack is down")}
	p := newTestPipeline(gw, true)

	res, err := p.Collect(context.Background(), "C1", 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !res.Empty() {
		t.Fatal("fail-open fetch failure must look like an empty range")
	}
}

func TestCollect_FetchFailurePropagates(t *testing.T) {
	gw := &fakeGateway{listErr: errors.New("slack is down")}
	p := newTestPipeline(gw, false)

	if _, err := p.Collect(context.Background(), "C1", 0); err == nil {
		t.Fatal("want error when fail-open is disabled")
	}
}

func TestCollect_OrderPreservedUnderConcurrency(t *testing.T) {
	// Lookup for B resolves before A, and C fails entirely.
	// Output must still be [A, B] in arrival order.
	gw := &fakeGateway{
		messages: []models.RawMessage{
			{UserID: "UA", Text: "first", Timestamp: "1.000100"},
			{UserID: "UB", Text: "second", Timestamp: "2.000200"},
			{UserID: "UC", Text: "third", Timestamp: "3.000300"},
		},
		users: map[string]*models.SlackUser{
			"UA": {ID: "UA", Name: "alice", RealName: "Alice"},
			"UB": {ID: "UB", Name: "bob"},
		},
		delays: map[string]time.Duration{
			"UA": 50 * time.Millisecond,
		},
	}
	p := newTestPipeline(gw, true)

	res, err := p.Collect(context.Background(), "C1", 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Empty() {
		t.Fatal("result should not be empty")
	}
	if res.RawCount != 3 {
		t.Fatalf("RawCount: want 3, got %d", res.RawCount)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("want 2 surviving messages, got %d", len(res.Messages))
	}
	if res.Messages[0].Text != "first" || res.Messages[1].Text != "second" {
		t.Fatalf("order not preserved: %q, %q", res.Messages[0].Text, res.Messages[1].Text)
	}
	if res.Messages[0].DisplayName != "Alice" {
		t.Fatalf("real name preferred: want Alice, got %q", res.Messages[0].DisplayName)
	}
	if res.Messages[1].DisplayName != "bob" {
		t.Fatalf("username fallback: want bob, got %q", res.Messages[1].DisplayName)
	}
}

func TestCollect_AuthorlessMessagesDropped(t *testing.T) {
	gw := &fakeGateway{
		messages: []models.RawMessage{
			{UserID: "", Text: "bot noise", Timestamp: "1.000100"},
			{UserID: "UA", Text: "human", Timestamp: "2.000200"},
		},
		users: map[string]*models.SlackUser{
			"UA": {ID: "UA", Name: "alice"},
		},
	}
	p := newTestPipeline(gw, true)

	res, err := p.Collect(context.Background(), "C1", 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Text != "human" {
		t.Fatalf("want only the attributed message, got %+v", res.Messages)
	}
}

func TestCollect_AllFilteredIsNotEmpty(t *testing.T) {
	// Every message dropped is still distinct from an empty raw batch
	gw := &fakeGateway{
		messages: []models.RawMessage{
			{UserID: "UX", Text: "ghost", Timestamp: "1.000100"},
		},
		users: map[string]*models.SlackUser{},
	}
	p := newTestPipeline(gw, true)

	res, err := p.Collect(context.Background(), "C1", 0)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Empty() {
		t.Fatal("filtered-to-zero must not report as an empty range")
	}
	if len(res.Messages) != 0 {
		t.Fatalf("want zero surviving messages, got %d", len(res.Messages))
	}
}
