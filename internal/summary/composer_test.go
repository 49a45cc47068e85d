package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-tldr-bot/internal/models"
)

type fakeCompleter struct {
	response     string
	err          error
	calls        int
	systemPrompt string
	userPrompt   string
	maxTokens    int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.calls++
	f.systemPrompt = systemPrompt
	f.userPrompt = userPrompt
	f.maxTokens = maxTokens
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var requester = &models.SlackUser{ID: "U999", Name: "carol", RealName: "Carol"}

func TestCompose_EmptyTranscriptFailsFast(t *testing.T) {
	fake := &fakeCompleter{response: "should never happen"}
	c := NewComposer(fake, 1000, zerolog.Nop())

	_, err := c.Compose(context.Background(), nil, requester)
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("want ErrEmptyTranscript, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatal("model must not be invoked for an empty transcript")
	}
}

func TestCompose_PromptShape(t *testing.T) {
	fake := &fakeCompleter{response: "A summary."}
	c := NewComposer(fake, 1000, zerolog.Nop())

	msgs := []models.EnrichedMessage{
		{DisplayName: "Alice", UserID: "U123", Text: "deploy is done"},
		{DisplayName: "Bob", UserID: "U456", Text: "thanks Alice"},
	}
	if _, err := c.Compose(context.Background(), msgs, requester); err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !strings.Contains(fake.userPrompt, "[Alice]: deploy is done\n[Bob]: thanks Alice") {
		t.Fatalf("transcript lines missing or misjoined:\n%s", fake.userPrompt)
	}
	if !strings.Contains(fake.userPrompt, "The user Carol has requested") {
		t.Fatalf("requester name missing from user prompt:\n%s", fake.userPrompt)
	}
	if !strings.Contains(fake.userPrompt, "<SLACK MESSAGES>") || !strings.Contains(fake.userPrompt, "</SLACK MESSAGES>") {
		t.Fatalf("transcript delimiters missing:\n%s", fake.userPrompt)
	}
	if !strings.Contains(fake.systemPrompt, "no bullet points") {
		t.Fatalf("system prompt missing format constraint:\n%s", fake.systemPrompt)
	}
	if fake.maxTokens != 1000 {
		t.Fatalf("maxTokens: want 1000, got %d", fake.maxTokens)
	}
}

func TestCompose_CompletionFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("quota exceeded")}
	c := NewComposer(fake, 1000, zerolog.Nop())

	msgs := []models.EnrichedMessage{{DisplayName: "Alice", UserID: "U123", Text: "hi"}}
	if _, err := c.Compose(context.Background(), msgs, requester); err == nil {
		t.Fatal("want error when completion fails")
	}
}

func TestSubstituteMentions_WholeWordCaseInsensitive(t *testing.T) {
	msgs := []models.EnrichedMessage{
		{DisplayName: "Alice", UserID: "U123", Text: "hi"},
	}

	got := substituteMentions("alice will follow up. Alice agreed.", msgs)
	want := "<@U123> will follow up. <@U123> agreed."
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSubstituteMentions_NoFalseMatchInsideWords(t *testing.T) {
	msgs := []models.EnrichedMessage{
		{DisplayName: "Alice", UserID: "U123", Text: "hi"},
	}

	got := substituteMentions("Alicelikestea is a handle, Alice is a person", msgs)
	want := "Alicelikestea is a handle, <@U123> is a person"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSubstituteMentions_DuplicateNameLastWins(t *testing.T) {
	// Two authors sharing a display name is a known ambiguity: the rule
	// built from the later message wins
	msgs := []models.EnrichedMessage{
		{DisplayName: "Alex", UserID: "U111", Text: "one"},
		{DisplayName: "Alex", UserID: "U222", Text: "two"},
	}

	got := substituteMentions("Alex said so", msgs)
	if got != "<@U222> said so" {
		t.Fatalf("want last-write-wins mention, got %q", got)
	}
}

func TestSubstituteMentions_RegexMetaInName(t *testing.T) {
	msgs := []models.EnrichedMessage{
		{DisplayName: "J. Doe", UserID: "U123", Text: "hi"},
	}

	got := substituteMentions("J. Doe approved", msgs)
	if got != "<@U123> approved" {
		t.Fatalf("want quoted-meta match, got %q", got)
	}
}
