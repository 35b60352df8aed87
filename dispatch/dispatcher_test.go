package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/vantagecrm/guru/assembler"
	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/llm"
)

// fakeCompleter records the last request and returns canned output.
type fakeCompleter struct {
	lastModel    string
	lastMessages []llm.ChatMessage
	reply        string
	err          error
	calls        int
}

func (f *fakeCompleter) Complete(ctx context.Context, model string, messages []llm.ChatMessage, temperature float64, maxTokens int) (string, error) {
	f.calls++
	f.lastModel = model
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testSnapshot() assembler.Snapshot {
	return assembler.Snapshot{
		Page:        "deals",
		GeneratedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Data: map[string]interface{}{
			"recent_deals": []map[string]interface{}{{"deal_id": "d1", "stage": "negotiation"}},
		},
	}
}

func TestDispatchBuildsSingleSystemMessage(t *testing.T) {
	fake := &fakeCompleter{reply: "3 deals in flight."}
	d := New(fake, Settings{Model: "gpt-4o-mini"}, zap.NewNop())

	history := []domain.Message{
		{Role: domain.RoleAssistant, Content: "Hi!"},
		{Role: domain.RoleUser, Content: "summarize pipeline"},
	}

	reply, meta, tokens, err := d.Dispatch(context.Background(), history, testSnapshot())
	assert.NoError(t, err)
	assert.Equal(t, "3 deals in flight.", reply)
	assert.Nil(t, meta)
	assert.Greater(t, tokens, 0)

	assert.Equal(t, "gpt-4o-mini", fake.lastModel)
	assert.Len(t, fake.lastMessages, 3)

	systemCount := 0
	for _, m := range fake.lastMessages {
		if m.Role == "system" {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)

	system := fake.lastMessages[0].Content
	assert.Contains(t, system, "Current page: deals")
	assert.Contains(t, system, "recent_deals")
	assert.Contains(t, system, "Current time (UTC):")
}

func TestDispatchModelFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("connection refused")}
	d := New(fake, Settings{Model: "gpt-4o-mini"}, zap.NewNop())

	_, _, _, err := d.Dispatch(context.Background(), nil, testSnapshot())
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestContextTruncationDeterministic(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	d := New(fake, Settings{Model: "m", ContextByteCap: 100}, zap.NewNop())
	d.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	snap := testSnapshot()
	snap.Data["padding"] = strings.Repeat("x", 500)

	first := d.renderContext(snap)
	second := d.renderContext(snap)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, "...[truncated]"))
	assert.LessOrEqual(t, len(first), 100+len("...[truncated]"))
}

func TestContextTruncationKeepsValidUTF8(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	d := New(fake, Settings{Model: "m"}, zap.NewNop())

	snap := testSnapshot()
	snap.Data["padding"] = strings.Repeat("日本語テキスト", 200)

	// Sweep the cap across byte offsets so every cut point inside a
	// multi-byte sequence is exercised.
	for n := 95; n <= 105; n++ {
		d.settings.ContextByteCap = n
		out := d.renderContext(snap)
		assert.True(t, utf8.ValidString(out), "cap %d produced invalid UTF-8: %q", n, out)
		assert.True(t, strings.HasSuffix(out, "...[truncated]"))
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	// Rune-based, not byte-based.
	assert.Equal(t, 1, EstimateTokens("日本"))
}

func TestParseReplyWithMetadata(t *testing.T) {
	raw := "Pipeline is healthy.\nMETA: {\"confidence_score\":85,\"sources\":[\"deals\"]}"
	text, meta := ParseReply(raw)

	assert.Equal(t, "Pipeline is healthy.", text)
	if meta == nil {
		t.Fatal("expected metadata")
	}
	assert.Equal(t, 85, meta.ConfidenceScore)
	assert.Equal(t, []string{"deals"}, meta.Sources)
}

func TestParseReplyMalformedTrailerKept(t *testing.T) {
	raw := "Answer.\nMETA: {not json"
	text, meta := ParseReply(raw)

	assert.Equal(t, raw, text)
	assert.Nil(t, meta)
}

func TestParseReplyNoTrailer(t *testing.T) {
	text, meta := ParseReply("Just an answer.")
	assert.Equal(t, "Just an answer.", text)
	assert.Nil(t, meta)
}

func TestParseReplyTrailerOnlyKeepsText(t *testing.T) {
	raw := "META: {\"confidence_score\":70}"
	text, meta := ParseReply(raw)

	assert.Equal(t, raw, text)
	if meta == nil {
		t.Fatal("expected metadata")
	}
	assert.Equal(t, 70, meta.ConfidenceScore)
}
