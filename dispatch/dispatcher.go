// Package dispatch builds prompts and calls the model backend.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vantagecrm/guru/assembler"
	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/llm"
)

// DefaultContextByteCap bounds the JSON rendering of the context
// snapshot inside the system prompt. Oversize snapshots are truncated,
// never rejected.
const DefaultContextByteCap = 4000

// Completer is the model backend call.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.ChatMessage, temperature float64, maxTokens int) (string, error)
}

// Settings are the per-deployment model parameters.
type Settings struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	ContextByteCap int
	Timeout        time.Duration
}

// Dispatcher assembles the prompt and dispatches it to the model.
type Dispatcher struct {
	client   Completer
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a dispatcher.
func New(client Completer, settings Settings, logger *zap.Logger) *Dispatcher {
	if settings.ContextByteCap <= 0 {
		settings.ContextByteCap = DefaultContextByteCap
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	return &Dispatcher{
		client:   client,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Model returns the configured model name, for log records.
func (d *Dispatcher) Model() string {
	return d.settings.Model
}

// Dispatch sends the history plus grounding context to the model and
// returns the reply text, parsed metadata, and a token estimate for
// bookkeeping. Transport failures and timeouts surface as
// domain.ErrModelUnavailable.
func (d *Dispatcher) Dispatch(ctx context.Context, history []domain.Message, snap assembler.Snapshot) (string, *domain.MessageMetadata, int, error) {
	system := d.buildSystemPrompt(snap)

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.ChatMessage{Role: string(domain.RoleSystem), Content: system})
	for _, m := range history {
		messages = append(messages, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, d.settings.Timeout)
	defer cancel()

	start := d.now()
	raw, err := d.client.Complete(callCtx, d.settings.Model, messages, d.settings.Temperature, d.settings.MaxTokens)
	if err != nil {
		d.logger.Warn("model dispatch failed",
			zap.String("model", d.settings.Model),
			zap.Duration("elapsed", d.now().Sub(start)),
			zap.Error(err))
		return "", nil, 0, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	var promptSize int
	for _, m := range messages {
		promptSize += EstimateTokens(m.Content)
	}
	tokens := promptSize + EstimateTokens(raw)

	text, meta := ParseReply(raw)
	return text, meta, tokens, nil
}

// buildSystemPrompt renders the single system message: page, UTC
// timestamp, truncated context JSON, and the behavioral instructions.
func (d *Dispatcher) buildSystemPrompt(snap assembler.Snapshot) string {
	var b strings.Builder
	b.WriteString("You are Guru, the assistant embedded in this CRM. ")
	b.WriteString("Respond in a structured, concise format. Be specific with numbers when answering analytical questions.\n")
	fmt.Fprintf(&b, "Current page: %s\n", snap.Page)
	fmt.Fprintf(&b, "Current time (UTC): %s\n", d.now().UTC().Format(time.RFC3339))
	b.WriteString("Context data:\n")
	b.WriteString(d.renderContext(snap))
	b.WriteString("\nIf useful, you may end the reply with a single line `META: {...}` carrying ")
	b.WriteString(`{"confidence_score":0-100,"sources":[...],"suggested_actions":[{"label":...,"action_id":...}]}.`)
	return b.String()
}

// renderContext marshals the snapshot data and applies the byte cap.
// Truncation is deterministic for identical inputs.
func (d *Dispatcher) renderContext(snap assembler.Snapshot) string {
	raw, err := json.Marshal(snap.Data)
	if err != nil {
		d.logger.Warn("context marshal failed", zap.Error(err))
		return "{}"
	}
	if len(raw) <= d.settings.ContextByteCap {
		return string(raw)
	}
	cut := raw[:d.settings.ContextByteCap]
	// Back off to a rune boundary so the prompt never carries a split
	// multi-byte sequence.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRune(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return string(cut) + "...[truncated]"
}

// EstimateTokens approximates token count as characters over four,
// rounded up. Used only for logging and quota bookkeeping.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

const metaPrefix = "META:"

// ParseReply splits an optional trailing metadata line off the reply.
// A malformed trailer is left in place rather than dropped.
func ParseReply(raw string) (string, *domain.MessageMetadata) {
	trimmed := strings.TrimRight(raw, "\n \t")
	idx := strings.LastIndex(trimmed, "\n")
	last := trimmed
	if idx >= 0 {
		last = trimmed[idx+1:]
	}

	if !strings.HasPrefix(strings.TrimSpace(last), metaPrefix) {
		return raw, nil
	}

	payload := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(last), metaPrefix))
	var meta domain.MessageMetadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return raw, nil
	}

	if idx < 0 {
		// The whole reply is the trailer; keep it as the visible text
		// so the transcript never shows an empty assistant turn.
		return raw, &meta
	}
	return strings.TrimRight(trimmed[:idx], "\n \t"), &meta
}
