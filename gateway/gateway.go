// Package gateway implements the assistant facade that sequences
// quota checks, context assembly, model dispatch, and interaction
// logging for one user session.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantagecrm/guru/assembler"
	"github.com/vantagecrm/guru/conversation"
	"github.com/vantagecrm/guru/dispatch"
	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/interactionlog"
	"github.com/vantagecrm/guru/ledger"
	"github.com/vantagecrm/guru/policy"
	"github.com/vantagecrm/guru/store"
)

// DefaultPage is the page a session starts on.
const DefaultPage = "dashboard"

// Publisher receives every message appended to a session, for push
// delivery to connected clients. Optional.
type Publisher interface {
	Publish(userID string, msg domain.Message)
}

// Deps bundles the collaborators a session facade needs.
type Deps struct {
	Policy       *policy.Engine
	Store        store.Store
	Ledger       *ledger.Ledger
	Assembler    *assembler.Assembler
	Dispatcher   *dispatch.Dispatcher
	Interactions *interactionlog.Logger
	Publisher    Publisher
	Logger       *zap.Logger
}

// Gateway is the facade for one user's assistant session. The quota
// policy is resolved once at construction; revalidating it requires a
// new session.
type Gateway struct {
	userID string
	deps   Deps
	conv   *conversation.Store
	now    func() time.Time

	mu          sync.Mutex
	currentPage string
	dailyLimit  int
	usageCount  int

	inflight atomic.Int64
}

// New creates a session facade for the user, resolving their role to a
// daily limit. A missing or unreadable profile resolves to the most
// restrictive tier via the policy's unknown-role default.
func New(ctx context.Context, userID, page string, deps Deps) *Gateway {
	role := ""
	if profile, err := deps.Store.GetProfile(ctx, userID); err != nil {
		deps.Logger.Warn("profile read failed, using restrictive quota tier",
			zap.String("user_id", userID),
			zap.Error(err))
	} else {
		role = profile.Role
	}

	if page == "" {
		page = DefaultPage
	}

	return &Gateway{
		userID: userID,
		deps:   deps,
		conv:   conversation.NewStore(),
		now:    time.Now,

		currentPage: page,
		dailyLimit:  deps.Policy.DailyLimit(ctx, role),
	}
}

// Open shows the assistant. First open on an empty history seeds one
// welcome message referencing the current page's first suggested
// query; repeated opens are idempotent.
func (g *Gateway) Open(ctx context.Context) {
	g.mu.Lock()
	page := g.currentPage
	g.mu.Unlock()

	welcome := g.newMessage(domain.RoleAssistant, welcomeText(g.deps.Assembler.SuggestedQueries(page)), nil)
	if g.conv.OpenWith(welcome) {
		g.publish(welcome)
	}

	count := g.deps.Ledger.CountToday(ctx, g.userID)
	g.mu.Lock()
	g.usageCount = count
	g.mu.Unlock()
}

// Close hides the assistant. In-flight sends keep running; their
// replies are appended and logged so a re-open shows them.
func (g *Gateway) Close() {
	g.conv.Close()
}

// Clear empties the transcript.
func (g *Gateway) Clear() {
	g.conv.Clear()
}

// SetPage records the page the user is viewing; it drives context
// assembly and suggested queries for subsequent sends.
func (g *Gateway) SetPage(page string) {
	if page == "" {
		page = DefaultPage
	}
	g.mu.Lock()
	g.currentPage = page
	g.mu.Unlock()
}

// SendMessage runs one exchange: the user turn is appended
// immediately, then quota check, context assembly, dispatch, reply
// append, and logging. All failures degrade to transcript messages;
// nothing is surfaced as an error. Concurrent calls are tolerated;
// the quota check may over-admit by the number of in-flight sends.
func (g *Gateway) SendMessage(ctx context.Context, text string) {
	g.inflight.Add(1)
	defer g.inflight.Add(-1)

	userMsg := g.newMessage(domain.RoleUser, text, nil)
	g.conv.Append(userMsg)
	g.publish(userMsg)

	g.mu.Lock()
	page := g.currentPage
	limit := g.dailyLimit
	g.mu.Unlock()

	if g.deps.Ledger.HasReachedLimit(ctx, g.userID, limit) {
		notice := g.newMessage(domain.RoleSystem, limitNotice(limit), nil)
		g.conv.Append(notice)
		g.publish(notice)
		return
	}

	snap := g.deps.Assembler.Assemble(ctx, page, g.userID)

	history := g.conv.Messages()
	reply, meta, tokens, err := g.deps.Dispatcher.Dispatch(ctx, history, snap)
	if err != nil {
		g.deps.Logger.Warn("dispatch failed",
			zap.String("user_id", g.userID),
			zap.String("page", page),
			zap.Error(err))
		apology := g.newMessage(domain.RoleAssistant,
			"Sorry, I couldn't process that right now. Please try again in a moment.", nil)
		g.conv.Append(apology)
		g.publish(apology)
		return
	}

	replyMsg := g.newMessage(domain.RoleAssistant, reply, meta)
	g.conv.Append(replyMsg)
	g.publish(replyMsg)

	var metaJSON json.RawMessage
	if meta != nil {
		metaJSON, _ = json.Marshal(meta)
	}
	g.deps.Interactions.Log(ctx, &domain.InteractionLog{
		UserID:     g.userID,
		Prompt:     text,
		Response:   reply,
		Page:       page,
		Metadata:   metaJSON,
		TokensUsed: tokens,
		Model:      g.deps.Dispatcher.Model(),
	})

	// The count is derived from the log, never incremented locally.
	count := g.deps.Ledger.CountToday(ctx, g.userID)
	g.mu.Lock()
	g.usageCount = count
	g.mu.Unlock()
}

// State is the read-only snapshot consumed by the presentation layer.
type State struct {
	IsOpen           bool             `json:"is_open"`
	IsLoading        bool             `json:"is_loading"`
	Messages         []domain.Message `json:"messages"`
	UsageCount       int              `json:"usage_count"`
	UsageLimit       int              `json:"usage_limit"`
	CurrentPage      string           `json:"current_page"`
	SuggestedQueries []string         `json:"suggested_queries"`
}

// State returns the current observable state.
func (g *Gateway) State() State {
	g.mu.Lock()
	page := g.currentPage
	limit := g.dailyLimit
	count := g.usageCount
	g.mu.Unlock()

	return State{
		IsOpen:           g.conv.IsOpen(),
		IsLoading:        g.inflight.Load() > 0,
		Messages:         g.conv.Messages(),
		UsageCount:       count,
		UsageLimit:       limit,
		CurrentPage:      page,
		SuggestedQueries: g.deps.Assembler.SuggestedQueries(page),
	}
}

func (g *Gateway) newMessage(role domain.Role, content string, meta *domain.MessageMetadata) domain.Message {
	return domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		Role:      role,
		Content:   content,
		CreatedAt: g.now().UTC(),
		Metadata:  meta,
	}
}

func (g *Gateway) publish(msg domain.Message) {
	if g.deps.Publisher != nil {
		g.deps.Publisher.Publish(g.userID, msg)
	}
}

func welcomeText(queries []string) string {
	if len(queries) == 0 {
		return "Hi! I'm Guru, your CRM assistant. Ask me anything about your data."
	}
	return fmt.Sprintf("Hi! I'm Guru, your CRM assistant. Try asking: %q", queries[0])
}

func limitNotice(limit int) string {
	return fmt.Sprintf("You've reached your daily limit of %d assistant requests. Your quota resets at midnight UTC.", limit)
}
